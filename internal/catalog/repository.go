package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/lionarc/dein-p3-markt/internal/domain"
	_ "modernc.org/sqlite"
)

const (
	DialectSQLite   = "sqlite"
	DialectPostgres = "postgres"
	DialectMySQL    = "mysql"
)

const productColumns = `id, name, description, price, image_url, code, created_at`

func init() {
	// modernc registers itself as "sqlite", which sqlx does not know
	sqlx.BindDriver(DialectSQLite, sqlx.QUESTION)
}

// Repository is the SQL-backed catalog.
type Repository struct {
	db      *sqlx.DB
	dialect string
	now     func() time.Time
	newID   func() string
}

// Open connects to the catalog database. dialect doubles as the driver name.
func Open(ctx context.Context, dialect, dsn string) (*Repository, error) {
	switch dialect {
	case DialectSQLite, DialectPostgres, DialectMySQL:
	default:
		return nil, fmt.Errorf("unknown catalog dialect %q", dialect)
	}

	if dialect == DialectMySQL {
		var err error
		if dsn, err = mysqlDSN(dsn); err != nil {
			return nil, err
		}
	}

	db, err := sqlx.Open(dialect, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if dialect == DialectSQLite {
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(25)
		db.SetMaxIdleConns(25)
		db.SetConnMaxLifetime(5 * time.Minute)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return NewRepository(db, dialect), nil
}

// mysqlDSN forces the options created_at scanning and multi-statement
// migrations depend on.
func mysqlDSN(dsn string) (string, error) {
	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return "", fmt.Errorf("invalid mysql dsn: %w", err)
	}
	cfg.ParseTime = true
	cfg.MultiStatements = true
	return cfg.FormatDSN(), nil
}

func NewRepository(db *sqlx.DB, dialect string) *Repository {
	return &Repository{
		db:      db,
		dialect: dialect,
		now:     func() time.Time { return time.Now().UTC() },
		newID:   func() string { return uuid.NewString() },
	}
}

func (r *Repository) LookupByCode(ctx context.Context, code string) (*domain.Product, error) {
	query := r.db.Rebind(`SELECT ` + productColumns + ` FROM products WHERE code = ?`)
	return r.getOne(ctx, query, code)
}

func (r *Repository) GetByID(ctx context.Context, id string) (*domain.Product, error) {
	query := r.db.Rebind(`SELECT ` + productColumns + ` FROM products WHERE id = ?`)
	return r.getOne(ctx, query, id)
}

func (r *Repository) getOne(ctx context.Context, query string, arg string) (*domain.Product, error) {
	var p domain.Product
	err := r.db.GetContext(ctx, &p, query, arg)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrProductNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query product: %w", err)
	}
	return &p, nil
}

func (r *Repository) ListAll(ctx context.Context) ([]domain.Product, error) {
	products := []domain.Product{}
	query := `SELECT ` + productColumns + ` FROM products ORDER BY created_at, name`
	if err := r.db.SelectContext(ctx, &products, query); err != nil {
		return nil, fmt.Errorf("failed to query products: %w", err)
	}
	return products, nil
}

func (r *Repository) Create(ctx context.Context, np domain.NewProduct) (string, error) {
	if err := Validate(np); err != nil {
		return "", err
	}

	p := domain.Product{
		ID:          r.newID(),
		Name:        strings.TrimSpace(np.Name),
		Description: np.Description,
		Price:       np.Price,
		ImageURL:    np.ImageURL,
		Code:        strings.TrimSpace(np.Code),
		CreatedAt:   r.now(),
	}

	query := r.db.Rebind(`INSERT INTO products (` + productColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?)`)
	_, err := r.db.ExecContext(ctx, query,
		p.ID, p.Name, p.Description, p.Price, p.ImageURL, p.Code, p.CreatedAt)
	if isUniqueViolation(err) {
		return "", fmt.Errorf("code %q: %w", p.Code, ErrDuplicateCode)
	}
	if err != nil {
		return "", fmt.Errorf("failed to insert product: %w", err)
	}
	return p.ID, nil
}

func (r *Repository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, r.db.Rebind(`DELETE FROM products WHERE id = ?`), id)
	if err != nil {
		return fmt.Errorf("failed to delete product: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete product: %w", err)
	}
	if n == 0 {
		return ErrProductNotFound
	}
	return nil
}

func (r *Repository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *Repository) Close() error {
	return r.db.Close()
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		return myErr.Number == 1062
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
