package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/aws/aws-lambda-go/events"
	"github.com/lionarc/dein-p3-markt/internal/catalog"
	"github.com/lionarc/dein-p3-markt/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type mockReader struct {
	products []domain.Product
	err      error
}

func (m *mockReader) LookupByCode(ctx context.Context, code string) (*domain.Product, error) {
	if m.err != nil {
		return nil, m.err
	}
	for _, p := range m.products {
		if p.Code == code {
			return &p, nil
		}
	}
	return nil, catalog.ErrProductNotFound
}

func (m *mockReader) ListAll(ctx context.Context) ([]domain.Product, error) {
	return m.products, m.err
}

func newHandler(reader *mockReader) *handler {
	return &handler{products: reader, log: zap.NewNop()}
}

var juice = domain.Product{ID: "p1", Name: "Juice", Price: decimal.RequireFromString("2.49"), Code: "4001"}

func TestHandle_ListProducts(t *testing.T) {
	h := newHandler(&mockReader{products: []domain.Product{juice}})

	resp, err := h.handle(context.Background(), events.APIGatewayProxyRequest{HTTPMethod: http.MethodGet, Path: "/products"})
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Headers["Content-Type"])
	var body map[string][]domain.Product
	require.NoError(t, json.Unmarshal([]byte(resp.Body), &body))
	require.Len(t, body["products"], 1)
	assert.Equal(t, "Juice", body["products"][0].Name)
}

func TestHandle_EmptyCatalog(t *testing.T) {
	h := newHandler(&mockReader{})

	resp, err := h.handle(context.Background(), events.APIGatewayProxyRequest{HTTPMethod: http.MethodGet, Path: "/products"})
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"products":[]}`, resp.Body)
}

func TestHandle_LookupByCode(t *testing.T) {
	h := newHandler(&mockReader{products: []domain.Product{juice}})

	resp, err := h.handle(context.Background(), events.APIGatewayProxyRequest{
		HTTPMethod:     http.MethodGet,
		Path:           "/products/4001",
		PathParameters: map[string]string{"code": "4001"},
	})
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var product domain.Product
	require.NoError(t, json.Unmarshal([]byte(resp.Body), &product))
	assert.Equal(t, "p1", product.ID)
	assert.True(t, juice.Price.Equal(product.Price))
}

func TestHandle_Errors(t *testing.T) {
	tests := []struct {
		name   string
		reader *mockReader
		req    events.APIGatewayProxyRequest
		want   int
	}{
		{
			name:   "unknown code",
			reader: &mockReader{},
			req:    events.APIGatewayProxyRequest{HTTPMethod: http.MethodGet, PathParameters: map[string]string{"code": "9999"}},
			want:   http.StatusNotFound,
		},
		{
			name:   "breaker open",
			reader: &mockReader{err: catalog.ErrCatalogUnavailable},
			req:    events.APIGatewayProxyRequest{HTTPMethod: http.MethodGet},
			want:   http.StatusServiceUnavailable,
		},
		{
			name:   "backend failure",
			reader: &mockReader{err: errors.New("connection reset")},
			req:    events.APIGatewayProxyRequest{HTTPMethod: http.MethodGet},
			want:   http.StatusInternalServerError,
		},
		{
			name:   "write method",
			reader: &mockReader{},
			req:    events.APIGatewayProxyRequest{HTTPMethod: http.MethodPost},
			want:   http.StatusMethodNotAllowed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := newHandler(tt.reader).handle(context.Background(), tt.req)
			require.NoError(t, err)
			assert.Equal(t, tt.want, resp.StatusCode)
		})
	}
}
