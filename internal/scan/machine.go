// Package scan reconciles decoded codes with the cart: a decoded code is
// looked up, then either confirmed into the cart, rejected as a duplicate,
// or reported as unknown.
package scan

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/lionarc/dein-p3-markt/internal/cart"
	"github.com/lionarc/dein-p3-markt/internal/catalog"
	"github.com/lionarc/dein-p3-markt/internal/domain"
	"go.uber.org/zap"
)

const (
	DefaultMessageTTL    = 3 * time.Second
	DefaultLookupTimeout = 5 * time.Second
)

// Cart is the part of the session the machine needs. AddToCart must re-check
// for duplicates against the current cart.
type Cart interface {
	IsProductInCart(productID string) bool
	AddToCart(ctx context.Context, product domain.Product) cart.AddResult
}

type Catalog interface {
	LookupByCode(ctx context.Context, code string) (*domain.Product, error)
}

type Options struct {
	Decoder       Decoder
	Catalog       Catalog
	Cart          Cart
	Logger        *zap.Logger
	MessageTTL    time.Duration
	LookupTimeout time.Duration
	Now           func() time.Time
}

// View is what the UI renders for the scanner.
type View struct {
	State       State           `json:"state"`
	Product     *domain.Product `json:"product,omitempty"`
	Message     string          `json:"message,omitempty"`
	MessageKind MessageKind     `json:"messageKind,omitempty"`
	Decoder     DecoderState    `json:"decoder"`
}

type Machine struct {
	mu      sync.Mutex
	state   State
	product *domain.Product
	message string
	kind    MessageKind
	// zero means the message stays until the state changes
	messageUntil  time.Time
	notFoundUntil time.Time
	// set while Confirm waits on the cart
	adding bool

	decoder       Decoder
	catalog       Catalog
	cart          Cart
	log           *zap.Logger
	messageTTL    time.Duration
	lookupTimeout time.Duration
	now           func() time.Time
}

func NewMachine(opts Options) *Machine {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.MessageTTL <= 0 {
		opts.MessageTTL = DefaultMessageTTL
	}
	if opts.LookupTimeout <= 0 {
		opts.LookupTimeout = DefaultLookupTimeout
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Machine{
		state:         StateIdle,
		decoder:       opts.Decoder,
		catalog:       opts.Catalog,
		cart:          opts.Cart,
		log:           opts.Logger,
		messageTTL:    opts.MessageTTL,
		lookupTimeout: opts.LookupTimeout,
		now:           opts.Now,
	}
}

// Start begins a scan session. A decoder that fails to start leaves the
// machine Idle and returns ErrScannerUnavailable.
func (m *Machine) Start(ctx context.Context) error {
	m.mu.Lock()
	m.expire()
	if !m.state.CanStart() {
		state := m.state
		m.mu.Unlock()
		return fmt.Errorf("%w: cannot start from %s", ErrInvalidTransition, state)
	}
	m.enter(StateScanning, nil)
	m.setMessage(MsgScannerActive, MessageInfo, false)
	m.mu.Unlock()

	err := m.decoder.Start(ctx, m.onDecoded, m.onDecoderError)
	if err == nil {
		m.mu.Lock()
		scanning := m.state == StateScanning
		m.mu.Unlock()
		if !scanning {
			if stopErr := m.stopDecoder(ctx); stopErr != nil {
				m.log.Warn("failed to stop decoder", zap.Error(stopErr))
			}
			return fmt.Errorf("%w: stopped while starting", ErrInvalidTransition)
		}
		m.log.Debug("scanner started")
		return nil
	}

	m.mu.Lock()
	if m.state == StateScanning {
		m.enter(StateIdle, nil)
		m.setMessage(MsgScannerUnavailable, MessageError, true)
	}
	m.mu.Unlock()
	m.log.Warn("scanner failed to start", zap.Error(err))
	return fmt.Errorf("%w: %w", ErrScannerUnavailable, err)
}

// Stop ends a scan session. It is safe when nothing was started and when
// called repeatedly. Pending decisions are kept.
func (m *Machine) Stop(ctx context.Context) error {
	m.mu.Lock()
	m.expire()
	if m.state == StateScanning {
		m.enter(StateIdle, nil)
		m.clearMessage()
	}
	m.mu.Unlock()

	return m.stopDecoder(ctx)
}

func (m *Machine) onDecoded(text string) {
	if err := m.HandleDecoded(context.Background(), text); err != nil && !errors.Is(err, ErrInvalidTransition) {
		m.log.Warn("decoded code not resolved", zap.Error(err))
	}
}

func (m *Machine) onDecoderError(err error) {
	m.log.Debug("decoder error", zap.Error(err))
}

// HandleDecoded resolves decoded text. It is only honoured while scanning;
// the decoder is stopped before the lookup so one physical code yields one
// decision.
func (m *Machine) HandleDecoded(ctx context.Context, text string) error {
	m.mu.Lock()
	m.expire()
	if m.state != StateScanning {
		state := m.state
		m.mu.Unlock()
		m.log.Debug("dropping decoded text", zap.Stringer("state", state))
		return fmt.Errorf("%w: decoded text while %s", ErrInvalidTransition, state)
	}
	m.enter(StateResolving, nil)
	m.setMessage(MsgResolving, MessageInfo, false)
	m.mu.Unlock()

	if err := m.stopDecoder(ctx); err != nil {
		m.log.Warn("failed to stop decoder", zap.Error(err))
	}

	lookupCtx, cancel := context.WithTimeout(ctx, m.lookupTimeout)
	product, err := m.catalog.LookupByCode(lookupCtx, text)
	cancel()

	m.mu.Lock()
	defer m.mu.Unlock()

	switch {
	case errors.Is(err, catalog.ErrProductNotFound) || (err == nil && product == nil):
		m.enter(StateNotFound, nil)
		m.setMessage(MsgNotFound, MessageError, true)
		m.notFoundUntil = m.messageUntil
		m.log.Info("scanned code not found", zap.String("code", text))
		return nil
	case err != nil:
		m.enter(StateIdle, nil)
		m.setMessage(MsgLookupFailed, MessageError, true)
		return fmt.Errorf("%w: %w", ErrLookupFailed, err)
	case m.cart.IsProductInCart(product.ID):
		m.enter(StateAlreadyInCart, product)
		m.setMessage(cart.MsgAlreadyInCart, MessageWarning, false)
		return nil
	default:
		m.enter(StateConfirming, product)
		m.clearMessage()
		return nil
	}
}

// Confirm adds the pending product. The cart re-checks for duplicates, so a
// product added meanwhile lands in AlreadyInCart instead. The machine lock is
// not held while the cart works.
func (m *Machine) Confirm(ctx context.Context) (cart.AddResult, error) {
	m.mu.Lock()
	m.expire()
	if m.state != StateConfirming || m.adding {
		state := m.state
		m.mu.Unlock()
		return cart.AddResult{}, fmt.Errorf("%w: confirm while %s", ErrInvalidTransition, state)
	}
	m.adding = true
	product := *m.product
	m.mu.Unlock()

	result := m.cart.AddToCart(ctx, product)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.adding = false
	if m.state != StateConfirming || m.product == nil || m.product.ID != product.ID {
		return result, nil
	}

	if result.Success {
		m.enter(StateIdle, nil)
		m.setMessage(result.Message, MessageSuccess, true)
		m.log.Info("scanned product added", zap.String("product_id", product.ID))
		return result, nil
	}

	m.enter(StateAlreadyInCart, &product)
	m.setMessage(result.Message, MessageWarning, false)
	return result, nil
}

// Cancel discards the pending product.
func (m *Machine) Cancel() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.expire()

	if m.state != StateConfirming || m.adding {
		return fmt.Errorf("%w: cancel while %s", ErrInvalidTransition, m.state)
	}
	m.enter(StateIdle, nil)
	m.clearMessage()
	return nil
}

// Acknowledge dismisses the already-in-cart dialog or the not-found notice.
// It never retries the add.
func (m *Machine) Acknowledge() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.expire()

	if m.state != StateAlreadyInCart && m.state != StateNotFound {
		return fmt.Errorf("%w: acknowledge while %s", ErrInvalidTransition, m.state)
	}
	m.enter(StateIdle, nil)
	m.clearMessage()
	return nil
}

func (m *Machine) Snapshot() View {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.expire()

	view := View{
		State:       m.state,
		Message:     m.message,
		MessageKind: m.kind,
		Decoder:     m.decoder.State(),
	}
	if m.product != nil {
		p := *m.product
		view.Product = &p
	}
	return view
}

func (m *Machine) stopDecoder(ctx context.Context) error {
	if m.decoder.State() == DecoderStopped {
		return nil
	}
	return m.decoder.Stop(ctx)
}

// callers hold m.mu

func (m *Machine) enter(state State, product *domain.Product) {
	if m.state != state {
		m.log.Debug("scan state changed", zap.Stringer("from", m.state), zap.Stringer("to", state))
	}
	m.state = state
	m.product = product
	m.notFoundUntil = time.Time{}
}

func (m *Machine) setMessage(text string, kind MessageKind, transient bool) {
	m.message = text
	m.kind = kind
	m.messageUntil = time.Time{}
	if transient {
		m.messageUntil = m.now().Add(m.messageTTL)
	}
}

func (m *Machine) clearMessage() {
	m.message = ""
	m.kind = MessageNone
	m.messageUntil = time.Time{}
}

// expire applies the timeouts of transient messages and of NotFound.
func (m *Machine) expire() {
	now := m.now()
	if m.state == StateNotFound && !m.notFoundUntil.IsZero() && !now.Before(m.notFoundUntil) {
		m.enter(StateIdle, nil)
	}
	if !m.messageUntil.IsZero() && !now.Before(m.messageUntil) {
		m.clearMessage()
	}
}
