package services

import (
	"context"
	"sync"
	"time"

	"github.com/nopfarsi/sizpay-gateway/internal/application"
	"github.com/nopfarsi/sizpay-gateway/internal/domain"
)

// MockOrderStore is an in-memory OrderStore for tests. Each method can be
// overridden through its Fn field; the default behavior is a map-backed
// store.
type MockOrderStore struct {
	mu     sync.RWMutex
	orders map[int64]*domain.Order
	notes  map[int64][]*domain.OrderNote
	nextID int64

	GetOrderFn          func(ctx context.Context, id int64) (*domain.Order, error)
	GetOrderForUpdateFn func(ctx context.Context, id int64) (*domain.Order, error)
	AttachTokenFn       func(ctx context.Context, id int64, token string) error
	ClearTokenFn        func(ctx context.Context, id int64) error
	FinalizeOrderFn     func(ctx context.Context, id int64, state domain.PaymentState) error
	AppendNoteFn        func(ctx context.Context, note *domain.OrderNote) error
	FindStalePendingFn  func(ctx context.Context, olderThan time.Duration, limit int) ([]*domain.Order, error)
}

func NewMockOrderStore() *MockOrderStore {
	return &MockOrderStore{
		orders: make(map[int64]*domain.Order),
		notes:  make(map[int64][]*domain.OrderNote),
	}
}

func (m *MockOrderStore) Seed(order *domain.Order) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if order.ID > m.nextID {
		m.nextID = order.ID
	}
	cp := *order
	m.orders[order.ID] = &cp
}

// Get returns the current stored state of an order, for assertions.
func (m *MockOrderStore) Get(id int64) *domain.Order {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if o, ok := m.orders[id]; ok {
		cp := *o
		return &cp
	}
	return nil
}

// Notes returns the audit notes appended against an order.
func (m *MockOrderStore) Notes(id int64) []*domain.OrderNote {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.notes[id]
}

func (m *MockOrderStore) CreateOrder(ctx context.Context, order *domain.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if order.ID == 0 {
		m.nextID++
		order.ID = m.nextID
	}
	if order.State == "" {
		order.State = domain.StatePending
	}
	if order.CreatedAt.IsZero() {
		order.CreatedAt = time.Now().UTC()
	}
	order.UpdatedAt = order.CreatedAt
	cp := *order
	m.orders[order.ID] = &cp
	return nil
}

func (m *MockOrderStore) GetOrder(ctx context.Context, id int64) (*domain.Order, error) {
	if m.GetOrderFn != nil {
		return m.GetOrderFn(ctx, id)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if o, ok := m.orders[id]; ok {
		cp := *o
		return &cp, nil
	}
	return nil, domain.NewOrderNotFoundError(id)
}

func (m *MockOrderStore) GetOrderForUpdate(ctx context.Context, id int64) (*domain.Order, error) {
	if m.GetOrderForUpdateFn != nil {
		return m.GetOrderForUpdateFn(ctx, id)
	}
	return m.GetOrder(ctx, id)
}

func (m *MockOrderStore) AttachToken(ctx context.Context, id int64, token string) error {
	if m.AttachTokenFn != nil {
		return m.AttachTokenFn(ctx, id, token)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok {
		return domain.NewOrderNotFoundError(id)
	}
	o.AuthorizationToken = token
	return nil
}

func (m *MockOrderStore) ClearToken(ctx context.Context, id int64) error {
	if m.ClearTokenFn != nil {
		return m.ClearTokenFn(ctx, id)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok {
		return domain.NewOrderNotFoundError(id)
	}
	o.AuthorizationToken = ""
	return nil
}

func (m *MockOrderStore) FinalizeOrder(ctx context.Context, id int64, state domain.PaymentState) error {
	if m.FinalizeOrderFn != nil {
		return m.FinalizeOrderFn(ctx, id, state)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok {
		return domain.NewOrderNotFoundError(id)
	}
	if err := o.CanTransitionTo(state); err != nil {
		return err
	}
	o.State = state
	o.AuthorizationToken = ""
	if state == domain.StatePaid {
		now := time.Now().UTC()
		o.PaidAt = &now
	}
	return nil
}

func (m *MockOrderStore) AppendNote(ctx context.Context, note *domain.OrderNote) error {
	if m.AppendNoteFn != nil {
		return m.AppendNoteFn(ctx, note)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.notes[note.OrderID] = append(m.notes[note.OrderID], note)
	return nil
}

func (m *MockOrderStore) ListNotes(ctx context.Context, orderID int64) ([]*domain.OrderNote, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.notes[orderID], nil
}

func (m *MockOrderStore) FindStalePending(ctx context.Context, olderThan time.Duration, limit int) ([]*domain.Order, error) {
	if m.FindStalePendingFn != nil {
		return m.FindStalePendingFn(ctx, olderThan, limit)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	cutoff := time.Now().Add(-olderThan)
	var out []*domain.Order
	for _, o := range m.orders {
		if o.State == domain.StatePending && o.AuthorizationToken != "" && o.UpdatedAt.Before(cutoff) {
			cp := *o
			out = append(out, &cp)
			if len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

func (m *MockOrderStore) WithTx(ctx context.Context, fn func(application.OrderStore) error) error {
	return fn(m)
}

// MockGatewayClient stubs the remote gateway and counts calls so tests can
// assert that fail-closed paths never reach it.
type MockGatewayClient struct {
	mu sync.Mutex

	RequestTokenFn   func(ctx context.Context, req application.TokenRequest) (*application.TokenResponse, error)
	ConfirmPaymentFn func(ctx context.Context, req application.ConfirmRequest) (*application.ConfirmResponse, error)

	RequestTokenCalls   int
	ConfirmPaymentCalls int

	LastTokenRequest   application.TokenRequest
	LastConfirmRequest application.ConfirmRequest
}

func (m *MockGatewayClient) RequestToken(ctx context.Context, req application.TokenRequest) (*application.TokenResponse, error) {
	m.mu.Lock()
	m.RequestTokenCalls++
	m.LastTokenRequest = req
	m.mu.Unlock()
	if m.RequestTokenFn != nil {
		return m.RequestTokenFn(ctx, req)
	}
	return &application.TokenResponse{ResCod: 0, Token: "tok-1"}, nil
}

func (m *MockGatewayClient) ConfirmPayment(ctx context.Context, req application.ConfirmRequest) (*application.ConfirmResponse, error) {
	m.mu.Lock()
	m.ConfirmPaymentCalls++
	m.LastConfirmRequest = req
	m.mu.Unlock()
	if m.ConfirmPaymentFn != nil {
		return m.ConfirmPaymentFn(ctx, req)
	}
	return &application.ConfirmResponse{ResCod: 0, TraceNo: "trace-1", TransNo: "trans-1"}, nil
}
