// Package application holds the ports the protocol core depends on.
package application

import (
	"context"
	"time"

	"github.com/nopfarsi/sizpay-gateway/internal/domain"
)

// TokenRequest carries everything the gateway needs to open a payment
// session. Merchant credentials are attached by the gateway client itself;
// the protocol core never handles them.
type TokenRequest struct {
	Amount    int64
	DocDate   string
	OrderID   string
	InvoiceNo string
	ReturnURL string
}

type TokenResponse struct {
	ResCod  int
	Message string
	Token   string
}

type ConfirmRequest struct {
	Token string
}

type ConfirmResponse struct {
	ResCod  int
	Message string
	TraceNo string
	TransNo string
}

// GatewayClient is the port for the remote payment gateway. Success is
// judged only on the parsed ResCod, never on transport status.
type GatewayClient interface {
	RequestToken(ctx context.Context, req TokenRequest) (*TokenResponse, error)
	ConfirmPayment(ctx context.Context, req ConfirmRequest) (*ConfirmResponse, error)
}

// OrderStore is the port for order persistence. Implementations must provide
// read-after-write consistency for the authorization token: a token attached
// by the issuer is visible to any verifier invocation that follows.
type OrderStore interface {
	CreateOrder(ctx context.Context, order *domain.Order) error
	GetOrder(ctx context.Context, id int64) (*domain.Order, error)

	// GetOrderForUpdate takes a row-level lock on the order so concurrent
	// callbacks for the same order serialize. Only meaningful inside WithTx.
	GetOrderForUpdate(ctx context.Context, id int64) (*domain.Order, error)

	// AttachToken stores the issued token on a pending order.
	AttachToken(ctx context.Context, id int64, token string) error

	// ClearToken removes the authorization token from a pending order
	// without changing its state.
	ClearToken(ctx context.Context, id int64) error

	// FinalizeOrder atomically moves a pending order to a terminal state and
	// clears its token. The update is guarded on the current state being
	// Pending; a lost race returns an invalid-transition error.
	FinalizeOrder(ctx context.Context, id int64, state domain.PaymentState) error

	AppendNote(ctx context.Context, note *domain.OrderNote) error
	ListNotes(ctx context.Context, orderID int64) ([]*domain.OrderNote, error)

	// FindStalePending lists pending orders that still carry a token older
	// than the cutoff.
	FindStalePending(ctx context.Context, olderThan time.Duration, limit int) ([]*domain.Order, error)

	// WithTx executes fn within a database transaction.
	WithTx(ctx context.Context, fn func(OrderStore) error) error
}
