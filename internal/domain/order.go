// Package domain defines the order model shared by the token issuer and the
// callback verifier.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// PaymentState represents the current state of an order's payment lifecycle
type PaymentState string

const (
	StatePending PaymentState = "PENDING"
	StatePaid    PaymentState = "PAID"
	StateFailed  PaymentState = "FAILED"
)

// RepostGracePeriod is the minimum order age before the buyer may restart a
// payment attempt for a still-pending order.
const RepostGracePeriod = 5 * time.Second

// Order is the coordination point between checkout, the token issuer and the
// callback verifier. AuthorizationToken binds the order to a single gateway
// session: it is non-empty only between token issuance and payment resolution.
type Order struct {
	ID     int64
	Amount int64

	State              PaymentState
	AuthorizationToken string

	CreatedAt time.Time
	UpdatedAt time.Time
	PaidAt    *time.Time
}

// CanTransitionTo validates whether the order can move from its current state
// to the target state. Transitions are forward-only:
//   - Pending → Paid, Failed
//
// Paid and Failed are terminal.
func (o *Order) CanTransitionTo(target PaymentState) error {
	if o.State == StatePending && (target == StatePaid || target == StateFailed) {
		return nil
	}
	return NewInvalidTransitionError(o.State, target)
}

func (o *Order) IsTerminal() bool {
	return o.State != StatePending
}

// Payable reports whether the token issuer may open a gateway session for
// this order.
func (o *Order) Payable() bool {
	return o.State == StatePending && o.Amount >= 0
}

// CanRePost reports whether the buyer may restart payment for this order at
// the given instant. Re-posting is only allowed for pending orders older than
// the grace period, so a double-submitted checkout does not open two gateway
// sessions back to back.
func (o *Order) CanRePost(now time.Time) bool {
	return o.State == StatePending && now.Sub(o.CreatedAt) >= RepostGracePeriod
}

// OrderNote is one append-only audit record. Notes are never mutated once
// written.
type OrderNote struct {
	ID        uuid.UUID
	OrderID   int64
	Note      string
	CreatedAt time.Time
}

func NewOrderNote(orderID int64, note string) *OrderNote {
	return &OrderNote{
		ID:        uuid.New(),
		OrderID:   orderID,
		Note:      note,
		CreatedAt: time.Now().UTC(),
	}
}
