package domain

import (
	"testing"
	"time"
)

func TestOrder_CanTransitionTo(t *testing.T) {
	tests := []struct {
		name    string
		from    PaymentState
		to      PaymentState
		wantErr bool
	}{
		{"pending to paid", StatePending, StatePaid, false},
		{"pending to failed", StatePending, StateFailed, false},
		{"paid is terminal", StatePaid, StateFailed, true},
		{"paid cannot revert", StatePaid, StatePending, true},
		{"failed is terminal", StateFailed, StatePaid, true},
		{"pending cannot stay pending", StatePending, StatePending, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := &Order{ID: 1, State: tt.from}
			err := o.CanTransitionTo(tt.to)
			if tt.wantErr && err == nil {
				t.Fatalf("expected error for %s -> %s, got nil", tt.from, tt.to)
			}
			if !tt.wantErr && err != nil {
				t.Fatalf("expected no error for %s -> %s, got %v", tt.from, tt.to, err)
			}
			if tt.wantErr && !IsErrorCode(err, ErrCodeInvalidTransition) {
				t.Errorf("expected error code %s, got %v", ErrCodeInvalidTransition, err)
			}
		})
	}
}

func TestOrder_IsTerminal(t *testing.T) {
	if (&Order{State: StatePending}).IsTerminal() {
		t.Error("pending order reported terminal")
	}
	if !(&Order{State: StatePaid}).IsTerminal() {
		t.Error("paid order not reported terminal")
	}
	if !(&Order{State: StateFailed}).IsTerminal() {
		t.Error("failed order not reported terminal")
	}
}

func TestOrder_CanRePost(t *testing.T) {
	now := time.Now()

	o := &Order{State: StatePending, CreatedAt: now.Add(-time.Minute)}
	if !o.CanRePost(now) {
		t.Error("expected re-post allowed for aged pending order")
	}

	o = &Order{State: StatePending, CreatedAt: now.Add(-2 * time.Second)}
	if o.CanRePost(now) {
		t.Error("expected re-post blocked inside grace period")
	}

	o = &Order{State: StatePaid, CreatedAt: now.Add(-time.Hour)}
	if o.CanRePost(now) {
		t.Error("expected re-post blocked for paid order")
	}
}
