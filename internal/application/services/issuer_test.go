package services

import (
	"context"
	"errors"
	"log/slog"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nopfarsi/sizpay-gateway/internal/application"
	"github.com/nopfarsi/sizpay-gateway/internal/config"
	"github.com/nopfarsi/sizpay-gateway/internal/domain"
)

func testGatewayConfig(isToman bool) config.GatewayConfig {
	return config.GatewayConfig{
		RouteServiceURL: "https://rt.sizpay.ir/KimiaIPGRouteService.asmx",
		PaymentPageURL:  "https://sizpay.ir/payment/send",
		MerchantID:      "M1",
		TerminalID:      "T9",
		Username:        "user",
		Password:        "pass",
		ConnTimeout:     5 * time.Second,
		IsToman:         isToman,
	}
}

func newIssuer(store *MockOrderStore, gw *MockGatewayClient, isToman bool) *IssuerService {
	return NewIssuerService(store, gw, testGatewayConfig(isToman), "https://shop.example.com", slog.Default())
}

func pendingOrder(id, amount int64) *domain.Order {
	return &domain.Order{
		ID:        id,
		Amount:    amount,
		State:     domain.StatePending,
		CreatedAt: time.Now().Add(-time.Minute),
		UpdatedAt: time.Now().Add(-time.Minute),
	}
}

func TestIssuer_Success(t *testing.T) {
	store := NewMockOrderStore()
	store.Seed(pendingOrder(42, 50000))

	gw := &MockGatewayClient{
		RequestTokenFn: func(ctx context.Context, req application.TokenRequest) (*application.TokenResponse, error) {
			return &application.TokenResponse{ResCod: 0, Token: "T1"}, nil
		},
	}

	redirect, err := newIssuer(store, gw, false).IssueAndRedirect(context.Background(), 42)
	require.NoError(t, err)
	require.NotNil(t, redirect)

	// Amount passes through unconverted when the store already bills Rials.
	assert.Equal(t, int64(50000), gw.LastTokenRequest.Amount)
	assert.Equal(t, "42", gw.LastTokenRequest.OrderID)
	assert.Equal(t, "42", gw.LastTokenRequest.InvoiceNo)
	assert.Contains(t, gw.LastTokenRequest.ReturnURL, "https://shop.example.com"+VerifyPath)
	assert.Contains(t, gw.LastTokenRequest.ReturnURL, "InvoiceNo=42")
	assert.Regexp(t, `^\d{4}/\d{1,2}/\d{1,2}$`, gw.LastTokenRequest.DocDate)

	assert.Equal(t, "T1", store.Get(42).AuthorizationToken)
	assert.Equal(t, domain.StatePending, store.Get(42).State)

	u, err := url.Parse(redirect.URL)
	require.NoError(t, err)
	assert.Equal(t, PayPath, u.Path)
	assert.Equal(t, "T1", u.Query().Get("Token"))
	assert.Equal(t, "M1", u.Query().Get("MerchantID"))
	assert.Equal(t, "T9", u.Query().Get("TerminalID"))
}

func TestIssuer_TomanConversion(t *testing.T) {
	tests := []struct {
		name       string
		isToman    bool
		amount     int64
		wantAmount int64
	}{
		{"toman store multiplies by ten", true, 1000, 10000},
		{"rial store passes through", false, 1000, 1000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := NewMockOrderStore()
			store.Seed(pendingOrder(7, tt.amount))
			gw := &MockGatewayClient{}

			_, err := newIssuer(store, gw, tt.isToman).IssueAndRedirect(context.Background(), 7)
			require.NoError(t, err)
			assert.Equal(t, tt.wantAmount, gw.LastTokenRequest.Amount)
		})
	}
}

func TestIssuer_GatewayRefusal_LeavesOrderUntouched(t *testing.T) {
	store := NewMockOrderStore()
	seeded := pendingOrder(42, 50000)
	store.Seed(seeded)

	gw := &MockGatewayClient{
		RequestTokenFn: func(ctx context.Context, req application.TokenRequest) (*application.TokenResponse, error) {
			return &application.TokenResponse{ResCod: 104, Message: "invalid terminal"}, nil
		},
	}

	redirect, err := newIssuer(store, gw, false).IssueAndRedirect(context.Background(), 42)
	require.NoError(t, err)
	require.NotNil(t, redirect)

	assert.Equal(t, *seeded, *store.Get(42))

	u, err := url.Parse(redirect.URL)
	require.NoError(t, err)
	assert.Equal(t, ErrorPath, u.Path)
	assert.Equal(t, "104", u.Query().Get("ErrorCode"))
	assert.Equal(t, "invalid terminal", u.Query().Get("Message"))
}

func TestIssuer_TransportFailure(t *testing.T) {
	store := NewMockOrderStore()
	seeded := pendingOrder(42, 50000)
	store.Seed(seeded)

	gw := &MockGatewayClient{
		RequestTokenFn: func(ctx context.Context, req application.TokenRequest) (*application.TokenResponse, error) {
			return nil, errors.New("connection reset")
		},
	}

	redirect, err := newIssuer(store, gw, false).IssueAndRedirect(context.Background(), 42)
	require.Error(t, err)
	assert.Nil(t, redirect)
	assert.True(t, domain.IsErrorCode(err, domain.ErrCodeTransportFailure))
	assert.Equal(t, *seeded, *store.Get(42))
}

func TestIssuer_OrderNotPayable(t *testing.T) {
	store := NewMockOrderStore()
	paid := pendingOrder(9, 100)
	paid.State = domain.StatePaid
	store.Seed(paid)
	gw := &MockGatewayClient{}

	_, err := newIssuer(store, gw, false).IssueAndRedirect(context.Background(), 9)
	require.Error(t, err)
	assert.True(t, domain.IsErrorCode(err, domain.ErrCodeInvalidTransition))
	assert.Zero(t, gw.RequestTokenCalls)
}

func TestIssuer_OrderNotFound(t *testing.T) {
	store := NewMockOrderStore()
	gw := &MockGatewayClient{}

	_, err := newIssuer(store, gw, false).IssueAndRedirect(context.Background(), 404)
	require.Error(t, err)
	assert.True(t, domain.IsErrorCode(err, domain.ErrCodeOrderNotFound))
	assert.Zero(t, gw.RequestTokenCalls)
}

func TestDocDate(t *testing.T) {
	// Nowruz 1399 fell on 20 March 2020.
	d := DocDate(time.Date(2020, 3, 20, 12, 0, 0, 0, time.UTC))
	assert.Equal(t, "1399/1/1", d)

	// Unix epoch: 11 Dey 1348.
	d = DocDate(time.Date(1970, 1, 1, 12, 0, 0, 0, time.UTC))
	assert.Equal(t, "1348/10/11", d)
}
