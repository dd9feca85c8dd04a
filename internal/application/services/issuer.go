package services

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"time"

	ptime "github.com/yaa110/go-persian-calendar"

	"github.com/nopfarsi/sizpay-gateway/internal/application"
	"github.com/nopfarsi/sizpay-gateway/internal/config"
	"github.com/nopfarsi/sizpay-gateway/internal/domain"
)

// IssuerService opens a gateway payment session for a pending order: it
// requests a one-time token, stores it on the order and produces the
// redirect that sends the buyer to the hosted payment page.
type IssuerService struct {
	orders  application.OrderStore
	gateway application.GatewayClient
	cfg     config.GatewayConfig
	baseURL string
	logger  *slog.Logger
	now     func() time.Time
}

func NewIssuerService(
	orders application.OrderStore,
	gateway application.GatewayClient,
	cfg config.GatewayConfig,
	publicBaseURL string,
	logger *slog.Logger,
) *IssuerService {
	return &IssuerService{
		orders:  orders,
		gateway: gateway,
		cfg:     cfg,
		baseURL: publicBaseURL,
		logger:  logger,
		now:     time.Now,
	}
}

// IssueAndRedirect runs the checkout post-processing step for one order.
//
// On gateway success the issued token is attached to the order and the
// returned redirect points at the hosted payment page. On gateway refusal
// the order is left untouched and the redirect points at the local error
// page carrying the gateway's code and message. A transport failure is
// returned as an error: the checkout pipeline must abort, never treat the
// order as paid.
func (s *IssuerService) IssueAndRedirect(ctx context.Context, orderID int64) (*Redirect, error) {
	order, err := s.orders.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if !order.Payable() {
		return nil, domain.NewOrderNotPayableError(order.ID, order.State)
	}

	// The gateway bills in Rials. A Toman-denominated store total is
	// converted exactly, never inferred.
	amount := order.Amount
	if s.cfg.IsToman {
		amount *= 10
	}

	id := strconv.FormatInt(order.ID, 10)

	resp, err := s.gateway.RequestToken(ctx, application.TokenRequest{
		Amount:    amount,
		DocDate:   DocDate(s.now()),
		OrderID:   id,
		InvoiceNo: id,
		ReturnURL: s.returnURL(order.ID),
	})
	if err != nil {
		s.logger.Error("token request failed",
			"order_id", order.ID,
			"error", err)
		return nil, domain.NewTransportFailureError(err)
	}

	if resp.ResCod != 0 {
		s.logger.Error("gateway refused token request",
			"order_id", order.ID,
			"error", domain.NewGatewayRejectedError(resp.ResCod, resp.Message))
		return errorPageRedirect(resp.ResCod, resp.Message), nil
	}

	if err := s.orders.AttachToken(ctx, order.ID, resp.Token); err != nil {
		return nil, err
	}

	s.logger.Info("payment token issued",
		"order_id", order.ID,
		"amount", amount)

	return payPageRedirect(s.cfg.MerchantID, s.cfg.TerminalID, resp.Token), nil
}

func (s *IssuerService) returnURL(orderID int64) string {
	q := url.Values{}
	q.Set("InvoiceNo", strconv.FormatInt(orderID, 10))
	return s.baseURL + VerifyPath + "?" + q.Encode()
}

// DocDate renders t as a Solar Hijri date in the gateway's required
// year/month/day form, without zero padding.
func DocDate(t time.Time) string {
	pt := ptime.New(t)
	return fmt.Sprintf("%d/%d/%d", pt.Year(), int(pt.Month()), pt.Day())
}
