package services

import (
	"context"
	"log/slog"
	"net/url"
	"strconv"

	"github.com/nopfarsi/sizpay-gateway/internal/application"
	"github.com/nopfarsi/sizpay-gateway/internal/domain"
)

// VerifyRequest is the inbound gateway callback. MerchantID and TerminalID
// are client-echoed fields: usable for logging only, never for authorization
// decisions.
type VerifyRequest struct {
	ResCod     int
	Message    string
	MerchantID string
	TerminalID string
	OrderID    int64
	Token      string
}

// VerifierService is the security-critical half of the protocol: it never
// marks an order paid without an independent server-to-server confirmation,
// and it rejects callbacks whose token does not match the one stored by the
// issuer.
type VerifierService struct {
	orders       application.OrderStore
	gateway      application.GatewayClient
	completedURL string
	logger       *slog.Logger
}

func NewVerifierService(
	orders application.OrderStore,
	gateway application.GatewayClient,
	checkoutCompletedURL string,
	logger *slog.Logger,
) *VerifierService {
	return &VerifierService{
		orders:       orders,
		gateway:      gateway,
		completedURL: checkoutCompletedURL,
		logger:       logger,
	}
}

// Verify finalizes the order named by the callback and returns the redirect
// the buyer's browser should follow. Every failure path is converted into a
// routed outcome here; nothing escapes to crash the request.
//
// The whole check-confirm-finalize sequence runs under a row lock on the
// order, so concurrent duplicate callbacks serialize: the first one resolves
// the order, the rest observe a cleared token or terminal state and fail
// closed without contacting the gateway.
func (s *VerifierService) Verify(ctx context.Context, req VerifyRequest) *Redirect {
	if req.ResCod != 0 {
		// The gateway is reporting its own failure; nothing to confirm.
		s.logger.Warn("gateway callback reported failure",
			"order_id", req.OrderID,
			"res_cod", req.ResCod,
			"message", req.Message,
			"merchant_echo", req.MerchantID,
			"terminal_echo", req.TerminalID)
		return errorPageRedirect(req.ResCod, req.Message)
	}

	var out *Redirect
	err := s.orders.WithTx(ctx, func(tx application.OrderStore) error {
		order, err := tx.GetOrderForUpdate(ctx, req.OrderID)
		if err != nil {
			return err
		}

		if order.IsTerminal() || order.AuthorizationToken == "" {
			return domain.NewReplayedCallbackError()
		}

		if order.AuthorizationToken != req.Token {
			return domain.NewTokenMismatchError()
		}

		resp, err := s.gateway.ConfirmPayment(ctx, application.ConfirmRequest{Token: req.Token})
		if err != nil {
			return domain.NewTransportFailureError(err)
		}

		if resp.ResCod != 0 {
			if err := tx.AppendNote(ctx, domain.NewOrderNote(order.ID, resp.Message)); err != nil {
				return err
			}
			if err := tx.FinalizeOrder(ctx, order.ID, domain.StateFailed); err != nil {
				return err
			}
			s.logger.Warn("gateway refused confirmation",
				"order_id", order.ID,
				"error", domain.NewGatewayRejectedError(resp.ResCod, resp.Message))
			out = errorPageRedirect(resp.ResCod, resp.Message)
			return nil
		}

		if err := tx.AppendNote(ctx, domain.NewOrderNote(order.ID, resp.TraceNo+" "+resp.TransNo)); err != nil {
			return err
		}
		if err := tx.FinalizeOrder(ctx, order.ID, domain.StatePaid); err != nil {
			return err
		}

		s.logger.Info("payment confirmed",
			"order_id", order.ID,
			"trace_no", resp.TraceNo,
			"trans_no", resp.TransNo)

		out = s.completedRedirect(order.ID)
		return nil
	})
	if err != nil {
		// Fail closed. The logged error carries the real cause; the buyer
		// only ever sees the generic message so a probing caller cannot
		// learn whether the order exists or what its token is.
		s.logger.Error("callback verification failed",
			"order_id", req.OrderID,
			"merchant_echo", req.MerchantID,
			"terminal_echo", req.TerminalID,
			"error", err)
		return errorPageRedirect(LocalErrorCode, "payment verification failed")
	}

	return out
}

func (s *VerifierService) completedRedirect(orderID int64) *Redirect {
	q := url.Values{}
	q.Set("orderId", strconv.FormatInt(orderID, 10))
	return &Redirect{URL: s.completedURL + "?" + q.Encode()}
}
