// Package handlers exposes the checkout and gateway-callback HTTP surface.
package handlers

import (
	"context"
	"html/template"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nopfarsi/sizpay-gateway/internal/application"
	"github.com/nopfarsi/sizpay-gateway/internal/application/services"
)

// Issuer starts a gateway payment session for an order.
type Issuer interface {
	IssueAndRedirect(ctx context.Context, orderID int64) (*services.Redirect, error)
}

// Verifier finalizes an order from a gateway callback.
type Verifier interface {
	Verify(ctx context.Context, req services.VerifyRequest) *services.Redirect
}

type Handlers struct {
	issuer         Issuer
	verifier       Verifier
	orders         application.OrderStore
	paymentPageURL string
	logger         *slog.Logger

	payTmpl       *template.Template
	errorTmpl     *template.Template
	completedTmpl *template.Template
}

func NewHandlers(
	issuer Issuer,
	verifier Verifier,
	orders application.OrderStore,
	paymentPageURL string,
	logger *slog.Logger,
) *Handlers {
	return &Handlers{
		issuer:         issuer,
		verifier:       verifier,
		orders:         orders,
		paymentPageURL: paymentPageURL,
		logger:         logger,
		payTmpl:        template.Must(template.New("pay").Parse(payPageHTML)),
		errorTmpl:      template.Must(template.New("error").Parse(errorPageHTML)),
		completedTmpl:  template.Must(template.New("completed").Parse(completedPageHTML)),
	}
}

// Router mounts all routes. verifyLimiter wraps only the inbound gateway
// callback, which is the one endpoint an outside party can hammer.
func (h *Handlers) Router(verifyLimiter func(http.Handler) http.Handler) *chi.Mux {
	r := chi.NewRouter()

	r.Get("/healthz", h.Health)

	r.Post("/checkout/orders", h.CreateOrder)
	r.Get("/checkout/orders/{orderID}", h.GetOrder)
	r.Post("/checkout/orders/{orderID}/pay", h.StartPayment)
	r.Get("/checkout/completed", h.CheckoutCompleted)

	r.Get(services.PayPath, h.Pay)
	r.With(verifyLimiter).Get(services.VerifyPath, h.Verify)
	r.Get(services.ErrorPath, h.Error)

	return r
}

func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
