package handlers

import (
	"net/http"
	"strconv"

	"github.com/nopfarsi/sizpay-gateway/internal/application/services"
)

// Pay renders the auto-submitting form that posts the buyer to the hosted
// payment page. Pure passthrough of parameters the issuer already computed.
func (h *Handlers) Pay(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	data := struct {
		Action     string
		MerchantID string
		TerminalID string
		Token      string
	}{
		Action:     h.paymentPageURL,
		MerchantID: q.Get("MerchantID"),
		TerminalID: q.Get("TerminalID"),
		Token:      q.Get("Token"),
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := h.payTmpl.Execute(w, data); err != nil {
		h.logger.Error("failed to render pay page", "error", err)
	}
}

// Verify receives the gateway's return callback. Parameter names follow the
// gateway contract: InvoiceNo carries the order id, MrchID and TrmnlID are
// untrusted echoes.
func (h *Handlers) Verify(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	orderID, err := strconv.ParseInt(q.Get("InvoiceNo"), 10, 64)
	if err != nil {
		h.logger.Warn("callback with unparsable invoice number",
			"invoice_no", q.Get("InvoiceNo"))
		h.redirectError(w, r, "payment verification failed")
		return
	}

	// An unparsable result code is never treated as success.
	resCod, err := strconv.Atoi(q.Get("ResCod"))
	if err != nil {
		h.logger.Warn("callback with unparsable result code",
			"order_id", orderID,
			"res_cod", q.Get("ResCod"))
		h.redirectError(w, r, "payment verification failed")
		return
	}

	redirect := h.verifier.Verify(r.Context(), services.VerifyRequest{
		ResCod:     resCod,
		Message:    q.Get("Message"),
		MerchantID: q.Get("MrchID"),
		TerminalID: q.Get("TrmnlID"),
		OrderID:    orderID,
		Token:      q.Get("Token"),
	})

	http.Redirect(w, r, redirect.URL, http.StatusSeeOther)
}

// Error renders the failure page. Displays exactly the code and message it
// was routed, no side effects.
func (h *Handlers) Error(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	data := struct {
		ErrorCode string
		Message   string
	}{
		ErrorCode: q.Get("ErrorCode"),
		Message:   q.Get("Message"),
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := h.errorTmpl.Execute(w, data); err != nil {
		h.logger.Error("failed to render error page", "error", err)
	}
}

func (h *Handlers) CheckoutCompleted(w http.ResponseWriter, r *http.Request) {
	data := struct {
		OrderID string
	}{
		OrderID: r.URL.Query().Get("orderId"),
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := h.completedTmpl.Execute(w, data); err != nil {
		h.logger.Error("failed to render completed page", "error", err)
	}
}
