package handlers

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/nopfarsi/sizpay-gateway/internal/application/services"
	"github.com/nopfarsi/sizpay-gateway/internal/domain"
)

type createOrderRequest struct {
	Amount int64 `json:"amount"`
}

type orderResponse struct {
	ID     int64    `json:"id"`
	Amount int64    `json:"amount"`
	State  string   `json:"state"`
	PaidAt string   `json:"paid_at,omitempty"`
	Notes  []string `json:"notes,omitempty"`
}

func toOrderResponse(o *domain.Order) orderResponse {
	resp := orderResponse{
		ID:     o.ID,
		Amount: o.Amount,
		State:  string(o.State),
	}
	if o.PaidAt != nil {
		resp.PaidAt = o.PaidAt.UTC().Format(time.RFC3339)
	}
	return resp
}

func (h *Handlers) CreateOrder(w http.ResponseWriter, r *http.Request) {
	var req createOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Amount < 0 {
		writeJSONError(w, http.StatusBadRequest, "amount must be non-negative")
		return
	}

	order := &domain.Order{Amount: req.Amount}
	if err := h.orders.CreateOrder(r.Context(), order); err != nil {
		h.logger.Error("failed to create order", "error", err)
		writeJSONError(w, http.StatusInternalServerError, "could not create order")
		return
	}

	writeJSON(w, http.StatusCreated, toOrderResponse(order))
}

func (h *Handlers) GetOrder(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "orderID"), 10, 64)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid order id")
		return
	}

	order, err := h.orders.GetOrder(r.Context(), id)
	if err != nil {
		if domain.IsErrorCode(err, domain.ErrCodeOrderNotFound) {
			writeJSONError(w, http.StatusNotFound, "order not found")
			return
		}
		h.logger.Error("failed to load order", "order_id", id, "error", err)
		writeJSONError(w, http.StatusInternalServerError, "could not load order")
		return
	}

	resp := toOrderResponse(order)

	notes, err := h.orders.ListNotes(r.Context(), id)
	if err != nil {
		h.logger.Error("failed to load order notes", "order_id", id, "error", err)
		writeJSONError(w, http.StatusInternalServerError, "could not load order")
		return
	}
	for _, n := range notes {
		resp.Notes = append(resp.Notes, n.Note)
	}

	writeJSON(w, http.StatusOK, resp)
}

// StartPayment is the checkout post-processing hook: it asks the issuer for
// a gateway session and sends the buyer wherever the issuer routed them.
// Per the error policy the buyer always ends up on the gateway page or the
// local error page, never on a raw status response.
func (h *Handlers) StartPayment(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "orderID"), 10, 64)
	if err != nil {
		h.redirectError(w, r, "invalid order id")
		return
	}

	order, err := h.orders.GetOrder(r.Context(), id)
	if err != nil {
		h.logger.Warn("payment start for unknown order", "order_id", id, "error", err)
		h.redirectError(w, r, "payment could not be started")
		return
	}

	// A session is already open for this order; allow a fresh attempt only
	// after the grace period so a double-submit does not open two.
	if order.AuthorizationToken != "" && !order.CanRePost(time.Now()) {
		h.redirectError(w, r, "payment already in progress")
		return
	}

	redirect, err := h.issuer.IssueAndRedirect(r.Context(), id)
	if err != nil {
		h.logger.Error("payment start failed", "order_id", id, "error", err)
		h.redirectError(w, r, "payment could not be started")
		return
	}

	http.Redirect(w, r, redirect.URL, http.StatusSeeOther)
}

func (h *Handlers) redirectError(w http.ResponseWriter, r *http.Request, message string) {
	q := url.Values{}
	q.Set("ErrorCode", strconv.Itoa(services.LocalErrorCode))
	q.Set("Message", message)
	http.Redirect(w, r, services.ErrorPath+"?"+q.Encode(), http.StatusSeeOther)
}
