package http

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/sevasangam/puja-bookings/internal/booking"
	"github.com/sevasangam/puja-bookings/internal/config"
	"github.com/sevasangam/puja-bookings/internal/domain"
	"github.com/sevasangam/puja-bookings/internal/idempotency"
	"github.com/sevasangam/puja-bookings/internal/observability"
)

// IdempotencyStore keeps the first response for a request key so replays of
// the same callback return the original result.
type IdempotencyStore interface {
	Get(ctx context.Context, key string) (*idempotency.Response, error)
	Set(ctx context.Context, key string, resp idempotency.Response) error
}

type Handlers struct {
	cfg        *config.Config
	repo       booking.OrderRepository
	intents    *booking.IntentService
	verifier   *booking.Verifier
	lifecycle  *booking.Lifecycle
	assignment *booking.Assignment
	idemp      IdempotencyStore
	logger     observability.Logger
}

func NewHandlers(
	cfg *config.Config,
	repo booking.OrderRepository,
	intents *booking.IntentService,
	verifier *booking.Verifier,
	lifecycle *booking.Lifecycle,
	assignment *booking.Assignment,
	idemp IdempotencyStore,
	logger observability.Logger,
) *Handlers {
	return &Handlers{
		cfg:        cfg,
		repo:       repo,
		intents:    intents,
		verifier:   verifier,
		lifecycle:  lifecycle,
		assignment: assignment,
		idemp:      idemp,
		logger:     logger,
	}
}

func (h *Handlers) CreatePaymentIntent(w http.ResponseWriter, r *http.Request) {
	var req struct {
		PoojaID     uuid.UUID   `json:"pooja_id"`
		ChadhavaIDs []uuid.UUID `json:"chadhava_ids"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	intent, err := h.intents.CreatePaymentIntent(r.Context(), req.PoojaID, req.ChadhavaIDs)
	if err != nil {
		h.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"gateway_order_id":   intent.GatewayOrderID,
		"amount":             intent.Amount,
		"gateway_public_key": intent.GatewayPublicKey,
	})
}

func (h *Handlers) VerifyPayment(w http.ResponseWriter, r *http.Request) {
	key := r.Header.Get("Idempotency-Key")
	existing, err := h.idemp.Get(r.Context(), key)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if existing != nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(existing.Status)
		w.Write(existing.Result)
		return
	}

	var req struct {
		GatewayOrderID   string `json:"gateway_order_id"`
		GatewayPaymentID string `json:"gateway_payment_id"`
		Signature        string `json:"signature"`
		Details          struct {
			DevoteeID uuid.UUID `json:"devotee_id"`
			PoojaDate time.Time `json:"pooja_date"`
			Name      string    `json:"name"`
			Gotra     string    `json:"gotra"`
			Phone     string    `json:"phone"`
			Wish      string    `json:"wish"`
			Address   string    `json:"address"`
		} `json:"details"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	order, err := h.verifier.VerifyAndCreateOrder(r.Context(), booking.VerifyRequest{
		GatewayOrderID:   req.GatewayOrderID,
		GatewayPaymentID: req.GatewayPaymentID,
		Signature:        req.Signature,
		Details: domain.BookingDetails{
			DevoteeID: req.Details.DevoteeID,
			PoojaDate: req.Details.PoojaDate,
			Name:      req.Details.Name,
			Gotra:     req.Details.Gotra,
			Phone:     req.Details.Phone,
			Wish:      req.Details.Wish,
			Address:   req.Details.Address,
		},
	})
	if err != nil {
		h.writeError(w, err)
		return
	}

	data, _ := json.Marshal(orderResponse(order))
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	w.Write(data)

	// A failed store only weakens replay protection for this key; the order
	// itself is already committed.
	if err := h.idemp.Set(r.Context(), key, idempotency.Response{Status: http.StatusCreated, Result: data}); err != nil {
		h.logger.WithError(err).WithField("idempotency_key", key).Warn("failed to store idempotent response")
	}
}

func (h *Handlers) GetOrder(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}

	order, err := h.repo.GetByID(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, orderResponse(order))
}

func (h *Handlers) ListUnassigned(w http.ResponseWriter, r *http.Request) {
	orders, err := h.repo.ListUnassigned(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	out := make([]map[string]interface{}, 0, len(orders))
	for i := range orders {
		out = append(out, orderResponse(&orders[i]))
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"orders": out})
}

func (h *Handlers) AssignPandit(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}
	var req struct {
		PanditID uuid.UUID `json:"pandit_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	order, err := h.assignment.Assign(r.Context(), id, req.PanditID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, orderResponse(order))
}

func (h *Handlers) UnassignPandit(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}

	order, err := h.assignment.Unassign(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, orderResponse(order))
}

func (h *Handlers) SetFulfillmentStatus(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}
	var req struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	order, err := h.lifecycle.SetStatus(r.Context(), id, domain.FulfillmentStatus(req.Status))
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, orderResponse(order))
}

func (h *Handlers) AttachProof(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}
	var req struct {
		ProofURL string `json:"proof_url"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	order, err := h.lifecycle.AttachProof(r.Context(), id, req.ProofURL)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, orderResponse(order))
}

func (h *Handlers) CancelOrder(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}

	order, err := h.lifecycle.Cancel(r.Context(), id, ActorFrom(r.Context()))
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, orderResponse(order))
}

func (h *Handlers) Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

func (h *Handlers) Readyz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("Ready"))
}

func (h *Handlers) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrValidation):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, domain.ErrSignatureInvalid):
		http.Error(w, "payment verification failed", http.StatusPaymentRequired)
	case errors.Is(err, domain.ErrNotFound):
		http.Error(w, "order not found", http.StatusNotFound)
	case errors.Is(err, domain.ErrIllegalTransition):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, domain.ErrConflict), errors.Is(err, domain.ErrSerializationFailure):
		http.Error(w, "conflict, try again", http.StatusConflict)
	case errors.Is(err, domain.ErrDuplicateBookingID):
		http.Error(w, "temporary failure, try again", http.StatusServiceUnavailable)
	default:
		h.logger.WithError(err).Error("request failed")
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

func orderResponse(order *domain.Order) map[string]interface{} {
	addOns := make([]map[string]interface{}, 0, len(order.AddOns))
	for _, item := range order.AddOns {
		addOns = append(addOns, map[string]interface{}{
			"chadhava_id": item.ChadhavaID,
			"name":        item.Name,
			"price":       item.Price,
			"icon":        item.Icon,
		})
	}
	resp := map[string]interface{}{
		"order_id":           order.ID,
		"booking_id":         order.BookingID,
		"devotee_id":         order.DevoteeID,
		"pooja_id":           order.PoojaID,
		"temple_id":          order.TempleID,
		"pandit_id":          order.PanditID,
		"pooja_name":         order.PoojaName,
		"temple_name":        order.TempleName,
		"pooja_date":         order.PoojaDate.Format(time.RFC3339),
		"add_ons":            addOns,
		"base_amount":        order.BaseAmount,
		"addon_amount":       order.AddOnAmount,
		"total_amount":       order.TotalAmount,
		"payment_status":     order.PaymentStatus,
		"fulfillment_status": order.FulfillmentStatus,
	}
	if order.ProofURL != "" {
		resp["proof_url"] = order.ProofURL
	}
	if order.CompletedAt != nil {
		resp["completed_at"] = order.CompletedAt.Format(time.RFC3339)
	}
	return resp
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
