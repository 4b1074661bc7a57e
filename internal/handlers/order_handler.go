package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"mulchBack/internal/models"
	"mulchBack/internal/services"
)

type OrderHandler struct {
	Lifecycle *services.OrderLifecycleService
}

func (h *OrderHandler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	var in services.CreateOrderInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, "Invalid request", http.StatusBadRequest)
		return
	}
	order, err := h.Lifecycle.CreateOrder(r.Context(), in)
	if err != nil {
		if errors.Is(err, models.ErrOrdersClosed) {
			writeError(w, "Mulch orders are closed for the season", http.StatusForbidden)
			return
		}
		if errors.Is(err, models.ErrValidation) {
			writeError(w, err.Error(), http.StatusBadRequest)
			return
		}
		log.Printf("CreateOrder error: %v", err)
		writeError(w, "Failed to create order", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(order)
}

func (h *OrderHandler) GetOrderByID(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get(":id")
	if id == "" {
		writeError(w, "Missing order id", http.StatusBadRequest)
		return
	}
	order, err := h.Lifecycle.GetOrder(r.Context(), id)
	if err != nil {
		if errors.Is(err, models.ErrOrderNotFound) {
			writeError(w, "Order not found", http.StatusNotFound)
			return
		}
		log.Printf("GetOrderByID error: %v", err)
		writeError(w, "Failed to get order", http.StatusInternalServerError)
		return
	}
	json.NewEncoder(w).Encode(order)
}

func (h *OrderHandler) CancelOrder(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get(":id")
	order, err := h.Lifecycle.CancelOrder(r.Context(), id)
	if err != nil {
		if errors.Is(err, models.ErrOrderNotFound) {
			writeError(w, "Order not found", http.StatusNotFound)
			return
		}
		if errors.Is(err, models.ErrInvalidTransition) {
			writeError(w, err.Error(), http.StatusConflict)
			return
		}
		log.Printf("CancelOrder error: %v", err)
		writeError(w, "Failed to cancel order", http.StatusInternalServerError)
		return
	}
	json.NewEncoder(w).Encode(order)
}

// CreateCheckout opens a hosted checkout session for a pending order and
// hands the redirect URL back to the client.
func (h *OrderHandler) CreateCheckout(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get(":id")
	session, err := h.Lifecycle.CreateOrderCheckout(r.Context(), id)
	if err != nil {
		if errors.Is(err, models.ErrOrderNotFound) {
			writeError(w, "Order not found", http.StatusNotFound)
			return
		}
		if errors.Is(err, models.ErrInvalidTransition) {
			writeError(w, "Order is not pending payment", http.StatusConflict)
			return
		}
		log.Printf("CreateCheckout error: %v", err)
		writeError(w, "Failed to create checkout session", http.StatusBadGateway)
		return
	}
	json.NewEncoder(w).Encode(map[string]string{
		"session_id":   session.ID,
		"checkout_url": session.URL,
	})
}

// Return handles the browser coming back from checkout. It never reports
// an error for a session that simply is not paid yet; the webhook remains
// responsible for confirming those.
func (h *OrderHandler) Return(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get(":id")
	sessionID := r.URL.Query().Get("session_id")
	if sessionID == "" {
		writeError(w, "Missing session_id", http.StatusBadRequest)
		return
	}

	order, pending, err := h.Lifecycle.ConfirmOrderReturn(r.Context(), id, sessionID)
	if err != nil {
		if errors.Is(err, models.ErrOrderNotFound) {
			writeError(w, "Order not found", http.StatusNotFound)
			return
		}
		if errors.Is(err, models.ErrCorrelationMismatch) {
			writeError(w, "Payment confirmation does not match this order", http.StatusConflict)
			return
		}
		if errors.Is(err, models.ErrInvalidTransition) {
			writeError(w, err.Error(), http.StatusConflict)
			return
		}
		log.Printf("Return error: %v", err)
		writeError(w, "Payment could not be confirmed yet", http.StatusBadGateway)
		return
	}

	status := "paid"
	if pending {
		status = "pending"
	}
	json.NewEncoder(w).Encode(map[string]any{
		"status": status,
		"order":  order,
	})
}
