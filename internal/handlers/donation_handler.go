package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"mulchBack/internal/models"
	"mulchBack/internal/services"
)

type DonationHandler struct {
	Lifecycle *services.OrderLifecycleService
}

func (h *DonationHandler) CreateCheckout(w http.ResponseWriter, r *http.Request) {
	var in services.DonationCheckoutInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, "Invalid request", http.StatusBadRequest)
		return
	}
	session, err := h.Lifecycle.CreateDonationCheckout(r.Context(), in)
	if err != nil {
		if errors.Is(err, models.ErrValidation) {
			writeError(w, err.Error(), http.StatusBadRequest)
			return
		}
		log.Printf("CreateDonationCheckout error: %v", err)
		writeError(w, "Failed to create checkout session", http.StatusBadGateway)
		return
	}
	json.NewEncoder(w).Encode(map[string]string{
		"session_id":   session.ID,
		"checkout_url": session.URL,
	})
}

// Return backs the thank-you page: it makes sure a paid session has its
// donation recorded even if the webhook has not arrived yet.
func (h *DonationHandler) Return(w http.ResponseWriter, r *http.Request) {
	sessionID := r.URL.Query().Get("session_id")
	if sessionID == "" {
		writeError(w, "Missing session_id", http.StatusBadRequest)
		return
	}

	donation, pending, err := h.Lifecycle.ConfirmDonationReturn(r.Context(), sessionID)
	if err != nil {
		if errors.Is(err, models.ErrCorrelationMismatch) {
			writeError(w, "Session does not belong to a donation", http.StatusConflict)
			return
		}
		log.Printf("DonationReturn error: %v", err)
		writeError(w, "Payment could not be confirmed yet", http.StatusBadGateway)
		return
	}

	if pending {
		json.NewEncoder(w).Encode(map[string]any{"status": "pending"})
		return
	}
	json.NewEncoder(w).Encode(map[string]any{
		"status":   "paid",
		"donation": donation,
	})
}
