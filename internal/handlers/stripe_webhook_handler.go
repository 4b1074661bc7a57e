package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"

	"mulchBack/internal/models"
	"mulchBack/internal/services"
)

// maxWebhookBody bounds how much of a webhook delivery gets read.
const maxWebhookBody = 65536

// StripeWebhookHandler ingests asynchronous payment events. This is the
// authoritative confirmation path: it runs whether or not the buyer's
// browser ever returns to the site.
type StripeWebhookHandler struct {
	Stripe    *services.StripeService
	Lifecycle *services.OrderLifecycleService
	Events    *services.EventCache
}

func (h *StripeWebhookHandler) HandleWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBody))
	if err != nil {
		writeError(w, "Failed to read request body", http.StatusBadRequest)
		return
	}

	sig := r.Header.Get("Stripe-Signature")
	if sig == "" {
		writeError(w, "Missing stripe-signature header", http.StatusBadRequest)
		return
	}

	// Nothing in the payload is trusted until the signature checks out. A
	// bad signature is permanent, so it is rejected without side effects;
	// the provider re-enters verification fresh if it redelivers.
	event, err := h.Stripe.ParseWebhookEvent(body, sig)
	if err != nil {
		if errors.Is(err, services.ErrInvalidSignature) {
			log.Printf("stripe webhook: %v", err)
			writeError(w, "Invalid signature", http.StatusBadRequest)
			return
		}
		writeError(w, "Malformed webhook payload", http.StatusBadRequest)
		return
	}

	if !h.Events.FirstDelivery(r.Context(), event.ID) {
		// Redelivery of an event that already went through; the first
		// processing settled the record.
		writeReceived(w)
		return
	}

	switch event.Type {
	case "checkout.session.completed":
		if err := h.Lifecycle.HandleCheckoutCompleted(r.Context(), event.Session); err != nil {
			if errors.Is(err, models.ErrInvalidTransition) || errors.Is(err, models.ErrOrderNotFound) {
				// Permanent for this event (typically the buyer cancelled
				// before the payment landed). Acknowledge so the provider
				// stops redelivering; the record is left for manual
				// reconciliation.
				log.Printf("stripe webhook: completed session %s not applied: %v", event.Session.ID, err)
				writeReceived(w)
				return
			}
			// Transient failure: release the event id so the provider's
			// retry is processed instead of being dropped as a duplicate.
			h.Events.Forget(r.Context(), event.ID)
			log.Printf("stripe webhook: processing error: %v", err)
			writeError(w, "Failed to process event", http.StatusInternalServerError)
			return
		}
	default:
		log.Printf("stripe webhook: ignoring event type %s", event.Type)
	}

	writeReceived(w)
}

func writeReceived(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]bool{"received": true})
}
