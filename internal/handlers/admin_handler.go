package handlers

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"mulchBack/internal/models"
	"mulchBack/internal/repositories"
	"mulchBack/internal/services"
	"mulchBack/utils"
)

type AdminHandler struct {
	Lifecycle    *services.OrderLifecycleService
	Reports      *services.ReportService
	OrderRepo    *repositories.OrderRepository
	DonationRepo *repositories.DonationRepository
	Tokens       *utils.Manager

	AdminEmail    string
	AdminPassword string
}

func (h *AdminHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "Invalid request", http.StatusBadRequest)
		return
	}

	if err := h.checkCredentials(req.Email, req.Password); err != nil {
		writeError(w, "Invalid credentials", http.StatusUnauthorized)
		return
	}

	token, err := h.Tokens.NewJWT(req.Email, "admin", 20*time.Hour)
	if err != nil {
		log.Printf("Login error: %v", err)
		writeError(w, "Failed to issue token", http.StatusInternalServerError)
		return
	}
	json.NewEncoder(w).Encode(map[string]string{"token": token})
}

// checkCredentials compares both fields in constant time regardless of
// which one is wrong.
func (h *AdminHandler) checkCredentials(email, password string) error {
	emailOK := subtle.ConstantTimeCompare([]byte(email), []byte(h.AdminEmail)) == 1
	passOK := subtle.ConstantTimeCompare([]byte(password), []byte(h.AdminPassword)) == 1
	if !emailOK || !passOK {
		return models.ErrInvalidCredentials
	}
	return nil
}

func (h *AdminHandler) GetOrders(w http.ResponseWriter, r *http.Request) {
	year := yearParam(r)
	orders, err := h.OrderRepo.ListOrdersForYear(r.Context(), year)
	if err != nil {
		log.Printf("GetOrders error: %v", err)
		writeError(w, "Failed to list orders", http.StatusInternalServerError)
		return
	}
	json.NewEncoder(w).Encode(map[string]any{
		"year":   year,
		"orders": orders,
	})
}

// UpdateOrderStatus drives the admin-only transitions (FULFILLED after
// delivery day, REFUNDED on explicit refund). Illegal edges are rejected
// by the lifecycle, not here.
func (h *AdminHandler) UpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get(":id")
	var req struct {
		Status models.OrderStatus `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "Invalid request", http.StatusBadRequest)
		return
	}

	order, err := h.Lifecycle.SetOrderStatus(r.Context(), id, req.Status)
	if err != nil {
		if errors.Is(err, models.ErrOrderNotFound) {
			writeError(w, "Order not found", http.StatusNotFound)
			return
		}
		if errors.Is(err, models.ErrValidation) {
			writeError(w, err.Error(), http.StatusBadRequest)
			return
		}
		if errors.Is(err, models.ErrInvalidTransition) {
			writeError(w, err.Error(), http.StatusConflict)
			return
		}
		log.Printf("UpdateOrderStatus error: %v", err)
		writeError(w, "Failed to update order", http.StatusInternalServerError)
		return
	}
	json.NewEncoder(w).Encode(order)
}

func (h *AdminHandler) GetDonations(w http.ResponseWriter, r *http.Request) {
	donations, err := h.DonationRepo.ListDonations(r.Context())
	if err != nil {
		log.Printf("GetDonations error: %v", err)
		writeError(w, "Failed to list donations", http.StatusInternalServerError)
		return
	}
	json.NewEncoder(w).Encode(donations)
}

func (h *AdminHandler) GetReport(w http.ResponseWriter, r *http.Request) {
	report, err := h.Reports.YearReport(r.Context(), yearParam(r))
	if err != nil {
		log.Printf("GetReport error: %v", err)
		writeError(w, "Failed to build report", http.StatusInternalServerError)
		return
	}
	json.NewEncoder(w).Encode(report)
}

func yearParam(r *http.Request) int {
	if y, err := strconv.Atoi(r.URL.Query().Get("year")); err == nil && y > 0 {
		return y
	}
	return time.Now().Year()
}
