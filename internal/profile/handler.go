// Package profile serves a customer's own profile and its detail records.
package profile

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/HanTheDev/policyguard/internal/auth"
	"github.com/HanTheDev/policyguard/internal/db"
	"github.com/HanTheDev/policyguard/internal/models"
	"github.com/asaskevich/govalidator"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

type Store interface {
	GetProfile(ctx context.Context, email string) (*models.Profile, error)
	EnsureCustomerID(ctx context.Context, email, candidate string) (string, error)
	UpdatePersonal(ctx context.Context, email, name, mobile string) error
	UpdateAddress(ctx context.Context, email, address string) error
	UpsertBanking(ctx context.Context, email string, b *models.BankingDetails) error
	UpsertOtherDetails(ctx context.Context, email string, d *models.OtherDetails) error
	ListApplications(ctx context.Context, userEmail, status string) ([]models.Application, error)
}

type Handler struct {
	store      Store
	middleware *auth.Middleware
}

func NewHandler(store Store, jwtSecret string) *Handler {
	return &Handler{store: store, middleware: auth.NewMiddleware(jwtSecret)}
}

func (h *Handler) RegisterRoutes(router *mux.Router) {
	protect := func(f http.HandlerFunc) http.Handler {
		return h.middleware.Authenticate(f)
	}

	router.Handle("/profile", protect(h.Get)).Methods("GET")
	router.Handle("/profile/insurance", protect(h.ListInsurance)).Methods("GET")
	router.Handle("/profile/personal", protect(h.UpdatePersonal)).Methods("PUT")
	router.Handle("/profile/banking", protect(h.UpdateBanking)).Methods("PUT")
	router.Handle("/profile/address", protect(h.UpdateAddress)).Methods("PUT")
	router.Handle("/profile/other-details", protect(h.UpdateOtherDetails)).Methods("PUT")
}

// Get returns the caller's profile with banking numbers masked. A customer
// id is assigned on first view.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	email := callerEmail(r)

	p, err := h.store.GetProfile(r.Context(), email)
	if err != nil {
		h.fail(w, "load profile", err)
		return
	}

	if p.CustomerID == "" {
		p.CustomerID, err = h.store.EnsureCustomerID(r.Context(), email, NewCustomerID())
		if err != nil {
			h.fail(w, "assign customer id", err)
			return
		}
	}

	if p.Banking != nil {
		masked := Mask(*p.Banking)
		p.Banking = &masked
	}

	policies, err := h.store.ListApplications(r.Context(), email, models.StatusActive)
	if err != nil {
		h.fail(w, "list policies", err)
		return
	}
	if policies == nil {
		policies = []models.Application{}
	}

	writeJSON(w, http.StatusOK, struct {
		*models.Profile
		InsurancePolicies []models.Application `json:"insurancePolicies"`
	}{p, policies})
}

func (h *Handler) ListInsurance(w http.ResponseWriter, r *http.Request) {
	policies, err := h.store.ListApplications(r.Context(), callerEmail(r), models.StatusActive)
	if err != nil {
		h.fail(w, "list policies", err)
		return
	}
	if policies == nil {
		policies = []models.Application{}
	}
	writeJSON(w, http.StatusOK, policies)
}

func (h *Handler) UpdatePersonal(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name  string `json:"name"`
		Phone string `json:"phone"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid request")
		return
	}

	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		writeMessage(w, http.StatusBadRequest, "Name is required")
		return
	}
	if req.Phone != "" && !govalidator.Matches(req.Phone, `^\+?[0-9]{7,15}$`) {
		writeMessage(w, http.StatusBadRequest, "Invalid phone number")
		return
	}

	if err := h.store.UpdatePersonal(r.Context(), callerEmail(r), req.Name, req.Phone); err != nil {
		h.fail(w, "update personal info", err)
		return
	}
	writeMessage(w, http.StatusOK, "Personal information updated successfully")
}

func (h *Handler) UpdateBanking(w http.ResponseWriter, r *http.Request) {
	var b models.BankingDetails
	if err := json.NewDecoder(r.Body).Decode(&b); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid request")
		return
	}

	b.PANNumber = strings.ToUpper(b.PANNumber)
	b.IFSCCode = strings.ToUpper(b.IFSCCode)
	b.AadharNumber = strings.ReplaceAll(b.AadharNumber, " ", "")

	if msg := ValidateBanking(b); msg != "" {
		writeMessage(w, http.StatusBadRequest, msg)
		return
	}

	if err := h.store.UpsertBanking(r.Context(), callerEmail(r), &b); err != nil {
		h.fail(w, "update banking details", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"message": "Banking details updated successfully",
		"data":    Mask(b),
	})
}

func (h *Handler) UpdateAddress(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Address string `json:"address"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.Address) == "" {
		writeMessage(w, http.StatusBadRequest, "Address is required")
		return
	}

	if err := h.store.UpdateAddress(r.Context(), callerEmail(r), req.Address); err != nil {
		h.fail(w, "update address", err)
		return
	}
	writeMessage(w, http.StatusOK, "Address updated successfully")
}

func (h *Handler) UpdateOtherDetails(w http.ResponseWriter, r *http.Request) {
	var d models.OtherDetails
	if err := json.NewDecoder(r.Body).Decode(&d); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid request")
		return
	}

	if err := h.store.UpsertOtherDetails(r.Context(), callerEmail(r), &d); err != nil {
		h.fail(w, "update other details", err)
		return
	}
	writeMessage(w, http.StatusOK, "Other details updated successfully")
}

func (h *Handler) fail(w http.ResponseWriter, action string, err error) {
	if errors.Is(err, db.ErrUserNotFound) {
		writeMessage(w, http.StatusNotFound, "User not found")
		return
	}
	log.Printf("Failed to %s: %v", action, err)
	writeMessage(w, http.StatusInternalServerError, "Failed to "+action)
}

func callerEmail(r *http.Request) string {
	claims, _ := auth.GetUserFromContext(r.Context())
	return claims.Email
}

// NewCustomerID returns an id like CUS-1A2B-3C4D-5E6F.
func NewCustomerID() string {
	id := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))
	return "CUS-" + id[:4] + "-" + id[4:8] + "-" + id[8:12]
}

func writeMessage(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"message": message})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
