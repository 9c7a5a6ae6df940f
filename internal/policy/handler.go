// Package policy takes vehicle policy applications and lists a customer's
// policies.
package policy

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/HanTheDev/policyguard/internal/auth"
	"github.com/HanTheDev/policyguard/internal/db"
	"github.com/HanTheDev/policyguard/internal/models"
	"github.com/asaskevich/govalidator"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

type Store interface {
	CreateApplication(ctx context.Context, app *models.Application) error
	LinkApplication(ctx context.Context, id, userEmail, managementID string) error
	ListApplications(ctx context.Context, userEmail, status string) ([]models.Application, error)
}

var requiredFields = []string{
	"vehicleType", "registrationNumber", "make", "model", "year",
	"name", "mobile", "email", "address", "city", "state",
	"idv", "ncb", "addons", "policy_annual_premium", "umbrella_limit",
	"policy_csl", "total_insurance_amount",
}

type Handler struct {
	store      Store
	middleware *auth.Middleware
	now        func() time.Time
}

func NewHandler(store Store, jwtSecret string) *Handler {
	return &Handler{
		store:      store,
		middleware: auth.NewMiddleware(jwtSecret),
		now:        time.Now,
	}
}

func (h *Handler) RegisterRoutes(router *mux.Router) {
	router.Handle("/apply/new", h.middleware.Authenticate(http.HandlerFunc(h.Apply))).Methods("POST")
	router.Handle("/apply/update", h.middleware.Authenticate(http.HandlerFunc(h.Link))).Methods("POST")
	router.Handle("/dashboard/policies", h.middleware.Authenticate(http.HandlerFunc(h.ListPolicies))).Methods("GET")
}

func (h *Handler) Apply(w http.ResponseWriter, r *http.Request) {
	claims, _ := auth.GetUserFromContext(r.Context())

	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "No data provided")
		return
	}

	var present map[string]json.RawMessage
	if err := json.Unmarshal(body, &present); err != nil || len(present) == 0 {
		writeError(w, http.StatusBadRequest, "No data provided")
		return
	}
	for _, field := range requiredFields {
		if _, ok := present[field]; !ok {
			writeError(w, http.StatusBadRequest, "Missing required field: "+field)
			return
		}
	}

	var req struct {
		models.VehicleDetails
		models.ApplicantInfo
		models.PolicyTerms
	}
	if err := json.Unmarshal(body, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request")
		return
	}

	if !govalidator.IsEmail(req.Email) {
		writeError(w, http.StatusBadRequest, "Invalid applicant email")
		return
	}
	if req.NCB < 0 || req.NCB > 100 {
		writeError(w, http.StatusBadRequest, "ncb must be a percentage")
		return
	}

	app := &models.Application{
		ID:        NewApplicationID(h.now()),
		UserEmail: claims.Email,
		Status:    models.StatusPending,
		Vehicle:   req.VehicleDetails,
		Applicant: req.ApplicantInfo,
		Terms:     req.PolicyTerms,
	}

	if err := h.store.CreateApplication(r.Context(), app); err != nil {
		if errors.Is(err, db.ErrUserNotFound) {
			writeError(w, http.StatusUnauthorized, "User not found")
			return
		}
		log.Printf("Failed to create application: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to create application")
		return
	}

	writeJSON(w, http.StatusCreated, map[string]string{
		"message":        "Policy application submitted successfully",
		"application_id": app.ID,
	})
}

// Link attaches a fresh claim management id to one of the caller's
// applications.
func (h *Handler) Link(w http.ResponseWriter, r *http.Request) {
	claims, _ := auth.GetUserFromContext(r.Context())

	var req struct {
		ApplicationID string `json:"application_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ApplicationID == "" {
		writeError(w, http.StatusBadRequest, "Missing required field: application_id")
		return
	}

	managementID := fmt.Sprintf("management_%s_%s", req.ApplicationID, uuid.NewString())

	if err := h.store.LinkApplication(r.Context(), req.ApplicationID, claims.Email, managementID); err != nil {
		if errors.Is(err, db.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Application not found")
			return
		}
		log.Printf("Failed to link application %s: %v", req.ApplicationID, err)
		writeError(w, http.StatusInternalServerError, "Failed to update application")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"message":       "Application updated and linked successfully",
		"management_id": managementID,
	})
}

func (h *Handler) ListPolicies(w http.ResponseWriter, r *http.Request) {
	claims, _ := auth.GetUserFromContext(r.Context())

	apps, err := h.store.ListApplications(r.Context(), claims.Email, "")
	if err != nil {
		log.Printf("Failed to list policies for %s: %v", claims.Email, err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"status": "error", "message": "Failed to list policies"})
		return
	}

	policies := make([]Summary, 0, len(apps))
	for _, app := range apps {
		policies = append(policies, Summarize(app))
	}

	writeJSON(w, http.StatusOK, map[string]any{"status": "success", "data": policies})
}

// NewApplicationID returns an id like APP20260501090000-1A2B3C4D.
func NewApplicationID(now time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
	return "APP" + now.UTC().Format("20060102150405") + "-" + suffix
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
