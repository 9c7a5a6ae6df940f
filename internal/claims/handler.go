// Package claims files and lists a customer's insurance claims.
package claims

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
	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

type Store interface {
	CreateClaim(ctx context.Context, claim *models.Claim) error
	ListClaims(ctx context.Context, userEmail string) ([]models.Claim, error)
}

type Handler struct {
	store      Store
	middleware *auth.Middleware
}

func NewHandler(store Store, jwtSecret string) *Handler {
	return &Handler{store: store, middleware: auth.NewMiddleware(jwtSecret)}
}

func (h *Handler) RegisterRoutes(router *mux.Router) {
	router.Handle("/claims/detect", h.middleware.Authenticate(http.HandlerFunc(h.File))).Methods("POST")
	router.Handle("/claims/view", h.middleware.Authenticate(http.HandlerFunc(h.List))).Methods("GET")
}

func (h *Handler) File(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.GetUserFromContext(r.Context())

	var claim models.Claim
	if err := json.NewDecoder(r.Body).Decode(&claim); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request")
		return
	}

	if msg := validate(&claim); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	claim.ID = uuid.NewString()
	claim.UserEmail = user.Email
	claim.Status = models.ClaimInProgress

	if err := h.store.CreateClaim(r.Context(), &claim); err != nil {
		if errors.Is(err, db.ErrUserNotFound) {
			writeError(w, http.StatusUnauthorized, "User not found")
			return
		}
		log.Printf("Failed to file claim for %s: %v", user.Email, err)
		writeError(w, http.StatusInternalServerError, "Failed to file claim")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]string{"claim_id": claim.ID})
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.GetUserFromContext(r.Context())

	claims, err := h.store.ListClaims(r.Context(), user.Email)
	if err != nil {
		log.Printf("Failed to list claims for %s: %v", user.Email, err)
		writeError(w, http.StatusInternalServerError, "Failed to list claims")
		return
	}
	if claims == nil {
		claims = []models.Claim{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(claims)
}

// validate returns a message for the first problem found, or "".
func validate(c *models.Claim) string {
	required := []struct{ name, value string }{
		{"incident_type", c.IncidentType},
		{"incident_severity", c.Severity},
		{"incident_date", c.IncidentDate},
		{"incident_location", c.IncidentLocation},
		{"incident_city", c.IncidentCity},
	}
	for _, field := range required {
		if strings.TrimSpace(field.value) == "" {
			return "Missing required field: " + field.name
		}
	}

	if c.TotalAmount <= 0 {
		return "total_claim_amount must be positive"
	}
	if c.InjuryAmount < 0 || c.PropertyAmount < 0 || c.VehicleAmount < 0 {
		return "Claim amounts cannot be negative"
	}
	if c.InjuryAmount+c.PropertyAmount+c.VehicleAmount > c.TotalAmount {
		return "Claim parts exceed total_claim_amount"
	}
	if c.IncidentHour < 0 || c.IncidentHour > 23 {
		return "incident_hour_of_the_day must be between 0 and 23"
	}
	if c.VehiclesInvolved < 0 || c.Witnesses < 0 {
		return "Counts cannot be negative"
	}
	return ""
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
