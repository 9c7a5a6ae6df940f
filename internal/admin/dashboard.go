package admin

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/HanTheDev/policyguard/internal/db"
	"github.com/HanTheDev/policyguard/internal/models"
	"github.com/gorilla/mux"
)

type DashboardStore interface {
	DashboardStats(ctx context.Context) (*models.DashboardStats, error)
	ListPolicyRecords(ctx context.Context) ([]models.PolicyRecord, error)
	ListClaimRecords(ctx context.Context) ([]models.ClaimRecord, error)
	UpdateApplicationStatus(ctx context.Context, id, status string) error
	UpdateClaimStatus(ctx context.Context, id, status string) error
}

var (
	policyStatuses = map[string]bool{
		models.StatusPending: true,
		models.StatusActive:  true,
		models.StatusExpired: true,
	}
	claimStatuses = map[string]bool{
		models.ClaimInProgress: true,
		models.ClaimApproved:   true,
		models.ClaimRejected:   true,
	}
)

// DashboardHandler serves the back-office view of policies and claims.
type DashboardHandler struct {
	store DashboardStore
}

func NewDashboardHandler(store DashboardStore) *DashboardHandler {
	return &DashboardHandler{store: store}
}

func (h *DashboardHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/admin/dashboard", h.GetDashboard).Methods("GET")
	router.HandleFunc("/admin/policies", h.ListPolicies).Methods("GET")
	router.HandleFunc("/admin/policies/{id}/status", h.SetPolicyStatus).Methods("PUT")
	router.HandleFunc("/admin/claims", h.ListClaims).Methods("GET")
	router.HandleFunc("/admin/claims/{id}/status", h.SetClaimStatus).Methods("PUT")
}

func (h *DashboardHandler) GetDashboard(w http.ResponseWriter, r *http.Request) {
	stats, err := h.store.DashboardStats(r.Context())
	if err != nil {
		log.Printf("Failed to load dashboard stats: %v", err)
		http.Error(w, "Failed to load dashboard", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, stats)
}

func (h *DashboardHandler) ListPolicies(w http.ResponseWriter, r *http.Request) {
	policies, err := h.store.ListPolicyRecords(r.Context())
	if err != nil {
		log.Printf("Failed to list policies: %v", err)
		http.Error(w, "Failed to list policies", http.StatusInternalServerError)
		return
	}
	if policies == nil {
		policies = []models.PolicyRecord{}
	}

	writeJSON(w, http.StatusOK, policies)
}

func (h *DashboardHandler) ListClaims(w http.ResponseWriter, r *http.Request) {
	claims, err := h.store.ListClaimRecords(r.Context())
	if err != nil {
		log.Printf("Failed to list claims: %v", err)
		http.Error(w, "Failed to list claims", http.StatusInternalServerError)
		return
	}
	if claims == nil {
		claims = []models.ClaimRecord{}
	}

	writeJSON(w, http.StatusOK, claims)
}

func (h *DashboardHandler) SetPolicyStatus(w http.ResponseWriter, r *http.Request) {
	h.setStatus(w, r, policyStatuses, h.store.UpdateApplicationStatus)
}

func (h *DashboardHandler) SetClaimStatus(w http.ResponseWriter, r *http.Request) {
	h.setStatus(w, r, claimStatuses, h.store.UpdateClaimStatus)
}

func (h *DashboardHandler) setStatus(w http.ResponseWriter, r *http.Request, allowed map[string]bool,
	update func(ctx context.Context, id, status string) error) {
	id := mux.Vars(r)["id"]

	var req struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || !allowed[req.Status] {
		http.Error(w, "Invalid status", http.StatusBadRequest)
		return
	}

	if err := update(r.Context(), id, req.Status); err != nil {
		if errors.Is(err, db.ErrNotFound) {
			http.Error(w, "Not found", http.StatusNotFound)
			return
		}
		log.Printf("Failed to update status of %s: %v", id, err)
		http.Error(w, "Failed to update status", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "updated"})
}
