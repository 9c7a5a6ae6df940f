package auth

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/HanTheDev/policyguard/internal/db"
	"github.com/HanTheDev/policyguard/internal/models"
	"github.com/gorilla/mux"
	"golang.org/x/crypto/bcrypt"
)

type UserStore interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
}

type Limiter interface {
	Allow(ctx context.Context, subject string, limit int) (bool, error)
}

type Handler struct {
	users      UserStore
	limiter    Limiter
	limit      int
	secret     string
	ttl        time.Duration
	middleware *Middleware
}

func NewHandler(users UserStore, limiter Limiter, limit int, secret string, ttl time.Duration) *Handler {
	return &Handler{
		users:      users,
		limiter:    limiter,
		limit:      limit,
		secret:     secret,
		ttl:        ttl,
		middleware: NewMiddleware(secret),
	}
}

func (h *Handler) RegisterRoutes(router *mux.Router) {
	router.Handle("/auth/register", h.rateLimited(http.HandlerFunc(h.Register))).Methods("POST")
	router.Handle("/auth/sign-in", h.rateLimited(http.HandlerFunc(h.SignIn))).Methods("POST")
	router.Handle("/auth/sign-out", h.middleware.Authenticate(http.HandlerFunc(h.SignOut))).Methods("POST")
	router.Handle("/auth/me", h.middleware.Authenticate(http.HandlerFunc(h.Me))).Methods("GET")
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Name     string `json:"name"`
		Surname  string `json:"surname"`
		Password string `json:"password"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid request")
		return
	}

	if req.Email == "" || req.Name == "" || req.Surname == "" || req.Password == "" {
		writeMessage(w, http.StatusBadRequest, "Missing required fields")
		return
	}

	hash, err := HashPassword(req.Password)
	if errors.Is(err, bcrypt.ErrPasswordTooLong) {
		writeMessage(w, http.StatusBadRequest, "Password must be at most 72 bytes")
		return
	}
	if err != nil {
		log.Printf("Password hashing failed: %v", err)
		writeMessage(w, http.StatusInternalServerError, "Failed to create user")
		return
	}

	user := &models.User{
		Email:        req.Email,
		Name:         req.Name,
		Surname:      req.Surname,
		PasswordHash: hash,
	}

	if err := h.users.CreateUser(r.Context(), user); err != nil {
		if errors.Is(err, db.ErrUserExists) {
			writeMessage(w, http.StatusConflict, "User already exists")
			return
		}
		log.Printf("Failed to create user: %v", err)
		writeMessage(w, http.StatusInternalServerError, "Failed to create user")
		return
	}

	token, err := GenerateToken(user.Email, h.secret, h.ttl)
	if err != nil {
		log.Printf("Token generation failed: %v", err)
		writeMessage(w, http.StatusInternalServerError, "Failed to generate token")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]string{
		"message": "User created successfully",
		"token":   token,
	})
}

func (h *Handler) SignIn(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Email == "" || req.Password == "" {
		writeMessage(w, http.StatusBadRequest, "Missing email or password")
		return
	}

	user, err := h.users.GetUserByEmail(r.Context(), req.Email)
	if err != nil && !errors.Is(err, db.ErrUserNotFound) {
		log.Printf("User lookup failed: %v", err)
		writeMessage(w, http.StatusInternalServerError, "Failed to sign in")
		return
	}

	if user == nil || !CheckPassword(user.PasswordHash, req.Password) {
		writeMessage(w, http.StatusUnauthorized, "Invalid email or password")
		return
	}

	token, err := GenerateToken(user.Email, h.secret, h.ttl)
	if err != nil {
		log.Printf("Token generation failed: %v", err)
		writeMessage(w, http.StatusInternalServerError, "Failed to generate token")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"message": "Successfully signed in",
		"token":   token,
	})
}

// SignOut is stateless; the client drops its token.
func (h *Handler) SignOut(w http.ResponseWriter, r *http.Request) {
	writeMessage(w, http.StatusOK, "Successfully signed out")
}

func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	claims, ok := GetUserFromContext(r.Context())
	if !ok {
		writeMessage(w, http.StatusUnauthorized, "Invalid token")
		return
	}

	user, err := h.users.GetUserByEmail(r.Context(), claims.Email)
	if errors.Is(err, db.ErrUserNotFound) {
		writeMessage(w, http.StatusUnauthorized, "Invalid token")
		return
	}
	if err != nil {
		log.Printf("User lookup failed: %v", err)
		writeMessage(w, http.StatusInternalServerError, "Failed to load user")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(user)
}

func (h *Handler) rateLimited(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		allowed, err := h.limiter.Allow(r.Context(), "auth:"+ClientIP(r), h.limit)
		if err != nil {
			log.Printf("Rate limit check failed: %v", err)
			http.Error(w, "Rate limit check failed", http.StatusInternalServerError)
			return
		}

		if !allowed {
			http.Error(w, "Rate limit exceeded", http.StatusTooManyRequests)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func writeMessage(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"message": message})
}
