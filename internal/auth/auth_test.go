package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/HanTheDev/policyguard/internal/db"
	"github.com/HanTheDev/policyguard/internal/models"
	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

type memoryUsers struct {
	mu    sync.Mutex
	users map[string]*models.User
}

func newMemoryUsers() *memoryUsers {
	return &memoryUsers{users: make(map[string]*models.User)}
}

func (m *memoryUsers) CreateUser(ctx context.Context, user *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[user.Email]; ok {
		return db.ErrUserExists
	}
	user.ID = int64(len(m.users) + 1)
	user.CreatedAt = time.Now()
	m.users[user.Email] = user
	return nil
}

func (m *memoryUsers) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.users[email]
	if !ok {
		return nil, db.ErrUserNotFound
	}
	return user, nil
}

type countingLimiter struct {
	hits map[string]int
	err  error
}

func (l *countingLimiter) Allow(ctx context.Context, subject string, limit int) (bool, error) {
	if l.err != nil {
		return false, l.err
	}
	l.hits[subject]++
	return l.hits[subject] <= limit, nil
}

func newTestRouter(users UserStore, limiter Limiter, limit int) *mux.Router {
	router := mux.NewRouter()
	NewHandler(users, limiter, limit, testSecret, time.Hour).RegisterRoutes(router)
	return router
}

func doJSON(t *testing.T, router http.Handler, method, path, body, token string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.RemoteAddr = "203.0.113.7:5555"
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestTokenRoundTrip(t *testing.T) {
	token, err := GenerateToken("ana@example.com", testSecret, time.Hour)
	require.NoError(t, err)

	claims, err := ValidateToken(token, testSecret)
	require.NoError(t, err)
	assert.Equal(t, "ana@example.com", claims.Email)

	_, err = ValidateToken(token, "other-secret")
	assert.Error(t, err)
}

func TestResolveUser(t *testing.T) {
	resolver := NewResolver(testSecret)

	token, err := GenerateToken("ana@example.com", testSecret, time.Hour)
	require.NoError(t, err)

	email, ok := resolver.ResolveUser(token)
	assert.True(t, ok)
	assert.Equal(t, "ana@example.com", email)

	expired, err := GenerateToken("ana@example.com", testSecret, -time.Minute)
	require.NoError(t, err)
	_, ok = resolver.ResolveUser(expired)
	assert.False(t, ok)

	_, ok = resolver.ResolveUser("garbage")
	assert.False(t, ok)
}

func TestBearerToken(t *testing.T) {
	cases := map[string]struct {
		header string
		token  string
		ok     bool
	}{
		"valid":      {"Bearer abc", "abc", true},
		"missing":    {"", "", false},
		"wrong kind": {"Basic abc", "", false},
		"no token":   {"Bearer ", "", false},
		"extra part": {"Bearer a b", "", false},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			token, ok := BearerToken(req)
			assert.Equal(t, tc.ok, ok)
			assert.Equal(t, tc.token, token)
		})
	}
}

func TestClientIP(t *testing.T) {
	req := httptest.NewRequest("GET", "/", nil)
	req.RemoteAddr = "192.168.1.4:40000"
	assert.Equal(t, "192.168.1.4", ClientIP(req))

	req.RemoteAddr = "[::1]:40000"
	assert.Equal(t, "::1", ClientIP(req))

	req.RemoteAddr = "pipe"
	assert.Equal(t, "pipe", ClientIP(req))
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("hunter2")
	require.NoError(t, err)
	assert.NotEqual(t, "hunter2", hash)
	assert.True(t, CheckPassword(hash, "hunter2"))
	assert.False(t, CheckPassword(hash, "hunter3"))
}

func TestRegisterSignInAndMe(t *testing.T) {
	router := newTestRouter(newMemoryUsers(), &countingLimiter{hits: map[string]int{}}, 100)

	w := doJSON(t, router, "POST", "/auth/register",
		`{"email":"ana@example.com","name":"Ana","surname":"Lee","password":"pw"}`, "")
	require.Equal(t, http.StatusCreated, w.Code)

	w = doJSON(t, router, "POST", "/auth/register",
		`{"email":"ana@example.com","name":"Ana","surname":"Lee","password":"pw"}`, "")
	assert.Equal(t, http.StatusConflict, w.Code)

	w = doJSON(t, router, "POST", "/auth/register", `{"email":"bob@example.com"}`, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, router, "POST", "/auth/sign-in", `{"email":"ana@example.com","password":"nope"}`, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = doJSON(t, router, "POST", "/auth/sign-in", `{"email":"ana@example.com","password":"pw"}`, "")
	require.Equal(t, http.StatusOK, w.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	token := body["token"]
	require.NotEmpty(t, token)

	w = doJSON(t, router, "GET", "/auth/me", "", token)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"email":"ana@example.com"`)
	assert.NotContains(t, w.Body.String(), "password")

	w = doJSON(t, router, "GET", "/auth/me", "", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = doJSON(t, router, "POST", "/auth/sign-out", "", token)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRegisterRejectsOverlongPassword(t *testing.T) {
	users := newMemoryUsers()
	router := newTestRouter(users, &countingLimiter{hits: map[string]int{}}, 100)

	body := fmt.Sprintf(`{"email":"ana@example.com","name":"Ana","surname":"Lee","password":%q}`, strings.Repeat("x", 73))
	w := doJSON(t, router, "POST", "/auth/register", body, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "72 bytes")
	assert.Empty(t, users.users)
}

func TestSignInRateLimited(t *testing.T) {
	router := newTestRouter(newMemoryUsers(), &countingLimiter{hits: map[string]int{}}, 2)

	for i := 0; i < 2; i++ {
		w := doJSON(t, router, "POST", "/auth/sign-in", `{"email":"x@example.com","password":"pw"}`, "")
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	}

	w := doJSON(t, router, "POST", "/auth/sign-in", `{"email":"x@example.com","password":"pw"}`, "")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
}

func TestLimiterFailureFailsClosed(t *testing.T) {
	router := newTestRouter(newMemoryUsers(), &countingLimiter{err: errors.New("redis down")}, 2)

	w := doJSON(t, router, "POST", "/auth/sign-in", `{"email":"x@example.com","password":"pw"}`, "")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}
