package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"github.com/watchvibe/auth-service/internal/core/domain"
	"github.com/watchvibe/auth-service/internal/core/port"
	"github.com/watchvibe/auth-service/internal/infra/config"
	"github.com/watchvibe/auth-service/internal/infra/kafka"
	"github.com/watchvibe/auth-service/internal/infra/mail"
	"github.com/watchvibe/auth-service/internal/infra/security"
	"github.com/watchvibe/auth-service/internal/repository"
	"github.com/watchvibe/auth-service/internal/usecase"
)

// envelope mirrors the response shape every endpoint produces.
type envelope struct {
	StatusCode int             `json:"statusCode"`
	Data       json.RawMessage `json:"data"`
	Message    string          `json:"message"`
	Success    bool            `json:"success"`
}

// plainHasher keeps the full stack wired without paying Argon2 cost per request.
type plainHasher struct{}

func (plainHasher) Hash(password string) (string, error) { return "plain$" + password, nil }

func (plainHasher) Verify(password, encoded string) (bool, error) {
	return encoded == "plain$"+password, nil
}

// memoryUserRepo backs the router with map storage so requests exercise the
// real handler/middleware/service chain end to end.
type memoryUserRepo struct {
	users map[string]*domain.User
}

var _ port.UserRepository = (*memoryUserRepo)(nil)

func newMemoryUserRepo() *memoryUserRepo {
	return &memoryUserRepo{users: make(map[string]*domain.User)}
}

func (r *memoryUserRepo) byEmail(email string) *domain.User {
	for _, user := range r.users {
		if user.Email == strings.ToLower(email) {
			return user
		}
	}
	return nil
}

func (r *memoryUserRepo) Create(_ context.Context, user domain.User) error {
	for _, existing := range r.users {
		if existing.Username == user.Username || existing.Email == user.Email {
			return repository.ErrDuplicate
		}
	}
	clone := user
	r.users[user.ID] = &clone
	return nil
}

func (r *memoryUserRepo) GetByID(_ context.Context, id string) (*domain.User, error) {
	if user, ok := r.users[id]; ok {
		clone := *user
		return &clone, nil
	}
	return nil, repository.ErrNotFound
}

func (r *memoryUserRepo) GetByIdentifier(_ context.Context, identifier string) (*domain.User, error) {
	identifier = strings.ToLower(identifier)
	for _, user := range r.users {
		if user.Username == identifier || user.Email == identifier {
			clone := *user
			return &clone, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *memoryUserRepo) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	if user := r.byEmail(email); user != nil {
		clone := *user
		return &clone, nil
	}
	return nil, repository.ErrNotFound
}

func (r *memoryUserRepo) GetByOTP(_ context.Context, otp string) (*domain.User, error) {
	for _, user := range r.users {
		if user.OTP != nil && *user.OTP == otp {
			clone := *user
			return &clone, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *memoryUserRepo) GetByVerificationTokenHash(_ context.Context, tokenHash string) (*domain.User, error) {
	for _, user := range r.users {
		if user.EmailVerificationTokenHash != nil && *user.EmailVerificationTokenHash == tokenHash {
			clone := *user
			return &clone, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *memoryUserRepo) ExistsByUsernameOrEmail(_ context.Context, username, email string) (bool, error) {
	for _, user := range r.users {
		if user.Username == username || user.Email == email {
			return true, nil
		}
	}
	return false, nil
}

func (r *memoryUserRepo) SetOTP(_ context.Context, id, otp string, expiresAt time.Time) error {
	user, ok := r.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	user.OTP = &otp
	user.OTPExpiresAt = &expiresAt
	return nil
}

func (r *memoryUserRepo) BeginSession(_ context.Context, id, refreshTokenHash string) error {
	user, ok := r.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	user.OTP = nil
	user.OTPExpiresAt = nil
	user.RefreshTokenHash = &refreshTokenHash
	return nil
}

func (r *memoryUserRepo) RotateRefreshToken(_ context.Context, id, refreshTokenHash string) error {
	user, ok := r.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	user.RefreshTokenHash = &refreshTokenHash
	return nil
}

func (r *memoryUserRepo) EndSession(_ context.Context, id string) error {
	user, ok := r.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	user.RefreshTokenHash = nil
	return nil
}

func (r *memoryUserRepo) SetVerificationToken(_ context.Context, id, tokenHash string, expiresAt time.Time) error {
	user, ok := r.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	user.EmailVerificationTokenHash = &tokenHash
	user.EmailVerificationExpiresAt = &expiresAt
	return nil
}

func (r *memoryUserRepo) MarkEmailVerified(_ context.Context, id string) error {
	user, ok := r.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	user.IsEmailVerified = true
	user.EmailVerificationTokenHash = nil
	user.EmailVerificationExpiresAt = nil
	return nil
}

func (r *memoryUserRepo) UpdatePassword(_ context.Context, id, passwordHash string) error {
	user, ok := r.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	user.PasswordHash = passwordHash
	return nil
}

func (r *memoryUserRepo) ResetPassword(_ context.Context, id, passwordHash string) error {
	user, ok := r.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	user.PasswordHash = passwordHash
	user.OTP = nil
	user.OTPExpiresAt = nil
	return nil
}

func (r *memoryUserRepo) UpdateRole(_ context.Context, id string, role domain.Role) error {
	user, ok := r.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	user.Role = role
	return nil
}

func (r *memoryUserRepo) UpdateAccountDetails(_ context.Context, id, fullName, email string) (*domain.User, error) {
	user, ok := r.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	email = strings.ToLower(email)
	for otherID, other := range r.users {
		if otherID != id && other.Email == email {
			return nil, repository.ErrDuplicate
		}
	}
	user.FullName = fullName
	user.Email = email
	clone := *user
	return &clone, nil
}

func newTestRouter(t *testing.T) (http.Handler, *memoryUserRepo) {
	t.Helper()

	cfg := &config.AppConfig{
		App: config.AppSettings{Name: "auth-service", Env: "test", CORSOrigins: []string{"*"}},
		JWT: config.JWTSettings{
			AccessSecret:    "test-access-secret",
			RefreshSecret:   "test-refresh-secret",
			AccessTokenTTL:  15 * time.Minute,
			RefreshTokenTTL: 240 * time.Hour,
			Issuer:          "watchvibe-auth",
		},
		Auth: config.AuthSettings{
			OTPTTL:               5 * time.Minute,
			VerificationTokenTTL: 20 * time.Minute,
			VerificationBaseURL:  "http://localhost:8080/api/v1/users/verify-email",
		},
		Cookie: config.CookieSettings{Path: "/", SameSite: "lax"},
	}

	tokens, err := security.NewTokenManager(security.TokenManagerConfig{
		AccessSecret:  cfg.JWT.AccessSecret,
		RefreshSecret: cfg.JWT.RefreshSecret,
		AccessTTL:     cfg.JWT.AccessTokenTTL,
		RefreshTTL:    cfg.JWT.RefreshTokenTTL,
		Issuer:        cfg.JWT.Issuer,
	})
	if err != nil {
		t.Fatalf("token manager: %v", err)
	}

	log := zaptest.NewLogger(t)
	repo := newMemoryUserRepo()
	hasher := plainHasher{}
	dispatcher := mail.NewLoggingDispatcher(log)
	events := kafka.NewStubPublisher(log)

	services := ServiceSet{
		Auth:         usecase.NewAuthService(cfg, repo, hasher, tokens, dispatcher, events, log),
		Registration: usecase.NewRegistrationService(cfg, repo, hasher, nil, dispatcher, events, log),
		Passwords:    usecase.NewPasswordService(cfg, repo, hasher, nil, dispatcher, events, log),
		Users:        usecase.NewUserService(repo, events, log),
	}

	router := Register(Dependencies{Config: cfg, Logger: log, Services: services})
	return router, repo
}

func doJSON(t *testing.T, router http.Handler, method, path string, body any, mutate func(*http.Request)) (*httptest.ResponseRecorder, envelope) {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("encode body: %v", err)
		}
		reader = bytes.NewReader(encoded)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if mutate != nil {
		mutate(req)
	}

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	var env envelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode envelope from %q: %v", rec.Body.String(), err)
	}
	return rec, env
}

func registerUser(t *testing.T, router http.Handler, email, username, password string) {
	t.Helper()

	rec, env := doJSON(t, router, http.MethodPost, "/api/v1/users/register", map[string]string{
		"fullName": "Flow Tester",
		"email":    email,
		"username": username,
		"password": password,
		"avatar":   "https://cdn.example.com/avatar.png",
	}, nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("register status = %d, body %s", rec.Code, rec.Body.String())
	}
	if env.Message != "User registered successfully" {
		t.Fatalf("register message = %q", env.Message)
	}
}

func cookieValue(rec *httptest.ResponseRecorder, name string) string {
	for _, cookie := range rec.Result().Cookies() {
		if cookie.Name == name {
			return cookie.Value
		}
	}
	return ""
}

func TestHealthEnvelope(t *testing.T) {
	router, _ := newTestRouter(t)

	rec, env := doJSON(t, router, http.MethodGet, "/healthz", nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !env.Success || env.StatusCode != http.StatusOK {
		t.Fatalf("envelope = %+v", env)
	}
	if env.Message != "Health check passed" {
		t.Fatalf("message = %q", env.Message)
	}
}

func TestLoginUnknownUser(t *testing.T) {
	router, _ := newTestRouter(t)

	rec, env := doJSON(t, router, http.MethodPost, "/api/v1/users/login", map[string]string{
		"email":    "ghost@example.com",
		"password": "whatever123",
	}, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d", rec.Code)
	}
	if env.Success {
		t.Fatal("expected failure envelope")
	}
	if env.Message != "User not found. Please check your credentials" {
		t.Fatalf("message = %q", env.Message)
	}
}

func TestRegisterLoginVerifyOTPFlow(t *testing.T) {
	router, repo := newTestRouter(t)
	// A short password must be accepted; strength is advisory by default.
	const (
		email    = "flow@example.com"
		password = "pw123"
	)

	registerUser(t, router, email, "flowtester", password)

	rec, env := doJSON(t, router, http.MethodPost, "/api/v1/users/login", map[string]string{
		"email":    email,
		"password": password,
	}, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("login status = %d, body %s", rec.Code, rec.Body.String())
	}
	if env.Message != "OTP sent successfully" {
		t.Fatalf("login message = %q", env.Message)
	}
	if cookieValue(rec, "accessToken") != "" {
		t.Fatal("login must not issue tokens before OTP verification")
	}

	stored := repo.byEmail(email)
	if stored == nil || stored.OTP == nil {
		t.Fatal("login did not persist an OTP")
	}
	otp := *stored.OTP

	rec, env = doJSON(t, router, http.MethodPost, "/api/v1/users/verify-otp", map[string]string{"otp": otp}, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("verify-otp status = %d, body %s", rec.Code, rec.Body.String())
	}
	if env.Message != "User logged in successfully" {
		t.Fatalf("verify-otp message = %q", env.Message)
	}

	accessToken := cookieValue(rec, "accessToken")
	refreshToken := cookieValue(rec, "refreshToken")
	if accessToken == "" || refreshToken == "" {
		t.Fatal("expected session cookies after OTP verification")
	}

	var session struct {
		User struct {
			Email string `json:"email"`
		} `json:"user"`
		AccessToken  string `json:"accessToken"`
		RefreshToken string `json:"refreshToken"`
	}
	if err := json.Unmarshal(env.Data, &session); err != nil {
		t.Fatalf("decode session data: %v", err)
	}
	if session.User.Email != email {
		t.Fatalf("session user email = %q", session.User.Email)
	}
	if session.AccessToken != accessToken {
		t.Fatal("body access token differs from cookie")
	}

	// The code is single use.
	rec, env = doJSON(t, router, http.MethodPost, "/api/v1/users/verify-otp", map[string]string{"otp": otp}, nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("replayed OTP status = %d", rec.Code)
	}
	if env.Message != "Invalid OTP" {
		t.Fatalf("replayed OTP message = %q", env.Message)
	}

	rec, env = doJSON(t, router, http.MethodGet, "/api/v1/users/current-user", nil, func(req *http.Request) {
		req.Header.Set("Authorization", "Bearer "+accessToken)
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("current-user status = %d, body %s", rec.Code, rec.Body.String())
	}
	if env.Message != "Current user fetched successfully" {
		t.Fatalf("current-user message = %q", env.Message)
	}

	rec, env = doJSON(t, router, http.MethodPost, "/api/v1/users/refresh-token", nil, func(req *http.Request) {
		req.AddCookie(&http.Cookie{Name: "refreshToken", Value: refreshToken})
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("refresh status = %d, body %s", rec.Code, rec.Body.String())
	}
	if env.Message != "Access token refreshed" {
		t.Fatalf("refresh message = %q", env.Message)
	}
	rotated := cookieValue(rec, "refreshToken")
	if rotated == "" {
		t.Fatal("refresh must rotate the refresh token cookie")
	}

	// The previous refresh token was consumed by rotation.
	rec, env = doJSON(t, router, http.MethodPost, "/api/v1/users/refresh-token", nil, func(req *http.Request) {
		req.AddCookie(&http.Cookie{Name: "refreshToken", Value: refreshToken})
	})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("stale refresh status = %d", rec.Code)
	}
	if env.Message != "Refresh token is expired or used" {
		t.Fatalf("stale refresh message = %q", env.Message)
	}
}

func TestCurrentUserRequiresAuth(t *testing.T) {
	router, _ := newTestRouter(t)

	rec, env := doJSON(t, router, http.MethodGet, "/api/v1/users/current-user", nil, nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d", rec.Code)
	}
	if env.Success || env.StatusCode != http.StatusUnauthorized {
		t.Fatalf("envelope = %+v", env)
	}
}

func TestRefreshWithoutToken(t *testing.T) {
	router, _ := newTestRouter(t)

	rec, env := doJSON(t, router, http.MethodPost, "/api/v1/users/refresh-token", nil, nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d", rec.Code)
	}
	if env.Message != "Unauthorized request: Refresh token is missing" {
		t.Fatalf("message = %q", env.Message)
	}
}

func TestAssignRoleRequiresAdmin(t *testing.T) {
	router, repo := newTestRouter(t)
	const (
		email    = "plain@example.com"
		password = "Tr4verse!Canyon"
	)

	registerUser(t, router, email, "plainuser", password)
	if _, env := doJSON(t, router, http.MethodPost, "/api/v1/users/login", map[string]string{
		"email":    email,
		"password": password,
	}, nil); env.Message != "OTP sent successfully" {
		t.Fatalf("login message = %q", env.Message)
	}

	stored := repo.byEmail(email)
	if stored == nil || stored.OTP == nil {
		t.Fatal("missing OTP after login")
	}
	rec, _ := doJSON(t, router, http.MethodPost, "/api/v1/users/verify-otp", map[string]string{"otp": *stored.OTP}, nil)
	accessToken := cookieValue(rec, "accessToken")
	if accessToken == "" {
		t.Fatal("missing access token")
	}

	rec, env := doJSON(t, router, http.MethodPost, "/api/v1/users/assign-role/"+stored.ID, map[string]string{"role": "ADMIN"}, func(req *http.Request) {
		req.Header.Set("Authorization", "Bearer "+accessToken)
	})
	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	if env.Success {
		t.Fatal("expected failure envelope")
	}
}

func TestRegisterRejectsUnknownRole(t *testing.T) {
	router, _ := newTestRouter(t)

	rec, env := doJSON(t, router, http.MethodPost, "/api/v1/users/register", map[string]string{
		"fullName": "Role Tester",
		"email":    "role@example.com",
		"username": "roletester",
		"password": "pw123",
		"avatar":   "https://cdn.example.com/avatar.png",
		"role":     "SUPERADMIN",
	}, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("register status = %d, body %s", rec.Code, rec.Body.String())
	}
	if env.Message != "Invalid user role" {
		t.Fatalf("register message = %q", env.Message)
	}
}
