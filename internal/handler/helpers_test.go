package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/Payphone-Digital/socialhub/config"
	"github.com/Payphone-Digital/socialhub/internal/constants"
	"github.com/Payphone-Digital/socialhub/internal/handler"
	"github.com/Payphone-Digital/socialhub/internal/middleware"
	"github.com/Payphone-Digital/socialhub/internal/repository"
	"github.com/Payphone-Digital/socialhub/internal/router"
	"github.com/Payphone-Digital/socialhub/internal/service"
	"github.com/Payphone-Digital/socialhub/pkg/circuit"
	"github.com/Payphone-Digital/socialhub/pkg/database"
	"github.com/Payphone-Digital/socialhub/pkg/health"
	"github.com/Payphone-Digital/socialhub/pkg/mailer"
	"github.com/Payphone-Digital/socialhub/pkg/ratelimit"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const (
	testPassword    = "correct-horse-battery"
	frontendBaseURL = "http://app.test"
)

var confirmLinkPattern = regexp.MustCompile(`user_id=([0-9a-f-]{36})`)

type recordedEvent struct {
	Subject string
	Payload any
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (p *recordingPublisher) Publish(_ context.Context, subject string, payload any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, recordedEvent{Subject: subject, Payload: payload})
	return nil
}

func (p *recordingPublisher) subjects() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Subject)
	}
	return out
}

type apiHarness struct {
	db        *gorm.DB
	engine    *gin.Engine
	outbox    *mailer.LogMailer
	publisher *recordingPublisher
	monitor   *health.Monitor
}

type harnessOption func(*config.Config)

func withAuthLimit(max int) harnessOption {
	return func(cfg *config.Config) { cfg.RateLimit.AuthRequest = max }
}

func newAPIHarness(t *testing.T, opts ...harnessOption) *apiHarness {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := &config.Config{}
	cfg.App.Timeout = 10 * time.Second
	cfg.Links.APIBaseURL = "http://api.test"
	cfg.Links.FrontendBaseURL = frontendBaseURL
	cfg.RateLimit.Request = 1000
	cfg.RateLimit.Duration = time.Minute
	cfg.RateLimit.AuthRequest = 1000
	cfg.RateLimit.AuthDuration = time.Minute
	for _, opt := range opts {
		opt(cfg)
	}

	db, err := database.NewSQLiteDB(filepath.Join(t.TempDir(), "api.db"), "test")
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.CloseDB(db) })
	require.NoError(t, database.AutoMigrate(db))

	store := repository.NewStore(db)
	codec := service.NewCredentialCodec(service.Argon2Params{
		Memory: 1024, Iterations: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32,
	}, bcrypt.MinCost)
	tokens := service.NewTokenIssuer("handler-test-secret", 15*time.Minute, "socialhub")
	authService := service.NewAuthService(store, codec, tokens, service.AuthConfig{ConfirmationWindow: 15 * time.Minute})
	userService := service.NewUserService(store.Users())

	outbox := mailer.NewLogMailer()
	notifier, err := service.NewNotifier(outbox, circuit.NewBreaker("mail", circuit.DefaultConfig()), service.NotifierConfig{
		From:            mailer.Address{Name: "Social Media App", Email: "noreply@socialmediaapp.com"},
		APIBaseURL:      cfg.Links.APIBaseURL,
		FrontendBaseURL: cfg.Links.FrontendBaseURL,
	})
	require.NoError(t, err)

	publisher := &recordingPublisher{}
	monitor := health.NewMonitor(0, time.Second, nil)
	monitor.Register("database", true, func(ctx context.Context) error { return database.Ping(ctx, db) })

	validMw, err := middleware.NewValidationMiddleware()
	require.NoError(t, err)

	limiter := ratelimit.NewMemoryLimiter(map[string]ratelimit.Rule{
		constants.RateLimitBucketAPI:  {Max: cfg.RateLimit.Request, Window: cfg.RateLimit.Duration},
		constants.RateLimitBucketAuth: {Max: cfg.RateLimit.AuthRequest, Window: cfg.RateLimit.AuthDuration},
	})

	engine := router.NewRouter(
		handler.NewUserHandler(userService),
		handler.NewAuthHandler(authService, userService, notifier, publisher, cfg.Links.FrontendBaseURL),
		handler.NewHealthHandler(monitor),
		validMw,
		middleware.NewJWTMiddleware(tokens),
		limiter,
		cfg,
	).SetupRoutes()

	return &apiHarness{db: db, engine: engine, outbox: outbox, publisher: publisher, monitor: monitor}
}

func (h *apiHarness) do(t *testing.T, method, path string, body any, bearer string) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	w := httptest.NewRecorder()
	h.engine.ServeHTTP(w, req)
	return w
}

// register posts a registration and returns the pending id from the mailed link
func (h *apiHarness) register(t *testing.T, email, username string) string {
	t.Helper()

	w := h.do(t, http.MethodPost, "/api/auth/register", map[string]string{
		"email":    email,
		"username": username,
		"name":     "Test User",
		"password": testPassword,
	}, "")
	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())

	sent := h.outbox.Sent()
	require.NotEmpty(t, sent)
	m := confirmLinkPattern.FindStringSubmatch(sent[len(sent)-1].Text)
	require.Len(t, m, 2)
	return m[1]
}

// signup registers, confirms and logs in, returning the token pair
func (h *apiHarness) signup(t *testing.T, email, username string) (string, string) {
	t.Helper()

	id := h.register(t, email, username)
	w := h.do(t, http.MethodGet, "/api/auth/confirm-email?user_id="+id, nil, "")
	require.Equal(t, http.StatusFound, w.Code)

	w = h.do(t, http.MethodPost, "/api/auth/login", map[string]string{
		"emailOrUsername": username,
		"password":        testPassword,
	}, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var body struct {
		AccessToken  string `json:"accessToken"`
		RefreshToken string `json:"refreshToken"`
	}
	decode(t, w, &body)
	return body.AccessToken, body.RefreshToken
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), v), w.Body.String())
}
