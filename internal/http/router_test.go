package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	sqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/barnir16/PawfectPal-sub000/internal/auth"
	"github.com/barnir16/PawfectPal-sub000/internal/config"
	"github.com/barnir16/PawfectPal-sub000/internal/domain"
	"github.com/barnir16/PawfectPal-sub000/internal/repo"
	"github.com/barnir16/PawfectPal-sub000/internal/services"
)

// --- test DB helper (pure-Go sqlite, no CGO) ---

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := filepath.Join(t.TempDir(), fmt.Sprintf("router_%d.db", time.Now().UnixNano()))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	if err := db.AutoMigrate(&domain.Conversation{}, &domain.Message{}, &domain.NotificationToken{}); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return db
}

func testConfig() config.Config {
	return config.Config{
		APIBasePath: "/api/v1",
		JWTSecret:   "router-test-secret",
		RateRPS:     1000,
		RateBurst:   1000,
		WS: config.WSConfig{
			ReadLimit:  64 << 10,
			PongWait:   time.Minute,
			PingPeriod: 54 * time.Second,
			WriteWait:  time.Second,
			SendBuffer: 16,
		},
		Push: config.PushConfig{PreviewRunes: 100},
		OTEL: config.OTELConfig{ServiceName: "test-svc"},
	}
}

func newRouter(t *testing.T, db *gorm.DB, cfg config.Config) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	RegisterRoutes(r, db, cfg, nil, zerolog.Nop())
	return r
}

func TestRegisterRoutes_Health_Metrics_CORS_Fallbacks(t *testing.T) {
	r := newRouter(t, newTestDB(t), testConfig()) // no origins: allow-all branch

	// /health works and the allow-all CORS branch forces ACAO *
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("GET /health = %d", w.Code)
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Fatalf("AllowAllOrigins expected '*', got %q", got)
	}
	if w.Header().Get("X-Request-ID") == "" {
		t.Fatal("expected X-Request-ID header")
	}

	// /metrics is wired
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if w.Code != http.StatusOK || w.Body.Len() == 0 {
		t.Fatalf("GET /metrics bad: code=%d len=%d", w.Code, w.Body.Len())
	}

	// NoRoute → 404 with the error envelope
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/nope", nil))
	if w.Code != http.StatusNotFound {
		t.Fatalf("GET /nope expected 404, got %d", w.Code)
	}
	var body map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil || body["code"] != "not_found" {
		t.Fatalf("unexpected 404 body: %s (%v)", w.Body.String(), err)
	}

	// NoMethod → 405
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/health", nil))
	if w.Code != http.StatusMethodNotAllowed {
		t.Fatalf("POST /health expected 405, got %d", w.Code)
	}
}

func TestRegisterRoutes_CORSAllowlistEcho(t *testing.T) {
	cfg := testConfig()
	cfg.CORS.AllowedOrigins = []string{"https://app.example.com"}
	r := newRouter(t, newTestDB(t), cfg)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "https://app.example.com")
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("GET /health = %d", w.Code)
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "https://app.example.com" {
		t.Fatalf("expected ACAO echo, got %q", got)
	}

	// Unlisted origins get no ACAO echo.
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	r.ServeHTTP(w, req)
	if got := w.Header().Get("Access-Control-Allow-Origin"); got == "https://evil.example.com" {
		t.Fatalf("unlisted origin must not be echoed, got %q", got)
	}
}

func TestRegisterRoutes_APIRequiresBearerToken(t *testing.T) {
	r := newRouter(t, newTestDB(t), testConfig())

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/conversations/req-1/messages", nil))
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", w.Code)
	}
}

func Test_limitBody_Middleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(limitBody(10))
	r.POST("/echo", func(c *gin.Context) {
		if _, err := io.ReadAll(c.Request.Body); err != nil {
			c.String(http.StatusRequestEntityTooLarge, "too big")
			return
		}
		c.String(http.StatusOK, "ok")
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/echo", bytes.NewBufferString("0123456789AB")))
	if w.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413 from limitBody, got %d", w.Code)
	}
}

func Test_groupWithPrefix(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()

	root := groupWithPrefix(r, "/")
	root.GET("/one", func(c *gin.Context) { c.String(http.StatusOK, "one") })
	api := groupWithPrefix(r, "/api")
	api.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/one", nil))
	if w.Code != http.StatusOK || w.Body.String() != "one" {
		t.Fatalf("GET /one got %d %q", w.Code, w.Body.String())
	}
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/ping", nil))
	if w.Code != http.StatusOK || w.Body.String() != "pong" {
		t.Fatalf("GET /api/ping got %d %q", w.Code, w.Body.String())
	}
}

// --- websocket integration ---

type wsEnv struct {
	srv      *httptest.Server
	db       *gorm.DB
	verifier *auth.Verifier
}

func newWSEnv(t *testing.T) *wsEnv {
	t.Helper()
	cfg := testConfig()
	db := newTestDB(t)
	r := newRouter(t, db, cfg)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return &wsEnv{srv: srv, db: db, verifier: auth.NewVerifier(cfg.JWTSecret)}
}

func (e *wsEnv) token(t *testing.T, userID, name string) string {
	t.Helper()
	tok, err := e.verifier.Sign(userID, name, time.Hour)
	require.NoError(t, err)
	return tok
}

func (e *wsEnv) dial(t *testing.T, conversationID, token string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(e.srv.URL, "http") + "/ws/conversations/" + conversationID
	if token != "" {
		url += "?token=" + token
	}
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err, "websocket dial")
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

// readFrame reads the next text frame and decodes its JSON payload.
func readFrame(t *testing.T, conn *websocket.Conn) map[string]any {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err, "read frame")
	var m map[string]any
	require.NoError(t, json.Unmarshal(data, &m))
	return m
}

// expectClose asserts that the server closes the socket with the given code.
func expectClose(t *testing.T, conn *websocket.Conn, code int) {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))
	_, _, err := conn.ReadMessage()
	require.Error(t, err)
	var closeErr *websocket.CloseError
	require.ErrorAs(t, err, &closeErr)
	require.Equal(t, code, closeErr.Code)
}

func TestWebSocket_HandshakeCloseCodes(t *testing.T) {
	env := newWSEnv(t)
	_, err := repo.CreateConversation(context.Background(), env.db, "req-1", "owner-1", "provider-1")
	require.NoError(t, err)

	t.Run("missing token", func(t *testing.T) {
		conn := env.dial(t, "req-1", "")
		expectClose(t, conn, 4401)
	})

	t.Run("garbage token", func(t *testing.T) {
		conn := env.dial(t, "req-1", "not-a-jwt")
		expectClose(t, conn, 4401)
	})

	t.Run("unknown conversation", func(t *testing.T) {
		conn := env.dial(t, "req-missing", env.token(t, "owner-1", "Dana"))
		expectClose(t, conn, 4404)
	})

	t.Run("outsider", func(t *testing.T) {
		conn := env.dial(t, "req-1", env.token(t, "stranger-9", "Sam"))
		expectClose(t, conn, 4403)
	})
}

func TestWebSocket_MessageRoundTrip(t *testing.T) {
	env := newWSEnv(t)
	_, err := repo.CreateConversation(context.Background(), env.db, "req-1", "owner-1", "provider-1")
	require.NoError(t, err)

	owner := env.dial(t, "req-1", env.token(t, "owner-1", "Dana"))
	require.Equal(t, "connection_established", readFrame(t, owner)["type"])

	provider := env.dial(t, "req-1", env.token(t, "provider-1", "Pat"))
	require.Equal(t, "connection_established", readFrame(t, provider)["type"])

	// Owner sends a message; they get the ack, the provider gets the broadcast.
	require.NoError(t, owner.WriteMessage(websocket.TextMessage,
		[]byte(`{"type":"message","message":"Rex had his walk"}`)))

	ack := readFrame(t, owner)
	require.Equal(t, "message_sent", ack["type"])

	broadcast := readFrame(t, provider)
	require.Equal(t, "new_message", broadcast["type"])
	msg, ok := broadcast["message"].(map[string]any)
	require.True(t, ok, "broadcast carries the message object")
	require.Equal(t, "Rex had his walk", msg["body"])
	require.Equal(t, "owner-1", msg["sender_id"])

	// The same message is visible through the REST history endpoint.
	req, err := http.NewRequest(http.MethodGet, env.srv.URL+"/api/v1/conversations/req-1/messages", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+env.token(t, "provider-1", "Pat"))
	resp, err := env.srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var page services.HistoryPage
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&page))
	require.Len(t, page.Messages, 1)
	require.Equal(t, "Rex had his walk", page.Messages[0].Body)
	require.EqualValues(t, 1, page.TotalMessages)
}
