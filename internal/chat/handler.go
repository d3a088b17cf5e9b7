package chat

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/barnir16/PawfectPal-sub000/internal/auth"
	"github.com/barnir16/PawfectPal-sub000/internal/config"
	"github.com/barnir16/PawfectPal-sub000/internal/repo"
	"github.com/barnir16/PawfectPal-sub000/internal/services"
)

// Application close codes, in the range websocket reserves for private use.
// Browsers cannot read HTTP error bodies on a failed upgrade, so the
// handshake upgrades first and then closes with one of these.
const (
	CloseAuthFailure  = 4401
	CloseAccessDenied = 4403
	CloseNotFound     = 4404
)

// Handler upgrades HTTP requests into chat sessions.
type Handler struct {
	DB          *gorm.DB
	Cfg         config.WSConfig
	Verifier    *auth.Verifier
	Registry    *Registry
	Broadcaster *Broadcaster
	Messages    *services.MessageService
	Status      *services.StatusService
	Push        Notifier
	Log         zerolog.Logger

	upgrader websocket.Upgrader
}

// NewHandler wires the websocket endpoint. Origin checking is delegated to
// the token: possession of a valid bearer token is the access control, so
// cross-origin upgrades are permitted.
func NewHandler(db *gorm.DB, cfg config.WSConfig, verifier *auth.Verifier, reg *Registry, bc *Broadcaster, msgs *services.MessageService, status *services.StatusService, push Notifier, log zerolog.Logger) *Handler {
	return &Handler{
		DB:          db,
		Cfg:         cfg,
		Verifier:    verifier,
		Registry:    reg,
		Broadcaster: bc,
		Messages:    msgs,
		Status:      status,
		Push:        push,
		Log:         log.With().Str("component", "chat_handler").Logger(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}
}

// Serve handles GET /ws/conversations/:id. Token and access checks run after
// the upgrade so that rejection reasons reach the client as close codes.
func (h *Handler) Serve(c *gin.Context) {
	conversationID := c.Param("id")

	ws, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error.
		h.Log.Debug().Err(err).Msg("websocket upgrade failed")
		return
	}

	claims, err := h.Verifier.Verify(c.Query("token"))
	if err != nil {
		h.reject(ws, CloseAuthFailure, "authentication failed")
		return
	}

	conv, err := repo.GetConversation(c.Request.Context(), h.DB, conversationID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			h.reject(ws, CloseNotFound, "conversation not found")
			return
		}
		h.reject(ws, websocket.CloseInternalServerErr, "internal error")
		return
	}

	ok, err := services.CanAccessConversation(c.Request.Context(), h.DB, conv, claims.UserID)
	if err != nil {
		h.reject(ws, websocket.CloseInternalServerErr, "internal error")
		return
	}
	if !ok {
		h.reject(ws, CloseAccessDenied, "no access to this conversation")
		return
	}

	conn := NewConn(ws, h.Cfg, claims.UserID, claims.DisplayName, conversationID, h.Log)
	conn.Start()

	h.Log.Info().
		Str("connection_id", conn.ID).
		Str("user_id", claims.UserID).
		Str("conversation_id", conversationID).
		Msg("chat connection established")

	sess := &Session{
		Conn:        conn,
		Conv:        conv,
		Registry:    h.Registry,
		Broadcaster: h.Broadcaster,
		Messages:    h.Messages,
		Status:      h.Status,
		Push:        h.Push,
		Log:         h.Log,
	}
	sess.Run(c.Request.Context())

	h.Log.Info().
		Str("connection_id", conn.ID).
		Str("user_id", claims.UserID).
		Msg("chat connection closed")
}

// reject closes a freshly upgraded socket with an application close code.
func (h *Handler) reject(ws *websocket.Conn, code int, reason string) {
	deadline := time.Now().Add(h.Cfg.WriteWait)
	_ = ws.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, reason), deadline)
	_ = ws.Close()
}
