// Message HTTP handlers.
//
// This file exposes the REST surface for chat messages:
//   - GET  /conversations/{id}/messages   (paginated history)
//   - POST /messages/{id}/delivered       (mark delivered)
//   - POST /messages/{id}/read            (mark read)
//
// Handlers are transport-thin: they validate and normalize inputs, delegate
// to application services, and translate service errors into the HTTP error
// taxonomy. The websocket channel shares the same services, so both surfaces
// enforce identical access and state-machine rules.
package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/barnir16/PawfectPal-sub000/internal/domain"
	"github.com/barnir16/PawfectPal-sub000/internal/services"
	"github.com/barnir16/PawfectPal-sub000/internal/utils"
)

//
// Service contracts (context-aware)
//

// MessageService defines history retrieval as consumed by HTTP handlers.
//
// Implementations must be safe for concurrent use and honor the provided
// context for cancellation and timeouts.
type MessageService interface {
	// History returns one page of conversation history for userID.
	History(ctx context.Context, userID, conversationID string, limit, offset int) (*services.HistoryPage, error)
}

// StatusService defines delivery-state transitions consumed by HTTP handlers.
type StatusService interface {
	// MarkDelivered records receipt of a message by the acting user.
	MarkDelivered(ctx context.Context, messageID, actorID string) (bool, error)
	// MarkRead records that the acting user read a message.
	MarkRead(ctx context.Context, messageID, actorID string) (bool, error)
}

// TokenService defines notification-token registration operations.
type TokenService interface {
	// Register stores (or reactivates) a device token for the user.
	Register(ctx context.Context, userID, token, deviceType string) (*domain.NotificationToken, error)
	// Deactivate retires a device token.
	Deactivate(ctx context.Context, token string) error
}

//
// Handler wiring
//

// Handlers groups the REST endpoints for history, status transitions, and
// notification tokens. It depends on abstract service interfaces to keep
// transport concerns separate from business logic.
type Handlers struct {
	msgSvc    MessageService
	statusSvc StatusService
	tokenSvc  TokenService
}

// New constructs a Handlers instance bound to the given services.
func New(msgSvc MessageService, statusSvc StatusService, tokenSvc TokenService) *Handlers {
	return &Handlers{msgSvc: msgSvc, statusSvc: statusSvc, tokenSvc: tokenSvc}
}

// userID extracts the authenticated user id set by the auth middleware. An
// empty return means the middleware did not run, which is a routing bug; the
// callers answer 401 in that case rather than guessing.
func userID(c *gin.Context) string {
	if v, ok := c.Get("userID"); ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// clampHistoryPagination parses limit/offset query parameters and applies the
// pagination contract: limit defaults to 50 and is capped at 100, offset
// defaults to 0 and counts back from the newest message.
func clampHistoryPagination(c *gin.Context) (limit, offset int) {
	limit = utils.AtoiDefault(c.Query("limit"), services.DefaultPageLimit)
	if limit < 1 {
		limit = services.DefaultPageLimit
	}
	if limit > services.MaxPageLimit {
		limit = services.MaxPageLimit
	}
	offset = utils.AtoiDefault(c.Query("offset"), 0)
	if offset < 0 {
		offset = 0
	}
	return
}

//
// Handlers
//

// GetHistory godoc
// @ID          getConversationMessages
// @Summary     List messages in a conversation
// @Description Returns one page of conversation history in chronological order.
// @Description Offset counts back from the newest message; walk offsets 0, 50, 100 … until has_more is false.
// @Tags        Messages
// @Produce     json
// @Security    BearerAuth
//
// @Param       id      path   string  true  "Conversation ID (UUID)"  format(uuid)
// @Param       limit   query  int     false "Page size"               minimum(1) maximum(100) default(50)
// @Param       offset  query  int     false "Messages to skip, newest first"  minimum(0) default(0)
//
// @Success     200  {object} services.HistoryPage
// @Failure     401  {object} handlers.ErrorResponse "Unauthorized"
// @Failure     403  {object} handlers.ErrorResponse "No access"
// @Failure     404  {object} handlers.ErrorResponse "Conversation not found"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /conversations/{id}/messages [get]
func (h *Handlers) GetHistory(c *gin.Context) {
	uid := userID(c)
	if uid == "" {
		fail(c, http.StatusUnauthorized, ErrCodeUnauthorized, "authentication required")
		return
	}
	limit, offset := clampHistoryPagination(c)

	page, err := h.msgSvc.History(c.Request.Context(), uid, c.Param("id"), limit, offset)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrConversationNotFound):
			fail(c, http.StatusNotFound, ErrCodeNotFound, "conversation not found")
		case errors.Is(err, services.ErrAccessDenied):
			fail(c, http.StatusForbidden, ErrCodeForbidden, "no access to this conversation")
		default:
			fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
		}
		return
	}
	ok(c, http.StatusOK, page)
}

// statusUpdateResponse reports whether a transition actually advanced the
// message. A false `updated` on 200 means the state was already at or past
// the target, which clients treat as success.
type statusUpdateResponse struct {
	Updated bool `json:"updated"`
}

// MarkDelivered godoc
// @ID          markMessageDelivered
// @Summary     Mark a message as delivered
// @Description Advances the message's delivery state to "delivered" on behalf of the caller.
// @Description Transitions are forward-only; repeating a transition is a harmless no-op.
// @Tags        Messages
// @Produce     json
// @Security    BearerAuth
//
// @Param       id  path  string  true  "Message ID (UUID)"  format(uuid)
//
// @Success     200  {object} handlers.statusUpdateResponse
// @Failure     401  {object} handlers.ErrorResponse "Unauthorized"
// @Failure     403  {object} handlers.ErrorResponse "No access"
// @Failure     404  {object} handlers.ErrorResponse "Message not found"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /messages/{id}/delivered [post]
func (h *Handlers) MarkDelivered(c *gin.Context) {
	h.advanceStatus(c, h.statusSvc.MarkDelivered)
}

// MarkRead godoc
// @ID          markMessageRead
// @Summary     Mark a message as read
// @Description Advances the message's delivery state to "read" on behalf of the caller.
// @Description Read is reachable from either "sent" or "delivered" and is terminal.
// @Tags        Messages
// @Produce     json
// @Security    BearerAuth
//
// @Param       id  path  string  true  "Message ID (UUID)"  format(uuid)
//
// @Success     200  {object} handlers.statusUpdateResponse
// @Failure     401  {object} handlers.ErrorResponse "Unauthorized"
// @Failure     403  {object} handlers.ErrorResponse "No access"
// @Failure     404  {object} handlers.ErrorResponse "Message not found"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /messages/{id}/read [post]
func (h *Handlers) MarkRead(c *gin.Context) {
	h.advanceStatus(c, h.statusSvc.MarkRead)
}

func (h *Handlers) advanceStatus(c *gin.Context, transition func(ctx context.Context, messageID, actorID string) (bool, error)) {
	uid := userID(c)
	if uid == "" {
		fail(c, http.StatusUnauthorized, ErrCodeUnauthorized, "authentication required")
		return
	}

	updated, err := transition(c.Request.Context(), c.Param("id"), uid)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrMessageNotFound), errors.Is(err, services.ErrConversationNotFound):
			fail(c, http.StatusNotFound, ErrCodeNotFound, "message not found")
		case errors.Is(err, services.ErrAccessDenied):
			fail(c, http.StatusForbidden, ErrCodeForbidden, "no access to this conversation")
		default:
			fail(c, http.StatusInternalServerError, ErrCodeStatusFailed, err.Error())
		}
		return
	}
	ok(c, http.StatusOK, statusUpdateResponse{Updated: updated})
}
