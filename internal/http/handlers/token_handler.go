// Notification token HTTP handlers.
//
//   - POST   /notifications/tokens  (register or reactivate a device token)
//   - DELETE /notifications/tokens  (deactivate a device token)
//
// Tokens power the push fall-back: when a message's recipient has no live
// chat connection, the dispatcher pushes a preview to every active token the
// recipient has registered here.
package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/barnir16/PawfectPal-sub000/internal/services"
)

// RegisterTokenRequest is the JSON payload for registering a device token.
type RegisterTokenRequest struct {
	// Token is the FCM registration token for the device.
	Token string `json:"token" binding:"required,min=1" example:"fcm-registration-token"`
	// DeviceType is "android", "ios", or "web"; defaults to "android".
	DeviceType string `json:"device_type" example:"android"`
}

// RemoveTokenRequest is the JSON payload for deactivating a device token.
type RemoveTokenRequest struct {
	Token string `json:"token" binding:"required,min=1" example:"fcm-registration-token"`
}

// RegisterToken godoc
// @ID          registerNotificationToken
// @Summary     Register a device token
// @Description Stores a push-notification token for the current user. Re-registering an
// @Description existing token reactivates it and moves it to the caller's account.
// @Tags        Notifications
// @Accept      json
// @Produce     json
// @Security    BearerAuth
//
// @Param       body  body  handlers.RegisterTokenRequest  true  "Token payload"
//
// @Success     204  {string} string "No Content"
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     401  {object} handlers.ErrorResponse "Unauthorized"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /notifications/tokens [post]
func (h *Handlers) RegisterToken(c *gin.Context) {
	uid := userID(c)
	if uid == "" {
		fail(c, http.StatusUnauthorized, ErrCodeUnauthorized, "authentication required")
		return
	}

	var req RegisterTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "token required")
		return
	}

	if _, err := h.tokenSvc.Register(c.Request.Context(), uid, strings.TrimSpace(req.Token), req.DeviceType); err != nil {
		if errors.Is(err, services.ErrInvalidToken) {
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "token required")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeTokenFailed, err.Error())
		return
	}
	noContent(c)
}

// RemoveToken godoc
// @ID          removeNotificationToken
// @Summary     Deactivate a device token
// @Description Stops push delivery to the given token, typically on logout.
// @Description Deactivating an already inactive token succeeds.
// @Tags        Notifications
// @Accept      json
// @Produce     json
// @Security    BearerAuth
//
// @Param       body  body  handlers.RemoveTokenRequest  true  "Token payload"
//
// @Success     204  {string} string "No Content"
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     401  {object} handlers.ErrorResponse "Unauthorized"
// @Failure     404  {object} handlers.ErrorResponse "Token not found"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /notifications/tokens [delete]
func (h *Handlers) RemoveToken(c *gin.Context) {
	uid := userID(c)
	if uid == "" {
		fail(c, http.StatusUnauthorized, ErrCodeUnauthorized, "authentication required")
		return
	}

	var req RemoveTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "token required")
		return
	}

	if err := h.tokenSvc.Deactivate(c.Request.Context(), strings.TrimSpace(req.Token)); err != nil {
		if errors.Is(err, services.ErrTokenNotFound) {
			fail(c, http.StatusNotFound, ErrCodeNotFound, "token not found")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeTokenFailed, err.Error())
		return
	}
	noContent(c)
}
