// Package services defines the business logic for conversations, messages,
// delivery-status transitions, and notification tokens. This file centralizes
// common service-level error values so that they can be consistently returned
// by service methods and checked by callers.
//
// These errors are intended for internal use by the service layer; translation
// into user-facing messages, HTTP status codes, or websocket close codes is
// performed at the handler layer.
package services

import "errors"

var (
	// ErrConversationNotFound indicates that the requested conversation does
	// not exist.
	ErrConversationNotFound = errors.New("conversation not found")

	// ErrMessageNotFound indicates that the requested message does not exist.
	ErrMessageNotFound = errors.New("message not found")

	// ErrAccessDenied is returned when a user is neither the conversation
	// owner, nor the assigned provider, nor a counterpart who has previously
	// messaged in the thread.
	ErrAccessDenied = errors.New("no access to this conversation")

	// ErrEmptyBody is returned when a message submission contains an empty
	// (or whitespace-only) body.
	ErrEmptyBody = errors.New("message body is empty")

	// ErrBodyTooLong is returned when a message body exceeds the configured
	// maximum length.
	ErrBodyTooLong = errors.New("message body too long")

	// ErrInvalidMessageType is returned when a message carries a content type
	// outside the accepted set.
	ErrInvalidMessageType = errors.New("invalid message type")

	// ErrInvalidToken is returned when a token registration payload is
	// missing the token string.
	ErrInvalidToken = errors.New("token must not be empty")

	// ErrTokenNotFound indicates that the token being unregistered was never
	// registered.
	ErrTokenNotFound = errors.New("notification token not found")
)
