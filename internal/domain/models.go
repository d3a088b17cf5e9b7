// Package domain defines the persistence models for conversations, chat
// messages, and push-notification tokens. These types are mapped with GORM
// and form the data layer of the pet-care chat subsystem.
package domain

import (
	"time"

	"gorm.io/gorm"
)

// Delivery status values for a Message. The status only ever advances
// (sent → delivered → read); read is terminal.
const (
	StatusSent      = "sent"
	StatusDelivered = "delivered"
	StatusRead      = "read"
)

// Message content types accepted over the chat channel.
const (
	MessageTypeText     = "text"
	MessageTypeImage    = "image"
	MessageTypeFile     = "file"
	MessageTypeSystem   = "system"
	MessageTypeLocation = "location"
)

// Conversation is the chat thread attached to one service request. It has
// exactly two logical parties: the requester who opened it and the assigned
// provider. ProviderID may be empty before assignment; during that window a
// candidate provider participates by having messaged in the thread (see the
// access rule in services).
//
// Fields:
//   - ID: stable UUID primary key, shared with the service request (char(36)).
//   - OwnerID: identifier of the requesting pet owner; indexed.
//   - ProviderID: identifier of the assigned provider, empty pre-assignment.
//   - CreatedAt / UpdatedAt: timestamps managed by GORM.
//   - DeletedAt: soft deletion marker (retains the thread for audit/history).
type Conversation struct {
	ID         string         `json:"id"          gorm:"type:char(36);primaryKey"`
	OwnerID    string         `json:"owner_id"    gorm:"type:varchar(64);not null;index:idx_owner_convs"`
	ProviderID string         `json:"provider_id" gorm:"type:varchar(64);index:idx_provider_convs"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
	DeletedAt  gorm.DeletedAt `json:"-"           gorm:"index"`
}

// TableName returns the database table name for Conversation.
func (Conversation) TableName() string { return "conversations" }

// Participants returns the two logical party identifiers. The provider slot
// is empty while the request is unassigned.
func (c *Conversation) Participants() (owner, provider string) {
	return c.OwnerID, c.ProviderID
}

// Message is a single utterance within a conversation. Messages are never
// physically deleted; they only advance delivery state or gain an edit mark.
//
// Fields:
//   - ID: UUID primary key (char(36)).
//   - ConversationID: foreign key to the owning conversation (indexed).
//   - SenderID: identifier of the authoring party.
//   - Body: text content (or caption for attachments).
//   - Type: text|image|file|system|location (enforced by DB constraint).
//   - AttachmentURL: optional location of an uploaded attachment.
//   - ReplyToID: optional reference to the message being replied to.
//   - Status: sent|delivered|read; advances forward only.
//   - DeliveredAt / ReadAt: set when the corresponding transition happens.
//   - EditedAt: set when the sender edits the body.
//   - Conversation: FK association, cascade on conversation removal.
type Message struct {
	ID             string         `json:"id"              gorm:"type:char(36);primaryKey"`
	ConversationID string         `json:"conversation_id" gorm:"type:char(36);not null;index:idx_conv_msgs,priority:1"`
	SenderID       string         `json:"sender_id"       gorm:"type:varchar(64);not null;index"`
	Body           string         `json:"body"            gorm:"type:text;not null"`
	Type           string         `json:"type"            gorm:"type:varchar(16);not null;default:'text';check:type IN ('text','image','file','system','location')"`
	AttachmentURL  string         `json:"attachment_url,omitempty" gorm:"type:varchar(512)"`
	ReplyToID      *string        `json:"reply_to_id,omitempty"    gorm:"type:char(36)"`
	Status         string         `json:"status"          gorm:"type:varchar(16);not null;default:'sent';check:status IN ('sent','delivered','read')"`
	DeliveredAt    *time.Time     `json:"delivered_at,omitempty"`
	ReadAt         *time.Time     `json:"read_at,omitempty"`
	EditedAt       *time.Time     `json:"edited_at,omitempty"`
	CreatedAt      time.Time      `json:"created_at"      gorm:"index:idx_conv_msgs,priority:2"`
	UpdatedAt      time.Time      `json:"updated_at"`
	DeletedAt      gorm.DeletedAt `json:"-"               gorm:"index"`

	// Conversation is the parent thread. Messages are cascade-deleted only
	// if the whole conversation row is removed.
	Conversation Conversation `json:"-" gorm:"foreignKey:ConversationID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for Message.
func (Message) TableName() string { return "messages" }

// StatusRank maps a delivery status to its position in the forward-only
// progression. Unknown statuses rank lowest so they never block an advance.
func StatusRank(status string) int {
	switch status {
	case StatusSent:
		return 1
	case StatusDelivered:
		return 2
	case StatusRead:
		return 3
	default:
		return 0
	}
}

// ValidMessageType reports whether t is one of the accepted content types.
func ValidMessageType(t string) bool {
	switch t {
	case MessageTypeText, MessageTypeImage, MessageTypeFile, MessageTypeSystem, MessageTypeLocation:
		return true
	default:
		return false
	}
}

// NotificationToken is an opaque device identifier used for out-of-band push
// delivery when its owner has no live chat connection. Tokens are
// soft-deactivated on unregistration, never hard-deleted.
//
// Fields:
//   - ID: UUID primary key (char(36)).
//   - UserID: owner of the device token; indexed.
//   - Token: the FCM registration token (unique).
//   - DeviceType: coarse device tag, e.g. "android", "ios", "web".
//   - Active: false once unregistered or detected stale.
type NotificationToken struct {
	ID         string         `json:"id"          gorm:"type:char(36);primaryKey"`
	UserID     string         `json:"user_id"     gorm:"type:varchar(64);not null;index:idx_user_tokens"`
	Token      string         `json:"token"       gorm:"type:varchar(512);not null;uniqueIndex:ux_push_token"`
	DeviceType string         `json:"device_type" gorm:"type:varchar(16);not null;default:'android'"`
	Active     bool           `json:"active"      gorm:"not null;default:true"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
	DeletedAt  gorm.DeletedAt `json:"-"           gorm:"index"`
}

// TableName returns the database table name for NotificationToken.
func (NotificationToken) TableName() string { return "notification_tokens" }
