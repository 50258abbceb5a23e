package models

import (
	"database/sql"
	"strings"
	"time"
)

// Role identifies an operator role on the dashboard. Roles are closed set;
// string tags from the session provider are mapped through ParseRole so the
// access rules can switch exhaustively instead of comparing raw strings.
type Role string

const (
	RoleAdmin      Role = "admin"
	RoleManager    Role = "manager"
	RoleSales      Role = "sales"
	RoleOperations Role = "operations"
	RoleMarketing  Role = "marketing"
)

// FullAccess reports whether the role sees every configured business phone
// regardless of area assignments.
func (r Role) FullAccess() bool {
	return r == RoleAdmin || r == RoleManager
}

// ParseRole maps a session-provider role tag to a known Role.
func ParseRole(tag string) (Role, bool) {
	switch Role(strings.ToLower(strings.TrimSpace(tag))) {
	case RoleAdmin:
		return RoleAdmin, true
	case RoleManager:
		return RoleManager, true
	case RoleSales:
		return RoleSales, true
	case RoleOperations:
		return RoleOperations, true
	case RoleMarketing:
		return RoleMarketing, true
	}
	return "", false
}

// RetargetStage is the lifecycle stage of a retarget (outbound campaign)
// conversation. Stages are ordered; handover happens at StageHandedToSales.
type RetargetStage string

const (
	StageInitiated     RetargetStage = "initiated"
	StageAwaitingReply RetargetStage = "awaiting_reply"
	StageEngaged       RetargetStage = "engaged"
	StageHandedToSales RetargetStage = "handed_to_sales"
)

var stageOrder = map[RetargetStage]int{
	StageInitiated:     0,
	StageAwaitingReply: 1,
	StageEngaged:       2,
	StageHandedToSales: 3,
}

// HandedOver reports whether the stage is at or past the sales handover.
func (s RetargetStage) HandedOver() bool {
	return stageOrder[s] >= stageOrder[StageHandedToSales]
}

// Valid reports whether s is one of the known lifecycle stages.
func (s RetargetStage) Valid() bool {
	_, ok := stageOrder[s]
	return ok
}

// ConversationStatus is the coarse state of a conversation.
type ConversationStatus string

const (
	StatusActive   ConversationStatus = "active"
	StatusArchived ConversationStatus = "archived"
	StatusBlocked  ConversationStatus = "blocked"
)

// Message direction and type tags as stored.
const (
	DirectionIncoming = "incoming"
	DirectionOutgoing = "outgoing"
)

const (
	MessageTypeText     = "text"
	MessageTypeImage    = "image"
	MessageTypeVideo    = "video"
	MessageTypeAudio    = "audio"
	MessageTypeDocument = "document"
	MessageTypeSticker  = "sticker"
	MessageTypeLocation = "location"
	MessageTypeContact  = "contact"
	MessageTypeReaction = "reaction"
	MessageTypeSystem   = "system"
)

// SearchableMessageType reports whether a message type participates in
// content search.
// Reactions and system notices carry no user-authored text worth matching.
func SearchableMessageType(t string) bool {
	return t != MessageTypeReaction && t != MessageTypeSystem
}

// Conversation is one chat thread between a participant phone number and a
// business phone number. The pair is unique. lastMessage* fields are a
// denormalized cache of the latest Message and may lag briefly behind the
// messages table; readers tolerate that.
type Conversation struct {
	ID                   string         `db:"id" json:"id"`
	ParticipantPhone     string         `db:"participant_phone" json:"participantPhone"`
	BusinessPhoneID      string         `db:"business_phone_id" json:"businessPhoneId"`
	ParticipantName      string         `db:"participant_name" json:"participantName"`
	ProfilePictureURL    string         `db:"profile_picture_url" json:"profilePictureUrl,omitempty"`
	AssignedAgent        sql.NullString `db:"assigned_agent" json:"-"`
	Status               string         `db:"status" json:"status"`
	UnreadCount          int            `db:"unread_count" json:"unreadCount"`
	RawTags              string         `db:"tags" json:"-"`
	Notes                string         `db:"notes" json:"notes,omitempty"`
	IsInternal           bool           `db:"is_internal" json:"isInternal"`
	IsRetarget           bool           `db:"is_retarget" json:"isRetarget"`
	RetargetStage        RetargetStage  `db:"retarget_stage" json:"retargetStage,omitempty"`
	LastMessageContent   string         `db:"last_message_content" json:"lastMessageContent"`
	LastMessageTime      time.Time      `db:"last_message_time" json:"lastMessageTime"`
	LastMessageDirection string         `db:"last_message_direction" json:"lastMessageDirection"`
	LastMessageStatus    string         `db:"last_message_status" json:"lastMessageStatus"`
	IsArchived           bool           `db:"is_archived" json:"isArchived"`
}

// Tags splits the stored comma-separated tag list. Empty storage yields nil.
func (c *Conversation) Tags() []string {
	if c.RawTags == "" {
		return nil
	}
	parts := strings.Split(c.RawTags, ",")
	tags := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}

// Agent returns the bound agent id, or "" when unassigned.
func (c *Conversation) Agent() string {
	if c.AssignedAgent.Valid {
		return c.AssignedAgent.String
	}
	return ""
}

// Message is one message inside a conversation. Messages are immutable once
// stored; the messages table is append-only.
type Message struct {
	ID             string    `db:"id" json:"id"`
	ConversationID string    `db:"conversation_id" json:"conversationId"`
	Direction      string    `db:"direction" json:"direction"`
	Type           string    `db:"type" json:"type"`
	Content        string    `db:"content" json:"content"`
	Caption        string    `db:"caption" json:"caption,omitempty"`
	MediaKey       string    `db:"media_key" json:"-"`
	Timestamp      time.Time `db:"timestamp" json:"timestamp"`
}

// SearchText returns the text that participates in content matching.
func (m *Message) SearchText() string {
	if m.Content != "" {
		return m.Content
	}
	return m.Caption
}

// ArchiveState records archive flags separately from the conversation row so
// archiving never rewrites the conversation record.
type ArchiveState struct {
	ConversationID string `db:"conversation_id" json:"conversationId"`
	IsArchived     bool   `db:"is_archived" json:"isArchived"`
}

// BusinessPhone is one business-owned number an inbox runs through. Area is
// the basis for role scoping.
type BusinessPhone struct {
	ID    string `db:"id" json:"id"`
	Label string `db:"label" json:"label"`
	Area  string `db:"area" json:"area"`
}

// Caller is the authenticated operator making a request, as resolved by the
// session provider.
type Caller struct {
	ID    string   `json:"id"`
	Name  string   `json:"name"`
	Role  Role     `json:"role"`
	Areas []string `json:"areas"`
}
