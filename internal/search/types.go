package search

import (
	"time"
)

// Search type selects which strategies the orchestrator runs.
const (
	TypeAll           = "all"
	TypePhone         = "phone"
	TypeConversations = "conversations"
	TypeMessages      = "messages"
)

// ValidType reports whether t is a supported search type.
func ValidType(t string) bool {
	switch t {
	case TypeAll, TypePhone, TypeConversations, TypeMessages:
		return true
	}
	return false
}

// Phone match classes, strongest first.
type PhoneMatchClass string

const (
	MatchExact    PhoneMatchClass = "exact"
	MatchSuffix   PhoneMatchClass = "suffix"
	MatchContains PhoneMatchClass = "contains"
	MatchNew      PhoneMatchClass = "new"
	MatchNone     PhoneMatchClass = ""
)

// PhoneResult is one hit from the phone-number strategy. A "new" result is a
// synthesized start-new-conversation suggestion carrying no conversation id.
type PhoneResult struct {
	MatchType          PhoneMatchClass `json:"type"`
	Number             string          `json:"number"`
	ConversationID     string          `json:"conversationId,omitempty"`
	ConversationExists bool            `json:"conversationExists"`
	ParticipantName    string          `json:"participantName,omitempty"`
	Score              int             `json:"score"`
	LastMessageTime    time.Time       `json:"-"`
}

// ConversationResult is one hit from the free-text conversation strategy.
// MatchedIn names the single field that drove the match.
type ConversationResult struct {
	ConversationID     string    `json:"conversationId"`
	ParticipantName    string    `json:"participantName"`
	ParticipantPhone   string    `json:"participantPhone"`
	BusinessPhoneID    string    `json:"businessPhoneId"`
	MatchedIn          string    `json:"matchedIn"`
	LastMessagePreview string    `json:"lastMessagePreview"`
	LastMessageTime    time.Time `json:"lastMessageTime"`
	UnreadCount        int       `json:"unreadCount"`
	Tags               []string  `json:"tags,omitempty"`
	IsArchived         bool      `json:"isArchived"`
	Score              int       `json:"score"`
}

// MessageSnippet is one matched message, trimmed to a bounded window around
// the matched term with the term wrapped in ** markers.
type MessageSnippet struct {
	MessageID string    `json:"messageId"`
	Snippet   string    `json:"snippet"`
	Direction string    `json:"direction"`
	Type      string    `json:"type"`
	MediaURL  string    `json:"mediaUrl,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// MessageGroup is the per-conversation grouping of message hits.
// TotalMatches may exceed len(Snippets); only the newest few are shown.
type MessageGroup struct {
	ConversationID   string           `json:"conversationId"`
	ParticipantName  string           `json:"participantName"`
	ParticipantPhone string           `json:"participantPhone"`
	BusinessPhoneID  string           `json:"businessPhoneId"`
	Snippets         []MessageSnippet `json:"matches"`
	TotalMatches     int              `json:"totalMatches"`
	NewestMatch      time.Time        `json:"-"`
}

// Results groups the per-strategy hits of one orchestrated search.
type Results struct {
	PhoneNumbers  []PhoneResult        `json:"phoneNumbers"`
	Conversations []ConversationResult `json:"conversations"`
	Messages      []MessageGroup       `json:"messages"`
}

// Response is the orchestrated search payload returned to HTTP callers and
// stored in the result cache.
type Response struct {
	Success      bool    `json:"success"`
	Query        string  `json:"query"`
	Results      Results `json:"results"`
	TotalResults int     `json:"totalResults"`
	SearchTime   int64   `json:"searchTime"`
	Cached       bool    `json:"cached,omitempty"`
}

// MatchFlags are the inline boolean match markers of the unified pipeline.
type MatchFlags struct {
	PhoneExact    bool `json:"phoneExact"`
	PhoneSuffix   bool `json:"phoneSuffix"`
	PhoneContains bool `json:"phoneContains"`
	Name          bool `json:"name"`
	Notes         bool `json:"notes"`
}

// UnifiedConversation is one conversation-centric row from the unified
// aggregation pipeline; each candidate appears at most once by construction.
type UnifiedConversation struct {
	ConversationID   string           `json:"conversationId"`
	ParticipantName  string           `json:"participantName"`
	ParticipantPhone string           `json:"participantPhone"`
	BusinessPhoneID  string           `json:"businessPhoneId"`
	Matches          MatchFlags       `json:"matches"`
	MatchingMessages []MessageSnippet `json:"matchingMessages"`
	TotalMessageHits int              `json:"totalMessageHits"`
	LastMessageTime  time.Time        `json:"lastMessageTime"`
	UnreadCount      int              `json:"unreadCount"`
	IsArchived       bool             `json:"isArchived"`
	Score            int              `json:"score"`
}

// UnifiedResponse is the unified endpoint payload.
type UnifiedResponse struct {
	Success              bool                  `json:"success"`
	Query                string                `json:"query"`
	UnifiedConversations []UnifiedConversation `json:"unifiedConversations"`
	TotalResults         int                   `json:"totalResults"`
	StartNewChat         bool                  `json:"startNewChat"`
	SearchTime           int64                 `json:"searchTime"`
	Cached               bool                  `json:"cached,omitempty"`
}
