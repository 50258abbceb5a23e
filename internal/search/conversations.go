package search

import (
	"context"
	"fmt"
	"strings"

	"inboxsearch/internal/access"
	"inboxsearch/internal/models"
	"inboxsearch/internal/store"
)

// candidateCeiling caps the working set fetched from the store before any
// in-memory matching, for cost control.
const candidateCeiling = 500

// previewBudget is the character cap for last-message previews on
// conversation hits.
const previewBudget = 100

// Fields a free-text query is matched against, in the priority order used
// to report the single driving field.
const (
	MatchedInName    = "name"
	MatchedInPhone   = "phone"
	MatchedInNotes   = "notes"
	MatchedInTags    = "tags"
	MatchedInContent = "content"
)

// ConversationSearcher runs the free-text multi-field strategy over
// conversation records.
type ConversationSearcher struct {
	store   store.Store
	weights Weights
}

// NewConversationSearcher builds a ConversationSearcher ranking on the given
// weight table.
func NewConversationSearcher(st store.Store, weights Weights) *ConversationSearcher {
	return &ConversationSearcher{store: st, weights: weights}
}

// ConversationParams are the inputs of one conversation search.
type ConversationParams struct {
	Query           string
	Scope           *access.Scope
	Limit           int
	Offset          int
	IncludeArchived bool
}

// candidates loads the access-filtered working set, newest first.
func loadCandidates(ctx context.Context, st store.Store, scope *access.Scope, includeArchived bool) ([]models.Conversation, error) {
	convs, err := st.Conversations(ctx, store.ConversationQuery{
		PhoneIDs:        scope.PhoneFilter(),
		IncludeArchived: includeArchived,
		Limit:           candidateCeiling,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load conversation candidates: %w", err)
	}
	return scope.FilterVisible(convs), nil
}

// matchField finds the highest-priority field a query matches on, or "".
func matchField(c *models.Conversation, query string) string {
	q := strings.ToLower(query)
	digits := NormalizePhone(query)

	if strings.Contains(strings.ToLower(c.ParticipantName), q) {
		return MatchedInName
	}
	if digits != "" && strings.Contains(NormalizePhone(c.ParticipantPhone), digits) {
		return MatchedInPhone
	}
	if c.Notes != "" && strings.Contains(strings.ToLower(c.Notes), q) {
		return MatchedInNotes
	}
	for _, tag := range c.Tags() {
		if strings.Contains(strings.ToLower(tag), q) {
			return MatchedInTags
		}
	}
	if c.LastMessageContent != "" && strings.Contains(strings.ToLower(c.LastMessageContent), q) {
		return MatchedInContent
	}
	return ""
}

// Search matches the query against participant name, phone, notes, tags and
// the cached last message, OR-combined and case-insensitive. Results keep
// lastMessageTime-descending order (the store's sort), with limit/offset
// applied after matching. The score rides along for the merge layer and UI.
func (cs *ConversationSearcher) Search(ctx context.Context, p ConversationParams) ([]ConversationResult, error) {
	candidates, err := loadCandidates(ctx, cs.store, p.Scope, p.IncludeArchived)
	if err != nil {
		return nil, err
	}

	phoneLike := LooksLikePhone(p.Query)
	digits := NormalizePhone(p.Query)

	results := make([]ConversationResult, 0)
	for i := range candidates {
		c := &candidates[i]
		field := matchField(c, p.Query)
		if field == "" {
			continue
		}

		info := MatchInfo{
			Name:  field == MatchedInName,
			Notes: field == MatchedInNotes,
		}
		if phoneLike {
			info.Phone = ClassifyPhoneMatch(digits, c.ParticipantPhone)
		}

		results = append(results, ConversationResult{
			ConversationID:     c.ID,
			ParticipantName:    c.ParticipantName,
			ParticipantPhone:   c.ParticipantPhone,
			BusinessPhoneID:    c.BusinessPhoneID,
			MatchedIn:          field,
			LastMessagePreview: truncatePreview(c.LastMessageContent, previewBudget),
			LastMessageTime:    c.LastMessageTime,
			UnreadCount:        c.UnreadCount,
			Tags:               c.Tags(),
			IsArchived:         c.IsArchived,
			Score:              cs.weights.Score(info),
		})
	}

	return paginate(results, p.Limit, p.Offset), nil
}

// paginate applies offset/limit to an already ranked slice.
func paginate[T any](entries []T, limit, offset int) []T {
	if offset >= len(entries) {
		return []T{}
	}
	entries = entries[offset:]
	if limit > 0 && limit < len(entries) {
		entries = entries[:limit]
	}
	return entries
}
