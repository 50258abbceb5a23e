package search

import (
	"context"
	"fmt"
	"sort"

	"inboxsearch/internal/access"
	"inboxsearch/internal/models"
	"inboxsearch/internal/store"
)

// maxSnippetsPerConversation caps how many matched messages are shown per
// conversation; TotalMatches still counts the rest.
const maxSnippetsPerConversation = 3

// messagePrefetch bounds the number of message rows pulled per search.
const messagePrefetch = 300

// MediaResolver turns a stored media key into a client-fetchable URL.
// Implementations may return "" when no delivery channel is configured.
type MediaResolver interface {
	ResolveURL(ctx context.Context, mediaKey string) string
}

// MessageSearcher runs the content strategy over message records.
type MessageSearcher struct {
	store store.Store
	media MediaResolver
}

// NewMessageSearcher builds a MessageSearcher. media may be nil when no
// media delivery is configured.
func NewMessageSearcher(st store.Store, media MediaResolver) *MessageSearcher {
	return &MessageSearcher{store: st, media: media}
}

// MessageParams are the inputs of one message content search.
type MessageParams struct {
	Query           string
	Scope           *access.Scope
	ConversationID  string
	Limit           int
	Offset          int
	IncludeArchived bool
}

// Search finds messages whose text or caption contains the query,
// case-insensitively, excluding reaction and system messages. Hits are
// grouped per conversation, newest first, capped per group, each with a
// bounded snippet highlighting the matched term.
func (ms *MessageSearcher) Search(ctx context.Context, p MessageParams) ([]MessageGroup, error) {
	byID := make(map[string]*models.Conversation)

	if p.ConversationID != "" {
		conv, err := ms.store.ConversationByID(ctx, p.ConversationID)
		if err != nil {
			return nil, fmt.Errorf("failed to scope message search: %w", err)
		}
		if !p.Scope.CanSee(conv) {
			return []MessageGroup{}, nil
		}
		byID[conv.ID] = conv
	} else {
		candidates, err := loadCandidates(ctx, ms.store, p.Scope, p.IncludeArchived)
		if err != nil {
			return nil, err
		}
		for i := range candidates {
			byID[candidates[i].ID] = &candidates[i]
		}
	}

	if len(byID) == 0 {
		return []MessageGroup{}, nil
	}

	ids := make([]string, 0, len(byID))
	for id := range byID {
		ids = append(ids, id)
	}

	msgs, err := ms.store.SearchMessages(ctx, store.MessageQuery{
		ConversationIDs: ids,
		Term:            p.Query,
		Limit:           messagePrefetch,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to search messages: %w", err)
	}

	groups := make(map[string]*MessageGroup)
	for i := range msgs {
		m := &msgs[i]
		conv := byID[m.ConversationID]
		if conv == nil {
			continue
		}
		g, ok := groups[m.ConversationID]
		if !ok {
			g = &MessageGroup{
				ConversationID:   conv.ID,
				ParticipantName:  conv.ParticipantName,
				ParticipantPhone: conv.ParticipantPhone,
				BusinessPhoneID:  conv.BusinessPhoneID,
			}
			groups[m.ConversationID] = g
		}
		g.TotalMatches++
		if m.Timestamp.After(g.NewestMatch) {
			g.NewestMatch = m.Timestamp
		}
		if len(g.Snippets) < maxSnippetsPerConversation {
			g.Snippets = append(g.Snippets, ms.snippetFor(ctx, m, p.Query))
		}
	}

	result := make([]MessageGroup, 0, len(groups))
	for _, g := range groups {
		// Store order is timestamp desc, so snippets are already newest
		// first within each group.
		result = append(result, *g)
	}
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].NewestMatch.After(result[j].NewestMatch)
	})

	return paginate(result, p.Limit, p.Offset), nil
}

func (ms *MessageSearcher) snippetFor(ctx context.Context, m *models.Message, term string) MessageSnippet {
	s := MessageSnippet{
		MessageID: m.ID,
		Snippet:   makeSnippet(m.SearchText(), term, snippetWidth),
		Direction: m.Direction,
		Type:      m.Type,
		Timestamp: m.Timestamp,
	}
	if m.MediaKey != "" && ms.media != nil {
		s.MediaURL = ms.media.ResolveURL(ctx, m.MediaKey)
	}
	return s
}
