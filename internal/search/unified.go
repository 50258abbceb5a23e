package search

import (
	"context"
	"strings"
	"time"

	"inboxsearch/internal/access"
	"inboxsearch/internal/models"
	"inboxsearch/internal/store"
)

// UnifiedEngine is the conversation-centric single-pass pipeline. Instead of
// racing independent strategies it walks one capped candidate set, computes
// match flags and message hits inline, and emits each conversation at most
// once, so deduplication is structural rather than post-hoc.
type UnifiedEngine struct {
	store   store.Store
	media   MediaResolver
	weights Weights
	dedup   Deduplicator
}

// NewUnifiedEngine builds the unified pipeline ranking on UnifiedWeights.
func NewUnifiedEngine(st store.Store, media MediaResolver, debugDedup bool) *UnifiedEngine {
	return &UnifiedEngine{
		store:   st,
		media:   media,
		weights: UnifiedWeights,
		dedup:   Deduplicator{Debug: debugDedup},
	}
}

// UnifiedParams are the inputs of one unified search.
type UnifiedParams struct {
	Query           string
	Scope           *access.Scope
	Limit           int
	Offset          int
	IncludeArchived bool
}

// Search runs the pipeline: access filter, candidate cap, inline match
// flags, top-K message hits, drop non-matches, score, rank, truncate.
func (e *UnifiedEngine) Search(ctx context.Context, p UnifiedParams) (*UnifiedResponse, error) {
	start := time.Now()

	candidates, err := loadCandidates(ctx, e.store, p.Scope, p.IncludeArchived)
	if err != nil {
		return nil, err
	}

	q := strings.ToLower(p.Query)
	digits := NormalizePhone(p.Query)
	phoneLike := LooksLikePhone(p.Query)

	msgHits, totals, err := e.messageHits(ctx, candidates, p.Query)
	if err != nil {
		return nil, err
	}

	rows := make([]UnifiedConversation, 0)
	haveExact := false
	for i := range candidates {
		c := &candidates[i]

		var flags MatchFlags
		if digits != "" {
			switch ClassifyPhoneMatch(digits, c.ParticipantPhone) {
			case MatchExact:
				flags.PhoneExact = true
				haveExact = true
			case MatchSuffix:
				flags.PhoneSuffix = true
			case MatchContains:
				flags.PhoneContains = true
			}
		}
		flags.Name = q != "" && strings.Contains(strings.ToLower(c.ParticipantName), q)
		flags.Notes = q != "" && c.Notes != "" && strings.Contains(strings.ToLower(c.Notes), q)

		hits := msgHits[c.ID]
		total := totals[c.ID]
		if !flags.PhoneExact && !flags.PhoneSuffix && !flags.PhoneContains &&
			!flags.Name && !flags.Notes && total == 0 {
			continue
		}

		info := MatchInfo{
			Name:           flags.Name,
			Notes:          flags.Notes,
			MessageMatches: total,
		}
		switch {
		case flags.PhoneExact:
			info.Phone = MatchExact
		case flags.PhoneSuffix:
			info.Phone = MatchSuffix
		case flags.PhoneContains:
			info.Phone = MatchContains
		}

		rows = append(rows, UnifiedConversation{
			ConversationID:   c.ID,
			ParticipantName:  c.ParticipantName,
			ParticipantPhone: c.ParticipantPhone,
			BusinessPhoneID:  c.BusinessPhoneID,
			Matches:          flags,
			MatchingMessages: hits,
			TotalMessageHits: total,
			LastMessageTime:  c.LastMessageTime,
			UnreadCount:      c.UnreadCount,
			IsArchived:       c.IsArchived,
			Score:            e.weights.Score(info),
		})
	}

	rows = e.dedup.Unified(rows)
	sortByRelevance(rows)
	rows = paginate(rows, p.Limit, p.Offset)

	return &UnifiedResponse{
		Success:              true,
		Query:                p.Query,
		UnifiedConversations: rows,
		TotalResults:         len(rows),
		StartNewChat:         phoneLike && !haveExact,
		SearchTime:           time.Since(start).Milliseconds(),
	}, nil
}

// messageHits fetches the content matches for all candidates in one query
// and folds them into per-conversation snippet lists (top K, newest first)
// plus total counts.
func (e *UnifiedEngine) messageHits(ctx context.Context, candidates []models.Conversation, term string) (map[string][]MessageSnippet, map[string]int, error) {
	hits := make(map[string][]MessageSnippet)
	totals := make(map[string]int)
	if term == "" || len(candidates) == 0 {
		return hits, totals, nil
	}

	ids := make([]string, len(candidates))
	for i := range candidates {
		ids[i] = candidates[i].ID
	}

	msgs, err := e.store.SearchMessages(ctx, store.MessageQuery{
		ConversationIDs: ids,
		Term:            term,
		Limit:           messagePrefetch,
	})
	if err != nil {
		return nil, nil, err
	}

	for i := range msgs {
		m := &msgs[i]
		totals[m.ConversationID]++
		if len(hits[m.ConversationID]) >= maxSnippetsPerConversation {
			continue
		}
		s := MessageSnippet{
			MessageID: m.ID,
			Snippet:   makeSnippet(m.SearchText(), term, snippetWidth),
			Direction: m.Direction,
			Type:      m.Type,
			Timestamp: m.Timestamp,
		}
		if m.MediaKey != "" && e.media != nil {
			s.MediaURL = e.media.ResolveURL(ctx, m.MediaKey)
		}
		hits[m.ConversationID] = append(hits[m.ConversationID], s)
	}
	return hits, totals, nil
}
