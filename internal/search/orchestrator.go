package search

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"inboxsearch/internal/access"
	"inboxsearch/internal/store"
)

// Orchestrator fans the requested strategies out concurrently under a shared
// deadline and assembles the combined response. The design is all-or-nothing:
// if any strategy fails or the deadline passes, the whole request fails and
// no partial results are returned.
type Orchestrator struct {
	store         store.Store
	conversations *ConversationSearcher
	messages      *MessageSearcher
	weights       Weights
	deadline      time.Duration
	dedup         Deduplicator
}

// NewOrchestrator wires the per-strategy searchers. deadline bounds the
// combined strategy execution.
func NewOrchestrator(st store.Store, media MediaResolver, deadline time.Duration, debugDedup bool) *Orchestrator {
	return &Orchestrator{
		store:         st,
		conversations: NewConversationSearcher(st, StrategyWeights),
		messages:      NewMessageSearcher(st, media),
		weights:       StrategyWeights,
		deadline:      deadline,
		dedup:         Deduplicator{Debug: debugDedup},
	}
}

// Request is one orchestrated search invocation.
type Request struct {
	Query           string
	Type            string
	Limit           int
	Offset          int
	ConversationID  string
	IncludeArchived bool
	Scope           *access.Scope
}

// Search runs the strategies the request type needs and merges the results.
// All strategies receive the group context so a deadline or sibling failure
// cancels in-flight store calls.
func (o *Orchestrator) Search(ctx context.Context, req Request) (*Response, error) {
	start := time.Now()

	ctx, cancel := context.WithTimeout(ctx, o.deadline)
	defer cancel()

	var (
		phones []PhoneResult
		convs  []ConversationResult
		msgs   []MessageGroup
	)

	g, gctx := errgroup.WithContext(ctx)

	if req.Type == TypeAll || req.Type == TypePhone {
		g.Go(func() error {
			var err error
			phones, err = o.searchPhones(gctx, req)
			return err
		})
	}
	if req.Type == TypeAll || req.Type == TypeConversations {
		g.Go(func() error {
			var err error
			convs, err = o.conversations.Search(gctx, ConversationParams{
				Query:           req.Query,
				Scope:           req.Scope,
				Limit:           req.Limit,
				Offset:          req.Offset,
				IncludeArchived: req.IncludeArchived,
			})
			return err
		})
	}
	if req.Type == TypeAll || req.Type == TypeMessages {
		g.Go(func() error {
			var err error
			msgs, err = o.messages.Search(gctx, MessageParams{
				Query:           req.Query,
				Scope:           req.Scope,
				ConversationID:  req.ConversationID,
				Limit:           req.Limit,
				Offset:          req.Offset,
				IncludeArchived: req.IncludeArchived,
			})
			return err
		})
	}

	if err := g.Wait(); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w after %s", ErrTimeout, o.deadline)
		}
		return nil, err
	}

	phones = o.dedup.Phones(phones)
	convs = o.dedup.Conversations(convs)
	msgs = o.dedup.Messages(msgs)

	resp := &Response{
		Success: true,
		Query:   req.Query,
		Results: Results{
			PhoneNumbers:  phones,
			Conversations: convs,
			Messages:      msgs,
		},
		TotalResults: len(phones) + len(convs) + len(msgs),
		SearchTime:   time.Since(start).Milliseconds(),
	}
	return resp, nil
}

// searchPhones runs the phone-number strategy: classify the query, match it
// against the candidate set's participant numbers, and synthesize a
// start-new-conversation suggestion when a phone-like query has no exact hit.
func (o *Orchestrator) searchPhones(ctx context.Context, req Request) ([]PhoneResult, error) {
	digits := NormalizePhone(req.Query)
	if digits == "" {
		return []PhoneResult{}, nil
	}

	candidates, err := loadCandidates(ctx, o.store, req.Scope, req.IncludeArchived)
	if err != nil {
		return nil, err
	}

	results := make([]PhoneResult, 0)
	haveExact := false
	for i := range candidates {
		c := &candidates[i]
		class := ClassifyPhoneMatch(digits, c.ParticipantPhone)
		if class == MatchNone {
			continue
		}
		if class == MatchExact {
			haveExact = true
		}
		results = append(results, PhoneResult{
			MatchType:          class,
			Number:             NormalizePhone(c.ParticipantPhone),
			ConversationID:     c.ID,
			ConversationExists: true,
			ParticipantName:    c.ParticipantName,
			Score:              o.weights.Score(MatchInfo{Phone: class}),
			LastMessageTime:    c.LastMessageTime,
		})
	}

	sortByRelevance(results)
	results = paginate(results, req.Limit, req.Offset)

	// An explicit type=phone request expresses phone intent regardless of
	// the likeness heuristic; type=all relies on the heuristic.
	phoneIntent := req.Type == TypePhone || LooksLikePhone(req.Query)
	if phoneIntent && !haveExact {
		results = append(results, PhoneResult{
			MatchType:          MatchNew,
			Number:             digits,
			ConversationExists: false,
		})
	}
	return results, nil
}
