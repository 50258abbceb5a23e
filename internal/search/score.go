package search

import (
	"sort"
	"time"
)

// Weights is the relevance weight table. Two historical scales exist: the
// per-strategy endpoints rank on StrategyWeights while the unified pipeline
// ranks on UnifiedWeights. Neither is authoritative, so both stay
// configurable instead of being collapsed into one.
type Weights struct {
	PhoneExact    int
	PhoneSuffix   int
	PhoneContains int
	Name          int
	Notes         int
	PerMessage    int
	MessageCap    int
}

// StrategyWeights is the scale used by the per-strategy search endpoints.
var StrategyWeights = Weights{
	PhoneExact:    100,
	PhoneSuffix:   80,
	PhoneContains: 60,
	Name:          50,
	Notes:         30,
	PerMessage:    10,
	MessageCap:    30,
}

// UnifiedWeights is the scale used by the unified aggregation pipeline.
var UnifiedWeights = Weights{
	PhoneExact:    100,
	PhoneSuffix:   50,
	PhoneContains: 30,
	Name:          40,
	Notes:         20,
	PerMessage:    5,
	MessageCap:    15,
}

// MatchInfo is the per-conversation match evidence the scorer consumes.
// Phone is the strongest phone class only; weaker classes never stack.
type MatchInfo struct {
	Phone          PhoneMatchClass
	Name           bool
	Notes          bool
	MessageMatches int
}

// Score computes the deterministic additive relevance score. Pure: same
// inputs, same output, no side effects.
func (w Weights) Score(m MatchInfo) int {
	score := 0
	switch m.Phone {
	case MatchExact:
		score += w.PhoneExact
	case MatchSuffix:
		score += w.PhoneSuffix
	case MatchContains:
		score += w.PhoneContains
	}
	if m.Name {
		score += w.Name
	}
	if m.Notes {
		score += w.Notes
	}
	if m.MessageMatches > 0 {
		msgScore := m.MessageMatches * w.PerMessage
		if msgScore > w.MessageCap {
			msgScore = w.MessageCap
		}
		score += msgScore
	}
	return score
}

// scored is anything orderable by (score desc, lastMessageTime desc).
type scored interface {
	score() int
	recency() time.Time
}

func (r PhoneResult) score() int                 { return r.Score }
func (r PhoneResult) recency() time.Time         { return r.LastMessageTime }
func (r ConversationResult) score() int          { return r.Score }
func (r ConversationResult) recency() time.Time  { return r.LastMessageTime }
func (r UnifiedConversation) score() int         { return r.Score }
func (r UnifiedConversation) recency() time.Time { return r.LastMessageTime }

// sortByRelevance orders entries by score descending, breaking ties on
// recency descending. The sort is stable so equal entries keep store order.
func sortByRelevance[T scored](entries []T) {
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].score() != entries[j].score() {
			return entries[i].score() > entries[j].score()
		}
		return entries[i].recency().After(entries[j].recency())
	})
}
