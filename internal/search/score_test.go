package search

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestScoreIsAdditive(t *testing.T) {
	w := StrategyWeights

	assert.Equal(t, 0, w.Score(MatchInfo{}))
	assert.Equal(t, w.PhoneExact, w.Score(MatchInfo{Phone: MatchExact}))
	assert.Equal(t, w.Name+w.Notes, w.Score(MatchInfo{Name: true, Notes: true}))
	assert.Equal(t,
		w.PhoneExact+w.Name+w.Notes+2*w.PerMessage,
		w.Score(MatchInfo{Phone: MatchExact, Name: true, Notes: true, MessageMatches: 2}))
}

func TestScoreCapsMessageContribution(t *testing.T) {
	w := StrategyWeights
	assert.Equal(t, w.MessageCap, w.Score(MatchInfo{MessageMatches: 1000}))

	u := UnifiedWeights
	assert.Equal(t, u.MessageCap, u.Score(MatchInfo{MessageMatches: 1000}))
}

func TestScoreOnlyStrongestPhoneClassCounts(t *testing.T) {
	w := StrategyWeights
	// MatchInfo carries a single class; a suffix hit never stacks on exact.
	assert.Equal(t, w.PhoneExact, w.Score(MatchInfo{Phone: MatchExact}))
	assert.NotEqual(t, w.PhoneExact+w.PhoneSuffix, w.Score(MatchInfo{Phone: MatchExact}))
}

func TestScoreIsPure(t *testing.T) {
	w := UnifiedWeights
	m := MatchInfo{Phone: MatchSuffix, Name: true, MessageMatches: 2}
	first := w.Score(m)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, w.Score(m))
	}
}

func TestSortByRelevanceTieBreaksOnRecency(t *testing.T) {
	older := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)
	newer := time.Date(2026, 8, 2, 10, 0, 0, 0, time.UTC)

	entries := []ConversationResult{
		{ConversationID: "low", Score: 10, LastMessageTime: newer},
		{ConversationID: "tie-old", Score: 50, LastMessageTime: older},
		{ConversationID: "tie-new", Score: 50, LastMessageTime: newer},
	}
	sortByRelevance(entries)

	assert.Equal(t, "tie-new", entries[0].ConversationID)
	assert.Equal(t, "tie-old", entries[1].ConversationID)
	assert.Equal(t, "low", entries[2].ConversationID)
}
