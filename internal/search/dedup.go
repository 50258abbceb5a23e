package search

import (
	"github.com/rs/zerolog/log"
)

// Deduplicator is the final safety net guaranteeing one row per conversation
// regardless of which strategy produced each entry. The strategies already
// avoid duplicates by construction, so any duplicate reaching this layer is
// an internal invariant violation; in debug mode it is logged loudly rather
// than silently repaired.
type Deduplicator struct {
	Debug bool
}

func (d Deduplicator) report(where, id string) {
	if d.Debug {
		log.Error().
			Str("where", where).
			Str("conversationId", id).
			Msg("Duplicate conversation id slipped past a search strategy")
	}
}

// Conversations collapses conversation entries sharing an id, keeping the
// first (highest-ranked) entry and merging the stronger score.
func (d Deduplicator) Conversations(entries []ConversationResult) []ConversationResult {
	seen := make(map[string]int, len(entries))
	out := entries[:0]
	for _, e := range entries {
		if i, dup := seen[e.ConversationID]; dup {
			d.report("conversations", e.ConversationID)
			if e.Score > out[i].Score {
				out[i].Score = e.Score
			}
			continue
		}
		seen[e.ConversationID] = len(out)
		out = append(out, e)
	}
	return out
}

// Phones collapses phone entries sharing a conversation id. Synthesized
// "new" suggestions carry no conversation id and are never collapsed.
func (d Deduplicator) Phones(entries []PhoneResult) []PhoneResult {
	seen := make(map[string]int, len(entries))
	out := entries[:0]
	for _, e := range entries {
		if e.ConversationID == "" {
			out = append(out, e)
			continue
		}
		if i, dup := seen[e.ConversationID]; dup {
			d.report("phoneNumbers", e.ConversationID)
			if e.Score > out[i].Score {
				out[i] = e
			}
			continue
		}
		seen[e.ConversationID] = len(out)
		out = append(out, e)
	}
	return out
}

// Messages collapses message groups sharing a conversation id, merging
// snippet lists up to the per-conversation cap and summing match counts.
func (d Deduplicator) Messages(entries []MessageGroup) []MessageGroup {
	seen := make(map[string]int, len(entries))
	out := entries[:0]
	for _, e := range entries {
		if i, dup := seen[e.ConversationID]; dup {
			d.report("messages", e.ConversationID)
			merged := &out[i]
			merged.TotalMatches += e.TotalMatches
			for _, s := range e.Snippets {
				if len(merged.Snippets) >= maxSnippetsPerConversation {
					break
				}
				merged.Snippets = append(merged.Snippets, s)
			}
			continue
		}
		seen[e.ConversationID] = len(out)
		out = append(out, e)
	}
	return out
}

// Unified collapses unified rows sharing a conversation id, OR-merging match
// flags and keeping the stronger score. The unified pipeline dedupes
// structurally, so this normally passes entries through unchanged.
func (d Deduplicator) Unified(entries []UnifiedConversation) []UnifiedConversation {
	seen := make(map[string]int, len(entries))
	out := entries[:0]
	for _, e := range entries {
		if i, dup := seen[e.ConversationID]; dup {
			d.report("unifiedConversations", e.ConversationID)
			merged := &out[i]
			merged.Matches.PhoneExact = merged.Matches.PhoneExact || e.Matches.PhoneExact
			merged.Matches.PhoneSuffix = merged.Matches.PhoneSuffix || e.Matches.PhoneSuffix
			merged.Matches.PhoneContains = merged.Matches.PhoneContains || e.Matches.PhoneContains
			merged.Matches.Name = merged.Matches.Name || e.Matches.Name
			merged.Matches.Notes = merged.Matches.Notes || e.Matches.Notes
			merged.TotalMessageHits += e.TotalMessageHits
			if e.Score > merged.Score {
				merged.Score = e.Score
			}
			continue
		}
		seen[e.ConversationID] = len(out)
		out = append(out, e)
	}
	return out
}
