// Package handlers exposes the HTTP search API.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"

	"inboxsearch/internal/access"
	"inboxsearch/internal/cache"
	"inboxsearch/internal/search"
	"inboxsearch/internal/store"
)

const (
	defaultLimit = 20
	maxLimit     = 50
)

// SearchHandler serves the search endpoints.
type SearchHandler struct {
	store        store.Store
	policy       *access.Policy
	orchestrator *search.Orchestrator
	unified      *search.UnifiedEngine
	results      *cache.ResultCache
}

// NewSearchHandler wires the search endpoints.
func NewSearchHandler(st store.Store, policy *access.Policy, orch *search.Orchestrator, unified *search.UnifiedEngine, results *cache.ResultCache) *SearchHandler {
	return &SearchHandler{
		store:        st,
		policy:       policy,
		orchestrator: orch,
		unified:      unified,
		results:      results,
	}
}

// Search handles GET /api/search.
func (h *SearchHandler) Search() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		caller, ok := CallerFrom(r.Context())
		if !ok {
			respondError(w, http.StatusUnauthorized, "missing or invalid credentials")
			return
		}

		q := r.URL.Query()
		query := q.Get("query")
		if query == "" {
			respondError(w, http.StatusBadRequest, "query parameter is required")
			return
		}
		searchType := q.Get("type")
		if searchType == "" {
			searchType = search.TypeAll
		}
		if !search.ValidType(searchType) {
			respondError(w, http.StatusBadRequest, "invalid search type: "+searchType)
			return
		}
		limit := clampInt(q.Get("limit"), defaultLimit, 1, maxLimit)
		offset := clampInt(q.Get("offset"), 0, 0, 1<<30)
		includeArchived := q.Get("includeArchived") == "true"
		conversationID := q.Get("conversationId")

		typeKey := searchType
		if conversationID != "" {
			typeKey += "|" + conversationID
		}
		key := cache.Key(caller.ID, query, typeKey, limit, offset, includeArchived)
		if cached, found := h.results.Get(key); found {
			resp := cached.(search.Response)
			resp.Cached = true
			resp.SearchTime = time.Since(start).Milliseconds()
			respondJSON(w, http.StatusOK, resp)
			return
		}

		scope, err := h.policy.ScopeFor(caller, nil)
		if err != nil {
			respondError(w, http.StatusForbidden, "caller lacks access to the requested scope")
			return
		}

		resp, err := h.orchestrator.Search(r.Context(), search.Request{
			Query:           query,
			Type:            searchType,
			Limit:           limit,
			Offset:          offset,
			ConversationID:  conversationID,
			IncludeArchived: includeArchived,
			Scope:           scope,
		})
		if err != nil {
			h.respondSearchError(w, err)
			return
		}

		h.results.Set(key, *resp)
		respondJSON(w, http.StatusOK, resp)
	}
}

// UnifiedSearch handles GET /api/search/unified.
func (h *SearchHandler) UnifiedSearch() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		caller, ok := CallerFrom(r.Context())
		if !ok {
			respondError(w, http.StatusUnauthorized, "missing or invalid credentials")
			return
		}

		q := r.URL.Query()
		query := q.Get("query")
		if query == "" {
			respondError(w, http.StatusBadRequest, "query parameter is required")
			return
		}
		limit := clampInt(q.Get("limit"), defaultLimit, 1, maxLimit)
		offset := clampInt(q.Get("offset"), 0, 0, 1<<30)
		includeArchived := q.Get("includeArchived") == "true"

		var phoneScope []string
		if phoneID := q.Get("phoneId"); phoneID != "" {
			phoneScope = []string{phoneID}
		}

		key := cache.Key(caller.ID, query, "unified|"+q.Get("phoneId"), limit, offset, includeArchived)
		if cached, found := h.results.Get(key); found {
			resp := cached.(search.UnifiedResponse)
			resp.Cached = true
			resp.SearchTime = time.Since(start).Milliseconds()
			respondJSON(w, http.StatusOK, resp)
			return
		}

		scope, err := h.policy.ScopeFor(caller, phoneScope)
		if err != nil {
			if errors.Is(err, access.ErrPhoneOutOfScope) {
				respondError(w, http.StatusForbidden, "caller lacks access to the requested scope")
				return
			}
			log.Error().Err(err).Msg("Failed to build caller scope")
			respondError(w, http.StatusInternalServerError, "internal server error")
			return
		}

		resp, err := h.unified.Search(r.Context(), search.UnifiedParams{
			Query:           query,
			Scope:           scope,
			Limit:           limit,
			Offset:          offset,
			IncludeArchived: includeArchived,
		})
		if err != nil {
			h.respondSearchError(w, err)
			return
		}

		h.results.Set(key, *resp)
		respondJSON(w, http.StatusOK, resp)
	}
}

// Health handles GET /health.
func (h *SearchHandler) Health() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		status := map[string]interface{}{"status": "ok"}
		code := http.StatusOK
		if err := h.store.Ping(ctx); err != nil {
			log.Error().Err(err).Msg("Health check store ping failed")
			status["status"] = "degraded"
			status["error"] = "store unreachable"
			code = http.StatusServiceUnavailable
		}
		respondJSON(w, code, status)
	}
}

// respondSearchError maps search failures onto the error taxonomy. Timeouts
// get a distinct message; everything else is logged server-side and returned
// as a generic failure without internal detail.
func (h *SearchHandler) respondSearchError(w http.ResponseWriter, err error) {
	if errors.Is(err, search.ErrTimeout) {
		log.Warn().Err(err).Msg("Search exceeded deadline")
		respondError(w, http.StatusInternalServerError, "search timed out")
		return
	}
	log.Error().Err(err).Msg("Search failed")
	respondError(w, http.StatusInternalServerError, "internal server error")
}

func respondJSON(w http.ResponseWriter, statusCode int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

func respondError(w http.ResponseWriter, statusCode int, message string) {
	respondJSON(w, statusCode, map[string]interface{}{
		"success": false,
		"error":   message,
	})
}

func clampInt(raw string, def, min, max int) int {
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	if n < min {
		return min
	}
	if n > max {
		return max
	}
	return n
}
