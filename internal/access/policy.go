// Package access decides which conversations a caller may see. The same
// predicate gates interactive search and real-time event delivery; any
// divergence between the two call sites is a correctness bug, so both go
// through Scope.CanSee.
package access

import (
	"errors"

	"inboxsearch/internal/models"
)

// ErrPhoneOutOfScope is returned when a caller explicitly requests a
// business phone their role/areas do not cover.
var ErrPhoneOutOfScope = errors.New("requested business phone is outside caller scope")

// retargetVisibility maps each lifecycle stage to the single role that owns
// retarget conversations at that stage. Before handover the initiating role
// (marketing) owns the thread; at handover ownership moves to sales.
var retargetVisibility = map[models.RetargetStage]models.Role{
	models.StageInitiated:     models.RoleMarketing,
	models.StageAwaitingReply: models.RoleMarketing,
	models.StageEngaged:       models.RoleMarketing,
	models.StageHandedToSales: models.RoleSales,
}

// Policy holds the configured business phones and their area mapping.
type Policy struct {
	phonesByID   map[string]models.BusinessPhone
	phonesByArea map[string][]string
	allPhoneIDs  []string
}

// NewPolicy builds a Policy from the configured business phones.
func NewPolicy(phones []models.BusinessPhone) *Policy {
	p := &Policy{
		phonesByID:   make(map[string]models.BusinessPhone, len(phones)),
		phonesByArea: make(map[string][]string),
	}
	for _, ph := range phones {
		p.phonesByID[ph.ID] = ph
		p.phonesByArea[ph.Area] = append(p.phonesByArea[ph.Area], ph.ID)
		p.allPhoneIDs = append(p.allPhoneIDs, ph.ID)
	}
	return p
}

// Scope is the visibility predicate for one caller (optionally narrowed to
// an explicit business-phone scope).
type Scope struct {
	caller        models.Caller
	allowedPhones map[string]bool // nil means every configured phone
	phoneFilter   map[string]bool // explicit request scope, nil means none
}

// ScopeFor builds the caller's visibility scope. phoneScope, when non-empty,
// narrows the scope to specific business phones; requesting a phone outside
// the caller's allow-list fails with ErrPhoneOutOfScope.
func (p *Policy) ScopeFor(caller models.Caller, phoneScope []string) (*Scope, error) {
	s := &Scope{caller: caller}

	if !caller.Role.FullAccess() {
		s.allowedPhones = make(map[string]bool)
		for _, area := range caller.Areas {
			for _, id := range p.phonesByArea[area] {
				s.allowedPhones[id] = true
			}
		}
	}

	if len(phoneScope) > 0 {
		s.phoneFilter = make(map[string]bool, len(phoneScope))
		for _, id := range phoneScope {
			if s.allowedPhones != nil && !s.allowedPhones[id] {
				return nil, ErrPhoneOutOfScope
			}
			if _, ok := p.phonesByID[id]; !ok {
				return nil, ErrPhoneOutOfScope
			}
			s.phoneFilter[id] = true
		}
	}

	return s, nil
}

// Caller returns the caller this scope was built for.
func (s *Scope) Caller() models.Caller {
	return s.caller
}

// PhoneFilter returns the explicitly requested phone ids, for store-level
// narrowing. Empty when no explicit scope was requested.
func (s *Scope) PhoneFilter() []string {
	if s.phoneFilter == nil {
		return nil
	}
	ids := make([]string, 0, len(s.phoneFilter))
	for id := range s.phoneFilter {
		ids = append(ids, id)
	}
	return ids
}

// CanSee is the single source of truth for conversation visibility.
//
// Internal threads bypass all gating. Retarget threads are owned by exactly
// one role per lifecycle stage, overriding the phone rule; once handed to
// sales with a bound agent, only that agent sees the thread (the phone rule
// stays bypassed for the bound agent). Everything else falls back to the
// role/area phone allow-list.
func (s *Scope) CanSee(c *models.Conversation) bool {
	if c == nil {
		return false
	}
	if c.IsInternal {
		return true
	}

	if c.IsRetarget && c.RetargetStage.Valid() {
		owner := retargetVisibility[c.RetargetStage]
		if s.caller.Role != owner {
			return false
		}
		if c.RetargetStage.HandedOver() {
			if agent := c.Agent(); agent != "" {
				return s.caller.ID == agent
			}
		}
		return true
	}

	if s.phoneFilter != nil && !s.phoneFilter[c.BusinessPhoneID] {
		return false
	}
	if s.allowedPhones == nil {
		return true
	}
	return s.allowedPhones[c.BusinessPhoneID]
}

// FilterVisible returns only the conversations the scope admits, preserving
// order.
func (s *Scope) FilterVisible(convs []models.Conversation) []models.Conversation {
	visible := make([]models.Conversation, 0, len(convs))
	for i := range convs {
		if s.CanSee(&convs[i]) {
			visible = append(visible, convs[i])
		}
	}
	return visible
}
