package events

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"inboxsearch/internal/access"
	"inboxsearch/internal/models"
)

// Event delivery must apply the exact same visibility predicate as search.
// These tests drive VisibleRecipients with the scenarios the search-side
// policy tests cover and expect identical outcomes.
func TestVisibleRecipientsMatchesSearchVisibility(t *testing.T) {
	policy := access.NewPolicy([]models.BusinessPhone{
		{ID: "phone-north", Area: "north"},
		{ID: "phone-south", Area: "south"},
	})
	p := NewPublisher("", "q", "test", policy)
	require.False(t, p.Enabled())

	admin := models.Caller{ID: "a1", Role: models.RoleAdmin}
	opsNorth := models.Caller{ID: "o1", Role: models.RoleOperations, Areas: []string{"north"}}
	opsSouth := models.Caller{ID: "o2", Role: models.RoleOperations, Areas: []string{"south"}}
	candidates := []models.Caller{admin, opsNorth, opsSouth}

	conv := &models.Conversation{ID: "c1", BusinessPhoneID: "phone-north"}
	visible := p.VisibleRecipients(conv, candidates)
	require.Len(t, visible, 2)
	assert.Equal(t, "a1", visible[0].ID)
	assert.Equal(t, "o1", visible[1].ID)

	// Cross-check against the search-side predicate for every candidate.
	for _, caller := range candidates {
		scope, err := policy.ScopeFor(caller, nil)
		require.NoError(t, err)
		inEventList := false
		for _, v := range visible {
			if v.ID == caller.ID {
				inEventList = true
			}
		}
		assert.Equal(t, scope.CanSee(conv), inEventList,
			"event delivery diverged from search visibility for %s", caller.ID)
	}
}

func TestRetargetEventsOnlyReachLifecycleOwner(t *testing.T) {
	policy := access.NewPolicy([]models.BusinessPhone{{ID: "phone-north", Area: "north"}})
	p := NewPublisher("", "q", "test", policy)

	marketing := models.Caller{ID: "m1", Role: models.RoleMarketing}
	sales := models.Caller{ID: "s1", Role: models.RoleSales, Areas: []string{"north"}}
	candidates := []models.Caller{marketing, sales}

	conv := &models.Conversation{
		ID:              "c1",
		BusinessPhoneID: "phone-north",
		IsRetarget:      true,
		RetargetStage:   models.StageEngaged,
	}
	visible := p.VisibleRecipients(conv, candidates)
	require.Len(t, visible, 1)
	assert.Equal(t, "m1", visible[0].ID, "pre-handover retarget updates go to marketing only")

	conv.RetargetStage = models.StageHandedToSales
	visible = p.VisibleRecipients(conv, candidates)
	require.Len(t, visible, 1)
	assert.Equal(t, "s1", visible[0].ID, "post-handover retarget updates go to sales only")
}

func TestDisabledPublisherStillFiltersButPublishesNothing(t *testing.T) {
	policy := access.NewPolicy([]models.BusinessPhone{{ID: "phone-north", Area: "north"}})
	p := NewPublisher("", "q", "test", policy)

	conv := &models.Conversation{ID: "c1", BusinessPhoneID: "phone-north"}
	err := p.ConversationUpdated(context.Background(), conv, []models.Caller{{ID: "a1", Role: models.RoleAdmin}})
	assert.NoError(t, err, "publishing with no broker configured is a no-op")
}
