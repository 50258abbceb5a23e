package access

import (
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"inboxsearch/internal/models"
)

func testPolicy() *Policy {
	return NewPolicy([]models.BusinessPhone{
		{ID: "phone-north", Label: "North inbox", Area: "north"},
		{ID: "phone-south", Label: "South inbox", Area: "south"},
		{ID: "phone-east", Label: "East inbox", Area: "east"},
	})
}

func conv(phoneID string) models.Conversation {
	return models.Conversation{
		ID:               "c1",
		ParticipantPhone: "919876543210",
		BusinessPhoneID:  phoneID,
	}
}

func TestFullAccessRolesSeeEveryPhone(t *testing.T) {
	p := testPolicy()
	for _, role := range []models.Role{models.RoleAdmin, models.RoleManager} {
		scope, err := p.ScopeFor(models.Caller{ID: "u1", Role: role}, nil)
		require.NoError(t, err)
		for _, phone := range []string{"phone-north", "phone-south", "phone-east"} {
			c := conv(phone)
			assert.True(t, scope.CanSee(&c), "role %s should see %s", role, phone)
		}
	}
}

func TestAreaScopedRoleSeesOnlyMappedPhones(t *testing.T) {
	p := testPolicy()
	scope, err := p.ScopeFor(models.Caller{ID: "u2", Role: models.RoleOperations, Areas: []string{"north"}}, nil)
	require.NoError(t, err)

	north := conv("phone-north")
	south := conv("phone-south")
	assert.True(t, scope.CanSee(&north))
	assert.False(t, scope.CanSee(&south))
}

func TestCallerWithNoAreasSeesNothing(t *testing.T) {
	p := testPolicy()
	scope, err := p.ScopeFor(models.Caller{ID: "u3", Role: models.RoleSales}, nil)
	require.NoError(t, err)

	c := conv("phone-north")
	assert.False(t, scope.CanSee(&c))
}

func TestInternalConversationsBypassAllGating(t *testing.T) {
	p := testPolicy()
	scope, err := p.ScopeFor(models.Caller{ID: "u4", Role: models.RoleSales}, nil)
	require.NoError(t, err)

	c := conv("phone-north")
	c.IsInternal = true
	assert.True(t, scope.CanSee(&c))
}

func TestRetargetLifecycleVisibility(t *testing.T) {
	p := testPolicy()

	tests := []struct {
		name    string
		stage   models.RetargetStage
		caller  models.Caller
		agent   string
		visible bool
	}{
		{"marketing sees initiated", models.StageInitiated, models.Caller{ID: "m1", Role: models.RoleMarketing}, "", true},
		{"marketing sees awaiting_reply", models.StageAwaitingReply, models.Caller{ID: "m1", Role: models.RoleMarketing}, "", true},
		{"marketing sees engaged", models.StageEngaged, models.Caller{ID: "m1", Role: models.RoleMarketing}, "", true},
		{"marketing loses handed_to_sales", models.StageHandedToSales, models.Caller{ID: "m1", Role: models.RoleMarketing}, "", false},
		{"sales blocked before handover", models.StageEngaged, models.Caller{ID: "s1", Role: models.RoleSales, Areas: []string{"north"}}, "", false},
		{"sales sees handed_to_sales unbound", models.StageHandedToSales, models.Caller{ID: "s1", Role: models.RoleSales}, "", true},
		{"bound agent sees handed_to_sales", models.StageHandedToSales, models.Caller{ID: "s1", Role: models.RoleSales}, "s1", true},
		{"other sales agent blocked when bound", models.StageHandedToSales, models.Caller{ID: "s2", Role: models.RoleSales}, "s1", false},
		{"admin blocked mid-campaign", models.StageEngaged, models.Caller{ID: "a1", Role: models.RoleAdmin}, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			scope, err := p.ScopeFor(tt.caller, nil)
			require.NoError(t, err)

			c := conv("phone-north")
			c.IsRetarget = true
			c.RetargetStage = tt.stage
			if tt.agent != "" {
				c.AssignedAgent = sql.NullString{String: tt.agent, Valid: true}
			}
			assert.Equal(t, tt.visible, scope.CanSee(&c))
		})
	}
}

func TestRetargetOverridesPhoneScope(t *testing.T) {
	p := testPolicy()
	// Sales caller with no area covering phone-north still sees a
	// handed-over retarget bound to them on that phone.
	scope, err := p.ScopeFor(models.Caller{ID: "s1", Role: models.RoleSales, Areas: []string{"south"}}, nil)
	require.NoError(t, err)

	c := conv("phone-north")
	c.IsRetarget = true
	c.RetargetStage = models.StageHandedToSales
	c.AssignedAgent = sql.NullString{String: "s1", Valid: true}
	assert.True(t, scope.CanSee(&c))
}

func TestExplicitPhoneScope(t *testing.T) {
	p := testPolicy()

	scope, err := p.ScopeFor(models.Caller{ID: "u5", Role: models.RoleOperations, Areas: []string{"north", "south"}}, []string{"phone-north"})
	require.NoError(t, err)

	north := conv("phone-north")
	south := conv("phone-south")
	assert.True(t, scope.CanSee(&north))
	assert.False(t, scope.CanSee(&south), "explicit scope narrows below the allow-list")

	_, err = p.ScopeFor(models.Caller{ID: "u5", Role: models.RoleOperations, Areas: []string{"north"}}, []string{"phone-south"})
	assert.ErrorIs(t, err, ErrPhoneOutOfScope)

	_, err = p.ScopeFor(models.Caller{ID: "a1", Role: models.RoleAdmin}, []string{"phone-unknown"})
	assert.ErrorIs(t, err, ErrPhoneOutOfScope)
}

func TestFilterVisiblePreservesOrder(t *testing.T) {
	p := testPolicy()
	scope, err := p.ScopeFor(models.Caller{ID: "u6", Role: models.RoleOperations, Areas: []string{"north"}}, nil)
	require.NoError(t, err)

	convs := []models.Conversation{
		{ID: "a", BusinessPhoneID: "phone-north"},
		{ID: "b", BusinessPhoneID: "phone-south"},
		{ID: "c", BusinessPhoneID: "phone-north"},
	}
	visible := scope.FilterVisible(convs)
	require.Len(t, visible, 2)
	assert.Equal(t, "a", visible[0].ID)
	assert.Equal(t, "c", visible[1].ID)
}
