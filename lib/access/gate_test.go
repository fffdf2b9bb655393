package access

import (
	"errors"
	"operations/lib/models"
	"testing"

	"github.com/stretchr/testify/assert"
)

func testGate() *Gate {
	registry := NewRegistry([]models.Role{
		{Name: "pricer", Grants: []models.Grant{models.Exact(models.ManagePricing)}},
		{Name: "reader", Grants: []models.Grant{models.Exact(models.ViewAgents)}},
		{Name: "both", Inherits: []models.RoleName{"pricer", "reader"}, Grants: []models.Grant{models.Exact(models.ViewDashboard)}},
	})
	return NewGate(NewResolver(registry, quietLogger()))
}

func Test_Gate_CanAccess_IsConjunctive(t *testing.T) {
	gate := testGate()
	required := []models.Permission{models.ManagePricing, models.ViewAgents}

	cases := []struct {
		name  string
		roles []models.RoleName
	}{
		{"neither", nil},
		{"only first", []models.RoleName{"pricer"}},
		{"only second", []models.RoleName{"reader"}},
		{"both via two roles", []models.RoleName{"pricer", "reader"}},
		{"both via inheritance", []models.RoleName{"both"}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			actor := models.Actor{ID: "u", Roles: tc.roles}
			expected := gate.HasPermission(actor, models.ManagePricing) && gate.HasPermission(actor, models.ViewAgents)

			assert.Equal(t, expected, gate.CanAccess(actor, required))
		})
	}
}

func Test_Gate_HasAny(t *testing.T) {
	gate := testGate()
	reader := models.Actor{ID: "u", Roles: []models.RoleName{"reader"}}

	assert.True(t, gate.HasAny(reader, []models.Permission{models.ManagePricing, models.ViewAgents}))
	assert.False(t, gate.HasAny(reader, []models.Permission{models.ManagePricing}))
	assert.False(t, gate.HasAny(reader, nil))
	assert.True(t, gate.CanAccess(reader, nil))
}

func Test_Gate_Authorize(t *testing.T) {
	//Arrange
	gate := testGate()
	reader := models.Actor{ID: "u7", Roles: []models.RoleName{"reader"}}

	//Act
	denied := gate.Authorize(reader, []models.Permission{models.ViewAgents, models.ManagePricing})
	allowed := gate.Authorize(reader, []models.Permission{models.ViewAgents})

	//Assert
	assert.True(t, errors.Is(denied, models.ErrAccessDenied))
	assert.Contains(t, denied.Error(), "manage_pricing")
	assert.NotContains(t, denied.Error(), "view_agents")
	assert.NoError(t, allowed)
	assert.Equal(t, []models.Permission{models.ManagePricing}, gate.Missing(reader, []models.Permission{models.ManagePricing, models.ViewAgents}))
}
