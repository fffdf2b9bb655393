package access

import (
	"errors"
	"operations/lib/models"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_DefaultRegistry_IsValid(t *testing.T) {
	//Act
	registry, err := DefaultRegistry()

	//Assert
	require.NoError(t, err)
	assert.Empty(t, registry.Validate())
	for _, name := range []models.RoleName{
		models.RoleSuperAdmin, models.RoleAdmin, models.RoleSupervisor, models.RoleManager,
		models.RoleFinanceManager, models.RoleHRManager, models.RolePartnerAdmin, models.RoleAgent, models.RoleViewer,
	} {
		assert.True(t, registry.Has(name), "missing role %s", name)
	}
}

func Test_ParseRegistry_Wildcards(t *testing.T) {
	//Arrange
	data := []byte(`
roles:
  root:
    level: 100
    permissions: ["*"]
  pricer:
    level: 10
    permissions: ["pricing:*", view_agents]
`)

	//Act
	registry, err := ParseRegistry(data)
	require.NoError(t, err)
	root, _ := registry.Role("root")
	pricer, _ := registry.Role("pricer")

	//Assert
	assert.Equal(t, []models.Grant{models.AllResources()}, root.Grants)
	assert.Equal(t, []models.Grant{models.AllActions("pricing"), models.Exact(models.ViewAgents)}, pricer.Grants)
	assert.Equal(t, 10, pricer.Level)
}

func Test_ParseRegistry_Malformed(t *testing.T) {
	_, err := ParseRegistry([]byte("roles: [unterminated"))
	assert.Error(t, err)

	_, err = ParseRegistry([]byte("roles: {}"))
	assert.True(t, errors.Is(err, models.ErrConfiguration))
}

func Test_Registry_Roles_SortedByLevel(t *testing.T) {
	//Arrange
	registry := NewRegistry([]models.Role{
		{Name: "b", Level: 10, Grants: []models.Grant{models.Exact(models.ViewAgents)}},
		{Name: "a", Level: 10, Grants: []models.Grant{models.Exact(models.ViewAgents)}},
		{Name: "top", Level: 99, Grants: []models.Grant{models.AllResources()}},
	})

	//Act
	roles := registry.Roles()

	//Assert
	require.Len(t, roles, 3)
	assert.Equal(t, models.RoleName("top"), roles[0].Name)
	assert.Equal(t, models.RoleName("a"), roles[1].Name)
	assert.Equal(t, models.RoleName("b"), roles[2].Name)
}

func Test_Registry_Role_ReturnsCopy(t *testing.T) {
	//Arrange
	registry := NewRegistry([]models.Role{
		{Name: "manager", Grants: []models.Grant{models.Exact(models.ViewAgents)}},
	})

	//Act
	role, _ := registry.Role("manager")
	role.Grants[0] = models.AllResources()
	again, _ := registry.Role("manager")

	//Assert
	assert.Equal(t, models.Exact(models.ViewAgents), again.Grants[0])
}

func Test_Registry_Validate_ReportsProblems(t *testing.T) {
	//Arrange
	registry := NewRegistry([]models.Role{
		{Name: "a", Inherits: []models.RoleName{"b"}, Grants: []models.Grant{models.Exact(models.ViewAgents)}},
		{Name: "b", Inherits: []models.RoleName{"a", "ghost"}, Grants: []models.Grant{models.Exact("fly_rockets")}},
		{Name: "empty"},
		{Name: "weird", Grants: []models.Grant{models.AllActions("spaceships")}},
	})

	//Act
	problems := registry.Validate()

	//Assert
	var messages []string
	for _, problem := range problems {
		assert.True(t, errors.Is(problem, models.ErrConfiguration))
		messages = append(messages, problem.Error())
	}
	joined := strings.Join(messages, "\n")
	assert.Contains(t, joined, `role "empty" grants no permissions`)
	assert.Contains(t, joined, `unknown permission "fly_rockets"`)
	assert.Contains(t, joined, `inherits unknown role "ghost"`)
	assert.Contains(t, joined, `unknown resource "spaceships"`)
	assert.Contains(t, joined, "cycle a -> b -> a")
	assert.Len(t, problems, 5)
}

func Test_Registry_Validate_InheritanceOnlyRole(t *testing.T) {
	//Arrange
	registry := NewRegistry([]models.Role{
		{Name: "manager", Grants: []models.Grant{models.Exact(models.ViewAgents)}},
		{Name: "regional", Inherits: []models.RoleName{"manager"}},
		{Name: "hollow", Inherits: []models.RoleName{"shell"}},
		{Name: "shell"},
	})

	//Act
	problems := registry.Validate()
	effective := NewResolver(registry, quietLogger()).ResolveRoles("regional")

	//Assert
	var messages []string
	for _, problem := range problems {
		messages = append(messages, problem.Error())
	}
	joined := strings.Join(messages, "\n")
	assert.True(t, effective.Has(models.ViewAgents))
	assert.NotContains(t, joined, `"regional"`)
	assert.Contains(t, joined, `role "hollow" grants no permissions`)
	assert.Contains(t, joined, `role "shell" grants no permissions`)
	assert.Len(t, problems, 2)
}
