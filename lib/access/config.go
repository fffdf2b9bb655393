package access

import (
	_ "embed"
	"fmt"
	"operations/lib/models"

	"gopkg.in/yaml.v3"
)

//go:embed roles.yaml
var defaultRegistryYAML []byte

type registryFile struct {
	Roles map[string]roleEntry `yaml:"roles"`
}

type roleEntry struct {
	Level       int      `yaml:"level"`
	Inherits    []string `yaml:"inherits"`
	Permissions []string `yaml:"permissions"`
}

// ParseRegistry reads a YAML role table. Only malformed documents are
// rejected; semantic problems are left for Registry.Validate.
func ParseRegistry(data []byte) (*Registry, error) {
	var file registryFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse role registry: %w", err)
	}
	if len(file.Roles) == 0 {
		return nil, fmt.Errorf("%w: role registry defines no roles", models.ErrConfiguration)
	}

	roles := make([]models.Role, 0, len(file.Roles))
	for name, entry := range file.Roles {
		role := models.Role{
			Name:  models.RoleName(name),
			Level: entry.Level,
		}
		for _, raw := range entry.Permissions {
			role.Grants = append(role.Grants, models.ParseGrant(raw))
		}
		for _, parent := range entry.Inherits {
			role.Inherits = append(role.Inherits, models.RoleName(parent))
		}
		roles = append(roles, role)
	}

	return NewRegistry(roles), nil
}

// DefaultRegistry returns the role table compiled into the binary.
func DefaultRegistry() (*Registry, error) {
	return ParseRegistry(defaultRegistryYAML)
}
