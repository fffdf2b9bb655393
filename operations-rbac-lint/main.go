// operations-rbac-lint checks a role registry document before it is uploaded
// to the configuration bucket. It prints every configuration problem and,
// for each --role, the effective permissions that role resolves to.
//
//	operations-rbac-lint --config roles.yaml --role supervisor --role agent
//
// Without --config the registry compiled into the Lambdas is checked. The
// exit status is 1 when any problem is found.
package main

import (
	"errors"
	"fmt"
	"io"
	"operations/lib/access"
	"operations/lib/models"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	var configPath string
	var roles []string
	var verbose bool

	flagSet := pflag.NewFlagSet("operations-rbac-lint", pflag.ContinueOnError)
	flagSet.SetOutput(stderr)
	flagSet.StringVarP(&configPath, "config", "c", "", "role registry YAML file (default: embedded registry)")
	flagSet.StringArrayVarP(&roles, "role", "r", nil, "print the effective permissions of this role (repeatable)")
	flagSet.BoolVarP(&verbose, "verbose", "v", false, "log resolution warnings")
	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return 0
		}
		return 2
	}

	logger := logrus.New()
	logger.SetOutput(stderr)
	logger.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})
	logger.SetLevel(logrus.ErrorLevel)
	if verbose {
		logger.SetLevel(logrus.DebugLevel)
	}

	registry, source, err := loadRegistry(configPath)
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 1
	}

	problems := registry.Validate()
	fmt.Fprintf(stdout, "%s: %d roles, %d problems\n", source, len(registry.Roles()), len(problems))
	for _, problem := range problems {
		fmt.Fprintf(stdout, "  - %v\n", problem)
	}

	resolver := access.NewResolver(registry, logger)
	for _, name := range roles {
		role := models.RoleName(name)
		if !registry.Has(role) {
			fmt.Fprintf(stdout, "\n%s: not defined\n", name)
			problems = append(problems, fmt.Errorf("%w: unknown role %s", models.ErrConfiguration, name))
			continue
		}
		set := resolver.ResolveRoles(role)
		fmt.Fprintf(stdout, "\n%s (%s)\n", name, joinGrants(set.Grants()))
		for _, p := range set.Permissions() {
			fmt.Fprintf(stdout, "  %s\n", p)
		}
	}

	if len(problems) > 0 {
		return 1
	}
	return 0
}

func loadRegistry(path string) (*access.Registry, string, error) {
	if path == "" {
		registry, err := access.DefaultRegistry()
		return registry, "embedded registry", err
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, path, fmt.Errorf("failed to read %s: %w", path, err)
	}
	registry, err := access.ParseRegistry(content)
	return registry, path, err
}

func joinGrants(grants []models.Grant) string {
	out := make([]string, len(grants))
	for i, grant := range grants {
		out[i] = grant.String()
	}
	return strings.Join(out, ", ")
}
