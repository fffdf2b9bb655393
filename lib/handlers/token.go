package handlers

import (
	"context"
	"operations/lib/access"
	"operations/lib/data"
	"operations/lib/models"
	"strings"

	"github.com/aws/aws-lambda-go/events"
	"github.com/sirupsen/logrus"
)

var validTriggerSourcesV2 = map[string]bool{
	"TokenGeneration_HostedAuth":           true,
	"TokenGeneration_Authentication":       true,
	"TokenGeneration_NewPasswordChallenge": true,
	"TokenGeneration_AuthenticateDevice":   true,
	"TokenGeneration_RefreshTokens":        true,
}

// TokenCustomizer handles the Cognito Pre Token Generation V2.0 trigger. It
// adds the caller's roles and effective permissions to both tokens. Failures
// are logged and the event is returned unchanged so sign-in never breaks.
type TokenCustomizer struct {
	Resolver *access.Resolver
	Identity data.IdentityRepository
	Logger   *logrus.Logger
}

// Handle processes one trigger event
func (h *TokenCustomizer) Handle(ctx context.Context, event events.CognitoEventUserPoolsPreTokenGenV2_0) (events.CognitoEventUserPoolsPreTokenGenV2_0, error) {
	logger := h.Logger.WithFields(logrus.Fields{
		"operation":      "Handler",
		"trigger_source": event.TriggerSource,
		"username":       event.UserName,
	})

	if !validTriggerSourcesV2[event.TriggerSource] {
		logger.Warn("Invalid trigger source for V2.0, returning event unchanged")
		return event, nil
	}
	if event.UserName == "" {
		logger.Error("Username is empty in event, returning event unchanged")
		return event, nil
	}

	// Groups normally arrive with the event; ask the directory when they don't
	groups := event.Request.GroupConfiguration.GroupsToOverride
	if len(groups) == 0 && h.Identity != nil {
		var err error
		groups, err = h.Identity.ListGroups(ctx, event.UserName)
		if err != nil {
			logger.WithError(err).Error("Failed to list user groups, proceeding without custom claims")
			return event, nil
		}
	}

	var roles []models.RoleName
	var roleNames []string
	registry := h.Resolver.Registry()
	for _, group := range groups {
		role := models.RoleName(group)
		if !registry.Has(role) {
			logger.WithField("group", group).Debug("Ignoring group that is not a registered role")
			continue
		}
		roles = append(roles, role)
		roleNames = append(roleNames, group)
	}

	permissions := h.Resolver.ResolveRoles(roles...).Permissions()
	tokens := make([]string, len(permissions))
	for i, p := range permissions {
		tokens[i] = string(p)
	}

	claimsToAdd := map[string]interface{}{
		"roles":       strings.Join(roleNames, ","),
		"permissions": strings.Join(tokens, ","),
	}
	if fullName := fullNameFromAttributes(event.Request.UserAttributes); fullName != "" {
		claimsToAdd["full_name"] = fullName
	}
	if projectID := event.Request.UserAttributes["custom:project_id"]; projectID != "" {
		claimsToAdd["current_project_id"] = projectID
	}

	if roleNames == nil {
		roleNames = []string{}
	}
	event.Response.ClaimsAndScopeOverrideDetails = events.ClaimsAndScopeOverrideDetailsV2_0{
		IDTokenGeneration: events.IDTokenGenerationV2_0{
			ClaimsToAddOrOverride: claimsToAdd,
			ClaimsToSuppress:      []string{},
		},
		AccessTokenGeneration: events.AccessTokenGenerationV2_0{
			ClaimsToAddOrOverride: claimsToAdd,
			ClaimsToSuppress:      []string{},
			ScopesToAdd:           []string{},
			ScopesToSuppress:      []string{},
		},
		GroupOverrideDetails: events.GroupConfigurationV2_0{
			GroupsToOverride:   roleNames,
			IAMRolesToOverride: []string{},
		},
	}

	logger.WithFields(logrus.Fields{
		"roles":       len(roleNames),
		"permissions": len(tokens),
	}).Debug("Successfully added custom claims to token")

	return event, nil
}

func fullNameFromAttributes(attributes map[string]string) string {
	if name := strings.TrimSpace(attributes["name"]); name != "" {
		return name
	}
	return strings.TrimSpace(attributes["given_name"] + " " + attributes["family_name"])
}
