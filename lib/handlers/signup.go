package handlers

import (
	"context"
	"operations/lib/access"
	"operations/lib/data"
	"operations/lib/models"

	"github.com/aws/aws-lambda-go/events"
	"github.com/sirupsen/logrus"
)

const confirmSignUpTrigger = "PostConfirmation_ConfirmSignUp"

// SignupHandler handles the Cognito Post-Confirmation trigger. Self-registered
// users start without any group, so they are given the default role. Users an
// admin invited already carry groups and are left alone.
type SignupHandler struct {
	Registry    *access.Registry
	Identity    data.IdentityRepository
	DefaultRole models.RoleName
	Logger      *logrus.Logger
}

// Handle processes one trigger event. Errors are logged and never returned,
// so a failed role assignment does not block the confirmation.
func (h *SignupHandler) Handle(ctx context.Context, event events.CognitoEventUserPoolsPostConfirmation) (events.CognitoEventUserPoolsPostConfirmation, error) {
	logger := h.Logger.WithFields(logrus.Fields{
		"operation":      "Handler",
		"trigger_source": event.TriggerSource,
		"username":       event.UserName,
	})

	if event.TriggerSource != confirmSignUpTrigger {
		logger.Debug("Not a sign-up confirmation, nothing to do")
		return event, nil
	}
	if !h.Registry.Has(h.DefaultRole) {
		logger.WithField("role", h.DefaultRole).Error("Default sign-up role is not registered, skipping role assignment")
		return event, nil
	}

	groups, err := h.Identity.ListGroups(ctx, event.UserName)
	if err != nil {
		logger.WithError(err).Error("Failed to list user groups, skipping role assignment")
		return event, nil
	}
	if len(groups) > 0 {
		logger.WithField("groups", groups).Info("Invited user already holds roles")
		return event, nil
	}

	if err := h.Identity.AddToGroup(ctx, event.UserName, string(h.DefaultRole)); err != nil {
		logger.WithError(err).Error("Failed to assign default role")
		return event, nil
	}

	logger.WithField("role", h.DefaultRole).Info("Assigned default role to new user")
	return event, nil
}
