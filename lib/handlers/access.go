package handlers

import (
	"context"
	"net/http"
	"operations/lib/access"
	"operations/lib/api"
	"operations/lib/auth"
	"operations/lib/data"
	"operations/lib/models"
	"strings"

	"github.com/aws/aws-lambda-go/events"
	"github.com/sirupsen/logrus"
)

// AccessHandler serves the read-only permission and role routes
type AccessHandler struct {
	Resolver *access.Resolver
	Identity data.IdentityRepository
	Logger   *logrus.Logger
}

// Handle routes one API Gateway proxy request
func (h *AccessHandler) Handle(ctx context.Context, request events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	h.Logger.WithFields(logrus.Fields{
		"operation": "Handler",
		"method":    request.HTTPMethod,
		"path":      request.Path,
	}).Debug("Access management request received")

	if request.HTTPMethod == http.MethodOptions {
		return api.SuccessResponse(http.StatusOK, map[string]string{}, h.Logger), nil
	}
	if request.HTTPMethod != http.MethodGet {
		return api.ErrorResponse(http.StatusMethodNotAllowed, "Method not allowed", h.Logger), nil
	}

	claims, err := auth.ExtractClaimsFromRequest(request)
	if err != nil {
		h.Logger.WithError(err).Warn("Failed to extract claims")
		return api.ErrorResponse(http.StatusUnauthorized, "Unauthorized", h.Logger), nil
	}
	h.Logger.WithField("claims", claims.ToJSON()).Debug("Caller claims extracted")
	actor := claims.Actor()

	pathSegments := strings.Split(strings.Trim(request.Path, "/"), "/")
	switch {
	case len(pathSegments) == 1 && pathSegments[0] == "permissions":
		catalog := models.Catalog()
		return api.SuccessResponse(http.StatusOK, models.PermissionListResponse{
			Permissions: catalog,
			Total:       len(catalog),
		}, h.Logger), nil

	case len(pathSegments) == 2 && pathSegments[0] == "permissions" && pathSegments[1] == "me":
		return api.SuccessResponse(http.StatusOK, h.effectivePermissions(actor), h.Logger), nil

	case len(pathSegments) == 1 && pathSegments[0] == "roles":
		roles := h.Resolver.Registry().Roles()
		return api.SuccessResponse(http.StatusOK, models.RoleListResponse{
			Roles: roles,
			Total: len(roles),
		}, h.Logger), nil

	case len(pathSegments) == 3 && pathSegments[0] == "users" && pathSegments[2] == "permissions":
		userID := pathSegments[1]
		if id, ok := request.PathParameters["userId"]; ok && id != "" {
			userID = id
		}
		return h.handleUserPermissions(ctx, actor, userID), nil
	}

	return api.ErrorResponse(http.StatusNotFound, "Endpoint not found", h.Logger), nil
}

// handleUserPermissions handles GET /users/{userId}/permissions
func (h *AccessHandler) handleUserPermissions(ctx context.Context, caller models.Actor, userID string) events.APIGatewayProxyResponse {
	if !h.Resolver.Resolve(caller).Has(models.ViewUsers) {
		h.Logger.WithFields(logrus.Fields{
			"operation": "handleUserPermissions",
			"caller":    caller.ID,
			"user_id":   userID,
		}).Warn("Caller may not view other users' permissions")
		return api.ErrorResponse(http.StatusForbidden, "Forbidden: view_users is required", h.Logger)
	}

	user, err := h.Identity.GetActor(ctx, userID)
	if err != nil {
		return api.DomainErrorResponse(err, h.Logger)
	}
	return api.SuccessResponse(http.StatusOK, h.effectivePermissions(*user), h.Logger)
}

func (h *AccessHandler) effectivePermissions(actor models.Actor) models.EffectivePermissionsResponse {
	set := h.Resolver.Resolve(actor)
	roles := actor.Roles
	if roles == nil {
		roles = []models.RoleName{}
	}
	return models.EffectivePermissionsResponse{
		UserID:      actor.ID,
		Roles:       roles,
		Grants:      set.Grants(),
		Permissions: set.Permissions(),
	}
}
