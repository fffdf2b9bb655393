package auth

import (
	"encoding/json"
	"fmt"
	"operations/lib/models"
	"strings"

	"github.com/aws/aws-lambda-go/events"
)

// Claims represents the JWT claims extracted from the API Gateway authorizer context
type Claims struct {
	UserID    string            `json:"sub"`
	Email     string            `json:"email"`
	FullName  string            `json:"full_name"`
	Roles     []models.RoleName `json:"roles"`
	ProjectID string            `json:"current_project_id,omitempty"`
}

// ExtractClaimsFromRequest extracts and parses JWT claims from API Gateway request
func ExtractClaimsFromRequest(request events.APIGatewayProxyRequest) (*Claims, error) {
	var claimsMap map[string]interface{}
	var ok bool

	if authClaims, exists := request.RequestContext.Authorizer["claims"]; exists {
		claimsMap, ok = authClaims.(map[string]interface{})
	}

	// Some API Gateway configurations put the claims directly on the authorizer
	if !ok {
		claimsMap = request.RequestContext.Authorizer
		ok = (claimsMap != nil)
	}

	if !ok || claimsMap == nil {
		return nil, fmt.Errorf("claims not found in authorizer context")
	}

	userID := stringClaim(claimsMap, "sub")
	if userID == "" {
		userID = stringClaim(claimsMap, "user_id")
	}
	if userID == "" {
		return nil, fmt.Errorf("sub not found or invalid in claims")
	}

	email := stringClaim(claimsMap, "email")

	fullName := stringClaim(claimsMap, "full_name")
	if fullName == "" {
		fullName = stringClaim(claimsMap, "name")
	}
	if fullName == "" {
		fullName = email
	}

	projectID := stringClaim(claimsMap, "current_project_id")
	if projectID == "" {
		projectID = stringClaim(claimsMap, "custom:project_id")
	}

	// The token customizer writes "roles"; plain Cognito tokens only carry groups
	roles := listClaim(claimsMap["roles"])
	if len(roles) == 0 {
		roles = listClaim(claimsMap["cognito:groups"])
	}

	claims := &Claims{
		UserID:    userID,
		Email:     email,
		FullName:  fullName,
		ProjectID: projectID,
	}
	for _, role := range roles {
		claims.Roles = append(claims.Roles, models.RoleName(role))
	}
	return claims, nil
}

// Actor converts the claims into the caller identity used by the access gate
func (c *Claims) Actor() models.Actor {
	return models.Actor{
		ID:        c.UserID,
		Name:      c.FullName,
		Email:     c.Email,
		Roles:     append([]models.RoleName(nil), c.Roles...),
		ProjectID: c.ProjectID,
	}
}

// ToJSON converts claims to JSON string for logging
func (c *Claims) ToJSON() string {
	data, _ := json.Marshal(c)
	return string(data)
}

func stringClaim(claims map[string]interface{}, key string) string {
	value, _ := claims[key].(string)
	return strings.TrimSpace(value)
}

// listClaim accepts a JSON array, a comma-separated string, or the "[a b]"
// rendering API Gateway uses for array claims.
func listClaim(value interface{}) []string {
	var items []string
	switch v := value.(type) {
	case []interface{}:
		for _, item := range v {
			if s, ok := item.(string); ok {
				items = append(items, s)
			}
		}
	case []string:
		items = v
	case string:
		trimmed := strings.TrimSpace(v)
		if strings.HasPrefix(trimmed, "[") && strings.HasSuffix(trimmed, "]") {
			items = strings.Fields(strings.ReplaceAll(strings.Trim(trimmed, "[]"), ",", " "))
		} else {
			items = strings.Split(trimmed, ",")
		}
	}

	out := make([]string, 0, len(items))
	seen := make(map[string]bool, len(items))
	for _, item := range items {
		item = strings.Trim(strings.TrimSpace(item), `"`)
		if item == "" || seen[item] {
			continue
		}
		seen[item] = true
		out = append(out, item)
	}
	return out
}
