package models

// Actor is the caller on whose behalf an operation runs. It is supplied by the
// identity layer (API Gateway authorizer claims or Cognito); the core never
// authenticates credentials itself.
type Actor struct {
	ID        string     `json:"id"`                   // Stable user identifier
	Name      string     `json:"name"`                 // Display name recorded on requests and actions
	Email     string     `json:"email,omitempty"`      // Informational only
	Roles     []RoleName `json:"roles"`                // Every role the user currently holds
	ProjectID string     `json:"project_id,omitempty"` // Project the user is currently scoped to, empty when unscoped
}

