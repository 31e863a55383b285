package types

import "time"

// EmployeeRole is an AI team role: a name, an enabled/disabled status, and
// the chat model the role is invoked with.
type EmployeeRole struct {
	Name         string    `json:"name"`
	Description  *string   `json:"description,omitempty"`
	Status       string    `json:"status"` // enabled, disabled
	DefaultModel *string   `json:"default_model,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// RoleAbility binds a role to an ability identifier (many-to-many).
type RoleAbility struct {
	RoleName  string `json:"role_name"`
	AbilityID string `json:"ability_id"`
}

// PromptVersion is one entry in a role's system-prompt version history.
type PromptVersion struct {
	ID        string    `json:"id"`
	RoleName  string    `json:"role_name"`
	Content   string    `json:"content"`
	Version   int       `json:"version"`
	CreatedAt time.Time `json:"created_at"`
}
