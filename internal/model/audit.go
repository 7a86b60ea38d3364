package model

import "time"

// Actor identifies the user an audit entry is attributed to.
type Actor struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// AuditEntry is one row of the service's audit trail. The client only
// reads these; production of audit events is entirely server-side.
type AuditEntry struct {
	ID           string         `json:"id"`
	Actor        Actor          `json:"actor"`
	Action       string         `json:"action"`
	ResourceType string         `json:"resourceType"`
	ResourceID   string         `json:"resourceId"`
	Status       string         `json:"status"`
	Details      map[string]any `json:"details,omitempty"`
	CreatedAt    time.Time      `json:"createdAt"`
}
