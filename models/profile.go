package models

import "time"

// OwnerProfile is the snapshot of the signed-in user's storage-service
// profile kept in the deltas store between sessions.
type OwnerProfile struct {
	ResourceID           string `json:"resource_id,omitempty"`
	DisplayName          string `json:"display_name,omitempty"`
	PersonalMessage      string `json:"personal_message,omitempty"`
	HasExpressionProfile bool   `json:"has_expression_profile,omitempty"`

	Photo ProfilePhoto `json:"photo,omitempty"`

	DateModified time.Time `json:"date_modified,omitempty"`
}

// ProfilePhoto describes the owner's display picture as stored by the
// storage service. The image bytes themselves live in the user-tile cache,
// keyed by PreAuthURL content hash.
type ProfilePhoto struct {
	ResourceID string `json:"resource_id,omitempty"`
	Name       string `json:"name,omitempty"`
	PreAuthURL string `json:"pre_auth_url,omitempty"`
}
