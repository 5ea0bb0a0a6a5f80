package models

import "time"

// Service is the metadata of one Live service whose membership lists are
// mirrored locally. LastChange drives the freshness check: an incoming
// service delta is applied only when its LastChange is strictly newer than
// the stored one.
type Service struct {
	ID          int64       `json:"id,omitempty"`
	Type        ServiceName `json:"type"`
	ForeignID   string      `json:"foreign_id,omitempty"`
	LastChange  time.Time   `json:"last_change"`
	Deleted     bool        `json:"deleted,omitempty"`
}

// RoleMembers groups the member records of one membership role inside a
// service delta.
type RoleMembers struct {
	Role    MembershipRole `json:"role"`
	Members []Member       `json:"members,omitempty"`
}

// ServiceDelta is the per-service slice of a membership synchronization
// response: the service metadata plus the changed members per role.
type ServiceDelta struct {
	Service     Service       `json:"service"`
	Memberships []RoleMembers `json:"memberships,omitempty"`
}

// MembershipResult is the server response to a membership (delta) fetch.
type MembershipResult struct {
	Services []ServiceDelta `json:"services,omitempty"`

	// CacheKey, when non-empty, replaces the stored contact-service cache
	// key used for subsequent incremental fetches.
	CacheKey string `json:"cache_key,omitempty"`
}
