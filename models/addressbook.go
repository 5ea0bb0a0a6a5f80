// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Andrei Valekseev

package models

import (
	"strings"
	"time"
)

// IndividualAddressBookID is the well-known id of the owner's personal
// (default) addressbook page. Circle pages use the circle's own guid.
const IndividualAddressBookID = "00000000-0000-0000-0000-000000000000"

// ContactType classifies a contact record within an addressbook page.
type ContactType string

const (
	ContactTypeRegular ContactType = "Regular"
	ContactTypeMe      ContactType = "Me"
	ContactTypeCircle  ContactType = "Circle"
	ContactTypePending ContactType = "LivePending"
)

// AnnotationRelationshipState is the annotation key under which a hidden
// representative contact carries its circle's relationship state.
const AnnotationRelationshipState = "MSN.IM.CircleRelationshipState"

// ContactEntry is one contact record of an addressbook page. Guid is the
// per-page surrogate key; CID is the stable cross-page identity.
type ContactEntry struct {
	Guid        string      `json:"guid"`
	CID         int64       `json:"cid,omitempty"`
	Account     string      `json:"account,omitempty"`
	ClientType  ClientType  `json:"client_type,omitempty"`
	Type        ContactType `json:"contact_type,omitempty"`
	DisplayName string      `json:"display_name,omitempty"`

	IsMessengerUser bool `json:"is_messenger_user,omitempty"`

	// CircleRole is the contact's role inside a circle page; meaningful
	// only for contacts of a circle addressbook (the Me record carries the
	// owner's own role).
	CircleRole CircleRole `json:"circle_role,omitempty"`

	// Annotations carries free-form name/value pairs from the server. The
	// circle relationship state of a hidden representative lives here.
	Annotations map[string]string `json:"annotations,omitempty"`

	// Groups lists the guids of the groups the contact belongs to.
	Groups []string `json:"groups,omitempty"`

	Deleted     bool      `json:"deleted,omitempty"`
	LastChanged time.Time `json:"last_changed"`
}

// IsHiddenRepresentative reports whether the contact stands in for a circle
// in the personal addressbook rather than describing a person.
func (c ContactEntry) IsHiddenRepresentative() bool {
	if c.Type == ContactTypeCircle {
		return true
	}
	_, ok := c.Annotations[AnnotationRelationshipState]
	return ok
}

// RelationshipState returns the circle relationship state annotated on a
// hidden representative, or RelationshipNone when absent.
func (c ContactEntry) RelationshipState() RelationshipState {
	return RelationshipState(c.Annotations[AnnotationRelationshipState])
}

// GroupEntry is one contact group of the personal addressbook.
type GroupEntry struct {
	Guid        string    `json:"guid"`
	Name        string    `json:"name"`
	IsFavorite  bool      `json:"is_favorite,omitempty"`
	Deleted     bool      `json:"deleted,omitempty"`
	LastChanged time.Time `json:"last_changed"`
}

// CircleInverseInfo is the relationship record the server keeps about a
// circle the owner is connected to ("WLConnection" inverse info): the
// circle's identity plus the owner's role and relationship state in it.
type CircleInverseInfo struct {
	AbID         string            `json:"ab_id"`
	DisplayName  string            `json:"display_name,omitempty"`
	HostedDomain string            `json:"hosted_domain,omitempty"`
	Role         CircleRole        `json:"role,omitempty"`
	State        RelationshipState `json:"state,omitempty"`
	Deleted      bool              `json:"deleted,omitempty"`
}

// Key returns the lowercased addressbook id the record is stored under.
func (c CircleInverseInfo) Key() string { return strings.ToLower(c.AbID) }

// AddressBookInfo is the per-page metadata used to decide whether a fetched
// page is newer than the cached one.
type AddressBookInfo struct {
	AbID       string    `json:"ab_id"`
	OwnerEmail string    `json:"owner_email,omitempty"`
	LastChange time.Time `json:"last_change"`
}

// AddressBookResult is the server response to an addressbook (delta) fetch,
// either for the personal page or for one circle's page.
type AddressBookResult struct {
	AbID       string    `json:"ab_id"`
	LastChange time.Time `json:"last_change"`

	Groups        []GroupEntry        `json:"groups,omitempty"`
	Contacts      []ContactEntry      `json:"contacts,omitempty"`
	CircleResults []CircleInverseInfo `json:"circle_results,omitempty"`

	// CacheKey, when non-empty, replaces the stored contact-service cache key.
	CacheKey string `json:"cache_key,omitempty"`

	// FullSyncRequired is set by the server when the delta window has
	// expired and the client must restart from a clean slate.
	FullSyncRequired bool `json:"full_sync_required,omitempty"`
}
