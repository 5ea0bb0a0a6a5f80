// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Andrei Valekseev

package models

import (
	"fmt"
	"strings"
	"time"
)

// MemberType is the closed set of membership record variants. Exactly one
// variant-specific identity field of a Member is meaningful for each type.
type MemberType string

const (
	MemberPassport MemberType = "Passport"
	MemberEmail    MemberType = "Email"
	MemberPhone    MemberType = "Phone"
	MemberCircle   MemberType = "Circle"
)

// Member is one record of a service membership role (Allow/Block/Reverse/
// Pending). It is a tagged union over the four protocol member variants:
// the Type field selects which of PassportName, Email, PhoneNumber or
// CircleID carries the identity.
type Member struct {
	MembershipID int64      `json:"membership_id,omitempty"`
	Type         MemberType `json:"type"`

	PassportName string `json:"passport_name,omitempty"`
	Email        string `json:"email,omitempty"`
	PhoneNumber  string `json:"phone_number,omitempty"`
	CircleID     string `json:"circle_id,omitempty"`

	DisplayName string `json:"display_name,omitempty"`

	// Via is the addressbook id the membership is scoped to, empty for the
	// default addressbook.
	Via string `json:"via,omitempty"`

	Deleted     bool      `json:"deleted,omitempty"`
	LastChanged time.Time `json:"last_changed"`
	JoinedDate  time.Time `json:"joined_date,omitempty"`
}

// Resolve returns the account string and client type encoded by the member
// variant. ok is false when the identity field selected by Type is empty or
// the type itself is unknown; such records are skipped by the merge engine.
func (m Member) Resolve() (account string, ct ClientType, ok bool) {
	switch m.Type {
	case MemberPassport:
		return strings.ToLower(m.PassportName), ClientTypePassport, m.PassportName != ""
	case MemberEmail:
		return strings.ToLower(m.Email), ClientTypeEmail, m.Email != ""
	case MemberPhone:
		return m.PhoneNumber, ClientTypePhone, m.PhoneNumber != ""
	case MemberCircle:
		return strings.ToLower(m.CircleID), ClientTypeCircle, m.CircleID != ""
	default:
		return "", ClientTypeNone, false
	}
}

// MembershipHash is the unique identity of a member within a role map:
// account, client type and the addressbook the membership is scoped to.
func MembershipHash(account string, ct ClientType, abID string) string {
	return fmt.Sprintf("%d:%s;via=%s", ct, strings.ToLower(account), strings.ToLower(abID))
}

// Hash returns the member's identity key, or "" when the record cannot be
// resolved to an account.
func (m Member) Hash() string {
	account, ct, ok := m.Resolve()
	if !ok {
		return ""
	}
	return MembershipHash(account, ct, m.Via)
}
