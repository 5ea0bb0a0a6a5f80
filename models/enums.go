// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Andrei Valekseev

package models

// ServiceName identifies one of the Live network services a membership list
// can belong to. The values are the literal strings used on the wire.
type ServiceName string

const (
	ServiceMessenger     ServiceName = "Messenger"
	ServiceSocialNetwork ServiceName = "SocialNetwork"
	ServiceSpace         ServiceName = "Space"
	ServiceProfile       ServiceName = "Profile"
)

// MembershipRole is the privacy-list classification of a relationship to a
// given service. Allow and Block are mutually exclusive for the same
// account; the merge engine enforces this on insert.
type MembershipRole string

const (
	RoleAllow   MembershipRole = "Allow"
	RoleBlock   MembershipRole = "Block"
	RoleReverse MembershipRole = "Reverse"
	RolePending MembershipRole = "Pending"
)

// MSNList is the bit-flag representation of the protocol's contact lists.
// The values match the numeric list masks of the MSNP wire protocol.
type MSNList int

const (
	ListNone    MSNList = 0
	ListForward MSNList = 1
	ListAllow   MSNList = 2
	ListBlock   MSNList = 4
	ListReverse MSNList = 8
	ListPending MSNList = 16
)

// ListForRole maps a membership role string onto its protocol list mask.
// Unknown roles map to ListNone.
func ListForRole(role MembershipRole) MSNList {
	switch role {
	case RoleAllow:
		return ListAllow
	case RoleBlock:
		return ListBlock
	case RoleReverse:
		return ListReverse
	case RolePending:
		return ListPending
	default:
		return ListNone
	}
}

// ClientType is the numeric network type of an account, as carried in the
// protocol. It distinguishes passport users from email (federated) users,
// phone contacts and circle identities.
type ClientType int

const (
	ClientTypeNone     ClientType = 0
	ClientTypePassport ClientType = 1
	ClientTypeLCS      ClientType = 2
	ClientTypePhone    ClientType = 4
	ClientTypeCircle   ClientType = 9
	ClientTypeEmail    ClientType = 32
)

// RelationshipState is the lifecycle state of a circle connection as it is
// string-encoded on the wire.
type RelationshipState string

const (
	RelationshipNone            RelationshipState = ""
	RelationshipAccepted        RelationshipState = "Accepted"
	RelationshipWaitingResponse RelationshipState = "WaitingResponse"
	RelationshipRejected        RelationshipState = "Rejected"
)

// CircleRole is the owner's role inside a circle.
type CircleRole string

const (
	CircleRoleNone            CircleRole = ""
	CircleRoleAdmin           CircleRole = "Admin"
	CircleRoleAssistantAdmin  CircleRole = "AssistantAdmin"
	CircleRoleMember          CircleRole = "Member"
	CircleRolePendingOutbound CircleRole = "StatePendingOutbound"
)

// CacheKeyType selects which service's incremental-fetch cache key is being
// read or written in the deltas store.
type CacheKeyType string

const (
	CacheKeyContactService CacheKeyType = "OmegaContactServiceCacheKey"
	CacheKeyStorageService CacheKeyType = "StorageServiceCacheKey"
)
