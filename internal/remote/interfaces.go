// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Andrei Valekseev

// Package remote talks to the contact service: it fetches membership and
// addressbook deltas and keeps the incremental-fetch plumbing (cache keys,
// preferred redirect hosts) in the deltas store up to date.
package remote

import (
	"context"

	"github.com/avalekseev/msnab/models"
)

// ContactClient is the transport the synchronization orchestrator pulls
// deltas through. deltasOnly selects an incremental fetch using the stored
// cache key; a full fetch ignores it and returns the complete state.
//
// FetchAddressBook returns ErrFullSyncRequired (possibly wrapped) when the
// server's delta window has expired and the local mirror must be rebuilt
// from a full fetch.
type ContactClient interface {
	FetchMembership(ctx context.Context, deltasOnly bool) (*models.MembershipResult, error)
	FetchAddressBook(ctx context.Context, abID string, deltasOnly bool) (*models.AddressBookResult, error)
}
