// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Andrei Valekseev

// Package syncer sequences a full synchronization round against the contact
// service: membership deltas first, then the individual addressbook page,
// then each accepted circle's page, finishing with a forced save of the
// mirror and a truncation of the transient deltas store.
package syncer

import (
	"context"
	"errors"
	"fmt"

	"github.com/avalekseev/msnab/internal/addressbook"
	"github.com/avalekseev/msnab/internal/deltas"
	"github.com/avalekseev/msnab/internal/logger"
	"github.com/avalekseev/msnab/internal/remote"
	"github.com/avalekseev/msnab/models"
)

// ErrResyncLoop reports that a full resynchronization was demanded again
// while already performing one; the orchestrator gives up rather than
// looping.
var ErrResyncLoop = errors.New("full resync demanded during a full resync")

// Syncer drives synchronization rounds over a ContactClient, folding the
// fetched deltas into the addressbook mirror.
type Syncer struct {
	contacts *addressbook.ContactList
	store    *deltas.Deltas
	client   remote.ContactClient
	log      *logger.Logger
}

func New(contacts *addressbook.ContactList, store *deltas.Deltas, client remote.ContactClient, log *logger.Logger) *Syncer {
	return &Syncer{contacts: contacts, store: store, client: client, log: log}
}

// Synchronize runs one synchronization round. A mirror that lost data on
// load (corruption, schema drift) or a server that signals the delta window
// expired both escalate to a full resynchronization from a clean slate,
// at most once per round.
func (s *Syncer) Synchronize(ctx context.Context) error {
	s.contacts.Initialize()

	contactsRec, contactsReason := s.contacts.RecoveryState()
	storeRec, storeReason := s.store.RecoveryState()
	if contactsRec || storeRec {
		s.log.Warn().
			AnErr("contacts", contactsReason).
			AnErr("deltas", storeReason).
			Msg("local state was recovered empty, full resynchronization")
		return s.fullResync(ctx)
	}

	deltasOnly := s.store.CacheKey(models.CacheKeyContactService) != ""
	err := s.synchronize(ctx, deltasOnly)
	if errors.Is(err, remote.ErrFullSyncRequired) {
		return s.fullResync(ctx)
	}
	return err
}

// fullResync discards the local mirror and runs one round of full fetches.
// A second full-sync demand inside that round is a server fault and aborts.
func (s *Syncer) fullResync(ctx context.Context) error {
	if err := s.contacts.Reset(); err != nil {
		return fmt.Errorf("reset addressbook: %w", err)
	}
	if err := s.store.Reset(); err != nil {
		return fmt.Errorf("reset deltas: %w", err)
	}

	err := s.synchronize(ctx, false)
	if errors.Is(err, remote.ErrFullSyncRequired) {
		return fmt.Errorf("%w: %w", ErrResyncLoop, err)
	}
	return err
}

func (s *Syncer) synchronize(ctx context.Context, deltasOnly bool) error {
	membership, err := s.client.FetchMembership(ctx, deltasOnly)
	if err != nil {
		return fmt.Errorf("fetch membership: %w", err)
	}
	s.contacts.MergeMembership(membership)

	page, err := s.client.FetchAddressBook(ctx, models.IndividualAddressBookID, deltasOnly)
	if err != nil {
		return fmt.Errorf("fetch individual addressbook: %w", err)
	}
	if err := s.contacts.MergeIndividualAddressBook(page); err != nil {
		// A stale or malformed page aborts only that page's update.
		s.log.Warn().Err(err).Msg("individual addressbook page not merged")
	}

	for _, abID := range s.contacts.AcceptedCircleIDs() {
		if err := s.syncCircle(ctx, abID, deltasOnly); err != nil {
			return err
		}
	}

	if err := s.contacts.Save(true); err != nil {
		return fmt.Errorf("save addressbook: %w", err)
	}
	if err := s.store.Truncate(); err != nil {
		return fmt.Errorf("truncate deltas: %w", err)
	}
	return nil
}

// syncCircle fetches and merges one circle's own page. Merge preconditions
// (no inverse info, no me contact, stale page) are recoverable skips; the
// round carries on with the next circle.
func (s *Syncer) syncCircle(ctx context.Context, abID string, deltasOnly bool) error {
	page, err := s.client.FetchAddressBook(ctx, abID, deltasOnly)
	if err != nil {
		if errors.Is(err, remote.ErrFullSyncRequired) {
			return err
		}
		s.log.Warn().Err(err).Str("ab_id", abID).Msg("circle addressbook fetch failed, skipped")
		return nil
	}

	if err := s.contacts.MergeGroupAddressBook(page); err != nil {
		s.log.Warn().Err(err).Str("ab_id", abID).Msg("circle addressbook page not merged")
	}
	return nil
}
