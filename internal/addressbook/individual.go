// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Andrei Valekseev

package addressbook

import (
	"strings"

	"github.com/avalekseev/msnab/models"
)

// MergeAddressBook dispatches a fetched addressbook page to the individual
// or group merge depending on the page's id.
func (cl *ContactList) MergeAddressBook(res *models.AddressBookResult) error {
	if res == nil {
		return nil
	}
	if strings.EqualFold(res.AbID, models.IndividualAddressBookID) || res.AbID == "" {
		return cl.MergeIndividualAddressBook(res)
	}
	return cl.MergeGroupAddressBook(res)
}

// MergeIndividualAddressBook folds a fetch of the owner's personal
// addressbook page into the mirror: groups first, then contacts, then the
// circle inverse connection records. The ordering matters because contacts
// reference groups and circle materialization references contacts.
//
// A page that is not strictly newer than the cached one is discarded
// (ErrStalePage); a page with no usable timestamp aborts only this page's
// update (ErrMalformedTimestamp).
func (cl *ContactList) MergeIndividualAddressBook(res *models.AddressBookResult) error {
	if res == nil {
		return nil
	}

	cl.mu.Lock()
	defer cl.mu.Unlock()

	abID := pageKey(res.AbID)
	if err := cl.checkPageFreshness(abID, res); err != nil {
		return err
	}

	cl.mergeGroups(res.Groups)
	cl.mergeIndividualContacts(abID, res.Contacts)
	cl.mergeCircleResults(res.CircleResults)

	cl.m.AddressBooksInfo[abID] = models.AddressBookInfo{AbID: abID, LastChange: res.LastChange}
	return nil
}

func pageKey(abID string) string {
	if abID == "" {
		return strings.ToLower(models.IndividualAddressBookID)
	}
	return strings.ToLower(abID)
}

// checkPageFreshness applies the per-addressbook timestamp rule. Caller
// holds the lock.
func (cl *ContactList) checkPageFreshness(abID string, res *models.AddressBookResult) error {
	if res.LastChange.IsZero() {
		cl.log.Warn().Str("ab_id", abID).Msg("addressbook page has no last-change timestamp, update aborted")
		return ErrMalformedTimestamp
	}
	if info, ok := cl.m.AddressBooksInfo[abID]; ok && !res.LastChange.After(info.LastChange) {
		cl.log.Debug().
			Str("ab_id", abID).
			Time("incoming", res.LastChange).
			Time("stored", info.LastChange).
			Msg("addressbook page not newer than cached state, skipped")
		return ErrStalePage
	}
	return nil
}

func (cl *ContactList) mergeGroups(groups []models.GroupEntry) {
	for _, g := range groups {
		key := strings.ToLower(g.Guid)
		if key == "" {
			continue
		}
		stored, exists := cl.m.Groups[key]

		if g.Deleted {
			if !exists {
				continue
			}
			delete(cl.m.Groups, key)
			cl.listener.OnGroupRemoved(stored)
			continue
		}

		if exists && !g.LastChanged.After(stored.LastChanged) {
			continue
		}
		cl.m.Groups[key] = g
		if !exists {
			cl.listener.OnGroupAdded(g)
		}
	}
}

func (cl *ContactList) mergeIndividualContacts(abID string, contacts []models.ContactEntry) {
	page := cl.m.AddressbookContacts[abID]
	if page == nil {
		page = make(map[string]models.ContactEntry)
		cl.m.AddressbookContacts[abID] = page
	}

	for _, c := range contacts {
		key := strings.ToLower(c.Guid)
		if key == "" {
			continue
		}
		stored, exists := page[key]

		if c.Deleted {
			if !exists {
				continue
			}
			delete(page, key)
			delete(cl.contactTable, stored.CID)
			if !stored.IsHiddenRepresentative() {
				cl.listener.OnContactRemoved(models.ServiceMessenger, strings.ToLower(stored.Account), stored.ClientType, models.ListForward)
			}
			continue
		}

		if exists && !c.LastChanged.After(stored.LastChanged) {
			continue
		}
		page[key] = c
		if c.CID != 0 {
			cl.contactTable[c.CID] = c
		}
		if !exists && !c.IsHiddenRepresentative() {
			cl.listener.OnContactAdded(models.ServiceMessenger, strings.ToLower(c.Account), c.ClientType, models.ListForward)
		}
	}
}

// mergeCircleResults reconciles the inverse connection records with the
// stored circle state. Caller holds the lock.
func (cl *ContactList) mergeCircleResults(infos []models.CircleInverseInfo) {
	for _, info := range infos {
		key := info.Key()
		if key == "" {
			continue
		}

		if info.Deleted {
			cl.removeCircleConnection(key)
			continue
		}

		prev, had := cl.m.CircleResults[key]

		if info.State == models.RelationshipNone {
			// The connection record may omit the state; the hidden
			// representative contact in the personal page carries it then.
			if rep, ok := cl.hiddenRepresentative(key); ok {
				info.State = rep.RelationshipState()
			}
		}
		cl.m.CircleResults[key] = info

		switch info.State {
		case models.RelationshipAccepted:
			// Materialization happens when the circle's own page arrives;
			// AcceptedCircleIDs tells the orchestrator what to fetch.

		case models.RelationshipWaitingResponse:
			if info.Role == models.CircleRolePendingOutbound {
				// Fire only for a fresh pending connection; a repeat of the
				// same record is a no-op, but a record re-introduced after
				// deletion is fresh again.
				if !had || prev.State != models.RelationshipWaitingResponse {
					cl.listener.OnCircleInvitationReceived(info)
				}
			}

		case models.RelationshipRejected:
			// Leaving or rejecting tears the materialized circle down along
			// with its page and freshness metadata, so a later re-accept
			// starts fresh even when the server resends the page with its
			// old timestamp. The inverse record stays until the server
			// hard-deletes it.
			cl.dropCirclePage(key)
		}
	}
}

// removeCircleConnection handles a hard-deleted inverse record: the circle,
// its page and its metadata all go. Caller holds the lock.
func (cl *ContactList) removeCircleConnection(key string) {
	delete(cl.m.CircleResults, key)
	delete(cl.m.PendingCreateCircleList, key)
	cl.dropCirclePage(key)
}

// dropCirclePage removes a circle's contact page, its freshness metadata
// and the materialized record, unindexing the page's contacts. Caller holds
// the lock.
func (cl *ContactList) dropCirclePage(key string) {
	for _, c := range cl.m.AddressbookContacts[key] {
		delete(cl.contactTable, c.CID)
	}
	delete(cl.m.AddressbookContacts, key)
	delete(cl.m.AddressBooksInfo, key)

	if circle, ok := cl.circles[key]; ok {
		delete(cl.circles, key)
		cl.listener.OnCircleExited(circle)
	}
}

// hiddenRepresentative finds the contact in the personal page standing in
// for the given circle. Its account is the circle guid at the hosted
// domain. Caller holds the lock.
func (cl *ContactList) hiddenRepresentative(abID string) (models.ContactEntry, bool) {
	page := cl.m.AddressbookContacts[pageKey(models.IndividualAddressBookID)]
	for _, c := range page {
		if !c.IsHiddenRepresentative() {
			continue
		}
		if account := strings.ToLower(c.Account); strings.HasPrefix(account, abID+"@") || account == abID {
			return c, true
		}
	}
	return models.ContactEntry{}, false
}
