// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Andrei Valekseev

package addressbook

import (
	"strings"

	"github.com/avalekseev/msnab/models"
)

// MergeGroupAddressBook folds a fetch of one circle's own addressbook page
// into the mirror: it updates the circle's contact page, diffs the old and
// new member sets to fire joined/left notifications, and materializes the
// CircleRecord on first contact.
//
// Preconditions are recoverable skips, not failures: a page whose inverse
// connection record has not arrived yet returns ErrNoInverseInfo and a page
// without a "Me" contact returns ErrNoMeContact; in both cases nothing is
// committed so a later retry can succeed.
func (cl *ContactList) MergeGroupAddressBook(res *models.AddressBookResult) error {
	if res == nil {
		return nil
	}

	cl.mu.Lock()
	defer cl.mu.Unlock()

	abID := pageKey(res.AbID)
	if err := cl.checkPageFreshness(abID, res); err != nil {
		return err
	}

	inverse, ok := cl.m.CircleResults[abID]
	if !ok {
		cl.log.Warn().Str("ab_id", abID).Msg("circle page arrived before its inverse info, skipped")
		return ErrNoInverseInfo
	}

	old := cl.m.AddressbookContacts[abID]
	page := make(map[string]models.ContactEntry, len(old)+len(res.Contacts))
	for k, v := range old {
		page[k] = v
	}

	me, hasMe := findMeContact(old, res.Contacts)
	if !hasMe {
		cl.log.Warn().Str("ab_id", abID).Msg("circle page carries no me contact, could not create circle")
		return ErrNoMeContact
	}

	var joined, left []models.ContactEntry
	for _, c := range res.Contacts {
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
			left = append(left, stored)
			continue
		}

		if exists && !c.LastChanged.After(stored.LastChanged) {
			continue
		}
		page[key] = c
		if c.CID != 0 {
			cl.contactTable[c.CID] = c
		}
		if !exists {
			joined = append(joined, c)
		}
	}

	cl.m.AddressbookContacts[abID] = page
	cl.m.AddressBooksInfo[abID] = models.AddressBookInfo{AbID: abID, LastChange: res.LastChange}

	circle, existed := cl.circles[abID]
	if !existed {
		circle = cl.materializeCircle(abID, inverse, me)
	} else {
		circle.DisplayName = displayNameFor(inverse, circle.DisplayName)
		circle.Role = roleFor(inverse, me)
		circle.State = inverse.State
	}

	for _, c := range joined {
		if c.Type != models.ContactTypeMe {
			cl.listener.OnCircleMemberJoined(abID, c)
		}
	}
	for _, c := range left {
		if c.Type != models.ContactTypeMe {
			cl.listener.OnCircleMemberLeft(abID, c)
		}
	}
	return nil
}

// materializeCircle creates the CircleRecord for a page seen for the first
// time and fires the creation notification. A circle the owner created
// locally (pending-create list) materializes as created-by-us. Caller
// holds the lock.
func (cl *ContactList) materializeCircle(abID string, inverse models.CircleInverseInfo, me models.ContactEntry) *CircleRecord {
	circle := &CircleRecord{
		AbID:         abID,
		DisplayName:  displayNameFor(inverse, ""),
		HostedDomain: inverse.HostedDomain,
		Role:         roleFor(inverse, me),
		State:        inverse.State,
	}

	if name, ok := cl.m.PendingCreateCircleList[abID]; ok {
		circle.CreatedLocally = true
		if circle.DisplayName == "" {
			circle.DisplayName = name
		}
		delete(cl.m.PendingCreateCircleList, abID)
	}

	cl.circles[abID] = circle
	cl.listener.OnCircleCreated(circle)
	return circle
}

// findMeContact locates the owner's own record, preferring the incoming
// page over the cached one.
func findMeContact(old map[string]models.ContactEntry, incoming []models.ContactEntry) (models.ContactEntry, bool) {
	for _, c := range incoming {
		if c.Type == models.ContactTypeMe && !c.Deleted {
			return c, true
		}
	}
	for _, c := range old {
		if c.Type == models.ContactTypeMe {
			return c, true
		}
	}
	return models.ContactEntry{}, false
}

// roleFor resolves the owner's role in a circle: the Me contact's own role
// annotation wins, then the inverse record, defaulting to plain member.
func roleFor(inverse models.CircleInverseInfo, me models.ContactEntry) models.CircleRole {
	if me.CircleRole != models.CircleRoleNone {
		return me.CircleRole
	}
	if inverse.Role != models.CircleRoleNone && inverse.Role != models.CircleRolePendingOutbound {
		return inverse.Role
	}
	return models.CircleRoleMember
}

func displayNameFor(inverse models.CircleInverseInfo, fallback string) string {
	if inverse.DisplayName != "" {
		return inverse.DisplayName
	}
	return fallback
}
