// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Andrei Valekseev

package addressbook

import (
	"github.com/avalekseev/msnab/models"
)

// MergeMembership folds a membership delta into the mirror and returns the
// receiver for chaining.
//
// Per service, the delta is applied only when its LastChange is strictly
// newer than the stored service record (ties keep the stored state); a
// service marked deleted drops its whole membership map. Per member, the
// same strictly-newer rule applies against the stored record, addition and
// removal alike. Adding an account to Allow removes it from Block and vice
// versa.
func (cl *ContactList) MergeMembership(res *models.MembershipResult) *ContactList {
	if res == nil {
		return cl
	}

	cl.mu.Lock()
	defer cl.mu.Unlock()

	for i := range res.Services {
		cl.mergeServiceDelta(&res.Services[i])
	}
	return cl
}

func (cl *ContactList) mergeServiceDelta(delta *models.ServiceDelta) {
	name := delta.Service.Type

	stored, exists := cl.m.MembershipList[name]
	if exists && !delta.Service.LastChange.After(stored.Service.LastChange) {
		cl.log.Debug().
			Str("service", string(name)).
			Time("incoming", delta.Service.LastChange).
			Time("stored", stored.Service.LastChange).
			Msg("membership delta not newer than stored service, skipped")
		return
	}

	if delta.Service.Deleted {
		delete(cl.m.MembershipList, name)
		return
	}

	if !exists {
		stored = &ServiceMembership{
			Memberships: make(map[models.MembershipRole]map[string]models.Member),
		}
		cl.m.MembershipList[name] = stored
	}
	stored.Service = delta.Service

	for _, rm := range delta.Memberships {
		for _, member := range rm.Members {
			cl.mergeMember(name, stored, rm.Role, member)
		}
	}
}

func (cl *ContactList) mergeMember(service models.ServiceName, sm *ServiceMembership, role models.MembershipRole, member models.Member) {
	account, ct, ok := member.Resolve()
	if !ok {
		cl.log.Warn().
			Str("service", string(service)).
			Str("type", string(member.Type)).
			Msg("membership member carries no resolvable identity, skipped")
		return
	}
	hash := models.MembershipHash(account, ct, member.Via)

	if sm.Memberships[role] == nil {
		sm.Memberships[role] = make(map[string]models.Member)
	}
	roleMap := sm.Memberships[role]
	stored, exists := roleMap[hash]

	if member.Deleted {
		if !exists {
			return
		}
		if !member.LastChanged.After(stored.LastChanged) {
			return
		}
		delete(roleMap, hash)
		cl.notifyMembershipRemoved(service, role, account, ct)
		return
	}

	if exists && !member.LastChanged.After(stored.LastChanged) {
		return
	}

	// Allow and Block are mutually exclusive for the same identity.
	switch role {
	case models.RoleAllow:
		cl.dropFromRole(service, sm, models.RoleBlock, hash, account, ct)
	case models.RoleBlock:
		cl.dropFromRole(service, sm, models.RoleAllow, hash, account, ct)
	}

	roleMap[hash] = member
	if !exists {
		cl.notifyMembershipAdded(service, role, account, ct)
	}
}

func (cl *ContactList) dropFromRole(service models.ServiceName, sm *ServiceMembership, role models.MembershipRole, hash, account string, ct models.ClientType) {
	if _, ok := sm.Memberships[role][hash]; !ok {
		return
	}
	delete(sm.Memberships[role], hash)
	cl.notifyMembershipRemoved(service, role, account, ct)
}

func (cl *ContactList) notifyMembershipAdded(service models.ServiceName, role models.MembershipRole, account string, ct models.ClientType) {
	if role == models.RoleReverse {
		cl.listener.OnReverseAdded(account, ct)
		return
	}
	cl.listener.OnContactAdded(service, account, ct, models.ListForRole(role))
}

func (cl *ContactList) notifyMembershipRemoved(service models.ServiceName, role models.MembershipRole, account string, ct models.ClientType) {
	if role == models.RoleReverse {
		cl.listener.OnReverseRemoved(account, ct)
		return
	}
	cl.listener.OnContactRemoved(service, account, ct, models.ListForRole(role))
}
