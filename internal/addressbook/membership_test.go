package addressbook

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avalekseev/msnab/models"
)

// ─────────────────────────────────────────────────────────────────────────────
// Helpers
// ─────────────────────────────────────────────────────────────────────────────

func passportMember(account string, ts time.Time) models.Member {
	return models.Member{Type: models.MemberPassport, PassportName: account, LastChanged: ts}
}

func emailMember(account string, ts time.Time) models.Member {
	return models.Member{Type: models.MemberEmail, Email: account, LastChanged: ts}
}

func deletedMember(m models.Member, ts time.Time) models.Member {
	m.Deleted = true
	m.LastChanged = ts
	return m
}

func roleMembers(role models.MembershipRole, members ...models.Member) models.RoleMembers {
	return models.RoleMembers{Role: role, Members: members}
}

func membershipDelta(svc models.ServiceName, lastChange time.Time, rms ...models.RoleMembers) *models.MembershipResult {
	return &models.MembershipResult{Services: []models.ServiceDelta{{
		Service:     models.Service{Type: svc, LastChange: lastChange},
		Memberships: rms,
	}}}
}

func circleRepContact(abID string, ts time.Time, state models.RelationshipState) models.ContactEntry {
	return models.ContactEntry{
		Guid:        "rep-" + abID,
		Account:     abID + "@live.com",
		ClientType:  models.ClientTypeCircle,
		Type:        models.ContactTypeCircle,
		Annotations: map[string]string{models.AnnotationRelationshipState: string(state)},
		LastChanged: ts,
	}
}

func meContact(guid string, role models.CircleRole, ts time.Time) models.ContactEntry {
	return models.ContactEntry{
		Guid:        guid,
		Account:     "owner@example.com",
		Type:        models.ContactTypeMe,
		CircleRole:  role,
		LastChanged: ts,
	}
}

func circleMember(guid string, cid int64, account string, ts time.Time) models.ContactEntry {
	return models.ContactEntry{
		Guid:        guid,
		CID:         cid,
		Account:     account,
		ClientType:  models.ClientTypePassport,
		Type:        models.ContactTypeRegular,
		LastChanged: ts,
	}
}

func circlePage(abID string, ts time.Time, contacts ...models.ContactEntry) *models.AddressBookResult {
	return &models.AddressBookResult{AbID: abID, LastChange: ts, Contacts: contacts}
}

// ─────────────────────────────────────────────────────────────────────────────
// MergeMembership — freshness and deletion rules
// ─────────────────────────────────────────────────────────────────────────────

func TestMergeMembership_AddsAndNotifies(t *testing.T) {
	cl, lis, _ := newTestContactList(t)

	cl.MergeMembership(membershipDelta(models.ServiceMessenger, at(1),
		roleMembers(models.RoleAllow, passportMember("bob@example.com", at(1))),
		roleMembers(models.RoleReverse, passportMember("carol@example.com", at(1))),
	))

	assert.True(t, cl.HasMember(models.ServiceMessenger, models.RoleAllow, "bob@example.com", models.ClientTypePassport))
	assert.True(t, cl.HasMember(models.ServiceMessenger, models.RoleReverse, "carol@example.com", models.ClientTypePassport))
	assert.Contains(t, lis.Events(), "contact-added:Messenger:bob@example.com:1:2")
	assert.Contains(t, lis.Events(), "reverse-added:carol@example.com:1")
}

// A delta whose service LastChange is not strictly newer than the stored
// one must leave the stored state untouched, regardless of its content.
func TestMergeMembership_ServiceFreshness(t *testing.T) {
	tests := []struct {
		name     string
		incoming time.Time
		applied  bool
	}{
		{name: "Older → Skipped", incoming: at(1), applied: false},
		{name: "Equal → Skipped", incoming: at(2), applied: false},
		{name: "Newer → Applied", incoming: at(3), applied: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cl, _, _ := newTestContactList(t)
			cl.MergeMembership(membershipDelta(models.ServiceMessenger, at(2),
				roleMembers(models.RoleAllow, passportMember("bob@example.com", at(2)))))

			cl.MergeMembership(membershipDelta(models.ServiceMessenger, tc.incoming,
				roleMembers(models.RoleAllow, passportMember("dave@example.com", tc.incoming))))

			assert.Equal(t, tc.applied, cl.HasMember(models.ServiceMessenger, models.RoleAllow, "dave@example.com", models.ClientTypePassport))
			assert.True(t, cl.HasMember(models.ServiceMessenger, models.RoleAllow, "bob@example.com", models.ClientTypePassport), "stored member must never regress")
		})
	}
}

// Per-member freshness: an incoming record that is not strictly newer than
// the stored one is discarded even when the service delta itself is newer.
func TestMergeMembership_MemberFreshnessMonotonicity(t *testing.T) {
	cl, _, _ := newTestContactList(t)

	newer := passportMember("bob@example.com", at(5))
	newer.DisplayName = "Bob v5"
	cl.MergeMembership(membershipDelta(models.ServiceMessenger, at(5), roleMembers(models.RolePending, newer)))

	older := passportMember("bob@example.com", at(3))
	older.DisplayName = "Bob v3"
	cl.MergeMembership(membershipDelta(models.ServiceMessenger, at(6), roleMembers(models.RolePending, older)))

	members := cl.Members(models.ServiceMessenger, models.RolePending)
	require.Len(t, members, 1)
	assert.Equal(t, "Bob v5", members[0].DisplayName, "older record must not overwrite newer stored state")
}

func TestMergeMembership_DeletionRequiresNewerTimestamp(t *testing.T) {
	cl, lis, _ := newTestContactList(t)

	cl.MergeMembership(membershipDelta(models.ServiceMessenger, at(2),
		roleMembers(models.RoleAllow, passportMember("bob@example.com", at(2)))))

	// Stale deletion: same timestamp, must be ignored.
	cl.MergeMembership(membershipDelta(models.ServiceMessenger, at(3),
		roleMembers(models.RoleAllow, deletedMember(passportMember("bob@example.com", at(2)), at(2)))))
	assert.True(t, cl.HasMember(models.ServiceMessenger, models.RoleAllow, "bob@example.com", models.ClientTypePassport))

	// Fresh deletion applies and notifies.
	cl.MergeMembership(membershipDelta(models.ServiceMessenger, at(4),
		roleMembers(models.RoleAllow, deletedMember(passportMember("bob@example.com", at(2)), at(4)))))
	assert.False(t, cl.HasMember(models.ServiceMessenger, models.RoleAllow, "bob@example.com", models.ClientTypePassport))
	assert.Contains(t, lis.Events(), "contact-removed:Messenger:bob@example.com:1:2")
}

func TestMergeMembership_DeletedServiceDropsWholeMap(t *testing.T) {
	cl, _, _ := newTestContactList(t)

	cl.MergeMembership(membershipDelta(models.ServiceMessenger, at(1),
		roleMembers(models.RoleAllow, passportMember("bob@example.com", at(1))),
		roleMembers(models.RoleBlock, passportMember("eve@example.com", at(1)))))

	gone := &models.MembershipResult{Services: []models.ServiceDelta{{
		Service: models.Service{Type: models.ServiceMessenger, LastChange: at(2), Deleted: true},
	}}}
	cl.MergeMembership(gone)

	assert.Empty(t, cl.Members(models.ServiceMessenger, models.RoleAllow))
	assert.Empty(t, cl.Members(models.ServiceMessenger, models.RoleBlock))
}

func TestMergeMembership_UnresolvableMemberSkipped(t *testing.T) {
	cl, _, _ := newTestContactList(t)

	// Type says passport but no identity field is set.
	blank := models.Member{Type: models.MemberPassport, LastChanged: at(1)}
	cl.MergeMembership(membershipDelta(models.ServiceMessenger, at(1), roleMembers(models.RoleAllow, blank)))

	assert.Empty(t, cl.Members(models.ServiceMessenger, models.RoleAllow))
}

// ─────────────────────────────────────────────────────────────────────────────
// MergeMembership — Allow/Block mutual exclusion
// ─────────────────────────────────────────────────────────────────────────────

func TestMergeMembership_AllowBlockMutualExclusion(t *testing.T) {
	cl, lis, _ := newTestContactList(t)

	cl.MergeMembership(membershipDelta(models.ServiceMessenger, at(1),
		roleMembers(models.RoleBlock, passportMember("mallory@example.com", at(1)))))
	cl.MergeMembership(membershipDelta(models.ServiceMessenger, at(2),
		roleMembers(models.RoleAllow, passportMember("mallory@example.com", at(2)))))

	assert.True(t, cl.HasMember(models.ServiceMessenger, models.RoleAllow, "mallory@example.com", models.ClientTypePassport))
	assert.False(t, cl.HasMember(models.ServiceMessenger, models.RoleBlock, "mallory@example.com", models.ClientTypePassport))
	assert.Contains(t, lis.Events(), "contact-removed:Messenger:mallory@example.com:1:4")

	// And back again: allowing then blocking flips the other way.
	cl.MergeMembership(membershipDelta(models.ServiceMessenger, at(3),
		roleMembers(models.RoleBlock, passportMember("mallory@example.com", at(3)))))

	assert.False(t, cl.HasMember(models.ServiceMessenger, models.RoleAllow, "mallory@example.com", models.ClientTypePassport))
	assert.True(t, cl.HasMember(models.ServiceMessenger, models.RoleBlock, "mallory@example.com", models.ClientTypePassport))
}

// Property: after any sequence of membership merges, no account sits in
// Allow and Block simultaneously for the same service.
func TestMergeMembership_ExclusionHoldsAcrossSequences(t *testing.T) {
	cl, _, _ := newTestContactList(t)

	roles := []models.MembershipRole{models.RoleAllow, models.RoleBlock, models.RoleAllow, models.RoleBlock, models.RoleAllow}
	for i, role := range roles {
		cl.MergeMembership(membershipDelta(models.ServiceMessenger, at(i+1),
			roleMembers(role, passportMember("bob@example.com", at(i+1))),
			roleMembers(role, emailMember("bob@yahoo.example.com", at(i+1)))))

		inAllow := cl.HasMember(models.ServiceMessenger, models.RoleAllow, "bob@example.com", models.ClientTypePassport)
		inBlock := cl.HasMember(models.ServiceMessenger, models.RoleBlock, "bob@example.com", models.ClientTypePassport)
		require.False(t, inAllow && inBlock, "step %d: bob present in Allow and Block at once", i)
	}

	assert.True(t, cl.HasMember(models.ServiceMessenger, models.RoleAllow, "bob@example.com", models.ClientTypePassport))
	assert.False(t, cl.HasMember(models.ServiceMessenger, models.RoleBlock, "bob@example.com", models.ClientTypePassport))
}

// Out-of-order delivery: the freshness rule, not arrival order, decides
// the final state.
func TestMergeMembership_OutOfOrderArrival(t *testing.T) {
	cl, _, _ := newTestContactList(t)

	// The newer "allow" delta arrives first, the older "block" second.
	cl.MergeMembership(membershipDelta(models.ServiceMessenger, at(5),
		roleMembers(models.RoleAllow, passportMember("bob@example.com", at(5)))))
	cl.MergeMembership(membershipDelta(models.ServiceMessenger, at(2),
		roleMembers(models.RoleBlock, passportMember("bob@example.com", at(2)))))

	assert.True(t, cl.HasMember(models.ServiceMessenger, models.RoleAllow, "bob@example.com", models.ClientTypePassport))
	assert.False(t, cl.HasMember(models.ServiceMessenger, models.RoleBlock, "bob@example.com", models.ClientTypePassport))
}

func TestMergeMembership_ServicesAreIndependent(t *testing.T) {
	cl, _, _ := newTestContactList(t)

	cl.MergeMembership(membershipDelta(models.ServiceMessenger, at(1),
		roleMembers(models.RoleAllow, passportMember("bob@example.com", at(1)))))
	cl.MergeMembership(membershipDelta(models.ServiceSocialNetwork, at(1),
		roleMembers(models.RoleBlock, passportMember("bob@example.com", at(1)))))

	// Same account, different services: no cross-service exclusion.
	assert.True(t, cl.HasMember(models.ServiceMessenger, models.RoleAllow, "bob@example.com", models.ClientTypePassport))
	assert.True(t, cl.HasMember(models.ServiceSocialNetwork, models.RoleBlock, "bob@example.com", models.ClientTypePassport))
}
