// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Andrei Valekseev

// Package addressbook maintains the local mirror of the owner's contact
// list: service membership roles, per-addressbook contact pages, groups and
// circle relationships. Its merge operations fold server-pushed deltas into
// the mirror under timestamp-freshness rules and emit change notifications
// through a Listener.
package addressbook

import (
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/avalekseev/msnab/internal/logger"
	"github.com/avalekseev/msnab/internal/mclfile"
	"github.com/avalekseev/msnab/models"
)

// SchemaVersion tags the persisted addressbook model. A stored file tagged
// differently is discarded on load and a full resynchronization follows.
const SchemaVersion = "3.0"

// ServiceMembership is the stored membership state of one service: its
// metadata plus the member records per role, keyed by membership hash.
type ServiceMembership struct {
	Service     models.Service                                     `json:"service"`
	Memberships map[models.MembershipRole]map[string]models.Member `json:"memberships,omitempty"`
}

// Model is the persisted shape of the addressbook mirror. Map keys holding
// addressbook ids and guids are always lowercased.
type Model struct {
	MembershipList map[models.ServiceName]*ServiceMembership `json:"membership_list,omitempty"`

	// AddressbookContacts holds one contact page per addressbook id: the
	// individual page plus one page per circle. Inner key is contact guid.
	AddressbookContacts map[string]map[string]models.ContactEntry `json:"addressbook_contacts,omitempty"`

	Groups map[string]models.GroupEntry `json:"groups,omitempty"`

	// CircleResults is the inverse connection info per circle addressbook id.
	CircleResults map[string]models.CircleInverseInfo `json:"circle_results,omitempty"`

	// AddressBooksInfo is the per-page freshness metadata.
	AddressBooksInfo map[string]models.AddressBookInfo `json:"addressbooks_info,omitempty"`

	// PendingCreateCircleList maps circle guids created locally, awaiting
	// server confirmation, to their display names.
	PendingCreateCircleList map[string]string `json:"pending_create_circles,omitempty"`
}

// CircleRecord is a materialized circle: the owner's view of one circle
// addressbook, derived from the inverse info and the circle's own page.
type CircleRecord struct {
	AbID           string
	DisplayName    string
	HostedDomain   string
	Role           models.CircleRole
	State          models.RelationshipState
	CreatedLocally bool
}

// ContactList is the live addressbook mirror: the persisted Model plus the
// derived indices rebuilt by Initialize. One RWMutex guards the whole
// structure; every merge and the save path hold it for their full duration.
type ContactList struct {
	mu  sync.RWMutex
	m   *Model
	ser *mclfile.Serializer[Model]

	listener Listener
	log      *logger.Logger

	initialized bool

	// contactTable indexes contacts by CID across all pages for O(1)
	// lookup during merges. Rebuilt from the model, never persisted.
	contactTable map[int64]models.ContactEntry

	// circles holds the materialized circle records. Rebuilt on Initialize.
	circles map[string]*CircleRecord

	// recovered is set when loading lost data (corruption, schema drift);
	// the orchestrator reacts with a full resynchronization.
	recovered bool
	reason    error
}

// Load hydrates the addressbook mirror from path through reg. It never
// fails: corruption or schema drift yields an empty mirror, reported
// through RecoveryState. Initialize must be called before any merge
// operation.
func Load(reg *mclfile.Registry, path string, enc mclfile.Encoding, password string, useCache bool, listener Listener, log *logger.Logger) *ContactList {
	ser := mclfile.NewSerializer[Model](reg, path, enc, password, SchemaVersion, log)
	res := ser.Load(useCache)

	if listener == nil {
		listener = NopListener{}
	}
	cl := &ContactList{
		m:        res.Model,
		ser:      ser,
		listener: listener,
		log:      log,

		recovered: res.Recovered,
		reason:    res.Reason,
	}
	cl.ensureMaps()
	return cl
}

// RecoveryState reports whether loading lost data and why. The orchestrator
// reacts to a recovered mirror with a full resynchronization.
func (cl *ContactList) RecoveryState() (bool, error) {
	cl.mu.RLock()
	defer cl.mu.RUnlock()
	return cl.recovered, cl.reason
}

func (cl *ContactList) ensureMaps() {
	if cl.m.MembershipList == nil {
		cl.m.MembershipList = make(map[models.ServiceName]*ServiceMembership)
	}
	if cl.m.AddressbookContacts == nil {
		cl.m.AddressbookContacts = make(map[string]map[string]models.ContactEntry)
	}
	if cl.m.Groups == nil {
		cl.m.Groups = make(map[string]models.GroupEntry)
	}
	if cl.m.CircleResults == nil {
		cl.m.CircleResults = make(map[string]models.CircleInverseInfo)
	}
	if cl.m.AddressBooksInfo == nil {
		cl.m.AddressBooksInfo = make(map[string]models.AddressBookInfo)
	}
	if cl.m.PendingCreateCircleList == nil {
		cl.m.PendingCreateCircleList = make(map[string]string)
	}
	cl.contactTable = make(map[int64]models.ContactEntry)
	cl.circles = make(map[string]*CircleRecord)
}

// Initialize rebuilds the derived indices (CID table, circle records) from
// the persisted model and purges orphaned circle pages. It is idempotent:
// a sticky flag makes repeated calls no-ops. Must be called after Load and
// before any merge.
func (cl *ContactList) Initialize() {
	cl.mu.Lock()
	defer cl.mu.Unlock()

	if cl.initialized {
		return
	}

	individual := strings.ToLower(models.IndividualAddressBookID)
	for abID := range cl.m.AddressbookContacts {
		if abID == individual {
			continue
		}
		if _, ok := cl.m.CircleResults[abID]; !ok {
			// A circle page with no relationship record is orphaned.
			cl.log.Warn().Str("ab_id", abID).Msg("purging orphaned circle addressbook page")
			delete(cl.m.AddressbookContacts, abID)
			delete(cl.m.AddressBooksInfo, abID)
		}
	}

	cl.contactTable = make(map[int64]models.ContactEntry)
	for _, page := range cl.m.AddressbookContacts {
		for _, c := range page {
			if c.CID != 0 {
				cl.contactTable[c.CID] = c
			}
		}
	}

	cl.circles = make(map[string]*CircleRecord)
	for abID, inverse := range cl.m.CircleResults {
		if inverse.State != models.RelationshipAccepted {
			continue
		}
		if _, ok := cl.m.AddressbookContacts[abID]; !ok {
			continue
		}
		cl.circles[abID] = &CircleRecord{
			AbID:         abID,
			DisplayName:  inverse.DisplayName,
			HostedDomain: inverse.HostedDomain,
			Role:         inverse.Role,
			State:        inverse.State,
		}
	}

	cl.initialized = true
}

// Save persists the mirror. Unless force is set, saves within the debounce
// window of the last write are skipped.
func (cl *ContactList) Save(force bool) error {
	cl.mu.RLock()
	defer cl.mu.RUnlock()
	return cl.ser.Save(cl.m, force)
}

// Reset discards all local state, in memory and on disk, so the next
// synchronization starts from a clean slate.
func (cl *ContactList) Reset() error {
	cl.mu.Lock()
	defer cl.mu.Unlock()

	cl.m = &Model{}
	cl.ensureMaps()
	cl.initialized = true
	cl.recovered = false
	cl.reason = nil
	return cl.ser.Delete()
}

// ContactByCID returns the contact record indexed under the given CID.
func (cl *ContactList) ContactByCID(cid int64) (models.ContactEntry, bool) {
	cl.mu.RLock()
	defer cl.mu.RUnlock()
	c, ok := cl.contactTable[cid]
	return c, ok
}

// Circles returns a snapshot of the materialized circle records.
func (cl *ContactList) Circles() []*CircleRecord {
	cl.mu.RLock()
	defer cl.mu.RUnlock()

	out := make([]*CircleRecord, 0, len(cl.circles))
	for _, c := range cl.circles {
		out = append(out, c)
	}
	return out
}

// Circle returns the materialized record for one circle addressbook id.
func (cl *ContactList) Circle(abID string) (*CircleRecord, bool) {
	cl.mu.RLock()
	defer cl.mu.RUnlock()
	c, ok := cl.circles[strings.ToLower(abID)]
	return c, ok
}

// AcceptedCircleIDs lists the addressbook ids of circle connections in the
// Accepted state. The orchestrator fetches each one's page and feeds it to
// MergeGroupAddressBook.
func (cl *ContactList) AcceptedCircleIDs() []string {
	cl.mu.RLock()
	defer cl.mu.RUnlock()

	out := make([]string, 0, len(cl.m.CircleResults))
	for abID, inverse := range cl.m.CircleResults {
		if inverse.State == models.RelationshipAccepted {
			out = append(out, abID)
		}
	}
	return out
}

// GroupList returns a snapshot of the stored contact groups.
func (cl *ContactList) GroupList() []models.GroupEntry {
	cl.mu.RLock()
	defer cl.mu.RUnlock()

	out := make([]models.GroupEntry, 0, len(cl.m.Groups))
	for _, g := range cl.m.Groups {
		out = append(out, g)
	}
	return out
}

// Members returns the stored member records of one service role.
func (cl *ContactList) Members(service models.ServiceName, role models.MembershipRole) []models.Member {
	cl.mu.RLock()
	defer cl.mu.RUnlock()

	sm, ok := cl.m.MembershipList[service]
	if !ok {
		return nil
	}
	out := make([]models.Member, 0, len(sm.Memberships[role]))
	for _, m := range sm.Memberships[role] {
		out = append(out, m)
	}
	return out
}

// HasMember reports whether the account is present in the given service
// role.
func (cl *ContactList) HasMember(service models.ServiceName, role models.MembershipRole, account string, ct models.ClientType) bool {
	cl.mu.RLock()
	defer cl.mu.RUnlock()

	sm, ok := cl.m.MembershipList[service]
	if !ok {
		return false
	}
	_, ok = sm.Memberships[role][models.MembershipHash(account, ct, "")]
	return ok
}

// CreateCircle allocates a guid for a circle created locally and records it
// as pending server confirmation. The returned guid is what the creation
// request is sent under; when the server's inverse connection comes back
// for it, the circle materializes as created-by-us.
func (cl *ContactList) CreateCircle(displayName string) string {
	guid := uuid.NewString()
	cl.AddPendingCreateCircle(guid, displayName)
	return guid
}

// AddPendingCreateCircle records a circle created locally that awaits the
// server's inverse connection. When the connection arrives Accepted, the
// circle materializes as created-by-us instead of firing an invitation.
func (cl *ContactList) AddPendingCreateCircle(abID, displayName string) {
	cl.mu.Lock()
	defer cl.mu.Unlock()
	cl.m.PendingCreateCircleList[strings.ToLower(abID)] = displayName
}

// PurgeCircle removes every trace of a circle addressbook after a confirmed
// server-side error: the page, the inverse info and the freshness metadata.
func (cl *ContactList) PurgeCircle(abID string) {
	cl.mu.Lock()
	defer cl.mu.Unlock()

	key := strings.ToLower(abID)
	delete(cl.m.CircleResults, key)
	cl.dropCirclePage(key)
}
