package addressbook

import "github.com/avalekseev/msnab/models"

// Listener receives the change notifications the merge engine emits while
// folding server deltas into the local model. It is the only channel
// through which merges become visible to the rest of the system.
//
// Callbacks are invoked while the model lock is held; implementations must
// not call back into the ContactList and should hand work off quickly.
type Listener interface {
	// OnContactAdded and OnContactRemoved report membership-list changes.
	// list carries the protocol list mask the change applies to
	// (ListForward for addressbook contacts, the role's mask otherwise).
	OnContactAdded(service models.ServiceName, account string, ct models.ClientType, list models.MSNList)
	OnContactRemoved(service models.ServiceName, account string, ct models.ClientType, list models.MSNList)

	// OnReverseAdded and OnReverseRemoved report changes to the reverse
	// list (people who have the owner on their contact list).
	OnReverseAdded(account string, ct models.ClientType)
	OnReverseRemoved(account string, ct models.ClientType)

	OnGroupAdded(group models.GroupEntry)
	OnGroupRemoved(group models.GroupEntry)

	// OnCircleCreated fires when a circle page is materialized for the
	// first time, whether the circle was created locally or joined.
	OnCircleCreated(circle *CircleRecord)
	// OnCircleExited fires when a previously materialized circle is removed
	// (connection deleted or rejected).
	OnCircleExited(circle *CircleRecord)
	// OnCircleInvitationReceived fires for a new pending-outbound circle
	// connection awaiting the owner's response.
	OnCircleInvitationReceived(info models.CircleInverseInfo)

	OnCircleMemberJoined(abID string, contact models.ContactEntry)
	OnCircleMemberLeft(abID string, contact models.ContactEntry)
}

// NopListener is a Listener that ignores every notification. Embed it to
// implement only the callbacks of interest.
type NopListener struct{}

func (NopListener) OnContactAdded(models.ServiceName, string, models.ClientType, models.MSNList) {}
func (NopListener) OnContactRemoved(models.ServiceName, string, models.ClientType, models.MSNList) {
}
func (NopListener) OnReverseAdded(string, models.ClientType)              {}
func (NopListener) OnReverseRemoved(string, models.ClientType)            {}
func (NopListener) OnGroupAdded(models.GroupEntry)                        {}
func (NopListener) OnGroupRemoved(models.GroupEntry)                      {}
func (NopListener) OnCircleCreated(*CircleRecord)                         {}
func (NopListener) OnCircleExited(*CircleRecord)                          {}
func (NopListener) OnCircleInvitationReceived(models.CircleInverseInfo)   {}
func (NopListener) OnCircleMemberJoined(string, models.ContactEntry)      {}
func (NopListener) OnCircleMemberLeft(string, models.ContactEntry)        {}
