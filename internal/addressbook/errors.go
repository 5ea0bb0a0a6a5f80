package addressbook

import "errors"

// Sentinel errors returned by merge operations to signal recoverable
// skips. Callers should use [errors.Is] to match against these values.
var (
	// ErrNoInverseInfo is returned when a circle page arrives before the
	// circle's relationship record. The page is left unmerged so a later
	// retry can succeed.
	ErrNoInverseInfo = errors.New("no inverse info for circle addressbook")

	// ErrNoMeContact is returned when a circle page carries no "Me" contact
	// for the owner, which makes the owner's role in the circle unknown.
	ErrNoMeContact = errors.New("circle addressbook has no me contact")

	// ErrStalePage is returned when an incoming addressbook page is not
	// strictly newer than the cached one and is therefore discarded.
	ErrStalePage = errors.New("addressbook page is not newer than cached state")

	// ErrMalformedTimestamp is returned when an incoming addressbook page
	// carries no usable last-change timestamp; only that page's update is
	// aborted.
	ErrMalformedTimestamp = errors.New("addressbook page has no last-change timestamp")
)
