package domain

// Identity names the owner of a usage account: exactly one of UserID or AnonID is set
type Identity struct {
	UserID string
	AnonID string
}

// IsRegistered reports whether the identity belongs to an authenticated user
func (i Identity) IsRegistered() bool {
	return i.UserID != ""
}

// Empty reports whether neither identifier is set
func (i Identity) Empty() bool {
	return i.UserID == "" && i.AnonID == ""
}

// AdStatus is the lifecycle state of an ad session
type AdStatus string

const (
	AdStarted   AdStatus = "started"
	AdCompleted AdStatus = "completed"
	AdCanceled  AdStatus = "canceled"
)

// Terminal reports whether no further transition is allowed
func (s AdStatus) Terminal() bool {
	return s == AdCompleted || s == AdCanceled
}
