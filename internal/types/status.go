package types

// Status is a type for the record status of a resource in the database.
// This tracks whether the row itself is live, independent of any domain
// status the entity carries (e.g. a canceled service is still an active row).
type Status string

const (
	StatusActive   Status = "active"
	StatusInactive Status = "inactive"
	StatusDeleted  Status = "deleted"
)
