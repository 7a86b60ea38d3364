package model

import "time"

// AccessLevel is the permission tier attached to a share grant.
type AccessLevel string

const (
	AccessView AccessLevel = "view"
	AccessEdit AccessLevel = "edit"
)

// Valid reports whether the level is one of the known tiers.
func (l AccessLevel) Valid() bool {
	return l == AccessView || l == AccessEdit
}

// ShareEntry records that a grantee has access to a document at a given
// level. Entries are unique per grantee; a later grant for the same
// grantee replaces the earlier one.
type ShareEntry struct {
	GranteeID string      `json:"granteeId"`
	Level     AccessLevel `json:"accessLevel"`
}

// Owner identifies the single owner of a document.
type Owner struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// Document is the canonical client-side document record. A document has
// exactly one owner, and the owner must never appear in SharedWith.
type Document struct {
	ID          string       `json:"id"`
	DisplayName string       `json:"displayName"`
	SizeBytes   int64        `json:"sizeBytes"`
	ContentType string       `json:"contentType"`
	CreatedAt   time.Time    `json:"createdAt"`
	Owner       Owner        `json:"owner"`
	SharedWith  []ShareEntry `json:"sharedWith,omitempty"`
}

// ShareWith appends or replaces the entry for the given grantee,
// returning the updated slice. Last write for a grantee wins.
func ShareWith(entries []ShareEntry, granteeID string, level AccessLevel) []ShareEntry {
	for i := range entries {
		if entries[i].GranteeID == granteeID {
			entries[i].Level = level
			return entries
		}
	}
	return append(entries, ShareEntry{GranteeID: granteeID, Level: level})
}
