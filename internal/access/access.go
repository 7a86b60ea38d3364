// Package access computes the relationship between an identity and the
// document collection. Everything here is a pure derivation over current
// state: relationships and partitions are recomputed on demand and never
// cached, so partial updates can't leave a stale view behind.
package access

import (
	"strings"

	"secureshare/internal/model"
)

// Relationship is the derived access relation between one identity and
// one document. It is never persisted.
type Relationship int

const (
	NoAccess Relationship = iota
	SharedView
	SharedEdit
	Owner
)

func (r Relationship) String() string {
	switch r {
	case Owner:
		return "owner"
	case SharedEdit:
		return "edit"
	case SharedView:
		return "view"
	default:
		return "none"
	}
}

// Classify computes the relationship for one (identity, document) pair.
// A zero identity has no access to anything. Linear in the document's
// share list; share counts per document are small enough that indexing
// by grantee would buy nothing here.
func Classify(id model.Identity, doc model.Document) Relationship {
	if id.IsZero() {
		return NoAccess
	}
	if doc.Owner.ID == id.ID {
		return Owner
	}
	for _, entry := range doc.SharedWith {
		if entry.GranteeID == id.ID {
			if entry.Level == model.AccessEdit {
				return SharedEdit
			}
			return SharedView
		}
	}
	return NoAccess
}

// Partition splits a collection into documents the identity owns and
// documents shared with it, preserving input order in both halves.
type Partition struct {
	Owned        []model.Document
	SharedWithMe []model.Document
}

// Partition classifies every document in the collection. A document the
// identity owns never lands in SharedWithMe, even if a share entry for
// the owner were to slip into its share list.
func PartitionDocuments(id model.Identity, docs []model.Document) Partition {
	var p Partition
	for _, doc := range docs {
		switch Classify(id, doc) {
		case Owner:
			p.Owned = append(p.Owned, doc)
		case SharedView, SharedEdit:
			if doc.Owner.ID != id.ID {
				p.SharedWithMe = append(p.SharedWithMe, doc)
			}
		}
	}
	return p
}

// FilterByName keeps documents whose display name contains the term,
// case-insensitively, preserving order. An empty term keeps everything.
func FilterByName(docs []model.Document, term string) []model.Document {
	if term == "" {
		return docs
	}
	needle := strings.ToLower(term)
	var out []model.Document
	for _, doc := range docs {
		if strings.Contains(strings.ToLower(doc.DisplayName), needle) {
			out = append(out, doc)
		}
	}
	return out
}
