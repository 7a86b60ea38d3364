package model

import (
	"path/filepath"
	"strings"
	"time"
)

// WireDocument mirrors the document encodings the store actually emits.
// Two shapes coexist upstream (mongo-era records use _id/originalname/
// fileSize/createdAt, newer ones id/name/size/uploadedAt); this struct
// accepts both and Normalize folds them into the canonical Document.
type WireDocument struct {
	ID         string      `json:"id"`
	LegacyID   string      `json:"_id"`
	Name       string      `json:"name"`
	Original   string      `json:"originalname"`
	Type       string      `json:"type"`
	FileType   string      `json:"fileType"`
	Size       int64       `json:"size"`
	FileSize   int64       `json:"fileSize"`
	Uploaded   string      `json:"uploadedAt"`
	Created    string      `json:"createdAt"`
	Owner      *wireOwner  `json:"owner"`
	SharedWith []wireShare `json:"sharedWith"`
}

type wireOwner struct {
	ID       string `json:"id"`
	LegacyID string `json:"_id"`
	Email    string `json:"email"`
}

type wireShare struct {
	User       string `json:"user"`
	GranteeID  string `json:"granteeId"`
	AccessType string `json:"accessType"`
	Level      string `json:"accessLevel"`
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

// Normalize converts a wire record into the canonical Document. Missing
// fields fall back across both shapes; a missing content type is derived
// from the display name's extension; timestamps that fail to parse are
// left zero rather than failing the whole record.
func (w WireDocument) Normalize() Document {
	doc := Document{
		ID:          firstNonEmpty(w.ID, w.LegacyID),
		DisplayName: firstNonEmpty(w.Name, w.Original),
		SizeBytes:   w.Size,
		ContentType: firstNonEmpty(w.Type, w.FileType),
	}
	if doc.SizeBytes == 0 {
		doc.SizeBytes = w.FileSize
	}
	if doc.ContentType == "" {
		if ext := strings.TrimPrefix(filepath.Ext(doc.DisplayName), "."); ext != "" {
			doc.ContentType = strings.ToLower(ext)
		}
	}
	if ts := firstNonEmpty(w.Uploaded, w.Created); ts != "" {
		if t, err := time.Parse(time.RFC3339, ts); err == nil {
			doc.CreatedAt = t
		}
	}
	if w.Owner != nil {
		doc.Owner = Owner{
			ID:    firstNonEmpty(w.Owner.ID, w.Owner.LegacyID),
			Email: w.Owner.Email,
		}
	}
	for _, s := range w.SharedWith {
		grantee := firstNonEmpty(s.GranteeID, s.User)
		if grantee == "" {
			continue
		}
		level := AccessLevel(strings.ToLower(firstNonEmpty(s.Level, s.AccessType)))
		if !level.Valid() {
			// Unknown tiers degrade to the weaker one.
			level = AccessView
		}
		doc.SharedWith = ShareWith(doc.SharedWith, grantee, level)
	}
	return doc
}

// NormalizeAll maps Normalize over a wire collection, preserving order.
func NormalizeAll(ws []WireDocument) []Document {
	docs := make([]Document, 0, len(ws))
	for _, w := range ws {
		docs = append(docs, w.Normalize())
	}
	return docs
}

// WireAuditEntry is the audit row as the service emits it (mongo-style
// _id and a nested user object).
type WireAuditEntry struct {
	ID           string         `json:"id"`
	LegacyID     string         `json:"_id"`
	User         *wireOwner     `json:"user"`
	Action       string         `json:"action"`
	ResourceType string         `json:"resourceType"`
	ResourceID   string         `json:"resourceId"`
	Status       string         `json:"status"`
	Details      map[string]any `json:"details"`
	CreatedAt    string         `json:"createdAt"`
}

// Normalize converts the wire audit row to the canonical AuditEntry.
func (w WireAuditEntry) Normalize() AuditEntry {
	e := AuditEntry{
		ID:           firstNonEmpty(w.ID, w.LegacyID),
		Action:       w.Action,
		ResourceType: w.ResourceType,
		ResourceID:   w.ResourceID,
		Status:       w.Status,
		Details:      w.Details,
	}
	if w.User != nil {
		e.Actor = Actor{ID: firstNonEmpty(w.User.ID, w.User.LegacyID), Email: w.User.Email}
	}
	if w.CreatedAt != "" {
		if t, err := time.Parse(time.RFC3339, w.CreatedAt); err == nil {
			e.CreatedAt = t
		}
	}
	return e
}

// WireFolder is the folder record as the service emits it.
type WireFolder struct {
	ID        string     `json:"id"`
	LegacyID  string     `json:"_id"`
	Name      string     `json:"name"`
	Path      string     `json:"path"`
	Owner     *wireOwner `json:"owner"`
	CreatedAt string     `json:"createdAt"`
}

// Normalize converts the wire folder to the canonical Folder.
func (w WireFolder) Normalize() Folder {
	f := Folder{
		ID:   firstNonEmpty(w.ID, w.LegacyID),
		Name: w.Name,
		Path: w.Path,
	}
	if w.Owner != nil {
		f.Owner = Owner{ID: firstNonEmpty(w.Owner.ID, w.Owner.LegacyID), Email: w.Owner.Email}
	}
	if w.CreatedAt != "" {
		if t, err := time.Parse(time.RFC3339, w.CreatedAt); err == nil {
			f.CreatedAt = t
		}
	}
	return f
}
