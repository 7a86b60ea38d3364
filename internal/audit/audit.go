// Package audit gates and loads the audit trail view. The role check
// here is a UI convenience on an unverified client-side claim — the
// server enforces the real authorization, and a 403 from it wins over
// whatever the local claim said.
package audit

import (
	"context"
	"errors"

	"secureshare/internal/api"
	"secureshare/internal/model"
)

// IsPrivileged reports whether the identity carries the administrator
// role claim.
func IsPrivileged(id model.Identity) bool {
	return id.HasRole(model.RoleAdmin)
}

// View is the loaded audit state. Denied and an empty Entries list are
// distinct outcomes: absence of permission must never render like
// absence of data.
type View struct {
	Denied  bool
	Entries []model.AuditEntry
}

// Viewer loads audit entries for the current identity.
type Viewer struct {
	store    api.Store
	identity func() model.Identity
}

// NewViewer builds a viewer. identity is called on every Load so a
// credential change between loads is picked up.
func NewViewer(store api.Store, identity func() model.Identity) *Viewer {
	return &Viewer{store: store, identity: identity}
}

// Load returns the audit view. A non-privileged identity is denied
// without any fetch being issued. A fetch the server rejects as
// unauthorized also yields Denied — the local role claim was stale or
// forged — rather than an error. Other failures are returned for a
// generic retryable notice.
func (v *Viewer) Load(ctx context.Context) (View, error) {
	if !IsPrivileged(v.identity()) {
		return View{Denied: true}, nil
	}

	entries, err := v.store.ListAuditEntries(ctx)
	if err != nil {
		if errors.Is(err, api.ErrUnauthorized) {
			return View{Denied: true}, nil
		}
		return View{}, err
	}
	return View{Entries: entries}, nil
}
