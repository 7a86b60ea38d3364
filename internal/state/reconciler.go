// Package state owns the client-local copy of the document collection.
// All mutation goes through the Reconciler; views derive partitions from
// Documents() after every change rather than patching incrementally.
package state

import (
	"context"
	"errors"
	"sync"

	"secureshare/internal/api"
	"secureshare/internal/model"
)

// Reconciler merges optimistic local updates with authoritative store
// responses. Safe for concurrent use.
type Reconciler struct {
	store api.Store

	// onUnauthorized runs when any store call reports an authorization
	// failure. Terminal for the session: the hook is expected to clear
	// the credential (session logout), and the collection is emptied.
	onUnauthorized func()

	mu   sync.Mutex
	docs []model.Document
}

// New builds a reconciler over the given store. onUnauthorized may be
// nil when no session teardown is wired (tests).
func New(store api.Store, onUnauthorized func()) *Reconciler {
	return &Reconciler{store: store, onUnauthorized: onUnauthorized}
}

// Documents returns a copy of the current collection in display order.
func (r *Reconciler) Documents() []model.Document {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]model.Document, len(r.docs))
	copy(out, r.docs)
	return out
}

// Clear empties the local collection, e.g. after logout.
func (r *Reconciler) Clear() {
	r.mu.Lock()
	r.docs = nil
	r.mu.Unlock()
}

// Refresh replaces the collection with an authoritative fetch. On any
// failure the collection is cleared rather than left stale: a document
// of unknown state must not look actionable. An authorization failure
// additionally tears the session down via the hook.
func (r *Reconciler) Refresh(ctx context.Context) error {
	docs, err := r.store.ListDocuments(ctx)
	if err != nil {
		r.Clear()
		if errors.Is(err, api.ErrUnauthorized) && r.onUnauthorized != nil {
			r.onUnauthorized()
		}
		return err
	}

	r.mu.Lock()
	r.docs = docs
	r.mu.Unlock()
	return nil
}

// ApplyUpload places the canonical record the server returned at the
// head of the collection. The document ends up present exactly once;
// no refetch is needed since the record is already authoritative.
func (r *Reconciler) ApplyUpload(doc model.Document) {
	r.mu.Lock()
	defer r.mu.Unlock()

	kept := make([]model.Document, 0, len(r.docs)+1)
	kept = append(kept, doc)
	for _, d := range r.docs {
		if d.ID != doc.ID {
			kept = append(kept, d)
		}
	}
	r.docs = kept
}

// ApplyDelete removes the document optimistically, then issues the
// authoritative delete. Success triggers a full refresh to pick up any
// concurrent server-side changes. Failure rolls the optimistic removal
// back at its prior position — except on authorization failure, which
// ends the session instead.
func (r *Reconciler) ApplyDelete(ctx context.Context, id string) error {
	r.mu.Lock()
	idx := -1
	var removed model.Document
	for i, d := range r.docs {
		if d.ID == id {
			idx = i
			removed = d
			break
		}
	}
	if idx >= 0 {
		r.docs = append(r.docs[:idx], r.docs[idx+1:]...)
	}
	r.mu.Unlock()

	if err := r.store.DeleteDocument(ctx, id); err != nil {
		if errors.Is(err, api.ErrUnauthorized) {
			r.Clear()
			if r.onUnauthorized != nil {
				r.onUnauthorized()
			}
			return err
		}
		if idx >= 0 {
			r.restore(idx, removed)
		}
		return err
	}

	return r.Refresh(ctx)
}

// ApplyShareSuccess discards any optimistic view of the share and
// refetches the collection wholesale. The grantee's resolved identity
// is only known server-side, so a local patch would drift from the
// authoritative share list.
func (r *Reconciler) ApplyShareSuccess(ctx context.Context) error {
	return r.Refresh(ctx)
}

func (r *Reconciler) restore(idx int, doc model.Document) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if idx > len(r.docs) {
		idx = len(r.docs)
	}
	r.docs = append(r.docs[:idx], append([]model.Document{doc}, r.docs[idx:]...)...)
}
