package stubserver_test

import (
	"bytes"
	"context"
	"net"
	"net/http"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"secureshare/internal/access"
	"secureshare/internal/api"
	"secureshare/internal/audit"
	"secureshare/internal/config"
	"secureshare/internal/model"
	"secureshare/internal/session"
	"secureshare/internal/share"
	"secureshare/internal/state"
	"secureshare/internal/stubserver"
)

type harness struct {
	srv  *stubserver.Server
	base string
}

func start(t *testing.T) *harness {
	t.Helper()
	srv := stubserver.New("e2e-key")
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go func() { _ = srv.App().Listener(ln) }()
	t.Cleanup(func() { _ = srv.App().Shutdown() })
	return &harness{srv: srv, base: "http://" + ln.Addr().String()}
}

// client builds an SDK client bound to a fresh session holding a minted
// token for the given user.
func (h *harness) client(t *testing.T, userID string) (*api.Client, *session.Session) {
	t.Helper()
	sess := session.Load(filepath.Join(t.TempDir(), "session.json"))
	tok, err := h.srv.MintToken(userID)
	require.NoError(t, err)
	require.NoError(t, sess.Establish(tok, model.Profile{ID: userID}))

	cfg := config.APIConfig{BaseURL: h.base, RequestTimeout: 5 * time.Second}
	return api.NewWithHTTPClient(cfg, sess, nil, &http.Client{}), sess
}

func TestLoginRoundTrip(t *testing.T) {
	h := start(t)
	h.srv.SeedUser("Alice", "alice@acme.org", "pw-1", "user")

	sess := session.Load(filepath.Join(t.TempDir(), "session.json"))
	cfg := config.APIConfig{BaseURL: h.base, RequestTimeout: 5 * time.Second}
	c := api.NewWithHTTPClient(cfg, sess, nil, &http.Client{})

	ctx := context.Background()
	tok, profile, err := c.Login(ctx, "alice@acme.org", "pw-1")
	require.NoError(t, err)
	require.NoError(t, sess.Establish(tok, profile))

	// The decoded identity matches the profile the server returned.
	assert.Equal(t, profile.ID, sess.Identity().ID)

	_, _, err = c.Login(ctx, "alice@acme.org", "wrong")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid credentials")
}

func TestOwnerScenario(t *testing.T) {
	h := start(t)
	u1 := h.srv.SeedUser("Alice", "alice@acme.org", "pw", "user")
	h.srv.SeedDocument(u1, "plan.txt", []byte("q3 plan"), false)

	c, sess := h.client(t, u1)
	ctx := context.Background()

	docs, err := c.ListDocuments(ctx)
	require.NoError(t, err)
	require.Len(t, docs, 1)

	id := sess.Identity()
	assert.Equal(t, access.Owner, access.Classify(id, docs[0]))

	p := access.PartitionDocuments(id, docs)
	assert.Len(t, p.Owned, 1)
	assert.Empty(t, p.SharedWithMe)
}

func TestSharedEditScenario(t *testing.T) {
	h := start(t)
	u1 := h.srv.SeedUser("Alice", "alice@acme.org", "pw", "user")
	h.srv.SeedUser("Bob", "bob@acme.org", "pw", "user")
	docID := h.srv.SeedDocument(u1, "plan.txt", []byte("q3 plan"), false)

	ctx := context.Background()
	owner, _ := h.client(t, u1)

	// Owner runs the full sharing workflow against the live store.
	w := share.New(owner)
	require.NoError(t, w.Submit(ctx, docID, "bob@acme.org", model.AccessEdit))
	require.Equal(t, share.Succeeded, w.State())

	// Bob now sees the document as shared-with-edit, and only there.
	bobClient, bobSess := h.clientByEmail(t, "bob@acme.org")
	docs, err := bobClient.ListDocuments(ctx)
	require.NoError(t, err)
	require.Len(t, docs, 1)

	id := bobSess.Identity()
	assert.Equal(t, access.SharedEdit, access.Classify(id, docs[0]))
	p := access.PartitionDocuments(id, docs)
	assert.Empty(t, p.Owned)
	assert.Len(t, p.SharedWithMe, 1)
}

func TestGhostRecipientScenario(t *testing.T) {
	h := start(t)
	u1 := h.srv.SeedUser("Alice", "alice@acme.org", "pw", "user")
	docID := h.srv.SeedDocument(u1, "plan.txt", []byte("q3 plan"), false)

	ctx := context.Background()
	c, sess := h.client(t, u1)

	rec := state.New(c, func() { _ = sess.Logout() })
	require.NoError(t, rec.Refresh(ctx))
	before := rec.Documents()

	w := share.New(c)
	w.OnSuccess(func(ctx context.Context) { _ = rec.ApplyShareSuccess(ctx) })

	err := w.Submit(ctx, docID, "ghost@x.com", model.AccessView)
	assert.ErrorIs(t, err, api.ErrRecipientNotFound)
	assert.Equal(t, share.Failed, w.State())

	// The local collection is untouched by the failed workflow.
	assert.Equal(t, before, rec.Documents())
}

func TestShareSuccessRefetchesAuthoritativeState(t *testing.T) {
	h := start(t)
	u1 := h.srv.SeedUser("Alice", "alice@acme.org", "pw", "user")
	h.srv.SeedUser("Bob", "bob@acme.org", "pw", "user")
	docID := h.srv.SeedDocument(u1, "plan.txt", []byte("q3 plan"), false)

	ctx := context.Background()
	c, sess := h.client(t, u1)

	rec := state.New(c, func() { _ = sess.Logout() })
	require.NoError(t, rec.Refresh(ctx))

	w := share.New(c)
	w.OnSuccess(func(ctx context.Context) { _ = rec.ApplyShareSuccess(ctx) })

	// Grant view, then upgrade to edit: the entry is replaced, not
	// duplicated.
	require.NoError(t, w.Submit(ctx, docID, "bob@acme.org", model.AccessView))
	require.NoError(t, w.Reset())
	require.NoError(t, w.Submit(ctx, docID, "bob@acme.org", model.AccessEdit))

	fresh, err := c.ListDocuments(ctx)
	require.NoError(t, err)
	assert.Equal(t, fresh, rec.Documents())

	require.Len(t, fresh, 1)
	require.Len(t, fresh[0].SharedWith, 1)
	assert.Equal(t, model.AccessEdit, fresh[0].SharedWith[0].Level)
}

func TestUploadDownloadDelete(t *testing.T) {
	h := start(t)
	u1 := h.srv.SeedUser("Alice", "alice@acme.org", "pw", "user")
	u2 := h.srv.SeedUser("Bob", "bob@acme.org", "pw", "user")

	ctx := context.Background()
	c, sess := h.client(t, u1)
	rec := state.New(c, func() { _ = sess.Logout() })

	doc, err := c.UploadDocument(ctx, strings.NewReader("hello"), "hello.txt", "text/plain")
	require.NoError(t, err)
	rec.ApplyUpload(doc)
	require.Len(t, rec.Documents(), 1)
	assert.Equal(t, "hello.txt", rec.Documents()[0].DisplayName)

	var buf bytes.Buffer
	n, err := c.DownloadDocument(ctx, doc.ID, &buf)
	require.NoError(t, err)
	assert.EqualValues(t, 5, n)
	assert.Equal(t, "hello", buf.String())

	// A non-owner's delete is refused with a forbidden status, which the
	// client treats like any credential problem: the local collection is
	// cleared and the session hook fires.
	bob, err := c.ResolveUserByEmail(ctx, "bob@acme.org")
	require.NoError(t, err)
	require.NoError(t, c.ShareDocument(ctx, doc.ID, bob.ID, model.AccessView))

	bobClient, bobSess := h.client(t, u2)
	bobRec := state.New(bobClient, func() { _ = bobSess.Logout() })
	require.NoError(t, bobRec.Refresh(ctx))
	require.Len(t, bobRec.Documents(), 1)

	err = bobRec.ApplyDelete(ctx, doc.ID)
	assert.ErrorIs(t, err, api.ErrUnauthorized)
	assert.Empty(t, bobRec.Documents())
	assert.False(t, bobSess.Active())

	// The owner deletes for real and the refetch confirms it.
	require.NoError(t, rec.ApplyDelete(ctx, doc.ID))
	assert.Empty(t, rec.Documents())
}

func TestLegacyShapeNormalization(t *testing.T) {
	h := start(t)
	u1 := h.srv.SeedUser("Alice", "alice@acme.org", "pw", "user")
	h.srv.SeedDocument(u1, "old-report.pdf", []byte("x"), true)

	c, _ := h.client(t, u1)
	docs, err := c.ListDocuments(context.Background())
	require.NoError(t, err)
	require.Len(t, docs, 1)

	// Legacy wire fields land in the canonical shape.
	assert.Equal(t, "old-report.pdf", docs[0].DisplayName)
	assert.EqualValues(t, 1, docs[0].SizeBytes)
	assert.Equal(t, u1, docs[0].Owner.ID)
}

func TestAuditGating(t *testing.T) {
	h := start(t)
	admin := h.srv.SeedUser("Root", "root@acme.org", "pw", "user", "admin")
	member := h.srv.SeedUser("Alice", "alice@acme.org", "pw", "user")
	docID := h.srv.SeedDocument(admin, "secret.txt", []byte("x"), false)

	ctx := context.Background()

	// Generate an audit entry.
	adminClient, adminSess := h.client(t, admin)
	require.NoError(t, adminClient.DeleteDocument(ctx, docID))

	v := audit.NewViewer(adminClient, adminSess.Identity)
	view, err := v.Load(ctx)
	require.NoError(t, err)
	assert.False(t, view.Denied)
	require.NotEmpty(t, view.Entries)
	assert.Equal(t, "document.delete", view.Entries[0].Action)
	assert.Equal(t, admin, view.Entries[0].Actor.ID)

	// A plain member is denied locally, before any fetch.
	memberClient, memberSess := h.client(t, member)
	mv := audit.NewViewer(memberClient, memberSess.Identity)
	view, err = mv.Load(ctx)
	require.NoError(t, err)
	assert.True(t, view.Denied)

	// The server enforces the role even when the gate is bypassed.
	direct, err := memberClient.ListAuditEntries(ctx)
	assert.ErrorIs(t, err, api.ErrUnauthorized)
	assert.Nil(t, direct)
}

func TestUnauthorizedTearsSessionDown(t *testing.T) {
	h := start(t)
	u1 := h.srv.SeedUser("Alice", "alice@acme.org", "pw", "user")

	sess := session.Load(filepath.Join(t.TempDir(), "session.json"))
	require.NoError(t, sess.Establish("garbage-token", model.Profile{ID: u1}))

	cfg := config.APIConfig{BaseURL: h.base, RequestTimeout: 5 * time.Second}
	c := api.NewWithHTTPClient(cfg, sess, nil, &http.Client{})

	rec := state.New(c, func() { _ = sess.Logout() })
	err := rec.Refresh(context.Background())

	assert.ErrorIs(t, err, api.ErrUnauthorized)
	assert.Empty(t, rec.Documents())
	assert.False(t, sess.Active())
}

func TestShareUnauthorizedTearsSessionDown(t *testing.T) {
	h := start(t)
	u1 := h.srv.SeedUser("Alice", "alice@acme.org", "pw", "user")

	sess := session.Load(filepath.Join(t.TempDir(), "session.json"))
	require.NoError(t, sess.Establish("garbage-token", model.Profile{ID: u1}))

	cfg := config.APIConfig{BaseURL: h.base, RequestTimeout: 5 * time.Second}
	c := api.NewWithHTTPClient(cfg, sess, nil, &http.Client{})

	w := share.New(c)
	w.OnUnauthorized(func() { _ = sess.Logout() })

	err := w.Submit(context.Background(), "d1", "bob@acme.org", model.AccessView)

	assert.ErrorIs(t, err, api.ErrUnauthorized)
	assert.Equal(t, share.Failed, w.State())
	assert.False(t, sess.Active())
}

// clientByEmail logs a seeded user in through the real login endpoint.
func (h *harness) clientByEmail(t *testing.T, email string) (*api.Client, *session.Session) {
	t.Helper()
	sess := session.Load(filepath.Join(t.TempDir(), "session.json"))
	cfg := config.APIConfig{BaseURL: h.base, RequestTimeout: 5 * time.Second}
	c := api.NewWithHTTPClient(cfg, sess, nil, &http.Client{})

	tok, profile, err := c.Login(context.Background(), email, "pw")
	require.NoError(t, err)
	require.NoError(t, sess.Establish(tok, profile))
	return c, sess
}
