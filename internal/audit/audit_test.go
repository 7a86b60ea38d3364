package audit

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"secureshare/internal/api"
	"secureshare/internal/api/mocks"
	"secureshare/internal/model"
)

func TestIsPrivileged(t *testing.T) {
	assert.True(t, IsPrivileged(model.Identity{ID: "u1", Roles: []string{"member", "admin"}}))
	assert.False(t, IsPrivileged(model.Identity{ID: "u1", Roles: []string{"member"}}))
	assert.False(t, IsPrivileged(model.Identity{ID: "u1"}))
	assert.False(t, IsPrivileged(model.Identity{}))
}

func TestLoadDeniedWithoutFetch(t *testing.T) {
	mStore := new(mocks.MockStore)
	v := NewViewer(mStore, func() model.Identity {
		return model.Identity{ID: "u1", Roles: []string{"member"}}
	})

	view, err := v.Load(context.Background())

	require.NoError(t, err)
	assert.True(t, view.Denied)
	assert.Empty(t, view.Entries)
	mStore.AssertNotCalled(t, "ListAuditEntries", mock.Anything)
}

func TestLoadForAdmin(t *testing.T) {
	ctx := context.Background()
	entries := []model.AuditEntry{{ID: "a1", Action: "document.share"}}

	mStore := new(mocks.MockStore)
	mStore.On("ListAuditEntries", ctx).Return(entries, nil)

	v := NewViewer(mStore, func() model.Identity {
		return model.Identity{ID: "u1", Roles: []string{"admin"}}
	})

	view, err := v.Load(ctx)

	require.NoError(t, err)
	assert.False(t, view.Denied)
	assert.Equal(t, entries, view.Entries)
}

func TestLoadServerOverridesStaleClaim(t *testing.T) {
	ctx := context.Background()
	mStore := new(mocks.MockStore)
	mStore.On("ListAuditEntries", ctx).
		Return(nil, fmt.Errorf("list audit entries: %w", api.ErrUnauthorized))

	v := NewViewer(mStore, func() model.Identity {
		return model.Identity{ID: "u1", Roles: []string{"admin"}}
	})

	view, err := v.Load(ctx)

	require.NoError(t, err)
	assert.True(t, view.Denied)
}

func TestLoadOtherFailuresSurface(t *testing.T) {
	ctx := context.Background()
	mStore := new(mocks.MockStore)
	mStore.On("ListAuditEntries", ctx).
		Return(nil, fmt.Errorf("list audit entries: %w", api.ErrNetworkFailure))

	v := NewViewer(mStore, func() model.Identity {
		return model.Identity{ID: "u1", Roles: []string{"admin"}}
	})

	view, err := v.Load(ctx)

	assert.ErrorIs(t, err, api.ErrNetworkFailure)
	assert.False(t, view.Denied)

	// An admin with an empty trail is an empty list, not denied.
	mStore2 := new(mocks.MockStore)
	mStore2.On("ListAuditEntries", ctx).Return([]model.AuditEntry{}, nil)
	v2 := NewViewer(mStore2, func() model.Identity {
		return model.Identity{ID: "u1", Roles: []string{"admin"}}
	})
	view2, err := v2.Load(ctx)
	require.NoError(t, err)
	assert.False(t, view2.Denied)
	assert.Empty(t, view2.Entries)
}
