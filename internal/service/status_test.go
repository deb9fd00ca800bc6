package service

import (
	"context"
	"testing"

	"forum_go/internal/model"
	"forum_go/internal/pkg/apperr"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusResolver_Defaults(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	fid := f.forum(t, 0, "", "")

	typ, err := f.status.ForumType(ctx, fid)
	require.NoError(t, err)
	assert.Equal(t, model.ForumTypeForum, typ)

	st, err := f.status.Status(ctx, fid)
	require.NoError(t, err)
	assert.Equal(t, model.ForumOpen, st)

	vis, err := f.status.Visibility(ctx, fid)
	require.NoError(t, err)
	assert.Equal(t, model.VisibilityPublic, vis)

	open, err := f.status.IsOpen(ctx, fid)
	require.NoError(t, err)
	assert.True(t, open)
}

func TestStatusResolver_ClosedInheritsOnlyFromCategories(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	a := f.forum(t, 0, model.ForumTypeCategory, "")
	b := f.forum(t, a, "", "")
	c := f.forum(t, b, "", "")

	require.NoError(t, f.status.Close(ctx, a))

	closed, err := f.status.IsClosed(ctx, c)
	require.NoError(t, err)
	assert.True(t, closed, "closed category closes its descendants")

	self, err := f.status.IsClosedSelf(ctx, c)
	require.NoError(t, err)
	assert.False(t, self)

	require.NoError(t, f.status.Normalize(ctx, a))
	closed, err = f.status.IsClosed(ctx, c)
	require.NoError(t, err)
	assert.False(t, closed, "a closed plain forum does not propagate")

	open, err := f.status.IsOpen(ctx, c)
	require.NoError(t, err)
	assert.True(t, open)

	closed, err = f.status.IsClosed(ctx, a)
	require.NoError(t, err)
	assert.True(t, closed)

	require.NoError(t, f.status.Open(ctx, a))
	require.NoError(t, f.status.Categorize(ctx, a))
	closed, err = f.status.IsClosed(ctx, c)
	require.NoError(t, err)
	assert.False(t, closed)
}

func TestStatusResolver_PrivateInheritsFromAnyAncestor(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	a := f.forum(t, 0, "", model.VisibilityPrivate)
	b := f.forum(t, a, "", "")
	c := f.forum(t, b, "", "")

	for _, id := range []int64{a, b, c} {
		private, err := f.status.IsPrivate(ctx, id)
		require.NoError(t, err)
		assert.True(t, private, id)
	}

	self, err := f.status.IsPrivateSelf(ctx, c)
	require.NoError(t, err)
	assert.False(t, self)

	require.NoError(t, f.status.Publicize(ctx, a))
	private, err := f.status.IsPrivate(ctx, c)
	require.NoError(t, err)
	assert.False(t, private)
}

func TestStatusResolver_HiddenIsSelfOnly(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	a := f.forum(t, 0, "", "")
	b := f.forum(t, a, "", "")
	require.NoError(t, f.status.Hide(ctx, a))

	hidden, err := f.status.IsHidden(ctx, a)
	require.NoError(t, err)
	assert.True(t, hidden)

	hidden, err = f.status.IsHidden(ctx, b)
	require.NoError(t, err)
	assert.False(t, hidden)

	private, err := f.status.IsPrivate(ctx, b)
	require.NoError(t, err)
	assert.False(t, private)
}

func TestStatusResolver_UnknownNode(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	const missing = 99999

	tests := []struct {
		name string
		fn   func(context.Context, int64) (bool, error)
	}{
		{"IsClosed", f.status.IsClosed},
		{"IsOpen", f.status.IsOpen},
		{"IsPrivate", f.status.IsPrivate},
		{"IsHidden", f.status.IsHidden},
		{"IsCategory", f.status.IsCategory},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.fn(ctx, missing)
			require.NoError(t, err)
			assert.False(t, got)
		})
	}

	assert.ErrorIs(t, f.status.Close(ctx, missing), apperr.ErrNodeNotFound)
}

func TestAncestors(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	a := f.forum(t, 0, "", "")
	b := f.forum(t, a, "", "")
	c := f.forum(t, b, "", "")

	root, err := Ancestors(ctx, f.nodes, a)
	require.NoError(t, err)
	assert.Empty(t, root)

	chain, err := Ancestors(ctx, f.nodes, c)
	require.NoError(t, err)
	assert.Equal(t, []int64{b, a}, nodeIDs(chain), "nearest first")
}

func TestStatusResolver_CycleTerminates(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	a := f.forum(t, 0, "", "")
	b := f.forum(t, a, "", "")
	c := f.forum(t, b, "", "")
	// 绕过 ContentService 的校验，直接写出环
	require.NoError(t, f.nodes.Move(ctx, a, c))

	private, err := f.status.IsPrivate(ctx, c)
	require.NoError(t, err)
	assert.False(t, private)

	closed, err := f.status.IsClosed(ctx, b)
	require.NoError(t, err)
	assert.False(t, closed)

	chain, err := Ancestors(ctx, f.nodes, c)
	require.NoError(t, err)
	assert.Len(t, chain, 2)
}
