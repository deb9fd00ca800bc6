package service

import (
	"context"
	"testing"

	"forum_go/internal/model"
	"forum_go/internal/pkg/apperr"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecountEngine_RecountForum(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	fid := f.forum(t, 0, "", "")
	t1 := f.topic(t, fid, 7, 100)
	f.reply(t, t1, 8, 200)
	r2 := f.reply(t, t1, 7, 300)

	// 弄脏缓存
	require.NoError(t, f.meta.Set(ctx, fid, model.MetricTopicCount.Key(), "42"))
	require.NoError(t, f.meta.Set(ctx, fid, model.MetricLastActive.Key(), "garbage"))

	agg, err := f.recount.RecountForum(ctx, fid)
	require.NoError(t, err)
	assert.Equal(t, 1, agg.TopicCount.OrZero())
	assert.Equal(t, 2, agg.ReplyCount.OrZero())
	// 回复作者 7、8 加版块创建者 1
	assert.Equal(t, 3, agg.VoiceCount.OrZero())
	assert.Equal(t, 0, agg.SubforumCount.OrZero())
	assert.Equal(t, r2, agg.LastReplyID.OrZero())
	assert.Equal(t, int64(300), agg.LastActiveAt.OrZero().Unix())

	n, err := f.cache.TopicCount(ctx, fid)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestRecountEngine_Idempotent(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	fid := f.forum(t, 0, "", "")
	t1 := f.topic(t, fid, 7, 100)
	f.reply(t, t1, 8, 200)
	require.NoError(t, f.cache.SetSubforumCount(ctx, fid, 3))

	_, err := f.recount.RecountForum(ctx, fid)
	require.NoError(t, err)
	first, err := f.meta.GetAll(ctx, fid)
	require.NoError(t, err)

	_, err = f.recount.RecountForum(ctx, fid)
	require.NoError(t, err)
	second, err := f.meta.GetAll(ctx, fid)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, "3", second[model.MetricSubforumCount.Key()], "explicit subforum count survives")
}

func TestRecountEngine_EmptyForum(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	fid := f.forum(t, 0, "", "")

	agg, err := f.recount.RecountForum(ctx, fid)
	require.NoError(t, err)
	assert.Equal(t, 0, agg.TopicCount.OrZero())
	assert.Equal(t, 1, agg.VoiceCount.OrZero())
	assert.True(t, agg.LastTopicID.Computed())
	_, ok := agg.LastTopicID.Get()
	assert.False(t, ok)

	raw, ok := f.rawMeta(t, fid, model.MetricLastActive)
	assert.True(t, ok)
	assert.Equal(t, "0", raw)
}

func TestRecountEngine_UnknownForum(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	_, err := f.recount.RecountForum(ctx, 123456)
	assert.ErrorIs(t, err, apperr.ErrNodeNotFound)

	_, err = f.recount.RecountTree(ctx, 123456)
	assert.ErrorIs(t, err, apperr.ErrNodeNotFound)
}

func TestRecountEngine_PersistFailure(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	fid := f.forum(t, 0, "", "")

	f.store.FailNode(fid)
	_, err := f.recount.RecountForum(ctx, fid)
	assert.ErrorIs(t, err, apperr.ErrCachePersist)
	assert.ErrorIs(t, err, errStoreDown)
}

func TestRecountEngine_RecountTreeKeepsGoingOnFailure(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	root := f.forum(t, 0, model.ForumTypeCategory, "")
	a := f.forum(t, root, "", "")
	b := f.forum(t, root, "", "")
	c := f.forum(t, a, "", "")
	f.topic(t, c, 7, 100)
	require.NoError(t, f.cache.Invalidate(ctx, c))

	f.store.FailNode(b)
	report, err := f.recount.RecountTree(ctx, root)
	require.NoError(t, err)

	assert.Equal(t, 4, report.Forums)
	assert.Equal(t, 3, report.Updated)
	require.Len(t, report.Failed, 1)
	assert.Equal(t, b, report.Failed[0].Fid)

	computed, err := f.cache.IsComputed(ctx, c, model.MetricTopicCount)
	require.NoError(t, err)
	assert.True(t, computed)
	raw, _ := f.rawMeta(t, c, model.MetricTopicCount)
	assert.Equal(t, "1", raw)

	computed, err = f.cache.IsComputed(ctx, b, model.MetricTopicCount)
	require.NoError(t, err)
	assert.False(t, computed)
}

func TestRecountEngine_RecountAll(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	r1 := f.forum(t, 0, "", "")
	r2 := f.forum(t, 0, "", "")
	child := f.forum(t, r2, "", "")
	f.topic(t, child, 7, 100)

	report, err := f.recount.RecountAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, report.Forums)
	assert.Equal(t, 3, report.Updated)
	assert.Empty(t, report.Failed)

	for _, id := range []int64{r1, r2, child} {
		snap, err := f.cache.Snapshot(ctx, id)
		require.NoError(t, err)
		assert.True(t, snap.TopicCount.Computed(), id)
		assert.True(t, snap.LastActiveAt.Computed(), id)
	}
}

func TestRecountEngine_CanceledContext(t *testing.T) {
	f := newFixture(t, nil)
	f.forum(t, 0, "", "")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.recount.RecountAll(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
