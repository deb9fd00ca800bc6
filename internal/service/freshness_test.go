package service

import (
	"context"
	"testing"

	"forum_go/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLastActive(t *testing.T) {
	topic := &model.Node{ID: 1, Dateline: 500}
	reply := &model.Node{ID: 2, Dateline: 300}

	tests := []struct {
		name    string
		topic   *model.Node
		reply   *model.Node
		want    int64
		present bool
	}{
		{"reply wins over newer topic", topic, reply, 300, true},
		{"topic only", topic, nil, 500, true},
		{"nothing", nil, nil, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			slot := lastActive(tt.topic, tt.reply)
			assert.True(t, slot.Computed())
			at, ok := slot.Get()
			assert.Equal(t, tt.present, ok)
			if ok {
				assert.Equal(t, tt.want, at.Unix())
			}
		})
	}
}

func TestFreshnessTracker_ReplyTimeWinsOverNewerTopic(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	fid := f.forum(t, 0, "", "")
	t1 := f.topic(t, fid, 7, 100)
	f.reply(t, t1, 8, 200)
	t2 := f.topic(t, fid, 9, 300)
	require.NoError(t, f.cache.Invalidate(ctx, fid))

	last, err := f.fresh.LastTopicID(ctx, fid)
	require.NoError(t, err)
	id, ok := last.Get()
	assert.True(t, ok)
	assert.Equal(t, t2, id)

	at, err := f.fresh.LastActive(ctx, fid)
	require.NoError(t, err)
	v, ok := at.Get()
	assert.True(t, ok)
	assert.Equal(t, int64(200), v.Unix())
}

func TestFreshnessTracker_TieBreaksOnID(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	fid := f.forum(t, 0, "", "")
	f.topic(t, fid, 7, 100)
	second := f.topic(t, fid, 7, 100)
	require.NoError(t, f.cache.Invalidate(ctx, fid))

	last, err := f.fresh.LastTopicID(ctx, fid)
	require.NoError(t, err)
	id, _ := last.Get()
	assert.Equal(t, second, id)
}

func TestFreshnessTracker_IgnoresUnpublished(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	fid := f.forum(t, 0, "", "")
	t1 := f.topic(t, fid, 7, 100)
	t2 := f.topic(t, fid, 7, 200)
	r1 := f.reply(t, t1, 8, 150)
	r2 := f.reply(t, t1, 8, 250)

	require.NoError(t, f.content.SetPublishState(ctx, t2, model.StateDraft))
	require.NoError(t, f.content.SetPublishState(ctx, r2, model.StateTrash))

	last, err := f.fresh.LastTopicID(ctx, fid)
	require.NoError(t, err)
	id, _ := last.Get()
	assert.Equal(t, t1, id)

	lastReply, err := f.fresh.LastReplyID(ctx, fid)
	require.NoError(t, err)
	id, _ = lastReply.Get()
	assert.Equal(t, r1, id)

	at, err := f.fresh.LastActive(ctx, fid)
	require.NoError(t, err)
	v, _ := at.Get()
	assert.Equal(t, int64(150), v.Unix())
}

func TestFreshnessTracker_RepliesUnderDraftTopicStillCount(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	fid := f.forum(t, 0, "", "")
	t1 := f.topic(t, fid, 7, 100)
	r1 := f.reply(t, t1, 8, 200)
	require.NoError(t, f.content.SetPublishState(ctx, t1, model.StateDraft))

	_, ok, err := f.cache.LastTopicID(ctx, fid)
	require.NoError(t, err)
	assert.False(t, ok)

	id, ok, err := f.cache.LastReplyID(ctx, fid)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, r1, id)

	n, err := f.cache.ReplyCount(ctx, fid)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestFreshnessTracker_ReplyHookUpdatesInPlace(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	fid := f.forum(t, 0, "", "")
	t1 := f.topic(t, fid, 7, 100)
	_, err := f.cache.Resolve(ctx, fid)
	require.NoError(t, err)

	r1 := f.reply(t, t1, 8, 400)

	raw, ok := f.rawMeta(t, fid, model.MetricLastReplyID)
	require.True(t, ok)
	assert.Equal(t, model.EncodeID(model.Some(r1)), raw)

	raw, ok = f.rawMeta(t, fid, model.MetricLastActive)
	require.True(t, ok)
	assert.Equal(t, "400", raw)
}

func TestFreshnessTracker_UnsetPointerStaysUnset(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	fid := f.forum(t, 0, "", "")
	t1 := f.topic(t, fid, 7, 100)
	f.reply(t, t1, 8, 400)

	for _, m := range []model.Metric{model.MetricLastTopicID, model.MetricLastReplyID, model.MetricLastActive} {
		computed, err := f.cache.IsComputed(ctx, fid, m)
		require.NoError(t, err)
		assert.False(t, computed, m)
	}
}

func TestFreshnessTracker_BackdatedTopicKeepsNewest(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	fid := f.forum(t, 0, "", "")
	newer := f.topic(t, fid, 7, 200)
	_, err := f.cache.Resolve(ctx, fid)
	require.NoError(t, err)

	f.topic(t, fid, 9, 100)

	id, ok, err := f.cache.LastTopicID(ctx, fid)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, newer, id)

	at, ok, err := f.cache.LastActive(ctx, fid)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, int64(200), at.Unix())

	agg, err := f.recount.RecountForum(ctx, fid)
	require.NoError(t, err)
	assert.Equal(t, newer, agg.LastTopicID.OrZero())
	assert.Equal(t, int64(200), agg.LastActiveAt.OrZero().Unix())
}

func TestFreshnessTracker_BackdatedReplyKeepsNewest(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	fid := f.forum(t, 0, "", "")
	t1 := f.topic(t, fid, 7, 100)
	newer := f.reply(t, t1, 8, 300)
	_, err := f.cache.Resolve(ctx, fid)
	require.NoError(t, err)

	f.reply(t, t1, 9, 150)

	id, ok, err := f.cache.LastReplyID(ctx, fid)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, newer, id)

	at, _, err := f.cache.LastActive(ctx, fid)
	require.NoError(t, err)
	assert.Equal(t, int64(300), at.Unix())

	n, err := f.cache.ReplyCount(ctx, fid)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	agg, err := f.recount.RecountForum(ctx, fid)
	require.NoError(t, err)
	assert.Equal(t, newer, agg.LastReplyID.OrZero())
	assert.Equal(t, int64(300), agg.LastActiveAt.OrZero().Unix())
}

func TestFreshnessTracker_StalePointerInvalidated(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	fid := f.forum(t, 0, "", "")
	t1 := f.topic(t, fid, 7, 100)
	_, err := f.cache.Resolve(ctx, fid)
	require.NoError(t, err)

	// 记录指向一个不存在的回复
	require.NoError(t, f.meta.Set(ctx, fid, model.MetricLastReplyID.Key(), "999999"))

	r1 := f.reply(t, t1, 8, 50)

	computed, err := f.cache.IsComputed(ctx, fid, model.MetricLastReplyID)
	require.NoError(t, err)
	assert.False(t, computed)

	id, ok, err := f.cache.LastReplyID(ctx, fid)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, r1, id)
}
