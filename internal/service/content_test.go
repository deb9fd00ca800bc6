package service

import (
	"context"
	"testing"

	"forum_go/internal/model"
	"forum_go/internal/pkg/apperr"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContentService_CreateForum(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	parent := f.forum(t, 0, "", "")
	child, err := f.content.CreateForum(ctx, 1, &model.CreateForumRequest{
		ParentID:   parent,
		Title:      "child",
		Type:       model.ForumTypeCategory,
		Visibility: model.VisibilityHidden,
	})
	require.NoError(t, err)
	assert.Equal(t, parent, child.ParentID)
	assert.Equal(t, model.KindForum, child.Kind)

	category, err := f.status.IsCategory(ctx, child.ID)
	require.NoError(t, err)
	assert.True(t, category)
	hidden, err := f.status.IsHidden(ctx, child.ID)
	require.NoError(t, err)
	assert.True(t, hidden)

	_, err = f.content.CreateForum(ctx, 1, &model.CreateForumRequest{Title: "bad", Visibility: "secret"})
	assert.ErrorIs(t, err, apperr.ErrInvalidParams)

	tid := f.topic(t, parent, 7, 100)
	_, err = f.content.CreateForum(ctx, 1, &model.CreateForumRequest{ParentID: tid, Title: "under topic"})
	assert.ErrorIs(t, err, apperr.ErrInvalidParent)
}

func TestContentService_CreateTopicRejections(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	category := f.forum(t, 0, model.ForumTypeCategory, "")
	child := f.forum(t, category, "", "")
	plain := f.forum(t, 0, "", "")

	tests := []struct {
		name    string
		prepare func()
		parent  int64
		wantErr error
	}{
		{"category", func() {}, category, apperr.ErrForumCategory},
		{"closed forum", func() { require.NoError(t, f.status.Close(ctx, plain)) }, plain, apperr.ErrForumClosed},
		{"closed by category ancestor", func() { require.NoError(t, f.status.Close(ctx, category)) }, child, apperr.ErrForumClosed},
		{"unknown parent", func() {}, 31337, apperr.ErrInvalidParent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.prepare()
			_, err := f.content.CreateTopic(ctx, 7, &model.CreatePostRequest{ParentID: tt.parent, Title: "x"})
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestContentService_CreateReply(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	fid := f.forum(t, 0, "", "")
	tid := f.topic(t, fid, 7, 500)

	reply, err := f.content.CreateReply(ctx, 8, &model.CreatePostRequest{ParentID: tid, Title: "re", Dateline: 100})
	require.NoError(t, err)
	assert.Equal(t, int64(500), reply.Dateline, "never older than its topic")

	_, err = f.content.CreateReply(ctx, 8, &model.CreatePostRequest{ParentID: fid, Title: "re"})
	assert.ErrorIs(t, err, apperr.ErrInvalidParent)

	require.NoError(t, f.status.Close(ctx, fid))
	_, err = f.content.CreateReply(ctx, 8, &model.CreatePostRequest{ParentID: tid, Title: "re"})
	assert.ErrorIs(t, err, apperr.ErrForumClosed)
}

func TestContentService_DeleteForum(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	parent := f.forum(t, 0, "", "")
	child := f.forum(t, parent, "", "")

	assert.ErrorIs(t, f.content.Delete(ctx, parent), apperr.ErrNotEmpty)
	require.NoError(t, f.content.Delete(ctx, child))
	require.NoError(t, f.content.Delete(ctx, parent))

	node, err := f.nodes.GetNode(ctx, parent)
	require.NoError(t, err)
	assert.Nil(t, node)

	values, err := f.meta.GetAll(ctx, parent)
	require.NoError(t, err)
	assert.Empty(t, values)

	assert.ErrorIs(t, f.content.Delete(ctx, parent), apperr.ErrNodeNotFound)
}

func TestContentService_DeleteTopicCascades(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	fid := f.forum(t, 0, "", "")
	tid := f.topic(t, fid, 7, 100)
	rid := f.reply(t, tid, 8, 200)

	n, err := f.cache.ReplyCount(ctx, fid)
	require.NoError(t, err)
	require.Equal(t, 1, n)

	require.NoError(t, f.content.Delete(ctx, tid))

	reply, err := f.nodes.GetNode(ctx, rid)
	require.NoError(t, err)
	assert.Nil(t, reply)

	topics, err := f.cache.TopicCount(ctx, fid)
	require.NoError(t, err)
	assert.Equal(t, 0, topics)
	replies, err := f.cache.ReplyCount(ctx, fid)
	require.NoError(t, err)
	assert.Equal(t, 0, replies)
	_, ok, err := f.cache.LastActive(ctx, fid)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestContentService_Move(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	a := f.forum(t, 0, "", "")
	b := f.forum(t, a, "", "")
	c := f.forum(t, b, "", "")
	category := f.forum(t, 0, model.ForumTypeCategory, "")

	assert.ErrorIs(t, f.content.Move(ctx, a, c), apperr.ErrInvalidParent, "cycle")
	assert.ErrorIs(t, f.content.Move(ctx, a, a), apperr.ErrInvalidParent)
	require.NoError(t, f.content.Move(ctx, c, 0))

	tid := f.topic(t, a, 7, 100)
	assert.ErrorIs(t, f.content.Move(ctx, tid, category), apperr.ErrForumCategory)
	assert.ErrorIs(t, f.content.Move(ctx, tid, 0), apperr.ErrInvalidParent)

	// 两个版块都已计算
	for _, id := range []int64{a, b} {
		_, err := f.cache.Resolve(ctx, id)
		require.NoError(t, err)
	}
	require.NoError(t, f.content.Move(ctx, tid, b))

	n, err := f.cache.TopicCount(ctx, a)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	n, err = f.cache.TopicCount(ctx, b)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	last, ok, err := f.cache.LastTopicID(ctx, b)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, tid, last)
}

func TestContentService_MoveReplyBetweenForums(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	a := f.forum(t, 0, "", "")
	b := f.forum(t, 0, "", "")
	ta := f.topic(t, a, 7, 100)
	tb := f.topic(t, b, 7, 100)
	rid := f.reply(t, ta, 8, 200)

	_, err := f.cache.Resolve(ctx, b)
	require.NoError(t, err)
	require.NoError(t, f.content.Move(ctx, rid, tb))

	n, err := f.cache.ReplyCount(ctx, a)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	n, err = f.cache.ReplyCount(ctx, b)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	assert.ErrorIs(t, f.content.Move(ctx, rid, b), apperr.ErrInvalidParent)
}

func TestContentService_SetPublishState(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	fid := f.forum(t, 0, "", "")
	tid := f.topic(t, fid, 7, 100)
	n, err := f.cache.TopicCount(ctx, fid)
	require.NoError(t, err)
	require.Equal(t, 1, n)

	require.NoError(t, f.content.SetPublishState(ctx, tid, model.StatePending))
	computed, err := f.cache.IsComputed(ctx, fid, model.MetricTopicCount)
	require.NoError(t, err)
	assert.False(t, computed)

	n, err = f.cache.TopicCount(ctx, fid)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	require.NoError(t, f.content.SetPublishState(ctx, tid, model.StatePublish))
	n, err = f.cache.TopicCount(ctx, fid)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	assert.ErrorIs(t, f.content.SetPublishState(ctx, tid, "archived"), apperr.ErrInvalidStatus)
	assert.ErrorIs(t, f.content.SetPublishState(ctx, 777, model.StateDraft), apperr.ErrNodeNotFound)
}

func TestForumOf(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	fid := f.forum(t, 0, "", "")
	tid := f.topic(t, fid, 7, 100)
	rid := f.reply(t, tid, 8, 200)

	for _, id := range []int64{fid, tid, rid} {
		forum, err := ForumOf(ctx, f.nodes, id)
		require.NoError(t, err)
		require.NotNil(t, forum)
		assert.Equal(t, fid, forum.ID)
	}

	forum, err := ForumOf(ctx, f.nodes, 4040)
	require.NoError(t, err)
	assert.Nil(t, forum)
}

func TestContentService_ApplyForumAction(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	fid := f.forum(t, 0, "", "")

	require.NoError(t, f.content.ApplyForumAction(ctx, fid, ActionClose))
	closed, err := f.status.IsClosed(ctx, fid)
	require.NoError(t, err)
	assert.True(t, closed)

	require.NoError(t, f.content.ApplyForumAction(ctx, fid, ActionPrivatize))
	private, err := f.status.IsPrivate(ctx, fid)
	require.NoError(t, err)
	assert.True(t, private)

	assert.ErrorIs(t, f.content.ApplyForumAction(ctx, fid, "explode"), apperr.ErrInvalidParams)
	assert.ErrorIs(t, f.content.ApplyForumAction(ctx, 8080, ActionOpen), apperr.ErrNodeNotFound)
}
