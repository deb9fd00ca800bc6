package service

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"forum_go/internal/core/config"
	"forum_go/internal/model"
	"forum_go/internal/repository"

	"github.com/alicebob/miniredis/v2"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

// seqIDs 测试用递增 ID
type seqIDs struct {
	n atomic.Int64
}

func (g *seqIDs) Generate() int64 {
	return 1000 + g.n.Add(1)
}

var errStoreDown = errors.New("store unavailable")

// flakyStore 可按节点模拟写失败的 MetaStore
type flakyStore struct {
	repository.MetaStore

	mu       sync.Mutex
	failAll  bool
	failNode map[int64]bool
}

func (s *flakyStore) failing(nodeID int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.failAll || s.failNode[nodeID]
}

func (s *flakyStore) FailWrites(on bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failAll = on
}

func (s *flakyStore) FailNode(nodeID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failNode == nil {
		s.failNode = make(map[int64]bool)
	}
	s.failNode[nodeID] = true
}

func (s *flakyStore) Set(ctx context.Context, nodeID int64, key, value string) error {
	if s.failing(nodeID) {
		return errStoreDown
	}
	return s.MetaStore.Set(ctx, nodeID, key, value)
}

func (s *flakyStore) SetMany(ctx context.Context, nodeID int64, values map[string]string) error {
	if s.failing(nodeID) {
		return errStoreDown
	}
	return s.MetaStore.SetMany(ctx, nodeID, values)
}

type fixture struct {
	db      *sqlx.DB
	nodes   repository.NodeRepository
	store   *flakyStore // 底层 node_meta，可注入写失败
	meta    *MetaService
	status  *StatusResolver
	fresh   *FreshnessTracker
	cache   *AggregateCache
	recount *RecountEngine
	hooks   *Hooks
	content *ContentService
	forums  *ForumService
}

func newTestDB(t *testing.T) *sqlx.DB {
	t.Helper()
	db, err := sqlx.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	require.NoError(t, repository.Migrate(context.Background(), db))
	t.Cleanup(func() { db.Close() })
	return db
}

func newRedis(t *testing.T) *redis.Client {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return client
}

var testCacheConfig = &config.CacheConfig{L1Cap: 8, L1TTL: 60, L2TTL: 60}

func newFixture(t *testing.T, aggCfg *config.AggregateConfig) *fixture {
	t.Helper()
	if aggCfg == nil {
		aggCfg = &config.AggregateConfig{IncrementalCounts: true, RecountWorkers: 4}
	}

	db := newTestDB(t)
	f := &fixture{db: db}
	f.nodes = repository.NewNodeRepository(db)
	f.store = &flakyStore{MetaStore: repository.NewMetaRepository(db)}
	f.meta = NewMetaService(f.store, newRedis(t), testCacheConfig)
	f.status = NewStatusResolver(f.nodes, f.meta)
	f.fresh = NewFreshnessTracker(f.nodes, f.meta)
	f.cache = NewAggregateCache(f.nodes, f.meta, f.fresh)
	f.recount = NewRecountEngine(f.nodes, f.meta, f.fresh, aggCfg.RecountWorkers)
	f.hooks = NewHooks(f.nodes, f.cache, f.fresh, aggCfg)
	f.content = NewContentService(f.nodes, f.meta, f.status, f.hooks, &seqIDs{})
	f.forums = NewForumService(f.nodes, f.status, f.cache)
	return f
}

func (f *fixture) forum(t *testing.T, parentID int64, typ model.ForumType, vis model.Visibility) int64 {
	t.Helper()
	n, err := f.content.CreateForum(context.Background(), 1, &model.CreateForumRequest{
		ParentID:   parentID,
		Title:      "forum",
		Type:       typ,
		Visibility: vis,
	})
	require.NoError(t, err)
	return n.ID
}

func (f *fixture) topic(t *testing.T, forumID, authorID, dateline int64) int64 {
	t.Helper()
	n, err := f.content.CreateTopic(context.Background(), authorID, &model.CreatePostRequest{
		ParentID: forumID,
		Title:    "topic",
		Dateline: dateline,
	})
	require.NoError(t, err)
	return n.ID
}

func (f *fixture) reply(t *testing.T, topicID, authorID, dateline int64) int64 {
	t.Helper()
	n, err := f.content.CreateReply(context.Background(), authorID, &model.CreatePostRequest{
		ParentID: topicID,
		Title:    "re: topic",
		Dateline: dateline,
	})
	require.NoError(t, err)
	return n.ID
}

// rawMeta 绕过缓存直接读 node_meta
func (f *fixture) rawMeta(t *testing.T, nodeID int64, m model.Metric) (string, bool) {
	t.Helper()
	v, ok, err := f.store.MetaStore.Get(context.Background(), nodeID, m.Key())
	require.NoError(t, err)
	return v, ok
}
