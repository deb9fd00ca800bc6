package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"forum_go/internal/core/logger"
	"forum_go/internal/model"
	"forum_go/internal/pkg/apperr"
	"forum_go/internal/repository"

	"golang.org/x/sync/errgroup"
)

// RecountEngine 忽略缓存，全量重算版块聚合
// 用于修复和批量导入后的首次填充
type RecountEngine struct {
	tree    repository.ContentTree
	meta    repository.MetaStore
	fresh   *FreshnessTracker
	workers int
}

// RecountFailure 单个版块重算失败
type RecountFailure struct {
	Fid   int64  `json:"fid"`
	Error string `json:"error"`
}

// RecountReport 子树重算结果
type RecountReport struct {
	Forums   int              `json:"forums"`
	Updated  int              `json:"updated"`
	Failed   []RecountFailure `json:"failed,omitempty"`
	Duration time.Duration    `json:"duration"`
}

// NewRecountEngine 创建 RecountEngine；workers 为并发重算的版块数
func NewRecountEngine(tree repository.ContentTree, meta repository.MetaStore, fresh *FreshnessTracker, workers int) *RecountEngine {
	if workers <= 0 {
		workers = 1
	}
	return &RecountEngine{tree: tree, meta: meta, fresh: fresh, workers: workers}
}

// RecountForum 重算单个版块的全部指标，一次 SetMany 原子写入
// 子版块数只保留显式设置的值，否则为 0
func (e *RecountEngine) RecountForum(ctx context.Context, forumID int64) (*model.ForumAggregate, error) {
	start := time.Now()
	agg, err := e.recount(ctx, forumID)
	recountDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		recountTotal.WithLabelValues("error").Inc()
		return nil, err
	}
	recountTotal.WithLabelValues("ok").Inc()
	return agg, nil
}

func (e *RecountEngine) recount(ctx context.Context, forumID int64) (*model.ForumAggregate, error) {
	scan, err := scanForum(ctx, e.tree, forumID)
	if err != nil {
		if errors.Is(err, errUnknownForum) {
			return nil, fmt.Errorf("forum %d: %w", forumID, apperr.ErrNodeNotFound)
		}
		return nil, err
	}

	subforums, _, err := e.meta.Get(ctx, forumID, model.MetricSubforumCount.Key())
	if err != nil {
		return nil, err
	}

	agg := &model.ForumAggregate{
		SubforumCount: model.DecodeCount(subforums, true),
		TopicCount:    model.Some(scan.topicCount()),
		ReplyCount:    model.Some(scan.replyCount()),
		VoiceCount:    model.Some(scan.voiceCount()),
	}
	if !agg.SubforumCount.Computed() {
		agg.SubforumCount = model.Some(0)
	}
	e.fresh.computeInto(scan, agg)

	if err := e.meta.SetMany(ctx, forumID, agg.Encode()); err != nil {
		return nil, fmt.Errorf("%w: recount forum %d: %w", apperr.ErrCachePersist, forumID, err)
	}
	return agg, nil
}

// RecountTree 重算以 rootID 为根的整棵版块子树
// 各版块独立写入，某个失败不影响其他版块
func (e *RecountEngine) RecountTree(ctx context.Context, rootID int64) (*RecountReport, error) {
	if _, err := requireForum(ctx, e.tree, rootID); err != nil {
		if errors.Is(err, errUnknownForum) {
			return nil, fmt.Errorf("forum %d: %w", rootID, apperr.ErrNodeNotFound)
		}
		return nil, err
	}
	ids, err := e.collectForums(ctx, []int64{rootID})
	if err != nil {
		return nil, err
	}
	return e.recountMany(ctx, ids)
}

// RecountAll 重算所有版块
func (e *RecountEngine) RecountAll(ctx context.Context) (*RecountReport, error) {
	roots, err := e.tree.Children(ctx, 0, model.KindForum, repository.AnyStatus)
	if err != nil {
		return nil, err
	}
	ids, err := e.collectForums(ctx, nodeIDs(roots))
	if err != nil {
		return nil, err
	}
	return e.recountMany(ctx, ids)
}

// collectForums 按层展开版块子树
func (e *RecountEngine) collectForums(ctx context.Context, roots []int64) ([]int64, error) {
	seen := make(map[int64]struct{}, len(roots))
	var ids []int64
	frontier := roots
	for len(frontier) > 0 {
		next := make([]int64, 0)
		for _, id := range frontier {
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			ids = append(ids, id)
			next = append(next, id)
		}
		children, err := e.tree.ChildrenOf(ctx, next, model.KindForum, repository.AnyStatus)
		if err != nil {
			return nil, err
		}
		frontier = nodeIDs(children)
	}
	return ids, nil
}

func (e *RecountEngine) recountMany(ctx context.Context, ids []int64) (*RecountReport, error) {
	start := time.Now()
	report := &RecountReport{Forums: len(ids)}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)

	for _, id := range ids {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			_, err := e.RecountForum(gctx, id)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				report.Failed = append(report.Failed, RecountFailure{Fid: id, Error: err.Error()})
				logger.Warn("recount forum failed", logger.Int64("fid", id), logger.ErrorField(err))
				return nil
			}
			report.Updated++
			return nil
		})
	}

	err := g.Wait()
	report.Duration = time.Since(start)
	logger.Info("recount finished",
		logger.Int("forums", report.Forums),
		logger.Int("updated", report.Updated),
		logger.Int("failed", len(report.Failed)),
		logger.Duration("duration", report.Duration))
	return report, err
}
