package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// metaCacheHits meta 缓存命中（l1 / l2）
	metaCacheHits = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "forum_meta_cache_hits_total",
		Help: "Total node meta cache hits by layer",
	}, []string{"layer"})

	// metaCacheMisses meta 缓存未命中，回源数据库
	metaCacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "forum_meta_cache_misses_total",
		Help: "Total node meta cache misses",
	})

	// aggregateReads 聚合读取，result = stored | computed
	aggregateReads = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "forum_aggregate_reads_total",
		Help: "Total aggregate reads by metric and result",
	}, []string{"metric", "result"})

	// aggregatePersistErrors 计算完成但写回失败
	aggregatePersistErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "forum_aggregate_persist_errors_total",
		Help: "Total aggregate values computed but not persisted",
	}, []string{"metric"})

	// recountDuration 单个版块全量重算耗时
	recountDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "forum_recount_duration_seconds",
		Help:    "Per-forum recount duration in seconds",
		Buckets: prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~4s
	})

	// recountTotal 重算结果
	recountTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "forum_recount_total",
		Help: "Total forum recounts by result",
	}, []string{"result"})
)
