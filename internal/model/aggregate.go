package model

import (
	"strconv"
	"time"
)

// Metric 版块聚合指标
type Metric string

const (
	MetricSubforumCount Metric = "subforum_count"
	MetricTopicCount    Metric = "topic_count"
	MetricReplyCount    Metric = "reply_count"
	MetricVoiceCount    Metric = "voice_count"
	MetricLastTopicID   Metric = "last_topic_id"
	MetricLastReplyID   Metric = "last_reply_id"
	MetricLastActive    Metric = "last_active"
)

// AllMetrics 全部指标，顺序固定
var AllMetrics = []Metric{
	MetricSubforumCount,
	MetricTopicCount,
	MetricReplyCount,
	MetricVoiceCount,
	MetricLastTopicID,
	MetricLastReplyID,
	MetricLastActive,
}

// Key 指标在 meta 表中的 key
func (m Metric) Key() string {
	return "_forum_" + string(m)
}

// IsCounter 是否为计数类指标
func (m Metric) IsCounter() bool {
	switch m {
	case MetricSubforumCount, MetricTopicCount, MetricReplyCount, MetricVoiceCount:
		return true
	}
	return false
}

// ParseMetric 解析指标名
func ParseMetric(s string) (Metric, bool) {
	for _, m := range AllMetrics {
		if string(m) == s {
			return m, true
		}
	}
	return "", false
}

type slotState uint8

const (
	slotUnset slotState = iota
	slotEmpty
	slotSome
)

// Slot 缓存槽：区分“从未计算”、“已计算但为空”和“已计算有值”
type Slot[T any] struct {
	state slotState
	val   T
}

// Unset 从未计算
func Unset[T any]() Slot[T] { return Slot[T]{} }

// Empty 已计算，无结果
func Empty[T any]() Slot[T] { return Slot[T]{state: slotEmpty} }

// Some 已计算，有结果
func Some[T any](v T) Slot[T] { return Slot[T]{state: slotSome, val: v} }

// Computed 是否已计算过
func (s Slot[T]) Computed() bool { return s.state != slotUnset }

// Get 取值；未计算或为空时 ok=false
func (s Slot[T]) Get() (T, bool) { return s.val, s.state == slotSome }

// OrZero 取值，无值时返回零值
func (s Slot[T]) OrZero() T { return s.val }

// ForumAggregate 版块聚合数据
type ForumAggregate struct {
	SubforumCount Slot[int]
	TopicCount    Slot[int]
	ReplyCount    Slot[int]
	VoiceCount    Slot[int]
	LastTopicID   Slot[int64]
	LastReplyID   Slot[int64]
	LastActiveAt  Slot[time.Time]
}

// Encode 编码为 meta 存储值
// id 与时间以 "0" 表示已计算但为空
func (a *ForumAggregate) Encode() map[string]string {
	out := make(map[string]string, len(AllMetrics))
	putCount := func(m Metric, s Slot[int]) {
		if s.Computed() {
			out[m.Key()] = EncodeCount(s.OrZero())
		}
	}
	putCount(MetricSubforumCount, a.SubforumCount)
	putCount(MetricTopicCount, a.TopicCount)
	putCount(MetricReplyCount, a.ReplyCount)
	putCount(MetricVoiceCount, a.VoiceCount)
	if a.LastTopicID.Computed() {
		out[MetricLastTopicID.Key()] = EncodeID(a.LastTopicID)
	}
	if a.LastReplyID.Computed() {
		out[MetricLastReplyID.Key()] = EncodeID(a.LastReplyID)
	}
	if a.LastActiveAt.Computed() {
		out[MetricLastActive.Key()] = EncodeTime(a.LastActiveAt)
	}
	return out
}

// DecodeAggregate 从 meta 值还原聚合数据，缺失或格式错误的字段视为未计算
func DecodeAggregate(values map[string]string) *ForumAggregate {
	get := func(m Metric) (string, bool) {
		v, ok := values[m.Key()]
		return v, ok
	}
	a := &ForumAggregate{}
	a.SubforumCount = DecodeCount(get(MetricSubforumCount))
	a.TopicCount = DecodeCount(get(MetricTopicCount))
	a.ReplyCount = DecodeCount(get(MetricReplyCount))
	a.VoiceCount = DecodeCount(get(MetricVoiceCount))
	a.LastTopicID = DecodeID(get(MetricLastTopicID))
	a.LastReplyID = DecodeID(get(MetricLastReplyID))
	a.LastActiveAt = DecodeTime(get(MetricLastActive))
	return a
}

// EncodeCount 编码计数
func EncodeCount(n int) string {
	return strconv.Itoa(n)
}

// DecodeCount 解码计数；空串为历史上的“未计算”标记
func DecodeCount(raw string, ok bool) Slot[int] {
	if !ok || raw == "" {
		return Unset[int]()
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return Unset[int]()
	}
	return Some(n)
}

// EncodeID 编码节点 ID
func EncodeID(s Slot[int64]) string {
	if id, ok := s.Get(); ok {
		return strconv.FormatInt(id, 10)
	}
	return "0"
}

// DecodeID 解码节点 ID
func DecodeID(raw string, ok bool) Slot[int64] {
	if !ok || raw == "" {
		return Unset[int64]()
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id < 0 {
		return Unset[int64]()
	}
	if id == 0 {
		return Empty[int64]()
	}
	return Some(id)
}

// EncodeTime 编码时间（Unix 秒）
func EncodeTime(s Slot[time.Time]) string {
	if t, ok := s.Get(); ok {
		return strconv.FormatInt(t.Unix(), 10)
	}
	return "0"
}

// DecodeTime 解码时间
func DecodeTime(raw string, ok bool) Slot[time.Time] {
	if !ok || raw == "" {
		return Unset[time.Time]()
	}
	ts, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || ts < 0 {
		return Unset[time.Time]()
	}
	if ts == 0 {
		return Empty[time.Time]()
	}
	return Some(time.Unix(ts, 0))
}

// Reading 单个指标的读取结果
type Reading struct {
	Metric  Metric `json:"metric"`
	Value   int64  `json:"value"`   // 计数、节点 ID 或 Unix 秒
	Present bool   `json:"present"` // 指针类指标是否存在
}

// ForumAggregateDTO 聚合数据快照（仅展示已存储的值）
type ForumAggregateDTO struct {
	Fid    int64            `json:"fid"`
	Values map[string]int64 `json:"values"`
	Unset  []string         `json:"unset,omitempty"`
}

// ToDTO 转换为 DTO
func (a *ForumAggregate) ToDTO(fid int64) *ForumAggregateDTO {
	dto := &ForumAggregateDTO{Fid: fid, Values: make(map[string]int64)}
	addCount := func(m Metric, s Slot[int]) {
		if !s.Computed() {
			dto.Unset = append(dto.Unset, string(m))
			return
		}
		dto.Values[string(m)] = int64(s.OrZero())
	}
	addCount(MetricSubforumCount, a.SubforumCount)
	addCount(MetricTopicCount, a.TopicCount)
	addCount(MetricReplyCount, a.ReplyCount)
	addCount(MetricVoiceCount, a.VoiceCount)
	addID := func(m Metric, s Slot[int64]) {
		if !s.Computed() {
			dto.Unset = append(dto.Unset, string(m))
			return
		}
		dto.Values[string(m)] = s.OrZero()
	}
	addID(MetricLastTopicID, a.LastTopicID)
	addID(MetricLastReplyID, a.LastReplyID)
	if !a.LastActiveAt.Computed() {
		dto.Unset = append(dto.Unset, string(MetricLastActive))
	} else if t, ok := a.LastActiveAt.Get(); ok {
		dto.Values[string(MetricLastActive)] = t.Unix()
	} else {
		dto.Values[string(MetricLastActive)] = 0
	}
	return dto
}
