// Package remote 管理端各状态槽共用的远程数据状态、请求序号与上游错误转换
package remote

import "sync/atomic"

// Phase 远程数据所处阶段
type Phase string

const (
	PhaseIdle    Phase = "idle"
	PhaseLoading Phase = "loading"
	PhaseLoaded  Phase = "loaded"
	PhaseFailed  Phase = "failed"
)

// State 远程数据状态：Loading | Loaded(records) | Failed(reason)
//
// 失败时不携带任何记录。
type State[T any] struct {
	Phase   Phase  `json:"phase"`
	Records []T    `json:"records,omitempty"`
	Reason  string `json:"reason,omitempty"`
}

// Idle 尚未请求
func Idle[T any]() State[T] {
	return State[T]{Phase: PhaseIdle}
}

// Loading 请求中
func Loading[T any]() State[T] {
	return State[T]{Phase: PhaseLoading}
}

// Loaded 已加载
func Loaded[T any](records []T) State[T] {
	if records == nil {
		records = []T{}
	}
	return State[T]{Phase: PhaseLoaded, Records: records}
}

// Failed 加载失败
func Failed[T any](err error) State[T] {
	reason := "unknown error"
	if err != nil {
		reason = err.Error()
	}
	return State[T]{Phase: PhaseFailed, Reason: reason}
}

// IsLoaded 是否已加载
func (s State[T]) IsLoaded() bool {
	return s.Phase == PhaseLoaded
}

// IsFailed 是否失败
func (s State[T]) IsFailed() bool {
	return s.Phase == PhaseFailed
}

// Sequence 单调递增的请求序号，只接受最新一次请求的响应
type Sequence struct {
	n atomic.Uint64
}

// Next 分配新的序号，之前分配的序号全部失效
func (s *Sequence) Next() uint64 {
	return s.n.Add(1)
}

// IsLatest 序号是否仍是最新
func (s *Sequence) IsLatest(seq uint64) bool {
	return s.n.Load() == seq
}

// Current 当前序号
func (s *Sequence) Current() uint64 {
	return s.n.Load()
}
