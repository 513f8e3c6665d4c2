package cache

import (
	"context"

	"github.com/google/uuid"
)

// Handle 跟踪一次 Store 的后台压缩与落盘，调用方可选择等待或直接忽略。
type Handle struct {
	ID uuid.UUID

	done chan struct{}
	err  error
}

func newHandle(id uuid.UUID) *Handle {
	return &Handle{ID: id, done: make(chan struct{})}
}

// Done 在后台任务结束（成功或失败）时关闭。
func (h *Handle) Done() <-chan struct{} {
	return h.done
}

// Wait 阻塞直到后台任务结束或 ctx 取消；ctx 取消不会中止后台任务本身。
func (h *Handle) Wait(ctx context.Context) error {
	select {
	case <-h.done:
		return h.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Err 返回最终结果；任务未结束时返回 nil。
func (h *Handle) Err() error {
	select {
	case <-h.done:
		return h.err
	default:
		return nil
	}
}

func (h *Handle) finish(err error) {
	h.err = err
	close(h.done)
}

// CompletedHandle 返回一个已结束的 Handle，供不经过后台任务的调用方使用。
func CompletedHandle(id uuid.UUID, err error) *Handle {
	h := newHandle(id)
	h.finish(err)
	return h
}
