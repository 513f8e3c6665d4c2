package cache

import (
	"sync/atomic"

	"github.com/google/uuid"
)

// Entry 是索引中的一条记录，由索引与后台写入 goroutine 共享。
// ID 与 Metadata 创建后不可变；size/ready 仅通过原子操作读写。
type Entry struct {
	ID       uuid.UUID
	Metadata Metadata

	size  atomic.Int64
	ready atomic.Bool
}

// EntrySnapshot 是 Entry 在某一时刻的只读副本，供列表接口序列化。
type EntrySnapshot struct {
	ID       uuid.UUID `json:"id"`
	Metadata Metadata  `json:"metadata"`
	Ready    bool      `json:"ready"`
	Size     int64     `json:"size"`
}

func newPendingEntry(id uuid.UUID, meta Metadata) *Entry {
	return &Entry{ID: id, Metadata: meta}
}

func newRecoveredEntry(rec Record) *Entry {
	e := &Entry{ID: rec.ID, Metadata: rec.Metadata}
	e.size.Store(rec.Size)
	e.ready.Store(true)
	return e
}

// Ready 报告两个文件是否均已完整落盘。
func (e *Entry) Ready() bool {
	return e.ready.Load()
}

// Size 返回压缩后的字节数，压缩完成前为 0。
func (e *Entry) Size() int64 {
	return e.size.Load()
}

// markReady 只允许 false → true 一次，返回是否由本次调用完成切换。
func (e *Entry) markReady() bool {
	return e.ready.CompareAndSwap(false, true)
}

// Snapshot 复制当前字段。
func (e *Entry) Snapshot() EntrySnapshot {
	return EntrySnapshot{
		ID:       e.ID,
		Metadata: e.Metadata,
		Ready:    e.Ready(),
		Size:     e.Size(),
	}
}
