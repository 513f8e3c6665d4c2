package cache

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

// Store 负责单个缓存目录的磁盘读写。磁盘布局遵循：
//
//	<StoragePath>/<uuid>.data    # brotli 压缩后的正文
//	<StoragePath>/<uuid>.meta    # JSON 描述：username / extension / data size
//
// .meta 只会在 .data 完整落盘后写入，扫描时仅以 .meta 作为条目存在的凭证。
type Store interface {
	// Persist 依次写入 .data 与 .meta，两者均通过临时文件 + rename 保证原子性，
	// 返回写入的压缩字节数。
	Persist(ctx context.Context, id uuid.UUID, compressed []byte, meta Metadata) (int64, error)

	// Read 读取完整的 .data 内容；文件不存在返回 ErrNotFound，其余 I/O 错误包装 ErrRead。
	Read(ctx context.Context, id uuid.UUID) ([]byte, error)

	// Scan 枚举目录中的 .meta 文件并解析为 Record。损坏条目会被跳过并记录日志，
	// 只有目录本身无法读取时才返回错误。
	Scan(ctx context.Context) ([]Record, error)

	// Close 释放目录锁。
	Close() error
}

// Metadata 是上传方提供的描述信息，存储后不可变。
type Metadata struct {
	Username      string `json:"username"`
	FileExtension string `json:"file_ext"`
}

// Record 是 Scan 从 .meta 文件中恢复出的一条已完成条目。
type Record struct {
	ID       uuid.UUID
	Metadata Metadata
	Size     int64
}

var (
	// ErrNotFound 表示索引或磁盘上不存在该条目。
	ErrNotFound = errors.New("cache entry not found")
	// ErrRead 表示打开或读取 .data 文件失败。
	ErrRead = errors.New("cache entry unreadable")
	// ErrDecode 表示 .data 内容不是有效的压缩流。
	ErrDecode = errors.New("cache entry corrupt")
	// ErrCompress 表示后台压缩失败，条目永远不会就绪。
	ErrCompress = errors.New("cache entry compression failed")
	// ErrPersist 表示后台落盘失败，条目永远不会就绪。
	ErrPersist = errors.New("cache entry persistence failed")
	// ErrClosed 表示 Cache 已关闭，不再接受新的写入。
	ErrClosed = errors.New("cache closed")
)
