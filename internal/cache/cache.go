package cache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/blobhub/blobhub/internal/codec"
	"github.com/blobhub/blobhub/internal/logging"
)

// Cache 维护内存索引，并把压缩/落盘交给后台 goroutine。
// 索引锁只在插入与查找时持有，从不跨越压缩或磁盘 I/O。
type Cache struct {
	store  Store
	logger *logrus.Logger

	compress   func([]byte) ([]byte, error)
	decompress func([]byte) ([]byte, error)

	mu      sync.RWMutex
	entries []*Entry
	index   map[uuid.UUID]*Entry
	closed  bool

	inflight sync.WaitGroup
}

// New 同步扫描 Store 重建索引，扫描完成前不会对外提供服务。
// 目录无法读取时返回错误；单个损坏条目由 Store 跳过。
func New(ctx context.Context, store Store, logger *logrus.Logger) (*Cache, error) {
	if store == nil {
		return nil, errors.New("cache store is required")
	}
	if logger == nil {
		return nil, errors.New("logger is required")
	}

	records, err := store.Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("scan cache store: %w", err)
	}

	c := &Cache{
		store:      store,
		logger:     logger,
		compress:   codec.Compress,
		decompress: codec.Decompress,
		entries:    make([]*Entry, 0, len(records)),
		index:      make(map[uuid.UUID]*Entry, len(records)),
	}
	for _, rec := range records {
		if _, dup := c.index[rec.ID]; dup {
			continue
		}
		entry := newRecoveredEntry(rec)
		c.entries = append(c.entries, entry)
		c.index[rec.ID] = entry
	}

	logger.WithFields(logrus.Fields{
		"action":  "cache_recover",
		"entries": len(c.entries),
	}).Info("缓存索引重建完成")
	return c, nil
}

// Store 立即登记一个未就绪条目并返回 Handle，压缩与落盘在后台完成。
// 扩展名校验由传输层负责。Close 之后调用返回已结束且携带 ErrClosed 的 Handle，
// 条目不会进入索引。
func (c *Cache) Store(meta Metadata, raw []byte) *Handle {
	entry := newPendingEntry(uuid.New(), meta)

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return CompletedHandle(entry.ID, ErrClosed)
	}
	c.entries = append(c.entries, entry)
	c.index[entry.ID] = entry
	// inflight.Add 与 closed 检查在同一把锁内，保证 Close 的 Wait 不会与之并发。
	c.inflight.Add(1)
	c.mu.Unlock()

	handle := newHandle(entry.ID)
	go func() {
		defer c.inflight.Done()
		handle.finish(c.persist(entry, raw))
	}()
	return handle
}

// persist 顺序：压缩 → 写 size → .data → .meta → ready。
func (c *Cache) persist(entry *Entry, raw []byte) error {
	started := time.Now()
	fields := logging.EntryFields(entry.ID.String(), entry.Metadata.Username, entry.Metadata.FileExtension)

	compressed, err := c.compress(raw)
	if err != nil {
		c.logger.WithFields(fields).WithError(err).Error("cache_compress_failed")
		return fmt.Errorf("%w: %v", ErrCompress, err)
	}
	entry.size.Store(int64(len(compressed)))

	if _, err := c.store.Persist(context.Background(), entry.ID, compressed, entry.Metadata); err != nil {
		c.logger.WithFields(fields).WithError(err).Error("cache_persist_failed")
		return fmt.Errorf("%w: %v", ErrPersist, err)
	}
	entry.markReady()

	fields["action"] = "cache_store"
	fields["raw_size"] = humanize.Bytes(uint64(len(raw)))
	fields["compressed_size"] = humanize.Bytes(uint64(len(compressed)))
	fields["elapsed_ms"] = time.Since(started).Milliseconds()
	c.logger.WithFields(fields).Debug("缓存条目已落盘")
	return nil
}

// Load 查找条目并读取、解压正文。不检查 ready：与进行中的 Store 竞争时，
// 结果要么是完整数据，要么是 ErrRead/ErrDecode。
func (c *Cache) Load(ctx context.Context, id uuid.UUID) (Metadata, []byte, error) {
	entry, ok := c.lookup(id)
	if !ok {
		return Metadata{}, nil, ErrNotFound
	}

	fields := logging.EntryFields(id.String(), entry.Metadata.Username, entry.Metadata.FileExtension)
	compressed, err := c.store.Read(ctx, id)
	if err != nil {
		if !errors.Is(err, ErrRead) {
			err = fmt.Errorf("%w: %v", ErrRead, err)
		}
		c.logger.WithFields(fields).WithError(err).Warn("cache_read_failed")
		return Metadata{}, nil, err
	}

	raw, err := c.decompress(compressed)
	if err != nil {
		c.logger.WithFields(fields).WithError(err).Error("cache_decode_failed")
		return Metadata{}, nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	return entry.Metadata, raw, nil
}

// Get 返回单个条目的快照。
func (c *Cache) Get(id uuid.UUID) (EntrySnapshot, bool) {
	entry, ok := c.lookup(id)
	if !ok {
		return EntrySnapshot{}, false
	}
	return entry.Snapshot(), true
}

// List 按登记顺序返回整个索引的快照，无副作用。
func (c *Cache) List() []EntrySnapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()

	result := make([]EntrySnapshot, len(c.entries))
	for i, entry := range c.entries {
		result[i] = entry.Snapshot()
	}
	return result
}

// Len 返回索引中的条目数（含未就绪条目）。
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Close 拒绝后续写入，等待所有后台写入结束后释放 Store。重复调用返回 nil。
func (c *Cache) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.mu.Unlock()

	c.inflight.Wait()
	return c.store.Close()
}

func (c *Cache) lookup(id uuid.UUID) (*Entry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	entry, ok := c.index[id]
	return entry, ok
}
