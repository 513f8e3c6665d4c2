package cache

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/gofrs/flock"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const (
	dataExt      = ".data"
	metaExt      = ".meta"
	lockFileName = ".blobhub.lock"
	tempPattern  = ".blob-*"
)

// descriptor 是 .meta 文件的 JSON 结构，字段名沿用既有磁盘格式。
// 使用指针以区分缺失字段与零值。
type descriptor struct {
	Username  *string `json:"username"`
	Extension *string `json:"extension"`
	DataSize  *int64  `json:"data size"`
}

// NewStore 以 basePath 为根目录构建磁盘存储，并独占目录锁，整个进程复用一份实例。
func NewStore(basePath string, logger logrus.FieldLogger) (Store, error) {
	if basePath == "" {
		return nil, errors.New("storage path required")
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	abs, err := filepath.Abs(basePath)
	if err != nil {
		return nil, fmt.Errorf("resolve storage path: %w", err)
	}

	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("create storage path: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("stat storage path: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("storage path %s is not a directory", abs)
	}

	lock := flock.New(filepath.Join(abs, lockFileName))
	locked, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("lock storage path: %w", err)
	}
	if !locked {
		return nil, fmt.Errorf("storage path %s is used by another process", abs)
	}

	return &fileStore{
		basePath: abs,
		lock:     lock,
		logger:   logger,
	}, nil
}

// fileStore 以 uuid 为文件名前缀，每个条目两个文件；id 唯一，因此无需逐条目加锁。
type fileStore struct {
	basePath string
	lock     *flock.Flock
	logger   logrus.FieldLogger
}

func (s *fileStore) Persist(ctx context.Context, id uuid.UUID, compressed []byte, meta Metadata) (int64, error) {
	size := int64(len(compressed))
	if err := s.writeAtomic(ctx, s.dataPath(id), compressed); err != nil {
		return 0, fmt.Errorf("write data file: %w", err)
	}

	payload, err := json.MarshalIndent(descriptor{
		Username:  &meta.Username,
		Extension: &meta.FileExtension,
		DataSize:  &size,
	}, "", "  ")
	if err != nil {
		return 0, fmt.Errorf("encode meta file: %w", err)
	}
	if err := s.writeAtomic(ctx, s.metaPath(id), payload); err != nil {
		return 0, fmt.Errorf("write meta file: %w", err)
	}
	return size, nil
}

func (s *fileStore) Read(ctx context.Context, id uuid.UUID) ([]byte, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	data, err := os.ReadFile(s.dataPath(id))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrRead, err)
	}
	return data, nil
}

func (s *fileStore) Scan(ctx context.Context) ([]Record, error) {
	entries, err := os.ReadDir(s.basePath)
	if err != nil {
		return nil, fmt.Errorf("read storage path: %w", err)
	}

	records := make([]Record, 0, len(entries)/2)
	for _, dirEntry := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		name := dirEntry.Name()
		if filepath.Ext(name) != metaExt {
			continue
		}
		fields := logrus.Fields{"action": "cache_scan", "file": name}
		if !dirEntry.Type().IsRegular() {
			s.logger.WithFields(fields).Warn("skip non-regular meta entry")
			continue
		}

		stem := strings.TrimSuffix(name, metaExt)
		id, err := uuid.Parse(stem)
		if err != nil || id.String() != stem {
			s.logger.WithFields(fields).Warn("skip meta file with invalid id")
			continue
		}

		record, err := s.readDescriptor(id)
		if err != nil {
			s.logger.WithFields(fields).WithError(err).Warn("skip malformed meta file")
			continue
		}
		records = append(records, record)
	}
	return records, nil
}

func (s *fileStore) Close() error {
	if s.lock == nil {
		return nil
	}
	return s.lock.Unlock()
}

func (s *fileStore) readDescriptor(id uuid.UUID) (Record, error) {
	raw, err := os.ReadFile(s.metaPath(id))
	if err != nil {
		return Record{}, err
	}

	var desc descriptor
	if err := json.Unmarshal(raw, &desc); err != nil {
		return Record{}, fmt.Errorf("decode meta: %w", err)
	}
	switch {
	case desc.Username == nil:
		return Record{}, errors.New("missing username")
	case desc.Extension == nil:
		return Record{}, errors.New("missing extension")
	case desc.DataSize == nil:
		return Record{}, errors.New("missing data size")
	case *desc.DataSize < 0:
		return Record{}, fmt.Errorf("negative data size %d", *desc.DataSize)
	}

	return Record{
		ID: id,
		Metadata: Metadata{
			Username:      *desc.Username,
			FileExtension: *desc.Extension,
		},
		Size: *desc.DataSize,
	}, nil
}

// writeAtomic 通过临时文件 + fsync + rename 写入目标文件，失败时清理临时文件。
func (s *fileStore) writeAtomic(ctx context.Context, target string, payload []byte) error {
	tempFile, err := os.CreateTemp(s.basePath, tempPattern)
	if err != nil {
		return err
	}
	tempName := tempFile.Name()

	_, err = copyWithContext(ctx, tempFile, bytes.NewReader(payload))
	if err == nil {
		err = tempFile.Sync()
	}
	closeErr := tempFile.Close()
	if err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(tempName)
		return err
	}

	if err := os.Rename(tempName, target); err != nil {
		os.Remove(tempName)
		return err
	}
	return nil
}

func (s *fileStore) dataPath(id uuid.UUID) string {
	return filepath.Join(s.basePath, id.String()+dataExt)
}

func (s *fileStore) metaPath(id uuid.UUID) string {
	return filepath.Join(s.basePath, id.String()+metaExt)
}

func copyWithContext(ctx context.Context, dst io.Writer, src io.Reader) (int64, error) {
	var copied int64
	buf := make([]byte, 32*1024)
	for {
		if err := ctx.Err(); err != nil {
			return copied, err
		}
		n, err := src.Read(buf)
		if n > 0 {
			w, wErr := dst.Write(buf[:n])
			copied += int64(w)
			if wErr != nil {
				return copied, wErr
			}
			if w < n {
				return copied, io.ErrShortWrite
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return copied, nil
			}
			return copied, err
		}
	}
}
