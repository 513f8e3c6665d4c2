package codec

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/andybalholm/brotli"
)

// Quality 是全局固定的压缩等级（0..11），5 在速度与压缩率之间折中。
const Quality = 5

// ErrCorrupt 表示输入不是完整有效的 brotli 流（截断或损坏）。
var ErrCorrupt = errors.New("codec: corrupt compressed stream")

// Compress 以固定等级压缩整块数据，返回的切片长度即落盘大小。
func Compress(raw []byte) ([]byte, error) {
	var buf bytes.Buffer
	w := brotli.NewWriterLevel(&buf, Quality)
	if _, err := w.Write(raw); err != nil {
		_ = w.Close()
		return nil, fmt.Errorf("codec: compress: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("codec: flush: %w", err)
	}
	return buf.Bytes(), nil
}

// Decompress 还原 Compress 的输出；任何解码失败都包装为 ErrCorrupt。
func Decompress(compressed []byte) ([]byte, error) {
	r := brotli.NewReader(bytes.NewReader(compressed))
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	return raw, nil
}
