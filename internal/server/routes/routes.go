package routes

import (
	"context"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/blobhub/blobhub/internal/cache"
)

// BlobCache 是路由层依赖的缓存能力，测试中可注入替身。
type BlobCache interface {
	Store(meta cache.Metadata, raw []byte) *cache.Handle
	Load(ctx context.Context, id uuid.UUID) (cache.Metadata, []byte, error)
	List() []cache.EntrySnapshot
}

// Options 汇总路由层的运行参数。
type Options struct {
	Logger *logrus.Logger
	// WaitForStore 为 true 时，上传请求会等待压缩落盘完成后再响应。
	WaitForStore bool
}

// Register 挂载全部 blob 路由。/cache_list 必须先于 /:id 注册。
func Register(app *fiber.App, blobs BlobCache, opts Options) {
	if app == nil || blobs == nil {
		return
	}
	if opts.Logger == nil {
		opts.Logger = logrus.StandardLogger()
	}

	RegisterDashboardRoutes(app, blobs)
	app.Post("/json", uploadHandler(blobs, opts))
	app.Get("/:id", downloadHandler(blobs, opts))
}
