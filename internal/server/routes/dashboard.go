package routes

import (
	"github.com/gofiber/fiber/v3"

	"github.com/blobhub/blobhub/internal/cache"
)

// Lister 暴露只读的索引快照。
type Lister interface {
	List() []cache.EntrySnapshot
}

// RegisterDashboardRoutes 暴露 /cache_list 诊断接口，返回完整的内存索引。
func RegisterDashboardRoutes(app *fiber.App, lister Lister) {
	if app == nil || lister == nil {
		return
	}

	app.Get("/cache_list", func(c fiber.Ctx) error {
		return c.JSON(lister.List())
	})
}
