package server

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/recover"
	"github.com/gofiber/fiber/v3/middleware/static"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/blobhub/blobhub/internal/logging"
)

// AppOptions controls how the Fiber application is assembled.
type AppOptions struct {
	Logger *logrus.Logger
	// BodyLimit caps request bodies in bytes; uploads above it get a 413.
	BodyLimit int64
	// StaticPath, when it names an existing directory, serves index.html on "/",
	// the front-end bundle from the root and everything else under /static.
	StaticPath   string
	AllowOrigins []string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

const contextKeyRequestID = "_blobhub_request_id"

// NewApp builds a Fiber application with the shared middleware chain and a
// JSON error handler. Routes are registered separately.
func NewApp(opts AppOptions) (*fiber.App, error) {
	if opts.Logger == nil {
		return nil, errors.New("logger is required")
	}
	if opts.BodyLimit <= 0 {
		return nil, fmt.Errorf("invalid body limit: %d", opts.BodyLimit)
	}

	app := fiber.New(fiber.Config{
		CaseSensitive: true,
		BodyLimit:     int(opts.BodyLimit),
		ReadTimeout:   opts.ReadTimeout,
		WriteTimeout:  opts.WriteTimeout,
		ErrorHandler:  errorHandler(opts.Logger, opts.BodyLimit),
	})

	app.Use(recover.New())
	app.Use(requestContextMiddleware(opts.Logger))
	if len(opts.AllowOrigins) > 0 {
		app.Use(cors.New(cors.Config{
			AllowOrigins: opts.AllowOrigins,
			AllowMethods: []string{fiber.MethodGet, fiber.MethodPost, fiber.MethodOptions},
			AllowHeaders: []string{"X-PINGOTHER", fiber.HeaderContentType},
		}))
	}
	if opts.StaticPath != "" {
		if info, err := os.Stat(opts.StaticPath); err == nil && info.IsDir() {
			registerStatic(app, opts.StaticPath)
		} else {
			opts.Logger.WithFields(logrus.Fields{
				"action":      "static_disabled",
				"static_path": opts.StaticPath,
			}).Info("static directory not found, front-end disabled")
		}
	}

	return app, nil
}

// requestContextMiddleware 生成请求 ID 并在请求结束后输出一条访问日志。
func requestContextMiddleware(logger *logrus.Logger) fiber.Handler {
	return func(c fiber.Ctx) error {
		started := time.Now()
		reqID := uuid.NewString()
		c.Locals(contextKeyRequestID, reqID)
		c.Set("X-Request-ID", reqID)

		err := c.Next()

		status := c.Response().StatusCode()
		if err != nil {
			status = statusFromError(err)
		}
		fields := logging.RequestFields(reqID, c.Method(), c.Path(), status)
		fields["action"] = "http_request"
		fields["remote"] = c.IP()
		fields["elapsed_ms"] = time.Since(started).Milliseconds()
		logger.WithFields(fields).Debug("request handled")
		return err
	}
}

func errorHandler(logger *logrus.Logger, bodyLimit int64) fiber.ErrorHandler {
	return func(c fiber.Ctx, err error) error {
		status := statusFromError(err)
		message := err.Error()

		switch {
		case status == fiber.StatusRequestEntityTooLarge:
			message = fmt.Sprintf("Data too large, %s max", humanize.IBytes(uint64(bodyLimit)))
		case status >= fiber.StatusInternalServerError:
			logger.WithFields(logrus.Fields{
				"action":     "http_error",
				"request_id": RequestID(c),
				"path":       c.Path(),
			}).WithError(err).Error("unhandled error")
			message = "internal server error"
		}

		return c.Status(status).JSON(fiber.Map{
			"status":  status,
			"message": message,
		})
	}
}

func statusFromError(err error) int {
	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		return fiberErr.Code
	}
	return fiber.StatusInternalServerError
}

// rootAssets are requested by index.html from "/" and must win over "/:id".
var rootAssets = []string{"style.css", "front.js", "front_bg.wasm"}

func registerStatic(app *fiber.App, root string) {
	app.Get("/", sendFile(filepath.Join(root, "index.html")))
	for _, name := range rootAssets {
		app.Get("/"+name, sendFile(filepath.Join(root, name)))
	}
	app.Get("/static*", static.New(root))
}

func sendFile(path string) fiber.Handler {
	return func(c fiber.Ctx) error {
		return c.SendFile(path)
	}
}

// RequestID returns the request identifier stored by the router middleware.
func RequestID(c fiber.Ctx) string {
	if value := c.Locals(contextKeyRequestID); value != nil {
		if reqID, ok := value.(string); ok {
			return reqID
		}
	}
	return ""
}
