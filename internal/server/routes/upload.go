package routes

import (
	"encoding/base64"

	"github.com/dustin/go-humanize"
	"github.com/gofiber/fiber/v3"
	"github.com/sirupsen/logrus"

	"github.com/blobhub/blobhub/internal/cache"
	"github.com/blobhub/blobhub/internal/logging"
	"github.com/blobhub/blobhub/internal/server"
)

type uploadRequest struct {
	Metadata cache.Metadata `json:"metadata"`
	File     string         `json:"file"`
}

func uploadHandler(blobs BlobCache, opts Options) fiber.Handler {
	return func(c fiber.Ctx) error {
		requestID := server.RequestID(c)

		var req uploadRequest
		if err := c.Bind().JSON(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"result":  "denied",
				"message": "Could not understand the given data.",
			})
		}

		if !ValidExtension(req.Metadata.FileExtension) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"result":  "denied",
				"message": "The specified extension should only contain alphanumeric characters",
			})
		}

		raw, err := base64.StdEncoding.DecodeString(req.File)
		if err != nil {
			opts.Logger.WithFields(logrus.Fields{
				"action":     "upload",
				"request_id": requestID,
			}).WithError(err).Warn("upload_decode_failed")
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"result":  "failed",
				"message": "Could not understand the given data.",
			})
		}

		handle := blobs.Store(req.Metadata, raw)

		fields := logging.EntryFields(handle.ID.String(), req.Metadata.Username, req.Metadata.FileExtension)
		fields["action"] = "upload"
		fields["request_id"] = requestID
		fields["size"] = humanize.Bytes(uint64(len(raw)))
		opts.Logger.WithFields(fields).Debug("upload accepted")

		if opts.WaitForStore {
			if err := handle.Wait(c.Context()); err != nil {
				opts.Logger.WithFields(fields).WithError(err).Error("upload_store_failed")
				return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
					"result":  "failed",
					"message": "The given data could not be stored.",
				})
			}
		}

		return c.Status(fiber.StatusCreated).JSON(fiber.Map{
			"result":    "created",
			"file_name": handle.ID.String(),
		})
	}
}
