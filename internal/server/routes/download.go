package routes

import (
	"encoding/base64"
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/blobhub/blobhub/internal/cache"
	"github.com/blobhub/blobhub/internal/server"
)

type downloadResponse struct {
	Metadata cache.Metadata `json:"metadata"`
	File     string         `json:"file"`
}

func downloadHandler(blobs BlobCache, opts Options) fiber.Handler {
	return func(c fiber.Ctx) error {
		rawID := c.Params("id")
		id, err := uuid.Parse(rawID)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"result":  "denied",
				"message": fmt.Sprintf("could not understand given id: %s", rawID),
			})
		}

		meta, data, err := blobs.Load(c.Context(), id)
		switch {
		case err == nil:
		case errors.Is(err, cache.ErrNotFound):
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"result":  "not_found",
				"message": fmt.Sprintf("no file stored under id: %s", id),
			})
		default:
			opts.Logger.WithFields(logrus.Fields{
				"action":     "download",
				"request_id": server.RequestID(c),
				"entry_id":   id.String(),
			}).WithError(err).Error("download_failed")
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"result":  "failed",
				"message": "The requested file could not be read.",
			})
		}

		return c.JSON(downloadResponse{
			Metadata: meta,
			File:     base64.StdEncoding.EncodeToString(data),
		})
	}
}
