package handler

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"portfolioapi/internal/assetref"
	"portfolioapi/internal/storage"
)

// MediaProxy serves blobs at their retrieval URLs (/v0/b/{bucket}/o/{path}?alt=media)
// for backends that are not publicly readable.
func MediaProxy(store storage.Storage) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if c.Params("bucket") != store.Bucket() {
			return writeError(c, fiber.StatusNotFound, "NOT_FOUND", "bucket not found")
		}
		key, err := assetref.DecodePath(c.OriginalURL())
		if err != nil {
			return writeError(c, fiber.StatusNotFound, "NOT_FOUND", "object not found")
		}

		rc, info, err := store.Get(c.UserContext(), key)
		if err != nil {
			if errors.Is(err, storage.ErrObjectNotFound) {
				return writeError(c, fiber.StatusNotFound, "NOT_FOUND", "object not found")
			}
			return writeError(c, fiber.StatusBadGateway, "STORAGE_ERROR", "storage unavailable")
		}

		if info.ContentType != "" {
			c.Set(fiber.HeaderContentType, info.ContentType)
		}
		if info.ETag != "" {
			c.Set(fiber.HeaderETag, strconv.Quote(info.ETag))
		}
		c.Set(fiber.HeaderCacheControl, "public, max-age=31536000, immutable")

		size := -1
		if info.Size > 0 {
			size = int(info.Size)
		}
		// fasthttp closes rc once the body has been written.
		return c.SendStream(rc, size)
	}
}
