package rayid

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

const (
	// HeaderName is echoed on every response and honored on requests.
	HeaderName = "X-Ray-ID"
	// LocalsKey is where handlers and logger.WithRayID find the id.
	LocalsKey = "ray_id"
)

// New returns middleware that assigns a ray id to each request.
// An incoming X-Ray-ID header is reused so upstream proxies can correlate.
func New() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Get(HeaderName)
		if id == "" {
			id = uuid.NewString()
		}
		c.Locals(LocalsKey, id)
		c.Set(HeaderName, id)
		return c.Next()
	}
}
