package ingest

import (
	"bytes"
	"strconv"

	"room-mapper/core/errors"
	"room-mapper/core/logger"
	"room-mapper/core/utils"
	"room-mapper/feature/rooms"

	"github.com/gofiber/fiber/v2"
	fiberutils "github.com/gofiber/fiber/v2/utils"
	"go.uber.org/zap"
)

// Handler exposes feed ingestion over HTTP.
type Handler struct {
	ingestor      *Ingestor
	defaultPrefix string
}

// NewHandler creates a new HTTP handler. defaultPrefix is swept when a bucket
// ingestion request names no prefix.
func NewHandler(ingestor *Ingestor, defaultPrefix string) *Handler {
	return &Handler{ingestor: ingestor, defaultPrefix: defaultPrefix}
}

// RegisterRoutes registers the feed routes.
func (h *Handler) RegisterRoutes(app fiber.Router) {
	group := app.Group("/feeds")
	group.Post("/", h.HandleIngestBucket)
	group.Post("/:source", h.HandleIngestFeed)
}

// HandleIngestFeed ingests the XML request body as a feed from :source.
// Optional query parameters: confidence, mappingType, primary.
func (h *Handler) HandleIngestFeed(c *fiber.Ctx) error {
	opts, err := mapOptions(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	// The source outlives the request in metric labels and bus events, so it
	// must not alias fasthttp's reused buffer.
	source := fiberutils.CopyString(c.Params("source"))
	sum, err := h.ingestor.IngestFeed(c.Context(), bytes.NewReader(c.Body()), source, opts...)
	if err != nil {
		logger.WithRayID(h.ingestor.logger, c).Warn("Feed rejected", zap.Error(err))
		return c.Status(fiber.StatusUnprocessableEntity).JSON(sum)
	}
	return c.JSON(sum)
}

type bucketRequest struct {
	Prefix string `json:"prefix"`
}

// HandleIngestBucket ingests every feed object under a bucket prefix.
func (h *Handler) HandleIngestBucket(c *fiber.Ctx) error {
	var req bucketRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid body: " + err.Error()})
		}
	}
	if req.Prefix == "" {
		req.Prefix = h.defaultPrefix
	}

	opts, err := mapOptions(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	summaries, err := h.ingestor.IngestPrefix(c.Context(), req.Prefix, opts...)
	if err != nil {
		logger.WithRayID(h.ingestor.logger, c).Error("Bucket ingestion incomplete", zap.String("prefix", req.Prefix), zap.Error(err))
		status := fiber.StatusMultiStatus
		if summaries == nil {
			status = fiber.StatusBadGateway
		}
		return c.Status(status).JSON(fiber.Map{"summaries": summaries, "error": err.Error()})
	}
	return c.JSON(fiber.Map{"summaries": summaries})
}

func mapOptions(c *fiber.Ctx) ([]rooms.MapOption, error) {
	var opts []rooms.MapOption
	if raw := c.Query("confidence"); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, errors.NewValidationError("confidence", raw, "not a number")
		}
		opts = append(opts, rooms.WithConfidence(v))
	}
	if raw := c.Query("mappingType"); raw != "" {
		opts = append(opts, rooms.WithMappingType(rooms.MappingType(raw)))
	}
	if utils.ToBool(c.Query("primary")) {
		opts = append(opts, rooms.AsPrimary())
	}
	return opts, nil
}
