package rooms

import (
	"room-mapper/core/errors"
	"room-mapper/core/logger"
	"room-mapper/core/reconcile"
	"room-mapper/feature/feed"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// Handler handles HTTP requests for the room catalog.
type Handler struct {
	service *Service
}

// NewHandler creates a new HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes registers the catalog routes.
func (h *Handler) RegisterRoutes(app fiber.Router) {
	rooms := app.Group("/rooms")
	rooms.Get("/:id", h.HandleGetRoom)
	rooms.Put("/:id/enrichments", h.HandleEnrichRoom)

	conflicts := app.Group("/conflicts")
	conflicts.Get("/", h.HandleListConflicts)
	conflicts.Post("/:id/resolve", h.HandleResolveConflict)

	mappings := app.Group("/mappings")
	mappings.Post("/hotels", h.HandleMapHotel)
	mappings.Post("/rooms", h.HandleMapRoom)
	mappings.Patch("/rooms/:id", h.HandleCurateMapping)

	app.Post("/quality/recalculate", h.HandleRecalculateQuality)
}

// HandleGetRoom returns the unified view of a canonical room.
func (h *Handler) HandleGetRoom(c *fiber.Ctx) error {
	id := c.Params("id")
	view, err := h.service.GetUnifiedRoomData(c.Context(), id)
	if err != nil {
		return h.fail(c, err)
	}
	if view == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "room not found"})
	}
	return c.JSON(view)
}

// HandleEnrichRoom upserts enrichment items for a room. The body is a JSON array of items.
func (h *Handler) HandleEnrichRoom(c *fiber.Ctx) error {
	var items []EnrichmentItem
	if err := c.BodyParser(&items); err != nil {
		return badRequest(c, "invalid body: "+err.Error())
	}
	if err := h.service.EnrichRoomContent(c.Context(), c.Params("id"), items); err != nil {
		return h.fail(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// HandleListConflicts lists conflicts, optionally filtered by ?status=.
func (h *Handler) HandleListConflicts(c *fiber.Ctx) error {
	conflicts, err := h.service.GetConflicts(c.Context(), reconcile.Status(c.Query("status")))
	if err != nil {
		return h.fail(c, err)
	}
	if conflicts == nil {
		conflicts = []reconcile.Conflict{}
	}
	return c.JSON(conflicts)
}

type resolveRequest struct {
	Strategy      reconcile.Strategy `json:"strategy"`
	SourceToApply string             `json:"sourceToApply"`
}

// HandleResolveConflict resolves a conflict with the strategy in the body.
func (h *Handler) HandleResolveConflict(c *fiber.Ctx) error {
	var req resolveRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid body: "+err.Error())
	}
	conflict, err := h.service.ResolveConflict(c.Context(), c.Params("id"), req.Strategy, req.SourceToApply)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(conflict)
}

type mapHotelRequest struct {
	Source   string `json:"source"`
	SourceID string `json:"sourceId"`
	HotelID  string `json:"hotelId"`
}

// HandleMapHotel binds a source hotel id to an internal hotel.
func (h *Handler) HandleMapHotel(c *fiber.Ctx) error {
	var req mapHotelRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid body: "+err.Error())
	}
	m, err := h.service.MapHotel(c.Context(), req.Source, req.SourceID, req.HotelID)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(m)
}

type mapRoomRequest struct {
	HotelSourceID string              `json:"hotelSourceId"`
	RoomSourceID  string              `json:"roomSourceId"`
	Source        string              `json:"source"`
	Room          feed.NormalizedRoom `json:"room"`
	Confidence    *float64            `json:"confidence"`
	MappingType   MappingType         `json:"mappingType"`
	Primary       bool                `json:"primary"`
}

// HandleMapRoom maps a single room observation, typically a manual curation.
func (h *Handler) HandleMapRoom(c *fiber.Ctx) error {
	var req mapRoomRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid body: "+err.Error())
	}
	if req.Room.Attributes == nil {
		req.Room.Attributes = map[string]string{}
	}

	var opts []MapOption
	if req.Confidence != nil {
		opts = append(opts, WithConfidence(*req.Confidence))
	}
	if req.MappingType != "" {
		opts = append(opts, WithMappingType(req.MappingType))
	}
	if req.Primary {
		opts = append(opts, AsPrimary())
	}

	res, err := h.service.MapRoom(c.Context(), req.HotelSourceID, req.RoomSourceID, req.Source, req.Room, opts...)
	if err != nil {
		return h.fail(c, err)
	}
	status := fiber.StatusOK
	if res.Created {
		status = fiber.StatusCreated
	}
	return c.Status(status).JSON(res)
}

// HandleCurateMapping edits type, confidence or primary flag of a room mapping.
func (h *Handler) HandleCurateMapping(c *fiber.Ctx) error {
	var req MappingCuration
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid body: "+err.Error())
	}
	m, err := h.service.CurateMapping(c.Context(), c.Params("id"), req)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(m)
}

// HandleRecalculateQuality rescores every room mapping.
func (h *Handler) HandleRecalculateQuality(c *fiber.Ctx) error {
	n, err := h.service.BulkRecalculateQualityScores(c.Context())
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(fiber.Map{"updated": n})
}

// fail maps service errors onto HTTP statuses.
func (h *Handler) fail(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, errors.ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, errors.ErrInvalidInput):
		return badRequest(c, err.Error())
	}
	logger.WithRayID(h.service.logger, c).Error("Request failed", zap.String("path", c.Path()), zap.Error(err))
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
}

func badRequest(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": msg})
}
