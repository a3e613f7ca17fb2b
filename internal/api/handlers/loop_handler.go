package handlers

import (
	"bytes"
	"fmt"
	"io"
	"mime/multipart"

	"github.com/gofiber/fiber/v2"
	"github.com/maheshrc27/contentloop/internal/models"
	"github.com/maheshrc27/contentloop/internal/service"
	"github.com/maheshrc27/contentloop/internal/transfer"
)

type LoopHandler struct {
	s     service.LoopService
	media service.MediaService
}

func NewLoopHandler(s service.LoopService, media service.MediaService) *LoopHandler {
	return &LoopHandler{s: s, media: media}
}

func (h *LoopHandler) Register(r fiber.Router) {
	loops := r.Group("/loops")
	loops.Post("/", h.CreateLoop)
	loops.Get("/", h.ListLoops)
	loops.Get("/:id", h.GetLoop)
	loops.Patch("/:id", h.UpdateLoop)
	loops.Delete("/:id", h.DeleteLoop)

	loops.Get("/:id/items", h.ListItems)
	loops.Post("/:id/items", h.AddItem)
	loops.Put("/:id/items/:itemId", h.UpdateItem)
	loops.Delete("/:id/items/:itemId", h.RemoveItem)
	loops.Post("/:id/items/:itemId/media", h.UploadMedia)
	loops.Put("/:id/order", h.Reorder)
	loops.Post("/:id/prune", h.PruneDangling)
	loops.Put("/:id/schedules", h.ReplaceSchedules)
	loops.Post("/:id/import/csv", h.ImportCSV)
	loops.Post("/:id/import/feed", h.ImportFeed)
}

func (h *LoopHandler) CreateLoop(c *fiber.Ctx) error {
	var req transfer.LoopCreation
	if err := parseBody(c, &req); err != nil {
		return writeError(c, err)
	}
	loop, err := h.s.Create(c.Context(), GetBrandID(c), &req)
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(loop)
}

func (h *LoopHandler) ListLoops(c *fiber.Ctx) error {
	loops, err := h.s.List(c.Context(), GetBrandID(c))
	if err != nil {
		return writeError(c, err)
	}
	if loops == nil {
		loops = []*models.Loop{}
	}
	return c.JSON(loops)
}

func (h *LoopHandler) GetLoop(c *fiber.Ctx) error {
	loopID, err := paramID(c, "id")
	if err != nil {
		return writeError(c, err)
	}
	detail, err := h.s.Get(c.Context(), GetBrandID(c), loopID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(detail)
}

func (h *LoopHandler) UpdateLoop(c *fiber.Ctx) error {
	loopID, err := paramID(c, "id")
	if err != nil {
		return writeError(c, err)
	}
	var req transfer.LoopUpdate
	if err := parseBody(c, &req); err != nil {
		return writeError(c, err)
	}
	loop, err := h.s.Update(c.Context(), GetBrandID(c), loopID, &req)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(loop)
}

func (h *LoopHandler) DeleteLoop(c *fiber.Ctx) error {
	loopID, err := paramID(c, "id")
	if err != nil {
		return writeError(c, err)
	}
	if err := h.s.Delete(c.Context(), GetBrandID(c), loopID); err != nil {
		return writeError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *LoopHandler) ListItems(c *fiber.Ctx) error {
	loopID, err := paramID(c, "id")
	if err != nil {
		return writeError(c, err)
	}
	items, err := h.s.ListItems(c.Context(), GetBrandID(c), loopID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(items)
}

func (h *LoopHandler) AddItem(c *fiber.Ctx) error {
	loopID, err := paramID(c, "id")
	if err != nil {
		return writeError(c, err)
	}
	var req transfer.ItemCreation
	if err := parseBody(c, &req); err != nil {
		return writeError(c, err)
	}
	item, err := h.s.AddItem(c.Context(), GetBrandID(c), loopID, &req)
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(item)
}

func (h *LoopHandler) UpdateItem(c *fiber.Ctx) error {
	loopID, itemID, err := loopAndItem(c)
	if err != nil {
		return writeError(c, err)
	}
	var req transfer.ContentInput
	if err := parseBody(c, &req); err != nil {
		return writeError(c, err)
	}
	item, err := h.s.UpdateItemContent(c.Context(), GetBrandID(c), loopID, itemID, &req)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(item)
}

func (h *LoopHandler) RemoveItem(c *fiber.Ctx) error {
	loopID, itemID, err := loopAndItem(c)
	if err != nil {
		return writeError(c, err)
	}
	if err := h.s.RemoveItem(c.Context(), GetBrandID(c), loopID, itemID); err != nil {
		return writeError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *LoopHandler) UploadMedia(c *fiber.Ctx) error {
	loopID, itemID, err := loopAndItem(c)
	if err != nil {
		return writeError(c, err)
	}
	data, err := formFile(c, "file", service.MaxMediaBytes)
	if err != nil {
		return writeError(c, err)
	}

	ref, err := h.media.Upload(c.Context(), GetBrandID(c), data)
	if err != nil {
		return writeError(c, err)
	}
	item, err := h.s.AttachMedia(c.Context(), GetBrandID(c), loopID, itemID, ref)
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(item)
}

func (h *LoopHandler) Reorder(c *fiber.Ctx) error {
	loopID, err := paramID(c, "id")
	if err != nil {
		return writeError(c, err)
	}
	var req transfer.ReorderRequest
	if err := parseBody(c, &req); err != nil {
		return writeError(c, err)
	}
	items, err := h.s.Reorder(c.Context(), GetBrandID(c), loopID, req.ItemIDs)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(items)
}

func (h *LoopHandler) PruneDangling(c *fiber.Ctx) error {
	loopID, err := paramID(c, "id")
	if err != nil {
		return writeError(c, err)
	}
	n, err := h.s.PruneDangling(c.Context(), GetBrandID(c), loopID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(fiber.Map{"pruned": n})
}

func (h *LoopHandler) ReplaceSchedules(c *fiber.Ctx) error {
	loopID, err := paramID(c, "id")
	if err != nil {
		return writeError(c, err)
	}
	var req transfer.ScheduleReplace
	if err := parseBody(c, &req); err != nil {
		return writeError(c, err)
	}
	schedules := make([]models.LoopSchedule, 0, len(req.Schedules))
	for _, in := range req.Schedules {
		schedules = append(schedules, in.Schedule())
	}
	saved, err := h.s.ReplaceSchedules(c.Context(), GetBrandID(c), loopID, schedules)
	if err != nil {
		return writeError(c, err)
	}
	if saved == nil {
		saved = []models.LoopSchedule{}
	}
	return c.JSON(saved)
}

func (h *LoopHandler) ImportCSV(c *fiber.Ctx) error {
	loopID, err := paramID(c, "id")
	if err != nil {
		return writeError(c, err)
	}
	data, err := formFile(c, "file", 5<<20)
	if err != nil {
		return writeError(c, err)
	}
	res, err := h.s.ImportCSV(c.Context(), GetBrandID(c), loopID, bytes.NewReader(data))
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(res)
}

func (h *LoopHandler) ImportFeed(c *fiber.Ctx) error {
	loopID, err := paramID(c, "id")
	if err != nil {
		return writeError(c, err)
	}
	var req transfer.ImportFeedRequest
	if err := parseBody(c, &req); err != nil {
		return writeError(c, err)
	}
	res, err := h.s.ImportFeed(c.Context(), GetBrandID(c), loopID, &req)
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(res)
}

func loopAndItem(c *fiber.Ctx) (int64, int64, error) {
	loopID, err := paramID(c, "id")
	if err != nil {
		return 0, 0, err
	}
	itemID, err := paramID(c, "itemId")
	if err != nil {
		return 0, 0, err
	}
	return loopID, itemID, nil
}

// formFile reads one uploaded file of at most limit bytes.
func formFile(c *fiber.Ctx, field string, limit int64) ([]byte, error) {
	fh, err := c.FormFile(field)
	if err != nil {
		return nil, fmt.Errorf("%w: missing %q file", models.ErrInvalidInput, field)
	}
	if fh.Size > limit {
		return nil, fmt.Errorf("%w: file exceeds %d bytes", models.ErrInvalidInput, limit)
	}
	return readFile(fh, limit)
}

func readFile(fh *multipart.FileHeader, limit int64) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(io.LimitReader(f, limit))
}
