package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/maheshrc27/contentloop/internal/models"
	"github.com/maheshrc27/contentloop/internal/publish"
	"github.com/maheshrc27/contentloop/internal/service"
	"github.com/maheshrc27/contentloop/internal/transfer"
)

type PostHandler struct {
	s    service.PostService
	mode publish.Mode
}

// NewPostHandler uses mode when a publish request does not name one.
func NewPostHandler(s service.PostService, mode publish.Mode) *PostHandler {
	return &PostHandler{s: s, mode: mode}
}

func (h *PostHandler) Register(r fiber.Router) {
	posts := r.Group("/posts")
	posts.Post("/", h.CreatePost)
	posts.Get("/", h.ListPosts)
	posts.Post("/bulk-schedule", h.BulkSchedule)
	posts.Get("/:id", h.GetPost)
	posts.Delete("/:id", h.RemovePost)
	posts.Get("/:id/attempts", h.History)
	posts.Post("/:id/schedule", h.Schedule)
	posts.Post("/:id/publish", h.Publish)
	posts.Post("/:id/retry", h.Retry)
}

func (h *PostHandler) CreatePost(c *fiber.Ctx) error {
	var req transfer.PostCreation
	if err := parseBody(c, &req); err != nil {
		return writeError(c, err)
	}
	post, err := h.s.Create(c.Context(), GetBrandID(c), &req)
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(post)
}

func (h *PostHandler) ListPosts(c *fiber.Ctx) error {
	posts, err := h.s.List(c.Context(), GetBrandID(c), models.PostStatus(c.Query("status")))
	if err != nil {
		return writeError(c, err)
	}
	if posts == nil {
		posts = []*models.SocialPost{}
	}
	return c.JSON(posts)
}

func (h *PostHandler) GetPost(c *fiber.Ctx) error {
	postID, err := paramID(c, "id")
	if err != nil {
		return writeError(c, err)
	}
	post, err := h.s.Get(c.Context(), GetBrandID(c), postID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(post)
}

func (h *PostHandler) RemovePost(c *fiber.Ctx) error {
	postID, err := paramID(c, "id")
	if err != nil {
		return writeError(c, err)
	}
	if err := h.s.Remove(c.Context(), GetBrandID(c), postID); err != nil {
		return writeError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *PostHandler) History(c *fiber.Ctx) error {
	postID, err := paramID(c, "id")
	if err != nil {
		return writeError(c, err)
	}
	attempts, err := h.s.History(c.Context(), GetBrandID(c), postID)
	if err != nil {
		return writeError(c, err)
	}
	if attempts == nil {
		attempts = []*models.PublishAttempt{}
	}
	return c.JSON(attempts)
}

func (h *PostHandler) Schedule(c *fiber.Ctx) error {
	postID, err := paramID(c, "id")
	if err != nil {
		return writeError(c, err)
	}
	var req transfer.ScheduleRequest
	if err := parseBody(c, &req); err != nil {
		return writeError(c, err)
	}
	post, err := h.s.Schedule(c.Context(), GetBrandID(c), postID, req.ScheduledAt)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(post)
}

func (h *PostHandler) Publish(c *fiber.Ctx) error {
	postID, err := paramID(c, "id")
	if err != nil {
		return writeError(c, err)
	}
	var req transfer.PublishRequest
	if len(c.Body()) > 0 {
		if err := parseBody(c, &req); err != nil {
			return writeError(c, err)
		}
	}
	mode := h.mode
	if req.Mode != "" {
		mode = publish.ParseMode(req.Mode)
	}

	post, err := h.s.Publish(c.Context(), GetBrandID(c), postID, mode)
	if err != nil {
		return writeError(c, err)
	}
	status := fiber.StatusAccepted
	if mode == publish.ModeSync {
		status = fiber.StatusOK
	}
	return c.Status(status).JSON(post)
}

func (h *PostHandler) Retry(c *fiber.Ctx) error {
	postID, err := paramID(c, "id")
	if err != nil {
		return writeError(c, err)
	}
	post, err := h.s.Retry(c.Context(), GetBrandID(c), postID)
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusAccepted).JSON(post)
}

func (h *PostHandler) BulkSchedule(c *fiber.Ctx) error {
	var req transfer.BulkScheduleRequest
	if err := parseBody(c, &req); err != nil {
		return writeError(c, err)
	}
	posts, err := h.s.BulkSchedule(c.Context(), GetBrandID(c), &req)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(posts)
}
