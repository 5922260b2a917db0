package handlers

import (
	"encoding/json"
	"mime/multipart"

	"github.com/arnold/esg-pledges-api/internal/middleware"
	"github.com/arnold/esg-pledges-api/internal/models"
	"github.com/arnold/esg-pledges-api/internal/services"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// PledgeHandler serves one category's pledges, completions and awards. The
// same handler type is mounted under /epledges, /spledges and /gpledges.
type PledgeHandler struct {
	category    models.Category
	pledges     *services.PledgeService
	completions *services.CompletionService
	awards      *services.AwardService
}

func NewPledgeHandler(category models.Category, pledges *services.PledgeService, completions *services.CompletionService, awards *services.AwardService) *PledgeHandler {
	return &PledgeHandler{
		category:    category,
		pledges:     pledges,
		completions: completions,
		awards:      awards,
	}
}

func (h *PledgeHandler) present(p models.Pledge) models.Pledge {
	p.ImageURL = h.pledges.ImageURL(p.ImageURL)
	return p
}

func parseID(c *fiber.Ctx, entity string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return uuid.Nil, models.NotFound(entity)
	}
	return id, nil
}

// imageFile returns the optional "image" part of a multipart body.
func imageFile(c *fiber.Ctx) *multipart.FileHeader {
	file, err := c.FormFile("image")
	if err != nil {
		return nil
	}
	return file
}

func formValue(form *multipart.Form, key string) *string {
	if vals, ok := form.Value[key]; ok && len(vals) > 0 {
		return &vals[0]
	}
	return nil
}

// parseUpdate reads a partial update from multipart or JSON. Fields that are
// absent stay untouched.
func parseUpdate(c *fiber.Ctx) (models.UpdatePledgeRequest, error) {
	var req models.UpdatePledgeRequest
	if form, err := c.MultipartForm(); err == nil {
		req.PledgeText = formValue(form, "pledgeText")
		req.Gift = formValue(form, "gift")
		if points := formValue(form, "points"); points != nil {
			n := json.Number(*points)
			req.Points = &n
		}
		return req, nil
	}
	if len(c.Body()) == 0 {
		return req, nil
	}
	if err := c.BodyParser(&req); err != nil {
		return req, fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}
	return req, nil
}

func (h *PledgeHandler) List(c *fiber.Ctx) error {
	pledges, err := h.pledges.List(c.UserContext(), h.category, middleware.GetUserID(c))
	if err != nil {
		return err
	}
	out := make([]models.Pledge, 0, len(pledges))
	for _, p := range pledges {
		out = append(out, h.present(p))
	}
	return ok(c, out)
}

func (h *PledgeHandler) Get(c *fiber.Ctx) error {
	id, err := parseID(c, "Pledge")
	if err != nil {
		return err
	}
	pledge, err := h.pledges.Get(c.UserContext(), h.category, id)
	if err != nil {
		return err
	}
	return ok(c, h.present(*pledge))
}

func (h *PledgeHandler) Create(c *fiber.Ctx) error {
	var req models.CreatePledgeRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}

	pledge, err := h.pledges.Create(c.UserContext(), h.category, req, imageFile(c))
	if err != nil {
		return err
	}
	return created(c, h.present(*pledge))
}

func (h *PledgeHandler) Update(c *fiber.Ctx) error {
	id, err := parseID(c, "Pledge")
	if err != nil {
		return err
	}
	req, err := parseUpdate(c)
	if err != nil {
		return err
	}

	pledge, err := h.pledges.Update(c.UserContext(), h.category, id, req, imageFile(c))
	if err != nil {
		return err
	}
	return ok(c, h.present(*pledge))
}

func (h *PledgeHandler) Delete(c *fiber.Ctx) error {
	id, err := parseID(c, "Pledge")
	if err != nil {
		return err
	}
	if err := h.pledges.Delete(c.UserContext(), h.category, id); err != nil {
		return err
	}
	return message(c, "Pledge deleted successfully")
}

func (h *PledgeHandler) Complete(c *fiber.Ctx) error {
	id, err := parseID(c, "Pledge")
	if err != nil {
		return err
	}
	p, _ := middleware.GetPrincipal(c)

	rec, transitioned, err := h.completions.Complete(c.UserContext(), p, h.category, id)
	if err != nil {
		return err
	}

	msg := "Pledge already completed"
	if transitioned {
		msg = "Pledge completed & reward unlocked!"
	}
	return c.JSON(fiber.Map{
		"success": true,
		"message": msg,
		"data":    rec,
	})
}

func (h *PledgeHandler) Completed(c *fiber.Ctx) error {
	list, err := h.completions.Completed(c.UserContext(), middleware.GetUserID(c), h.category)
	if err != nil {
		return err
	}
	for i := range list {
		list[i].Pledge = h.present(list[i].Pledge)
	}
	return ok(c, list)
}

func (h *PledgeHandler) ListAwards(c *fiber.Ctx) error {
	awards, err := h.awards.List(c.UserContext(), h.category)
	if err != nil {
		return err
	}
	return ok(c, awards)
}

func (h *PledgeHandler) GetAward(c *fiber.Ctx) error {
	id, err := parseID(c, "Award")
	if err != nil {
		return err
	}
	award, err := h.awards.Get(c.UserContext(), h.category, id)
	if err != nil {
		return err
	}
	return ok(c, award)
}

func (h *PledgeHandler) CreateAward(c *fiber.Ctx) error {
	var req models.CreateAwardRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}
	award, err := h.awards.Create(c.UserContext(), h.category, req)
	if err != nil {
		return err
	}
	return created(c, award)
}

func (h *PledgeHandler) UpdateAward(c *fiber.Ctx) error {
	id, err := parseID(c, "Award")
	if err != nil {
		return err
	}
	var req models.UpdateAwardRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}
	award, err := h.awards.Update(c.UserContext(), h.category, id, req)
	if err != nil {
		return err
	}
	return ok(c, award)
}

func (h *PledgeHandler) DeleteAward(c *fiber.Ctx) error {
	id, err := parseID(c, "Award")
	if err != nil {
		return err
	}
	if err := h.awards.Delete(c.UserContext(), h.category, id); err != nil {
		return err
	}
	return message(c, "Award deleted successfully")
}
