package handlers

import (
	"github.com/arnold/esg-pledges-api/internal/services"
	"github.com/gofiber/fiber/v2"
)

type RankingHandler struct {
	rankings *services.RankingService
}

func NewRankingHandler(rankings *services.RankingService) *RankingHandler {
	return &RankingHandler{rankings: rankings}
}

func (h *RankingHandler) Get(c *fiber.Ctx) error {
	entries, err := h.rankings.Compute(c.UserContext())
	if err != nil {
		return err
	}
	return ok(c, entries)
}
