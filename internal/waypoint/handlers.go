package waypoint

import (
	"errors"

	"backend-strideup/internal/draft"

	"github.com/gofiber/fiber/v2"
)

func RegisterRoutes(r fiber.Router, svc *Service, authMiddleware fiber.Handler) {
	r.Post("/progress", func(c *fiber.Ctx) error {
		var req evaluateRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		return c.JSON(CheckProgress(req.Waypoints, req.Track))
	})

	r.Post("/drafts", authMiddleware, func(c *fiber.Ctx) error {
		var req routeRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		id, err := svc.StashDraft(c.Context(), req.Waypoints)
		if err != nil {
			return toFiberError(err)
		}
		return c.Status(fiber.StatusCreated).JSON(fiber.Map{"draft_id": id})
	})

	r.Post("/:challengeID/drafts/:draftID", authMiddleware, func(c *fiber.Ctx) error {
		route, err := svc.ClaimDraft(c.Context(), c.Params("challengeID"), c.Params("draftID"))
		if err != nil {
			return toFiberError(err)
		}
		return c.Status(fiber.StatusCreated).JSON(route)
	})

	r.Put("/:challengeID", authMiddleware, func(c *fiber.Ctx) error {
		var req routeRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		route, err := svc.SaveRoute(c.Context(), c.Params("challengeID"), req.Waypoints)
		if err != nil {
			return toFiberError(err)
		}
		return c.JSON(route)
	})

	r.Get("/:challengeID", func(c *fiber.Ctx) error {
		route, err := svc.Route(c.Context(), c.Params("challengeID"))
		if err != nil {
			return toFiberError(err)
		}
		return c.JSON(route)
	})

	r.Get("/:challengeID/progress/:sessionID", func(c *fiber.Ctx) error {
		progress, err := svc.Progress(c.Context(), c.Params("challengeID"), c.Params("sessionID"))
		if err != nil {
			return toFiberError(err)
		}
		return c.JSON(progress)
	})
}

func toFiberError(err error) error {
	switch {
	case errors.Is(err, ErrInvalidRoute):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	case errors.Is(err, ErrRouteNotFound), errors.Is(err, draft.ErrNotFound):
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	default:
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}
}
