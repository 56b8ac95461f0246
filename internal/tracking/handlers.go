package tracking

import (
	"errors"

	"github.com/2003abishek/safetracker/internal/notify"

	"github.com/gofiber/fiber/v2"
)

type createResponse struct {
	Session  Session        `json:"session"`
	Link     string         `json:"link"`
	Dispatch *notify.Result `json:"dispatch,omitempty"`
}

// RegisterRoutes wires the sender-facing surface. Creating a session also
// attempts link dispatch, but a failed dispatch never fails the request:
// the response still carries the link for manual sharing.
func RegisterRoutes(r fiber.Router, svc *Service, dispatcher notify.Dispatcher, baseURL string, authMiddleware fiber.Handler) {
	r.Post("/", authMiddleware, func(c *fiber.Ctx) error {
		var req Session
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		req.CreatedBy, _ = c.Locals("user_id").(string)

		session, err := svc.Create(c.Context(), req)
		if err != nil {
			return errorStatus(err)
		}

		resp := createResponse{Session: session, Link: notify.ShareLink(baseURL, session.ID)}
		if dispatcher != nil {
			result := dispatcher.Send(c.Context(), session.RecipientLabel, session.ID, session.Message)
			resp.Dispatch = &result
			if result.Link != "" {
				resp.Link = result.Link
			}
		}
		return c.Status(fiber.StatusCreated).JSON(resp)
	})

	r.Get("/", authMiddleware, func(c *fiber.Ctx) error {
		createdBy, _ := c.Locals("user_id").(string)
		sessions, err := svc.List(c.Context(), createdBy)
		if err != nil {
			return errorStatus(err)
		}
		return c.JSON(sessions)
	})

	r.Get("/:id", authMiddleware, func(c *fiber.Ctx) error {
		session, err := svc.Get(c.Context(), c.Params("id"))
		if err != nil {
			return errorStatus(err)
		}
		return c.JSON(session)
	})

	r.Get("/:id/locations", authMiddleware, func(c *fiber.Ctx) error {
		locations, err := svc.Locations(c.Context(), c.Params("id"))
		if err != nil {
			return errorStatus(err)
		}
		return c.JSON(locations)
	})

	r.Get("/:id/summary", authMiddleware, func(c *fiber.Ctx) error {
		summary, err := svc.Summary(c.Context(), c.Params("id"))
		if err != nil {
			return errorStatus(err)
		}
		return c.JSON(summary)
	})

	r.Get("/:id/export", authMiddleware, exportHandler(svc))
}

// RegisterShareRoutes wires the recipient-facing surface. The link itself is
// the credential here, no bearer token is required.
func RegisterShareRoutes(r fiber.Router, svc *Service, demoMode bool) {
	r.Get("/", func(c *fiber.Ctx) error {
		id := c.Query("tracking_id")
		if id == "" {
			return fiber.NewError(fiber.StatusBadRequest, "tracking_id required")
		}
		session, err := svc.Get(c.Context(), id)
		if err != nil {
			return errorStatus(err)
		}
		return c.JSON(session)
	})

	r.Get("/:id", func(c *fiber.Ctx) error {
		session, err := svc.Get(c.Context(), c.Params("id"))
		if err != nil {
			return errorStatus(err)
		}
		return c.JSON(session)
	})

	r.Post("/:id/locations", func(c *fiber.Ctx) error {
		var req LocationUpdate
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		location, err := svc.Append(c.Context(), c.Params("id"), req)
		if err != nil {
			return errorStatus(err)
		}
		return c.Status(fiber.StatusCreated).JSON(location)
	})

	r.Get("/:id/locations", func(c *fiber.Ctx) error {
		locations, err := svc.Locations(c.Context(), c.Params("id"))
		if err != nil {
			return errorStatus(err)
		}
		return c.JSON(locations)
	})

	if demoMode {
		r.Post("/:id/demo", func(c *fiber.Ctx) error {
			point, city := DemoPoint()
			location, err := svc.Append(c.Context(), c.Params("id"), point)
			if err != nil {
				return errorStatus(err)
			}
			return c.Status(fiber.StatusCreated).JSON(fiber.Map{"city": city, "location": location})
		})
	}
}

func errorStatus(err error) error {
	switch {
	case errors.Is(err, ErrNotFound):
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	case errors.Is(err, ErrValidation):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	default:
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}
}
