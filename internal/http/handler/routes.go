package handler

import (
	"context"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"

	"foodshare/internal/http/middleware"
	"foodshare/internal/service"
)

// Pinger is satisfied by *sql.DB and the in-memory store.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Deps groups what RegisterRoutes wires into handlers.
type Deps struct {
	DB        Pinger
	Donations service.DonationService
	Orders    service.OrderService
	Users     service.UserService
}

// RegisterRoutes attaches HTTP routes to the provided Fiber app.
// Identity is resolved earlier by middleware.Auth.
func RegisterRoutes(app *fiber.App, deps Deps) {
	app.Get("/health", HealthCheck(deps.DB))
	app.Get("/healthz", LivenessProbe())

	donations := app.Group("/donations")
	donations.Get("/", ListDonations(deps.Donations))
	donations.Post("/", CreateDonation(deps.Donations))
	// Registered ahead of /:id.
	donations.Get("/stats", DonationStats(deps.Donations))
	donations.Get("/:id", GetDonation(deps.Donations))
	donations.Delete("/:id", DeleteDonation(deps.Donations))
	donations.Patch("/:id/claim", ClaimDonation(deps.Donations))
	donations.Post("/:id/images", UploadDonationImage(deps.Donations))

	app.Get("/orders", ListOrders(deps.Orders))
	app.Post("/orders", ConfirmOrder(deps.Orders))

	app.Delete("/admin/users/:id", DeleteUser(deps.Users))
}

// HealthCheck checks store connectivity only.
//
//	@Summary	Readiness probe
//	@Tags		health
//	@Produce	json
//	@Success	200	{object}	map[string]string
//	@Failure	503	{object}	errorPayload
//	@Router		/health [get]
func HealthCheck(db Pinger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
		defer cancel()
		if db == nil || db.PingContext(ctx) != nil {
			return writeError(c, fiber.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "dependency unavailable")
		}
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"status": "healthy"})
	}
}

// LivenessProbe always answers 200.
//
//	@Summary	Liveness probe
//	@Tags		health
//	@Success	200
//	@Router		/healthz [get]
func LivenessProbe() fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	}
}

// ListDonations returns open donations newest first.
//
//	@Summary	List donations
//	@Tags		donations
//	@Produce	json
//	@Param		include_expired	query		bool	false	"include expired donations"
//	@Param		include_claimed	query		bool	false	"include claimed donations"
//	@Param		limit			query		int		false	"page size (default 50, max 200)"
//	@Param		offset			query		int		false	"page offset"
//	@Success	200				{object}	service.DonationListResult
//	@Failure	400				{object}	errorPayload
//	@Router		/donations [get]
func ListDonations(svc service.DonationService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var q service.ListQuery
		var err error

		if q.IncludeExpired, err = queryFlag(c, "include_expired"); err != nil {
			return writeFieldError(c, fiber.StatusBadRequest, "INVALID_QUERY", "include_expired must be a boolean", "include_expired")
		}
		if q.IncludeClaimed, err = queryFlag(c, "include_claimed"); err != nil {
			return writeFieldError(c, fiber.StatusBadRequest, "INVALID_QUERY", "include_claimed must be a boolean", "include_claimed")
		}
		if q.Limit, err = strconv.Atoi(c.Query("limit", "0")); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_LIMIT", "invalid limit")
		}
		if q.Offset, err = strconv.Atoi(c.Query("offset", "0")); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_OFFSET", "invalid offset")
		}

		res, err := svc.List(c.UserContext(), q)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(res)
	}
}

func queryFlag(c *fiber.Ctx, key string) (bool, error) {
	v := c.Query(key)
	if v == "" {
		return false, nil
	}
	return strconv.ParseBool(v)
}

// CreateDonation posts a donation owned by the caller.
//
//	@Summary	Create donation
//	@Tags		donations
//	@Accept		json
//	@Produce	json
//	@Security	BearerAuth
//	@Param		body	body		service.CreateDonationInput	true	"donation"
//	@Success	201		{object}	service.DonationView
//	@Failure	400		{object}	errorPayload
//	@Failure	401		{object}	errorPayload
//	@Router		/donations [post]
func CreateDonation(svc service.DonationService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, ok := requireActor(c)
		if !ok {
			return nil
		}
		var in service.CreateDonationInput
		if err := c.BodyParser(&in); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_BODY", "invalid request body")
		}

		view, err := svc.Create(c.UserContext(), actor, in)
		if err != nil {
			return respondError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(view)
	}
}

// GetDonation returns one donation with its images.
//
//	@Summary	Get donation
//	@Tags		donations
//	@Produce	json
//	@Param		id	path		string	true	"donation id"
//	@Success	200	{object}	service.DonationView
//	@Failure	400	{object}	errorPayload
//	@Failure	404	{object}	errorPayload
//	@Router		/donations/{id} [get]
func GetDonation(svc service.DonationService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		view, err := svc.Get(c.UserContext(), c.Params("id"))
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(view)
	}
}

// DeleteDonation removes a donation owned by the caller.
//
//	@Summary	Delete donation
//	@Tags		donations
//	@Security	BearerAuth
//	@Param		id	path	string	true	"donation id"
//	@Success	204
//	@Failure	401	{object}	errorPayload
//	@Failure	403	{object}	errorPayload
//	@Failure	404	{object}	errorPayload
//	@Router		/donations/{id} [delete]
func DeleteDonation(svc service.DonationService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := svc.Delete(c.UserContext(), middleware.ActorFromCtx(c), c.Params("id")); err != nil {
			return respondError(c, err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}

// ClaimDonation marks an open donation claimed without an order.
//
//	@Summary	Claim donation
//	@Tags		donations
//	@Produce	json
//	@Security	BearerAuth
//	@Param		id	path		string	true	"donation id"
//	@Success	200	{object}	service.DonationView
//	@Failure	400	{object}	errorPayload
//	@Failure	401	{object}	errorPayload
//	@Failure	404	{object}	errorPayload
//	@Router		/donations/{id}/claim [patch]
func ClaimDonation(svc service.DonationService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		view, err := svc.Claim(c.UserContext(), middleware.ActorFromCtx(c), c.Params("id"))
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(view)
	}
}

// UploadDonationImage attaches an image (multipart/form-data, field name: image).
//
//	@Summary	Upload donation image
//	@Tags		donations
//	@Accept		mpfd
//	@Produce	json
//	@Security	BearerAuth
//	@Param		id		path		string	true	"donation id"
//	@Param		image	formData	file	true	"image file"
//	@Success	201		{object}	model.DonationImage
//	@Failure	400		{object}	errorPayload
//	@Failure	401		{object}	errorPayload
//	@Failure	403		{object}	errorPayload
//	@Failure	404		{object}	errorPayload
//	@Router		/donations/{id}/images [post]
func UploadDonationImage(svc service.DonationService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, ok := requireActor(c)
		if !ok {
			return nil
		}
		fh, err := c.FormFile("image")
		if err != nil {
			return writeFieldError(c, fiber.StatusBadRequest, "FILE_REQUIRED", "image is required", "image")
		}

		f, err := fh.Open()
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "FILE_OPEN_ERROR", "cannot open uploaded file")
		}
		defer f.Close()

		img, err := svc.AddImage(c.UserContext(), actor, c.Params("id"), f, fh.Size)
		if err != nil {
			return respondError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(img)
	}
}

// DonationStats reports the caller's donation counters and posts.
//
//	@Summary	Donor statistics
//	@Tags		donations
//	@Produce	json
//	@Security	BearerAuth
//	@Success	200	{object}	service.StatsResult
//	@Failure	401	{object}	errorPayload
//	@Router		/donations/stats [get]
func DonationStats(svc service.DonationService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		res, err := svc.Stats(c.UserContext(), middleware.ActorFromCtx(c))
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(res)
	}
}

// ListOrders returns the caller's orders.
//
//	@Summary	List my orders
//	@Tags		orders
//	@Produce	json
//	@Security	BearerAuth
//	@Success	200	{object}	map[string][]service.OrderView
//	@Failure	401	{object}	errorPayload
//	@Router		/orders [get]
func ListOrders(svc service.OrderService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		orders, err := svc.List(c.UserContext(), middleware.ActorFromCtx(c))
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(fiber.Map{"data": orders})
	}
}

// ConfirmOrder creates an order and claims its donation.
//
//	@Summary	Confirm order
//	@Tags		orders
//	@Accept		json
//	@Produce	json
//	@Security	BearerAuth
//	@Param		body	body		service.ConfirmOrderInput	true	"order"
//	@Success	201		{object}	service.OrderView
//	@Failure	400		{object}	errorPayload
//	@Failure	401		{object}	errorPayload
//	@Failure	403		{object}	errorPayload
//	@Failure	404		{object}	errorPayload
//	@Router		/orders [post]
func ConfirmOrder(svc service.OrderService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, ok := requireActor(c)
		if !ok {
			return nil
		}
		var in service.ConfirmOrderInput
		if err := c.BodyParser(&in); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_BODY", "invalid request body")
		}

		order, err := svc.Confirm(c.UserContext(), actor, in)
		if err != nil {
			return respondError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(order)
	}
}

// DeleteUser removes a user with their donations and orders.
//
//	@Summary	Delete user
//	@Tags		admin
//	@Security	BearerAuth
//	@Param		id	path	string	true	"user id"
//	@Success	204
//	@Failure	401	{object}	errorPayload
//	@Failure	403	{object}	errorPayload
//	@Failure	404	{object}	errorPayload
//	@Router		/admin/users/{id} [delete]
func DeleteUser(svc service.UserService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := svc.Delete(c.UserContext(), middleware.ActorFromCtx(c), c.Params("id")); err != nil {
			return respondError(c, err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}
