package httpapi

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"

	"github.com/i474232898/water-tank-dashboard/internal/store"
	"github.com/i474232898/water-tank-dashboard/internal/tank"
)

var validate = validator.New()

const (
	refreshTimeout = 30 * time.Second

	// manual refreshes allowed per client within refreshWindow
	refreshLimit  = 1
	refreshWindow = 10 * time.Second
)

// RegisterRoutes wires the HTTP handlers into the Fiber app.
func RegisterRoutes(app *fiber.App, service *tank.Service) {
	app.Get("/", serveDashboard)

	app.Get("/charts/:name", func(c *fiber.Ctx) error {
		chart, ok := service.Chart(c.Params("name"))
		if !ok {
			return fiber.NewError(fiber.StatusNotFound, "chart not found")
		}
		c.Set(fiber.HeaderContentType, chart.ContentType)
		c.Set(fiber.HeaderCacheControl, "no-cache")
		return c.Send(chart.Data)
	})

	v1 := app.Group("/api/v1")

	v1.Get("/dashboard", func(c *fiber.Ctx) error {
		d, err := service.Latest()
		if err != nil {
			return lookupError(err)
		}
		return c.JSON(d)
	})

	v1.Get("/level", func(c *fiber.Ctx) error {
		d, err := service.Latest()
		if err != nil {
			return lookupError(err)
		}
		return c.JSON(fiber.Map{
			"level":            d.Latest,
			"tankFullDistance": d.TankFullDistance,
			"generatedAt":      d.GeneratedAt,
		})
	})

	v1.Get("/averages", func(c *fiber.Ctx) error {
		q := averagesQuery{Period: c.Query("period")}
		if err := validate.Struct(q); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "period must be one of daily, weekly, monthly, annual")
		}

		series, err := service.Averages(q.Period)
		if err != nil {
			if errors.Is(err, tank.ErrInvalidPeriod) {
				return fiber.NewError(fiber.StatusBadRequest, err.Error())
			}
			return lookupError(err)
		}

		return c.JSON(fiber.Map{
			"period":   q.Period,
			"averages": series,
		})
	})

	v1.Get("/observations", func(c *fiber.Ctx) error {
		d, err := service.Latest()
		if err != nil {
			return lookupError(err)
		}
		return c.JSON(fiber.Map{
			"generatedAt":  d.GeneratedAt,
			"observations": d.Raw,
		})
	})

	v1.Get("/history", func(c *fiber.Ctx) error {
		var req historyQuery
		if err := req.bind(c); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		if err := validate.Struct(req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		summaries, err := service.History(req.From, req.To)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return fiber.NewError(fiber.StatusNotFound, "no dashboards for requested range")
			}
			return fiber.NewError(fiber.StatusInternalServerError, "failed to load dashboard history")
		}

		return c.JSON(fiber.Map{
			"from":       req.From,
			"to":         req.To,
			"dashboards": summaries,
		})
	})

	refreshLimiter := limiter.New(limiter.Config{
		Max:        refreshLimit,
		Expiration: refreshWindow,
		LimitReached: func(c *fiber.Ctx) error {
			return fiber.NewError(fiber.StatusTooManyRequests, "refresh already requested, try again later")
		},
	})

	v1.Post("/refresh", refreshLimiter, func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), refreshTimeout)
		defer cancel()

		d, err := service.Refresh(ctx)
		if err != nil {
			var fe *tank.FetchError
			switch {
			case errors.Is(err, tank.ErrNoData):
				return fiber.NewError(fiber.StatusNotFound, tank.ErrNoData.Error())
			case errors.As(err, &fe):
				return fiber.NewError(fiber.StatusBadGateway, "failed to fetch observations")
			default:
				return fiber.NewError(fiber.StatusInternalServerError, "failed to refresh dashboard")
			}
		}

		return c.JSON(d)
	})
}

func lookupError(err error) error {
	if errors.Is(err, store.ErrNotFound) || errors.Is(err, tank.ErrNoData) {
		return fiber.NewError(fiber.StatusNotFound, tank.ErrNoData.Error())
	}
	return fiber.NewError(fiber.StatusInternalServerError, "failed to load dashboard")
}

// averagesQuery holds query parameters for the averages endpoint.
type averagesQuery struct {
	Period string `validate:"required,oneof=daily weekly monthly annual"`
}

// historyQuery holds query parameters for the history endpoint.
type historyQuery struct {
	From time.Time `validate:"required"`
	To   time.Time `validate:"required,gtefield=From"`
}

func (h *historyQuery) bind(c *fiber.Ctx) error {
	fromStr := c.Query("from")
	toStr := c.Query("to")
	if fromStr == "" || toStr == "" {
		return errors.New("from and to query parameters are required")
	}

	from, err := parseTime(fromStr)
	if err != nil {
		return err
	}
	to, err := parseTime(toStr)
	if err != nil {
		return err
	}

	h.From = from
	h.To = to
	return nil
}

// parseTime tries to parse either RFC3339 or Unix seconds.
func parseTime(s string) (time.Time, error) {
	if ts, err := time.Parse(time.RFC3339, s); err == nil {
		return ts, nil
	}
	if unix, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Unix(unix, 0).UTC(), nil
	}
	return time.Time{}, errors.New("invalid time format; use RFC3339 or unix seconds")
}
