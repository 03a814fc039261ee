// Package httpapi exposes the proxy's HTTP surface. It shields API keys from
// the client and presents a stable same-origin contract regardless of which
// upstream strategy is active.
package httpapi

import (
	"regexp"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/nimbusweather/nimbus/internal/providers"
	"github.com/nimbusweather/nimbus/internal/weather"
)

var validate = validator.New()

// coordsPattern matches a "<lat>,<lon>" literal, which switches the search
// endpoint into reverse-geocode mode.
var coordsPattern = regexp.MustCompile(`^\s*(-?\d+(?:\.\d+)?)\s*,\s*(-?\d+(?:\.\d+)?)\s*$`)

// NewApp builds the Fiber app with the weather routes wired to the given
// upstream strategy. Errors surface as {"error": message}.
func NewApp(provider providers.Provider) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               "nimbus",
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          30 * time.Second,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"error": err.Error(),
			})
		},
	})

	app.Use(logger.New())
	app.Use(recover.New())

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "ok",
			"service": "nimbus",
		})
	})

	RegisterRoutes(app, provider)
	return app
}

// RegisterRoutes wires the weather handlers into the Fiber app.
func RegisterRoutes(app *fiber.App, provider providers.Provider) {
	api := app.Group("/api/weather")

	api.Get("/search", func(c *fiber.Ctx) error {
		q := c.Query("q")
		if q == "" {
			return c.JSON([]weather.GeoLocation{})
		}

		var (
			results []weather.GeoLocation
			err     error
		)
		if m := coordsPattern.FindStringSubmatch(q); m != nil {
			lat, _ := strconv.ParseFloat(m[1], 64)
			lon, _ := strconv.ParseFloat(m[2], 64)
			results, err = provider.Reverse(c.Context(), lat, lon)
		} else {
			results, err = provider.Search(c.Context(), q)
		}
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}

		if results == nil {
			results = []weather.GeoLocation{}
		}
		return c.JSON(results)
	})

	api.Get("/forecast", func(c *fiber.Ctx) error {
		req := forecastQuery{
			Lat: c.Query("lat"),
			Lon: c.Query("lon"),
		}
		lat, lon, err := req.coords()
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid coordinates")
		}

		w, err := provider.Forecast(c.Context(), lat, lon)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		return c.JSON(w)
	})
}

// forecastQuery holds the raw coordinate parameters. Values only need to
// parse as numbers; range checking is left to the upstream, since raw device
// coordinates pass through untouched.
type forecastQuery struct {
	Lat string `validate:"required"`
	Lon string `validate:"required"`
}

func (q forecastQuery) coords() (float64, float64, error) {
	if err := validate.Struct(q); err != nil {
		return 0, 0, err
	}
	lat, err := strconv.ParseFloat(q.Lat, 64)
	if err != nil {
		return 0, 0, err
	}
	lon, err := strconv.ParseFloat(q.Lon, 64)
	if err != nil {
		return 0, 0, err
	}
	return lat, lon, nil
}
