package tracking

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
)

// exportHandler streams a session's history as CSV, one row per location
// update: timestamp, latitude, longitude, accuracy.
func exportHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")
		if _, err := svc.Get(c.Context(), id); err != nil {
			return errorStatus(err)
		}
		locations, err := svc.Locations(c.Context(), id)
		if err != nil {
			return errorStatus(err)
		}

		var buf bytes.Buffer
		w := csv.NewWriter(&buf)
		_ = w.Write([]string{"timestamp", "latitude", "longitude", "accuracy"})
		for _, loc := range locations {
			var accuracy string
			if loc.Accuracy != nil {
				accuracy = strconv.FormatFloat(*loc.Accuracy, 'f', -1, 64)
			}
			_ = w.Write([]string{
				loc.RecordedAt.UTC().Format(time.RFC3339),
				strconv.FormatFloat(loc.Latitude, 'f', -1, 64),
				strconv.FormatFloat(loc.Longitude, 'f', -1, 64),
				accuracy,
			})
		}
		w.Flush()
		if err := w.Error(); err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}

		shortID := id
		if len(shortID) > 8 {
			shortID = shortID[:8]
		}
		c.Set(fiber.HeaderContentType, "text/csv")
		c.Set(fiber.HeaderContentDisposition, fmt.Sprintf(`attachment; filename="locations_%s.csv"`, shortID))
		return c.Send(buf.Bytes())
	}
}
