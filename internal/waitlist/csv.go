package waitlist

import (
	"encoding/csv"
	"io"
	"strconv"
	"time"

	"github.com/gatherly/backend/internal/models"
)

// csvHeader is the fixed export column order.
var csvHeader = []string{"position", "email", "name", "status", "joinedDate"}

// WriteCSV serializes entries in the fixed export column order. encoding/csv
// quotes values containing commas or quotes.
func WriteCSV(w io.Writer, entries []models.WaitlistEntry) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for _, e := range entries {
		record := []string{
			strconv.Itoa(e.Position),
			e.Email,
			e.UserName,
			string(e.Status),
			e.CreatedAt.UTC().Format(time.RFC3339),
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
