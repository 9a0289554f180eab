package utils

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"

	"bike-predict/internal/models"
)

// ErrNoValuations is returned when an export has nothing to write.
var ErrNoValuations = errors.New("no valuations to export")

// ValuationColumns is the header row of a valuation export.
var ValuationColumns = []string{
	"id",
	"created_at",
	"brand",
	"model",
	"location",
	"year",
	"kilometers",
	"power_cc",
	"owner",
	"price_inr",
}

// WriteValuationsCSV writes valuations as CSV, header first.
func WriteValuationsCSV(w io.Writer, valuations []*models.Valuation) error {
	if len(valuations) == 0 {
		return ErrNoValuations
	}

	writer := csv.NewWriter(w)
	if err := writer.Write(ValuationColumns); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for i, v := range valuations {
		record := []string{
			strconv.FormatInt(v.ID, 10),
			v.CreatedAt.UTC().Format(time.RFC3339),
			labelOrCode(v.BrandName, v.BrandCode),
			labelOrCode(v.ModelName, v.ModelCode),
			labelOrCode(v.LocationName, v.LocationCode),
			strconv.Itoa(v.Year),
			strconv.Itoa(v.Kilometers),
			strconv.Itoa(v.Power),
			string(v.Owner),
			strconv.FormatFloat(v.Price, 'f', 0, 64),
		}
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("row %d: %w", i+1, err)
		}
	}

	writer.Flush()
	return writer.Error()
}

// ValuationsCSV renders valuations into a byte slice.
func ValuationsCSV(valuations []*models.Valuation) ([]byte, error) {
	var buf bytes.Buffer
	if err := WriteValuationsCSV(&buf, valuations); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func labelOrCode(name string, code int) string {
	if name != "" {
		return TitleCase(name)
	}
	return strconv.Itoa(code)
}
