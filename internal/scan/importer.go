package scan

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/jszwec/csvutil"
)

// ErrEmptyImport is returned for a file without rows.
var ErrEmptyImport = errors.New("import file has no rows")

// ImportRow is one line of a bulk unit import file.
type ImportRow struct {
	UnitNumber  string `csv:"unitNumber"`
	CheckDigit  string `csv:"checkDigit,omitempty"`
	ProductCode string `csv:"productCode,omitempty"`
	Line        int    `csv:"-"`
}

// ReadImport decodes a CSV file with a `unitNumber,checkDigit,productCode` header.
func ReadImport(r io.Reader) ([]ImportRow, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	decoder, err := csvutil.NewDecoder(reader)
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, ErrEmptyImport
		}
		return nil, fmt.Errorf("failed to create CSV decoder: %w", err)
	}

	var rows []ImportRow
	for line := 2; ; line++ {
		var row ImportRow
		if err := decoder.Decode(&row); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("failed to decode CSV line %d: %w", line, err)
		}
		row.UnitNumber = strings.TrimSpace(row.UnitNumber)
		if row.UnitNumber == "" {
			continue
		}
		row.CheckDigit = strings.TrimSpace(row.CheckDigit)
		row.ProductCode = strings.TrimSpace(row.ProductCode)
		row.Line = line
		rows = append(rows, row)
	}
	if len(rows) == 0 {
		return nil, ErrEmptyImport
	}
	return rows, nil
}
