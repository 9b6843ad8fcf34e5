package parser

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
)

// tokens pandas treats as missing when reading a CSV
var missingTokens = map[string]bool{
	"":     true,
	"nan":  true,
	"na":   true,
	"n/a":  true,
	"null": true,
	"none": true,
}

func isRequired(field string) bool {
	for _, f := range RequiredFields {
		if f == field {
			return true
		}
	}
	return false
}

var errNonFinite = errors.New("non-finite value")

func parseCell(raw string) (Value, error) {
	s := strings.TrimSpace(raw)
	if missingTokens[strings.ToLower(s)] {
		return None(), nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return None(), err
	}
	if math.IsInf(f, 0) || math.IsNaN(f) {
		return None(), errNonFinite
	}
	return Some(f), nil
}

// ParseThermalFile opens path and parses it as a thermal CSV.
func ParseThermalFile(path string) (*RawRecordSet, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open CSV file: %w", err)
	}
	defer file.Close()

	return ParseThermalCSV(file)
}

// ParseThermalCSV reads a header row followed by data rows. Only KnownFields are kept.
func ParseThermalCSV(r io.Reader) (*RawRecordSet, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: missing header row", ErrData)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read CSV header: %v", ErrData, err)
	}

	records := NewRawRecordSet()
	columnIndex := make(map[string]int)
	for i, name := range header {
		if i == 0 {
			name = strings.TrimPrefix(name, "\ufeff")
		}
		name = strings.TrimSpace(name)
		records.Header = append(records.Header, name)
		if _, dup := columnIndex[name]; dup {
			records.ParseErrors = append(records.ParseErrors, fmt.Sprintf("Warning: duplicate column %q, using the first occurrence.", name))
			continue
		}
		columnIndex[name] = i
	}
	for _, field := range KnownFields {
		if _, ok := columnIndex[field]; ok {
			records.Fields[field] = make([]Value, 0)
		}
	}

	for rowIdx := 0; ; rowIdx++ {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: failed to read CSV data: %v", ErrData, err)
		}
		// CSV line number: header is line 1
		line := rowIdx + 2

		for _, field := range KnownFields {
			values, ok := records.Fields[field]
			if !ok {
				continue
			}
			idx := columnIndex[field]
			cell := ""
			if idx < len(row) {
				cell = row[idx]
			}
			v, perr := parseCell(cell)
			switch {
			case errors.Is(perr, errNonFinite):
				records.ParseErrors = append(records.ParseErrors, fmt.Sprintf("Warning: line %d, column %q: value %q is not finite, treated as no value.", line, field, cell))
			case perr != nil:
				if isRequired(field) {
					return nil, fmt.Errorf("%w: line %d, column %q: cannot convert %q to a number", ErrData, line, field, cell)
				}
				records.ParseErrors = append(records.ParseErrors, fmt.Sprintf("Warning: line %d, column %q: value %q is not numeric, treated as no value.", line, field, cell))
			}
			records.Fields[field] = append(values, v)
		}
		records.NumRows++
	}

	return records, nil
}
