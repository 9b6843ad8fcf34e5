package analysis

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"strconv"

	"github.com/user/thermaldash/internal/parser"
)

// backDiff computes abs(prev - cur) per row. Row 0 and any pair touching a
// missing value yield 0.
func backDiff(servo []parser.Value) []float64 {
	out := make([]float64, len(servo))
	for i := 1; i < len(servo); i++ {
		prev, cur := servo[i-1], servo[i]
		if !prev.Valid || !cur.Valid {
			continue
		}
		if d := math.Abs(prev.Float - cur.Float); !math.IsInf(d, 0) && !math.IsNaN(d) {
			out[i] = d
		}
	}
	return out
}

// zeroSpiralMarker returns the 1-based position of the second zero, or NoMarker.
func zeroSpiralMarker(spiral []parser.Value) int {
	seen := 0
	for i, v := range spiral {
		if v.Valid && v.Float == 0 {
			seen++
			if seen == 2 {
				return i + 1
			}
		}
	}
	return NoMarker
}

func columnOrNone(raw *parser.RawRecordSet, field string) []parser.Value {
	if col := raw.Column(field); col != nil {
		return col
	}
	return make([]parser.Value, raw.NumRows)
}

// Prepare turns a raw record set into the fixed twelve-column table and
// locates the zero-spiral marker.
func Prepare(raw *parser.RawRecordSet) (*NormalizedTable, int, error) {
	if raw == nil {
		return nil, NoMarker, fmt.Errorf("%w: no records", parser.ErrData)
	}
	for _, field := range parser.RequiredFields {
		if !raw.Has(field) {
			return nil, NoMarker, &MissingFieldError{Field: field}
		}
	}

	servo := raw.Column(parser.FieldServoTrack)
	diffs := backDiff(servo)

	spiral := raw.Column(parser.FieldSpiralNumber)
	lastFind := columnOrNone(raw, parser.FieldLastFindTrackCenter)
	pid := columnOrNone(raw, parser.FieldPIDPosnError)
	ftcTime := columnOrNone(raw, parser.FieldFTCTime)
	pw := columnOrNone(raw, parser.FieldPWUpdate)
	lastIdx := columnOrNone(raw, parser.FieldLastIndex2SIM)
	diffIdx := columnOrNone(raw, parser.FieldDiffInx2SIM)
	avgChange := columnOrNone(raw, parser.FieldAvgChangeInIndexToSIM)
	timeCorr := columnOrNone(raw, parser.FieldTimeCorrection)

	table := &NormalizedTable{Rows: make([]Row, raw.NumRows)}
	for i := range table.Rows {
		table.Rows[i] = Row{
			SpiralCount:                 i + 1,
			SpiralNumber:                spiral[i],
			LastFindTrackCenterPosition: lastFind[i],
			ServoTrack:                  servo[i],
			PIDPosnError:                pid[i],
			BackDiff:                    diffs[i],
			FTCTime:                     ftcTime[i],
			PWUpdate:                    pw[i],
			LastIndex2SIM:               lastIdx[i],
			DiffInx2SIM:                 diffIdx[i],
			AvgChangeInIndexToSIM:       avgChange[i],
			TimeCorrection:              timeCorr[i],
		}
	}

	return table, zeroSpiralMarker(spiral), nil
}

func extreme(values []parser.Value, better func(a, b float64) bool) parser.Value {
	best := parser.None()
	for _, v := range values {
		if !v.Valid || math.IsInf(v.Float, 0) || math.IsNaN(v.Float) {
			continue
		}
		if !best.Valid || better(v.Float, best.Float) {
			best = v
		}
	}
	return best
}

func greater(a, b float64) bool { return a > b }
func less(a, b float64) bool    { return a < b }

// Summarize computes the headline metrics. Missing cells are skipped.
func Summarize(table *NormalizedTable, marker int) Summary {
	s := Summary{
		ZeroSpiral: marker,
		Rows:       table.Len(),
	}
	if table.Len() == 0 {
		return s
	}
	s.MaxServoTrack = extreme(table.Column(parser.FieldServoTrack), greater)
	s.MaxFTCTime = extreme(table.Column(parser.FieldFTCTime), greater)
	s.MaxBackDiff = extreme(table.Column(parser.FieldBackDiff), greater)
	s.MinPWUpdate = extreme(table.Column(parser.FieldPWUpdate), less)
	return s
}

// WriteCSV writes the table with a header row. Missing cells are left empty.
func WriteCSV(w io.Writer, table *NormalizedTable) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(OrderedColumns); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}
	record := make([]string, len(OrderedColumns))
	for _, row := range table.Rows {
		for i, v := range row.Values() {
			if v.Valid {
				record[i] = strconv.FormatFloat(v.Float, 'g', -1, 64)
			} else {
				record[i] = ""
			}
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("failed to write CSV row %d: %w", row.SpiralCount, err)
		}
	}
	cw.Flush()
	return cw.Error()
}
