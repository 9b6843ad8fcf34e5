package analysis

import (
	"errors"
	"fmt"

	"github.com/user/thermaldash/internal/parser"
)

// NoMarker is the marker index when fewer than two zero-spiral rows exist.
const NoMarker = -1

// OrderedColumns is the fixed column order of a NormalizedTable.
var OrderedColumns = []string{
	parser.FieldSpiralCount,
	parser.FieldSpiralNumber,
	parser.FieldLastFindTrackCenter,
	parser.FieldServoTrack,
	parser.FieldPIDPosnError,
	parser.FieldBackDiff,
	parser.FieldFTCTime,
	parser.FieldPWUpdate,
	parser.FieldLastIndex2SIM,
	parser.FieldDiffInx2SIM,
	parser.FieldAvgChangeInIndexToSIM,
	parser.FieldTimeCorrection,
}

// ErrMissingField is wrapped by MissingFieldError.
var ErrMissingField = errors.New("missing required field")

// MissingFieldError reports a required source column that is absent.
type MissingFieldError struct {
	Field string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("%s: %q", ErrMissingField, e.Field)
}

func (e *MissingFieldError) Unwrap() []error {
	return []error{ErrMissingField, parser.ErrData}
}

// Row is one line of the normalized table.
type Row struct {
	SpiralCount                 int
	SpiralNumber                parser.Value
	LastFindTrackCenterPosition parser.Value
	ServoTrack                  parser.Value
	PIDPosnError                parser.Value
	BackDiff                    float64
	FTCTime                     parser.Value
	PWUpdate                    parser.Value
	LastIndex2SIM               parser.Value
	DiffInx2SIM                 parser.Value
	AvgChangeInIndexToSIM       parser.Value
	TimeCorrection              parser.Value
}

// Values returns the row cells in OrderedColumns order.
func (r Row) Values() []parser.Value {
	return []parser.Value{
		parser.Some(float64(r.SpiralCount)),
		r.SpiralNumber,
		r.LastFindTrackCenterPosition,
		r.ServoTrack,
		r.PIDPosnError,
		parser.Some(r.BackDiff),
		r.FTCTime,
		r.PWUpdate,
		r.LastIndex2SIM,
		r.DiffInx2SIM,
		r.AvgChangeInIndexToSIM,
		r.TimeCorrection,
	}
}

// NormalizedTable is the prepared, fixed-schema view of one thermal log.
type NormalizedTable struct {
	Rows []Row
}

// Len returns the number of rows.
func (t *NormalizedTable) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Rows)
}

// Column returns one column by name, or nil for an unknown name.
func (t *NormalizedTable) Column(name string) []parser.Value {
	idx := -1
	for i, c := range OrderedColumns {
		if c == name {
			idx = i
			break
		}
	}
	if idx < 0 || t == nil {
		return nil
	}
	out := make([]parser.Value, t.Len())
	for i, row := range t.Rows {
		out[i] = row.Values()[idx]
	}
	return out
}

// Summary holds the headline metrics shown above the charts.
type Summary struct {
	MaxServoTrack parser.Value
	MaxFTCTime    parser.Value
	MaxBackDiff   parser.Value
	MinPWUpdate   parser.Value
	ZeroSpiral    int
	Rows          int
}

// Metric is one labelled, formatted summary value.
type Metric struct {
	Label string
	Value string
}

func formatValue(v parser.Value, prec int) string {
	if !v.Valid {
		return "nan"
	}
	return fmt.Sprintf("%.*f", prec, v.Float)
}

// Metrics returns the summary in display order.
func (s Summary) Metrics() []Metric {
	return []Metric{
		{Label: "Max FTC Servo Track", Value: formatValue(s.MaxServoTrack, 3)},
		{Label: "Max mS FTC time", Value: formatValue(s.MaxFTCTime, 3)},
		{Label: "Max Backdiff", Value: formatValue(s.MaxBackDiff, 6)},
		{Label: "Min PWupdate", Value: formatValue(s.MinPWUpdate, 3)},
		{Label: "0_Spiral", Value: fmt.Sprintf("%d", s.ZeroSpiral)},
	}
}
