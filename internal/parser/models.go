package parser

import (
	"errors"
	"fmt"
	"strconv"
)

// Source field names as they appear in the AmPsI2I.csv header.
const (
	FieldSpiralCount           = "Spiral Count"
	FieldSpiralNumber          = "Spiral Number"
	FieldLastFindTrackCenter   = "LastFindTrackCenterPosition"
	FieldServoTrack            = "FTC Servo Track"
	FieldPIDPosnError          = "PID Posn Error"
	FieldBackDiff              = "backdiff"
	FieldFTCTime               = "mS FTC time"
	FieldPWUpdate              = "PWupdate"
	FieldLastIndex2SIM         = "nS LastIndex2SIM"
	FieldDiffInx2SIM           = "nS diffInx2SIM"
	FieldAvgChangeInIndexToSIM = "AvgChangeInIndexToSIM"
	FieldTimeCorrection        = "ns Time Correction"
)

// KnownFields lists every column the parser keeps. Anything else in the file is ignored.
var KnownFields = []string{
	FieldSpiralCount, FieldSpiralNumber, FieldLastFindTrackCenter,
	FieldServoTrack, FieldPIDPosnError, FieldBackDiff, FieldFTCTime,
	FieldPWUpdate, FieldLastIndex2SIM, FieldDiffInx2SIM,
	FieldAvgChangeInIndexToSIM, FieldTimeCorrection,
}

// RequiredFields must hold numbers; a bad token there aborts the parse.
var RequiredFields = []string{FieldServoTrack, FieldSpiralNumber}

// ErrData marks input that exists but cannot be turned into a table.
var ErrData = errors.New("data error")

// Value is a numeric cell that may hold "no value".
type Value struct {
	Float float64
	Valid bool
}

// Some wraps a present number.
func Some(f float64) Value { return Value{Float: f, Valid: true} }

// None is the "no value" marker.
func None() Value { return Value{} }

func (v Value) String() string {
	if !v.Valid {
		return "nan"
	}
	return strconv.FormatFloat(v.Float, 'g', -1, 64)
}

// RawRecordSet is the column-wise content of one thermal CSV.
type RawRecordSet struct {
	Header      []string           // header as found in the file, in order
	Fields      map[string][]Value // only known fields present in the header
	NumRows     int
	ParseErrors []string // non-fatal problems, one line each
}

// NewRawRecordSet returns an empty record set.
func NewRawRecordSet() *RawRecordSet {
	return &RawRecordSet{
		Fields:      make(map[string][]Value),
		ParseErrors: make([]string, 0),
	}
}

// Has reports whether the source file carried the named column.
func (r *RawRecordSet) Has(field string) bool {
	_, ok := r.Fields[field]
	return ok
}

// Column returns the named column or nil.
func (r *RawRecordSet) Column(field string) []Value {
	return r.Fields[field]
}

// AddColumn sets a column, used by tests and callers building records by hand.
// The column must match NumRows unless it is the first one added.
func (r *RawRecordSet) AddColumn(field string, values []Value) error {
	if len(r.Fields) == 0 && r.NumRows == 0 {
		r.NumRows = len(values)
	}
	if len(values) != r.NumRows {
		return fmt.Errorf("column %q has %d rows, expected %d", field, len(values), r.NumRows)
	}
	if !r.Has(field) {
		r.Header = append(r.Header, field)
	}
	r.Fields[field] = values
	return nil
}
