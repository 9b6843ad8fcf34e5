package report

import (
	"bytes"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/thermaldash/internal/analysis"
)

func TestBuildPDFReport(t *testing.T) {
	table, marker := sampleTable(t)
	fig, err := RenderFigure(table, marker, "MSN123", smallOpts())
	require.NoError(t, err)

	var buf bytes.Buffer
	err = BuildPDFReport(&buf, ReportInput{
		Label:       "MSN123",
		SourcePath:  "/data/2024-05-01/MDW1/MSN123/thermal_data/AmPsI2I.csv",
		Summary:     analysis.Summarize(table, marker),
		Figure:      fig,
		FigureRatio: 5.0 / 8.0,
		Warnings:    []string{"Warning: line 3 bad value"},
	})
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")))
}

func TestBuildPDFReport_NoFigureManyWarnings(t *testing.T) {
	warnings := make([]string, 0, 30)
	for i := 0; i < 30; i++ {
		warnings = append(warnings, fmt.Sprintf("Warning %d", i))
	}

	var buf bytes.Buffer
	err := BuildPDFReport(&buf, ReportInput{
		Label:    "empty",
		Summary:  analysis.Summarize(&analysis.NormalizedTable{}, analysis.NoMarker),
		Warnings: warnings,
	})
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")))
}

func TestBuildPDFReport_BadImage(t *testing.T) {
	var buf bytes.Buffer
	err := BuildPDFReport(&buf, ReportInput{
		Label:  "broken",
		Figure: []byte("not a png"),
	})
	require.Error(t, err)
}
