package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"unikrew/internal/domain"
	"unikrew/internal/pipeline"
)

func sampleFields() domain.ReceiptFields {
	return domain.ReceiptFields{
		Company:      "STARBUCKS COFFEE",
		Date:         "12/03/2018",
		Address:      "LOT 1, JALAN PJU 7/3",
		Total:        "15.90",
		AgentComment: "Confirmed by OCR text.",
	}
}

func TestParseOutputFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"", outputJSON, false},
		{"json", outputJSON, false},
		{"YAML", outputYAML, false},
		{"yml", outputYAML, false},
		{"xml", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseOutputFormat(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestWriteOutput_JSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeOutput(&buf, outputJSON, sampleFields()))

	out := buf.String()
	assert.Contains(t, out, `"company": "STARBUCKS COFFEE"`)
	assert.Contains(t, out, `"agent_comment": "Confirmed by OCR text."`)
}

func TestWriteOutput_YAML(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeOutput(&buf, outputYAML, sampleFields()))

	out := buf.String()
	assert.Contains(t, out, "company: STARBUCKS COFFEE\n")
	assert.Contains(t, out, "agent_comment: Confirmed by OCR text.\n")
	assert.True(t, strings.Index(out, "company:") < strings.Index(out, "total:"))
}

func TestRenderTable(t *testing.T) {
	assert.Empty(t, renderTable(nil, nil, nil))

	out := renderTable([]string{"#", "Word"}, [][]string{{"0", "TOTAL"}, {"1"}}, []columnAlignment{alignRight})
	assert.Contains(t, out, "TOTAL")
	assert.Contains(t, out, "WORD")
}

func TestWordTable(t *testing.T) {
	words := []domain.Word{
		{Text: "TOTAL", Box: domain.PixelBox{Left: 10, Top: 20, Width: 30, Height: 40}, Confidence: 91.3},
	}
	boxes := []domain.NormalizedBox{{10, 20, 40, 60}}

	headers, rows, aligns := wordTable(words, boxes)
	require.Len(t, rows, 1)
	assert.Len(t, aligns, len(headers))
	assert.Equal(t, []string{"0", "TOTAL", "10,20 30x40", "10,20,40,60", "91.3"}, rows[0])
}

func TestLabelTable_ShortLabels(t *testing.T) {
	e := &pipeline.Extraction{
		Words:  []domain.Word{{Text: "A"}, {Text: "B"}},
		Labels: []string{"B-COMPANY"},
	}
	_, rows, _ := labelTable(e)
	require.Len(t, rows, 2)
	assert.Equal(t, "B-COMPANY", rows[0][2])
	assert.Equal(t, "", rows[1][2])
}
