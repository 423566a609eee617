package export

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func sampleDataset() Dataset {
	return Dataset{
		Title:   "Study plan (part-time) 26/20-40 CFU",
		Headers: []string{"Code", "Name", "CFU"},
		Rows: []map[string]string{
			{"Code": "01AAAAA", "Name": "Analisi, I", "CFU": "6"},
			{"Code": "06FFFFF", "Name": "Fisica", "CFU": "20"},
		},
	}
}

func TestCSVExporterRender(t *testing.T) {
	out, err := NewCSVExporter().Render(sampleDataset())
	require.NoError(t, err)
	assert.Equal(t, "Code,Name,CFU\n01AAAAA,\"Analisi, I\",6\n06FFFFF,Fisica,20\n", string(out))
}

func TestRenderersRequireHeaders(t *testing.T) {
	for _, r := range []Renderer{NewCSVExporter(), NewPDFExporter(), NewXLSXExporter()} {
		_, err := r.Render(Dataset{})
		assert.Error(t, err, r.Extension())
	}
}

func TestXLSXExporterRender(t *testing.T) {
	out, err := NewXLSXExporter().Render(sampleDataset())
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(out))
	require.NoError(t, err)
	defer f.Close() //nolint:errcheck

	sheet := f.GetSheetName(0)
	assert.True(t, strings.HasPrefix(sheet, "Study plan (part-time) 2620-40"), sheet)
	rows, err := f.GetRows(sheet)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"Code", "Name", "CFU"}, rows[0])
	assert.Equal(t, "Analisi, I", rows[1][1])
}

func TestPDFExporterRender(t *testing.T) {
	out, err := NewPDFExporter().Render(sampleDataset())
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF")))
}

func TestSheetName(t *testing.T) {
	assert.Equal(t, defaultSheet, sheetName("[]"))
	assert.Len(t, []rune(sheetName("a very long title that certainly exceeds the limit")), 31)
}
