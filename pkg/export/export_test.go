package export

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func timelineDataset() Dataset {
	return Dataset{
		Title:   "Acme timeline",
		Headers: []string{"unit", "step", "date"},
		Rows: [][]string{
			{"IT", "Entry", "2024-03-01"},
			{"IT", "Interview, first", "2024-03-11"},
		},
	}
}

func TestCSVExporterRender(t *testing.T) {
	out, err := NewCSVExporter().Render(timelineDataset())
	require.NoError(t, err)
	assert.Equal(t, "unit,step,date\nIT,Entry,2024-03-01\nIT,\"Interview, first\",2024-03-11\n", string(out))
}

func TestExportersRejectRaggedRows(t *testing.T) {
	data := timelineDataset()
	data.Rows = append(data.Rows, []string{"IT"})

	_, err := NewCSVExporter().Render(data)
	assert.Error(t, err)
	_, err = NewPDFExporter().Render(data)
	assert.Error(t, err)
	_, err = NewCSVExporter().Render(Dataset{})
	assert.Error(t, err)
}

func TestPDFExporterRender(t *testing.T) {
	out, err := NewPDFExporter().Render(timelineDataset())
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF")))

	wide := Dataset{Headers: []string{"a", "b", "c", "d", "e", "f"}, Rows: [][]string{{"1", "2", "3", "4", "5", "6"}}}
	out, err = NewPDFExporter().Render(wide)
	require.NoError(t, err)
	assert.NotEmpty(t, out)
}

func TestPDFExporterUTF8Font(t *testing.T) {
	data := Dataset{
		Title:   "Сбербанк timeline",
		Headers: []string{"unit", "step", "date"},
		Rows:    [][]string{{"ИТ", "Собеседование", "2024-03-11"}},
	}

	out, err := NewPDFExporter(WithUTF8Font("testdata/DejaVuSansCondensed.ttf")).Render(data)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF")))
	assert.Contains(t, string(out), "/BaseFont /utf8"+utf8Family)

	out, err = NewPDFExporter(WithUTF8Font("")).Render(data)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF")))
	assert.NotContains(t, string(out), "/BaseFont /utf8")

	_, err = NewPDFExporter(WithUTF8Font("testdata/missing.ttf")).Render(data)
	assert.Error(t, err)
}
