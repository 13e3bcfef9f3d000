package export

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func sampleDataset() Dataset {
	return Dataset{
		Headers: []string{"Room", "Bench", "Left"},
		Rows: []map[string]string{
			{"Room": "A", "Bench": "1", "Left": "101"},
			{"Room": "A", "Bench": "2", "Left": "-"},
		},
	}
}

func TestCSVExporterRender(t *testing.T) {
	payload, err := NewCSVExporter().Render(sampleDataset())
	require.NoError(t, err)
	require.Equal(t, "Room,Bench,Left\nA,1,101\nA,2,-\n", string(payload))
}

func TestCSVExporterRequiresHeaders(t *testing.T) {
	_, err := NewCSVExporter().Render(Dataset{})
	require.Error(t, err)
}

func TestPDFExporterRender(t *testing.T) {
	payload, err := NewPDFExporter().Render(sampleDataset(), "Seating Plan")
	require.NoError(t, err)
	require.True(t, bytes.HasPrefix(payload, []byte("%PDF")))
}

func TestXLSXExporterRender(t *testing.T) {
	payload, err := NewXLSXExporter().Render(sampleDataset(), "Seating Plan")
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(payload))
	require.NoError(t, err)
	defer f.Close() //nolint:errcheck

	rows, err := f.GetRows("Seating Plan")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	require.Equal(t, []string{"Room", "Bench", "Left"}, rows[0])
	require.Equal(t, []string{"A", "1", "101"}, rows[1])
}
