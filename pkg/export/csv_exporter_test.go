package export

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCSVExporterRender(t *testing.T) {
	exp := &CSVExporter{}
	out, err := exp.Render(Dataset{
		Columns: []Column{{Key: "code", Label: "Código"}, {Key: "name"}},
		Rows: []map[string]string{
			{"code": "518002", "name": "English I"},
			{"code": "517020", "name": "Didáctica, general"},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "Código,name\n518002,English I\n517020,\"Didáctica, general\"\n", string(out))
}

func TestCSVExporterBOM(t *testing.T) {
	out, err := NewCSVExporter().Render(Dataset{Columns: []Column{{Key: "a"}}})
	require.NoError(t, err)
	assert.Equal(t, "\ufeffa\n", string(out))
}

func TestCSVExporterRequiresColumns(t *testing.T) {
	_, err := NewCSVExporter().Render(Dataset{})
	require.Error(t, err)
}
