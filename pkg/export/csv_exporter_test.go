package export

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCSVExporterRendersInHeaderOrder(t *testing.T) {
	exporter := NewCSVExporter()

	content, err := exporter.Render(Dataset{
		Headers: []string{"Session", "Start", "Status"},
		Rows: []map[string]string{
			{"Session": "session-1", "Start": "2025-09-24T16:30:00Z", "Status": "scheduled"},
			{"Session": "session-2", "Status": "cancelled"},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "Session,Start,Status\nsession-1,2025-09-24T16:30:00Z,scheduled\nsession-2,,cancelled\n", string(content))
}

func TestCSVExporterRequiresHeaders(t *testing.T) {
	_, err := NewCSVExporter().Render(Dataset{})
	assert.Error(t, err)
}
