package export

import (
	"encoding/json"
	"io"

	"github.com/JadedBlueEyes/libretto/internal"
)

// JSONExporter exports rooms in JSON format (pretty-printed)
type JSONExporter struct{}

// Export exports a room to JSON format
func (e *JSONExporter) Export(room *internal.RoomExport, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")

	out := *room
	if out.Events == nil {
		out.Events = []internal.TimelineEvent{}
	}
	return enc.Encode(out)
}

// Extension returns the file extension for this format
func (e *JSONExporter) Extension() string {
	return "json"
}
