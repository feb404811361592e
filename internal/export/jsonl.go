package export

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/JadedBlueEyes/libretto/internal"
)

// JSONLExporter exports rooms in JSONL format (one timeline event per line)
type JSONLExporter struct{}

// Export exports a room to JSONL format
func (e *JSONLExporter) Export(room *internal.RoomExport, w io.Writer) error {
	enc := json.NewEncoder(w)

	for _, ev := range room.Events {
		if err := enc.Encode(ev); err != nil {
			return fmt.Errorf("failed to encode event %s: %w", ev.EventID, err)
		}
	}

	return nil
}

// Extension returns the file extension for this format
func (e *JSONLExporter) Extension() string {
	return "jsonl"
}
