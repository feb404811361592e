package export

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/JadedBlueEyes/libretto/internal"
)

// YAMLExporter exports rooms in YAML format
type YAMLExporter struct{}

type yamlDocument struct {
	Room          internal.RoomInfo `yaml:"room"`
	ExportedAt    string            `yaml:"exported_at"`
	EndOfTimeline bool              `yaml:"end_of_timeline"`
	Events        []any             `yaml:"events"`
}

// Export exports a room to YAML format
func (e *YAMLExporter) Export(room *internal.RoomExport, w io.Writer) error {
	doc := yamlDocument{
		Room:          room.Room,
		ExportedAt:    room.ExportedAt.Format("2006-01-02T15:04:05Z07:00"),
		EndOfTimeline: room.EndOfTimeline,
		Events:        make([]any, 0, len(room.Events)),
	}
	for _, ev := range room.Events {
		generic, err := toGeneric(ev)
		if err != nil {
			return fmt.Errorf("failed to convert event %s: %w", ev.EventID, err)
		}
		doc.Events = append(doc.Events, generic)
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	defer func() { _ = enc.Close() }()

	return enc.Encode(doc)
}

// toGeneric round-trips v through its JSON encoding so YAML sees the same
// field names and nested raw event content as JSON does.
func toGeneric(v any) (any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var out any
	if err := dec.Decode(&out); err != nil {
		return nil, err
	}
	return normalizeNumbers(out), nil
}

// normalizeNumbers turns json.Number into int64 or float64.
func normalizeNumbers(v any) any {
	switch v := v.(type) {
	case map[string]any:
		for k, item := range v {
			v[k] = normalizeNumbers(item)
		}
		return v
	case []any:
		for i, item := range v {
			v[i] = normalizeNumbers(item)
		}
		return v
	case json.Number:
		if n, err := v.Int64(); err == nil {
			return n
		}
		if f, err := v.Float64(); err == nil {
			return f
		}
		return v.String()
	default:
		return v
	}
}

// Extension returns the file extension for this format
func (e *YAMLExporter) Extension() string {
	return "yaml"
}
