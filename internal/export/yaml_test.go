package export

import (
	"bytes"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"
)

func TestYAMLExporter_Export(t *testing.T) {
	var buf bytes.Buffer
	exporter := &YAMLExporter{}
	if err := exporter.Export(sampleExport(), &buf); err != nil {
		t.Fatalf("YAMLExporter.Export() error = %v", err)
	}

	var decoded struct {
		Room struct {
			ID string `yaml:"room_id"`
		} `yaml:"room"`
		ExportedAt string           `yaml:"exported_at"`
		Events     []map[string]any `yaml:"events"`
	}
	if err := yaml.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("YAMLExporter.Export() produced invalid YAML: %v", err)
	}
	if decoded.Room.ID != "!lounge:example.org" {
		t.Errorf("unexpected room id %q", decoded.Room.ID)
	}
	if decoded.ExportedAt != "2024-01-02T03:04:05Z" {
		t.Errorf("unexpected exported_at %q", decoded.ExportedAt)
	}
	if len(decoded.Events) != 5 {
		t.Fatalf("expected 5 events, got %d", len(decoded.Events))
	}
	if ts, ok := decoded.Events[1]["timestamp"].(int); !ok || ts != 1700000001000 {
		t.Errorf("expected integer timestamp, got %#v", decoded.Events[1]["timestamp"])
	}
	if !strings.Contains(buf.String(), "room_version: \"10\"") {
		t.Errorf("expected state content as nested YAML, got:\n%s", buf.String())
	}
}

func TestNormalizeNumbers(t *testing.T) {
	out, err := toGeneric(map[string]any{"a": 1.5, "b": int64(1700000000000)})
	if err != nil {
		t.Fatal(err)
	}
	m := out.(map[string]any)
	if m["a"] != 1.5 {
		t.Errorf("expected float, got %#v", m["a"])
	}
	if m["b"] != int64(1700000000000) {
		t.Errorf("expected int64, got %#v", m["b"])
	}
}

func TestYAMLExporter_Extension(t *testing.T) {
	exporter := &YAMLExporter{}
	if got := exporter.Extension(); got != "yaml" {
		t.Errorf("YAMLExporter.Extension() = %v, want yaml", got)
	}
}
