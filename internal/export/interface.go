package export

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/JadedBlueEyes/libretto/internal"
)

// Exporter writes one room's assembled history in a single format.
type Exporter interface {
	Export(room *internal.RoomExport, w io.Writer) error
	Extension() string
}

var formats = map[string]func() Exporter{
	"json":     func() Exporter { return &JSONExporter{} },
	"jsonl":    func() Exporter { return &JSONLExporter{} },
	"md":       func() Exporter { return &MarkdownExporter{} },
	"markdown": func() Exporter { return &MarkdownExporter{} },
	"yaml":     func() Exporter { return &YAMLExporter{} },
}

// Formats lists the accepted format names.
func Formats() []string {
	names := make([]string, 0, len(formats))
	for name := range formats {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// NewExporter returns the exporter registered for format. Names are matched
// case-insensitively.
func NewExporter(format string) (Exporter, error) {
	newFn, ok := formats[strings.ToLower(strings.TrimSpace(format))]
	if !ok {
		return nil, fmt.Errorf("unsupported format: %q (supported: %s)", format, strings.Join(Formats(), ", "))
	}
	return newFn(), nil
}
