// Package export writes archived sessions to files in several formats.
package export

import (
	"fmt"
	"io"
	"strings"

	"github.com/iksnae/fale-com-deus/internal"
)

// Exporter defines the interface for all export formats
type Exporter interface {
	Export(session internal.ArchivedSession, w io.Writer) error
	Extension() string
}

// Formats lists the accepted format names
var Formats = []string{"json", "jsonl", "yaml", "md"}

// NewExporter creates a new exporter based on format
func NewExporter(format string) (Exporter, error) {
	switch strings.ToLower(format) {
	case "jsonl":
		return &JSONLExporter{}, nil
	case "md", "markdown":
		return &MarkdownExporter{}, nil
	case "yaml", "yml":
		return &YAMLExporter{}, nil
	case "json":
		return &JSONExporter{}, nil
	default:
		return nil, fmt.Errorf("unsupported format: %s (supported: jsonl, md, yaml, json)", format)
	}
}
