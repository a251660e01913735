package export

import (
	"bytes"
	"strings"
	"testing"

	"github.com/iksnae/fale-com-deus/internal"
	"gopkg.in/yaml.v3"
)

func TestYAMLExporter_Export(t *testing.T) {
	tests := []struct {
		name    string
		session internal.ArchivedSession
	}{
		{
			name:    "basic session",
			session: internal.CreateTestArchivedSession("test1", internal.PersonaSpiritism),
		},
		{
			name: "title with yaml metacharacters",
			session: func() internal.ArchivedSession {
				s := internal.CreateTestArchivedSession("test2", internal.PersonaAgnostic)
				s.Title = "Dúvida: existe algo: além?"
				return s
			}(),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			exporter := &YAMLExporter{}

			if err := exporter.Export(tt.session, &buf); err != nil {
				t.Fatalf("YAMLExporter.Export() error = %v", err)
			}

			var doc document
			if err := yaml.Unmarshal(buf.Bytes(), &doc); err != nil {
				t.Fatalf("Output is not valid YAML: %v\nOutput: %s", err, buf.String())
			}
			if doc.Title != tt.session.Title {
				t.Errorf("title = %q, want %q", doc.Title, tt.session.Title)
			}
			if len(doc.Messages) != len(tt.session.Turns) {
				t.Errorf("messages = %d, want %d", len(doc.Messages), len(tt.session.Turns))
			}
			if !strings.Contains(buf.String(), "persona_name:") {
				t.Error("Output should contain persona_name")
			}
		})
	}
}

func TestYAMLExporter_Extension(t *testing.T) {
	exporter := &YAMLExporter{}
	if got := exporter.Extension(); got != "yaml" {
		t.Errorf("YAMLExporter.Extension() = %v, want yaml", got)
	}
}
