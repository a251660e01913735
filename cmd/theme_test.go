package cmd

import (
	"strings"
	"testing"

	"github.com/iksnae/fale-com-deus/internal"
	"github.com/iksnae/fale-com-deus/testutil"
)

func TestThemeCommand_List(t *testing.T) {
	dir := setupDataDir(t)
	seedStorage(t, dir, map[string]string{internal.KeyAppTheme: string(internal.ThemeEden)})

	stdout, _, err := runCommand(t, "", "theme")
	if err != nil {
		t.Fatalf("theme error = %v", err)
	}
	for _, th := range internal.Themes() {
		if !strings.Contains(stdout, th.Name) {
			t.Errorf("output missing theme %s", th.Name)
		}
	}
	var marked string
	for _, line := range strings.Split(stdout, "\n") {
		if strings.HasPrefix(line, "●") {
			marked = line
		}
	}
	if !strings.Contains(marked, string(internal.ThemeEden)) {
		t.Errorf("marked line = %q, want the stored eden theme", marked)
	}
}

func TestThemeCommand_Set(t *testing.T) {
	tests := []struct {
		name    string
		arg     string
		want    internal.ThemeID
		wantErr bool
	}{
		{"by id", "minimal", internal.ThemeMinimal, false},
		{"by name", "Noturno", internal.ThemeNocturnal, false},
		{"unknown", "neon", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := setupDataDir(t)

			_, _, err := runCommand(t, "", "theme", tt.arg)
			if (err != nil) != tt.wantErr {
				t.Fatalf("theme %s error = %v, wantErr %v", tt.arg, err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if got := restoreStorage(t, dir).Theme; got != tt.want {
				t.Errorf("stored theme = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestThemeCommand_ConfigOverrideWarns(t *testing.T) {
	dir := setupDataDir(t)
	testutil.CreateConfigFixture(t, dir, "theme: serene\n")

	_, stderr, err := runCommand(t, "", "theme", "eden")
	if err != nil {
		t.Fatalf("theme error = %v", err)
	}
	if !strings.Contains(stderr, "overrides the stored theme") {
		t.Errorf("stderr = %q, want an override warning", stderr)
	}
}
