package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/nao1215/ragcrawler/internal/config"
)

// TestPresetsCommand tests the preset listing.
func TestPresetsCommand(t *testing.T) {
	t.Parallel()

	cfgPath := writeConfigFile(t, `presets:
  - name: internal-wiki
    test: 'wiki\.corp\.example/'
    options:
      maxConnections: 2
      headers:
        Authorization: "Bearer secret-value"
`)

	t.Run("lists config presets before built-ins", func(t *testing.T) {
		t.Parallel()

		stdout, _, err := executeRoot(t, "presets", "-c", cfgPath)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		wiki := strings.Index(stdout, "internal-wiki")
		repo := strings.Index(stdout, "github-repo")
		if wiki < 0 || repo < 0 || wiki > repo {
			t.Errorf("expected internal-wiki before github-repo, got:\n%s", stdout)
		}
		if !strings.Contains(stdout, "github-wiki") {
			t.Errorf("expected github-wiki preset, got:\n%s", stdout)
		}
		if strings.Contains(stdout, "secret-value") {
			t.Errorf("expected header values to be hidden, got:\n%s", stdout)
		}
	})

	t.Run("reports the matching preset", func(t *testing.T) {
		t.Parallel()

		stdout, _, err := executeRoot(t, "presets", "-c", cfgPath, "https://github.com/owner/repo/wiki/Home")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(stdout, `uses preset "github-wiki"`) {
			t.Errorf("expected github-wiki match, got:\n%s", stdout)
		}
	})

	t.Run("reports no match", func(t *testing.T) {
		t.Parallel()

		stdout, _, err := executeRoot(t, "presets", "-c", cfgPath, "https://example.com/")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(stdout, "No preset matches") {
			t.Errorf("expected no match message, got:\n%s", stdout)
		}
	})
}

func TestWritePresetTable(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	if err := writePresetTable(&buf, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "builtin") || strings.Contains(out, "| config") {
		t.Errorf("expected only built-in presets, got:\n%s", out)
	}
	if !strings.Contains(out, "exclude=changelog,changes,license") {
		t.Errorf("expected github-repo options, got:\n%s", out)
	}
}

func TestDescribeOverrides(t *testing.T) {
	t.Parallel()

	off := false
	tests := []struct {
		name string
		in   config.Overrides
		want string
	}{
		{name: "empty", in: config.Overrides{}, want: "-"},
		{name: "cleared exclude", in: config.Overrides{Exclude: []string{}}, want: "exclude="},
		{
			name: "every field",
			in: config.Overrides{
				MaxConnections: intPtr(3),
				Exclude:        []string{"a", "b"},
				Extract:        strPtr("main"),
				ToMarkdown:     &off,
				BreakOnError:   &off,
				LogEnabled:     &off,
				Headers:        map[string]string{"X-B": "1", "X-A": "2"},
			},
			want: `maxConnections=3 exclude=a,b extract="main" toMarkdown=false breakOnError=false logEnabled=false headers=X-A,X-B`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := describeOverrides(tt.in); got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}
