package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/nao1215/ragcrawler/internal/crawler"
)

// TestNewConfig verifies that NewConfig returns a Config with all expected default values.
func TestNewConfig(t *testing.T) {
	t.Parallel()

	cfg := NewConfig()

	t.Run("default Timeout is 60 seconds", func(t *testing.T) {
		t.Parallel()
		if cfg.Timeout != 60*time.Second {
			t.Errorf("expected Timeout to be 60s, got %v", cfg.Timeout)
		}
	})

	t.Run("default MaxRedirects is 3", func(t *testing.T) {
		t.Parallel()
		if cfg.MaxRedirects != 3 {
			t.Errorf("expected MaxRedirects to be 3, got %d", cfg.MaxRedirects)
		}
	})

	t.Run("default UserAgent is a desktop browser", func(t *testing.T) {
		t.Parallel()
		if !strings.HasPrefix(cfg.UserAgent, "Mozilla/5.0") {
			t.Errorf("unexpected UserAgent %q", cfg.UserAgent)
		}
	})

	t.Run("archive is disabled by default", func(t *testing.T) {
		t.Parallel()
		if cfg.DatabasePath() != "" {
			t.Errorf("expected no database path, got %q", cfg.DatabasePath())
		}
	})
}

// TestConfigValidate tests the Validate method with various configurations.
// Each test case is designed to test one specific validation rule.
func TestConfigValidate(t *testing.T) {
	t.Parallel()

	validConfig := func() *Config {
		cfg := NewConfig()
		cfg.StartURL = "https://example.com/docs/"
		return cfg
	}

	t.Run("valid config returns nil", func(t *testing.T) {
		t.Parallel()
		if err := validConfig().Validate(); err != nil {
			t.Errorf("expected no error, got %v", err)
		}
	})

	tests := []struct {
		name   string
		mutate func(*Config)
		want   error
	}{
		{
			name:   "empty start URL returns ErrNoTarget",
			mutate: func(c *Config) { c.StartURL = "" },
			want:   ErrNoTarget,
		},
		{
			name: "zero max connections returns ErrInvalidMaxConnections",
			mutate: func(c *Config) {
				zero := 0
				c.Crawl.MaxConnections = &zero
			},
			want: ErrInvalidMaxConnections,
		},
		{
			name:   "zero timeout returns ErrInvalidTimeout",
			mutate: func(c *Config) { c.Timeout = 0 },
			want:   ErrInvalidTimeout,
		},
		{
			name:   "negative timeout returns ErrInvalidTimeout",
			mutate: func(c *Config) { c.Timeout = -time.Second },
			want:   ErrInvalidTimeout,
		},
		{
			name:   "negative max redirects returns ErrInvalidMaxRedirects",
			mutate: func(c *Config) { c.MaxRedirects = -1 },
			want:   ErrInvalidMaxRedirects,
		},
		{
			name:   "negative max body size returns ErrInvalidMaxBodySize",
			mutate: func(c *Config) { c.MaxBodySize = -1 },
			want:   ErrInvalidMaxBodySize,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := validConfig()
			tt.mutate(cfg)
			if err := cfg.Validate(); !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}

	t.Run("zero redirects is valid", func(t *testing.T) {
		t.Parallel()
		cfg := validConfig()
		cfg.MaxRedirects = 0
		if err := cfg.Validate(); err != nil {
			t.Errorf("expected no error, got %v", err)
		}
	})
}

func TestConfigDatabasePath(t *testing.T) {
	t.Parallel()

	t.Run("explicit path wins", func(t *testing.T) {
		t.Parallel()
		cfg := NewConfig()
		cfg.DBPath = "/tmp/crawl.db"
		cfg.SaveToDB = true
		if got := cfg.DatabasePath(); got != "/tmp/crawl.db" {
			t.Errorf("unexpected path %q", got)
		}
	})

	t.Run("save uses the XDG data directory", func(t *testing.T) {
		t.Parallel()
		cfg := NewConfig()
		cfg.SaveToDB = true
		want := filepath.Join(XDGDataDir(), DefaultDBFile)
		if got := cfg.DatabasePath(); got != want {
			t.Errorf("expected %q, got %q", want, got)
		}
	})
}

func TestConfigFetchOptions(t *testing.T) {
	t.Parallel()

	cfg := NewConfig()
	cfg.ProxyURL = "socks5://127.0.0.1:1080"
	cfg.UserAgent = "custom-agent"
	cfg.MaxRedirects = 1

	fetch := cfg.FetchOptions()
	if fetch.Headers["User-Agent"] != "custom-agent" {
		t.Errorf("unexpected headers %v", fetch.Headers)
	}
	if fetch.ProxyURL != cfg.ProxyURL || fetch.MaxRedirects != 1 || fetch.Timeout != crawler.DefaultTimeout {
		t.Errorf("unexpected fetch options %+v", fetch)
	}
}

// TestLoadConfigFile tests the LoadConfigFile function.
func TestLoadConfigFile(t *testing.T) {
	t.Parallel()

	writeConfig := func(t *testing.T, content string) string {
		t.Helper()
		path := filepath.Join(t.TempDir(), DefaultConfigFile)
		if err := os.WriteFile(path, []byte(content), 0600); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}
		return path
	}

	t.Run("returns ErrConfigNotFound for non-existent file", func(t *testing.T) {
		t.Parallel()

		cfg, err := LoadConfigFile("/nonexistent/path/.ragcrawler")
		if !errors.Is(err, ErrConfigNotFound) {
			t.Fatalf("expected ErrConfigNotFound, got: %v", err)
		}
		if cfg != nil {
			t.Error("expected nil config when file not found")
		}
	})

	t.Run("loads defaults and presets", func(t *testing.T) {
		t.Parallel()

		path := writeConfig(t, `defaults:
  maxConnections: 8
  breakOnError: false
presets:
  - name: my-docs
    test: docs\.example\.com
    options:
      extract: "main"
      exclude: [archive]
      headers:
        Authorization: "Bearer token"
`)

		cfg, err := LoadConfigFile(path)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if cfg.Defaults.MaxConnections == nil || *cfg.Defaults.MaxConnections != 8 {
			t.Errorf("unexpected defaults %+v", cfg.Defaults)
		}
		if cfg.Defaults.BreakOnError == nil || *cfg.Defaults.BreakOnError {
			t.Error("expected breakOnError false")
		}
		if len(cfg.Presets) != 1 {
			t.Fatalf("expected 1 preset, got %d", len(cfg.Presets))
		}
		p := cfg.Presets[0]
		if p.Name != "my-docs" || p.Options.Extract == nil || *p.Options.Extract != "main" {
			t.Errorf("unexpected preset %+v", p)
		}
		if p.Options.Headers["Authorization"] != "Bearer token" {
			t.Error("expected Authorization header")
		}
	})

	t.Run("returns error for invalid YAML", func(t *testing.T) {
		t.Parallel()

		if _, err := LoadConfigFile(writeConfig(t, `invalid: yaml: content: [}`)); err == nil {
			t.Error("expected error for invalid YAML")
		}
	})

	t.Run("rejects preset with invalid pattern", func(t *testing.T) {
		t.Parallel()

		path := writeConfig(t, `presets:
  - name: broken
    test: "docs(["
`)
		if _, err := LoadConfigFile(path); !errors.Is(err, ErrInvalidPreset) {
			t.Errorf("expected ErrInvalidPreset, got %v", err)
		}
	})

	t.Run("rejects preset without a name", func(t *testing.T) {
		t.Parallel()

		path := writeConfig(t, `presets:
  - test: docs
`)
		if _, err := LoadConfigFile(path); !errors.Is(err, ErrInvalidPreset) {
			t.Errorf("expected ErrInvalidPreset, got %v", err)
		}
	})
}

// TestFindConfigFile tests the FindConfigFile function.
func TestFindConfigFile(t *testing.T) {
	t.Run("returns explicit path if exists", func(t *testing.T) {
		configPath := filepath.Join(t.TempDir(), "custom.yaml")
		if err := os.WriteFile(configPath, []byte("defaults: {}"), 0600); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}

		if result := FindConfigFile(configPath); result != configPath {
			t.Errorf("expected %q, got %q", configPath, result)
		}
	})

	t.Run("returns empty for non-existent explicit path", func(t *testing.T) {
		if result := FindConfigFile("/nonexistent/path/config.yaml"); result != "" {
			t.Errorf("expected empty string, got %q", result)
		}
	})

	t.Run("finds the file in the working directory", func(t *testing.T) {
		dir := t.TempDir()
		configPath := filepath.Join(dir, DefaultConfigFile)
		if err := os.WriteFile(configPath, []byte("defaults: {}"), 0600); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}
		t.Chdir(dir)

		result := FindConfigFile("")
		if filepath.Base(result) != DefaultConfigFile || filepath.Dir(result) == "" {
			t.Errorf("expected config in working directory, got %q", result)
		}
	})
}

// TestXDGDirs tests XDG directory functions.
func TestXDGDirs(t *testing.T) {
	t.Parallel()

	t.Run("XDGDataDir ends with the app name", func(t *testing.T) {
		t.Parallel()
		if filepath.Base(XDGDataDir()) != AppName {
			t.Errorf("unexpected XDG data dir %q", XDGDataDir())
		}
	})

	t.Run("XDGConfigDir ends with the app name", func(t *testing.T) {
		t.Parallel()
		if filepath.Base(XDGConfigDir()) != AppName {
			t.Errorf("unexpected XDG config dir %q", XDGConfigDir())
		}
	})
}
