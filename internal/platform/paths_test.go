package platform

import (
	"path/filepath"
	"testing"
)

// TestPathsFor verifies per-OS base-directory selection.
func TestPathsFor(t *testing.T) {
	cases := []struct {
		name       string
		goos       string
		env        map[string]string
		configBase string
		dataBase   string
		wantConfig string
		wantDB     string
		wantLog    string
	}{
		{
			name:       "linux with xdg",
			goos:       "linux",
			env:        map[string]string{"XDG_CONFIG_HOME": "/xdg/config", "XDG_DATA_HOME": "/xdg/data"},
			configBase: "/fallback/config",
			dataBase:   "/fallback/data",
			wantConfig: filepath.Join("/xdg/config", "animebridge", "config.toml"),
			wantDB:     filepath.Join("/xdg/data", "animebridge", "animebridge.db"),
			wantLog:    filepath.Join("/xdg/data", "animebridge", "log"),
		},
		{
			name:       "linux without xdg",
			goos:       "linux",
			env:        map[string]string{},
			configBase: "/home/me/.config",
			dataBase:   "/home/me/.local/share",
			wantConfig: filepath.Join("/home/me/.config", "animebridge", "config.toml"),
			wantDB:     filepath.Join("/home/me/.local/share", "animebridge", "animebridge.db"),
			wantLog:    filepath.Join("/home/me/.local/share", "animebridge", "log"),
		},
		{
			name:       "windows appdata",
			goos:       "windows",
			env:        map[string]string{"APPDATA": `C:\Roaming`, "LOCALAPPDATA": `C:\Local`},
			configBase: `C:\fallback\config`,
			dataBase:   `C:\fallback\data`,
			wantConfig: filepath.Join(`C:\Roaming`, "animebridge", "config.toml"),
			wantDB:     filepath.Join(`C:\Local`, "animebridge", "animebridge.db"),
			wantLog:    filepath.Join(`C:\Local`, "animebridge", "log"),
		},
		{
			name:       "darwin ignores xdg",
			goos:       "darwin",
			env:        map[string]string{"XDG_CONFIG_HOME": "/ignored"},
			configBase: "/Users/me/Library/Application Support",
			dataBase:   "/Users/me/Library/Application Support",
			wantConfig: filepath.Join("/Users/me/Library/Application Support", "animebridge", "config.toml"),
			wantDB:     filepath.Join("/Users/me/Library/Application Support", "animebridge", "animebridge.db"),
			wantLog:    filepath.Join("/Users/me/Library/Application Support", "animebridge", "log"),
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p, err := PathsFor(tc.goos, tc.env, tc.configBase, tc.dataBase, DefaultAppName)
			if err != nil {
				t.Fatalf("PathsFor() error = %v", err)
			}
			if p.ConfigPath != tc.wantConfig {
				t.Fatalf("unexpected config path %q", p.ConfigPath)
			}
			if p.DBPath != tc.wantDB {
				t.Fatalf("unexpected db path %q", p.DBPath)
			}
			if p.LogDir != tc.wantLog {
				t.Fatalf("unexpected log dir %q", p.LogDir)
			}
		})
	}
}

// TestPathsForRejectsEmptyInputs verifies base-dir and app-name checks.
func TestPathsForRejectsEmptyInputs(t *testing.T) {
	if _, err := PathsFor("darwin", nil, "", "/tmp/data", DefaultAppName); err == nil {
		t.Fatal("expected error for empty dirs")
	}
	if _, err := PathsFor("linux", nil, "/cfg", "/data", "  "); err == nil {
		t.Fatal("expected error for empty app name")
	}
}

// TestDefaultPathsSmoke verifies the host lookup resolves every path.
func TestDefaultPathsSmoke(t *testing.T) {
	p, err := DefaultPaths()
	if err != nil {
		t.Fatalf("DefaultPaths() error = %v", err)
	}
	if p.ConfigPath == "" || p.DBPath == "" || p.DataDir == "" || p.LogDir == "" {
		t.Fatalf("expected non-empty paths, got %#v", p)
	}
}

// TestDefaultPathsWithOptionsDevMode verifies dev runs get separate locations.
func TestDefaultPathsWithOptionsDevMode(t *testing.T) {
	p, err := DefaultPathsWithOptions(Options{DevMode: true})
	if err != nil {
		t.Fatalf("DefaultPathsWithOptions() error = %v", err)
	}
	if filepath.Base(filepath.Dir(p.ConfigPath)) != "animebridge-dev" {
		t.Fatalf("expected dev config dir suffix, got %q", p.ConfigPath)
	}
	if filepath.Base(p.DBPath) != "animebridge-dev.db" {
		t.Fatalf("expected dev db name, got %q", p.DBPath)
	}
}
