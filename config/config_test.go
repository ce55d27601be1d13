package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

const sampleConfig = `
mounts:
  - name: library
    path: /srv/music
  - name: incoming
    path: /srv/incoming
rescan_interval: 15m
snapshot_cache: /var/lib/tonearm/cache.db
log:
  level: debug
  json: true
`

func TestParse(t *testing.T) {
	cfg, err := Parse([]byte(sampleConfig))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	if len(cfg.Mounts) != 2 {
		t.Fatalf("Expected 2 mounts, got %d", len(cfg.Mounts))
	}
	if cfg.Mounts[0].Name != "library" || cfg.Mounts[0].Path != "/srv/music" {
		t.Errorf("Unexpected first mount: %+v", cfg.Mounts[0])
	}
	if time.Duration(cfg.RescanInterval) != 15*time.Minute {
		t.Errorf("Unexpected interval: %v", cfg.RescanInterval)
	}
	if cfg.SnapshotCache != "/var/lib/tonearm/cache.db" {
		t.Errorf("Unexpected cache path: %s", cfg.SnapshotCache)
	}
	if cfg.Log.Level != "debug" || !cfg.Log.JSON {
		t.Errorf("Unexpected log config: %+v", cfg.Log)
	}

	points := cfg.MountPoints()
	if len(points) != 2 || points[1].Name != "incoming" {
		t.Errorf("Unexpected mount points: %v", points)
	}
}

func TestParse_Defaults(t *testing.T) {
	cfg, err := Parse([]byte("mounts:\n  - name: library\n    path: /srv/music\n"))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if time.Duration(cfg.RescanInterval) != DefaultRescanInterval {
		t.Errorf("Expected default interval, got %v", cfg.RescanInterval)
	}
	if cfg.Log.Level != "info" {
		t.Errorf("Expected info default level, got %s", cfg.Log.Level)
	}
}

func TestParse_Validation(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want error
	}{
		{"no mounts", "rescan_interval: 5m", ErrNoMounts},
		{"missing path", "mounts:\n  - name: library", ErrIncompleteMount},
		{"duplicate name", "mounts:\n  - name: a\n    path: /x\n  - name: a\n    path: /y", ErrDuplicateMountName},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Parse([]byte(tt.raw)); !errors.Is(err, tt.want) {
				t.Errorf("Expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestParse_InvalidDuration(t *testing.T) {
	raw := "mounts:\n  - name: a\n    path: /x\nrescan_interval: soon"
	if _, err := Parse([]byte(raw)); err == nil {
		t.Error("Expected error for invalid duration")
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tonearm.yaml")
	if err := os.WriteFile(path, []byte(sampleConfig), 0644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(cfg.Mounts) != 2 {
		t.Errorf("Expected 2 mounts, got %d", len(cfg.Mounts))
	}

	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("Expected error for missing file")
	}
}
