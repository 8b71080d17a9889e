package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestResolveRows(t *testing.T) {
	cases := []struct {
		raw   string
		def   int
		floor int
		want  int
	}{
		{"", 300000, 50000, 300000},
		{"abc", 300000, 50000, 300000},
		{"1000", 300000, 50000, 50000},
		{"400000", 300000, 50000, 400000},
		{"400_000", 300000, 50000, 400000},
		{" 75,000 ", 200000, 50000, 75000},
		{"-5", 50000, 10000, 10000},
	}
	for _, tc := range cases {
		if got := ResolveRows(tc.raw, tc.def, tc.floor); got != tc.want {
			t.Fatalf("ResolveRows(%q) = %d, want %d", tc.raw, got, tc.want)
		}
	}
}

func TestLoadDefaults(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	c, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.MaxProcessRows != DefaultMaxProcessRows {
		t.Fatalf("MaxProcessRows = %d", c.MaxProcessRows)
	}
	if c.AnalysisSampleMaxRows != DefaultAnalysisSampleMaxRows {
		t.Fatalf("AnalysisSampleMaxRows = %d", c.AnalysisSampleMaxRows)
	}
	if c.CleanedExportMaxRows != DefaultCleanedExportMaxRows {
		t.Fatalf("CleanedExportMaxRows = %d", c.CleanedExportMaxRows)
	}
	if c.EmbedModel != "frequency" {
		t.Fatalf("EmbedModel = %q", c.EmbedModel)
	}
	if c.SheetRowCap != DefaultSheetRowCap {
		t.Fatalf("SheetRowCap = %d", c.SheetRowCap)
	}
	if c.JobsDB != filepath.Join(home, ".officeloom", "jobs.db") {
		t.Fatalf("JobsDB = %q", c.JobsDB)
	}
}

func TestLoadEnvOverridesAndFloors(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("OFFICE_MAX_PROCESS_ROWS", "10")
	t.Setenv("OFFICE_CLEANED_EXPORT_MAX_ROWS", "not-a-number")
	t.Setenv("OFFICE_ANALYSIS_SAMPLE_MAX_ROWS", "120000")
	t.Setenv("OFFICE_CPU_TARGET", "0.5")
	c, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.MaxProcessRows != MinMaxProcessRows {
		t.Fatalf("floor not applied: %d", c.MaxProcessRows)
	}
	if c.CleanedExportMaxRows != DefaultCleanedExportMaxRows {
		t.Fatalf("invalid value should fall back to default: %d", c.CleanedExportMaxRows)
	}
	if c.AnalysisSampleMaxRows != 120000 {
		t.Fatalf("AnalysisSampleMaxRows = %d", c.AnalysisSampleMaxRows)
	}
	if c.CPUTarget != "0.5" {
		t.Fatalf("CPUTarget = %q", c.CPUTarget)
	}
}

func TestSaveAndReload(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	path := filepath.Join(home, "cfg.yaml")
	c, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	c.EmbedModel = "hashing:128"
	c.KeypointsMax = 5
	if err := Save(c, path); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("stat: %v", err)
	}
	c2, err := Load(path)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if c2.EmbedModel != "hashing:128" || c2.KeypointsMax != 5 {
		t.Fatalf("reloaded config mismatch: %+v", c2)
	}
}

func TestValidateRejectsBadLogLevel(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("OFFICE_LOG_LEVEL", "chatty")
	if _, err := Load(""); err == nil {
		t.Fatalf("expected validation error")
	}
}
