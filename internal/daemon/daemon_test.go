package daemon

import (
	"archive/zip"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gofrs/flock"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/Nomadcxx/jellyname/internal/config"
	"github.com/Nomadcxx/jellyname/internal/reporter"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Daemon.Inbox = t.TempDir()
	cfg.Daemon.Output = t.TempDir()
	cfg.Rename.Template = "{ShowName} {Season}x{Episode}"
	return cfg
}

func newTestDaemon(t *testing.T, cfg *config.Config) (*Daemon, *observer.ObservedLogs, string) {
	t.Helper()
	core, logs := observer.New(zap.InfoLevel)
	reportDir := t.TempDir()
	d, err := New(cfg, zap.New(core), WithReportDir(reportDir), WithJournalDir(t.TempDir()))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return d, logs, reportDir
}

func writeZip(t *testing.T, path string, files map[string]string) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	zw := zip.NewWriter(f)
	for name, body := range files {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := w.Write([]byte(body)); err != nil {
			t.Fatal(err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func TestNewValidation(t *testing.T) {
	if _, err := New(nil, nil); err == nil {
		t.Error("expected error for nil config")
	}

	cfg := config.DefaultConfig()
	if _, err := New(cfg, nil); err == nil {
		t.Error("expected error without inbox and output")
	}

	cfg.Daemon.Inbox = t.TempDir()
	cfg.Daemon.Output = filepath.Join(cfg.Daemon.Inbox, "out")
	if _, err := New(cfg, nil); err == nil {
		t.Error("expected error for output inside inbox")
	}

	cfg.Daemon.Output = t.TempDir()
	cfg.Patterns.Episode = []string{"("}
	if _, err := New(cfg, nil); err == nil {
		t.Error("expected error for invalid patterns")
	}
}

func TestWithin(t *testing.T) {
	tests := []struct {
		path, dir string
		want      bool
	}{
		{"/inbox", "/inbox", true},
		{"/inbox/out", "/inbox", true},
		{"/inbox/../out", "/inbox", false},
		{"/inbox2", "/inbox", false},
		{"/out", "/inbox", false},
		{"/inbox/..out", "/inbox", true},
	}
	for _, tt := range tests {
		if got := within(tt.path, tt.dir); got != tt.want {
			t.Errorf("within(%q, %q) = %v, want %v", tt.path, tt.dir, got, tt.want)
		}
	}
}

func TestSweep(t *testing.T) {
	cfg := testConfig(t)
	d, logs, reportDir := newTestDaemon(t, cfg)
	inbox, output := cfg.Daemon.Inbox, cfg.Daemon.Output

	writeZip(t, filepath.Join(inbox, "pack.zip"), map[string]string{"Show.S01E01.mkv": "video"})
	writeFile(t, filepath.Join(inbox, "Other.S02E03.mkv"), "loose")
	writeFile(t, filepath.Join(inbox, "notes.txt"), "keep me")

	result, err := d.Sweep(context.Background())
	if err != nil {
		t.Fatalf("Sweep failed: %v", err)
	}

	if result.Archives != 1 || result.Failed != 0 || result.Files != 2 {
		t.Errorf("unexpected sweep result %+v", result)
	}

	if !exists(filepath.Join(output, "pack", "Show 01x01.mkv")) {
		t.Error("archive media should be extracted and renamed")
	}
	if !exists(filepath.Join(output, "Other 02x03.mkv")) {
		t.Error("loose media should be renamed into the output")
	}
	if exists(filepath.Join(inbox, "Other.S02E03.mkv")) {
		t.Error("loose media should leave the inbox")
	}
	if !exists(filepath.Join(inbox, "pack.zip"+DoneSuffix)) || exists(filepath.Join(inbox, "pack.zip")) {
		t.Error("processed archive should be marked done")
	}
	if !exists(filepath.Join(inbox, "notes.txt")) {
		t.Error("non-media files must be left alone")
	}

	if filepath.Dir(result.Report) != reportDir {
		t.Errorf("report written to %s, want %s", result.Report, reportDir)
	}
	records, err := reporter.ReadRecords(result.Report)
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 3 || records[2].Type != "summary" {
		t.Errorf("expected archive, rename and summary records, got %d", len(records))
	}

	if len(logs.FilterMessage("sweep finished").All()) != 1 {
		t.Error("expected a sweep summary log entry")
	}

	again, err := d.Sweep(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if again.Archives != 0 || again.Files != 0 {
		t.Errorf("second sweep should find nothing, got %+v", again)
	}
}

func TestSweepRemovesArchives(t *testing.T) {
	cfg := testConfig(t)
	cfg.Daemon.KeepArchives = false
	d, _, _ := newTestDaemon(t, cfg)

	zipPath := filepath.Join(cfg.Daemon.Inbox, "pack.zip")
	writeZip(t, zipPath, map[string]string{"Show.S01E01.mkv": "video"})

	if _, err := d.Sweep(context.Background()); err != nil {
		t.Fatal(err)
	}
	if exists(zipPath) || exists(zipPath+DoneSuffix) {
		t.Error("processed archive should be removed")
	}
}

func TestSweepMarksFailedArchives(t *testing.T) {
	cfg := testConfig(t)
	d, logs, _ := newTestDaemon(t, cfg)

	zipPath := filepath.Join(cfg.Daemon.Inbox, "broken.zip")
	writeFile(t, zipPath, "not a zip")

	result, err := d.Sweep(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if result.Archives != 1 || result.Failed != 1 {
		t.Errorf("unexpected result %+v", result)
	}
	if !exists(zipPath + FailedSuffix) {
		t.Error("broken archive should be marked failed")
	}
	if len(logs.FilterMessage("archive failed").All()) != 1 {
		t.Error("expected a warning for the failed archive")
	}
}

func TestSweepManyArchives(t *testing.T) {
	cfg := testConfig(t)
	cfg.Daemon.Workers = 3
	d, _, _ := newTestDaemon(t, cfg)

	names := []string{"a.zip", "b.zip", "c.zip", "d.zip", "e.zip"}
	for i, name := range names {
		writeZip(t, filepath.Join(cfg.Daemon.Inbox, name), map[string]string{
			"Show.S01E0" + string(rune('1'+i)) + ".mkv": "v",
		})
	}

	result, err := d.Sweep(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if result.Archives != len(names) || result.Files != len(names) {
		t.Errorf("unexpected result %+v", result)
	}
	for _, name := range names {
		if !exists(filepath.Join(cfg.Daemon.Inbox, name+DoneSuffix)) {
			t.Errorf("%s not marked done", name)
		}
	}
}

func TestSweepBusy(t *testing.T) {
	cfg := testConfig(t)
	d, _, _ := newTestDaemon(t, cfg)

	lock := flock.New(filepath.Join(cfg.Daemon.Inbox, LockName))
	ok, err := lock.TryLock()
	if err != nil || !ok {
		t.Fatalf("failed to take lock: %v", err)
	}
	defer lock.Unlock()

	writeFile(t, filepath.Join(cfg.Daemon.Inbox, "Show.S01E01.mkv"), "v")

	if _, err := d.Sweep(context.Background()); !errors.Is(err, ErrBusy) {
		t.Fatalf("expected ErrBusy, got %v", err)
	}
	if !exists(filepath.Join(cfg.Daemon.Inbox, "Show.S01E01.mkv")) {
		t.Error("a busy inbox must not be touched")
	}
}

func TestSweepMissingInbox(t *testing.T) {
	cfg := testConfig(t)
	cfg.Daemon.Inbox = filepath.Join(cfg.Daemon.Inbox, "missing")
	d, _, _ := newTestDaemon(t, cfg)

	if _, err := d.Sweep(context.Background()); err == nil {
		t.Error("expected error for missing inbox")
	}
}

func TestRunSweepsUntilCancelled(t *testing.T) {
	cfg := testConfig(t)
	cfg.Daemon.Interval = "1h"
	d, _, _ := newTestDaemon(t, cfg)

	writeFile(t, filepath.Join(cfg.Daemon.Inbox, "Show.S01E04.mkv"), "v")
	target := filepath.Join(cfg.Daemon.Output, "Show 01x04.mkv")

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- d.Run(ctx)
	}()

	deadline := time.Now().Add(5 * time.Second)
	for !exists(target) && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if !exists(target) {
		t.Error("Run should sweep immediately")
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run returned %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not stop after cancel")
	}
}

func TestRunWithSchedule(t *testing.T) {
	cfg := testConfig(t)
	cfg.Daemon.Schedule = "0 3 * * *"
	d, logs, _ := newTestDaemon(t, cfg)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- d.Run(ctx)
	}()

	deadline := time.Now().Add(5 * time.Second)
	for len(logs.FilterMessage("sweep finished").All()) == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	cancel()

	if err := <-done; err != nil {
		t.Errorf("Run returned %v", err)
	}
	if len(logs.FilterMessage("daemon scheduled").FilterField(zap.String("schedule", "0 3 * * *")).All()) != 1 {
		t.Error("expected the cron schedule to be logged")
	}
}

func TestRunInvalidInterval(t *testing.T) {
	cfg := testConfig(t)
	cfg.Daemon.Interval = "1s"
	d, _, _ := newTestDaemon(t, cfg)

	if err := d.Run(context.Background()); err == nil {
		t.Error("expected error for an interval below the minimum")
	}
}

func TestSweepRemovesEmptyFolders(t *testing.T) {
	cfg := testConfig(t)
	d, _, _ := newTestDaemon(t, cfg)
	inbox, output := cfg.Daemon.Inbox, cfg.Daemon.Output

	drop := filepath.Join(inbox, "Season 1")
	withExtras := filepath.Join(inbox, "Season 2")
	for _, dir := range []string{drop, withExtras} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			t.Fatal(err)
		}
	}
	writeFile(t, filepath.Join(drop, "Show.S01E04.mkv"), "video")
	writeFile(t, filepath.Join(withExtras, "Show.S02E01.mkv"), "video")
	writeFile(t, filepath.Join(withExtras, "info.nfo"), "keep")

	if _, err := d.Sweep(context.Background()); err != nil {
		t.Fatal(err)
	}

	if !exists(filepath.Join(output, "Show 01x04.mkv")) || !exists(filepath.Join(output, "Show 02x01.mkv")) {
		t.Error("nested media should be moved into the output")
	}
	if exists(drop) {
		t.Error("emptied folder should be removed")
	}
	if !exists(filepath.Join(withExtras, "info.nfo")) {
		t.Error("folder with leftovers must be kept")
	}
	if !exists(inbox) {
		t.Error("inbox must be kept")
	}
}
