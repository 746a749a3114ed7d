package organizer

import (
	"archive/zip"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/Nomadcxx/jellyname/internal/config"
	"github.com/Nomadcxx/jellyname/internal/detector"
	"github.com/Nomadcxx/jellyname/internal/session"
)

func newTestOrganizer(t *testing.T) (*Organizer, *observer.ObservedLogs, string) {
	t.Helper()
	core, logs := observer.New(zap.InfoLevel)
	journalDir := filepath.Join(t.TempDir(), "journals")
	o := New(detector.Default(), config.DefaultConfig().Media,
		WithLogger(zap.New(core)),
		WithJournalDir(journalDir))
	return o, logs, journalDir
}

func touch(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestUniquePath(t *testing.T) {
	dir := t.TempDir()
	claims := Claims{}

	first := UniquePath(dir, "Show.mkv", claims)
	if first != filepath.Join(dir, "Show.mkv") {
		t.Errorf("expected free name, got %s", first)
	}

	second := UniquePath(dir, "Show.mkv", claims)
	if second != filepath.Join(dir, "Show_1.mkv") {
		t.Errorf("expected claimed name to get suffix, got %s", second)
	}

	touch(t, filepath.Join(dir, "Other.mkv"), "x")
	touch(t, filepath.Join(dir, "Other_1.mkv"), "x")
	if got := UniquePath(dir, "Other.mkv", nil); got != filepath.Join(dir, "Other_2.mkv") {
		t.Errorf("expected Other_2.mkv, got %s", got)
	}
}

func TestPlanInPlace(t *testing.T) {
	o, _, _ := newTestOrganizer(t)
	root := t.TempDir()

	touch(t, filepath.Join(root, "Show.S01E01.720p.mkv"), "video")
	touch(t, filepath.Join(root, "Show.S01E01.720p.srt"), "subs")
	touch(t, filepath.Join(root, "notes.txt"), "text")
	touch(t, filepath.Join(root, ".staging", "Hidden.S01E09.mkv"), "hidden")

	settings := session.Settings{Template: "{ShowName} S{Season}E{Episode}.{Extension}"}
	ops, err := o.Plan(root, settings)
	if err != nil {
		t.Fatalf("Plan failed: %v", err)
	}

	if len(ops) != 2 {
		t.Fatalf("expected 2 operations, got %d: %+v", len(ops), ops)
	}

	if ops[0].Target != filepath.Join(root, "Show S01E01.mkv") {
		t.Errorf("unexpected target %s", ops[0].Target)
	}
	if ops[0].Kind != config.KindVideo || ops[0].Info == nil || ops[0].Size != int64(len("video")) {
		t.Errorf("unexpected video op: %+v", ops[0])
	}

	if !ops[1].Noop() || ops[1].Kind != config.KindSubtitle {
		t.Errorf("subtitle should keep its name, got %+v", ops[1])
	}
}

func TestPlanCollisions(t *testing.T) {
	o, _, _ := newTestOrganizer(t)
	root := t.TempDir()

	touch(t, filepath.Join(root, "a_01_.mkv"), "a")
	touch(t, filepath.Join(root, "b_01_.mkv"), "b")
	touch(t, filepath.Join(root, "Ep 01.mkv"), "existing")

	settings := session.Settings{Template: "Ep {Episode}.{Extension}"}
	ops, err := o.Plan(root, settings)
	if err != nil {
		t.Fatalf("Plan failed: %v", err)
	}

	targets := map[string]string{}
	for _, op := range ops {
		targets[filepath.Base(op.Source)] = filepath.Base(op.Target)
	}

	if targets["Ep 01.mkv"] != "Ep 01.mkv" {
		t.Errorf("already-correct file should be a no-op, got %s", targets["Ep 01.mkv"])
	}
	if targets["a_01_.mkv"] != "Ep 01_1.mkv" {
		t.Errorf("expected a -> Ep 01_1.mkv, got %s", targets["a_01_.mkv"])
	}
	if targets["b_01_.mkv"] != "Ep 01_2.mkv" {
		t.Errorf("expected b -> Ep 01_2.mkv, got %s", targets["b_01_.mkv"])
	}
}

func TestPlanIntoMovesFlat(t *testing.T) {
	o, _, _ := newTestOrganizer(t)
	root := t.TempDir()
	out := filepath.Join(t.TempDir(), "out")

	touch(t, filepath.Join(root, "nested", "Show.S02E03.mkv"), "v")

	ops, err := o.PlanInto(root, out, session.Settings{Template: "{ShowName} {Season}x{Episode}"})
	if err != nil {
		t.Fatalf("PlanInto failed: %v", err)
	}
	if len(ops) != 1 {
		t.Fatalf("expected 1 op, got %d", len(ops))
	}
	if ops[0].Type != OpMove || ops[0].Target != filepath.Join(out, "Show 02x03.mkv") {
		t.Errorf("unexpected op %+v", ops[0])
	}

	if _, err := o.PlanInto(root, "", session.Settings{}); err == nil {
		t.Error("expected error for empty output directory")
	}
}

func TestPlanRejectsFile(t *testing.T) {
	o, _, _ := newTestOrganizer(t)
	file := filepath.Join(t.TempDir(), "file.mkv")
	touch(t, file, "x")

	if _, err := o.Plan(file, session.Settings{}); err == nil {
		t.Error("expected error when planning a file")
	}
}

func TestApplyAndUndo(t *testing.T) {
	o, logs, journalDir := newTestOrganizer(t)
	root := t.TempDir()

	touch(t, filepath.Join(root, "Show.S01E01.mkv"), "one")
	touch(t, filepath.Join(root, "Show.S01E02.mkv"), "two")

	ops, err := o.Plan(root, session.Settings{Template: "E{Episode}.{Extension}"})
	if err != nil {
		t.Fatalf("Plan failed: %v", err)
	}

	journal, err := o.Apply(context.Background(), ops, false)
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}

	if journal.Status != StatusCompleted || journal.Succeeded() != 2 || journal.Failed() != 0 {
		t.Errorf("unexpected journal state: %+v", journal)
	}
	if filepath.Dir(journal.Path()) != journalDir {
		t.Errorf("journal written to %s, want dir %s", journal.Path(), journalDir)
	}

	for _, name := range []string{"E01.mkv", "E02.mkv"} {
		if _, err := os.Stat(filepath.Join(root, name)); err != nil {
			t.Errorf("expected %s after apply: %v", name, err)
		}
	}
	if len(logs.FilterMessage("renamed").All()) != 2 {
		t.Errorf("expected 2 rename log entries, got %d", len(logs.FilterMessage("renamed").All()))
	}

	journals, err := ListJournals(journalDir)
	if err != nil || len(journals) != 1 {
		t.Fatalf("expected 1 journal, got %d (%v)", len(journals), err)
	}

	result, err := o.Undo(journal.Path())
	if err != nil {
		t.Fatalf("Undo failed: %v", err)
	}
	if result.Reverted != 2 || result.Failed != 0 {
		t.Errorf("unexpected undo result: %+v", result)
	}

	data, err := os.ReadFile(filepath.Join(root, "Show.S01E01.mkv"))
	if err != nil || string(data) != "one" {
		t.Errorf("original file not restored: %q, %v", data, err)
	}

	if _, err := o.Undo(journal.Path()); err == nil {
		t.Error("expected error when undoing twice")
	}
}

func TestApplyDryRun(t *testing.T) {
	o, _, journalDir := newTestOrganizer(t)
	root := t.TempDir()
	src := filepath.Join(root, "Show.S01E01.mkv")
	touch(t, src, "x")

	ops, err := o.Plan(root, session.Settings{Template: "E{Episode}"})
	if err != nil {
		t.Fatal(err)
	}

	journal, err := o.Apply(context.Background(), ops, true)
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}

	if _, err := os.Stat(src); err != nil {
		t.Error("dry run should not rename files")
	}
	if journal.Path() != "" {
		t.Error("dry run should not write a journal")
	}
	if _, err := os.Stat(journalDir); !os.IsNotExist(err) {
		t.Error("dry run should not create the journal directory")
	}
	if len(journal.Operations) != 1 || !journal.Operations[0].Success {
		t.Errorf("expected one recorded operation, got %+v", journal.Operations)
	}
}

func TestApplyTargetConflict(t *testing.T) {
	o, logs, _ := newTestOrganizer(t)
	root := t.TempDir()
	src := filepath.Join(root, "a.mkv")
	dst := filepath.Join(root, "b.mkv")
	touch(t, src, "a")
	touch(t, dst, "b")

	journal, err := o.Apply(context.Background(), []Operation{{Type: OpRename, Source: src, Target: dst}}, false)
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}

	if journal.Failed() != 1 {
		t.Errorf("expected the conflicting rename to fail, got %+v", journal.Operations)
	}
	if data, _ := os.ReadFile(dst); string(data) != "b" {
		t.Error("existing target must not be overwritten")
	}
	if len(logs.FilterMessage("rename failed").All()) != 1 {
		t.Error("expected a warning for the failed rename")
	}
}

func TestApplyCancelled(t *testing.T) {
	o, _, _ := newTestOrganizer(t)
	root := t.TempDir()
	src := filepath.Join(root, "a.mkv")
	touch(t, src, "a")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	journal, err := o.Apply(ctx, []Operation{{Type: OpRename, Source: src, Target: filepath.Join(root, "b.mkv")}}, false)
	if err == nil {
		t.Fatal("expected cancellation error")
	}
	if journal.Status != StatusInProgress {
		t.Errorf("interrupted journal should stay in progress, got %s", journal.Status)
	}
	if _, err := os.Stat(src); err != nil {
		t.Error("no file should be renamed after cancellation")
	}
}

func writeZip(t *testing.T, dir string, files map[string]string, encrypted bool) string {
	t.Helper()
	path := filepath.Join(dir, "Season Pack.zip")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	zw := zip.NewWriter(f)
	for name, body := range files {
		header := &zip.FileHeader{Name: name, Method: zip.Deflate}
		if encrypted {
			header.Flags |= 0x1
		}
		w, err := zw.CreateHeader(header)
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
	return path
}

func TestProcessArchive(t *testing.T) {
	o, logs, _ := newTestOrganizer(t)
	zipPath := writeZip(t, t.TempDir(), map[string]string{
		"pack/Show.S01E02.mkv": "video",
		"pack/Show.S01E02.srt": "subs",
		"pack/readme.txt":      "text",
	}, false)
	out := t.TempDir()

	settings := session.Settings{Template: "{ShowName} - {Episode}.{Extension}"}
	result, err := o.ProcessArchive(context.Background(), zipPath, out, settings, true)
	if err != nil {
		t.Fatalf("ProcessArchive failed: %v", err)
	}

	if !result.Success {
		t.Fatalf("expected success, errors: %v", result.Errors)
	}
	if result.ExtractionPath != filepath.Join(out, "Season Pack") {
		t.Errorf("unexpected extraction path %s", result.ExtractionPath)
	}
	if len(result.Files) != 2 {
		t.Fatalf("expected 2 files, got %d", len(result.Files))
	}
	if result.TotalSize != int64(len("video")+len("subs")) {
		t.Errorf("unexpected total size %d", result.TotalSize)
	}

	var video, subs ProcessedFile
	for _, f := range result.Files {
		switch f.Type {
		case config.KindVideo:
			video = f
		case config.KindSubtitle:
			subs = f
		}
	}

	if video.NewFilename != "Show - 02.mkv" {
		t.Errorf("unexpected video name %q", video.NewFilename)
	}
	if _, err := os.Stat(video.NewPath); err != nil {
		t.Errorf("renamed video missing: %v", err)
	}
	if video.Info == nil || video.Info.Episode != detector.Some(2) {
		t.Errorf("expected episode info, got %+v", video.Info)
	}
	if subs.NewFilename != subs.Filename {
		t.Errorf("subtitles should keep their name, got %q", subs.NewFilename)
	}

	if len(logs.FilterMessage("archive processed").All()) != 1 {
		t.Error("expected a summary log entry")
	}
}

func TestProcessArchiveWithoutRename(t *testing.T) {
	o, _, _ := newTestOrganizer(t)
	zipPath := writeZip(t, t.TempDir(), map[string]string{"Show.S01E02.mkv": "video"}, false)

	result, err := o.ProcessArchive(context.Background(), zipPath, t.TempDir(), session.Settings{}, false)
	if err != nil {
		t.Fatal(err)
	}
	if len(result.Files) != 1 || result.Files[0].NewFilename != "Show.S01E02.mkv" {
		t.Errorf("expected original name to be kept, got %+v", result.Files)
	}
}

func TestProcessArchiveFailures(t *testing.T) {
	o, _, _ := newTestOrganizer(t)

	tests := []struct {
		name    string
		zipPath func(dir string) string
		wantErr string
	}{
		{
			"encrypted",
			func(dir string) string {
				return writeZip(t, dir, map[string]string{"a.mkv": "x"}, true)
			},
			"password protected",
		},
		{
			"no media",
			func(dir string) string {
				return writeZip(t, dir, map[string]string{"readme.txt": "x"}, false)
			},
			"No media files",
		},
		{
			"not a zip",
			func(dir string) string {
				path := filepath.Join(dir, "broken.zip")
				touch(t, path, "garbage")
				return path
			},
			"Invalid or corrupted",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := o.ProcessArchive(context.Background(), tt.zipPath(t.TempDir()), t.TempDir(), session.Settings{}, true)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if result.Success {
				t.Error("expected failure")
			}
			if len(result.Errors) == 0 || !strings.Contains(strings.Join(result.Errors, "\n"), tt.wantErr) {
				t.Errorf("expected error containing %q, got %v", tt.wantErr, result.Errors)
			}
		})
	}
}

func TestPreviewArchive(t *testing.T) {
	o, _, _ := newTestOrganizer(t)
	zipPath := writeZip(t, t.TempDir(), map[string]string{
		"x/Show.S01E05.mkv": "v",
		"x/Show.S01E05.srt": "s",
		"theme.mp3":         "a",
	}, false)

	previews, err := o.PreviewArchive(zipPath, session.Settings{Template: "E{Episode}"})
	if err != nil {
		t.Fatalf("PreviewArchive failed: %v", err)
	}
	if len(previews) != 2 {
		t.Fatalf("expected 2 previews (video and audio), got %d", len(previews))
	}
	if previews[0].Original != "theme.mp3" || previews[1].New != "E05.mkv" {
		t.Errorf("unexpected previews %+v", previews)
	}
}

func TestValidateDir(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "f.mkv")
	touch(t, file, "x")

	if err := ValidateDir(dir, "rename", true); err != nil {
		t.Errorf("temp dir should validate: %v", err)
	}
	if err := ValidateDir("/", "rename", false); err == nil {
		t.Error("expected root to be refused")
	}
	if err := ValidateDir(file, "rename", false); err == nil {
		t.Error("expected file to be refused")
	}
	if err := ValidateDir(filepath.Join(dir, "missing"), "rename", false); err == nil {
		t.Error("expected missing path to be refused")
	}
	if err := ValidateDir("", "rename", false); err == nil {
		t.Error("expected empty path to be refused")
	}
}

func TestMakeUniqueDirKeepsDots(t *testing.T) {
	out := t.TempDir()

	want := []string{"Show.S01", "Show.S01_1", "Show.S01_2"}
	for _, name := range want {
		got, err := makeUniqueDir(out, "Show.S01")
		if err != nil {
			t.Fatal(err)
		}
		if got != filepath.Join(out, name) {
			t.Errorf("makeUniqueDir = %s, want %s", filepath.Base(got), name)
		}
	}
}
