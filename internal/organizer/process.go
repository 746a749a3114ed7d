package organizer

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/Nomadcxx/jellyname/internal/archive"
	"github.com/Nomadcxx/jellyname/internal/config"
	"github.com/Nomadcxx/jellyname/internal/detector"
	"github.com/Nomadcxx/jellyname/internal/logging"
	"github.com/Nomadcxx/jellyname/internal/naming"
	"github.com/Nomadcxx/jellyname/internal/session"
)

// ProcessedFile describes one media file taken out of an archive.
type ProcessedFile struct {
	OriginalPath string                `json:"original_path"`
	NewPath      string                `json:"new_path"`
	Filename     string                `json:"filename"`
	NewFilename  string                `json:"new_filename"`
	Size         int64                 `json:"size"`
	Type         config.MediaKind      `json:"type"`
	Info         *detector.EpisodeInfo `json:"episode_info,omitempty"`
}

// ProcessingResult is the outcome of ProcessArchive. Success means at least
// one media file was produced; Errors may still be non-empty.
type ProcessingResult struct {
	Archive        string          `json:"archive"`
	Success        bool            `json:"success"`
	Files          []ProcessedFile `json:"processed_files"`
	Errors         []string        `json:"errors"`
	TotalSize      int64           `json:"total_size"`
	ExtractionPath string          `json:"extraction_path"`
}

// ProcessArchive extracts the media of zipPath into a fresh directory under
// outDir named after the archive, then renames video and audio files with
// the session settings when rename is set. Failures are reported in the
// result; the error return is reserved for cancellation.
func (o *Organizer) ProcessArchive(ctx context.Context, zipPath, outDir string, settings session.Settings, rename bool) (*ProcessingResult, error) {
	log := o.logger.With(zap.String(logging.FieldArchive, zipPath))

	stem, _ := detector.SplitExt(filepath.Base(zipPath))
	dirName := naming.Sanitize(stem)
	if dirName == "" || strings.HasPrefix(dirName, ".") {
		dirName = "archive" + dirName
	}
	extractDir, err := makeUniqueDir(outDir, dirName)
	if err != nil {
		return &ProcessingResult{
			Archive: zipPath,
			Files:   []ProcessedFile{},
			Errors:  []string{fmt.Sprintf("failed to create output directory: %v", err)},
		}, nil
	}

	result := &ProcessingResult{
		Archive:        zipPath,
		Files:          []ProcessedFile{},
		Errors:         []string{},
		ExtractionPath: extractDir,
	}

	log.Info("processing archive", zap.String("destination", extractDir))

	extraction, err := archive.Extract(ctx, zipPath, extractDir, o.media)
	if err != nil {
		if ctx.Err() != nil {
			return result, ctx.Err()
		}
		switch {
		case errors.Is(err, archive.ErrEncrypted):
			result.Errors = append(result.Errors, "ZIP file is password protected")
		case errors.Is(err, archive.ErrNotZip):
			result.Errors = append(result.Errors, "Invalid or corrupted ZIP file")
		default:
			result.Errors = append(result.Errors, fmt.Sprintf("Error extracting ZIP: %v", err))
		}
		log.Warn("extraction failed", zap.Error(err))
		os.Remove(extractDir)
		return result, nil
	}

	for _, skipped := range extraction.Skipped {
		result.Errors = append(result.Errors, fmt.Sprintf("Error extracting %s: %s", skipped.Name, skipped.Reason))
	}

	if len(extraction.Files) == 0 {
		result.Errors = append(result.Errors, "No media files found in ZIP archive")
		os.Remove(extractDir)
		return result, nil
	}

	for _, f := range extraction.Files {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		processed := ProcessedFile{
			OriginalPath: f.Path,
			NewPath:      f.Path,
			Filename:     f.Filename,
			NewFilename:  f.Filename,
			Size:         f.Size,
			Type:         f.Kind,
		}

		if rename && f.Kind.Renamable() {
			info := o.detector.Detect(f.Base)
			processed.Info = &info

			newName := naming.GenerateFilename(info, templateOf(settings), settings.Channel)
			if newName != f.Filename {
				target := UniquePath(extractDir, newName, nil)
				if err := moveFile(f.Path, target); err != nil {
					result.Errors = append(result.Errors, fmt.Sprintf("Error renaming %s: %v", f.Filename, err))
					log.Warn("rename failed", zap.String(logging.FieldFile, f.Filename), zap.Error(err))
				} else {
					processed.NewPath = target
					processed.NewFilename = filepath.Base(target)
					log.Info("renamed",
						zap.String(logging.FieldFile, f.Filename),
						zap.String("target", processed.NewFilename))
				}
			}
		}

		result.Files = append(result.Files, processed)
		result.TotalSize += processed.Size
	}

	result.Success = len(result.Files) > 0
	log.Info("archive processed",
		zap.Int("files", len(result.Files)),
		zap.Int("errors", len(result.Errors)),
		zap.Int64("bytes", result.TotalSize))
	return result, nil
}

// makeUniqueDir creates dir/name, or dir/name_N when taken. The suffix goes
// after the whole name since directories have no extension. Creation is
// atomic, so concurrent archives with the same name never share a directory.
func makeUniqueDir(dir, name string) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", err
	}
	candidate := filepath.Join(dir, name)
	for n := 1; ; n++ {
		err := os.Mkdir(candidate, 0755)
		if err == nil {
			return candidate, nil
		}
		if !errors.Is(err, fs.ErrExist) {
			return "", err
		}
		candidate = filepath.Join(dir, fmt.Sprintf("%s_%d", name, n))
	}
}

// PreviewArchive lists the media of zipPath with the names they would get,
// without extracting anything.
func (o *Organizer) PreviewArchive(zipPath string, settings session.Settings) ([]naming.Preview, error) {
	entries, err := archive.List(zipPath, o.media)
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.Kind.Renamable() {
			names = append(names, entry.Base)
		}
	}
	return naming.PreviewBatch(o.detector, names, templateOf(settings), settings.Channel), nil
}
