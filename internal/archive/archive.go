package archive

import (
	"archive/zip"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"sort"

	"github.com/Nomadcxx/jellyname/internal/config"
	"github.com/Nomadcxx/jellyname/internal/naming"
)

var (
	// ErrNotZip is returned for files that are not readable zip archives.
	ErrNotZip = errors.New("not a zip archive")
	// ErrEncrypted is returned when any entry is password protected.
	ErrEncrypted = errors.New("zip archive is password protected")
)

// flagEncrypted is bit 0 of the zip general purpose flags.
const flagEncrypted = 0x1

// Entry describes a media file inside an archive.
type Entry struct {
	Name     string           `json:"name"`     // path inside the archive
	Filename string           `json:"filename"` // flattened, sanitized name used on extraction
	Base     string           `json:"base"`     // last path element, used for detection
	Size     int64            `json:"size"`
	Kind     config.MediaKind `json:"kind"`
}

// Extracted is an entry written to disk.
type Extracted struct {
	Entry
	Path string `json:"path"`
}

// Skipped records an entry that was not extracted and why.
type Skipped struct {
	Name   string `json:"name"`
	Reason string `json:"reason"`
}

// Extraction is the outcome of Extract. Files are sorted by Filename.
type Extraction struct {
	Files   []Extracted `json:"files"`
	Skipped []Skipped   `json:"skipped"`
}

// IsZip reports whether path is a readable zip archive
func IsZip(archivePath string) bool {
	r, err := zip.OpenReader(archivePath)
	if err != nil {
		return false
	}
	r.Close()
	return true
}

// List returns the media entries of the archive at path without extracting
// anything. Directories and non-media files are left out.
func List(archivePath string, media config.MediaConfig) ([]Entry, error) {
	r, err := open(archivePath)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	var entries []Entry
	for _, f := range r.File {
		entry, ok := toEntry(f, media)
		if !ok {
			continue
		}
		entries = append(entries, entry)
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Filename < entries[j].Filename
	})
	return entries, nil
}

// Extract writes every media entry of the archive into dest. Entry paths are
// flattened through the filename sanitizer, so nothing is written outside
// dest. Entries that fail individually are reported in Skipped. An archive
// with any encrypted entry is rejected with ErrEncrypted before anything is
// written.
func Extract(ctx context.Context, archivePath, dest string, media config.MediaConfig) (*Extraction, error) {
	r, err := open(archivePath)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	for _, f := range r.File {
		if f.Flags&flagEncrypted != 0 {
			return nil, fmt.Errorf("%s: %w", archivePath, ErrEncrypted)
		}
	}

	if err := os.MkdirAll(dest, 0755); err != nil {
		return nil, fmt.Errorf("failed to create extraction directory: %w", err)
	}

	result := &Extraction{}
	maxSize := media.MaxFileSize()

	for _, f := range r.File {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		entry, ok := toEntry(f, media)
		if !ok {
			continue
		}
		if maxSize > 0 && entry.Size > maxSize {
			result.Skipped = append(result.Skipped, Skipped{
				Name:   f.Name,
				Reason: fmt.Sprintf("exceeds max file size (%d bytes)", maxSize),
			})
			continue
		}

		target, err := extractFile(f, dest, entry.Filename)
		if err != nil {
			result.Skipped = append(result.Skipped, Skipped{Name: f.Name, Reason: err.Error()})
			continue
		}
		entry.Filename = filepath.Base(target)
		result.Files = append(result.Files, Extracted{Entry: entry, Path: target})
	}

	sort.Slice(result.Files, func(i, j int) bool {
		return result.Files[i].Filename < result.Files[j].Filename
	})
	return result, nil
}

func open(archivePath string) (*zip.ReadCloser, error) {
	r, err := zip.OpenReader(archivePath)
	if err != nil {
		if errors.Is(err, zip.ErrFormat) {
			return nil, fmt.Errorf("%s: %w", archivePath, ErrNotZip)
		}
		return nil, fmt.Errorf("failed to open archive: %w", err)
	}
	return r, nil
}

// toEntry maps a zip file header to a media Entry; ok is false for
// directories, non-media files and names that flatten to nothing usable.
func toEntry(f *zip.File, media config.MediaConfig) (Entry, bool) {
	if f.FileInfo().IsDir() {
		return Entry{}, false
	}

	base := path.Base(f.Name)
	kind := media.Classify(base)
	if kind == config.KindOther {
		return Entry{}, false
	}

	filename := naming.Sanitize(f.Name)
	if filename == "" || filename == "." || filename == ".." {
		return Entry{}, false
	}

	return Entry{
		Name:     f.Name,
		Filename: filename,
		Base:     base,
		Size:     int64(f.UncompressedSize64),
		Kind:     kind,
	}, true
}

// extractFile copies f into dest under name, adding a _N suffix when another
// entry already flattened to the same name.
func extractFile(f *zip.File, dest, name string) (string, error) {
	src, err := f.Open()
	if err != nil {
		return "", fmt.Errorf("open entry: %w", err)
	}
	defer src.Close()

	target := filepath.Join(dest, name)
	out, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	for n := 1; errors.Is(err, os.ErrExist); n++ {
		target = filepath.Join(dest, naming.WithSuffix(name, n))
		out, err = os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	}
	if err != nil {
		return "", fmt.Errorf("create %s: %w", target, err)
	}

	if _, err := io.Copy(out, src); err != nil {
		out.Close()
		os.Remove(target)
		return "", fmt.Errorf("write %s: %w", target, err)
	}
	if err := out.Close(); err != nil {
		os.Remove(target)
		return "", fmt.Errorf("write %s: %w", target, err)
	}
	return target, nil
}
