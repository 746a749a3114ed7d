package organizer

import (
	"os"
	"path/filepath"
	"strings"
)

// RemoveEmptyDirs removes the now empty directories the journal's moves
// left behind below root, walking up toward root. root itself is kept.
// It returns how many directories were removed.
func RemoveEmptyDirs(root string, j *Journal) int {
	root = filepath.Clean(root)
	removed := 0
	seen := make(map[string]bool)

	for _, op := range j.Operations {
		if op.Type != OpMove || !op.Success || op.Skipped {
			continue
		}
		for dir := filepath.Dir(op.OldPath); below(dir, root) && !seen[dir]; dir = filepath.Dir(dir) {
			entries, err := os.ReadDir(dir)
			if err != nil || len(entries) > 0 {
				break
			}
			if err := os.Remove(dir); err != nil {
				break
			}
			seen[dir] = true
			removed++
		}
	}
	return removed
}

// below reports whether path is strictly inside root
func below(path, root string) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil || rel == "." {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
