package resumestore

import (
	"path/filepath"
	"strings"
)

// DirFor derives the resume database directory for a given input
// archive path: a ".resume/<stem>" directory alongside the archive,
// keyed by file stem so distinct inputs never collide, matching the
// original extractor's per-input resume file convention.
func DirFor(inputPath string) string {
	dir := filepath.Dir(inputPath)
	stem := strings.TrimSuffix(filepath.Base(inputPath), filepath.Ext(inputPath))
	return filepath.Join(dir, ".resume", stem)
}
