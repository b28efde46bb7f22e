// Package security holds helpers for putting user-controlled strings into
// file names.
package security

import (
	"path/filepath"
	"strings"
)

const maxFilenameLen = 128

// SanitizeFilename keeps ASCII letters, digits, dot, underscore and dash,
// collapses every other run of characters into one underscore and caps the
// length. Leading and trailing dots and underscores are dropped so the
// result is never hidden or relative. An empty result becomes "unknown".
func SanitizeFilename(s string) string {
	var b strings.Builder
	lastUnderscore := false
	for _, r := range s {
		if b.Len() >= maxFilenameLen {
			break
		}
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9',
			r == '.', r == '_', r == '-':
			b.WriteRune(r)
			lastUnderscore = r == '_'
		case !lastUnderscore:
			b.WriteByte('_')
			lastUnderscore = true
		}
	}
	out := strings.Trim(b.String(), "._")
	if out == "" {
		return "unknown"
	}
	return out
}

// ExportFilename names a downloaded run artefact after the base name of its
// source and the first eight characters of its run id, e.g.
// "clip_3f2a9c1d.csv". Camera sources keep their description.
func ExportFilename(source, runID, ext string) string {
	base := strings.TrimSuffix(filepath.Base(source), filepath.Ext(source))
	if source == "" {
		base = ""
	}
	if len(runID) > 8 {
		runID = runID[:8]
	}
	name := SanitizeFilename(base)
	if runID != "" {
		name += "_" + SanitizeFilename(runID)
	}
	return name + "." + strings.TrimPrefix(ext, ".")
}
