package profile

import (
	"path/filepath"
	"strings"

	appErr "ctsuite/pkg/errors"
)

// Detect resolves a source file's language from its extension.
func (t *Table) Detect(path string) (LanguageSpec, error) {
	ext := strings.ToLower(filepath.Ext(path))
	if ext == "" {
		return LanguageSpec{}, appErr.Newf(appErr.LanguageNotSupported, "cannot detect language: %s has no extension", path)
	}
	spec, ok := t.byExt[ext]
	if !ok {
		return LanguageSpec{}, appErr.Newf(appErr.LanguageNotSupported, "no language registered for extension %s", ext)
	}
	return spec, nil
}

// ClassNameFor derives the public type name a bytecode runtime loads,
// e.g. Main for Main.java.
func ClassNameFor(srcPath string) string {
	base := filepath.Base(srcPath)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
