package submission

import (
	"fmt"
	"os"
	"path/filepath"
)

// MaxFileSize is the largest accepted file, in bytes. Submissions are source
// or text files, so this is policy rather than configuration.
const MaxFileSize = 1_000_000

// ValidateFiles checks every path in order and reports the first one that is
// not a regular file, exceeds MaxFileSize or shares its base name with an
// earlier path. Uploads are keyed by base name, so such a pair would collide.
// It only stats the files.
func ValidateFiles(paths []string) error {
	seen := make(map[string]string, len(paths))
	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil || !info.Mode().IsRegular() {
			return &Error{
				Kind:    ErrNotFound,
				Message: fmt.Sprintf("File not found. Please double check the file path: %s", path),
				Err:     err,
			}
		}
		if info.Size() > MaxFileSize {
			return &Error{
				Kind:    ErrTooLarge,
				Message: fmt.Sprintf("File too large. Text file is unlikely to exceed 1MB: %s", path),
			}
		}
		name := filepath.Base(path)
		if prev, ok := seen[name]; ok {
			return &Error{
				Kind:    ErrDuplicateName,
				Message: fmt.Sprintf("Duplicate file name. Please rename one of: %s, %s", prev, path),
			}
		}
		seen[name] = path
	}
	return nil
}
