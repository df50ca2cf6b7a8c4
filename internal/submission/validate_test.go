package submission

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateFiles(t *testing.T) {
	dir := t.TempDir()
	small := writeFile(t, dir, "small.py", 800)
	limit := writeFile(t, dir, "limit.txt", MaxFileSize)
	big := writeFile(t, dir, "big.txt", MaxFileSize+1)
	missing := filepath.Join(dir, "missing.py")
	require.NoError(t, os.Mkdir(filepath.Join(dir, "other"), 0o700))
	twin := writeFile(t, filepath.Join(dir, "other"), "small.py", 10)

	tests := []struct {
		name  string
		paths []string
		kind  error
	}{
		{name: "empty list", paths: nil},
		{name: "small files", paths: []string{small, limit}},
		{name: "missing file", paths: []string{small, missing}, kind: ErrNotFound},
		{name: "directory", paths: []string{dir}, kind: ErrNotFound},
		{name: "too large", paths: []string{big}, kind: ErrTooLarge},
		{name: "first failure wins", paths: []string{missing, big}, kind: ErrNotFound},
		{name: "same base name", paths: []string{small, twin}, kind: ErrDuplicateName},
		{name: "same path twice", paths: []string{small, small}, kind: ErrDuplicateName},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateFiles(tt.paths)
			if tt.kind == nil {
				require.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, tt.kind)
			assert.ErrorIs(t, err, ErrValidation)
		})
	}
}

func TestValidateFiles_MessageNamesPath(t *testing.T) {
	err := ValidateFiles([]string{"nope/sol.py"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nope/sol.py")
	assert.Contains(t, err.Error(), "File not found")
}

func TestValidateFiles_DuplicateNameMessage(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(dir, "a"), 0o700))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "b"), 0o700))
	first := writeFile(t, filepath.Join(dir, "a"), "sol.py", 1)
	second := writeFile(t, filepath.Join(dir, "b"), "sol.py", 1)

	err := ValidateFiles([]string{first, second})
	require.ErrorIs(t, err, ErrDuplicateName)
	assert.Contains(t, err.Error(), first)
	assert.Contains(t, err.Error(), second)
}

func TestSubmit_ValidationFailsBeforeAnyRequest(t *testing.T) {
	dir := t.TempDir()
	good := writeFile(t, dir, "sol.py", 10)
	big := writeFile(t, dir, "data.txt", MaxFileSize+1)

	for _, paths := range [][]string{
		{good, filepath.Join(dir, "missing.py")},
		{good, big},
		{good, good},
	} {
		f := newFakePlatform(t)
		svc := newTestService(t, f)

		_, err := svc.Submit(context.Background(), Context{Phone: "13800000000", TestSetID: "abc123", Paths: paths})
		require.ErrorIs(t, err, ErrValidation)
		assert.Zero(t, f.Total(), "no request may be issued before validation passes")
	}
}
