package common

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"formpilot/internal/errors"
	"formpilot/internal/schema"
)

// Stdin is the input path that selects standard input.
const Stdin = "-"

var jsonExts = []string{".json", ".jsonl"}

// IsJSONFile reports whether name carries a JSON extension.
func IsJSONFile(name string) bool {
	return slices.Contains(jsonExts, strings.ToLower(filepath.Ext(name)))
}

// Source is the JSON document a command works on: a file, or standard input
// when Path is empty or Stdin.
type Source struct {
	Path  string
	Stdin io.Reader
	// MaxBytes rejects larger inputs instead of truncating them. Zero
	// disables the limit.
	MaxBytes int64
}

// Name identifies the source in messages.
func (s Source) Name() string {
	if s.fromStdin() {
		return "stdin"
	}
	return s.Path
}

func (s Source) fromStdin() bool {
	return s.Path == "" || s.Path == Stdin
}

// Read returns the whole document.
func (s Source) Read(logger *errors.Logger) ([]byte, error) {
	if s.fromStdin() {
		if s.Stdin == nil {
			return nil, errors.NewIOError(errors.ErrCodeFileNotReadable, "no input file given and stdin is unavailable", nil)
		}
		return s.readFrom(s.Stdin)
	}

	info, err := os.Stat(s.Path)
	switch {
	case os.IsNotExist(err):
		return nil, errors.NewIOError(errors.ErrCodeFileNotFound, fmt.Sprintf("File not found: %s", s.Path), err)
	case err != nil:
		return nil, errors.NewIOError(errors.ErrCodeFileNotReadable, fmt.Sprintf("Cannot access file: %s", s.Path), err)
	case info.IsDir():
		return nil, errors.NewValidationError(errors.ErrCodeInvalidRequest, fmt.Sprintf("%s is a directory, not a file", s.Path), nil)
	}
	if !IsJSONFile(s.Path) && logger != nil {
		logger.Warn("Input file may not be JSON", "file", s.Path)
	}

	f, err := os.Open(s.Path)
	if err != nil {
		return nil, errors.NewIOError(errors.ErrCodeFileNotReadable, fmt.Sprintf("Cannot read file: %s", s.Path), err)
	}
	defer func() { _ = f.Close() }()
	return s.readFrom(f)
}

func (s Source) readFrom(r io.Reader) ([]byte, error) {
	if s.MaxBytes > 0 {
		r = io.LimitReader(r, s.MaxBytes+1)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.NewIOError(errors.ErrCodeFileNotReadable, fmt.Sprintf("Failed to read %s", s.Name()), err)
	}
	if s.MaxBytes > 0 && int64(len(data)) > s.MaxBytes {
		return nil, errors.NewValidationError(errors.ErrCodeInvalidRequest,
			fmt.Sprintf("%s is larger than %d bytes", s.Name(), s.MaxBytes), nil)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, errors.NewValidationError(errors.ErrCodeInvalidRequest, fmt.Sprintf("%s is empty", s.Name()), nil)
	}
	return data, nil
}

// DecodeJSON unmarshals data into T and runs its validate tags. Violation
// paths start with prefix.
func DecodeJSON[T any](data []byte, prefix string) (T, error) {
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return v, errors.NewValidationError(errors.ErrCodeInvalidFormat, "input is not valid JSON", err)
	}
	if vs := schema.Struct(v, prefix); len(vs) > 0 {
		return v, errors.NewValidationError(errors.ErrCodeInvalidRequest, "input failed validation", nil).WithViolations(vs)
	}
	return v, nil
}
