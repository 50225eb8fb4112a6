package common

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"formpilot/internal/errors"
	"formpilot/internal/formatters"
)

// Output is where and how a command result is written.
type Output struct {
	File   string
	Format string
}

// CheckFormat rejects formats outside supported. An empty list falls back
// to every format the formatter registry knows.
func CheckFormat(format string, supported []string) error {
	if len(supported) == 0 {
		supported = formatters.GlobalRegistry.GetSupportedFormats()
		slices.Sort(supported)
	}
	if slices.Contains(supported, format) {
		return nil
	}
	return errors.NewValidationError(errors.ErrCodeInvalidFormat,
		fmt.Sprintf("unsupported output format %q (supported: %s)", format, strings.Join(supported, ", ")), nil)
}

// Write renders data and writes it to File, or to stdout when File is empty.
// An existing file is only replaced once the new content is complete.
func (o Output) Write(data any, stdout io.Writer) error {
	text, err := formatters.GlobalRegistry.Format(data, o.Format)
	if err != nil {
		return errors.NewValidationError(errors.ErrCodeInvalidFormat,
			fmt.Sprintf("Failed to format output as %s", o.Format), err)
	}

	if o.File == "" {
		if _, err := io.WriteString(stdout, text); err != nil {
			return errors.NewIOError(errors.ErrCodeFileNotWritable, "Cannot write to stdout", err)
		}
		return nil
	}
	return replaceFile(o.File, []byte(text))
}

func replaceFile(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return errors.NewIOError(errors.ErrCodeFileNotWritable, fmt.Sprintf("Cannot create directory: %s", dir), err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return errors.NewIOError(errors.ErrCodeFileNotWritable, fmt.Sprintf("Cannot write file: %s", path), err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return errors.NewIOError(errors.ErrCodeFileNotWritable, fmt.Sprintf("Cannot write file: %s", path), err)
	}
	if err := tmp.Close(); err != nil {
		return errors.NewIOError(errors.ErrCodeFileNotWritable, fmt.Sprintf("Cannot write file: %s", path), err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return errors.NewIOError(errors.ErrCodeFileNotWritable, fmt.Sprintf("Cannot replace file: %s", path), err)
	}
	return nil
}
