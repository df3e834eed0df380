package services

import (
	"strings"

	"github.com/pkg/errors"
)

var (
	// ErrNoData is returned by every aggregation whose input is empty or lacks
	// the columns it needs. Views render an informational message for it.
	ErrNoData = errors.New("no data")

	// ErrMissingColumns is returned when a table lacks source columns.
	ErrMissingColumns = errors.New("missing required columns")

	// ErrNoInputFiles is returned by MergeFiles when nothing matches the prefix.
	ErrNoInputFiles = errors.New("no input files")
)

// MissingFilesError lists the per-period files an update needs but could not find.
type MissingFilesError struct {
	Messages []string
}

func (e *MissingFilesError) Error() string {
	return "missing survey files: " + strings.Join(e.Messages, " ")
}

func missingColumns(cols []string) error {
	return errors.Wrapf(ErrMissingColumns, "%s", strings.Join(cols, ", "))
}
