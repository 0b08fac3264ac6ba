package report

import (
	"errors"
	"fmt"

	"github.com/jgoulah/raemisreport/pkg/models"
)

// FetchError is a transport, TLS, timeout or non-2xx failure
type FetchError struct {
	Endpoint string
	Err      error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetching %s: %v", e.Endpoint, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// ParseError is a malformed body or a record missing a required field
type ParseError struct {
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parsing records: %v", e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// PersistError is a failure writing the CSV snapshot
type PersistError struct {
	Dir string
	Err error
}

func (e *PersistError) Error() string {
	return fmt.Sprintf("writing snapshot to %s: %v", e.Dir, e.Err)
}

func (e *PersistError) Unwrap() error {
	return e.Err
}

// RenderError is a failure writing one of the charts
type RenderError struct {
	Err error
}

func (e *RenderError) Error() string {
	return e.Err.Error()
}

func (e *RenderError) Unwrap() error {
	return e.Err
}

// StatusOf maps a run error to the status recorded in the ledger
func StatusOf(err error) models.RunStatus {
	var (
		fetchErr   *FetchError
		parseErr   *ParseError
		persistErr *PersistError
		renderErr  *RenderError
	)
	switch {
	case err == nil:
		return models.StatusOK
	case errors.As(err, &fetchErr):
		return models.StatusFetchError
	case errors.As(err, &parseErr):
		return models.StatusParseError
	case errors.As(err, &persistErr):
		return models.StatusPersistError
	case errors.As(err, &renderErr):
		return models.StatusRenderError
	default:
		return models.StatusFetchError
	}
}

// Process exit statuses
const (
	ExitOK      = 0
	ExitFailed  = 1 // nothing was written
	ExitPartial = 2 // the snapshot was written, a later stage failed
)

// ExitCode returns the process status for a finished run
func ExitCode(run *models.RunSummary, err error) int {
	if err == nil {
		return ExitOK
	}
	if run != nil && run.CSVPath != "" {
		return ExitPartial
	}
	return ExitFailed
}
