package report

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/nvandessel/graphrat/internal/sim"
)

// Output format names.
const (
	FormatDrive = "drive"
	FormatGrid  = "grid"
	FormatJSON  = "json"
)

// Formats lists the accepted format names.
var Formats = []string{FormatDrive, FormatGrid, FormatJSON}

// ErrUnknownFormat is returned by New for an unrecognized format name.
var ErrUnknownFormat = errors.New("report: unknown output format")

// New returns a reporter for the named format writing to w.
func New(format string, w io.Writer) (sim.Reporter, error) {
	switch strings.ToLower(format) {
	case FormatDrive:
		return NewDrive(w), nil
	case FormatGrid:
		return NewGrid(w), nil
	case FormatJSON:
		return NewJSON(w), nil
	}
	return nil, fmt.Errorf("%w: %q (valid: %s)", ErrUnknownFormat, format, strings.Join(Formats, ", "))
}
