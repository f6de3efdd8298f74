// Package importer turns uploaded bank statements into transactions on an
// account.
package importer

import (
	"io"

	"github.com/valmirpst/gestao-financeira-ai-sub000/internal/transaction"
)

// Format names an accepted statement file format.
type Format string

const (
	// FormatCSV is a bank statement CSV; the bank layout is auto-detected.
	FormatCSV Format = "csv"
)

type Parser interface {
	Parse(r io.Reader) ([]transaction.CreateParams, error)
}
