package importer

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/google/uuid"

	"github.com/valmirpst/gestao-financeira-ai-sub000/internal/apperr"
	"github.com/valmirpst/gestao-financeira-ai-sub000/internal/importer/statement"
	"github.com/valmirpst/gestao-financeira-ai-sub000/internal/transaction"
)

//go:generate mockgen -source=service.go -destination=service_mock.go -package=importer
type Ledger interface {
	ImportBatch(ctx context.Context, accountID uuid.UUID, params []transaction.CreateParams) (*transaction.ImportResult, error)
	CreateBatch(ctx context.Context, accountID uuid.UUID, params []transaction.CreateParams) ([]*transaction.Transaction, error)
}

type Categorizer interface {
	Suggest(ctx context.Context, description string) (*uuid.UUID, error)
}

type Service struct {
	ledger     Ledger
	categories Categorizer
	parsers    map[Format]Parser
}

func NewService(ledger Ledger, categories Categorizer) *Service {
	return &Service{
		ledger:     ledger,
		categories: categories,
		parsers: map[Format]Parser{
			FormatCSV: statement.NewParser(),
		},
	}
}

// Import parses r, files each row under the category suggested by the
// user's rules and stores the rows on accountID. Without force, rows that
// look like already recorded transactions are reported as conflicts and
// nothing is written.
func (s *Service) Import(ctx context.Context, format Format, accountID uuid.UUID, r io.Reader, force bool) (*transaction.ImportResult, error) {
	parser, ok := s.parsers[format]
	if !ok {
		return nil, apperr.Invalid("format", fmt.Sprintf("unsupported format %q", format))
	}

	params, err := parser.Parse(r)
	if err != nil {
		return nil, apperr.Invalid("file", err.Error())
	}

	if len(params) == 0 {
		return nil, apperr.Invalid("file", "no transactions found")
	}

	if err := s.categorize(ctx, params); err != nil {
		return nil, err
	}

	if force {
		txs, err := s.ledger.CreateBatch(ctx, accountID, params)
		if err != nil {
			return nil, err
		}

		slog.InfoContext(ctx, "statement imported", "account_id", accountID, "rows", len(txs), "forced", true)

		return &transaction.ImportResult{Imported: txs}, nil
	}

	res, err := s.ledger.ImportBatch(ctx, accountID, params)
	if err != nil {
		return nil, err
	}

	slog.InfoContext(ctx, "statement imported",
		"account_id", accountID, "rows", len(res.Imported), "conflicts", len(res.Conflicts))

	return res, nil
}

func (s *Service) categorize(ctx context.Context, params []transaction.CreateParams) error {
	for i := range params {
		if params[i].CategoryID != nil {
			continue
		}

		id, err := s.categories.Suggest(ctx, params[i].Description)
		if err != nil {
			return fmt.Errorf("suggesting category for row %d: %w", i+1, err)
		}

		params[i].CategoryID = id
	}

	return nil
}
