package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"hash/fnv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/valmirpst/gestao-financeira-ai-sub000/internal/apperr"
	"github.com/valmirpst/gestao-financeira-ai-sub000/internal/database"
	"github.com/valmirpst/gestao-financeira-ai-sub000/internal/transaction"
)

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// queryer is satisfied by both *sql.DB and *sql.Tx.
type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// scanner is satisfied by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

const selectTransactionColumns = `
	t.id, t.user_id, t.type, t.amount, t.description, t.category_id, t.date, t.due_date,
	t.payment_date, t.status, t.tags, t.is_recurring, t.recurrence_config, t.transfer_id,
	t.created_at, t.updated_at,
	c.name, c.color, c.icon, a.id, a.name
`

const fromTransactions = `
	FROM transactions t
	LEFT JOIN categories c ON c.id = t.category_id AND c.user_id = t.user_id
	LEFT JOIN account_transactions at ON at.transaction_id = t.id
	LEFT JOIN accounts a ON a.id = at.account_id
`

// scanTransaction reads a row selected with selectTransactionColumns.
func scanTransaction(s scanner) (*transaction.Transaction, error) {
	var tx transaction.Transaction

	var typeStr, statusStr string

	var tags, recurrence []byte

	var catName, catColor, catIcon, accName sql.NullString

	var accID *uuid.UUID

	if err := s.Scan(
		&tx.ID, &tx.UserID, &typeStr, &tx.Amount, &tx.Description, &tx.CategoryID, &tx.Date, &tx.DueDate,
		&tx.PaymentDate, &statusStr, &tags, &tx.IsRecurring, &recurrence, &tx.TransferID,
		&tx.CreatedAt, &tx.UpdatedAt,
		&catName, &catColor, &catIcon, &accID, &accName,
	); err != nil {
		return nil, err
	}

	tx.Type = transaction.Type(typeStr)
	tx.Status = transaction.Status(statusStr)

	if err := json.Unmarshal(tags, &tx.Tags); err != nil {
		return nil, fmt.Errorf("decoding tags: %w", err)
	}

	if len(recurrence) > 0 {
		tx.Recurrence = &transaction.Recurrence{}
		if err := json.Unmarshal(recurrence, tx.Recurrence); err != nil {
			return nil, fmt.Errorf("decoding recurrence config: %w", err)
		}
	}

	if tx.CategoryID != nil && catName.Valid {
		tx.Category = &transaction.CategoryRef{
			ID:    *tx.CategoryID,
			Name:  catName.String,
			Color: catColor.String,
			Icon:  catIcon.String,
		}
	}

	if accID != nil {
		tx.Account = &transaction.AccountRef{ID: *accID, Name: accName.String}
	}

	return &tx, nil
}

func scanTransactions(rows *sql.Rows) ([]*transaction.Transaction, error) {
	defer rows.Close()

	txs := []*transaction.Transaction{}

	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning transaction: %w", err)
		}

		txs = append(txs, tx)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating transactions: %w", err)
	}

	return txs, nil
}

func encodeJSON(tx *transaction.Transaction) (tags, recurrence []byte, err error) {
	t := tx.Tags
	if t == nil {
		t = []string{}
	}

	if tags, err = json.Marshal(t); err != nil {
		return nil, nil, fmt.Errorf("encoding tags: %w", err)
	}

	if tx.Recurrence != nil {
		if recurrence, err = json.Marshal(tx.Recurrence); err != nil {
			return nil, nil, fmt.Errorf("encoding recurrence config: %w", err)
		}
	}

	return tags, recurrence, nil
}

func insertTransaction(ctx context.Context, q queryer, tx *transaction.Transaction) error {
	tags, recurrence, err := encodeJSON(tx)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO transactions (
			user_id, type, amount, description, category_id, date, due_date, payment_date,
			status, tags, is_recurring, recurrence_config, transfer_id
		)
		SELECT $1::uuid, $2::text, $3::numeric, $4::text, $5::uuid, $6::date, $7::date, $8::date,
			$9::text, $10::jsonb, $11::boolean, $12::jsonb, $13::uuid
		WHERE $5::uuid IS NULL OR EXISTS (SELECT 1 FROM categories WHERE id = $5::uuid AND user_id = $1::uuid)
		RETURNING id, created_at, updated_at
	`

	err = q.QueryRowContext(ctx, query,
		tx.UserID, tx.Type, tx.Amount, tx.Description, tx.CategoryID, tx.Date, tx.DueDate, tx.PaymentDate,
		tx.Status, tags, tx.IsRecurring, recurrence, tx.TransferID,
	).Scan(&tx.ID, &tx.CreatedAt, &tx.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) || database.IsForeignKeyViolation(err) {
			return apperr.Invalid("category_id", "category does not exist")
		}

		return fmt.Errorf("creating transaction: %w", err)
	}

	return nil
}

func (s *Store) CreateTransaction(ctx context.Context, tx *transaction.Transaction) error {
	return insertTransaction(ctx, s.db, tx)
}

func (s *Store) GetTransaction(ctx context.Context, userID, id uuid.UUID) (*transaction.Transaction, error) {
	query := `SELECT ` + selectTransactionColumns + fromTransactions + `WHERE t.id = $1 AND t.user_id = $2`

	tx, err := scanTransaction(s.db.QueryRowContext(ctx, query, id, userID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.NotFound("transaction")
		}

		return nil, fmt.Errorf("getting transaction: %w", err)
	}

	return tx, nil
}

func (s *Store) ListTransactions(ctx context.Context, userID uuid.UUID, filter transaction.ListFilter) ([]*transaction.Transaction, error) {
	query, args := buildListQuery(userID, filter)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing transactions: %w", err)
	}

	return scanTransactions(rows)
}

func buildListQuery(userID uuid.UUID, filter transaction.ListFilter) (string, []any) {
	query := `SELECT ` + selectTransactionColumns + fromTransactions + `WHERE t.user_id = $1`

	args := []any{userID}

	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter.Type != nil {
		query += " AND t.type = " + arg(*filter.Type)
	}

	if filter.Status != nil {
		switch *filter.Status {
		case transaction.StatusOverdue:
			today := arg(filter.Today)
			query += " AND (t.status = 'overdue' OR (t.status = 'pending' AND t.due_date < " + today + "))"
		case transaction.StatusPending:
			today := arg(filter.Today)
			query += " AND t.status = 'pending' AND (t.due_date IS NULL OR t.due_date >= " + today + ")"
		default:
			query += " AND t.status = " + arg(*filter.Status)
		}
	}

	if len(filter.Statuses) > 0 {
		statuses := make([]string, len(filter.Statuses))
		for i, st := range filter.Statuses {
			statuses[i] = string(st)
		}

		query += " AND t.status = ANY(" + arg(statuses) + "::text[])"
	}

	if filter.CategoryID != nil {
		query += " AND t.category_id = " + arg(*filter.CategoryID)
	}

	if filter.AccountID != nil {
		query += " AND at.account_id = " + arg(*filter.AccountID)
	}

	if len(filter.IDs) > 0 {
		ids := make([]string, len(filter.IDs))
		for i, id := range filter.IDs {
			ids[i] = id.String()
		}

		query += " AND t.id = ANY(" + arg(ids) + "::uuid[])"
	}

	if filter.StartDate != nil {
		query += " AND t.date >= " + arg(*filter.StartDate)
	}

	if filter.EndDate != nil {
		query += " AND t.date <= " + arg(*filter.EndDate)
	}

	if filter.Search != "" {
		query += " AND t.description ILIKE " + arg("%"+escapeLike(filter.Search)+"%")
	}

	query += " ORDER BY t.date DESC, t.created_at DESC"

	return query, args
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

func (s *Store) UpdateTransaction(ctx context.Context, tx *transaction.Transaction) error {
	tags, recurrence, err := encodeJSON(tx)
	if err != nil {
		return err
	}

	if tx.CategoryID != nil {
		owned, err := categoryOwned(ctx, s.db, tx.UserID, *tx.CategoryID)
		if err != nil {
			return err
		}

		if !owned {
			return apperr.Invalid("category_id", "category does not exist")
		}
	}

	query := `
		UPDATE transactions
		SET type = $1, amount = $2, description = $3, category_id = $4, date = $5, due_date = $6,
			payment_date = $7, status = $8, tags = $9, is_recurring = $10, recurrence_config = $11,
			updated_at = NOW()
		WHERE id = $12 AND user_id = $13
		RETURNING updated_at
	`

	err = s.db.QueryRowContext(ctx, query,
		tx.Type, tx.Amount, tx.Description, tx.CategoryID, tx.Date, tx.DueDate,
		tx.PaymentDate, tx.Status, tags, tx.IsRecurring, recurrence,
		tx.ID, tx.UserID,
	).Scan(&tx.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return apperr.NotFound("transaction")
		}

		if database.IsForeignKeyViolation(err) {
			return apperr.Invalid("category_id", "category does not exist")
		}

		return fmt.Errorf("updating transaction: %w", err)
	}

	return nil
}

func categoryOwned(ctx context.Context, q queryer, userID, categoryID uuid.UUID) (bool, error) {
	var owned bool

	err := q.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM categories WHERE id = $1 AND user_id = $2)`, categoryID, userID,
	).Scan(&owned)
	if err != nil {
		return false, fmt.Errorf("checking category: %w", err)
	}

	return owned, nil
}

func (s *Store) UpdateStatus(ctx context.Context, userID, id uuid.UUID, status transaction.Status) error {
	query := `
		UPDATE transactions
		SET status = $1, updated_at = NOW()
		WHERE id = $2 AND user_id = $3
	`

	return execOne(ctx, s.db, "updating status", query, status, id, userID)
}

func (s *Store) DeleteTransaction(ctx context.Context, userID, id uuid.UUID) error {
	query := `DELETE FROM transactions WHERE id = $1 AND user_id = $2`

	return execOne(ctx, s.db, "deleting transaction", query, id, userID)
}

func execOne(ctx context.Context, q queryer, action, query string, args ...any) error {
	res, err := q.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%s: %w", action, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", action, err)
	}

	if n == 0 {
		return apperr.NotFound("transaction")
	}

	return nil
}

// LinkAccount posts the transaction against an account owned by userID.
func (s *Store) LinkAccount(ctx context.Context, userID, transactionID, accountID uuid.UUID) error {
	return linkAccount(ctx, s.db, userID, transactionID, accountID, false)
}

// UpsertAccountLink moves the transaction to another account in one statement.
func (s *Store) UpsertAccountLink(ctx context.Context, userID, transactionID, accountID uuid.UUID) error {
	return linkAccount(ctx, s.db, userID, transactionID, accountID, true)
}

func linkAccount(ctx context.Context, q queryer, userID, transactionID, accountID uuid.UUID, upsert bool) error {
	query := `
		INSERT INTO account_transactions (transaction_id, account_id)
		SELECT $1::uuid, a.id FROM accounts a WHERE a.id = $2 AND a.user_id = $3
	`
	if upsert {
		query += ` ON CONFLICT (transaction_id) DO UPDATE SET account_id = EXCLUDED.account_id`
	}

	res, err := q.ExecContext(ctx, query, transactionID, accountID, userID)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return apperr.Conflict("transaction is already linked to an account")
		}

		return fmt.Errorf("linking transaction to account: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("linking transaction to account: %w", err)
	}

	if n == 0 {
		return apperr.NotFound("account")
	}

	return nil
}

func (s *Store) LinkedTransactionIDs(ctx context.Context, userID, accountID uuid.UUID) ([]uuid.UUID, error) {
	query := `
		SELECT at.transaction_id
		FROM account_transactions at
		JOIN accounts a ON a.id = at.account_id
		WHERE at.account_id = $1 AND a.user_id = $2
	`

	rows, err := s.db.QueryContext(ctx, query, accountID, userID)
	if err != nil {
		return nil, fmt.Errorf("listing linked transactions: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID

	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning transaction id: %w", err)
		}

		ids = append(ids, id)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating linked transactions: %w", err)
	}

	return ids, nil
}

// MarkAsPaid runs the mark_transaction_as_paid procedure, which settles the
// transaction and recomputes its account balance in one statement.
func (s *Store) MarkAsPaid(ctx context.Context, id uuid.UUID, paymentDate time.Time) error {
	if _, err := s.db.ExecContext(ctx, `SELECT mark_transaction_as_paid($1, $2)`, id, paymentDate); err != nil {
		if database.IsNoDataFound(err) {
			return apperr.NotFound("transaction")
		}

		return fmt.Errorf("calling mark_transaction_as_paid: %w", err)
	}

	return nil
}

// TransferLegs returns the transactions sharing transferID.
func (s *Store) TransferLegs(ctx context.Context, userID, transferID uuid.UUID) ([]*transaction.Transaction, error) {
	query := `SELECT ` + selectTransactionColumns + fromTransactions + `
		WHERE t.transfer_id = $1 AND t.user_id = $2
		ORDER BY t.type DESC`

	rows, err := s.db.QueryContext(ctx, query, transferID, userID)
	if err != nil {
		return nil, fmt.Errorf("listing transfer legs: %w", err)
	}

	return scanTransactions(rows)
}

// DeleteTransfer removes every leg of a transfer in one statement.
func (s *Store) DeleteTransfer(ctx context.Context, userID, transferID uuid.UUID) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM transactions WHERE transfer_id = $1 AND user_id = $2`, transferID, userID)
	if err != nil {
		return 0, fmt.Errorf("deleting transfer: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("deleting transfer: %w", err)
	}

	return n, nil
}

func importLockKey(accountID uuid.UUID, minDate, maxDate time.Time) int64 {
	h := fnv.New64a()
	h.Write(accountID[:])
	h.Write([]byte(minDate.Format(time.DateOnly)))
	h.Write([]byte{0})
	h.Write([]byte(maxDate.Format(time.DateOnly)))

	return int64(h.Sum64())
}

type importTx struct {
	tx        *sql.Tx
	userID    uuid.UUID
	accountID uuid.UUID
	minDate   time.Time
	maxDate   time.Time
}

// BeginImport opens a database transaction holding an advisory lock on the
// account and date window, so two imports of the same statement serialise.
func (s *Store) BeginImport(ctx context.Context, userID, accountID uuid.UUID, minDate, maxDate time.Time) (transaction.ImportTx, error) {
	dbTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning import tx: %w", err)
	}

	var exists bool

	err = dbTx.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM accounts WHERE id = $1 AND user_id = $2)`, accountID, userID,
	).Scan(&exists)
	if err != nil {
		dbTx.Rollback()
		return nil, fmt.Errorf("checking import account: %w", err)
	}

	if !exists {
		dbTx.Rollback()
		return nil, apperr.NotFound("account")
	}

	if _, err := dbTx.ExecContext(ctx, "SELECT pg_advisory_xact_lock($1)", importLockKey(accountID, minDate, maxDate)); err != nil {
		dbTx.Rollback()
		return nil, fmt.Errorf("acquiring import lock: %w", err)
	}

	return &importTx{tx: dbTx, userID: userID, accountID: accountID, minDate: minDate, maxDate: maxDate}, nil
}

func (itx *importTx) Commit() error   { return itx.tx.Commit() }
func (itx *importTx) Rollback() error { return itx.tx.Rollback() }

// FindDuplicates returns the account's transactions in the import window that
// share date, amount, type and description (case-insensitive) with a row.
func (itx *importTx) FindDuplicates(ctx context.Context, params []transaction.CreateParams) ([]*transaction.Transaction, error) {
	if len(params) == 0 {
		return nil, nil
	}

	dates := make([]string, len(params))
	amounts := make([]string, len(params))
	types := make([]string, len(params))
	descs := make([]string, len(params))

	for i, p := range params {
		dates[i] = p.Date.Format(time.DateOnly)
		amounts[i] = p.Amount.StringFixed(2)
		types[i] = string(p.Type)
		descs[i] = strings.ToLower(strings.TrimSpace(p.Description))
	}

	query := `SELECT ` + selectTransactionColumns + fromTransactions + `
		WHERE t.user_id = $1 AND at.account_id = $2 AND t.date BETWEEN $3 AND $4
		AND (t.date, t.amount, t.type, lower(t.description)) IN (
			SELECT d::date, amt::numeric, typ, descr
			FROM unnest($5::text[], $6::text[], $7::text[], $8::text[]) AS k(d, amt, typ, descr)
		)
		ORDER BY t.date ASC`

	rows, err := itx.tx.QueryContext(ctx, query,
		itx.userID, itx.accountID, itx.minDate, itx.maxDate, dates, amounts, types, descs,
	)
	if err != nil {
		return nil, fmt.Errorf("finding duplicates: %w", err)
	}

	return scanTransactions(rows)
}

// CreateTransactions inserts and links every row inside the import transaction.
func (itx *importTx) CreateTransactions(ctx context.Context, txs []*transaction.Transaction) error {
	for _, tx := range txs {
		if err := insertTransaction(ctx, itx.tx, tx); err != nil {
			return err
		}

		if err := linkAccount(ctx, itx.tx, itx.userID, tx.ID, itx.accountID, false); err != nil {
			return err
		}

		tx.Account = &transaction.AccountRef{ID: itx.accountID}
	}

	return nil
}
