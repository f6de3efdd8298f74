package transaction

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/valmirpst/gestao-financeira-ai-sub000/internal/apperr"
	"github.com/valmirpst/gestao-financeira-ai-sub000/internal/auth"
	"github.com/valmirpst/gestao-financeira-ai-sub000/internal/calendar"
)

//go:generate mockgen -source=service.go -destination=repository_mock.go -package=transaction
type Repository interface {
	CreateTransaction(ctx context.Context, tx *Transaction) error
	GetTransaction(ctx context.Context, userID, id uuid.UUID) (*Transaction, error)
	UpdateTransaction(ctx context.Context, tx *Transaction) error
	UpdateStatus(ctx context.Context, userID, id uuid.UUID, status Status) error
	DeleteTransaction(ctx context.Context, userID, id uuid.UUID) error
	ListTransactions(ctx context.Context, userID uuid.UUID, filter ListFilter) ([]*Transaction, error)

	LinkAccount(ctx context.Context, userID, transactionID, accountID uuid.UUID) error
	UpsertAccountLink(ctx context.Context, userID, transactionID, accountID uuid.UUID) error
	LinkedTransactionIDs(ctx context.Context, userID, accountID uuid.UUID) ([]uuid.UUID, error)

	MarkAsPaid(ctx context.Context, id uuid.UUID, paymentDate time.Time) error

	BeginImport(ctx context.Context, userID, accountID uuid.UUID, minDate, maxDate time.Time) (ImportTx, error)
}

// ImportTx is a statement import running inside one database transaction.
type ImportTx interface {
	FindDuplicates(ctx context.Context, params []CreateParams) ([]*Transaction, error)
	CreateTransactions(ctx context.Context, txs []*Transaction) error
	Commit() error
	Rollback() error
}

// Service is the transaction lifecycle manager and query layer.
type Service struct {
	repo  Repository
	clock calendar.Clock
}

type Option func(*Service)

// WithClock pins the clock used to derive "today".
func WithClock(clock calendar.Clock) Option {
	return func(s *Service) { s.clock = clock }
}

func NewService(repo Repository, opts ...Option) *Service {
	s := &Service{repo: repo, clock: time.Now}
	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Today is the reference day used for overdue classification.
func (s *Service) Today() time.Time {
	return s.clock.Today()
}

type CreateParams struct {
	Type        Type
	Amount      decimal.Decimal
	Description string
	CategoryID  *uuid.UUID
	Date        time.Time
	DueDate     *time.Time
	PaymentDate *time.Time
	Status      Status
	Tags        []string
	IsRecurring bool
	Recurrence  *Recurrence
	AccountID   *uuid.UUID
}

// UpdateParams is a partial update; nil fields are left untouched.
type UpdateParams struct {
	Type          *Type
	Amount        *decimal.Decimal
	Description   *string
	CategoryID    *uuid.UUID
	ClearCategory bool
	Date          *time.Time
	DueDate       *time.Time
	PaymentDate   *time.Time
	Status        *Status
	Tags          []string
	IsRecurring   *bool
	Recurrence    *Recurrence
	AccountID     *uuid.UUID
}

func (s *Service) Create(ctx context.Context, params CreateParams) (*Transaction, error) {
	userID, err := auth.UserID(ctx)
	if err != nil {
		return nil, err
	}

	tx := fromParams(userID, params)

	if err := s.validate(tx); err != nil {
		return nil, err
	}

	if err := s.repo.CreateTransaction(ctx, tx); err != nil {
		return nil, err
	}

	if params.AccountID == nil {
		return tx, nil
	}

	if err := s.repo.LinkAccount(ctx, userID, tx.ID, *params.AccountID); err != nil {
		return nil, s.compensate(ctx, userID, err, tx.ID)
	}

	tx.Account = &AccountRef{ID: *params.AccountID}

	return tx, nil
}

// compensate removes a transaction whose account link failed and reports the
// link failure.
func (s *Service) compensate(ctx context.Context, userID uuid.UUID, linkErr error, id uuid.UUID) error {
	if err := s.repo.DeleteTransaction(ctx, userID, id); err != nil {
		slog.ErrorContext(ctx, "compensating delete failed", "transaction_id", id, "error", err)
		return &apperr.LinkError{Err: errors.Join(linkErr, err)}
	}

	return &apperr.LinkError{Err: linkErr, Compensated: true}
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Transaction, error) {
	userID, err := auth.UserID(ctx)
	if err != nil {
		return nil, err
	}

	return s.repo.GetTransaction(ctx, userID, id)
}

func (s *Service) Update(ctx context.Context, id uuid.UUID, params UpdateParams) (*Transaction, error) {
	if err := validatePatch(params); err != nil {
		return nil, err
	}

	userID, err := auth.UserID(ctx)
	if err != nil {
		return nil, err
	}

	tx, err := s.repo.GetTransaction(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	if tx.TransferID != nil && (params.Amount != nil || params.Type != nil || params.AccountID != nil) {
		return nil, apperr.Invalid("transfer_id", "amount, type and account of a transfer leg change through the transfer")
	}

	applyPatch(tx, params)

	if err := s.validate(tx); err != nil {
		return nil, err
	}

	if err := s.repo.UpdateTransaction(ctx, tx); err != nil {
		return nil, err
	}

	if params.AccountID != nil {
		if err := s.repo.UpsertAccountLink(ctx, userID, tx.ID, *params.AccountID); err != nil {
			return nil, &apperr.LinkError{Err: err}
		}
	}

	return tx, nil
}

// MarkAsPaid settles a pending or overdue transaction. The store procedure
// updates the status, the payment date and the account balance in one step.
// A nil paymentDate means today.
func (s *Service) MarkAsPaid(ctx context.Context, id uuid.UUID, paymentDate *time.Time) error {
	userID, err := auth.UserID(ctx)
	if err != nil {
		return err
	}

	today := s.clock.Today()

	date := today
	if paymentDate != nil {
		date = calendar.Day(*paymentDate)
	}

	if date.After(today.AddDate(0, 0, 1)) {
		return apperr.Invalid("payment_date", "cannot be more than one day in the future")
	}

	tx, err := s.repo.GetTransaction(ctx, userID, id)
	if err != nil {
		return err
	}

	switch Classify(tx, today) {
	case StatusPaid:
		return apperr.Invalid("status", "transaction is already paid")
	case StatusCancelled:
		return apperr.Invalid("status", "cancelled transactions cannot be paid")
	}

	if err := s.repo.MarkAsPaid(ctx, id, date); err != nil {
		return fmt.Errorf("marking transaction %s as paid: %w", id, err)
	}

	return nil
}

// MarkManyAsPaid settles each transaction independently. It returns the ids
// that were paid and the joined errors of those that were not.
func (s *Service) MarkManyAsPaid(ctx context.Context, ids []uuid.UUID, paymentDate *time.Time) ([]uuid.UUID, error) {
	if len(ids) == 0 {
		return nil, apperr.Invalid("ids", "at least one transaction is required")
	}

	var (
		paid []uuid.UUID
		errs []error
	)

	for _, id := range ids {
		if err := s.MarkAsPaid(ctx, id, paymentDate); err != nil {
			if errors.Is(err, apperr.ErrUnauthenticated) {
				return nil, err
			}

			errs = append(errs, fmt.Errorf("transaction %s: %w", id, err))

			continue
		}

		paid = append(paid, id)
	}

	return paid, errors.Join(errs...)
}

// Cancel moves a pending or overdue transaction to cancelled.
func (s *Service) Cancel(ctx context.Context, id uuid.UUID) error {
	userID, err := auth.UserID(ctx)
	if err != nil {
		return err
	}

	tx, err := s.repo.GetTransaction(ctx, userID, id)
	if err != nil {
		return err
	}

	if !Classify(tx, s.clock.Today()).Unsettled() {
		return apperr.Invalid("status", fmt.Sprintf("%s transactions cannot be cancelled", tx.Status))
	}

	return s.repo.UpdateStatus(ctx, userID, id, StatusCancelled)
}

// Delete removes a transaction. The account balance is recomputed by the
// store when the account link goes away with it.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	userID, err := auth.UserID(ctx)
	if err != nil {
		return err
	}

	tx, err := s.repo.GetTransaction(ctx, userID, id)
	if err != nil {
		return err
	}

	if tx.TransferID != nil {
		return apperr.Invalid("transfer_id", "transfer legs are deleted through the transfer")
	}

	return s.repo.DeleteTransaction(ctx, userID, id)
}

// Occurrences lists the dates of a recurring transaction from today up to
// horizon, at most limit of them when limit is positive. A zero horizon means
// one year from today.
func (s *Service) Occurrences(ctx context.Context, id uuid.UUID, horizon time.Time, limit int) ([]time.Time, error) {
	tx, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if !tx.IsRecurring || tx.Recurrence == nil {
		return nil, apperr.Invalid("is_recurring", "transaction is not recurring")
	}

	today := s.clock.Today()
	if horizon.IsZero() {
		horizon = calendar.AddYears(today, 1)
	}

	var dates []time.Time

	for d := range Occurrences(tx.Date, *tx.Recurrence, horizon) {
		if d.Before(today) {
			continue
		}

		if limit > 0 && len(dates) == limit {
			break
		}

		dates = append(dates, d)
	}

	return dates, nil
}

type ImportResult struct {
	Imported  []*Transaction
	New       []CreateParams
	Conflicts []Conflict
}

type Conflict struct {
	Incoming CreateParams
	Existing *Transaction
}

// ImportBatch creates statement rows against one account. Rows that look
// like transactions already posted to the account are returned as conflicts
// and nothing is written until the caller confirms with CreateBatch.
func (s *Service) ImportBatch(ctx context.Context, accountID uuid.UUID, params []CreateParams) (*ImportResult, error) {
	if len(params) == 0 {
		return &ImportResult{}, nil
	}

	userID, err := auth.UserID(ctx)
	if err != nil {
		return nil, err
	}

	txs, err := s.prepareBatch(userID, accountID, params)
	if err != nil {
		return nil, err
	}

	minDate, maxDate := dateRange(params)

	itx, err := s.repo.BeginImport(ctx, userID, accountID, minDate, maxDate)
	if err != nil {
		return nil, fmt.Errorf("begin import: %w", err)
	}
	defer itx.Rollback()

	duplicates, err := itx.FindDuplicates(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("find duplicates: %w", err)
	}

	lookup := make(map[dupKey]*Transaction, len(duplicates))
	for _, d := range duplicates {
		lookup[keyOf(d.Date, d.Amount, d.Type, d.Description)] = d
	}

	var newParams []CreateParams

	var conflicts []Conflict

	for _, p := range params {
		existing, found := lookup[keyOf(p.Date, p.Amount, p.Type, p.Description)]
		if found {
			conflicts = append(conflicts, Conflict{Incoming: p, Existing: existing})
			continue
		}

		newParams = append(newParams, p)
	}

	if len(conflicts) > 0 {
		return &ImportResult{New: newParams, Conflicts: conflicts}, nil
	}

	if err := itx.CreateTransactions(ctx, txs); err != nil {
		return nil, fmt.Errorf("create transactions: %w", err)
	}

	if err := itx.Commit(); err != nil {
		return nil, fmt.Errorf("commit import: %w", err)
	}

	return &ImportResult{Imported: txs}, nil
}

// CreateBatch writes the rows without duplicate detection, all or nothing.
func (s *Service) CreateBatch(ctx context.Context, accountID uuid.UUID, params []CreateParams) ([]*Transaction, error) {
	if len(params) == 0 {
		return nil, nil
	}

	userID, err := auth.UserID(ctx)
	if err != nil {
		return nil, err
	}

	txs, err := s.prepareBatch(userID, accountID, params)
	if err != nil {
		return nil, err
	}

	minDate, maxDate := dateRange(params)

	itx, err := s.repo.BeginImport(ctx, userID, accountID, minDate, maxDate)
	if err != nil {
		return nil, fmt.Errorf("begin import: %w", err)
	}
	defer itx.Rollback()

	if err := itx.CreateTransactions(ctx, txs); err != nil {
		return nil, fmt.Errorf("create transactions: %w", err)
	}

	if err := itx.Commit(); err != nil {
		return nil, fmt.Errorf("commit import: %w", err)
	}

	return txs, nil
}

func (s *Service) prepareBatch(userID, accountID uuid.UUID, params []CreateParams) ([]*Transaction, error) {
	txs := make([]*Transaction, len(params))

	for i, p := range params {
		p.AccountID = &accountID
		tx := fromParams(userID, p)

		if err := s.validate(tx); err != nil {
			return nil, fmt.Errorf("row %d: %w", i+1, err)
		}

		txs[i] = tx
	}

	return txs, nil
}

type dupKey struct {
	Date        string
	Amount      string
	Type        Type
	Description string
}

func keyOf(date time.Time, amount decimal.Decimal, t Type, desc string) dupKey {
	return dupKey{
		Date:        date.Format(time.DateOnly),
		Amount:      amount.StringFixed(2),
		Type:        t,
		Description: strings.ToLower(strings.TrimSpace(desc)),
	}
}

func dateRange(params []CreateParams) (time.Time, time.Time) {
	minDate := params[0].Date
	maxDate := params[0].Date

	for _, p := range params[1:] {
		if p.Date.Before(minDate) {
			minDate = p.Date
		}

		if p.Date.After(maxDate) {
			maxDate = p.Date
		}
	}

	return calendar.Day(minDate), calendar.Day(maxDate)
}

func fromParams(userID uuid.UUID, p CreateParams) *Transaction {
	status := p.Status
	if status == "" {
		status = StatusPending
	}

	tx := &Transaction{
		UserID:      userID,
		Type:        p.Type,
		Amount:      p.Amount,
		Description: strings.TrimSpace(p.Description),
		CategoryID:  p.CategoryID,
		Date:        calendar.Day(p.Date),
		DueDate:     dayPtr(p.DueDate),
		PaymentDate: dayPtr(p.PaymentDate),
		Status:      status,
		Tags:        normalizeTags(p.Tags),
		IsRecurring: p.IsRecurring,
	}

	if p.IsRecurring {
		tx.Recurrence = p.Recurrence
	}

	return tx
}

func applyPatch(tx *Transaction, p UpdateParams) {
	if p.Type != nil {
		tx.Type = *p.Type
	}

	if p.Amount != nil {
		tx.Amount = *p.Amount
	}

	if p.Description != nil {
		tx.Description = strings.TrimSpace(*p.Description)
	}

	if p.CategoryID != nil {
		tx.CategoryID = p.CategoryID
	}

	if p.ClearCategory {
		tx.CategoryID = nil
	}

	if p.Date != nil {
		tx.Date = calendar.Day(*p.Date)
	}

	if p.DueDate != nil {
		tx.DueDate = dayPtr(p.DueDate)
	}

	if p.PaymentDate != nil {
		tx.PaymentDate = dayPtr(p.PaymentDate)
	}

	if p.Status != nil {
		tx.Status = *p.Status
	}

	if p.Tags != nil {
		tx.Tags = normalizeTags(p.Tags)
	}

	if p.IsRecurring != nil {
		tx.IsRecurring = *p.IsRecurring
	}

	if p.Recurrence != nil {
		tx.Recurrence = p.Recurrence
	}

	if !tx.IsRecurring {
		tx.Recurrence = nil
	}
}

// validatePatch checks the fields present in an update before the stored
// transaction is read.
func validatePatch(p UpdateParams) error {
	if p.Type != nil && !p.Type.Valid() {
		return apperr.Invalid("type", "must be income or expense")
	}

	if p.Amount != nil && !p.Amount.IsPositive() {
		return apperr.Invalid("amount", "must be greater than zero")
	}

	if p.Description != nil {
		if err := validateDescription(*p.Description); err != nil {
			return err
		}
	}

	if p.Status != nil && !p.Status.Valid() {
		return apperr.Invalid("status", "must be pending, paid, overdue or cancelled")
	}

	return nil
}

func (s *Service) validate(tx *Transaction) error {
	if !tx.Type.Valid() {
		return apperr.Invalid("type", "must be income or expense")
	}

	if !tx.Amount.IsPositive() {
		return apperr.Invalid("amount", "must be greater than zero")
	}

	if err := validateDescription(tx.Description); err != nil {
		return err
	}

	if tx.Date.IsZero() {
		return apperr.Invalid("date", "is required")
	}

	if !tx.Status.Valid() {
		return apperr.Invalid("status", "must be pending, paid, overdue or cancelled")
	}

	switch tx.Status {
	case StatusPaid:
		if tx.PaymentDate == nil {
			return apperr.Invalid("payment_date", "is required for paid transactions")
		}

		if tx.PaymentDate.After(s.clock.Today().AddDate(0, 0, 1)) {
			return apperr.Invalid("payment_date", "cannot be more than one day in the future")
		}
	case StatusPending:
		if tx.DueDate == nil {
			return apperr.Invalid("due_date", "is required for pending transactions")
		}
	}

	if tx.IsRecurring {
		if tx.Recurrence == nil {
			return apperr.Invalid("recurrence_config", "is required for recurring transactions")
		}

		if err := tx.Recurrence.validate(tx.Date); err != nil {
			return err
		}
	}

	return nil
}

func validateDescription(desc string) error {
	if n := utf8.RuneCountInString(strings.TrimSpace(desc)); n < 3 || n > 200 {
		return apperr.Invalid("description", "must be between 3 and 200 characters")
	}

	return nil
}

func normalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))

	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t == "" || slices.Contains(out, t) {
			continue
		}

		out = append(out, t)
	}

	return out
}

func dayPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}

	d := calendar.Day(*t)

	return &d
}
