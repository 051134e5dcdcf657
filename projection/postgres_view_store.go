package projection

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres" // driver import
	"github.com/jmoiron/sqlx"

	"loanledger/core"
	"loanledger/eventstore"
)

const (
	defaultViewTableName = "loans_view"

	viewColLoanID         = "loan_id"
	viewColBookID         = "book_id"
	viewColMemberID       = "member_id"
	viewColLoanedAt       = "loaned_at"
	viewColDueDate        = "due_date"
	viewColReturnedAt     = "returned_at"
	viewColExtensionCount = "extension_count"
	viewColStatus         = "status"
	viewColCreatedAt      = "created_at"
	viewColUpdatedAt      = "updated_at"
)

var (
	// ErrLoanNotFound is returned when no view row exists for a loan id.
	ErrLoanNotFound = errors.New("loan not found")

	// ErrSavingViewFailed wraps upsert failures.
	ErrSavingViewFailed = errors.New("saving loan view failed")

	// ErrQueryingViewFailed wraps read failures.
	ErrQueryingViewFailed = errors.New("querying loan view failed")
)

// PostgresViewStore persists and queries the loans view.
//
// All SQL is built with goqu and executed through sqlx, which scans rows
// straight into LoanView via its db tags.
type PostgresViewStore struct {
	db        *sqlx.DB
	tableName string
	logger    eventstore.Logger
}

// ViewStoreOption configures a PostgresViewStore.
type ViewStoreOption func(*PostgresViewStore) error

// WithViewTableName sets a custom table name for the view store.
func WithViewTableName(tableName string) ViewStoreOption {
	return func(s *PostgresViewStore) error {
		if tableName == "" {
			return eventstore.ErrEmptyEventsTableName
		}

		s.tableName = tableName

		return nil
	}
}

// WithViewStoreLogger sets a logger for SQL visibility.
func WithViewStoreLogger(logger eventstore.Logger) ViewStoreOption {
	return func(s *PostgresViewStore) error {
		s.logger = logger

		return nil
	}
}

// NewPostgresViewStore creates a view store over the given sqlx connection.
func NewPostgresViewStore(db *sqlx.DB, options ...ViewStoreOption) (*PostgresViewStore, error) {
	if db == nil {
		return nil, eventstore.ErrNilDatabaseConnection
	}

	store := &PostgresViewStore{
		db:        db,
		tableName: defaultViewTableName,
	}

	for _, option := range options {
		if err := option(store); err != nil {
			return nil, err
		}
	}

	return store, nil
}

// Save upserts one complete view row keyed by loan id: insert if absent, full
// overwrite if present. Unchanged columns are rewritten on purpose.
func (s *PostgresViewStore) Save(ctx context.Context, view LoanView) error {
	record := goqu.Record{
		viewColLoanID:         view.LoanID.String(),
		viewColBookID:         view.BookID.String(),
		viewColMemberID:       view.MemberID.String(),
		viewColLoanedAt:       view.LoanedAt,
		viewColDueDate:        view.DueDate,
		viewColReturnedAt:     view.ReturnedAt,
		viewColExtensionCount: view.ExtensionCount,
		viewColStatus:         string(view.Status),
		viewColCreatedAt:      view.CreatedAt,
		viewColUpdatedAt:      view.UpdatedAt,
	}

	updateRecord := goqu.Record{
		viewColBookID:         view.BookID.String(),
		viewColMemberID:       view.MemberID.String(),
		viewColLoanedAt:       view.LoanedAt,
		viewColDueDate:        view.DueDate,
		viewColReturnedAt:     view.ReturnedAt,
		viewColExtensionCount: view.ExtensionCount,
		viewColStatus:         string(view.Status),
		viewColCreatedAt:      view.CreatedAt,
		viewColUpdatedAt:      view.UpdatedAt,
	}

	sqlQuery, _, toSQLErr := goqu.Dialect(dialectPostgres).
		Insert(s.tableName).
		Rows(record).
		OnConflict(goqu.DoUpdate(viewColLoanID, updateRecord)).
		ToSQL()
	if toSQLErr != nil {
		return errors.Join(ErrSavingViewFailed, toSQLErr)
	}

	s.logQuery(sqlQuery)

	if _, execErr := s.db.ExecContext(ctx, sqlQuery); execErr != nil {
		return errors.Join(ErrSavingViewFailed, execErr)
	}

	return nil
}

// GetByID returns the view row for one loan, or ErrLoanNotFound.
func (s *PostgresViewStore) GetByID(ctx context.Context, loanID core.LoanID) (LoanView, error) {
	sqlQuery, toSQLErr := s.buildSelect(goqu.Ex{viewColLoanID: loanID.String()}, viewColLoanedAt)
	if toSQLErr != nil {
		return LoanView{}, toSQLErr
	}

	s.logQuery(sqlQuery)

	var view LoanView
	if err := s.db.GetContext(ctx, &view, sqlQuery); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return LoanView{}, ErrLoanNotFound
		}

		return LoanView{}, errors.Join(ErrQueryingViewFailed, err)
	}

	return view, nil
}

// FindByMember returns all loans of one member, most recent first.
func (s *PostgresViewStore) FindByMember(ctx context.Context, memberID core.MemberID) ([]LoanView, error) {
	sqlQuery, toSQLErr := s.buildSelectDesc(goqu.Ex{viewColMemberID: memberID.String()})
	if toSQLErr != nil {
		return nil, toSQLErr
	}

	return s.selectViews(ctx, sqlQuery)
}

// ActiveLoansForMember returns the member's active loans. Its length is the
// count checked against the loan limit, served by the (member_id, status) index.
func (s *PostgresViewStore) ActiveLoansForMember(ctx context.Context, memberID core.MemberID) ([]LoanView, error) {
	sqlQuery, toSQLErr := s.buildSelectDesc(goqu.Ex{
		viewColMemberID: memberID.String(),
		viewColStatus:   string(StatusActive),
	})
	if toSQLErr != nil {
		return nil, toSQLErr
	}

	return s.selectViews(ctx, sqlQuery)
}

// FindOverdueCandidates returns loans that look overdue from the view: status
// active with a due date before the cutoff. This is only a cheap filter; the
// sweep re-checks each candidate against the authoritative event history.
func (s *PostgresViewStore) FindOverdueCandidates(ctx context.Context, cutoff time.Time) ([]LoanView, error) {
	sqlQuery, _, toSQLErr := goqu.Dialect(dialectPostgres).
		From(s.tableName).
		Select(s.allColumns()...).
		Where(
			goqu.C(viewColStatus).Eq(string(StatusActive)),
			goqu.C(viewColDueDate).Lt(cutoff),
		).
		Order(goqu.I(viewColDueDate).Asc()).
		ToSQL()
	if toSQLErr != nil {
		return nil, errors.Join(ErrQueryingViewFailed, toSQLErr)
	}

	return s.selectViews(ctx, sqlQuery)
}

func (s *PostgresViewStore) buildSelect(where goqu.Ex, orderBy string) (string, error) {
	sqlQuery, _, toSQLErr := goqu.Dialect(dialectPostgres).
		From(s.tableName).
		Select(s.allColumns()...).
		Where(where).
		Order(goqu.I(orderBy).Asc()).
		ToSQL()
	if toSQLErr != nil {
		return "", errors.Join(ErrQueryingViewFailed, toSQLErr)
	}

	return sqlQuery, nil
}

func (s *PostgresViewStore) buildSelectDesc(where goqu.Ex) (string, error) {
	sqlQuery, _, toSQLErr := goqu.Dialect(dialectPostgres).
		From(s.tableName).
		Select(s.allColumns()...).
		Where(where).
		Order(goqu.I(viewColLoanedAt).Desc()).
		ToSQL()
	if toSQLErr != nil {
		return "", errors.Join(ErrQueryingViewFailed, toSQLErr)
	}

	return sqlQuery, nil
}

func (s *PostgresViewStore) selectViews(ctx context.Context, sqlQuery string) ([]LoanView, error) {
	s.logQuery(sqlQuery)

	views := make([]LoanView, 0)
	if err := s.db.SelectContext(ctx, &views, sqlQuery); err != nil {
		return nil, errors.Join(ErrQueryingViewFailed, err)
	}

	return views, nil
}

func (s *PostgresViewStore) allColumns() []any {
	return []any{
		viewColLoanID, viewColBookID, viewColMemberID, viewColLoanedAt, viewColDueDate,
		viewColReturnedAt, viewColExtensionCount, viewColStatus, viewColCreatedAt, viewColUpdatedAt,
	}
}

func (s *PostgresViewStore) logQuery(sqlQuery string) {
	if s.logger != nil {
		s.logger.Debug("executed sql for: loans view", "query", sqlQuery)
	}
}

const dialectPostgres = "postgres"
