package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres" // dialect registration
	"github.com/doug-martin/goqu/v9/exp"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/bulk-loan-api/internal/models"
)

const (
	dialectPostgres = "postgres"
	tableLoans      = "loan_records"
	tableEvents     = "return_events"

	defaultPageSize = 20
	maxPageSize     = 100
)

var loanColumns = []interface{}{
	"id", "date", "organization_type", "district", "start_number", "end_number",
	"missing_numbers", "duplicate_numbers", "calculated_books", "total_books", "status",
	"returned_books", "return_date", "last_return_date", "borrow_images",
}

// loanRow mirrors loan_records; array columns scan through pq.StringArray.
type loanRow struct {
	ID               string         `db:"id"`
	Date             time.Time      `db:"date"`
	OrganizationType string         `db:"organization_type"`
	District         string         `db:"district"`
	StartNumber      int            `db:"start_number"`
	EndNumber        int            `db:"end_number"`
	MissingNumbers   string         `db:"missing_numbers"`
	DuplicateNumbers string         `db:"duplicate_numbers"`
	CalculatedBooks  pq.StringArray `db:"calculated_books"`
	TotalBooks       int            `db:"total_books"`
	Status           string         `db:"status"`
	ReturnedBooks    pq.StringArray `db:"returned_books"`
	ReturnDate       *time.Time     `db:"return_date"`
	LastReturnDate   *time.Time     `db:"last_return_date"`
	BorrowImages     pq.StringArray `db:"borrow_images"`
}

func (r loanRow) toModel() models.LoanRecord {
	rec := models.LoanRecord{
		ID:               r.ID,
		Date:             r.Date,
		OrganizationType: models.OrganizationType(r.OrganizationType),
		District:         r.District,
		StartNumber:      r.StartNumber,
		EndNumber:        r.EndNumber,
		MissingNumbers:   r.MissingNumbers,
		DuplicateNumbers: r.DuplicateNumbers,
		CalculatedBooks:  []string(r.CalculatedBooks),
		TotalBooks:       r.TotalBooks,
		Status:           models.LoanStatus(r.Status),
		ReturnedBooks:    []string(r.ReturnedBooks),
		ReturnDate:       r.ReturnDate,
		LastReturnDate:   r.LastReturnDate,
		BorrowImages:     []string(r.BorrowImages),
	}
	rec.Normalize()
	return rec
}

type eventRow struct {
	ID            string         `db:"id"`
	RecordID      string         `db:"record_id"`
	Date          time.Time      `db:"date"`
	BooksReturned pq.StringArray `db:"books_returned"`
	Count         int            `db:"count"`
	ReturnImages  pq.StringArray `db:"return_images"`
}

func (r eventRow) toModel() models.ReturnEvent {
	return models.ReturnEvent{
		ID:            r.ID,
		RecordID:      r.RecordID,
		Date:          r.Date,
		BooksReturned: append([]string{}, r.BooksReturned...),
		Count:         r.Count,
		ReturnImages:  append([]string{}, r.ReturnImages...),
	}
}

// LoanRepository persists loan records and their return history in PostgreSQL.
type LoanRepository struct {
	db  *sqlx.DB
	now func() time.Time
}

// NewLoanRepository constructs the repository.
func NewLoanRepository(db *sqlx.DB) *LoanRepository {
	return &LoanRepository{db: db, now: time.Now}
}

// Create inserts a new record. An empty ID is filled with a UUID.
func (r *LoanRepository) Create(ctx context.Context, rec *models.LoanRecord) error {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	rec.Normalize()
	const query = `INSERT INTO loan_records
	(id, date, organization_type, district, start_number, end_number, missing_numbers, duplicate_numbers,
	 calculated_books, total_books, status, returned_books, return_date, last_return_date, borrow_images, created_at, updated_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $16)`
	_, err := r.db.ExecContext(ctx, query,
		rec.ID, rec.Date, string(rec.OrganizationType), rec.District, rec.StartNumber, rec.EndNumber,
		rec.MissingNumbers, rec.DuplicateNumbers, pq.Array(rec.CalculatedBooks), rec.TotalBooks,
		string(rec.Status), pq.Array(rec.ReturnedBooks), rec.ReturnDate, rec.LastReturnDate,
		pq.Array(rec.BorrowImages), r.now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("create loan record: %w", err)
	}
	return nil
}

// GetByID fetches a record with its full return history. Missing records yield sql.ErrNoRows.
func (r *LoanRepository) GetByID(ctx context.Context, id string) (*models.LoanRecord, error) {
	query, args, err := goqu.Dialect(dialectPostgres).
		From(tableLoans).
		Select(loanColumns...).
		Where(goqu.C("id").Eq(id)).
		Prepared(true).
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build loan query: %w", err)
	}

	var row loanRow
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		return nil, err
	}
	rec := row.toModel()

	history, err := r.loadHistory(ctx, []string{rec.ID})
	if err != nil {
		return nil, err
	}
	rec.ReturnHistory = history[rec.ID]
	rec.Normalize()
	return &rec, nil
}

// List returns one page of records, newest first, plus the total matching count.
func (r *LoanRepository) List(ctx context.Context, filter models.LoanFilter) ([]models.LoanRecord, int, error) {
	builder := goqu.Dialect(dialectPostgres).From(tableLoans)
	if conds := filterConditions(filter); len(conds) > 0 {
		builder = builder.Where(conds...)
	}

	countQuery, countArgs, err := builder.Select(goqu.COUNT("*")).Prepared(true).ToSQL()
	if err != nil {
		return nil, 0, fmt.Errorf("build loan count: %w", err)
	}
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, countArgs...); err != nil {
		return nil, 0, fmt.Errorf("count loan records: %w", err)
	}

	page, size := normalizePage(filter.Page, filter.PageSize)
	listQuery, listArgs, err := builder.
		Select(loanColumns...).
		Order(goqu.C("date").Desc(), goqu.C("id").Asc()).
		Limit(uint(size)).
		Offset(uint((page - 1) * size)).
		Prepared(true).
		ToSQL()
	if err != nil {
		return nil, 0, fmt.Errorf("build loan list: %w", err)
	}

	records, err := r.selectRecords(ctx, listQuery, listArgs)
	if err != nil {
		return nil, 0, err
	}
	return records, total, nil
}

// ListAll returns every record newest first, for aggregation and export.
func (r *LoanRepository) ListAll(ctx context.Context, filter models.LoanFilter) ([]models.LoanRecord, error) {
	builder := goqu.Dialect(dialectPostgres).From(tableLoans).Select(loanColumns...)
	if conds := filterConditions(filter); len(conds) > 0 {
		builder = builder.Where(conds...)
	}
	query, args, err := builder.Order(goqu.C("date").Desc(), goqu.C("id").Asc()).Prepared(true).ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build loan export query: %w", err)
	}
	return r.selectRecords(ctx, query, args)
}

// ApplyReturn appends a return event and writes the reconciled record state in one transaction.
// The last writer wins; callers get sql.ErrNoRows when the record no longer exists.
func (r *LoanRepository) ApplyReturn(ctx context.Context, recordID string, patch *models.LoanReturnPatch) (err error) {
	if patch.NewEvent.ID == "" {
		patch.NewEvent.ID = uuid.NewString()
	}
	patch.NewEvent.RecordID = recordID

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin apply return: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	const update = `UPDATE loan_records
	SET status = $2, returned_books = $3, return_date = $4, last_return_date = $5, updated_at = $6
	WHERE id = $1`
	res, err := tx.ExecContext(ctx, update, recordID, string(patch.Status), pq.Array(patch.ReturnedBooks),
		patch.ReturnDate, patch.LastReturnDate, r.now().UTC())
	if err != nil {
		return fmt.Errorf("update loan record: %w", err)
	}
	if err = expectAffected(res); err != nil {
		return err
	}

	ev := patch.NewEvent
	const insert = `INSERT INTO return_events (id, record_id, date, books_returned, count, return_images)
	VALUES ($1, $2, $3, $4, $5, $6)`
	if _, err = tx.ExecContext(ctx, insert, ev.ID, ev.RecordID, ev.Date, pq.Array(nonNil(ev.BooksReturned)),
		ev.Count, pq.Array(nonNil(ev.ReturnImages))); err != nil {
		return fmt.Errorf("insert return event: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit apply return: %w", err)
	}
	return nil
}

// AppendBorrowImages adds image references to a record's borrow evidence.
func (r *LoanRepository) AppendBorrowImages(ctx context.Context, recordID string, refs []string) error {
	const query = `UPDATE loan_records SET borrow_images = borrow_images || $2::text[], updated_at = $3 WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, recordID, pq.Array(refs), r.now().UTC())
	if err != nil {
		return fmt.Errorf("append borrow images: %w", err)
	}
	return expectAffected(res)
}

// AppendReturnImages adds image references to one return event of a record.
func (r *LoanRepository) AppendReturnImages(ctx context.Context, recordID, eventID string, refs []string) error {
	const query = `UPDATE return_events SET return_images = return_images || $3::text[] WHERE id = $2 AND record_id = $1`
	res, err := r.db.ExecContext(ctx, query, recordID, eventID, pq.Array(refs))
	if err != nil {
		return fmt.Errorf("append return images: %w", err)
	}
	return expectAffected(res)
}

// Delete removes a record; its return events cascade.
func (r *LoanRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM loan_records WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete loan record: %w", err)
	}
	return expectAffected(res)
}

func (r *LoanRepository) selectRecords(ctx context.Context, query string, args []interface{}) ([]models.LoanRecord, error) {
	var rows []loanRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list loan records: %w", err)
	}
	if len(rows) == 0 {
		return []models.LoanRecord{}, nil
	}

	ids := make([]string, len(rows))
	for i, row := range rows {
		ids[i] = row.ID
	}
	history, err := r.loadHistory(ctx, ids)
	if err != nil {
		return nil, err
	}

	records := make([]models.LoanRecord, len(rows))
	for i, row := range rows {
		rec := row.toModel()
		rec.ReturnHistory = history[rec.ID]
		rec.Normalize()
		records[i] = rec
	}
	return records, nil
}

func (r *LoanRepository) loadHistory(ctx context.Context, recordIDs []string) (map[string][]models.ReturnEvent, error) {
	const query = `SELECT id, record_id, date, books_returned, count, return_images
	FROM return_events WHERE record_id = ANY($1) ORDER BY date ASC, created_at ASC`
	var rows []eventRow
	if err := r.db.SelectContext(ctx, &rows, query, pq.Array(recordIDs)); err != nil {
		return nil, fmt.Errorf("load return history: %w", err)
	}
	history := make(map[string][]models.ReturnEvent, len(recordIDs))
	for _, row := range rows {
		history[row.RecordID] = append(history[row.RecordID], row.toModel())
	}
	return history, nil
}

func filterConditions(filter models.LoanFilter) []exp.Expression {
	conds := make([]exp.Expression, 0, 3)
	switch filter.Status {
	case "":
	case models.LoanStatusFilterActive:
		conds = append(conds, goqu.C("status").In(
			string(models.LoanStatusBorrowed), string(models.LoanStatusPartiallyReturned)))
	default:
		conds = append(conds, goqu.C("status").Eq(string(filter.Status)))
	}
	if filter.District != "" {
		conds = append(conds, goqu.C("district").Eq(filter.District))
	}
	if filter.OrganizationType != "" {
		conds = append(conds, goqu.C("organization_type").Eq(string(filter.OrganizationType)))
	}
	return conds
}

func normalizePage(page, size int) (int, int) {
	if page <= 0 {
		page = 1
	}
	if size <= 0 {
		size = defaultPageSize
	}
	if size > maxPageSize {
		size = maxPageSize
	}
	return page, size
}

func expectAffected(res sql.Result) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
