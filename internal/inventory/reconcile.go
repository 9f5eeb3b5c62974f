package inventory

import (
	"time"

	"github.com/noah-isme/bulk-loan-api/internal/models"
)

// Outstanding lists the identifiers of rec still out on loan, in CalculatedBooks order.
// It is recomputed on every call.
func Outstanding(rec *models.LoanRecord) []string {
	if rec == nil {
		return []string{}
	}
	return NewLedger(rec.CalculatedBooks, rec.ReturnedBooks).Outstanding()
}

// RecordReturn folds one return round into a copy of rec:
//   - returned identifiers gain the selection (units already returned are skipped),
//   - a ReturnEvent dated at is appended,
//   - status becomes returned once nothing is outstanding, partially_returned otherwise,
//   - LastReturnDate is set to at, ReturnDate only the first time the loan completes.
//
// rec itself is left untouched, so a failed persist never leaves it looking committed.
func RecordReturn(rec models.LoanRecord, selected []string, at time.Time, images []string) models.LoanRecord {
	out := rec.Clone()
	out.Normalize()

	ledger, accepted := NewLedger(out.CalculatedBooks, out.ReturnedBooks).Apply(selected)
	out.ReturnedBooks = ledger.Returned()
	out.ReturnHistory = append(out.ReturnHistory, models.ReturnEvent{
		RecordID:      out.ID,
		Date:          at,
		BooksReturned: accepted,
		Count:         len(accepted),
		ReturnImages:  append([]string{}, images...),
	})

	if ledger.Complete() {
		out.Status = models.LoanStatusReturned
		if out.ReturnDate == nil {
			returnedAt := at
			out.ReturnDate = &returnedAt
		}
	} else {
		out.Status = models.LoanStatusPartiallyReturned
	}
	lastReturn := at
	out.LastReturnDate = &lastReturn

	return out
}

// ReturnPatch extracts the partial update a record store needs to persist the
// most recent RecordReturn result.
func ReturnPatch(updated models.LoanRecord) models.LoanReturnPatch {
	patch := models.LoanReturnPatch{
		Status:         updated.Status,
		ReturnedBooks:  append([]string{}, updated.ReturnedBooks...),
		ReturnDate:     updated.ReturnDate,
		LastReturnDate: updated.LastReturnDate,
	}
	if n := len(updated.ReturnHistory); n > 0 {
		patch.NewEvent = updated.ReturnHistory[n-1]
	}
	return patch
}

// NewRecord builds the initial state of a loan from a derived inventory.
func NewRecord(base models.LoanRecord, derived Result) models.LoanRecord {
	rec := base
	rec.CalculatedBooks = append([]string{}, derived.Books...)
	rec.TotalBooks = derived.Total
	rec.Status = models.LoanStatusBorrowed
	rec.ReturnedBooks = []string{}
	rec.ReturnHistory = []models.ReturnEvent{}
	rec.ReturnDate = nil
	rec.LastReturnDate = nil
	rec.Normalize()
	return rec
}
