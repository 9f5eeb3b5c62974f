package inventory

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/noah-isme/bulk-loan-api/internal/models"
)

func newLoan(books ...string) models.LoanRecord {
	return NewRecord(models.LoanRecord{ID: "loan-1", District: "North"}, Result{Books: books, Total: len(books)})
}

func TestRecordReturnPartialThenFull(t *testing.T) {
	rec := newLoan("1", "2", "3")
	first := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	second := first.Add(48 * time.Hour)

	afterFirst := RecordReturn(rec, []string{"1"}, first, []string{"img-a"})
	assert.Equal(t, models.LoanStatusPartiallyReturned, afterFirst.Status)
	assert.Equal(t, []string{"1"}, afterFirst.ReturnedBooks)
	assert.Equal(t, []string{"2", "3"}, Outstanding(&afterFirst))
	require.Len(t, afterFirst.ReturnHistory, 1)
	assert.Equal(t, 1, afterFirst.ReturnHistory[0].Count)
	assert.Equal(t, []string{"img-a"}, afterFirst.ReturnHistory[0].ReturnImages)
	assert.Nil(t, afterFirst.ReturnDate)
	require.NotNil(t, afterFirst.LastReturnDate)
	assert.Equal(t, first, *afterFirst.LastReturnDate)

	afterSecond := RecordReturn(afterFirst, []string{"2", "3"}, second, nil)
	assert.Equal(t, models.LoanStatusReturned, afterSecond.Status)
	assert.Equal(t, []string{"1", "2", "3"}, afterSecond.ReturnedBooks)
	assert.Empty(t, Outstanding(&afterSecond))
	require.Len(t, afterSecond.ReturnHistory, 2)
	assert.Equal(t, []string{}, afterSecond.ReturnHistory[1].ReturnImages)
	require.NotNil(t, afterSecond.ReturnDate)
	assert.Equal(t, second, *afterSecond.ReturnDate)
	assert.Equal(t, second, *afterSecond.LastReturnDate)
}

func TestRecordReturnAllAtOnce(t *testing.T) {
	rec := newLoan("1", "2")
	at := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

	out := RecordReturn(rec, []string{"2", "1"}, at, nil)

	assert.Equal(t, models.LoanStatusReturned, out.Status)
	assert.Equal(t, []string{"2", "1"}, out.ReturnedBooks)
	require.NotNil(t, out.ReturnDate)
	assert.Equal(t, at, *out.ReturnDate)
}

func TestRecordReturnDoesNotMutateInput(t *testing.T) {
	rec := newLoan("1", "2", "3")

	_ = RecordReturn(rec, []string{"1"}, time.Now(), []string{"x"})

	assert.Equal(t, models.LoanStatusBorrowed, rec.Status)
	assert.Empty(t, rec.ReturnedBooks)
	assert.Empty(t, rec.ReturnHistory)
	assert.Nil(t, rec.LastReturnDate)
}

func TestRecordReturnSkipsUnitsAlreadyReturned(t *testing.T) {
	rec := RecordReturn(newLoan("1", "2"), []string{"1"}, time.Now(), nil)

	out := RecordReturn(rec, []string{"1", "9"}, time.Now(), nil)

	assert.Equal(t, []string{"1"}, out.ReturnedBooks)
	assert.Equal(t, 0, out.ReturnHistory[1].Count)
	assert.Equal(t, models.LoanStatusPartiallyReturned, out.Status)
}

func TestRecordReturnKeepsFirstCompletionDate(t *testing.T) {
	done := RecordReturn(newLoan("1"), []string{"1"}, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), nil)
	later := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)

	again := RecordReturn(done, nil, later, nil)

	assert.Equal(t, models.LoanStatusReturned, again.Status)
	assert.Equal(t, *done.ReturnDate, *again.ReturnDate)
	assert.Equal(t, later, *again.LastReturnDate)
}

func TestDuplicateIdentifiersReturnSeparately(t *testing.T) {
	rec := newLoan("1", "2", "2.1", "2.1", "3")

	afterOne := RecordReturn(rec, []string{"2.1"}, time.Now(), nil)
	assert.Equal(t, []string{"1", "2", "2.1", "3"}, Outstanding(&afterOne))
	assert.Equal(t, models.LoanStatusPartiallyReturned, afterOne.Status)

	ledger := NewLedger(afterOne.CalculatedBooks, afterOne.ReturnedBooks)
	require.NoError(t, ledger.Check([]string{"2.1"}))
	assert.ErrorIs(t, ledger.Check([]string{"2.1", "2.1"}), ErrAlreadyReturned)

	afterAll := RecordReturn(afterOne, []string{"1", "2", "2.1", "3"}, time.Now(), nil)
	assert.Equal(t, models.LoanStatusReturned, afterAll.Status)
}

func TestLedgerCheck(t *testing.T) {
	ledger := NewLedger([]string{"1", "2", "3"}, []string{"2"})

	require.NoError(t, ledger.Check([]string{"1", "3"}))

	err := ledger.Check([]string{"1", "7"})
	var idErr *IdentifierError
	require.ErrorAs(t, err, &idErr)
	assert.Equal(t, "7", idErr.Identifier)
	assert.ErrorIs(t, err, ErrUnknownIdentifier)

	assert.ErrorIs(t, ledger.Check([]string{"2"}), ErrAlreadyReturned)
	assert.ErrorIs(t, ledger.Check([]string{"1", "1"}), ErrAlreadyReturned)
}

func TestOutstandingNilRecord(t *testing.T) {
	assert.Equal(t, []string{}, Outstanding(nil))
}

func TestReturnPatch(t *testing.T) {
	at := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	updated := RecordReturn(newLoan("1", "2"), []string{"2"}, at, []string{"r.jpg"})

	patch := ReturnPatch(updated)

	assert.Equal(t, models.LoanStatusPartiallyReturned, patch.Status)
	assert.Equal(t, []string{"2"}, patch.ReturnedBooks)
	assert.Nil(t, patch.ReturnDate)
	assert.Equal(t, at, *patch.LastReturnDate)
	assert.Equal(t, []string{"2"}, patch.NewEvent.BooksReturned)
	assert.Equal(t, []string{"r.jpg"}, patch.NewEvent.ReturnImages)
}

func TestReconcileProperties(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		end := rapid.IntRange(1, 30).Draw(t, "end")
		rec := NewRecord(models.LoanRecord{ID: "p"}, Derive(1, end, "", ""))
		at := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

		rounds := rapid.IntRange(1, 6).Draw(t, "rounds")
		for i := 0; i < rounds; i++ {
			outstanding := Outstanding(&rec)
			if len(outstanding) == 0 {
				break
			}
			n := rapid.IntRange(1, len(outstanding)).Draw(t, "n")
			selected := outstanding[:n]
			if err := NewLedger(rec.CalculatedBooks, rec.ReturnedBooks).Check(selected); err != nil {
				t.Fatalf("outstanding selection rejected: %v", err)
			}
			before := len(rec.ReturnedBooks)
			rec = RecordReturn(rec, selected, at.Add(time.Duration(i)*time.Hour), nil)

			if len(rec.ReturnedBooks) != before+n {
				t.Fatalf("returned grew by %d, want %d", len(rec.ReturnedBooks)-before, n)
			}
			if len(rec.ReturnedBooks)+len(Outstanding(&rec)) != len(rec.CalculatedBooks) {
				t.Fatalf("returned and outstanding do not partition the inventory")
			}
			complete := len(rec.ReturnedBooks) == len(rec.CalculatedBooks)
			if complete != (rec.Status == models.LoanStatusReturned) {
				t.Fatalf("status %s with %d/%d returned", rec.Status, len(rec.ReturnedBooks), len(rec.CalculatedBooks))
			}
			if !complete && rec.Status != models.LoanStatusPartiallyReturned {
				t.Fatalf("unexpected status %s", rec.Status)
			}
		}
	})
}
