package models

import "time"

// LoanStatus is the aggregate reconciliation state of a loan record.
type LoanStatus string

const (
	LoanStatusBorrowed          LoanStatus = "borrowed"
	LoanStatusPartiallyReturned LoanStatus = "partially_returned"
	LoanStatusReturned          LoanStatus = "returned"
)

// Valid reports whether s is one of the known states.
func (s LoanStatus) Valid() bool {
	switch s {
	case LoanStatusBorrowed, LoanStatusPartiallyReturned, LoanStatusReturned:
		return true
	default:
		return false
	}
}

// Active reports whether identifiers may still be outstanding.
func (s LoanStatus) Active() bool {
	return s == LoanStatusBorrowed || s == LoanStatusPartiallyReturned
}

// OrganizationType is the closed set of borrowing organization categories.
type OrganizationType string

const (
	OrganizationFoundation  OrganizationType = "FOUNDATION"
	OrganizationAssociation OrganizationType = "ASSOCIATION"
)

// Valid reports whether t is a known organization category.
func (t OrganizationType) Valid() bool {
	return t == OrganizationFoundation || t == OrganizationAssociation
}

// LoanRecord is one bulk borrow transaction and its cumulative return progress.
// CalculatedBooks is frozen at creation; ReturnedBooks, ReturnHistory and the
// dates only change together when a return event is recorded.
type LoanRecord struct {
	ID               string           `db:"id" json:"id"`
	Date             time.Time        `db:"date" json:"date"`
	OrganizationType OrganizationType `db:"organization_type" json:"organizationType"`
	District         string           `db:"district" json:"district"`
	StartNumber      int              `db:"start_number" json:"startNumber"`
	EndNumber        int              `db:"end_number" json:"endNumber"`
	MissingNumbers   string           `db:"missing_numbers" json:"missingNumbers"`
	DuplicateNumbers string           `db:"duplicate_numbers" json:"duplicateNumbers"`
	CalculatedBooks  []string         `db:"-" json:"calculatedBooks"`
	TotalBooks       int              `db:"total_books" json:"totalBooks"`
	Status           LoanStatus       `db:"status" json:"status"`
	ReturnedBooks    []string         `db:"-" json:"returnedBooks"`
	ReturnHistory    []ReturnEvent    `db:"-" json:"returnHistory"`
	ReturnDate       *time.Time       `db:"return_date" json:"returnDate,omitempty"`
	LastReturnDate   *time.Time       `db:"last_return_date" json:"lastReturnDate,omitempty"`
	BorrowImages     []string         `db:"-" json:"borrowImages"`
}

// ReturnEvent is one return round. BooksReturned only holds units that were outstanding when the round began.
type ReturnEvent struct {
	ID            string    `db:"id" json:"id"`
	RecordID      string    `db:"record_id" json:"recordId"`
	Date          time.Time `db:"date" json:"date"`
	BooksReturned []string  `db:"-" json:"booksReturned"`
	Count         int       `db:"count" json:"count"`
	ReturnImages  []string  `db:"-" json:"returnImages"`
}

// Normalize replaces nil containers with empty ones so consumers never branch on absence.
func (r *LoanRecord) Normalize() {
	if r.CalculatedBooks == nil {
		r.CalculatedBooks = []string{}
	}
	if r.ReturnedBooks == nil {
		r.ReturnedBooks = []string{}
	}
	if r.ReturnHistory == nil {
		r.ReturnHistory = []ReturnEvent{}
	}
	if r.BorrowImages == nil {
		r.BorrowImages = []string{}
	}
	for i := range r.ReturnHistory {
		if r.ReturnHistory[i].BooksReturned == nil {
			r.ReturnHistory[i].BooksReturned = []string{}
		}
		if r.ReturnHistory[i].ReturnImages == nil {
			r.ReturnHistory[i].ReturnImages = []string{}
		}
	}
}

// Clone returns a deep copy so derived records never alias the original's slices.
func (r LoanRecord) Clone() LoanRecord {
	out := r
	out.CalculatedBooks = append([]string{}, r.CalculatedBooks...)
	out.ReturnedBooks = append([]string{}, r.ReturnedBooks...)
	out.BorrowImages = append([]string{}, r.BorrowImages...)
	out.ReturnHistory = make([]ReturnEvent, len(r.ReturnHistory))
	for i, ev := range r.ReturnHistory {
		ev.BooksReturned = append([]string{}, ev.BooksReturned...)
		ev.ReturnImages = append([]string{}, ev.ReturnImages...)
		out.ReturnHistory[i] = ev
	}
	if r.ReturnDate != nil {
		d := *r.ReturnDate
		out.ReturnDate = &d
	}
	if r.LastReturnDate != nil {
		d := *r.LastReturnDate
		out.LastReturnDate = &d
	}
	return out
}

// FindReturnEvent returns the history entry with the given id.
func (r *LoanRecord) FindReturnEvent(id string) (*ReturnEvent, bool) {
	for i := range r.ReturnHistory {
		if r.ReturnHistory[i].ID == id {
			return &r.ReturnHistory[i], true
		}
	}
	return nil, false
}

// LoanStatusFilter selects records by status; "active" matches borrowed and partially_returned.
type LoanStatusFilter string

const LoanStatusFilterActive LoanStatusFilter = "active"

// LoanFilter narrows listing queries.
type LoanFilter struct {
	Status           LoanStatusFilter
	District         string
	OrganizationType OrganizationType
	Page             int
	PageSize         int
}

// LoanReturnPatch is the partial update written when a return event is appended.
type LoanReturnPatch struct {
	Status         LoanStatus
	ReturnedBooks  []string
	ReturnDate     *time.Time
	LastReturnDate *time.Time
	NewEvent       ReturnEvent
}

// LoanSummary aggregates dashboard figures over all records.
type LoanSummary struct {
	TotalRecords     int               `json:"totalRecords"`
	ActiveRecords    int               `json:"activeRecords"`
	ReturnedRecords  int               `json:"returnedRecords"`
	TotalBooks       int               `json:"totalBooks"`
	OutstandingBooks int               `json:"outstandingBooks"`
	ByDistrict       []DistrictSummary `json:"byDistrict"`
	ByOrganization   map[string]int    `json:"byOrganization"`
	GeneratedAt      time.Time         `json:"generatedAt"`
}

// DistrictSummary is the per-district share of the dashboard.
type DistrictSummary struct {
	District         string `json:"district"`
	ActiveRecords    int    `json:"activeRecords"`
	OutstandingBooks int    `json:"outstandingBooks"`
}
