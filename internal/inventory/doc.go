// Package inventory turns a declared numeric range into the frozen list of item
// identifiers under loan, and folds return rounds into a loan record.
//
// Everything here is pure: no I/O, no clocks, no shared state. Callers own
// validation of user input (ValidateRange) and persistence of the records
// RecordReturn produces.
package inventory
