// internal/config/models.go
// Package config provides configuration loading, validation, workflow profiles and job models.
package config

// FailedRow is an import row that was not accepted, along with the reason.
type FailedRow struct {
	// Line is the 1-based line number in the import file
	Line        int
	UnitNumber  string
	ProductCode string
	Reason      string
}
