package scan

import (
	"fmt"
	"regexp"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/width"
)

// Input field names shared with the workflows.
const (
	FieldUnitNumber  = "unitNumber"
	FieldCheckDigit  = "checkDigit"
	FieldProductCode = "productCode"
)

// Event is a locally valid scan.
type Event struct {
	UnitNumber  string
	CheckDigit  string
	ProductCode string
	Scanner     bool
	ManualEntry bool
	Raw         string
}

// Normalizer applies one set of Rules. It is safe for concurrent use.
type Normalizer struct {
	rules          Rules
	unitPattern    *regexp.Regexp
	productPattern *regexp.Regexp
	checkPattern   *regexp.Regexp
}

// NewNormalizer compiles the rule patterns.
func NewNormalizer(rules Rules) (*Normalizer, error) {
	rules = rules.WithDefaults()
	unitPattern, err := regexp.Compile(rules.UnitNumberPattern)
	if err != nil {
		return nil, fmt.Errorf("compile unit number pattern '%s': %w", rules.UnitNumberPattern, err)
	}
	productPattern, err := regexp.Compile(rules.ProductCodePattern)
	if err != nil {
		return nil, fmt.Errorf("compile product code pattern '%s': %w", rules.ProductCodePattern, err)
	}
	return &Normalizer{
		rules:          rules,
		unitPattern:    unitPattern,
		productPattern: productPattern,
		checkPattern:   regexp.MustCompile(DefaultCheckDigitPattern),
	}, nil
}

// MustNormalizer is NewNormalizer for rules known to be valid.
func MustNormalizer(rules Rules) *Normalizer {
	n, err := NewNormalizer(rules)
	if err != nil {
		panic(err)
	}
	return n
}

// Rules returns the effective rules.
func (n *Normalizer) Rules() Rules { return n.rules }

// IsManualEntry reports whether raw input was typed rather than scanned.
// Scanners always emit the ISBT data identifier first. The check runs after
// width folding and trimming, so a full-width ＝ from a keyboard wedge in
// full-width mode counts as the scanner prefix.
func IsManualEntry(raw string) bool {
	return !strings.HasPrefix(fold(raw), UnitNumberPrefix)
}

// UnitNumber normalizes a unit number and its optional check digit.
func (n *Normalizer) UnitNumber(raw, checkDigit string) (Event, error) {
	value := fold(raw)
	if value == "" {
		return Event{}, inputError(FieldUnitNumber, MessageEmptyInput, ErrEmptyInput)
	}

	manual := !strings.HasPrefix(value, UnitNumberPrefix)
	if manual && !n.rules.AllowManualEntry {
		return Event{}, inputError(FieldUnitNumber, MessageManualEntryForbidden, ErrManualEntry)
	}
	if strings.HasPrefix(value, ProductCodePrefix) {
		return Event{}, inputError(FieldUnitNumber, MessageUnitNumberInvalid, ErrInvalidUnitNumber)
	}

	body := strings.TrimPrefix(value, UnitNumberPrefix)
	if !manual && n.rules.FlagCharacters > 0 && len(body) > n.rules.FlagCharacters && !n.unitPattern.MatchString(n.upper(body)) {
		body = body[:len(body)-n.rules.FlagCharacters]
	}
	body = n.upper(body)
	if !n.unitPattern.MatchString(body) {
		return Event{}, inputError(FieldUnitNumber, MessageUnitNumberInvalid, ErrInvalidUnitNumber)
	}

	digit := n.upper(fold(checkDigit))
	if digit == "" && manual && n.rules.RequireCheckDigit {
		return Event{}, inputError(FieldCheckDigit, MessageCheckDigitRequired, ErrCheckDigitRequired)
	}
	if digit != "" && !n.checkPattern.MatchString(digit) {
		return Event{}, inputError(FieldCheckDigit, MessageCheckDigitInvalid, ErrInvalidCheckDigit)
	}

	return Event{
		UnitNumber:  body,
		CheckDigit:  digit,
		Scanner:     !manual,
		ManualEntry: manual,
		Raw:         raw,
	}, nil
}

// ProductCode normalizes a product code, stripping the scanner data identifier.
func (n *Normalizer) ProductCode(raw string) (Event, error) {
	value := fold(raw)
	if value == "" {
		return Event{}, inputError(FieldProductCode, MessageEmptyInput, ErrEmptyInput)
	}

	scanned := strings.HasPrefix(value, ProductCodePrefix)
	if !scanned && !n.rules.AllowManualEntry {
		return Event{}, inputError(FieldProductCode, MessageManualEntryForbidden, ErrManualEntry)
	}

	body := n.upper(strings.TrimPrefix(value, ProductCodePrefix))
	if !n.productPattern.MatchString(body) {
		return Event{}, inputError(FieldProductCode, MessageProductCodeInvalid, ErrInvalidProductCode)
	}

	return Event{
		ProductCode: body,
		Scanner:     scanned,
		ManualEntry: !scanned,
		Raw:         raw,
	}, nil
}

func (n *Normalizer) upper(s string) string {
	if !n.rules.Uppercase {
		return s
	}
	// Casers carry state and must not be shared between goroutines.
	return cases.Upper(language.Und).String(s)
}

// fold trims and maps full-width characters some keyboard wedges emit to their ASCII forms.
func fold(s string) string {
	return width.Fold.String(strings.TrimSpace(s))
}
