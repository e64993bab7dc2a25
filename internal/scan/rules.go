// Package scan turns raw scanner or keyboard input into normalized unit numbers and product codes.
package scan

const (
	// UnitNumberPrefix is the ISBT 128 data identifier a scanner emits before a donation identification number.
	UnitNumberPrefix = "="
	// ProductCodePrefix is the data identifier a scanner emits before a product code.
	ProductCodePrefix = "=<"

	DefaultUnitNumberPattern  = `^[A-Z][0-9]{12}$`
	DefaultProductCodePattern = `^[A-Z][0-9]{4}[A-Z0-9]{3}$`
	DefaultCheckDigitPattern  = `^[A-Z0-9*]$`
	DefaultFlagCharacters     = 2
)

// Rules configures normalization for one workflow.
type Rules struct {
	UnitNumberPattern  string `yaml:"unitNumberPattern"`
	ProductCodePattern string `yaml:"productCodePattern"`
	Uppercase          bool   `yaml:"uppercase"`
	AllowManualEntry   bool   `yaml:"allowManualEntry"`
	// RequireCheckDigit applies to manually typed unit numbers only.
	RequireCheckDigit bool `yaml:"requireCheckDigit"`
	// FlagCharacters are trailing characters a scanner appends to a unit number.
	FlagCharacters int `yaml:"flagCharacters"`
}

// DefaultRules returns the rules used when no profile overrides them.
func DefaultRules() Rules {
	return Rules{
		UnitNumberPattern:  DefaultUnitNumberPattern,
		ProductCodePattern: DefaultProductCodePattern,
		Uppercase:          true,
		AllowManualEntry:   true,
		RequireCheckDigit:  true,
		FlagCharacters:     DefaultFlagCharacters,
	}
}

// WithDefaults fills empty patterns from DefaultRules.
func (r Rules) WithDefaults() Rules {
	if r.UnitNumberPattern == "" {
		r.UnitNumberPattern = DefaultUnitNumberPattern
	}
	if r.ProductCodePattern == "" {
		r.ProductCodePattern = DefaultProductCodePattern
	}
	if r.FlagCharacters < 0 {
		r.FlagCharacters = 0
	}
	return r
}
