package service

import (
	"errors"

	"github.com/anmicius0/unit-batch-station/internal/batch"
	"github.com/anmicius0/unit-batch-station/internal/notify"
)

var (
	ErrConfirmationPending = errors.New("a confirmation is pending")
	ErrSubmitDisabled      = errors.New("submit is not enabled")
	ErrUnknownConfirmation = errors.New("unknown confirmation token")
	ErrUnknownChoice       = errors.New("product is not one of the offered choices")
	ErrUnknownField        = errors.New("unknown input field")
	ErrFieldLocked         = errors.New("input field is locked")
	ErrUnknownFilter       = errors.New("unknown item filter")
	ErrUnsupported         = errors.New("operation not supported by this workflow")
)

// Input field names besides the scan fields.
const (
	FieldDevice   = "device"
	FieldLot      = "lot"
	FieldShipment = "shipment"
)

// ScanInput is one value typed or scanned into a workflow field.
type ScanInput struct {
	Field       string `json:"field"`
	Value       string `json:"value"`
	CheckDigit  string `json:"checkDigit,omitempty"`
	ProductCode string `json:"productCode,omitempty"`
	// CheckDigitVerified skips the remote check digit call for input verified beforehand.
	CheckDigitVerified bool `json:"-"`
}

// Confirmation is a blocking modal waiting for Resolve.
type Confirmation struct {
	Token   string
	Title   string
	Message string
	Details []string
	// Acknowledgment modals only offer a single button; both answers resolve them the same way.
	Acknowledgment bool
}

// Choice is a product offered when a scanned unit has several.
type Choice struct {
	ProductCode        string
	ProductDescription string
	ProductFamily      string
	Status             string
}

// Outcome is what the station should render after an action.
type Outcome struct {
	Presentations []notify.Presentation
	Confirmation  *Confirmation
	Choices       []Choice
	Focus         string
	Redirect      string
}

func (o *Outcome) add(p ...notify.Presentation) {
	o.Presentations = append(o.Presentations, p...)
}

// merge appends other's presentations and takes its other fields when set.
func (o *Outcome) merge(other Outcome) {
	o.add(other.Presentations...)
	if other.Confirmation != nil {
		o.Confirmation = other.Confirmation
	}
	if other.Choices != nil {
		o.Choices = other.Choices
	}
	if other.Focus != "" {
		o.Focus = other.Focus
	}
	if other.Redirect != "" {
		o.Redirect = other.Redirect
	}
}

// Blocked reports whether the outcome stopped at a question to the operator.
func (o Outcome) Blocked() bool {
	return o.Confirmation != nil || len(o.Choices) > 0
}

// Failed reports whether the outcome carries an error presentation.
func (o Outcome) Failed() (string, bool) {
	for _, p := range o.Presentations {
		if p.Type == notify.TypeError || p.Type == notify.TypeSystem {
			return p.Message, true
		}
	}
	return "", false
}

func toast(p notify.Presentation, focus string) Outcome {
	return Outcome{Presentations: []notify.Presentation{p}, Focus: focus}
}

// View is the renderable state of a workflow.
type View struct {
	Kind             Kind
	Phase            Phase
	Prompt           string
	UnitInputEnabled bool
	Items            []batch.Item
	Selected         []batch.Key
	Count            int
	SubmitEnabled    bool
	Confirmation     *Confirmation
	Choices          []Choice

	// Start and close irradiation.
	DeviceID  string
	LotNumber string
	BatchID   int64
	Filter    string

	// Shipment verification.
	ShipmentID  int64
	OrderNumber string
	Verified    int
	Remaining   int
	Progress    float64
	ToBeRemoved []batch.Item
}
