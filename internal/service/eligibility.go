package service

import (
	"fmt"

	"github.com/anmicius0/unit-batch-station/internal/batch"
	"github.com/anmicius0/unit-batch-station/internal/client"
)

// Verdict is what the station does with a scanned product.
type Verdict int

const (
	VerdictAccept Verdict = iota
	VerdictReject
	VerdictDiscard
)

func (v Verdict) String() string {
	switch v {
	case VerdictAccept:
		return "accept"
	case VerdictReject:
		return "reject"
	case VerdictDiscard:
		return "discard"
	}
	return "unknown"
}

// DiscardReasonExpired is sent when an expired product is discarded.
const DiscardReasonExpired = "EXPIRED"

const (
	messageAlreadyDiscarded = "This product has already been discarded for %s in the system. Place in biohazard container."
	messageDiscarded        = "This product has been discarded for %s. Place in biohazard container."
	messageQuarantined      = "This product has been quarantined and cannot be irradiated"
)

// Decision is the eligibility of one inventory for irradiation.
type Decision struct {
	Verdict Verdict
	// Status is the display status, the most severe of EXPIRED, UNSUITABLE, QUARANTINED and AVAILABLE.
	Status        string
	Message       string
	DiscardReason string
	Quarantined   bool
	Expired       bool
}

// EligibilityEngine decides whether a product may join an irradiation batch.
type EligibilityEngine struct{}

// NewEligibilityEngine creates a new eligibility engine.
func NewEligibilityEngine() *EligibilityEngine {
	return &EligibilityEngine{}
}

// Decide evaluates inv.
// Logic:
// 1. A discarded product is rejected and must go to the biohazard container.
// 2. Any status other than AVAILABLE is left to the backend and accepted as is.
// 3. An unsuitable or expired product is discarded on the spot.
// 4. A quarantine that stops manufacturing rejects the product; other quarantines are only flagged.
func (e *EligibilityEngine) Decide(inv client.Inventory) Decision {
	d := Decision{
		Status:      displayStatus(inv),
		Quarantined: len(inv.Quarantines) > 0,
		Expired:     inv.Expired,
	}

	switch inv.Status {
	case batch.StatusDiscarded:
		d.Verdict = VerdictReject
		d.Message = fmt.Sprintf(messageAlreadyDiscarded, reasonOrUnknown(inv.StatusReason))
		return d
	case batch.StatusAvailable, "":
	default:
		d.Verdict = VerdictAccept
		return d
	}

	if inv.UnsuitableReason != "" {
		d.Verdict = VerdictDiscard
		d.DiscardReason = inv.UnsuitableReason
		d.Message = fmt.Sprintf(messageDiscarded, inv.UnsuitableReason)
		return d
	}
	if inv.Expired {
		d.Verdict = VerdictDiscard
		d.DiscardReason = DiscardReasonExpired
		d.Message = fmt.Sprintf(messageDiscarded, DiscardReasonExpired)
		return d
	}

	for _, q := range inv.Quarantines {
		if q.StopsManufacturing {
			d.Verdict = VerdictReject
			d.Message = messageQuarantined
			return d
		}
	}

	d.Verdict = VerdictAccept
	return d
}

func displayStatus(inv client.Inventory) string {
	switch {
	case inv.Status == batch.StatusDiscarded:
		return batch.StatusDiscarded
	case inv.Expired:
		return batch.StatusExpired
	case inv.UnsuitableReason != "":
		return batch.StatusUnsuitable
	case len(inv.Quarantines) > 0:
		return batch.StatusQuarantined
	case inv.Status == "":
		return batch.StatusAvailable
	}
	return inv.Status
}

func reasonOrUnknown(reason string) string {
	if reason == "" {
		return "an unknown reason"
	}
	return reason
}

// DiscardRequest is a discard the station triggers on its own.
type DiscardRequest struct {
	UnitNumber    string
	ProductCode   string
	ProductFamily string
	Description   string
	Location      string
	TriggeredBy   string
	Reason        string
}

func (r DiscardRequest) toClient(deps Deps) client.DiscardRequest {
	location := r.Location
	if location == "" {
		location = deps.Facility
	}
	return client.DiscardRequest{
		UnitNumber:              r.UnitNumber,
		ProductCode:             r.ProductCode,
		LocationCode:            location,
		EmployeeID:              deps.EmployeeID,
		TriggeredBy:             r.TriggeredBy,
		ReasonDescriptionKey:    r.Reason,
		ProductFamily:           r.ProductFamily,
		ProductShortDescription: r.Description,
		Comments:                "",
	}
}
