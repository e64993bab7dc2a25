// Package service implements the scan, validate, accumulate and submit workflows of a batch station.
package service

import (
	"context"
	"fmt"
	"time"

	"github.com/anmicius0/unit-batch-station/internal/batch"
	"github.com/anmicius0/unit-batch-station/internal/client"
	"github.com/anmicius0/unit-batch-station/internal/config"
	"github.com/anmicius0/unit-batch-station/internal/journal"
	"github.com/anmicius0/unit-batch-station/internal/scan"
)

// Kind names a workflow.
type Kind string

const (
	KindStartIrradiation     Kind = config.WorkflowStartIrradiation
	KindCloseIrradiation     Kind = config.WorkflowCloseIrradiation
	KindShipmentVerification Kind = config.WorkflowShipmentVerification
)

// ParseKind validates a workflow name.
func ParseKind(s string) (Kind, error) {
	switch k := Kind(s); k {
	case KindStartIrradiation, KindCloseIrradiation, KindShipmentVerification:
		return k, nil
	}
	return "", fmt.Errorf("unknown workflow %q", s)
}

// Workflow is one operator session. Implementations are not safe for concurrent use;
// the session store serializes calls.
type Workflow interface {
	Kind() Kind
	Input(ctx context.Context, in ScanInput) (Outcome, error)
	Select(ctx context.Context, productCode string) (Outcome, error)
	Toggle(key batch.Key) (Outcome, error)
	SelectAll() (Outcome, error)
	RemoveSelected() (Outcome, error)
	Submit(ctx context.Context) (Outcome, error)
	Cancel(ctx context.Context) (Outcome, error)
	Resolve(ctx context.Context, token string, accepted bool) (Outcome, error)
	View() View
	// Reference identifies what the session works on: a device, batch or shipment.
	Reference() string
}

// Inspector is implemented by workflows that record a visual inspection.
type Inspector interface {
	Inspect(ctx context.Context, in Inspection) (Outcome, error)
	SetFilter(filter string) (Outcome, error)
}

// Remover is implemented by workflows that pull items out of a backend list.
type Remover interface {
	RemoveItem(ctx context.Context, key batch.Key) (Outcome, error)
}

// Deps are the collaborators of a workflow.
type Deps struct {
	Irradiation    client.IrradiationClient
	Inventory      client.InventoryClient
	Shipments      client.ShipmentClient
	Links          client.LinkFollower
	Recorder       journal.Recorder
	Rules          scan.Rules
	SessionID      string
	Facility       string
	EmployeeID     string
	DedupeCooldown time.Duration
	Now            func() time.Time
}

// New builds the workflow of the given kind.
func New(kind Kind, deps Deps) (Workflow, error) {
	base, err := newStation(kind, deps)
	if err != nil {
		return nil, err
	}
	switch kind {
	case KindStartIrradiation:
		if deps.Irradiation == nil || deps.Inventory == nil {
			return nil, fmt.Errorf("%s requires irradiation and inventory clients", kind)
		}
		return newStartIrradiation(base), nil
	case KindCloseIrradiation:
		if deps.Irradiation == nil || deps.Inventory == nil {
			return nil, fmt.Errorf("%s requires irradiation and inventory clients", kind)
		}
		return newCloseIrradiation(base), nil
	case KindShipmentVerification:
		if deps.Shipments == nil || deps.Inventory == nil {
			return nil, fmt.Errorf("%s requires shipment and inventory clients", kind)
		}
		return newVerification(base), nil
	}
	return nil, fmt.Errorf("unknown workflow %q", kind)
}
