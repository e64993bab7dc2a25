package server

import (
	"github.com/anmicius0/unit-batch-station/internal/batch"
	"github.com/anmicius0/unit-batch-station/internal/service"
)

type createSessionRequest struct {
	Kind string `json:"kind" binding:"required,oneof=start-irradiation close-irradiation shipment-verification"`
}

type inputRequest struct {
	Field       string `json:"field" binding:"required"`
	Value       string `json:"value"`
	CheckDigit  string `json:"checkDigit"`
	ProductCode string `json:"productCode"`
}

func (r inputRequest) scanInput() service.ScanInput {
	return service.ScanInput{Field: r.Field, Value: r.Value, CheckDigit: r.CheckDigit, ProductCode: r.ProductCode}
}

type selectRequest struct {
	ProductCode string `json:"productCode" binding:"required"`
}

// itemRequest names one product of the session's list.
type itemRequest struct {
	UnitNumber  string `json:"unitNumber" binding:"required"`
	ProductCode string `json:"productCode" binding:"required"`
}

func (r itemRequest) key() batch.Key {
	return batch.Key{UnitNumber: r.UnitNumber, ProductCode: r.ProductCode}
}

type filterRequest struct {
	Filter string `json:"filter" binding:"required"`
}

type resolveRequest struct {
	Accepted *bool `json:"accepted" binding:"required"`
}
