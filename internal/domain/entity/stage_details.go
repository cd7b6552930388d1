package entity

import (
	"strings"

	"github.com/google/uuid"
	"github.com/sangkips/movecrm-api/internal/domain/enum"
	"github.com/sangkips/movecrm-api/pkg/apperror"
)

// StageDetails carries the stage-specific payload of a transition. At most one
// variant is set and it must match the stage being entered.
type StageDetails struct {
	Quote       *QuoteDetails       `json:"quote,omitempty"`
	Negotiation *NegotiationDetails `json:"negotiation,omitempty"`
	Contract    *ContractDetails    `json:"contract,omitempty"`
	Loss        *LossDetails        `json:"loss,omitempty"`
}

// QuoteDetails is recorded when a client enters quote_sent
type QuoteDetails struct {
	QuoteID   *uuid.UUID `json:"quote_id,omitempty"`
	Reference string     `json:"reference"`
	Amount    float64    `json:"amount"`
}

// NegotiationDetails is optionally recorded when a client enters in_negotiation
type NegotiationDetails struct {
	ProposedAmount *float64 `json:"proposed_amount,omitempty"`
	Summary        string   `json:"summary,omitempty"`
}

// ContractDetails is recorded when a client enters contract_closed
type ContractDetails struct {
	ContractID *uuid.UUID `json:"contract_id,omitempty"`
	Reference  string     `json:"reference"`
	Amount     float64    `json:"amount"`
}

// LossDetails is recorded when a client enters lost
type LossDetails struct {
	ReasonCode    enum.LossReason `json:"reason_code"`
	Justification string          `json:"justification,omitempty"`
}

// variants returns the stage each populated variant belongs to
func (d StageDetails) variants() []enum.ClientStage {
	var set []enum.ClientStage
	if d.Quote != nil {
		set = append(set, enum.ClientStageQuoteSent)
	}
	if d.Negotiation != nil {
		set = append(set, enum.ClientStageInNegotiation)
	}
	if d.Contract != nil {
		set = append(set, enum.ClientStageContractClosed)
	}
	if d.Loss != nil {
		set = append(set, enum.ClientStageLost)
	}
	return set
}

// IsEmpty reports whether no variant is set
func (d StageDetails) IsEmpty() bool {
	return len(d.variants()) == 0
}

// Validate checks the payload against the stage being entered and returns
// one FieldError per problem.
func (d StageDetails) Validate(stage enum.ClientStage) []apperror.FieldError {
	var errs []apperror.FieldError

	for _, variant := range d.variants() {
		if variant != stage {
			errs = append(errs, apperror.FieldError{
				Field:   "details",
				Message: "details for " + string(variant) + " cannot be attached to a move into " + string(stage),
			})
		}
	}
	if len(errs) > 0 {
		return errs
	}

	switch stage {
	case enum.ClientStageQuoteSent:
		if d.Quote == nil {
			return []apperror.FieldError{{Field: "details.quote", Message: "is required when sending a quote"}}
		}
		if strings.TrimSpace(d.Quote.Reference) == "" {
			errs = append(errs, apperror.FieldError{Field: "details.quote.reference", Message: "is required"})
		}
		if d.Quote.Amount <= 0 {
			errs = append(errs, apperror.FieldError{Field: "details.quote.amount", Message: "must be greater than zero"})
		}
	case enum.ClientStageInNegotiation:
		if d.Negotiation != nil && d.Negotiation.ProposedAmount != nil && *d.Negotiation.ProposedAmount <= 0 {
			errs = append(errs, apperror.FieldError{Field: "details.negotiation.proposed_amount", Message: "must be greater than zero"})
		}
	case enum.ClientStageContractClosed:
		if d.Contract == nil {
			return []apperror.FieldError{{Field: "details.contract", Message: "is required when closing a contract"}}
		}
		if strings.TrimSpace(d.Contract.Reference) == "" {
			errs = append(errs, apperror.FieldError{Field: "details.contract.reference", Message: "is required"})
		}
		if d.Contract.Amount <= 0 {
			errs = append(errs, apperror.FieldError{Field: "details.contract.amount", Message: "must be greater than zero"})
		}
	case enum.ClientStageLost:
		if d.Loss == nil {
			return []apperror.FieldError{{Field: "details.loss", Message: "is required when marking a client as lost"}}
		}
		if d.Loss.ReasonCode == "" {
			errs = append(errs, apperror.FieldError{Field: "details.loss.reason_code", Message: "is required"})
		} else if !d.Loss.ReasonCode.IsValid() {
			errs = append(errs, apperror.FieldError{Field: "details.loss.reason_code", Message: "is not a known loss reason"})
		}
	}

	return errs
}
