package enum

import (
	"database/sql/driver"
	"fmt"
)

// ClientStage represents where a client sits in the sales pipeline
type ClientStage string

const (
	ClientStageLeadCaptured   ClientStage = "lead_captured"
	ClientStageQuoteSent      ClientStage = "quote_sent"
	ClientStageInNegotiation  ClientStage = "in_negotiation"
	ClientStageContractClosed ClientStage = "contract_closed"
	ClientStageLost           ClientStage = "lost"
)

// ClientStages lists every stage in pipeline order
var ClientStages = []ClientStage{
	ClientStageLeadCaptured,
	ClientStageQuoteSent,
	ClientStageInNegotiation,
	ClientStageContractClosed,
	ClientStageLost,
}

func (s ClientStage) String() string {
	return string(s)
}

// IsValid reports whether s is one of the known stages
func (s ClientStage) IsValid() bool {
	for _, stage := range ClientStages {
		if s == stage {
			return true
		}
	}
	return false
}

// ParseClientStage converts raw input into a ClientStage
func ParseClientStage(raw string) (ClientStage, error) {
	s := ClientStage(raw)
	if !s.IsValid() {
		return "", fmt.Errorf("unknown client stage %q", raw)
	}
	return s, nil
}

func (s ClientStage) Value() (driver.Value, error) {
	return string(s), nil
}

func (s *ClientStage) Scan(value interface{}) error {
	switch v := value.(type) {
	case nil:
		*s = ""
	case string:
		*s = ClientStage(v)
	case []byte:
		*s = ClientStage(v)
	default:
		return fmt.Errorf("cannot scan %T into ClientStage", value)
	}
	return nil
}

// Classification is the coarse label derived from a client's stage
type Classification string

const (
	ClassificationLead     Classification = "lead"
	ClassificationProspect Classification = "prospect"
	ClassificationCustomer Classification = "customer"
	ClassificationInactive Classification = "inactive"
)

func (c Classification) IsValid() bool {
	switch c {
	case ClassificationLead, ClassificationProspect, ClassificationCustomer, ClassificationInactive:
		return true
	}
	return false
}

func (c Classification) Value() (driver.Value, error) {
	return string(c), nil
}

func (c *Classification) Scan(value interface{}) error {
	switch v := value.(type) {
	case nil:
		*c = ""
	case string:
		*c = Classification(v)
	case []byte:
		*c = Classification(v)
	default:
		return fmt.Errorf("cannot scan %T into Classification", value)
	}
	return nil
}
