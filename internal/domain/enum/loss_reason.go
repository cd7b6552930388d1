package enum

import "fmt"

// LossReason is the structured code recorded when a client is lost
type LossReason string

const (
	LossReasonTooExpensive     LossReason = "too_expensive"
	LossReasonCompetitor       LossReason = "competitor"
	LossReasonNoResponse       LossReason = "no_response"
	LossReasonPostponed        LossReason = "postponed"
	LossReasonOutOfServiceArea LossReason = "out_of_service_area"
	LossReasonOther            LossReason = "other"
)

var lossReasons = map[LossReason]bool{
	LossReasonTooExpensive:     true,
	LossReasonCompetitor:       true,
	LossReasonNoResponse:       true,
	LossReasonPostponed:        true,
	LossReasonOutOfServiceArea: true,
	LossReasonOther:            true,
}

func (r LossReason) IsValid() bool {
	return lossReasons[r]
}

// ParseLossReason converts raw input into a LossReason
func ParseLossReason(raw string) (LossReason, error) {
	r := LossReason(raw)
	if !r.IsValid() {
		return "", fmt.Errorf("unknown loss reason %q", raw)
	}
	return r, nil
}
