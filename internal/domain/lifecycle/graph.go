// Package lifecycle holds the client pipeline transition graph. It is the only
// place the allowed moves between stages are defined.
package lifecycle

import (
	"fmt"

	"github.com/sangkips/movecrm-api/internal/domain/enum"
)

var transitions = map[enum.ClientStage][]enum.ClientStage{
	enum.ClientStageLeadCaptured:   {enum.ClientStageQuoteSent, enum.ClientStageLost},
	enum.ClientStageQuoteSent:      {enum.ClientStageInNegotiation, enum.ClientStageContractClosed, enum.ClientStageLost},
	enum.ClientStageInNegotiation:  {enum.ClientStageContractClosed, enum.ClientStageLost},
	enum.ClientStageContractClosed: {},
	enum.ClientStageLost:           {},
}

// InitialStage is the stage every new client starts in
const InitialStage = enum.ClientStageLeadCaptured

func mustKnow(stage enum.ClientStage) []enum.ClientStage {
	targets, ok := transitions[stage]
	if !ok {
		panic(fmt.Sprintf("lifecycle: unknown stage %q", stage))
	}
	return targets
}

// CanTransition reports whether a client in stage from may move to stage to.
// Both stages must be known; an unknown stage panics.
func CanTransition(from, to enum.ClientStage) bool {
	mustKnow(to)
	for _, target := range mustKnow(from) {
		if target == to {
			return true
		}
	}
	return false
}

// AllowedTargets returns the stages reachable in one move from stage
func AllowedTargets(stage enum.ClientStage) []enum.ClientStage {
	targets := mustKnow(stage)
	out := make([]enum.ClientStage, len(targets))
	copy(out, targets)
	return out
}

// IsTerminal reports whether stage has no outgoing moves
func IsTerminal(stage enum.ClientStage) bool {
	return len(mustKnow(stage)) == 0
}

// ClassificationFor returns the classification a client in stage carries
func ClassificationFor(stage enum.ClientStage) enum.Classification {
	switch stage {
	case enum.ClientStageLeadCaptured:
		return enum.ClassificationLead
	case enum.ClientStageQuoteSent, enum.ClientStageInNegotiation:
		return enum.ClassificationProspect
	case enum.ClientStageContractClosed:
		return enum.ClassificationCustomer
	case enum.ClientStageLost:
		return enum.ClassificationInactive
	}
	panic(fmt.Sprintf("lifecycle: unknown stage %q", stage))
}
