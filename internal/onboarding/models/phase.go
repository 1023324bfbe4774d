package models

import (
	"fmt"
	"strings"
)

// Phase is the server-authoritative onboarding step of an account. Phases only
// move forward, in the order listed below.
type Phase string

const (
	PhaseEmail    Phase = "email"
	PhaseOTP      Phase = "otp"
	PhaseType     Phase = "type"
	PhaseName     Phase = "name"
	PhaseBusiness Phase = "business"
	PhasePin      Phase = "pin"
	PhaseAddress  Phase = "address"
	PhaseSelfie   Phase = "selfie"
	PhaseDone     Phase = "done"
)

var phaseOrder = map[Phase]int{
	PhaseEmail:    0,
	PhaseOTP:      1,
	PhaseType:     2,
	PhaseName:     3,
	PhaseBusiness: 4,
	PhasePin:      5,
	PhaseAddress:  6,
	PhaseSelfie:   7,
	PhaseDone:     8,
}

func (p Phase) IsValid() bool {
	_, ok := phaseOrder[p]
	return ok
}

func (p Phase) String() string {
	return string(p)
}

// Rank is the position of p in the flow, or -1 for unknown phases.
func (p Phase) Rank() int {
	r, ok := phaseOrder[p]
	if !ok {
		return -1
	}
	return r
}

// IsBefore reports whether p comes strictly earlier than other.
func (p Phase) IsBefore(other Phase) bool {
	return p.Rank() < other.Rank()
}

// ParsePhase accepts a stored phase name.
func ParsePhase(s string) (Phase, error) {
	p := Phase(strings.TrimSpace(strings.ToLower(s)))
	if !p.IsValid() {
		return "", fmt.Errorf("unknown onboarding phase %q", s)
	}
	return p, nil
}

// NextAction is the command the client must send to leave p. Done has none.
func (p Phase) NextAction() Action {
	switch p {
	case PhaseEmail:
		return ActionSendOTP
	case PhaseOTP:
		return ActionVerifyOTP
	case PhaseType:
		return ActionSetAccountType
	case PhaseName:
		return ActionSetName
	case PhaseBusiness:
		return ActionSetBusiness
	case PhasePin:
		return ActionSetPin
	case PhaseAddress:
		return ActionSetAddress
	case PhaseSelfie:
		return ActionCompleteVerification
	default:
		return ""
	}
}

// Kind distinguishes personal accounts from businesses; only businesses pass
// through the business phase.
type Kind string

const (
	KindPersonal Kind = "personal"
	KindBusiness Kind = "business"
)

func (k Kind) IsValid() bool {
	return k == KindPersonal || k == KindBusiness
}

func ParseKind(s string) (Kind, error) {
	k := Kind(strings.TrimSpace(strings.ToLower(s)))
	if !k.IsValid() {
		return "", fmt.Errorf("unknown account kind %q", s)
	}
	return k, nil
}
