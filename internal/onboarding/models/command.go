package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	dErrors "stoop/pkg/domain-errors"
)

// Action discriminates commands on the wire.
type Action string

const (
	ActionSendOTP              Action = "send-otp"
	ActionVerifyOTP            Action = "verify-otp"
	ActionSetAccountType       Action = "set-account-type"
	ActionSetName              Action = "set-name"
	ActionSetBusiness          Action = "set-business"
	ActionSetPin               Action = "set-pin"
	ActionSetAddress           Action = "set-address"
	ActionCompleteVerification Action = "complete-verification"
)

// Command is one onboarding transition request. Each action has its own type
// carrying only the fields it needs.
type Command interface {
	Action() Action
}

type SendOTP struct {
	Email string `json:"email"`
}

type VerifyOTP struct {
	Email string `json:"email"`
	Code  string `json:"code"`
}

type SetAccountType struct {
	Kind Kind `json:"kind"`
}

type SetName struct {
	Name string `json:"name"`
}

// SetBusiness carries the profile fields at the top level of the body.
type SetBusiness struct {
	BusinessProfile
}

type SetPin struct {
	Pin string `json:"pin"`
}

// SetAddress carries coordinates only when the client picked a suggestion.
type SetAddress struct {
	Address string   `json:"address"`
	Lat     *float64 `json:"lat,omitempty"`
	Lng     *float64 `json:"lng,omitempty"`
}

type CompleteVerification struct {
	VerificationResult
}

func (SendOTP) Action() Action              { return ActionSendOTP }
func (VerifyOTP) Action() Action            { return ActionVerifyOTP }
func (SetAccountType) Action() Action       { return ActionSetAccountType }
func (SetName) Action() Action              { return ActionSetName }
func (SetBusiness) Action() Action          { return ActionSetBusiness }
func (SetPin) Action() Action               { return ActionSetPin }
func (SetAddress) Action() Action           { return ActionSetAddress }
func (CompleteVerification) Action() Action { return ActionCompleteVerification }

// IsPublic reports whether the command may be sent without an onboarding
// token.
func IsPublic(cmd Command) bool {
	switch cmd.Action() {
	case ActionSendOTP, ActionVerifyOTP:
		return true
	default:
		return false
	}
}

// Phase is the phase an account must be at for the action to apply. OTP
// commands are accepted at any phase and report the empty phase.
func (a Action) Phase() Phase {
	switch a {
	case ActionSetAccountType:
		return PhaseType
	case ActionSetName:
		return PhaseName
	case ActionSetBusiness:
		return PhaseBusiness
	case ActionSetPin:
		return PhasePin
	case ActionSetAddress:
		return PhaseAddress
	case ActionCompleteVerification:
		return PhaseSelfie
	default:
		return ""
	}
}

// DecodeCommand reads the action discriminator and decodes the remaining
// fields strictly into that action's type. Fields belonging to other actions
// are rejected.
func DecodeCommand(data []byte) (Command, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeBadRequest, "request body must be a JSON object")
	}
	rawAction, ok := fields["action"]
	if !ok {
		return nil, dErrors.New(dErrors.CodeBadRequest, "action is required")
	}
	var action Action
	if err := json.Unmarshal(rawAction, &action); err != nil {
		return nil, dErrors.New(dErrors.CodeBadRequest, "action must be a string")
	}
	delete(fields, "action")

	var cmd Command
	switch Action(strings.TrimSpace(string(action))) {
	case ActionSendOTP:
		cmd = &SendOTP{}
	case ActionVerifyOTP:
		cmd = &VerifyOTP{}
	case ActionSetAccountType:
		cmd = &SetAccountType{}
	case ActionSetName:
		cmd = &SetName{}
	case ActionSetBusiness:
		cmd = &SetBusiness{}
	case ActionSetPin:
		cmd = &SetPin{}
	case ActionSetAddress:
		cmd = &SetAddress{}
	case ActionCompleteVerification:
		cmd = &CompleteVerification{}
	default:
		return nil, dErrors.New(dErrors.CodeBadRequest, fmt.Sprintf("unknown action %q", action))
	}

	rest, err := json.Marshal(fields)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeBadRequest, "invalid request body")
	}
	dec := json.NewDecoder(bytes.NewReader(rest))
	dec.DisallowUnknownFields()
	if err := dec.Decode(cmd); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeBadRequest, fmt.Sprintf("invalid %s request: %v", action, err))
	}
	return deref(cmd), nil
}

// deref returns value commands so callers can type-switch on the plain types.
func deref(cmd Command) Command {
	switch c := cmd.(type) {
	case *SendOTP:
		return *c
	case *VerifyOTP:
		return *c
	case *SetAccountType:
		return *c
	case *SetName:
		return *c
	case *SetBusiness:
		return *c
	case *SetPin:
		return *c
	case *SetAddress:
		return *c
	case *CompleteVerification:
		return *c
	default:
		return cmd
	}
}
