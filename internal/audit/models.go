// Package audit records security-relevant onboarding events for abuse review.
package audit

import (
	"time"

	id "stoop/pkg/domain"
)

// Category separates events that feed abuse alerting from routine ones.
type Category string

const (
	CategorySecurity   Category = "security"
	CategoryOperations Category = "operations"
)

// Action names what happened.
type Action string

const (
	ActionOTPSent              Action = "otp_sent"
	ActionOTPLocked            Action = "otp_locked"
	ActionEmailConfirmed       Action = "email_confirmed"
	ActionOutOfOrderTransition Action = "out_of_order_transition"
	ActionLocationMismatch     Action = "location_mismatch"
	ActionOnboardingCompleted  Action = "onboarding_completed"
)

// Device is the parsed User-Agent.
type Device struct {
	Browser string `json:"browser,omitempty"`
	OS      string `json:"os,omitempty"`
	Mobile  bool   `json:"mobile"`
	Bot     bool   `json:"bot"`
}

// Event is transport-agnostic so it can go to the log, Kafka, or both.
type Event struct {
	ID         id.EventID        `json:"-"`
	Category   Category          `json:"category"`
	Action     Action            `json:"action"`
	Timestamp  time.Time         `json:"timestamp"`
	AccountID  string            `json:"account_id,omitempty"`
	Email      string            `json:"email,omitempty"`
	Phase      string            `json:"phase,omitempty"`
	Reason     string            `json:"reason,omitempty"`
	RequestID  string            `json:"request_id,omitempty"`
	ClientIP   string            `json:"client_ip,omitempty"`
	UserAgent  string            `json:"user_agent,omitempty"`
	Device     *Device           `json:"device,omitempty"`
	Attributes map[string]string `json:"attributes,omitempty"`
}
