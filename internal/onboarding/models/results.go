package models

import "time"

// Response payloads. Field names are camelCase to match the client protocol.

type SendOTPResult struct {
	Sent bool `json:"sent"`
}

type VerifyOTPResult struct {
	Verified       bool      `json:"verified"`
	UserID         string    `json:"userId"`
	HasPin         bool      `json:"hasPin"`
	Phase          Phase     `json:"phase"`
	NextAction     Action    `json:"nextAction,omitempty"`
	Token          string    `json:"token"`
	TokenExpiresAt time.Time `json:"tokenExpiresAt"`
}

// StepResult answers the profile steps that only move the phase.
type StepResult struct {
	Phase      Phase  `json:"phase"`
	NextAction Action `json:"nextAction,omitempty"`
}

type PinResult struct {
	PinSet     bool   `json:"pinSet"`
	Phase      Phase  `json:"phase"`
	NextAction Action `json:"nextAction,omitempty"`
}

type AddressResult struct {
	Address    string  `json:"address"`
	Lat        float64 `json:"lat"`
	Lng        float64 `json:"lng"`
	Geocoded   bool    `json:"geocoded"`
	Phase      Phase   `json:"phase"`
	NextAction Action  `json:"nextAction,omitempty"`
}

type VerificationOutcome struct {
	Verified       bool    `json:"verified"`
	DistanceMeters float64 `json:"distanceMeters"`
	Phase          Phase   `json:"phase"`
}

// VerificationTarget is what the identity verifier needs to check a capture.
type VerificationTarget struct {
	Address           string  `json:"address"`
	Lat               float64 `json:"lat"`
	Lng               float64 `json:"lng"`
	MaxDistanceMeters float64 `json:"maxDistanceMeters"`
}

// State is the resume view of an account.
type State struct {
	UserID        string              `json:"userId"`
	Email         string              `json:"email"`
	Kind          Kind                `json:"kind,omitempty"`
	DisplayName   string              `json:"displayName,omitempty"`
	SuggestedName string              `json:"suggestedName,omitempty"`
	Phase         Phase               `json:"phase"`
	NextAction    Action              `json:"nextAction,omitempty"`
	HasPin        bool                `json:"hasPin"`
	Target        *VerificationTarget `json:"verificationTarget,omitempty"`
}

func NewStepResult(p Phase) StepResult {
	return StepResult{Phase: p, NextAction: p.NextAction()}
}
