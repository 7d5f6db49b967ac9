// Copyright (c) 2026 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package config

import (
	"fmt"
	"time"
)

// Mode determines how the host interacts with the user before a
// report is submitted.
type Mode string

const (
	// ModeSilent submits reports without any user interaction.
	ModeSilent Mode = "silent"

	// ModeNotification surfaces a notification which the user must
	// act on before the report is submitted.
	ModeNotification Mode = "notification"

	// ModeDialog prompts the user with a dialog before the report
	// is submitted.
	ModeDialog Mode = "dialog"
)

// UnmarshalText implements the [encoding.TextUnmarshaler] interface.
func (m *Mode) UnmarshalText(b []byte) error {
	switch v := Mode(b); v {
	case ModeSilent, ModeNotification, ModeDialog:
		*m = v
		return nil
	default:
		return UnknownSettingValueError{Setting: "interaction_mode", Value: string(b)}
	}
}

// Method is the HTTP method used when submitting reports to a
// form endpoint.
type Method string

const (
	MethodPost Method = "POST"
	MethodPut  Method = "PUT"
)

// UnmarshalText implements the [encoding.TextUnmarshaler] interface.
func (m *Method) UnmarshalText(b []byte) error {
	switch v := Method(b); v {
	case MethodPost, MethodPut:
		*m = v
		return nil
	default:
		return UnknownSettingValueError{Setting: "http_method", Value: string(b)}
	}
}

// ReportType is the wire encoding used when submitting reports to a
// form endpoint.
type ReportType string

const (
	ReportForm ReportType = "form"
	ReportJSON ReportType = "json"
)

// UnmarshalText implements the [encoding.TextUnmarshaler] interface.
func (t *ReportType) UnmarshalText(b []byte) error {
	switch v := ReportType(b); v {
	case ReportForm, ReportJSON:
		*t = v
		return nil
	default:
		return UnknownSettingValueError{Setting: "report_type", Value: string(b)}
	}
}

// UnknownSettingValueError occurs when an enumerated setting is
// assigned a value outside of its enumeration.
type UnknownSettingValueError struct {
	Setting string
	Value   string
}

// Error implements the error interface.
func (e UnknownSettingValueError) Error() string {
	return fmt.Sprintf("unknown value, %q, for setting: %s", e.Value, e.Setting)
}

// Hardcoded fallback constants. These are the values resolution falls
// back to for any setting which neither the [Builder] nor the
// [Manifest] explicitly set. String settings fall back to "" and any
// remaining boolean settings fall back to the constants below.
const (
	DefaultConnectionTimeout = 3 * time.Second
	DefaultSocketTimeout     = 8 * time.Second

	DefaultHTTPMethod      = MethodPost
	DefaultReportType      = ReportForm
	DefaultInteractionMode = ModeSilent

	DefaultApplicationLogFileLines = 100

	DefaultDeleteUnapprovedReportsOnStart = true
	DefaultDeleteOldUnsentReportsOnStart  = true
	DefaultSendReportsInDevMode           = true
	DefaultSystemLogFilterByPID           = false
)

// DefaultSystemLogArgs returns the fallback argument list passed to
// the host's system log collector.
func DefaultSystemLogArgs() []string {
	return []string{"-t", "100", "-v", "time"}
}
