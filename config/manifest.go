// Copyright (c) 2026 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package config

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/z5labs/crashkit/internal/try"
	"github.com/z5labs/crashkit/report"

	"gopkg.in/yaml.v3"
)

// Manifest is a read-only snapshot of declaratively specified
// settings, typically attached to the host application as a static
// configuration document. Every field tracks whether it was
// explicitly declared so resolution can tell a declared zero value
// apart from an absent one.
//
// Hosts either construct a Manifest literally with [ValueOf] or
// decode one from a document with [FromYaml] or [FromJson].
type Manifest struct {
	ConnectionTimeout              Value[time.Duration]     `yaml:"connection_timeout" json:"connection_timeout"`
	SocketTimeout                  Value[time.Duration]     `yaml:"socket_timeout" json:"socket_timeout"`
	FormURI                        Value[string]            `yaml:"form_uri" json:"form_uri"`
	FormURIBasicAuthLogin          Value[string]            `yaml:"form_uri_basic_auth_login" json:"form_uri_basic_auth_login"`
	FormURIBasicAuthPassword       Value[string]            `yaml:"form_uri_basic_auth_password" json:"form_uri_basic_auth_password"`
	MailTo                         Value[string]            `yaml:"mail_to" json:"mail_to"`
	HTTPMethod                     Value[Method]            `yaml:"http_method" json:"http_method"`
	ReportType                     Value[ReportType]        `yaml:"report_type" json:"report_type"`
	HTTPHeaders                    Value[map[string]string] `yaml:"http_headers" json:"http_headers"`
	InteractionMode                Value[Mode]              `yaml:"interaction_mode" json:"interaction_mode"`
	ReportContent                  Value[[]report.Field]    `yaml:"report_content" json:"report_content"`
	SystemLogArgs                  Value[[]string]          `yaml:"system_log_args" json:"system_log_args"`
	SystemLogFilterByPID           Value[bool]              `yaml:"system_log_filter_by_pid" json:"system_log_filter_by_pid"`
	ApplicationLogFile             Value[string]            `yaml:"application_log_file" json:"application_log_file"`
	ApplicationLogFileLines        Value[int]               `yaml:"application_log_file_lines" json:"application_log_file_lines"`
	DeleteUnapprovedReportsOnStart Value[bool]              `yaml:"delete_unapproved_reports_on_start" json:"delete_unapproved_reports_on_start"`
	DeleteOldUnsentReportsOnStart  Value[bool]              `yaml:"delete_old_unsent_reports_on_start" json:"delete_old_unsent_reports_on_start"`
	SendReportsInDevMode           Value[bool]              `yaml:"send_reports_in_dev_mode" json:"send_reports_in_dev_mode"`
	PreferencesName                Value[string]            `yaml:"preferences_name" json:"preferences_name"`
	AdditionalPreferences          Value[[]string]          `yaml:"additional_preferences" json:"additional_preferences"`
	ExcludeMatchingPreferenceKeys  Value[[]string]          `yaml:"exclude_matching_preference_keys" json:"exclude_matching_preference_keys"`
}

// InvalidYamlError occurs if the underlying io.Reader contains invalid YAML.
type InvalidYamlError struct {
	cause error
}

// Error implements the error interface.
func (e InvalidYamlError) Error() string {
	return fmt.Sprintf("invalid yaml: %s", e.cause)
}

// Unwrap implements the implicit interface used by errors.Is and errors.As.
func (e InvalidYamlError) Unwrap() error {
	return e.cause
}

// FromYaml decodes a Manifest from YAML read from the given
// io.Reader. If the reader is also an io.Closer it will be closed
// before returning.
func FromYaml(r io.Reader) (_ Manifest, err error) {
	defer try.Close(&err, r)

	var m Manifest
	b, err := io.ReadAll(r)
	if err != nil {
		return m, err
	}

	err = yaml.Unmarshal(b, &m)
	if err != nil {
		return Manifest{}, InvalidYamlError{cause: err}
	}
	return m, nil
}

// InvalidJsonError occurs if the underlying io.Reader contains invalid JSON.
type InvalidJsonError struct {
	cause error
}

// Error implements the error interface.
func (e InvalidJsonError) Error() string {
	return fmt.Sprintf("invalid json: %s", e.cause)
}

// Unwrap implements the implicit interface used by errors.Is and errors.As.
func (e InvalidJsonError) Unwrap() error {
	return e.cause
}

// FromJson decodes a Manifest from JSON read from the given
// io.Reader. If the reader is also an io.Closer it will be closed
// before returning.
func FromJson(r io.Reader) (_ Manifest, err error) {
	defer try.Close(&err, r)

	var m Manifest
	b, err := io.ReadAll(r)
	if err != nil {
		return m, err
	}

	err = json.Unmarshal(b, &m)
	if err != nil {
		return Manifest{}, InvalidJsonError{cause: err}
	}
	return m, nil
}
