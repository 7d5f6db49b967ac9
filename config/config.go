// Copyright (c) 2026 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package config merges layered crash reporting settings into one
// immutable, internally consistent configuration.
//
// Settings come from three tiers with strict precedence:
//
//   - explicit assignments made on a [Builder]
//   - values declared by a [Manifest]
//   - hardcoded fallback constants
//
// A [Builder] is populated by host code during setup, optionally
// seeded with a [Manifest], and resolved exactly once. The resulting
// [Config] is shared read-only by every downstream component for the
// lifetime of the reporting session.
package config

import (
	"encoding"
	"errors"
	"fmt"
	"reflect"
	"time"

	"github.com/z5labs/crashkit/report"
	"github.com/z5labs/crashkit/security"

	"github.com/mitchellh/mapstructure"
)

// Config is an immutable snapshot of fully resolved settings.
//
// Every getter is total. A Config produced by [Builder.Resolve]
// always carries a defined value for every setting, either an
// explicit override, a manifest value or a hardcoded fallback.
type Config struct {
	connectionTimeout              time.Duration
	socketTimeout                  time.Duration
	formURI                        string
	formURIBasicAuthLogin          string
	formURIBasicAuthPassword       string
	mailTo                         string
	httpMethod                     Method
	reportType                     ReportType
	httpHeaders                    map[string]string
	interactionMode                Mode
	reportContent                  report.FieldSet
	systemLogArgs                  []string
	systemLogFilterByPID           bool
	applicationLogFile             string
	applicationLogFileLines        int
	deleteUnapprovedReportsOnStart bool
	deleteOldUnsentReportsOnStart  bool
	sendReportsInDevMode           bool
	preferencesName                string
	additionalPreferences          []string
	excludeMatchingPreferenceKeys  []string
	certificateSource              security.CertificateSource
}

// ConnectionTimeout is the maximum time consumers should allow for
// establishing a connection to the report endpoint.
func (c Config) ConnectionTimeout() time.Duration {
	return c.connectionTimeout
}

// SocketTimeout is the maximum time consumers should allow for a
// full request/response exchange with the report endpoint.
func (c Config) SocketTimeout() time.Duration {
	return c.socketTimeout
}

// FormURI is the report submission endpoint.
func (c Config) FormURI() string {
	return c.formURI
}

// FormURIBasicAuthLogin is the basic auth username for the form endpoint.
func (c Config) FormURIBasicAuthLogin() string {
	return c.formURIBasicAuthLogin
}

// FormURIBasicAuthPassword is the basic auth password for the form endpoint.
func (c Config) FormURIBasicAuthPassword() string {
	return c.formURIBasicAuthPassword
}

// MailTo is the email address reports are delivered to. An empty
// string means reports are not delivered by mail.
func (c Config) MailTo() string {
	return c.mailTo
}

// HTTPMethod is the HTTP method used when submitting reports.
func (c Config) HTTPMethod() Method {
	return c.httpMethod
}

// ReportType is the wire encoding used when submitting reports.
func (c Config) ReportType() ReportType {
	return c.reportType
}

// HTTPHeaders returns the extra headers to attach to report
// submissions. The returned map is a copy.
func (c Config) HTTPHeaders() map[string]string {
	headers := make(map[string]string, len(c.httpHeaders))
	for k, v := range c.httpHeaders {
		headers[k] = v
	}
	return headers
}

// InteractionMode determines how the user is engaged before submission.
func (c Config) InteractionMode() Mode {
	return c.interactionMode
}

// ReportContent returns the resolved set of report content fields.
// The returned set is a copy.
func (c Config) ReportContent() report.FieldSet {
	return c.reportContent.Clone()
}

// SystemLogArgs returns the argument list for the host's system log
// collector. The returned slice is a copy.
func (c Config) SystemLogArgs() []string {
	args := make([]string, len(c.systemLogArgs))
	copy(args, c.systemLogArgs)
	return args
}

// SystemLogFilterByPID reports whether system log collection should
// be restricted to the host process.
func (c Config) SystemLogFilterByPID() bool {
	return c.systemLogFilterByPID
}

// ApplicationLogFile is the path of the application log to collect.
func (c Config) ApplicationLogFile() string {
	return c.applicationLogFile
}

// ApplicationLogFileLines is the number of trailing application log
// lines to collect.
func (c Config) ApplicationLogFileLines() int {
	return c.applicationLogFileLines
}

// DeleteUnapprovedReportsOnStart reports whether pending unapproved
// reports should be discarded at host startup.
func (c Config) DeleteUnapprovedReportsOnStart() bool {
	return c.deleteUnapprovedReportsOnStart
}

// DeleteOldUnsentReportsOnStart reports whether stale unsent reports
// should be discarded at host startup.
func (c Config) DeleteOldUnsentReportsOnStart() bool {
	return c.deleteOldUnsentReportsOnStart
}

// SendReportsInDevMode reports whether reports should be submitted
// from development builds.
func (c Config) SendReportsInDevMode() bool {
	return c.sendReportsInDevMode
}

// PreferencesName is the name of the host preference store to collect from.
func (c Config) PreferencesName() string {
	return c.preferencesName
}

// AdditionalPreferences returns the extra preference stores to
// collect from. The returned slice is a copy.
func (c Config) AdditionalPreferences() []string {
	prefs := make([]string, len(c.additionalPreferences))
	copy(prefs, c.additionalPreferences)
	return prefs
}

// ExcludeMatchingPreferenceKeys returns the preference key patterns
// to exclude from collection. The returned slice is a copy.
func (c Config) ExcludeMatchingPreferenceKeys() []string {
	keys := make([]string, len(c.excludeMatchingPreferenceKeys))
	copy(keys, c.excludeMatchingPreferenceKeys)
	return keys
}

// CertificateSource returns the pinned certificate source, or nil
// when no pinning is configured. Consumers must treat nil as "use
// default system trust".
func (c Config) CertificateSource() security.CertificateSource {
	return c.certificateSource
}

// Unmarshal projects the resolved settings into a consumer defined
// struct. Struct fields are matched to settings by the "config" tag
// using the same names as the [Manifest] document keys.
//
//	var view struct {
//		Endpoint string        `config:"form_uri"`
//		Timeout  time.Duration `config:"socket_timeout"`
//	}
//	err := cfg.Unmarshal(&view)
func (c Config) Unmarshal(v any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName: "config",
		Result:  v,
		DecodeHook: composeDecodeHooks(
			textUnmarshalerHookFunc(),
			timeDurationHookFunc(),
		),
	})
	if err != nil {
		return err
	}
	return dec.Decode(c.settings())
}

func (c Config) settings() map[string]any {
	return map[string]any{
		"connection_timeout":                 c.connectionTimeout,
		"socket_timeout":                     c.socketTimeout,
		"form_uri":                           c.formURI,
		"form_uri_basic_auth_login":          c.formURIBasicAuthLogin,
		"form_uri_basic_auth_password":       c.formURIBasicAuthPassword,
		"mail_to":                            c.mailTo,
		"http_method":                        string(c.httpMethod),
		"report_type":                        string(c.reportType),
		"http_headers":                       c.HTTPHeaders(),
		"interaction_mode":                   string(c.interactionMode),
		"report_content":                     c.reportContent.Fields(),
		"system_log_args":                    c.SystemLogArgs(),
		"system_log_filter_by_pid":           c.systemLogFilterByPID,
		"application_log_file":               c.applicationLogFile,
		"application_log_file_lines":         c.applicationLogFileLines,
		"delete_unapproved_reports_on_start": c.deleteUnapprovedReportsOnStart,
		"delete_old_unsent_reports_on_start": c.deleteOldUnsentReportsOnStart,
		"send_reports_in_dev_mode":           c.sendReportsInDevMode,
		"preferences_name":                   c.preferencesName,
		"additional_preferences":             c.AdditionalPreferences(),
		"exclude_matching_preference_keys":   c.ExcludeMatchingPreferenceKeys(),
	}
}

var errInvalidDecodeCondition = errors.New("invalid decode condition")

// TypeCoercionError occurs when attempting to unmarshal a config
// value to a struct field whose type does not match the config
// value type, up to, coercion.
type TypeCoercionError struct {
	from  reflect.Value
	to    reflect.Value
	Cause error
}

// Error implements the error interface.
func (e TypeCoercionError) Error() string {
	return fmt.Sprintf("failed to coerce value from %s to %s: %s", e.from.Type().Name(), e.to.Type().Name(), e.Cause)
}

// Unwrap implements the implicit interface for usage with errors.Is and errors.As.
func (e TypeCoercionError) Unwrap() error {
	return e.Cause
}

func composeDecodeHooks(hs ...mapstructure.DecodeHookFunc) mapstructure.DecodeHookFuncValue {
	return func(f, t reflect.Value) (any, error) {
		for _, h := range hs {
			v, err := mapstructure.DecodeHookExec(h, f, t)
			if err == nil {
				return v, nil
			}
			if err == errInvalidDecodeCondition {
				continue
			}
			return nil, TypeCoercionError{
				from:  f,
				to:    t,
				Cause: err,
			}
		}
		return f.Interface(), nil
	}
}

func textUnmarshalerHookFunc() mapstructure.DecodeHookFuncType {
	return func(f reflect.Type, t reflect.Type, data any) (any, error) {
		if f.Kind() != reflect.String {
			return nil, errInvalidDecodeCondition
		}
		result := reflect.New(t).Interface()
		u, ok := result.(encoding.TextUnmarshaler)
		if !ok {
			return nil, errInvalidDecodeCondition
		}
		err := u.UnmarshalText([]byte(data.(string)))
		if err != nil {
			return nil, err
		}
		return result, nil
	}
}

func timeDurationHookFunc() mapstructure.DecodeHookFuncType {
	return func(f reflect.Type, t reflect.Type, data any) (any, error) {
		if t != reflect.TypeOf(time.Duration(0)) {
			return nil, errInvalidDecodeCondition
		}

		switch f.Kind() {
		case reflect.String:
			return time.ParseDuration(data.(string))
		case reflect.Int:
			return time.Duration(int64(data.(int))), nil
		default:
			return nil, errInvalidDecodeCondition
		}
	}
}
