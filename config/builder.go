// Copyright (c) 2026 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package config

import (
	"log/slog"
	"time"

	"github.com/z5labs/crashkit/internal/noop"
	"github.com/z5labs/crashkit/report"
	"github.com/z5labs/crashkit/security"
)

// Builder accumulates explicit setting assignments on top of the
// [Manifest] it was seeded with. Settings never assigned through a
// setter carry no signal to resolution. The zero value is a usable
// Builder seeded with an empty Manifest.
//
// A Builder is owned exclusively by host code during a setup phase
// which precedes resolution. It is not safe to call setters
// concurrently with each other or with [Builder.Resolve].
type Builder struct {
	defaults   Manifest
	logHandler slog.Handler

	connectionTimeout              Value[time.Duration]
	socketTimeout                  Value[time.Duration]
	formURI                        Value[string]
	formURIBasicAuthLogin          Value[string]
	formURIBasicAuthPassword       Value[string]
	mailTo                         Value[string]
	httpMethod                     Value[Method]
	reportType                     Value[ReportType]
	httpHeaders                    Value[map[string]string]
	interactionMode                Value[Mode]
	customReportContent            Value[[]report.Field]
	reportContentChanges           map[report.Field]bool
	systemLogArgs                  Value[[]string]
	systemLogFilterByPID           Value[bool]
	applicationLogFile             Value[string]
	applicationLogFileLines        Value[int]
	deleteUnapprovedReportsOnStart Value[bool]
	deleteOldUnsentReportsOnStart  Value[bool]
	sendReportsInDevMode           Value[bool]
	preferencesName                Value[string]
	additionalPreferences          Value[[]string]
	excludeMatchingPreferenceKeys  Value[[]string]
	certificateSource              security.CertificateSource
}

// BuilderOption configures optional Builder behaviour.
type BuilderOption func(*Builder)

// LogHandler configures the slog.Handler resolution diagnostics are
// written to. By default they are discarded.
func LogHandler(h slog.Handler) BuilderOption {
	return func(b *Builder) {
		b.logHandler = h
	}
}

// NewBuilder returns a Builder seeded with the given Manifest.
func NewBuilder(defaults Manifest, opts ...BuilderOption) *Builder {
	b := &Builder{
		defaults:             defaults,
		logHandler:           noop.LogHandler{},
		reportContentChanges: make(map[report.Field]bool),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// SetConnectionTimeout sets the connection establishment timeout.
func (b *Builder) SetConnectionTimeout(d time.Duration) *Builder {
	b.connectionTimeout = ValueOf(d)
	return b
}

// SetSocketTimeout sets the request/response exchange timeout.
func (b *Builder) SetSocketTimeout(d time.Duration) *Builder {
	b.socketTimeout = ValueOf(d)
	return b
}

// SetFormURI sets the report submission endpoint.
func (b *Builder) SetFormURI(uri string) *Builder {
	b.formURI = ValueOf(uri)
	return b
}

// SetFormURIBasicAuthLogin sets the basic auth username for the form endpoint.
func (b *Builder) SetFormURIBasicAuthLogin(login string) *Builder {
	b.formURIBasicAuthLogin = ValueOf(login)
	return b
}

// SetFormURIBasicAuthPassword sets the basic auth password for the form endpoint.
func (b *Builder) SetFormURIBasicAuthPassword(password string) *Builder {
	b.formURIBasicAuthPassword = ValueOf(password)
	return b
}

// SetMailTo sets the email address reports are delivered to.
func (b *Builder) SetMailTo(mailTo string) *Builder {
	b.mailTo = ValueOf(mailTo)
	return b
}

// SetHTTPMethod sets the HTTP method used when submitting reports.
func (b *Builder) SetHTTPMethod(m Method) *Builder {
	b.httpMethod = ValueOf(m)
	return b
}

// SetReportType sets the wire encoding used when submitting reports.
func (b *Builder) SetReportType(t ReportType) *Builder {
	b.reportType = ValueOf(t)
	return b
}

// SetHTTPHeaders sets the extra headers to attach to report
// submissions. The given map is copied.
func (b *Builder) SetHTTPHeaders(headers map[string]string) *Builder {
	m := make(map[string]string, len(headers))
	for k, v := range headers {
		m[k] = v
	}
	b.httpHeaders = ValueOf(m)
	return b
}

// SetInteractionMode sets how the user is engaged before submission.
func (b *Builder) SetInteractionMode(m Mode) *Builder {
	b.interactionMode = ValueOf(m)
	return b
}

// SetCustomReportContent replaces the base list of report content
// fields entirely, bypassing both default lists. The given slice is
// copied.
func (b *Builder) SetCustomReportContent(fields []report.Field) *Builder {
	fs := make([]report.Field, len(fields))
	copy(fs, fields)
	b.customReportContent = ValueOf(fs)
	return b
}

// SetReportField enables or disables a single report content field
// on top of the base list. Unlike [Builder.SetCustomReportContent]
// this keeps the base list intact.
//
// Deltas are keyed by field. Setting the same field multiple times
// keeps only the last assignment.
func (b *Builder) SetReportField(f report.Field, enable bool) *Builder {
	if b.reportContentChanges == nil {
		b.reportContentChanges = make(map[report.Field]bool)
	}
	b.reportContentChanges[f] = enable
	return b
}

// SetSystemLogArgs sets the argument list for the host's system log
// collector. The given slice is copied.
func (b *Builder) SetSystemLogArgs(args []string) *Builder {
	as := make([]string, len(args))
	copy(as, args)
	b.systemLogArgs = ValueOf(as)
	return b
}

// SetSystemLogFilterByPID restricts system log collection to the host process.
func (b *Builder) SetSystemLogFilterByPID(filter bool) *Builder {
	b.systemLogFilterByPID = ValueOf(filter)
	return b
}

// SetApplicationLogFile sets the path of the application log to collect.
func (b *Builder) SetApplicationLogFile(path string) *Builder {
	b.applicationLogFile = ValueOf(path)
	return b
}

// SetApplicationLogFileLines sets the number of trailing application
// log lines to collect.
func (b *Builder) SetApplicationLogFileLines(n int) *Builder {
	b.applicationLogFileLines = ValueOf(n)
	return b
}

// SetDeleteUnapprovedReportsOnStart controls whether pending
// unapproved reports are discarded at host startup.
func (b *Builder) SetDeleteUnapprovedReportsOnStart(del bool) *Builder {
	b.deleteUnapprovedReportsOnStart = ValueOf(del)
	return b
}

// SetDeleteOldUnsentReportsOnStart controls whether stale unsent
// reports are discarded at host startup.
func (b *Builder) SetDeleteOldUnsentReportsOnStart(del bool) *Builder {
	b.deleteOldUnsentReportsOnStart = ValueOf(del)
	return b
}

// SetSendReportsInDevMode controls whether reports are submitted
// from development builds.
func (b *Builder) SetSendReportsInDevMode(send bool) *Builder {
	b.sendReportsInDevMode = ValueOf(send)
	return b
}

// SetPreferencesName sets the name of the host preference store to
// collect from.
func (b *Builder) SetPreferencesName(name string) *Builder {
	b.preferencesName = ValueOf(name)
	return b
}

// SetAdditionalPreferences sets the extra preference stores to
// collect from. The given slice is copied.
func (b *Builder) SetAdditionalPreferences(names []string) *Builder {
	ns := make([]string, len(names))
	copy(ns, names)
	b.additionalPreferences = ValueOf(ns)
	return b
}

// SetExcludeMatchingPreferenceKeys sets the preference key patterns
// to exclude from collection. The given slice is copied.
func (b *Builder) SetExcludeMatchingPreferenceKeys(keys []string) *Builder {
	ks := make([]string, len(keys))
	copy(ks, keys)
	b.excludeMatchingPreferenceKeys = ValueOf(ks)
	return b
}

// SetCertificateSource pins report delivery to the certificate
// supplied by the given source. A nil source means no pinning.
func (b *Builder) SetCertificateSource(src security.CertificateSource) *Builder {
	b.certificateSource = src
	return b
}

// Resolve merges the Builder's explicit assignments, the Manifest it
// was seeded with and the hardcoded fallback constants into one
// immutable [Config].
//
// Resolution is a pure, side effect free, single pass merge and can
// not fail: every setting has a defined fallback. Cross field
// consistency, for example a delivery mode which requires an
// endpoint, is deliberately not validated here. Consumers validate
// the combinations they depend on.
func (b *Builder) Resolve() Config {
	cfg := Config{
		connectionTimeout:              resolve(b.connectionTimeout, b.defaults.ConnectionTimeout, DefaultConnectionTimeout),
		socketTimeout:                  resolve(b.socketTimeout, b.defaults.SocketTimeout, DefaultSocketTimeout),
		formURI:                        resolve(b.formURI, b.defaults.FormURI, ""),
		formURIBasicAuthLogin:          resolve(b.formURIBasicAuthLogin, b.defaults.FormURIBasicAuthLogin, ""),
		formURIBasicAuthPassword:       resolve(b.formURIBasicAuthPassword, b.defaults.FormURIBasicAuthPassword, ""),
		mailTo:                         resolve(b.mailTo, b.defaults.MailTo, ""),
		httpMethod:                     resolve(b.httpMethod, b.defaults.HTTPMethod, DefaultHTTPMethod),
		reportType:                     resolve(b.reportType, b.defaults.ReportType, DefaultReportType),
		httpHeaders:                    copyMap(resolve(b.httpHeaders, b.defaults.HTTPHeaders, nil)),
		interactionMode:                resolve(b.interactionMode, b.defaults.InteractionMode, DefaultInteractionMode),
		systemLogArgs:                  copySlice(resolve(b.systemLogArgs, b.defaults.SystemLogArgs, DefaultSystemLogArgs())),
		systemLogFilterByPID:           resolve(b.systemLogFilterByPID, b.defaults.SystemLogFilterByPID, DefaultSystemLogFilterByPID),
		applicationLogFile:             resolve(b.applicationLogFile, b.defaults.ApplicationLogFile, ""),
		applicationLogFileLines:        resolve(b.applicationLogFileLines, b.defaults.ApplicationLogFileLines, DefaultApplicationLogFileLines),
		deleteUnapprovedReportsOnStart: resolve(b.deleteUnapprovedReportsOnStart, b.defaults.DeleteUnapprovedReportsOnStart, DefaultDeleteUnapprovedReportsOnStart),
		deleteOldUnsentReportsOnStart:  resolve(b.deleteOldUnsentReportsOnStart, b.defaults.DeleteOldUnsentReportsOnStart, DefaultDeleteOldUnsentReportsOnStart),
		sendReportsInDevMode:           resolve(b.sendReportsInDevMode, b.defaults.SendReportsInDevMode, DefaultSendReportsInDevMode),
		preferencesName:                resolve(b.preferencesName, b.defaults.PreferencesName, ""),
		additionalPreferences:          copySlice(resolve(b.additionalPreferences, b.defaults.AdditionalPreferences, nil)),
		excludeMatchingPreferenceKeys:  copySlice(resolve(b.excludeMatchingPreferenceKeys, b.defaults.ExcludeMatchingPreferenceKeys, nil)),
		certificateSource:              b.certificateSource,
	}
	cfg.reportContent = b.resolveReportContent(cfg.mailTo)
	return cfg
}

// resolve implements the three tier precedence rule shared by every
// setting: explicit override, then manifest value, then fallback.
func resolve[T any](override, manifest Value[T], fallback T) T {
	if v, ok := override.Value(); ok {
		return v
	}
	if v, ok := manifest.Value(); ok {
		return v
	}
	return fallback
}

// resolveReportContent computes the base field list by precedence,
// then applies the accumulated per field deltas. Delta application
// is commutative per field, so iteration order over the map does not
// affect the result.
func (b *Builder) resolveReportContent(mailTo string) report.FieldSet {
	h := b.logHandler
	if h == nil {
		h = noop.LogHandler{}
	}
	log := slog.New(h)

	custom, ok := b.customReportContent.Value()
	if !ok {
		custom, ok = b.defaults.ReportContent.Value()
	}

	var fields report.FieldSet
	switch {
	case ok:
		log.Debug("using custom report fields")
		fields = report.NewFieldSet(custom...)
	case mailTo != "":
		log.Debug("using default mail report fields")
		fields = report.NewFieldSet(report.MailDefaultFields()...)
	default:
		log.Debug("using default report fields")
		fields = report.NewFieldSet(report.DefaultFields()...)
	}

	for f, enable := range b.reportContentChanges {
		if enable {
			fields.Add(f)
			continue
		}
		fields.Remove(f)
	}
	return fields
}

func copySlice(vs []string) []string {
	cs := make([]string, len(vs))
	copy(cs, vs)
	return cs
}

func copyMap(m map[string]string) map[string]string {
	cm := make(map[string]string, len(m))
	for k, v := range m {
		cm[k] = v
	}
	return cm
}
