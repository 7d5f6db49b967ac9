// Copyright (c) 2026 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package config

import (
	"strings"
	"testing"
	"time"

	"github.com/z5labs/crashkit/report"

	"github.com/stretchr/testify/require"
)

type readCloser struct {
	*strings.Reader
	closed bool
}

func (rc *readCloser) Close() error {
	rc.closed = true
	return nil
}

func TestFromYaml(t *testing.T) {
	t.Run("will decode a manifest", func(t *testing.T) {
		t.Run("if the document declares a subset of the settings", func(t *testing.T) {
			m, err := FromYaml(strings.NewReader(`
form_uri: https://crash.example.com/report
connection_timeout: 5s
report_type: json
report_content:
  - stack_trace
  - user_comment
http_headers:
  X-Api-Key: secret
`))
			require.NoError(t, err)

			uri, ok := m.FormURI.Value()
			require.True(t, ok)
			require.Equal(t, "https://crash.example.com/report", uri)

			d, ok := m.ConnectionTimeout.Value()
			require.True(t, ok)
			require.Equal(t, 5*time.Second, d)

			rt, ok := m.ReportType.Value()
			require.True(t, ok)
			require.Equal(t, ReportJSON, rt)

			fields, ok := m.ReportContent.Value()
			require.True(t, ok)
			require.Equal(t, []report.Field{report.StackTrace, report.UserComment}, fields)

			headers, ok := m.HTTPHeaders.Value()
			require.True(t, ok)
			require.Equal(t, map[string]string{"X-Api-Key": "secret"}, headers)

			_, ok = m.MailTo.Value()
			require.False(t, ok)

			_, ok = m.SocketTimeout.Value()
			require.False(t, ok)
		})
	})

	t.Run("will return an InvalidYamlError", func(t *testing.T) {
		t.Run("if the document is malformed", func(t *testing.T) {
			_, err := FromYaml(strings.NewReader(`form_uri: [`))

			var yerr InvalidYamlError
			require.ErrorAs(t, err, &yerr)
		})
	})

	t.Run("will close the reader", func(t *testing.T) {
		t.Run("if it implements io.Closer", func(t *testing.T) {
			rc := &readCloser{Reader: strings.NewReader("mail_to: dev@example.com")}

			m, err := FromYaml(rc)
			require.NoError(t, err)
			require.True(t, rc.closed)

			mailTo, ok := m.MailTo.Value()
			require.True(t, ok)
			require.Equal(t, "dev@example.com", mailTo)
		})

		t.Run("even if the document is malformed", func(t *testing.T) {
			rc := &readCloser{Reader: strings.NewReader(`: [`)}

			_, err := FromYaml(rc)
			require.Error(t, err)
			require.True(t, rc.closed)
		})
	})
}

func TestFromJson(t *testing.T) {
	t.Run("will decode a manifest", func(t *testing.T) {
		t.Run("if the document declares a subset of the settings", func(t *testing.T) {
			m, err := FromJson(strings.NewReader(`{
				"socket_timeout": "10s",
				"interaction_mode": "notification",
				"send_reports_in_dev_mode": false
			}`))
			require.NoError(t, err)

			d, ok := m.SocketTimeout.Value()
			require.True(t, ok)
			require.Equal(t, 10*time.Second, d)

			mode, ok := m.InteractionMode.Value()
			require.True(t, ok)
			require.Equal(t, ModeNotification, mode)

			send, ok := m.SendReportsInDevMode.Value()
			require.True(t, ok)
			require.False(t, send)
		})
	})

	t.Run("will return an InvalidJsonError", func(t *testing.T) {
		t.Run("if the document is malformed", func(t *testing.T) {
			_, err := FromJson(strings.NewReader(`{`))

			var jerr InvalidJsonError
			require.ErrorAs(t, err, &jerr)
		})
	})
}
