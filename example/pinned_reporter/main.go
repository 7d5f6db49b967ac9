// Copyright (c) 2026 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/z5labs/crashkit/config"
	"github.com/z5labs/crashkit/report"
	"github.com/z5labs/crashkit/security"
	"github.com/z5labs/crashkit/transport"
)

const manifest = `
form_uri: https://crash.example.com/report
report_type: json
connection_timeout: 3s
socket_timeout: 10s
`

func main() {
	logHandler := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{AddSource: true})

	m, err := config.FromYaml(strings.NewReader(manifest))
	if err != nil {
		slog.New(logHandler).Error("failed to read manifest", slog.Any("error", err))
		os.Exit(1)
	}

	cfg := config.NewBuilder(m, config.LogHandler(logHandler)).
		SetHTTPHeaders(map[string]string{"X-Api-Key": os.Getenv("CRASH_API_KEY")}).
		SetReportField(report.UserEmail, false).
		Resolve()

	// nil store means no pinning was configured and the client
	// falls back to default system trust.
	store := security.NewTrustStore(
		context.Background(),
		security.FileSource("ca.pem"),
		security.LogHandler(logHandler),
	)

	client := transport.NewFromConfig(
		cfg,
		store,
		transport.Name("crash_report"),
		transport.LogHandler(logHandler),
		transport.RetryRequests(),
		transport.TripAfter(5),
	)

	fmt.Printf("delivering reports to %s with %d content fields\n", cfg.FormURI(), cfg.ReportContent().Len())
	_ = client
}
