// Copyright (c) 2026 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package crashkit is the configuration and trust core of a crash
// reporting client embedded in an application host.
//
// The module covers the two pieces of a reporting session which
// carry real engineering contracts, and nothing else:
//
//   - Layered configuration resolution: [github.com/z5labs/crashkit/config]
//     merges a declarative manifest, a programmatic override layer and
//     hardcoded fallback constants into one immutable configuration
//     which every downstream component reads for the lifetime of the
//     session.
//   - Trust anchored transport construction:
//     [github.com/z5labs/crashkit/security] builds an isolated trust
//     store from a single pinned certificate and
//     [github.com/z5labs/crashkit/transport] restricts an http.Client
//     to it, so report delivery can be pinned to a known CA instead
//     of the host's full system trust set.
//
// UI dialogs, report persistence, delivery queues and diagnostic
// collection are the host's responsibility. They consume the
// resolved configuration and the constructed channel as opaque
// inputs.
//
// The intended control flow is: load a [config.Manifest], populate a
// [config.Builder] seeded with it, resolve exactly once, then hand
// the resulting [config.Config] to senders and collectors, which
// construct the secure channel lazily when delivery is due.
package crashkit
