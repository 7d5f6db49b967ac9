// Copyright (c) 2026 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package security

import (
	"bytes"
	"context"
	"io"
	"io/fs"
	"os"
)

// FileSource returns a CertificateSource which reads the certificate
// from the file at the given path.
func FileSource(path string) CertificateSource {
	return CertificateSourceFunc(func(ctx context.Context) (io.ReadCloser, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return os.Open(path)
	})
}

// FSSource returns a CertificateSource which reads the certificate
// from the given file system, for example resources bundled with the
// host application via embed.FS.
func FSSource(fsys fs.FS, path string) CertificateSource {
	return CertificateSourceFunc(func(ctx context.Context) (io.ReadCloser, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return fsys.Open(path)
	})
}

// BytesSource returns a CertificateSource which supplies the given
// bytes. An empty slice signals that no pinning is configured.
func BytesSource(b []byte) CertificateSource {
	return CertificateSourceFunc(func(ctx context.Context) (io.ReadCloser, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if len(b) == 0 {
			return nil, nil
		}
		return io.NopCloser(bytes.NewReader(b)), nil
	})
}
