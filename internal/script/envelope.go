package script

import (
	"bytes"
	"fmt"
	"mime/multipart"
	"net/textproto"
)

// Transport envelopes for provider user-data mechanisms. Cloud providers
// cap user-data size (EC2: 16 KiB), so large scripts ship compressed.

// GzipBase64Wrapper wraps a script in a self-extracting bash wrapper: the
// payload is gzip+base64 and the wrapper decodes and executes it.
func GzipBase64Wrapper(script string) (string, error) {
	encoded, err := gzipBase64([]byte(script))
	if err != nil {
		return "", fmt.Errorf("compress bootstrap script: %w", err)
	}
	return fmt.Sprintf("#!/bin/bash\n# self-extracting bootstrap\necho %s | base64 -d | gunzip | bash\n", encoded), nil
}

// MIMEMultipart frames a script as a cloud-init multipart document with a
// single text/x-shellscript attachment, for providers that require the
// cloud-init multipart convention.
func MIMEMultipart(script string) (string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	header := textproto.MIMEHeader{}
	header.Set("Content-Type", `text/x-shellscript; charset="utf-8"`)
	header.Set("Content-Disposition", `attachment; filename="bootstrap.sh"`)
	part, err := w.CreatePart(header)
	if err != nil {
		return "", fmt.Errorf("create multipart part: %w", err)
	}
	if _, err := part.Write([]byte(script)); err != nil {
		return "", err
	}
	if err := w.Close(); err != nil {
		return "", err
	}

	head := fmt.Sprintf("Content-Type: multipart/mixed; boundary=%q\nMIME-Version: 1.0\n\n", w.Boundary())
	return head + buf.String(), nil
}
