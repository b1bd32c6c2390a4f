// Package uploads sends local media files to the lists service and returns
// their public URL.
package uploads

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"os"
	"path/filepath"
	"strings"
	"time"

	"family-lists-go/internal/engine"
	"family-lists-go/internal/wire"
)

const FormField = "file"

var ErrEmptyURL = errors.New("upload response without url")

type Uploader struct {
	endpoint string
	client   *http.Client
	token    func(ctx context.Context) (string, error)
}

var _ engine.Uploader = (*Uploader)(nil)

func New(baseURL string, timeout time.Duration, token func(ctx context.Context) (string, error)) *Uploader {
	if timeout == 0 {
		timeout = 60 * time.Second
	}
	return &Uploader{
		endpoint: strings.TrimRight(baseURL, "/") + "/api/uploads",
		client:   &http.Client{Timeout: timeout},
		token:    token,
	}
}

func (u *Uploader) Upload(ctx context.Context, media engine.Media) (string, error) {
	file, err := os.Open(media.LocalPath)
	if err != nil {
		return "", fmt.Errorf("open media: %w", err)
	}
	defer file.Close()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, FormField, filepath.Base(media.LocalPath)))
	contentType := media.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	header.Set("Content-Type", contentType)
	part, err := writer.CreatePart(header)
	if err != nil {
		return "", fmt.Errorf("create form part: %w", err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return "", fmt.Errorf("read media: %w", err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("close form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.endpoint, &body)
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	if u.token != nil {
		token, err := u.token(ctx)
		if err != nil {
			return "", err
		}
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	resp, err := u.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", engine.ErrNetwork, err)
	}
	defer resp.Body.Close()

	var envelope wire.Envelope[wire.UploadPayload]
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&envelope); err != nil {
		return "", fmt.Errorf("%w: decode upload response (status %d): %v", engine.ErrServer, resp.StatusCode, err)
	}
	if resp.StatusCode >= http.StatusBadRequest || !envelope.Success {
		return "", fmt.Errorf("%w: upload rejected (status %d): %s", engine.ErrServer, resp.StatusCode, envelope.Message)
	}
	if envelope.Data.URL == "" {
		return "", ErrEmptyURL
	}
	return envelope.Data.URL, nil
}
