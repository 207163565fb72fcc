// Package upload sends profile photos to the image hosting service.
//
// Photos are inspected before they leave the gateway: the content type is
// sniffed, the image is decoded and a BlurHash placeholder is computed so pages
// can show something while the hosted image loads.
package upload

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/url"
	"time"

	"github.com/talkboard/talkboard-web/internal/errors"
)

const (
	defaultMaxBytes = 5 * 1024 * 1024
	uploadTimeout   = 30 * time.Second
)

// Config configures a Client.
type Config struct {
	// URL is the upload endpoint. The API key is sent as the key query parameter.
	URL      string
	Key      string
	MaxBytes int64
}

// Result is a hosted photo.
type Result struct {
	URL        string `json:"url"`
	DisplayURL string `json:"display_url"`
	Image
}

// Client uploads photos.
type Client struct {
	cfg        Config
	httpClient *http.Client
	logger     *slog.Logger
}

// New creates an upload client.
func New(cfg Config, logger *slog.Logger) *Client {
	if cfg.MaxBytes <= 0 {
		cfg.MaxBytes = defaultMaxBytes
	}
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: uploadTimeout},
		logger:     logger,
	}
}

// MaxBytes returns the largest accepted photo.
func (c *Client) MaxBytes() int64 {
	return c.cfg.MaxBytes
}

type hostResponse struct {
	Data struct {
		URL        string `json:"url"`
		DisplayURL string `json:"display_url"`
	} `json:"data"`
	Success bool `json:"success"`
	Error   struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Upload validates the photo and posts it as the multipart image field.
func (c *Client) Upload(ctx context.Context, filename string, data []byte) (*Result, error) {
	if int64(len(data)) > c.cfg.MaxBytes {
		return nil, errors.Validationf("Photos must be smaller than %d MB.", c.cfg.MaxBytes/(1024*1024))
	}
	img, err := Inspect(data)
	if err != nil {
		return nil, err
	}
	if c.cfg.URL == "" {
		return nil, errors.Unavailable(nil, "Photo uploads are not configured.")
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if filename == "" {
		filename = "photo" + img.Extension
	}
	part, err := mw.CreateFormFile("image", filename)
	if err != nil {
		return nil, fmt.Errorf("create form file: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return nil, fmt.Errorf("write form file: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("close multipart writer: %w", err)
	}

	target, err := url.Parse(c.cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse upload url: %w", err)
	}
	if c.cfg.Key != "" {
		q := target.Query()
		q.Set("key", c.cfg.Key)
		target.RawQuery = q.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target.String(), &body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, errors.Unavailable(err, "Photo upload failed. Please try again.")
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, errors.Unavailable(err, "Photo upload failed. Please try again.")
	}

	var hr hostResponse
	_ = json.Unmarshal(raw, &hr)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, errors.FromStatus(resp.StatusCode, hr.Error.Message)
	}
	if hr.Data.URL == "" {
		return nil, errors.Unavailable(nil, "Photo upload returned no URL.")
	}

	c.logger.Info("photo uploaded",
		slog.String("mime", img.MIME),
		slog.Int("width", img.Width),
		slog.Int("height", img.Height),
		slog.Int("size", len(data)),
	)

	return &Result{URL: hr.Data.URL, DisplayURL: hr.Data.DisplayURL, Image: *img}, nil
}
