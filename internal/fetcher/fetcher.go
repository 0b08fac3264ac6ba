package fetcher

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/jgoulah/raemisreport/internal/config"
	"github.com/jgoulah/raemisreport/pkg/models"
)

const maxErrorBody = 512

// StatusError is returned when the endpoint answers with a non-2xx status
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("endpoint returned status %d: %s", e.StatusCode, e.Body)
}

// Fetcher retrieves usage telemetry from the configured endpoint
type Fetcher struct {
	endpoint string
	username string
	password string
	client   *http.Client
	logger   *logrus.Logger
}

// Option configures a Fetcher
type Option func(*Fetcher)

// WithHTTPClient replaces the HTTP client built from the config
func WithHTTPClient(client *http.Client) Option {
	return func(f *Fetcher) {
		f.client = client
	}
}

// WithLogger sets the logger used for request progress
func WithLogger(logger *logrus.Logger) Option {
	return func(f *Fetcher) {
		f.logger = logger
	}
}

// New creates a Fetcher for cfg's endpoint and credentials
func New(cfg *config.Config, opts ...Option) *Fetcher {
	f := &Fetcher{
		endpoint: cfg.Endpoint,
		username: cfg.Username,
		password: cfg.GetPassword(),
		logger:   logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.client == nil {
		f.client = newHTTPClient(cfg, f.logger)
	}
	return f
}

func newHTTPClient(cfg *config.Config, logger *logrus.Logger) *http.Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	if cfg.InsecureSkipVerify {
		logger.Warn("TLS certificate verification is disabled (insecure_skip_verify)")
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}
	return &http.Client{
		Timeout:   cfg.GetTimeout(),
		Transport: transport,
	}
}

// Fetch issues one GET and decodes the body into a table. No retry.
func (f *Fetcher) Fetch(ctx context.Context) (*models.Table, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if f.username != "" || f.password != "" {
		req.SetBasicAuth(f.username, f.password)
	}

	f.logger.Infof("Making API request to: %s", f.endpoint)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("making request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	table, err := DecodeTable(resp.Body)
	if err != nil {
		return nil, err
	}

	f.logger.WithField("records", table.Len()).WithField("columns", len(table.Columns)).Info("Fetched records")
	return table, nil
}
