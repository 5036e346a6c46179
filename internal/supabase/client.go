// Package supabase builds the PostgREST and Storage SDK clients for one Supabase project
// and maps their errors onto APIError.
package supabase

import (
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"sync"

	"github.com/supabase-community/postgrest-go"
	storage_go "github.com/supabase-community/storage-go"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"meetnote/internal/config"
)

// ErrNotConfigured is returned when the endpoint or the key is missing.
var ErrNotConfigured = errors.New("Supabase not configured")

// APIError is a failed answer from PostgREST or the storage API. StatusCode is zero when
// the SDK did not report it.
type APIError struct {
	StatusCode int
	Message    string
	Code       string
}

func (e *APIError) Error() string {
	if e.StatusCode == 0 {
		switch {
		case e.Message != "":
			return e.Message
		case e.Code != "":
			return "error " + e.Code
		default:
			return "Supabase request failed"
		}
	}
	text := http.StatusText(e.StatusCode)
	if text == "" {
		text = fmt.Sprintf("HTTP %d", e.StatusCode)
	}
	if e.Message != "" {
		return text + ": " + e.Message
	}
	return text
}

// IsStatus reports whether err is an APIError with the given status code.
func IsStatus(err error, code int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == code
}

// HasCode reports whether err is an APIError carrying the given PostgREST or storage code.
func HasCode(err error, code string) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Code == code
}

// postgrest-go reports a failed response as "(code) message".
var restErrPattern = regexp.MustCompile(`^\(([^)]*)\) ?(.*)$`)

// FromREST converts a postgrest-go error into an *APIError. Transport errors pass through.
func FromREST(err error) error {
	if err == nil {
		return nil
	}
	m := restErrPattern.FindStringSubmatch(err.Error())
	if m == nil {
		return err
	}
	return &APIError{Code: m[1], Message: m[2]}
}

// FromStorage converts a storage-go error into an *APIError. Transport errors pass through.
func FromStorage(err error) error {
	var se *storage_go.StorageError
	if !errors.As(err, &se) {
		return err
	}
	apiErr := &APIError{StatusCode: se.Status, Message: se.Message}
	if strings.Contains(strings.ToLower(se.Message), "already exists") {
		apiErr.Code = "Duplicate"
	}
	return apiErr
}

// Client hands out SDK clients for one Supabase project.
type Client struct {
	baseURL string
	anonKey string

	restOnce sync.Once
	rest     *postgrest.Client
	restErr  error

	storageOnce sync.Once
	storage     *storage_go.Client
}

// NewClient builds a client; it does not perform any I/O.
func NewClient(cfg config.SupabaseConfig) *Client {
	return &Client{
		baseURL: strings.TrimRight(cfg.URL, "/"),
		anonKey: cfg.AnonKey,
	}
}

// BaseURL returns the project URL without a trailing slash.
func (c *Client) BaseURL() string {
	return c.baseURL
}

func (c *Client) configured() bool {
	return c.baseURL != "" && c.anonKey != ""
}

func (c *Client) headers() map[string]string {
	return map[string]string{
		"apikey":        c.anonKey,
		"Authorization": "Bearer " + c.anonKey,
	}
}

// REST returns the PostgREST client for <url>/rest/v1, traced with otelhttp.
func (c *Client) REST() (*postgrest.Client, error) {
	if !c.configured() {
		return nil, ErrNotConfigured
	}
	c.restOnce.Do(func() {
		c.rest, c.restErr = postgrest.NewClientWithError(c.baseURL+"/rest/v1", "", c.headers())
		if c.restErr == nil {
			c.rest.Transport.Parent = otelhttp.NewTransport(http.DefaultTransport)
		}
	})
	return c.rest, c.restErr
}

// Storage returns the storage client for <url>/storage/v1. The SDK mutates shared headers
// while uploading, so callers serialize their use of it.
func (c *Client) Storage() (*storage_go.Client, error) {
	if !c.configured() {
		return nil, ErrNotConfigured
	}
	c.storageOnce.Do(func() {
		c.storage = storage_go.NewClient(c.baseURL+"/storage/v1", c.anonKey, map[string]string{"apikey": c.anonKey})
	})
	return c.storage, nil
}
