package vcd

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

// API version negotiated with VMware Cloud Director.
const (
	acceptXML  = "application/*+xml;version=34.0"
	acceptJSON = "application/json;version=34.0"
)

// Credentials authenticate a system administrator. The username is sent with
// the @system suffix the legacy login endpoint expects.
type Credentials struct {
	Username string
	Password string
}

// ClientOptions configures a Client.
type ClientOptions struct {
	// Host is the Cloud Director address, without scheme.
	Host string
	// Credentials for the system administrator session.
	Credentials Credentials
	// Insecure skips TLS certificate verification.
	Insecure bool
	// TaskTimeout is the hard ceiling for awaiting an asynchronous task.
	TaskTimeout time.Duration
	// TaskInterval is the sleep between task status polls.
	TaskInterval time.Duration
	Logger       zerolog.Logger
}

// Client is an authenticated VMware Cloud Director API client. It owns the
// bearer session and guards every operation against session expiry. A Client
// is owned by a single pipeline run and is not safe for concurrent use.
type Client struct {
	host         string
	creds        Credentials
	http         *http.Client
	log          zerolog.Logger
	bearer       string
	taskTimeout  time.Duration
	taskInterval time.Duration
}

// NewClient builds a Client. No connection is made until Login.
func NewClient(opts ClientOptions) *Client {
	transport := http.DefaultTransport
	if opts.Insecure {
		transport = &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
		}
	}
	timeout := opts.TaskTimeout
	if timeout <= 0 {
		timeout = 30 * time.Minute
	}
	interval := opts.TaskInterval
	if interval <= 0 {
		interval = 10 * time.Second
	}
	return &Client{
		host:         opts.Host,
		creds:        opts.Credentials,
		http:         &http.Client{Transport: transport, Timeout: 2 * time.Minute},
		log:          opts.Logger,
		taskTimeout:  timeout,
		taskInterval: interval,
	}
}

func (c *Client) apiURL(path string) string {
	return fmt.Sprintf("https://%s/api%s", c.host, path)
}

func (c *Client) cloudURL(path string) string {
	return fmt.Sprintf("https://%s/cloudapi/1.0.0%s", c.host, path)
}

func (c *Client) nsxURL(path string) string {
	return fmt.Sprintf("https://%s/network%s", c.host, path)
}

type response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

func (r *response) ok() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

func (c *Client) do(ctx context.Context, method, url, accept string, body []byte, contentType string) (*response, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", accept)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if c.bearer != "" {
		req.Header.Set("Authorization", "Bearer "+c.bearer)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	c.log.Debug().Str("method", method).Str("url", url).Int("status", resp.StatusCode).Msg("api call")
	return &response{StatusCode: resp.StatusCode, Header: resp.Header, Body: data}, nil
}

// remoteErr extracts the server-supplied message from an error response body,
// which may be either the legacy XML envelope or the open API JSON one.
func remoteErr(op string, resp *response) error {
	var xe vcdError
	if err := xml.Unmarshal(resp.Body, &xe); err == nil && xe.Message != "" {
		return &RemoteError{Op: op, StatusCode: resp.StatusCode, Message: xe.Message}
	}
	var je jsonError
	if err := json.Unmarshal(resp.Body, &je); err == nil && je.Message != "" {
		return &RemoteError{Op: op, StatusCode: resp.StatusCode, Message: je.Message}
	}
	return &RemoteError{Op: op, StatusCode: resp.StatusCode}
}

// getXML fetches url and decodes the XML body into out.
func (c *Client) getXML(ctx context.Context, op, url string, out any) error {
	resp, err := c.do(ctx, http.MethodGet, url, acceptXML, nil, "")
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if !resp.ok() {
		return remoteErr(op, resp)
	}
	if out == nil {
		return nil
	}
	if err := xml.Unmarshal(resp.Body, out); err != nil {
		return fmt.Errorf("%s: decoding response: %w", op, err)
	}
	return nil
}

// getJSON fetches url and decodes the JSON body into out.
func (c *Client) getJSON(ctx context.Context, op, url string, out any) error {
	resp, err := c.do(ctx, http.MethodGet, url, acceptJSON, nil, "")
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if !resp.ok() {
		return remoteErr(op, resp)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(resp.Body, out); err != nil {
		return fmt.Errorf("%s: decoding response: %w", op, err)
	}
	return nil
}

// postAction issues a bodyless POST (enable/disable actions) expecting 204.
func (c *Client) postAction(ctx context.Context, op, url string) error {
	resp, err := c.do(ctx, http.MethodPost, url, acceptXML, nil, "")
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if resp.StatusCode != http.StatusNoContent {
		return remoteErr(op, resp)
	}
	return nil
}

// putXMLTask issues an XML PUT expecting 202 Accepted and returns the task
// URL from the Location header.
func (c *Client) putXMLTask(ctx context.Context, op, url string, payload any) (string, error) {
	body, err := xml.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("%s: encoding payload: %w", op, err)
	}
	resp, err := c.do(ctx, http.MethodPut, url, acceptXML, body, "application/xml")
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	if resp.StatusCode != http.StatusAccepted {
		return "", remoteErr(op, resp)
	}
	taskURL := resp.Header.Get("Location")
	if taskURL == "" {
		return "", fmt.Errorf("%s: accepted response carried no task location", op)
	}
	return taskURL, nil
}
