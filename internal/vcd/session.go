package vcd

import (
	"context"
	"fmt"
	"net/http"
)

// Login exchanges the credentials for a bearer session. A failure here is
// fatal to the pipeline and is never retried automatically.
func (c *Client) Login(ctx context.Context) error {
	url := c.apiURL("/sessions")
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, nil)
	if err != nil {
		return &AuthError{Host: c.host, Err: err}
	}
	req.Header.Set("Accept", acceptXML)
	req.SetBasicAuth(c.creds.Username+"@system", c.creds.Password)
	resp, err := c.http.Do(req)
	if err != nil {
		return &AuthError{Host: c.host, Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return &AuthError{Host: c.host, Err: fmt.Errorf("login rejected with status %d", resp.StatusCode)}
	}
	token := resp.Header.Get("X-VMWARE-VCLOUD-ACCESS-TOKEN")
	if token == "" {
		return &AuthError{Host: c.host, Err: fmt.Errorf("login response carried no access token")}
	}
	c.bearer = token
	c.log.Debug().Str("host", c.host).Msg("logged in to Cloud Director")
	return nil
}

// ensureSession probes the current session with a cheap request and logs in
// again when the probe reports the session is no longer valid. The probe runs
// on every guarded call, trading one round-trip for unconditional
// correctness. A probe transport failure is fatal.
func (c *Client) ensureSession(ctx context.Context) error {
	resp, err := c.do(ctx, http.MethodGet, c.apiURL("/session"), acceptXML, nil, "")
	if err != nil {
		return &AuthError{Host: c.host, Err: err}
	}
	if resp.ok() {
		return nil
	}
	c.log.Debug().Int("status", resp.StatusCode).Msg("session expired, logging in again")
	return c.Login(ctx)
}

// WithSession is the session guard: it probes the session, re-authenticates
// if needed, and only then invokes op. A successful re-login replaces the
// bearer used by every subsequent call on this client.
func (c *Client) WithSession(ctx context.Context, op func(context.Context) error) error {
	if err := c.ensureSession(ctx); err != nil {
		return err
	}
	return op(ctx)
}

// Logout deletes the current session. Called at pipeline teardown.
func (c *Client) Logout(ctx context.Context) error {
	var current struct {
		ID string `json:"id"`
	}
	if err := c.getJSON(ctx, "get current session", c.cloudURL("/sessions/current"), &current); err != nil {
		return fmt.Errorf("cannot log out: %w", err)
	}
	resp, err := c.do(ctx, http.MethodDelete, c.cloudURL("/sessions/"+current.ID), acceptJSON, nil, "")
	if err != nil {
		return fmt.Errorf("log out: %w", err)
	}
	if resp.StatusCode != http.StatusNoContent {
		return remoteErr("log out", resp)
	}
	c.bearer = ""
	c.log.Debug().Msg("logged out of Cloud Director")
	return nil
}
