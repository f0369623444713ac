package vcd

import (
	"context"
	"encoding/xml"
	"net/http"
	"strings"
	"time"
)

// Task status terminal values as reported by the task API.
const (
	taskStatusSuccess = "success"
	taskStatusError   = "error"
)

// task is the XML task record polled by AwaitTask.
type task struct {
	OperationName string `xml:"operationName,attr"`
	Operation     string `xml:"operation,attr"`
	Status        string `xml:"status,attr"`
	Details       string `xml:"Details"`
}

// AwaitTask polls taskURL until the task whose operation name matches
// operationName reaches a terminal state, or the configured deadline elapses.
// A record with a different operation name is treated as not-yet-visible and
// polling continues. When wantOutput is set, the identifier embedded in the
// last parenthesized segment of the task's operation text is returned.
func (c *Client) AwaitTask(ctx context.Context, taskURL, operationName string, wantOutput bool) (string, error) {
	deadline := time.After(c.taskTimeout)
	ticker := time.NewTicker(c.taskInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-deadline:
			return "", &TaskTimeoutError{Task: operationName, Deadline: c.taskTimeout}
		case <-ticker.C:
			resp, err := c.do(ctx, http.MethodGet, taskURL, acceptXML, nil, "")
			if err != nil {
				return "", err
			}
			if !resp.ok() {
				continue
			}
			var t task
			if err := xml.Unmarshal(resp.Body, &t); err != nil {
				continue
			}
			if !strings.Contains(t.OperationName, operationName) {
				// A stale or unrelated task record; keep waiting.
				c.log.Debug().Str("got", t.OperationName).Str("want", operationName).Msg("task operation name mismatch")
				continue
			}
			switch t.Status {
			case taskStatusSuccess:
				c.log.Debug().Str("task", operationName).Msg("task completed")
				if wantOutput {
					return lastParenthesized(t.Operation), nil
				}
				return "", nil
			case taskStatusError:
				return "", &RemoteError{Op: "task " + operationName, StatusCode: resp.StatusCode, Message: t.Details}
			default:
				c.log.Debug().Str("task", operationName).Str("status", t.Status).Msg("task still running")
			}
		}
	}
}

// lastParenthesized extracts the content of the last "(...)" segment of s,
// where the task API embeds the identifier of the affected entity.
func lastParenthesized(s string) string {
	open := strings.LastIndex(s, "(")
	end := strings.LastIndex(s, ")")
	if open < 0 || end <= open {
		return ""
	}
	return s[open+1 : end]
}
