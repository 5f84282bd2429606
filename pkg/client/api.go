package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"
	"time"
)

// Event mirrors the backend's event representation on the wire.
type Event struct {
	ID               string `json:"id"`
	Event            string `json:"event"`
	Timestamp        string `json:"timestamp"`
	UserSub          string `json:"userSub"`
	S3Key            string `json:"s3Key,omitempty"`
	OriginalFileName string `json:"originalFileName,omitempty"`
	FileURL          string `json:"fileUrl,omitempty"`
}

// Attachment is a file sent along with a logged event.
type Attachment struct {
	Name        string
	ContentType string
	Data        []byte
}

// Client calls the backend API with a bearer token taken from the session on
// every request, so a mid-run refresh is picked up automatically.
type Client struct {
	baseURL string
	session *Session
	http    *http.Client
}

func NewClient(baseURL string, session *Session) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		session: session,
		http:    &http.Client{Timeout: 30 * time.Second},
	}
}

// LogEvent posts a new event, optionally with an attachment.
func (c *Client) LogEvent(ctx context.Context, description string, file *Attachment) error {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	if description != "" {
		if err := writer.WriteField("event", description); err != nil {
			return fmt.Errorf("failed to build request: %w", err)
		}
	}
	if file != nil {
		header := textproto.MIMEHeader{}
		header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename="%s"`, file.Name))
		header.Set("Content-Type", file.ContentType)
		part, err := writer.CreatePart(header)
		if err != nil {
			return fmt.Errorf("failed to build request: %w", err)
		}
		if _, err := part.Write(file.Data); err != nil {
			return fmt.Errorf("failed to build request: %w", err)
		}
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}

	req, err := c.newRequest(ctx, http.MethodPost, "/log-event", body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	return c.do(req, nil)
}

// ViewEvents fetches every event for the logged-in user.
func (c *Client) ViewEvents(ctx context.Context) ([]Event, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/view-events", nil)
	if err != nil {
		return nil, err
	}

	var items []Event
	if err := c.do(req, &items); err != nil {
		return nil, err
	}
	return items, nil
}

// ViewEventsByDate fetches the user's events for one calendar date.
func (c *Client) ViewEventsByDate(ctx context.Context, date string) ([]Event, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/view-events-by-date?date="+url.QueryEscape(date), nil)
	if err != nil {
		return nil, err
	}

	var items []Event
	if err := c.do(req, &items); err != nil {
		return nil, err
	}
	return items, nil
}

// EventDates fetches the distinct dates the user has events for.
func (c *Client) EventDates(ctx context.Context) ([]string, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/event-dates", nil)
	if err != nil {
		return nil, err
	}

	var dates []string
	if err := c.do(req, &dates); err != nil {
		return nil, err
	}
	return dates, nil
}

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	token, err := c.session.GetValidIDToken(ctx)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	return req, nil
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("server returned %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}

	if out != nil {
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}
