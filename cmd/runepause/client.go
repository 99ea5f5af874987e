package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"runepause/internal/server"
)

// apiError is the problem document returned by the control API.
type apiError struct {
	Status int    `json:"status"`
	Title  string `json:"title"`
	Detail string `json:"detail"`
	Errors []struct {
		Message  string `json:"message"`
		Location string `json:"location"`
	} `json:"errors"`
}

func (err *apiError) Error() string {
	message := err.Detail
	if message == "" {
		message = err.Title
	}
	if message == "" {
		message = http.StatusText(err.Status)
	}
	for _, detail := range err.Errors {
		message += fmt.Sprintf("; %s: %s", detail.Location, detail.Message)
	}
	return message
}

// client talks to a running instance over the control API.
type client struct {
	addr    string
	baseURL string
	http    *http.Client
	stream  *http.Client
}

func newClient(addr string) *client {
	return &client{
		addr:    addr,
		baseURL: "http://" + addr + server.DefaultBasePath,
		http:    &http.Client{Timeout: 10 * time.Second},
		stream:  &http.Client{},
	}
}

func (c *client) get(ctx context.Context, path string, out any) error {
	return c.do(ctx, http.MethodGet, path, nil, out)
}

func (c *client) post(ctx context.Context, path string, out any) error {
	return c.do(ctx, http.MethodPost, path, nil, out)
}

func (c *client) put(ctx context.Context, path string, body, out any) error {
	return c.do(ctx, http.MethodPut, path, body, out)
}

func (c *client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	res, err := c.http.Do(req)
	if err != nil {
		return c.unreachable(err)
	}
	defer res.Body.Close()
	if err := checkResponse(res); err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(res.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}

// events streams server-sent events until ctx ends or the server closes
// the stream. handle receives each event name with its data payload.
func (c *client) events(ctx context.Context, handle func(name string, data []byte) error) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/events", nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "text/event-stream")
	res, err := c.stream.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return c.unreachable(err)
	}
	defer res.Body.Close()
	if err := checkResponse(res); err != nil {
		return err
	}

	scanner := bufio.NewScanner(res.Body)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	name := "message"
	var data bytes.Buffer
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case line == "":
			if data.Len() > 0 {
				if err := handle(name, data.Bytes()); err != nil {
					return err
				}
			}
			name = "message"
			data.Reset()
		case strings.HasPrefix(line, ":"):
		case strings.HasPrefix(line, "event:"):
			name = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
		case strings.HasPrefix(line, "data:"):
			if data.Len() > 0 {
				data.WriteByte('\n')
			}
			data.WriteString(strings.TrimPrefix(strings.TrimPrefix(line, "data:"), " "))
		}
	}
	if err := scanner.Err(); err != nil && ctx.Err() == nil {
		return fmt.Errorf("read event stream: %w", err)
	}
	return nil
}

func (c *client) unreachable(err error) error {
	return fmt.Errorf("reach runepause at %s (is 'runepause run' active?): %w", c.addr, err)
}

func checkResponse(res *http.Response) error {
	if res.StatusCode >= 200 && res.StatusCode < 300 {
		return nil
	}
	problem := &apiError{Status: res.StatusCode}
	data, _ := io.ReadAll(io.LimitReader(res.Body, 64*1024))
	if err := json.Unmarshal(data, problem); err != nil || problem.Status == 0 {
		problem.Status = res.StatusCode
		problem.Detail = strings.TrimSpace(string(data))
	}
	return problem
}
