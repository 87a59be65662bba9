package export

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// Converter hands artifacts to an external conversion service.
type Converter struct {
	Endpoint string
	Client   *http.Client
	// Retries after the first attempt; a negative value means none.
	Retries int
	// Backoff is the wait before each retry.
	Backoff time.Duration
}

type Result struct {
	Data        []byte
	ContentType string
	// Converted is false when Data holds the original bytes.
	Converted bool
	Attempts  int
	// Err is the last failure.
	Err error
}

var errEmptyBody = errors.New("empty response body")

func NewConverter(endpoint string) *Converter {
	return &Converter{
		Endpoint: endpoint,
		Client:   &http.Client{Timeout: 2 * time.Minute},
		Retries:  1,
		Backoff:  500 * time.Millisecond,
	}
}

// Convert posts data to the endpoint. Failures are retried; once every attempt
// has failed the original data is returned unconverted.
func (c *Converter) Convert(ctx context.Context, name string, data []byte, contentType string) Result {
	fallback := Result{Data: data, ContentType: contentType}
	client := c.Client
	if client == nil {
		client = http.DefaultClient
	}
	attempts := 1
	if c.Retries > 0 {
		attempts += c.Retries
	}

	for i := 0; i < attempts; i++ {
		if i > 0 && c.Backoff > 0 {
			select {
			case <-ctx.Done():
				fallback.Err = ctx.Err()
				return fallback
			case <-time.After(c.Backoff):
			}
		}
		fallback.Attempts++
		out, outType, err := c.post(ctx, client, name, data, contentType)
		if err == nil {
			return Result{Data: out, ContentType: outType, Converted: true, Attempts: fallback.Attempts}
		}
		fallback.Err = err
		if ctx.Err() != nil {
			break
		}
	}
	return fallback
}

func (c *Converter) post(ctx context.Context, client *http.Client, name string, data []byte, contentType string) ([]byte, string, error) {
	u, err := url.Parse(c.Endpoint)
	if err != nil {
		return nil, "", fmt.Errorf("convert endpoint: %w", err)
	}
	q := u.Query()
	q.Set("name", name)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.String(), bytes.NewReader(data))
	if err != nil {
		return nil, "", err
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := client.Do(req)
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, "", fmt.Errorf("convert %s: %s", name, resp.Status)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", err
	}
	if len(body) == 0 {
		return nil, "", errEmptyBody
	}
	return body, resp.Header.Get("Content-Type"), nil
}
