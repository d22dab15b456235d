package morph

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"strings"
	"time"
)

// Client talks to an external analyzer service exposing
//
//	GET  /health
//	POST /analyze {"word": "..."}                    -> {"tag": "NOUN,inan,masc sing,nomn"}
//	POST /inflect {"word": "...", "grammemes": [...]} -> {"word": "...", "found": true}
//
// Tags use OpenCorpora grammeme names.
type Client struct {
	baseURL    string
	httpClient *http.Client
	limiter    *RateLimiter
	retries    int
}

type analyzeResponse struct {
	Tag string `json:"tag"`
}

type inflectResponse struct {
	Word  string `json:"word"`
	Found bool   `json:"found"`
}

func NewClient(baseURL string, timeout time.Duration, rps, retries int) *Client {
	if retries < 0 {
		retries = 0
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		limiter:    NewRateLimiter(rps),
		retries:    retries,
	}
}

func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: health status %d", ErrUnavailable, resp.StatusCode)
	}
	return nil
}

func (c *Client) Analyze(ctx context.Context, word string) (Tag, error) {
	var out analyzeResponse
	if err := c.post(ctx, "analyze", map[string]any{"word": word}, &out); err != nil {
		return Tag{}, err
	}
	return ParseTag(out.Tag), nil
}

func (c *Client) Inflect(ctx context.Context, word string, f Features) (string, bool, error) {
	var out inflectResponse
	if err := c.post(ctx, "inflect", map[string]any{"word": word, "grammemes": f.Grammemes()}, &out); err != nil {
		return "", false, err
	}
	if !out.Found || strings.TrimSpace(out.Word) == "" {
		return "", false, nil
	}
	return out.Word, true, nil
}

func (c *Client) post(ctx context.Context, endpoint string, payload any, out any) error {
	blob, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	var lastErr error
	attempts := c.retries + 1
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := c.limiter.WaitTurn(ctx); err != nil {
			return err
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/"+endpoint, bytes.NewReader(blob))
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Accept", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			lastErr = err
			continue
		}

		body, readErr := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		if readErr != nil {
			lastErr = readErr
			continue
		}

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			if isRetryableStatus(resp.StatusCode) && attempt < attempts {
				backoff := time.Duration(50*(1<<(attempt-1))+rand.Intn(25)) * time.Millisecond
				lastErr = fmt.Errorf("morph status %d", resp.StatusCode)
				if err := sleepContext(ctx, backoff); err != nil {
					return err
				}
				continue
			}
			return fmt.Errorf("morph api error: endpoint=%s status=%d body=%s", endpoint, resp.StatusCode, string(body))
		}

		return json.Unmarshal(body, out)
	}

	if lastErr == nil {
		lastErr = errors.New("morph request failed")
	}
	return lastErr
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func isRetryableStatus(status int) bool {
	switch status {
	case 429, 500, 502, 503, 504:
		return true
	default:
		return false
	}
}
