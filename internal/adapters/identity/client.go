package identity

import (
	"context"
	crand "crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"parkspot/internal/adapters/observability"
	"parkspot/internal/domain"
)

// Client resolves opaque session tokens against the identity provider's
// userinfo endpoint. Tokens are never inspected locally.
type Client struct {
	base string
	hc   *http.Client
	key  string
	rl   *rate.Limiter
}

func New(base, key string, rps int) (*Client, error) {
	if key == "" {
		return nil, fmt.Errorf("service API key is required")
	}
	if rps <= 0 {
		rps = 20
	}
	return &Client{
		base: strings.TrimRight(base, "/"),
		hc:   &http.Client{Timeout: 10 * time.Second},
		key:  key,
		rl:   rate.NewLimiter(rate.Limit(rps), rps),
	}, nil
}

var (
	ErrInvalidToken = errors.New("identity: invalid token")
	ErrForbidden    = errors.New("identity: forbidden")
	ErrNotFound     = errors.New("identity: user not found")
)

type userinfo struct {
	Sub   string `json:"sub"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Resolve exchanges token for the identity it belongs to. 401/403/404 map to
// sentinel errors; 429 and transient 5xx are retried with jittered backoff,
// honoring Retry-After when the provider sends one.
func (c *Client) Resolve(ctx context.Context, token string) (domain.Identity, error) {
	if token == "" {
		return domain.Identity{}, ErrInvalidToken
	}
	if err := c.rl.Wait(ctx); err != nil {
		return domain.Identity{}, err
	}

	url := c.base + "/userinfo"
	var lastErr error
	for i := 0; i < 4; i++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return domain.Identity{}, err
		}
		req.Header.Set("Authorization", "Bearer "+token)
		req.Header.Set("X-API-Key", c.key)
		req.Header.Set("Accept", "application/json")

		start := time.Now()
		resp, err := c.hc.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return domain.Identity{}, ctx.Err()
			}
			lastErr = err
			if i < 3 && sleepCtx(ctx, backoff(i)) {
				continue
			}
			return domain.Identity{}, lastErr
		}
		observability.ObserveExternal("identity", "userinfo", resp.StatusCode, time.Since(start))

		switch resp.StatusCode {
		case http.StatusOK:
			var ui userinfo
			err := json.NewDecoder(resp.Body).Decode(&ui)
			resp.Body.Close()
			if err != nil {
				return domain.Identity{}, fmt.Errorf("decode userinfo: %w", err)
			}
			if ui.Sub == "" {
				return domain.Identity{}, fmt.Errorf("userinfo missing sub")
			}
			return domain.Identity{UserID: ui.Sub, Name: ui.Name, Email: ui.Email}, nil

		case http.StatusUnauthorized:
			resp.Body.Close()
			return domain.Identity{}, ErrInvalidToken

		case http.StatusForbidden:
			resp.Body.Close()
			return domain.Identity{}, ErrForbidden

		case http.StatusNotFound:
			resp.Body.Close()
			return domain.Identity{}, ErrNotFound

		case http.StatusTooManyRequests, http.StatusInternalServerError,
			http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
			wait := retryAfter(resp)
			resp.Body.Close()
			if wait == 0 {
				wait = backoff(i)
			}
			lastErr = fmt.Errorf("identity provider %d", resp.StatusCode)
			if i < 3 && sleepCtx(ctx, wait) {
				continue
			}
			if ctx.Err() != nil {
				return domain.Identity{}, ctx.Err()
			}
			return domain.Identity{}, lastErr

		default:
			b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
			resp.Body.Close()
			return domain.Identity{}, fmt.Errorf("identity provider status %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
		}
	}

	return domain.Identity{}, lastErr
}

// sleepCtx waits for d or returns early if ctx is done.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// retryAfter parses Retry-After (seconds or HTTP-date). Returns 0 if absent.
func retryAfter(resp *http.Response) time.Duration {
	h := resp.Header.Get("Retry-After")
	if h == "" {
		return 0
	}
	if secs, err := strconv.Atoi(strings.TrimSpace(h)); err == nil && secs >= 0 {
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(h); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
	}
	return 0
}

// backoff doubles per attempt starting at 150ms with up to +50% jitter.
func backoff(i int) time.Duration {
	base := time.Duration(1<<i) * 150 * time.Millisecond
	var b [1]byte
	if _, err := crand.Read(b[:]); err != nil {
		return base
	}
	f := float64(b[0]) / 255.0
	return base + time.Duration(0.5*f*float64(base))
}
