// Package security はカタログ取得時のSSRF防止とテキストのサニタイズを提供する。
package security

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/netip"
	"net/url"
	"strings"
	"time"

	"github.com/doyensec/safeurl"
)

// ErrResponseTooLarge は応答がサイズ上限を超えた場合に返される。
var ErrResponseTooLarge = errors.New("response exceeds size limit")

// allowedSchemes はリモートカタログで許可するURLスキーム。
var allowedSchemes = []string{"http", "https"}

// blockedPrefixes は事前検証で拒否するアドレス範囲。
// 実際の接続はsafeurlがDNS解決後のIPで再検証する。
var blockedPrefixes = []netip.Prefix{
	netip.MustParsePrefix("10.0.0.0/8"),
	netip.MustParsePrefix("172.16.0.0/12"),
	netip.MustParsePrefix("192.168.0.0/16"),
	netip.MustParsePrefix("127.0.0.0/8"),
	netip.MustParsePrefix("169.254.0.0/16"),
	netip.MustParsePrefix("0.0.0.0/8"),
	netip.MustParsePrefix("::1/128"),
	netip.MustParsePrefix("fe80::/10"),
	netip.MustParsePrefix("fc00::/7"),
}

// SafeFetcher はプライベートネットワークへ到達できないHTTPクライアントで
// リモートのカタログ文書を取得する。
type SafeFetcher struct {
	client  *http.Client
	maxSize int64
	retry   RetryPolicy
}

// NewSafeFetcher はsafeurlで保護されたクライアントを持つSafeFetcherを生成する。
// 80/443以外のポート、プライベートIP、ループバック、リンクローカル宛の接続は拒否される。
func NewSafeFetcher(timeout time.Duration, maxSize int64) *SafeFetcher {
	config := safeurl.GetConfigBuilder().
		SetTimeout(timeout).
		SetAllowedSchemes(allowedSchemes...).
		SetAllowedPorts(80, 443).
		Build()

	return &SafeFetcher{
		client:  safeurl.Client(config).Client,
		maxSize: maxSize,
		retry:   DefaultRetryPolicy(),
	}
}

// WithRetryPolicy は再試行方針を差し替えたSafeFetcherを返す。
func (f *SafeFetcher) WithRetryPolicy(p RetryPolicy) *SafeFetcher {
	cp := *f
	cp.retry = p
	return &cp
}

// ValidateURL はDNS解決を伴わない静的な検証を行う。
func (f *SafeFetcher) ValidateURL(rawURL string) error {
	if rawURL == "" {
		return fmt.Errorf("empty URL")
	}
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}

	scheme := strings.ToLower(parsed.Scheme)
	allowed := false
	for _, s := range allowedSchemes {
		if scheme == s {
			allowed = true
			break
		}
	}
	if !allowed {
		return fmt.Errorf("disallowed scheme: %s (allowed: %v)", scheme, allowedSchemes)
	}

	host := parsed.Hostname()
	if host == "" {
		return fmt.Errorf("empty host in URL: %s", rawURL)
	}
	if strings.EqualFold(host, "localhost") {
		return fmt.Errorf("blocked host: %s", host)
	}
	if addr, err := netip.ParseAddr(host); err == nil {
		addr = addr.Unmap()
		for _, p := range blockedPrefixes {
			if p.Contains(addr) {
				return fmt.Errorf("blocked IP address: %s", addr)
			}
		}
	}
	return nil
}

// errRetryable は再試行してよい失敗を表す。
type errRetryable struct{ err error }

func (e errRetryable) Error() string { return e.err.Error() }
func (e errRetryable) Unwrap() error { return e.err }

// Fetch はrawURLの本文を取得する。
// 429/5xxと通信エラーは再試行方針に従って再試行し、それ以外の2xx以外のステータスと
// サイズ上限超過は即座にエラーになる。
func (f *SafeFetcher) Fetch(ctx context.Context, rawURL string) ([]byte, error) {
	if err := f.ValidateURL(rawURL); err != nil {
		return nil, err
	}

	var lastErr error
	for attempt := 1; attempt <= f.retry.attempts(); attempt++ {
		if attempt > 1 {
			timer := time.NewTimer(f.retry.Backoff(attempt - 1))
			select {
			case <-ctx.Done():
				timer.Stop()
				return nil, fmt.Errorf("fetch cancelled after %d attempts: %w", attempt-1, lastErr)
			case <-timer.C:
			}
		}

		body, err := f.fetchOnce(ctx, rawURL)
		if err == nil {
			return body, nil
		}
		var retryable errRetryable
		if !errors.As(err, &retryable) {
			return nil, err
		}
		lastErr = retryable.err
	}
	return nil, lastErr
}

func (f *SafeFetcher) fetchOnce(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "watchfav/1.0")

	resp, err := f.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("failed to fetch %s: %w", rawURL, err)
		}
		return nil, errRetryable{fmt.Errorf("failed to fetch %s: %w", rawURL, err)}
	}
	defer resp.Body.Close()

	switch ClassifyHTTPStatus(resp.StatusCode) {
	case FetchResultOK:
	case FetchResultBackoff:
		return nil, errRetryable{fmt.Errorf("unexpected status %d from %s", resp.StatusCode, rawURL)}
	default:
		return nil, fmt.Errorf("unexpected status %d from %s", resp.StatusCode, rawURL)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read body: %w", err)
	}
	if int64(len(body)) > f.maxSize {
		return nil, fmt.Errorf("%w: %d bytes", ErrResponseTooLarge, f.maxSize)
	}
	return body, nil
}
