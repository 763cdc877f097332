package security

import "time"

// FetchResult はHTTPステータスコードに基づく取得結果の分類。
type FetchResult int

const (
	// FetchResultOK は取得成功（2xx）。
	FetchResultOK FetchResult = iota
	// FetchResultStop は再試行しても結果が変わらないステータス（404/410/401/403など）。
	FetchResultStop
	// FetchResultBackoff は待ってから再試行すべきステータス（429/5xx）。
	FetchResultBackoff
)

// ClassifyHTTPStatus はHTTPステータスコードを取得結果に分類する。
func ClassifyHTTPStatus(statusCode int) FetchResult {
	switch {
	case statusCode >= 200 && statusCode < 300:
		return FetchResultOK
	case statusCode == 429:
		return FetchResultBackoff
	case statusCode >= 500:
		return FetchResultBackoff
	default:
		return FetchResultStop
	}
}

// RetryPolicy はリモートカタログ取得の再試行方針。
// MaxAttemptsが1以下の場合は再試行しない。
type RetryPolicy struct {
	MaxAttempts    int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

// DefaultRetryPolicy は起動時のカタログ取得向けの方針を返す。
// 最大3回、初回200ms、2倍ずつ増加、最大2秒。
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:    3,
		InitialBackoff: 200 * time.Millisecond,
		MaxBackoff:     2 * time.Second,
	}
}

// Backoff は失敗回数に基づいて次の試行までの待ち時間を計算する。
func (p RetryPolicy) Backoff(failures int) time.Duration {
	delay := p.InitialBackoff
	for i := 1; i < failures; i++ {
		delay *= 2
		if p.MaxBackoff > 0 && delay > p.MaxBackoff {
			return p.MaxBackoff
		}
	}
	return delay
}

func (p RetryPolicy) attempts() int {
	if p.MaxAttempts < 1 {
		return 1
	}
	return p.MaxAttempts
}
