// Package favorites はお気に入りの永続化ストアと一括削除用の選択セッションを提供する。
package favorites

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/hitoshi/watchfav/internal/model"
)

// 保存形式のレビュー日付として受け付けるレイアウト。書き込みは常にRFC3339。
var feedbackDateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	time.DateOnly,
}

type storedFeedback struct {
	Author  string          `json:"author"`
	Date    json.RawMessage `json:"date"`
	Comment string          `json:"comment"`
	Rating  json.Number     `json:"rating"`
}

type storedWatch struct {
	ID          json.RawMessage  `json:"id"`
	WatchName   string           `json:"watchName"`
	BrandName   string           `json:"brandName"`
	Price       json.Number      `json:"price"`
	Image       string           `json:"image"`
	Description string           `json:"description"`
	IsAutomatic *bool            `json:"isAutomatic,omitempty"`
	Feedbacks   []storedFeedback `json:"feedbacks"`
}

// DecodeReport はDecode中に行った修復の件数を表す。
type DecodeReport struct {
	DuplicatesDropped int // 重複IDのため捨てたエントリ数（先勝ち）
	MissingIDDropped  int // idが無いため捨てたエントリ数
}

// Repaired は修復が1件でも行われたかを返す。
func (r DecodeReport) Repaired() bool {
	return r.DuplicatesDropped > 0 || r.MissingIDDropped > 0
}

// Encode はコレクションをJSON配列に変換する。
func Encode(c model.FavoritesCollection) (string, error) {
	out := make([]model.WatchItem, len(c))
	for i, w := range c {
		out[i] = w.Snapshot()
	}
	b, err := json.Marshal(out)
	if err != nil {
		return "", fmt.Errorf("お気に入りのシリアライズに失敗しました: %w", err)
	}
	return string(b), nil
}

// Decode は保存済みのJSON配列をコレクションに変換する。
// 重複IDは最初の出現を残し、idの無いエントリは捨てる。
// 配列として解釈できない場合はDESERIALIZATION_FAILEDを返す。
func Decode(raw string) (model.FavoritesCollection, DecodeReport, error) {
	var report DecodeReport

	trimmed := bytes.TrimSpace([]byte(raw))
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return model.FavoritesCollection{}, report, nil
	}

	dec := json.NewDecoder(bytes.NewReader(trimmed))
	dec.UseNumber()

	var stored []storedWatch
	if err := dec.Decode(&stored); err != nil {
		return model.FavoritesCollection{}, report, model.NewDeserializationFailedError(err)
	}
	if dec.More() {
		return model.FavoritesCollection{}, report, model.NewDeserializationFailedError(errors.New("trailing data after array"))
	}

	out := make(model.FavoritesCollection, 0, len(stored))
	seen := make(map[string]struct{}, len(stored))
	for i, sw := range stored {
		id, err := decodeID(sw.ID)
		if err != nil {
			return model.FavoritesCollection{}, report, model.NewDeserializationFailedError(fmt.Errorf("entry %d: %w", i, err))
		}
		if id == "" {
			report.MissingIDDropped++
			continue
		}
		if _, dup := seen[id]; dup {
			report.DuplicatesDropped++
			continue
		}
		seen[id] = struct{}{}

		w, err := toWatchItem(id, sw)
		if err != nil {
			return model.FavoritesCollection{}, report, model.NewDeserializationFailedError(fmt.Errorf("entry %d: %w", i, err))
		}
		out = append(out, w)
	}
	return out, report, nil
}

// decodeID は文字列または数値のidを文字列として返す。
func decodeID(raw json.RawMessage) (string, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return "", nil
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return "", fmt.Errorf("invalid id: %w", err)
		}
		return s, nil
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return "", fmt.Errorf("id must be a string or number: %s", raw)
	}
	return n.String(), nil
}

func toWatchItem(id string, sw storedWatch) (model.WatchItem, error) {
	w := model.WatchItem{
		ID:          id,
		WatchName:   sw.WatchName,
		BrandName:   sw.BrandName,
		Image:       sw.Image,
		Description: sw.Description,
		IsAutomatic: sw.IsAutomatic,
		Feedbacks:   make([]model.Feedback, 0, len(sw.Feedbacks)),
	}

	if sw.Price != "" {
		p, err := sw.Price.Float64()
		if err != nil {
			return model.WatchItem{}, fmt.Errorf("invalid price %q: %w", sw.Price, err)
		}
		if p < 0 {
			p = 0
		}
		w.Price = p
	}

	for j, sf := range sw.Feedbacks {
		fb := model.Feedback{Author: sf.Author, Comment: sf.Comment}

		date, err := decodeDate(sf.Date)
		if err != nil {
			return model.WatchItem{}, fmt.Errorf("feedbacks[%d]: %w", j, err)
		}
		fb.Date = date

		if sf.Rating != "" {
			r, err := strconv.ParseFloat(sf.Rating.String(), 64)
			if err != nil {
				return model.WatchItem{}, fmt.Errorf("feedbacks[%d]: invalid rating %q", j, sf.Rating)
			}
			fb.Rating = clampRating(r)
		}
		w.Feedbacks = append(w.Feedbacks, fb)
	}
	return w, nil
}

// decodeDate はRFC3339文字列、日付のみの文字列、エポックミリ秒を受け付ける。
func decodeDate(raw json.RawMessage) (time.Time, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return time.Time{}, nil
	}
	if raw[0] != '"' {
		var n json.Number
		if err := json.Unmarshal(raw, &n); err != nil {
			return time.Time{}, fmt.Errorf("invalid date: %s", raw)
		}
		ms, err := n.Int64()
		if err != nil {
			return time.Time{}, fmt.Errorf("invalid date: %s", raw)
		}
		return time.UnixMilli(ms).UTC(), nil
	}

	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return time.Time{}, fmt.Errorf("invalid date: %w", err)
	}
	if s == "" {
		return time.Time{}, nil
	}
	for _, layout := range feedbackDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date format: %q", s)
}

// clampRating は整数へ変換する前に範囲へ丸める。巨大な値やNaNでもオーバーフローしない。
func clampRating(r float64) int {
	switch {
	case math.IsNaN(r) || r < model.MinRating:
		return model.MinRating
	case r > model.MaxRating:
		return model.MaxRating
	default:
		return int(r)
	}
}
