package model

import (
	"fmt"
	"time"
)

// 評価値の範囲。
const (
	MinRating = 0
	MaxRating = 5
)

// Feedback は時計に寄せられたレビューを表す。
type Feedback struct {
	Author  string    `json:"author"`
	Date    time.Time `json:"date"`
	Comment string    `json:"comment"`
	Rating  int       `json:"rating"` // 0〜5
}

// WatchItem はカタログの時計、またはお気に入り登録時点のスナップショットを表す。
type WatchItem struct {
	ID          string     `json:"id"`
	WatchName   string     `json:"watchName"`
	BrandName   string     `json:"brandName"`
	Price       float64    `json:"price"`
	Image       string     `json:"image"`
	Description string     `json:"description"`
	IsAutomatic *bool      `json:"isAutomatic,omitempty"` // 未設定とfalseを区別する
	Feedbacks   []Feedback `json:"feedbacks"`
}

// Snapshot はカタログエントリのディープコピーを返す。
// お気に入りはカタログの変更に影響されない独立した値として保持する。
func (w WatchItem) Snapshot() WatchItem {
	s := w
	if w.IsAutomatic != nil {
		v := *w.IsAutomatic
		s.IsAutomatic = &v
	}
	if w.Feedbacks != nil {
		s.Feedbacks = make([]Feedback, len(w.Feedbacks))
		copy(s.Feedbacks, w.Feedbacks)
	} else {
		s.Feedbacks = []Feedback{}
	}
	return s
}

// Validate は時計データの不変条件を検証する。
func (w WatchItem) Validate() error {
	if w.ID == "" {
		return NewInvalidWatchError("id is empty")
	}
	if w.Price < 0 {
		return NewInvalidWatchError(fmt.Sprintf("price is negative: %v", w.Price))
	}
	for i, fb := range w.Feedbacks {
		if fb.Rating < MinRating || fb.Rating > MaxRating {
			return NewInvalidWatchError(fmt.Sprintf("feedbacks[%d].rating out of range: %d", i, fb.Rating))
		}
	}
	return nil
}

// FavoritesCollection はお気に入りの順序付き集合。
// 同一IDのエントリは高々1件で、順序は追加順。
type FavoritesCollection []WatchItem

// Contains はidのエントリが存在するかを返す。
func (c FavoritesCollection) Contains(id string) bool {
	return c.IndexOf(id) >= 0
}

// IndexOf はidのエントリの位置を返す。存在しない場合は-1。
func (c FavoritesCollection) IndexOf(id string) int {
	for i, w := range c {
		if w.ID == id {
			return i
		}
	}
	return -1
}

// IDs は追加順のID一覧を返す。
func (c FavoritesCollection) IDs() []string {
	ids := make([]string, len(c))
	for i, w := range c {
		ids[i] = w.ID
	}
	return ids
}

// Clone はコレクションのディープコピーを返す。nilは空のコレクションになる。
func (c FavoritesCollection) Clone() FavoritesCollection {
	out := make(FavoritesCollection, len(c))
	for i, w := range c {
		out[i] = w.Snapshot()
	}
	return out
}

// Without はidsに含まれるエントリを除いた新しいコレクションを返す。
func (c FavoritesCollection) Without(ids map[string]struct{}) FavoritesCollection {
	out := make(FavoritesCollection, 0, len(c))
	for _, w := range c {
		if _, drop := ids[w.ID]; drop {
			continue
		}
		out = append(out, w)
	}
	return out
}
