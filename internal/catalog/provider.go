// Package catalog は閲覧対象となる時計カタログを提供する。
// カタログは読み取り専用で、起動時に1度だけ読み込む。
package catalog

import (
	"fmt"

	"github.com/hitoshi/watchfav/internal/model"
)

// Provider は時計カタログへの読み取り専用アクセスを提供する。
type Provider interface {
	GetAll() []model.WatchItem
	FindByID(id string) (model.WatchItem, bool)
}

// StaticProvider はメモリ上に保持した固定のカタログ。
// 返す値はすべてコピーで、呼び出し元が変更してもカタログには影響しない。
type StaticProvider struct {
	items []model.WatchItem
	index map[string]int
}

// NewStaticProvider はitemsからStaticProviderを生成する。
// IDの重複や不正なエントリがある場合はエラーを返す。
func NewStaticProvider(items []model.WatchItem) (*StaticProvider, error) {
	p := &StaticProvider{
		items: make([]model.WatchItem, 0, len(items)),
		index: make(map[string]int, len(items)),
	}
	for i, it := range items {
		if err := it.Validate(); err != nil {
			return nil, fmt.Errorf("catalog entry %d: %w", i, err)
		}
		if _, dup := p.index[it.ID]; dup {
			return nil, model.NewInvalidWatchError(fmt.Sprintf("duplicate catalog id: %s", it.ID))
		}
		p.index[it.ID] = len(p.items)
		p.items = append(p.items, it.Snapshot())
	}
	return p, nil
}

// GetAll はカタログ順にすべての時計を返す。
func (p *StaticProvider) GetAll() []model.WatchItem {
	out := make([]model.WatchItem, len(p.items))
	for i, it := range p.items {
		out[i] = it.Snapshot()
	}
	return out
}

// FindByID はidの時計を返す。
func (p *StaticProvider) FindByID(id string) (model.WatchItem, bool) {
	i, ok := p.index[id]
	if !ok {
		return model.WatchItem{}, false
	}
	return p.items[i].Snapshot(), true
}

// Len はカタログの件数を返す。
func (p *StaticProvider) Len() int {
	return len(p.items)
}
