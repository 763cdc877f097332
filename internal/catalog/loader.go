package catalog

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/hitoshi/watchfav/internal/favorites"
	"github.com/hitoshi/watchfav/internal/model"
	"github.com/hitoshi/watchfav/internal/security"
)

//go:embed data/watches.json
var defaultCatalog []byte

//go:embed data/catalog.schema.json
var catalogSchema []byte

const schemaURL = "catalog.schema.json"

// Fetcher はリモートのカタログ文書を取得する。
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string) ([]byte, error)
}

// Loader はカタログ文書を検証し、StaticProviderを組み立てる。
type Loader struct {
	fetcher   Fetcher
	sanitizer *security.TextSanitizer
	schema    *jsonschema.Schema
	logger    *slog.Logger
}

// NewLoader はLoaderを生成する。fetcherがnilの場合はURLからの読み込みを拒否する。
func NewLoader(fetcher Fetcher, logger *slog.Logger) (*Loader, error) {
	if logger == nil {
		logger = slog.Default()
	}
	compiler := jsonschema.NewCompiler()
	compiler.Draft = jsonschema.Draft7
	compiler.AssertFormat = true
	if err := compiler.AddResource(schemaURL, bytes.NewReader(catalogSchema)); err != nil {
		return nil, fmt.Errorf("failed to add catalog schema: %w", err)
	}
	schema, err := compiler.Compile(schemaURL)
	if err != nil {
		return nil, fmt.Errorf("failed to compile catalog schema: %w", err)
	}
	return &Loader{
		fetcher:   fetcher,
		sanitizer: security.NewTextSanitizer(),
		schema:    schema,
		logger:    logger,
	}, nil
}

// Load はsourceからカタログを読み込む。
// sourceが空なら組み込みカタログ、http(s)://で始まればURL、それ以外はファイルパスとして扱う。
// 失敗した場合はCATALOG_UNAVAILABLEを返す。
func (l *Loader) Load(ctx context.Context, source string) (*StaticProvider, error) {
	doc, origin, err := l.read(ctx, source)
	if err != nil {
		return nil, model.NewCatalogUnavailableError(err)
	}

	p, err := l.Parse(doc)
	if err != nil {
		return nil, model.NewCatalogUnavailableError(fmt.Errorf("%s: %w", origin, err))
	}

	l.logger.Info("catalog loaded",
		slog.String("source", origin),
		slog.Int("count", p.Len()),
	)
	return p, nil
}

func (l *Loader) read(ctx context.Context, source string) ([]byte, string, error) {
	switch {
	case source == "":
		return defaultCatalog, "embedded", nil
	case strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://"):
		if l.fetcher == nil {
			return nil, source, fmt.Errorf("remote catalog is not enabled: %s", source)
		}
		body, err := l.fetcher.Fetch(ctx, source)
		if err != nil {
			return nil, source, err
		}
		return body, source, nil
	default:
		path := strings.TrimPrefix(source, "file://")
		body, err := os.ReadFile(path)
		if err != nil {
			return nil, path, fmt.Errorf("failed to read catalog file: %w", err)
		}
		return body, path, nil
	}
}

// Parse はカタログ文書をスキーマで検証し、表示文字列を無害化してStaticProviderを返す。
func (l *Loader) Parse(doc []byte) (*StaticProvider, error) {
	var v any
	if err := json.Unmarshal(doc, &v); err != nil {
		return nil, fmt.Errorf("invalid catalog json: %w", err)
	}
	if err := l.schema.Validate(v); err != nil {
		return nil, fmt.Errorf("catalog does not match schema: %w", err)
	}

	items, report, err := favorites.Decode(string(doc))
	if err != nil {
		return nil, err
	}
	if report.DuplicatesDropped > 0 {
		return nil, model.NewInvalidWatchError(fmt.Sprintf("catalog contains %d duplicate ids", report.DuplicatesDropped))
	}

	for i := range items {
		l.sanitize(&items[i])
	}
	return NewStaticProvider(items)
}

func (l *Loader) sanitize(w *model.WatchItem) {
	w.WatchName = l.sanitizer.Text(w.WatchName)
	w.BrandName = l.sanitizer.Text(w.BrandName)
	w.Description = l.sanitizer.Text(w.Description)
	w.Image = l.sanitizer.ImageURL(w.Image)
	for i := range w.Feedbacks {
		w.Feedbacks[i].Author = l.sanitizer.Text(w.Feedbacks[i].Author)
		w.Feedbacks[i].Comment = l.sanitizer.Text(w.Feedbacks[i].Comment)
	}
}
