package repair

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/hitoshi/watchfav/internal/favorites"
	"github.com/hitoshi/watchfav/internal/model"
	"github.com/hitoshi/watchfav/internal/repository"
)

func newTestLogger(buf *bytes.Buffer) *slog.Logger {
	return slog.New(slog.NewJSONHandler(buf, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
}

func TestNewRepairJob_Defaults(t *testing.T) {
	var buf bytes.Buffer
	job := NewRepairJob(repository.NewMemoryKVRepo(), newTestLogger(&buf))

	if job == nil {
		t.Fatal("NewRepairJob は nil を返してはならない")
	}
	if job.Key != favorites.DefaultKey {
		t.Errorf("Key = %q, want %q", job.Key, favorites.DefaultKey)
	}
	if job.Timeout != favorites.DefaultTimeout {
		t.Errorf("Timeout = %v, want %v", job.Timeout, favorites.DefaultTimeout)
	}
}

func TestRepairJob_Run_MissingKeyIsNoop(t *testing.T) {
	var buf bytes.Buffer
	repo := repository.NewMemoryKVRepo()
	job := NewRepairJob(repo, newTestLogger(&buf))

	res, err := job.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() がエラーを返した: %v", err)
	}
	if res.Found || res.Rewritten {
		t.Errorf("res = %+v, want zero result", res)
	}
	if repo.Writes() != 0 {
		t.Errorf("Writes = %d, want 0", repo.Writes())
	}
}

func TestRepairJob_Run_RewritesDuplicatesAndMissingIDs(t *testing.T) {
	var buf bytes.Buffer
	repo := repository.NewMemoryKVRepo()
	repo.Seed(favorites.DefaultKey, `[
		{"id":"1","watchName":"Submariner","brandName":"Rolex","price":9000},
		{"watchName":"No ID","brandName":"X","price":1},
		{"id":"1","watchName":"Duplicate","brandName":"Rolex","price":1},
		{"id":2,"watchName":"Speedmaster","brandName":"Omega","price":6000}
	]`)
	job := NewRepairJob(repo, newTestLogger(&buf))

	res, err := job.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() がエラーを返した: %v", err)
	}
	if !res.Found || !res.Rewritten {
		t.Errorf("res = %+v, want Found and Rewritten", res)
	}
	if res.Entries != 2 || res.DuplicatesDropped != 1 || res.MissingIDDropped != 1 {
		t.Errorf("res = %+v, want 2 entries, 1 duplicate, 1 missing id", res)
	}

	raw, ok, err := repo.Read(context.Background(), favorites.DefaultKey)
	if err != nil || !ok {
		t.Fatalf("Read() = %v, %v", ok, err)
	}
	coll, report, err := favorites.Decode(raw)
	if err != nil {
		t.Fatalf("修復後の値を解釈できない: %v", err)
	}
	if report.Repaired() {
		t.Errorf("修復後の値に修復対象が残っている: %+v", report)
	}
	if got := strings.Join(coll.IDs(), ","); got != "1,2" {
		t.Errorf("IDs = %q, want %q", got, "1,2")
	}
	if coll[0].WatchName != "Submariner" {
		t.Errorf("先勝ちで残すべきエントリ = %q, want Submariner", coll[0].WatchName)
	}
}

func TestRepairJob_Run_CleanValueIsNotRewritten(t *testing.T) {
	var buf bytes.Buffer
	repo := repository.NewMemoryKVRepo()
	repo.Seed(favorites.DefaultKey, `[{"id":"1","watchName":"A","brandName":"B","price":1}]`)
	job := NewRepairJob(repo, newTestLogger(&buf))

	res, err := job.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() がエラーを返した: %v", err)
	}
	if res.Rewritten {
		t.Error("修復不要な値を書き戻してはならない")
	}
	if repo.Writes() != 0 {
		t.Errorf("Writes = %d, want 0", repo.Writes())
	}
}

func TestRepairJob_Run_DeletesEmptyValues(t *testing.T) {
	for _, raw := range []string{"null", "", "  \n"} {
		var buf bytes.Buffer
		repo := repository.NewMemoryKVRepo()
		repo.Seed(favorites.DefaultKey, raw)
		job := NewRepairJob(repo, newTestLogger(&buf))

		res, err := job.Run(context.Background())
		if err != nil {
			t.Fatalf("Run(%q) がエラーを返した: %v", raw, err)
		}
		if !res.Found || !res.Deleted || res.Rewritten {
			t.Errorf("Run(%q) res = %+v, want Found and Deleted", raw, res)
		}
		if _, ok, _ := repo.Read(context.Background(), favorites.DefaultKey); ok {
			t.Errorf("Run(%q) の後もキーが残っている", raw)
		}
		if repo.Writes() != 1 {
			t.Errorf("Run(%q) Writes = %d, want 1", raw, repo.Writes())
		}
	}
}

func TestRepairJob_Run_EmptyArrayIsKept(t *testing.T) {
	var buf bytes.Buffer
	repo := repository.NewMemoryKVRepo()
	repo.Seed(favorites.DefaultKey, "[]")
	job := NewRepairJob(repo, newTestLogger(&buf))

	res, err := job.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() がエラーを返した: %v", err)
	}
	if res.Deleted || res.Rewritten || repo.Writes() != 0 {
		t.Errorf("res = %+v, Writes = %d, want untouched", res, repo.Writes())
	}
}

func TestRepairJob_Run_ReturnsErrorOnDeleteFailure(t *testing.T) {
	var buf bytes.Buffer
	repo := repository.NewMemoryKVRepo()
	repo.Seed(favorites.DefaultKey, "null")
	repo.SetWriteError(errors.New("read-only"))
	job := NewRepairJob(repo, newTestLogger(&buf))

	res, err := job.Run(context.Background())
	if err == nil {
		t.Fatal("削除失敗時にエラーを返すべき")
	}
	if res.Deleted {
		t.Error("削除に失敗した場合はDeletedをfalseにすべき")
	}
}

func TestRepairJob_Run_CorruptValueIsLeftUntouched(t *testing.T) {
	var buf bytes.Buffer
	repo := repository.NewMemoryKVRepo()
	repo.Seed(favorites.DefaultKey, `{not json`)
	job := NewRepairJob(repo, newTestLogger(&buf))

	_, err := job.Run(context.Background())
	if !errors.Is(err, model.ErrDeserializationFailed) {
		t.Fatalf("err = %v, want DESERIALIZATION_FAILED", err)
	}
	if repo.Writes() != 0 {
		t.Errorf("Writes = %d, want 0", repo.Writes())
	}
	raw, _, _ := repo.Read(context.Background(), favorites.DefaultKey)
	if raw != `{not json` {
		t.Errorf("壊れた値が変更された: %q", raw)
	}
}

func TestRepairJob_Run_ReturnsErrorOnReadFailure(t *testing.T) {
	var buf bytes.Buffer
	repo := repository.NewMemoryKVRepo()
	repo.SetReadError(errors.New("disk gone"))
	job := NewRepairJob(repo, newTestLogger(&buf))

	if _, err := job.Run(context.Background()); err == nil {
		t.Fatal("読み込み失敗時にエラーを返すべき")
	}
}

func TestRepairJob_Run_ReturnsErrorOnWriteFailure(t *testing.T) {
	var buf bytes.Buffer
	repo := repository.NewMemoryKVRepo()
	repo.Seed(favorites.DefaultKey, `[{"id":"1"},{"id":"1"}]`)
	repo.SetWriteError(errors.New("read-only"))
	job := NewRepairJob(repo, newTestLogger(&buf))

	res, err := job.Run(context.Background())
	if err == nil {
		t.Fatal("書き込み失敗時にエラーを返すべき")
	}
	if res.Rewritten {
		t.Error("書き込みに失敗した場合はRewrittenをfalseにすべき")
	}
}

func TestRepairJob_Run_LogsCounts(t *testing.T) {
	var buf bytes.Buffer
	repo := repository.NewMemoryKVRepo()
	repo.Seed(favorites.DefaultKey, `[{"id":"1"},{"id":"1"},{"id":"2"}]`)
	job := NewRepairJob(repo, newTestLogger(&buf))

	if _, err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run() がエラーを返した: %v", err)
	}

	found := false
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		var entry map[string]interface{}
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			continue
		}
		if entry["duplicates_dropped"] == float64(1) && entry["entries"] == float64(2) {
			found = true
			break
		}
	}
	if !found {
		t.Errorf("ログに duplicates_dropped=1, entries=2 が記録されていない。ログ出力: %s", buf.String())
	}
}
