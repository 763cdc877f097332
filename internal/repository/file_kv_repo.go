package repository

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
)

var fileKeyPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]{0,127}$`)

// FileKVRepo はキーごとに1ファイルを使用するローカルディスク媒体。
// 書き込みは一時ファイルへ書いてからrenameするため、読み手が書きかけの値を見ることはない。
type FileKVRepo struct {
	dir string
}

// NewFileKVRepo はdirを作成してFileKVRepoを生成する。
func NewFileKVRepo(dir string) (*FileKVRepo, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("保存ディレクトリの作成に失敗しました: %w", err)
	}
	return &FileKVRepo{dir: dir}, nil
}

func (r *FileKVRepo) path(key string) (string, error) {
	if !fileKeyPattern.MatchString(key) {
		return "", fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	return filepath.Join(r.dir, key+".json"), nil
}

// Read はkeyのファイル内容を返す。
func (r *FileKVRepo) Read(ctx context.Context, key string) (string, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, err
	}
	p, err := r.path(key)
	if err != nil {
		return "", false, err
	}
	b, err := os.ReadFile(p)
	if errors.Is(err, fs.ErrNotExist) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("ファイルの読み込みに失敗しました: %w", err)
	}
	return string(b), true, nil
}

// Write はkeyのファイルをアトミックに置き換える。
func (r *FileKVRepo) Write(ctx context.Context, key, value string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p, err := r.path(key)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(r.dir, "."+key+".*.tmp")
	if err != nil {
		return fmt.Errorf("一時ファイルの作成に失敗しました: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // rename成功後は存在しないので無視される

	if _, err := tmp.WriteString(value); err != nil {
		tmp.Close()
		return fmt.Errorf("一時ファイルへの書き込みに失敗しました: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("一時ファイルの同期に失敗しました: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("一時ファイルのクローズに失敗しました: %w", err)
	}
	if err := os.Rename(tmpName, p); err != nil {
		return fmt.Errorf("ファイルの置き換えに失敗しました: %w", err)
	}
	return nil
}

// Delete はkeyのファイルを削除する。
func (r *FileKVRepo) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p, err := r.path(key)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("ファイルの削除に失敗しました: %w", err)
	}
	return nil
}

// Ping は保存ディレクトリが存在しディレクトリであることを確認する。
func (r *FileKVRepo) Ping(ctx context.Context) error {
	info, err := os.Stat(r.dir)
	if err != nil {
		return fmt.Errorf("保存ディレクトリを確認できません: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("保存先がディレクトリではありません: %s", r.dir)
	}
	return nil
}
