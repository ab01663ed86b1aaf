package platforms

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/shaiso/darkbot/internal/domain"
)

// Report — итог загрузки одного instance.
type Report struct {
	Platforms []string `json:"platforms"`
	Files     []string `json:"files"`
}

// Uploads загружает готовые видео из каталога для instances задачи upload.
//
// Файл относится к instance, если его имя содержит один из аккаунтов
// из под-конфига ("account" — строка или список строк).
type Uploads struct {
	dir       string
	platforms *Set
}

// NewUploads создаёт загрузчик для каталога с видео.
func NewUploads(dir string, platforms *Set) *Uploads {
	return &Uploads{dir: dir, platforms: platforms}
}

// Upload выполняет загрузку для одного под-конфига.
func (u *Uploads) Upload(ctx context.Context, cfg domain.InstanceConfig) (*Report, error) {
	credentials := cfg.Map("credentials")
	if !u.platforms.HasCredentials(credentials) {
		return nil, ErrNoCredentials
	}

	files, err := u.MatchFiles(cfg.Strings("account"))
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, ErrNoFiles
	}

	uploaded, err := u.platforms.UploadAll(ctx, credentials, files)
	if err != nil {
		return nil, err
	}

	return &Report{Platforms: uploaded, Files: files}, nil
}

// MatchFiles возвращает абсолютные пути файлов каталога, относящихся к аккаунтам.
func (u *Uploads) MatchFiles(accounts []string) ([]string, error) {
	entries, err := os.ReadDir(u.dir)
	if err != nil {
		return nil, fmt.Errorf("read videos dir: %w", err)
	}

	matched := make(map[string]struct{})
	for _, account := range accounts {
		if account == "" {
			continue
		}
		for _, e := range entries {
			if e.IsDir() || !strings.Contains(e.Name(), account) {
				continue
			}
			path, err := filepath.Abs(filepath.Join(u.dir, e.Name()))
			if err != nil {
				return nil, fmt.Errorf("resolve %s: %w", e.Name(), err)
			}
			matched[path] = struct{}{}
		}
	}

	files := make([]string, 0, len(matched))
	for f := range matched {
		files = append(files, f)
	}
	sort.Strings(files)
	return files, nil
}
