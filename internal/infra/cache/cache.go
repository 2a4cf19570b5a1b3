package cache

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/John-Robertt/volby/internal/infra/fsx"
)

// Store 提供 <data_dir>/snapshots/ 下的快照读写：每个 (kind, key) 一份原始 XML 与一份解析后的 JSON。
//
// 约束：
// - 非 apply 模式：只允许读（ReadOnly=true）
// - apply 模式：允许写，写入是原子替换
type Store struct {
	Root     string // <data_dir>
	ReadOnly bool
}

var ErrReadOnly = errors.New("cache: read-only")

func New(root string, readOnly bool) Store {
	return Store{
		Root:     filepath.Clean(strings.TrimSpace(root)),
		ReadOnly: readOnly,
	}
}

const (
	extRaw  = ".xml"
	extJSON = ".json"
)

// RawPath 返回原始 XML 快照的路径。
func (s Store) RawPath(kind, key string) (string, error) {
	return s.path(kind, key, extRaw)
}

func (s Store) ReadRaw(kind, key string) ([]byte, bool, error) {
	return s.read(kind, key, extRaw)
}

func (s Store) ReadJSON(kind, key string) ([]byte, bool, error) {
	return s.read(kind, key, extJSON)
}

func (s Store) WriteRaw(kind, key string, data []byte) error {
	return s.write(kind, key, extRaw, data)
}

// WriteJSON 把 v 编码为缩进 JSON 后写入。
func (s Store) WriteJSON(kind, key string, v any) error {
	if s.ReadOnly {
		return ErrReadOnly
	}
	path, err := s.path(kind, key, extJSON)
	if err != nil {
		return err
	}
	return fsx.WriteJSON(filepath.Dir(path), filepath.Base(path), v)
}

func (s Store) path(kind, key, ext string) (string, error) {
	k, err := cleanKind(kind)
	if err != nil {
		return "", err
	}
	if err := checkKey(key); err != nil {
		return "", err
	}
	return filepath.Join(s.Root, "snapshots", k, key+ext), nil
}

func (s Store) read(kind, key, ext string) ([]byte, bool, error) {
	path, err := s.path(kind, key, ext)
	if err != nil {
		return nil, false, err
	}
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return b, true, nil
}

func (s Store) write(kind, key, ext string, data []byte) error {
	if s.ReadOnly {
		return ErrReadOnly
	}
	path, err := s.path(kind, key, ext)
	if err != nil {
		return err
	}
	return fsx.WriteFile(filepath.Dir(path), filepath.Base(path), data)
}

var (
	kindRE = regexp.MustCompile(`^[a-z0-9_]+$`)
	keyRE  = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)
)

func cleanKind(k string) (string, error) {
	k = strings.ToLower(strings.TrimSpace(k))
	if k == "" {
		return "", fmt.Errorf("kind 不能为空")
	}
	if !kindRE.MatchString(k) {
		return "", fmt.Errorf("非法 kind：%q", k)
	}
	return k, nil
}

// checkKey 只允许字母数字、下划线与连字符（okres 代码如 "210A"、批次如 "okrsky_0012"），杜绝路径穿越。
func checkKey(key string) error {
	if key == "" {
		return fmt.Errorf("key 不能为空")
	}
	if !keyRE.MatchString(key) {
		return fmt.Errorf("非法 key：%q", key)
	}
	return nil
}
