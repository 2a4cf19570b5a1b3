// Package store 把解析结果写入 SQLite（modernc.org/sqlite，纯 Go 驱动）。
//
// 约束：
// - 每个快照（一次抓取到的一份文档）在一个事务中写入：要么全部可见，要么全部不可见
// - 同一 (kind, key, digest) 重复保存是 no-op
// - 单连接（SQLite 单写者）；并发调用由 database/sql 串行化
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/John-Robertt/volby/internal/domain"
)

// 层级常量（progress/units/party_results 的 level 列）。
const (
	LevelNational = "national"
	LevelRegion   = "kraj"
	LevelDistrict = "okres"
	LevelMunicip  = "obec"
	LevelUnit     = "okrsek"
	LevelOverseas = "zahranici"
	LevelCountry  = "stat"
)

type Store struct {
	db  *sql.DB
	log *zap.Logger
}

// Open 打开（必要时创建）path 处的数据库并确保 schema 存在。path 为 ":memory:" 时使用内存库。
func Open(path string, log *zap.Logger) (*Store, error) {
	if log == nil {
		log = zap.NewNop()
	}
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("database 路径不能为空")
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, err
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("打开数据库失败：%w", err)
	}
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{"PRAGMA foreign_keys = ON", "PRAGMA busy_timeout = 5000"} {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("%s：%w", pragma, err)
		}
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("创建数据表失败：%w", err)
	}
	log.Debug("数据库已就绪", zap.String("path", path))
	return &Store{db: db, log: log}, nil
}

func (s *Store) Close() error { return s.db.Close() }

// Meta 描述一个快照的来源。
type Meta struct {
	RunID       string
	Kind        string
	Key         string
	URL         string
	Digest      string
	GeneratedAt string
	FetchedAt   time.Time
}

// Save 在一个事务中写入快照及其解析结果。
//
// v 的类型必须是 feed.Parse 返回的五种之一。返回 saved=false 表示该内容已存在（未写入）。
func (s *Store) Save(ctx context.Context, m Meta, v any) (saved bool, err error) {
	if m.Kind == "" || m.Key == "" || m.Digest == "" {
		return false, errors.New("snapshot 的 kind/key/digest 不能为空")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	res, err := tx.ExecContext(ctx,
		`INSERT INTO snapshots (run_id, kind, key, url, digest, generated_at, fetched_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(kind, key, digest) DO NOTHING`,
		m.RunID, m.Kind, m.Key, m.URL, m.Digest, m.GeneratedAt, m.FetchedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if n == 0 {
		err = tx.Rollback()
		return false, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return false, err
	}

	w := writer{ctx: ctx, tx: tx, id: id}
	switch r := v.(type) {
	case domain.NationalResult:
		err = w.national(r)
	case domain.DistrictResult:
		err = w.district(r)
	case []domain.Candidate:
		err = w.candidates(r)
	case domain.OverseasResult:
		err = w.overseas(r)
	case domain.BatchResult:
		err = w.batch(r)
	default:
		err = fmt.Errorf("不支持的结果类型：%T", v)
	}
	if err != nil {
		return false, err
	}
	if err = tx.Commit(); err != nil {
		return false, err
	}
	s.log.Debug("快照已写入数据库", zap.String("kind", m.Kind), zap.String("key", m.Key), zap.Int64("snapshot_id", id))
	return true, nil
}
