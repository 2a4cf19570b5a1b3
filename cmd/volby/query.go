package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/John-Robertt/volby/internal/domain"
	"github.com/John-Robertt/volby/internal/infra/logx"
	"github.com/John-Robertt/volby/internal/store"
)

var queryLevels = map[string]bool{
	store.LevelNational: true,
	store.LevelRegion:   true,
	store.LevelDistrict: true,
	store.LevelMunicip:  true,
	store.LevelUnit:     true,
	store.LevelOverseas: true,
	store.LevelCountry:  true,
}

type queryParty struct {
	Code       string   `json:"code"`
	Name       string   `json:"name"`
	Votes      int      `json:"votes"`
	Percentage *float64 `json:"percentage"`
}

type queryResult struct {
	Level    string           `json:"level"`
	Unit     string           `json:"unit"`
	Progress *domain.Progress `json:"progress"`
	Parties  []queryParty     `json:"parties"`
}

// queryCmd 从 SQLite 读取某层级单位最新的计票进度与政党结果，输出 JSON。
func queryCmd(args []string, getenv func(string) string, stdout, stderr io.Writer) int {
	for _, a := range args {
		if isHelp(a) {
			printUsage(stdout)
			return 0
		}
	}
	sa, err := parseStoredArgs(args, false)
	if err == nil && (len(sa.Pos) < 1 || len(sa.Pos) > 2) {
		err = fmt.Errorf("需要 <level> [unit]，实际 %d 个参数", len(sa.Pos))
	}
	if err == nil && !queryLevels[sa.Pos[0]] {
		err = fmt.Errorf("未知 level %q", sa.Pos[0])
	}
	if err != nil {
		fmt.Fprintf(stderr, "参数错误：%v\n\n", err)
		printUsage(stderr)
		return 2
	}
	level, unit := sa.Pos[0], ""
	if len(sa.Pos) == 2 {
		unit = strings.ToUpper(strings.TrimSpace(sa.Pos[1]))
	}

	eff, err := loadStoredConfig(sa, getenv)
	if err != nil {
		fmt.Fprintf(stderr, "%v\n", err)
		return 1
	}
	if eff.DatabasePath == "" {
		fmt.Fprintln(stderr, "数据库已关闭（database=off）")
		return 1
	}
	// store.Open 会创建空库；查询不应留下副作用。
	if _, err := os.Stat(eff.DatabasePath); err != nil {
		fmt.Fprintf(stderr, "数据库不存在：%s（先运行 volby run --apply）\n", eff.DatabasePath)
		return 1
	}

	log, err := logx.New(eff.LogLevel, stderr)
	if err != nil {
		fmt.Fprintf(stderr, "初始化日志失败：%v\n", err)
		return 1
	}
	defer func() { _ = log.Sync() }()

	db, err := store.Open(eff.DatabasePath, log)
	if err != nil {
		fmt.Fprintf(stderr, "%v\n", err)
		return 1
	}
	defer db.Close()

	ctx := context.Background()
	res := queryResult{Level: level, Unit: unit}
	p, ok, err := db.LatestProgress(ctx, level, unit)
	if err != nil {
		fmt.Fprintf(stderr, "查询失败：%v\n", err)
		return 1
	}
	if ok {
		res.Progress = &p
	}
	rows, err := db.LatestParties(ctx, level, unit)
	if err != nil {
		fmt.Fprintf(stderr, "查询失败：%v\n", err)
		return 1
	}
	res.Parties = make([]queryParty, 0, len(rows))
	for _, r := range rows {
		qp := queryParty{Code: r.Code, Name: r.Name, Votes: r.Votes}
		if r.Percentage.Valid {
			pct := r.Percentage.Float64
			qp.Percentage = &pct
		}
		res.Parties = append(res.Parties, qp)
	}

	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(res); err != nil {
		fmt.Fprintf(stderr, "输出失败：%v\n", err)
		return 1
	}
	return 0
}
