package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/John-Robertt/volby/internal/config"
	"github.com/John-Robertt/volby/internal/feed"
	"github.com/John-Robertt/volby/internal/infra/cache"
)

// storedArgs 是 show/query 共用的参数：读取 <data_dir> 下已保存的数据。
type storedArgs struct {
	DataDir    string
	ConfigPath string
	Raw        bool
	Pos        []string
}

func parseStoredArgs(args []string, allowRaw bool) (storedArgs, error) {
	sa := storedArgs{}
	for i := 0; i < len(args); i++ {
		a := args[i]
		name, val, hasVal := strings.Cut(a, "=")
		switch name {
		case "--data-dir", "--config":
			if !hasVal {
				if i+1 >= len(args) {
					return storedArgs{}, fmt.Errorf("%s 需要一个值", name)
				}
				i++
				val = args[i]
			}
			if strings.TrimSpace(val) == "" {
				return storedArgs{}, fmt.Errorf("%s 不能为空", name)
			}
			if name == "--data-dir" {
				sa.DataDir = val
			} else {
				sa.ConfigPath = val
			}
		case "--raw":
			if !allowRaw || hasVal {
				return storedArgs{}, fmt.Errorf("未知参数 %q", a)
			}
			sa.Raw = true
		default:
			if strings.HasPrefix(a, "-") {
				return storedArgs{}, fmt.Errorf("未知参数 %q", a)
			}
			sa.Pos = append(sa.Pos, a)
		}
	}
	return sa, nil
}

func loadStoredConfig(sa storedArgs, getenv func(string) string) (config.EffectiveConfig, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return config.EffectiveConfig{}, fmt.Errorf("读取当前目录失败：%w", err)
	}
	return config.LoadEffective(cwd, config.CLIArgs{
		DataDir:    sa.DataDir,
		ConfigPath: sa.ConfigPath,
	}, getenv)
}

// showCmd 输出 <data_dir>/snapshots 下保存的最新快照：默认是解析后的 JSON，--raw 时是原始 XML。
func showCmd(args []string, getenv func(string) string, stdout, stderr io.Writer) int {
	for _, a := range args {
		if isHelp(a) {
			printUsage(stdout)
			return 0
		}
	}
	sa, err := parseStoredArgs(args, true)
	if err == nil && (len(sa.Pos) < 1 || len(sa.Pos) > 2) {
		err = fmt.Errorf("需要 <kind> [key]，实际 %d 个参数", len(sa.Pos))
	}
	if err != nil {
		fmt.Fprintf(stderr, "参数错误：%v\n\n", err)
		printUsage(stderr)
		return 2
	}
	kind, key := sa.Pos[0], feed.LatestKey
	if len(sa.Pos) == 2 {
		key = strings.TrimSpace(sa.Pos[1])
	}

	eff, err := loadStoredConfig(sa, getenv)
	if err != nil {
		fmt.Fprintf(stderr, "%v\n", err)
		return 1
	}

	snaps := cache.New(eff.DataDir, true)
	read := snaps.ReadJSON
	if sa.Raw {
		read = snaps.ReadRaw
	}
	b, ok, err := read(kind, key)
	if err != nil {
		fmt.Fprintf(stderr, "读取快照失败：%v\n", err)
		return 1
	}
	if !ok {
		fmt.Fprintf(stderr, "快照不存在：%s/%s（先运行 volby run --apply）\n", kind, key)
		return 1
	}
	if _, err := stdout.Write(b); err != nil {
		fmt.Fprintf(stderr, "输出失败：%v\n", err)
		return 1
	}
	return 0
}
