package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/John-Robertt/volby/internal/app/run"
	"github.com/John-Robertt/volby/internal/config"
	"github.com/John-Robertt/volby/internal/domain"
	"github.com/John-Robertt/volby/internal/infra/fsx"
	"github.com/John-Robertt/volby/internal/infra/logx"
)

func main() {
	loadDotenv(os.Stderr)

	args := os.Args[1:]
	if len(args) == 0 || isHelp(args[0]) {
		printUsage(os.Stdout)
		return
	}

	var code int
	switch args[0] {
	case "run":
		code = runCmd(args[1:])
	case "parse":
		code = parseCmd(args[1:], os.Stdin, os.Stdout, os.Stderr)
	case "show":
		code = showCmd(args[1:], os.Getenv, os.Stdout, os.Stderr)
	case "query":
		code = queryCmd(args[1:], os.Getenv, os.Stdout, os.Stderr)
	default:
		fmt.Fprintf(os.Stderr, "未知命令：%q\n\n", args[0])
		printUsage(os.Stderr)
		code = 2
	}
	if code != 0 {
		os.Exit(code)
	}
}

// loadDotenv 读取 .env（默认当前目录）。文件不存在是正常情况；已有的环境变量优先。
func loadDotenv(stderr io.Writer, files ...string) {
	if err := godotenv.Load(files...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(stderr, "读取 .env 失败：%v\n", err)
	}
}

func runCmd(args []string) int {
	for _, a := range args {
		if isHelp(a) {
			printRunUsage(os.Stdout)
			return 0
		}
	}

	ra, err := parseRunArgs(args)
	if err != nil {
		fmt.Fprintf(os.Stderr, "参数错误：%v\n\n", err)
		printRunUsage(os.Stderr)
		return 2
	}

	cwd, err := os.Getwd()
	if err != nil {
		fmt.Fprintf(os.Stderr, "读取当前目录失败：%v\n", err)
		return 1
	}

	eff, err := config.LoadEffective(cwd, config.CLIArgs{
		DataDir:    ra.DataDir,
		ConfigPath: ra.ConfigPath,
		Apply:      ra.Apply,
		ApplySet:   ra.ApplySet,
		LogLevel:   ra.LogLevel,
	}, os.Getenv)
	if err != nil {
		emitReport(reportForConfigError(ra, err))
		return 1
	}

	log, err := logx.New(eff.LogLevel, os.Stderr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "初始化日志失败：%v\n", err)
		return 1
	}
	defer func() { _ = log.Sync() }()

	progressW, interactive := pickProgressWriter()
	var obs run.Observer
	if interactive {
		obs = newProgressUI(progressW)
	}

	if !ra.Watch {
		rr := run.Execute(context.Background(), eff, log, obs)
		return finish(eff, rr)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	r, err := run.New(eff, log, obs)
	if err != nil {
		log.Error("初始化失败", zap.Error(err))
		return 1
	}
	defer r.Close()

	failed := false
	err = r.Watch(ctx, func(rr domain.RunReport) {
		if finish(eff, rr) != 0 {
			failed = true
		}
	})
	log.Info("watch 结束", zap.Error(err))
	if failed {
		return 1
	}
	return 0
}

// finish 输出报告（apply 时同时写入 <data_dir>/report.json），返回退出码。
func finish(eff config.EffectiveConfig, rr domain.RunReport) int {
	code := 0
	if eff.Apply {
		if err := writeReportFile(eff.DataDir, rr); err != nil {
			fmt.Fprintf(os.Stderr, "写入 report.json 失败：%v\n", err)
			code = 1
		}
	}
	emitReport(rr)
	if rr.Summary.Failed > 0 {
		code = 1
	}
	return code
}

type runArgs struct {
	DataDir    string
	ConfigPath string
	LogLevel   string
	Apply      bool
	ApplySet   bool
	Watch      bool
}

func parseRunArgs(args []string) (runArgs, error) {
	ra := runArgs{}

	for i := 0; i < len(args); i++ {
		a := args[i]
		name, val, hasVal := strings.Cut(a, "=")
		switch name {
		case "--data-dir", "--config", "--log-level":
			if !hasVal {
				if i+1 >= len(args) {
					return runArgs{}, fmt.Errorf("%s 需要一个值", name)
				}
				i++
				val = args[i]
			}
			if strings.TrimSpace(val) == "" {
				return runArgs{}, fmt.Errorf("%s 不能为空", name)
			}
			switch name {
			case "--data-dir":
				ra.DataDir = val
			case "--config":
				ra.ConfigPath = val
			default:
				ra.LogLevel = val
			}
		case "--apply":
			ra.ApplySet = true
			if !hasVal {
				ra.Apply = true
				continue
			}
			switch val {
			case "true":
				ra.Apply = true
			case "false":
				ra.Apply = false
			default:
				return runArgs{}, fmt.Errorf("--apply 只能是 true 或 false，实际是 %q", val)
			}
		case "--watch":
			if hasVal {
				return runArgs{}, fmt.Errorf("--watch 不接受值")
			}
			ra.Watch = true
		default:
			if strings.HasPrefix(a, "-") {
				return runArgs{}, fmt.Errorf("未知参数 %q", a)
			}
			return runArgs{}, fmt.Errorf("多余的参数 %q", a)
		}
	}
	return ra, nil
}

func isHelp(s string) bool {
	return s == "-h" || s == "--help" || s == "help"
}

func printUsage(w io.Writer) {
	fmt.Fprint(w, `用法：
  volby run [--watch] [--apply[=true|false]] [--data-dir DIR] [--config FILE] [--log-level LEVEL]
  volby parse <national|district|candidates|batch|overseas> <file|-> [--code CODE] [--batch-type okrsky|obce|okresy] [--text]
  volby show <kind> [key] [--raw] [--data-dir DIR] [--config FILE]
  volby query <national|kraj|okres|obec|okrsek|zahranici|stat> [unit] [--data-dir DIR] [--config FILE]

命令：
  run    抓取 volby.cz 数据源并解析（默认 dry-run）
  parse  解析本地 XML 文件，输出 JSON（或 --text 文本摘要）
  show   输出已保存的最新快照（默认 JSON，--raw 为原始 XML；key 默认 latest）
  query  从数据库读取某层级单位最新的进度与政党结果

使用 "volby run --help" / "volby parse --help" 查看详细说明。
`)
}

func printRunUsage(w io.Writer) {
	fmt.Fprint(w, `用法：
  volby run [--watch] [--apply[=true|false]] [--data-dir DIR] [--config FILE] [--log-level LEVEL]

参数：
  --watch      每隔 poll_interval 重复抓取，直到收到中断信号
  --apply      写入快照与数据库（默认 dry-run）；支持 --apply=false 覆盖配置中的 apply=true
  --data-dir   数据目录（默认 ./data，可由 VOLBY_DATA_DIR 指定）
  --config     配置文件路径（默认 <data_dir>/volby.json，可选）
  --log-level  debug|info|warn|error
  -h, --help   显示帮助
`)
}

func emitReport(rr domain.RunReport) {
	if isTTY(os.Stdout) {
		fmt.Fprintf(os.Stdout, "完成：parsed=%d unchanged=%d failed=%d\n",
			rr.Summary.Parsed, rr.Summary.Unchanged, rr.Summary.Failed,
		)
		for _, w := range rr.Warnings {
			fmt.Fprintf(os.Stderr, "warning: %s\n", w)
		}
		for _, it := range rr.Items {
			if it.Status != domain.StatusFailed {
				continue
			}
			key := it.Source
			if key == "" {
				key = "<config>"
			}
			fmt.Fprintf(os.Stderr, "%s %s: %s\n", key, it.ErrorCode, it.ErrorMsg)
		}
		return
	}

	// stdout 非 TTY：每个周期输出且仅输出一个 RunReport JSON（日志/摘要走 stderr）。
	enc := json.NewEncoder(os.Stdout)
	_ = enc.Encode(rr)
	fmt.Fprintf(os.Stderr, "完成：parsed=%d unchanged=%d failed=%d\n",
		rr.Summary.Parsed, rr.Summary.Unchanged, rr.Summary.Failed,
	)
}

func reportForConfigError(ra runArgs, err error) domain.RunReport {
	now := time.Now().UTC()
	code := config.Code(err)
	if code == "" {
		code = domain.ErrCodeConfigInvalid
	}
	rr := domain.RunReport{
		DataDir:    ra.DataDir,
		DryRun:     !(ra.ApplySet && ra.Apply),
		StartedAt:  now,
		FinishedAt: now,
		Items: []domain.ItemResult{{
			Status:    domain.StatusFailed,
			ErrorCode: code,
			ErrorMsg:  err.Error(),
		}},
	}
	rr.Finalize()
	return rr
}

func writeReportFile(dataDir string, rr domain.RunReport) error {
	return fsx.WriteJSON(dataDir, "report.json", rr)
}

func isTTY(f *os.File) bool {
	fi, err := f.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeCharDevice != 0
}

func pickProgressWriter() (io.Writer, bool) {
	// 进度输出只在交互终端启用；默认走 stderr（不污染 stdout JSON）。
	if isTTY(os.Stderr) {
		return os.Stderr, true
	}
	if isTTY(os.Stdout) {
		return os.Stdout, true
	}
	return nil, false
}
