package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/John-Robertt/volby/internal/domain"
	"github.com/John-Robertt/volby/internal/feed"
	"github.com/John-Robertt/volby/internal/infra/logx"
	"github.com/John-Robertt/volby/internal/render"
)

type parseArgs struct {
	Kind      feed.Kind
	File      string
	Code      string
	BatchType domain.BatchType
	Text      bool
	LogLevel  string
}

func parseParseArgs(args []string) (parseArgs, error) {
	pa := parseArgs{}
	var pos []string

	for i := 0; i < len(args); i++ {
		a := args[i]
		name, val, hasVal := strings.Cut(a, "=")
		switch name {
		case "--code", "--batch-type", "--log-level":
			if !hasVal {
				if i+1 >= len(args) {
					return parseArgs{}, fmt.Errorf("%s 需要一个值", name)
				}
				i++
				val = args[i]
			}
			switch name {
			case "--code":
				pa.Code = strings.ToUpper(strings.TrimSpace(val))
			case "--batch-type":
				pa.BatchType = domain.BatchType(strings.TrimSpace(val))
			default:
				pa.LogLevel = val
			}
		case "--text":
			if hasVal {
				return parseArgs{}, fmt.Errorf("--text 不接受值")
			}
			pa.Text = true
		default:
			if a != "-" && strings.HasPrefix(a, "-") {
				return parseArgs{}, fmt.Errorf("未知参数 %q", a)
			}
			pos = append(pos, a)
		}
	}

	if len(pos) != 2 {
		return parseArgs{}, fmt.Errorf("需要 <kind> 与 <file> 两个参数，实际 %d 个", len(pos))
	}
	pa.Kind, pa.File = feed.Kind(pos[0]), pos[1]

	switch pa.Kind {
	case feed.KindNational, feed.KindCandidates, feed.KindOverseas:
	case feed.KindDistrict:
		if pa.Code == "" {
			return parseArgs{}, fmt.Errorf("district 需要 --code")
		}
	case feed.KindBatch:
		if !pa.BatchType.Valid() {
			return parseArgs{}, fmt.Errorf("batch 需要 --batch-type okrsky|obce|okresy，实际是 %q", pa.BatchType)
		}
	default:
		return parseArgs{}, fmt.Errorf("未知 kind %q", pos[0])
	}
	return pa, nil
}

// parseCmd 解析本地文件。stdout 只输出结果（JSON 或文本），日志与错误走 stderr。
func parseCmd(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	for _, a := range args {
		if isHelp(a) {
			printUsage(stdout)
			return 0
		}
	}
	pa, err := parseParseArgs(args)
	if err != nil {
		fmt.Fprintf(stderr, "参数错误：%v\n\n", err)
		printUsage(stderr)
		return 2
	}

	log, err := logx.New(pa.LogLevel, stderr)
	if err != nil {
		fmt.Fprintf(stderr, "参数错误：%v\n", err)
		return 2
	}
	defer func() { _ = log.Sync() }()

	var data []byte
	if pa.File == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(pa.File)
	}
	if err != nil {
		fmt.Fprintf(stderr, "读取输入失败：%v\n", err)
		return 1
	}

	src := feed.Source{Kind: pa.Kind, Key: feed.LatestKey, BatchType: pa.BatchType}
	if pa.Kind == feed.KindDistrict {
		src.Key = pa.Code
	}
	v, err := feed.Parse(src, data, log)
	if err != nil {
		fmt.Fprintf(stderr, "%v\n", err)
		return 1
	}

	if pa.Text {
		err = renderText(stdout, v)
	} else {
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		err = enc.Encode(v)
	}
	if err != nil {
		fmt.Fprintf(stderr, "输出失败：%v\n", err)
		return 1
	}
	return 0
}

func renderText(w io.Writer, v any) error {
	switch r := v.(type) {
	case domain.NationalResult:
		if err := render.National(w, r); err != nil {
			return err
		}
		if bad := r.CrossCheck(); len(bad) > 0 {
			_, err := fmt.Fprintf(w, "Nesoulad součtů u stran: %s\n", strings.Join(bad, ", "))
			return err
		}
		return nil
	case domain.DistrictResult:
		return render.District(w, r)
	case domain.OverseasResult:
		return render.Overseas(w, r)
	case []domain.Candidate:
		return render.Candidates(w, r)
	case domain.BatchResult:
		return render.Batch(w, r)
	default:
		return fmt.Errorf("不支持文本输出的结果类型 %T", v)
	}
}
