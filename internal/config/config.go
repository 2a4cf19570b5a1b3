package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/John-Robertt/volby/internal/infra/logx"
)

const (
	// ErrCodeNotFound 表示 --config 显式指定的配置文件不存在。
	ErrCodeNotFound = "config_not_found"
	// ErrCodeInvalid 表示配置文件无法读取/解析，或字段不合法。
	ErrCodeInvalid = "config_invalid"
)

// FileName 是数据目录下默认配置文件的文件名。
const FileName = "volby.json"

// 环境变量（优先级介于 CLI 与配置文件之间）。
const (
	EnvDataDir  = "VOLBY_DATA_DIR"
	EnvLogLevel = "VOLBY_LOG_LEVEL"
	EnvProxyURL = "VOLBY_PROXY_URL"
	EnvDBPath   = "VOLBY_DB_PATH"
)

// 内置默认值（2025 年众议院选举的 volby.cz 数据源）。
const (
	DefaultDataDir         = "data"
	DefaultNationalURL     = "https://www.volby.cz/appdata/ps2025/odata/vysledky.xml"
	DefaultDistrictURL     = "https://www.volby.cz/opendata/ps2025/PS2025reg/vysledky_okres_{code}.xml"
	DefaultCandidatesURL   = "https://www.volby.cz/opendata/ps2025/PS2025/vysledky_kandid.xml"
	DefaultOverseasURL     = "https://www.volby.cz/opendata/ps2025/PS2025zah/vysledky_zah.xml"
	DefaultBatchIndexURL   = "https://www.volby.cz/appdata/ps2025/odata/"
	DefaultConcurrency     = 4
	DefaultRequestInterval = 5 * time.Second
	DefaultPollInterval    = 60 * time.Second
	DefaultMaxBatchNumber  = 9999
	DefaultDatabase        = "volby.db"

	// DatabaseOff 关闭 SQLite 持久化。
	DatabaseOff = "off"
)

// DefaultDistrictCodes 是全部 okres 代码（含 Praha 1100）。
var DefaultDistrictCodes = []string{
	"1100", "2101", "2102", "2103", "2104", "2105", "2106", "2107", "2108", "2109",
	"210A", "210B", "3101", "3102", "3103", "3104", "3105", "3106", "3107",
	"3201", "3202", "3203", "3204", "3205", "3206", "3207", "3208", "3209", "320A", "320B",
	"4101", "4102", "4103", "4104", "4105", "4106", "4107", "4201", "4202", "4203",
	"4204", "4205", "4206", "4207", "5101", "5102", "5103", "5104", "5201", "5202",
	"5203", "5301", "5302", "5303", "5304", "6101", "6102", "6103", "6104", "6105",
	"6106", "6107", "6201", "6202", "6203", "6204", "6205", "6206", "6207", "6301",
	"6302", "6303", "6304", "6305", "6401", "6402", "6403", "6404", "6405", "6406",
	"7101", "7102", "7103", "7104", "7105", "7201", "7202", "7203", "8101", "8102",
	"8103", "8104", "8105", "8106", "8107",
}

// CLIArgs 是 CLI 暴露的入口，并保留“是否显式指定”的信息，
// 保证 --apply=false 能覆盖 config.apply=true。
type CLIArgs struct {
	DataDir    string
	ConfigPath string

	Apply    bool
	ApplySet bool

	LogLevel string
}

// FileConfig 对应 volby.json 的解析结构。
// 指针/nil 切片表示“未指定”，以区分显式的零值（例如 district_codes: [] 表示不抓任何 okres）。
type FileConfig struct {
	DataDir         string       `json:"data_dir"`
	NationalURL     *string      `json:"national_url"`
	DistrictURL     *string      `json:"district_url"`
	CandidatesURL   *string      `json:"candidates_url"`
	OverseasURL     *string      `json:"overseas_url"`
	BatchIndexURL   *string      `json:"batch_index_url"`
	DistrictCodes   []string     `json:"district_codes"`
	Concurrency     int          `json:"concurrency"`
	RequestInterval string       `json:"request_interval"`
	PollInterval    string       `json:"poll_interval"`
	MaxBatchNumber  int          `json:"max_batch_number"`
	Proxy           *ProxyConfig `json:"proxy"`
	Database        string       `json:"database"`
	LogLevel        string       `json:"log_level"`
	Apply           *bool        `json:"apply"`
}

type ProxyConfig struct {
	URL string `json:"url"`
}

// EffectiveConfig 是合并并规范化后的最终配置（实现层直接消费，不再做二次默认/优先级判断）。
type EffectiveConfig struct {
	DataDir    string
	ConfigPath string // 实际读取的配置文件（不存在时仍为其预期路径）

	Apply    bool
	LogLevel string

	NationalURL   string
	DistrictURL   string
	CandidatesURL string
	OverseasURL   string
	BatchIndexURL string
	DistrictCodes []string

	Concurrency     int
	RequestInterval time.Duration
	PollInterval    time.Duration
	MaxBatchNumber  int

	ProxyURL string
	// DatabasePath 为空表示不写 SQLite。
	DatabasePath string
}

// Error 是配置阶段的结构化错误（带 error_code）。
type Error struct {
	Code string
	Path string
	Err  error
}

func (e *Error) Error() string {
	switch e.Code {
	case ErrCodeNotFound:
		return fmt.Sprintf("%s：未找到配置文件 %q", e.Code, e.Path)
	case ErrCodeInvalid:
		if e.Err != nil {
			return fmt.Sprintf("%s：配置文件 %q 无效：%v", e.Code, e.Path, e.Err)
		}
		return fmt.Sprintf("%s：配置文件 %q 无效", e.Code, e.Path)
	default:
		if e.Err != nil {
			return fmt.Sprintf("%s：%v", e.Code, e.Err)
		}
		return e.Code
	}
}

func (e *Error) Unwrap() error { return e.Err }

// Code 从 error 中提取 error_code；若不是 *Error 则返回空串。
func Code(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// LoadEffective 发现并读取配置文件，再与环境变量、CLI 参数合并为最终配置。
//
// 发现规则：
// 1) CLI 提供 --config：必须存在
// 2) 否则读取 <data_dir>/volby.json（可选），data_dir 取 CLI > 环境变量 > 默认 ./data
//
// 覆盖优先级：
// - data_dir / log_level：CLI > 环境变量 > config > 默认
// - apply：CLI --apply/--apply=false > config > 默认 false
// - proxy.url / database：环境变量 > config > 默认
// - 其他字段：仅由 config 控制
//
// getenv 为 nil 时使用 os.Getenv。
func LoadEffective(cwd string, cli CLIArgs, getenv func(string) string) (EffectiveConfig, error) {
	if getenv == nil {
		getenv = os.Getenv
	}
	cwdAbs, err := filepath.Abs(cwd)
	if err != nil {
		return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: cwd, Err: err}
	}

	dataDir := firstNonEmpty(cli.DataDir, getenv(EnvDataDir))

	var (
		cfgPath string
		fc      FileConfig
		exists  bool
	)
	if strings.TrimSpace(cli.ConfigPath) != "" {
		cfgPath = absCleanFrom(cwdAbs, cli.ConfigPath)
		fc, exists, err = readFileConfig(cfgPath)
		if err != nil {
			return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: cfgPath, Err: err}
		}
		if !exists {
			return EffectiveConfig{}, &Error{Code: ErrCodeNotFound, Path: cfgPath, Err: os.ErrNotExist}
		}
	} else {
		dir := absCleanFrom(cwdAbs, firstNonEmpty(dataDir, DefaultDataDir))
		cfgPath = filepath.Join(dir, FileName)
		fc, _, err = readFileConfig(cfgPath)
		if err != nil {
			return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: cfgPath, Err: err}
		}
	}

	dataDir = absCleanFrom(cwdAbs, firstNonEmpty(dataDir, fc.DataDir, DefaultDataDir))
	return merge(dataDir, cfgPath, cli, fc, getenv)
}

func merge(dataDir, cfgPath string, cli CLIArgs, fc FileConfig, getenv func(string) string) (EffectiveConfig, error) {
	invalid := func(err error) (EffectiveConfig, error) {
		return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: cfgPath, Err: err}
	}

	apply := false
	if cli.ApplySet {
		apply = cli.Apply
	} else if fc.Apply != nil {
		apply = *fc.Apply
	}

	logLevel := strings.ToLower(firstNonEmpty(cli.LogLevel, getenv(EnvLogLevel), fc.LogLevel, "info"))
	if _, err := logx.ParseLevel(logLevel); err != nil {
		return invalid(err)
	}

	eff := EffectiveConfig{
		DataDir:       dataDir,
		ConfigPath:    cfgPath,
		Apply:         apply,
		LogLevel:      logLevel,
		NationalURL:   orDefault(fc.NationalURL, DefaultNationalURL),
		DistrictURL:   orDefault(fc.DistrictURL, DefaultDistrictURL),
		CandidatesURL: orDefault(fc.CandidatesURL, DefaultCandidatesURL),
		OverseasURL:   orDefault(fc.OverseasURL, DefaultOverseasURL),
		BatchIndexURL: orDefault(fc.BatchIndexURL, DefaultBatchIndexURL),
	}

	for name, u := range map[string]string{
		"national_url":    eff.NationalURL,
		"district_url":    eff.DistrictURL,
		"candidates_url":  eff.CandidatesURL,
		"overseas_url":    eff.OverseasURL,
		"batch_index_url": eff.BatchIndexURL,
	} {
		if err := validateHTTPURL(name, u); err != nil {
			return invalid(err)
		}
	}
	if eff.DistrictURL != "" && !strings.Contains(eff.DistrictURL, "{code}") {
		return invalid(fmt.Errorf("district_url 必须包含 {code} 占位符：%q", eff.DistrictURL))
	}

	if fc.DistrictCodes != nil {
		eff.DistrictCodes = normalizeCodes(fc.DistrictCodes)
	} else {
		eff.DistrictCodes = append([]string(nil), DefaultDistrictCodes...)
	}

	eff.Concurrency = fc.Concurrency
	if eff.Concurrency == 0 {
		eff.Concurrency = DefaultConcurrency
	}
	// 范围 [1, 32]；超出截断。
	if eff.Concurrency < 1 {
		eff.Concurrency = 1
	}
	if eff.Concurrency > 32 {
		eff.Concurrency = 32
	}

	var err error
	if eff.RequestInterval, err = parseDuration("request_interval", fc.RequestInterval, DefaultRequestInterval); err != nil {
		return invalid(err)
	}
	if eff.PollInterval, err = parseDuration("poll_interval", fc.PollInterval, DefaultPollInterval); err != nil {
		return invalid(err)
	}
	if eff.PollInterval == 0 {
		return invalid(errors.New("poll_interval 必须大于 0"))
	}

	eff.MaxBatchNumber = fc.MaxBatchNumber
	if eff.MaxBatchNumber == 0 {
		eff.MaxBatchNumber = DefaultMaxBatchNumber
	}
	if eff.MaxBatchNumber < 0 {
		return invalid(fmt.Errorf("max_batch_number 不能为负数：%d", eff.MaxBatchNumber))
	}

	proxyURL := ""
	if fc.Proxy != nil {
		proxyURL = fc.Proxy.URL
	}
	eff.ProxyURL = strings.TrimSpace(firstNonEmpty(getenv(EnvProxyURL), proxyURL))
	if eff.ProxyURL != "" {
		u, err := url.Parse(eff.ProxyURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return invalid(fmt.Errorf("proxy.url 无效：%q", eff.ProxyURL))
		}
	}

	db := strings.TrimSpace(firstNonEmpty(getenv(EnvDBPath), fc.Database, DefaultDatabase))
	if !strings.EqualFold(db, DatabaseOff) {
		eff.DatabasePath = absCleanFrom(dataDir, db)
	}

	return eff, nil
}

func validateHTTPURL(name, s string) error {
	if s == "" {
		return nil
	}
	// {code} 占位符不是合法的 URL 字符，校验前先替换。
	u, err := url.Parse(strings.ReplaceAll(s, "{code}", "0000"))
	if err != nil || u.Host == "" {
		return fmt.Errorf("%s 无效：%q", name, s)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%s 必须是 http/https：%q", name, s)
	}
	return nil
}

func parseDuration(name, s string, def time.Duration) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return def, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("%s 无效：%w", name, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("%s 不能为负数：%q", name, s)
	}
	return d, nil
}

func normalizeCodes(in []string) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]bool, len(in))
	for _, c := range in {
		c = strings.ToUpper(strings.TrimSpace(c))
		if c == "" || seen[c] {
			continue
		}
		seen[c] = true
		out = append(out, c)
	}
	return out
}

func orDefault(p *string, def string) string {
	if p == nil {
		return def
	}
	return strings.TrimSpace(*p)
}

func firstNonEmpty(vs ...string) string {
	for _, v := range vs {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

// absCleanFrom 以 base 为基准，把 p 变为 clean + absolute。
func absCleanFrom(base, p string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return ""
	}
	p = filepath.Clean(p)
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Clean(filepath.Join(base, p))
}

// readFileConfig 读取并解析 JSON 配置文件。exists 表示该文件是否存在（不存在不算错误）。
func readFileConfig(path string) (fc FileConfig, exists bool, err error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return FileConfig{}, false, nil
		}
		return FileConfig{}, false, err
	}
	if err := json.Unmarshal(b, &fc); err != nil {
		return FileConfig{}, true, err
	}
	return fc, true, nil
}
