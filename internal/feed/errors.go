package feed

import (
	"errors"
	"fmt"
	"strings"
)

const (
	StageFetch = "fetch"
	StageParse = "parse"
)

// Error 是数据源阶段的可追溯错误。上层据 Stage 把失败归类为 fetch_failed / parse_failed。
type Error struct {
	Source string // Source.ID()
	Stage  string
	Err    error
}

func (e *Error) Error() string {
	return fmt.Sprintf("source=%s stage=%s: %v", e.Source, e.Stage, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// StageOf 返回 err 链上第一个 *Error 的阶段；不是 feed 错误时返回 ""。
func StageOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Stage
	}
	return ""
}

// HTTPStatusError 表示数据源返回了非 2xx 状态码。
type HTTPStatusError struct {
	URL        string
	StatusCode int
	Location   string
}

func (e *HTTPStatusError) Error() string {
	if e == nil {
		return "HTTP status error"
	}
	loc := strings.TrimSpace(e.Location)
	if loc == "" {
		return fmt.Sprintf("HTTP %d", e.StatusCode)
	}
	return fmt.Sprintf("HTTP %d location=%s", e.StatusCode, loc)
}

// ErrNoResult 表示文档无法解析为结果（XML 损坏等）；细节已由解析器写入日志。
var ErrNoResult = errors.New("文档无法解析")

// ErrEmptyBody 表示 2xx 响应但 body 为空。
var ErrEmptyBody = errors.New("empty response body")
