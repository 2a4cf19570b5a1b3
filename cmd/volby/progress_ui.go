package main

import (
	"fmt"
	"io"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/John-Robertt/volby/internal/app/run"
	"github.com/John-Robertt/volby/internal/config"
	"github.com/John-Robertt/volby/internal/domain"
)

var _ run.Observer = (*progressUI)(nil)

// progressUI 是交互终端的周期进度输出。
//
// 约束：
// - 所有过程信息写到 stderr（或 fallback 到 stdout），不污染 stdout 的 JSON 输出契约
// - 长时间无条目完成（例如限速等待）时定期输出一行 keepalive
// - watch 模式下每个周期重新计数
type progressUI struct {
	w io.Writer

	mu          sync.Mutex
	cycleStart  time.Time
	lastPrinted time.Time
	cycles      int

	workers   int
	total     int
	done      int
	parsed    int
	unchanged int
	fail      int

	keepaliveThreshold time.Duration
	tickerInterval     time.Duration

	stopCh        chan struct{}
	tickerStarted bool
}

func newProgressUI(w io.Writer) *progressUI {
	return &progressUI{
		w:                  w,
		keepaliveThreshold: 10 * time.Second,
		tickerInterval:     2 * time.Second,
	}
}

func (p *progressUI) OnStart(runID string, eff config.EffectiveConfig) {
	now := time.Now()

	p.mu.Lock()
	defer p.mu.Unlock()

	p.stopTickerLocked()
	p.cycleStart = now
	p.workers, p.total, p.done = 0, 0, 0
	p.parsed, p.unchanged, p.fail = 0, 0, 0
	p.cycles++

	mode := "dry-run"
	if eff.Apply {
		mode = "apply"
	}
	fmt.Fprintf(p.w, "[%s] volby run %s (%s)\n", now.Format("15:04:05"), shortID(runID), mode)

	// 配置只在第一个周期打印一次。
	if p.cycles == 1 {
		fmt.Fprintln(p.w, "配置（生效）:")
		fmt.Fprintf(p.w, "  data_dir: %s\n", eff.DataDir)
		fmt.Fprintf(p.w, "  okresy: %d\n", len(eff.DistrictCodes))
		fmt.Fprintf(p.w, "  batch_index: %s\n", orOff(truncate(eff.BatchIndexURL, 120)))
		fmt.Fprintf(p.w, "  concurrency: %d\n", eff.Concurrency)
		fmt.Fprintf(p.w, "  request_interval: %s\n", eff.RequestInterval)
		fmt.Fprintf(p.w, "  proxy: %s\n", formatProxy(eff.ProxyURL))
		if eff.Apply {
			fmt.Fprintf(p.w, "  database: %s\n", orOff(eff.DatabasePath))
		}
		fmt.Fprintln(p.w)
	}
	p.lastPrinted = time.Now()
}

func (p *progressUI) OnPhaseDone(name string, fields map[string]any, dur time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch name {
	case "sources":
		fmt.Fprintf(p.w, "数据源: sources=%d batches=%d (%s)\n",
			intField(fields, "sources"), intField(fields, "batches"), formatShortDuration(dur),
		)
	case "exec":
		p.workers = intField(fields, "workers")
		p.total = intField(fields, "total")
		fmt.Fprintf(p.w, "执行: workers=%d total=%d\n", p.workers, p.total)
		if p.total > 0 && !p.tickerStarted {
			p.startTickerLocked()
		}
	case "crosscheck":
		if n := intField(fields, "mismatches"); n > 0 {
			fmt.Fprintf(p.w, "交叉校验: %d 个政党票数不一致\n", n)
		} else {
			fmt.Fprintln(p.w, "交叉校验: 一致")
		}
	default:
		fmt.Fprintf(p.w, "%s (%s)\n", name, formatShortDuration(dur))
	}
	p.lastPrinted = time.Now()
}

func (p *progressUI) OnItemDone(idx, total int, res domain.ItemResult, dur time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.done = idx
	p.total = total

	switch res.Status {
	case domain.StatusParsed:
		p.parsed++
		fmt.Fprintf(p.w, "[%d/%d] %s OK%s (%s)\n", idx, total, res.Source, generatedNote(res), formatShortDuration(dur))
	case domain.StatusUnchanged:
		p.unchanged++
		fmt.Fprintf(p.w, "[%d/%d] %s UNCHANGED (%s)\n", idx, total, res.Source, formatShortDuration(dur))
	case domain.StatusFailed:
		p.fail++
		fmt.Fprintf(p.w, "[%d/%d] %s FAIL %s: %s (%s)\n",
			idx, total, res.Source, res.ErrorCode, truncate(res.ErrorMsg, 160), formatShortDuration(dur),
		)
	default:
		fmt.Fprintf(p.w, "[%d/%d] %s %s (%s)\n", idx, total, res.Source, strings.ToUpper(res.Status), formatShortDuration(dur))
	}
	p.lastPrinted = time.Now()

	// 最后一条完成：停止 ticker，避免在结束打印后又冒出 keepalive。
	if p.done >= p.total {
		p.stopTickerLocked()
	}
}

func (p *progressUI) startTickerLocked() {
	stop := make(chan struct{})
	p.stopCh = stop
	p.tickerStarted = true

	interval := p.tickerInterval
	if interval <= 0 {
		interval = 2 * time.Second
	}
	threshold := p.keepaliveThreshold
	if threshold <= 0 {
		threshold = 10 * time.Second
	}

	go func() {
		t := time.NewTicker(interval)
		defer t.Stop()

		for {
			select {
			case <-t.C:
				p.mu.Lock()
				if p.total > 0 && time.Since(p.lastPrinted) > threshold {
					fmt.Fprintln(p.w, p.progressLineLocked())
					p.lastPrinted = time.Now()
				}
				p.mu.Unlock()
			case <-stop:
				return
			}
		}
	}()
}

func (p *progressUI) stopTickerLocked() {
	if !p.tickerStarted {
		return
	}
	close(p.stopCh)
	p.tickerStarted = false
}

func (p *progressUI) progressLineLocked() string {
	active := p.workers
	if remain := p.total - p.done; remain < active {
		active = remain
	}
	return fmt.Sprintf("进度: done=%d/%d parsed=%d unchanged=%d fail=%d active=%d elapsed=%s",
		p.done, p.total, p.parsed, p.unchanged, p.fail, active, formatElapsed(time.Since(p.cycleStart)),
	)
}

func generatedNote(res domain.ItemResult) string {
	note := ""
	if res.GeneratedAt != "" {
		note += " generated=" + res.GeneratedAt
	}
	if res.Persisted {
		note += " db"
	}
	return note
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func orOff(s string) string {
	if strings.TrimSpace(s) == "" {
		return "off"
	}
	return s
}

func formatProxy(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "off"
	}
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return "on (" + truncate(raw, 120) + ")"
	}
	auth := "off"
	if u.User != nil {
		auth = "on"
	}
	return fmt.Sprintf("on (%s://%s, auth=%s)", u.Scheme, u.Host, auth)
}

func truncate(s string, max int) string {
	s = strings.TrimSpace(s)
	if max <= 0 || len(s) <= max {
		return s
	}
	if max <= 3 {
		return s[:max]
	}
	return s[:max-3] + "..."
}

func formatShortDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	return fmt.Sprintf("%.1fs", d.Seconds())
}

func formatElapsed(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	sec := int(d.Seconds())
	return fmt.Sprintf("%02d:%02d:%02d", sec/3600, (sec%3600)/60, sec%60)
}

func intField(fields map[string]any, key string) int {
	switch x := fields[key].(type) {
	case int:
		return x
	case int64:
		return int(x)
	default:
		return 0
	}
}
