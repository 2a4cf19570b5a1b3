package run

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/John-Robertt/volby/internal/config"
	"github.com/John-Robertt/volby/internal/domain"
	"github.com/John-Robertt/volby/internal/feed"
	"github.com/John-Robertt/volby/internal/infra/cache"
	"github.com/John-Robertt/volby/internal/infra/httpx"
	"github.com/John-Robertt/volby/internal/store"
)

// Runner 持有跨周期的状态：抓取节奏与 body 摘要（Fetcher）、已处理的批次、数据库连接。
//
// 约束：
// - 非 apply：不写快照、不打开数据库，只做 fetch+parse 验证
// - 单个数据源失败只影响该条目；周期本身总会产出一份完整的 RunReport
// - Cycle 不可并发调用（Watch 串行调用它）
type Runner struct {
	eff     config.EffectiveConfig
	fetcher *feed.Fetcher
	snaps   cache.Store
	db      *store.Store
	log     *zap.Logger
	obs     Observer

	mu          sync.Mutex
	doneBatches map[string]bool
}

// New 构造 Runner。apply 且配置了 database 时打开 SQLite。
func New(eff config.EffectiveConfig, log *zap.Logger, obs Observer) (*Runner, error) {
	if log == nil {
		log = zap.NewNop()
	}
	client, err := httpx.NewFeedClient(eff.ProxyURL)
	if err != nil {
		return nil, &config.Error{Code: config.ErrCodeInvalid, Path: eff.ConfigPath, Err: fmt.Errorf("proxy.url 无效：%w", err)}
	}

	r := &Runner{
		eff:         eff,
		fetcher:     feed.NewFetcher(client, eff.RequestInterval, log),
		snaps:       cache.New(eff.DataDir, !eff.Apply),
		log:         log,
		obs:         obs,
		doneBatches: make(map[string]bool),
	}
	if eff.Apply && eff.DatabasePath != "" {
		db, err := store.Open(eff.DatabasePath, log)
		if err != nil {
			return nil, err
		}
		r.db = db
	}
	r.seedDigests()
	return r, nil
}

func (r *Runner) urls() feed.URLs {
	return feed.URLs{
		National:   r.eff.NationalURL,
		District:   r.eff.DistrictURL,
		Candidates: r.eff.CandidatesURL,
		Overseas:   r.eff.OverseasURL,
	}
}

// seedDigests 用 <data_dir>/snapshots 下的原始快照恢复固定数据源的 digest：
// 重启后内容未变的数据源报告 unchanged，不再重复写入。
func (r *Runner) seedDigests() {
	sources, err := feed.Sources(r.urls(), r.eff.DistrictCodes)
	if err != nil {
		return
	}
	seeded := 0
	for _, src := range sources {
		b, ok, err := r.snaps.ReadRaw(string(src.Kind), src.Key)
		if err != nil {
			r.log.Warn("读取原始快照失败", zap.String("source", src.ID()), zap.Error(err))
			continue
		}
		if ok && r.fetcher.Seed(src.URL, b) {
			seeded++
		}
	}
	if seeded > 0 {
		r.log.Debug("已从快照恢复 digest", zap.Int("sources", seeded))
	}
}

// hasSnapshot 报告 src 的原始快照是否已存在。
func (r *Runner) hasSnapshot(src feed.Source) bool {
	path, err := r.snaps.RawPath(string(src.Kind), src.Key)
	if err != nil {
		return false
	}
	_, err = os.Stat(path)
	return err == nil
}

func (r *Runner) Close() error {
	if r.db == nil {
		return nil
	}
	return r.db.Close()
}

// Execute 执行单个周期并释放资源。构造失败时返回只含一条合成失败条目的报告。
func Execute(ctx context.Context, eff config.EffectiveConfig, log *zap.Logger, obs Observer) domain.RunReport {
	r, err := New(eff, log, obs)
	if err != nil {
		now := time.Now().UTC()
		rr := domain.RunReport{
			RunID:      uuid.NewString(),
			DataDir:    eff.DataDir,
			DryRun:     !eff.Apply,
			StartedAt:  now,
			FinishedAt: now,
			Items:      []domain.ItemResult{syntheticFailed(newErrorCode(err), err.Error())},
		}
		rr.Finalize()
		return rr
	}
	defer r.Close()
	return r.Cycle(ctx)
}

func newErrorCode(err error) string {
	if config.Code(err) != "" {
		return domain.ErrCodeConfigInvalid
	}
	return domain.ErrCodeStoreFailed
}

// Watch 每隔 poll_interval 执行一个周期，直到 ctx 结束。首个周期立即执行。
func (r *Runner) Watch(ctx context.Context, emit func(domain.RunReport)) error {
	every := r.eff.PollInterval
	if every <= 0 {
		every = config.DefaultPollInterval
	}
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		rr := r.Cycle(ctx)
		if emit != nil {
			emit(rr)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
		}
	}
}

// Cycle 执行一个抓取周期：展开数据源 → 并发 fetch+parse+写入 → 交叉校验 → 汇总报告。
func (r *Runner) Cycle(ctx context.Context) domain.RunReport {
	runID := uuid.NewString()
	log := r.log.With(zap.String("run_id", runID))
	if r.obs != nil {
		r.obs.OnStart(runID, r.eff)
	}

	rr := domain.RunReport{
		RunID:     runID,
		DataDir:   r.eff.DataDir,
		DryRun:    !r.eff.Apply,
		StartedAt: time.Now().UTC(),
		Items:     make([]domain.ItemResult, 0, len(r.eff.DistrictCodes)+8),
	}
	finish := func() domain.RunReport {
		rr.FinishedAt = time.Now().UTC()
		rr.Finalize()
		return rr
	}

	srcStarted := time.Now()
	sources, err := feed.Sources(r.urls(), r.eff.DistrictCodes)
	if err != nil {
		rr.Items = append(rr.Items, syntheticFailed(domain.ErrCodeConfigInvalid, err.Error()))
		return finish()
	}

	batches := 0
	if r.eff.BatchIndexURL != "" {
		bs, item := r.discover(ctx, log)
		if item != nil {
			rr.Items = append(rr.Items, *item)
		}
		sources = append(sources, bs...)
		batches = len(bs)
	}
	if r.obs != nil {
		r.obs.OnPhaseDone("sources", map[string]any{
			"sources": len(sources),
			"batches": batches,
		}, time.Since(srcStarted))
	}

	workers := r.eff.Concurrency
	if workers < 1 {
		workers = 1
	}
	if r.obs != nil {
		r.obs.OnPhaseDone("exec", map[string]any{
			"workers": workers,
			"total":   len(sources),
		}, 0)
	}

	out := make([]outcome, len(sources))
	var (
		doneMu sync.Mutex
		done   int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, src := range sources {
		i, src := i, src
		g.Go(func() error {
			started := time.Now()
			out[i] = r.processOne(gctx, runID, src, log)
			if r.obs != nil {
				doneMu.Lock()
				done++
				idx := done
				doneMu.Unlock()
				r.obs.OnItemDone(idx, len(sources), out[i].item, time.Since(started))
			}
			return nil
		})
	}
	_ = g.Wait()

	for i, o := range out {
		rr.Items = append(rr.Items, o.item)
		if sources[i].Kind == feed.KindBatch && o.item.Status != domain.StatusFailed {
			r.markBatchDone(sources[i].URL)
		}
		if nat, ok := o.value.(domain.NationalResult); ok {
			ccStarted := time.Now()
			bad := nat.CrossCheck()
			for _, code := range bad {
				msg := fmt.Sprintf("政党 %s：全国汇总 %d 票，kraj 明细合计 %d 票", code, nat.PartyTotals()[code], nat.RegionTotals()[code])
				rr.Warnings = append(rr.Warnings, msg)
				log.Warn("全国汇总与 kraj 明细不一致", zap.String("party", code))
			}
			if r.obs != nil {
				r.obs.OnPhaseDone("crosscheck", map[string]any{"mismatches": len(bad)}, time.Since(ccStarted))
			}
		}
	}
	return finish()
}

// discover 抓取批次索引页并返回尚未处理过的最新批次（每种类型一个）。
// 已有原始快照的批次视为之前的进程已处理过。
// 索引页本身失败时返回一条失败条目（不影响其他数据源）。
func (r *Runner) discover(ctx context.Context, log *zap.Logger) ([]feed.Source, *domain.ItemResult) {
	idx := feed.Source{Kind: "batch_index", Key: feed.LatestKey, URL: r.eff.BatchIndexURL}
	f, err := r.fetcher.Fetch(ctx, idx.URL)
	if err != nil {
		it := baseItem(idx)
		fillError(&it, &feed.Error{Source: idx.ID(), Stage: feed.StageFetch, Err: err})
		return nil, &it
	}
	all, err := feed.DiscoverBatches(f.Body, idx.URL, r.eff.MaxBatchNumber)
	if err != nil {
		it := baseItem(idx)
		fillError(&it, &feed.Error{Source: idx.ID(), Stage: feed.StageParse, Err: err})
		return nil, &it
	}

	latest := feed.LatestBatches(all)
	out := make([]feed.Source, 0, len(latest))
	r.mu.Lock()
	for _, b := range latest {
		if r.doneBatches[b.URL] {
			continue
		}
		if r.hasSnapshot(b) {
			r.doneBatches[b.URL] = true
			continue
		}
		out = append(out, b)
	}
	r.mu.Unlock()
	log.Debug("批次索引", zap.Int("found", len(all)), zap.Int("pending", len(out)))
	return out, nil
}

func (r *Runner) markBatchDone(url string) {
	r.mu.Lock()
	r.doneBatches[url] = true
	r.mu.Unlock()
}

type outcome struct {
	item  domain.ItemResult
	value any
}

func (r *Runner) processOne(ctx context.Context, runID string, src feed.Source, log *zap.Logger) outcome {
	item := baseItem(src)

	f, err := r.fetcher.Fetch(ctx, src.URL)
	if err != nil {
		fillError(&item, &feed.Error{Source: src.ID(), Stage: feed.StageFetch, Err: err})
		return outcome{item: item}
	}
	item.Digest = f.Digest
	if !f.Changed {
		item.Status = domain.StatusUnchanged
		return outcome{item: item}
	}

	v, err := feed.Parse(src, f.Body, log)
	if err != nil {
		// 下一周期即使内容未变也要重新解析并报告。
		r.fetcher.Forget(src.URL)
		fillError(&item, err)
		return outcome{item: item}
	}
	item.GeneratedAt = generatedAt(v)

	// 写入失败同样需要下一周期重试，不能被 digest 判为 unchanged。
	if r.eff.Apply {
		if err := r.snaps.WriteRaw(string(src.Kind), src.Key, f.Body); err != nil {
			r.fetcher.Forget(src.URL)
			return outcome{item: ioFailed(item, "写入原始快照失败", err), value: v}
		}
		if err := r.snaps.WriteJSON(string(src.Kind), src.Key, v); err != nil {
			r.fetcher.Forget(src.URL)
			return outcome{item: ioFailed(item, "写入 JSON 快照失败", err), value: v}
		}
	}

	if r.db != nil {
		saved, err := r.db.Save(ctx, store.Meta{
			RunID:       runID,
			Kind:        string(src.Kind),
			Key:         src.Key,
			URL:         src.URL,
			Digest:      f.Digest,
			GeneratedAt: item.GeneratedAt,
			FetchedAt:   f.FetchedAt,
		}, v)
		if err != nil {
			r.fetcher.Forget(src.URL)
			item.Status = domain.StatusFailed
			item.ErrorCode = domain.ErrCodeStoreFailed
			item.ErrorMsg = fmt.Sprintf("写入数据库失败：%v", err)
			return outcome{item: item, value: v}
		}
		item.Persisted = saved
		if saved {
			if n, err := r.db.SnapshotCount(ctx, string(src.Kind)); err == nil {
				log.Debug("快照已落库", zap.String("source", src.ID()), zap.Int("snapshots", n))
			}
		}
	}

	item.Status = domain.StatusParsed
	return outcome{item: item, value: v}
}

func baseItem(src feed.Source) domain.ItemResult {
	return domain.ItemResult{
		Source: src.ID(),
		Kind:   string(src.Kind),
		Key:    src.Key,
		URL:    src.URL,
	}
}

func generatedAt(v any) string {
	switch r := v.(type) {
	case domain.NationalResult:
		return r.GeneratedAt
	case domain.DistrictResult:
		return r.GeneratedAt
	case domain.OverseasResult:
		return r.GeneratedAt
	case domain.BatchResult:
		return r.GeneratedAt
	default:
		return ""
	}
}

func ioFailed(item domain.ItemResult, what string, err error) domain.ItemResult {
	item.Status = domain.StatusFailed
	item.ErrorCode = domain.ErrCodeIOFailed
	item.ErrorMsg = fmt.Sprintf("%s：%v", what, err)
	return item
}

func syntheticFailed(code, msg string) domain.ItemResult {
	return domain.ItemResult{
		Status:    domain.StatusFailed,
		ErrorCode: code,
		ErrorMsg:  msg,
	}
}

func fillError(item *domain.ItemResult, err error) {
	item.Status = domain.StatusFailed
	switch feed.StageOf(err) {
	case feed.StageParse:
		item.ErrorCode = domain.ErrCodeParseFailed
		item.ErrorMsg = humanizeParseError(err)
	default:
		item.ErrorCode = domain.ErrCodeFetchFailed
		item.ErrorMsg = humanizeFetchError(err)
	}
}

func humanizeFetchError(err error) string {
	var hs *feed.HTTPStatusError
	if errors.As(err, &hs) {
		switch hs.StatusCode {
		case 403, 429:
			return fmt.Sprintf("volby.cz 返回 HTTP %d（可能触发限流）。建议调大 request_interval 或配置 proxy.url。", hs.StatusCode)
		case 404:
			return "volby.cz 返回 HTTP 404（文件尚未发布或 URL 配置错误）。"
		default:
			return fmt.Sprintf("volby.cz 返回 HTTP %d。", hs.StatusCode)
		}
	}
	if errors.Is(err, feed.ErrEmptyBody) {
		return "volby.cz 返回了空内容。"
	}
	low := strings.ToLower(err.Error())
	if errors.Is(err, context.DeadlineExceeded) || strings.Contains(low, "timeout") {
		return "抓取超时。建议检查网络/代理后重试。"
	}
	if errors.Is(err, context.Canceled) {
		return "已取消。"
	}
	return fmt.Sprintf("抓取失败：%v", err)
}

func humanizeParseError(err error) string {
	if errors.Is(err, feed.ErrNoResult) {
		return "XML 无法解析（文件可能不完整或不是结果文档）。"
	}
	return fmt.Sprintf("解析失败：%v", err)
}
