package feed

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	maxBodyBytes  = 64 << 20
	digestTTL     = 24 * time.Hour
	digestCleanup = time.Hour
)

// Fetched 是一次成功抓取的结果。
type Fetched struct {
	URL         string
	Body        []byte
	ContentType string
	Digest      string // body 的 sha256（hex）
	Changed     bool   // 与该 URL 上次记住的 digest 不同（首次抓取视为 true）
	FetchedAt   time.Time
}

// Fetcher 串行化对 volby.cz 的请求节奏，并记住每个 URL 上次的 body 摘要。
//
// 约束：
// - 任意两次请求之间至少间隔 interval（所有 goroutine 共享同一个 limiter）
// - Fetch 只记住 digest，不缓存 body
// - 并发安全
type Fetcher struct {
	client  *http.Client
	limiter *rate.Limiter
	digests *gocache.Cache
	log     *zap.Logger
	now     func() time.Time
}

// NewFetcher 构造 Fetcher。interval<=0 表示不限速。
func NewFetcher(c *http.Client, interval time.Duration, log *zap.Logger) *Fetcher {
	if c == nil {
		c = http.DefaultClient
	}
	if log == nil {
		log = zap.NewNop()
	}
	lim := rate.NewLimiter(rate.Inf, 1)
	if interval > 0 {
		lim = rate.NewLimiter(rate.Every(interval), 1)
	}
	return &Fetcher{
		client:  c,
		limiter: lim,
		digests: gocache.New(digestTTL, digestCleanup),
		log:     log,
		now:     time.Now,
	}
}

// Fetch 抓取 url。非 2xx 返回 *HTTPStatusError；ctx 取消时在等待 limiter 阶段即返回。
func (f *Fetcher) Fetch(ctx context.Context, url string) (Fetched, error) {
	if err := f.limiter.Wait(ctx); err != nil {
		return Fetched{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Fetched{}, err
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return Fetched{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
		return Fetched{}, &HTTPStatusError{URL: url, StatusCode: resp.StatusCode, Location: resp.Header.Get("Location")}
	}

	b, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes+1))
	if err != nil {
		return Fetched{}, err
	}
	if len(b) > maxBodyBytes {
		return Fetched{}, fmt.Errorf("响应过大（超过 %d 字节）", maxBodyBytes)
	}
	if len(strings.TrimSpace(string(b))) == 0 {
		return Fetched{}, ErrEmptyBody
	}

	sum := sha256.Sum256(b)
	digest := hex.EncodeToString(sum[:])
	prev, seen := f.digests.Get(url)
	changed := !seen || prev.(string) != digest
	f.digests.SetDefault(url, digest)

	f.log.Debug("抓取完成",
		zap.String("url", url),
		zap.Int("bytes", len(b)),
		zap.Bool("changed", changed),
	)

	return Fetched{
		URL:         url,
		Body:        b,
		ContentType: resp.Header.Get("Content-Type"),
		Digest:      digest,
		Changed:     changed,
		FetchedAt:   f.now().UTC(),
	}, nil
}

// Forget 丢弃 url 记住的 digest，下一次抓取必然视为已变更（用于解析失败后重试）。
func (f *Fetcher) Forget(url string) {
	f.digests.Delete(url)
}

// Seed 用已持久化的 body 初始化 url 的 digest（进程重启后恢复变更检测）。
// url 已有 digest 时不覆盖；返回是否写入。
func (f *Fetcher) Seed(url string, body []byte) bool {
	sum := sha256.Sum256(body)
	return f.digests.Add(url, hex.EncodeToString(sum[:]), gocache.DefaultExpiration) == nil
}
