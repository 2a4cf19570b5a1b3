package run

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/John-Robertt/volby/internal/config"
	"github.com/John-Robertt/volby/internal/domain"
	"github.com/John-Robertt/volby/internal/infra/cache"
	"github.com/John-Robertt/volby/internal/store"
)

const batchIndex = `<html><body><pre>
<a href="vysledky_okresy_0001.xml">0001</a>
<a href="vysledky_okresy_0002.xml">0002</a>
</pre></body></html>`

// newFeedServer 用 results/testdata 的样例文档模拟 volby.cz。
func newFeedServer(t *testing.T) *httptest.Server {
	t.Helper()
	files := map[string]string{
		"/odata/vysledky.xml":             "national.xml",
		"/reg/vysledky_okres_3201.xml":    "okres.xml",
		"/kandid.xml":                     "kandidati.xml",
		"/zah.xml":                        "zahranici.xml",
		"/odata/vysledky_okresy_0002.xml": "davka_okresy.xml",
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/odata/" {
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			_, _ = w.Write([]byte(batchIndex))
			return
		}
		name, ok := files[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		b, err := os.ReadFile(filepath.Join("..", "..", "results", "testdata", name))
		if err != nil {
			t.Errorf("读取样例失败：%v", err)
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/xml")
		_, _ = w.Write(b)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func testConfig(srvURL, dataDir string, apply bool) config.EffectiveConfig {
	eff := config.EffectiveConfig{
		DataDir:        dataDir,
		Apply:          apply,
		NationalURL:    srvURL + "/odata/vysledky.xml",
		DistrictURL:    srvURL + "/reg/vysledky_okres_{code}.xml",
		CandidatesURL:  srvURL + "/kandid.xml",
		OverseasURL:    srvURL + "/zah.xml",
		BatchIndexURL:  srvURL + "/odata/",
		DistrictCodes:  []string{"3201", "9999"},
		Concurrency:    2,
		PollInterval:   time.Hour,
		MaxBatchNumber: 9999,
	}
	if apply {
		eff.DatabasePath = filepath.Join(dataDir, "volby.db")
	}
	return eff
}

func itemsBySource(rr domain.RunReport) map[string]domain.ItemResult {
	out := make(map[string]domain.ItemResult, len(rr.Items))
	for _, it := range rr.Items {
		out[it.Source] = it
	}
	return out
}

func TestCycle_Apply_WritesSnapshotsAndDatabase(t *testing.T) {
	srv := newFeedServer(t)
	dataDir := filepath.Join(t.TempDir(), "data")
	eff := testConfig(srv.URL, dataDir, true)

	r, err := New(eff, nil, nil)
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	rr := r.Cycle(context.Background())

	if rr.RunID == "" || rr.DryRun {
		t.Fatalf("run_id/dry_run 不符合预期：%+v", rr)
	}
	if rr.Summary.Parsed != 5 || rr.Summary.Failed != 1 || rr.Summary.Unchanged != 0 {
		t.Fatalf("summary 不符合预期：%+v items=%+v", rr.Summary, rr.Items)
	}
	if len(rr.Warnings) != 0 {
		t.Fatalf("期望无 warnings，实际 %v", rr.Warnings)
	}

	items := itemsBySource(rr)
	missing := items["district/9999"]
	if missing.Status != domain.StatusFailed || missing.ErrorCode != domain.ErrCodeFetchFailed {
		t.Fatalf("期望 district/9999 fetch_failed，实际 %+v", missing)
	}
	nat := items["national/latest"]
	if !nat.Persisted || nat.GeneratedAt != "2025-10-04T14:05:00" || nat.Digest == "" {
		t.Fatalf("national 条目不符合预期：%+v", nat)
	}
	if it, ok := items["batch/okresy_0002"]; !ok || it.Status != domain.StatusParsed {
		t.Fatalf("期望只处理最新批次 okresy_0002，实际 items=%+v", rr.Items)
	}
	if _, ok := items["batch/okresy_0001"]; ok {
		t.Fatalf("不应处理旧批次 okresy_0001")
	}

	snaps := cache.New(dataDir, true)
	for _, kind := range []string{"national", "candidates", "overseas"} {
		if _, ok, err := snaps.ReadRaw(kind, "latest"); err != nil || !ok {
			t.Fatalf("期望 %s 原始快照存在，ok=%v err=%v", kind, ok, err)
		}
		if _, ok, err := snaps.ReadJSON(kind, "latest"); err != nil || !ok {
			t.Fatalf("期望 %s JSON 快照存在，ok=%v err=%v", kind, ok, err)
		}
	}
	if _, ok, _ := snaps.ReadRaw("district", "9999"); ok {
		t.Fatalf("失败的数据源不应写快照")
	}

	// 第二个周期：内容未变 → unchanged；已处理的批次不再抓取。
	rr2 := r.Cycle(context.Background())
	if rr2.RunID == rr.RunID {
		t.Fatalf("每个周期的 run_id 应不同")
	}
	if rr2.Summary.Unchanged != 4 || rr2.Summary.Failed != 1 || rr2.Summary.Parsed != 0 {
		t.Fatalf("第二周期 summary 不符合预期：%+v items=%+v", rr2.Summary, rr2.Items)
	}
	if _, ok := itemsBySource(rr2)["batch/okresy_0002"]; ok {
		t.Fatalf("已处理的批次不应再次出现")
	}
	if err := r.Close(); err != nil {
		t.Fatalf("不期望错误：%v", err)
	}

	// 重启：digest 从原始快照恢复，已有快照的批次不再处理。
	r2, err := New(eff, nil, nil)
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	rr3 := r2.Cycle(context.Background())
	if err := r2.Close(); err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if rr3.Summary.Unchanged != 4 || rr3.Summary.Failed != 1 || rr3.Summary.Parsed != 0 {
		t.Fatalf("重启后 summary 不符合预期：%+v items=%+v", rr3.Summary, rr3.Items)
	}
	if _, ok := itemsBySource(rr3)["batch/okresy_0002"]; ok {
		t.Fatalf("已有快照的批次重启后不应再次处理")
	}

	db, err := store.Open(eff.DatabasePath, nil)
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	defer db.Close()
	n, err := db.SnapshotCount(context.Background(), "national")
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if n != 1 {
		t.Fatalf("期望 national 快照 1 条，实际 %d", n)
	}
	parties, err := db.LatestParties(context.Background(), store.LevelDistrict, "3201")
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if len(parties) == 0 {
		t.Fatalf("期望 okres 3201 有政党结果")
	}
}

func TestCycle_DryRun_NoWrites(t *testing.T) {
	srv := newFeedServer(t)
	dataDir := filepath.Join(t.TempDir(), "data")

	rr := Execute(context.Background(), testConfig(srv.URL, dataDir, false), nil, nil)

	if !rr.DryRun {
		t.Fatalf("期望 dry_run=true")
	}
	if rr.Summary.Parsed != 5 || rr.Summary.Failed != 1 {
		t.Fatalf("summary 不符合预期：%+v", rr.Summary)
	}
	for _, it := range rr.Items {
		if it.Persisted {
			t.Fatalf("dry-run 不应写数据库：%+v", it)
		}
	}
	if _, err := os.Stat(dataDir); !os.IsNotExist(err) {
		t.Fatalf("dry-run 不应创建 data_dir，但 Stat err=%v", err)
	}
}

func TestCycle_BatchIndexFailure_IsolatedItem(t *testing.T) {
	srv := newFeedServer(t)
	eff := testConfig(srv.URL, t.TempDir(), false)
	eff.BatchIndexURL = srv.URL + "/missing/"
	eff.DistrictCodes = []string{"3201"}

	rr := Execute(context.Background(), eff, nil, nil)

	items := itemsBySource(rr)
	idx, ok := items["batch_index/latest"]
	if !ok || idx.ErrorCode != domain.ErrCodeFetchFailed {
		t.Fatalf("期望 batch_index fetch_failed，实际 items=%+v", rr.Items)
	}
	if rr.Summary.Parsed != 4 || rr.Summary.Failed != 1 {
		t.Fatalf("summary 不符合预期：%+v", rr.Summary)
	}
}

func TestCycle_ParseFailure_ReportedEveryCycle(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/vysledky.xml", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<VYSLEDKY><KRAJ"))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	r, err := New(config.EffectiveConfig{
		DataDir:      t.TempDir(),
		NationalURL:  srv.URL + "/vysledky.xml",
		Concurrency:  1,
		PollInterval: time.Hour,
	}, nil, nil)
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	defer r.Close()

	for i := 0; i < 2; i++ {
		rr := r.Cycle(context.Background())
		if len(rr.Items) != 1 || rr.Items[0].ErrorCode != domain.ErrCodeParseFailed {
			t.Fatalf("第 %d 周期期望 parse_failed，实际 %+v", i+1, rr.Items)
		}
	}
}

func TestExecute_InvalidProxy_SyntheticItem(t *testing.T) {
	rr := Execute(context.Background(), config.EffectiveConfig{
		DataDir:  t.TempDir(),
		ProxyURL: "://bad",
	}, nil, nil)

	if len(rr.Items) != 1 {
		t.Fatalf("期望 1 个合成条目，实际 %+v", rr.Items)
	}
	if it := rr.Items[0]; it.Status != domain.StatusFailed || it.ErrorCode != domain.ErrCodeConfigInvalid {
		t.Fatalf("期望 config_invalid，实际 %+v", it)
	}
	if rr.Summary.Failed != 1 {
		t.Fatalf("期望 failed=1，实际 %+v", rr.Summary)
	}
}

func TestWatch_StopsOnCancel(t *testing.T) {
	srv := newFeedServer(t)
	eff := testConfig(srv.URL, t.TempDir(), false)
	eff.BatchIndexURL = ""

	r, err := New(eff, nil, nil)
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	defer r.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	cycles := 0
	err = r.Watch(ctx, func(rr domain.RunReport) {
		cycles++
		cancel()
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("期望 context.Canceled，实际 %v", err)
	}
	if cycles != 1 {
		t.Fatalf("期望 1 个周期，实际 %d", cycles)
	}
}
