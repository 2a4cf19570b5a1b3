package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/John-Robertt/volby/internal/domain"
)

func openMem(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:", nil)
	if err != nil {
		t.Fatalf("打开内存数据库失败：%v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func meta(kind, key, digest string) Meta {
	return Meta{
		RunID:     "run-1",
		Kind:      kind,
		Key:       key,
		URL:       "https://example.org/" + key,
		Digest:    digest,
		FetchedAt: time.Date(2025, 10, 4, 14, 5, 0, 0, time.UTC),
	}
}

func national() domain.NationalResult {
	return domain.NationalResult{
		GeneratedAt: "2025-10-04T14:05:00",
		Progress:    &domain.Progress{TotalUnits: 15, CountedUnits: 15, CountedPct: 100, Voters: 1500, Ballots: 1200, ValidVotes: 1170, Turnout: 80},
		Parties: []domain.NationalParty{
			{Code: "1", Name: "A", Number: 1, Votes: 180, Percentage: 15.38},
			{Code: "12", Name: "B", Number: 12, Votes: 990, Percentage: 84.62},
		},
		Regions: []domain.Region{
			{Code: "1", Name: "Praha", Type: domain.RegionTypeKraj, Parties: []domain.PartyShare{{Code: "1", Votes: 100, Percentage: 12.82}}},
		},
	}
}

func TestStore_SaveNationalAndQuery(t *testing.T) {
	ctx := context.Background()
	s := openMem(t)

	saved, err := s.Save(ctx, meta("national", "latest", "d1"), national())
	if err != nil || !saved {
		t.Fatalf("期望写入成功：saved=%v err=%v", saved, err)
	}

	rows, err := s.LatestParties(ctx, LevelNational, "")
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if len(rows) != 2 || rows[0].Code != "1" || rows[0].Name != "A" || rows[1].Votes != 990 {
		t.Fatalf("全国政党结果不符：%+v", rows)
	}
	if !rows[0].Percentage.Valid || rows[0].Percentage.Float64 != 15.38 {
		t.Fatalf("百分比不符：%+v", rows[0].Percentage)
	}

	p, ok, err := s.LatestProgress(ctx, LevelNational, "")
	if err != nil || !ok {
		t.Fatalf("期望存在 progress：ok=%v err=%v", ok, err)
	}
	if p.ValidVotes != 1170 || p.Turnout != 80 {
		t.Fatalf("progress 不符：%+v", p)
	}

	kraj, err := s.LatestParties(ctx, LevelRegion, "1")
	if err != nil || len(kraj) != 1 || kraj[0].Votes != 100 {
		t.Fatalf("kraj 政党结果不符：%+v err=%v", kraj, err)
	}
}

func TestStore_SameDigestIsNoop(t *testing.T) {
	ctx := context.Background()
	s := openMem(t)

	if _, err := s.Save(ctx, meta("national", "latest", "d1"), national()); err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	saved, err := s.Save(ctx, meta("national", "latest", "d1"), national())
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if saved {
		t.Fatalf("同一 digest 重复保存应为 no-op")
	}
	if n, _ := s.SnapshotCount(ctx, "national"); n != 1 {
		t.Fatalf("期望 1 个快照，实际 %d", n)
	}

	if saved, _ := s.Save(ctx, meta("national", "latest", "d2"), national()); !saved {
		t.Fatalf("新 digest 应写入")
	}
	if n, _ := s.SnapshotCount(ctx, "national"); n != 2 {
		t.Fatalf("期望 2 个快照，实际 %d", n)
	}
}

func TestStore_UnsupportedTypeRollsBack(t *testing.T) {
	ctx := context.Background()
	s := openMem(t)

	if _, err := s.Save(ctx, meta("national", "latest", "d1"), "not a result"); err == nil {
		t.Fatalf("期望错误，但得到 nil")
	}
	if n, _ := s.SnapshotCount(ctx, "national"); n != 0 {
		t.Fatalf("失败的事务不应留下快照，实际 %d", n)
	}
}

func TestStore_SaveOtherKinds(t *testing.T) {
	ctx := context.Background()
	s, err := Open(filepath.Join(t.TempDir(), "db", "volby.db"), nil)
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	defer s.Close()

	district := domain.DistrictResult{
		Code:     "3201",
		Name:     "Domažlice",
		Progress: &domain.Progress{TotalUnits: 80, CountedUnits: 40, CountedPct: 50},
		Parties:  []domain.PartyShare{{Code: "1", Votes: 12000, Percentage: 40.26}},
		Municipalities: []domain.Municipality{
			{Code: "553425", Name: "Domažlice", Processed: true, Parties: []domain.PartyVotes{{Code: "1", Votes: 3000}}},
		},
	}
	batch := domain.BatchResult{
		Type: domain.BatchPollingUnits,
		Items: []domain.BatchItem{
			domain.PollingUnitItem{Code: "1", MunicipalityCode: "500054", Processed: true, Parties: []domain.PartyVotes{{Code: "1", Votes: 120}}},
			domain.DistrictItem{Code: "3202", RegionCode: "4", CountedUnits: 1, TotalUnits: 2, Parties: []domain.PartyShare{{Code: "1", Votes: 5}}},
		},
	}
	overseas := domain.OverseasResult{
		ValidVotes: 20000,
		Parties:    []domain.PartyShare{{Code: "1", Votes: 12000, Percentage: 60}},
		Countries:  []domain.Country{{Code: "276", Name: "Německo", ValidVotes: 5000, Parties: []domain.PartyVotes{{Code: "1", Votes: 3000}}}},
	}
	cands := []domain.Candidate{{PartyCode: "1", RegionCode: "1", Position: 1, Surname: "Novák", PrefVotes: 2500, Elected: true}}

	for _, tc := range []struct {
		kind string
		v    any
	}{
		{"district", district},
		{"batch", batch},
		{"overseas", overseas},
		{"candidates", cands},
	} {
		if saved, err := s.Save(ctx, meta(tc.kind, "k", "d"), tc.v); err != nil || !saved {
			t.Fatalf("%s：期望写入成功：saved=%v err=%v", tc.kind, saved, err)
		}
	}

	obec, err := s.LatestParties(ctx, LevelMunicip, "553425")
	if err != nil || len(obec) != 1 || obec[0].Percentage.Valid {
		t.Fatalf("obec 结果不符（无百分比应为 NULL）：%+v err=%v", obec, err)
	}
	okrsek, err := s.LatestParties(ctx, LevelUnit, "1")
	if err != nil || len(okrsek) != 1 || okrsek[0].Votes != 120 {
		t.Fatalf("okrsek 结果不符：%+v err=%v", okrsek, err)
	}
	stat, err := s.LatestParties(ctx, LevelCountry, "276")
	if err != nil || len(stat) != 1 || stat[0].Votes != 3000 {
		t.Fatalf("stat 结果不符：%+v err=%v", stat, err)
	}
	if p, ok, _ := s.LatestProgress(ctx, LevelDistrict, "3201"); !ok || p.CountedPct != 50 {
		t.Fatalf("okres progress 不符：ok=%v %+v", ok, p)
	}

	none, err := s.LatestParties(ctx, LevelDistrict, "9999")
	if err != nil || none == nil || len(none) != 0 {
		t.Fatalf("不存在的单位应返回空切片：%+v err=%v", none, err)
	}
}

func TestOpen_EmptyPath(t *testing.T) {
	if _, err := Open("  ", nil); err == nil {
		t.Fatalf("期望错误，但得到 nil")
	}
}
