package feed

import (
	"errors"
	"testing"

	"github.com/John-Robertt/volby/internal/domain"
)

func TestParse_Dispatch(t *testing.T) {
	doc := []byte(`<R xmlns="http://www.volby.cz/ps/"><OBEC CIS_OBEC="1" ZPRACOVANO="1"/></R>`)

	v, err := Parse(Source{Kind: KindDistrict, Key: "3201"}, doc, nil)
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	d, ok := v.(domain.DistrictResult)
	if !ok || d.Code != "3201" || len(d.Municipalities) != 1 {
		t.Fatalf("district 解析结果不符：%T %+v", v, v)
	}

	v, err = Parse(Source{Kind: KindBatch, Key: "obce_0001", BatchType: domain.BatchMunicipalities}, doc, nil)
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if b := v.(domain.BatchResult); len(b.Items) != 1 {
		t.Fatalf("batch 解析结果不符：%+v", b)
	}

	if _, ok := mustParse(t, KindCandidates, doc).([]domain.Candidate); !ok {
		t.Fatalf("candidates 应返回 []domain.Candidate")
	}
	if _, ok := mustParse(t, KindOverseas, doc).(domain.OverseasResult); !ok {
		t.Fatalf("overseas 应返回 domain.OverseasResult")
	}
	if _, ok := mustParse(t, KindNational, doc).(domain.NationalResult); !ok {
		t.Fatalf("national 应返回 domain.NationalResult")
	}
}

func mustParse(t *testing.T, k Kind, doc []byte) any {
	t.Helper()
	v, err := Parse(Source{Kind: k, Key: LatestKey}, doc, nil)
	if err != nil {
		t.Fatalf("%s：不期望错误：%v", k, err)
	}
	return v
}

func TestParse_NoResultIsParseStage(t *testing.T) {
	_, err := Parse(Source{Kind: KindNational, Key: LatestKey}, []byte("<broken"), nil)
	if !errors.Is(err, ErrNoResult) {
		t.Fatalf("期望 ErrNoResult，实际：%v", err)
	}
	if StageOf(err) != StageParse {
		t.Fatalf("期望 stage=parse，实际 %q", StageOf(err))
	}

	_, err = Parse(Source{Kind: "kraje", Key: "x"}, []byte("<a/>"), nil)
	if StageOf(err) != StageParse {
		t.Fatalf("未知种类也应归为 parse 阶段：%v", err)
	}
}
