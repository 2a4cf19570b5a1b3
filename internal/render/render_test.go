package render

import (
	"bytes"
	"strings"
	"testing"

	"github.com/John-Robertt/volby/internal/domain"
)

func TestNational_CzechNumbersAndOrder(t *testing.T) {
	var buf bytes.Buffer
	err := National(&buf, domain.NationalResult{
		GeneratedAt: "2025-10-04T14:05:00",
		Progress:    &domain.Progress{TotalUnits: 20, CountedUnits: 20, CountedPct: 100, Turnout: 80, ValidVotes: 1170},
		Parties: []domain.NationalParty{
			{Code: "1", Name: "A", Number: 1, Votes: 180, Percentage: 15.38},
			{Code: "12", Name: "Strana dvanáct", Number: 12, Votes: 990, Percentage: 84.62},
		},
	})
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	out := buf.String()
	for _, want := range []string{"15,38", "84,62", "Strana dvanáct", "2025-10-04T14:05:00"} {
		if !strings.Contains(out, want) {
			t.Fatalf("期望输出包含 %q，实际：\n%s", want, out)
		}
	}
	if strings.Index(out, "Strana dvanáct") > strings.Index(out, "[1] A") {
		t.Fatalf("期望按得票降序输出，实际：\n%s", out)
	}
	if got := digitsOfLine(out, "Součet hlasů stran:"); got != "1170" {
		t.Fatalf("期望政党票数之和 1170，实际 %q：\n%s", got, out)
	}
}

// digitsOfLine 返回以 prefix 开头的那一行中的全部数字（千位分隔符因区域而异）。
func digitsOfLine(out, prefix string) string {
	for _, line := range strings.Split(out, "\n") {
		if !strings.HasPrefix(line, prefix) {
			continue
		}
		var b strings.Builder
		for _, r := range line {
			if r >= '0' && r <= '9' {
				b.WriteRune(r)
			}
		}
		return b.String()
	}
	return ""
}

func TestNational_NoProgress(t *testing.T) {
	var buf bytes.Buffer
	if err := National(&buf, domain.NationalResult{}); err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if !strings.Contains(buf.String(), "Zatím žádná data.") {
		t.Fatalf("期望提示尚无数据，实际：\n%s", buf.String())
	}
}

func TestDistrictAndOverseas(t *testing.T) {
	var buf bytes.Buffer
	err := District(&buf, domain.DistrictResult{
		Code: "3201",
		Name: "Domažlice",
		Municipalities: []domain.Municipality{
			{Code: "553425", Processed: true},
			{Code: "553441"},
		},
	})
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if !strings.Contains(buf.String(), "Domažlice") || !strings.Contains(buf.String(), "1 / 2") {
		t.Fatalf("district 输出不符合预期：\n%s", buf.String())
	}

	buf.Reset()
	err = Overseas(&buf, domain.OverseasResult{
		ValidVotes: 20000,
		Countries: []domain.Country{
			{Code: "40", Name: "Rakousko", ValidVotes: 900},
			{Code: "276", Name: "Německo", ValidVotes: 5000},
		},
	})
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	out := buf.String()
	if strings.Index(out, "Německo") > strings.Index(out, "Rakousko") {
		t.Fatalf("期望国家按票数降序，实际：\n%s", out)
	}
}

func TestBatch_ProcessedCount(t *testing.T) {
	var buf bytes.Buffer
	err := Batch(&buf, domain.BatchResult{
		GeneratedAt: "2025-10-04T15:00:00",
		Type:        domain.BatchMunicipalities,
		Items: []domain.BatchItem{
			domain.MunicipalityItem{Code: "553425", Name: "Babylon", Processed: true, Turnout: 71.5},
			domain.MunicipalityItem{Code: "553441", Name: "Bělá nad Radbuzou"},
			domain.MunicipalityItem{Code: "553450", Name: "Brnířov", Processed: true},
		},
	})
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	out := buf.String()
	for _, want := range []string{"Dávka obce", "Zpracováno: 2 / 3", "553441 Bělá nad Radbuzou nesečteno", "71,50"} {
		if !strings.Contains(out, want) {
			t.Fatalf("期望输出包含 %q，实际：\n%s", want, out)
		}
	}

	buf.Reset()
	err = Batch(&buf, domain.BatchResult{
		Type: domain.BatchDistricts,
		Items: []domain.BatchItem{
			domain.DistrictItem{Code: "3201", Name: "Domažlice", CountedUnits: 5, TotalUnits: 5},
			domain.DistrictItem{Code: "3202", Name: "Klatovy", CountedUnits: 1, TotalUnits: 5},
		},
	})
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if !strings.Contains(buf.String(), "Zpracováno: 1 / 2") || !strings.Contains(buf.String(), "okrsky 1 / 5") {
		t.Fatalf("okresy 批次输出不符合预期：\n%s", buf.String())
	}
}

func TestCandidates(t *testing.T) {
	var buf bytes.Buffer
	err := Candidates(&buf, []domain.Candidate{
		{RegionCode: "1", PartyCode: "12", Position: 1, TitleBefore: "Ing.", Name: "Jana", Surname: "Nováková", TitleAfter: "Ph.D.", PrefVotes: 1500, PrefPercentage: 12.5, Elected: true},
		{RegionCode: "1", PartyCode: "12", Position: 2, Name: "Petr", Surname: "Svoboda", PrefVotes: 300, PrefPercentage: 2.5},
	})
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("期望 2 行，实际：\n%s", buf.String())
	}
	if !strings.Contains(lines[0], "Ing. Jana Nováková, Ph.D.") || !strings.HasSuffix(lines[0], "zvolen") || !strings.Contains(lines[0], "12,50") {
		t.Fatalf("第一位候选人输出不符合预期：%q", lines[0])
	}
	if strings.Contains(lines[1], "zvolen") {
		t.Fatalf("未当选者不应带标记：%q", lines[1])
	}

	buf.Reset()
	if err := Candidates(&buf, nil); err != nil || !strings.Contains(buf.String(), "Žádní kandidáti.") {
		t.Fatalf("空名单应输出提示，实际 %q err=%v", buf.String(), err)
	}
}
