package results

import (
	"testing"
)

func TestParseCandidates_Fixture(t *testing.T) {
	c, ok := ParseCandidates(fixture(t, "kandidati.xml"), nil)
	if !ok {
		t.Fatalf("期望解析成功")
	}
	if len(c) != 3 {
		t.Fatalf("期望 3 名候选人，实际 %d", len(c))
	}

	jan := c[0]
	if jan.Name != "Jan" || jan.Surname != "Novák" || jan.TitleBefore != "Ing." || jan.TitleAfter != "Ph.D." {
		t.Fatalf("候选人姓名/头衔不正确：%+v", jan)
	}
	if jan.PartyCode != "1" || jan.RegionCode != "1" || jan.Position != 1 || jan.PrefVotes != 2500 || jan.PrefPercentage != 12.5 || !jan.Elected {
		t.Fatalf("候选人数值字段不正确：%+v", jan)
	}

	if c[1].Elected || c[1].TitleBefore != "" {
		t.Fatalf("ZVOLEN=0 不应当选：%+v", c[1])
	}

	petr := c[2]
	if petr.RegionCode != "7" {
		t.Fatalf("缺少 CKRAJ 时应继承祖先 KRAJ 的 CIS_KRAJ，实际 %q", petr.RegionCode)
	}
	if petr.Elected {
		t.Fatalf("ZVOLEN 只有 \"1\" 表示当选，\"true\" 不算")
	}
	if petr.Position != 0 || petr.PrefVotes != 0 {
		t.Fatalf("非法/缺失数值应为 0：%+v", petr)
	}
}

func TestParseCandidates_EmptyDocument(t *testing.T) {
	c, ok := ParseCandidates([]byte(`<VYSLEDKY_KANDID xmlns="http://www.volby.cz/ps/"/>`), nil)
	if !ok || c == nil || len(c) != 0 {
		t.Fatalf("空文档应返回空切片：ok=%v c=%#v", ok, c)
	}
}
