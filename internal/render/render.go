// Package render 把解析结果格式化为面向人的捷克语区域文本（千位分隔、逗号小数）。
//
// 只用于 CLI 的 --text 输出；stdout 的 JSON 契约不经过这里。
package render

import (
	"io"
	"sort"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/John-Robertt/volby/internal/domain"
)

func printer() *message.Printer { return message.NewPrinter(language.Czech) }

// National 输出全国计票进度与政党排名（按得票降序，同票按 Number）。
func National(w io.Writer, r domain.NationalResult) error {
	p := printer()
	if _, err := p.Fprintf(w, "Generováno: %s\n", orDash(r.GeneratedAt)); err != nil {
		return err
	}
	if err := progress(p, w, r.Progress); err != nil {
		return err
	}
	if _, err := p.Fprintf(w, "Součet hlasů stran: %d\n", r.TotalVotes()); err != nil {
		return err
	}

	parties := append([]domain.NationalParty(nil), r.Parties...)
	sort.SliceStable(parties, func(i, j int) bool {
		if parties[i].Votes != parties[j].Votes {
			return parties[i].Votes > parties[j].Votes
		}
		return parties[i].Number < parties[j].Number
	})
	for i, party := range parties {
		if _, err := p.Fprintf(w, "%2d. [%s] %-40s %12d  %6.2f %%\n", i+1, party.Code, orDash(party.Name), party.Votes, party.Percentage); err != nil {
			return err
		}
	}
	return nil
}

// District 输出单个 okres 的进度、政党结果与各 obec 的计票状态。
func District(w io.Writer, r domain.DistrictResult) error {
	p := printer()
	if _, err := p.Fprintf(w, "Okres %s %s (generováno: %s)\n", r.Code, orDash(r.Name), orDash(r.GeneratedAt)); err != nil {
		return err
	}
	if err := progress(p, w, r.Progress); err != nil {
		return err
	}
	if err := shares(p, w, r.Parties); err != nil {
		return err
	}
	counted := 0
	for _, m := range r.Municipalities {
		if m.Processed {
			counted++
		}
	}
	_, err := p.Fprintf(w, "Obce sečteny: %d / %d\n", counted, len(r.Municipalities))
	return err
}

// Overseas 输出境外汇总与按有效票降序的国家列表。
func Overseas(w io.Writer, r domain.OverseasResult) error {
	p := printer()
	if _, err := p.Fprintf(w, "Zahraničí: %d platných hlasů (generováno: %s)\n", r.ValidVotes, orDash(r.GeneratedAt)); err != nil {
		return err
	}
	if err := shares(p, w, r.Parties); err != nil {
		return err
	}
	countries := append([]domain.Country(nil), r.Countries...)
	sort.SliceStable(countries, func(i, j int) bool { return countries[i].ValidVotes > countries[j].ValidVotes })
	for _, c := range countries {
		if _, err := p.Fprintf(w, "  %-30s %10d\n", orDash(c.Name), c.ValidVotes); err != nil {
			return err
		}
	}
	return nil
}

// Candidates 输出候选人名单（文档顺序）：kraj/政党、名单位置、优先票，当选者标记 zvolen。
func Candidates(w io.Writer, cs []domain.Candidate) error {
	p := printer()
	if len(cs) == 0 {
		_, err := p.Fprintf(w, "Žádní kandidáti.\n")
		return err
	}
	for _, c := range cs {
		mark := ""
		if c.Elected {
			mark = "  zvolen"
		}
		if _, err := p.Fprintf(w, "%s/%s %3d. %-40s %10d  %6.2f %%%s\n",
			orDash(c.RegionCode), orDash(c.PartyCode), c.Position, fullName(c), c.PrefVotes, c.PrefPercentage, mark); err != nil {
			return err
		}
	}
	return nil
}

// Batch 输出批次类型、已处理条目数与各条目。
func Batch(w io.Writer, r domain.BatchResult) error {
	p := printer()
	if _, err := p.Fprintf(w, "Dávka %s (generováno: %s)\n", orDash(string(r.Type)), orDash(r.GeneratedAt)); err != nil {
		return err
	}
	if _, err := p.Fprintf(w, "Zpracováno: %d / %d\n", r.ProcessedCount(), len(r.Items)); err != nil {
		return err
	}
	for _, it := range r.Items {
		var err error
		switch v := it.(type) {
		case domain.PollingUnitItem:
			_, err = p.Fprintf(w, "  %s (obec %s) %s\n", v.ItemCode(), orDash(v.MunicipalityCode), done(v.Processed))
		case domain.MunicipalityItem:
			_, err = p.Fprintf(w, "  %s %s %s, účast %.2f %%\n", v.ItemCode(), orDash(v.Name), done(v.Processed), v.Turnout)
		case domain.DistrictItem:
			_, err = p.Fprintf(w, "  %s %s okrsky %d / %d, účast %.2f %%\n", v.ItemCode(), orDash(v.Name), v.CountedUnits, v.TotalUnits, v.Turnout)
		default:
			_, err = p.Fprintf(w, "  %s\n", it.ItemCode())
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func fullName(c domain.Candidate) string {
	parts := make([]string, 0, 3)
	for _, s := range []string{c.TitleBefore, c.Name, c.Surname} {
		if s != "" {
			parts = append(parts, s)
		}
	}
	name := strings.Join(parts, " ")
	if c.TitleAfter != "" {
		name += ", " + c.TitleAfter
	}
	return orDash(name)
}

func done(processed bool) string {
	if processed {
		return "sečteno"
	}
	return "nesečteno"
}

func progress(p *message.Printer, w io.Writer, pr *domain.Progress) error {
	if pr == nil {
		_, err := p.Fprintf(w, "Zatím žádná data.\n")
		return err
	}
	_, err := p.Fprintf(w, "Sečteno okrsků: %d / %d (%.2f %%), účast %.2f %%, platné hlasy %d\n",
		pr.CountedUnits, pr.TotalUnits, pr.CountedPct, pr.Turnout, pr.ValidVotes)
	return err
}

func shares(p *message.Printer, w io.Writer, in []domain.PartyShare) error {
	for _, s := range in {
		if _, err := p.Fprintf(w, "  [%s] %12d  %6.2f %%\n", s.Code, s.Votes, s.Percentage); err != nil {
			return err
		}
	}
	return nil
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
