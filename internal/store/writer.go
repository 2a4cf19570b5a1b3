package store

import (
	"context"
	"database/sql"

	"github.com/John-Robertt/volby/internal/domain"
)

type writer struct {
	ctx context.Context
	tx  *sql.Tx
	id  int64
}

func (w writer) exec(query string, args ...any) error {
	_, err := w.tx.ExecContext(w.ctx, query, args...)
	return err
}

func (w writer) progress(level, unitCode string, p *domain.Progress) error {
	if p == nil {
		return nil
	}
	return w.exec(
		`INSERT INTO progress (snapshot_id, level, unit_code, total_units, counted_units, counted_pct, voters, ballots, valid_votes, turnout)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		w.id, level, unitCode, p.TotalUnits, p.CountedUnits, p.CountedPct, p.Voters, p.Ballots, p.ValidVotes, p.Turnout,
	)
}

// unit 写入一个层级单位。
type unit struct {
	level, code, parent, name string
	processed                 bool
	counted, total, valid     int
	turnout                   float64
}

func (w writer) unit(u unit) error {
	return w.exec(
		`INSERT INTO units (snapshot_id, level, code, parent_code, name, processed, counted_units, total_units, valid_votes, turnout)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		w.id, u.level, u.code, u.parent, u.name, boolInt(u.processed), u.counted, u.total, u.valid, u.turnout,
	)
}

// party 写入一条政党票数。pct 为 nil 表示该层级没有百分比（写入 NULL）。
func (w writer) party(level, unitCode, parent, code, name string, votes int, pct *float64) error {
	var p any
	if pct != nil {
		p = *pct
	}
	return w.exec(
		`INSERT INTO party_results (snapshot_id, level, unit_code, parent_code, party_code, party_name, votes, percentage)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		w.id, level, unitCode, parent, code, name, votes, p,
	)
}

func (w writer) shares(level, unitCode, parent string, ps []domain.PartyShare) error {
	for _, p := range ps {
		pct := p.Percentage
		if err := w.party(level, unitCode, parent, p.Code, "", p.Votes, &pct); err != nil {
			return err
		}
	}
	return nil
}

func (w writer) votes(level, unitCode, parent string, ps []domain.PartyVotes) error {
	for _, p := range ps {
		if err := w.party(level, unitCode, parent, p.Code, "", p.Votes, nil); err != nil {
			return err
		}
	}
	return nil
}

func (w writer) national(r domain.NationalResult) error {
	if err := w.progress(LevelNational, "", r.Progress); err != nil {
		return err
	}
	for _, p := range r.Parties {
		pct := p.Percentage
		if err := w.party(LevelNational, "", "", p.Code, p.Name, p.Votes, &pct); err != nil {
			return err
		}
	}
	for _, reg := range r.Regions {
		if err := w.unit(unit{level: LevelRegion, code: reg.Code, name: reg.Name}); err != nil {
			return err
		}
		if err := w.shares(LevelRegion, reg.Code, "", reg.Parties); err != nil {
			return err
		}
	}
	return nil
}

func (w writer) district(r domain.DistrictResult) error {
	u := unit{level: LevelDistrict, code: r.Code, name: r.Name}
	if r.Progress != nil {
		u.counted, u.total, u.valid, u.turnout = r.Progress.CountedUnits, r.Progress.TotalUnits, r.Progress.ValidVotes, r.Progress.Turnout
		u.processed = r.Progress.TotalUnits > 0 && r.Progress.CountedUnits >= r.Progress.TotalUnits
	}
	if err := w.unit(u); err != nil {
		return err
	}
	if err := w.progress(LevelDistrict, r.Code, r.Progress); err != nil {
		return err
	}
	if err := w.shares(LevelDistrict, r.Code, "", r.Parties); err != nil {
		return err
	}
	for _, m := range r.Municipalities {
		if err := w.unit(unit{level: LevelMunicip, code: m.Code, parent: r.Code, name: m.Name, processed: m.Processed}); err != nil {
			return err
		}
		if err := w.votes(LevelMunicip, m.Code, r.Code, m.Parties); err != nil {
			return err
		}
	}
	return nil
}

func (w writer) candidates(cs []domain.Candidate) error {
	for _, c := range cs {
		if err := w.exec(
			`INSERT INTO candidates (snapshot_id, party_code, region_code, position, name, surname, title_before, title_after, pref_votes, pref_percentage, elected)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			w.id, c.PartyCode, c.RegionCode, c.Position, c.Name, c.Surname, c.TitleBefore, c.TitleAfter, c.PrefVotes, c.PrefPercentage, boolInt(c.Elected),
		); err != nil {
			return err
		}
	}
	return nil
}

func (w writer) overseas(r domain.OverseasResult) error {
	if err := w.unit(unit{level: LevelOverseas, code: LevelOverseas, valid: r.ValidVotes}); err != nil {
		return err
	}
	if err := w.shares(LevelOverseas, "", "", r.Parties); err != nil {
		return err
	}
	for _, c := range r.Countries {
		if err := w.unit(unit{level: LevelCountry, code: c.Code, name: c.Name, valid: c.ValidVotes}); err != nil {
			return err
		}
		if err := w.votes(LevelCountry, c.Code, "", c.Parties); err != nil {
			return err
		}
	}
	return nil
}

func (w writer) batch(r domain.BatchResult) error {
	for _, it := range r.Items {
		var err error
		switch v := it.(type) {
		case domain.PollingUnitItem:
			if err = w.unit(unit{level: LevelUnit, code: v.Code, parent: v.MunicipalityCode, processed: v.Processed}); err == nil {
				err = w.votes(LevelUnit, v.Code, v.MunicipalityCode, v.Parties)
			}
		case domain.MunicipalityItem:
			if err = w.unit(unit{level: LevelMunicip, code: v.Code, parent: v.DistrictCode, name: v.Name, processed: v.Processed, turnout: v.Turnout}); err == nil {
				err = w.shares(LevelMunicip, v.Code, v.DistrictCode, v.Parties)
			}
		case domain.DistrictItem:
			u := unit{
				level:     LevelDistrict,
				code:      v.Code,
				parent:    v.RegionCode,
				name:      v.Name,
				processed: v.TotalUnits > 0 && v.CountedUnits >= v.TotalUnits,
				counted:   v.CountedUnits,
				total:     v.TotalUnits,
				turnout:   v.Turnout,
			}
			if err = w.unit(u); err == nil {
				err = w.shares(LevelDistrict, v.Code, v.RegionCode, v.Parties)
			}
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
