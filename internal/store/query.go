package store

import (
	"context"
	"database/sql"
	"errors"

	"github.com/John-Robertt/volby/internal/domain"
)

// PartyRow 是某层级单位在最新快照中的一条政党结果。
type PartyRow struct {
	Code       string
	Name       string
	Votes      int
	Percentage sql.NullFloat64
}

// LatestParties 返回 (level, unitCode) 在最新一个包含它的快照中的政党结果（按插入顺序）。
// 没有任何记录时返回空切片。
func (s *Store) LatestParties(ctx context.Context, level, unitCode string) ([]PartyRow, error) {
	var id sql.NullInt64
	if err := s.db.QueryRowContext(ctx,
		`SELECT MAX(snapshot_id) FROM party_results WHERE level = ? AND unit_code = ?`,
		level, unitCode,
	).Scan(&id); err != nil {
		return nil, err
	}
	if !id.Valid {
		return []PartyRow{}, nil
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT party_code, party_name, votes, percentage FROM party_results
		 WHERE snapshot_id = ? AND level = ? AND unit_code = ?
		 ORDER BY rowid`,
		id.Int64, level, unitCode,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]PartyRow, 0, 32)
	for rows.Next() {
		var r PartyRow
		if err := rows.Scan(&r.Code, &r.Name, &r.Votes, &r.Percentage); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// LatestProgress 返回 (level, unitCode) 最新的计票进度；不存在时 ok=false。
func (s *Store) LatestProgress(ctx context.Context, level, unitCode string) (domain.Progress, bool, error) {
	var p domain.Progress
	err := s.db.QueryRowContext(ctx,
		`SELECT total_units, counted_units, counted_pct, voters, ballots, valid_votes, turnout
		 FROM progress WHERE level = ? AND unit_code = ?
		 ORDER BY snapshot_id DESC LIMIT 1`,
		level, unitCode,
	).Scan(&p.TotalUnits, &p.CountedUnits, &p.CountedPct, &p.Voters, &p.Ballots, &p.ValidVotes, &p.Turnout)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Progress{}, false, nil
	}
	if err != nil {
		return domain.Progress{}, false, err
	}
	return p, true, nil
}

// SnapshotCount 返回某 kind 已落库的快照数。
func (s *Store) SnapshotCount(ctx context.Context, kind string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM snapshots WHERE kind = ?`, kind).Scan(&n)
	return n, err
}
