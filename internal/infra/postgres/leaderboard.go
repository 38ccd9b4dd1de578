package postgres

import (
	"context"
	"fmt"
	"time"

	"quizrevenue/internal/domain"

	"github.com/uptrace/bun"
)

func (s *Store) Snapshot(ctx context.Context, scope domain.LeaderboardScope, region string, limit int) ([]domain.LeaderboardEntry, error) {
	var out []domain.LeaderboardEntry
	q := s.db.NewSelect().Model(&out).Where("lb.scope = ?", scope)
	if region == "" {
		q = q.Where("lb.region IS NULL")
	} else {
		q = q.Where("lb.region = ?", region)
	}
	if err := q.OrderExpr("lb.rank ASC").Limit(limit).Scan(ctx); err != nil {
		return nil, fmt.Errorf("leaderboard snapshot: %w", err)
	}
	return out, nil
}

const rankUsers = `
INSERT INTO leaderboards (id, user_id, display_name, scope, region, rank, points, earnings, quizzes_completed, updated_at)
SELECT gen_random_uuid(), id, trim(first_name || ' ' || last_name), ?, %s,
       row_number() OVER (%s ORDER BY points DESC, total_earnings DESC, email ASC),
       points, total_earnings, quizzes_completed, ?
FROM users
WHERE role = 'user' AND is_active %s`

// Rebuild replaces every snapshot with a fresh ranking computed in SQL.
func (s *Store) Rebuild(ctx context.Context, at time.Time) (int, error) {
	scopes := []struct {
		scope  domain.LeaderboardScope
		region string
		window string
		filter string
	}{
		{domain.ScopeGlobal, "NULL", "", ""},
		{domain.ScopeCountry, "country", "PARTITION BY country", "AND country IS NOT NULL AND country <> ''"},
		{domain.ScopeState, "state", "PARTITION BY state", "AND state IS NOT NULL AND state <> ''"},
	}

	total := 0
	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewDelete().Model((*domain.LeaderboardEntry)(nil)).Where("TRUE").Exec(ctx); err != nil {
			return fmt.Errorf("clear leaderboards: %w", err)
		}
		for _, sc := range scopes {
			query := fmt.Sprintf(rankUsers, sc.region, sc.window, sc.filter)
			res, err := tx.ExecContext(ctx, query, sc.scope, at)
			if err != nil {
				return fmt.Errorf("rank %s: %w", sc.scope, err)
			}
			if n, err := res.RowsAffected(); err == nil {
				total += int(n)
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return total, nil
}
