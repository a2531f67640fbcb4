package pg

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/goteo-dev/goteo/shared/domain"
	internal_errors "github.com/goteo-dev/goteo/shared/errors"
	sharedpg "github.com/goteo-dev/goteo/shared/storage/pg"

	"github.com/lib/pq"
)

const matcherColumns = `
	m.id, m.name, m.logo, m.lang, m.terms, m.processor, m.vars,
	m.amount, m.used, m.crowd, m.projects, m.created, m.modified_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMatcher(row rowScanner) (*domain.Matcher, error) {
	var m domain.Matcher
	var vars []byte
	var modified time.Time
	if err := row.Scan(
		&m.Id, &m.Name, &m.Logo, &m.Lang, &m.Terms, &m.Processor, &vars,
		&m.Amount, &m.Used, &m.Crowd, &m.Projects, &m.Created, &modified,
	); err != nil {
		return nil, err
	}
	m.ModifiedAt = &modified
	if len(vars) > 0 {
		if err := json.Unmarshal(vars, &m.Vars); err != nil {
			return nil, fmt.Errorf("failed to decode matcher vars: %w", err)
		}
	}
	return &m, nil
}

func (s *Storage) GetMatcher(ctx context.Context, id domain.MatcherId) (*domain.Matcher, error) {
	m, err := scanMatcher(s.db.QueryRowContext(ctx,
		fmt.Sprintf("SELECT %s FROM matchers m WHERE m.id = $1", matcherColumns), id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &internal_errors.NotFoundError{Entity: "matcher", Id: string(id)}
		}
		return nil, internal_errors.Persistence("failed to fetch matcher", err)
	}
	return m, nil
}

// GetProjectMatchers lists the matchers a project is linked to, restricted to
// active memberships when activeOnly is set.
func (s *Storage) GetProjectMatchers(ctx context.Context, project domain.ProjectId, activeOnly bool) ([]*domain.Matcher, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM matchers m
		JOIN matcher_projects mp ON mp.matcher_id = m.id
		WHERE mp.project_id = $1 AND (NOT $2::boolean OR mp.status = 'active')
		ORDER BY m.name, m.id`, matcherColumns)
	rows, err := s.db.QueryContext(ctx, query, project, activeOnly)
	if err != nil {
		return nil, internal_errors.Persistence("failed to fetch project matchers", err)
	}
	defer rows.Close()

	var matchers []*domain.Matcher
	for rows.Next() {
		m, err := scanMatcher(rows)
		if err != nil {
			return nil, internal_errors.Persistence("failed to scan matcher", err)
		}
		matchers = append(matchers, m)
	}
	if err := rows.Err(); err != nil {
		return nil, internal_errors.Persistence("rows iteration error", err)
	}
	return matchers, nil
}

// SaveMatcher recomputes the derived totals and inserts the matcher on its
// first save, updating it in place afterwards.
func (s *Storage) SaveMatcher(ctx context.Context, m *domain.Matcher) error {
	return s.mutateMatcher(ctx, m, "failed to save matcher", nil)
}

// mutateMatcher runs mutate and the recompute+persist step in one
// transaction. On failure m is restored to its previous state.
func (s *Storage) mutateMatcher(ctx context.Context, m *domain.Matcher, op string, mutate func(tx *sql.Tx) error) error {
	prev := *m
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if mutate != nil {
			// memberships reference the matcher row
			if m.ModifiedAt == nil {
				if err := s.persistMatcher(ctx, tx, m); err != nil {
					return err
				}
			}
			if err := mutate(tx); err != nil {
				return err
			}
		}
		return s.persistMatcher(ctx, tx, m)
	})
	if err != nil {
		*m = prev
		return internal_errors.Persistence(op, err)
	}
	return nil
}

func (s *Storage) persistMatcher(ctx context.Context, q sharedpg.Querier, m *domain.Matcher) error {
	totals, err := s.matcherTotals(ctx, q, m.Id)
	if err != nil {
		return err
	}
	m.ApplyTotals(totals)

	vars := []byte("{}")
	if len(m.Vars) > 0 {
		if vars, err = json.Marshal(m.Vars); err != nil {
			return fmt.Errorf("failed to encode matcher vars: %w", err)
		}
	}

	now := time.Now().UTC().Round(time.Microsecond) // database anyway round to microsecond
	if m.ModifiedAt == nil {
		if m.Created.IsZero() {
			y, mo, d := now.Date()
			m.Created = time.Date(y, mo, d, 0, 0, 0, 0, time.UTC)
		}
		_, err = q.ExecContext(ctx, `
			INSERT INTO matchers (id, name, logo, lang, terms, processor, vars, amount, used, crowd, projects, created, modified_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
			m.Id, m.Name, m.Logo, m.Lang, m.Terms, m.Processor, string(vars),
			m.Amount, m.Used, m.Crowd, m.Projects, m.Created, now)
		if err != nil {
			var pqErr *pq.Error
			if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
				// created concurrently since it was loaded
				return internal_errors.ErrMatcherTaken
			}
			return fmt.Errorf("failed to insert matcher: %w", err)
		}
		m.ModifiedAt = &now
		return nil
	}

	result, err := q.ExecContext(ctx, `
		UPDATE matchers SET
			name = $2, logo = $3, lang = $4, terms = $5, processor = $6, vars = $7,
			amount = $8, used = $9, crowd = $10, projects = $11, modified_at = $12
		WHERE id = $1`,
		m.Id, m.Name, m.Logo, m.Lang, m.Terms, m.Processor, string(vars),
		m.Amount, m.Used, m.Crowd, m.Projects, now)
	if err != nil {
		return fmt.Errorf("failed to update matcher: %w", err)
	}
	if affected, _ := result.RowsAffected(); affected == 0 {
		return &internal_errors.NotFoundError{Entity: "matcher", Id: string(m.Id)}
	}
	m.ModifiedAt = &now
	return nil
}

func (s *Storage) matcherTotals(ctx context.Context, q sharedpg.Querier, id domain.MatcherId) (domain.MatcherTotals, error) {
	var t domain.MatcherTotals
	var err error
	if t.Amount, err = s.poolAmount(ctx, q, id); err != nil {
		return t, err
	}
	if t.Used, err = s.usedAmount(ctx, q, id); err != nil {
		return t, err
	}
	if t.Crowd, err = s.crowdAmount(ctx, q, id); err != nil {
		return t, err
	}
	if t.Projects, err = s.activeProjects(ctx, q, id); err != nil {
		return t, err
	}
	return t, nil
}

// pool of every member whose pool funds the match
func (s *Storage) poolAmount(ctx context.Context, q sharedpg.Querier, id domain.MatcherId) (int64, error) {
	var total int64
	err := q.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(p.amount), 0)
		FROM matcher_users mu
		JOIN user_pools p ON p.user_id = mu.user_id
		WHERE mu.matcher_id = $1 AND mu.pool`, id).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("failed to calculate pool amount: %w", err)
	}
	return total, nil
}

// campaign invests paid with the pool method by pool members
func (s *Storage) usedAmount(ctx context.Context, q sharedpg.Querier, id domain.MatcherId) (int64, error) {
	var total int64
	err := q.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(i.amount), 0)
		FROM invests i
		JOIN matcher_users mu ON mu.user_id = i.user_id AND mu.matcher_id = i.matcher_id AND mu.pool
		WHERE i.matcher_id = $1
		AND i.method = $2
		AND i.campaign
		AND i.status = ANY($3)`,
		id, s.cfg.Public.PoolPaymentMethod, s.activeInvestStatuses()).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("failed to calculate used amount: %w", err)
	}
	return total, nil
}

// non-campaign invests into the active member projects
func (s *Storage) crowdAmount(ctx context.Context, q sharedpg.Querier, id domain.MatcherId) (int64, error) {
	var total int64
	err := q.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(i.amount), 0)
		FROM invests i
		JOIN matcher_projects mp ON mp.project_id = i.project_id
		WHERE mp.matcher_id = $1 AND mp.status = 'active'
		AND NOT i.campaign
		AND i.status = ANY($2)`,
		id, s.activeInvestStatuses()).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("failed to calculate crowd amount: %w", err)
	}
	return total, nil
}

func (s *Storage) activeProjects(ctx context.Context, q sharedpg.Querier, id domain.MatcherId) (int, error) {
	var total int
	err := q.QueryRowContext(ctx, `
		SELECT COUNT(*)
		FROM matcher_projects
		WHERE matcher_id = $1 AND status = 'active'`, id).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("failed to count matcher projects: %w", err)
	}
	return total, nil
}

func (s *Storage) CalculatePoolAmount(ctx context.Context, id domain.MatcherId) (int64, error) {
	total, err := s.poolAmount(ctx, s.db, id)
	return total, internal_errors.Persistence("pool amount", err)
}

func (s *Storage) CalculateUsedAmount(ctx context.Context, id domain.MatcherId) (int64, error) {
	total, err := s.usedAmount(ctx, s.db, id)
	return total, internal_errors.Persistence("used amount", err)
}

func (s *Storage) CalculateCrowdAmount(ctx context.Context, id domain.MatcherId) (int64, error) {
	total, err := s.crowdAmount(ctx, s.db, id)
	return total, internal_errors.Persistence("crowd amount", err)
}

func (s *Storage) CalculateProjects(ctx context.Context, id domain.MatcherId) (int, error) {
	total, err := s.activeProjects(ctx, s.db, id)
	return total, internal_errors.Persistence("matcher projects", err)
}
