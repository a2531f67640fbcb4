package pg

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/goteo-dev/goteo/shared/domain"
	internal_errors "github.com/goteo-dev/goteo/shared/errors"
)

// AddMatcherUsers upserts memberships; an existing membership gets the new
// pool flag instead of a second row.
func (s *Storage) AddMatcherUsers(ctx context.Context, m *domain.Matcher, users []domain.UserId, pool bool) error {
	return s.mutateMatcher(ctx, m, "failed to add matcher users", func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
		INSERT INTO matcher_users (matcher_id, user_id, pool)
		SELECT DISTINCT $1::text, u, $3::boolean FROM unnest($2::text[]) AS u
		ON CONFLICT (matcher_id, user_id) DO UPDATE SET pool = EXCLUDED.pool`,
			m.Id, stringArray(users), pool)
		if err != nil {
			return fmt.Errorf("failed to upsert matcher users: %w", err)
		}
		return nil
	})
}

func (s *Storage) RemoveMatcherUsers(ctx context.Context, m *domain.Matcher, users []domain.UserId) error {
	return s.mutateMatcher(ctx, m, "failed to remove matcher users", func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
		DELETE FROM matcher_users WHERE matcher_id = $1 AND user_id = ANY($2)`,
			m.Id, stringArray(users))
		if err != nil {
			return fmt.Errorf("failed to delete matcher users: %w", err)
		}
		return nil
	})
}

func (s *Storage) SetMatcherUserPool(ctx context.Context, m *domain.Matcher, user domain.UserId, pool bool) error {
	return s.mutateMatcher(ctx, m, "failed to update matcher user pool", func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx, `
		UPDATE matcher_users SET pool = $3 WHERE matcher_id = $1 AND user_id = $2`,
			m.Id, user, pool)
		if err != nil {
			return fmt.Errorf("failed to update matcher user: %w", err)
		}
		if affected, _ := result.RowsAffected(); affected == 0 {
			return &internal_errors.NotFoundError{Entity: "matcher user", Id: string(user)}
		}
		return nil
	})
}

func (s *Storage) AddMatcherProjects(ctx context.Context, m *domain.Matcher, projects []domain.ProjectId, status domain.MatcherProjectStatus) error {
	return s.mutateMatcher(ctx, m, "failed to add matcher projects", func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
		INSERT INTO matcher_projects (matcher_id, project_id, status)
		SELECT DISTINCT $1::text, p, $3::text FROM unnest($2::text[]) AS p
		ON CONFLICT (matcher_id, project_id) DO UPDATE SET status = EXCLUDED.status`,
			m.Id, stringArray(projects), status)
		if err != nil {
			return fmt.Errorf("failed to upsert matcher projects: %w", err)
		}
		return nil
	})
}

func (s *Storage) RemoveMatcherProjects(ctx context.Context, m *domain.Matcher, projects []domain.ProjectId) error {
	return s.mutateMatcher(ctx, m, "failed to remove matcher projects", func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
		DELETE FROM matcher_projects WHERE matcher_id = $1 AND project_id = ANY($2)`,
			m.Id, stringArray(projects))
		if err != nil {
			return fmt.Errorf("failed to delete matcher projects: %w", err)
		}
		return nil
	})
}

func (s *Storage) SetMatcherProjectStatus(ctx context.Context, m *domain.Matcher, project domain.ProjectId, status domain.MatcherProjectStatus) error {
	return s.mutateMatcher(ctx, m, "failed to update matcher project status", func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx, `
		UPDATE matcher_projects SET status = $3 WHERE matcher_id = $1 AND project_id = $2`,
			m.Id, project, status)
		if err != nil {
			return fmt.Errorf("failed to update matcher project: %w", err)
		}
		if affected, _ := result.RowsAffected(); affected == 0 {
			return &internal_errors.NotFoundError{Entity: "matcher project", Id: string(project)}
		}
		return nil
	})
}

// MatcherUsers lists members ordered by name. poolOnly keeps the members whose
// pool funds the match.
func (s *Storage) MatcherUsers(ctx context.Context, id domain.MatcherId, poolOnly bool) ([]domain.MatcherUser, error) {
	rows, err := s.db.QueryContext(ctx, `
	SELECT u.id, u.name, u.email, u.avatar, mu.pool
	FROM matcher_users mu
	JOIN users u ON u.id = mu.user_id
	WHERE mu.matcher_id = $1 AND (NOT $2::boolean OR mu.pool)
	ORDER BY u.name, u.id`, id, poolOnly)
	if err != nil {
		return nil, internal_errors.Persistence("failed to fetch matcher users", err)
	}
	defer rows.Close()

	users := []domain.MatcherUser{}
	for rows.Next() {
		mu := domain.MatcherUser{MatcherId: id}
		if err := rows.Scan(&mu.Id, &mu.Name, &mu.Email, &mu.Avatar, &mu.Pool); err != nil {
			return nil, internal_errors.Persistence("failed to scan matcher user", err)
		}
		users = append(users, mu)
	}
	if err := rows.Err(); err != nil {
		return nil, internal_errors.Persistence("rows iteration error", err)
	}
	return users, nil
}

// MatcherProjects lists member projects, all of them when status is empty.
func (s *Storage) MatcherProjects(ctx context.Context, id domain.MatcherId, status domain.MatcherProjectStatus) ([]domain.MatcherProject, error) {
	query := fmt.Sprintf(`
	SELECT %s, mp.status
	FROM matcher_projects mp
	JOIN projects p ON p.id = mp.project_id
	WHERE mp.matcher_id = $1 AND ($2::text = '' OR mp.status = $2::text)
	ORDER BY p.name, p.id`, projectColumns)
	rows, err := s.db.QueryContext(ctx, query, id, status)
	if err != nil {
		return nil, internal_errors.Persistence("failed to fetch matcher projects", err)
	}
	defer rows.Close()

	projects := []domain.MatcherProject{}
	for rows.Next() {
		mp := domain.MatcherProject{MatcherId: id}
		if err := rows.Scan(append(projectFields(&mp.Project), &mp.Status)...); err != nil {
			return nil, internal_errors.Persistence("failed to scan matcher project", err)
		}
		projects = append(projects, mp)
	}
	if err := rows.Err(); err != nil {
		return nil, internal_errors.Persistence("rows iteration error", err)
	}
	return projects, nil
}
