package pg

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/goteo-dev/goteo/shared/domain"
	internal_errors "github.com/goteo-dev/goteo/shared/errors"
	sharedpg "github.com/goteo-dev/goteo/shared/storage/pg"
)

// UpdateMessengerCount counts the project's message rows and, when the count
// moved, stores it and shifts popularity by the same delta.
func (s *Storage) UpdateMessengerCount(ctx context.Context, project domain.ProjectId) (int, error) {
	var count int
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var err error
		count, err = s.updateMessengerCount(ctx, tx, project)
		return err
	})
	return count, internal_errors.Persistence("failed to update messenger count", err)
}

func (s *Storage) updateMessengerCount(ctx context.Context, q sharedpg.Querier, project domain.ProjectId) (int, error) {
	var stored int
	err := q.QueryRowContext(ctx, `
	SELECT num_messengers FROM projects WHERE id = $1 FOR UPDATE`, project).Scan(&stored)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, &internal_errors.NotFoundError{Entity: "project", Id: string(project)}
		}
		return 0, fmt.Errorf("failed to lock project: %w", err)
	}

	var count int
	err = q.QueryRowContext(ctx, `
	SELECT COUNT(*) FROM messages WHERE project_id = $1`, project).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count messengers: %w", err)
	}
	if count == stored {
		return count, nil
	}

	_, err = q.ExecContext(ctx, `
	UPDATE projects SET
		num_messengers = $2,
		popularity = popularity + $3
	WHERE id = $1`, project, count, count-stored)
	if err != nil {
		return 0, fmt.Errorf("failed to update messenger count: %w", err)
	}
	return count, nil
}

// ProjectMessengerRows returns every message of a project with its author
// and, for responses, the parent text.
func (s *Storage) ProjectMessengerRows(ctx context.Context, project domain.ProjectId) ([]domain.MessengerRow, error) {
	rows, err := s.db.QueryContext(ctx, `
	SELECT u.id, u.name, u.email, u.avatar, m.message, COALESCE(t.message, '')
	FROM messages m
	JOIN users u ON u.id = m.user_id
	LEFT JOIN messages t ON t.id = m.thread_id
	WHERE m.project_id = $1
	ORDER BY m.created, m.id`, project)
	if err != nil {
		return nil, internal_errors.Persistence("failed to fetch messengers", err)
	}
	defer rows.Close()

	result := []domain.MessengerRow{}
	for rows.Next() {
		var r domain.MessengerRow
		if err := rows.Scan(&r.Author.Id, &r.Author.Name, &r.Author.Email, &r.Author.Avatar, &r.Text, &r.ThreadText); err != nil {
			return nil, internal_errors.Persistence("failed to scan messenger", err)
		}
		result = append(result, r)
	}
	if err := rows.Err(); err != nil {
		return nil, internal_errors.Persistence("rows iteration error", err)
	}
	return result, nil
}

// MessagedProjects lists the distinct projects user wrote on whose status
// lies in [minStatus, maxStatus], ordered by name.
func (s *Storage) MessagedProjects(ctx context.Context, user domain.UserId, minStatus, maxStatus domain.ProjectStatus) ([]domain.Project, error) {
	query := fmt.Sprintf(`
	SELECT %s
	FROM projects p
	WHERE p.status BETWEEN $2 AND $3
	AND EXISTS (SELECT 1 FROM messages m WHERE m.project_id = p.id AND m.user_id = $1)
	ORDER BY p.name, p.id`, projectColumns)
	rows, err := s.db.QueryContext(ctx, query, user, minStatus, maxStatus)
	if err != nil {
		return nil, internal_errors.Persistence("failed to fetch messaged projects", err)
	}
	defer rows.Close()

	projects := []domain.Project{}
	for rows.Next() {
		var p domain.Project
		if err := rows.Scan(projectFields(&p)...); err != nil {
			return nil, internal_errors.Persistence("failed to scan project", err)
		}
		projects = append(projects, p)
	}
	if err := rows.Err(); err != nil {
		return nil, internal_errors.Persistence("rows iteration error", err)
	}
	return projects, nil
}
