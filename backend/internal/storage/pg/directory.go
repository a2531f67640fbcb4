package pg

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/goteo-dev/goteo/shared/domain"
	internal_errors "github.com/goteo-dev/goteo/shared/errors"
)

const projectColumns = `
	p.id, p.name, COALESCE(p.owner_id, ''), p.status,
	p.num_messengers, p.num_investors, p.popularity`

func projectFields(p *domain.Project) []any {
	return []any{&p.Id, &p.Name, &p.OwnerId, &p.Status, &p.NumMessengers, &p.NumInvestors, &p.Popularity}
}

// GetUser returns the minimal identity projection of a user.
func (s *Storage) GetUser(ctx context.Context, id domain.UserId) (*domain.UserSummary, error) {
	var u domain.UserSummary
	err := s.db.QueryRowContext(ctx, `
	SELECT id, name, email, avatar FROM users WHERE id = $1`, id).
		Scan(&u.Id, &u.Name, &u.Email, &u.Avatar)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &internal_errors.NotFoundError{Entity: "user", Id: string(id)}
		}
		return nil, internal_errors.Persistence("failed to fetch user", err)
	}
	return &u, nil
}

func (s *Storage) GetProject(ctx context.Context, id domain.ProjectId) (*domain.Project, error) {
	var p domain.Project
	err := s.db.QueryRowContext(ctx,
		fmt.Sprintf("SELECT %s FROM projects p WHERE p.id = $1", projectColumns), id).
		Scan(projectFields(&p)...)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &internal_errors.NotFoundError{Entity: "project", Id: string(id)}
		}
		return nil, internal_errors.Persistence("failed to fetch project", err)
	}
	return &p, nil
}
