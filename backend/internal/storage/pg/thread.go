package pg

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/goteo-dev/goteo/shared/domain"
	internal_errors "github.com/goteo-dev/goteo/shared/errors"
)

// GetThreadResponses returns the direct responses of a thread ordered by
// creation, only public ones when publicOnly is set.
func (s *Storage) GetThreadResponses(ctx context.Context, thread domain.MsgId, publicOnly bool) ([]*domain.Message, error) {
	rows, err := s.db.QueryContext(ctx, messageSelect("m.message")+`
	WHERE m.thread_id = $1 AND (NOT $2::boolean OR NOT m.private)
	ORDER BY m.created, m.id`, thread, publicOnly)
	if err != nil {
		return nil, internal_errors.Persistence("failed to fetch responses", err)
	}
	messages, err := scanMessages(rows)
	return messages, internal_errors.Persistence("failed to fetch responses", err)
}

// GetResponseIds returns every direct response id, private included.
func (s *Storage) GetResponseIds(ctx context.Context, thread domain.MsgId) ([]domain.MsgId, error) {
	rows, err := s.db.QueryContext(ctx, `
	SELECT id FROM messages WHERE thread_id = $1 ORDER BY created, id`, thread)
	if err != nil {
		return nil, internal_errors.Persistence("failed to fetch response ids", err)
	}
	defer rows.Close()

	ids := []domain.MsgId{}
	for rows.Next() {
		var id domain.MsgId
		if err := rows.Scan(&id); err != nil {
			return nil, internal_errors.Persistence("failed to scan response id", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, internal_errors.Persistence("rows iteration error", err)
	}
	return ids, nil
}

// visible to $2: public, written by $2 or addressed to $2
const visibleToViewer = `
	(NOT m.private
	OR m.user_id = $2
	OR EXISTS (SELECT 1 FROM message_recipients r WHERE r.message_id = m.id AND r.user_id = $2))`

func (s *Storage) GetVisibleResponses(ctx context.Context, thread domain.MsgId, viewer domain.UserId) ([]*domain.Message, error) {
	rows, err := s.db.QueryContext(ctx, messageSelect("m.message")+`
	WHERE m.thread_id = $1 AND`+visibleToViewer+`
	ORDER BY m.created, m.id`, thread, viewer)
	if err != nil {
		return nil, internal_errors.Persistence("failed to fetch visible responses", err)
	}
	messages, err := scanMessages(rows)
	return messages, internal_errors.Persistence("failed to fetch visible responses", err)
}

func (s *Storage) CountVisibleResponses(ctx context.Context, thread domain.MsgId, viewer domain.UserId) (int, error) {
	var total int
	err := s.db.QueryRowContext(ctx, `
	SELECT COUNT(*) FROM messages m
	WHERE m.thread_id = $1 AND`+visibleToViewer, thread, viewer).Scan(&total)
	if err != nil {
		return 0, internal_errors.Persistence("failed to count responses", err)
	}
	return total, nil
}

// GetProjectThreads lists the thread roots of a project. The body is the
// lang translation, then the English one when withEnglish is set, then the
// original text.
func (s *Storage) GetProjectThreads(ctx context.Context, project domain.ProjectId, lang domain.Locale, withEnglish bool) ([]*domain.Message, error) {
	query := messageSelect("COALESCE(tr.message, eng.message, m.message)") + `
	LEFT JOIN message_translations tr ON tr.id = m.id AND tr.lang = $2
	LEFT JOIN message_translations eng ON eng.id = m.id AND eng.lang = 'en' AND $3::boolean
	WHERE m.project_id = $1 AND m.thread_id IS NULL
	ORDER BY m.created, m.id`
	rows, err := s.db.QueryContext(ctx, query, project, lang, withEnglish)
	if err != nil {
		return nil, internal_errors.Persistence("failed to fetch project threads", err)
	}
	messages, err := scanMessages(rows)
	return messages, internal_errors.Persistence("failed to fetch project threads", err)
}

// SupportForThread returns the support name whose thread is id.
func (s *Storage) SupportForThread(ctx context.Context, id domain.MsgId) (string, bool, error) {
	var support string
	err := s.db.QueryRowContext(ctx, `
	SELECT support FROM supports WHERE thread_id = $1 ORDER BY id LIMIT 1`, id).Scan(&support)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", false, nil
		}
		return "", false, internal_errors.Persistence("failed to fetch support", err)
	}
	return support, true, nil
}

// UserThreads returns up to limit thread roots holding a non-blocked response
// written by or addressed to user, latest activity first.
func (s *Storage) UserThreads(ctx context.Context, user domain.UserId, limit int) ([]*domain.Message, error) {
	query := fmt.Sprintf(`
	WITH touched AS (
		SELECT b.thread_id, MAX(b.created) AS last
		FROM messages b
		WHERE b.thread_id IS NOT NULL AND NOT b.blocked
		AND (b.user_id = $1 OR EXISTS (
			SELECT 1 FROM message_recipients r WHERE r.message_id = b.id AND r.user_id = $1))
		GROUP BY b.thread_id
	)
	%s
	JOIN touched t ON t.thread_id = m.id
	ORDER BY t.last DESC, m.id DESC
	LIMIT $2`, messageSelect("m.message"))
	rows, err := s.db.QueryContext(ctx, query, user, limit)
	if err != nil {
		return nil, internal_errors.Persistence("failed to fetch user threads", err)
	}
	messages, err := scanMessages(rows)
	return messages, internal_errors.Persistence("failed to fetch user threads", err)
}
