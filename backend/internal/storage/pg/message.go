package pg

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/goteo-dev/goteo/shared/domain"
	internal_errors "github.com/goteo-dev/goteo/shared/errors"
	sharedpg "github.com/goteo-dev/goteo/shared/storage/pg"

	"github.com/lib/pq"
)

// messageSelect builds the common projection; textExpr lets thread listings
// substitute a translated body.
func messageSelect(textExpr string) string {
	return fmt.Sprintf(`
	SELECT
		m.id,
		m.user_id, u.name, u.email, u.avatar,
		COALESCE(m.project_id, ''),
		m.thread_id,
		m.created,
		%s,
		m.blocked,
		m.closed,
		m.private,
		ARRAY(SELECT r.user_id FROM message_recipients r WHERE r.message_id = m.id ORDER BY r.user_id)
	FROM messages m
	JOIN users u ON u.id = m.user_id`, textExpr)
}

func scanMessage(row rowScanner) (*domain.Message, error) {
	var msg domain.Message
	var recipients pq.StringArray
	err := row.Scan(
		&msg.Id,
		&msg.Author.Id, &msg.Author.Name, &msg.Author.Email, &msg.Author.Avatar,
		&msg.ProjectId,
		&msg.ThreadId,
		&msg.CreatedAt,
		&msg.Text,
		&msg.Blocked,
		&msg.Closed,
		&msg.Private,
		&recipients,
	)
	if err != nil {
		return nil, err
	}
	for _, r := range recipients {
		msg.Recipients = append(msg.Recipients, domain.UserId(r))
	}
	return &msg, nil
}

func scanMessages(rows *sql.Rows) ([]*domain.Message, error) {
	defer rows.Close()
	messages := []*domain.Message{}
	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		messages = append(messages, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}
	return messages, nil
}

func (s *Storage) GetMessage(ctx context.Context, id domain.MsgId) (*domain.Message, error) {
	msg, err := scanMessage(s.db.QueryRowContext(ctx, messageSelect("m.message")+`
	WHERE m.id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &internal_errors.NotFoundError{Entity: "message", Id: fmt.Sprint(id)}
		}
		return nil, internal_errors.Persistence("failed to fetch message", err)
	}
	return msg, nil
}

// SaveMessage inserts a message with a zero id and updates it otherwise. The
// project's messenger count is refreshed in the same transaction.
func (s *Storage) SaveMessage(ctx context.Context, msg *domain.Message) error {
	prev := *msg
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		return s.saveMessage(ctx, tx, msg)
	})
	if err != nil {
		*msg = prev
		return internal_errors.Persistence("failed to save message", err)
	}
	return nil
}

func (s *Storage) saveMessage(ctx context.Context, q sharedpg.Querier, msg *domain.Message) error {
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now().UTC().Round(time.Microsecond) // database anyway round to microsecond
	}

	if msg.Id == 0 {
		err := q.QueryRowContext(ctx, `
		INSERT INTO messages (user_id, project_id, thread_id, created, message, blocked, closed, private)
		VALUES ($1, NULLIF($2, ''), $3, $4, $5, $6, $7, $8)
		RETURNING id`,
			msg.Author.Id, msg.ProjectId, msg.ThreadId, msg.CreatedAt, msg.StoredText(),
			msg.Blocked, msg.Closed, msg.Private).Scan(&msg.Id)
		if err != nil {
			return fmt.Errorf("failed to insert message: %w", err)
		}
	} else {
		result, err := q.ExecContext(ctx, `
		UPDATE messages SET
			user_id = $2,
			project_id = NULLIF($3, ''),
			thread_id = $4,
			created = $5,
			message = $6,
			blocked = $7,
			closed = $8,
			private = $9
		WHERE id = $1`,
			msg.Id, msg.Author.Id, msg.ProjectId, msg.ThreadId, msg.CreatedAt, msg.StoredText(),
			msg.Blocked, msg.Closed, msg.Private)
		if err != nil {
			return fmt.Errorf("failed to update message: %w", err)
		}
		if affected, _ := result.RowsAffected(); affected == 0 {
			return &internal_errors.NotFoundError{Entity: "message", Id: fmt.Sprint(msg.Id)}
		}
	}

	if msg.ProjectId == "" {
		return nil
	}
	_, err := s.updateMessengerCount(ctx, q, msg.ProjectId)
	return err
}

// ReplaceRecipients marks msg private, saves it and swaps its recipient set
// for exactly ids.
func (s *Storage) ReplaceRecipients(ctx context.Context, msg *domain.Message, ids []domain.UserId) error {
	prev := *msg
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		msg.Private = true
		if err := s.saveMessage(ctx, tx, msg); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `
		DELETE FROM message_recipients WHERE message_id = $1`, msg.Id); err != nil {
			return fmt.Errorf("failed to delete recipients: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `
		INSERT INTO message_recipients (message_id, user_id)
		SELECT DISTINCT $1::bigint, u FROM unnest($2::text[]) AS u`,
			msg.Id, stringArray(ids)); err != nil {
			return fmt.Errorf("failed to insert recipients: %w", err)
		}
		return nil
	})
	if err != nil {
		*msg = prev
		return internal_errors.Persistence("failed to set recipients", err)
	}
	msg.Recipients = append([]domain.UserId(nil), ids...)
	return nil
}

func (s *Storage) GetRecipients(ctx context.Context, id domain.MsgId) ([]domain.UserSummary, error) {
	rows, err := s.db.QueryContext(ctx, `
	SELECT u.id, u.name, u.email, u.avatar
	FROM message_recipients r
	JOIN users u ON u.id = r.user_id
	WHERE r.message_id = $1
	ORDER BY u.name, u.id`, id)
	if err != nil {
		return nil, internal_errors.Persistence("failed to fetch recipients", err)
	}
	defer rows.Close()

	users := []domain.UserSummary{}
	for rows.Next() {
		var u domain.UserSummary
		if err := rows.Scan(&u.Id, &u.Name, &u.Email, &u.Avatar); err != nil {
			return nil, internal_errors.Persistence("failed to scan recipient", err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, internal_errors.Persistence("rows iteration error", err)
	}
	return users, nil
}

// DeleteMessage removes the message and its direct responses. Returns the
// number of deleted rows.
func (s *Storage) DeleteMessage(ctx context.Context, id domain.MsgId) (int64, error) {
	var deleted int64
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx, `DELETE FROM messages WHERE thread_id = $1`, id)
		if err != nil {
			return fmt.Errorf("failed to delete responses: %w", err)
		}
		responses, _ := result.RowsAffected()

		result, err = tx.ExecContext(ctx, `DELETE FROM messages WHERE id = $1`, id)
		if err != nil {
			return fmt.Errorf("failed to delete message: %w", err)
		}
		self, _ := result.RowsAffected()
		if self == 0 {
			return &internal_errors.NotFoundError{Entity: "message", Id: fmt.Sprint(id)}
		}
		deleted = responses + self
		return nil
	})
	if err != nil {
		return 0, internal_errors.Persistence("failed to delete message", err)
	}
	return deleted, nil
}

func (s *Storage) SaveTranslation(ctx context.Context, id domain.MsgId, lang domain.Locale, text domain.MsgText) error {
	_, err := s.db.ExecContext(ctx, `
	INSERT INTO message_translations (id, lang, message)
	VALUES ($1, $2, $3)
	ON CONFLICT (id, lang) DO UPDATE SET message = EXCLUDED.message`, id, lang, text)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "foreign_key_violation" {
			return &internal_errors.NotFoundError{Entity: "message", Id: fmt.Sprint(id)}
		}
		return internal_errors.Persistence("failed to save translation", err)
	}
	return nil
}
