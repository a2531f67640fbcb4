package service

import (
	"context"
	"strings"

	"github.com/goteo-dev/goteo/shared/config"
	"github.com/goteo-dev/goteo/shared/domain"
	internal_errors "github.com/goteo-dev/goteo/shared/errors"
	"github.com/goteo-dev/goteo/shared/logger"
	"github.com/goteo-dev/goteo/shared/text"
)

const userThreadsLimit = 10

type MessageService interface {
	Get(ctx context.Context, id domain.MsgId) (*domain.Message, error)
	ListThreads(ctx context.Context, project domain.ProjectRef, locale domain.Locale) ([]*domain.Message, error)
	Responses(ctx context.Context, msg *domain.Message, viewer domain.UserRef) ([]*domain.Message, error)
	TotalResponses(ctx context.Context, msg *domain.Message, viewer domain.UserRef) (int, error)
	SetRecipients(ctx context.Context, msg *domain.Message, recipients ...domain.UserRef) error
	Save(ctx context.Context, msg *domain.Message) error
	SaveTranslation(ctx context.Context, id domain.MsgId, locale domain.Locale, body domain.MsgText) error
	Delete(ctx context.Context, id domain.MsgId) error
	Type(ctx context.Context, msg *domain.Message) (domain.MessageType, error)

	NumMessengers(ctx context.Context, project domain.ProjectRef) (int, error)
	Messengers(ctx context.Context, project domain.ProjectRef) (map[domain.UserId]*domain.Messenger, error)
	Messaged(ctx context.Context, user domain.UserRef, publicOnly bool) ([]domain.Project, error)

	IsSupport(ctx context.Context, id domain.MsgId) (string, bool, error)
	Recipients(ctx context.Context, msg *domain.Message) ([]domain.UserSummary, error)
	UserThreads(ctx context.Context, user domain.UserRef) ([]*domain.Message, error)
}

type MessageStorage interface {
	GetMessage(ctx context.Context, id domain.MsgId) (*domain.Message, error)
	SaveMessage(ctx context.Context, msg *domain.Message) error
	ReplaceRecipients(ctx context.Context, msg *domain.Message, ids []domain.UserId) error
	GetRecipients(ctx context.Context, id domain.MsgId) ([]domain.UserSummary, error)
	DeleteMessage(ctx context.Context, id domain.MsgId) (int64, error)
	SaveTranslation(ctx context.Context, id domain.MsgId, lang domain.Locale, text domain.MsgText) error

	GetThreadResponses(ctx context.Context, thread domain.MsgId, publicOnly bool) ([]*domain.Message, error)
	GetResponseIds(ctx context.Context, thread domain.MsgId) ([]domain.MsgId, error)
	GetVisibleResponses(ctx context.Context, thread domain.MsgId, viewer domain.UserId) ([]*domain.Message, error)
	CountVisibleResponses(ctx context.Context, thread domain.MsgId, viewer domain.UserId) (int, error)
	GetProjectThreads(ctx context.Context, project domain.ProjectId, lang domain.Locale, withEnglish bool) ([]*domain.Message, error)
	SupportForThread(ctx context.Context, id domain.MsgId) (string, bool, error)
	UserThreads(ctx context.Context, user domain.UserId, limit int) ([]*domain.Message, error)

	UpdateMessengerCount(ctx context.Context, project domain.ProjectId) (int, error)
	ProjectMessengerRows(ctx context.Context, project domain.ProjectId) ([]domain.MessengerRow, error)
	MessagedProjects(ctx context.Context, user domain.UserId, minStatus, maxStatus domain.ProjectStatus) ([]domain.Project, error)

	GetUser(ctx context.Context, id domain.UserId) (*domain.UserSummary, error)
	GetProject(ctx context.Context, id domain.ProjectId) (*domain.Project, error)
}

type TextProcessor interface {
	Sanitize(s string) string
	Format(s string) string
}

type Message struct {
	storage MessageStorage
	text    TextProcessor
	cfg     *config.Public
}

func NewMessage(storage MessageStorage, text TextProcessor, cfg *config.Public) MessageService {
	return &Message{storage, text, cfg}
}

// present prepares a loaded message for display.
func (s *Message) present(msg *domain.Message) {
	msg.Render(s.text.Format)
	msg.TimeAgo = text.TimeAgo(msg.CreatedAt)
}

func (s *Message) Get(ctx context.Context, id domain.MsgId) (*domain.Message, error) {
	msg, err := s.storage.GetMessage(ctx, id)
	if err != nil {
		return nil, err
	}
	s.present(msg)

	if msg.IsThread() {
		responses, err := s.storage.GetThreadResponses(ctx, msg.Id, true)
		if err != nil {
			return nil, err
		}
		for _, r := range responses {
			s.present(r)
		}
		msg.Responses = responses
	}
	return msg, nil
}

func (s *Message) ListThreads(ctx context.Context, project domain.ProjectRef, locale domain.Locale) ([]*domain.Message, error) {
	projectId := domain.ProjectIdOf(project)
	if projectId == "" {
		return nil, &internal_errors.ValidationError{Problems: []string{"empty project"}}
	}
	defaultLang := text.NormalizeLang(s.cfg.DefaultLang, s.cfg.DefaultLang)
	lang := text.NormalizeLang(locale, defaultLang)

	threads, err := s.storage.GetProjectThreads(ctx, projectId, lang, lang != defaultLang)
	if err != nil {
		return nil, err
	}
	if len(threads) == 0 {
		// no threads and no project are different answers
		if _, err := s.storage.GetProject(ctx, projectId); err != nil {
			return nil, err
		}
	}
	for _, thread := range threads {
		s.present(thread)
		ids, err := s.storage.GetResponseIds(ctx, thread.Id)
		if err != nil {
			return nil, err
		}
		thread.Responses = make([]*domain.Message, 0, len(ids))
		for _, id := range ids {
			response, err := s.Get(ctx, id)
			if err != nil {
				return nil, err
			}
			thread.Responses = append(thread.Responses, response)
		}
	}
	return threads, nil
}

func (s *Message) Responses(ctx context.Context, msg *domain.Message, viewer domain.UserRef) ([]*domain.Message, error) {
	viewerId := domain.UserIdOf(viewer)
	cache := msg.ResponseCache()
	if responses, ok := cache.Responses(viewerId); ok {
		return responses, nil
	}

	stored, err := s.storage.GetVisibleResponses(ctx, msg.Id, viewerId)
	if err != nil {
		return nil, err
	}
	responses := make([]*domain.Message, 0, len(stored))
	for _, r := range stored {
		if !r.VisibleTo(viewerId) {
			continue
		}
		r.TimeAgo = text.TimeAgo(r.CreatedAt)
		responses = append(responses, r)
	}
	cache.StoreResponses(viewerId, responses)
	return responses, nil
}

func (s *Message) TotalResponses(ctx context.Context, msg *domain.Message, viewer domain.UserRef) (int, error) {
	if msg.Id == 0 {
		return 0, nil
	}
	viewerId := domain.UserIdOf(viewer)
	cache := msg.ResponseCache()
	if total, ok := cache.Total(viewerId); ok {
		return total, nil
	}
	total, err := s.storage.CountVisibleResponses(ctx, msg.Id, viewerId)
	if err != nil {
		return 0, err
	}
	cache.StoreTotal(viewerId, total)
	return total, nil
}

func (s *Message) validate(msg *domain.Message) error {
	verr := &internal_errors.ValidationError{}
	if msg.Author.Id == "" {
		verr.Add("empty user")
	}
	if msg.ProjectId == "" {
		verr.Add("empty project")
	}
	if strings.TrimSpace(msg.StoredText()) == "" {
		verr.Add("empty text")
	}
	return verr.Err()
}

func (s *Message) Save(ctx context.Context, msg *domain.Message) error {
	msg.SetText(s.text.Sanitize(msg.StoredText()))
	if err := s.validate(msg); err != nil {
		return err
	}

	if msg.Id == 0 && !msg.IsThread() {
		root, err := s.storage.GetMessage(ctx, msg.ThreadId.Int64)
		if err != nil {
			return err
		}
		// responses hang off a root of the same project, one level deep
		if !root.IsThread() {
			return &internal_errors.ValidationError{Problems: []string{"thread is a response"}}
		}
		if root.ProjectId != msg.ProjectId {
			return &internal_errors.ValidationError{Problems: []string{"thread belongs to another project"}}
		}
		if root.Closed {
			return internal_errors.ErrThreadClosed
		}
	}

	isNew := msg.Id == 0
	err := s.storage.SaveMessage(ctx, msg)
	messageWrites.WithLabelValues("save", resultLabel(err)).Inc()
	if err != nil {
		return err
	}
	msg.ResponseCache().Invalidate()
	logger.FromContext(ctx).Info("message saved",
		"messageId", msg.Id,
		"projectId", msg.ProjectId,
		"thread", msg.ThreadId.Int64,
		"new", isNew)
	return nil
}

// SetRecipients makes msg private to exactly recipients. An empty list
// changes nothing.
func (s *Message) SetRecipients(ctx context.Context, msg *domain.Message, recipients ...domain.UserRef) error {
	ids := domain.UserIds(recipients...)
	if len(ids) == 0 {
		return nil
	}
	if err := s.validate(msg); err != nil {
		return err
	}
	err := s.storage.ReplaceRecipients(ctx, msg, ids)
	messageWrites.WithLabelValues("set_recipients", resultLabel(err)).Inc()
	if err != nil {
		return err
	}
	msg.ResponseCache().Invalidate()
	logger.FromContext(ctx).Info("message recipients replaced", "messageId", msg.Id, "recipients", len(ids))
	return nil
}

func (s *Message) SaveTranslation(ctx context.Context, id domain.MsgId, locale domain.Locale, body domain.MsgText) error {
	verr := &internal_errors.ValidationError{}
	if id == 0 {
		verr.Add("empty id")
	}
	lang := text.NormalizeLang(locale, "")
	if lang == "" {
		verr.Add("invalid locale %q", locale)
	}
	body = s.text.Sanitize(body)
	if strings.TrimSpace(body) == "" {
		verr.Add("empty text")
	}
	if err := verr.Err(); err != nil {
		return err
	}

	err := s.storage.SaveTranslation(ctx, id, lang, body)
	messageWrites.WithLabelValues("save_translation", resultLabel(err)).Inc()
	return err
}

// Delete refuses blocked messages and responses of blocked threads.
func (s *Message) Delete(ctx context.Context, id domain.MsgId) error {
	if id == 0 {
		return &internal_errors.ValidationError{Problems: []string{"empty id"}}
	}
	msg, err := s.storage.GetMessage(ctx, id)
	if err != nil {
		return err
	}
	if msg.Blocked {
		return internal_errors.ErrBlocked
	}
	if !msg.IsThread() {
		root, err := s.storage.GetMessage(ctx, msg.ThreadId.Int64)
		if err != nil && !internal_errors.Is[*internal_errors.NotFoundError](err) {
			return err
		}
		if root != nil && root.Blocked {
			return internal_errors.ErrBlocked
		}
	}

	deleted, err := s.storage.DeleteMessage(ctx, id)
	messageWrites.WithLabelValues("delete", resultLabel(err)).Inc()
	if err != nil {
		return err
	}
	logger.FromContext(ctx).Info("message deleted", "messageId", id, "rows", deleted)
	return nil
}

func (s *Message) Type(ctx context.Context, msg *domain.Message) (domain.MessageType, error) {
	if !msg.IsThread() {
		return domain.MessageTypeResponse, nil
	}
	if msg.ProjectId == "" {
		return "", nil
	}
	_, support, err := s.storage.SupportForThread(ctx, msg.Id)
	if err != nil {
		return "", err
	}
	if support {
		return domain.MessageTypeProjectSupport, nil
	}
	return domain.MessageTypeProjectComment, nil
}

func (s *Message) NumMessengers(ctx context.Context, project domain.ProjectRef) (int, error) {
	id := domain.ProjectIdOf(project)
	if id == "" {
		return 0, &internal_errors.ValidationError{Problems: []string{"empty project"}}
	}
	return s.storage.UpdateMessengerCount(ctx, id)
}

func (s *Message) Messengers(ctx context.Context, project domain.ProjectRef) (map[domain.UserId]*domain.Messenger, error) {
	id := domain.ProjectIdOf(project)
	if id == "" {
		return nil, &internal_errors.ValidationError{Problems: []string{"empty project"}}
	}
	rows, err := s.storage.ProjectMessengerRows(ctx, id)
	if err != nil {
		return nil, err
	}

	messengers := make(map[domain.UserId]*domain.Messenger)
	for _, row := range rows {
		m, ok := messengers[row.Author.Id]
		if !ok {
			m = &domain.Messenger{UserSummary: row.Author, Messages: []domain.MessengerMessage{}}
			messengers[row.Author.Id] = m
		}
		m.Messages = append(m.Messages, domain.MessengerMessage{Text: row.Text, ThreadText: row.ThreadText})
	}
	return messengers, nil
}

func (s *Message) Messaged(ctx context.Context, user domain.UserRef, publicOnly bool) ([]domain.Project, error) {
	id := domain.UserIdOf(user)
	if id == "" {
		return nil, &internal_errors.ValidationError{Problems: []string{"empty user"}}
	}
	minStatus := domain.ProjectStatusRejected
	if publicOnly {
		minStatus = domain.ProjectStatusInCampaign
	}
	projects, err := s.storage.MessagedProjects(ctx, id, minStatus, domain.ProjectStatusUnfunded)
	if err != nil {
		return nil, err
	}
	if len(projects) == 0 {
		if _, err := s.storage.GetUser(ctx, id); err != nil {
			return nil, err
		}
	}
	return projects, nil
}

func (s *Message) IsSupport(ctx context.Context, id domain.MsgId) (string, bool, error) {
	return s.storage.SupportForThread(ctx, id)
}

func (s *Message) Recipients(ctx context.Context, msg *domain.Message) ([]domain.UserSummary, error) {
	if msg.Id == 0 {
		return []domain.UserSummary{}, nil
	}
	return s.storage.GetRecipients(ctx, msg.Id)
}

func (s *Message) UserThreads(ctx context.Context, user domain.UserRef) ([]*domain.Message, error) {
	id := domain.UserIdOf(user)
	if id == "" {
		return nil, &internal_errors.ValidationError{Problems: []string{"empty user"}}
	}
	threads, err := s.storage.UserThreads(ctx, id, userThreadsLimit)
	if err != nil {
		return nil, err
	}
	for _, t := range threads {
		s.present(t)
	}
	return threads, nil
}
