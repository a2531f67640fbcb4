package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/goteo-dev/goteo/shared/config"
	"github.com/goteo-dev/goteo/shared/domain"
	internal_errors "github.com/goteo-dev/goteo/shared/errors"
	"github.com/goteo-dev/goteo/shared/text"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- Mocks ---

// MockMessageStorage mocks the MessageStorage interface.
type MockMessageStorage struct {
	getMessageFunc       func(id domain.MsgId) (*domain.Message, error)
	saveMessageFunc      func(msg *domain.Message) error
	replaceRecipientFunc func(msg *domain.Message, ids []domain.UserId) error
	deleteMessageFunc    func(id domain.MsgId) (int64, error)
	saveTranslationFunc  func(id domain.MsgId, lang domain.Locale, text domain.MsgText) error
	threadResponsesFunc  func(thread domain.MsgId, publicOnly bool) ([]*domain.Message, error)
	responseIdsFunc      func(thread domain.MsgId) ([]domain.MsgId, error)
	visibleFunc          func(thread domain.MsgId, viewer domain.UserId) ([]*domain.Message, error)
	countVisibleFunc     func(thread domain.MsgId, viewer domain.UserId) (int, error)
	projectThreadsFunc   func(project domain.ProjectId, lang domain.Locale, withEnglish bool) ([]*domain.Message, error)
	supportFunc          func(id domain.MsgId) (string, bool, error)
	messengerCountFunc   func(project domain.ProjectId) (int, error)
	messengerRowsFunc    func(project domain.ProjectId) ([]domain.MessengerRow, error)
	messagedFunc         func(user domain.UserId, minStatus, maxStatus domain.ProjectStatus) ([]domain.Project, error)
	getUserFunc          func(id domain.UserId) (*domain.UserSummary, error)
	getProjectFunc       func(id domain.ProjectId) (*domain.Project, error)

	mu    sync.Mutex
	calls []string
}

func (m *MockMessageStorage) record(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, name)
}

func (m *MockMessageStorage) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.calls...)
}

func (m *MockMessageStorage) count(name string) int {
	n := 0
	for _, c := range m.Calls() {
		if c == name {
			n++
		}
	}
	return n
}

func (m *MockMessageStorage) GetMessage(ctx context.Context, id domain.MsgId) (*domain.Message, error) {
	m.record("GetMessage")
	if m.getMessageFunc != nil {
		return m.getMessageFunc(id)
	}
	return &domain.Message{Id: id, Text: "text"}, nil
}

func (m *MockMessageStorage) SaveMessage(ctx context.Context, msg *domain.Message) error {
	m.record("SaveMessage")
	if m.saveMessageFunc != nil {
		return m.saveMessageFunc(msg)
	}
	if msg.Id == 0 {
		msg.Id = 1
	}
	return nil
}

func (m *MockMessageStorage) ReplaceRecipients(ctx context.Context, msg *domain.Message, ids []domain.UserId) error {
	m.record("ReplaceRecipients")
	if m.replaceRecipientFunc != nil {
		return m.replaceRecipientFunc(msg, ids)
	}
	msg.Private = true
	msg.Recipients = ids
	return nil
}

func (m *MockMessageStorage) GetRecipients(ctx context.Context, id domain.MsgId) ([]domain.UserSummary, error) {
	m.record("GetRecipients")
	return []domain.UserSummary{}, nil
}

func (m *MockMessageStorage) DeleteMessage(ctx context.Context, id domain.MsgId) (int64, error) {
	m.record("DeleteMessage")
	if m.deleteMessageFunc != nil {
		return m.deleteMessageFunc(id)
	}
	return 1, nil
}

func (m *MockMessageStorage) SaveTranslation(ctx context.Context, id domain.MsgId, lang domain.Locale, text domain.MsgText) error {
	m.record("SaveTranslation")
	if m.saveTranslationFunc != nil {
		return m.saveTranslationFunc(id, lang, text)
	}
	return nil
}

func (m *MockMessageStorage) GetThreadResponses(ctx context.Context, thread domain.MsgId, publicOnly bool) ([]*domain.Message, error) {
	m.record("GetThreadResponses")
	if m.threadResponsesFunc != nil {
		return m.threadResponsesFunc(thread, publicOnly)
	}
	return []*domain.Message{}, nil
}

func (m *MockMessageStorage) GetResponseIds(ctx context.Context, thread domain.MsgId) ([]domain.MsgId, error) {
	m.record("GetResponseIds")
	if m.responseIdsFunc != nil {
		return m.responseIdsFunc(thread)
	}
	return []domain.MsgId{}, nil
}

func (m *MockMessageStorage) GetVisibleResponses(ctx context.Context, thread domain.MsgId, viewer domain.UserId) ([]*domain.Message, error) {
	m.record("GetVisibleResponses")
	if m.visibleFunc != nil {
		return m.visibleFunc(thread, viewer)
	}
	return []*domain.Message{}, nil
}

func (m *MockMessageStorage) CountVisibleResponses(ctx context.Context, thread domain.MsgId, viewer domain.UserId) (int, error) {
	m.record("CountVisibleResponses")
	if m.countVisibleFunc != nil {
		return m.countVisibleFunc(thread, viewer)
	}
	return 0, nil
}

func (m *MockMessageStorage) GetProjectThreads(ctx context.Context, project domain.ProjectId, lang domain.Locale, withEnglish bool) ([]*domain.Message, error) {
	m.record("GetProjectThreads")
	if m.projectThreadsFunc != nil {
		return m.projectThreadsFunc(project, lang, withEnglish)
	}
	return []*domain.Message{}, nil
}

func (m *MockMessageStorage) SupportForThread(ctx context.Context, id domain.MsgId) (string, bool, error) {
	m.record("SupportForThread")
	if m.supportFunc != nil {
		return m.supportFunc(id)
	}
	return "", false, nil
}

func (m *MockMessageStorage) UserThreads(ctx context.Context, user domain.UserId, limit int) ([]*domain.Message, error) {
	m.record("UserThreads")
	return []*domain.Message{{Id: 7, Text: "thread"}}, nil
}

func (m *MockMessageStorage) UpdateMessengerCount(ctx context.Context, project domain.ProjectId) (int, error) {
	m.record("UpdateMessengerCount")
	if m.messengerCountFunc != nil {
		return m.messengerCountFunc(project)
	}
	return 0, nil
}

func (m *MockMessageStorage) ProjectMessengerRows(ctx context.Context, project domain.ProjectId) ([]domain.MessengerRow, error) {
	m.record("ProjectMessengerRows")
	if m.messengerRowsFunc != nil {
		return m.messengerRowsFunc(project)
	}
	return []domain.MessengerRow{}, nil
}

func (m *MockMessageStorage) MessagedProjects(ctx context.Context, user domain.UserId, minStatus, maxStatus domain.ProjectStatus) ([]domain.Project, error) {
	m.record("MessagedProjects")
	if m.messagedFunc != nil {
		return m.messagedFunc(user, minStatus, maxStatus)
	}
	return []domain.Project{}, nil
}

func (m *MockMessageStorage) GetUser(ctx context.Context, id domain.UserId) (*domain.UserSummary, error) {
	m.record("GetUser")
	if m.getUserFunc != nil {
		return m.getUserFunc(id)
	}
	return &domain.UserSummary{Id: id}, nil
}

func (m *MockMessageStorage) GetProject(ctx context.Context, id domain.ProjectId) (*domain.Project, error) {
	m.record("GetProject")
	if m.getProjectFunc != nil {
		return m.getProjectFunc(id)
	}
	return &domain.Project{Id: id}, nil
}

// --- Tests ---

func newTestMessageService(storage *MockMessageStorage) MessageService {
	return NewMessage(storage, text.New(), &config.Public{DefaultLang: "es"})
}

func response(id domain.MsgId, author domain.UserId, private bool, recipients ...domain.UserId) *domain.Message {
	msg := &domain.Message{Id: id, Author: domain.UserSummary{Id: author}, Private: private, Recipients: recipients}
	msg.SetThread(1)
	return msg
}

func TestMessageGet(t *testing.T) {
	ctx := context.Background()

	t.Run("root formats and eager loads public responses", func(t *testing.T) {
		var gotPublicOnly bool
		storage := &MockMessageStorage{
			getMessageFunc: func(id domain.MsgId) (*domain.Message, error) {
				return &domain.Message{Id: id, Text: "see https://goteo.org", CreatedAt: time.Now().Add(-3 * time.Hour)}, nil
			},
			threadResponsesFunc: func(thread domain.MsgId, publicOnly bool) ([]*domain.Message, error) {
				gotPublicOnly = publicOnly
				return []*domain.Message{response(2, "a", false)}, nil
			},
		}
		service := newTestMessageService(storage)

		msg, err := service.Get(ctx, 1)
		require.NoError(t, err)
		assert.Contains(t, msg.Text, `href="https://goteo.org"`)
		assert.Equal(t, "see https://goteo.org", msg.StoredText())
		assert.Equal(t, "3 hours ago", msg.TimeAgo)
		assert.True(t, gotPublicOnly)
		require.Len(t, msg.Responses, 1)
		assert.Equal(t, domain.MsgId(2), msg.Responses[0].Id)
	})

	t.Run("response does not load responses", func(t *testing.T) {
		storage := &MockMessageStorage{
			getMessageFunc: func(id domain.MsgId) (*domain.Message, error) { return response(id, "a", false), nil },
		}
		service := newTestMessageService(storage)

		_, err := service.Get(ctx, 5)
		require.NoError(t, err)
		assert.Equal(t, []string{"GetMessage"}, storage.Calls())
	})

	t.Run("not found", func(t *testing.T) {
		storage := &MockMessageStorage{
			getMessageFunc: func(id domain.MsgId) (*domain.Message, error) {
				return nil, &internal_errors.NotFoundError{Entity: "message", Id: "9"}
			},
		}
		service := newTestMessageService(storage)
		_, err := service.Get(ctx, 9)
		assert.True(t, internal_errors.Is[*internal_errors.NotFoundError](err))
	})
}

func TestMessageListThreads(t *testing.T) {
	ctx := context.Background()

	t.Run("french asks for the english tier", func(t *testing.T) {
		var gotLang domain.Locale
		var gotEnglish bool
		storage := &MockMessageStorage{
			projectThreadsFunc: func(project domain.ProjectId, lang domain.Locale, withEnglish bool) ([]*domain.Message, error) {
				gotLang, gotEnglish = lang, withEnglish
				return []*domain.Message{{Id: 1, ProjectId: project, Text: "Hello"}}, nil
			},
			responseIdsFunc: func(thread domain.MsgId) ([]domain.MsgId, error) { return []domain.MsgId{2, 3}, nil },
			getMessageFunc: func(id domain.MsgId) (*domain.Message, error) {
				return response(id, "a", id == 3, "b"), nil
			},
		}
		service := newTestMessageService(storage)

		threads, err := service.ListThreads(ctx, domain.ProjectId("p1"), "fr_FR")
		require.NoError(t, err)
		assert.Equal(t, "fr", gotLang)
		assert.True(t, gotEnglish)
		require.Len(t, threads, 1)
		require.Len(t, threads[0].Responses, 2)
		assert.True(t, threads[0].Responses[1].Private)
		assert.Equal(t, 2, storage.count("GetMessage"))
	})

	t.Run("default language skips english", func(t *testing.T) {
		var gotLang domain.Locale
		gotEnglish := true
		storage := &MockMessageStorage{
			projectThreadsFunc: func(project domain.ProjectId, lang domain.Locale, withEnglish bool) ([]*domain.Message, error) {
				gotLang, gotEnglish = lang, withEnglish
				return []*domain.Message{}, nil
			},
		}
		service := newTestMessageService(storage)

		_, err := service.ListThreads(ctx, &domain.Project{Id: "p1"}, "")
		require.NoError(t, err)
		assert.Equal(t, "es", gotLang)
		assert.False(t, gotEnglish)
		assert.Equal(t, 1, storage.count("GetProject"))
	})

	t.Run("unknown project", func(t *testing.T) {
		storage := &MockMessageStorage{
			projectThreadsFunc: func(project domain.ProjectId, lang domain.Locale, withEnglish bool) ([]*domain.Message, error) {
				return []*domain.Message{}, nil
			},
			getProjectFunc: func(id domain.ProjectId) (*domain.Project, error) {
				return nil, &internal_errors.NotFoundError{Entity: "project", Id: string(id)}
			},
		}
		service := newTestMessageService(storage)

		_, err := service.ListThreads(ctx, domain.ProjectId("nope"), "")
		assert.True(t, internal_errors.Is[*internal_errors.NotFoundError](err))
	})

	t.Run("threads found skip the project lookup", func(t *testing.T) {
		storage := &MockMessageStorage{
			projectThreadsFunc: func(project domain.ProjectId, lang domain.Locale, withEnglish bool) ([]*domain.Message, error) {
				return []*domain.Message{{Id: 1, ProjectId: project, Text: "Hello"}}, nil
			},
			responseIdsFunc: func(thread domain.MsgId) ([]domain.MsgId, error) { return []domain.MsgId{}, nil },
		}
		service := newTestMessageService(storage)

		_, err := service.ListThreads(ctx, domain.ProjectId("p1"), "")
		require.NoError(t, err)
		assert.Zero(t, storage.count("GetProject"))
	})
}

func TestMessageResponses(t *testing.T) {
	ctx := context.Background()
	thread := &domain.Message{Id: 1}
	stored := []*domain.Message{
		response(2, "c", false),
		response(3, "owner", true, "a", "b"),
	}
	storage := &MockMessageStorage{
		visibleFunc: func(_ domain.MsgId, _ domain.UserId) ([]*domain.Message, error) {
			// a storage that forgot to filter
			return stored, nil
		},
	}
	service := newTestMessageService(storage)

	ids := func(msgs []*domain.Message) []domain.MsgId {
		out := []domain.MsgId{}
		for _, m := range msgs {
			out = append(out, m.Id)
		}
		return out
	}

	for _, viewer := range []domain.UserRef{domain.UserId("a"), &domain.UserSummary{Id: "b"}, domain.UserId("owner")} {
		got, err := service.Responses(ctx, thread, viewer)
		require.NoError(t, err)
		assert.Equal(t, []domain.MsgId{2, 3}, ids(got))
	}
	for _, viewer := range []domain.UserRef{domain.UserId("c"), nil} {
		got, err := service.Responses(ctx, thread, viewer)
		require.NoError(t, err)
		assert.Equal(t, []domain.MsgId{2}, ids(got))
	}
	assert.Equal(t, 5, storage.count("GetVisibleResponses"))

	// cached per viewer
	_, err := service.Responses(ctx, thread, domain.UserId("a"))
	require.NoError(t, err)
	assert.Equal(t, 5, storage.count("GetVisibleResponses"))
}

func TestMessageTotalResponses(t *testing.T) {
	ctx := context.Background()
	storage := &MockMessageStorage{
		countVisibleFunc: func(_ domain.MsgId, viewer domain.UserId) (int, error) {
			if viewer == "a" {
				return 2, nil
			}
			return 1, nil
		},
	}
	service := newTestMessageService(storage)
	thread := &domain.Message{Id: 1}

	total, err := service.TotalResponses(ctx, thread, domain.UserId("a"))
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	total, err = service.TotalResponses(ctx, thread, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	_, err = service.TotalResponses(ctx, thread, domain.UserId("a"))
	require.NoError(t, err)
	assert.Equal(t, 2, storage.count("CountVisibleResponses"))

	total, err = service.TotalResponses(ctx, &domain.Message{}, nil)
	require.NoError(t, err)
	assert.Zero(t, total)
}

func TestMessageSave(t *testing.T) {
	ctx := context.Background()

	t.Run("collects validation problems", func(t *testing.T) {
		storage := &MockMessageStorage{}
		service := newTestMessageService(storage)

		err := service.Save(ctx, &domain.Message{Text: "<script>x</script>"})
		var verr *internal_errors.ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Equal(t, []string{"empty user", "empty project", "empty text"}, verr.Problems)
		assert.Empty(t, storage.Calls())
	})

	t.Run("sanitizes and invalidates cache", func(t *testing.T) {
		var saved domain.MsgText
		storage := &MockMessageStorage{
			saveMessageFunc: func(msg *domain.Message) error {
				saved = msg.StoredText()
				msg.Id = 10
				return nil
			},
		}
		service := newTestMessageService(storage)

		msg := &domain.Message{Author: domain.UserSummary{Id: "a"}, ProjectId: "p1", Text: "hi <iframe src=x></iframe><b>there</b>"}
		msg.ResponseCache().StoreTotal("", 4)
		require.NoError(t, service.Save(ctx, msg))
		assert.Equal(t, "hi <b>there</b>", saved)
		assert.Equal(t, domain.MsgId(10), msg.Id)
		_, cached := msg.ResponseCache().Total("")
		assert.False(t, cached)
	})

	t.Run("saving a rendered message stores the original body", func(t *testing.T) {
		var saved domain.MsgText
		storage := &MockMessageStorage{
			saveMessageFunc: func(msg *domain.Message) error {
				saved = msg.StoredText()
				return nil
			},
		}
		service := newTestMessageService(storage)

		msg := &domain.Message{Id: 3, Author: domain.UserSummary{Id: "a"}, ProjectId: "p1", Text: "line one\nline two"}
		msg.Render(text.New().Format)
		require.NoError(t, service.Save(ctx, msg))
		assert.Equal(t, "line one\nline two", saved)
	})

	t.Run("closed thread refuses new responses", func(t *testing.T) {
		storage := &MockMessageStorage{
			getMessageFunc: func(id domain.MsgId) (*domain.Message, error) {
				return &domain.Message{Id: id, ProjectId: "p1", Closed: true}, nil
			},
		}
		service := newTestMessageService(storage)

		msg := &domain.Message{Author: domain.UserSummary{Id: "a"}, ProjectId: "p1", Text: "late"}
		msg.SetThread(1)
		err := service.Save(ctx, msg)
		assert.ErrorIs(t, err, internal_errors.ErrThreadClosed)
		assert.Zero(t, storage.count("SaveMessage"))
	})

	t.Run("reply to a response is refused", func(t *testing.T) {
		storage := &MockMessageStorage{
			getMessageFunc: func(id domain.MsgId) (*domain.Message, error) {
				parent := &domain.Message{Id: id, ProjectId: "p1"}
				parent.SetThread(1)
				return parent, nil
			},
		}
		service := newTestMessageService(storage)

		msg := &domain.Message{Author: domain.UserSummary{Id: "a"}, ProjectId: "p1", Text: "nested"}
		msg.SetThread(2)
		err := service.Save(ctx, msg)
		assert.True(t, internal_errors.Is[*internal_errors.ValidationError](err))
		assert.Zero(t, storage.count("SaveMessage"))
		assert.Zero(t, msg.Id)
	})

	t.Run("thread of another project is refused", func(t *testing.T) {
		storage := &MockMessageStorage{
			getMessageFunc: func(id domain.MsgId) (*domain.Message, error) {
				return &domain.Message{Id: id, ProjectId: "p2"}, nil
			},
		}
		service := newTestMessageService(storage)

		msg := &domain.Message{Author: domain.UserSummary{Id: "a"}, ProjectId: "p1", Text: "misplaced"}
		msg.SetThread(1)
		err := service.Save(ctx, msg)
		assert.True(t, internal_errors.Is[*internal_errors.ValidationError](err))
		assert.Zero(t, storage.count("SaveMessage"))
	})

	t.Run("storage failure", func(t *testing.T) {
		storageErr := errors.New("db down")
		storage := &MockMessageStorage{saveMessageFunc: func(*domain.Message) error { return storageErr }}
		service := newTestMessageService(storage)

		err := service.Save(ctx, &domain.Message{Author: domain.UserSummary{Id: "a"}, ProjectId: "p1", Text: "x"})
		assert.ErrorIs(t, err, storageErr)
	})
}

func TestMessageSetRecipients(t *testing.T) {
	ctx := context.Background()

	t.Run("empty list is a no-op", func(t *testing.T) {
		storage := &MockMessageStorage{}
		service := newTestMessageService(storage)
		msg := &domain.Message{Id: 1, Author: domain.UserSummary{Id: "a"}, ProjectId: "p1", Text: "x"}
		require.NoError(t, service.SetRecipients(ctx, msg))
		assert.False(t, msg.Private)
		assert.Empty(t, storage.Calls())
	})

	t.Run("replaces recipients", func(t *testing.T) {
		var got []domain.UserId
		storage := &MockMessageStorage{
			replaceRecipientFunc: func(msg *domain.Message, ids []domain.UserId) error {
				got = ids
				msg.Private = true
				return nil
			},
		}
		service := newTestMessageService(storage)
		msg := &domain.Message{Id: 1, Author: domain.UserSummary{Id: "a"}, ProjectId: "p1", Text: "x"}
		msg.ResponseCache().StoreTotal("b", 0)

		require.NoError(t, service.SetRecipients(ctx, msg, domain.UserId("b"), &domain.UserSummary{Id: "c"}))
		assert.Equal(t, []domain.UserId{"b", "c"}, got)
		assert.True(t, msg.Private)
		_, cached := msg.ResponseCache().Total("b")
		assert.False(t, cached)
	})
}

func TestMessageDelete(t *testing.T) {
	ctx := context.Background()

	messages := func(byId map[domain.MsgId]*domain.Message) func(domain.MsgId) (*domain.Message, error) {
		return func(id domain.MsgId) (*domain.Message, error) {
			if m, ok := byId[id]; ok {
				return m, nil
			}
			return nil, &internal_errors.NotFoundError{Entity: "message"}
		}
	}

	t.Run("blocked message is refused", func(t *testing.T) {
		storage := &MockMessageStorage{getMessageFunc: messages(map[domain.MsgId]*domain.Message{
			1: {Id: 1, Blocked: true},
		})}
		service := newTestMessageService(storage)

		err := service.Delete(ctx, 1)
		assert.ErrorIs(t, err, internal_errors.ErrBlocked)
		assert.Zero(t, storage.count("DeleteMessage"))
	})

	t.Run("response of blocked root is refused", func(t *testing.T) {
		reply := response(2, "a", false)
		storage := &MockMessageStorage{getMessageFunc: messages(map[domain.MsgId]*domain.Message{
			1: {Id: 1, Blocked: true},
			2: reply,
		})}
		service := newTestMessageService(storage)

		err := service.Delete(ctx, 2)
		assert.ErrorIs(t, err, internal_errors.ErrBlocked)
		assert.Zero(t, storage.count("DeleteMessage"))
	})

	t.Run("unblocked root is deleted", func(t *testing.T) {
		storage := &MockMessageStorage{
			getMessageFunc: messages(map[domain.MsgId]*domain.Message{1: {Id: 1}}),
			deleteMessageFunc: func(id domain.MsgId) (int64, error) {
				return 3, nil
			},
		}
		service := newTestMessageService(storage)
		require.NoError(t, service.Delete(ctx, 1))
		assert.Equal(t, 1, storage.count("DeleteMessage"))
	})

	t.Run("zero id", func(t *testing.T) {
		service := newTestMessageService(&MockMessageStorage{})
		err := service.Delete(ctx, 0)
		assert.True(t, internal_errors.Is[*internal_errors.ValidationError](err))
	})
}

func TestMessageType(t *testing.T) {
	ctx := context.Background()
	storage := &MockMessageStorage{
		supportFunc: func(id domain.MsgId) (string, bool, error) { return "Translators", id == 2, nil },
	}
	service := newTestMessageService(storage)

	typ, err := service.Type(ctx, response(5, "a", false))
	require.NoError(t, err)
	assert.Equal(t, domain.MessageTypeResponse, typ)

	typ, err = service.Type(ctx, &domain.Message{Id: 1, ProjectId: "p1"})
	require.NoError(t, err)
	assert.Equal(t, domain.MessageTypeProjectComment, typ)

	typ, err = service.Type(ctx, &domain.Message{Id: 2, ProjectId: "p1"})
	require.NoError(t, err)
	assert.Equal(t, domain.MessageTypeProjectSupport, typ)

	name, ok, err := service.IsSupport(ctx, 2)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "Translators", name)
}

func TestMessageTranslation(t *testing.T) {
	ctx := context.Background()
	var gotLang domain.Locale
	var gotText domain.MsgText
	storage := &MockMessageStorage{
		saveTranslationFunc: func(_ domain.MsgId, lang domain.Locale, text domain.MsgText) error {
			gotLang, gotText = lang, text
			return nil
		},
	}
	service := newTestMessageService(storage)

	require.NoError(t, service.SaveTranslation(ctx, 1, "en-GB", "Hello <script>x</script>"))
	assert.Equal(t, "en", gotLang)
	assert.Equal(t, "Hello ", gotText)

	err := service.SaveTranslation(ctx, 0, "???", "")
	var verr *internal_errors.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Len(t, verr.Problems, 3)
}

func TestMessengers(t *testing.T) {
	ctx := context.Background()
	storage := &MockMessageStorage{
		messengerRowsFunc: func(domain.ProjectId) ([]domain.MessengerRow, error) {
			return []domain.MessengerRow{
				{Author: domain.UserSummary{Id: "a", Name: "Ann"}, Text: "Question"},
				{Author: domain.UserSummary{Id: "b", Name: "Bob"}, Text: "Answer", ThreadText: "Question"},
				{Author: domain.UserSummary{Id: "a", Name: "Ann"}, Text: "Thanks", ThreadText: "Question"},
			}, nil
		},
		messengerCountFunc: func(domain.ProjectId) (int, error) { return 3, nil },
	}
	service := newTestMessageService(storage)

	messengers, err := service.Messengers(ctx, domain.ProjectId("p1"))
	require.NoError(t, err)
	require.Len(t, messengers, 2)
	assert.Equal(t, "Ann", messengers["a"].Name)
	assert.Equal(t, []domain.MessengerMessage{
		{Text: "Question"},
		{Text: "Thanks", ThreadText: "Question"},
	}, messengers["a"].Messages)
	assert.Len(t, messengers["b"].Messages, 1)

	n, err := service.NumMessengers(ctx, &domain.Project{Id: "p1"})
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestMessaged(t *testing.T) {
	ctx := context.Background()
	var gotMin, gotMax domain.ProjectStatus
	storage := &MockMessageStorage{
		messagedFunc: func(_ domain.UserId, minStatus, maxStatus domain.ProjectStatus) ([]domain.Project, error) {
			gotMin, gotMax = minStatus, maxStatus
			return []domain.Project{}, nil
		},
	}
	service := newTestMessageService(storage)

	_, err := service.Messaged(ctx, domain.UserId("a"), true)
	require.NoError(t, err)
	assert.Equal(t, domain.ProjectStatusInCampaign, gotMin)
	assert.Equal(t, domain.ProjectStatusUnfunded, gotMax)

	_, err = service.Messaged(ctx, domain.UserId("a"), false)
	require.NoError(t, err)
	assert.Equal(t, domain.ProjectStatusRejected, gotMin)

	_, err = service.Messaged(ctx, nil, true)
	assert.True(t, internal_errors.Is[*internal_errors.ValidationError](err))

	storage.getUserFunc = func(id domain.UserId) (*domain.UserSummary, error) {
		return nil, &internal_errors.NotFoundError{Entity: "user", Id: string(id)}
	}
	_, err = service.Messaged(ctx, domain.UserId("ghost"), true)
	assert.True(t, internal_errors.Is[*internal_errors.NotFoundError](err))
}

func TestUserThreadsAndRecipients(t *testing.T) {
	ctx := context.Background()
	storage := &MockMessageStorage{}
	service := newTestMessageService(storage)

	threads, err := service.UserThreads(ctx, domain.UserId("a"))
	require.NoError(t, err)
	require.Len(t, threads, 1)
	assert.Equal(t, "thread", threads[0].StoredText())

	recipients, err := service.Recipients(ctx, &domain.Message{})
	require.NoError(t, err)
	assert.Empty(t, recipients)
	assert.Equal(t, []string{"UserThreads"}, storage.Calls())
}
