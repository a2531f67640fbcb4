package domain

import (
	"database/sql"
	"time"
)

const (
	MessageTypeResponse       MessageType = "response"
	MessageTypeProjectComment MessageType = "project-comment"
	MessageTypeProjectSupport MessageType = "project-support"
)

type Message struct {
	Id         MsgId         `json:"id"`
	Author     UserSummary   `json:"user"`
	ProjectId  ProjectId     `json:"project,omitempty"`
	ThreadId   sql.NullInt64 `json:"-"` // invalid for thread roots
	CreatedAt  time.Time     `json:"date"`
	Text       MsgText       `json:"message"`
	Blocked    bool          `json:"blocked"`
	Closed     bool          `json:"closed"`
	Private    bool          `json:"private"`
	Recipients []UserId      `json:"recipients,omitempty"`
	Responses  []*Message    `json:"responses,omitempty"`
	TimeAgo    string        `json:"timeago,omitempty"`

	cache    *ResponseCache
	rendered *renderedText
}

type renderedText struct {
	stored, display MsgText
}

func (m *Message) IsThread() bool {
	return !m.ThreadId.Valid
}

func (m *Message) SetThread(id MsgId) {
	m.ThreadId = sql.NullInt64{Int64: id, Valid: true}
}

// Render replaces Text with its display form. StoredText keeps returning the
// original body until Text is edited or reset with SetText.
func (m *Message) Render(render func(MsgText) MsgText) {
	stored := m.StoredText()
	m.Text = render(stored)
	m.rendered = &renderedText{stored: stored, display: m.Text}
}

func (m *Message) StoredText() MsgText {
	if m.rendered != nil && m.Text == m.rendered.display {
		return m.rendered.stored
	}
	return m.Text
}

func (m *Message) SetText(text MsgText) {
	m.Text = text
	m.rendered = nil
}

// ResponseCache returns the per-instance cache of viewer scoped responses.
func (m *Message) ResponseCache() *ResponseCache {
	if m.cache == nil {
		m.cache = &ResponseCache{}
	}
	return m.cache
}

// ResponseCache memoizes visible responses and their totals per viewer id.
// The anonymous viewer is keyed by "".
type ResponseCache struct {
	responses map[UserId][]*Message
	totals    map[UserId]int
}

func (c *ResponseCache) Responses(viewer UserId) ([]*Message, bool) {
	r, ok := c.responses[viewer]
	return r, ok
}

func (c *ResponseCache) StoreResponses(viewer UserId, responses []*Message) {
	if c.responses == nil {
		c.responses = make(map[UserId][]*Message)
	}
	c.responses[viewer] = responses
}

func (c *ResponseCache) Total(viewer UserId) (int, bool) {
	n, ok := c.totals[viewer]
	return n, ok
}

func (c *ResponseCache) StoreTotal(viewer UserId, total int) {
	if c.totals == nil {
		c.totals = make(map[UserId]int)
	}
	c.totals[viewer] = total
}

func (c *ResponseCache) Invalidate() {
	c.responses = nil
	c.totals = nil
}

// VisibleTo reports whether viewer may read m as a thread response.
func (m *Message) VisibleTo(viewer UserId) bool {
	if !m.Private {
		return true
	}
	if viewer == "" {
		return false
	}
	if m.Author.Id == viewer {
		return true
	}
	for _, r := range m.Recipients {
		if r == viewer {
			return true
		}
	}
	return false
}
