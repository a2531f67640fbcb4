package domain

import (
	"fmt"
	"time"
)

// for debug
func (m *Message) String() string {
	thread := "none"
	if m.ThreadId.Valid {
		thread = fmt.Sprint(m.ThreadId.Int64)
	}
	s := fmt.Sprintf("[id:%d, author:%s, project:%s, text:%s, created:%s, thread_id:%s, private:%t, recipients:[",
		m.Id, m.Author.Id, m.ProjectId, m.Text, m.CreatedAt.Format(time.StampMilli), thread, m.Private)
	for i, r := range m.Recipients {
		if i > 0 {
			s += ", "
		}
		s += string(r)
	}
	return s + "]]"
}

func (m *Matcher) String() string {
	return fmt.Sprintf("[id:%s, name:%s, amount:%d, used:%d, crowd:%d, projects:%d]",
		m.Id, m.Name, m.Amount, m.Used, m.Crowd, m.Projects)
}
