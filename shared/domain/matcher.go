package domain

import "time"

const (
	MatcherProjectPending  MatcherProjectStatus = "pending"
	MatcherProjectAccepted MatcherProjectStatus = "accepted"
	MatcherProjectActive   MatcherProjectStatus = "active"
	MatcherProjectRejected MatcherProjectStatus = "rejected"
)

var MatcherProjectStatuses = []MatcherProjectStatus{
	MatcherProjectPending,
	MatcherProjectAccepted,
	MatcherProjectActive,
	MatcherProjectRejected,
}

func IsMatcherProjectStatus(status string) bool {
	for _, s := range MatcherProjectStatuses {
		if s == status {
			return true
		}
	}
	return false
}

// Matcher is a matching fund. Crowd, Used, Amount and Projects are derived
// from the membership and invest tables and rewritten on every save.
type Matcher struct {
	Id        MatcherId      `json:"id"`
	Name      string         `json:"name"`
	Logo      string         `json:"logo"`
	Lang      Locale         `json:"lang"`
	Terms     string         `json:"terms"`
	Processor string         `json:"processor"`
	Vars      map[string]any `json:"vars"`

	Crowd    int64 `json:"crowd"`
	Used     int64 `json:"used"`
	Amount   int64 `json:"amount"`
	Projects int   `json:"projects"`

	Created    time.Time  `json:"created"`
	ModifiedAt *time.Time `json:"modified_at"` // nil until first persisted
}

// Available is never stored.
func (m *Matcher) Available() int64 {
	return m.Amount - m.Used
}

// MatcherTotals holds a fresh computation of the derived fields.
type MatcherTotals struct {
	Crowd    int64
	Used     int64
	Amount   int64
	Projects int
}

func (m *Matcher) ApplyTotals(t MatcherTotals) {
	m.Crowd = t.Crowd
	m.Used = t.Used
	m.Amount = t.Amount
	m.Projects = t.Projects
}

type MatcherUser struct {
	MatcherId MatcherId `json:"matcher"`
	UserSummary
	Pool bool `json:"pool"`
}

type MatcherProject struct {
	MatcherId MatcherId            `json:"matcher"`
	Project   Project              `json:"project"`
	Status    MatcherProjectStatus `json:"status"`
}
