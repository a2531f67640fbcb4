package domain

type (
	UserId    string
	ProjectId string
	MatcherId string

	MsgId   = int64
	MsgText = string
	Locale  = string

	MatcherProjectStatus = string
	MessageType          = string
	ProjectStatus        = int
)

// UserRef is either a bare user id or a loaded user. Operations taking refs
// resolve them once, at the boundary, into ids.
type UserRef interface {
	UserRefId() UserId
}

// ProjectRef is either a bare project id or a loaded project.
type ProjectRef interface {
	ProjectRefId() ProjectId
}

func (id UserId) UserRefId() UserId          { return id }
func (id ProjectId) ProjectRefId() ProjectId { return id }

// UserIdOf resolves an optional ref; a nil ref is the anonymous viewer "".
func UserIdOf(ref UserRef) UserId {
	if ref == nil {
		return ""
	}
	return ref.UserRefId()
}

func UserIds(refs ...UserRef) []UserId {
	ids := make([]UserId, 0, len(refs))
	for _, ref := range refs {
		if ref == nil {
			continue
		}
		ids = append(ids, ref.UserRefId())
	}
	return ids
}

func ProjectIdOf(ref ProjectRef) ProjectId {
	if ref == nil {
		return ""
	}
	return ref.ProjectRefId()
}

func ProjectIds(refs ...ProjectRef) []ProjectId {
	ids := make([]ProjectId, 0, len(refs))
	for _, ref := range refs {
		if ref == nil {
			continue
		}
		ids = append(ids, ref.ProjectRefId())
	}
	return ids
}
