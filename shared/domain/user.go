package domain

// UserSummary is the minimal identity projection used for authors and members.
type UserSummary struct {
	Id     UserId `json:"id"`
	Name   string `json:"name"`
	Email  string `json:"email,omitempty"`
	Avatar string `json:"avatar,omitempty"`
}

func (u *UserSummary) UserRefId() UserId { return u.Id }

// Messenger is a project participant together with what they wrote.
type Messenger struct {
	UserSummary
	Messages []MessengerMessage `json:"messages"`
}

type MessengerMessage struct {
	Text       MsgText `json:"text"`
	ThreadText MsgText `json:"thread_text,omitempty"`
}

// MessengerRow is one message of a project joined with its author and parent.
type MessengerRow struct {
	Author     UserSummary
	Text       MsgText
	ThreadText MsgText
}

// Viewer is the authenticated caller as carried by the access token.
type Viewer struct {
	Id    UserId
	Admin bool
}

func (v *Viewer) UserRefId() UserId { return v.Id }
