package api

import (
	"github.com/goteo-dev/goteo/shared/domain"
)

// Request DTOs

type CreateMessageRequest struct {
	ProjectId domain.ProjectId `json:"project" validate:"required"`
	Text      string           `json:"message" validate:"required"`
	Thread    *domain.MsgId    `json:"thread,omitempty"`
}

type SetRecipientsRequest struct {
	Recipients []domain.UserId `json:"recipients" validate:"required,min=1,dive,required"`
}

type TranslationRequest struct {
	Text string `json:"message" validate:"required"`
}

// Response DTOs

// MessageResponse is a message with its thread reference and type exposed.
type MessageResponse struct {
	domain.Message
	Thread    *domain.MsgId      `json:"thread,omitempty"`
	Type      domain.MessageType `json:"type,omitempty"`
	Responses []*MessageResponse `json:"responses,omitempty"`
}

func NewMessageResponse(msg *domain.Message) *MessageResponse {
	resp := &MessageResponse{Message: *msg}
	if !msg.IsThread() {
		thread := msg.ThreadId.Int64
		resp.Thread = &thread
	}
	for _, r := range msg.Responses {
		resp.Responses = append(resp.Responses, NewMessageResponse(r))
	}
	return resp
}

type CreateMessageResponse struct {
	Id domain.MsgId `json:"id"`
}

type ResponsesResponse struct {
	Responses []*MessageResponse `json:"responses"`
	Total     int                `json:"total"`
}

type ThreadsResponse struct {
	Threads []*MessageResponse `json:"threads"`
}

type MessengersResponse struct {
	Messengers    map[domain.UserId]*domain.Messenger `json:"messengers"`
	NumMessengers int                                 `json:"num_messengers"`
}

type RecipientsResponse struct {
	Recipients []domain.UserSummary `json:"recipients"`
}

type MessagedResponse struct {
	Projects []domain.Project `json:"projects"`
}
