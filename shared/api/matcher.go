package api

import (
	"github.com/goteo-dev/goteo/shared/domain"
)

// Request DTOs

type SaveMatcherRequest struct {
	Name      string         `json:"name" validate:"required"`
	Logo      string         `json:"logo"`
	Lang      string         `json:"lang"`
	Terms     string         `json:"terms"`
	Processor string         `json:"processor"`
	Vars      map[string]any `json:"vars"`
}

type MatcherUsersRequest struct {
	Users []domain.UserId `json:"users" validate:"required,min=1,dive,required"`
	Pool  *bool           `json:"pool,omitempty"` // defaults to true
}

type MatcherProjectsRequest struct {
	Projects []domain.ProjectId          `json:"projects" validate:"required,min=1,dive,required"`
	Status   domain.MatcherProjectStatus `json:"status,omitempty"` // defaults to pending
}

type PoolRequest struct {
	Pool bool `json:"pool"`
}

type StatusRequest struct {
	Status domain.MatcherProjectStatus `json:"status" validate:"required"`
}

// Response DTOs

type MatcherResponse struct {
	*domain.Matcher
	Available int64 `json:"available"`
}

func NewMatcherResponse(m *domain.Matcher) *MatcherResponse {
	return &MatcherResponse{Matcher: m, Available: m.Available()}
}

type MatchersResponse struct {
	Matchers []*MatcherResponse `json:"matchers"`
}

type MatcherUsersResponse struct {
	Users []domain.MatcherUser `json:"users"`
}

type MatcherProjectsResponse struct {
	Projects []domain.MatcherProject `json:"projects"`
}
