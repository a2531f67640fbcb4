package domain

// Project lifecycle statuses as stored in projects.status.
const (
	ProjectStatusRejected   ProjectStatus = 0
	ProjectStatusEditing    ProjectStatus = 1
	ProjectStatusReviewing  ProjectStatus = 2
	ProjectStatusInCampaign ProjectStatus = 3
	ProjectStatusFunded     ProjectStatus = 4
	ProjectStatusFulfilled  ProjectStatus = 5
	ProjectStatusUnfunded   ProjectStatus = 6
)

type Project struct {
	Id            ProjectId     `json:"id"`
	Name          string        `json:"name"`
	OwnerId       UserId        `json:"owner"`
	Status        ProjectStatus `json:"status"`
	NumMessengers int           `json:"num_messengers"`
	NumInvestors  int           `json:"num_investors"`
	Popularity    int           `json:"popularity"`
}

func (p *Project) ProjectRefId() ProjectId { return p.Id }
