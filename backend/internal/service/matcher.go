package service

import (
	"context"
	"strings"

	"github.com/goteo-dev/goteo/shared/config"
	"github.com/goteo-dev/goteo/shared/domain"
	internal_errors "github.com/goteo-dev/goteo/shared/errors"
	"github.com/goteo-dev/goteo/shared/logger"
)

type MatcherService interface {
	Get(ctx context.Context, id domain.MatcherId) (*domain.Matcher, error)
	ForProject(ctx context.Context, project domain.ProjectRef, activeOnly bool) ([]*domain.Matcher, error)
	Save(ctx context.Context, m *domain.Matcher) error

	AddUsers(ctx context.Context, m *domain.Matcher, pool bool, users ...domain.UserRef) error
	RemoveUsers(ctx context.Context, m *domain.Matcher, users ...domain.UserRef) error
	UseUserPool(ctx context.Context, m *domain.Matcher, user domain.UserRef, pool bool) error
	AddProjects(ctx context.Context, m *domain.Matcher, status domain.MatcherProjectStatus, projects ...domain.ProjectRef) error
	RemoveProjects(ctx context.Context, m *domain.Matcher, projects ...domain.ProjectRef) error
	SetProjectStatus(ctx context.Context, m *domain.Matcher, project domain.ProjectRef, status domain.MatcherProjectStatus) error

	TotalAmount(ctx context.Context, m *domain.Matcher) (int64, error)
	UsedAmount(ctx context.Context, m *domain.Matcher) (int64, error)
	AvailableAmount(ctx context.Context, m *domain.Matcher) (int64, error)
	CrowdAmount(ctx context.Context, m *domain.Matcher) (int64, error)
	TotalProjects(ctx context.Context, m *domain.Matcher) (int, error)

	Users(ctx context.Context, id domain.MatcherId, poolOnly bool) ([]domain.MatcherUser, error)
	Projects(ctx context.Context, id domain.MatcherId, status domain.MatcherProjectStatus) ([]domain.MatcherProject, error)
}

type MatcherStorage interface {
	GetMatcher(ctx context.Context, id domain.MatcherId) (*domain.Matcher, error)
	GetProjectMatchers(ctx context.Context, project domain.ProjectId, activeOnly bool) ([]*domain.Matcher, error)
	SaveMatcher(ctx context.Context, m *domain.Matcher) error

	AddMatcherUsers(ctx context.Context, m *domain.Matcher, users []domain.UserId, pool bool) error
	RemoveMatcherUsers(ctx context.Context, m *domain.Matcher, users []domain.UserId) error
	SetMatcherUserPool(ctx context.Context, m *domain.Matcher, user domain.UserId, pool bool) error
	AddMatcherProjects(ctx context.Context, m *domain.Matcher, projects []domain.ProjectId, status domain.MatcherProjectStatus) error
	RemoveMatcherProjects(ctx context.Context, m *domain.Matcher, projects []domain.ProjectId) error
	SetMatcherProjectStatus(ctx context.Context, m *domain.Matcher, project domain.ProjectId, status domain.MatcherProjectStatus) error

	CalculatePoolAmount(ctx context.Context, id domain.MatcherId) (int64, error)
	CalculateUsedAmount(ctx context.Context, id domain.MatcherId) (int64, error)
	CalculateCrowdAmount(ctx context.Context, id domain.MatcherId) (int64, error)
	CalculateProjects(ctx context.Context, id domain.MatcherId) (int, error)

	MatcherUsers(ctx context.Context, id domain.MatcherId, poolOnly bool) ([]domain.MatcherUser, error)
	MatcherProjects(ctx context.Context, id domain.MatcherId, status domain.MatcherProjectStatus) ([]domain.MatcherProject, error)
}

type Matcher struct {
	storage MatcherStorage
	cfg     *config.Public
}

func NewMatcher(storage MatcherStorage, cfg *config.Public) MatcherService {
	return &Matcher{storage, cfg}
}

func (s *Matcher) Get(ctx context.Context, id domain.MatcherId) (*domain.Matcher, error) {
	return s.storage.GetMatcher(ctx, id)
}

func (s *Matcher) ForProject(ctx context.Context, project domain.ProjectRef, activeOnly bool) ([]*domain.Matcher, error) {
	id := domain.ProjectIdOf(project)
	if id == "" {
		return nil, &internal_errors.ValidationError{Problems: []string{"empty project"}}
	}
	return s.storage.GetProjectMatchers(ctx, id, activeOnly)
}

func (s *Matcher) validate(m *domain.Matcher) error {
	verr := &internal_errors.ValidationError{}
	if m == nil {
		verr.Add("empty matcher")
		return verr
	}
	if strings.TrimSpace(string(m.Id)) == "" {
		verr.Add("empty id")
	}
	if strings.TrimSpace(m.Name) == "" {
		verr.Add("empty name")
	}
	return verr.Err()
}

func (s *Matcher) Save(ctx context.Context, m *domain.Matcher) error {
	if err := s.validate(m); err != nil {
		return err
	}
	if m.Lang == "" {
		m.Lang = s.cfg.DefaultLang
	}
	err := s.storage.SaveMatcher(ctx, m)
	s.recalculated(ctx, "save", m, err)
	return err
}

// recalculated records the outcome of any write that recomputed m.
func (s *Matcher) recalculated(ctx context.Context, op string, m *domain.Matcher, err error) {
	matcherRecalculations.WithLabelValues(op, resultLabel(err)).Inc()
	if err != nil {
		logger.FromContext(ctx).Error("matcher write failed", "operation", op, "matcherId", m.Id, "error", err)
		return
	}
	logger.FromContext(ctx).Info("matcher recalculated",
		"operation", op,
		"matcherId", m.Id,
		"amount", m.Amount,
		"used", m.Used,
		"crowd", m.Crowd,
		"projects", m.Projects)
}

func (s *Matcher) AddUsers(ctx context.Context, m *domain.Matcher, pool bool, users ...domain.UserRef) error {
	if err := s.validate(m); err != nil {
		return err
	}
	ids := domain.UserIds(users...)
	if len(ids) == 0 {
		return nil
	}
	err := s.storage.AddMatcherUsers(ctx, m, ids, pool)
	s.recalculated(ctx, "add_users", m, err)
	return err
}

func (s *Matcher) RemoveUsers(ctx context.Context, m *domain.Matcher, users ...domain.UserRef) error {
	if err := s.validate(m); err != nil {
		return err
	}
	ids := domain.UserIds(users...)
	if len(ids) == 0 {
		return nil
	}
	err := s.storage.RemoveMatcherUsers(ctx, m, ids)
	s.recalculated(ctx, "remove_users", m, err)
	return err
}

func (s *Matcher) UseUserPool(ctx context.Context, m *domain.Matcher, user domain.UserRef, pool bool) error {
	if err := s.validate(m); err != nil {
		return err
	}
	id := domain.UserIdOf(user)
	if id == "" {
		return &internal_errors.ValidationError{Problems: []string{"empty user"}}
	}
	err := s.storage.SetMatcherUserPool(ctx, m, id, pool)
	s.recalculated(ctx, "use_user_pool", m, err)
	return err
}

func validateProjectStatus(status domain.MatcherProjectStatus) error {
	if !domain.IsMatcherProjectStatus(status) {
		return &internal_errors.ValidationError{Problems: []string{
			"invalid project status " + status + ", expected one of " + strings.Join(domain.MatcherProjectStatuses, ", "),
		}}
	}
	return nil
}

func (s *Matcher) AddProjects(ctx context.Context, m *domain.Matcher, status domain.MatcherProjectStatus, projects ...domain.ProjectRef) error {
	if err := validateProjectStatus(status); err != nil {
		return err
	}
	if err := s.validate(m); err != nil {
		return err
	}
	ids := domain.ProjectIds(projects...)
	if len(ids) == 0 {
		return nil
	}
	err := s.storage.AddMatcherProjects(ctx, m, ids, status)
	s.recalculated(ctx, "add_projects", m, err)
	return err
}

func (s *Matcher) RemoveProjects(ctx context.Context, m *domain.Matcher, projects ...domain.ProjectRef) error {
	if err := s.validate(m); err != nil {
		return err
	}
	ids := domain.ProjectIds(projects...)
	if len(ids) == 0 {
		return nil
	}
	err := s.storage.RemoveMatcherProjects(ctx, m, ids)
	s.recalculated(ctx, "remove_projects", m, err)
	return err
}

func (s *Matcher) SetProjectStatus(ctx context.Context, m *domain.Matcher, project domain.ProjectRef, status domain.MatcherProjectStatus) error {
	if err := validateProjectStatus(status); err != nil {
		return err
	}
	if err := s.validate(m); err != nil {
		return err
	}
	id := domain.ProjectIdOf(project)
	if id == "" {
		return &internal_errors.ValidationError{Problems: []string{"empty project"}}
	}
	err := s.storage.SetMatcherProjectStatus(ctx, m, id, status)
	s.recalculated(ctx, "set_project_status", m, err)
	return err
}

// The getters below only hit storage while the cached field is zero, so a
// real zero is recomputed on every call.

func (s *Matcher) TotalAmount(ctx context.Context, m *domain.Matcher) (int64, error) {
	if m.Amount == 0 {
		amount, err := s.storage.CalculatePoolAmount(ctx, m.Id)
		if err != nil {
			return 0, err
		}
		m.Amount = amount
	}
	return m.Amount, nil
}

func (s *Matcher) UsedAmount(ctx context.Context, m *domain.Matcher) (int64, error) {
	if m.Used == 0 {
		used, err := s.storage.CalculateUsedAmount(ctx, m.Id)
		if err != nil {
			return 0, err
		}
		m.Used = used
	}
	return m.Used, nil
}

func (s *Matcher) AvailableAmount(ctx context.Context, m *domain.Matcher) (int64, error) {
	total, err := s.TotalAmount(ctx, m)
	if err != nil {
		return 0, err
	}
	used, err := s.UsedAmount(ctx, m)
	if err != nil {
		return 0, err
	}
	return total - used, nil
}

func (s *Matcher) CrowdAmount(ctx context.Context, m *domain.Matcher) (int64, error) {
	if m.Crowd == 0 {
		crowd, err := s.storage.CalculateCrowdAmount(ctx, m.Id)
		if err != nil {
			return 0, err
		}
		m.Crowd = crowd
	}
	return m.Crowd, nil
}

func (s *Matcher) TotalProjects(ctx context.Context, m *domain.Matcher) (int, error) {
	if m.Projects == 0 {
		projects, err := s.storage.CalculateProjects(ctx, m.Id)
		if err != nil {
			return 0, err
		}
		m.Projects = projects
	}
	return m.Projects, nil
}

// requireMatcher turns an empty listing of an unknown matcher into NotFound.
func (s *Matcher) requireMatcher(ctx context.Context, id domain.MatcherId, empty bool) error {
	if !empty {
		return nil
	}
	_, err := s.storage.GetMatcher(ctx, id)
	return err
}

func (s *Matcher) Users(ctx context.Context, id domain.MatcherId, poolOnly bool) ([]domain.MatcherUser, error) {
	users, err := s.storage.MatcherUsers(ctx, id, poolOnly)
	if err != nil {
		return nil, err
	}
	if err := s.requireMatcher(ctx, id, len(users) == 0); err != nil {
		return nil, err
	}
	return users, nil
}

func (s *Matcher) Projects(ctx context.Context, id domain.MatcherId, status domain.MatcherProjectStatus) ([]domain.MatcherProject, error) {
	if status != "" {
		if err := validateProjectStatus(status); err != nil {
			return nil, err
		}
	}
	projects, err := s.storage.MatcherProjects(ctx, id, status)
	if err != nil {
		return nil, err
	}
	if err := s.requireMatcher(ctx, id, len(projects) == 0); err != nil {
		return nil, err
	}
	return projects, nil
}
