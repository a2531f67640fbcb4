package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/goteo-dev/goteo/shared/api"
	"github.com/goteo-dev/goteo/shared/domain"
	internal_errors "github.com/goteo-dev/goteo/shared/errors"
	"github.com/goteo-dev/goteo/shared/utils"
)

func (h *Handler) loadMatcher(r *http.Request) (*domain.Matcher, error) {
	return h.matcher.Get(r.Context(), domain.MatcherId(chi.URLParam(r, "matcher")))
}

// writeMatcher fills the lazily computed totals before rendering m.
func (h *Handler) writeMatcher(w http.ResponseWriter, r *http.Request, m *domain.Matcher) {
	if _, err := h.matcher.AvailableAmount(r.Context(), m); err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}
	writeJSON(w, api.NewMatcherResponse(m))
}

func (h *Handler) GetMatcher(w http.ResponseWriter, r *http.Request) {
	m, err := h.loadMatcher(r)
	if err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}
	h.writeMatcher(w, r, m)
}

func (h *Handler) GetMatcherUsers(w http.ResponseWriter, r *http.Request) {
	poolOnly, err := utils.ParseBool(r, "pool", false)
	if err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}
	users, err := h.matcher.Users(r.Context(), domain.MatcherId(chi.URLParam(r, "matcher")), poolOnly)
	if err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}
	writeJSON(w, api.MatcherUsersResponse{Users: users})
}

func (h *Handler) GetMatcherProjects(w http.ResponseWriter, r *http.Request) {
	status := r.URL.Query().Get("status")
	projects, err := h.matcher.Projects(r.Context(), domain.MatcherId(chi.URLParam(r, "matcher")), status)
	if err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}
	writeJSON(w, api.MatcherProjectsResponse{Projects: projects})
}

func (h *Handler) GetProjectMatchers(w http.ResponseWriter, r *http.Request) {
	all, err := utils.ParseBool(r, "all", false)
	if err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}
	matchers, err := h.matcher.ForProject(r.Context(), domain.ProjectId(chi.URLParam(r, "project")), !all)
	if err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}

	resp := api.MatchersResponse{Matchers: make([]*api.MatcherResponse, 0, len(matchers))}
	for _, m := range matchers {
		resp.Matchers = append(resp.Matchers, api.NewMatcherResponse(m))
	}
	writeJSON(w, resp)
}

// SaveMatcher creates the matcher named in the path or overwrites its
// editable fields.
func (h *Handler) SaveMatcher(w http.ResponseWriter, r *http.Request) {
	var body api.SaveMatcherRequest
	if err := utils.DecodeValidate(r.Body, &body); err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}

	m, err := h.loadMatcher(r)
	if internal_errors.Is[*internal_errors.NotFoundError](err) {
		m, err = &domain.Matcher{Id: domain.MatcherId(chi.URLParam(r, "matcher"))}, nil
	}
	if err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}

	m.Name = body.Name
	m.Logo = body.Logo
	m.Lang = body.Lang
	m.Terms = body.Terms
	m.Processor = body.Processor
	m.Vars = body.Vars
	if err := h.matcher.Save(r.Context(), m); err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}
	writeJSON(w, api.NewMatcherResponse(m))
}

func (h *Handler) AddMatcherUsers(w http.ResponseWriter, r *http.Request) {
	var body api.MatcherUsersRequest
	if err := utils.DecodeValidate(r.Body, &body); err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}
	m, err := h.loadMatcher(r)
	if err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}

	pool := true
	if body.Pool != nil {
		pool = *body.Pool
	}
	if err := h.matcher.AddUsers(r.Context(), m, pool, userRefs(body.Users)...); err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}
	writeJSON(w, api.NewMatcherResponse(m))
}

func (h *Handler) RemoveMatcherUsers(w http.ResponseWriter, r *http.Request) {
	var body api.MatcherUsersRequest
	if err := utils.DecodeValidate(r.Body, &body); err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}
	m, err := h.loadMatcher(r)
	if err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}

	if err := h.matcher.RemoveUsers(r.Context(), m, userRefs(body.Users)...); err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}
	writeJSON(w, api.NewMatcherResponse(m))
}

func (h *Handler) SetMatcherUserPool(w http.ResponseWriter, r *http.Request) {
	var body api.PoolRequest
	if err := utils.DecodeValidate(r.Body, &body); err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}
	m, err := h.loadMatcher(r)
	if err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}

	user := domain.UserId(chi.URLParam(r, "user"))
	if err := h.matcher.UseUserPool(r.Context(), m, user, body.Pool); err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}
	writeJSON(w, api.NewMatcherResponse(m))
}

func (h *Handler) AddMatcherProjects(w http.ResponseWriter, r *http.Request) {
	var body api.MatcherProjectsRequest
	if err := utils.DecodeValidate(r.Body, &body); err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}
	m, err := h.loadMatcher(r)
	if err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}

	status := body.Status
	if status == "" {
		status = domain.MatcherProjectPending
	}
	if err := h.matcher.AddProjects(r.Context(), m, status, projectRefs(body.Projects)...); err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}
	writeJSON(w, api.NewMatcherResponse(m))
}

func (h *Handler) RemoveMatcherProjects(w http.ResponseWriter, r *http.Request) {
	var body api.MatcherProjectsRequest
	if err := utils.DecodeValidate(r.Body, &body); err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}
	m, err := h.loadMatcher(r)
	if err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}

	if err := h.matcher.RemoveProjects(r.Context(), m, projectRefs(body.Projects)...); err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}
	writeJSON(w, api.NewMatcherResponse(m))
}

func (h *Handler) SetMatcherProjectStatus(w http.ResponseWriter, r *http.Request) {
	var body api.StatusRequest
	if err := utils.DecodeValidate(r.Body, &body); err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}
	m, err := h.loadMatcher(r)
	if err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}

	project := domain.ProjectId(chi.URLParam(r, "project"))
	if err := h.matcher.SetProjectStatus(r.Context(), m, project, body.Status); err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}
	writeJSON(w, api.NewMatcherResponse(m))
}

func userRefs(ids []domain.UserId) []domain.UserRef {
	refs := make([]domain.UserRef, 0, len(ids))
	for _, id := range ids {
		refs = append(refs, id)
	}
	return refs
}

func projectRefs(ids []domain.ProjectId) []domain.ProjectRef {
	refs := make([]domain.ProjectRef, 0, len(ids))
	for _, id := range ids {
		refs = append(refs, id)
	}
	return refs
}
