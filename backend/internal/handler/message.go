package handler

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/goteo-dev/goteo/shared/api"
	"github.com/goteo-dev/goteo/shared/domain"
	internal_errors "github.com/goteo-dev/goteo/shared/errors"
	mw "github.com/goteo-dev/goteo/shared/middleware"
	"github.com/goteo-dev/goteo/shared/utils"
)

// loadVisibleMessage hides private messages from viewers outside the
// conversation as if they did not exist.
func (h *Handler) loadVisibleMessage(r *http.Request) (*domain.Message, error) {
	id, err := parseIdParam(r, "message")
	if err != nil {
		return nil, err
	}
	msg, err := h.message.Get(r.Context(), id)
	if err != nil {
		return nil, err
	}
	if !canSee(msg, mw.GetViewerFromContext(r)) {
		return nil, &internal_errors.NotFoundError{Entity: "message", Id: fmt.Sprint(id)}
	}
	return msg, nil
}

func (h *Handler) GetMessage(w http.ResponseWriter, r *http.Request) {
	msg, err := h.loadVisibleMessage(r)
	if err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}
	msgType, err := h.message.Type(r.Context(), msg)
	if err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}

	resp := api.NewMessageResponse(msg)
	resp.Type = msgType
	writeJSON(w, resp)
}

func (h *Handler) GetResponses(w http.ResponseWriter, r *http.Request) {
	msg, err := h.loadVisibleMessage(r)
	if err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}
	viewer := viewerRef(r)

	responses, err := h.message.Responses(r.Context(), msg, viewer)
	if err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}
	total, err := h.message.TotalResponses(r.Context(), msg, viewer)
	if err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}

	resp := api.ResponsesResponse{Responses: make([]*api.MessageResponse, 0, len(responses)), Total: total}
	for _, response := range responses {
		resp.Responses = append(resp.Responses, api.NewMessageResponse(response))
	}
	writeJSON(w, resp)
}

func (h *Handler) ListThreads(w http.ResponseWriter, r *http.Request) {
	project := domain.ProjectId(chi.URLParam(r, "project"))
	threads, err := h.message.ListThreads(r.Context(), project, r.URL.Query().Get("lang"))
	if err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}

	viewer := mw.GetViewerFromContext(r)
	threads = visibleMessages(threads, viewer)
	resp := api.ThreadsResponse{Threads: make([]*api.MessageResponse, 0, len(threads))}
	for _, thread := range threads {
		thread.Responses = visibleMessages(thread.Responses, viewer)
		threadResp := api.NewMessageResponse(thread)
		if threadResp.Type, err = h.message.Type(r.Context(), thread); err != nil {
			utils.WriteErrorAndStatusCode(w, err)
			return
		}
		resp.Threads = append(resp.Threads, threadResp)
	}
	writeJSON(w, resp)
}

func (h *Handler) CreateMessage(w http.ResponseWriter, r *http.Request) {
	var body api.CreateMessageRequest
	if err := utils.DecodeValidate(r.Body, &body); err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}
	viewer := mw.GetViewerFromContext(r)
	if viewer == nil {
		http.Error(w, "Please sign-in", http.StatusUnauthorized)
		return
	}

	msg := &domain.Message{
		Author:    domain.UserSummary{Id: viewer.Id},
		ProjectId: body.ProjectId,
		Text:      body.Text,
	}
	if body.Thread != nil {
		msg.SetThread(*body.Thread)
	}
	if err := h.message.Save(r.Context(), msg); err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}

	utils.WriteJSON(w, http.StatusCreated, api.CreateMessageResponse{Id: msg.Id})
}

// loadOwnMessage loads a message the viewer wrote, or any message for admins.
func (h *Handler) loadOwnMessage(r *http.Request) (*domain.Message, error) {
	viewer := mw.GetViewerFromContext(r)
	if viewer == nil {
		return nil, &internal_errors.ErrorWithStatusCode{Message: "Please sign-in", StatusCode: http.StatusUnauthorized}
	}
	id, err := parseIdParam(r, "message")
	if err != nil {
		return nil, err
	}
	msg, err := h.message.Get(r.Context(), id)
	if err != nil {
		return nil, err
	}
	if msg.Author.Id != viewer.Id && !viewer.Admin {
		return nil, &internal_errors.ErrorWithStatusCode{Message: "Only the author can manage recipients", StatusCode: http.StatusForbidden}
	}
	return msg, nil
}

func (h *Handler) SetRecipients(w http.ResponseWriter, r *http.Request) {
	msg, err := h.loadOwnMessage(r)
	if err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}
	var body api.SetRecipientsRequest
	if err := utils.DecodeValidate(r.Body, &body); err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}

	if err := h.message.SetRecipients(r.Context(), msg, userRefs(body.Recipients)...); err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}

	w.WriteHeader(http.StatusOK)
}

func (h *Handler) GetRecipients(w http.ResponseWriter, r *http.Request) {
	msg, err := h.loadOwnMessage(r)
	if err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}
	recipients, err := h.message.Recipients(r.Context(), msg)
	if err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}
	writeJSON(w, api.RecipientsResponse{Recipients: recipients})
}

func (h *Handler) SaveTranslation(w http.ResponseWriter, r *http.Request) {
	id, err := parseIdParam(r, "message")
	if err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}
	var body api.TranslationRequest
	if err := utils.DecodeValidate(r.Body, &body); err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}

	if err := h.message.SaveTranslation(r.Context(), id, chi.URLParam(r, "lang"), body.Text); err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}

	w.WriteHeader(http.StatusOK)
}

func (h *Handler) DeleteMessage(w http.ResponseWriter, r *http.Request) {
	id, err := parseIdParam(r, "message")
	if err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}

	if err := h.message.Delete(r.Context(), id); err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}

	w.WriteHeader(http.StatusOK)
}

func (h *Handler) GetMessengers(w http.ResponseWriter, r *http.Request) {
	project := domain.ProjectId(chi.URLParam(r, "project"))
	count, err := h.message.NumMessengers(r.Context(), project)
	if err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}
	messengers, err := h.message.Messengers(r.Context(), project)
	if err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}

	writeJSON(w, api.MessengersResponse{Messengers: messengers, NumMessengers: count})
}

// GetMessaged lists projects a user wrote on. Projects outside the public
// statuses are listed only to the user themselves and to admins.
func (h *Handler) GetMessaged(w http.ResponseWriter, r *http.Request) {
	user := domain.UserId(chi.URLParam(r, "user"))
	publicOnly, err := utils.ParseBool(r, "public", true)
	if err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}
	if !publicOnly {
		viewer := mw.GetViewerFromContext(r)
		if viewer == nil || (viewer.Id != user && !viewer.Admin) {
			http.Error(w, "Access denied", http.StatusForbidden)
			return
		}
	}

	projects, err := h.message.Messaged(r.Context(), user, publicOnly)
	if err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}
	writeJSON(w, api.MessagedResponse{Projects: projects})
}

func (h *Handler) GetMyThreads(w http.ResponseWriter, r *http.Request) {
	viewer := viewerRef(r)
	if viewer == nil {
		http.Error(w, "Please sign-in", http.StatusUnauthorized)
		return
	}
	threads, err := h.message.UserThreads(r.Context(), viewer)
	if err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}
	threads = visibleMessages(threads, mw.GetViewerFromContext(r))

	resp := api.ThreadsResponse{Threads: make([]*api.MessageResponse, 0, len(threads))}
	for _, thread := range threads {
		resp.Threads = append(resp.Threads, api.NewMessageResponse(thread))
	}
	writeJSON(w, resp)
}
