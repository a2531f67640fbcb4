package handler

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/goteo-dev/goteo/shared/domain"
	internal_errors "github.com/goteo-dev/goteo/shared/errors"
	mw "github.com/goteo-dev/goteo/shared/middleware"
)

// parseIdParam parses a positive integer path parameter.
func parseIdParam(r *http.Request, name string) (int64, error) {
	val, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || val <= 0 {
		return 0, &internal_errors.ErrorWithStatusCode{
			Message:    fmt.Sprintf("invalid %s: must be a positive integer", name),
			StatusCode: http.StatusBadRequest,
		}
	}
	return val, nil
}

// viewerRef returns a nil ref for anonymous requests, never a nil *Viewer
// wrapped in an interface.
func viewerRef(r *http.Request) domain.UserRef {
	return viewerOrNil(mw.GetViewerFromContext(r))
}

// canSee reports whether viewer may read msg. Admins read everything.
func canSee(msg *domain.Message, viewer *domain.Viewer) bool {
	if viewer != nil && viewer.Admin {
		return true
	}
	return msg.VisibleTo(domain.UserIdOf(viewerOrNil(viewer)))
}

func viewerOrNil(viewer *domain.Viewer) domain.UserRef {
	if viewer == nil {
		return nil
	}
	return viewer
}

func visibleMessages(messages []*domain.Message, viewer *domain.Viewer) []*domain.Message {
	visible := make([]*domain.Message, 0, len(messages))
	for _, msg := range messages {
		if canSee(msg, viewer) {
			visible = append(visible, msg)
		}
	}
	return visible
}
