// activity.go — журнал действий операторов (только "управление всеми").
package handlers

import (
	"log/slog"
	"net/http"

	"github.com/inglucasmoreno/examen-conducir-portal-client/internal/domain/model"
	"github.com/inglucasmoreno/examen-conducir-portal-client/internal/domain/rbac"
	"github.com/inglucasmoreno/examen-conducir-portal-client/internal/service"
	uimiddleware "github.com/inglucasmoreno/examen-conducir-portal-client/internal/ui/middleware"
	"github.com/inglucasmoreno/examen-conducir-portal-client/internal/ui/pages"
)

// activityLimit — количество последних действий на странице.
const activityLimit = 100

const msgActivityDisabled = "activity.disabled"

// HandleActivity — GET /formularios/activity[?form={id}].
func (h *FormsHandler) HandleActivity(w http.ResponseWriter, r *http.Request) {
	session := uimiddleware.SessionFromContext(r.Context())
	if session == nil {
		http.Redirect(w, r, uimiddleware.LoginPath, http.StatusFound)
		return
	}

	caps := rbac.Compute(session.User)
	data := pages.ActivityData{
		Layout: layoutFor(session, caps),
		FormID: r.URL.Query().Get("form"),
	}
	status := http.StatusOK

	switch {
	case !caps.ManageAll:
		data.Error = service.MsgPermissionDenied
		status = http.StatusForbidden
	case !h.audit.Enabled():
		data.Error = msgActivityDisabled
	default:
		var (
			entries []*model.AuditEntry
			err     error
		)
		if data.FormID != "" {
			entries, err = h.audit.History(r.Context(), data.FormID)
		} else {
			entries, err = h.audit.Recent(r.Context(), activityLimit)
		}
		if err != nil {
			h.logger.Error("Ошибка чтения журнала действий",
				slog.String("form_id", data.FormID),
				slog.String("error", err.Error()),
			)
			data.Error = service.MsgRemoteFailure
			status = http.StatusInternalServerError
		}
		data.Entries = entries
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := pages.Activity(data).Render(r.Context(), w); err != nil {
		h.logger.Error("Ошибка рендеринга журнала действий",
			slog.String("error", err.Error()),
		)
	}
}
