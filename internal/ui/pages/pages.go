// Пакет pages — HTML-страницы портала на templ.
// Разметка лежит в *.templ, сгенерированный код (*_templ.go) хранится в репозитории;
// язык страницы берётся из контекста запроса.
package pages

//go:generate templ generate

import (
	"context"
	"net/url"
	"time"

	"github.com/a-h/templ"

	"github.com/inglucasmoreno/examen-conducir-portal-client/internal/domain/filter"
	"github.com/inglucasmoreno/examen-conducir-portal-client/internal/domain/model"
	"github.com/inglucasmoreno/examen-conducir-portal-client/internal/domain/rbac"
	"github.com/inglucasmoreno/examen-conducir-portal-client/internal/ui/i18n"
)

// Layout — общие данные шапки страницы.
type Layout struct {
	// Username — оператор в шапке ("" — страница без навигации)
	Username string
	// ShowActivity — показывать ссылку на журнал действий
	ShowActivity bool
}

// LoginData — данные страницы входа.
type LoginData struct {
	Layout
	Username string
	// Error — ключ каталога с сообщением об ошибке
	Error string
}

// ConfirmData — запрос подтверждения действия над формуляром.
type ConfirmData struct {
	FormID string
	// Question — ключ каталога с вопросом
	Question string
}

// FormsData — данные экрана формуляров.
type FormsData struct {
	Layout
	State *model.WorkflowState
	Page  filter.Page
	Caps  rbac.Capabilities
	// Infos — ключи информационных сообщений
	Infos []string
	// Errors — сообщения backend ("" — общее сообщение)
	Errors []string
	// Document — PDF, который нужно открыть в новой вкладке
	Document string
	Confirm  *ConfirmData
	// AuditEnabled — журнал действий включён (ссылки на историю)
	AuditEnabled bool
}

// ActivityData — данные страницы журнала действий.
type ActivityData struct {
	Layout
	Entries []*model.AuditEntry
	// FormID — история одного формуляра ("" — все последние действия)
	FormID string
	// Error — ключ каталога с сообщением вместо таблицы
	Error string
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Local().Format("02/01/2006 15:04")
}

// formURL — адрес действия над формуляром: /formularios/{id}/{action}.
func formURL(id, action string) string {
	return "/formularios/" + url.PathEscape(id) + "/" + action
}

func activityURL(formID string) templ.SafeURL {
	return templ.URL("/formularios/activity?form=" + url.QueryEscape(formID))
}

// errorMessage — текст backend как есть, пустой — общее сообщение.
func errorMessage(ctx context.Context, msg string) string {
	if msg == "" {
		return i18n.T(ctx, "forms.msg.remote_failure")
	}
	return msg
}

func statusLabel(ctx context.Context, active bool) string {
	if active {
		return i18n.T(ctx, "forms.status.active")
	}
	return i18n.T(ctx, "forms.status.inactive")
}

func toggleLabel(ctx context.Context, active bool) string {
	if active {
		return i18n.T(ctx, "forms.action.deactivate")
	}
	return i18n.T(ctx, "forms.action.activate")
}

// modeLabel выбирает подпись по режиму модального окна.
func modeLabel(ctx context.Context, mode model.ModalMode, editKey, createKey string) string {
	if mode == model.ModalEdit {
		return i18n.T(ctx, editKey)
	}
	return i18n.T(ctx, createKey)
}
