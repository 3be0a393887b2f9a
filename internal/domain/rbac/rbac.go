// Пакет rbac — вычисление возможностей оператора по роли и списку разрешений.
// Правила:
//   - ManageAll = роль ADMIN_ROLE или разрешение FORMULARIOS_ALL;
//   - область видимости списка: ADMIN_ROLE — все формуляры, иначе — только своё место.
package rbac

import (
	"slices"

	"github.com/inglucasmoreno/examen-conducir-portal-client/internal/domain/model"
)

// Scope — область видимости списка формуляров.
type Scope int

const (
	// ScopeLocation — только формуляры места работы оператора.
	ScopeLocation Scope = iota
	// ScopeAll — все формуляры (администратор).
	ScopeAll
)

// String возвращает имя области для логов и метрик.
func (s Scope) String() string {
	if s == ScopeAll {
		return "all"
	}
	return "location"
}

// Capabilities — набор возможностей оператора.
type Capabilities struct {
	// Admin — роль администратора: видит все формуляры, место обязательно при создании
	Admin bool
	// ManageAll — может переключать активность и смотреть журнал действий
	ManageAll bool
}

// Compute вычисляет возможности пользователя. Функция чистая.
func Compute(user model.User) Capabilities {
	admin := IsAdmin(user)
	return Capabilities{
		Admin:     admin,
		ManageAll: admin || slices.Contains(user.Permissions, model.PermissionFormsAll),
	}
}

// IsAdmin сообщает, является ли пользователь администратором.
func IsAdmin(user model.User) bool {
	return user.Role == model.RoleAdmin
}

// ScopeFor выбирает область видимости списка для пользователя.
func ScopeFor(user model.User) Scope {
	if IsAdmin(user) {
		return ScopeAll
	}
	return ScopeLocation
}
