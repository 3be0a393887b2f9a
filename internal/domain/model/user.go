package model

import "encoding/json"

// Роль администратора в backend.
const RoleAdmin = "ADMIN_ROLE"

// PermissionFormsAll — разрешение на управление всеми формулярами.
const PermissionFormsAll = "FORMULARIOS_ALL"

// User — оператор портала, как его возвращает backend (GET /auth).
type User struct {
	// ID — идентификатор (_id)
	ID string `json:"_id"`
	// Username — логин
	Username string `json:"usuario"`
	// FirstName / LastName — для отображения в шапке
	FirstName string `json:"nombre"`
	LastName  string `json:"apellido"`
	// Role — роль (ADMIN_ROLE, USER_ROLE, ...)
	Role string `json:"role"`
	// Permissions — список разрешений (FORMULARIOS_ALL, ...)
	Permissions []string `json:"permisos"`
	// LocationID — место работы; задаёт область видимости для не-администраторов
	LocationID string `json:"lugar"`
}

// userJSON — представление User в ответах backend:
// lugar приходит строкой или развёрнутым объектом.
type userJSON struct {
	ID          string   `json:"_id"`
	Username    string   `json:"usuario"`
	FirstName   string   `json:"nombre"`
	LastName    string   `json:"apellido"`
	Role        string   `json:"role"`
	Permissions []string `json:"permisos"`
	Location    Location `json:"lugar"`
}

// UnmarshalJSON принимает lugar как идентификатор или как объект.
func (u *User) UnmarshalJSON(data []byte) error {
	var v userJSON
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*u = User{
		ID:          v.ID,
		Username:    v.Username,
		FirstName:   v.FirstName,
		LastName:    v.LastName,
		Role:        v.Role,
		Permissions: v.Permissions,
		LocationID:  v.Location.ID,
	}
	return nil
}
