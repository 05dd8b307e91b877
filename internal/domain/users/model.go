package users

import (
	"slices"
	"time"
)

type Role string

const (
	RoleClient   Role = "client"
	RoleDesigner Role = "designer"
	RoleWorker   Role = "worker"
	RoleForeman  Role = "foreman"
	RoleSupply   Role = "supply"
	RoleAdmin    Role = "admin"
)

// SelfRoles роли, которые можно выбрать при регистрации
var SelfRoles = []Role{RoleDesigner, RoleForeman, RoleWorker, RoleSupply, RoleClient}

func (r Role) Valid() bool {
	return r == RoleAdmin || slices.Contains(SelfRoles, r)
}

// Title подпись роли для меню
func (r Role) Title() string {
	switch r {
	case RoleClient:
		return "Заказчик"
	case RoleDesigner:
		return "Дизайнер"
	case RoleWorker:
		return "Мастер"
	case RoleForeman:
		return "Прораб"
	case RoleSupply:
		return "Снабженец"
	case RoleAdmin:
		return "Администратор"
	}
	return "Без роли"
}

type Status string

const (
	StatusPending Status = "pending"
	StatusActive  Status = "active"
)

type User struct {
	ID                int64
	TelegramID        int64
	ChatID            int64
	Username          string
	FullName          string
	Role              Role
	Status            Status
	AllowedProjectIDs []int64
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// Registered пользователь прошёл регистрацию: есть имя и роль
func (u *User) Registered() bool {
	return u != nil && u.Status == StatusActive && u.FullName != "" && u.Role != ""
}

func (u *User) IsAdmin() bool { return u != nil && u.Role == RoleAdmin }

// DisplayName имя для уведомлений
func (u *User) DisplayName() string {
	switch {
	case u == nil:
		return "—"
	case u.FullName != "":
		return u.FullName
	case u.Username != "":
		return "@" + u.Username
	}
	return "—"
}

type Telegram struct {
	ID       int64
	ChatID   int64
	Username string
}
