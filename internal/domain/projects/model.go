package projects

import (
	"slices"

	"github.com/Spok95/construction-bot/internal/domain/users"
)

type Project struct {
	ID         int64
	Name       string
	Address    string
	ManagerID  int64
	DesignerID int64
	ForemanID  int64
	SupplyID   int64
	CustomerID int64
	WorkerIDs  []int64
	// OdooID запись проекта во внешнем учёте, 0 — не связан
	OdooID int64
}

// Involves пользователь назначен на проект в какой-либо роли
func (p Project) Involves(userID int64) bool {
	if userID == 0 {
		return false
	}
	switch userID {
	case p.ManagerID, p.DesignerID, p.ForemanID, p.SupplyID, p.CustomerID:
		return true
	}
	return slices.Contains(p.WorkerIDs, userID)
}

// CanAccess доступ к проекту: явный список у пользователя важнее участия,
// администратор видит всё.
func CanAccess(u *users.User, p Project) bool {
	switch {
	case u == nil:
		return false
	case u.IsAdmin():
		return true
	case len(u.AllowedProjectIDs) > 0:
		return slices.Contains(u.AllowedProjectIDs, p.ID)
	}
	return p.Involves(u.ID)
}

// Allowed фильтрует проекты, доступные пользователю, сохраняя порядок
func Allowed(u *users.User, all []Project) []Project {
	out := make([]Project, 0, len(all))
	for _, p := range all {
		if CanAccess(u, p) {
			out = append(out, p)
		}
	}
	return out
}

// Audience пользователи с одной из ролей, имеющие доступ к проекту
func Audience(p Project, candidates []users.User) []users.User {
	out := make([]users.User, 0, len(candidates))
	for i := range candidates {
		if CanAccess(&candidates[i], p) {
			out = append(out, candidates[i])
		}
	}
	return out
}
