package projects

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Spok95/construction-bot/internal/domain/users"
)

func TestCanAccess(t *testing.T) {
	p := Project{ID: 7, ForemanID: 3, CustomerID: 4, WorkerIDs: []int64{5}}

	tests := []struct {
		name string
		user *users.User
		want bool
	}{
		{"nil", nil, false},
		{"admin", &users.User{ID: 99, Role: users.RoleAdmin}, true},
		{"foreman", &users.User{ID: 3, Role: users.RoleForeman}, true},
		{"worker by membership", &users.User{ID: 5, Role: users.RoleWorker}, true},
		{"stranger", &users.User{ID: 6, Role: users.RoleSupply}, false},
		{"explicit list wins", &users.User{ID: 6, Role: users.RoleSupply, AllowedProjectIDs: []int64{7}}, true},
		{"explicit list excludes", &users.User{ID: 3, Role: users.RoleForeman, AllowedProjectIDs: []int64{8}}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CanAccess(tt.user, p))
		})
	}
}

func TestAllowedKeepsOrder(t *testing.T) {
	all := []Project{{ID: 1, ForemanID: 2}, {ID: 2}, {ID: 3, WorkerIDs: []int64{2}}}
	got := Allowed(&users.User{ID: 2, Role: users.RoleForeman}, all)
	assert.Equal(t, []int64{1, 3}, []int64{got[0].ID, got[1].ID})
	assert.Len(t, got, 2)
}

func TestAudience(t *testing.T) {
	p := Project{ID: 1, SupplyID: 10}
	got := Audience(p, []users.User{
		{ID: 10, Role: users.RoleSupply},
		{ID: 11, Role: users.RoleSupply},
		{ID: 12, Role: users.RoleSupply, AllowedProjectIDs: []int64{1}},
	})
	assert.Len(t, got, 2)
	assert.Equal(t, int64(10), got[0].ID)
	assert.Equal(t, int64(12), got[1].ID)
}
