package resolver

import (
	"fmt"
	"strconv"
	"strings"
)

type Kind string

const (
	KindMaterial Kind = "material"
	KindService  Kind = "service"
)

func (k Kind) Valid() bool { return k == KindMaterial || k == KindService }

// Role семантическая роль поля в целевой модели
type Role string

const (
	RoleStage       Role = "stage"
	RoleTask        Role = "task"
	RoleQty         Role = "qty"
	RolePrice       Role = "price"
	RoleDate        Role = "date"
	RoleUnit        Role = "unit"
	RoleProduct     Role = "product"
	RoleDescription Role = "description"
)

// Field описание поля модели во внешнем учёте
type Field struct {
	Name     string
	Type     string
	Relation string
}

// Shape целевая модель и сопоставление ролей её полям
type Shape struct {
	Model  string
	Fields map[Role]Field
	Score  int
}

func (s Shape) Has(r Role) bool {
	_, ok := s.Fields[r]
	return ok
}

// Eligible в модель можно писать: есть ссылки и на этап, и на задачу
func (s Shape) Eligible() bool { return s.Has(RoleStage) && s.Has(RoleTask) }

// Ref ссылка на созданную запись в виде "model,id"
type Ref struct {
	Model string
	ID    int64
}

func (r Ref) IsZero() bool { return r.Model == "" || r.ID == 0 }

func (r Ref) String() string {
	if r.IsZero() {
		return ""
	}
	return r.Model + "," + strconv.FormatInt(r.ID, 10)
}

func ParseRef(s string) (Ref, error) {
	if s == "" {
		return Ref{}, nil
	}
	model, id, ok := strings.Cut(s, ",")
	if !ok || model == "" {
		return Ref{}, fmt.Errorf("ссылка %q: ожидается model,id", s)
	}
	n, err := strconv.ParseInt(strings.TrimSpace(id), 10, 64)
	if err != nil || n <= 0 {
		return Ref{}, fmt.Errorf("ссылка %q: некорректный id", s)
	}
	return Ref{Model: strings.TrimSpace(model), ID: n}, nil
}
