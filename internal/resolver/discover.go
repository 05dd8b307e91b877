package resolver

import (
	"slices"
	"strings"
)

// Naming имена моделей и полей внешнего учёта
type Naming struct {
	Namespace      string
	StageModel     string
	TaskModel      string
	TaskStageField string
	ProductModel   string
	UnitModel      string
	MaterialMarker string
	ServiceMarker  string
	MaterialTask   string
	ServiceTask    string
}

func DefaultNaming() Naming {
	return Naming{
		Namespace:      "construction.",
		StageModel:     "construction.stage",
		TaskModel:      "construction.stage.task",
		TaskStageField: "stage_id",
		ProductModel:   "product.product",
		UnitModel:      "uom.uom",
		MaterialMarker: "stage.material",
		ServiceMarker:  "stage.service",
		MaterialTask:   "Материалы для работы",
		ServiceTask:    "Оплата мастерам за работы",
	}
}

func (n Naming) marker(k Kind) string {
	if k == KindService {
		return n.ServiceMarker
	}
	return n.MaterialMarker
}

// TaskName задача этапа, к которой привязываются строки данного вида
func (n Naming) TaskName(k Kind) string {
	if k == KindService {
		return n.ServiceTask
	}
	return n.MaterialTask
}

const (
	scoreEligible  = 1
	scoreNamespace = 10
	scoreLinks     = 50
	scoreAmounts   = 20
)

var (
	qtyNames   = []string{"quantity", "qty", "quantity_planned"}
	priceNames = []string{"price", "unit_price", "amount"}
	unitNames  = []string{"uom_id", "construction_uom_id"}
)

// Classify сопоставляет поля модели ролям. Количество, цена и единица берутся
// по порядку имён в qtyNames, priceNames и unitNames, прочие роли получает
// первое подходящее поле в порядке fields.
func Classify(kind Kind, model string, fields []Field, n Naming) Shape {
	sh := Shape{Model: model, Fields: map[Role]Field{}}
	set := func(r Role, f Field) {
		if !sh.Has(r) {
			sh.Fields[r] = f
		}
	}
	ranked := func(r Role, names []string, f Field) {
		if cur, ok := sh.Fields[r]; ok && slices.Index(names, cur.Name) <= slices.Index(names, f.Name) {
			return
		}
		sh.Fields[r] = f
	}
	productField := "product_id"
	if kind == KindService {
		productField = "service_id"
	}
	for _, f := range fields {
		switch {
		case f.Type == "many2one" && f.Relation == n.StageModel:
			set(RoleStage, f)
		case f.Type == "many2one" && f.Relation == n.TaskModel:
			set(RoleTask, f)
		case slices.Contains(qtyNames, f.Name):
			ranked(RoleQty, qtyNames, f)
		case slices.Contains(priceNames, f.Name):
			ranked(RolePrice, priceNames, f)
		case f.Name == "date":
			set(RoleDate, f)
		case slices.Contains(unitNames, f.Name):
			ranked(RoleUnit, unitNames, f)
		case f.Name == productField:
			set(RoleProduct, f)
		case kind == KindService && f.Name == "description":
			set(RoleDescription, f)
		}
	}
	sh.Score = score(sh, n)
	return sh
}

func score(sh Shape, n Naming) int {
	if !sh.Eligible() {
		return 0
	}
	s := scoreEligible + scoreLinks
	if strings.HasPrefix(sh.Model, n.Namespace) {
		s += scoreNamespace
	}
	if sh.Has(RoleQty) && sh.Has(RolePrice) {
		s += scoreAmounts
	}
	return s
}

// Best побеждает строго больший балл; при равенстве — найденная раньше
func Best(shapes []Shape) (Shape, bool) {
	var best Shape
	found := false
	for _, sh := range shapes {
		if !sh.Eligible() {
			continue
		}
		if !found || sh.Score > best.Score {
			best, found = sh, true
		}
	}
	return best, found
}
