package dialog

import (
	"encoding/json"
	"strconv"
)

type State string

const (
	StateIdle State = "idle"

	// Регистрация
	StateRegistrationName State = "registration_name"
	StateRegistrationRole State = "registration_role"

	// Выбор проекта/этапа/задачи
	StateSelectProject State = "select_project"
	StateSelectStage   State = "select_stage"
	StateChooseAction  State = "choose_action"
	StateTypeSelection State = "type_selection"

	// Ввод позиций этапа
	StateSelectProductMaterial State = "select_product_material"
	StateSelectProductService  State = "select_product_service"
	StateSelectVariant         State = "select_variant"
	StateInputQtyPrice         State = "input_qty_price"
	StateInputNewProductName   State = "input_new_product_name"
	StateInputNewVariantName   State = "input_new_variant_name"
	StateInputProductDetails   State = "input_product_details"
	StateInputMaterial         State = "input_material"
	StateInputService          State = "input_service"
	StateInputPhoto            State = "input_photo"
	StateAwaitingStageImage    State = "awaiting_stage_image"

	// Прораб: дневной отчёт
	StateForemanReportText  State = "foreman_input_report_text"
	StateForemanReportMedia State = "foreman_input_report_media"

	// Мастер: заявка на материалы
	StateUstaMRInput      State = "usta_mr_input"
	StateUstaMRDraftInput State = "usta_mr_draft_input"
	StateUstaAIInput      State = "usta_ai_input"

	// Снабжение: цены
	StateSnabMRPriceInput    State = "snab_mr_price_input"
	StateSnabPriceSelectLine State = "snab_price_select_line"
	StateSnabPriceInput      State = "snab_price_input"
	StateSnabPriceInputLine  State = "snab_price_input_line"
	StateSnabVoicePriceWait  State = "snab_voice_price_wait"

	// Проблемы на объекте
	StateIssueInputText   State = "worker_issue_input_text"
	StateIssueInputPhotos State = "worker_issue_input_photos"

	// Загрузка дневного прихода (Excel)
	StateIntakeFileWait State = "intake_file_wait"
)

// IsDraft состояния, в которых черновик заявки имеет смысл
func (s State) IsDraft() bool {
	switch s {
	case StateUstaMRInput, StateUstaMRDraftInput, StateUstaAIInput:
		return true
	}
	return false
}

// Слоты контекста. Каждый поток пишет только свои ключи.
const (
	SlotProjectID = "project_id"
	SlotStageID   = "stage_id"
	SlotTaskID    = "task_id"
	SlotProductID = "product_id"

	SlotMRProjectID = "mr_project_id"
	SlotMRTaskID    = "mr_task_id"
	SlotMRLines     = "mr_lines"
	SlotAIProjectID = "ai_project_id"

	SlotSnabBatchID       = "snab_batch_id"
	SlotSnabLineID        = "snab_line_id"
	SlotSnabPricedLineIDs = "snab_priced_line_ids"
	SlotVoiceProjectID    = "voice_project_id"

	SlotIssueProjectID = "issue_project_id"
	SlotIssueText      = "issue_text"
	SlotIssuePhotos    = "issue_photos"

	SlotReportProjectID = "report_project_id"
	SlotReportText      = "report_text"
	SlotReportMedia     = "report_media"

	SlotFilesProjectID  = "files_project_id"
	SlotFilesRoom       = "files_room"
	SlotFilesCategoryID = "files_category_id"

	SlotLastMID = "last_mid"
)

type Payload map[string]any

type Item struct {
	ChatID  int64
	State   State
	Payload Payload
}

// Clone поверхностная копия, чтобы не портить прочитанный снимок
func (p Payload) Clone() Payload {
	out := make(Payload, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

// Without копия без перечисленных слотов
func (p Payload) Without(keys ...string) Payload {
	out := p.Clone()
	for _, k := range keys {
		delete(out, k)
	}
	return out
}

// GetString Helper для безопасного чтения строк из payload
func GetString(p Payload, key string) (string, bool) {
	v, ok := p[key]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// GetInt64 числа после JSON приходят как float64, в памяти могут лежать как int64
func GetInt64(p Payload, key string) (int64, bool) {
	switch v := p[key].(type) {
	case float64:
		return int64(v), true
	case int64:
		return v, true
	case int:
		return int64(v), true
	case json.Number:
		n, err := v.Int64()
		return n, err == nil
	case string:
		n, err := strconv.ParseInt(v, 10, 64)
		return n, err == nil
	}
	return 0, false
}

func GetStrings(p Payload, key string) []string {
	switch v := p[key].(type) {
	case []string:
		return append([]string(nil), v...)
	case []any:
		out := make([]string, 0, len(v))
		for _, e := range v {
			if s, ok := e.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

func GetInt64s(p Payload, key string) []int64 {
	switch v := p[key].(type) {
	case []int64:
		return append([]int64(nil), v...)
	case []any:
		out := make([]int64, 0, len(v))
		for _, e := range v {
			if f, ok := e.(float64); ok {
				out = append(out, int64(f))
			}
		}
		return out
	}
	return nil
}
