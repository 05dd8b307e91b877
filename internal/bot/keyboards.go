package bot

import (
	"github.com/Spok95/construction-bot/internal/action"
	"github.com/Spok95/construction-bot/internal/domain/users"
	"github.com/Spok95/construction-bot/internal/notify"
)

const noProjectText = "Вы пока не назначены ни на один проект. Обратитесь к администратору."

func navRow(back bool) []notify.Button {
	row := []notify.Button{}
	if back {
		row = append(row, notify.Data("⬅️ Назад", "nav:back"))
	}
	return append(row, notify.Data("🏠 Главное меню", "nav:home"))
}

func navKeyboard(back bool) notify.Keyboard {
	return notify.Keyboard{navRow(back)}
}

func roleKeyboard() notify.Keyboard {
	kb := notify.Keyboard{}
	for _, r := range users.SelfRoles {
		kb = append(kb, notify.Row(notify.Data(r.Title(), action.Encode("reg:role", string(r)))))
	}
	return kb
}

type menuItem struct {
	text  string
	token string
}

var (
	itemTasks     = menuItem{"📋 Мои задачи", "worker:tasks"}
	itemMR        = menuItem{"🧱 Заявка на материалы", "usta:mr:new"}
	itemMRAI      = menuItem{"🤖 Заявка голосом или фото", "usta:ai:new"}
	itemIssue     = menuItem{"⚠️ Сообщить о проблеме", "issue:new"}
	itemFiles     = menuItem{"📁 Файлы проекта", "files:start"}
	itemReport    = menuItem{"📝 Дневной отчёт", "prorab:report"}
	itemDelivery  = menuItem{"🚚 Поставки", "dlv|start"}
	itemPending   = menuItem{"💰 Заявки на оценку", "snab:list:pending"}
	itemApproved  = menuItem{"✅ Одобренные заявки", "snab:list:approved"}
	itemVoice     = menuItem{"🎙 Цены голосом", "snab:voice"}
	itemIntake    = menuItem{"📥 Загрузить приход (Excel)", "intake:start"}
	itemStatus    = menuItem{"📊 Статус объекта", "client:status"}
	itemApprovals = menuItem{"🗳 Согласование заявок", "client:approvals"}
	itemCash      = menuItem{"💵 Движение денег", "client:cash"}
	itemDash      = menuItem{"🌐 Дашборд", "client:dash"}
)

// menus дерево главного меню по ролям
var menus = map[users.Role][]menuItem{
	users.RoleWorker:   {itemTasks, itemMR, itemMRAI, itemIssue, itemFiles},
	users.RoleForeman:  {itemReport, itemMR, itemDelivery, itemIssue, itemFiles},
	users.RoleSupply:   {itemPending, itemVoice, itemApproved, itemDelivery, itemIntake},
	users.RoleClient:   {itemStatus, itemApprovals, itemCash, itemDash, itemFiles},
	users.RoleDesigner: {itemFiles, itemIssue},
	users.RoleAdmin: {
		itemApprovals, itemPending, itemApproved, itemDelivery, itemReport,
		itemIntake, itemCash, itemDash, itemFiles,
	},
}

func menuKeyboard(role users.Role) notify.Keyboard {
	kb := notify.Keyboard{}
	for _, it := range menus[role] {
		kb = append(kb, notify.Row(notify.Data(it.text, it.token)))
	}
	return kb
}
