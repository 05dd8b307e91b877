package bot

import (
	"context"
	"fmt"

	"github.com/Spok95/construction-bot/internal/action"
	"github.com/Spok95/construction-bot/internal/dialog"
	"github.com/Spok95/construction-bot/internal/domain/files"
	"github.com/Spok95/construction-bot/internal/domain/projects"
	"github.com/Spok95/construction-bot/internal/notify"
)

func roomTitle(room string) string {
	if room == "" {
		return "Общие файлы"
	}
	return room
}

func (b *Bot) filesStart(ctx context.Context, r *request, _ action.Args) {
	b.pickProject(ctx, r, "📁 Файлы какого объекта?", projectToken("files"), func(p projects.Project) {
		b.showRooms(ctx, r, p)
	})
}

func (b *Bot) filesProject(ctx context.Context, r *request, args action.Args) {
	if p, ok := b.project(ctx, r, argID(args, 0)); ok {
		b.showRooms(ctx, r, *p)
	}
}

func (b *Bot) showRooms(ctx context.Context, r *request, p projects.Project) {
	rooms, err := b.files.Rooms(ctx, p.ID)
	if err != nil {
		b.fail(ctx, r, "files_rooms", err)
		return
	}
	payload := r.p.Without(dialog.SlotFilesRoom, dialog.SlotFilesCategoryID)
	payload[dialog.SlotFilesProjectID] = p.ID
	b.setState(ctx, r, dialog.StateIdle, payload)

	kb := notify.Keyboard{}
	for _, room := range rooms {
		token, err := action.TryEncode("files:room", p.ID, files.EncodeRoom(room))
		if err != nil {
			b.log.Warn("room name too long for button", "project_id", p.ID, "room", room, "err", err)
			continue
		}
		kb = append(kb, notify.Row(notify.Data("🚪 "+roomTitle(room), token)))
	}
	kb = append(kb, navRow(true))
	text := fmt.Sprintf("📁 %s\nВыберите помещение:", p.Name)
	if len(rooms) == 0 {
		text = fmt.Sprintf("📁 %s\nФайлов пока нет.", p.Name)
	}
	b.show(ctx, r, text, kb)
}

// filesRoom files:room:<pid>:<room>
func (b *Bot) filesRoom(ctx context.Context, r *request, args action.Args) {
	p, ok := b.project(ctx, r, argID(args, 0))
	if !ok {
		return
	}
	token := args.String(1)
	room, err := files.DecodeRoom(token)
	if err != nil {
		b.log.Warn("bad room token", "chat_id", r.chatID, "token", token, "err", err)
		b.showRooms(ctx, r, *p)
		return
	}
	cats, err := b.files.Categories(ctx, p.ID, room)
	if err != nil {
		b.fail(ctx, r, "files_categories", err)
		return
	}
	payload := r.p.Without(dialog.SlotFilesCategoryID)
	payload[dialog.SlotFilesProjectID] = p.ID
	payload[dialog.SlotFilesRoom] = room
	b.setState(ctx, r, dialog.StateIdle, payload)

	kb := notify.Keyboard{}
	for _, c := range cats {
		kb = append(kb, notify.Row(notify.Data("🗂 "+c.Name, action.Encode("files:cat", p.ID, token, c.ID))))
	}
	kb = append(kb, notify.Row(notify.Data("⬅️ К помещениям", action.Encode("files:project", p.ID))), navRow(false))
	b.show(ctx, r, fmt.Sprintf("📁 %s · %s\nВыберите раздел:", p.Name, roomTitle(room)), kb)
}

// filesCategory files:cat:<pid>:<room>:<cid>; показываются только последние версии
func (b *Bot) filesCategory(ctx context.Context, r *request, args action.Args) {
	p, ok := b.project(ctx, r, argID(args, 0))
	if !ok {
		return
	}
	token := args.String(1)
	room, err := files.DecodeRoom(token)
	if err != nil {
		b.showRooms(ctx, r, *p)
		return
	}
	cid := argID(args, 2)
	list, err := b.files.Latest(ctx, p.ID, room, cid)
	if err != nil {
		b.fail(ctx, r, "files_latest", err)
		return
	}
	payload := r.p.Clone()
	payload[dialog.SlotFilesProjectID] = p.ID
	payload[dialog.SlotFilesRoom] = room
	payload[dialog.SlotFilesCategoryID] = cid
	b.setState(ctx, r, dialog.StateIdle, payload)

	kb := notify.Keyboard{}
	for _, f := range list {
		kb = append(kb, notify.Row(notify.Data("📄 "+f.Label(), action.Encode("files:get", f.ID))))
	}
	kb = append(kb, notify.Row(notify.Data("⬅️ К разделам", action.Encode("files:room", p.ID, token))), navRow(false))
	text := fmt.Sprintf("📁 %s · %s", p.Name, roomTitle(room))
	if len(list) == 0 {
		text += "\n\nВ разделе нет файлов."
	}
	b.show(ctx, r, text, kb)
}

// filesGet отправляет документ, доступ проверяется по проекту файла
func (b *Bot) filesGet(ctx context.Context, r *request, args action.Args) {
	f, err := b.files.Get(ctx, argID(args, 0))
	if err != nil {
		b.fail(ctx, r, "files_get", err)
		return
	}
	if f == nil || f.TGFileID == "" {
		b.reply(ctx, r.chatID, "Файл не найден.", nil)
		return
	}
	if _, ok := b.project(ctx, r, f.ProjectID); !ok {
		return
	}
	b.document(ctx, r.chatID, f.TGFileID, nil, f.Label())
}
