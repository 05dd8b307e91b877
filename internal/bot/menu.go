package bot

import (
	"context"
	"fmt"

	"github.com/Spok95/construction-bot/internal/action"
)

// showMenu главное меню роли. Без назначенных проектов меню не показываем.
func (b *Bot) showMenu(ctx context.Context, r *request) {
	if !r.user.Registered() {
		b.continueRegistration(ctx, r)
		return
	}
	if !r.user.IsAdmin() {
		list, err := b.allowedProjects(ctx, r.user)
		if err != nil {
			b.fail(ctx, r, "projects_list", err)
			return
		}
		if len(list) == 0 {
			b.show(ctx, r, noProjectText, nil)
			return
		}
	}
	text := fmt.Sprintf("🏠 Главное меню\n%s · %s", r.user.DisplayName(), r.user.Role.Title())
	b.show(ctx, r, text, menuKeyboard(r.user.Role))
}

// goHome выход из любого потока: все слоты очищаются
func (b *Bot) goHome(ctx context.Context, r *request) {
	b.clearAll(ctx, r)
	b.showMenu(ctx, r)
}

func (b *Bot) navHome(ctx context.Context, r *request, _ action.Args) { b.goHome(ctx, r) }

func (b *Bot) navBack(ctx context.Context, r *request, _ action.Args) { b.showMenu(ctx, r) }
