package workflow

import (
	"context"
	"errors"
	"fmt"

	"github.com/Spok95/construction-bot/internal/domain/batches"
	"github.com/Spok95/construction-bot/internal/notify"
	"github.com/Spok95/construction-bot/internal/resolver"
)

// PushReport итог выгрузки строк заявки в этап
type PushReport struct {
	Created int
	Updated int
	// UserError понятная пользователю причина (например, нет задачи на этапе)
	UserError string
	// ConfigError ошибка настройки учёта, уходит администратору
	ConfigError error
	Failed      int
}

func (r *PushReport) Summary() string {
	if r == nil {
		return ""
	}
	s := fmt.Sprintf("Выгружено в этап: новых %d, обновлено %d", r.Created, r.Updated)
	if r.Failed > 0 {
		s += fmt.Sprintf(", с ошибкой %d", r.Failed)
	}
	if r.UserError != "" {
		s += "\n⚠️ " + r.UserError
	}
	return s
}

// pushLines выгружает материалы одобренной заявки в её этап. Ошибки не
// откатывают одобрение: строки без ссылки выгрузятся при повторном одобрении
// или импорте.
func (s *Service) pushLines(ctx context.Context, b *batches.Batch) *PushReport {
	if s.pusher == nil || b.StageID == 0 {
		return nil
	}
	rep := &PushReport{}
	for i, l := range b.Lines {
		res, err := s.pusher.Push(ctx, resolver.Line{
			Kind:    resolver.KindMaterial,
			StageID: b.StageID,
			Name:    l.ProductName,
			Qty:     l.Quantity,
			Price:   l.UnitPrice,
			Date:    b.Date,
			Ref:     l.TargetRef,
		})
		var mt *resolver.MissingTaskError
		switch {
		case errors.Is(err, resolver.ErrNoEligibleShape):
			rep.ConfigError = err
			rep.Failed += len(b.Lines) - i
			s.reportConfig(ctx, b, err)
			return rep
		case errors.As(err, &mt):
			rep.UserError = mt.Error()
			rep.Failed += len(b.Lines) - i
			return rep
		case err != nil:
			rep.Failed++
			s.log.Error("push line failed", "batch_id", b.ID, "line_id", l.ID, "err", err)
			continue
		}
		if res.Created {
			rep.Created++
		} else {
			rep.Updated++
		}
		ref := res.Ref.String()
		if ref != l.TargetRef {
			if err := s.batches.SetLineTarget(ctx, l.ID, ref); err != nil {
				s.log.Error("store target ref failed", "line_id", l.ID, "ref", ref, "err", err)
			}
			b.Lines[i].TargetRef = ref
		}
	}
	return rep
}

func (s *Service) reportConfig(ctx context.Context, b *batches.Batch, err error) {
	s.log.Error("resolver configuration error", "batch_id", b.ID, "err", err)
	if s.adminChatID == 0 {
		return
	}
	text := fmt.Sprintf("⚙️ Ошибка настройки учёта при выгрузке %s:\n%v", b.Name, err)
	if _, serr := s.sender.SendText(ctx, s.adminChatID, text, nil); serr != nil {
		notify.Report(s.log, "admin_notify", serr, "batch_id", b.ID)
	}
}
