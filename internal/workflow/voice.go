package workflow

import (
	"context"
	"fmt"
	"strings"

	"github.com/Spok95/construction-bot/internal/domain/batches"
	"github.com/Spok95/construction-bot/internal/domain/users"
	"github.com/Spok95/construction-bot/internal/draft"
)

// overlapThreshold минимальная доля слов строки, совпавших со сказанным
const overlapThreshold = 0.3

type PriceItem struct {
	Name  string
	Price float64
}

type VoiceResult struct {
	Updated  int
	NotFound []string
	// Submitted черновики, ушедшие на согласование после получения цены
	Submitted []string
}

func (r VoiceResult) Text() string {
	var b strings.Builder
	fmt.Fprintf(&b, "✅ Результат\nОбновлено: %d", r.Updated)
	if len(r.Submitted) > 0 {
		fmt.Fprintf(&b, "\nОтправлено на согласование: %s", strings.Join(r.Submitted, ", "))
	}
	if len(r.NotFound) > 0 {
		b.WriteString("\n\n⚠️ Не найдено:\n")
		b.WriteString(strings.Join(r.NotFound, "\n"))
	}
	return b.String()
}

// MatchLine ищет строку для названия: сначала подстрока, затем обратная
// подстрока, затем пересечение слов с долей не ниже порога
func MatchLine(lines []batches.OpenLine, spoken string) (batches.OpenLine, bool) {
	spoken = strings.ToLower(strings.TrimSpace(spoken))
	if spoken == "" {
		return batches.OpenLine{}, false
	}
	for _, l := range lines {
		if strings.Contains(strings.ToLower(l.ProductName), spoken) {
			return l, true
		}
	}
	for _, l := range lines {
		if name := strings.ToLower(l.ProductName); name != "" && strings.Contains(spoken, name) {
			return l, true
		}
	}

	words := map[string]struct{}{}
	for _, w := range strings.Fields(spoken) {
		words[w] = struct{}{}
	}
	var (
		best      batches.OpenLine
		bestScore float64
	)
	for _, l := range lines {
		lineWords := uniqueWords(strings.ToLower(l.ProductName))
		if len(lineWords) == 0 {
			continue
		}
		common := 0
		for _, w := range lineWords {
			if _, ok := words[w]; ok {
				common++
			}
		}
		if common == 0 {
			continue
		}
		if score := float64(common) / float64(len(lineWords)); score > bestScore {
			best, bestScore = l, score
		}
	}
	if bestScore < overlapThreshold {
		return batches.OpenLine{}, false
	}
	return best, true
}

func uniqueWords(s string) []string {
	seen := map[string]struct{}{}
	var out []string
	for _, w := range strings.Fields(s) {
		if _, ok := seen[w]; ok {
			continue
		}
		seen[w] = struct{}{}
		out = append(out, w)
	}
	return out
}

// ApplyVoicePrices раскладывает распознанные цены по открытым строкам проекта.
// Черновик, получивший цену, отправляется на согласование.
func (s *Service) ApplyVoicePrices(ctx context.Context, projectID int64, items []PriceItem, actor *users.User) (VoiceResult, error) {
	lines, err := s.batches.ListOpenLines(ctx, projectID)
	if err != nil {
		return VoiceResult{}, err
	}
	var (
		res    VoiceResult
		drafts []int64
		seen   = map[int64]bool{}
	)
	for _, it := range items {
		if strings.TrimSpace(it.Name) == "" || it.Price <= 0 {
			continue
		}
		line, ok := MatchLine(lines, it.Name)
		if !ok {
			res.NotFound = append(res.NotFound, fmt.Sprintf("%s (%s)", it.Name, draft.FormatQty(it.Price)))
			continue
		}
		if err := s.batches.SetLinePrice(ctx, line.ID, it.Price); err != nil {
			return res, err
		}
		res.Updated++
		for i := range lines {
			if lines[i].ID == line.ID {
				lines[i].UnitPrice = it.Price
			}
		}
		if line.BatchStatus == batches.StatusDraft && !seen[line.BatchID] {
			seen[line.BatchID] = true
			drafts = append(drafts, line.BatchID)
		}
	}

	for _, id := range drafts {
		out, err := s.SendForApproval(ctx, id, actor)
		if err != nil {
			s.log.Error("voice submit failed", "batch_id", id, "err", err)
			continue
		}
		if out.Changed {
			res.Submitted = append(res.Submitted, out.Batch.Name)
		}
	}
	return res, nil
}
