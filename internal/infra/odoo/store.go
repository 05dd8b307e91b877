package odoo

import (
	"context"
	"sort"

	"github.com/Spok95/construction-bot/internal/resolver"
)

// Store обобщённое хранилище записей поверх Client для resolver
type Store struct {
	c *Client
}

func NewStore(c *Client) *Store { return &Store{c: c} }

var _ resolver.Store = (*Store)(nil)

func (s *Store) Models(ctx context.Context, contains string) ([]string, error) {
	rows, err := s.c.SearchRead(ctx, "ir.model", []any{
		[]any{"model", "ilike", contains},
	}, []string{"model"}, "id", 0)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(rows))
	for _, r := range rows {
		if m := toString(r["model"]); m != "" {
			out = append(out, m)
		}
	}
	return out, nil
}

// Fields поля модели по имени: fields_get возвращает словарь без порядка
func (s *Store) Fields(ctx context.Context, model string) ([]resolver.Field, error) {
	raw, err := s.c.FieldsGet(ctx, model)
	if err != nil {
		return nil, err
	}
	return fieldsFromRaw(raw), nil
}

func fieldsFromRaw(raw map[string]any) []resolver.Field {
	out := make([]resolver.Field, 0, len(raw))
	for name, v := range raw {
		attrs, _ := v.(map[string]any)
		out = append(out, resolver.Field{
			Name:     name,
			Type:     toString(attrs["type"]),
			Relation: toString(attrs["relation"]),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (s *Store) Search(ctx context.Context, model string, domain []any, limit int) ([]int64, error) {
	return s.c.Search(ctx, model, domain, limit)
}

func (s *Store) Exists(ctx context.Context, model string, id int64) (bool, error) {
	n, err := s.c.SearchCount(ctx, model, []any{[]any{"id", "=", id}})
	return n > 0, err
}

func (s *Store) Create(ctx context.Context, model string, values map[string]any) (int64, error) {
	return s.c.Create(ctx, model, values)
}

func (s *Store) Write(ctx context.Context, model string, id int64, values map[string]any) error {
	return s.c.Write(ctx, model, []int64{id}, values)
}
