package action

import "strings"

type route[H any] struct {
	prefix  []string
	exact   bool
	handler H
}

// Router таблица маршрутов, проверяемая в порядке регистрации.
// Первый совпавший маршрут выигрывает.
type Router[H any] struct {
	routes []route[H]
}

func NewRouter[H any]() *Router[H] { return &Router[H]{} }

// Prefix маршрут срабатывает, если первые сегменты токена совпадают с шаблоном
func (r *Router[H]) Prefix(pattern string, h H) *Router[H] {
	r.routes = append(r.routes, route[H]{prefix: splitPattern(pattern), handler: h})
	return r
}

// Exact маршрут без аргументов
func (r *Router[H]) Exact(pattern string, h H) *Router[H] {
	r.routes = append(r.routes, route[H]{prefix: splitPattern(pattern), exact: true, handler: h})
	return r
}

func (r *Router[H]) Match(a Action) (H, Args, bool) {
	for _, rt := range r.routes {
		if len(a.Segments) < len(rt.prefix) {
			continue
		}
		if rt.exact && len(a.Segments) != len(rt.prefix) {
			continue
		}
		ok := true
		for i, seg := range rt.prefix {
			if a.Segments[i] != seg {
				ok = false
				break
			}
		}
		if ok {
			return rt.handler, Args(a.Segments[len(rt.prefix):]), true
		}
	}
	var zero H
	return zero, nil, false
}

func splitPattern(p string) []string {
	if strings.Contains(p, "|") {
		return strings.Split(p, "|")
	}
	return strings.Split(p, ":")
}
