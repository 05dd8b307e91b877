// Package action — типизированные callback-токены inline-кнопок.
//
// Токен состоит из сегментов, разделённых ':' или '|': первый сегмент —
// пространство имён, остальные — путь и позиционные аргументы. Разделитель
// определяется по первому встреченному символу из двух.
package action

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// MaxLen ограничение Telegram на callback_data в байтах
const MaxLen = 64

var (
	ErrEmpty   = errors.New("action: empty token")
	ErrTooLong = errors.New("action: token exceeds 64 bytes")
)

type Action struct {
	Sep      string
	Segments []string
}

func (a Action) NS() string {
	if len(a.Segments) == 0 {
		return ""
	}
	return a.Segments[0]
}

func (a Action) String() string { return strings.Join(a.Segments, a.Sep) }

func Parse(data string) (Action, error) {
	data = strings.TrimSpace(data)
	if data == "" {
		return Action{}, ErrEmpty
	}
	if len(data) > MaxLen {
		return Action{}, ErrTooLong
	}
	sep := ":"
	if i := strings.IndexAny(data, ":|"); i >= 0 {
		sep = data[i : i+1]
	}
	segs := strings.Split(data, sep)
	if segs[0] == "" {
		return Action{}, fmt.Errorf("action: empty namespace in %q", data)
	}
	return Action{Sep: sep, Segments: segs}, nil
}

// Encode собирает токен по шаблону "ns:verb" (или "ns|verb") и аргументам.
// Для аргументов, приходящих от пользователя, используйте TryEncode.
func Encode(pattern string, args ...any) string {
	s, err := TryEncode(pattern, args...)
	if err != nil {
		panic(err)
	}
	return s
}

func TryEncode(pattern string, args ...any) (string, error) {
	sep := ":"
	if strings.Contains(pattern, "|") {
		sep = "|"
	}
	var b strings.Builder
	b.WriteString(pattern)
	for _, a := range args {
		b.WriteString(sep)
		switch v := a.(type) {
		case string:
			if strings.ContainsAny(v, ":|") {
				return "", fmt.Errorf("action: argument %q contains a separator", v)
			}
			b.WriteString(v)
		case int:
			b.WriteString(strconv.Itoa(v))
		case int64:
			b.WriteString(strconv.FormatInt(v, 10))
		default:
			b.WriteString(fmt.Sprint(v))
		}
	}
	if b.Len() > MaxLen {
		return "", ErrTooLong
	}
	return b.String(), nil
}

// Args позиционные аргументы после совпавшего префикса маршрута
type Args []string

func (a Args) String(i int) string {
	if i < 0 || i >= len(a) {
		return ""
	}
	return a[i]
}

func (a Args) Int64(i int) (int64, error) {
	if i < 0 || i >= len(a) {
		return 0, fmt.Errorf("action: missing argument #%d", i)
	}
	return strconv.ParseInt(a[i], 10, 64)
}
