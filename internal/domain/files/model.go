package files

import (
	"encoding/base64"
	"fmt"
)

type Category struct {
	ID   int64
	Name string
}

type File struct {
	ID         int64
	ProjectID  int64
	Room       string
	CategoryID int64
	Name       string
	Version    int
	IsLatest   bool
	TGFileID   string
	UploadedBy string
}

// Label подпись кнопки файла: версия показывается только начиная со второй
func (f File) Label() string {
	if f.Version > 1 {
		return fmt.Sprintf("%s (v%d)", f.Name, f.Version)
	}
	return f.Name
}

// emptyRoom токен для файлов без помещения. Один символ не бывает
// результатом base64, поэтому с реальными помещениями не пересекается.
const emptyRoom = "_"

// EncodeRoom компактный токен помещения для callback-данных
func EncodeRoom(room string) string {
	if room == "" {
		return emptyRoom
	}
	return base64.RawURLEncoding.EncodeToString([]byte(room))
}

func DecodeRoom(token string) (string, error) {
	if token == emptyRoom || token == "" {
		return "", nil
	}
	b, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return "", fmt.Errorf("room token: %w", err)
	}
	return string(b), nil
}
