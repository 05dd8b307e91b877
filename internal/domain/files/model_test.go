package files

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoomRoundTrip(t *testing.T) {
	for _, room := range []string{"", "4", "Кухня", "Спальня 2 / санузел", "a:b|c"} {
		token := EncodeRoom(room)
		assert.NotContains(t, token, ":")
		assert.NotContains(t, token, "|")
		assert.NotContains(t, token, "=")
		got, err := DecodeRoom(token)
		require.NoError(t, err)
		assert.Equal(t, room, got)
	}
	assert.Equal(t, "_", EncodeRoom(""))
	assert.NotEqual(t, EncodeRoom(""), EncodeRoom("4"))
}

func TestDecodeRoomInvalid(t *testing.T) {
	_, err := DecodeRoom("***")
	assert.Error(t, err)
}

func TestLabel(t *testing.T) {
	assert.Equal(t, "План.pdf", File{Name: "План.pdf", Version: 1}.Label())
	assert.Equal(t, "План.pdf (v3)", File{Name: "План.pdf", Version: 3}.Label())
}
