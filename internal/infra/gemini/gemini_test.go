package gemini

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseExtraction(t *testing.T) {
	raw := `{"items":[{"name_raw":"gips 10","name_clean":"Gipsokarton","qty":10,"uom":"dona"}],"warnings":["неразборчиво"]}`
	got, err := ParseExtraction(raw)
	require.NoError(t, err)
	require.Len(t, got.Items, 1)
	assert.Equal(t, "Gipsokarton", got.Items[0].NameClean)
	assert.Equal(t, 10.0, got.Items[0].Qty)
	assert.Equal(t, "dona", got.Items[0].Unit)
	assert.Equal(t, []string{"неразборчиво"}, got.Warnings)
}

func TestParseExtractionFenced(t *testing.T) {
	raw := "```json\n{\"items\":[{\"name_clean\":\"Beton\",\"qty\":2,\"uom\":\"m3\"}]}\n```"
	got, err := ParseExtraction(raw)
	require.NoError(t, err)
	require.Len(t, got.Items, 1)
	assert.Equal(t, "m3", got.Items[0].Unit)
}

func TestParseExtractionGarbage(t *testing.T) {
	_, err := ParseExtraction("sorry, I can't")
	assert.ErrorIs(t, err, ErrUnreadable)
}

func TestParsePricesDropsEmpty(t *testing.T) {
	got, err := ParsePrices(`{"items":[{"name":"Gipsokarton","price":50000},{"name":"","price":10},{"name":"Kraska","price":0}]}`)
	require.NoError(t, err)
	assert.Equal(t, []Price{{Name: "Gipsokarton", Price: 50000}}, got)
}

func TestBuildParts(t *testing.T) {
	assert.Empty(t, buildParts("  ", nil))
	assert.Len(t, buildParts("text", &Media{Data: []byte{1}, MIME: MIMEVoice}), 2)
	assert.Len(t, buildParts("", &Media{Data: nil, MIME: MIMEPhoto}), 0)
}
