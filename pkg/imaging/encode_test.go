package imaging_test

import (
	"bytes"
	"encoding/base64"
	"image"
	"image/color"
	"image/png"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thereayou/roomlite/pkg/imaging"
)

func TestEncodeProducesDataURI(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	img.Set(0, 0, color.RGBA{R: 255, A: 255})
	img.Set(1, 1, color.RGBA{B: 255, A: 255})

	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))

	payload, err := imaging.Encode(&buf)
	require.NoError(t, err)
	assert.True(t, imaging.IsEncoded(payload))

	// Полезная нагрузка декодируется обратно в ту же картинку
	raw, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(payload, "data:image/png;base64,"))
	require.NoError(t, err)

	decoded, err := png.Decode(bytes.NewReader(raw))
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 2, 2), decoded.Bounds())
}

func TestEncodeRejectsGarbage(t *testing.T) {
	_, err := imaging.Encode(strings.NewReader("not an image"))
	assert.Error(t, err)
}

func TestIsEncoded(t *testing.T) {
	assert.False(t, imaging.IsEncoded("hello"))
	assert.False(t, imaging.IsEncoded(""))
	assert.True(t, imaging.IsEncoded("data:image/png;base64,AAAA"))
}
