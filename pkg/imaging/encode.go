// Package imaging кодирует растровые изображения в непрозрачную
// строку-полезную нагрузку, пригодную для аватаров и сообщений-картинок.
package imaging

import (
	"bytes"
	"encoding/base64"
	"image"
	"image/png"
	"io"

	_ "image/gif"
	_ "image/jpeg"
)

const dataURIPrefix = "data:image/png;base64,"

// Encode декодирует произвольное растровое изображение и возвращает
// его как data URI со встроенным PNG
func Encode(r io.Reader) (string, error) {
	img, _, err := image.Decode(r)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return "", err
	}

	return dataURIPrefix + base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

// IsEncoded сообщает, является ли строка уже закодированной картинкой
func IsEncoded(payload string) bool {
	return len(payload) > len(dataURIPrefix) && payload[:len(dataURIPrefix)] == dataURIPrefix
}
