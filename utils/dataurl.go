package utils

import (
	"encoding/base64"
	"errors"
	"strings"
)

var ErrInvalidDataURL = errors.New("invalid data url")

// EncodeDataURL 生成 data:<mime>;base64,<data>
func EncodeDataURL(mime string, data []byte) string {
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(data)
}

// DecodeDataURL 解析 base64 data URL，返回 MIME 类型和数据
// 不带 data: 前缀的纯 base64 字符串也可以解析，MIME 默认为 image/png
func DecodeDataURL(s string) (string, []byte, error) {
	mime := "image/png"
	payload := s
	if strings.HasPrefix(s, "data:") {
		header, body, ok := strings.Cut(s[len("data:"):], ",")
		if !ok || !strings.HasSuffix(header, ";base64") {
			return "", nil, ErrInvalidDataURL
		}
		if m := strings.TrimSuffix(header, ";base64"); m != "" {
			mime = m
		}
		payload = body
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", nil, errors.Join(ErrInvalidDataURL, err)
	}
	return mime, data, nil
}
