package utils

import (
	"path/filepath"
	"regexp"
	"strings"
)

var (
	unsafeFilenameChars = regexp.MustCompile(`[/\\?%*:|"<>]`)
	whitespaceRun       = regexp.MustCompile(`\s+`)
)

// SanitizeFilename 替换文件名中的非法字符，空白压缩为下划线
func SanitizeFilename(name string) string {
	name = strings.TrimSpace(name)
	name = unsafeFilenameChars.ReplaceAllString(name, "-")
	name = whitespaceRun.ReplaceAllString(name, "_")
	if name == "" {
		return "export"
	}
	return name
}

// DefaultExportName 上传文件名去掉扩展名后加 -transparent 后缀
func DefaultExportName(uploadName string) string {
	base := filepath.Base(uploadName)
	if i := strings.Index(base, "."); i > 0 {
		base = base[:i]
	} else if i == 0 {
		base = ""
	}
	if base == "" || base == "." {
		base = "image"
	}
	return base + "-transparent"
}
