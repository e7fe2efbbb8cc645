package utils

import (
	"github.com/google/uuid"
)

// GenerateID 生成项目ID
func GenerateID() string {
	return uuid.NewString()
}
