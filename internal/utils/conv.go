package utils

import (
	"strconv"
	"strings"
)

// ParseID 解析路由中的数字主键，非法时返回 false
func ParseID(s string) (uint, bool) {
	id, err := strconv.ParseUint(strings.TrimSpace(s), 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}

// ParsePage 解析页码，非数字或小于 1 时返回 1
func ParsePage(s string) int {
	p, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || p < 1 {
		return 1
	}
	return p
}
