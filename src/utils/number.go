package utils

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// 十进制整数，允许 ".0" 形式的小数部分
var wholeNumber = regexp.MustCompile(`^[+-]?[0-9]+(\.0*)?$`)

// ParseWholeNumber 解析 "20366" 与 "20366.0"
// 指数、十六进制、非零小数及超出int64范围的值返回错误
func ParseWholeNumber(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if !wholeNumber.MatchString(s) {
		return 0, fmt.Errorf("invalid integer %q", s)
	}
	if dot := strings.IndexByte(s, '.'); dot >= 0 {
		s = s[:dot]
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("integer %q out of range", s)
	}
	return v, nil
}
