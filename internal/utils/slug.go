package utils

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var stripMarks = transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)))

// Slugify 生成 URL 友好的标识：去掉重音符号和非 ASCII 字符，小写，
// 只保留 [a-z0-9_]，空白和连字符折叠为单个 "-"，首尾的 "-" "_" 去掉。
// "Café Data 2024!" -> "cafe-data-2024"
func Slugify(s string) string {
	folded, _, err := transform.String(stripMarks, s)
	if err != nil {
		folded = s
	}

	var b strings.Builder
	b.Grow(len(folded))
	dash := false
	for _, r := range strings.ToLower(folded) {
		switch {
		case r == '-' || unicode.IsSpace(r):
			dash = true
		case r == '_' || (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9'):
			if dash && b.Len() > 0 {
				b.WriteByte('-')
			}
			dash = false
			b.WriteRune(r)
		}
		// 其他字符直接丢弃
	}
	return strings.Trim(b.String(), "-_")
}
