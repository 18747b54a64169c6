package web

import (
	"fmt"
	"html/template"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/dustin/go-humanize"
)

func templateFuncMap() template.FuncMap {
	return template.FuncMap{
		"timeAgo":     timeAgo,
		"formatNum":   formatNum,
		"truncate":    truncate,
		"add":         func(a, b int) int { return a + b },
		"lower":       strings.ToLower,
		"title":       titleCase,
		"countryFlag": countryFlag,
		"hostname":    hostname,
		"percent":     percent,
		"barWidth":    barWidth,
	}
}

func timeAgo(t time.Time) string {
	if time.Since(t) < time.Minute {
		return "just now"
	}
	return humanize.Time(t)
}

func formatNum(n int64) string {
	if n < 10_000 {
		return humanize.Comma(n)
	}
	return strings.ReplaceAll(humanize.SIWithDigits(float64(n), 1, ""), " ", "")
}

func percent(f float64) string {
	return fmt.Sprintf("%.1f%%", f)
}

// barWidth scales v against max to a 0-100 CSS width.
func barWidth(v, max int64) int {
	if max <= 0 || v <= 0 {
		return 0
	}
	w := int(v * 100 / max)
	if w < 2 {
		return 2
	}
	return w
}

func truncate(s string, maxLen int) string {
	if utf8.RuneCountInString(s) <= maxLen {
		return s
	}
	r := []rune(s)
	return string(r[:maxLen-1]) + "…"
}

func countryFlag(code string) string {
	if len(code) != 2 {
		return code
	}
	code = strings.ToUpper(code)
	return string(rune(code[0])-'A'+0x1F1E6) + string(rune(code[1])-'A'+0x1F1E6)
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + strings.ToLower(s[1:])
}

func hostname(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return strings.TrimPrefix(u.Hostname(), "www.")
}
