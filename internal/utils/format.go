package utils

import (
	"html"
	"math"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"
)

// strictPolicy strips every tag; backend text is shown as plain text only.
var strictPolicy = bluemonday.StrictPolicy()

// Sanitize removes markup from text supplied by the prediction service and
// returns plain, unescaped text.
func Sanitize(s string) string {
	return strings.TrimSpace(html.UnescapeString(strictPolicy.Sanitize(s)))
}

// TitleCase upper-cases the first letter of every space-separated word,
// leaving the rest of each word untouched.
func TitleCase(s string) string {
	if s == "" {
		return ""
	}
	words := strings.Split(s, " ")
	for i, w := range words {
		r, size := utf8.DecodeRuneInString(w)
		if r == utf8.RuneError {
			continue
		}
		words[i] = string(unicode.ToUpper(r)) + w[size:]
	}
	return strings.Join(words, " ")
}

// FormatINR renders an amount as Indian rupees with en-IN digit grouping and
// no fraction digits, e.g. 1234567 -> "₹12,34,567".
func FormatINR(amount float64) string {
	rounded := math.Round(amount)
	sign := ""
	if rounded < 0 {
		sign = "-"
		rounded = -rounded
	}
	return sign + "₹" + groupIndian(strconv.FormatFloat(rounded, 'f', 0, 64))
}

// groupIndian places a separator before the last three digits and then after
// every two digits further left.
func groupIndian(digits string) string {
	if len(digits) <= 3 {
		return digits
	}
	head, tail := digits[:len(digits)-3], digits[len(digits)-3:]

	var parts []string
	for len(head) > 2 {
		parts = append([]string{head[len(head)-2:]}, parts...)
		head = head[:len(head)-2]
	}
	if head != "" {
		parts = append([]string{head}, parts...)
	}
	return strings.Join(parts, ",") + "," + tail
}
