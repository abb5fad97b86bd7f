package browser

import (
	"strings"

	"golang.org/x/net/html"
)

// TruncateHTML cuts markup down to at most max bytes without splitting a
// tag: whole tokens are appended until the limit is reached. When the
// tokenizer yields nothing inside the limit (one oversized text node,
// unparseable input) it falls back to a plain byte slice.
func TruncateHTML(markup string, max int) string {
	if max <= 0 {
		return ""
	}
	if len(markup) <= max {
		return markup
	}

	z := html.NewTokenizer(strings.NewReader(markup))
	var sb strings.Builder
	for {
		if tt := z.Next(); tt == html.ErrorToken {
			break
		}
		raw := z.Raw()
		if sb.Len()+len(raw) > max {
			break
		}
		sb.Write(raw)
	}
	if sb.Len() == 0 {
		return markup[:max]
	}
	return sb.String()
}
