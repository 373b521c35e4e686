package article

import (
	"regexp"
	"strings"
)

var (
	strongPattern = regexp.MustCompile(`\*\*([^*]+)\*\*`)
	emPattern     = regexp.MustCompile(`\*([^*]+)\*`)
)

// Format applies the article markup: **x** becomes <strong>x</strong>,
// *x* becomes <em>x</em> and newlines become <br/>.
func Format(body string) string {
	out := strongPattern.ReplaceAllString(body, "<strong>$1</strong>")
	out = emPattern.ReplaceAllString(out, "<em>$1</em>")
	return strings.ReplaceAll(out, "\n", "<br/>")
}
