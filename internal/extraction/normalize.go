package extraction

import "strings"

var notationReplacer = strings.NewReplacer(
	"×", "*",
	"·", "*",
	"÷", "/",
	"−", "-",
	"–", "-",
	"²", "^2",
	"³", "^3",
	"√", "sqrt",
	"≤", "<=",
	"≥", ">=",
	"$", "",
	"\\(", "",
	"\\)", "",
	"\\[", "",
	"\\]", "",
)

// Normalize produces a best-effort ASCII math rendering of recognized text:
// unicode operators mapped to their ASCII forms, delimiter markup stripped,
// whitespace collapsed. The raw text is kept alongside it untouched.
func Normalize(text string) string {
	s := notationReplacer.Replace(text)
	return strings.Join(strings.Fields(s), " ")
}
