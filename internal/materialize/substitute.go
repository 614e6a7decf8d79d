package materialize

import "regexp"

// placeholderRE matches {{name}} tokens. Names are word characters plus
// dot and dash; anything else is left for the file's own templating.
var placeholderRE = regexp.MustCompile(`\{\{([A-Za-z0-9_.-]+)\}\}`)

// Substitute expands {{name}} placeholders from the variable bag and
// reports whether anything was replaced. Placeholders with no matching
// variable are left untouched verbatim.
func Substitute(content string, vars map[string]string) (string, bool) {
	if len(vars) == 0 {
		return content, false
	}

	replaced := false
	out := placeholderRE.ReplaceAllStringFunc(content, func(token string) string {
		name := token[2 : len(token)-2]
		if value, ok := vars[name]; ok {
			replaced = true
			return value
		}
		return token
	})
	return out, replaced
}
