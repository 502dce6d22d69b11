package internal

import (
	"bytes"
	"text/template"

	"github.com/getzep/sprig/v3"
)

// ParsePrompt renders a text/template prompt with the sprig function map available.
func ParsePrompt(promptTemplate string, data any) (string, error) {
	tmpl, err := template.New("prompt").Funcs(sprig.TxtFuncMap()).Parse(promptTemplate)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	err = tmpl.Execute(&buf, data)
	if err != nil {
		return "", err
	}

	return buf.String(), nil
}

// Truncate returns at most n runes of s, appending "..." when it had to cut.
func Truncate(s string, n int) string {
	r := []rune(s)
	if n <= 0 || len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
