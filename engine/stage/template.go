package stage

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/OptForgeAI/optforge-mvp/engine/domain"
)

// Template is a prompt text with $name / ${name} placeholders. Unknown
// placeholders are left untouched so prompt text containing dollar
// signs survives substitution; $$ renders a literal $.
type Template struct {
	text string
}

var placeholderRe = regexp.MustCompile(`\$(?:\$|\{\w+\}|\w+)`)

// NewTemplate wraps literal template text.
func NewTemplate(text string) *Template {
	return &Template{text: text}
}

// LoadTemplate reads a template from a file.
func LoadTemplate(path string) (*Template, error) {
	b, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, domain.NewConfigError(path, domain.ErrMissingTemplate)
	}
	if err != nil {
		return nil, fmt.Errorf("stage: load template %s: %w", path, err)
	}
	return &Template{text: string(b)}, nil
}

// Render substitutes vars into the template.
func (t *Template) Render(vars map[string]string) string {
	return placeholderRe.ReplaceAllStringFunc(t.text, func(m string) string {
		if m == "$$" {
			return "$"
		}
		name := strings.TrimPrefix(m, "$")
		name = strings.TrimPrefix(name, "{")
		name = strings.TrimSuffix(name, "}")
		if v, ok := vars[name]; ok {
			return v
		}
		return m
	})
}
