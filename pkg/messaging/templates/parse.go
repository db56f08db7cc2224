package templates

import (
	"errors"
	"html/template"
	"strings"
)

func parseOnly(name string, def string) (*template.Template, error) {
	if strings.TrimSpace(def) == "" {
		return nil, errors.New("empty template `" + name + "`")
	}
	return template.New(name).Parse(def)
}
