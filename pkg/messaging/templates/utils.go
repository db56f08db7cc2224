package templates

import (
	"bytes"
	"errors"
	"fmt"
	"html/template"
	"strings"
)

func ResolveTemplate(tempName string, templateDef string, contentInfos any) (content string, err error) {
	if strings.TrimSpace(templateDef) == "" {
		return "", errors.New("empty template `" + tempName + "`")
	}
	tmpl, err := template.New(tempName).Option("missingkey=zero").Parse(templateDef)
	if err != nil {
		err = fmt.Errorf("error when parsing template %s: %v", tempName, err)
		return "", err
	}
	var tpl bytes.Buffer

	err = tmpl.Execute(&tpl, contentInfos)
	if err != nil {
		err = fmt.Errorf("error during executing template %s: %v", tempName, err)
		return "", err
	}
	return tpl.String(), nil
}
