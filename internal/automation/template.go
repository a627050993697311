package automation

import (
	"regexp"
	"strings"
)

// placeholderRegex matches {{var}} placeholders, tolerating inner whitespace.
var placeholderRegex = regexp.MustCompile(`\{\{\s*([a-zA-Z][a-zA-Z0-9]*)\s*\}\}`)

// TemplateVars are the substitution values available to rule templates.
type TemplateVars struct {
	Name         string
	BusinessType string
	AgentName    string
}

// Render substitutes placeholders in template. Unknown or missing variables
// render as the empty string; rendering never fails.
func Render(template string, vars TemplateVars) string {
	values := map[string]string{
		"name":         vars.Name,
		"businessType": vars.BusinessType,
		"agentName":    vars.AgentName,
	}

	return placeholderRegex.ReplaceAllStringFunc(template, func(match string) string {
		key := placeholderRegex.FindStringSubmatch(match)[1]
		return values[key]
	})
}

// Subject derives an email subject from the rule name, falling back to the
// first rendered line.
func Subject(automationName, rendered string) string {
	if name := strings.TrimSpace(automationName); name != "" {
		return name
	}
	if idx := strings.IndexByte(rendered, '\n'); idx > 0 {
		return strings.TrimSpace(rendered[:idx])
	}
	return rendered
}
