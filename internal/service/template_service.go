// internal/service/template_service.go
package service

import (
	"strings"

	"github.com/unclebandit/outreach/internal/model"
)

// RenderTemplate replaces {key} placeholders with values from data in a
// single pass. Unknown placeholders are left as written.
func RenderTemplate(template string, data map[string]string) string {
	if len(data) == 0 {
		return template
	}
	pairs := make([]string, 0, len(data)*2)
	for k, v := range data {
		pairs = append(pairs, "{"+k+"}", v)
	}
	return strings.NewReplacer(pairs...).Replace(template)
}

// ContactPlaceholders returns the template values a step may use.
func ContactPlaceholders(c model.Contact) map[string]string {
	return map[string]string{
		"name":         c.DisplayName,
		"display_name": c.DisplayName,
		"phone":        c.PhoneE164,
	}
}
