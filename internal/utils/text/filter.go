package text

import (
	"strings"

	"paperetl/internal/domain/entity"
)

// Known publisher boilerplate fragments. Sections containing any of these are
// non-content notices and are dropped after segmentation.
var boilerplate = []string{
	"COVID-19 resource centre",
	"permission to make all its COVID",
	"WHO COVID database",
	"COVID-19 public health emergency response",
}

// FilterSections removes boilerplate and exact-duplicate section text from one
// article, keeping the first occurrence and preserving insertion order.
func FilterSections(sections []entity.Section) []entity.Section {
	unique := make([]entity.Section, 0, len(sections))
	seen := make(map[string]struct{}, len(sections))

	for _, section := range sections {
		if _, ok := seen[section.Text]; ok {
			continue
		}
		if isBoilerplate(section.Text) {
			continue
		}

		unique = append(unique, section)
		seen[section.Text] = struct{}{}
	}

	return unique
}

func isBoilerplate(text string) bool {
	for _, fragment := range boilerplate {
		if strings.Contains(text, fragment) {
			return true
		}
	}
	return false
}
