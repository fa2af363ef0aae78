package notion

import (
	"strconv"
	"strings"
)

// Text returns the first non-empty text value among the named properties. Within a
// property the priority is title, rich text, select name, formula string, then url.
func Text(props Properties, names ...string) string {
	for _, name := range names {
		prop, ok := props[name]
		if !ok {
			continue
		}
		if v := prop.text(); v != "" {
			return v
		}
	}
	return ""
}

func (p PropertyValue) text() string {
	if v := strings.TrimSpace(joinPlain(p.Title)); v != "" {
		return v
	}
	if v := strings.TrimSpace(joinPlain(p.RichText)); v != "" {
		return v
	}
	if p.Select != nil {
		if v := strings.TrimSpace(p.Select.Name); v != "" {
			return v
		}
	}
	if p.Formula != nil && p.Formula.String != nil {
		if v := strings.TrimSpace(*p.Formula.String); v != "" {
			return v
		}
	}
	if p.URL != nil {
		return strings.TrimSpace(*p.URL)
	}
	return ""
}

func joinPlain(parts []RichText) string {
	switch len(parts) {
	case 0:
		return ""
	case 1:
		return parts[0].PlainText
	}
	var b strings.Builder
	for _, part := range parts {
		b.WriteString(part.PlainText)
	}
	return b.String()
}

// Image returns the first usable image URL among the named properties: a url property,
// then the first attached file's hosted URL, then its external URL.
func Image(props Properties, names ...string) string {
	for _, name := range names {
		prop, ok := props[name]
		if !ok {
			continue
		}
		if v := prop.image(); v != "" {
			return v
		}
	}
	return ""
}

func (p PropertyValue) image() string {
	if p.URL != nil {
		if v := strings.TrimSpace(*p.URL); v != "" {
			return v
		}
	}
	if len(p.Files) == 0 {
		return ""
	}
	first := p.Files[0]
	if first.File != nil {
		if v := strings.TrimSpace(first.File.URL); v != "" {
			return v
		}
	}
	if first.External != nil {
		return strings.TrimSpace(first.External.URL)
	}
	return ""
}

// Number returns the first numeric value among the named properties: a number, a
// numeric formula, then text that parses as a number. Absent means 0.
func Number(props Properties, names ...string) float64 {
	for _, name := range names {
		prop, ok := props[name]
		if !ok {
			continue
		}
		if v, ok := prop.number(); ok {
			return v
		}
	}
	return 0
}

func (p PropertyValue) number() (float64, bool) {
	if p.Number != nil {
		return *p.Number, true
	}
	if p.Formula != nil && p.Formula.Number != nil {
		return *p.Formula.Number, true
	}
	raw := strings.TrimSpace(p.text())
	if raw == "" {
		return 0, false
	}
	raw = strings.TrimPrefix(raw, "$")
	raw = strings.ReplaceAll(raw, ",", "")
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// RelationIDs collects related page ids from every named property that exists.
func RelationIDs(props Properties, names ...string) []string {
	var ids []string
	for _, name := range names {
		prop, ok := props[name]
		if !ok {
			continue
		}
		for _, rel := range prop.Relation {
			if rel.ID != "" {
				ids = append(ids, rel.ID)
			}
		}
	}
	return ids
}

// AllRelationIDs collects ids from every relation-typed property regardless of name.
func AllRelationIDs(props Properties) []string {
	var ids []string
	for _, prop := range props {
		if prop.Type != TypeRelation {
			continue
		}
		for _, rel := range prop.Relation {
			if rel.ID != "" {
				ids = append(ids, rel.ID)
			}
		}
	}
	return ids
}

// NormalizeID strips hyphens and lowercases a page or database id so the dashed and
// compact forms compare equal.
func NormalizeID(id string) string {
	return strings.ToLower(strings.ReplaceAll(strings.TrimSpace(id), "-", ""))
}

// IDVariants returns the raw id and, when different, its normalized form.
func IDVariants(id string) []string {
	raw := strings.TrimSpace(id)
	if raw == "" {
		return nil
	}
	norm := NormalizeID(raw)
	if norm == raw {
		return []string{raw}
	}
	return []string{raw, norm}
}
