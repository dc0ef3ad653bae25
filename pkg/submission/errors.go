package submission

import "strings"

// ErrorMapping splits a server error payload into field-level and form-level
// messages.
type ErrorMapping struct {
	Fields map[string][]string
	Form   []string
}

// MapErrors resolves each payload path to a known field name. Paths may be
// bare names, dotted or bracketed paths ("personalDetails[0].fields.City") or
// JSON pointers. Unknown paths become form-level messages.
func MapErrors(known func(name string) bool, payload map[string][]string) ErrorMapping {
	mapping := ErrorMapping{Fields: make(map[string][]string)}
	for raw, messages := range payload {
		messages = normalizeMessages(messages)
		if len(messages) == 0 {
			continue
		}
		name, ok := resolvePath(raw, known)
		if !ok {
			mapping.Form = append(mapping.Form, messages...)
			continue
		}
		mapping.Fields[name] = normalizeMessages(append(mapping.Fields[name], messages...))
	}
	if len(mapping.Fields) == 0 {
		mapping.Fields = nil
	}
	mapping.Form = normalizeMessages(mapping.Form)
	return mapping
}

func resolvePath(raw string, known func(string) bool) (string, bool) {
	trimmed := strings.TrimSpace(raw)
	if known == nil || isFormLevelKey(trimmed) {
		return "", false
	}
	if known(trimmed) {
		return trimmed, true
	}
	segments := pathSegments(trimmed)
	// earliest start index yields the longest candidate
	for start := range segments {
		candidate := strings.Join(segments[start:], ".")
		if known(candidate) {
			return candidate, true
		}
	}
	return "", false
}

func pathSegments(path string) []string {
	clean := strings.TrimLeft(path, "#$/.")
	clean = strings.NewReplacer("[", ".", "]", "").Replace(clean)
	parts := strings.FieldsFunc(clean, func(r rune) bool { return r == '.' || r == '/' })
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.ReplaceAll(strings.ReplaceAll(strings.TrimSpace(part), "~1", "/"), "~0", "~")
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

func isFormLevelKey(key string) bool {
	switch strings.ToLower(key) {
	case "", "_", "*", "form", "_form", "non_field_errors", "message":
		return true
	default:
		return false
	}
}

func normalizeMessages(messages []string) []string {
	if len(messages) == 0 {
		return nil
	}
	out := make([]string, 0, len(messages))
	seen := make(map[string]struct{}, len(messages))
	for _, message := range messages {
		trimmed := strings.TrimSpace(message)
		if trimmed == "" {
			continue
		}
		if _, dup := seen[trimmed]; dup {
			continue
		}
		seen[trimmed] = struct{}{}
		out = append(out, trimmed)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
