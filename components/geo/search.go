package geo

import (
	"sort"
	"strings"
)

// Option is a JSON-friendly select option. Locations are stored by name, so
// value and label carry the same text.
type Option struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// Search filters places by case-insensitive substring, prefix matches first.
func Search(places []Place, query string, limit int, opts Options) []Place {
	limit = clampLimit(limit, opts)
	if limit == 0 {
		return nil
	}

	query = strings.TrimSpace(query)
	if query == "" {
		if opts.EmptySearchMode == EmptySearchTop {
			if len(places) <= limit {
				return append([]Place{}, places...)
			}
			return append([]Place{}, places[:limit]...)
		}
		return nil
	}

	q := strings.ToLower(query)
	matches := make([]matchedPlace, 0, 16)
	for _, place := range places {
		name := strings.ToLower(place.Name)
		code := strings.ToLower(place.Code)
		if !strings.Contains(name, q) && code != q {
			continue
		}
		matches = append(matches, matchedPlace{
			place:    place,
			isPrefix: strings.HasPrefix(name, q) || code == q,
		})
	}

	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].isPrefix != matches[j].isPrefix {
			return matches[i].isPrefix
		}
		return matches[i].place.Name < matches[j].place.Name
	})

	if len(matches) > limit {
		matches = matches[:limit]
	}

	out := make([]Place, 0, len(matches))
	for _, match := range matches {
		out = append(out, match.place)
	}
	return out
}

// SearchOptions runs Search and converts the results into options.
func SearchOptions(places []Place, query string, limit int, opts Options) []Option {
	return ToOptions(Search(places, query, limit, opts))
}

// ToOptions converts places into name-valued options.
func ToOptions(places []Place) []Option {
	if len(places) == 0 {
		return nil
	}
	out := make([]Option, 0, len(places))
	for _, place := range places {
		out = append(out, Option{Value: place.Name, Label: place.Name})
	}
	return out
}

type matchedPlace struct {
	place    Place
	isPrefix bool
}
