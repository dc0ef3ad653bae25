package geo

import (
	"embed"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
)

//go:embed data/regions.json
var dataFS embed.FS

const defaultDataPath = "data/regions.json"

// Place is a named region. Cities use their name as code.
type Place struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

type stateRecord struct {
	Code   string   `json:"code"`
	Name   string   `json:"name"`
	Cities []string `json:"cities"`
}

type countryRecord struct {
	Code   string        `json:"code"`
	Name   string        `json:"name"`
	States []stateRecord `json:"states"`
}

type dataset struct {
	Countries []countryRecord `json:"countries"`
}

// Catalog is an immutable country → state → city hierarchy.
type Catalog struct {
	countries []countryRecord
}

var (
	defaultOnce    sync.Once
	defaultCatalog *Catalog
	defaultErr     error
)

// DefaultCatalog returns the embedded dataset, loaded once.
func DefaultCatalog() (*Catalog, error) {
	defaultOnce.Do(func() {
		f, err := dataFS.Open(defaultDataPath)
		if err != nil {
			defaultErr = err
			return
		}
		defer func() { _ = f.Close() }()

		defaultCatalog, defaultErr = LoadCatalog(f)
	})
	return defaultCatalog, defaultErr
}

// LoadCatalog decodes a dataset. Entries are trimmed, de-duplicated and
// sorted by name.
func LoadCatalog(r io.Reader) (*Catalog, error) {
	if r == nil {
		return nil, fmt.Errorf("geo: missing reader")
	}
	var data dataset
	if err := json.NewDecoder(r).Decode(&data); err != nil {
		return nil, fmt.Errorf("geo: decode dataset: %w", err)
	}

	seenCountries := map[string]struct{}{}
	countries := make([]countryRecord, 0, len(data.Countries))
	for _, country := range data.Countries {
		country.Code = strings.ToUpper(strings.TrimSpace(country.Code))
		country.Name = strings.TrimSpace(country.Name)
		if country.Code == "" || country.Name == "" {
			return nil, fmt.Errorf("geo: country entry requires code and name")
		}
		if _, dup := seenCountries[country.Code]; dup {
			continue
		}
		seenCountries[country.Code] = struct{}{}

		seenStates := map[string]struct{}{}
		states := make([]stateRecord, 0, len(country.States))
		for _, state := range country.States {
			state.Code = strings.ToUpper(strings.TrimSpace(state.Code))
			state.Name = strings.TrimSpace(state.Name)
			if state.Name == "" {
				continue
			}
			if state.Code == "" {
				state.Code = strings.ToUpper(state.Name)
			}
			if _, dup := seenStates[state.Code]; dup {
				continue
			}
			seenStates[state.Code] = struct{}{}
			state.Cities = uniqueSorted(state.Cities)
			states = append(states, state)
		}
		sort.Slice(states, func(i, j int) bool { return states[i].Name < states[j].Name })
		country.States = states
		countries = append(countries, country)
	}
	sort.Slice(countries, func(i, j int) bool { return countries[i].Name < countries[j].Name })

	return &Catalog{countries: countries}, nil
}

// Countries lists every country.
func (c *Catalog) Countries() []Place {
	if c == nil {
		return nil
	}
	out := make([]Place, 0, len(c.countries))
	for _, country := range c.countries {
		out = append(out, Place{Code: country.Code, Name: country.Name})
	}
	return out
}

// Country resolves a country by code or name, ignoring case.
func (c *Catalog) Country(key string) (Place, bool) {
	country := c.country(key)
	if country == nil {
		return Place{}, false
	}
	return Place{Code: country.Code, Name: country.Name}, true
}

// States lists the states of a country given by code or name.
func (c *Catalog) States(country string) []Place {
	record := c.country(country)
	if record == nil {
		return nil
	}
	out := make([]Place, 0, len(record.States))
	for _, state := range record.States {
		out = append(out, Place{Code: state.Code, Name: state.Name})
	}
	return out
}

// Cities lists the cities of a state. Country and state are codes or names.
func (c *Catalog) Cities(country, state string) []Place {
	record := c.state(c.country(country), state)
	if record == nil {
		return nil
	}
	return cityPlaces(record.Cities)
}

// AllCities lists the union of cities across every state of a country.
func (c *Catalog) AllCities(country string) []Place {
	record := c.country(country)
	if record == nil {
		return nil
	}
	var names []string
	for _, state := range record.States {
		names = append(names, state.Cities...)
	}
	return cityPlaces(uniqueSorted(names))
}

func (c *Catalog) country(key string) *countryRecord {
	if c == nil {
		return nil
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return nil
	}
	for i := range c.countries {
		if strings.EqualFold(c.countries[i].Code, key) || strings.EqualFold(c.countries[i].Name, key) {
			return &c.countries[i]
		}
	}
	return nil
}

func (c *Catalog) state(country *countryRecord, key string) *stateRecord {
	if country == nil {
		return nil
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return nil
	}
	for i := range country.States {
		if strings.EqualFold(country.States[i].Code, key) || strings.EqualFold(country.States[i].Name, key) {
			return &country.States[i]
		}
	}
	return nil
}

func cityPlaces(names []string) []Place {
	out := make([]Place, 0, len(names))
	for _, name := range names {
		out = append(out, Place{Code: name, Name: name})
	}
	return out
}

func uniqueSorted(values []string) []string {
	seen := map[string]struct{}{}
	out := make([]string, 0, len(values))
	for _, value := range values {
		value = strings.TrimSpace(value)
		if value == "" {
			continue
		}
		if _, ok := seen[value]; ok {
			continue
		}
		seen[value] = struct{}{}
		out = append(out, value)
	}
	sort.Strings(out)
	return out
}
