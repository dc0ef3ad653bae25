package geo

import "net/http"

type EmptySearchMode string

const (
	EmptySearchNone EmptySearchMode = "none"
	EmptySearchTop  EmptySearchMode = "top"
)

// Level selects which tier of the hierarchy a query targets.
type Level string

const (
	LevelCountry Level = "country"
	LevelState   Level = "state"
	LevelCity    Level = "city"
)

type GuardFunc func(r *http.Request) error

type Options struct {
	RoutePath       string
	SearchParam     string
	LimitParam      string
	LevelParam      string
	CountryParam    string
	StateParam      string
	DefaultLimit    int
	MaxLimit        int
	DefaultCountry  string
	EmptySearchMode EmptySearchMode
	Guard           GuardFunc

	Catalog *Catalog
}

type OptionFn func(*Options)

func DefaultOptions() Options {
	return Options{
		RoutePath:       "/api/locations",
		SearchParam:     "q",
		LimitParam:      "limit",
		LevelParam:      "level",
		CountryParam:    "country",
		StateParam:      "state",
		DefaultLimit:    100,
		MaxLimit:        500,
		DefaultCountry:  "IN",
		EmptySearchMode: EmptySearchTop,
	}
}

func NewOptions(fns ...OptionFn) Options {
	opts := DefaultOptions()
	defaults := DefaultOptions()
	for _, fn := range fns {
		if fn == nil {
			continue
		}
		fn(&opts)
	}
	if opts.DefaultLimit <= 0 {
		opts.DefaultLimit = defaults.DefaultLimit
	}
	if opts.MaxLimit <= 0 {
		opts.MaxLimit = defaults.MaxLimit
	}
	if opts.EmptySearchMode == "" {
		opts.EmptySearchMode = defaults.EmptySearchMode
	}
	if opts.RoutePath == "" {
		opts.RoutePath = defaults.RoutePath
	}
	if opts.SearchParam == "" {
		opts.SearchParam = defaults.SearchParam
	}
	if opts.LimitParam == "" {
		opts.LimitParam = defaults.LimitParam
	}
	if opts.LevelParam == "" {
		opts.LevelParam = defaults.LevelParam
	}
	if opts.CountryParam == "" {
		opts.CountryParam = defaults.CountryParam
	}
	if opts.StateParam == "" {
		opts.StateParam = defaults.StateParam
	}
	if opts.DefaultCountry == "" {
		opts.DefaultCountry = defaults.DefaultCountry
	}
	return opts
}

func WithRoutePath(path string) OptionFn {
	return func(o *Options) {
		if o == nil {
			return
		}
		o.RoutePath = path
	}
}

func WithSearchParam(name string) OptionFn {
	return func(o *Options) {
		if o == nil {
			return
		}
		o.SearchParam = name
	}
}

func WithLimitParam(name string) OptionFn {
	return func(o *Options) {
		if o == nil {
			return
		}
		o.LimitParam = name
	}
}

func WithDefaultLimit(limit int) OptionFn {
	return func(o *Options) {
		if o == nil {
			return
		}
		o.DefaultLimit = limit
	}
}

func WithMaxLimit(limit int) OptionFn {
	return func(o *Options) {
		if o == nil {
			return
		}
		o.MaxLimit = limit
	}
}

// WithDefaultCountry sets the scope used when a request names no country.
func WithDefaultCountry(code string) OptionFn {
	return func(o *Options) {
		if o == nil {
			return
		}
		o.DefaultCountry = code
	}
}

func WithEmptySearchMode(mode EmptySearchMode) OptionFn {
	return func(o *Options) {
		if o == nil {
			return
		}
		o.EmptySearchMode = mode
	}
}

func WithGuard(guard GuardFunc) OptionFn {
	return func(o *Options) {
		if o == nil {
			return
		}
		o.Guard = guard
	}
}

// WithCatalog serves a caller-provided dataset instead of the embedded one.
func WithCatalog(catalog *Catalog) OptionFn {
	return func(o *Options) {
		if o == nil {
			return
		}
		o.Catalog = catalog
	}
}

func clampLimit(limit int, opts Options) int {
	if limit < 0 {
		return 0
	}
	if limit == 0 {
		limit = opts.DefaultLimit
	}
	if opts.MaxLimit > 0 && limit > opts.MaxLimit {
		return opts.MaxLimit
	}
	return limit
}
