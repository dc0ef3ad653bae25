// Package geo provides a small embedded country, state and city dataset,
// lookup and search helpers, and a net/http handler that returns JSON options
// for cascading location inputs.
//
// The handler responds to GET and HEAD requests. The level parameter selects
// countries, states of a country, or cities of a state; q and limit filter the
// results. The backing data is loaded from data/regions.json.
package geo
