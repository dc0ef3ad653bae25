// Package catalog describes the server-declared admission form: groups of
// sections, each holding ordered field specifications.
//
// Configurations are decoded from JSON or YAML into strict types and validated
// once at load time so downstream packages never inspect untyped documents.
package catalog
