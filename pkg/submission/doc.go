// Package submission turns form state into the section/field wire shape the
// admission API stores, bundles it with uploads into partial or full
// envelopes, and maps server-side error payloads back onto fields.
package submission
