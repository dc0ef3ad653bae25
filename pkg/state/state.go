package state

import "sort"

// File is a locally selected upload that has not reached the server yet.
type File struct {
	Name        string
	ContentType string
	Data        []byte
}

// State holds the values of one form session together with the local file
// side-table, filenames already stored on the server, and the current
// validation message per field. It is not safe for concurrent use.
type State struct {
	values map[string]Value
	files  map[string]File
	stored map[string]string
	errors map[string]string
}

// New returns an empty state.
func New() *State {
	return &State{
		values: make(map[string]Value),
		files:  make(map[string]File),
		stored: make(map[string]string),
		errors: make(map[string]string),
	}
}

// Get returns the value of name, or an empty text value.
func (s *State) Get(name string) Value {
	if s == nil {
		return Value{}
	}
	return s.values[name]
}

// Lookup returns the value of name and whether it was set.
func (s *State) Lookup(name string) (Value, bool) {
	if s == nil {
		return Value{}, false
	}
	v, ok := s.values[name]
	return v, ok
}

// Set overwrites the value of name and clears its error.
func (s *State) Set(name string, v Value) {
	s.values[name] = v
	delete(s.errors, name)
}

// SetFile records a local file and mirrors its name into the value table.
func (s *State) SetFile(name string, f File) {
	s.files[name] = f
	s.values[name] = Text(f.Name)
	delete(s.errors, name)
}

// File returns the local file selected for name.
func (s *State) File(name string) (File, bool) {
	if s == nil {
		return File{}, false
	}
	f, ok := s.files[name]
	return f, ok
}

// FileNames lists the fields with a local file, sorted.
func (s *State) FileNames() []string {
	if s == nil {
		return nil
	}
	names := make([]string, 0, len(s.files))
	for name := range s.files {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// SetStored records a filename already held by the server.
func (s *State) SetStored(name, filename string) {
	if filename == "" {
		delete(s.stored, name)
		return
	}
	s.stored[name] = filename
}

// Stored returns the server-side filename recorded for name.
func (s *State) Stored(name string) (string, bool) {
	if s == nil {
		return "", false
	}
	filename, ok := s.stored[name]
	return filename, ok
}

// Commit moves the local file of name into the stored table, as after a
// successful upload.
func (s *State) Commit(name string) {
	f, ok := s.files[name]
	if !ok {
		return
	}
	delete(s.files, name)
	s.SetStored(name, f.Name)
}

// Delete drops every trace of name.
func (s *State) Delete(name string) {
	delete(s.values, name)
	delete(s.files, name)
	delete(s.stored, name)
	delete(s.errors, name)
}

// SetError stores a validation message; an empty message clears it.
func (s *State) SetError(name, msg string) {
	if msg == "" {
		delete(s.errors, name)
		return
	}
	s.errors[name] = msg
}

// Error returns the current message for name.
func (s *State) Error(name string) string {
	if s == nil {
		return ""
	}
	return s.errors[name]
}

// HasErrors reports whether any field carries a message.
func (s *State) HasErrors() bool {
	return s != nil && len(s.errors) > 0
}

// ClearErrors drops every message.
func (s *State) ClearErrors() {
	s.errors = make(map[string]string)
}

// Errors returns a copy of the error table.
func (s *State) Errors() map[string]string {
	out := make(map[string]string, len(s.errors))
	for k, v := range s.errors {
		out[k] = v
	}
	return out
}

// Values returns a copy of the value table.
func (s *State) Values() map[string]Value {
	out := make(map[string]Value, len(s.values))
	for k, v := range s.values {
		out[k] = v
	}
	return out
}

// Strings flattens values into plain strings, for rule evaluation.
func (s *State) Strings() map[string]any {
	out := make(map[string]any, len(s.values))
	for k, v := range s.values {
		if v.IsList() {
			out[k] = v.Items()
			continue
		}
		out[k] = v.String()
	}
	return out
}
