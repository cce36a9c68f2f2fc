package form

import "strings"

// UndefinedFormType labels responses whose form id is unknown.
const UndefinedFormType = "Undefined"

// Registry maps the ids of forms this service may process to their type
// name. It is read-only after construction.
type Registry struct {
	forms map[int]string
}

func NewRegistry(forms map[int]string) *Registry {
	r := &Registry{forms: make(map[int]string, len(forms))}
	for id, name := range forms {
		r.forms[id] = strings.TrimSpace(name)
	}
	return r
}

func (r *Registry) IsRegistered(id int) bool {
	if r == nil {
		return false
	}
	_, ok := r.forms[id]
	return ok
}

func (r *Registry) FormType(id int) (string, bool) {
	if r == nil {
		return "", false
	}
	name, ok := r.forms[id]
	return name, ok
}

// Label returns the type name for id, or UndefinedFormType when id is nil
// or not registered.
func (r *Registry) Label(id *int) string {
	if id == nil {
		return UndefinedFormType
	}
	if name, ok := r.FormType(*id); ok {
		return name
	}
	return UndefinedFormType
}
