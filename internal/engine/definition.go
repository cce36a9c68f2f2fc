// Package engine is the built-in form engine: it builds forms from
// configured definitions, validates their fields and delivers valid
// submissions by mail.
package engine

import (
	"strings"

	"github.com/iliamunaev/formgate/internal/form"
)

// Field is one submitted field and its validation rules, written as
// validator tags ("required,email").
type Field struct {
	Name  string
	Rules string
}

// Definition describes a form the engine can build.
type Definition struct {
	ID          int
	Type        string
	Name        string
	Subject     string
	Receivers   []string
	SuccessText map[string]string
	Fields      []Field
}

func (d Definition) entity() *form.Entity {
	tr := make(map[string]form.Translation, len(d.SuccessText))
	for locale, text := range d.SuccessText {
		tr[locale] = form.Translation{Title: d.Name, SuccessText: strings.TrimSpace(text)}
	}
	return &form.Entity{ID: d.ID, Type: d.Type, Translations: tr}
}

func index(defs []Definition) map[int]Definition {
	out := make(map[int]Definition, len(defs))
	for _, d := range defs {
		out[d.ID] = d
	}
	return out
}
