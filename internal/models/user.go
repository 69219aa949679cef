package models

import (
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"
)

// User is the only persisted entity. Password always holds a credential hash.
type User struct {
	ID       int64  `json:"id"`
	Email    string `json:"email"`
	Password string `json:"-"`
	Name     string `json:"name"`
}

func (u User) String() string {
	return fmt.Sprintf("<User(id=%d email='%s' name='%s')>", u.ID, u.Email, u.Name)
}

// Field describes one column of a table.
type Field struct {
	Name     string
	Type     string
	MaxLen   int
	Required bool
	Unique   bool
	Primary  bool
}

// Schema is the explicit column definition of a table.
type Schema struct {
	Table  string
	Fields []Field
}

// Field returns the named field, or false.
func (s Schema) Field(name string) (Field, bool) {
	for _, f := range s.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// UserSchema mirrors migrations/000001_create_user_table.up.sql.
var UserSchema = Schema{
	Table: "user",
	Fields: []Field{
		{Name: "id", Type: "integer", Primary: true, Required: true},
		{Name: "email", Type: "varchar", MaxLen: 100, Required: true, Unique: true},
		{Name: "password", Type: "varchar", MaxLen: 100, Required: true},
		{Name: "name", Type: "varchar", MaxLen: 100, Required: true},
	},
}

// ValidationError carries per-field messages for rejected input.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "validation failed: " + strings.Join(parts, ", ")
}

// ValidateFields checks values against the schema's required and length
// constraints. Fields not present in values are skipped.
func (s Schema) ValidateFields(values map[string]string) error {
	fields := make(map[string]string)
	for _, f := range s.Fields {
		v, ok := values[f.Name]
		if !ok {
			continue
		}
		if f.Required && strings.TrimSpace(v) == "" {
			fields[f.Name] = "required"
			continue
		}
		if f.MaxLen > 0 && utf8.RuneCountInString(v) > f.MaxLen {
			fields[f.Name] = fmt.Sprintf("must be at most %d characters", f.MaxLen)
		}
	}
	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}

// ValidateUser checks registration input. The password is checked for presence
// only; its stored length is that of the hash.
func ValidateUser(email, password, name string) error {
	err := UserSchema.ValidateFields(map[string]string{"email": email, "name": name})

	var fields map[string]string
	if ve, ok := err.(*ValidationError); ok {
		fields = ve.Fields
	} else {
		fields = make(map[string]string)
	}
	if _, bad := fields["email"]; !bad && !strings.Contains(email, "@") {
		fields["email"] = "must be a valid email address"
	}
	if password == "" {
		fields["password"] = "required"
	}
	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}
