package nodetypes

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// VError describes a single validation error in a node type file.
type VError struct {
	Path    string `json:"path"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e VError) Error() string {
	return fmt.Sprintf("%s: %s", e.Path, e.Message)
}

// Validator checks node type descriptions for required fields and
// duplicate names.
type Validator struct {
	validate *validator.Validate
}

// NewValidator creates a new Validator.
func NewValidator() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})
	return &Validator{validate: v}
}

// Validate checks all files. A node type name may be declared only once
// across the whole set; later declarations are reported as duplicates.
func (v *Validator) Validate(files []File) []VError {
	var errs []VError
	seen := make(map[string]string)

	for _, f := range files {
		for i, nt := range f.NodeTypes {
			prefix := fmt.Sprintf("%s[%d]", f.Path, i)

			if err := v.validate.Struct(nt); err != nil {
				errs = append(errs, fieldErrors(prefix, err)...)
			}

			if nt.Name == "" {
				continue
			}
			if first, dup := seen[nt.Name]; dup {
				errs = append(errs, VError{
					Path:    prefix + ".name",
					Code:    "DUPLICATE",
					Message: fmt.Sprintf("node type %q already declared in %s", nt.Name, first),
				})
				continue
			}
			seen[nt.Name] = prefix
		}
	}

	return errs
}

func fieldErrors(prefix string, err error) []VError {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []VError{{Path: prefix, Code: "INVALID", Message: err.Error()}}
	}

	out := make([]VError, 0, len(verrs))
	for _, fe := range verrs {
		// Namespace is "NodeTypeDescription.properties[0].name"; drop the root type.
		path := fe.Namespace()
		if i := strings.IndexByte(path, '.'); i >= 0 {
			path = path[i+1:]
		}
		out = append(out, VError{
			Path:    prefix + "." + path,
			Code:    strings.ToUpper(fe.Tag()),
			Message: fmt.Sprintf("%s failed %q validation", fe.Field(), fe.Tag()),
		})
	}
	return out
}
