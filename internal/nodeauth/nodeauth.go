// Package nodeauth inspects a node type's credential schema to find the
// parameters that select how the node authenticates.
package nodeauth

import (
	"slices"

	"github.com/pitabwire/flowdeck/model"
)

// resourceField is the conventional name of the parameter some nodes use to
// filter credentials by resource; it never drives authentication.
const resourceField = "resource"

// GetNodeAuthFields returns the properties that some credential's show
// conditions key on, in credential then key declaration order, without
// duplicates.
func GetNodeAuthFields(nodeType *model.NodeTypeDescription) []model.NodeProperty {
	if nodeType == nil {
		return nil
	}

	var fields []model.NodeProperty
	for i := range nodeType.Credentials {
		for _, name := range nodeType.Credentials[i].ShowConditions().Fields() {
			prop, ok := nodeType.Property(name)
			if !ok {
				continue
			}
			seen := slices.ContainsFunc(fields, func(f model.NodeProperty) bool {
				return f.Name == name
			})
			if !seen {
				fields = append(fields, prop)
			}
		}
	}
	return fields
}

// GetMainAuthField returns the field that selects the node's authentication
// method: the first auth field, unless that field is "resource".
//
// TODO: find the main field from credential metadata instead of taking the
// first one; a node whose first auth field is "resource" currently has none.
func GetMainAuthField(nodeType *model.NodeTypeDescription) (model.NodeProperty, bool) {
	fields := GetNodeAuthFields(nodeType)
	if len(fields) > 0 && fields[0].Name != resourceField {
		return fields[0], true
	}
	return model.NodeProperty{}, false
}

// mainAuthFieldName returns the main auth field's name, or "".
func mainAuthFieldName(nodeType *model.NodeTypeDescription) string {
	field, ok := GetMainAuthField(nodeType)
	if !ok {
		return ""
	}
	return field.Name
}

// GetNodeAuthOptions lists the authentication methods the node supports.
// Each option carries the main field's display options so callers can hide
// it under the same conditions.
func GetNodeAuthOptions(nodeType *model.NodeTypeDescription) []model.NodeAuthenticationOption {
	field, ok := GetMainAuthField(nodeType)
	if !ok || len(field.Options) == 0 {
		return []model.NodeAuthenticationOption{}
	}

	options := make([]model.NodeAuthenticationOption, 0, len(field.Options))
	for _, opt := range field.Options {
		options = append(options, model.NodeAuthenticationOption{
			Name:           opt.Name,
			Value:          opt.Value,
			DisplayOptions: field.DisplayOptions,
		})
	}
	return options
}

// GetNodeCredentialForAuthType returns the first credential shown when the
// main auth field holds authType.
func GetNodeCredentialForAuthType(nodeType *model.NodeTypeDescription, authType string) (model.NodeCredentialDescription, bool) {
	if nodeType == nil {
		return model.NodeCredentialDescription{}, false
	}
	fieldName := mainAuthFieldName(nodeType)
	for i := range nodeType.Credentials {
		if nodeType.Credentials[i].ShowConditions().Includes(fieldName, authType) {
			return nodeType.Credentials[i], true
		}
	}
	return model.NodeCredentialDescription{}, false
}

// GetAuthTypeForNodeCredential returns the authentication option under which
// the given credential is shown.
func GetAuthTypeForNodeCredential(nodeType *model.NodeTypeDescription, credential *model.NodeCredentialDescription) (model.NodeAuthenticationOption, bool) {
	if nodeType == nil || credential == nil {
		return model.NodeAuthenticationOption{}, false
	}
	fieldName := mainAuthFieldName(nodeType)
	show := credential.ShowConditions()
	for _, opt := range GetNodeAuthOptions(nodeType) {
		if show.Includes(fieldName, opt.Value) {
			return opt, true
		}
	}
	return model.NodeAuthenticationOption{}, false
}

// IsAuthRelatedParameter reports whether any auth field's own show
// conditions depend on parameter.
func IsAuthRelatedParameter(authFields []model.NodeProperty, parameter model.NodeProperty) bool {
	for i := range authFields {
		if authFields[i].ShowConditions().Has(parameter.Name) {
			return true
		}
	}
	return false
}

// FindCredential returns the node type's credential with the given name.
func FindCredential(nodeType *model.NodeTypeDescription, name string) (model.NodeCredentialDescription, bool) {
	if nodeType == nil {
		return model.NodeCredentialDescription{}, false
	}
	for _, cred := range nodeType.Credentials {
		if cred.Name == name {
			return cred, true
		}
	}
	return model.NodeCredentialDescription{}, false
}
