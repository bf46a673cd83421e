// Package openapi loads the service's API description and indexes its
// operations by operationId with response schema validation.
package openapi

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"
)

//go:embed api.yaml
var apiYAML []byte

// IndexedOperation holds a resolved OpenAPI operation.
type IndexedOperation struct {
	OperationID  string
	Method       string
	PathTemplate string
	Parameters   []*openapi3.Parameter
	Responses    *openapi3.Responses
}

// ValidationError describes a schema validation error.
type ValidationError struct {
	Field   string
	Message string
}

// Index is an in-memory index of the API description's operations keyed by
// operationId.
type Index struct {
	doc        *openapi3.T
	document   []byte
	operations map[string]IndexedOperation
}

// NewIndex creates an empty index. Call Load or LoadEmbedded before use.
func NewIndex() *Index {
	return &Index{operations: make(map[string]IndexedOperation)}
}

// LoadEmbedded loads the API description compiled into the binary.
func (idx *Index) LoadEmbedded(ctx context.Context) error {
	return idx.Load(ctx, apiYAML)
}

// Load parses and validates an OpenAPI document and indexes all operations
// that carry an operationId.
func (idx *Index) Load(ctx context.Context, data []byte) error {
	loader := openapi3.NewLoader()
	loader.IsExternalRefsAllowed = false

	doc, err := loader.LoadFromData(data)
	if err != nil {
		return fmt.Errorf("openapi: loading: %w", err)
	}
	if err := doc.Validate(ctx); err != nil {
		return fmt.Errorf("openapi: validating: %w", err)
	}

	document, err := doc.MarshalJSON()
	if err != nil {
		return fmt.Errorf("openapi: encoding: %w", err)
	}

	operations := make(map[string]IndexedOperation)
	for path, pathItem := range doc.Paths.Map() {
		for method, op := range pathItem.Operations() {
			if op.OperationID == "" {
				continue
			}

			// Merge path-level and operation-level parameters.
			params := make([]*openapi3.Parameter, 0)
			for _, ref := range pathItem.Parameters {
				if ref.Value != nil {
					params = append(params, ref.Value)
				}
			}
			for _, ref := range op.Parameters {
				if ref.Value != nil {
					params = append(params, ref.Value)
				}
			}

			operations[op.OperationID] = IndexedOperation{
				OperationID:  op.OperationID,
				Method:       method,
				PathTemplate: path,
				Parameters:   params,
				Responses:    op.Responses,
			}
		}
	}

	idx.doc = doc
	idx.document = document
	idx.operations = operations
	return nil
}

// Loaded reports whether a document has been loaded.
func (idx *Index) Loaded() bool {
	return idx != nil && idx.doc != nil
}

// Document returns the loaded description encoded as JSON.
func (idx *Index) Document() []byte {
	return idx.document
}

// GetOperation returns the indexed operation for the given operation ID.
func (idx *Index) GetOperation(operationID string) (IndexedOperation, bool) {
	op, ok := idx.operations[operationID]
	return op, ok
}

// AllOperationIDs returns all operation IDs, sorted.
func (idx *Index) AllOperationIDs() []string {
	ids := make([]string, 0, len(idx.operations))
	for id := range idx.operations {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// ValidateResponse checks a JSON response body against the schema declared
// for the operation and status, falling back to the default response.
// Returns an empty slice if valid.
func (idx *Index) ValidateResponse(operationID string, status int, body []byte) []ValidationError {
	op, ok := idx.operations[operationID]
	if !ok {
		return []ValidationError{{Message: fmt.Sprintf("operation %s not found", operationID)}}
	}

	ref := op.Responses.Status(status)
	if ref == nil {
		ref = op.Responses.Default()
	}
	if ref == nil || ref.Value == nil {
		return []ValidationError{{Message: fmt.Sprintf("operation %s does not declare status %d", operationID, status)}}
	}

	ct := ref.Value.Content.Get("application/json")
	if ct == nil || ct.Schema == nil || ct.Schema.Value == nil {
		return nil
	}

	var value any
	if err := json.Unmarshal(body, &value); err != nil {
		return []ValidationError{{Message: fmt.Sprintf("invalid JSON: %v", err)}}
	}

	err := ct.Schema.Value.VisitJSON(value, openapi3.MultiErrors())
	if err == nil {
		return nil
	}

	var multi openapi3.MultiError
	if !errors.As(err, &multi) {
		return []ValidationError{schemaError(err)}
	}
	errs := make([]ValidationError, 0, len(multi))
	for _, e := range multi {
		errs = append(errs, schemaError(e))
	}
	return errs
}

func schemaError(err error) ValidationError {
	var se *openapi3.SchemaError
	if errors.As(err, &se) {
		return ValidationError{
			Field:   strings.Join(se.JSONPointer(), "."),
			Message: se.Reason,
		}
	}
	return ValidationError{Message: err.Error()}
}
