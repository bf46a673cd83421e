package transport

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/pitabwire/flowdeck/internal/catalog"
	"github.com/pitabwire/flowdeck/internal/observability"
	"github.com/pitabwire/flowdeck/model"
)

// NodeTypeRegistry looks up loaded node types.
type NodeTypeRegistry interface {
	All() []model.NodeTypeDescription
	Get(name string) (model.NodeTypeDescription, bool)
}

func handleListNodeTypes(registry NodeTypeRegistry) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		WriteJSON(w, http.StatusOK, registry.All())
	}
}

func handleGetNodeType(registry NodeTypeRegistry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		nodeType, ok := lookupNodeType(w, r, registry)
		if !ok {
			return
		}
		WriteJSON(w, http.StatusOK, nodeType)
	}
}

func handleGetCategories(svc *catalog.Service, defaults []string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		groups := svc.Categories(r.Context(), queryList(r, "personalized", defaults))
		WriteJSON(w, http.StatusOK, groups)
	}
}

func handleGetCatalog(svc *catalog.Service, defaults []string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()

		var expanded bool
		if s := q.Get("expanded"); s != "" {
			v, err := strconv.ParseBool(s)
			if err != nil {
				WriteBadRequest(w, "expanded must be a boolean")
				return
			}
			expanded = v
		}

		selectType := q.Get("type")
		switch selectType {
		case "", catalog.RegularNodeFilter, catalog.TriggerNodeFilter, catalog.AllNodeFilter:
		default:
			WriteBadRequest(w, "type must be one of Regular, Trigger or All")
			return
		}

		ctx, span := observability.StartSpan(r.Context(), "catalog.List",
			observability.AttrSelectType.String(selectType),
		)
		defer span.End()

		elements := svc.List(ctx, catalog.ListRequest{
			Personalized: queryList(r, "personalized", defaults),
			Expanded:     expanded,
			SelectType:   selectType,
			Filter:       q.Get("filter"),
		})
		WriteJSON(w, http.StatusOK, elements)
	}
}

// lookupNodeType resolves the {name} URL parameter, writing a 404 when the
// node type is unknown. Scoped package names arrive with the slash escaped.
func lookupNodeType(w http.ResponseWriter, r *http.Request, registry NodeTypeRegistry) (*model.NodeTypeDescription, bool) {
	name, err := url.PathUnescape(chi.URLParam(r, "name"))
	if err != nil {
		WriteBadRequest(w, "invalid node type name")
		return nil, false
	}
	nodeType, ok := registry.Get(name)
	if !ok {
		WriteNotFound(w, "node type "+strconv.Quote(name)+" not found")
		return nil, false
	}
	return &nodeType, true
}

// queryList splits a comma separated query parameter. An absent parameter
// yields def; a present but empty one yields nil.
func queryList(r *http.Request, key string, def []string) []string {
	q := r.URL.Query()
	if !q.Has(key) {
		return def
	}
	var result []string
	for _, v := range strings.Split(q.Get(key), ",") {
		if v = strings.TrimSpace(v); v != "" {
			result = append(result, v)
		}
	}
	return result
}
