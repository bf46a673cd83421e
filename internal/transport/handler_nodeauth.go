package transport

import (
	"net/http"

	"github.com/pitabwire/flowdeck/internal/nodeauth"
	"github.com/pitabwire/flowdeck/internal/observability"
	"github.com/pitabwire/flowdeck/model"
)

// nodeAuthResponse describes how a node type authenticates.
type nodeAuthResponse struct {
	Fields    []model.NodeProperty             `json:"fields"`
	MainField *model.NodeProperty              `json:"mainField"`
	Options   []model.NodeAuthenticationOption `json:"options"`
}

func handleGetNodeAuth(registry NodeTypeRegistry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		nodeType, ok := lookupNodeType(w, r, registry)
		if !ok {
			return
		}

		resp := nodeAuthResponse{
			Fields:  nodeauth.GetNodeAuthFields(nodeType),
			Options: nodeauth.GetNodeAuthOptions(nodeType),
		}
		if resp.Fields == nil {
			resp.Fields = []model.NodeProperty{}
		}
		if field, ok := nodeauth.GetMainAuthField(nodeType); ok {
			resp.MainField = &field
		}
		WriteJSON(w, http.StatusOK, resp)
	}
}

func handleGetCredentialForAuthType(registry NodeTypeRegistry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		authType := r.URL.Query().Get("authType")
		if authType == "" {
			WriteBadRequest(w, "authType is required")
			return
		}
		nodeType, ok := lookupNodeType(w, r, registry)
		if !ok {
			return
		}

		_, span := observability.StartSpan(r.Context(), "nodeauth.CredentialForAuthType",
			observability.AttrNodeType.String(nodeType.Name),
			observability.AttrAuthType.String(authType),
		)
		defer span.End()

		cred, ok := nodeauth.GetNodeCredentialForAuthType(nodeType, authType)
		if !ok {
			WriteNotFound(w, "no credential for auth type "+authType)
			return
		}
		WriteJSON(w, http.StatusOK, cred)
	}
}

func handleGetAuthTypeForCredential(registry NodeTypeRegistry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		credName := r.URL.Query().Get("credential")
		if credName == "" {
			WriteBadRequest(w, "credential is required")
			return
		}
		nodeType, ok := lookupNodeType(w, r, registry)
		if !ok {
			return
		}

		_, span := observability.StartSpan(r.Context(), "nodeauth.AuthTypeForCredential",
			observability.AttrNodeType.String(nodeType.Name),
			observability.AttrCredential.String(credName),
		)
		defer span.End()

		cred, ok := nodeauth.FindCredential(nodeType, credName)
		if !ok {
			WriteNotFound(w, "credential "+credName+" not found")
			return
		}
		option, ok := nodeauth.GetAuthTypeForNodeCredential(nodeType, &cred)
		if !ok {
			WriteNotFound(w, "no auth type for credential "+credName)
			return
		}
		WriteJSON(w, http.StatusOK, option)
	}
}
