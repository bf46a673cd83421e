package nodeauth

import (
	"testing"

	"github.com/pitabwire/flowdeck/model"
)

func show(conds ...model.Condition) *model.DisplayOptions {
	return &model.DisplayOptions{Show: conds}
}

func cond(field string, values ...any) model.Condition {
	return model.Condition{Field: field, Values: values}
}

// slackNodeType mirrors a node with two auth methods selected by an
// "authentication" parameter.
func slackNodeType() *model.NodeTypeDescription {
	return &model.NodeTypeDescription{
		Name:        "n8n-nodes-base.slack",
		DisplayName: "Slack",
		Credentials: []model.NodeCredentialDescription{
			{Name: "slackApi", DisplayOptions: show(cond("authentication", "accessToken"))},
			{Name: "slackOAuth2Api", DisplayOptions: show(cond("authentication", "oAuth2"))},
			{Name: "unconditional"},
		},
		Properties: []model.NodeProperty{
			{Name: "resource"},
			{
				Name: "authentication",
				Options: []model.PropertyOption{
					{Name: "Access Token", Value: "accessToken"},
					{Name: "OAuth2", Value: "oAuth2"},
				},
				DisplayOptions: show(cond("version", 1, 2)),
			},
			{Name: "version"},
		},
	}
}

func TestGetNodeAuthFields(t *testing.T) {
	fields := GetNodeAuthFields(slackNodeType())
	if len(fields) != 1 {
		t.Fatalf("len(fields) = %d, want 1 (deduplicated)", len(fields))
	}
	if fields[0].Name != "authentication" {
		t.Errorf("fields[0] = %q, want authentication", fields[0].Name)
	}
}

func TestGetNodeAuthFields_declarationOrder(t *testing.T) {
	nt := &model.NodeTypeDescription{
		Credentials: []model.NodeCredentialDescription{
			{Name: "a", DisplayOptions: show(cond("operation", "x"), cond("authentication", "y"))},
			{Name: "b", DisplayOptions: show(cond("missingField", "z"), cond("resource", "r"))},
		},
		Properties: []model.NodeProperty{{Name: "resource"}, {Name: "authentication"}, {Name: "operation"}},
	}
	fields := GetNodeAuthFields(nt)
	var names []string
	for _, f := range fields {
		names = append(names, f.Name)
	}
	want := []string{"operation", "authentication", "resource"}
	if len(names) != len(want) {
		t.Fatalf("fields = %v, want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("fields[%d] = %q, want %q", i, names[i], want[i])
		}
	}
}

func TestGetNodeAuthFields_absentInputs(t *testing.T) {
	if got := GetNodeAuthFields(nil); len(got) != 0 {
		t.Errorf("GetNodeAuthFields(nil) = %v", got)
	}
	nt := &model.NodeTypeDescription{
		Credentials: []model.NodeCredentialDescription{{Name: "a"}, {Name: "b", DisplayOptions: &model.DisplayOptions{}}},
		Properties:  []model.NodeProperty{{Name: "authentication"}},
	}
	if got := GetNodeAuthFields(nt); len(got) != 0 {
		t.Errorf("GetNodeAuthFields(no display options) = %v", got)
	}
}

func TestGetMainAuthField(t *testing.T) {
	field, ok := GetMainAuthField(slackNodeType())
	if !ok || field.Name != "authentication" {
		t.Errorf("GetMainAuthField = %q, %v", field.Name, ok)
	}
	if _, ok := GetMainAuthField(nil); ok {
		t.Error("GetMainAuthField(nil) found a field")
	}
}

func TestGetMainAuthField_resourceHasNoFallback(t *testing.T) {
	nt := &model.NodeTypeDescription{
		Credentials: []model.NodeCredentialDescription{
			{Name: "a", DisplayOptions: show(cond("resource", "file"))},
			{Name: "b", DisplayOptions: show(cond("authentication", "oAuth2"))},
		},
		Properties: []model.NodeProperty{{Name: "resource"}, {Name: "authentication"}},
	}
	if field, ok := GetMainAuthField(nt); ok {
		t.Errorf("GetMainAuthField = %q, want none when first auth field is resource", field.Name)
	}
}

func TestGetNodeAuthOptions(t *testing.T) {
	opts := GetNodeAuthOptions(slackNodeType())
	if len(opts) != 2 {
		t.Fatalf("len(opts) = %d, want 2", len(opts))
	}
	if opts[0].Name != "Access Token" || opts[0].Value != "accessToken" {
		t.Errorf("opts[0] = %+v", opts[0])
	}
	if opts[1].DisplayOptions == nil || !opts[1].DisplayOptions.Show.Has("version") {
		t.Error("option does not carry the field's display options")
	}

	if got := GetNodeAuthOptions(nil); got == nil || len(got) != 0 {
		t.Errorf("GetNodeAuthOptions(nil) = %v, want empty list", got)
	}

	noOptions := slackNodeType()
	noOptions.Properties[1].Options = nil
	if got := GetNodeAuthOptions(noOptions); len(got) != 0 {
		t.Errorf("GetNodeAuthOptions(no options) = %v", got)
	}
}

func TestGetNodeCredentialForAuthType(t *testing.T) {
	nt := slackNodeType()

	cred, ok := GetNodeCredentialForAuthType(nt, "oAuth2")
	if !ok || cred.Name != "slackOAuth2Api" {
		t.Errorf("GetNodeCredentialForAuthType(oAuth2) = %q, %v", cred.Name, ok)
	}
	if _, ok := GetNodeCredentialForAuthType(nt, "basic"); ok {
		t.Error("GetNodeCredentialForAuthType(basic) found a credential")
	}
	if _, ok := GetNodeCredentialForAuthType(nil, "oAuth2"); ok {
		t.Error("GetNodeCredentialForAuthType(nil) found a credential")
	}
}

func TestGetAuthTypeForNodeCredential(t *testing.T) {
	nt := slackNodeType()

	opt, ok := GetAuthTypeForNodeCredential(nt, &nt.Credentials[0])
	if !ok || opt.Value != "accessToken" {
		t.Errorf("GetAuthTypeForNodeCredential(slackApi) = %+v, %v", opt, ok)
	}
	if _, ok := GetAuthTypeForNodeCredential(nt, &nt.Credentials[2]); ok {
		t.Error("unconditional credential mapped to an auth type")
	}
	if _, ok := GetAuthTypeForNodeCredential(nt, nil); ok {
		t.Error("nil credential mapped to an auth type")
	}
}

func TestIsAuthRelatedParameter(t *testing.T) {
	nt := slackNodeType()
	fields := GetNodeAuthFields(nt)

	if !IsAuthRelatedParameter(fields, model.NodeProperty{Name: "version"}) {
		t.Error("version should be auth related: the auth field's show conditions key on it")
	}
	if IsAuthRelatedParameter(fields, model.NodeProperty{Name: "resource"}) {
		t.Error("resource should not be auth related")
	}
	if IsAuthRelatedParameter(nil, model.NodeProperty{Name: "version"}) {
		t.Error("no auth fields should never relate")
	}
}

func TestFindCredential(t *testing.T) {
	nt := slackNodeType()
	if cred, ok := FindCredential(nt, "slackApi"); !ok || cred.Name != "slackApi" {
		t.Errorf("FindCredential(slackApi) = %+v, %v", cred, ok)
	}
	if _, ok := FindCredential(nt, "githubApi"); ok {
		t.Error("FindCredential(githubApi) found a credential")
	}
}
