package service

import (
	"context"
	"encoding/json"
	"testing"

	"backoffice/internal/model"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type formFixture struct {
	svc   FormService
	repo  *fakeFormRepo
	audit *fakeAudit
	tx    *fakeTx
}

func newFormFixture() *formFixture {
	f := &formFixture{repo: newFakeFormRepo(), audit: &fakeAudit{}, tx: &fakeTx{}}
	f.svc = NewFormService(f.repo, f.audit, f.tx, zap.NewNop())
	return f
}

func element(inputID uuid.UUID, label, typ string, options string) FormElementRequest {
	el := FormElementRequest{InputID: inputID.String(), Label: label, Type: typ}
	if options != "" {
		el.Options = json.RawMessage(options)
	}
	return el
}

func TestFormCreate_RoundTrip(t *testing.T) {
	f := newFormFixture()
	text := f.repo.addInput("text", "text")
	sel := f.repo.addInput("select", model.InputTypeSelect)
	date := f.repo.addInput("date", "date")

	placeholder := "Factory name"
	first := element(text, "Name", "text", "")
	first.Placeholder = &placeholder
	first.Required = true
	second := element(sel, "Sector", model.InputTypeSelect, `["Garments","Textile"]`)
	second.HasAction = true
	third := element(date, "Visited on", "date", "")

	resp, err := f.svc.Create(context.Background(), superAdmin(), FormRequest{
		Type:     model.FormTypeAssessment,
		Name:     "Factory Assessment",
		Elements: []FormElementRequest{first, second, third},
	})
	require.NoError(t, err)

	assert.Equal(t, "factory-assessment", resp.Slug)
	assert.True(t, resp.IsActive)
	require.Len(t, resp.Elements, 3)

	for i, want := range []FormElementRequest{first, second, third} {
		got := resp.Elements[i]
		assert.Equal(t, i, got.Sort)
		assert.Equal(t, want.InputID, got.InputID)
		assert.Equal(t, want.Label, got.Label)
		assert.Equal(t, want.Placeholder, got.Placeholder)
		assert.Equal(t, want.Required, got.Required)
		assert.Equal(t, want.HasAction, got.HasAction)
	}
	assert.JSONEq(t, `["Garments","Textile"]`, string(resp.Elements[1].Options))
	assert.Equal(t, "null", string(resp.Elements[0].Options))
	assert.Equal(t, []string{model.ActionCreateForm}, f.audit.actions())
}

func TestFormCreate_SlugSuffix(t *testing.T) {
	f := newFormFixture()
	ctx := context.Background()

	var slugs []string
	for i := 0; i < 3; i++ {
		resp, err := f.svc.Create(ctx, superAdmin(), FormRequest{Type: model.FormTypeMonitoring, Name: "Site Visit"})
		require.NoError(t, err)
		slugs = append(slugs, resp.Slug)
	}
	assert.Equal(t, []string{"site-visit", "site-visit-1", "site-visit-2"}, slugs)
}

func TestFormUpdate_MergesElementsByInputType(t *testing.T) {
	f := newFormFixture()
	ctx := context.Background()
	in1 := f.repo.addInput("one", "text")
	in2 := f.repo.addInput("two", "text")
	in3 := f.repo.addInput("three", "text")
	in4 := f.repo.addInput("four", "text")

	created, err := f.svc.Create(ctx, superAdmin(), FormRequest{
		Type: model.FormTypeAssessment,
		Name: "Survey",
		Elements: []FormElementRequest{
			element(in1, "One", "text", ""),
			element(in2, "Two", "text", ""),
			element(in3, "Three", "text", ""),
		},
	})
	require.NoError(t, err)

	rowIDs := map[string]string{}
	for _, el := range created.Elements {
		rowIDs[el.InputID] = el.ID
	}

	form, err := f.svc.Find(ctx, uuid.MustParse(created.ID))
	require.NoError(t, err)

	updated, err := f.svc.Update(ctx, superAdmin(), form, FormRequest{
		Type: model.FormTypeAssessment,
		Name: "Survey",
		Elements: []FormElementRequest{
			element(in3, "Three (edited)", "text", ""),
			element(in2, "Two", "text", ""),
			element(in4, "Four", "text", ""),
		},
	})
	require.NoError(t, err)
	require.Len(t, updated.Elements, 3)

	assert.Equal(t, in3.String(), updated.Elements[0].InputID)
	assert.Equal(t, rowIDs[in3.String()], updated.Elements[0].ID)
	assert.Equal(t, "Three (edited)", updated.Elements[0].Label)

	assert.Equal(t, in2.String(), updated.Elements[1].InputID)
	assert.Equal(t, rowIDs[in2.String()], updated.Elements[1].ID)

	assert.Equal(t, in4.String(), updated.Elements[2].InputID)
	assert.NotContains(t, rowIDs, updated.Elements[2].ID)

	for _, el := range f.repo.elements {
		assert.NotEqual(t, in1, el.FormInputID)
	}
	assert.Equal(t, "survey", updated.Slug)
}

func TestFormUpdate_RenameRegeneratesSlug(t *testing.T) {
	f := newFormFixture()
	ctx := context.Background()

	created, err := f.svc.Create(ctx, superAdmin(), FormRequest{Type: model.FormTypeAssessment, Name: "Survey"})
	require.NoError(t, err)
	form, err := f.svc.Find(ctx, uuid.MustParse(created.ID))
	require.NoError(t, err)

	updated, err := f.svc.Update(ctx, superAdmin(), form, FormRequest{Type: model.FormTypeAssessment, Name: "Annual Survey", IsActive: ptr(false)})
	require.NoError(t, err)
	assert.Equal(t, "annual-survey", updated.Slug)
	assert.False(t, updated.IsActive)
}

func TestFormValidation(t *testing.T) {
	f := newFormFixture()
	radio := f.repo.addInput("radio", model.InputTypeRadio)
	text := f.repo.addInput("text", "text")

	tests := []struct {
		name  string
		req   FormRequest
		field string
		msg   string
	}{
		{
			name:  "options required for choice types",
			req:   FormRequest{Type: model.FormTypeAssessment, Name: "F", Elements: []FormElementRequest{element(text, "A", "text", ""), element(radio, "B", model.InputTypeRadio, "[]")}},
			field: "elements.1.options",
			msg:   "The options field is required when type is radio.",
		},
		{
			name:  "empty string options",
			req:   FormRequest{Type: model.FormTypeAssessment, Name: "F", Elements: []FormElementRequest{element(radio, "B", model.InputTypeCheckbox, `""`)}},
			field: "elements.0.options",
			msg:   "The options field is required when type is checkbox.",
		},
		{
			name:  "unknown type",
			req:   FormRequest{Type: "Survey", Name: "F"},
			field: "type",
			msg:   "The selected type is invalid.",
		},
		{
			name:  "label required",
			req:   FormRequest{Type: model.FormTypeAssessment, Name: "F", Elements: []FormElementRequest{element(text, "", "text", "")}},
			field: "elements.0.label",
			msg:   "The label field is required.",
		},
		{
			name:  "unknown input type",
			req:   FormRequest{Type: model.FormTypeAssessment, Name: "F", Elements: []FormElementRequest{element(uuid.New(), "A", "text", "")}},
			field: "elements.0.input_id",
			msg:   "The selected input id is invalid.",
		},
		{
			name:  "duplicate input type",
			req:   FormRequest{Type: model.FormTypeAssessment, Name: "F", Elements: []FormElementRequest{element(text, "A", "text", ""), element(text, "B", "text", "")}},
			field: "elements.1.input_id",
			msg:   "The input type is already used by element 1.",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.Create(context.Background(), superAdmin(), tt.req)
			verr, ok := IsValidation(err)
			require.True(t, ok, "expected validation error, got %v", err)
			assert.Contains(t, verr.Fields[tt.field], tt.msg)
		})
	}
	assert.Empty(t, f.repo.forms)
}

func TestFormCreate_OptionsRuleRunsAfterFieldRules(t *testing.T) {
	f := newFormFixture()
	radio := f.repo.addInput("radio", model.InputTypeRadio)

	_, err := f.svc.Create(context.Background(), superAdmin(), FormRequest{
		Name:     "F",
		Elements: []FormElementRequest{element(radio, "B", model.InputTypeRadio, "")},
	})
	verr, ok := IsValidation(err)
	require.True(t, ok)
	assert.True(t, verr.Has("type"))
	assert.False(t, verr.Has("elements.0.options"))
}

func TestFormCreate_RollsBackOnElementFailure(t *testing.T) {
	f := newFormFixture()
	text := f.repo.addInput("text", "text")
	f.repo.failOn = "create_elements"

	_, err := f.svc.Create(context.Background(), superAdmin(), FormRequest{
		Type:     model.FormTypeAssessment,
		Name:     "F",
		Elements: []FormElementRequest{element(text, "A", "text", "")},
	})
	require.Error(t, err)
	assert.Equal(t, 1, f.tx.rollbacks)
	assert.Empty(t, f.audit.entries)
}

func TestFormSeedInputs_Idempotent(t *testing.T) {
	f := newFormFixture()
	ctx := context.Background()

	require.NoError(t, f.svc.SeedInputs(ctx))
	require.NoError(t, f.svc.SeedInputs(ctx))

	inputs, err := f.svc.Inputs(ctx)
	require.NoError(t, err)
	assert.Len(t, inputs, len(DefaultFormInputs))
}

func TestOptionsEmpty(t *testing.T) {
	tests := []struct {
		raw  string
		want bool
	}{
		{"", true},
		{"null", true},
		{`""`, true},
		{"[]", true},
		{" {} ", true},
		{`["a"]`, false},
		{`"a,b"`, false},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			assert.Equal(t, tt.want, optionsEmpty(json.RawMessage(tt.raw)))
		})
	}
}
