// Copyright 2014 Volker Dobler.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package testfile parses a test file (spec.md §6: YAML, with
// top-level keys matching stage.Definition) into a stage.Definition.
// Grounded on original_source/src/test_file.rs's Unvalidated* staging
// structs (decode loosely typed input, then validate/convert into the
// strict domain type) and suite/raw.go's RawTest, which follows the
// same two-step populate-then-convert shape for the teacher's own test
// files. Parsing goes through gopkg.in/yaml.v3 into a generic document
// and then mitchellh/mapstructure's weakly-typed decoder into the raw*
// structs below, mirroring the teacher's preference for letting a
// library absorb the "YAML's types are loose" problem rather than
// hand-rolling a decoder.
package testfile

import (
	"encoding/json"
	"fmt"

	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"

	"github.com/vdobler/apitest/stage"
	"github.com/vdobler/apitest/value"
)

type rawHeader struct {
	Header string `mapstructure:"header"`
	Value  string `mapstructure:"value"`
}

type rawParam struct {
	Param string `mapstructure:"param"`
	Value string `mapstructure:"value"`
}

type rawSchema struct {
	Kind      string                `mapstructure:"kind"`
	Min       *float64              `mapstructure:"min"`
	Max       *float64              `mapstructure:"max"`
	OneOf     []interface{}         `mapstructure:"oneOf"`
	MinLength *int                  `mapstructure:"minLength"`
	MaxLength *int                  `mapstructure:"maxLength"`
	Pattern   string                `mapstructure:"pattern"`
	Format    string                `mapstructure:"format"`
	Modifier  string                `mapstructure:"modifier"`
	MinDate   *string               `mapstructure:"minDate"`
	MaxDate   *string               `mapstructure:"maxDate"`
	Element   *rawSchema            `mapstructure:"element"`
	MinItems  *int                  `mapstructure:"minItems"`
	MaxItems  *int                  `mapstructure:"maxItems"`
	ExactItems *int                 `mapstructure:"exactItems"`
	Fields    map[string]*rawSchema `mapstructure:"fields"`
}

var schemaKinds = map[string]value.SchemaKind{
	"name":     value.SchemaName,
	"string":   value.SchemaString,
	"email":    value.SchemaEmail,
	"date":     value.SchemaDate,
	"datetime": value.SchemaDateTime,
	"integer":  value.SchemaInteger,
	"float":    value.SchemaFloat,
	"boolean":  value.SchemaBoolean,
	"list":     value.SchemaList,
	"object":   value.SchemaObject,
}

func (r *rawSchema) convert() (*value.DatumSchema, error) {
	if r == nil {
		return nil, nil
	}
	kind, ok := schemaKinds[r.Kind]
	if !ok {
		return nil, fmt.Errorf("unknown schema kind %q", r.Kind)
	}
	ds := &value.DatumSchema{
		Kind:       kind,
		Min:        r.Min,
		Max:        r.Max,
		OneOf:      r.OneOf,
		MinLength:  r.MinLength,
		MaxLength:  r.MaxLength,
		Pattern:    r.Pattern,
		Format:     r.Format,
		Modifier:   r.Modifier,
		MinDate:    r.MinDate,
		MaxDate:    r.MaxDate,
		MinItems:   r.MinItems,
		MaxItems:   r.MaxItems,
		ExactItems: r.ExactItems,
	}
	elem, err := r.Element.convert()
	if err != nil {
		return nil, fmt.Errorf("element: %w", err)
	}
	ds.Element = elem
	if len(r.Fields) > 0 {
		ds.Fields = make(map[string]*value.DatumSchema, len(r.Fields))
		for name, fs := range r.Fields {
			conv, err := fs.convert()
			if err != nil {
				return nil, fmt.Errorf("field %q: %w", name, err)
			}
			ds.Fields[name] = conv
		}
	}
	return ds, nil
}

type rawVariable struct {
	Name     string        `mapstructure:"name"`
	Source   string        `mapstructure:"source"`
	Literal  interface{}   `mapstructure:"literal"`
	ValueSet []interface{} `mapstructure:"valueSet"`
	File     string        `mapstructure:"file"`
	Secret   string        `mapstructure:"secret"`
	Schema   *rawSchema    `mapstructure:"schema"`
}

var variableSources = map[string]value.Source{
	"literal":  value.SourceLiteral,
	"valueSet": value.SourceValueSet,
	"file":     value.SourceFile,
	"secret":   value.SourceSecret,
	"schema":   value.SourceSchema,
}

func (r rawVariable) convert() (value.Variable, error) {
	src, ok := variableSources[r.Source]
	if !ok {
		if r.Source == "" {
			src = value.SourceLiteral
		} else {
			return value.Variable{}, fmt.Errorf("variable %q: unknown source %q", r.Name, r.Source)
		}
	}
	v := value.Variable{Name: r.Name, Source: src, File: r.File, Secret: r.Secret}
	if r.Literal != nil {
		raw, err := json.Marshal(r.Literal)
		if err != nil {
			return value.Variable{}, fmt.Errorf("variable %q: literal: %w", r.Name, err)
		}
		v.Literal = raw
	}
	for _, e := range r.ValueSet {
		raw, err := json.Marshal(e)
		if err != nil {
			return value.Variable{}, fmt.Errorf("variable %q: valueSet: %w", r.Name, err)
		}
		v.ValueSet = append(v.ValueSet, raw)
	}
	schema, err := r.Schema.convert()
	if err != nil {
		return value.Variable{}, fmt.Errorf("variable %q: %w", r.Name, err)
	}
	v.Schema = schema
	if err := v.Validate(); err != nil {
		return value.Variable{}, err
	}
	return v, nil
}

type rawRequest struct {
	Method  string      `mapstructure:"method"`
	URL     string      `mapstructure:"url"`
	Params  []rawParam  `mapstructure:"params"`
	Headers []rawHeader `mapstructure:"headers"`
	Body    interface{} `mapstructure:"body"`
	Schema  *rawSchema  `mapstructure:"schema"`
}

func (r *rawRequest) convert() (stage.RequestDescriptor, error) {
	if r == nil {
		return stage.RequestDescriptor{}, nil
	}
	desc := stage.RequestDescriptor{Method: r.Method, URL: r.URL}
	for _, p := range r.Params {
		desc.Params = append(desc.Params, stage.Param{Key: p.Param, Value: p.Value})
	}
	for _, h := range r.Headers {
		desc.Headers = append(desc.Headers, stage.Header{Key: h.Header, Value: h.Value})
	}
	body, err := bodyOrSchema(r.Body, r.Schema)
	if err != nil {
		return stage.RequestDescriptor{}, err
	}
	desc.Body = body
	desc.ScanVariables()
	return desc, nil
}

func bodyOrSchema(body interface{}, schema *rawSchema) (*value.BodyOrSchema, error) {
	ds, err := schema.convert()
	if err != nil {
		return nil, err
	}
	if ds != nil {
		return &value.BodyOrSchema{Schema: ds}, nil
	}
	if body == nil {
		return nil, nil
	}
	raw, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("body: %w", err)
	}
	return &value.BodyOrSchema{Body: raw}, nil
}

type rawStatus struct {
	Literal int        `mapstructure:"literal"`
	Schema  *rawSchema `mapstructure:"schema"`
}

type rawExtraction struct {
	Name  string `mapstructure:"name"`
	Field string `mapstructure:"field"`
}

type rawResponse struct {
	Status  interface{}     `mapstructure:"status"`
	Headers []rawHeader     `mapstructure:"headers"`
	Body    interface{}     `mapstructure:"body"`
	Schema  *rawSchema      `mapstructure:"schema"`
	Strict  bool            `mapstructure:"strict"`
	Ignore  []string        `mapstructure:"ignore"`
	Extract []rawExtraction `mapstructure:"extract"`
	Query   string          `mapstructure:"query"`
}

func (r *rawResponse) convert() (stage.ExpectedResponse, error) {
	if r == nil {
		return stage.ExpectedResponse{}, nil
	}
	resp := stage.ExpectedResponse{Strict: r.Strict, Ignore: r.Ignore, Query: r.Query}
	for _, h := range r.Headers {
		resp.Headers = append(resp.Headers, stage.Header{Key: h.Header, Value: h.Value})
	}
	for _, e := range r.Extract {
		resp.Extract = append(resp.Extract, stage.Extraction{Name: e.Name, Field: e.Field})
	}

	status, err := statusOf(r.Status)
	if err != nil {
		return stage.ExpectedResponse{}, err
	}
	resp.Status = status

	bos, err := bodyOrSchema(r.Body, r.Schema)
	if err != nil {
		return stage.ExpectedResponse{}, err
	}
	if bos != nil {
		resp.Body = *bos
	}
	return resp, nil
}

// statusOf accepts either a literal numeric status or a one-key
// {schema: ...} mapping, since a test file may assert a status code is
// one of a set rather than a fixed value.
func statusOf(v interface{}) (stage.ExpectedStatus, error) {
	switch t := v.(type) {
	case nil:
		return stage.ExpectedStatus{}, nil
	case int:
		return stage.ExpectedStatus{Literal: t}, nil
	case float64:
		return stage.ExpectedStatus{Literal: int(t)}, nil
	case map[string]interface{}:
		var rs rawStatus
		if err := decode(t, &rs); err != nil {
			return stage.ExpectedStatus{}, fmt.Errorf("status: %w", err)
		}
		schema, err := rs.Schema.convert()
		if err != nil {
			return stage.ExpectedStatus{}, fmt.Errorf("status: %w", err)
		}
		return stage.ExpectedStatus{Literal: rs.Literal, Schema: schema}, nil
	default:
		return stage.ExpectedStatus{}, fmt.Errorf("status: unsupported value %#v", v)
	}
}

type rawStage struct {
	Name    string       `mapstructure:"name"`
	Request *rawRequest  `mapstructure:"request"`
	Compare *rawRequest  `mapstructure:"compare"`
	Response *rawResponse `mapstructure:"response"`
	Variables []rawVariable `mapstructure:"variables"`
	DelayMS int           `mapstructure:"delay"`
}

func (r rawStage) convert() (stage.StageDescriptor, error) {
	req, err := r.Request.convert()
	if err != nil {
		return stage.StageDescriptor{}, fmt.Errorf("request: %w", err)
	}
	var compare *stage.RequestDescriptor
	if r.Compare != nil {
		c, err := r.Compare.convert()
		if err != nil {
			return stage.StageDescriptor{}, fmt.Errorf("compare: %w", err)
		}
		compare = &c
	}
	resp, err := r.Response.convert()
	if err != nil {
		return stage.StageDescriptor{}, fmt.Errorf("response: %w", err)
	}
	vars, err := convertVariables(r.Variables)
	if err != nil {
		return stage.StageDescriptor{}, err
	}
	return stage.StageDescriptor{
		Name:      r.Name,
		Request:   req,
		Compare:   compare,
		Response:  resp,
		Variables: vars,
		DelayMS:   r.DelayMS,
	}, nil
}

type rawCleanup struct {
	OnSuccess []rawStage `mapstructure:"onSuccess"`
	OnFailure []rawStage `mapstructure:"onFailure"`
	Always    []rawStage `mapstructure:"always"`
}

type rawDefinition struct {
	ID              string        `mapstructure:"id"`
	Name            string        `mapstructure:"name"`
	Description     string        `mapstructure:"description"`
	Requires        string        `mapstructure:"requires"`
	Tags            []string      `mapstructure:"tags"`
	Iterate         int           `mapstructure:"iterate"`
	Disabled        bool          `mapstructure:"disabled"`
	Project         string        `mapstructure:"project"`
	Environment     string        `mapstructure:"env"`
	Variables       []rawVariable `mapstructure:"variables"`
	GlobalVariables []rawVariable `mapstructure:"globalVariables"`
	Setup           []rawStage    `mapstructure:"setup"`
	Stages          []rawStage    `mapstructure:"stages"`
	Cleanup         rawCleanup    `mapstructure:"cleanup"`

	// Simple form: a bare request/response pair, folded into a single
	// stage (spec.md §6: "a simple file may declare top-level
	// request/response").
	Request  *rawRequest  `mapstructure:"request"`
	Response *rawResponse `mapstructure:"response"`
	Compare  *rawRequest  `mapstructure:"compare"`
}

func convertVariables(raws []rawVariable) ([]value.Variable, error) {
	out := make([]value.Variable, 0, len(raws))
	for _, r := range raws {
		v, err := r.convert()
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func convertStages(raws []rawStage) ([]stage.StageDescriptor, error) {
	out := make([]stage.StageDescriptor, 0, len(raws))
	for i, r := range raws {
		s, err := r.convert()
		if err != nil {
			return nil, fmt.Errorf("stage %d: %w", i, err)
		}
		out = append(out, s)
	}
	return out, nil
}

// Parse decodes one test file's YAML bytes into a stage.Definition.
// filename is recorded on the result and used, if id is absent, to
// derive a stable identifier.
func Parse(data []byte, filename string) (stage.Definition, error) {
	var generic interface{}
	if err := yaml.Unmarshal(data, &generic); err != nil {
		return stage.Definition{}, fmt.Errorf("parsing yaml: %w", err)
	}
	generic = normalizeKeys(generic)

	var raw rawDefinition
	if err := decode(generic, &raw); err != nil {
		return stage.Definition{}, fmt.Errorf("decoding test definition: %w", err)
	}

	def := stage.Definition{
		ID:          raw.ID,
		Name:        raw.Name,
		Description: raw.Description,
		Requires:    raw.Requires,
		Tags:        raw.Tags,
		Iterate:     raw.Iterate,
		Disabled:    raw.Disabled,
		Project:     raw.Project,
		Environment: raw.Environment,
		Filename:    filename,
	}
	if def.ID == "" {
		def.ID = filename
	}

	vars, err := convertVariables(raw.Variables)
	if err != nil {
		return stage.Definition{}, err
	}
	def.Variables = vars

	globals, err := convertVariables(raw.GlobalVariables)
	if err != nil {
		return stage.Definition{}, err
	}
	def.GlobalVariables = globals

	setup, err := convertStages(raw.Setup)
	if err != nil {
		return stage.Definition{}, fmt.Errorf("setup: %w", err)
	}
	def.Setup = setup

	stages, err := convertStages(raw.Stages)
	if err != nil {
		return stage.Definition{}, fmt.Errorf("stages: %w", err)
	}
	def.Stages = stages

	onSuccess, err := convertStages(raw.Cleanup.OnSuccess)
	if err != nil {
		return stage.Definition{}, fmt.Errorf("cleanup.onSuccess: %w", err)
	}
	onFailure, err := convertStages(raw.Cleanup.OnFailure)
	if err != nil {
		return stage.Definition{}, fmt.Errorf("cleanup.onFailure: %w", err)
	}
	always, err := convertStages(raw.Cleanup.Always)
	if err != nil {
		return stage.Definition{}, fmt.Errorf("cleanup.always: %w", err)
	}
	def.Cleanup = stage.CleanupSet{OnSuccess: onSuccess, OnFailure: onFailure, Always: always}

	if len(def.Stages) == 0 && len(def.Setup) == 0 && raw.Request != nil {
		simple := rawStage{Request: raw.Request, Compare: raw.Compare, Response: raw.Response}
		s, err := simple.convert()
		if err != nil {
			return stage.Definition{}, fmt.Errorf("top-level request/response: %w", err)
		}
		def.Stages = []stage.StageDescriptor{s}
	}

	return def, nil
}

func decode(input interface{}, out interface{}) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           out,
	})
	if err != nil {
		return err
	}
	return dec.Decode(input)
}

// normalizeKeys recursively converts the map[interface{}]interface{}
// nodes gopkg.in/yaml.v3 can produce for nested mappings into
// map[string]interface{}, which mapstructure requires.
func normalizeKeys(v interface{}) interface{} {
	switch t := v.(type) {
	case map[string]interface{}:
		out := make(map[string]interface{}, len(t))
		for k, val := range t {
			out[k] = normalizeKeys(val)
		}
		return out
	case map[interface{}]interface{}:
		out := make(map[string]interface{}, len(t))
		for k, val := range t {
			out[fmt.Sprintf("%v", k)] = normalizeKeys(val)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(t))
		for i, e := range t {
			out[i] = normalizeKeys(e)
		}
		return out
	default:
		return v
	}
}
