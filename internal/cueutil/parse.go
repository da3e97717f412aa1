// SPDX-License-Identifier: MPL-2.0

package cueutil

import (
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
)

// ParseResult contains the result of a successful CUE parse operation.
type ParseResult[T any] struct {
	// Value is the decoded Go value.
	Value *T

	// Unified is the schema-unified CUE value.
	Unified cue.Value
}

// ParseAndDecode compiles data, unifies it with the schema definition at
// schemaPath (e.g. "#Module"), validates the result and decodes it into T.
func ParseAndDecode[T any](schema, data []byte, schemaPath string, opts ...Option) (*ParseResult[T], error) {
	options := defaultOptions()
	for _, opt := range opts {
		opt(&options)
	}
	filename := options.displayName()

	if err := CheckFileSize(data, options.maxFileSize, filename); err != nil {
		return nil, err
	}

	ctx := cuecontext.New()
	userValue := ctx.CompileBytes(data, cue.Filename(filename))
	if userValue.Err() != nil {
		return nil, FormatError(userValue.Err(), filename)
	}

	unified, err := unifyWithSchema(ctx, schema, schemaPath, userValue, options)
	if err != nil {
		return nil, err
	}

	var result T
	if err := unified.Decode(&result); err != nil {
		return nil, FormatError(err, filename)
	}

	return &ParseResult[T]{
		Value:   &result,
		Unified: unified,
	}, nil
}

// DecodeMap validates data against the schema and decodes it into a generic
// map. data is either raw CUE/JSON bytes or an already decoded Go value (as
// produced by a TOML decoder), which is encoded into CUE before validation.
func DecodeMap(schema []byte, data any, schemaPath string, opts ...Option) (map[string]any, error) {
	options := defaultOptions()
	for _, opt := range opts {
		opt(&options)
	}
	filename := options.displayName()

	ctx := cuecontext.New()
	var userValue cue.Value
	switch raw := data.(type) {
	case []byte:
		if err := CheckFileSize(raw, options.maxFileSize, filename); err != nil {
			return nil, err
		}
		userValue = ctx.CompileBytes(raw, cue.Filename(filename))
	default:
		userValue = ctx.Encode(raw)
	}
	if userValue.Err() != nil {
		return nil, FormatError(userValue.Err(), filename)
	}

	unified, err := unifyWithSchema(ctx, schema, schemaPath, userValue, options)
	if err != nil {
		return nil, err
	}

	var result map[string]any
	if err := unified.Decode(&result); err != nil {
		return nil, FormatError(err, filename)
	}
	return result, nil
}

func unifyWithSchema(ctx *cue.Context, schema []byte, schemaPath string, userValue cue.Value, options parseOptions) (cue.Value, error) {
	schemaValue := ctx.CompileBytes(schema)
	if schemaValue.Err() != nil {
		return cue.Value{}, fmt.Errorf("internal error: failed to compile schema: %w", schemaValue.Err())
	}

	schemaRoot := schemaValue.LookupPath(cue.ParsePath(schemaPath))
	if schemaRoot.Err() != nil {
		return cue.Value{}, fmt.Errorf("internal error: schema definition %s not found: %w", schemaPath, schemaRoot.Err())
	}

	unified := schemaRoot.Unify(userValue)
	if err := unified.Validate(cue.Concrete(options.concrete)); err != nil {
		return cue.Value{}, FormatError(err, options.displayName())
	}
	return unified, nil
}
