// SPDX-License-Identifier: MPL-2.0

// Package cueutil provides the shared CUE parsing used by every yae descriptor.
//
// Module descriptors, package descriptors and project configuration are all
// validated the same way:
//
//  1. Compile the embedded schema
//  2. Compile user data (JSON is valid CUE) and unify it with the schema
//  3. Validate and decode to a Go value
//
// # Usage
//
//	//go:embed module_schema.cue
//	var moduleSchema []byte
//
//	result, err := cueutil.ParseAndDecode[moduleDocument](
//	    moduleSchema,
//	    data,
//	    "#Module",
//	    cueutil.WithFilename(path),
//	)
//	if err != nil {
//	    return nil, err // error carries the JSON path of the offending field
//	}
package cueutil
