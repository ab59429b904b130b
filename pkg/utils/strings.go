// Copyright 2025 The Theia Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

// Package utils holds small helpers shared across the config and
// diagnostics surfaces.
package utils

import (
	"bytes"
	"encoding/gob"
	"encoding/json"
)

// ToJson marshal object to json
func ToJson(obj interface{}) []byte {
	bs, _ := json.Marshal(obj) // nolint
	return bs
}

// DeepCopyStruct deep copy object
func DeepCopyStruct(src, dest interface{}) error {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(src); err != nil {
		return err
	}
	return gob.NewDecoder(&buf).Decode(dest)
}
