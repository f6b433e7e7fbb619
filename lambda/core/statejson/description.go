// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package statejson

import (
	"github.com/goccy/go-json"
	log "github.com/sirupsen/logrus"
)

// StateDescription ...
type StateDescription struct {
	Name         string `json:"name"`
	LastModified int64  `json:"lastModified"`
}

// ExtensionDescription ...
type ExtensionDescription struct {
	Name        string           `json:"name"`
	ID          string           `json:"id"`
	State       StateDescription `json:"state"`
	Invocations int              `json:"invocations"`
}

// AsJSON ...
func (s ExtensionDescription) AsJSON() []byte {
	bytes, err := json.Marshal(s)
	if err != nil {
		log.Panicf("Failed to marshall extension state: %s", err)
	}
	return bytes
}
