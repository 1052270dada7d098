// Package monitor validates outbound gateway request bodies against the
// gateway's documented wire contract before they leave the process. A body
// that fails validation indicates a bug in the request builders, not a
// gateway problem, so the transport layer refuses to send it.
package monitor

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// WireMonitor holds one compiled JSON schema per flow.
type WireMonitor struct {
	schemas map[string]*gojsonschema.Schema
}

// NewWireMonitor compiles the given flow→schema map. Schemas are JSON
// schema documents as strings, typically embedded next to the connector
// that owns them.
func NewWireMonitor(schemas map[string]string) (*WireMonitor, error) {
	compiled := make(map[string]*gojsonschema.Schema, len(schemas))
	for flow, doc := range schemas {
		schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(doc))
		if err != nil {
			return nil, fmt.Errorf("monitor: compiling schema for flow %q: %w", flow, err)
		}
		compiled[flow] = schema
	}
	return &WireMonitor{schemas: compiled}, nil
}

// Validate checks a request body against the flow's schema. It returns
// true when the body conforms, or false with a list of violations. Flows
// without a registered schema (body-less GETs) pass trivially.
func (m *WireMonitor) Validate(flow string, body []byte) (bool, []string, error) {
	schema, ok := m.schemas[flow]
	if !ok {
		return true, nil, nil
	}
	result, err := schema.Validate(gojsonschema.NewBytesLoader(body))
	if err != nil {
		return false, nil, fmt.Errorf("monitor: validating %s body: %w", flow, err)
	}
	if result.Valid() {
		return true, nil, nil
	}
	var issues []string
	for _, desc := range result.Errors() {
		issues = append(issues, desc.String())
	}
	return false, issues, nil
}

// FormatIssues renders validation issues as a single string.
func FormatIssues(issues []string) string {
	if len(issues) == 0 {
		return ""
	}
	return "wire contract violations: " + strings.Join(issues, "; ")
}
