package graph

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ksd-co/logicgraph-go/expr"
)

// DocumentFormat selects the serialization of a graph document.
type DocumentFormat int

const (
	FormatJSON DocumentFormat = iota
	FormatYAML
)

// ParseGraphDef decodes a graph document and validates its static
// shape: known kinds, declared edge endpoints, no self-loops, and
// parseable edge rules. Rule syntax errors surface at load time as
// Parse errors rather than at execution.
func ParseGraphDef(data []byte, format DocumentFormat) (*GraphDef, error) {
	var def GraphDef
	switch format {
	case FormatJSON:
		if err := json.Unmarshal(data, &def); err != nil {
			return nil, &Error{Code: CodeConfig, Message: "malformed graph document: " + err.Error(), Cause: err}
		}
	case FormatYAML:
		if err := yaml.Unmarshal(data, &def); err != nil {
			return nil, &Error{Code: CodeConfig, Message: "malformed graph document: " + err.Error(), Cause: err}
		}
	default:
		return nil, &Error{Code: CodeConfig, Message: fmt.Sprintf("unknown document format %d", format)}
	}
	if err := def.Validate(); err != nil {
		return nil, err
	}
	return &def, nil
}

// LoadGraphDefFile reads a graph document from disk, keyed on the file
// extension: .json, .yaml, or .yml.
func LoadGraphDefFile(path string) (*GraphDef, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &Error{Code: CodeIo, Message: "reading graph document: " + err.Error(), Cause: err}
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return ParseGraphDef(data, FormatJSON)
	case ".yaml", ".yml":
		return ParseGraphDef(data, FormatYAML)
	}
	return nil, &Error{Code: CodeConfig, Message: "unrecognized graph document extension: " + filepath.Ext(path)}
}

// Validate checks the definition's static invariants. The executor
// calls it again before running, so hand-built definitions get the
// same checks as loaded documents.
func (d *GraphDef) Validate() error {
	for id, nc := range d.Nodes {
		if id == "" {
			return configErr("", "node with empty id")
		}
		if !ValidKind(nc.Kind) {
			return configErr(id, "unknown node kind %q", nc.Kind)
		}
	}
	for _, e := range d.Edges {
		if _, ok := d.Nodes[e.From]; !ok {
			return configErr(e.From, "edge references undeclared node %q", e.From)
		}
		if _, ok := d.Nodes[e.To]; !ok {
			return configErr(e.To, "edge references undeclared node %q", e.To)
		}
		if e.From == e.To {
			return configErr(e.From, "self-loop on node %q", e.From)
		}
		if e.Rule != "" {
			if _, err := expr.Parse(e.Rule); err != nil {
				return &Error{
					Code:    CodeParse,
					Message: fmt.Sprintf("edge %s->%s rule %q: %v", e.From, e.To, e.Rule, err),
					Cause:   err,
				}
			}
		}
	}
	return nil
}
