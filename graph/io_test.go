package graph

import (
	"os"
	"path/filepath"
	"testing"
)

const jsonDoc = `{
  "nodes": {
    "check_inventory": {"kind": "Rule", "config": {"expression": "true"}},
    "route": {"kind": "Conditional", "config": {"condition": "available > 100", "then": "process", "else": "notify"}},
    "process": {"kind": "Rule"},
    "notify": {"kind": "Rule"}
  },
  "edges": [
    {"from": "check_inventory", "to": "route"},
    {"from": "route", "to": "process", "rule": "available > 100"},
    {"from": "route", "to": "notify", "rule": "available <= 100"}
  ]
}`

const yamlDoc = `
nodes:
  fetch:
    kind: DB
    config:
      query: "SELECT * FROM products WHERE product_id = $1"
      params: ["product_id"]
  validate:
    kind: Rule
    config:
      expression: "true"
edges:
  - from: fetch
    to: validate
`

func TestParseGraphDef_JSON(t *testing.T) {
	def, err := ParseGraphDef([]byte(jsonDoc), FormatJSON)
	if err != nil {
		t.Fatalf("ParseGraphDef: %v", err)
	}
	if len(def.Nodes) != 4 || len(def.Edges) != 3 {
		t.Errorf("parsed %d nodes / %d edges", len(def.Nodes), len(def.Edges))
	}
	if def.Nodes["route"].Kind != KindConditional {
		t.Errorf("route kind = %v", def.Nodes["route"].Kind)
	}
	if def.Edges[1].Rule == "" && def.Edges[2].Rule == "" {
		t.Error("edge rules lost in parsing")
	}
}

func TestParseGraphDef_YAML(t *testing.T) {
	def, err := ParseGraphDef([]byte(yamlDoc), FormatYAML)
	if err != nil {
		t.Fatalf("ParseGraphDef: %v", err)
	}
	if def.Nodes["fetch"].Kind != KindDB {
		t.Errorf("fetch kind = %v", def.Nodes["fetch"].Kind)
	}
	if q := def.Nodes["fetch"].Config["query"]; q != "SELECT * FROM products WHERE product_id = $1" {
		t.Errorf("query config = %v", q)
	}
}

func TestParseGraphDef_Errors(t *testing.T) {
	cases := []struct {
		name string
		doc  string
		code ErrorCode
	}{
		{"unknown kind", `{"nodes": {"a": {"kind": "Quantum"}}, "edges": []}`, CodeConfig},
		{"undeclared endpoint", `{"nodes": {"a": {"kind": "Rule"}}, "edges": [{"from": "a", "to": "ghost"}]}`, CodeConfig},
		{"self loop", `{"nodes": {"a": {"kind": "Rule"}}, "edges": [{"from": "a", "to": "a"}]}`, CodeConfig},
		{"malformed rule", `{"nodes": {"a": {"kind": "Rule"}, "b": {"kind": "Rule"}}, "edges": [{"from": "a", "to": "b", "rule": "x >"}]}`, CodeParse},
		{"malformed json", `{"nodes": `, CodeConfig},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseGraphDef([]byte(tc.doc), FormatJSON)
			if !HasCode(err, tc.code) {
				t.Errorf("error = %v, want %s", err, tc.code)
			}
		})
	}
}

func TestLoadGraphDefFile(t *testing.T) {
	dir := t.TempDir()

	jsonPath := filepath.Join(dir, "flow.json")
	if err := os.WriteFile(jsonPath, []byte(jsonDoc), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadGraphDefFile(jsonPath); err != nil {
		t.Errorf("LoadGraphDefFile(json): %v", err)
	}

	yamlPath := filepath.Join(dir, "flow.yaml")
	if err := os.WriteFile(yamlPath, []byte(yamlDoc), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadGraphDefFile(yamlPath); err != nil {
		t.Errorf("LoadGraphDefFile(yaml): %v", err)
	}

	txtPath := filepath.Join(dir, "flow.txt")
	if err := os.WriteFile(txtPath, []byte(jsonDoc), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadGraphDefFile(txtPath); !HasCode(err, CodeConfig) {
		t.Errorf("unrecognized extension error = %v, want Config", err)
	}

	if _, err := LoadGraphDefFile(filepath.Join(dir, "absent.json")); !HasCode(err, CodeIo) {
		t.Errorf("missing file error = %v, want Io", err)
	}
}

func TestGraphDef_Clone(t *testing.T) {
	def, err := ParseGraphDef([]byte(jsonDoc), FormatJSON)
	if err != nil {
		t.Fatal(err)
	}
	clone := def.Clone()
	clone.Nodes["route"].Config["condition"] = "tampered"
	if def.Nodes["route"].Config["condition"] == "tampered" {
		t.Error("Clone shares config maps with the original")
	}
}
