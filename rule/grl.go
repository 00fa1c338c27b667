package rule

import (
	"os"

	"github.com/ksd-co/logicgraph-go/expr"
)

// LoadGRL parses rule text into compiled rules, preserving declaration
// order for salience tie-breaks.
func LoadGRL(src string) ([]Rule, error) {
	decls, err := expr.ParseRules(src)
	if err != nil {
		return nil, err
	}
	rules := make([]Rule, 0, len(decls))
	for _, d := range decls {
		rules = append(rules, Rule{
			Name:     d.Name,
			Salience: d.Salience,
			When:     d.When,
			Actions:  d.Actions,
		})
	}
	return rules, nil
}

// LoadGRLFile reads and parses a rule file from disk.
func LoadGRLFile(path string) ([]Rule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return LoadGRL(string(data))
}

// LoadGRLInto parses rule text and registers every rule with the
// engine, the loader shape used when templates and rules are wired
// together at startup.
func LoadGRLInto(src string, engine *IncrementalEngine) error {
	rules, err := LoadGRL(src)
	if err != nil {
		return err
	}
	for _, r := range rules {
		engine.AddRule(r)
	}
	return nil
}

// LoadGRLFileInto is LoadGRLInto over a file path.
func LoadGRLFileInto(path string, engine *IncrementalEngine) error {
	rules, err := LoadGRLFile(path)
	if err != nil {
		return err
	}
	for _, r := range rules {
		engine.AddRule(r)
	}
	return nil
}
