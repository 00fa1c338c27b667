package rule

import (
	"testing"

	"github.com/ksd-co/logicgraph-go/expr"
)

func mustExpr(t *testing.T, src string) expr.Node {
	t.Helper()
	n, err := expr.Parse(src)
	if err != nil {
		t.Fatalf("Parse(%q): %v", src, err)
	}
	return n
}

func mustActions(t *testing.T, stmts string) []expr.Assignment {
	t.Helper()
	decls, err := expr.ParseRules(`rule "helper" { when true then ` + stmts + ` }`)
	if err != nil {
		t.Fatalf("parse actions %q: %v", stmts, err)
	}
	return decls[0].Actions
}
