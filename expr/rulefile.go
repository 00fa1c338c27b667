package expr

import "strconv"

// RuleDecl is a parsed rule from a GRL file:
//
//	rule "name" salience N {
//	    when <expr>
//	    then <ident> = <expr>; ...
//	}
//
// The rule package compiles declarations into its engine types; this
// package owns the whole DSL grammar so the expression and statement
// syntax cannot drift apart.
type RuleDecl struct {
	Name     string
	Salience int
	When     Node
	Actions  []Assignment
}

// Assignment is a single `target = value;` action.
type Assignment struct {
	Target string
	Value  Node
}

// ParseRules parses a rule file containing zero or more rule blocks.
func ParseRules(src string) ([]RuleDecl, error) {
	p, err := newParser(src)
	if err != nil {
		return nil, err
	}
	var rules []RuleDecl
	for p.cur.kind != tokEOF {
		decl, err := p.parseRule()
		if err != nil {
			return nil, err
		}
		rules = append(rules, decl)
	}
	return rules, nil
}

func (p *parser) parseRule() (RuleDecl, error) {
	var decl RuleDecl

	kw, err := p.expect(tokIdent, "'rule'")
	if err != nil {
		return decl, err
	}
	if kw.text != "rule" {
		return decl, errAt(kw, "expected 'rule', found %q", kw.text)
	}

	name, err := p.expect(tokString, "rule name string")
	if err != nil {
		return decl, err
	}
	decl.Name = name.text

	if p.cur.kind == tokIdent && p.cur.text == "salience" {
		if err := p.bump(); err != nil {
			return decl, err
		}
		neg := false
		if p.cur.kind == tokMinus {
			neg = true
			if err := p.bump(); err != nil {
				return decl, err
			}
		}
		num, err := p.expect(tokNumber, "salience value")
		if err != nil {
			return decl, err
		}
		n, convErr := strconv.Atoi(num.text)
		if convErr != nil {
			return decl, errAt(num, "salience must be an integer, found %q", num.text)
		}
		if neg {
			n = -n
		}
		decl.Salience = n
	}

	if _, err := p.expect(tokLBrace, "'{'"); err != nil {
		return decl, err
	}

	when, err := p.expect(tokIdent, "'when'")
	if err != nil {
		return decl, err
	}
	if when.text != "when" {
		return decl, errAt(when, "expected 'when', found %q", when.text)
	}

	// The condition runs until the 'then' keyword. parseExpr stops
	// naturally because 'then' lexes as an identifier that cannot
	// continue any production.
	cond, err := p.parseExpr()
	if err != nil {
		return decl, err
	}
	decl.When = cond

	then := p.cur
	if then.kind != tokIdent || then.text != "then" {
		return decl, errAt(then, "expected 'then', found %s", then)
	}
	if err := p.bump(); err != nil {
		return decl, err
	}

	for p.cur.kind != tokRBrace {
		target, err := p.expect(tokIdent, "assignment target")
		if err != nil {
			return decl, err
		}
		if _, err := p.expect(tokAssign, "'='"); err != nil {
			return decl, err
		}
		value, err := p.parseExpr()
		if err != nil {
			return decl, err
		}
		if _, err := p.expect(tokSemi, "';'"); err != nil {
			return decl, err
		}
		decl.Actions = append(decl.Actions, Assignment{Target: target.text, Value: value})
	}
	if err := p.bump(); err != nil { // consume '}'
		return decl, err
	}
	return decl, nil
}
