// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package check finds fixture lifecycle methods whose delegation to the
// parent implementation is missing or is not the last effective statement.
//
// The rule: in any class inheriting from the fixture base (unittest's
// TestCase by default), the methods setUp, tearDown, setUpClass and
// tearDownClass must end with a call that forwards to the ancestor
// implementation. Teardown and setup chains depend on that ordering; a
// delegation buried mid-body silently reorders resource acquisition and
// release across the class hierarchy.
//
// Matching is purely structural. The tool has no type information, so
// base references and call receivers compare as identifier chains, never
// as resolved types.
package check

import (
	"bytes"
	"context"

	"github.com/AleutianAI/fixturelint/services/lint/ast"
)

// Parser is the capability the checker needs from a language frontend:
// turn raw source into the positioned lint model.
type Parser interface {
	Parse(ctx context.Context, content []byte, filePath string) (*ast.Module, error)
}

// Options selects what the checker looks for.
type Options struct {
	// FixtureBase is the base class identifier that marks a test fixture
	// class, matched as a bare name or as the final segment of an
	// attribute chain. Also the prescreen marker.
	FixtureBase string

	// DelegationRoot is the builtin that produces a bound ancestor proxy
	// ("super" in Python).
	DelegationRoot string

	// CheckedMethods are the lifecycle method names the rule applies to.
	CheckedMethods []string
}

// Applies reports whether name is one of the checked lifecycle methods.
func (o Options) Applies(name string) bool {
	for _, m := range o.CheckedMethods {
		if m == name {
			return true
		}
	}
	return false
}

// ContainsFixtureMarker is the prescreen: a cheap substring test that is
// a necessary condition for the file to declare a qualifying class.
// Files without the marker are skipped before any parse work; parsing is
// the dominant cost and most files in a repository are not test files.
func ContainsFixtureMarker(source []byte, marker string) bool {
	return bytes.Contains(source, []byte(marker))
}

// ClassQualifies reports whether the class declares the fixture base
// among its base references, either as a bare name or as an attribute
// chain whose final segment is the fixture base identifier.
func ClassQualifies(cls *ast.Class, fixtureBase string) bool {
	for _, base := range cls.Bases {
		switch e := base.(type) {
		case *ast.NameExpr:
			if e.ID == fixtureBase {
				return true
			}
		case *ast.AttributeExpr:
			if e.Attr == fixtureBase {
				return true
			}
		}
	}
	return false
}

// EffectiveStatements filters a method body down to the statements the
// ordering rule applies to: placeholder pass statements are dropped
// anywhere, and if the first remaining statement is a standalone
// string-literal expression (the docstring), that one statement is
// dropped too. Statement values are not modified; this is a filtered view.
func EffectiveStatements(m *ast.Method) []ast.Statement {
	stmts := make([]ast.Statement, 0, len(m.Body))
	for _, s := range m.Body {
		if s.Kind == ast.StatementPass {
			continue
		}
		stmts = append(stmts, s)
	}
	if len(stmts) > 0 && stmts[0].Kind == ast.StatementExpression && stmts[0].IsString {
		stmts = stmts[1:]
	}
	return stmts
}

// namesEqual reports structural equality of two name/attribute chains.
// Two names match on identifier; two attributes match on the final
// segment and, recursively, on the chain left of it. Anything else never
// matches: this is a syntactic comparison, not name resolution.
func namesEqual(a, b ast.Expr) bool {
	switch ae := a.(type) {
	case *ast.NameExpr:
		be, ok := b.(*ast.NameExpr)
		return ok && ae.ID == be.ID
	case *ast.AttributeExpr:
		be, ok := b.(*ast.AttributeExpr)
		return ok && ae.Attr == be.Attr && namesEqual(ae.Value, be.Value)
	default:
		return false
	}
}

// IsDelegation reports whether stmt is an accepted delegation to the
// ancestor implementation of methodName.
//
// Accepted forms, tested in order:
//
//	super().methodName()              zero-arg delegation root
//	super(Class, self).methodName()   explicit two-arg delegation root
//	Base.methodName(self)             direct call on a declared base
//
// The statement must be a bare call expression occupying the whole
// statement, and the called attribute must equal the enclosing method's
// name. For the direct-base form the receiver must structurally equal
// one of the class's declared base references; the first declared base
// that matches accepts.
func IsDelegation(stmt ast.Statement, methodName string, bases []ast.Expr, delegationRoot string) bool {
	if stmt.Kind != ast.StatementExpression || stmt.IsString {
		return false
	}
	call, ok := stmt.Expr.(*ast.CallExpr)
	if !ok {
		return false
	}
	attr, ok := call.Func.(*ast.AttributeExpr)
	if !ok {
		return false
	}
	if attr.Attr != methodName {
		return false
	}

	// Zero-arg and explicit two-arg forms: receiver is an invocation of
	// the delegation root.
	if recv, ok := attr.Value.(*ast.CallExpr); ok {
		fn, ok := recv.Func.(*ast.NameExpr)
		if !ok || fn.ID != delegationRoot {
			return false
		}
		return recv.NumArgs == 0 || recv.NumArgs == 2
	}

	// Direct-base form: receiver is a declared base reference.
	for _, base := range bases {
		if namesEqual(attr.Value, base) {
			return true
		}
	}
	return false
}
