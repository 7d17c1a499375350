// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package check

import (
	"context"
	"testing"

	"github.com/AleutianAI/fixturelint/services/lint/ast"
)

// defaultOptions mirrors the embedded configuration defaults.
func defaultOptions() Options {
	return Options{
		FixtureBase:    "TestCase",
		DelegationRoot: "super",
		CheckedMethods: []string{"setUp", "tearDown", "setUpClass", "tearDownClass"},
	}
}

// parseSource is a test helper producing the lint model for a snippet.
func parseSource(t *testing.T, src string) *ast.Module {
	t.Helper()
	mod, err := ast.NewPythonParser().Parse(context.Background(), []byte(src), "test.py")
	if err != nil {
		t.Fatalf("unexpected parse error: %v", err)
	}
	return mod
}

func TestContainsFixtureMarker(t *testing.T) {
	if !ContainsFixtureMarker([]byte("class T(unittest.TestCase): ..."), "TestCase") {
		t.Error("expected marker to be found")
	}
	if ContainsFixtureMarker([]byte("def helper(): return 1"), "TestCase") {
		t.Error("expected marker to be absent")
	}
}

func TestClassQualifies(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want bool
	}{
		{"bare name", "class T(TestCase):\n    pass\n", true},
		{"attribute chain", "class T(unittest.TestCase):\n    pass\n", true},
		{"deep attribute chain", "class T(pkg.unittest.TestCase):\n    pass\n", true},
		{"second base", "class T(Mixin, unittest.TestCase):\n    pass\n", true},
		{"no bases", "class T:\n    pass\n", false},
		{"unrelated base", "class T(Helper):\n    pass\n", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mod := parseSource(t, tt.src)
			if got := ClassQualifies(mod.Classes[0], "TestCase"); got != tt.want {
				t.Errorf("ClassQualifies = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestEffectiveStatements_StripsPassAndDocstring(t *testing.T) {
	src := `class T(TestCase):
    def setUp(self):
        """Prepare fixtures."""
        pass
        do_work()
        pass
`
	mod := parseSource(t, src)
	m := mod.Classes[0].Methods[0]

	stmts := EffectiveStatements(m)
	if len(stmts) != 1 {
		t.Fatalf("expected 1 effective statement, got %d", len(stmts))
	}
	if stmts[0].StartLine != 5 {
		t.Errorf("expected remaining statement on line 5, got %d", stmts[0].StartLine)
	}
}

func TestEffectiveStatements_DocstringOnlyWhenLeading(t *testing.T) {
	src := `class T(TestCase):
    def setUp(self):
        do_work()
        "not a docstring"
`
	mod := parseSource(t, src)
	stmts := EffectiveStatements(mod.Classes[0].Methods[0])
	if len(stmts) != 2 {
		t.Fatalf("expected 2 effective statements (mid-body string kept), got %d", len(stmts))
	}
}

func TestEffectiveStatements_Empty(t *testing.T) {
	src := "class T(TestCase):\n    def tearDown(self):\n        pass\n"
	mod := parseSource(t, src)
	if stmts := EffectiveStatements(mod.Classes[0].Methods[0]); len(stmts) != 0 {
		t.Errorf("expected empty effective list, got %d statements", len(stmts))
	}
}

// lastStatement parses a one-method class and returns its final body
// statement plus the class's declared bases.
func lastStatement(t *testing.T, src string) (ast.Statement, []ast.Expr) {
	t.Helper()
	mod := parseSource(t, src)
	cls := mod.Classes[0]
	body := cls.Methods[0].Body
	if len(body) == 0 {
		t.Fatal("test source produced an empty method body")
	}
	return body[len(body)-1], cls.Bases
}

func TestIsDelegation_ZeroArg(t *testing.T) {
	stmt, bases := lastStatement(t, "class T(TestCase):\n    def setUp(self):\n        super().setUp()\n")
	if !IsDelegation(stmt, "setUp", bases, "super") {
		t.Error("expected zero-arg super call to match")
	}
}

func TestIsDelegation_ExplicitTwoArg(t *testing.T) {
	stmt, bases := lastStatement(t, "class T(TestCase):\n    def tearDown(self):\n        super(T, self).tearDown()\n")
	if !IsDelegation(stmt, "tearDown", bases, "super") {
		t.Error("expected two-arg super call to match")
	}
}

func TestIsDelegation_DirectBase(t *testing.T) {
	stmt, bases := lastStatement(t, "class T(unittest.TestCase):\n    def setUp(self):\n        unittest.TestCase.setUp(self)\n")
	if !IsDelegation(stmt, "setUp", bases, "super") {
		t.Error("expected direct base call to match")
	}
}

func TestIsDelegation_DirectBaseBareName(t *testing.T) {
	stmt, bases := lastStatement(t, "class T(TestCase):\n    def tearDown(self):\n        TestCase.tearDown(self)\n")
	if !IsDelegation(stmt, "tearDown", bases, "super") {
		t.Error("expected bare-name base call to match")
	}
}

func TestIsDelegation_UndeclaredBaseRejected(t *testing.T) {
	// BaseClass is not among the declared bases: a super-style call on it
	// is not a delegation, structurally.
	stmt, bases := lastStatement(t, "class T(unittest.TestCase):\n    def setUp(self):\n        BaseClass.setUp(self)\n")
	if IsDelegation(stmt, "setUp", bases, "super") {
		t.Error("expected undeclared base call to be rejected")
	}
}

func TestIsDelegation_WrongMethodName(t *testing.T) {
	stmt, bases := lastStatement(t, "class T(TestCase):\n    def setUp(self):\n        super().tearDown()\n")
	if IsDelegation(stmt, "setUp", bases, "super") {
		t.Error("expected mismatched method name to be rejected")
	}
}

func TestIsDelegation_OneArgSuperRejected(t *testing.T) {
	stmt, bases := lastStatement(t, "class T(TestCase):\n    def setUp(self):\n        super(T).setUp()\n")
	if IsDelegation(stmt, "setUp", bases, "super") {
		t.Error("expected one-arg super receiver to be rejected")
	}
}

func TestIsDelegation_NonCallRejected(t *testing.T) {
	stmt, bases := lastStatement(t, "class T(TestCase):\n    def setUp(self):\n        self.x = 1\n")
	if IsDelegation(stmt, "setUp", bases, "super") {
		t.Error("expected assignment statement to be rejected")
	}
}

func TestIsDelegation_BareFunctionCallRejected(t *testing.T) {
	stmt, bases := lastStatement(t, "class T(TestCase):\n    def setUp(self):\n        setUp()\n")
	if IsDelegation(stmt, "setUp", bases, "super") {
		t.Error("expected non-attribute call to be rejected")
	}
}
