// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package rewrite

import (
	"bytes"
	"context"
	"testing"

	"github.com/AleutianAI/fixturelint/services/lint/ast"
	"github.com/AleutianAI/fixturelint/services/lint/check"
)

func testOptions() check.Options {
	return check.Options{
		FixtureBase:    "TestCase",
		DelegationRoot: "super",
		CheckedMethods: []string{"setUp", "tearDown", "setUpClass", "tearDownClass"},
	}
}

// analyze parses source and returns its findings.
func analyze(t *testing.T, source []byte) []check.Finding {
	t.Helper()
	mod, err := ast.NewPythonParser().Parse(context.Background(), source, "test.py")
	if err != nil {
		t.Fatalf("unexpected parse error: %v", err)
	}
	return check.FindViolations(mod, testOptions())
}

// fix runs one analyze-and-apply round over source.
func fix(t *testing.T, source []byte) ([]byte, Result) {
	t.Helper()
	return Apply(source, analyze(t, source), "super")
}

func TestApply_InsertMissingDelegation(t *testing.T) {
	src := []byte(`class T(unittest.TestCase):
    def setUp(self):
        self.x = 1
        call_x()
`)
	want := []byte(`class T(unittest.TestCase):
    def setUp(self):
        self.x = 1
        call_x()
        super().setUp()
`)

	got, res := fix(t, src)
	if res.Inserted != 1 || res.Relocated != 0 {
		t.Errorf("expected 1 insertion, got %+v", res)
	}
	if !bytes.Equal(got, want) {
		t.Errorf("output mismatch:\n got:\n%s\nwant:\n%s", got, want)
	}
}

func TestApply_RelocateMisplacedDelegation(t *testing.T) {
	src := []byte(`class T(unittest.TestCase):
    def setUp(self):
        super().setUp()
        call_y()
`)
	want := []byte(`class T(unittest.TestCase):
    def setUp(self):
        call_y()
        super().setUp()
`)

	got, res := fix(t, src)
	if res.Relocated != 1 || res.Inserted != 0 {
		t.Errorf("expected 1 relocation, got %+v", res)
	}
	if !bytes.Equal(got, want) {
		t.Errorf("output mismatch:\n got:\n%s\nwant:\n%s", got, want)
	}
}

func TestApply_RelocatePreservesCallForm(t *testing.T) {
	// The moved statement is re-inserted verbatim: an explicit two-arg
	// call stays a two-arg call.
	src := []byte(`class T(unittest.TestCase):
    def tearDown(self):
        super(T, self).tearDown()
        release()
`)
	want := []byte(`class T(unittest.TestCase):
    def tearDown(self):
        release()
        super(T, self).tearDown()
`)

	got, _ := fix(t, src)
	if !bytes.Equal(got, want) {
		t.Errorf("output mismatch:\n got:\n%s\nwant:\n%s", got, want)
	}
}

func TestApply_InsertBeforeTrailingPass(t *testing.T) {
	// The synthesized call lands after the last effective statement, not
	// after trailing filler.
	src := []byte(`class T(unittest.TestCase):
    def setUp(self):
        call_x()
        pass
`)
	want := []byte(`class T(unittest.TestCase):
    def setUp(self):
        call_x()
        super().setUp()
        pass
`)

	got, _ := fix(t, src)
	if !bytes.Equal(got, want) {
		t.Errorf("output mismatch:\n got:\n%s\nwant:\n%s", got, want)
	}
}

func TestApply_MultipleMethods(t *testing.T) {
	src := []byte(`class A(unittest.TestCase):
    def setUp(self):
        super().setUp()
        prepare()

    def tearDown(self):
        cleanup()


class B(TestCase):
    def setUpClass(cls):
        cls.pool = make_pool()
`)
	want := []byte(`class A(unittest.TestCase):
    def setUp(self):
        prepare()
        super().setUp()

    def tearDown(self):
        cleanup()
        super().tearDown()


class B(TestCase):
    def setUpClass(cls):
        cls.pool = make_pool()
        super().setUpClass()
`)

	got, res := fix(t, src)
	if res.Relocated != 1 || res.Inserted != 2 {
		t.Errorf("expected 1 relocation and 2 insertions, got %+v", res)
	}
	if !bytes.Equal(got, want) {
		t.Errorf("output mismatch:\n got:\n%s\nwant:\n%s", got, want)
	}
}

func TestApply_Idempotent(t *testing.T) {
	src := []byte(`class T(unittest.TestCase):
    def setUp(self):
        super().setUp()
        call_y()

    def tearDown(self):
        cleanup()
`)

	once, res := fix(t, src)
	if !res.Modified() {
		t.Fatal("expected the first pass to modify the buffer")
	}

	if findings := analyze(t, once); len(findings) != 0 {
		t.Fatalf("expected the fixed buffer to be clean, got %d findings", len(findings))
	}
	twice, res2 := fix(t, once)
	if res2.Modified() {
		t.Error("expected the second pass to be a no-op")
	}
	if !bytes.Equal(once, twice) {
		t.Errorf("second pass changed the buffer:\n once:\n%s\ntwice:\n%s", once, twice)
	}
}

func TestApply_PreservesCRLF(t *testing.T) {
	src := []byte("class T(unittest.TestCase):\r\n    def setUp(self):\r\n        call_x()\r\n")
	want := []byte("class T(unittest.TestCase):\r\n    def setUp(self):\r\n        call_x()\r\n        super().setUp()\r\n")

	got, _ := fix(t, src)
	if !bytes.Equal(got, want) {
		t.Errorf("output mismatch:\n got: %q\nwant: %q", got, want)
	}
}

func TestApply_MissingTrailingNewline(t *testing.T) {
	src := []byte("class T(unittest.TestCase):\n    def setUp(self):\n        call_x()")
	want := []byte("class T(unittest.TestCase):\n    def setUp(self):\n        call_x()\n        super().setUp()\n")

	got, _ := fix(t, src)
	if !bytes.Equal(got, want) {
		t.Errorf("output mismatch:\n got: %q\nwant: %q", got, want)
	}
}

func TestApply_NoFindingsReturnsSourceUnchanged(t *testing.T) {
	src := []byte("x = 1\n")
	got, res := Apply(src, nil, "super")
	if res.Modified() {
		t.Error("expected no modification")
	}
	if !bytes.Equal(got, src) {
		t.Errorf("expected source returned unchanged, got %q", got)
	}
}

func TestApply_UntouchedRegionsStable(t *testing.T) {
	src := []byte(`HEADER = "untouched"


class T(unittest.TestCase):
    def setUp(self):
        call_x()


def trailer():
    return 2
`)

	got, _ := fix(t, src)
	if !bytes.HasPrefix(got, []byte("HEADER = \"untouched\"\n")) {
		t.Error("leading region was altered")
	}
	if !bytes.HasSuffix(got, []byte("def trailer():\n    return 2\n")) {
		t.Error("trailing region was altered")
	}
	if len(SplitLines(got)) != len(SplitLines(src))+1 {
		t.Errorf("expected exactly one added line, got %d -> %d",
			len(SplitLines(src)), len(SplitLines(got)))
	}
}

func TestSplitLines_RoundTrip(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{"empty", ""},
		{"single terminated", "a\n"},
		{"no trailing newline", "a\nb"},
		{"crlf", "a\r\nb\r\n"},
		{"mixed", "a\nb\r\nc"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lines := SplitLines([]byte(tt.src))
			if joined := bytes.Join(lines, nil); string(joined) != tt.src {
				t.Errorf("round trip mismatch: %q -> %q", tt.src, joined)
			}
		})
	}
}
