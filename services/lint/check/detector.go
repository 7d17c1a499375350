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
	"fmt"

	"github.com/AleutianAI/fixturelint/services/lint/ast"
)

// Violation is one detected ordering defect: a qualifying method whose
// last effective statement is not a recognized delegation.
type Violation struct {
	// Path is the file the violation was found in.
	Path string

	// Line is the 1-indexed line of the last effective statement.
	Line int

	// Class and Method name the offending declaration.
	Class  string
	Method string
}

// String renders the violation as a diagnostic line.
func (v Violation) String() string {
	return fmt.Sprintf("%s:%d: %s.%s() must end with super().%s()",
		v.Path, v.Line, v.Class, v.Method, v.Method)
}

// Finding is the full analysis of one violating method, carrying enough
// position data for the rewriter to plan an edit without re-analyzing.
type Finding struct {
	// Class and Method are the offending declarations.
	Class  *ast.Class
	Method *ast.Method

	// Effective is the method's effective statement list, non-empty.
	Effective []ast.Statement

	// MisplacedIdx is the index within Effective of an existing
	// delegation statement that sits before the end, or -1 when the
	// method has no delegation at all.
	MisplacedIdx int
}

// Violation converts the finding into its reportable form.
func (f Finding) Violation(path string) Violation {
	last := f.Effective[len(f.Effective)-1]
	return Violation{
		Path:   path,
		Line:   last.StartLine,
		Class:  f.Class.Name,
		Method: f.Method.Name,
	}
}

// FindViolations scans the module for qualifying (class, method) pairs
// and returns a finding for each method whose last effective statement is
// not an accepted delegation. Declaration order is preserved. Methods
// with an empty effective body are permitted overrides and produce no
// finding.
func FindViolations(mod *ast.Module, opts Options) []Finding {
	var findings []Finding

	for _, cls := range mod.Classes {
		if !ClassQualifies(cls, opts.FixtureBase) {
			continue
		}
		for _, m := range cls.Methods {
			if !opts.Applies(m.Name) {
				continue
			}

			stmts := EffectiveStatements(m)
			if len(stmts) == 0 {
				continue
			}

			last := stmts[len(stmts)-1]
			if IsDelegation(last, m.Name, cls.Bases, opts.DelegationRoot) {
				continue
			}

			misplaced := -1
			for i, s := range stmts {
				if IsDelegation(s, m.Name, cls.Bases, opts.DelegationRoot) {
					misplaced = i
					break
				}
			}

			findings = append(findings, Finding{
				Class:        cls,
				Method:       m,
				Effective:    stmts,
				MisplacedIdx: misplaced,
			})
		}
	}

	return findings
}
