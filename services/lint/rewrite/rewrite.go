// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package rewrite turns findings into line-accurate in-place edits.
//
// The file is modeled as an ordered sequence of lines, each keeping its
// own terminator, so CRLF files survive editing with their conventions
// intact. Every edit is computed against original line numbers; edits
// are applied strictly bottom-to-top so an edit never sees indices
// shifted by a later (higher-numbered) one.
package rewrite

import (
	"bytes"
	"sort"
	"strings"

	"github.com/AleutianAI/fixturelint/services/lint/ast"
	"github.com/AleutianAI/fixturelint/services/lint/check"
)

// Result summarizes the edits applied to one file.
type Result struct {
	// Relocated counts delegation statements moved to the method end.
	Relocated int

	// Inserted counts synthesized delegation calls added to methods that
	// had none.
	Inserted int
}

// Modified reports whether any edit was applied.
func (r Result) Modified() bool {
	return r.Relocated+r.Inserted > 0
}

// Apply fixes every finding in source and returns the rewritten buffer.
//
// A finding with an existing misplaced delegation is fixed by relocation:
// its statement's line range is removed and re-inserted, unchanged,
// directly after the method's last effective statement. A finding with no
// delegation gets a freshly synthesized zero-arg call at the method's
// indentation. Findings are processed in descending method start line so
// each edit's line numbers stay valid relative to the edits not yet
// applied.
//
// Fixing is idempotent: re-analyzing the returned buffer yields no
// findings for the affected methods.
func Apply(source []byte, findings []check.Finding, delegationRoot string) ([]byte, Result) {
	var res Result
	if len(findings) == 0 {
		return source, res
	}

	lines := SplitLines(source)

	ordered := make([]check.Finding, len(findings))
	copy(ordered, findings)
	sort.Slice(ordered, func(i, j int) bool {
		return ordered[i].Method.StartLine > ordered[j].Method.StartLine
	})

	for _, f := range ordered {
		last := f.Effective[len(f.Effective)-1]

		if f.MisplacedIdx >= 0 {
			lines = relocate(lines, f.Effective[f.MisplacedIdx], last)
			res.Relocated++
		} else {
			indent := strings.Repeat(" ", last.Indent)
			call := indent + delegationRoot + "()." + f.Method.Name + "()"
			lines = insertAfter(lines, last.EndLine, []byte(call))
			res.Inserted++
		}
	}

	return bytes.Join(lines, nil), res
}

// relocate removes the misplaced statement's line span and re-inserts it,
// unchanged, after the last effective statement. Both statements carry
// original line numbers; the misplaced one always precedes the last one
// in the body, so the re-insertion point shifts up by the height of the
// deleted span.
func relocate(lines [][]byte, misplaced, last ast.Statement) [][]byte {
	start := misplaced.StartLine - 1 // 0-indexed
	end := misplaced.EndLine         // exclusive

	moved := make([][]byte, end-start)
	copy(moved, lines[start:end])

	rest := make([][]byte, 0, len(lines)-len(moved))
	rest = append(rest, lines[:start]...)
	rest = append(rest, lines[end:]...)

	offset := end - start
	lastIdx := last.EndLine - 1 - offset
	rest[lastIdx] = ensureTerminated(rest, lastIdx)

	return spliceLines(rest, lastIdx+1, moved)
}

// insertAfter inserts one new line (without terminator) after the given
// 1-indexed line, terminating both as needed.
func insertAfter(lines [][]byte, afterLine int, text []byte) [][]byte {
	idx := afterLine // 0-indexed position after that line
	lines[idx-1] = ensureTerminated(lines, idx-1)

	line := append(append([]byte{}, text...), terminatorFor(lines, idx-1)...)
	return spliceLines(lines, idx, [][]byte{line})
}

// spliceLines inserts the given lines at index i.
func spliceLines(lines [][]byte, i int, insert [][]byte) [][]byte {
	out := make([][]byte, 0, len(lines)+len(insert))
	out = append(out, lines[:i]...)
	out = append(out, insert...)
	out = append(out, lines[i:]...)
	return out
}

// ensureTerminated returns lines[idx] with a line terminator appended if
// it lacks one (only possible on the final line of the buffer).
func ensureTerminated(lines [][]byte, idx int) []byte {
	line := lines[idx]
	if bytes.HasSuffix(line, []byte("\n")) {
		return line
	}
	return append(append([]byte{}, line...), terminatorFor(lines, idx)...)
}

// terminatorFor picks the line terminator in effect at idx: the nearest
// preceding terminated line decides between "\r\n" and "\n", defaulting
// to "\n" for a file with no terminated line at all.
func terminatorFor(lines [][]byte, idx int) []byte {
	for i := idx; i >= 0; i-- {
		if bytes.HasSuffix(lines[i], []byte("\r\n")) {
			return []byte("\r\n")
		}
		if bytes.HasSuffix(lines[i], []byte("\n")) {
			return []byte("\n")
		}
	}
	return []byte("\n")
}

// SplitLines splits source into lines, each keeping its terminator. The
// concatenation of the result is byte-identical to the input.
func SplitLines(source []byte) [][]byte {
	var lines [][]byte
	for len(source) > 0 {
		i := bytes.IndexByte(source, '\n')
		if i < 0 {
			lines = append(lines, source)
			break
		}
		lines = append(lines, source[:i+1])
		source = source[i+1:]
	}
	return lines
}
