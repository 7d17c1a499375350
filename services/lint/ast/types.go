// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package ast adapts tree-sitter parse trees into the small positioned
// model the lint components operate on: classes, their base references,
// their methods, and each method's body statements.
//
// The model is deliberately syntactic. Expressions are reduced to the
// shapes the super-call recognizer needs (names, attribute accesses,
// calls); everything else collapses into OpaqueExpr and can never match
// a delegation form. No name resolution or type information is involved.
package ast

import "errors"

// Sentinel errors returned by Parser.Parse.
var (
	// ErrFileTooLarge indicates the content exceeds the parser's size limit.
	ErrFileTooLarge = errors.New("file too large")

	// ErrInvalidContent indicates the content is not valid UTF-8.
	ErrInvalidContent = errors.New("invalid content")

	// ErrSyntax indicates the source could not be parsed cleanly. The tool
	// reports the file and moves on; it never analyzes a broken tree.
	ErrSyntax = errors.New("syntax error")
)

const (
	// DefaultMaxFileSize is the default maximum file size (10MB).
	DefaultMaxFileSize = 10 * 1024 * 1024

	// WarnFileSize is the threshold for logging a large-file warning (1MB).
	WarnFileSize = 1024 * 1024
)

// Expr is a structurally-matched expression. Implementations are
// NameExpr, AttributeExpr, CallExpr, and OpaqueExpr.
type Expr interface {
	isExpr()
}

// NameExpr is a bare identifier, e.g. "TestCase" or "super".
type NameExpr struct {
	// ID is the identifier text.
	ID string
}

// AttributeExpr is a dotted access, e.g. "unittest.TestCase" where Value
// is NameExpr{"unittest"} and Attr is "TestCase".
type AttributeExpr struct {
	// Value is the expression left of the final dot.
	Value Expr

	// Attr is the identifier right of the final dot.
	Attr string
}

// CallExpr is an invocation. Only the callee shape and the argument count
// matter for delegation matching; argument expressions are not retained.
type CallExpr struct {
	// Func is the called expression (NameExpr, AttributeExpr, ...).
	Func Expr

	// NumArgs is the number of arguments at the call site.
	NumArgs int
}

// OpaqueExpr is any expression the lint model does not need to take
// apart. It never matches a name, a base reference, or a delegation.
type OpaqueExpr struct {
	// Text is the raw source text, kept for diagnostics only.
	Text string
}

func (*NameExpr) isExpr()      {}
func (*AttributeExpr) isExpr() {}
func (*CallExpr) isExpr()      {}
func (*OpaqueExpr) isExpr()    {}

// StatementKind classifies a body statement coarsely.
type StatementKind int

const (
	// StatementOther is any statement that is neither a pass nor a bare
	// expression (assignments, returns, loops, nested definitions, ...).
	StatementOther StatementKind = iota

	// StatementPass is the no-op placeholder statement.
	StatementPass

	// StatementExpression is a standalone expression statement.
	StatementExpression
)

// Statement is one statement of a method body with its source span.
type Statement struct {
	// StartLine is the 1-indexed first line of the statement.
	StartLine int

	// EndLine is the 1-indexed last line of the statement, inclusive.
	EndLine int

	// Indent is the byte column of the statement's first token.
	Indent int

	// Kind is the coarse statement classification.
	Kind StatementKind

	// Expr is the statement's expression when Kind is
	// StatementExpression; nil otherwise.
	Expr Expr

	// IsString reports whether the statement is a standalone
	// string-literal expression (a documentation statement).
	IsString bool
}

// Method is a named function declared directly in a class body.
type Method struct {
	// Name is the method identifier.
	Name string

	// StartLine and EndLine are the method's 1-indexed source span.
	StartLine int
	EndLine   int

	// Body is the method's statements in declaration order. Comments are
	// not statements and never appear here.
	Body []Statement
}

// Class is a class declaration with its base references and methods.
type Class struct {
	// Name is the class identifier.
	Name string

	// StartLine and EndLine are the class's 1-indexed source span.
	StartLine int
	EndLine   int

	// Bases are the declared base references in declaration order.
	// Keyword arguments in the base list (metaclass=..., etc.) are not
	// base references and are excluded.
	Bases []Expr

	// Methods are the class's directly declared methods in declaration
	// order, decorated or not.
	Methods []*Method
}

// Module is the parsed view of one source file.
type Module struct {
	// FilePath is the path the content was parsed as.
	FilePath string

	// Classes are all class declarations in the file, top-to-bottom,
	// including classes nested inside other classes or functions.
	Classes []*Class
}
