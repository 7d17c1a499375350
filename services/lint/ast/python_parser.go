// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package ast

import (
	"context"
	"fmt"
	"log/slog"
	"time"
	"unicode/utf8"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/python"
)

// Tree-sitter Python grammar node types the adapter consumes.
const (
	pyNodeClassDefinition     = "class_definition"
	pyNodeDecoratedDefinition = "decorated_definition"
	pyNodeFunctionDefinition  = "function_definition"
	pyNodeArgumentList        = "argument_list"
	pyNodeBlock               = "block"
	pyNodeExpressionStatement = "expression_statement"
	pyNodePassStatement       = "pass_statement"
	pyNodeIdentifier          = "identifier"
	pyNodeAttribute           = "attribute"
	pyNodeCall                = "call"
	pyNodeString              = "string"
	pyNodeComment             = "comment"
	pyNodeKeywordArgument     = "keyword_argument"
)

// maxWalkDepth bounds recursive tree walks against pathological nesting.
const maxWalkDepth = 200

// PythonParserOption configures a PythonParser instance.
type PythonParserOption func(*PythonParser)

// WithMaxFileSize sets the maximum file size the parser will accept.
//
// Parameters:
//   - bytes: Maximum file size in bytes. Must be positive.
func WithMaxFileSize(bytes int64) PythonParserOption {
	return func(p *PythonParser) {
		if bytes > 0 {
			p.maxFileSize = bytes
		}
	}
}

// PythonParser parses Python source into the lint model.
//
// Description:
//
//	PythonParser uses tree-sitter to parse Python source files and extract
//	class declarations with their base references and method bodies. Each
//	Parse call creates its own tree-sitter parser instance internally.
//
// Thread Safety:
//
//	PythonParser instances are safe for concurrent use. Multiple goroutines
//	may call Parse simultaneously on the same PythonParser instance.
type PythonParser struct {
	maxFileSize int64
}

// NewPythonParser creates a new PythonParser with the given options.
//
// Outputs:
//   - *PythonParser: Configured parser instance, never nil.
func NewPythonParser(opts ...PythonParserOption) *PythonParser {
	p := &PythonParser{
		maxFileSize: DefaultMaxFileSize,
	}

	for _, opt := range opts {
		opt(p)
	}

	return p
}

// Parse extracts class and method declarations from Python source code.
//
// Description:
//
//	Parse runs tree-sitter over the content and converts every class
//	declaration, at any nesting depth, into the lint model. Unlike the
//	error-tolerant extraction parsers, a tree containing syntax errors is
//	rejected: rewriting a file whose positions came from a broken tree
//	would corrupt it.
//
// Inputs:
//   - ctx: Context for cancellation. Checked before and after parsing.
//     Tree-sitter parsing itself cannot be interrupted mid-parse.
//   - content: Raw Python source bytes. Must be valid UTF-8.
//   - filePath: Path the content was read from, for reporting.
//
// Outputs:
//   - *Module: The parsed model. Nil on error.
//   - error: ErrFileTooLarge, ErrInvalidContent, ErrSyntax, or a context
//     error.
//
// Thread Safety:
//
//	This method is safe for concurrent use.
func (p *PythonParser) Parse(ctx context.Context, content []byte, filePath string) (*Module, error) {
	ctx, span := startParseSpan(ctx, filePath, len(content))
	defer span.End()

	start := time.Now()

	fail := func(err error) (*Module, error) {
		setParseSpanResult(span, 0, err)
		recordParseMetrics(time.Since(start), false)
		return nil, err
	}

	if err := ctx.Err(); err != nil {
		return fail(fmt.Errorf("parse canceled before start: %w", err))
	}

	if int64(len(content)) > p.maxFileSize {
		return fail(fmt.Errorf("%w: size %d exceeds limit %d", ErrFileTooLarge, len(content), p.maxFileSize))
	}

	if len(content) > WarnFileSize {
		slog.Warn("parsing large file",
			slog.String("file", filePath),
			slog.Int("size_bytes", len(content)))
	}

	if !utf8.Valid(content) {
		return fail(fmt.Errorf("%w: content is not valid UTF-8", ErrInvalidContent))
	}

	// New tree-sitter parser per call for thread safety.
	parser := sitter.NewParser()
	parser.SetLanguage(python.GetLanguage())

	tree, err := parser.ParseCtx(ctx, nil, content)
	if err != nil {
		return fail(fmt.Errorf("tree-sitter parse failed: %w", err))
	}
	defer tree.Close()

	if err := ctx.Err(); err != nil {
		return fail(fmt.Errorf("parse canceled after tree-sitter: %w", err))
	}

	root := tree.RootNode()
	if root == nil {
		return fail(fmt.Errorf("%w: tree-sitter returned nil root node", ErrSyntax))
	}
	if root.HasError() {
		return fail(fmt.Errorf("%w: source contains invalid syntax", ErrSyntax))
	}

	mod := &Module{
		FilePath: filePath,
		Classes:  make([]*Class, 0),
	}
	p.collectClasses(root, content, mod, 0)

	setParseSpanResult(span, len(mod.Classes), nil)
	recordParseMetrics(time.Since(start), true)

	return mod, nil
}

// Language returns the canonical language name for this parser.
func (p *PythonParser) Language() string {
	return "python"
}

// Extensions returns the file extensions this parser handles.
func (p *PythonParser) Extensions() []string {
	return []string{".py", ".pyi"}
}

// collectClasses walks the whole tree and converts every class definition,
// including classes nested in other classes, functions, or conditionals.
func (p *PythonParser) collectClasses(node *sitter.Node, content []byte, mod *Module, depth int) {
	if node == nil || depth > maxWalkDepth {
		return
	}
	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		if child == nil {
			continue
		}
		if child.Type() == pyNodeClassDefinition {
			if cls := p.convertClass(child, content); cls != nil {
				mod.Classes = append(mod.Classes, cls)
			}
		}
		// Recurse unconditionally: nested classes qualify too.
		p.collectClasses(child, content, mod, depth+1)
	}
}

// convertClass converts a class_definition node.
func (p *PythonParser) convertClass(node *sitter.Node, content []byte) *Class {
	var name string
	var bases []Expr
	var bodyNode *sitter.Node

	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		switch child.Type() {
		case pyNodeIdentifier:
			if name == "" {
				name = string(content[child.StartByte():child.EndByte()])
			}
		case pyNodeArgumentList:
			bases = p.convertBaseList(child, content)
		case pyNodeBlock:
			bodyNode = child
		}
	}

	if name == "" {
		return nil
	}

	cls := &Class{
		Name:      name,
		StartLine: int(node.StartPoint().Row + 1),
		EndLine:   int(node.EndPoint().Row + 1),
		Bases:     bases,
		Methods:   make([]*Method, 0),
	}

	if bodyNode != nil {
		for i := 0; i < int(bodyNode.ChildCount()); i++ {
			child := bodyNode.Child(i)
			switch child.Type() {
			case pyNodeFunctionDefinition:
				if m := p.convertMethod(child, content); m != nil {
					cls.Methods = append(cls.Methods, m)
				}
			case pyNodeDecoratedDefinition:
				// Decorated methods: unwrap to the function_definition.
				for j := 0; j < int(child.ChildCount()); j++ {
					def := child.Child(j)
					if def.Type() == pyNodeFunctionDefinition {
						if m := p.convertMethod(def, content); m != nil {
							cls.Methods = append(cls.Methods, m)
						}
						break
					}
				}
			}
		}
	}

	return cls
}

// convertBaseList converts an argument_list of base references. Keyword
// arguments (metaclass=..., etc.) are not base references and are skipped.
func (p *PythonParser) convertBaseList(node *sitter.Node, content []byte) []Expr {
	bases := make([]Expr, 0, node.NamedChildCount())
	for i := 0; i < int(node.NamedChildCount()); i++ {
		arg := node.NamedChild(i)
		if arg == nil {
			continue
		}
		switch arg.Type() {
		case pyNodeComment, pyNodeKeywordArgument:
			continue
		default:
			bases = append(bases, p.convertExpr(arg, content, 0))
		}
	}
	return bases
}

// convertMethod converts a function_definition node into a Method.
func (p *PythonParser) convertMethod(node *sitter.Node, content []byte) *Method {
	var name string
	var bodyNode *sitter.Node

	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		switch child.Type() {
		case pyNodeIdentifier:
			if name == "" {
				name = string(content[child.StartByte():child.EndByte()])
			}
		case pyNodeBlock:
			bodyNode = child
		}
	}

	if name == "" {
		return nil
	}

	m := &Method{
		Name:      name,
		StartLine: int(node.StartPoint().Row + 1),
		EndLine:   int(node.EndPoint().Row + 1),
		Body:      make([]Statement, 0),
	}

	if bodyNode != nil {
		for i := 0; i < int(bodyNode.ChildCount()); i++ {
			child := bodyNode.Child(i)
			if child.Type() == pyNodeComment {
				continue
			}
			m.Body = append(m.Body, p.convertStatement(child, content))
		}
	}

	return m
}

// convertStatement converts one body statement node.
func (p *PythonParser) convertStatement(node *sitter.Node, content []byte) Statement {
	stmt := Statement{
		StartLine: int(node.StartPoint().Row + 1),
		EndLine:   int(node.EndPoint().Row + 1),
		Indent:    int(node.StartPoint().Column),
		Kind:      StatementOther,
	}

	switch node.Type() {
	case pyNodePassStatement:
		stmt.Kind = StatementPass
	case pyNodeExpressionStatement:
		stmt.Kind = StatementExpression
		if node.NamedChildCount() > 0 {
			expr := node.NamedChild(0)
			if expr.Type() == pyNodeString {
				stmt.IsString = true
			}
			stmt.Expr = p.convertExpr(expr, content, 0)
		}
	}

	return stmt
}

// convertExpr reduces an expression node to the lint model. Anything the
// recognizer cannot match structurally becomes an OpaqueExpr.
func (p *PythonParser) convertExpr(node *sitter.Node, content []byte, depth int) Expr {
	if node == nil || depth > maxWalkDepth {
		return &OpaqueExpr{}
	}

	switch node.Type() {
	case pyNodeIdentifier:
		return &NameExpr{ID: string(content[node.StartByte():node.EndByte()])}
	case pyNodeAttribute:
		obj := node.ChildByFieldName("object")
		attr := node.ChildByFieldName("attribute")
		if obj == nil || attr == nil {
			return &OpaqueExpr{Text: string(content[node.StartByte():node.EndByte()])}
		}
		return &AttributeExpr{
			Value: p.convertExpr(obj, content, depth+1),
			Attr:  string(content[attr.StartByte():attr.EndByte()]),
		}
	case pyNodeCall:
		fn := node.ChildByFieldName("function")
		if fn == nil {
			return &OpaqueExpr{Text: string(content[node.StartByte():node.EndByte()])}
		}
		numArgs := 0
		if args := node.ChildByFieldName("arguments"); args != nil {
			for i := 0; i < int(args.NamedChildCount()); i++ {
				if c := args.NamedChild(i); c != nil && c.Type() != pyNodeComment {
					numArgs++
				}
			}
		}
		return &CallExpr{
			Func:    p.convertExpr(fn, content, depth+1),
			NumArgs: numArgs,
		}
	default:
		return &OpaqueExpr{Text: string(content[node.StartByte():node.EndByte()])}
	}
}
