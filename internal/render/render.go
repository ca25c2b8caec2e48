// Package render turns AST nodes, bytecode programs, and numeric results
// into human-readable text: infix expressions, indented trees, caret
// diagrams for syntax errors, and disassembly tables.
package render

import (
	"fmt"
	"strings"

	"github.com/dekarrin/rosed"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"

	"github.com/dekarrin/mathexpr/ast"
)

var numberPrinter = message.NewPrinter(language.English)

// FormatNumber renders v with thousands grouping and up to 6 significant
// fraction digits, used wherever a Real crosses into a human-facing
// surface (REPL output, HTTP responses).
func FormatNumber(v ast.Real) string {
	return numberPrinter.Sprint(number.Decimal(v, number.MaxFractionDigits(6)))
}

// FormatInfix renders n as an infix expression, per §6's format(fn)
// capability.
func FormatInfix(n ast.Node) string {
	var sb strings.Builder
	writeInfix(&sb, n)
	return sb.String()
}

func writeInfix(sb *strings.Builder, n ast.Node) {
	switch v := n.(type) {
	case ast.EmptyNode:
		sb.WriteString("<empty>")
	case ast.NumberNode:
		fmt.Fprintf(sb, "%g", v.Value)
	case ast.RefNode:
		sb.WriteString(v.String())
	case ast.ArrayRefNode:
		sb.WriteString(v.String())
	case ast.SymbolNode:
		sb.WriteString(v.Name)
	case ast.LocalVarNode:
		sb.WriteString(v.String())
	case ast.UnaryOpNode:
		sb.WriteString(v.Op.Symbol())
		writeInfixChild(sb, v.Child)
	case ast.BinaryOpNode:
		writeInfixChild(sb, v.Left)
		sb.WriteString(" " + v.Op.Symbol() + " ")
		writeInfixChild(sb, v.Right)
	case ast.MultinaryNode:
		for i, c := range v.Items {
			if i > 0 {
				sb.WriteString(" " + v.Op.Symbol() + " ")
			}
			writeInfixChild(sb, c)
		}
	case ast.UnaryFuncNode:
		sb.WriteString(v.Fn.Symbol() + "(")
		writeInfix(sb, v.Child)
		sb.WriteString(")")
	case ast.BinaryFuncNode:
		sb.WriteString(v.Fn.Symbol() + "(")
		writeInfix(sb, v.Left)
		sb.WriteString(", ")
		writeInfix(sb, v.Right)
		sb.WriteString(")")
	case ast.ConditionalNode:
		sb.WriteString("if(")
		writeInfix(sb, v.Cond)
		sb.WriteString(", ")
		writeInfix(sb, v.Then)
		sb.WriteString(", ")
		writeInfix(sb, v.Else)
		sb.WriteString(")")
	case ast.IntPowerNode:
		writeInfixChild(sb, v.Child)
		fmt.Fprintf(sb, "^%d", v.Exponent)
	default:
		sb.WriteString(n.String())
	}
}

func writeInfixChild(sb *strings.Builder, n ast.Node) {
	needsParens := n.Kind() == ast.KindBinaryOp || n.Kind() == ast.KindMultinary
	if needsParens {
		sb.WriteString("(")
	}
	writeInfix(sb, n)
	if needsParens {
		sb.WriteString(")")
	}
}

// FormatTree renders n as an indented tree dump, per §6's format_tree(fn)
// capability.
func FormatTree(n ast.Node) string {
	var sb strings.Builder
	writeTree(&sb, n, 0)
	return sb.String()
}

func writeTree(sb *strings.Builder, n ast.Node, depth int) {
	sb.WriteString(strings.Repeat("  ", depth))
	sb.WriteString(n.String())
	sb.WriteString("\n")
	for _, c := range n.Children() {
		writeTree(sb, c, depth+1)
	}
}

// CaretDiagram renders a two-line caret diagram pointing at byte offset pos
// (0-indexed) in source, followed by msg, grounded on
// internal/tunascript/error.go's SourceLineWithCursor.
func CaretDiagram(source string, pos int, msg string) string {
	cursor := strings.Repeat(" ", pos) + "^"
	return source + "\n" + cursor + "\n" + msg
}

// DisassemblyTable renders rows of {address, opcode, operand} as a
// rosed-backed fixed-width table, grounded on
// internal/tunascript/parser.go:404's rosed.InsertTableOpts idiom.
func DisassemblyTable(rows [][]string) string {
	header := []string{"addr", "op", "operand"}
	data := append([][]string{header}, rows...)
	return rosed.Edit("").
		InsertTableOpts(0, data, 80, rosed.Options{
			TableHeaders:             true,
			NoTrailingLineSeparators: true,
		}).
		String()
}
