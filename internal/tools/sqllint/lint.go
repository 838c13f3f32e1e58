package main

import (
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"regexp"
	"strconv"
	"strings"
)

var (
	// A literal counts as SQL when, after any leading comment lines, it opens
	// with a full statement head. A keyword alone is not enough.
	sqlStatementPattern = regexp.MustCompile(`(?is)^\s*(--[^\n]*\n\s*)*(` +
		`select\s.+?\sfrom\s|insert\s+into\s|update\s+\S+\s+set\s|delete\s+from\s|` +
		`create\s+(table|(unique\s+)?index)\s|alter\s+table\s|drop\s+(table|index)\s|with\s+\w+\s+as\s*\()`)
	// Anything already carrying a label is checked even if its body is unusual.
	labelledPattern = regexp.MustCompile(`^\s*-- name:`)
	labelPattern    = regexp.MustCompile(`^-- name: ([a-z][a-z0-9_]*)$`)
)

type violation struct {
	file    string
	line    int
	message string
}

type linter struct {
	seen       map[string]string
	violations []violation
}

func newLinter() *linter {
	return &linter{seen: map[string]string{}}
}

func (l *linter) lintFile(path string) error {
	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, path, nil, 0)
	if err != nil {
		return err
	}
	ast.Inspect(file, func(n ast.Node) bool {
		bl, ok := n.(*ast.BasicLit)
		if !ok || bl.Kind != token.STRING {
			return true
		}
		raw, err := unquote(bl.Value)
		if err != nil || !(sqlStatementPattern.MatchString(raw) || labelledPattern.MatchString(raw)) {
			return true
		}
		pos := fset.Position(bl.Pos())
		where := fmt.Sprintf("%s:%d", path, pos.Line)
		m := labelPattern.FindStringSubmatch(firstLine(raw))
		if m == nil {
			l.violations = append(l.violations, violation{file: path, line: pos.Line, message: `missing or invalid "-- name: snake_case" label`})
			return true
		}
		if prev, dup := l.seen[m[1]]; dup {
			l.violations = append(l.violations, violation{file: path, line: pos.Line, message: fmt.Sprintf("label %q already used at %s", m[1], prev)})
			return true
		}
		l.seen[m[1]] = where
		return true
	})
	return nil
}

func firstLine(s string) string {
	s = strings.TrimLeft(s, "\n\r \t")
	if idx := strings.IndexAny(s, "\n\r"); idx >= 0 {
		return strings.TrimSpace(s[:idx])
	}
	return strings.TrimSpace(s)
}

func unquote(v string) (string, error) {
	if len(v) == 0 {
		return v, nil
	}
	if v[0] == '`' {
		return v[1 : len(v)-1], nil
	}
	return strconv.Unquote(v)
}
