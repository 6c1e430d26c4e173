package extract

import (
	"strings"

	"mvdan.cc/sh/v3/syntax"
)

// maxShellSource bounds the input NormalizeShell will parse.
const maxShellSource = 64 << 10

// NormalizeShell parses src as a bash program and reprints it with quoting
// removed from every word built only from literal parts, so `r"m" -'rf' /`
// becomes `rm -rf /`. Expansions and substitutions are kept as written.
// ok is false when src does not parse.
func NormalizeShell(src string) (string, bool) {
	if len(src) > maxShellSource {
		return "", false
	}
	parser := syntax.NewParser(syntax.KeepComments(false), syntax.Variant(syntax.LangBash))
	file, err := parser.Parse(strings.NewReader(src), "")
	if err != nil {
		return "", false
	}

	syntax.Walk(file, func(node syntax.Node) bool {
		if w, ok := node.(*syntax.Word); ok {
			if lit, ok := literalWord(w); ok {
				w.Parts = []syntax.WordPart{&syntax.Lit{ValuePos: w.Pos(), ValueEnd: w.End(), Value: lit}}
			}
		}
		return true
	})

	var sb strings.Builder
	if err := syntax.NewPrinter().Print(&sb, file); err != nil {
		return "", false
	}
	return strings.TrimSpace(sb.String()), true
}

// literalWord concatenates a word made only of literals and quoted literals.
func literalWord(w *syntax.Word) (string, bool) {
	var sb strings.Builder
	for _, part := range w.Parts {
		switch p := part.(type) {
		case *syntax.Lit:
			sb.WriteString(p.Value)
		case *syntax.SglQuoted:
			sb.WriteString(p.Value)
		case *syntax.DblQuoted:
			for _, inner := range p.Parts {
				lit, ok := inner.(*syntax.Lit)
				if !ok {
					return "", false
				}
				sb.WriteString(lit.Value)
			}
		default:
			return "", false
		}
	}
	return sb.String(), true
}
