// Package redact removes sensitive variable references and assignment values
// from text before it is sent to a remote service.
package redact

import (
	"regexp"
	"sort"
	"strings"

	"mvdan.cc/sh/v3/syntax"
)

// safeVars are variables that prose commonly names (setup guides, chat about
// a terminal) and that carry no secret. Everything else is redacted.
var safeVars = map[string]bool{
	"HOME": true, "USER": true, "PWD": true, "PATH": true,
	"SHELL": true, "LANG": true, "TERM": true, "EDITOR": true,
	"TMPDIR": true,
}

// specialParams are shell special parameters that should not be redacted.
var specialParams = map[string]bool{
	"?": true, "!": true, "#": true, "@": true, "*": true,
	"-": true, "$": true, "_": true,
	"0": true, "1": true, "2": true, "3": true, "4": true,
	"5": true, "6": true, "7": true, "8": true, "9": true,
}

// span is a byte range of the input to replace.
type span struct {
	start, end int
	repl       string
}

// Text replaces sensitive $VAR / ${VAR} references with REDACTED and the
// values of NAME=value assignments with ***. Everything else is left
// byte-for-byte intact. Text that does not parse as shell falls back to
// regular expressions.
func Text(s string) string {
	if !strings.ContainsAny(s, "$=") {
		return s
	}

	parser := syntax.NewParser(syntax.Variant(syntax.LangBash), syntax.KeepComments(true))
	prog, err := parser.Parse(strings.NewReader(s), "")
	if err != nil {
		return regexRedact(s)
	}

	var spans []span
	syntax.Walk(prog, func(node syntax.Node) bool {
		switch n := node.(type) {
		case *syntax.ParamExp:
			if n.Param != nil && !safeVars[n.Param.Value] && !specialParams[n.Param.Value] {
				spans = append(spans, span{int(n.Param.Pos().Offset()), int(n.Param.End().Offset()), "REDACTED"})
			}
		case *syntax.Assign:
			if n.Name != nil && !safeVars[n.Name.Value] && n.Value != nil && len(n.Value.Parts) > 0 {
				spans = append(spans, span{int(n.Value.Pos().Offset()), int(n.Value.End().Offset()), "***"})
			}
		}
		return true
	})
	return splice(s, spans)
}

// splice applies non-overlapping spans; spans nested in an earlier one are dropped.
func splice(s string, spans []span) string {
	if len(spans) == 0 {
		return s
	}
	sort.SliceStable(spans, func(i, j int) bool {
		if spans[i].start != spans[j].start {
			return spans[i].start < spans[j].start
		}
		return spans[i].end > spans[j].end
	})

	var buf strings.Builder
	buf.Grow(len(s))
	last := 0
	for _, sp := range spans {
		if sp.start < last || sp.start > sp.end || sp.end > len(s) {
			continue
		}
		buf.WriteString(s[last:sp.start])
		buf.WriteString(sp.repl)
		last = sp.end
	}
	buf.WriteString(s[last:])
	return buf.String()
}

// Split redacts the text before and after cursor independently so the
// returned cursor still separates the same two halves.
func Split(text string, cursor int) (string, int) {
	if cursor < 0 {
		cursor = 0
	}
	if cursor > len(text) {
		cursor = len(text)
	}
	before := Text(text[:cursor])
	after := Text(text[cursor:])
	return before + after, len(before)
}

var (
	reBraceVar  = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)
	reSimpleVar = regexp.MustCompile(`\$([A-Za-z_][A-Za-z0-9_]*)`)
	reAssign    = regexp.MustCompile(`\b([A-Za-z_][A-Za-z0-9_]*)=(\S+)`)
)

// regexRedact is a fallback for text that fails shell parsing.
func regexRedact(s string) string {
	// ${VAR} → ${REDACTED}
	s = reBraceVar.ReplaceAllStringFunc(s, func(m string) string {
		name := reBraceVar.FindStringSubmatch(m)[1]
		if safeVars[name] || specialParams[name] {
			return m
		}
		return "${REDACTED}"
	})

	// $VAR → $REDACTED
	s = reSimpleVar.ReplaceAllStringFunc(s, func(m string) string {
		name := reSimpleVar.FindStringSubmatch(m)[1]
		if name == "REDACTED" { // already redacted by brace pass
			return m
		}
		if safeVars[name] || specialParams[name] {
			return m
		}
		return "$REDACTED"
	})

	// VAR=value → VAR=***
	s = reAssign.ReplaceAllStringFunc(s, func(m string) string {
		parts := reAssign.FindStringSubmatch(m)
		name := parts[1]
		if safeVars[name] {
			return m
		}
		return name + "=***"
	})

	return s
}
