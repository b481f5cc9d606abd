package compiler

import (
	"regexp"
	"strings"

	"github.com/playandogamer150-commits/vectra-ai-sub000/internal/catalog"
)

type renderedBlock struct {
	block *catalog.Block
	text  string
}

var (
	spaceRun = regexp.MustCompile(`[ \t]+`)
	commaRun = regexp.MustCompile(`\s*,(\s*,)*\s*`)
)

// renderBlock substitutes placeholders in the block template. Request
// fields win over filters; a filter fragment used here is marked consumed.
// Placeholders with no value are dropped.
func renderBlock(b *catalog.Block, fields, fragments map[string]string, consumed map[string]bool) string {
	out := catalog.PlaceholderPattern().ReplaceAllStringFunc(b.Template, func(tok string) string {
		name := tok[1 : len(tok)-1]
		if v, ok := fields[name]; ok {
			return v
		}
		if frag, ok := fragments[name]; ok {
			consumed[name] = true
			return frag
		}
		return ""
	})
	return tidy(out)
}

// tidy collapses the separators left behind by empty substitutions.
func tidy(s string) string {
	s = spaceRun.ReplaceAllString(s, " ")
	s = commaRun.ReplaceAllString(s, ", ")
	return strings.Trim(s, " ,")
}
