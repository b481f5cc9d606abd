package compiler

import (
	"fmt"
	"regexp"
	"unicode/utf8"

	"github.com/playandogamer150-commits/vectra-ai-sub000/internal/catalog"
)

var lineSpaceRun = regexp.MustCompile(`[ \t]{2,}`)

// redact removes every case-insensitive occurrence of the profile's
// forbidden patterns. Removal can splice a new match together, so passes
// repeat until the text is clean; each pass that matches shortens it.
func redact(text string, profile *catalog.Profile) (string, []string) {
	var warnings []string
	warned := make(map[int]bool)

	for {
		dirty := false
		for i, re := range profile.Forbidden() {
			if !re.MatchString(text) {
				continue
			}
			dirty = true
			if !warned[i] {
				warned[i] = true
				warnings = append(warnings, fmt.Sprintf("forbidden pattern %q removed", profile.ForbiddenPatterns[i]))
			}
			text = re.ReplaceAllString(text, "")
		}
		if !dirty {
			return text, warnings
		}
		text = lineSpaceRun.ReplaceAllString(text, " ")
	}
}

// truncate cuts text to at most limit bytes, backing up to a rune boundary.
// It does not look for word boundaries. limit <= 0 disables the cap.
func truncate(text string, limit int) (string, []string) {
	if limit <= 0 || len(text) <= limit {
		return text, nil
	}
	n := limit
	for n > 0 && !utf8.RuneStart(text[n]) {
		n--
	}
	return text[:n], []string{fmt.Sprintf("prompt exceeded max length %d and was truncated from %d", limit, len(text))}
}

type selection struct {
	filter string
	value  string
}

type conflictRule struct {
	a, b    selection
	message string
}

// conflictRules lists filter combinations that contradict each other.
// Matches are reported; neither filter is dropped.
var conflictRules = []conflictRule{
	{
		a:       selection{"realism", "phone"},
		b:       selection{"camera_bias", "dslr"},
		message: "phone realism conflicts with DSLR camera bias",
	},
	{
		a:       selection{"realism", "dslr"},
		b:       selection{"camera_bias", "phone"},
		message: "DSLR realism conflicts with phone camera bias",
	},
	{
		a:       selection{"realism", "illustration"},
		b:       selection{"camera_bias", "cinema"},
		message: "illustration realism conflicts with cinema camera bias",
	},
	{
		a:       selection{"grade", "bw"},
		b:       selection{"lighting", "neon"},
		message: "black and white grade discards neon lighting color",
	},
	{
		a:       selection{"lens", "macro"},
		b:       selection{"camera_bias", "drone"},
		message: "macro lens conflicts with aerial drone shot",
	},
}

func detectConflicts(applied []appliedFilter) []string {
	chosen := make(map[string]string, len(applied))
	for _, f := range applied {
		chosen[f.key] = f.value
	}
	var warnings []string
	for _, r := range conflictRules {
		if chosen[r.a.filter] == r.a.value && chosen[r.b.filter] == r.b.value {
			warnings = append(warnings, "filter conflict: "+r.message)
		}
	}
	return warnings
}
