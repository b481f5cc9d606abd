package compiler

import (
	"fmt"
	"strings"

	"github.com/playandogamer150-commits/vectra-ai-sub000/internal/catalog"
)

// Adapter is a trained style artifact to blend into a compile.
type Adapter struct {
	VersionID     string   `json:"version_id"`
	Name          string   `json:"name"`
	TriggerWord   string   `json:"trigger_word,omitempty"`
	Weight        float64  `json:"weight"`
	ArtifactURL   string   `json:"artifact_url"`
	PreviewImages []string `json:"preview_images,omitempty"`
}

// Tag returns the inline adapter syntax, e.g. <lora:my_style:0.80>.
func (a *Adapter) Tag() string {
	return fmt.Sprintf("<lora:%s:%.2f>", tagName(a.Name), a.Weight)
}

// Inline returns the text injected for adapter-capable profiles.
func (a *Adapter) Inline() string {
	if t := strings.TrimSpace(a.TriggerWord); t != "" {
		return a.Tag() + " " + t
	}
	return a.Tag()
}

func tagName(name string) string {
	name = strings.TrimSpace(strings.ToLower(name))
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	if b.Len() == 0 {
		return "adapter"
	}
	return b.String()
}

// CharacterPack describes an adapter's intended effect in plain text for
// renderers that cannot load the artifact.
type CharacterPack struct {
	Name            string   `json:"name"`
	TriggerWord     string   `json:"trigger_word,omitempty"`
	Strength        float64  `json:"strength"`
	Subject         string   `json:"subject,omitempty"`
	StyleTraits     []string `json:"style_traits,omitempty"`
	CameraTraits    []string `json:"camera_traits,omitempty"`
	FilterTraits    []string `json:"filter_traits,omitempty"`
	ReferenceImages []string `json:"reference_images,omitempty"`
	Description     string   `json:"description"`
}

// buildCharacterPack describes the adapter for a profile that cannot load
// it. The pack goes to the same renderer as the prompt, so every text field
// passes the profile's forbidden patterns too.
func buildCharacterPack(a *Adapter, req Request, blocks []renderedBlock, filters []appliedFilter, profile *catalog.Profile) (*CharacterPack, []string) {
	sc := scrubber{profile: profile, seen: map[string]bool{}}
	pack := &CharacterPack{
		Name:            sc.clean(a.Name),
		TriggerWord:     sc.clean(a.TriggerWord),
		Strength:        a.Weight,
		Subject:         sc.clean(req.Subject),
		ReferenceImages: append([]string(nil), a.PreviewImages...),
	}
	for _, rb := range blocks {
		text := sc.clean(rb.text)
		if text == "" {
			continue
		}
		switch rb.block.Type {
		case catalog.BlockStyle, catalog.BlockPostFX:
			pack.StyleTraits = append(pack.StyleTraits, text)
		case catalog.BlockCamera, catalog.BlockLayout:
			pack.CameraTraits = append(pack.CameraTraits, text)
		}
	}
	for _, f := range filters {
		if text := sc.clean(f.fragment); text != "" {
			pack.FilterTraits = append(pack.FilterTraits, text)
		}
	}

	var d strings.Builder
	fmt.Fprintf(&d, "Recurring character %q", pack.Name)
	if pack.TriggerWord != "" {
		fmt.Fprintf(&d, " (%s)", pack.TriggerWord)
	}
	if pack.Subject != "" {
		fmt.Fprintf(&d, " appearing as %s", pack.Subject)
	}
	d.WriteString(".")
	if len(pack.StyleTraits) > 0 {
		fmt.Fprintf(&d, " Keep the look: %s.", strings.Join(pack.StyleTraits, "; "))
	}
	if len(pack.CameraTraits) > 0 {
		fmt.Fprintf(&d, " Framing: %s.", strings.Join(pack.CameraTraits, "; "))
	}
	if len(pack.ReferenceImages) > 0 {
		fmt.Fprintf(&d, " Match the %d reference images", len(pack.ReferenceImages))
		fmt.Fprintf(&d, " at about %.0f%% strength.", a.Weight*100)
	} else {
		fmt.Fprintf(&d, " Apply the character at about %.0f%% strength.", a.Weight*100)
	}
	pack.Description = sc.clean(d.String())
	return pack, sc.warnings
}

// scrubber redacts pack fields and reports each forbidden pattern once.
type scrubber struct {
	profile  *catalog.Profile
	seen     map[string]bool
	warnings []string
}

func (s *scrubber) clean(text string) string {
	out, hits := redact(text, s.profile)
	for _, w := range hits {
		if !s.seen[w] {
			s.seen[w] = true
			s.warnings = append(s.warnings, w+" from character pack")
		}
	}
	return strings.TrimSpace(out)
}
