package persona

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/samber/lo"
)

// Character is one entry of the character catalog
type Character struct {
	ID             string   `json:"id"`
	Name           string   `json:"name"`
	Title          string   `json:"title,omitempty"`
	Series         string   `json:"series,omitempty"`
	Image          string   `json:"image,omitempty"`
	Description    string   `json:"description,omitempty"`
	Tags           []string `json:"tags,omitempty"`
	Greeting       string   `json:"greeting,omitempty"`
	Personality    []string `json:"personality,omitempty"`
	Responses      []string `json:"responses,omitempty"`
	GlossarySeries string   `json:"glossary_series,omitempty"`
	Aliases        []string `json:"aliases,omitempty"`
	LookupNames    []string `json:"lookup_names,omitempty"`
}

// glossaryDoc is the part of a reference document used for linkage
type glossaryDoc struct {
	Characters map[string]glossaryCharacter `json:"characters"`
}

type glossaryCharacter struct {
	English           string         `json:"english"`
	Name              string         `json:"name"`
	NameVariants      map[string]any `json:"name_variants"`
	PersonalityTraits []any          `json:"personality_traits"`
}

type glossaryHit struct {
	series    string
	character glossaryCharacter
}

// Catalog is an immutable lookup table of characters and their reference documents
type Catalog struct {
	chars      []Character
	byID       map[string]int
	byAlias    map[string]int
	byName     map[string]int
	glossaries map[string]string
}

// LoadCatalog reads the character document at catalogPath (built-in set when empty)
// and every *.json reference document in glossaryDir (none when empty or missing).
func LoadCatalog(catalogPath, glossaryDir string, log *slog.Logger) (*Catalog, error) {
	chars := builtinCharacters()
	if catalogPath != "" {
		raw, err := os.ReadFile(catalogPath)
		if err != nil {
			return nil, fmt.Errorf("read catalog: %w", err)
		}
		chars = nil
		if err := json.Unmarshal(raw, &chars); err != nil {
			return nil, fmt.Errorf("decode catalog %s: %w", catalogPath, err)
		}
	}

	glossaries := map[string][]byte{}
	if glossaryDir != "" {
		paths, err := filepath.Glob(filepath.Join(glossaryDir, "*.json"))
		if err != nil {
			return nil, fmt.Errorf("scan glossaries: %w", err)
		}
		for _, path := range paths {
			raw, err := os.ReadFile(path)
			if err != nil {
				log.Warn("failed to read glossary", "path", path, "error", err)
				continue
			}
			key := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
			glossaries[key] = raw
		}
	}

	c := NewCatalog(chars, glossaries, log)
	log.Info("character catalog loaded", "characters", len(c.chars), "glossaries", len(c.glossaries))
	return c, nil
}

// NewCatalog builds the lookup table and links each character to a reference document once
func NewCatalog(chars []Character, glossaries map[string][]byte, log *slog.Logger) *Catalog {
	c := &Catalog{
		chars:      make([]Character, 0, len(chars)),
		byID:       make(map[string]int, len(chars)),
		byAlias:    make(map[string]int),
		byName:     make(map[string]int, len(chars)),
		glossaries: make(map[string]string, len(glossaries)),
	}

	docs := map[string]glossaryDoc{}
	for key, raw := range glossaries {
		var doc glossaryDoc
		if err := json.Unmarshal(raw, &doc); err != nil {
			log.Warn("skipping invalid glossary", "series", key, "error", err)
			continue
		}
		var compact bytes.Buffer
		if err := json.Compact(&compact, raw); err != nil {
			continue
		}
		docs[key] = doc
		c.glossaries[key] = compact.String()
	}
	index := indexGlossaries(docs)
	seriesKeys := lo.Keys(c.glossaries)
	slices.Sort(seriesKeys)

	for _, ch := range chars {
		if ch.ID == "" || ch.Name == "" {
			continue
		}
		if _, dup := c.byID[ch.ID]; dup {
			continue
		}
		ch = link(ch, index, seriesKeys)

		i := len(c.chars)
		c.chars = append(c.chars, ch)
		c.byID[ch.ID] = i
		c.byName[strings.ToLower(ch.Name)] = i
		for _, a := range ch.Aliases {
			c.byAlias[strings.ToLower(a)] = i
		}
	}
	return c
}

// indexGlossaries maps every lower-cased character name and name variant to its entry.
// Series keys are visited in sorted order so the first match wins deterministically.
func indexGlossaries(docs map[string]glossaryDoc) map[string]glossaryHit {
	index := map[string]glossaryHit{}
	add := func(name string, hit glossaryHit) {
		name = strings.ToLower(strings.TrimSpace(name))
		if name == "" {
			return
		}
		if _, taken := index[name]; !taken {
			index[name] = hit
		}
	}

	series := lo.Keys(docs)
	slices.Sort(series)
	for _, s := range series {
		keys := lo.Keys(docs[s].Characters)
		slices.Sort(keys)
		for _, k := range keys {
			gc := docs[s].Characters[k]
			hit := glossaryHit{series: s, character: gc}
			add(gc.English, hit)
			add(gc.Name, hit)
		}
	}
	// Variants rank below primary names.
	for _, s := range series {
		keys := lo.Keys(docs[s].Characters)
		slices.Sort(keys)
		for _, k := range keys {
			gc := docs[s].Characters[k]
			for _, v := range gc.NameVariants {
				if name, ok := v.(string); ok {
					add(name, glossaryHit{series: s, character: gc})
				}
			}
		}
	}
	return index
}

// link resolves a character's reference document by lookup name, then by series label
func link(ch Character, index map[string]glossaryHit, seriesKeys []string) Character {
	names := ch.LookupNames
	if len(names) == 0 {
		names = []string{ch.Name}
	}
	for _, n := range names {
		hit, ok := index[strings.ToLower(n)]
		if !ok {
			continue
		}
		ch.GlossarySeries = hit.series
		if title, ok := hit.character.NameVariants["title"].(string); ok && strings.TrimSpace(title) != "" {
			ch.Title = title
		}
		traits := lo.FilterMap(hit.character.PersonalityTraits, func(t any, _ int) (string, bool) {
			s, ok := t.(string)
			if !ok {
				return "", false
			}
			s = formatTrait(s)
			return s, s != ""
		})
		if len(traits) > 0 {
			ch.Personality = traits
		}
		return ch
	}

	if ch.Series == "" {
		return ch
	}
	candidates := []string{
		ch.Series,
		strings.ToLower(strings.ReplaceAll(ch.Series, " ", "_")),
		strings.ToLower(strings.ReplaceAll(ch.Series, " ", "")),
	}
	for _, key := range seriesKeys {
		if key == ch.Series || slices.Contains(candidates, strings.ToLower(key)) {
			ch.GlossarySeries = key
			break
		}
	}
	return ch
}

// formatTrait turns "quick_temper" into "Quick temper"
func formatTrait(t string) string {
	t = strings.TrimSpace(strings.NewReplacer("_", " ", "-", " ").Replace(t))
	if t == "" {
		return ""
	}
	return strings.ToUpper(t[:1]) + strings.ToLower(t[1:])
}

// Lookup finds a character by id or short alias
func (c *Catalog) Lookup(ref string) (Character, bool) {
	if i, ok := c.byID[ref]; ok {
		return c.chars[i], true
	}
	if i, ok := c.byAlias[strings.ToLower(ref)]; ok {
		return c.chars[i], true
	}
	return Character{}, false
}

// ByName finds a character by display name, case-insensitively
func (c *Catalog) ByName(name string) (Character, bool) {
	if i, ok := c.byName[strings.ToLower(name)]; ok {
		return c.chars[i], true
	}
	return Character{}, false
}

// All returns the characters in catalog order
func (c *Catalog) All() []Character {
	return slices.Clone(c.chars)
}

// Glossary returns the compact JSON reference document for a series key
func (c *Catalog) Glossary(series string) (string, bool) {
	g, ok := c.glossaries[series]
	return g, ok
}
