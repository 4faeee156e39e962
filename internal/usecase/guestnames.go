package usecase

import (
	"fmt"
	"math/rand/v2"
	"sync"
)

// Adjectives for guest display names
var adjectives = []string{
	"Wandering", "Quiet", "Curious", "Restless", "Gentle", "Bold", "Sleepy", "Clever",
	"Hidden", "Lucky", "Silver", "Velvet", "Midnight", "Scarlet", "Golden", "Misty",
	"Stubborn", "Brave", "Shy", "Witty", "Dreamy", "Fearless", "Patient", "Wild",
}

// Nouns for guest display names
var nouns = []string{
	"Reader", "Traveler", "Stranger", "Scribe", "Bard", "Knight", "Falcon", "Fox",
	"Lantern", "Rose", "Raven", "Willow", "Comet", "Harbor", "Ember", "Sparrow",
	"Pilgrim", "Dreamer", "Visitor", "Guest", "Archer", "Poet", "Sailor", "Wolf",
}

// GuestNamer hands out unique display names to unnamed humans
type GuestNamer struct {
	mu       sync.Mutex
	existing map[string]bool
}

// NewGuestNamer creates an empty namer
func NewGuestNamer() *GuestNamer {
	return &GuestNamer{existing: make(map[string]bool)}
}

// Generate returns a display name not currently handed out
func (g *GuestNamer) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()

	var name string
	const maxAttempts = 100
	for i := range maxAttempts {
		name = fmt.Sprintf("%s %s", adjectives[rand.IntN(len(adjectives))], nouns[rand.IntN(len(nouns))])
		if !g.existing[name] {
			break
		}
		if i == maxAttempts-1 {
			name = fmt.Sprintf("%s %d", name, rand.IntN(999))
		}
	}
	g.existing[name] = true
	return name
}

// NameOr returns name when it is set, a generated guest name otherwise
func (g *GuestNamer) NameOr(name string) string {
	if name != "" {
		return name
	}
	return g.Generate()
}

// Release frees a name for reuse
func (g *GuestNamer) Release(name string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.existing, name)
}

// ActiveCount returns the number of names handed out
func (g *GuestNamer) ActiveCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.existing)
}
