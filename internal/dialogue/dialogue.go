// Package dialogue pages through the lines a character says about its
// artwork.
package dialogue

import (
	"errors"
	"sync"

	"github.com/rs/zerolog"

	"github.com/fabriziosardo/AR-Project/internal/artwork"
)

// ErrNoDialogue is returned for characters that were never initialized.
var ErrNoDialogue = errors.New("no dialogue for character")

// Pager walks a fixed sequence of lines.
type Pager struct {
	title string
	lines []string
	index int
}

// NewPager creates a Pager positioned on the first line.
func NewPager(title string, lines []string) *Pager {
	return &Pager{title: title, lines: append([]string(nil), lines...)}
}

// Title returns the artwork name shown above the text.
func (p *Pager) Title() string { return p.title }

// Current returns the current line, or "" when there are no lines.
func (p *Pager) Current() string {
	if len(p.lines) == 0 {
		return ""
	}
	return p.lines[p.index]
}

// Next advances one line. It returns false on the last line.
func (p *Pager) Next() bool {
	if p.index+1 >= len(p.lines) {
		return false
	}
	p.index++
	return true
}

// Previous goes back one line. It returns false on the first line.
func (p *Pager) Previous() bool {
	if p.index == 0 {
		return false
	}
	p.index--
	return true
}

// Restart returns to the first line.
func (p *Pager) Restart() { p.index = 0 }

// IsLast reports whether the current line is the final one.
func (p *Pager) IsLast() bool { return p.index+1 >= len(p.lines) }

// Position returns the zero-based index of the current line and the total.
func (p *Pager) Position() (int, int) { return p.index, len(p.lines) }

// Page is a read-only view of a pager.
type Page struct {
	Title string `json:"title"`
	Text  string `json:"text"`
	Index int    `json:"index"`
	Total int    `json:"total"`
	Last  bool   `json:"last"`
}

func (p *Pager) page() Page {
	i, n := p.Position()
	return Page{Title: p.title, Text: p.Current(), Index: i, Total: n, Last: p.IsLast()}
}

// Controller owns one pager per character.
type Controller struct {
	mu     sync.RWMutex
	pagers map[string]*Pager
	log    zerolog.Logger
}

// NewController creates an empty Controller.
func NewController(logger zerolog.Logger) *Controller {
	return &Controller{
		pagers: make(map[string]*Pager),
		log:    logger,
	}
}

// InitializeDialogue prepares the dialogue of a freshly spawned character.
// An artwork without lines falls back to its description.
func (c *Controller) InitializeDialogue(characterID string, art artwork.Config) {
	lines := art.Dialogue
	if len(lines) == 0 && art.Description != "" {
		lines = []string{art.Description}
	}

	c.mu.Lock()
	c.pagers[characterID] = NewPager(art.ReferenceImage, lines)
	c.mu.Unlock()

	c.log.Debug().Str("character", characterID).Str("artwork", art.ReferenceImage).Int("lines", len(lines)).Msg("dialogue initialized")
}

// Release forgets the dialogue of a destroyed character.
func (c *Controller) Release(characterID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.pagers, characterID)
}

// Page returns the current page for a character.
func (c *Controller) Page(characterID string) (Page, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	p, ok := c.pagers[characterID]
	if !ok {
		return Page{}, ErrNoDialogue
	}
	return p.page(), nil
}

// Advance moves a character's dialogue forward (or back) and returns the
// resulting page.
func (c *Controller) Advance(characterID string, forward bool) (Page, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	p, ok := c.pagers[characterID]
	if !ok {
		return Page{}, ErrNoDialogue
	}
	if forward {
		p.Next()
	} else {
		p.Previous()
	}
	return p.page(), nil
}
