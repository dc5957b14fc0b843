// Package choice implements a single-select control over a fixed set of
// options. At most one option is active at a time. In RequireSelection mode
// the control refuses to continue until something has been chosen.
package choice

import (
	"errors"
	"fmt"
)

var (
	ErrNoSelection     = errors.New("no option selected")
	ErrUnknownOption   = errors.New("unknown option")
	ErrDuplicateOption = errors.New("duplicate option id")
)

// Option is one entry of a closed set.
type Option[K comparable] struct {
	ID          K
	Label       string
	Description string
	Features    []string
}

// Card is an option as rendered, with its active flag.
type Card[K comparable] struct {
	Option[K]
	Active bool
}

// Group tracks the selection among a fixed set of options. Not safe for
// concurrent use; callers build one per request.
type Group[K comparable] struct {
	options          []Option[K]
	requireSelection bool
	selected         K
	hasSelection     bool
}

// New builds a group. It panics on duplicate ids since option sets are
// compile-time constants.
func New[K comparable](requireSelection bool, options ...Option[K]) *Group[K] {
	seen := make(map[K]struct{}, len(options))
	for _, o := range options {
		if _, dup := seen[o.ID]; dup {
			panic(fmt.Errorf("%w: %v", ErrDuplicateOption, o.ID))
		}
		seen[o.ID] = struct{}{}
	}
	return &Group[K]{options: options, requireSelection: requireSelection}
}

// Options returns the option set in display order.
func (g *Group[K]) Options() []Option[K] { return g.options }

// Has reports whether id belongs to the set.
func (g *Group[K]) Has(id K) bool {
	for _, o := range g.options {
		if o.ID == id {
			return true
		}
	}
	return false
}

// Select makes id the only active option, replacing any previous choice.
func (g *Group[K]) Select(id K) error {
	if !g.Has(id) {
		return fmt.Errorf("%w: %v", ErrUnknownOption, id)
	}
	g.selected = id
	g.hasSelection = true
	return nil
}

// Selected returns the current choice, if any.
func (g *Group[K]) Selected() (K, bool) {
	return g.selected, g.hasSelection
}

// IsActive reports whether id is the current choice.
func (g *Group[K]) IsActive(id K) bool {
	return g.hasSelection && g.selected == id
}

// Cards returns every option with its active flag.
func (g *Group[K]) Cards() []Card[K] {
	cards := make([]Card[K], len(g.options))
	for i, o := range g.options {
		cards[i] = Card[K]{Option: o, Active: g.IsActive(o.ID)}
	}
	return cards
}

// CanContinue reports whether the continuation control is enabled.
func (g *Group[K]) CanContinue() bool {
	return !g.requireSelection || g.hasSelection
}

// Continue returns the selection for the continuation action. In
// RequireSelection mode an empty selection yields ErrNoSelection; otherwise
// an empty selection returns the zero value.
func (g *Group[K]) Continue() (K, error) {
	if !g.CanContinue() {
		var zero K
		return zero, ErrNoSelection
	}
	return g.selected, nil
}
