// Package collation provides locale-aware name comparison for tie-breaks.
package collation

import (
	"errors"
	"fmt"
	"sync"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// DefaultLocale is the locale participant names are collated in.
const DefaultLocale = "tr"

// ErrInvalidLocale is returned for locale tags that cannot be parsed.
var ErrInvalidLocale = errors.New("invalid collation locale")

// Collator compares strings by the rules of one locale.
// A *collate.Collator keeps scratch buffers, so instances are pooled.
type Collator struct {
	tag  language.Tag
	pool sync.Pool
}

// New builds a collator for the given BCP 47 tag. An empty tag selects
// DefaultLocale.
func New(locale string) (*Collator, error) {
	if locale == "" {
		locale = DefaultLocale
	}
	tag, err := language.Parse(locale)
	if err != nil {
		return nil, fmt.Errorf("%w %q: %v", ErrInvalidLocale, locale, err)
	}
	c := &Collator{tag: tag}
	c.pool.New = func() any {
		return collate.New(tag)
	}
	return c, nil
}

// Locale returns the tag the collator was built for.
func (c *Collator) Locale() string {
	return c.tag.String()
}

// Compare returns -1, 0 or 1 as a sorts before, with or after b.
func (c *Collator) Compare(a, b string) int {
	col := c.pool.Get().(*collate.Collator)
	defer c.pool.Put(col)
	return col.CompareString(a, b)
}

// Func returns Compare as a plain comparison function.
func (c *Collator) Func() func(a, b string) int {
	return c.Compare
}
