package override

import (
	"slices"

	"github.com/ironsheep/traffic-sign-mcp/internal/detection"
	"github.com/ironsheep/traffic-sign-mcp/internal/meaning"
)

// Catalog is the fixed set of labels an operator may select.
//
// Lookups are case-insensitive and ignore separator differences
// ("speed_limit_80" finds "Speed Limit 80"); the catalog spelling is returned.
type Catalog struct {
	labels []string
	byKey  map[string]string
}

// NewCatalog builds a catalog from labels. Blank labels are skipped and the
// first spelling of a duplicate wins.
func NewCatalog(labels []string) *Catalog {
	c := &Catalog{byKey: make(map[string]string, len(labels))}
	for _, label := range labels {
		key := meaning.Normalize(label)
		if key == "" {
			continue
		}
		if _, dup := c.byKey[key]; dup {
			continue
		}
		c.byKey[key] = label
		c.labels = append(c.labels, label)
	}
	return c
}

// CatalogFromIndex builds a catalog holding every label of index.
func CatalogFromIndex(index detection.ClassIndex) *Catalog {
	return NewCatalog(index.Labels())
}

// Lookup returns the catalog spelling of label.
func (c *Catalog) Lookup(label string) (string, bool) {
	if c == nil {
		return "", false
	}
	canonical, ok := c.byKey[meaning.Normalize(label)]
	return canonical, ok
}

// Labels returns the catalog labels in insertion order.
func (c *Catalog) Labels() []string {
	if c == nil {
		return nil
	}
	return slices.Clone(c.labels)
}

// Len returns the number of labels.
func (c *Catalog) Len() int {
	if c == nil {
		return 0
	}
	return len(c.labels)
}
