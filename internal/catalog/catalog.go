// Package catalog maps product names to sales categories.
package catalog

import (
	"os"
	"sort"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// Category is a product category name.
type Category string

const (
	CategoryPowerToolsAccessories Category = "Power Tools & Accessories"
	CategoryPowerToolsEquipment   Category = "Power Tools & Equipment"
	CategorySafetyApparel         Category = "Safety & Apparel"
	CategorySoftwareServices      Category = "Software/Services"
	CategoryOther                 Category = "Other"
)

// Family returns the category family: the text before " & ", or the whole
// name. "Power Tools & Accessories" and "Power Tools & Equipment" share the
// "Power Tools" family.
func (c Category) Family() string {
	name := strings.TrimSpace(string(c))
	if idx := strings.Index(name, " & "); idx > 0 {
		return strings.TrimSpace(name[:idx])
	}
	return name
}

// Overlaps reports whether two categories belong to the same family.
func (c Category) Overlaps(other Category) bool {
	return strings.EqualFold(c.Family(), other.Family())
}

var defaultProducts = map[string]Category{
	"Drills":              CategoryPowerToolsAccessories,
	"Drill Bits":          CategoryPowerToolsAccessories,
	"Generators":          CategoryPowerToolsEquipment,
	"Backup Batteries":    CategoryPowerToolsEquipment,
	"Protective Gloves":   CategorySafetyApparel,
	"Safety Gear":         CategorySafetyApparel,
	"Workflow Automation": CategorySoftwareServices,
	"Collaboration Suite": CategorySoftwareServices,
	"API Integrations":    CategorySoftwareServices,
	"Advanced Analytics":  CategorySoftwareServices,
}

// Catalog is an immutable product → category lookup. Safe for concurrent use.
type Catalog struct {
	products map[string]Category
}

// New creates a Catalog from a product → category map.
func New(products map[string]Category) *Catalog {
	m := make(map[string]Category, len(products))
	for p, c := range products {
		m[p] = c
	}
	return &Catalog{products: m}
}

// Default returns the built-in catalog.
func Default() *Catalog {
	return New(defaultProducts)
}

// Lookup returns the category for product, or CategoryOther when unknown.
func (c *Catalog) Lookup(product string) Category {
	if cat, ok := c.products[product]; ok {
		return cat
	}
	return CategoryOther
}

// Categories returns the distinct categories of products in first-seen order.
func (c *Catalog) Categories(products []string) []Category {
	seen := make(map[Category]bool, len(products))
	var out []Category
	for _, p := range products {
		cat := c.Lookup(p)
		if seen[cat] {
			continue
		}
		seen[cat] = true
		out = append(out, cat)
	}
	return out
}

// MatchesAny reports whether cat overlaps any of owned.
func MatchesAny(cat Category, owned []Category) bool {
	for _, o := range owned {
		if cat.Overlaps(o) {
			return true
		}
	}
	return false
}

// Products returns the known product names, sorted.
func (c *Catalog) Products() []string {
	out := make([]string, 0, len(c.products))
	for p := range c.products {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// Len returns the number of known products.
func (c *Catalog) Len() int {
	return len(c.products)
}

// LoadFile reads a catalog from a YAML file of the form:
//
//	catalog:
//	  products:
//	    Drills: Power Tools & Accessories
func LoadFile(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "catalog: read %s", path)
	}

	var wrapper struct {
		Catalog struct {
			Products map[string]string `yaml:"products"`
		} `yaml:"catalog"`
	}
	if err := yaml.Unmarshal(data, &wrapper); err != nil {
		return nil, eris.Wrap(err, "catalog: parse")
	}
	if len(wrapper.Catalog.Products) == 0 {
		return nil, eris.Errorf("catalog: %s defines no products", path)
	}

	products := make(map[string]Category, len(wrapper.Catalog.Products))
	for p, c := range wrapper.Catalog.Products {
		name := strings.TrimSpace(c)
		if name == "" {
			name = string(CategoryOther)
		}
		products[strings.TrimSpace(p)] = Category(name)
	}
	return New(products), nil
}
