// Package catalog is the read-only product list the cart is built from.
package catalog

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"bill-backend/internal/billing"
	"bill-backend/internal/models"
)

//go:embed menu.json
var defaultMenu []byte

// menuItem is one entry of a menu file. unit and gstRate are optional.
type menuItem struct {
	Name     string      `json:"name"`
	Category string      `json:"category"`
	Price    float64     `json:"price"`
	Image    string      `json:"image"`
	Unit     models.Unit `json:"unit"`
	GSTRate  float64     `json:"gstRate"`
}

type Catalog struct {
	products []models.Product
	byID     map[string]models.Product
}

// Default returns the built-in menu
func Default() *Catalog {
	c, err := Parse(defaultMenu)
	if err != nil {
		panic(fmt.Sprintf("built-in menu: %v", err))
	}
	return c
}

// LoadFile reads a menu file in the same format as the built-in one
func LoadFile(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read menu: %w", err)
	}
	return Parse(data)
}

// Parse builds a catalog from a JSON menu. Products get stable ids
// prod-1, prod-2, ... in file order, unit Nos and no VAT unless given.
func Parse(data []byte) (*Catalog, error) {
	var items []menuItem
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("parse menu: %w", err)
	}

	c := &Catalog{byID: make(map[string]models.Product, len(items))}
	for i, item := range items {
		p := models.Product{
			ID:       fmt.Sprintf("prod-%d", i+1),
			Name:     item.Name,
			Category: item.Category,
			Price:    item.Price,
			Unit:     item.Unit,
			GSTRate:  item.GSTRate,
			Image:    item.Image,
		}
		if p.Unit == "" {
			p.Unit = models.UnitNos
		}
		if p.Price < 0 {
			return nil, fmt.Errorf("menu item %q: negative price", p.Name)
		}
		if !billing.ValidTaxRate(p.GSTRate) {
			return nil, fmt.Errorf("menu item %q: unsupported VAT rate %v", p.Name, p.GSTRate)
		}
		if !billing.ValidUnit(p.Unit) {
			return nil, fmt.Errorf("menu item %q: unknown unit %q", p.Name, p.Unit)
		}
		c.products = append(c.products, p)
		c.byID[p.ID] = p
	}
	return c, nil
}

// Products returns every product in menu order
func (c *Catalog) Products() []models.Product {
	return append([]models.Product(nil), c.products...)
}

// Get finds a product by id
func (c *Catalog) Get(id string) (models.Product, bool) {
	p, ok := c.byID[id]
	return p, ok
}

// Search matches query against name and category, case-insensitively.
// An empty query returns everything.
func (c *Catalog) Search(query string) []models.Product {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return c.Products()
	}

	var out []models.Product
	for _, p := range c.products {
		if strings.Contains(strings.ToLower(p.Name), q) || strings.Contains(strings.ToLower(p.Category), q) {
			out = append(out, p)
		}
	}
	return out
}

// Resolve accepts a product id or a name that matches exactly one product
func (c *Catalog) Resolve(ref string) (models.Product, error) {
	if p, ok := c.Get(ref); ok {
		return p, nil
	}
	for _, p := range c.products {
		if strings.EqualFold(p.Name, strings.TrimSpace(ref)) {
			return p, nil
		}
	}
	matches := c.Search(ref)
	switch len(matches) {
	case 0:
		return models.Product{}, fmt.Errorf("no product matches %q", ref)
	case 1:
		return matches[0], nil
	}
	return models.Product{}, fmt.Errorf("%q matches %d products, be more specific", ref, len(matches))
}
