// Package models defines the data structures for the bike price predictor.
package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// LocationOther is the location code sent when the user picks "Other".
// It is never part of the fetched location table.
const LocationOther = -1

// LocationOtherLabel is the display label for LocationOther.
const LocationOtherLabel = "Other"

// Entry is a single name/code pair of a lookup table.
type Entry struct {
	Name string `json:"name"`
	Code int    `json:"code"`
}

// Table is a name→code lookup table that keeps the order in which the
// prediction service listed its keys.
type Table []Entry

// UnmarshalJSON decodes a JSON object of name→integer pairs, preserving key order.
func (t *Table) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if tok == nil {
		*t = nil
		return nil
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("lookup table must be a JSON object, got %v", tok)
	}

	entries := Table{}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		name, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("unexpected lookup key %v", keyTok)
		}

		var num json.Number
		if err := dec.Decode(&num); err != nil {
			return fmt.Errorf("lookup %q: %w", name, err)
		}
		code, err := strconv.Atoi(num.String())
		if err != nil {
			return fmt.Errorf("lookup %q: code %s is not an integer", name, num)
		}
		entries = append(entries, Entry{Name: name, Code: code})
	}

	if _, err := dec.Token(); err != nil {
		return err
	}

	*t = entries
	return nil
}

// MarshalJSON encodes the table back into a JSON object in table order.
func (t Table) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, e := range t {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(e.Name)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.WriteString(strconv.Itoa(e.Code))
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Lookup returns the code registered for name.
func (t Table) Lookup(name string) (int, bool) {
	for _, e := range t {
		if e.Name == name {
			return e.Code, true
		}
	}
	return 0, false
}

// Mappings is the body of GET /get_data_mappings.
type Mappings struct {
	Brands    Table `json:"brands"`
	Models    Table `json:"models"`
	Locations Table `json:"locations"`

	// ModelBrands optionally ties a model name to its brand code. Models
	// missing from it fall back to the brand-name prefix convention.
	ModelBrands map[string]int `json:"model_brands,omitempty"`
}

// Catalog is the read-only index built once from Mappings.
type Catalog struct {
	mappings Mappings

	brandNames    map[int]string
	modelNames    map[int]string
	locationNames map[int]string
	modelsByBrand map[int][]Entry
}

// NewCatalog indexes the mappings. Duplicate codes keep the first name.
func NewCatalog(m Mappings) *Catalog {
	c := &Catalog{
		mappings:      m,
		brandNames:    indexByCode(m.Brands),
		modelNames:    indexByCode(m.Models),
		locationNames: indexByCode(m.Locations),
		modelsByBrand: make(map[int][]Entry, len(m.Brands)),
	}

	for _, model := range m.Models {
		if brandCode, ok := m.ModelBrands[model.Name]; ok {
			c.modelsByBrand[brandCode] = append(c.modelsByBrand[brandCode], model)
			continue
		}
		for _, brand := range m.Brands {
			if c.brandNames[brand.Code] != brand.Name {
				continue
			}
			if strings.HasPrefix(model.Name, brand.Name) {
				c.modelsByBrand[brand.Code] = append(c.modelsByBrand[brand.Code], model)
			}
		}
	}

	return c
}

func indexByCode(t Table) map[int]string {
	idx := make(map[int]string, len(t))
	for _, e := range t {
		if _, dup := idx[e.Code]; dup {
			continue
		}
		idx[e.Code] = e.Name
	}
	return idx
}

// Mappings returns the tables the catalog was built from.
func (c *Catalog) Mappings() Mappings {
	return c.mappings
}

// Brands lists the brand table in service order.
func (c *Catalog) Brands() []Entry {
	return append([]Entry(nil), c.mappings.Brands...)
}

// Locations lists the location table in service order.
func (c *Catalog) Locations() []Entry {
	return append([]Entry(nil), c.mappings.Locations...)
}

// BrandName resolves a brand code.
func (c *Catalog) BrandName(code int) (string, bool) {
	name, ok := c.brandNames[code]
	return name, ok
}

// ModelName resolves a model code.
func (c *Catalog) ModelName(code int) (string, bool) {
	name, ok := c.modelNames[code]
	return name, ok
}

// LocationName resolves a location code, including LocationOther.
func (c *Catalog) LocationName(code int) (string, bool) {
	if code == LocationOther {
		return LocationOtherLabel, true
	}
	name, ok := c.locationNames[code]
	return name, ok
}

// ModelsForBrand returns the models belonging to brandCode in service order.
func (c *Catalog) ModelsForBrand(brandCode int) []Entry {
	models := c.modelsByBrand[brandCode]
	out := make([]Entry, len(models))
	copy(out, models)
	return out
}
