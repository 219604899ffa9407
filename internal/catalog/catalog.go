// Package catalog holds the static table configuration: every table and view
// the application may touch, its primary key columns and its access class.
package catalog

import (
	"errors"
	"fmt"
	"os"
	"slices"

	"gopkg.in/yaml.v3"

	"tablero/helper"
	"tablero/internal/model"
)

var ErrEmptyCatalog = errors.New("catalog has no tables")

// Catalog is immutable after construction and safe for concurrent use.
type Catalog struct {
	order  []string
	tables map[string]model.TableSpec
}

type file struct {
	Tables []model.TableSpec `yaml:"tables"`
}

// New validates specs and builds a catalog preserving their order.
func New(specs []model.TableSpec) (*Catalog, error) {
	if len(specs) == 0 {
		return nil, ErrEmptyCatalog
	}

	c := &Catalog{tables: make(map[string]model.TableSpec, len(specs))}
	for _, spec := range specs {
		if err := helper.ValidateIdentifiers("table", spec.Name); err != nil {
			return nil, err
		}
		if _, exists := c.tables[spec.Name]; exists {
			return nil, fmt.Errorf("table %q declared twice", spec.Name)
		}
		if len(spec.PrimaryKey) == 0 {
			spec.PrimaryKey = slices.Clone(model.DefaultPrimaryKey)
		}
		if err := helper.ValidateIdentifiers("key column", spec.PrimaryKey...); err != nil {
			return nil, fmt.Errorf("table %s: %w", spec.Name, err)
		}
		if err := helper.ValidateIdentifiers("column", spec.Columns...); err != nil {
			return nil, fmt.Errorf("table %s: %w", spec.Name, err)
		}
		if spec.View && spec.UserOwned {
			return nil, fmt.Errorf("table %s: a view cannot be user owned", spec.Name)
		}

		c.order = append(c.order, spec.Name)
		c.tables[spec.Name] = spec
	}
	return c, nil
}

// Load reads a YAML catalog of the form
//
//	tables:
//	  - name: order_details
//	    primary_key: [order_id, product_id]
//	    user_owned: true
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading catalog: %w", err)
	}

	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing catalog %s: %w", path, err)
	}
	return New(f.Tables)
}

// Lookup returns the record for name. The returned spec shares no memory
// with the catalog.
func (c *Catalog) Lookup(name string) (model.TableSpec, bool) {
	spec, ok := c.tables[name]
	if !ok {
		return model.TableSpec{}, false
	}
	spec.PrimaryKey = slices.Clone(spec.PrimaryKey)
	spec.Columns = slices.Clone(spec.Columns)
	return spec, true
}

// PrimaryKey returns the declared key columns of name, or the default single
// "id" column for tables the catalog does not know.
func (c *Catalog) PrimaryKey(name string) []string {
	if spec, ok := c.tables[name]; ok {
		return slices.Clone(spec.PrimaryKey)
	}
	return slices.Clone(model.DefaultPrimaryKey)
}

// All returns every record in declaration order.
func (c *Catalog) All() []model.TableSpec {
	specs := make([]model.TableSpec, 0, len(c.order))
	for _, name := range c.order {
		spec, _ := c.Lookup(name)
		specs = append(specs, spec)
	}
	return specs
}

// Tables returns the base tables in declaration order.
func (c *Catalog) Tables() []model.TableSpec {
	return c.filter(func(s model.TableSpec) bool { return !s.View })
}

// Views returns the views in declaration order.
func (c *Catalog) Views() []model.TableSpec {
	return c.filter(func(s model.TableSpec) bool { return s.View })
}

func (c *Catalog) filter(keep func(model.TableSpec) bool) []model.TableSpec {
	var out []model.TableSpec
	for _, spec := range c.All() {
		if keep(spec) {
			out = append(out, spec)
		}
	}
	return out
}
