// Package schemagen synthesizes the multidimensional schema document that
// configures an MDX connection over a single relational table.
//
// Assembly and serialization are separate steps: Synthesize builds a tree
// of typed nodes and Marshal writes it out as Mondrian-4 shaped XML. Values
// are escaped by the serializer; names are never validated or rewritten.
package schemagen

import (
	"encoding/xml"
	"strings"
)

// MetamodelVersion is written on every synthesized schema.
const MetamodelVersion = "4.0"

// AggregatorSum is the only aggregator the synthesizer emits.
const AggregatorSum = "sum"

// Schema is the document root.
type Schema struct {
	XMLName          xml.Name       `xml:"Schema"`
	Name             string         `xml:"name,attr"`
	MetamodelVersion string         `xml:"metamodelVersion,attr"`
	PhysicalSchema   PhysicalSchema `xml:"PhysicalSchema"`
	Cubes            []Cube         `xml:"Cube"`
}

// PhysicalSchema lists the relational tables the cubes read from.
type PhysicalSchema struct {
	Tables []Table `xml:"Table"`
}

// Table references one relational table.
type Table struct {
	Name string `xml:"name,attr"`
}

// Cube is one multidimensional query unit.
type Cube struct {
	Name          string        `xml:"name,attr"`
	Dimensions    Dimensions    `xml:"Dimensions"`
	MeasureGroups MeasureGroups `xml:"MeasureGroups"`
}

// Dimensions wraps the dimension blocks of a cube.
type Dimensions struct {
	List []Dimension `xml:"Dimension"`
}

// Dimension is a single-attribute dimension.
type Dimension struct {
	Name       string     `xml:"name,attr"`
	Attributes Attributes `xml:"Attributes"`
}

// Attributes wraps the attributes of a dimension.
type Attributes struct {
	List []Attribute `xml:"Attribute"`
}

// Attribute binds a dimension attribute to its key column.
type Attribute struct {
	Name      string `xml:"name,attr"`
	Table     string `xml:"table,attr"`
	KeyColumn string `xml:"keyColumn,attr"`
}

// MeasureGroups wraps the measure groups of a cube.
type MeasureGroups struct {
	List []MeasureGroup `xml:"MeasureGroup"`
}

// MeasureGroup binds measures and dimension links to a fact table.
type MeasureGroup struct {
	Table          string         `xml:"table,attr"`
	Measures       Measures       `xml:"Measures"`
	DimensionLinks DimensionLinks `xml:"DimensionLinks"`
}

// Measures wraps the measure blocks of a measure group.
type Measures struct {
	List []Measure `xml:"Measure"`
}

// Measure aggregates one fact column.
type Measure struct {
	Name       string `xml:"name,attr"`
	Aggregator string `xml:"aggregator,attr"`
	Column     string `xml:"column,attr"`
}

// DimensionLinks wraps the fact links of a measure group.
type DimensionLinks struct {
	FactLinks []FactLink `xml:"FactLink"`
}

// FactLink makes a dimension queryable against the measure group.
type FactLink struct {
	Dimension string `xml:"dimension,attr"`
}

// Cube returns the cube with the given name. Lookup is exact first, then
// case-insensitive.
func (s *Schema) Cube(name string) (*Cube, bool) {
	for i := range s.Cubes {
		if s.Cubes[i].Name == name {
			return &s.Cubes[i], true
		}
	}
	for i := range s.Cubes {
		if strings.EqualFold(s.Cubes[i].Name, name) {
			return &s.Cubes[i], true
		}
	}
	return nil, false
}

// CubeNames returns the cube names in document order.
func (s *Schema) CubeNames() []string {
	names := make([]string, len(s.Cubes))
	for i, c := range s.Cubes {
		names[i] = c.Name
	}
	return names
}

// Dimension returns the dimension with the given name.
func (c *Cube) Dimension(name string) (*Dimension, bool) {
	for i := range c.Dimensions.List {
		if c.Dimensions.List[i].Name == name {
			return &c.Dimensions.List[i], true
		}
	}
	for i := range c.Dimensions.List {
		if strings.EqualFold(c.Dimensions.List[i].Name, name) {
			return &c.Dimensions.List[i], true
		}
	}
	return nil, false
}

// Measure returns the measure with the given name across all measure groups.
func (c *Cube) Measure(name string) (*Measure, *MeasureGroup, bool) {
	for _, exact := range []bool{true, false} {
		for gi := range c.MeasureGroups.List {
			g := &c.MeasureGroups.List[gi]
			for mi := range g.Measures.List {
				m := &g.Measures.List[mi]
				if (exact && m.Name == name) || (!exact && strings.EqualFold(m.Name, name)) {
					return m, g, true
				}
			}
		}
	}
	return nil, nil, false
}

// AllMeasures returns every measure of the cube in document order.
func (c *Cube) AllMeasures() []Measure {
	var out []Measure
	for _, g := range c.MeasureGroups.List {
		out = append(out, g.Measures.List...)
	}
	return out
}

// KeyColumn returns the key column of the dimension's first attribute,
// falling back to the dimension name.
func (d *Dimension) KeyColumn() string {
	if len(d.Attributes.List) > 0 && d.Attributes.List[0].KeyColumn != "" {
		return d.Attributes.List[0].KeyColumn
	}
	return d.Name
}
