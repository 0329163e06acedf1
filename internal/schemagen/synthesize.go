package schemagen

import (
	"bytes"
	"encoding/xml"
	"fmt"

	"duck-olap/internal/domain"
)

const xmlHeader = `<?xml version="1.0"?>` + "\n"

// Synthesize builds a schema with one cube over factTable. Each entry of
// dimensions becomes a single-attribute dimension keyed on the column of
// the same name plus a fact link; each entry of measures becomes a summed
// measure. Input order is preserved and duplicates are kept.
func Synthesize(cubeName, factTable string, dimensions, measures []string) *Schema {
	dims := make([]Dimension, 0, len(dimensions))
	links := make([]FactLink, 0, len(dimensions))
	for _, c := range dimensions {
		dims = append(dims, Dimension{
			Name: c,
			Attributes: Attributes{List: []Attribute{
				{Name: c, Table: factTable, KeyColumn: c},
			}},
		})
		links = append(links, FactLink{Dimension: c})
	}

	ms := make([]Measure, 0, len(measures))
	for _, c := range measures {
		ms = append(ms, Measure{Name: c, Aggregator: AggregatorSum, Column: c})
	}

	return &Schema{
		Name:             cubeName,
		MetamodelVersion: MetamodelVersion,
		PhysicalSchema:   PhysicalSchema{Tables: []Table{{Name: factTable}}},
		Cubes: []Cube{{
			Name:       cubeName,
			Dimensions: Dimensions{List: dims},
			MeasureGroups: MeasureGroups{List: []MeasureGroup{{
				Table:          factTable,
				Measures:       Measures{List: ms},
				DimensionLinks: DimensionLinks{FactLinks: links},
			}}},
		}},
	}
}

// FromColumns is Synthesize over a discovery result.
func FromColumns(cubeName, factTable string, cols domain.ClassifiedColumns) *Schema {
	return Synthesize(cubeName, factTable, cols.Dimensions, cols.Measures)
}

// Marshal serializes the schema as an indented XML document.
func (s *Schema) Marshal() (string, error) {
	var buf bytes.Buffer
	buf.WriteString(xmlHeader)
	enc := xml.NewEncoder(&buf)
	enc.Indent("", "  ")
	if err := enc.Encode(s); err != nil {
		return "", fmt.Errorf("encode schema: %w", err)
	}
	if err := enc.Close(); err != nil {
		return "", fmt.Errorf("encode schema: %w", err)
	}
	buf.WriteByte('\n')
	return buf.String(), nil
}

// Render synthesizes and serializes in one step. Serialization of a tree
// made only of string attributes cannot fail, so Render panics if it does.
func Render(cubeName, factTable string, dimensions, measures []string) string {
	doc, err := Synthesize(cubeName, factTable, dimensions, measures).Marshal()
	if err != nil {
		panic(err)
	}
	return doc
}

// Parse decodes a schema document.
func Parse(doc string) (*Schema, error) {
	var s Schema
	if err := xml.Unmarshal([]byte(doc), &s); err != nil {
		return nil, fmt.Errorf("parse schema: %w", err)
	}
	return &s, nil
}

// Validate checks the structural invariants every cube must satisfy: at
// least one cube, one fact link per dimension with matching names, unique
// dimension names and unique measure names.
func (s *Schema) Validate() error {
	if len(s.Cubes) == 0 {
		return domain.ErrValidation("schema %q has no cube", s.Name)
	}
	for _, c := range s.Cubes {
		dims := make(map[string]bool, len(c.Dimensions.List))
		for _, d := range c.Dimensions.List {
			if dims[d.Name] {
				return domain.ErrValidation("cube %q: duplicate dimension %q", c.Name, d.Name)
			}
			dims[d.Name] = true
		}

		measures := map[string]bool{}
		links := map[string]bool{}
		for _, g := range c.MeasureGroups.List {
			for _, m := range g.Measures.List {
				if measures[m.Name] {
					return domain.ErrValidation("cube %q: duplicate measure %q", c.Name, m.Name)
				}
				measures[m.Name] = true
			}
			for _, l := range g.DimensionLinks.FactLinks {
				if !dims[l.Dimension] {
					return domain.ErrValidation("cube %q: fact link references unknown dimension %q", c.Name, l.Dimension)
				}
				links[l.Dimension] = true
			}
		}
		for _, d := range c.Dimensions.List {
			if !links[d.Name] {
				return domain.ErrValidation("cube %q: dimension %q has no fact link", c.Name, d.Name)
			}
		}
	}
	return nil
}
