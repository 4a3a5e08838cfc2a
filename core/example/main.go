// Package example demonstrates how the core packages work together:
// schema resolution, model building, validation and export.
package main

import (
	"fmt"
	"log"
	"os"

	"github.com/rs/zerolog"

	"github.com/cesdm/modelkit/core/exchange"
	"github.com/cesdm/modelkit/core/model"
	"github.com/cesdm/modelkit/core/schema"
	"github.com/cesdm/modelkit/core/validation"
)

const gridSchema = `
entity_classes:
  Asset:
    abstract: true
    attributes:
      name:
        type: str
        required: true
  Node:
    parents: [Asset]
    attributes:
      voltage:
        type: float
        unit: kV
  Generator:
    parents: [Asset]
    attributes:
      capacity:
        type: float
        required: true
        unit: MW
    relations:
      node:
        target: Node
        cardinality: "1"
`

func main() {
	// Parse and resolve the schema
	set, err := schema.Parse([]byte(gridSchema))
	if err != nil {
		log.Fatalf("parse schema: %v", err)
	}
	rs, err := set.Resolve()
	if err != nil {
		log.Fatalf("resolve schema: %v", err)
	}
	fmt.Println(rs.Tree())

	// Build a model and populate it
	logger := zerolog.New(os.Stderr).With().Timestamp().Logger()
	m := model.New(rs, logger)

	mustAdd(m, "Node", "n1")
	mustSet(m.SetField("n1", "name", "North"))
	mustSet(m.SetAttribute("n1", "voltage", "380", model.SetOptions{Unit: "kV", ProvenanceRef: "tso-2024"}))

	mustAdd(m, "Generator", "g1")
	mustSet(m.SetField("g1", "name", "Plant A"))
	mustSet(m.SetField("g1", "capacity", 450.0))
	mustSet(m.SetField("g1", "node", "n1"))

	// Validate
	res := validation.Validate(m)
	if res.Valid {
		fmt.Println("model is valid")
	}
	for _, d := range res.Diagnostics {
		fmt.Println(d.String())
	}

	// Export the nested document
	if err := exchange.ExportJSON(m, "model.json"); err != nil {
		log.Fatalf("export: %v", err)
	}
	fmt.Println("wrote model.json")
}

func mustAdd(m *model.Model, class, id string) {
	if _, err := m.AddEntity(class, id); err != nil {
		log.Fatalf("add %s: %v", id, err)
	}
}

func mustSet(err error) {
	if err != nil {
		log.Fatalf("set: %v", err)
	}
}
