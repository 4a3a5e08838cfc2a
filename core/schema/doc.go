// Package schema defines the class definitions a domain model is built from.
//
// A schema is a set of entity classes, each declaring typed attributes,
// relations to other classes, and optionally one or more parent classes.
// Classes are loaded from YAML documents, merged across files, and resolved
// into their final inherited form.
//
// # Class Definition
//
// A minimal schema document in YAML:
//
//	entity_classes:
//	  Node:
//	    description: A network node.
//	    attributes:
//	      name:
//	        value: { type: string }
//	        required: true
//
//	  Line:
//	    attributes:
//	      length:
//	        value: { type: float, constraints: { minimum: 0.0 } }
//	        unit:
//	          type: string
//	          constraints: { enum: [km, m] }
//	    relations:
//	      endpoint:
//	        target: Node
//	        cardinality: "2"
//
// A file may instead hold a single class with a top-level "name" key.
// Documents holding neither shape are skipped.
//
// # Encodings
//
// Attributes and relations accept two encodings that round-trip
// symmetrically: a name-keyed mapping, or a list of objects carrying an
// "id" key:
//
//	attributes:
//	  - id: name
//	    value: { type: string }
//
// Attribute definitions accept both the nested "value:" style above and a
// flat style where type, default and constraints sit directly on the
// attribute. The unit is either a bare string (a default unit) or a nested
// spec whose constraints.enum lists the allowed units; the first listed
// unit is the default.
//
// # Inheritance
//
// Classes may declare parents (single name or list). Resolve merges
// attributes and relations parent to child: parents are merged left to
// right with the first parent defining a name winning among parents, and
// the child's own definitions override every ancestor. A class with an
// abstract parent is itself abstract. Cycles and unknown parents fail
// resolution.
//
// # Loading
//
//	set, err := schema.LoadDir("schema/")
//	set, err := schema.LoadPaths([]string{"schema/**/*.yaml"})
//
// Same-named class fragments across documents and files deep-merge:
// scalar properties are overwritten by the latest occurrence, attribute
// and relation maps merge key by key.
package schema
