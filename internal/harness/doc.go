// Package harness runs save round-trip scenarios against the record
// store, serializer, normalizer and journal.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: embedded_has_many
//	description: "New albums are embedded and receive their ids"
//	specs:
//	  - ../specs/music.cue
//	schema: |
//	  serializer: artist: attrs: albums: serialize: true
//	records:
//	  - ref: radiohead
//	    type: artist
//	    attributes: { name: Radiohead }
//	    has_many: { albums: [kid_a] }
//	  - ref: kid_a
//	    type: album
//	    attributes: { name: Kid A }
//	serialize:
//	  root: radiohead
//	  golden: true
//	response:
//	  data:
//	    id: "1"
//	    type: artists
//	    relationships:
//	      albums:
//	        data:
//	          - { id: "89329", type: albums, attributes: { __id__: "$token:kid_a" } }
//	assertions:
//	  - type: document_has
//	    path: data.relationships.albums.data.0.attributes.__id__
//	  - type: record
//	    ref: kid_a
//	    expect: { id: "89329", state: saved }
//
// # Assertion Types
//
//   - document_has: a path exists in the request (or response), optionally with a value
//   - document_lacks: a path does not exist
//   - document_equals: a path holds exactly a value
//   - document_count: an array or object at a path has N entries
//   - record: a record's id, state, token or attributes
//   - record_count: the store holds N records of a model
//   - reconciliation_count: N reconciliations were journaled
//
// # Deterministic Testing
//
// Every run uses a fresh record store with sequential correlation tokens
// (token-1, token-2, ... in fixture order) and a fresh in-memory journal
// with a deterministic logical clock, so snapshots are reproducible.
//
// # Usage
//
//	scenario, err := harness.LoadScenario("testdata/scenarios/embedded_has_many.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	result, err := harness.Run(scenario)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if !result.Pass {
//	    for _, msg := range result.Errors {
//	        log.Println(msg)
//	    }
//	}
package harness
