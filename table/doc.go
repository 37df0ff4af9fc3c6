// Package table defines the logical data model shared by every pipeline
// stage: typed schemas, rows, batches, and the lazy [Plan] abstraction.
//
// A [Plan] describes a table transformation without executing it. Its schema
// is known statically, so downstream stages can be validated and composed
// before any row is read. Execution starts only when a cursor is opened,
// and proceeds batch by batch so the peak working set stays bounded by the
// batch size rather than the table size.
package table
