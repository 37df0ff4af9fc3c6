// Package engine executes declarative cleaning workflows over lazy table
// plans.
//
// [Run] drives one execution end to end: it loads and validates the
// workflow, opens the source as a lazy plan, threads the plan through the
// column operator (pre-clean, concatenate, exclude, regex, rename,
// lower-case, normalise), the row operator (not-null validation, then
// deduplication), and the structure assembler, and finally streams the
// composed plan into a Parquet sink. No stage materialises the full table;
// memory pressure is sampled between streamed chunks.
//
// The column operation order is fixed and observable. In particular, when a
// concatenation target also carries a regex rule, the rule is applied once
// to each source column before the concatenation is built, and never again
// to the target or those sources afterwards.
package engine
