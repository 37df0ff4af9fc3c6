// Package source opens tabular input files as lazy [table.Plan] values.
//
// Parquet files (by extension) are scanned row group by row group; anything
// else is read as delimited text with a configurable encoding, delimiter,
// and null-token set. Delimited sources infer their schema from a bounded
// row prefix at open time; the streaming pass starts only when the plan is
// executed.
package source
