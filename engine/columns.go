package engine

import (
	"errors"
	"fmt"
	"regexp"
	"slices"
	"strings"

	"go.nomadlab.dev/datacleaner/pattern"
	"go.nomadlab.dev/datacleaner/table"
	"go.nomadlab.dev/datacleaner/workflow"
)

var (
	// ErrRegexCompile indicates a combined pattern that failed to compile.
	ErrRegexCompile = errors.New("compiling combined pattern")
	// ErrRenameCollision indicates a display name colliding with a
	// retained column.
	ErrRenameCollision = errors.New("rename collision")
	// ErrConcatCollision indicates a concatenation result duplicating an
	// existing column at its creation point.
	ErrConcatCollision = errors.New("concatenation collision")
)

// applyColumnOperations threads the plan through the canonical column
// operation order: pre-clean sources of target-regex concatenations, build
// concatenations, drop excluded columns, apply the remaining regex rules,
// rename, lower-case, and normalise. The workflow is mutated in place by
// rename propagation; callers pass a private clone.
func (r *run) applyColumnOperations(p table.Plan, wf *workflow.Workflow) (table.Plan, error) {
	// Step 1: pre-clean sources feeding concatenation targets that carry
	// their own regex rule, so the concat of cleaned inputs equals the
	// cleaned concat without a second pass.
	targetRegex := make(map[string]*regexp.Regexp)
	precleanedSources := make(map[string]struct{})

	for _, c := range wf.Concatenations {
		keys := wf.RegexRules[c.Name]
		if len(keys) == 0 {
			continue
		}

		combined := pattern.Combine(keys)
		if combined == "" {
			continue
		}

		re, err := regexp.Compile(combined)
		if err != nil {
			return nil, fmt.Errorf("%w: column %q: %w", ErrRegexCompile, c.Name, err)
		}

		targetRegex[c.Name] = re

		for _, src := range c.SourceColumns {
			if !p.Schema().Has(src) {
				continue
			}

			if _, done := precleanedSources[src]; done {
				continue
			}

			precleanedSources[src] = struct{}{}
			p = keepColumnMatches(p, src, re)
			r.log.Debug("pre-cleaned concatenation source",
				"target", c.Name, "source", src)
		}
	}

	// Step 2: build concatenations.
	for _, c := range wf.Concatenations {
		schema := p.Schema()

		var missing []string

		for _, src := range c.SourceColumns {
			if !schema.Has(src) {
				missing = append(missing, src)
			}
		}

		if len(missing) > 0 {
			r.warnf("skipping concatenation %q: missing columns %v", c.Name, missing)

			continue
		}

		if schema.Has(c.Name) {
			return nil, fmt.Errorf("%w: %q already exists", ErrConcatCollision, c.Name)
		}

		sep := c.Separator
		if re, ok := targetRegex[c.Name]; ok {
			// The target's rule already ran over the sources; filtering
			// the separator keeps the result identical to cleaning the
			// whole concatenation.
			sep = keepMatches(re, sep)
		}

		p = concatColumns(p, c.Name, c.SourceColumns, sep)
		r.log.Debug("created concatenation", "name", c.Name, "sources", c.SourceColumns)
	}

	// Step 3: drop excluded columns.
	p = r.dropColumns(p, wf.Columns.Exclude)

	// Step 4: apply the remaining regex rules. Targets already baked their
	// rule into the sources; pre-cleaned sources must not be cleaned again.
	cols := make([]string, 0, len(wf.RegexRules))
	for col := range wf.RegexRules {
		cols = append(cols, col)
	}

	slices.Sort(cols)

	for _, col := range cols {
		keys := wf.RegexRules[col]
		if len(keys) == 0 {
			continue
		}

		if _, skip := targetRegex[col]; skip {
			continue
		}

		if _, skip := precleanedSources[col]; skip {
			continue
		}

		if !p.Schema().Has(col) {
			r.warnf("skipping regex rules for %q: column not found", col)

			continue
		}

		combined := pattern.Combine(keys)
		if combined == "" {
			continue
		}

		re, err := regexp.Compile(combined)
		if err != nil {
			return nil, fmt.Errorf("%w: column %q: %w", ErrRegexCompile, col, err)
		}

		p = keepColumnMatches(p, col, re)
		r.log.Debug("applied regex rules", "column", col, "patterns", keys)
	}

	// Step 5: rename and propagate the new names to later stages.
	p, err := r.renameColumns(p, wf)
	if err != nil {
		return nil, err
	}

	// Steps 6 and 7: lower-case, normalise, and canonicalise all textual
	// columns in one pass.
	p = normalizeTextColumns(p)

	return p, nil
}

// keepColumnMatches rewrites one column to the concatenation of all matches
// of re, coercing non-textual values to text first. Null input yields the
// empty string; the normalisation pass turns it back into null.
func keepColumnMatches(p table.Plan, col string, re *regexp.Regexp) table.Plan {
	schema := p.Schema()
	idx := schema.Index(col)

	fields := slices.Clone(schema.Fields())
	fields[idx] = table.Field{Name: col, Type: table.StringType()}
	out := table.MustSchema(fields...)

	return table.NewTransform(p, out, func(row table.Row) table.Row {
		next := row.Clone()
		next[idx] = keepMatches(re, castText(row[idx]))

		return next
	})
}

// concatColumns appends a new textual column equal to the separator-joined
// textual casts of the source columns. Null inputs are treated as empty.
func concatColumns(p table.Plan, name string, sources []string, sep string) table.Plan {
	schema := p.Schema()

	idxs := make([]int, len(sources))
	for i, src := range sources {
		idxs[i] = schema.Index(src)
	}

	fields := append(slices.Clone(schema.Fields()),
		table.Field{Name: name, Type: table.StringType()})
	out := table.MustSchema(fields...)

	return table.NewTransform(p, out, func(row table.Row) table.Row {
		parts := make([]string, len(idxs))
		for i, idx := range idxs {
			parts[i] = castText(row[idx])
		}

		next := make(table.Row, 0, len(row)+1)
		next = append(next, row...)
		next = append(next, strings.Join(parts, sep))

		return next
	})
}

// dropColumns removes the named columns where they exist; absent names are
// reported and skipped.
func (r *run) dropColumns(p table.Plan, exclude []string) table.Plan {
	if len(exclude) == 0 {
		return p
	}

	schema := p.Schema()
	drop := make(map[string]struct{}, len(exclude))

	for _, name := range exclude {
		if !schema.Has(name) {
			r.warnf("column to exclude not found: %q", name)

			continue
		}

		drop[name] = struct{}{}
	}

	if len(drop) == 0 {
		return p
	}

	keep := make([]int, 0, schema.Len()-len(drop))
	fields := make([]table.Field, 0, schema.Len()-len(drop))

	for i, f := range schema.Fields() {
		if _, dropped := drop[f.Name]; dropped {
			continue
		}

		keep = append(keep, i)
		fields = append(fields, f)
	}

	out := table.MustSchema(fields...)
	r.log.Debug("excluded columns", "count", len(drop))

	return table.NewTransform(p, out, func(row table.Row) table.Row {
		next := make(table.Row, len(keep))
		for i, idx := range keep {
			next[i] = row[idx]
		}

		return next
	})
}

// renameColumns applies display_names as a simultaneous rename and
// propagates the new names into the dedup, not-empty, and structure
// references of wf.
func (r *run) renameColumns(p table.Plan, wf *workflow.Workflow) (table.Plan, error) {
	if len(wf.DisplayNames) == 0 {
		return p, nil
	}

	schema := p.Schema()
	renames := make(map[string]string, len(wf.DisplayNames))

	olds := make([]string, 0, len(wf.DisplayNames))
	for old := range wf.DisplayNames {
		olds = append(olds, old)
	}

	slices.Sort(olds)

	for _, old := range olds {
		name := wf.DisplayNames[old]
		if old == name {
			continue
		}

		if !schema.Has(old) {
			r.warnf("column to rename not found: %q", old)

			continue
		}

		renames[old] = name
	}

	if len(renames) == 0 {
		return p, nil
	}

	fields := slices.Clone(schema.Fields())
	for i, f := range fields {
		if name, ok := renames[f.Name]; ok {
			fields[i].Name = name
		}
	}

	out, err := table.NewSchema(fields...)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRenameCollision, err)
	}

	propagateRenames(wf, renames)
	r.log.Debug("renamed columns", "count", len(renames))

	return table.NewTransform(p, out, func(row table.Row) table.Row {
		return row
	}), nil
}

// propagateRenames rewrites column references in the dedup, not-empty, and
// structure settings so later stages see the display names.
func propagateRenames(wf *workflow.Workflow, renames map[string]string) {
	apply := func(names []string) {
		for i, n := range names {
			if renamed, ok := renames[n]; ok {
				names[i] = renamed
			}
		}
	}

	apply(wf.Dedup.UniqueColumns)
	apply(wf.NotEmpty.Columns)

	if wf.Structure == nil {
		return
	}

	for i, n := range wf.Structure.MainInfo {
		// additional_info is the reserved struct slot, not a column
		// reference.
		if n == "additional_info" {
			continue
		}

		if renamed, ok := renames[n]; ok {
			wf.Structure.MainInfo[i] = renamed
		}
	}

	for i := range wf.Structure.AdditionalInfo {
		item := &wf.Structure.AdditionalInfo[i]
		if item.IsGroup() {
			apply(item.Members)

			continue
		}

		if renamed, ok := renames[item.Field]; ok {
			item.Field = renamed
		}
	}
}

// normalizeTextColumns lower-cases, cleans, and canonicalises every textual
// column in a single pass.
func normalizeTextColumns(p table.Plan) table.Plan {
	schema := p.Schema()

	var idxs []int

	for i, f := range schema.Fields() {
		if f.Type.Kind == table.KindString {
			idxs = append(idxs, i)
		}
	}

	if len(idxs) == 0 {
		return p
	}

	return table.NewTransform(p, schema, func(row table.Row) table.Row {
		next := row.Clone()

		for _, idx := range idxs {
			s, ok := next[idx].(string)
			if !ok {
				next[idx] = nil

				continue
			}

			next[idx] = canonicalNull(cleanText(strings.ToLower(s)))
		}

		return next
	})
}
