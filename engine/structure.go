package engine

import (
	"slices"

	"go.nomadlab.dev/datacleaner/table"
	"go.nomadlab.dev/datacleaner/workflow"
)

// applyStructure reshapes the output into the configured main_info columns
// plus a nested additional_info struct, then injects the year and
// country_code metadata columns.
func (r *run) applyStructure(p table.Plan, wf *workflow.Workflow) table.Plan {
	if wf.Structure != nil {
		p = r.reshape(p, wf.Structure)
	}

	p = setLiteral(p, "year", int64(wf.Year), table.Int64Type())
	p = setLiteral(p, "country_code", wf.CountryCode, table.StringType())

	return p
}

// reshape selects the main_info columns and assembles additional_info from
// flat fields and named groups, keeping only references that resolve in the
// current schema.
func (r *run) reshape(p table.Plan, st *workflow.Structure) table.Plan {
	schema := p.Schema()

	groupKeys := make(map[string]struct{})

	for _, item := range st.AdditionalInfo {
		if item.IsGroup() {
			groupKeys[item.Group] = struct{}{}
		}
	}

	// Flat members of additional_info, then one nested struct per group.
	var (
		flatIdxs    []int
		flatFields  []table.Field
		groupNames  []string
		groupIdxs   [][]int
		groupFields [][]table.Field
	)

	seenStruct := make(map[string]struct{})

	for _, item := range st.AdditionalInfo {
		if !item.IsGroup() {
			idx := schema.Index(item.Field)
			if idx < 0 {
				r.warnf("additional_info field not found: %q", item.Field)

				continue
			}

			if _, isKey := groupKeys[item.Field]; isKey {
				continue
			}

			if _, dup := seenStruct[item.Field]; dup {
				continue
			}

			seenStruct[item.Field] = struct{}{}
			flatIdxs = append(flatIdxs, idx)
			flatFields = append(flatFields, schema.Field(idx))

			continue
		}

		var (
			idxs   []int
			fields []table.Field
		)

		for _, member := range item.Members {
			idx := schema.Index(member)
			if idx < 0 {
				r.warnf("additional_info group %q member not found: %q", item.Group, member)

				continue
			}

			idxs = append(idxs, idx)
			fields = append(fields, schema.Field(idx))
		}

		if len(idxs) == 0 {
			continue
		}

		if _, dup := seenStruct[item.Group]; dup {
			continue
		}

		seenStruct[item.Group] = struct{}{}
		groupNames = append(groupNames, item.Group)
		groupIdxs = append(groupIdxs, idxs)
		groupFields = append(groupFields, fields)
	}

	var mainIdxs []int

	outFields := make([]table.Field, 0, len(st.MainInfo)+1)
	seenMain := make(map[string]struct{})

	for _, name := range st.MainInfo {
		if name == "additional_info" {
			continue
		}

		idx := schema.Index(name)
		if idx < 0 {
			r.warnf("main_info column not found: %q", name)

			continue
		}

		if _, dup := seenMain[name]; dup {
			continue
		}

		seenMain[name] = struct{}{}
		mainIdxs = append(mainIdxs, idx)
		outFields = append(outFields, schema.Field(idx))
	}

	structFields := slices.Clone(flatFields)
	for i, name := range groupNames {
		structFields = append(structFields, table.Field{
			Name: name,
			Type: table.StructType(groupFields[i]...),
		})
	}

	// With nothing to assemble the slot degrades to an always-null column.
	structType := table.StringType()
	if len(structFields) > 0 {
		structType = table.StructType(structFields...)
	}

	outFields = append(outFields, table.Field{Name: "additional_info", Type: structType})
	out := table.MustSchema(outFields...)

	return table.NewTransform(p, out, func(row table.Row) table.Row {
		next := make(table.Row, 0, len(mainIdxs)+1)
		for _, idx := range mainIdxs {
			next = append(next, row[idx])
		}

		if len(structFields) == 0 {
			return append(next, nil)
		}

		value := make(map[string]any, len(flatIdxs)+len(groupNames))

		for i, idx := range flatIdxs {
			value[flatFields[i].Name] = row[idx]
		}

		for g, name := range groupNames {
			nested := make(map[string]any, len(groupIdxs[g]))
			for i, idx := range groupIdxs[g] {
				nested[groupFields[g][i].Name] = row[idx]
			}

			value[name] = nested
		}

		return append(next, value)
	})
}

// setLiteral adds a constant scalar column, replacing an existing column of
// the same name in place rather than duplicating it.
func setLiteral(p table.Plan, name string, value any, typ table.Type) table.Plan {
	schema := p.Schema()

	if idx := schema.Index(name); idx >= 0 {
		fields := slices.Clone(schema.Fields())
		fields[idx] = table.Field{Name: name, Type: typ}
		out := table.MustSchema(fields...)

		return table.NewTransform(p, out, func(row table.Row) table.Row {
			next := row.Clone()
			next[idx] = value

			return next
		})
	}

	fields := append(slices.Clone(schema.Fields()), table.Field{Name: name, Type: typ})
	out := table.MustSchema(fields...)

	return table.NewTransform(p, out, func(row table.Row) table.Row {
		next := make(table.Row, 0, len(row)+1)
		next = append(next, row...)

		return append(next, value)
	})
}
