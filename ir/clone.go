package ir

// CloneRegionInto deep-copies the blocks of src into dst, remapping every
// value reference to its clone. The copy is a full structural copy, never
// an alias: block arguments, operation results and nested regions are all
// re-created, and operand references to values defined inside src resolve
// to the corresponding new values. References to values defined outside
// src are kept as-is.
//
// typeMap, when non-nil, rewrites the type of every cloned block argument,
// result value and type attribute. valueMap, when non-nil, receives the
// old→new value mapping (and is consulted for values already mapped by the
// caller).
//
// The clone happens in one traversal over original block order: all blocks
// and their arguments are created first so that operand and successor
// references never point forward into not-yet-created nodes.
//
// Returns the cloned operations in creation order (pre-order).
func (m *Module) CloneRegionInto(src, dst RegionHandle, valueMap map[ValueHandle]ValueHandle, typeMap func(TypeHandle) TypeHandle) []OpHandle {
	if valueMap == nil {
		valueMap = make(map[ValueHandle]ValueHandle)
	}
	var created []OpHandle
	m.cloneRegion(src, dst, valueMap, typeMap, &created)
	return created
}

func (m *Module) cloneRegion(src, dst RegionHandle, valueMap map[ValueHandle]ValueHandle, typeMap func(TypeHandle) TypeHandle, created *[]OpHandle) {
	srcBlocks := m.regions[src].blocks
	blockMap := make(map[BlockHandle]BlockHandle, len(srcBlocks))

	for _, sb := range srcBlocks {
		argTypes := make([]TypeHandle, len(m.blocks[sb].args))
		for i, a := range m.blocks[sb].args {
			argTypes[i] = m.mapType(m.values[a].typ, typeMap)
		}
		nb := m.AddBlock(dst, argTypes)
		blockMap[sb] = nb
		for i, a := range m.blocks[sb].args {
			valueMap[a] = m.blocks[nb].args[i]
		}
	}

	for _, sb := range srcBlocks {
		nb := blockMap[sb]
		for _, op := range m.blocks[sb].ops {
			m.cloneOp(op, nb, valueMap, blockMap, typeMap, created)
		}
	}
}

func (m *Module) cloneOp(src OpHandle, dst BlockHandle, valueMap map[ValueHandle]ValueHandle, blockMap map[BlockHandle]BlockHandle, typeMap func(TypeHandle) TypeHandle, created *[]OpHandle) OpHandle {
	n := &m.ops[src]

	operands := make([]ValueHandle, len(n.operands))
	for i, v := range n.operands {
		if mapped, ok := valueMap[v]; ok {
			operands[i] = mapped
		} else {
			operands[i] = v
		}
	}

	resultTypes := make([]TypeHandle, len(n.results))
	for i, res := range n.results {
		resultTypes[i] = m.mapType(m.values[res].typ, typeMap)
	}

	successors := make([]BlockHandle, len(n.successors))
	for i, s := range n.successors {
		if mapped, ok := blockMap[s]; ok {
			successors[i] = mapped
		} else {
			successors[i] = s
		}
	}

	var attrs map[string]Attribute
	if len(n.attrs) > 0 {
		attrs = make(map[string]Attribute, len(n.attrs))
		for k, a := range n.attrs {
			if ta, ok := a.(TypeAttr); ok && typeMap != nil {
				a = TypeAttr{Type: typeMap(ta.Type)}
			}
			attrs[k] = a
		}
	}

	clone := m.AppendOp(dst, OpSpec{
		Kind:        n.kind,
		Operands:    operands,
		ResultTypes: resultTypes,
		Attrs:       attrs,
		Successors:  successors,
		NumRegions:  len(n.regions),
		Terminator:  n.terminator,
		Loc:         n.loc,
	})
	*created = append(*created, clone)

	// AppendOp may have grown the ops arena; re-read the source node.
	n = &m.ops[src]
	for i, res := range n.results {
		valueMap[res] = m.ops[clone].results[i]
	}
	for i, r := range n.regions {
		m.cloneRegion(r, m.ops[clone].regions[i], valueMap, typeMap, created)
	}
	return clone
}

func (m *Module) mapType(t TypeHandle, typeMap func(TypeHandle) TypeHandle) TypeHandle {
	if typeMap == nil {
		return t
	}
	return typeMap(t)
}
