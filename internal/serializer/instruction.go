package serializer

import (
	"github.com/hanpama/gqlshape/internal/record"
	"github.com/hanpama/gqlshape/internal/selection"
)

type instructionKey struct {
	typ record.Type
	sel *selection.Tree
}

// step reads source from a record and writes it under alias, which is already
// case-converted.
type step struct {
	source   string
	alias    string
	children *selection.Tree
}

// instruction is the precomputed plan for one record type and selection level.
type instruction struct {
	attributes []step
	nested     []step
}

func (s *executionState) instructionFor(t record.Type, sel *selection.Tree) *instruction {
	key := instructionKey{typ: t, sel: sel}
	if ins, ok := s.instructions[key]; ok {
		return ins
	}
	ins := s.buildInstruction(t, sel)
	s.instructions[key] = ins
	s.stats.Instructions++
	return ins
}

func (s *executionState) buildInstruction(t record.Type, sel *selection.Tree) *instruction {
	ins := &instruction{}
	if sel.IsEmpty() {
		for _, name := range s.provider.AttributeNames(t) {
			ins.attributes = append(ins.attributes, step{source: name, alias: s.key(name)})
		}
		return ins
	}
	for _, node := range sel.Nodes {
		st := step{source: node.Name, alias: s.key(node.Alias), children: node.Children}
		if node.Children != nil || s.provider.IsRelation(t, node.Name) {
			ins.nested = append(ins.nested, st)
			continue
		}
		ins.attributes = append(ins.attributes, st)
	}
	// A selection naming only relations still carries the plain attributes.
	if len(ins.attributes) == 0 {
		for _, name := range s.provider.AttributeNames(t) {
			ins.attributes = append(ins.attributes, step{source: name, alias: s.key(name)})
		}
	}
	return ins
}
