package linker

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSplitEhFrameSectionAttachesFdeToTarget(t *testing.T) {
	data := make([]byte, 32)

	// CIE at [0:16): length=12, id=0 (marks CIE).
	binary.LittleEndian.PutUint32(data[0:], 12)
	binary.LittleEndian.PutUint32(data[4:], 0)

	// FDE at [16:32): length=12, id=nonzero (distance back to its CIE).
	binary.LittleEndian.PutUint32(data[16:], 12)
	binary.LittleEndian.PutUint32(data[20:], 16)

	target := &InputSection{IsAlive: true}
	targetSym := &Symbol{InputSection: target}

	file := &ObjectFile{}
	file.Symbols = []*Symbol{nil, targetSym}

	ehSec := &InputSection{
		File:     file,
		Contents: data,
		Rels: []Rela{
			{Offset: 24, Sym: 1, Type: 1, Addend: 0},
		},
	}

	file.splitEhFrameSection(ehSec)

	assert.Len(t, target.Fdes, 1)
	assert.Equal(t, data[16:32], target.Fdes[0].Contents)
	assert.Len(t, target.Fdes[0].Rels, 1)
	assert.Equal(t, uint64(24-16), target.Fdes[0].Rels[0].Offset)
	assert.Same(t, targetSym, target.Fdes[0].Rels[0].Sym)
}

func TestSplitEhFrameSectionSkipsCieOnly(t *testing.T) {
	data := make([]byte, 16)
	binary.LittleEndian.PutUint32(data[0:], 12)
	binary.LittleEndian.PutUint32(data[4:], 0)

	file := &ObjectFile{InputFile: InputFile{Symbols: []*Symbol{nil}}}
	ehSec := &InputSection{File: file, Contents: data, Rels: []Rela{}}

	file.splitEhFrameSection(ehSec)
}
