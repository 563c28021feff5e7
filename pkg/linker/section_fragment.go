package linker

import (
	"math"
)

type SectionFragment struct {
	OutputSection *MergedSection
	Offset        uint32
	P2Align       uint32
	IsAlive       bool

	// Data is this fragment's interned byte content, the same string
	// used as its MergedSection.Map key. Kept here too so the ICF
	// digest (§4.4) can hash a fragment's content without reaching back
	// through the map that owns it.
	Data string
}

func NewSectionFragment(m *MergedSection) *SectionFragment {
	return &SectionFragment{OutputSection: m, Offset: math.MaxUint32}
}

func (f *SectionFragment) GetAddr() uint64 {
	return f.OutputSection.Shdr.Addr + uint64(f.Offset)
}
