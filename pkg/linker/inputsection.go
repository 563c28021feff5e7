package linker

import (
	"debug/elf"
	"math"
	"unsafe"

	"github.com/go-xld/xld/pkg/utils"
)

// FragRef resolves one relocation against a mergeable-section fragment
// instead of a regular symbol: the addend is relative to the fragment's
// own start, not to the symbol that happened to name the section.
type FragRef struct {
	Frag   *SectionFragment
	Addend int64
}

type InputSection struct {
	File          *ObjectFile
	OutputSection *OutputSection
	Contents      []byte
	Offset        uint32
	Shndx         uint32
	RelsecIdx     uint32
	ShSize        uint32
	IsAlive       bool
	P2Align       uint8
	Rels          []Rela

	// RelTypes holds the classifier's (§4.1) verdict per relocation,
	// filled in by ScanRelocations and consumed by ApplyRelocAlloc.
	RelTypes     []RelocKind
	HasFragments []bool
	RelFragments []FragRef

	// RelDynOffset is not assigned by any pass and stays zero: .rela.dyn
	// is filled by RelaDynSection.Collect from DynRelas instead.
	RelDynOffset uint64
	DynRelas     []Rela

	// IcfIdx/Leader are the Identical Code Folding engine's working
	// state (§4.3-§4.7): IcfIdx is this section's slot in the global
	// entries table, Leader is the section this one was folded into
	// (nil until folding decides one).
	IcfIdx int64
	Leader *InputSection

	// Fdes lists the exception-handling frame descriptors that cover
	// ranges of this section, used only by ICF's digest (§4.4).
	Fdes []*FdeRecord
}

func NewInputSection(
	ctx *Context, file *ObjectFile, name string, shndx int64,
) *InputSection {
	s := &InputSection{
		Offset:    math.MaxUint32,
		Shndx:     math.MaxUint32,
		RelsecIdx: math.MaxUint32,
		ShSize:    math.MaxUint32,
		IsAlive:   true,
		IcfIdx:    -1,
	}
	s.File = file
	s.Shndx = uint32(shndx)

	shdr := s.Shdr()
	if shndx < int64(len(file.ElfSections)) {
		s.Contents = file.File.Contents[shdr.Offset : shdr.Offset+shdr.Size]
	}

	toP2Align := func(alignment uint64) int64 {
		if alignment == 0 {
			return 0
		}
		return int64(utils.CountrZero[uint64](alignment))
	}

	if shdr.Flags&uint64(elf.SHF_COMPRESSED) != 0 {
		chdr := s.Chdr()
		s.ShSize = uint32(chdr.Size)
		s.P2Align = uint8(toP2Align(chdr.AddrAlign))
	} else {
		s.ShSize = uint32(shdr.Size)
		s.P2Align = uint8(toP2Align(shdr.AddrAlign))
	}

	s.OutputSection =
		GetOutputSectionInstance(ctx, name, uint64(shdr.Type), shdr.Flags)

	return s
}

func (s *InputSection) Shdr() *Shdr {
	if s.Shndx < uint32(len(s.File.ElfSections)) {
		return &s.File.ElfSections[s.Shndx]
	}

	utils.Fatal("unreachable")
	return nil
}

func (s *InputSection) Chdr() Chdr {
	return utils.Read[Chdr](s.Contents)
}

func (s *InputSection) GetAddr() uint64 {
	return s.OutputSection.Shdr.Addr + uint64(s.Offset)
}

func (s *InputSection) Name() string {
	if uint32(len(s.File.ElfSections)) <= s.Shndx {
		return ".common"
	}
	return getName(s.File.ShStrtab, s.File.ElfSections[s.Shndx].Name)
}

// GetPriority ranks this section among all sections of the link: the
// owning file's priority in the high 32 bits, the section index in the
// low 32. Used to break (digest, priority) ties during ICF's final
// merge (§4.6).
func (s *InputSection) GetPriority() int64 {
	return (int64(s.File.Priority) << 32) | int64(s.Shndx)
}

func (s *InputSection) GetRels() []Rela {
	if s.RelsecIdx == math.MaxUint32 || s.Rels != nil {
		return s.Rels
	}

	bs := s.File.GetBytesFromShdr(&s.File.InputFile.ElfSections[s.RelsecIdx])
	nums := len(bs) / int(unsafe.Sizeof(Rela{}))
	s.Rels = make([]Rela, 0, nums)
	for nums > 0 {
		s.Rels = append(s.Rels, utils.Read[Rela](bs))
		bs = bs[unsafe.Sizeof(Rela{}):]
		nums--
	}

	return s.Rels
}

func (s *InputSection) WriteTo(ctx *Context, buf []byte) {
	if s.Shdr().Type == uint32(elf.SHT_NOBITS) || s.ShSize == 0 {
		return
	}

	copy(buf, s.Contents)

	if s.Shdr().Flags&uint64(elf.SHF_ALLOC) != 0 {
		s.ApplyRelocAlloc(ctx, buf)
	} else {
		s.ApplyRelocNonalloc(ctx, buf)
	}
}

func (s *InputSection) GetFragment(rel *Rela) (*SectionFragment, uint32) {
	esym := &s.File.ElfSyms[rel.Sym]
	if esym.Type() == uint8(elf.STT_SECTION) {
		m := s.File.MergeableSections[s.File.GetShndx(esym, int64(rel.Sym))]
		return m.GetFragment(uint32(esym.Val) + uint32(rel.Addend))
	}
	return nil, 0
}
