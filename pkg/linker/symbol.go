package linker

import (
	"debug/elf"
)

// Flags accumulated by the relocation classifier (§4.1) and drained once
// per symbol by ScanRels when it allocates synthetic-section slots.
const (
	NEEDS_GOT      uint32 = 1 << 0
	NEEDS_PLT      uint32 = 1 << 1
	NEEDS_COPYREL  uint32 = 1 << 2
	NEEDS_GOTTPOFF uint32 = 1 << 3
	NEEDS_TLSGD    uint32 = 1 << 4
	NEEDS_TLSLD    uint32 = 1 << 5
	NEEDS_DYNSYM   uint32 = 1 << 6
)

// SymbolAux is the per-symbol synthetic-section slot table, kept out of
// Symbol itself (mirroring the teacher's AuxIdx indirection) so symbols
// that never need a GOT/PLT/TLS slot don't pay for one.
type SymbolAux struct {
	GotIdx     int32
	GotTpIdx   int32
	PltIdx     int32
	TlsgdIdx   int32
	CopyrelIdx int32
	DynsymIdx  int32
}

func NewSymbolAux() SymbolAux {
	return SymbolAux{
		GotIdx:     -1,
		GotTpIdx:   -1,
		PltIdx:     -1,
		TlsgdIdx:   -1,
		CopyrelIdx: -1,
		DynsymIdx:  -1,
	}
}

type Symbol struct {
	File *ObjectFile

	InputSection    *InputSection
	OutputSection   Chunker
	SectionFragment *SectionFragment

	Value uint64
	Name  string

	SymIdx int32
	AuxIdx int32
	VerIdx uint16

	Flags      uint32
	Visibility uint8

	IsWeak     bool
	IsExported bool

	// IsImported marks a symbol resolved against a DSO: its definition
	// lives outside this link and must be reached through the PLT/GOT
	// or satisfied with a copy relocation, never addressed directly.
	IsImported bool

	// IsPlaceholder marks a provisional archive-member win: resolution
	// has chosen this definition pending the member actually being
	// pulled in. Still unresolved for relocation-scanning purposes.
	IsPlaceholder bool
}

func NewSymbol(name string) *Symbol {
	s := &Symbol{
		Name:       name,
		SymIdx:     -1,
		AuxIdx:     -1,
		Visibility: uint8(elf.STV_DEFAULT),
	}
	return s
}

func GetSymbolByName(ctx *Context, name string) *Symbol {
	if sym, ok := ctx.SymbolMap[name]; ok {
		return sym
	}
	ctx.SymbolMap[name] = NewSymbol(name)
	return ctx.SymbolMap[name]
}

func (s *Symbol) SetInputSection(isec *InputSection) {
	s.InputSection = isec
	s.OutputSection = nil
	s.SectionFragment = nil
}
func (s *Symbol) SetOutputSection(osec Chunker) {
	s.InputSection = nil
	s.OutputSection = osec
	s.SectionFragment = nil
}
func (s *Symbol) SetSectionFragment(frag *SectionFragment) {
	s.InputSection = nil
	s.OutputSection = nil
	s.SectionFragment = frag
}

func (s *Symbol) GetGotIdx(ctx *Context) int32 {
	if s.AuxIdx == -1 {
		return -1
	}
	return ctx.SymbolsAux[s.AuxIdx].GotIdx
}

func (s *Symbol) GetGotTpIdx(ctx *Context) int32 {
	if s.AuxIdx == -1 {
		return -1
	}
	return ctx.SymbolsAux[s.AuxIdx].GotTpIdx
}

func (s *Symbol) GetTlsgdIdx(ctx *Context) int32 {
	if s.AuxIdx == -1 {
		return -1
	}
	return ctx.SymbolsAux[s.AuxIdx].TlsgdIdx
}

func (s *Symbol) GetPltIdx(ctx *Context) int32 {
	if s.AuxIdx == -1 {
		return -1
	}
	return ctx.SymbolsAux[s.AuxIdx].PltIdx
}

func (s *Symbol) GetCopyrelIdx(ctx *Context) int32 {
	if s.AuxIdx == -1 {
		return -1
	}
	return ctx.SymbolsAux[s.AuxIdx].CopyrelIdx
}

func (s *Symbol) GetDynsymIdx(ctx *Context) int32 {
	if s.AuxIdx == -1 {
		return -1
	}
	return ctx.SymbolsAux[s.AuxIdx].DynsymIdx
}

func (s *Symbol) SetGotIdx(ctx *Context, idx int32) {
	ctx.SymbolsAux[s.AuxIdx].GotIdx = idx
}

func (s *Symbol) SetGotTpIdx(ctx *Context, idx int32) {
	ctx.SymbolsAux[s.AuxIdx].GotTpIdx = idx
}

func (s *Symbol) SetTlsgdIdx(ctx *Context, idx int32) {
	ctx.SymbolsAux[s.AuxIdx].TlsgdIdx = idx
}

func (s *Symbol) SetPltIdx(ctx *Context, idx int32) {
	ctx.SymbolsAux[s.AuxIdx].PltIdx = idx
}

func (s *Symbol) SetCopyrelIdx(ctx *Context, idx int32) {
	ctx.SymbolsAux[s.AuxIdx].CopyrelIdx = idx
}

func (s *Symbol) SetDynsymIdx(ctx *Context, idx int32) {
	ctx.SymbolsAux[s.AuxIdx].DynsymIdx = idx
}

func (s *Symbol) ElfSym() *Sym {
	return &s.File.ElfSyms[s.SymIdx]
}

// IsRelative reports whether a relocation against this symbol can be
// resolved at link time, without going through the PLT/GOT or a copy
// relocation. Used throughout the classifier (§4.1) to pick between an
// absolute write and a dynamic relocation.
func (s *Symbol) IsRelative() bool {
	return !s.IsImported && !s.IsUndefWeak()
}

func (s *Symbol) IsUndefWeak() bool {
	if s.File == nil {
		return false
	}
	esym := s.ElfSym()
	return esym.IsUndef() && s.IsWeak
}

func (s *Symbol) GetAddr(ctx *Context) uint64 {
	if s.SectionFragment != nil {
		if !s.SectionFragment.IsAlive {
			return 0
		}
		return s.SectionFragment.GetAddr() + s.Value
	}

	if s.InputSection == nil {
		return s.Value
	}

	if !s.InputSection.IsAlive {
		return 0
	}

	return s.InputSection.GetAddr() + s.Value
}

func (s *Symbol) GetGotAddr(ctx *Context) uint64 {
	return ctx.Got.Shdr.Addr + uint64(s.GetGotIdx(ctx))*GotEntrySize
}

func (s *Symbol) GetGotTpAddr(ctx *Context) uint64 {
	return ctx.Got.Shdr.Addr + uint64(s.GetGotTpIdx(ctx))*GotEntrySize
}

func (s *Symbol) GetTlsgdAddr(ctx *Context) uint64 {
	return ctx.Got.Shdr.Addr + uint64(s.GetTlsgdIdx(ctx))*GotEntrySize
}

func (s *Symbol) GetPltAddr(ctx *Context) uint64 {
	if s.GetPltIdx(ctx) == -1 {
		return 0
	}
	return ctx.Plt.Shdr.Addr + uint64(s.GetPltIdx(ctx))*PltEntrySize
}

func (s *Symbol) Clear() {
	s.File = nil
	s.SectionFragment = nil
	s.OutputSection = nil
	s.InputSection = nil
	s.SymIdx = -1
	s.VerIdx = 0
	s.IsWeak = false
	s.IsExported = false
	s.IsImported = false
}

func (s *Symbol) GetRank() uint64 {
	if s.File == nil {
		return 7 << 24
	}
	return GetRank(s.File, s.ElfSym(), !s.File.IsAlive)
}
