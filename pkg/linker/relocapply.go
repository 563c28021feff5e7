package linker

import (
	"debug/elf"

	"github.com/go-xld/xld/pkg/utils"
)

// relaxedGdToLe is the fixed instruction sequence substituted for a
// TLSGD access relaxed to LE (§4.1/§4.2): mov %fs:0,%rax; lea x@tpoff,%rax.
// Written starting 4 bytes before the relocation offset, matching the
// GD call sequence's lead-in bytes it overwrites.
var relaxedGdToLe = [...]byte{
	0x64, 0x48, 0x8b, 0x04, 0x25, 0, 0, 0, 0,
	0x48, 0x8d, 0x80, 0, 0, 0, 0,
}

// relaxedLdToLe is the fixed instruction sequence substituted for a
// TLSLD access relaxed to LE: mov %fs:0,%rax, with no offset patch since
// every TLSLD-relaxed reference still needs its own DTPOFF companion
// relocation to supply the per-variable offset.
var relaxedLdToLe = [...]byte{
	0x66, 0x66, 0x66, 0x64, 0x48, 0x8b, 0x04, 0x25, 0, 0, 0, 0,
}

func overflowCheck(ctx *Context, s *InputSection, sym *Symbol, rtype uint32, val uint64) {
	name := elf.R_X86_64(rtype).String()
	switch elf.R_X86_64(rtype) {
	case elf.R_X86_64_8:
		if val != uint64(uint8(val)) {
			ctx.Errors.Add("%s: relocation %s against %s out of range: %d is not in [0, 255]",
				s.Name(), name, sym.Name, val)
		}
	case elf.R_X86_64_PC8:
		if int64(val) != int64(int8(val)) {
			ctx.Errors.Add("%s: relocation %s against %s out of range: %d is not in [-128, 127]",
				s.Name(), name, sym.Name, int64(val))
		}
	case elf.R_X86_64_16:
		if val != uint64(uint16(val)) {
			ctx.Errors.Add("%s: relocation %s against %s out of range: %d is not in [0, 65535]",
				s.Name(), name, sym.Name, val)
		}
	case elf.R_X86_64_PC16:
		if int64(val) != int64(int16(val)) {
			ctx.Errors.Add("%s: relocation %s against %s out of range: %d is not in [-32768, 32767]",
				s.Name(), name, sym.Name, int64(val))
		}
	case elf.R_X86_64_32:
		if val != uint64(uint32(val)) {
			ctx.Errors.Add("%s: relocation %s against %s out of range: %d is not in [0, 4294967295]",
				s.Name(), name, sym.Name, val)
		}
	case elf.R_X86_64_32S, elf.R_X86_64_PC32, elf.R_X86_64_GOT32, elf.R_X86_64_GOTPC32,
		elf.R_X86_64_GOTPCREL, elf.R_X86_64_GOTPCRELX, elf.R_X86_64_REX_GOTPCRELX,
		elf.R_X86_64_PLT32, elf.R_X86_64_TLSGD, elf.R_X86_64_TLSLD,
		elf.R_X86_64_TPOFF32, elf.R_X86_64_DTPOFF32, elf.R_X86_64_GOTTPOFF:
		if int64(val) != int64(int32(val)) {
			ctx.Errors.Add("%s: relocation %s against %s out of range: %d is not in [-2147483648, 2147483647]",
				s.Name(), name, sym.Name, int64(val))
		}
	case elf.R_X86_64_NONE, elf.R_X86_64_64, elf.R_X86_64_PC64,
		elf.R_X86_64_TPOFF64, elf.R_X86_64_DTPOFF64:
		// No bound narrower than the full 64 bits.
	}
}

func writeVal(rtype uint32, loc []byte, val uint64) {
	switch elf.R_X86_64(rtype) {
	case elf.R_X86_64_NONE:
	case elf.R_X86_64_8, elf.R_X86_64_PC8:
		loc[0] = byte(val)
	case elf.R_X86_64_16, elf.R_X86_64_PC16:
		utils.Write[uint16](loc, uint16(val))
	case elf.R_X86_64_32, elf.R_X86_64_32S, elf.R_X86_64_PC32, elf.R_X86_64_GOT32,
		elf.R_X86_64_GOTPC32, elf.R_X86_64_GOTPCREL, elf.R_X86_64_GOTPCRELX,
		elf.R_X86_64_REX_GOTPCRELX, elf.R_X86_64_PLT32, elf.R_X86_64_TLSGD,
		elf.R_X86_64_TLSLD, elf.R_X86_64_TPOFF32, elf.R_X86_64_DTPOFF32,
		elf.R_X86_64_GOTTPOFF:
		utils.Write[uint32](loc, uint32(val))
	case elf.R_X86_64_64, elf.R_X86_64_PC64, elf.R_X86_64_TPOFF64, elf.R_X86_64_DTPOFF64:
		utils.Write[uint64](loc, val)
	}
}

// ApplyRelocAlloc is the relocation applier's SHF_ALLOC half (§4.2): it
// turns each classified RelocKind into the bytes the runtime image needs,
// emitting a dynamic relocation into .rela.dyn wherever the value can't
// be known until load time. Grounded on
// mold's input_sections.cc::apply_reloc_alloc.
func (s *InputSection) ApplyRelocAlloc(ctx *Context, base []byte) {
	rels := s.GetRels()
	s.DynRelas = s.DynRelas[:0]
	fragIdx := 0

	for i := 0; i < len(rels); i++ {
		rel := rels[i]
		sym := s.File.Symbols[rel.Sym]
		loc := base[rel.Offset:]

		var frag *SectionFragment
		var fragAddend int64
		if s.HasFragments[i] {
			ref := s.RelFragments[fragIdx]
			fragIdx++
			frag, fragAddend = ref.Frag, ref.Addend
		}

		symAddr := func() uint64 {
			if frag != nil {
				return frag.GetAddr()
			}
			if sym.GetPltIdx(ctx) == -1 {
				return sym.GetAddr(ctx)
			}
			return sym.GetPltAddr(ctx)
		}
		addend := func() uint64 {
			if frag != nil {
				return uint64(fragAddend)
			}
			return uint64(rel.Addend)
		}

		P := s.GetAddr() + rel.Offset
		write := func(val uint64) {
			overflowCheck(ctx, s, sym, rel.Type, val)
			writeVal(rel.Type, loc, val)
		}

		switch s.RelTypes[i] {
		case R_NONE:
		case R_ABS:
			write(symAddr() + addend())
		case R_ABS_DYN:
			write(symAddr() + addend())
			s.DynRelas = append(s.DynRelas, Rela{
				Offset: P,
				Type:   uint32(elf.R_X86_64_RELATIVE),
				Sym:    0,
				Addend: int64(symAddr() + addend()),
			})
		case R_DYN:
			s.DynRelas = append(s.DynRelas, Rela{
				Offset: P,
				Type:   uint32(elf.R_X86_64_64),
				Sym:    uint32(sym.GetDynsymIdx(ctx)),
				Addend: int64(addend()),
			})
		case R_PC:
			write(symAddr() + addend() - P)
		case R_GOT:
			write(uint64(sym.GetGotIdx(ctx))*GotEntrySize + addend())
		case R_GOTPC:
			write(ctx.Got.Shdr.Addr + addend() - P)
		case R_GOTPCREL:
			write(uint64(sym.GetGotIdx(ctx))*GotEntrySize + ctx.Got.Shdr.Addr + addend() - P)
		case R_TLSGD:
			write(sym.GetTlsgdAddr(ctx) + addend() - P)
		case R_TLSGD_RELAX_LE:
			copy(base[rel.Offset-4:], relaxedGdToLe[:])
			utils.Write[uint32](base[rel.Offset+8:], uint32(symAddr()-ctx.TlsEnd+addend()+4))
			i++
		case R_TLSLD:
			write(ctx.Got.GetTlsldAddr(ctx) + addend() - P)
		case R_TLSLD_RELAX_LE:
			copy(base[rel.Offset-3:], relaxedLdToLe[:])
			i++
		case R_DTPOFF:
			write(symAddr() + addend() - ctx.TlsBegin)
		case R_TPOFF:
			write(symAddr() + addend() - ctx.TlsEnd)
		case R_GOTTPOFF:
			write(sym.GetGotTpAddr(ctx) + addend() - P)
		}
	}
}

// ApplyRelocNonalloc handles relocations against sections that are never
// mapped into memory (mostly debug info): simpler than the alloc case
// since there's no PLT/GOT/TLS machinery to thread through, and no
// dynamic relocation is ever legal here because the section doesn't
// exist at runtime. Grounded on
// mold's input_sections.cc::apply_reloc_nonalloc.
func (s *InputSection) ApplyRelocNonalloc(ctx *Context, base []byte) {
	rels := s.GetRels()

	for i := 0; i < len(rels); i++ {
		rel := rels[i]
		sym := s.File.Symbols[rel.Sym]

		if sym.File == nil || sym.IsPlaceholder {
			ctx.Errors.Add("undefined symbol: %s: %s", s.File.Name, sym.Name)
			continue
		}

		// ScanRelocations never runs over non-alloc sections (scan.go's
		// early SHF_ALLOC check), so HasFragments/RelFragments are never
		// populated here: resolve a fragment target directly per-rel
		// instead.
		frag, fragAddend := s.GetFragment(&rel)

		loc := base[rel.Offset:]

		switch elf.R_X86_64(rel.Type) {
		case elf.R_X86_64_NONE:
		case elf.R_X86_64_8, elf.R_X86_64_16, elf.R_X86_64_32, elf.R_X86_64_32S, elf.R_X86_64_64:
			val := sym.GetAddr(ctx)
			if frag != nil {
				val = frag.GetAddr() + uint64(fragAddend)
			}
			overflowCheck(ctx, s, sym, rel.Type, val)
			writeVal(rel.Type, loc, val)
		case elf.R_X86_64_DTPOFF64:
			writeVal(rel.Type, loc, sym.GetAddr(ctx)+uint64(rel.Addend)-ctx.TlsBegin)
		default:
			ctx.Errors.Add("%s: invalid relocation for non-allocated sections: %s",
				s.Name(), elf.R_X86_64(rel.Type).String())
		}
	}
}
