package linker

import "debug/elf"

// STT_GNU_IFUNC is the GNU extension symbol type (aliases STT_LOOS in the
// generic ABI) marking indirect functions, which always need a PLT entry
// regardless of whether they're imported.
const STT_GNU_IFUNC = 10

// ScanRelocations is the relocation classifier (§4.1): for every
// relocation against this (SHF_ALLOC) section it decides the abstract
// RelocKind the applier will act on, and raises the symbol flags that
// tell ScanRels which synthetic-section slots to allocate. It never
// writes to the section's bytes; that's ApplyRelocAlloc's job, run once
// layout is final. Grounded on mold's input_sections.cc::scan_relocations.
func (s *InputSection) ScanRelocations(ctx *Context) {
	if s.Shdr().Flags&uint64(elf.SHF_ALLOC) == 0 {
		return
	}

	rels := s.GetRels()
	s.RelTypes = make([]RelocKind, len(rels))
	s.HasFragments = make([]bool, len(rels))
	isReadonly := s.Shdr().Flags&uint64(elf.SHF_WRITE) == 0

	for i := 0; i < len(rels); i++ {
		rel := &rels[i]
		sym := s.File.Symbols[rel.Sym]

		if frag, addend := s.GetFragment(rel); frag != nil {
			s.HasFragments[i] = true
			s.RelFragments = append(s.RelFragments, FragRef{Frag: frag, Addend: int64(addend)})
		}

		if sym.File == nil || sym.IsPlaceholder {
			ctx.Errors.Add("undefined symbol: %s: %s", s.File.Name, sym.Name)
			continue
		}

		isCode := sym.ElfSym().Type() == uint8(elf.STT_FUNC)

		reportIllegalAbs := func() {
			ctx.Errors.Add("%s: %s relocation against symbol `%s' can not be used; recompile with -fPIE",
				s.Name(), elf.R_X86_64(rel.Type).String(), sym.Name)
		}

		switch elf.R_X86_64(rel.Type) {
		case elf.R_X86_64_NONE:
			s.RelTypes[i] = R_NONE

		case elf.R_X86_64_8, elf.R_X86_64_16, elf.R_X86_64_32, elf.R_X86_64_32S:
			if ctx.Arg.Pie && sym.IsRelative() {
				reportIllegalAbs()
			}
			if sym.IsImported {
				if isCode {
					sym.Flags |= NEEDS_PLT
				} else {
					sym.Flags |= NEEDS_COPYREL
				}
			}
			s.RelTypes[i] = R_ABS

		case elf.R_X86_64_64:
			switch {
			case ctx.Arg.Pie && sym.IsImported:
				if isReadonly {
					reportIllegalAbs()
				}
				sym.Flags |= NEEDS_DYNSYM
				s.RelTypes[i] = R_DYN
				s.File.NumDynrel++
			case ctx.Arg.Pie && sym.IsRelative():
				if isReadonly {
					reportIllegalAbs()
				}
				s.RelTypes[i] = R_ABS_DYN
				s.File.NumDynrel++
			default:
				if sym.IsImported {
					if isCode {
						sym.Flags |= NEEDS_PLT
					} else {
						sym.Flags |= NEEDS_COPYREL
					}
				}
				s.RelTypes[i] = R_ABS
			}

		case elf.R_X86_64_PC8, elf.R_X86_64_PC16, elf.R_X86_64_PC32, elf.R_X86_64_PC64:
			if sym.IsImported {
				if isCode {
					sym.Flags |= NEEDS_PLT
				} else {
					sym.Flags |= NEEDS_COPYREL
				}
			}
			s.RelTypes[i] = R_PC

		case elf.R_X86_64_GOT32:
			sym.Flags |= NEEDS_GOT
			s.RelTypes[i] = R_GOT

		case elf.R_X86_64_GOTPC32:
			sym.Flags |= NEEDS_GOT
			s.RelTypes[i] = R_GOTPC

		case elf.R_X86_64_GOTPCREL, elf.R_X86_64_GOTPCRELX, elf.R_X86_64_REX_GOTPCRELX:
			sym.Flags |= NEEDS_GOT
			s.RelTypes[i] = R_GOTPCREL

		case elf.R_X86_64_PLT32:
			if sym.IsImported || sym.ElfSym().Type() == uint8(STT_GNU_IFUNC) {
				sym.Flags |= NEEDS_PLT
			}
			s.RelTypes[i] = R_PC

		case elf.R_X86_64_TLSGD:
			if i+1 == len(rels) || rels[i+1].Type != uint32(elf.R_X86_64_PLT32) {
				ctx.Errors.Add("%s: TLSGD relocation not followed by PLT32", s.Name())
			}
			if ctx.Arg.Relax && !sym.IsImported {
				s.RelTypes[i] = R_TLSGD_RELAX_LE
				i++
				s.RelTypes[i] = R_NONE
			} else {
				sym.Flags |= NEEDS_TLSGD
				sym.Flags |= NEEDS_DYNSYM
				s.RelTypes[i] = R_TLSGD
			}

		case elf.R_X86_64_TLSLD:
			if i+1 == len(rels) || rels[i+1].Type != uint32(elf.R_X86_64_PLT32) {
				ctx.Errors.Add("%s: TLSLD relocation not followed by PLT32", s.Name())
			}
			if sym.IsImported {
				ctx.Errors.Add("%s: TLSLD relocation refers external symbol %s", s.Name(), sym.Name)
			}
			if ctx.Arg.Relax {
				s.RelTypes[i] = R_TLSLD_RELAX_LE
				i++
				s.RelTypes[i] = R_NONE
			} else {
				sym.Flags |= NEEDS_TLSLD
				s.RelTypes[i] = R_TLSLD
			}

		case elf.R_X86_64_DTPOFF32, elf.R_X86_64_DTPOFF64:
			if sym.IsImported {
				ctx.Errors.Add("%s: DTPOFF relocation refers external symbol %s", s.Name(), sym.Name)
			}
			if ctx.Arg.Relax {
				s.RelTypes[i] = R_TPOFF
			} else {
				s.RelTypes[i] = R_DTPOFF
			}

		case elf.R_X86_64_TPOFF32, elf.R_X86_64_TPOFF64:
			s.RelTypes[i] = R_TPOFF

		case elf.R_X86_64_GOTTPOFF:
			sym.Flags |= NEEDS_GOTTPOFF
			s.RelTypes[i] = R_GOTTPOFF

		default:
			ctx.Errors.Add("%s: unknown relocation: %d", s.Name(), rel.Type)
		}
	}
}
