package linker

import "encoding/binary"

// EhReloc is a relocation carried by a frame descriptor entry, copied out
// of the owning .eh_frame section's relocation list and rebased to be
// relative to the FDE's own start rather than the section's.
type EhReloc struct {
	Sym    *Symbol
	Type   uint32
	Offset uint64
	Addend int64
}

// FdeRecord is one frame descriptor entry split out of a .eh_frame
// section (§4.4): Contents is the raw record bytes including its
// 4-byte length prefix, Rels its relocations rebased into the record.
// Grounded on mold's icf.cc, which hashes these alongside the section
// they describe rather than merging .eh_frame as ordinary input.
type FdeRecord struct {
	Contents []byte
	Rels     []EhReloc
}

// splitEhFrameSection walks a CIE/FDE stream and attaches each FDE to
// the InputSection its first relocation targets, so a later fold of
// that section carries its unwind info along. CIEs are consumed but not
// kept: this linker never needs to compare or merge them individually,
// only to skip past them while scanning for FDEs.
func (o *ObjectFile) splitEhFrameSection(isec *InputSection) {
	data := isec.Contents
	rels := isec.GetRels()
	relIdx := 0

	for pos := 0; pos+4 <= len(data); {
		size := binary.LittleEndian.Uint32(data[pos:])
		if size == 0 {
			break
		}
		recEnd := pos + 4 + int(size)
		if recEnd > len(data) {
			break
		}
		if pos+8 > len(data) {
			break
		}
		id := binary.LittleEndian.Uint32(data[pos+4:])

		var recRels []EhReloc
		for relIdx < len(rels) && int(rels[relIdx].Offset) < recEnd {
			r := rels[relIdx]
			relIdx++
			if int(r.Offset) < pos {
				continue
			}
			recRels = append(recRels, EhReloc{
				Sym:    o.Symbols[r.Sym],
				Type:   r.Type,
				Offset: r.Offset - uint64(pos),
				Addend: r.Addend,
			})
		}

		// id == 0 marks a CIE; anything else is an FDE, whose id field
		// gives the backward distance to its CIE.
		if id != 0 && len(recRels) > 0 {
			fde := &FdeRecord{
				Contents: append([]byte(nil), data[pos:recEnd]...),
				Rels:     recRels,
			}
			if target := recRels[0].Sym; target != nil && target.InputSection != nil {
				target.InputSection.Fdes = append(target.InputSection.Fdes, fde)
			}
		}

		pos = recEnd
	}
}
