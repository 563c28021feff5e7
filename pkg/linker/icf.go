package linker

import (
	"bytes"
	"crypto/sha256"
	"debug/elf"
	"encoding/binary"
	"sort"

	"github.com/go-xld/xld/pkg/utils"
)

// Digest is ICF's truncated section fingerprint: the first 16 bytes of a
// SHA-256 sum, wide enough that unrelated sections collide only by
// astronomical chance while staying cheap to compare and sort.
type Digest [16]byte

func (d Digest) less(o Digest) bool {
	return bytes.Compare(d[:], o[:]) < 0
}

type icfEntry struct {
	isec       *InputSection
	digest     Digest
	isEligible bool
}

// icfEligible reports whether a section is even a folding candidate:
// only read-only executable code sections qualify, and never ones whose
// name a linker script or __start_/__stop_ symbol could address by
// identifier, since folding those would silently change which bytes
// such a symbol resolves to.
func icfEligible(isec *InputSection) bool {
	shdr := isec.Shdr()
	isAlloc := shdr.Flags&uint64(elf.SHF_ALLOC) != 0
	isExec := shdr.Flags&uint64(elf.SHF_EXECINSTR) != 0
	isWrite := shdr.Flags&uint64(elf.SHF_WRITE) != 0
	isBss := shdr.Type == uint32(elf.SHT_NOBITS)
	name := isec.Name()
	isInit := shdr.Type == uint32(elf.SHT_INIT_ARRAY) || name == ".init"
	isFini := shdr.Type == uint32(elf.SHT_FINI_ARRAY) || name == ".fini"
	isEnumerable := isCIdentifier(name)

	return isAlloc && isExec && !isWrite && !isBss && !isInit && !isFini && !isEnumerable
}

func isCIdentifier(s string) bool {
	if s == "" {
		return false
	}
	valid := func(c byte) bool {
		return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
	}
	if s[0] >= '0' && s[0] <= '9' {
		return false
	}
	for i := 0; i < len(s); i++ {
		if !valid(s[i]) {
			return false
		}
	}
	return true
}

func packNumber(val int64) Digest {
	var d Digest
	binary.LittleEndian.PutUint64(d[:8], uint64(val))
	return d
}

// computeDigest hashes everything about a section that can be known
// without first knowing which other sections are identical to it: its
// bytes, its relocations' offsets/types/addends, and — for each
// relocation that targets another section through a plain symbol — a
// marker that says "points at some section" without saying which one.
// That last part is deliberate: which section it points to is exactly
// what iterative propagation (icfPropagate) is for.
func computeDigest(isec *InputSection) Digest {
	h := sha256.New()

	hashI64 := func(v int64) {
		var b [8]byte
		binary.LittleEndian.PutUint64(b[:], uint64(v))
		h.Write(b[:])
	}
	hashBytes := func(b []byte) {
		hashI64(int64(len(b)))
		h.Write(b)
	}
	hashSymbol := func(sym *Symbol) {
		switch {
		case sym.SectionFragment != nil:
			hashI64(2)
			hashBytes([]byte(sym.SectionFragment.Data))
		case sym.InputSection == nil:
			hashI64(3)
		default:
			hashI64(4)
		}
		hashI64(int64(sym.Value))
	}

	hashBytes(isec.Contents)
	hashI64(int64(isec.Shdr().Flags))
	hashI64(int64(len(isec.Fdes)))
	rels := isec.GetRels()
	hashI64(int64(len(rels)))

	for _, fde := range isec.Fdes {
		if len(fde.Contents) >= 8 {
			hashBytes(fde.Contents[:4])
			hashBytes(fde.Contents[8:])
		}
		hashI64(int64(len(fde.Rels)))
		for _, rel := range fde.Rels[1:] {
			hashSymbol(rel.Sym)
			hashI64(int64(rel.Type))
			hashI64(int64(rel.Offset))
			hashI64(rel.Addend)
		}
	}

	fragIdx := 0
	for i := range rels {
		rel := rels[i]
		hashI64(int64(rel.Offset))
		hashI64(int64(rel.Type))
		hashI64(rel.Addend)

		if i < len(isec.HasFragments) && isec.HasFragments[i] {
			ref := isec.RelFragments[fragIdx]
			fragIdx++
			hashI64(1)
			hashI64(ref.Addend)
			hashBytes([]byte(ref.Frag.Data))
		} else {
			hashSymbol(isec.File.Symbols[rel.Sym])
		}
	}

	var out Digest
	copy(out[:], h.Sum(nil)[:16])
	return out
}

// gatherSections builds one icfEntry per non-null input section (live or
// dead, eligible or not), assigns each its position in the sorted array
// as IcfIdx, and returns the eligible prefix plus a CSR-encoded reference
// graph over it: edges[edgeIndices[i]:edgeIndices[i+1]] are the IcfIdx
// values of every section an eligible section's plain-symbol relocations
// target.
func gatherSections(ctx *Context) (allDigests []Digest, sections []*InputSection, edgeIndices []int32, edges []int32) {
	var entries []icfEntry
	n := 0
	for _, file := range ctx.Objs {
		for _, isec := range file.Sections {
			if isec == nil {
				continue
			}
			// A dead section still needs a slot and an IcfIdx: it can be
			// the target of another (live, eligible) section's relocation,
			// and skipping it here would leave that edge pointing at the
			// sentinel -1 instead of a real entry.
			eligible := isec.IsAlive && icfEligible(isec)
			var digest Digest
			if eligible {
				digest = computeDigest(isec)
			} else {
				digest = packNumber(int64(n))
			}
			entries = append(entries, icfEntry{isec: isec, digest: digest, isEligible: eligible})
			n++
		}
	}

	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if a.isEligible != b.isEligible {
			return a.isEligible
		}
		if !a.isEligible {
			return false
		}
		return a.digest.less(b.digest)
	})

	numEligible := 0
	for _, e := range entries {
		if e.isEligible {
			numEligible++
		}
	}

	allDigests = make([]Digest, len(entries))
	sections = make([]*InputSection, numEligible)
	for i, e := range entries {
		e.isec.IcfIdx = int64(i)
		allDigests[i] = e.digest
		if i < numEligible {
			sections[i] = e.isec
		}
	}

	edgeIndices = make([]int32, numEligible)
	var edgeCounts []int32
	for i := 0; i < numEligible; i++ {
		isec := sections[i]
		rels := isec.GetRels()
		var count int32
		for j := range rels {
			if j < len(isec.HasFragments) && isec.HasFragments[j] {
				continue
			}
			sym := isec.File.Symbols[rels[j].Sym]
			if sym.SectionFragment == nil && sym.InputSection != nil {
				count++
			}
		}
		edgeCounts = append(edgeCounts, count)
	}
	total := int32(0)
	for i, c := range edgeCounts {
		edgeIndices[i] = total
		total += c
	}
	edges = make([]int32, total)

	for i := 0; i < numEligible; i++ {
		isec := sections[i]
		rels := isec.GetRels()
		idx := edgeIndices[i]
		for j := range rels {
			if j < len(isec.HasFragments) && isec.HasFragments[j] {
				continue
			}
			sym := isec.File.Symbols[rels[j].Sym]
			if sym.SectionFragment == nil && sym.InputSection != nil {
				edges[idx] = int32(sym.InputSection.IcfIdx)
				idx++
			}
		}
	}

	return
}

func countClasses(digests []Digest, n int) int64 {
	var count int64
	for i := 0; i < n-1; i++ {
		if digests[i] != digests[i+1] {
			count++
		}
	}
	return count
}

// icfPropagate runs digest-propagation rounds until the number of
// distinct-digest boundaries among the (still digest0-ordered) eligible
// sections stops changing. This proxy convergence check, not a resort
// each round, is deliberate: a full resort happens exactly once, after
// convergence, to do the real partitioning (§4.5).
func icfPropagate(sections []*InputSection, allDigests []Digest, edgeIndices, edges []int32) []Digest {
	n := len(sections)
	cur := make([]Digest, len(allDigests))
	copy(cur, allDigests)

	numClasses := countClasses(cur, n)

	for {
		next := make([]Digest, len(cur))
		copy(next, cur)

		utils.ParallelFor(n, func(i int) {
			h := sha256.New()
			h.Write(cur[i][:])

			begin := edgeIndices[i]
			end := int32(len(edges))
			if i+1 < n {
				end = edgeIndices[i+1]
			}
			for j := begin; j < end; j++ {
				h.Write(cur[edges[j]][:])
			}

			var d Digest
			copy(d[:], h.Sum(nil)[:16])
			next[i] = d
		})

		newClasses := countClasses(next, n)
		cur = next
		if newClasses == numClasses {
			break
		}
		numClasses = newClasses
	}

	return cur
}

// RunICF performs Identical Code Folding end to end: gather eligible
// sections, propagate digests to a fixed point, partition by final
// digest, elect a leader per partition, redirect every symbol that
// pointed at a folded section to its leader, and kill the folded
// sections so later passes never see them again. No-op unless
// ctx.Arg.ICF is set.
func RunICF(ctx *Context) {
	if !ctx.Arg.ICF {
		return
	}

	allDigests, sections, edgeIndices, edges := gatherSections(ctx)
	if len(sections) == 0 {
		return
	}

	final := icfPropagate(sections, allDigests, edgeIndices, edges)

	type finalEntry struct {
		isec   *InputSection
		digest Digest
	}
	entries := make([]finalEntry, len(sections))
	for i, isec := range sections {
		entries[i] = finalEntry{isec: isec, digest: final[i]}
	}

	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].digest != entries[j].digest {
			return entries[i].digest.less(entries[j].digest)
		}
		return entries[i].isec.GetPriority() < entries[j].isec.GetPriority()
	})

	for i := 0; i < len(entries); {
		j := i + 1
		for j < len(entries) && entries[j].digest == entries[i].digest {
			j++
		}
		leader := entries[i].isec
		for k := i + 1; k < j; k++ {
			entries[k].isec.Leader = leader
		}
		i = j
	}

	for _, file := range ctx.Objs {
		for _, sym := range file.Symbols {
			if sym.InputSection != nil && sym.InputSection.Leader != nil {
				sym.SetInputSection(sym.InputSection.Leader)
			}
		}
	}

	savedBytes := int64(0)
	for i := 0; i < len(entries); {
		j := i + 1
		for j < len(entries) && entries[i].isec == entries[j].isec.Leader {
			j++
		}
		if j != i+1 && ctx.Arg.PrintICFSections {
			ctx.Log.Infof("selected section %s", entries[i].isec.Name())
			for k := i + 1; k < j; k++ {
				ctx.Log.Infof("  removing identical section %s", entries[k].isec.Name())
			}
			savedBytes += int64(len(entries[i].isec.Contents)) * int64(j-i-1)
		}
		i = j
	}
	if ctx.Arg.PrintICFSections {
		ctx.Log.Infof("ICF saved %d bytes", savedBytes)
	}

	for _, e := range entries {
		if e.isec.Leader != nil {
			e.isec.IsAlive = false
		}
	}
}
