package mesh

import (
	"fmt"
	"sort"

	"github.com/notargets/wenohybrid/types"
	"github.com/notargets/wenohybrid/utils"
)

type procFace struct {
	face    Face
	coupled CoupledFace
}

// Decompose splits an unsplit mesh into nParts contiguous blocks of cells. Every partition carries haloDepth layers
// of halo cells, faces between partitions become faces of processor patches named procBoundary<a>to<b>, and the
// linear weights of split faces are carried over from the unsplit mesh unchanged.
func Decompose(m *Mesh, nParts, haloDepth int) (parts []*Mesh, err error) {
	var (
		K = m.NCells()
	)
	if m.NOwned != K {
		err = fmt.Errorf("can only decompose an unsplit mesh, have %d owned of %d cells", m.NOwned, K)
		return
	}
	for k, cell := range m.Cells {
		if cell.Global != k {
			err = fmt.Errorf("cell %d has global id %d, unsplit meshes are numbered in order", k, cell.Global)
			return
		}
	}
	if nParts < 1 || haloDepth < 1 {
		err = fmt.Errorf("invalid decomposition into %d parts with halo depth %d", nParts, haloDepth)
		return
	}
	if nParts == 1 {
		parts = []*Mesh{m}
		return
	}
	if K/nParts < haloDepth {
		err = fmt.Errorf("%d cells in %d parts is too few for a halo depth of %d", K, nParts, haloDepth)
		return
	}
	pm := utils.NewPartitionMap(nParts, K)
	rank := func(k int) (bn int) {
		bn, _, _ = pm.GetBucket(k)
		return
	}
	parts = make([]*Mesh, nParts)
	for r := 0; r < nParts; r++ {
		if parts[r], err = buildPartition(m, pm, rank, r, haloDepth); err != nil {
			return
		}
	}
	return
}

func buildPartition(m *Mesh, pm *utils.PartitionMap, rank func(int) int, r, haloDepth int) (p *Mesh, err error) {
	var (
		halo     = make(map[int]int) // Global id -> local index of the halo cells
		frontier []int
		procs    = make(map[int][]procFace)
	)
	p = &Mesh{
		Dim:          m.Dim,
		Rank:         r,
		NOwned:       pm.GetBucketDimension(r),
		HaloDepth:    haloDepth,
		GlobalNCells: m.GlobalNCells,
	}
	// Owned cells keep the order of the block, local index l is global index GetGlobalK(l, r)
	for l := 0; l < p.NOwned; l++ {
		k := pm.GetGlobalK(l, r)
		p.Cells = append(p.Cells, m.Cells[k])
		frontier = append(frontier, k)
	}
	lookup := func(k int) (l int, ok bool) {
		var bn int
		if l, _, bn = pm.GetLocalK(k); bn == r {
			return l, true
		}
		l, ok = halo[k]
		return
	}
	local := func(k int) (l int) {
		var ok bool
		if l, ok = lookup(k); !ok {
			panic(fmt.Errorf("cell %d is not held by partition %d", k, r))
		}
		return
	}
	for layer := 0; layer < haloDepth; layer++ {
		var next []int
		for _, k := range frontier {
			for _, nb := range m.Neighbours[k] {
				if _, ok := lookup(nb.Cell); ok {
					continue
				}
				halo[nb.Cell] = len(p.Cells)
				p.Cells = append(p.Cells, m.Cells[nb.Cell])
				next = append(next, nb.Cell)
			}
		}
		frontier = next
	}
	p.Neighbours = make([][]Neighbour, len(p.Cells))
	for l, cell := range p.Cells {
		for _, nb := range m.Neighbours[cell.Global] {
			if ln, ok := lookup(nb.Cell); ok {
				p.Neighbours[l] = append(p.Neighbours[l], Neighbour{Cell: ln, Delta: nb.Delta})
			}
		}
	}
	remoteCell := func(k int) int {
		if l, ok := lookup(k); ok {
			return l
		}
		return -1
	}
	addProc := func(face Face, owner, remote int, weight float64, localIsLeft bool) {
		q := rank(remote)
		face.Owner, face.Neighbour = local(owner), -1
		procs[q] = append(procs[q], procFace{
			face: face,
			coupled: CoupledFace{
				RemoteCell:   remoteCell(remote),
				RemoteGlobal: remote,
				RemoteRank:   q,
				Key:          types.NewFaceKey([2]int{owner, remote}),
				Weight:       weight,
				LocalIsLeft:  localIsLeft,
			},
		})
	}
	for f := 0; f < m.NInternal; f++ {
		face := m.Faces[f]
		ro, rn := rank(face.Owner), rank(face.Neighbour)
		switch {
		case ro == r && rn == r:
			face.Owner, face.Neighbour = local(face.Owner), local(face.Neighbour)
			p.Faces = append(p.Faces, face)
		case ro == r:
			addProc(face, face.Owner, face.Neighbour, face.Weight, true)
		case rn == r:
			flipped := face
			flipped.Normal = types.VectorAlgebra{}.Scale(face.Normal, -1)
			flipped.Weight = 1 - face.Weight
			addProc(flipped, face.Neighbour, face.Owner, face.Weight, false)
		}
	}
	p.NInternal = len(p.Faces)
	for _, gp := range m.Patches {
		lp := Patch{Name: gp.Name, Type: gp.Type, Start: len(p.Faces)}
		for i := 0; i < gp.Size; i++ {
			face := m.Faces[gp.Start+i]
			if rank(face.Owner) != r {
				continue
			}
			if !gp.Type.IsCoupled() {
				face.Owner = local(face.Owner)
				p.Faces = append(p.Faces, face)
				lp.Size++
				continue
			}
			cf := gp.Coupled[i]
			if rank(cf.RemoteGlobal) != r {
				addProc(face, face.Owner, cf.RemoteGlobal, cf.Weight, cf.LocalIsLeft)
				continue
			}
			face.Owner = local(face.Owner)
			cf.RemoteCell = local(cf.RemoteGlobal)
			cf.RemoteRank = r
			p.Faces = append(p.Faces, face)
			lp.Coupled = append(lp.Coupled, cf)
			lp.Size++
		}
		p.Patches = append(p.Patches, lp)
	}
	ranks := make([]int, 0, len(procs))
	for q := range procs {
		ranks = append(ranks, q)
	}
	sort.Ints(ranks)
	for _, q := range ranks {
		lp := Patch{
			Name:  fmt.Sprintf("procBoundary%dto%d", r, q),
			Type:  types.PATCH_Processor,
			Start: len(p.Faces),
			Size:  len(procs[q]),
		}
		for _, pf := range procs[q] {
			p.Faces = append(p.Faces, pf.face)
			lp.Coupled = append(lp.Coupled, pf.coupled)
		}
		p.Patches = append(p.Patches, lp)
	}
	err = p.Validate()
	return
}

// HaloLinks lists, for every partition, the owned values the other partitions hold as halo, and for every
// partition where each of its halo cells lives locally.
func HaloLinks(parts []*Mesh) (links [][]utils.HaloLink, haloToLocal []map[int]int) {
	type home struct{ rank, local int }
	var (
		owners = make(map[int]home)
	)
	links = make([][]utils.HaloLink, len(parts))
	haloToLocal = make([]map[int]int, len(parts))
	for r, p := range parts {
		for l := 0; l < p.NOwned; l++ {
			owners[p.Cells[l].Global] = home{r, l}
		}
	}
	for r, p := range parts {
		haloToLocal[r] = make(map[int]int)
		for l := p.NOwned; l < p.NCells(); l++ {
			g := p.Cells[l].Global
			haloToLocal[r][g] = l
			o := owners[g]
			links[o.rank] = append(links[o.rank], utils.HaloLink{TargetThread: r, KLocal: o.local, KGlobal: g})
		}
	}
	return
}
