// Package pipeline generates detail normal maps for batches of terrain
// blocks on a pool of workers and keeps the latest output of every block.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/syncmap"

	"github.com/Faultbox/voxel-detail/internal/engine/detail"
	"github.com/Faultbox/voxel-detail/internal/engine/mainthread"
	"github.com/Faultbox/voxel-detail/internal/engine/mesh"
	"github.com/Faultbox/voxel-detail/internal/engine/voxel"
	"github.com/Faultbox/voxel-detail/internal/logger"
	"github.com/Faultbox/voxel-detail/pkg/math"
)

// Mode selects who creates textures.
type Mode int

const (
	// ModeMaterialize creates textures before an output is published.
	ModeMaterialize Mode = iota
	// ModeDeferred publishes images only. The consumer materializes them
	// with Output.Materialize when it is ready.
	ModeDeferred
)

func (m Mode) String() string {
	switch m {
	case ModeMaterialize:
		return "materialize"
	case ModeDeferred:
		return "deferred"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// ErrDuplicateBlock is returned when a batch holds the same block twice.
var ErrDuplicateBlock = errors.New("duplicate block in batch")

// Block is a cubic mesh block.
type Block struct {
	// Origin in LOD0 voxels.
	Origin math.Vec3i
	// Size is the side of the block in cells.
	Size int
	LOD  int
}

// CellSize returns the side of one cell in LOD0 voxels.
func (b Block) CellSize() int {
	return 1 << b.LOD
}

// Cells returns the block size in cells.
func (b Block) Cells() math.Vec3i {
	return math.Vec3i{X: b.Size, Y: b.Size, Z: b.Size}
}

// Voxels returns the block size in LOD0 voxels.
func (b Block) Voxels() math.Vec3i {
	return b.Cells().Mul(b.CellSize())
}

type blockKey struct {
	origin math.Vec3i
	lod    int
}

func (b Block) key() blockKey {
	return blockKey{origin: b.Origin, lod: b.LOD}
}

// Result summarizes the processing of one block.
type Result struct {
	Block Block
	// Output is nil for skipped blocks.
	Output *detail.Output
	// Skipped is set when the block's LOD gets no detail maps.
	Skipped   bool
	Triangles int
	Tiles     int
	// Recomputed counts the tiles computed by this run. It is lower than
	// Tiles when only edited cells were refreshed.
	Recomputed     int
	TileResolution int
}

// entry is the cached state of one block. data is the last full pass, kept
// with its mesh to merge later edited-only passes into.
type entry struct {
	data       detail.TextureData
	mesh       *mesh.Mesh
	resolution int
	octahedral bool
	output     *detail.Output
	// Textures created in ModeMaterialize belong to the pipeline. Deferred
	// consumers own what they materialize.
	ownsTextures bool
}

// Pipeline meshes blocks, computes their detail tiles and packs them into
// atlases. Fields must not be modified while Run is in progress.
type Pipeline struct {
	Settings detail.Settings
	Field    voxel.Field
	// Materializer creates textures in ModeMaterialize.
	Materializer detail.Materializer
	// Queue runs Materializer on the main thread when it requires it. The
	// owner of that thread must service the queue while Run is in progress.
	// Without a queue the materializer is called from worker goroutines.
	Queue *mainthread.Queue
	// Workers bounds the blocks processed at once. Zero uses GOMAXPROCS.
	Workers int
	Mode    Mode
	// EditedOnly refreshes only the cells touching edited voxels of blocks
	// that were already processed.
	EditedOnly bool

	cache syncmap.Map // blockKey -> *entry
}

// Run processes blocks concurrently and returns one result per block, in
// order. The first error cancels the remaining blocks.
func (p *Pipeline) Run(ctx context.Context, blocks []Block) ([]Result, error) {
	log := logger.Named("pipeline")
	settings := p.Settings.Sanitized()

	if p.Mode == ModeMaterialize && p.Materializer == nil {
		return nil, detail.ErrNoMaterializer
	}
	seen := make(map[blockKey]struct{}, len(blocks))
	for _, b := range blocks {
		if _, ok := seen[b.key()]; ok {
			return nil, fmt.Errorf("%w: origin %v lod %d", ErrDuplicateBlock, b.Origin, b.LOD)
		}
		seen[b.key()] = struct{}{}
	}

	workers := p.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	results := make([]Result, len(blocks))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, b := range blocks {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			r, err := p.process(gctx, settings, b)
			if err != nil {
				return fmt.Errorf("block %v lod %d: %w", b.Origin, b.LOD, err)
			}
			results[i] = r
			log.Debug("block done",
				zap.Stringer("origin", b.Origin),
				zap.Int("lod", b.LOD),
				zap.Int("triangles", r.Triangles),
				zap.Int("tiles", r.Tiles),
				zap.Int("recomputed", r.Recomputed),
				zap.Int("resolution", r.TileResolution),
				zap.Bool("skipped", r.Skipped),
			)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	log.Info("batch done",
		zap.Int("blocks", len(blocks)),
		zap.Int("workers", workers),
		zap.Stringer("mode", p.Mode),
	)
	return results, nil
}

func (p *Pipeline) process(ctx context.Context, s detail.Settings, b Block) (Result, error) {
	r := Result{Block: b}
	if !s.AppliesToLOD(b.LOD) {
		r.Skipped = true
		return r, nil
	}

	m := mesh.BuildHeightfield(p.Field, b.Origin, b.Size, b.LOD)
	r.Triangles = m.TriangleCount()
	res := detail.TileResolutionForLOD(s, b.LOD)
	bpp := s.BytesPerPixel()
	r.TileResolution = res

	params := detail.ComputeParams{
		Vertices:            m.Vertices,
		Normals:             m.Normals,
		Indices:             m.Indices,
		TileResolution:      res,
		Field:               p.Field,
		Origin:              b.Origin,
		Size:                b.Voxels(),
		LODIndex:            b.LOD,
		OctahedralEncoding:  s.OctahedralEncodingEnabled,
		MaxDeviationRadians: s.MaxDeviationRadians(),
	}

	e := &entry{mesh: m, resolution: res, octahedral: s.OctahedralEncodingEnabled}
	prev, _ := p.entry(b.key())
	var dirty []bool
	merge := false
	if p.EditedOnly && prev != nil && prev.resolution == res && prev.octahedral == s.OctahedralEncodingEnabled {
		dirty, merge = changedCells(prev.mesh, m)
	}
	if merge {
		var partial detail.TextureData
		params.EditedTilesOnly = true
		params.DirtyTiles = dirty
		detail.ComputeTextureData(params, m.CellIterator(), &partial)

		e.data = cloneTextureData(&prev.data)
		e.data.ApplyPartial(&partial, res, bpp)
		r.Recomputed = partial.TileCount()
	} else {
		detail.ComputeTextureData(params, m.CellIterator(), &e.data)
		r.Recomputed = e.data.TileCount()
	}
	r.Tiles = e.data.TileCount()

	out := detail.NewOutput()
	out.Images = detail.StoreNormalmapDataToImages(&e.data, res, b.Cells(), s.OctahedralEncodingEnabled)

	if p.Mode == ModeMaterialize && r.Tiles > 0 {
		tex, err := p.materialize(ctx, &out.Images)
		if err != nil {
			return r, fmt.Errorf("materializing textures: %w", err)
		}
		out.Textures = tex
		e.ownsTextures = tex != nil
	}
	out.Publish()
	e.output = out
	r.Output = out

	if prev != nil && prev.ownsTextures {
		p.release(prev.output.Textures)
	}
	p.cache.Store(b.key(), e)
	return r, nil
}

func (p *Pipeline) materialize(ctx context.Context, images *detail.Images) (*detail.Textures, error) {
	if p.Queue == nil || !p.Materializer.RequiresMainThread() {
		return detail.StoreNormalmapDataToTextures(p.Materializer, images)
	}

	// Call returns early when ctx is done while the function may still run
	// on the main thread. Whichever side comes second releases the textures.
	var (
		mu        sync.Mutex
		tex       *detail.Textures
		abandoned bool
	)
	err := p.Queue.Call(ctx, func() error {
		t, err := detail.StoreNormalmapDataToTextures(p.Materializer, images)
		mu.Lock()
		defer mu.Unlock()
		if abandoned {
			t.Release()
			return nil
		}
		tex = t
		return err
	})

	mu.Lock()
	if err != nil {
		abandoned = true
	}
	t := tex
	tex = nil
	mu.Unlock()

	if err != nil {
		if t != nil {
			p.release(t)
		}
		return nil, err
	}
	return t, nil
}

// release frees replaced textures on the thread they were created on.
func (p *Pipeline) release(tex *detail.Textures) {
	if p.Queue != nil && p.Materializer != nil && p.Materializer.RequiresMainThread() {
		p.Queue.Post(tex.Release)
		return
	}
	tex.Release()
}

func (p *Pipeline) entry(k blockKey) (*entry, bool) {
	v, ok := p.cache.Load(k)
	if !ok {
		return nil, false
	}
	return v.(*entry), true
}

// Get returns the latest output of the block at origin and lod.
func (p *Pipeline) Get(origin math.Vec3i, lod int) (*detail.Output, bool) {
	e, ok := p.entry(blockKey{origin: origin, lod: lod})
	if !ok {
		return nil, false
	}
	return e.output, true
}

// Len returns the number of cached blocks.
func (p *Pipeline) Len() int {
	n := 0
	p.cache.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}

// Close drops every cached output and releases the textures the pipeline
// created. It must run
// on the thread owning the rendering context, outside of Run.
func (p *Pipeline) Close() {
	var entries []*entry
	p.cache.Range(func(k, v any) bool {
		entries = append(entries, v.(*entry))
		p.cache.Delete(k)
		return true
	})
	for _, e := range entries {
		if e.ownsTextures {
			e.output.Textures.Release()
		}
	}
}

// changedCells compares two meshes of the same block and marks the cells
// whose triangles moved or whose vertex normals changed. ok is false when
// the cell layout differs, so tiles cannot be matched by ordinal.
func changedCells(prev, cur *mesh.Mesh) (changed []bool, ok bool) {
	if prev == nil || len(prev.Cells) != len(cur.Cells) {
		return nil, false
	}
	changed = make([]bool, len(cur.Cells))
	var a, b detail.CurrentCellInfo
	pi, ci := prev.CellIterator(), cur.CellIterator()
	for i := 0; pi.Next(&a) && ci.Next(&b); i++ {
		if a.Position.X != b.Position.X || a.Position.Z != b.Position.Z || a.TriangleCount != b.TriangleCount {
			return nil, false
		}
		changed[i] = a.Position.Y != b.Position.Y || !sameTriangles(prev, cur, &a, &b)
	}
	return changed, true
}

func sameTriangles(prev, cur *mesh.Mesh, a, b *detail.CurrentCellInfo) bool {
	for t := uint32(0); t < a.TriangleCount; t++ {
		for k := uint32(0); k < 3; k++ {
			pi := prev.Indices[a.TriangleBeginIndices[t]+k]
			ci := cur.Indices[b.TriangleBeginIndices[t]+k]
			if prev.Vertices[pi] != cur.Vertices[ci] || prev.Normals[pi] != cur.Normals[ci] {
				return false
			}
		}
	}
	return true
}

func cloneTextureData(d *detail.TextureData) detail.TextureData {
	return detail.TextureData{
		Normals: append([]byte(nil), d.Normals...),
		Tiles:   append([]detail.Tile(nil), d.Tiles...),
	}
}
