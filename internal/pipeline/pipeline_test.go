package pipeline

import (
	"bytes"
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/Faultbox/voxel-detail/internal/engine/detail"
	"github.com/Faultbox/voxel-detail/internal/engine/mainthread"
	"github.com/Faultbox/voxel-detail/internal/engine/mesh"
	"github.com/Faultbox/voxel-detail/internal/engine/voxel"
	"github.com/Faultbox/voxel-detail/pkg/math"
)

type fakeTexture struct {
	handle   uint32
	released *atomic.Int32
}

func (t *fakeTexture) Handle() uint32 { return t.handle }
func (t *fakeTexture) Release()       { t.released.Add(1) }

type fakeMaterializer struct {
	mainThread bool
	err        error
	calls      atomic.Int32
	released   atomic.Int32
	next       atomic.Uint32
	// When set, Materialize closes started and waits for gate.
	started chan struct{}
	gate    chan struct{}
}

func (m *fakeMaterializer) RequiresMainThread() bool { return m.mainThread }

func (m *fakeMaterializer) Materialize(images *detail.Images) (*detail.Textures, error) {
	m.calls.Add(1)
	if m.gate != nil {
		close(m.started)
		<-m.gate
	}
	if m.err != nil {
		return nil, m.err
	}
	return &detail.Textures{
		Atlas:  &fakeTexture{handle: m.next.Add(1), released: &m.released},
		Lookup: &fakeTexture{handle: m.next.Add(1), released: &m.released},
	}, nil
}

func testSettings() detail.Settings {
	return detail.Settings{
		Enabled:             true,
		BeginLODIndex:       2,
		TileResolutionMin:   4,
		TileResolutionMax:   8,
		MaxDeviationDegrees: 60,
	}
}

func planeField() voxel.Field {
	return voxel.Field{Generator: voxel.Plane{Height: 5.5}}
}

func grid(n, lod int) []Block {
	var blocks []Block
	for i := range n {
		blocks = append(blocks, Block{Origin: math.Vec3i{X: i * 16}, Size: 4, LOD: lod})
	}
	return blocks
}

func TestRunDeferred(t *testing.T) {
	p := &Pipeline{Settings: testSettings(), Field: planeField(), Mode: ModeDeferred, Workers: 2}

	blocks := grid(3, 2)
	results, err := p.Run(context.Background(), blocks)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}

	for i, r := range results {
		if r.Block != blocks[i] {
			t.Errorf("result %d: expected block %+v, got %+v", i, blocks[i], r.Block)
		}
		if r.Tiles != 16 || r.Recomputed != 16 {
			t.Errorf("result %d: expected 16 tiles, got %d (%d recomputed)", i, r.Tiles, r.Recomputed)
		}
		if r.TileResolution != 4 {
			t.Errorf("result %d: expected resolution 4, got %d", i, r.TileResolution)
		}
		if !r.Output.Valid() {
			t.Errorf("result %d: output not published", i)
		}
		if r.Output.Textures != nil {
			t.Errorf("result %d: deferred output has textures", i)
		}
		checkAtlasLayout(t, &r.Output.Images, 16)

		got, ok := p.Get(blocks[i].Origin, blocks[i].LOD)
		if !ok || got != r.Output {
			t.Errorf("result %d: cached output does not match", i)
		}
	}
	if p.Len() != 3 {
		t.Errorf("expected 3 cached blocks, got %d", p.Len())
	}

	m := &fakeMaterializer{}
	if err := results[0].Output.Materialize(m); err != nil {
		t.Fatalf("Materialize failed: %v", err)
	}
	if results[0].Output.Textures == nil {
		t.Error("expected textures after deferred materialization")
	}
}

func TestRunMaterializeOnWorkers(t *testing.T) {
	m := &fakeMaterializer{}
	p := &Pipeline{Settings: testSettings(), Field: planeField(), Materializer: m}

	results, err := p.Run(context.Background(), grid(4, 3))
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if m.calls.Load() != 4 {
		t.Errorf("expected 4 materializations, got %d", m.calls.Load())
	}
	for i, r := range results {
		if r.Output.Textures == nil {
			t.Errorf("result %d: expected textures", i)
		}
		// Resolution doubles one LOD past the first
		if r.TileResolution != 8 {
			t.Errorf("result %d: expected resolution 8, got %d", i, r.TileResolution)
		}
	}
}

func TestRunMaterializeOnMainThread(t *testing.T) {
	m := &fakeMaterializer{mainThread: true}
	q := mainthread.NewQueue(1)
	p := &Pipeline{Settings: testSettings(), Field: planeField(), Materializer: m, Queue: q, Workers: 4}

	runCtx, stop := context.WithCancel(context.Background())
	var results []Result
	var runErr error
	go func() {
		defer stop()
		results, runErr = p.Run(context.Background(), grid(6, 2))
	}()
	// Serve the queue until the run finishes
	q.Run(runCtx)

	if runErr != nil {
		t.Fatalf("Run failed: %v", runErr)
	}
	if m.calls.Load() != 6 {
		t.Errorf("expected 6 materializations, got %d", m.calls.Load())
	}
	for i, r := range results {
		if r.Output.Textures == nil {
			t.Errorf("result %d: expected textures", i)
		}
	}
}

func TestRunSkipsLowLOD(t *testing.T) {
	p := &Pipeline{Settings: testSettings(), Field: planeField(), Mode: ModeDeferred}

	results, err := p.Run(context.Background(), grid(2, 1))
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	for i, r := range results {
		if !r.Skipped || r.Output != nil {
			t.Errorf("result %d: expected skipped block", i)
		}
	}
	if _, ok := p.Get(math.Vec3i{}, 1); ok {
		t.Error("skipped block should not be cached")
	}
}

func TestRunDisabled(t *testing.T) {
	s := testSettings()
	s.Enabled = false
	p := &Pipeline{Settings: s, Field: planeField(), Mode: ModeDeferred}

	results, err := p.Run(context.Background(), grid(1, 4))
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if !results[0].Skipped {
		t.Error("expected block to be skipped when detail maps are disabled")
	}
}

func TestRunEmptyBlock(t *testing.T) {
	m := &fakeMaterializer{}
	field := voxel.Field{Generator: voxel.Plane{Height: 100}}
	p := &Pipeline{Settings: testSettings(), Field: field, Materializer: m}

	results, err := p.Run(context.Background(), grid(1, 2))
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	r := results[0]
	if r.Tiles != 0 || r.Triangles != 0 {
		t.Errorf("expected nothing generated, got %d tiles", r.Tiles)
	}
	if !r.Output.Valid() {
		t.Error("empty output should still be published")
	}
	if m.calls.Load() != 0 {
		t.Errorf("expected no materialization, got %d", m.calls.Load())
	}
}

func TestRunEditedOnly(t *testing.T) {
	data := voxel.NewData(math.Vec3i{}, math.Vec3i{X: 17, Y: 17, Z: 17})
	data.Fill(voxel.Plane{Height: 5.5})
	field := voxel.Field{Generator: voxel.Plane{Height: 5.5}, Data: data}

	p := &Pipeline{Settings: testSettings(), Field: field, Mode: ModeDeferred, EditedOnly: true}
	blocks := grid(1, 2)

	// Nothing to patch yet, so the first pass is full
	first, err := p.Run(context.Background(), blocks)
	if err != nil {
		t.Fatalf("first Run failed: %v", err)
	}
	if first[0].Recomputed != 16 {
		t.Fatalf("expected a full first pass, got %d tiles", first[0].Recomputed)
	}

	// Same value, so the surface is unchanged but the voxel counts as edited
	data.Edit(math.Vec3i{X: 2, Y: 5, Z: 2}, -0.5)

	second, err := p.Run(context.Background(), blocks)
	if err != nil {
		t.Fatalf("second Run failed: %v", err)
	}
	r := second[0]
	// The voxel is within the gradient step of the 2x2 cells around it
	if r.Recomputed != 4 {
		t.Errorf("expected 4 recomputed tiles, got %d", r.Recomputed)
	}
	if r.Tiles != 16 {
		t.Errorf("expected 16 tiles after merge, got %d", r.Tiles)
	}
	if r.Output == first[0].Output {
		t.Error("expected a new output")
	}
	if !bytes.Equal(atlasPix(&r.Output.Images), atlasPix(&first[0].Output.Images)) {
		t.Error("merged atlas differs from the full pass")
	}
	if !bytes.Equal(r.Output.Images.Lookup.Pix, first[0].Output.Images.Lookup.Pix) {
		t.Error("merged lookup differs from the full pass")
	}
}

func TestRunEditedOnlyMatchesFullPass(t *testing.T) {
	gen := voxel.NewNoise(7)
	block := Block{Origin: math.Vec3i{Y: -8}, Size: 8, LOD: 2}
	data := voxel.NewData(block.Origin, block.Voxels().Add(math.Vec3i{X: 1, Y: 1, Z: 1}))
	data.Fill(gen)
	field := voxel.Field{Generator: gen, Data: data}

	p := &Pipeline{Settings: testSettings(), Field: field, Mode: ModeDeferred, EditedOnly: true}
	first, err := p.Run(context.Background(), []Block{block})
	if err != nil {
		t.Fatalf("first Run failed: %v", err)
	}
	if first[0].Tiles == 0 {
		t.Fatal("expected the noise surface to cross the block")
	}

	// Dig a hole where the surface crosses the middle of the block
	m := mesh.BuildHeightfield(field, block.Origin, block.Size, block.LOD)
	center := m.Vertices[len(m.Vertices)/2].Add(block.Origin.ToVec3())
	if n := data.CarveSphere(center, 3); n == 0 {
		t.Fatal("expected the carve to change voxels")
	}

	second, err := p.Run(context.Background(), []Block{block})
	if err != nil {
		t.Fatalf("second Run failed: %v", err)
	}
	r := second[0]
	if r.Recomputed == 0 || r.Recomputed >= r.Tiles {
		t.Errorf("expected a partial refresh, got %d of %d tiles", r.Recomputed, r.Tiles)
	}

	fresh := &Pipeline{Settings: testSettings(), Field: field, Mode: ModeDeferred}
	full, err := fresh.Run(context.Background(), []Block{block})
	if err != nil {
		t.Fatalf("full Run failed: %v", err)
	}
	want := full[0].Output.Images
	got := r.Output.Images
	if !bytes.Equal(atlasPix(&got), atlasPix(&want)) {
		t.Error("merged atlas differs from a full pass over the edited field")
	}
	if !bytes.Equal(got.Lookup.Pix, want.Lookup.Pix) {
		t.Error("merged lookup differs from a full pass over the edited field")
	}
}

func TestChangedCells(t *testing.T) {
	field := voxel.Field{Generator: voxel.Plane{Height: 5.5}}
	prev := mesh.BuildHeightfield(field, math.Vec3i{}, 4, 2)

	same := mesh.BuildHeightfield(field, math.Vec3i{}, 4, 2)
	changed, ok := changedCells(prev, same)
	if !ok {
		t.Fatal("expected identical meshes to be comparable")
	}
	for i, c := range changed {
		if c {
			t.Errorf("cell %d: expected unchanged", i)
		}
	}

	moved := mesh.BuildHeightfield(voxel.Field{Generator: voxel.Plane{Height: 6.5}}, math.Vec3i{}, 4, 2)
	changed, ok = changedCells(prev, moved)
	if !ok || !changed[0] {
		t.Errorf("expected raised surface to mark cells changed, got %v %v", changed, ok)
	}

	empty := mesh.BuildHeightfield(voxel.Field{Generator: voxel.Plane{Height: 100}}, math.Vec3i{}, 4, 2)
	if _, ok := changedCells(prev, empty); ok {
		t.Error("expected a different cell layout to be rejected")
	}
	if _, ok := changedCells(nil, prev); ok {
		t.Error("expected a missing mesh to be rejected")
	}
}

func TestRunCanceledDuringMainThreadCall(t *testing.T) {
	m := &fakeMaterializer{mainThread: true, started: make(chan struct{}), gate: make(chan struct{})}
	q := mainthread.NewQueue(1)
	p := &Pipeline{Settings: testSettings(), Field: planeField(), Materializer: m, Queue: q}

	ctx, cancel := context.WithCancel(context.Background())
	runCtx, stop := context.WithCancel(context.Background())
	runErr := make(chan error, 1)
	go func() {
		defer stop()
		_, err := p.Run(ctx, grid(1, 2))
		runErr <- err
	}()
	go func() {
		// Give up while the main thread is still materializing
		<-m.started
		cancel()
		<-runCtx.Done()
		close(m.gate)
	}()
	q.Run(runCtx)

	if err := <-runErr; !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if created, released := m.next.Load(), m.released.Load(); created != 2 || released != 2 {
		t.Errorf("expected 2 textures created and released, got %d and %d", created, released)
	}
	if p.Len() != 0 {
		t.Errorf("expected nothing cached, got %d blocks", p.Len())
	}
}

func TestRunReleasesReplacedTextures(t *testing.T) {
	m := &fakeMaterializer{}
	p := &Pipeline{Settings: testSettings(), Field: planeField(), Materializer: m}
	blocks := grid(1, 2)

	for range 2 {
		if _, err := p.Run(context.Background(), blocks); err != nil {
			t.Fatalf("Run failed: %v", err)
		}
	}
	if m.released.Load() != 2 {
		t.Errorf("expected first atlas and lookup released, got %d releases", m.released.Load())
	}

	p.Close()
	if m.released.Load() != 4 {
		t.Errorf("expected all textures released after Close, got %d", m.released.Load())
	}
	if p.Len() != 0 {
		t.Errorf("expected empty cache after Close, got %d", p.Len())
	}
}

func TestRunErrors(t *testing.T) {
	errUpload := errors.New("upload failed")

	tests := []struct {
		name    string
		setup   func() (*Pipeline, context.Context, []Block)
		wantErr error
	}{
		{
			name: "materializer error",
			setup: func() (*Pipeline, context.Context, []Block) {
				m := &fakeMaterializer{err: errUpload}
				return &Pipeline{Settings: testSettings(), Field: planeField(), Materializer: m},
					context.Background(), grid(3, 2)
			},
			wantErr: errUpload,
		},
		{
			name: "no materializer",
			setup: func() (*Pipeline, context.Context, []Block) {
				return &Pipeline{Settings: testSettings(), Field: planeField()},
					context.Background(), grid(1, 2)
			},
			wantErr: detail.ErrNoMaterializer,
		},
		{
			name: "duplicate block",
			setup: func() (*Pipeline, context.Context, []Block) {
				b := grid(1, 2)
				return &Pipeline{Settings: testSettings(), Field: planeField(), Mode: ModeDeferred},
					context.Background(), append(b, b[0])
			},
			wantErr: ErrDuplicateBlock,
		},
		{
			name: "canceled context",
			setup: func() (*Pipeline, context.Context, []Block) {
				ctx, cancel := context.WithCancel(context.Background())
				cancel()
				return &Pipeline{Settings: testSettings(), Field: planeField(), Mode: ModeDeferred},
					ctx, grid(2, 2)
			},
			wantErr: context.Canceled,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, ctx, blocks := tt.setup()
			_, err := p.Run(ctx, blocks)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestBlockSizes(t *testing.T) {
	b := Block{Size: 16, LOD: 3}
	if b.CellSize() != 8 {
		t.Errorf("expected cell size 8, got %d", b.CellSize())
	}
	if b.Voxels() != (math.Vec3i{X: 128, Y: 128, Z: 128}) {
		t.Errorf("expected 128 voxels per side, got %v", b.Voxels())
	}
	if ModeDeferred.String() != "deferred" {
		t.Errorf("expected 'deferred', got %s", ModeDeferred.String())
	}
}
