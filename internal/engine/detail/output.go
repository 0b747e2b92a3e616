package detail

import (
	"errors"
	"sync"
	"sync/atomic"
)

// Texture is a renderer-owned texture object.
type Texture interface {
	// Handle returns the backend name of the texture.
	Handle() uint32
	// Release frees the GPU resource. It must run where the texture may
	// be used, usually the render thread.
	Release()
}

// Textures are the renderer versions of Images.
type Textures struct {
	Atlas  Texture
	Lookup Texture
}

// Release frees both textures.
func (t *Textures) Release() {
	if t == nil {
		return
	}
	if t.Atlas != nil {
		t.Atlas.Release()
	}
	if t.Lookup != nil {
		t.Lookup.Release()
	}
}

// Materializer turns packed images into renderer textures.
type Materializer interface {
	Materialize(images *Images) (*Textures, error)
	// RequiresMainThread tells whether Materialize may only run on the
	// thread owning the rendering context.
	RequiresMainThread() bool
}

// ErrNoMaterializer is returned when textures are requested without a backend.
var ErrNoMaterializer = errors.New("no texture materializer")

// StoreNormalmapDataToTextures converts images into textures. Backends
// without thread-safe resource creation (OpenGL among them) require this to
// run on the main thread; callers on worker goroutines either marshal the
// call there or hand the images over and materialize later.
func StoreNormalmapDataToTextures(m Materializer, images *Images) (*Textures, error) {
	if m == nil {
		return nil, ErrNoMaterializer
	}
	return m.Materialize(images)
}

// Output is the result of detail generation for one mesh block.
//
// A producer fills Images (and Textures when it can create them) and then
// calls Publish. Consumers may poll Valid or wait on Done from any
// goroutine; once either reports completion, every other field is safe to
// read. Valid never goes back to false. The zero value is an unpublished
// output.
type Output struct {
	Images   Images
	Textures *Textures

	valid    atomic.Bool
	doneOnce sync.Once
	done     chan struct{}
}

// NewOutput returns an unpublished output.
func NewOutput() *Output {
	return &Output{}
}

func (o *Output) doneChan() chan struct{} {
	o.doneOnce.Do(func() {
		o.done = make(chan struct{})
	})
	return o.done
}

// Valid reports whether the output was published.
func (o *Output) Valid() bool {
	return o.valid.Load()
}

// Publish marks the output as complete. It must be called exactly once,
// after all other fields are written.
func (o *Output) Publish() {
	if !o.valid.CompareAndSwap(false, true) {
		assertf(false, "output published twice")
		return
	}
	close(o.doneChan())
}

// Done returns a channel closed when the output is published.
func (o *Output) Done() <-chan struct{} {
	return o.doneChan()
}

// Materialize creates textures from the images of a published output that
// was delivered without them. It runs on the caller's thread, so callers
// must honor m.RequiresMainThread. It is meant for the single consumer that
// owns the output and is not safe for concurrent use.
func (o *Output) Materialize(m Materializer) error {
	if debugChecks {
		assertf(o.Valid(), "materializing an unpublished output")
	}
	if o.Textures != nil {
		return nil
	}
	tex, err := StoreNormalmapDataToTextures(m, &o.Images)
	if err != nil {
		return err
	}
	o.Textures = tex
	return nil
}
