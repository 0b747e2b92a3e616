// Package main is the entry point of detailgen, which generates detail
// normal map atlases for a grid of voxel terrain blocks.
package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/signal"
	"time"

	"go.uber.org/zap"

	"github.com/Faultbox/voxel-detail/internal/config"
	"github.com/Faultbox/voxel-detail/internal/engine/debug"
	"github.com/Faultbox/voxel-detail/internal/engine/mainthread"
	"github.com/Faultbox/voxel-detail/internal/engine/texture"
	"github.com/Faultbox/voxel-detail/internal/engine/voxel"
	"github.com/Faultbox/voxel-detail/internal/engine/window"
	"github.com/Faultbox/voxel-detail/internal/logger"
	"github.com/Faultbox/voxel-detail/internal/pipeline"
)

// eventInterval bounds the time between two event pumps of the hidden window.
const eventInterval = 50 * time.Millisecond

func main() {
	// Parse CLI flags first
	config.ParseFlags()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Config error: %v\n", err)
		os.Exit(1)
	}

	if config.SaveRequested() {
		path, err := cfg.Save()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Saving config: %v\n", err)
			os.Exit(1)
		}
		fmt.Println(path)
		return
	}

	opts := logger.Options{Level: cfg.Logging.Level, Console: true, JSON: cfg.Logging.JSON}
	if cfg.Logging.LogFile != "" {
		opts.File = logger.DefaultFileConfig(cfg.Logging.LogFile)
	}
	if err := logger.InitWithOptions(opts); err != nil {
		fmt.Fprintf(os.Stderr, "Logger error: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("=== detailgen ===")
	logger.Sugar.Debugf("Config: %+v", cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		logger.Error("generation failed", zap.Error(err))
		logger.Sync()
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	gen, err := buildGenerator(cfg.Generator, cfg.Blocks)
	if err != nil {
		return err
	}
	blocks := buildBlocks(cfg.Blocks)

	field := voxel.Field{Generator: gen}
	if len(cfg.Generator.Edits) > 0 {
		field.Data = buildSnapshot(gen, cfg.Blocks)
	}

	p := &pipeline.Pipeline{
		Settings: cfg.Detail,
		Field:    field,
		Workers:  cfg.Pipeline.Workers,
		Mode:     pipeline.ModeDeferred,
	}

	var queue *mainthread.Queue
	var win *window.Window
	if cfg.Pipeline.GPU {
		win, err = window.New(window.Config{
			Title:  "detailgen",
			Width:  64,
			Height: 64,
			Hidden: true,
		})
		if err != nil {
			return fmt.Errorf("creating GL context: %w", err)
		}
		defer win.Close()

		queue = mainthread.NewQueue(64)
		p.Materializer = texture.GLMaterializer{}
		p.Queue = queue
		p.Mode = pipeline.ModeMaterialize
		// Textures live in the window's context
		defer p.Close()
	}

	results, err := runBatch(ctx, p, win, queue, blocks)
	if err != nil {
		return err
	}
	if cfg.Pipeline.GPU {
		if err := verifyUploads(results); err != nil {
			return err
		}
	}

	if field.Data != nil {
		carved := applyEdits(field.Data, cfg.Generator.Edits)
		logger.Info("applied edits",
			zap.Int("edits", len(cfg.Generator.Edits)),
			zap.Int("voxels", carved),
		)
		p.EditedOnly = cfg.Pipeline.EditedOnly
		if results, err = runBatch(ctx, p, win, queue, blocks); err != nil {
			return err
		}
	}

	if cfg.Output.Dir != "" {
		if err := writeImages(cfg.Output, results); err != nil {
			return err
		}
	}
	return nil
}

// runBatch runs the pipeline. With a queue, the calling (main) thread
// serves GL calls and pumps the window's events until the batch completes.
// Closing the window cancels the batch.
func runBatch(ctx context.Context, p *pipeline.Pipeline, win *window.Window, queue *mainthread.Queue, blocks []pipeline.Block) ([]pipeline.Result, error) {
	start := time.Now()

	var results []pipeline.Result
	var err error
	if queue == nil {
		results, err = p.Run(ctx, blocks)
	} else {
		type batch struct {
			results []pipeline.Result
			err     error
		}
		ch := make(chan batch, 1)
		batchCtx, cancel := context.WithCancel(ctx)
		defer cancel()
		done, finish := context.WithCancel(context.Background())
		go func() {
			defer finish()
			r, err := p.Run(batchCtx, blocks)
			ch <- batch{results: r, err: err}
		}()
		queue.RunEvery(done, eventInterval, func() {
			if win.PumpEvents() {
				logger.Warn("window closed, canceling batch")
				cancel()
			}
		})
		b := <-ch
		results, err = b.results, b.err
	}
	if err != nil {
		return nil, err
	}

	var tiles, recomputed, triangles, skipped int
	for _, r := range results {
		if r.Skipped {
			skipped++
			continue
		}
		tiles += r.Tiles
		recomputed += r.Recomputed
		triangles += r.Triangles
	}
	logger.Info("batch complete",
		zap.Int("blocks", len(blocks)),
		zap.Int("skipped", skipped),
		zap.Int("triangles", triangles),
		zap.Int("tiles", tiles),
		zap.Int("recomputed", recomputed),
		zap.Bool("edited_only", p.EditedOnly),
		zap.Duration("elapsed", time.Since(start)),
	)
	return results, nil
}

// verifyUploads reads the lookup textures back from the GPU and compares
// them with the images they were made from.
func verifyUploads(results []pipeline.Result) error {
	checked := 0
	for _, r := range results {
		if r.Output == nil || r.Output.Textures == nil {
			continue
		}
		tex, ok := r.Output.Textures.Lookup.(*texture.Texture)
		if !ok {
			continue
		}
		img, err := tex.ReadPixels()
		if err != nil {
			return fmt.Errorf("reading back lookup of block %v: %w", r.Block.Origin, err)
		}
		if !bytes.Equal(img.Pix, r.Output.Images.Lookup.Pix) {
			return fmt.Errorf("lookup of block %v differs after upload", r.Block.Origin)
		}
		checked++
	}
	logger.Debug("uploads verified", zap.Int("textures", checked))
	return nil
}

func writeImages(cfg config.OutputConfig, results []pipeline.Result) error {
	format, err := debug.ParseFormat(cfg.Format)
	if err != nil {
		return err
	}
	w := debug.NewImageWriter(cfg.Dir, "detail", format)

	written := 0
	for _, r := range results {
		if r.Output == nil {
			continue
		}
		name := fmt.Sprintf("block_%d_%d_%d_lod%d", r.Block.Origin.X, r.Block.Origin.Y, r.Block.Origin.Z, r.Block.LOD)
		paths, err := w.WriteImages(name, &r.Output.Images)
		if err != nil {
			return fmt.Errorf("writing %s: %w", name, err)
		}
		written += len(paths)
	}
	logger.Info("images written", zap.String("dir", cfg.Dir), zap.Int("files", written))
	return nil
}
