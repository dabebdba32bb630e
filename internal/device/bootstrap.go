package device

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"
)

// defaultParallelism bounds the startup batch when none is configured.
const defaultParallelism = 4

// Assignment binds a display to the table it is mounted at.
type Assignment struct {
	DeviceID string
	TableID  string
}

// BuildFunc creates the controller for one assignment.
type BuildFunc func(ctx context.Context, a Assignment) (*Controller, error)

// BootstrapOptions controls the startup batch.
type BootstrapOptions struct {
	// Parallelism bounds how many devices initialise at once. Default: 4.
	Parallelism int

	// MinSuccessRatio is the fraction of devices that must initialise.
	// 0 tolerates any number of failures; 1 aborts on the first failure.
	MinSuccessRatio float64

	Logger Logger
}

// BootstrapResult reports the outcome of the batch.
type BootstrapResult struct {
	Total      int
	Registered []string
	Failed     map[string]error
}

// Bootstrap initialises every assignment as an independent task: build
// the controller (QR codes, screen graph), register it, then render and
// push its initial screen. At most Parallelism tasks run at once, and
// all tasks finish before Bootstrap returns.
//
// Bootstrap returns ErrBootstrapFailed when the share of devices that
// initialised is below MinSuccessRatio.
func Bootstrap(ctx context.Context, reg *Registry, assignments []Assignment, build BuildFunc, opts BootstrapOptions) (*BootstrapResult, error) {
	if opts.Parallelism <= 0 {
		opts.Parallelism = defaultParallelism
	}
	if opts.Logger == nil {
		opts.Logger = noopLogger{}
	}
	failFast := opts.MinSuccessRatio >= 1

	res := &BootstrapResult{Total: len(assignments), Failed: make(map[string]error)}
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Parallelism)

	for _, a := range assignments {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				mu.Lock()
				res.Failed[a.DeviceID] = err
				mu.Unlock()
				return nil
			}

			err := initDevice(gctx, reg, a, build)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				res.Failed[a.DeviceID] = err
				opts.Logger.Error("device initialisation failed",
					"device_id", a.DeviceID,
					"table_id", a.TableID,
					"error", err,
				)
				if failFast {
					return err
				}
				return nil
			}
			res.Registered = append(res.Registered, a.DeviceID)
			return nil
		})
	}

	groupErr := g.Wait()
	sort.Strings(res.Registered)

	opts.Logger.Info("device bootstrap complete",
		"total", res.Total,
		"registered", len(res.Registered),
		"failed", len(res.Failed),
	)

	if groupErr != nil {
		return res, fmt.Errorf("%w: %w", ErrBootstrapFailed, groupErr)
	}
	if res.Total > 0 {
		ratio := float64(len(res.Registered)) / float64(res.Total)
		if ratio < opts.MinSuccessRatio {
			return res, fmt.Errorf("%w: %d of %d devices initialised, need %.0f%%",
				ErrBootstrapFailed, len(res.Registered), res.Total, opts.MinSuccessRatio*100) //nolint:mnd // percent
		}
	}
	return res, nil
}

func initDevice(ctx context.Context, reg *Registry, a Assignment, build BuildFunc) error {
	c, err := build(ctx, a)
	if err != nil {
		return fmt.Errorf("building controller: %w", err)
	}
	if err := reg.Register(c); err != nil {
		c.Stop()
		return err
	}
	if _, err := c.Refresh(ctx); err != nil {
		return fmt.Errorf("initial render: %w", err)
	}
	return nil
}
