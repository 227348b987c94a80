// Package resolve materializes a page into a block tree with one extra level
// of nesting resolved.
//
// The root list of a page is fetched first. Every root block that reports
// children and does not already carry them is a container; each container's
// children are fetched concurrently and spliced into a copy of the container,
// matched by block ID. Blocks deeper than that keep their children
// unresolved.
package resolve

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/salmonumbrella/notion-cli/internal/api"
	"github.com/salmonumbrella/notion-cli/internal/metrics"
	"github.com/salmonumbrella/notion-cli/internal/notiondb"
)

// DefaultConcurrency is the number of container fetches in flight per page.
const DefaultConcurrency = 4

// Resolution is the result of resolving one page.
type Resolution struct {
	Page   *notiondb.Page
	Blocks []notiondb.Block
	// Failures lists containers whose children could not be fetched, in
	// root order.
	Failures []*SubtreeError
}

// Partial reports whether any container failed to resolve.
func (r *Resolution) Partial() bool {
	return len(r.Failures) > 0
}

// Err joins the subtree failures, or returns nil when there are none.
func (r *Resolution) Err() error {
	if len(r.Failures) == 0 {
		return nil
	}
	errs := make([]error, len(r.Failures))
	for i, f := range r.Failures {
		errs[i] = f
	}
	return errors.Join(errs...)
}

// Resolver resolves page trees against a NotionAPI.
type Resolver struct {
	client      api.NotionAPI
	concurrency int
	failFast    bool
	logger      *slog.Logger
	recorder    metrics.Recorder
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithConcurrency sets the maximum number of concurrent container fetches.
func WithConcurrency(n int) Option {
	return func(r *Resolver) {
		if n > 0 {
			r.concurrency = n
		}
	}
}

// WithFailFast makes the first subtree failure abort the resolution.
func WithFailFast(failFast bool) Option {
	return func(r *Resolver) {
		r.failFast = failFast
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Resolver) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithRecorder sets the metrics recorder.
func WithRecorder(rec metrics.Recorder) Option {
	return func(r *Resolver) {
		r.recorder = metrics.OrNoop(rec)
	}
}

// New creates a Resolver.
func New(client api.NotionAPI, opts ...Option) *Resolver {
	r := &Resolver{
		client:      client,
		concurrency: DefaultConcurrency,
		logger:      slog.Default(),
		recorder:    metrics.NoopRecorder{},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve fetches the page metadata and its block tree.
//
// A metadata failure returns a *NotFoundError and no block lists are
// requested. A failed root listing aborts with a wrapped error. A failed
// container fetch is recorded in Resolution.Failures unless fail-fast is set.
func (r *Resolver) Resolve(ctx context.Context, pageID string) (*Resolution, error) {
	start := time.Now()
	defer func() { r.recorder.ObserveResolve(time.Since(start)) }()

	if !api.ValidPageID(pageID) {
		return nil, notFound(pageID, api.InvalidIdentifierError{ID: pageID})
	}

	page, err := r.client.GetPage(ctx, pageID)
	if err != nil {
		if isContextErr(err) {
			return nil, err
		}
		nf := notFound(pageID, err)
		r.logger.Debug("page metadata unavailable", "page_id", pageID, "reason", nf.Reason, "error", err)
		return nil, nf
	}

	root, err := r.client.ListChildren(ctx, pageID)
	if err != nil {
		return nil, fmt.Errorf("list blocks of page %s: %w", pageID, err)
	}

	blocks, failures, err := r.expand(ctx, root)
	if err != nil {
		return nil, err
	}

	return &Resolution{Page: page, Blocks: blocks, Failures: failures}, nil
}

// fetched is one container's fetch result. Each entry is written by exactly
// one goroutine and read only after Wait.
type fetched struct {
	blockID  string
	children []notiondb.Block
	err      error
}

func (r *Resolver) expand(ctx context.Context, root []notiondb.Block) ([]notiondb.Block, []*SubtreeError, error) {
	var containers []string
	for _, b := range root {
		if b.HasChildren && !b.ChildrenResolved() {
			containers = append(containers, b.ID)
		}
	}

	results := make([]fetched, len(containers))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.concurrency)

	for i, id := range containers {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				results[i] = fetched{blockID: id, err: err}
				return err
			}

			r.logger.Debug("fetching container children", "block_id", id)
			children, err := r.client.ListChildren(gctx, id)
			results[i] = fetched{blockID: id, children: children, err: err}

			if err != nil && r.failFast {
				return &SubtreeError{BlockID: id, Err: err}
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	byID := make(map[string]fetched, len(results))
	for _, res := range results {
		byID[res.blockID] = res
	}

	out := make([]notiondb.Block, len(root))
	var failures []*SubtreeError
	for i, b := range root {
		res, ok := byID[b.ID]
		switch {
		case !ok:
			out[i] = b
		case res.err != nil:
			out[i] = b
			failures = append(failures, &SubtreeError{BlockID: b.ID, Err: res.err})
			r.recorder.IncSubtreeFailure()
			r.logger.Warn("container children unavailable", "block_id", b.ID, "error", res.err)
		default:
			out[i] = b.WithChildren(res.children)
		}
	}

	return out, failures, nil
}
