package site

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/salmonumbrella/notion-cli/internal/api"
	"github.com/salmonumbrella/notion-cli/internal/metrics"
	"github.com/salmonumbrella/notion-cli/internal/resolve"
)

// DefaultConcurrency is the number of pages built in parallel.
const DefaultConcurrency = 2

// Outcome is the build result of one page.
type Outcome string

const (
	OutcomeBuilt    Outcome = "built"
	OutcomePartial  Outcome = "partial"
	OutcomeNotFound Outcome = "not_found"
	OutcomeFailed   Outcome = "failed"
)

// Result is the outcome of building one page.
type Result struct {
	PageID   string    `json:"page_id"`
	Outcome  Outcome   `json:"outcome"`
	Reason   string    `json:"reason,omitempty"`
	Document *Document `json:"-"`
	Err      error     `json:"-"`
}

// Assembler turns page identifiers into documents.
type Assembler struct {
	client      api.NotionAPI
	resolver    *resolve.Resolver
	concurrency int
	strict      bool
	logger      *slog.Logger
	recorder    metrics.Recorder
}

// Option configures an Assembler.
type Option func(*Assembler)

// WithResolver sets the resolver used for pages.
func WithResolver(r *resolve.Resolver) Option {
	return func(a *Assembler) {
		if r != nil {
			a.resolver = r
		}
	}
}

// WithConcurrency sets how many pages BuildAll assembles at once.
func WithConcurrency(n int) Option {
	return func(a *Assembler) {
		if n > 0 {
			a.concurrency = n
		}
	}
}

// WithStrict makes a metadata fetch that failed for a reason other than a
// missing page count as a failed build instead of not found.
func WithStrict(strict bool) Option {
	return func(a *Assembler) {
		a.strict = strict
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(a *Assembler) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// WithRecorder sets the metrics recorder for build outcomes.
func WithRecorder(r metrics.Recorder) Option {
	return func(a *Assembler) {
		a.recorder = metrics.OrNoop(r)
	}
}

// New creates an Assembler. Without WithResolver it resolves pages with a
// default resolver over client.
func New(client api.NotionAPI, opts ...Option) *Assembler {
	a := &Assembler{
		client:      client,
		concurrency: DefaultConcurrency,
		logger:      slog.Default(),
		recorder:    metrics.NoopRecorder{},
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.resolver == nil {
		a.resolver = resolve.New(client, resolve.WithLogger(a.logger), resolve.WithRecorder(a.recorder))
	}
	return a
}

// Assemble resolves and describes one page. A page that cannot be found
// returns an error matching resolve.ErrNotFound; an empty page is a valid
// document with no blocks.
func (a *Assembler) Assemble(ctx context.Context, pageID string) (*Document, error) {
	res, err := a.resolver.Resolve(ctx, pageID)
	if err != nil {
		return nil, err
	}
	return NewDocument(res), nil
}

// KnownIDs lists the identifiers of the pages in a database.
func (a *Assembler) KnownIDs(ctx context.Context, databaseID string, opts api.QueryOptions) ([]string, error) {
	pages, err := a.client.QueryDatabase(ctx, databaseID, opts)
	if err != nil {
		return nil, fmt.Errorf("query database %s: %w", databaseID, err)
	}
	ids := make([]string, len(pages))
	for i, p := range pages {
		ids[i] = p.ID
	}
	return ids, nil
}

// BuildAll assembles every page and returns one result per identifier, in
// input order. Individual failures never stop the batch.
func (a *Assembler) BuildAll(ctx context.Context, ids []string) []Result {
	results := make([]Result, len(ids))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.concurrency)

	for i, id := range ids {
		g.Go(func() error {
			results[i] = a.build(gctx, id)
			a.recorder.IncBuildOutcome(string(results[i].Outcome))
			return nil
		})
	}
	_ = g.Wait()

	return results
}

func (a *Assembler) build(ctx context.Context, id string) Result {
	if err := ctx.Err(); err != nil {
		return Result{PageID: id, Outcome: OutcomeFailed, Reason: "canceled", Err: err}
	}

	doc, err := a.Assemble(ctx, id)
	if err != nil {
		return a.classify(id, err)
	}

	if doc.Partial() {
		a.logger.Warn("page built with unresolved subtrees", "page_id", id, "failed", len(doc.Failed))
		return Result{PageID: id, Outcome: OutcomePartial, Reason: "subtree_error", Document: doc, Err: doc.Err()}
	}

	a.logger.Debug("page built", "page_id", id, "blocks", len(doc.Blocks))
	return Result{PageID: id, Outcome: OutcomeBuilt, Document: doc}
}

func (a *Assembler) classify(id string, err error) Result {
	var nf *resolve.NotFoundError
	if errors.As(err, &nf) {
		outcome := OutcomeNotFound
		if a.strict && nf.Reason == resolve.ReasonServiceError {
			outcome = OutcomeFailed
		}
		a.logger.Info("page not found", "page_id", id, "reason", nf.Reason)
		return Result{PageID: id, Outcome: outcome, Reason: nf.Reason, Err: err}
	}

	a.logger.Warn("page build failed", "page_id", id, "error", err)
	return Result{PageID: id, Outcome: OutcomeFailed, Reason: "error", Err: err}
}

// Summary counts results by outcome.
func Summary(results []Result) map[Outcome]int {
	counts := make(map[Outcome]int)
	for _, r := range results {
		counts[r.Outcome]++
	}
	return counts
}
