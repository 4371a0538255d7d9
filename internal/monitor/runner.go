// Package monitor orchestrates one crawl run: expand the registry into crawl
// targets, walk each target's frontier, gate on fingerprints, dispatch bodies
// to extractors, and merge the results into the event store.
package monitor

import (
	"context"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/endou0310-byte/rindo/internal/adapter"
	"github.com/endou0310-byte/rindo/internal/config"
	"github.com/endou0310-byte/rindo/internal/event"
	"github.com/endou0310-byte/rindo/internal/extract"
	"github.com/endou0310-byte/rindo/internal/fetch"
	"github.com/endou0310-byte/rindo/internal/fingerprint"
	"github.com/endou0310-byte/rindo/internal/metrics"
	"github.com/endou0310-byte/rindo/internal/registry"
	"github.com/endou0310-byte/rindo/internal/snapshot"
)

// Options are the per-run switches.
type Options struct {
	// DryRun merges in memory but tells the caller not to persist events.
	DryRun bool
	// Full ignores stored fingerprints and reprocesses every page.
	Full bool
	// Limit caps the number of crawl targets; 0 means all.
	Limit int
}

// Stats summarizes one run for logging and the run-summary notification.
type Stats struct {
	RunID      string
	StartedAt  time.Time
	FinishedAt time.Time
	Targets    int
	Pages      int
	Unchanged  int
	Errors     int
	Merged     int
}

// Runner wires the crawl pipeline together. All fields are set once at
// construction; Run may be called repeatedly.
type Runner struct {
	cfg      config.MonitorConfig
	fetcher  fetch.Fetcher
	detector *fetch.Detector
	renderer *fetch.Renderer
	pdf      extract.PDF
	imageOCR func(ctx context.Context, page extract.Page) ([]event.Raw, error)
	adapters *adapter.Registry
	saver    *snapshot.Saver
	logger   *zap.Logger
	now      func() time.Time
}

// RunnerDeps carries the optional collaborators; nil members disable the
// corresponding stage.
type RunnerDeps struct {
	Fetcher  fetch.Fetcher
	Detector *fetch.Detector
	Renderer *fetch.Renderer
	PDF      extract.PDF
	Image    func(ctx context.Context, page extract.Page) ([]event.Raw, error)
	Adapters *adapter.Registry
	Saver    *snapshot.Saver
	Logger   *zap.Logger
	Now      func() time.Time
}

// NewRunner builds a Runner.
func NewRunner(cfg config.MonitorConfig, deps RunnerDeps) *Runner {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Adapters == nil {
		deps.Adapters = adapter.NewRegistry()
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	return &Runner{
		cfg:      cfg,
		fetcher:  deps.Fetcher,
		detector: deps.Detector,
		renderer: deps.Renderer,
		pdf:      deps.PDF,
		imageOCR: deps.Image,
		adapters: deps.Adapters,
		saver:    deps.Saver,
		logger:   deps.Logger,
		now:      deps.Now,
	}
}

// target is one crawl entry point with its compiled link policy.
type target struct {
	agency   registry.Agency
	seed     string
	seedHost string
	policy   extract.LinkPolicy
	maxDepth int
}

// expandTargets flattens the registry: explicit watch URLs crawl only pages
// matching the agency's watch patterns, auto seeds use the keyword/path-hint
// heuristic. An agency with watch URLs uses those alone; its auto seeds are a
// fallback for when nothing is watched.
func expandTargets(agencies []registry.Agency) []target {
	var out []target
	for _, a := range agencies {
		depth := a.Crawl.MaxDepth
		if depth <= 0 {
			depth = 1
		}
		add := func(seed string, auto bool) {
			u, err := url.Parse(seed)
			if err != nil || u.Hostname() == "" {
				return
			}
			out = append(out, target{
				agency:   a,
				seed:     seed,
				seedHost: strings.ToLower(u.Hostname()),
				policy: extract.CompileLinkPolicy(
					a.Crawl.Allow, a.Crawl.Deny, a.WatchPatterns,
					a.Crawl.Keywords, a.Crawl.PathHints, auto,
				),
				maxDepth: depth,
			})
		}
		if len(a.Watch) > 0 {
			for _, w := range a.Watch {
				add(w, false)
			}
			continue
		}
		for _, s := range a.AutoSeeds {
			add(s, true)
		}
	}
	return out
}

// Run executes one monitor pass over the registry. Crawl and extraction
// failures are logged and counted, never fatal; the caller persists the
// stores afterwards.
func (r *Runner) Run(ctx context.Context, agencies []registry.Agency, events *event.Store, prints *fingerprint.Store, opts Options) Stats {
	stats := Stats{
		RunID:     uuid.NewString(),
		StartedAt: r.now(),
	}
	targets := expandTargets(agencies)
	if opts.Limit > 0 && len(targets) > opts.Limit {
		targets = targets[:opts.Limit]
	}
	stats.Targets = len(targets)
	r.logger.Info("run started",
		zap.String("run_id", stats.RunID),
		zap.Int("targets", len(targets)),
		zap.Bool("dry_run", opts.DryRun),
		zap.Bool("full", opts.Full))

	workers := r.cfg.Concurrency
	if workers <= 0 {
		workers = 1
	}
	jobs := make(chan target)
	var mu sync.Mutex
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for t := range jobs {
				ts := r.crawlTarget(ctx, t, events, prints, opts)
				mu.Lock()
				stats.Pages += ts.Pages
				stats.Unchanged += ts.Unchanged
				stats.Errors += ts.Errors
				stats.Merged += ts.Merged
				mu.Unlock()
			}
		}()
	}
	for _, t := range targets {
		select {
		case jobs <- t:
		case <-ctx.Done():
		}
		if ctx.Err() != nil {
			break
		}
	}
	close(jobs)
	wg.Wait()

	stats.FinishedAt = r.now()
	r.logger.Info("run finished",
		zap.String("run_id", stats.RunID),
		zap.Int("pages", stats.Pages),
		zap.Int("unchanged", stats.Unchanged),
		zap.Int("errors", stats.Errors),
		zap.Int("merged", stats.Merged),
		zap.Duration("elapsed", stats.FinishedAt.Sub(stats.StartedAt)))
	return stats
}

// crawlTarget walks one frontier to completion.
func (r *Runner) crawlTarget(ctx context.Context, t target, events *event.Store, prints *fingerprint.Store, opts Options) Stats {
	var stats Stats
	log := r.logger.With(zap.String("pref", t.agency.Pref), zap.String("seed", t.seed))
	front := newFrontier(t.seed)
	first := true

	for {
		if ctx.Err() != nil {
			return stats
		}
		tk, ok := front.next()
		if !ok {
			return stats
		}
		if !first {
			if !r.sleep(ctx, r.cfg.Delay()) {
				return stats
			}
		}
		first = false

		metrics.FetchesTotal.Inc()
		var cond fetch.Conditional
		prior, hasPrior := prints.Get(tk.url)
		if hasPrior && !opts.Full {
			cond = fetch.Conditional{ETag: prior.ETag, LastModified: prior.LastModified}
		}
		res, err := r.fetcher.Fetch(ctx, tk.url, cond)
		if err != nil {
			metrics.FetchErrorsTotal.Inc()
			stats.Errors++
			log.Warn("fetch failed", zap.String("url", tk.url), zap.Error(err))
			continue
		}

		now := r.now()
		if res.NotModified {
			metrics.UnchangedTotal.Inc()
			stats.Unchanged++
			prints.Touch(tk.url, now)
			continue
		}

		fp := fingerprint.Fingerprint{
			ETag:         res.Headers.Get("Etag"),
			LastModified: res.Headers.Get("Last-Modified"),
			Length:       len(res.Body),
			SHA1:         fingerprint.HashBody(res.Body),
			CheckedAt:    now.Format(time.RFC3339),
		}
		if hasPrior && !opts.Full && prior.Matches(fp) {
			metrics.UnchangedTotal.Inc()
			stats.Unchanged++
			prints.Touch(tk.url, now)
			continue
		}

		kind := fetch.Classify(res.ContentType, res.Body, tk.url)
		body := res.Body
		if kind == fetch.KindHTML && r.renderer != nil && r.detector != nil && r.detector.NeedsJS(body) {
			if rendered, rerr := r.renderer.Render(ctx, tk.url); rerr != nil {
				log.Warn("render failed", zap.String("url", tk.url), zap.Error(rerr))
			} else if len(rendered) > len(body) {
				body = rendered
			}
		}
		page := extract.Page{URL: tk.url, ContentType: res.ContentType, Body: body}

		if uri, serr := r.saver.Save(ctx, tk.url, kind, body); serr != nil {
			log.Warn("snapshot failed", zap.String("url", tk.url), zap.Error(serr))
		} else if uri != "" {
			log.Debug("snapshot saved", zap.String("uri", uri))
		}

		raws, links := r.process(ctx, t, page, kind, log)
		metrics.PagesProcessedTotal.Inc()
		stats.Pages++

		if len(raws) > 0 {
			merged := events.Merge(raws, t.agency.Pref, t.agency.PrefCode(), tk.url, now)
			metrics.EventsMergedTotal.Add(float64(merged))
			stats.Merged += merged
			log.Info("page merged",
				zap.String("url", tk.url),
				zap.Int("raw", len(raws)),
				zap.Int("merged", merged))
		}

		prints.Put(tk.url, fp)

		if tk.depth < t.maxDepth {
			for _, link := range links {
				if inScope(link, t.seedHost, t.agency) {
					front.enqueue(link, tk.depth+1)
				}
			}
		}
	}
}

// process dispatches one page to its extractor. A matching site adapter takes
// over extraction for every content type on its host; on HTML pages the
// generic discovery pass still runs, so watch patterns keep working alongside
// the adapter's own links.
func (r *Runner) process(ctx context.Context, t target, page extract.Page, kind fetch.Kind, log *zap.Logger) ([]event.Raw, []string) {
	if a := r.adapters.For(page.Host()); a != nil {
		links := a.Links(page)
		if kind == fetch.KindHTML {
			links = unionLinks(links, extract.DiscoverLinks(page, t.policy))
		}
		return a.Extract(page), links
	}
	switch kind {
	case fetch.KindHTML:
		return extract.FromHTML(page), extract.DiscoverLinks(page, t.policy)
	case fetch.KindPDF:
		raws, err := r.pdf.FromPDF(ctx, page)
		if err != nil {
			metrics.ExtractFailuresTotal.Inc()
			log.Warn("pdf extraction failed", zap.String("url", page.URL), zap.Error(err))
			return nil, nil
		}
		return raws, nil
	case fetch.KindImage:
		if r.imageOCR == nil {
			return nil, nil
		}
		raws, err := r.imageOCR(ctx, page)
		if err != nil {
			metrics.ExtractFailuresTotal.Inc()
			log.Warn("image extraction failed", zap.String("url", page.URL), zap.Error(err))
			return nil, nil
		}
		return raws, nil
	default:
		return nil, nil
	}
}

// unionLinks concatenates the two link lists, dropping duplicates while
// keeping first-seen order.
func unionLinks(a, b []string) []string {
	if len(a) == 0 {
		return b
	}
	seen := make(map[string]struct{}, len(a)+len(b))
	out := make([]string, 0, len(a)+len(b))
	for _, list := range [][]string{a, b} {
		for _, link := range list {
			if _, dup := seen[link]; dup {
				continue
			}
			seen[link] = struct{}{}
			out = append(out, link)
		}
	}
	return out
}

// sleep waits for the politeness delay, returning false if the run was
// cancelled first.
func (r *Runner) sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	}
}
