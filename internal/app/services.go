package app

import (
	"github.com/Gobusters/ectologger"

	"github.com/michaeltoohig/unofficial-vfsc-graph/config"
	"github.com/michaeltoohig/unofficial-vfsc-graph/pkg/digest"
	"github.com/michaeltoohig/unofficial-vfsc-graph/pkg/explorer"
	"github.com/michaeltoohig/unofficial-vfsc-graph/pkg/graph"
	"github.com/michaeltoohig/unofficial-vfsc-graph/pkg/ingest"
	"github.com/michaeltoohig/unofficial-vfsc-graph/pkg/normalizers"
	"github.com/michaeltoohig/unofficial-vfsc-graph/pkg/processor"
	"github.com/michaeltoohig/unofficial-vfsc-graph/pkg/rebuilder"
	"github.com/michaeltoohig/unofficial-vfsc-graph/pkg/resolver"
)

// Extras are the optional collaborators that exist only when their backing
// service is enabled.
type Extras struct {
	Versions  graph.VersionStore
	Locker    ingest.Locker
	Listeners []processor.Listener
}

type Services struct {
	Processor *processor.Processor
	Cache     *graph.Cache
	Explorer  *explorer.Explorer
	Runner    *ingest.Runner
	Sessions  SessionStore
}

func NewServices(cfg config.Config, stores Stores, extras Extras, logger ectologger.Logger) *Services {
	nameResolver := resolver.NewNameResolver(stores.Individuals, stores.Companies, logger)
	rb := rebuilder.New(stores.Relationships, nameResolver, stores.Tx, rebuilder.Options{
		PersistFormer: cfg.PersistFormerRelationships,
	}, logger)
	proc := processor.NewProcessor(logger, stores.Companies, stores.Changes, rb, stores.Tx, digest.NewHasher(cfg.DigestExclusions()))

	var cacheOpts []graph.CacheOption
	if extras.Versions != nil {
		cacheOpts = append(cacheOpts, graph.WithVersionStore(extras.Versions))
	}
	builder := graph.NewBuilder(graph.NewSource(stores.Companies, stores.Individuals, stores.Relationships), logger)
	cache := graph.NewCache(builder, cfg.GraphCacheTTL, logger, cacheOpts...)

	proc.AddListener(cache)
	for _, l := range extras.Listeners {
		proc.AddListener(l)
	}

	runner := ingest.NewRunner(
		proc,
		stores.Sessions,
		normalizers.New(normalizers.Options{UnknownPartyLabel: cfg.UnknownPartyLabel}),
		ingest.Options{Locker: extras.Locker},
		logger,
	)

	return &Services{
		Processor: proc,
		Cache:     cache,
		Explorer:  explorer.New(stores.Companies, stores.Individuals, stores.Relationships, stores.Changes, cache, cfg.GraphMaxDepth, logger),
		Runner:    runner,
		Sessions:  stores.Sessions,
	}
}
