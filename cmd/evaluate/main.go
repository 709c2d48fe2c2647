package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/fundbrave/search-service/internal/adapters/memory"
	"github.com/fundbrave/search-service/internal/application/services"
	"github.com/fundbrave/search-service/internal/evaluation"
	"github.com/fundbrave/search-service/internal/infrastructure/observability"
	"github.com/fundbrave/search-service/pkg/config"
)

// evaluate replays golden queries against the search service over a fixture
// corpus and prints Recall@10 and MRR@10. It exits 1 when recall falls below
// -min-recall so ranking changes can gate CI.
func main() {
	var (
		goldenPath string
		corpusPath string
		minRecall  float64
		verbose    bool
	)
	flag.StringVar(&goldenPath, "golden", "config/golden_queries.json", "Golden query set")
	flag.StringVar(&corpusPath, "corpus", "config/search_corpus.json", "Fixture corpus loaded into the in-process store")
	flag.Float64Var(&minRecall, "min-recall", 0, "Fail when average Recall@10 is below this value")
	flag.BoolVar(&verbose, "verbose", false, "Include per-query results in the output")
	flag.Parse()

	observability.InitLogger("search-evaluate", "development", "warn")

	queries, err := evaluation.LoadGoldenQueries(goldenPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load golden queries")
	}
	if err := evaluation.ValidateGoldenQueries(queries); err != nil {
		log.Fatal().Err(err).Msg("invalid golden queries")
	}
	corpus, err := evaluation.LoadCorpus(corpusPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load corpus")
	}

	store := memory.NewStore()
	corpus.Seed(store, time.Now())

	cfg := config.DefaultSearchConfig()
	tasks := services.NewBackgroundTasks(cfg.AnalyticsTimeout)
	searchService := services.NewSearchService(
		services.SearchRepositories{
			Campaigns: store.Campaigns(),
			Users:     store.Users(),
			Posts:     store.Posts(),
			Hashtags:  store.Hashtags(),
		},
		store,
		store,
		services.NewSearchCache(nil, nil),
		services.NewSearchAnalyticsService(store, tasks),
		tasks,
		cfg,
		nil,
	)

	summary, err := evaluation.NewRunner(searchService).Run(context.Background(), queries)
	if err != nil {
		log.Fatal().Err(err).Msg("evaluation failed")
	}
	if !verbose {
		summary.Results = nil
	}

	out, _ := json.MarshalIndent(summary, "", "  ")
	fmt.Println(string(out))

	if summary.AvgRecallAt10 < minRecall {
		log.Error().Float64("recall", summary.AvgRecallAt10).Float64("min_recall", minRecall).Msg("recall below threshold")
		os.Exit(1)
	}
}
