package evaluation

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/fundbrave/search-service/internal/adapters/memory"
	"github.com/fundbrave/search-service/internal/domain/entities"
)

// LoadGoldenQueries reads and parses a golden query set from a JSON file.
func LoadGoldenQueries(path string) ([]GoldenQuery, error) {
	var queries []GoldenQuery
	if err := readJSON(path, &queries); err != nil {
		return nil, fmt.Errorf("failed to load golden queries: %w", err)
	}
	return queries, nil
}

// LoadCorpus reads the fixture data set from a JSON file.
func LoadCorpus(path string) (*Corpus, error) {
	var corpus Corpus
	if err := readJSON(path, &corpus); err != nil {
		return nil, fmt.Errorf("failed to load corpus: %w", err)
	}
	return &corpus, nil
}

func readJSON(path string, v interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}

// Seed loads the corpus into store
func (c *Corpus) Seed(store *memory.Store, now time.Time) {
	for _, campaign := range c.Campaigns {
		store.PutCampaign(campaign)
	}
	for _, user := range c.Users {
		store.PutUser(user)
	}
	for _, post := range c.Posts {
		store.PutPost(post)
	}
	for _, hashtag := range c.Hashtags {
		store.PutHashtag(hashtag)
	}
	for _, q := range c.PopularQueries {
		store.PutPopularQuery(q.Term, q.Count, now)
	}
}

var validDifficulties = map[string]bool{
	"easy":   true,
	"medium": true,
	"hard":   true,
}

// ValidateGoldenQueries checks that all golden queries have required fields and valid values.
func ValidateGoldenQueries(queries []GoldenQuery) error {
	seen := make(map[string]struct{}, len(queries))

	for i, q := range queries {
		if q.ID == "" {
			return fmt.Errorf("query at index %d: missing id", i)
		}
		if _, dup := seen[q.ID]; dup {
			return fmt.Errorf("query at index %d: duplicate id %q", i, q.ID)
		}
		seen[q.ID] = struct{}{}

		if strings.TrimSpace(q.Query) == "" {
			return fmt.Errorf("query %q: missing query text", q.ID)
		}
		if _, ok := entities.ParseSearchScope(string(q.Scope)); !ok {
			return fmt.Errorf("query %q: invalid scope %q", q.ID, q.Scope)
		}
		if !validDifficulties[q.Difficulty] {
			return fmt.Errorf("query %q: invalid difficulty %q (must be easy/medium/hard)", q.ID, q.Difficulty)
		}
		for _, key := range q.ExpectedIDs {
			kind, id, ok := strings.Cut(key, ":")
			if _, valid := entities.ParseEntityType(kind); !ok || !valid || id == "" {
				return fmt.Errorf("query %q: expected id %q must look like <type>:<id>", q.ID, key)
			}
		}
	}

	return nil
}
