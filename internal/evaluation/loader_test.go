package evaluation

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fundbrave/search-service/internal/adapters/memory"
	"github.com/fundbrave/search-service/internal/domain/entities"
)

func TestLoadGoldenQueries_ValidFile(t *testing.T) {
	content := `[
		{"id": "q1", "query": "clean water", "scope": "CAMPAIGNS", "expected_ids": ["campaign:c1"], "difficulty": "easy"},
		{"id": "q2", "query": "#education", "scope": "ALL", "expected_ids": ["hashtag:h2", "post:p1"], "difficulty": "medium"}
	]`
	path := writeTempFile(t, content)

	queries, err := LoadGoldenQueries(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(queries) != 2 {
		t.Fatalf("expected 2 queries, got %d", len(queries))
	}
	if queries[0].Scope != entities.SearchScopeCampaigns {
		t.Errorf("expected scope CAMPAIGNS, got %s", queries[0].Scope)
	}
	if len(queries[1].ExpectedIDs) != 2 {
		t.Errorf("expected 2 ids, got %d", len(queries[1].ExpectedIDs))
	}
	if err := ValidateGoldenQueries(queries); err != nil {
		t.Errorf("unexpected validation error: %v", err)
	}
}

func TestLoadGoldenQueries_Errors(t *testing.T) {
	if _, err := LoadGoldenQueries("/nonexistent/path.json"); err == nil {
		t.Error("expected error for nonexistent file")
	}
	if _, err := LoadGoldenQueries(writeTempFile(t, `not valid json`)); err == nil {
		t.Error("expected error for invalid JSON")
	}
}

func TestValidateGoldenQueries_Rejects(t *testing.T) {
	tests := map[string][]GoldenQuery{
		"missing id":     {{Query: "water", Scope: "ALL", Difficulty: "easy"}},
		"missing query":  {{ID: "q1", Query: "  ", Scope: "ALL", Difficulty: "easy"}},
		"bad scope":      {{ID: "q1", Query: "water", Scope: "EVERYTHING", Difficulty: "easy"}},
		"bad difficulty": {{ID: "q1", Query: "water", Scope: "ALL", Difficulty: "impossible"}},
		"bad key":        {{ID: "q1", Query: "water", Scope: "ALL", Difficulty: "easy", ExpectedIDs: []string{"c1"}}},
		"bad key type":   {{ID: "q1", Query: "water", Scope: "ALL", Difficulty: "easy", ExpectedIDs: []string{"video:v1"}}},
		"duplicate ids": {
			{ID: "q1", Query: "water", Scope: "ALL", Difficulty: "easy"},
			{ID: "q1", Query: "books", Scope: "ALL", Difficulty: "easy"},
		},
	}
	for name, queries := range tests {
		t.Run(name, func(t *testing.T) {
			if err := ValidateGoldenQueries(queries); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestLoadCorpus_Seed(t *testing.T) {
	content := `{
		"campaigns": [{"id": "c1", "name": "Clean Water", "is_active": true, "donor_count": 3, "created_at": "2026-01-01T00:00:00Z"}],
		"users": [{"id": "u1", "username": "amara", "display_name": "Amara", "is_active": true, "created_at": "2026-01-01T00:00:00Z"}],
		"popular_queries": [{"term": "clean water", "count": 7}]
	}`
	corpus, err := LoadCorpus(writeTempFile(t, content))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	store := memory.NewStore()
	corpus.Seed(store, time.Now())

	names, err := store.CampaignNamesByPrefix(t.Context(), "clean", 5)
	if err != nil || len(names) != 1 {
		t.Fatalf("expected seeded campaign, got %v (%v)", names, err)
	}
	popular, err := store.PopularQueriesByPrefix(t.Context(), "clean", 5)
	if err != nil || len(popular) != 1 || popular[0].Count != 7 {
		t.Errorf("expected seeded popular query, got %v (%v)", popular, err)
	}
}

func writeTempFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "fixture.json")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write temp file: %v", err)
	}
	return path
}
