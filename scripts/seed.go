package main

import (
	"context"
	"database/sql"
	"flag"
	"log"
	"os"
	"strings"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"
	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/fundbrave/search-service/internal/evaluation"
	"github.com/fundbrave/search-service/internal/infrastructure/clients/postgres"
	"github.com/fundbrave/search-service/pkg/config"
)

var dialect = goqu.Dialect("postgres")

func main() {
	corpusPath := flag.String("corpus", "config/search_corpus.json", "path to the search corpus fixture")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	corpus, err := evaluation.LoadCorpus(*corpusPath)
	if err != nil {
		log.Fatalf("Failed to load corpus: %v", err)
	}

	pgClient, err := postgres.NewClient(&cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to DB: %v", err)
	}
	defer pgClient.Close()

	ctx := context.Background()
	db := pgClient.DB()

	if os.Getenv("RESET_DB") == "true" {
		log.Println("RESET_DB=true detected, truncating tables before seeding")
		_, err := db.ExecContext(ctx, `
			TRUNCATE TABLE
				post_hashtags,
				posts,
				hashtags,
				campaigns,
				search_suggestions,
				recent_searches,
				search_clicks,
				search_analytics,
				users
			RESTART IDENTITY CASCADE
		`)
		if err != nil {
			log.Fatalf("Failed to reset tables: %v", err)
		}
	}

	now := time.Now()

	for _, u := range corpus.Users {
		insert(ctx, db, "users", "user "+u.Username, goqu.Record{
			"id":             u.ID,
			"username":       u.Username,
			"display_name":   u.DisplayName,
			"bio":            u.Bio,
			"avatar_url":     u.AvatarURL,
			"wallet_address": nullable(u.WalletAddress),
			"is_verified":    u.IsVerified,
			"follower_count": u.FollowerCount,
			"is_active":      u.IsActive,
			"created_at":     orNow(u.CreatedAt, now),
		})
	}

	for _, c := range corpus.Campaigns {
		insert(ctx, db, "campaigns", "campaign "+c.Name, goqu.Record{
			"id":            c.ID,
			"name":          c.Name,
			"description":   c.Description,
			"categories":    pq.Array(c.Categories),
			"goal_amount":   c.GoalAmount,
			"amount_raised": c.AmountRaised,
			"donor_count":   c.DonorCount,
			"image_url":     c.ImageURL,
			"is_featured":   c.IsFeatured,
			"is_verified":   c.IsVerified,
			"is_active":     c.IsActive,
			"creator_id":    c.CreatorID,
			"end_date":      c.EndDate,
			"created_at":    orNow(c.CreatedAt, now),
		})
	}

	tagIDs := make(map[string]string, len(corpus.Hashtags))
	for _, h := range corpus.Hashtags {
		id := h.ID
		if id == "" {
			id = uuid.New().String()
		}
		tag := strings.ToLower(strings.TrimPrefix(h.Tag, "#"))
		tagIDs[tag] = id
		insert(ctx, db, "hashtags", "hashtag "+tag, goqu.Record{
			"id":           id,
			"tag":          tag,
			"usage_count":  h.UsageCount,
			"last_used_at": h.LastUsedAt,
			"created_at":   orNow(h.CreatedAt, now),
		})
	}

	for _, p := range corpus.Posts {
		insert(ctx, db, "posts", "post "+p.ID, goqu.Record{
			"id":               p.ID,
			"content":          p.Content,
			"author_id":        p.AuthorID,
			"likes_count":      p.LikesCount,
			"comments_count":   p.CommentsCount,
			"shares_count":     p.SharesCount,
			"engagement_score": p.EngagementScore,
			"media_url":        p.MediaURL,
			"is_deleted":       p.IsDeleted,
			"created_at":       orNow(p.CreatedAt, now),
		})

		// Link each post to the hashtags it carries
		for _, tag := range p.Hashtags {
			hashtagID, ok := tagIDs[strings.ToLower(strings.TrimPrefix(tag, "#"))]
			if !ok {
				log.Printf("Post %s references unknown hashtag %s", p.ID, tag)
				continue
			}
			insert(ctx, db, "post_hashtags", "post hashtag "+tag, goqu.Record{
				"post_id":    p.ID,
				"hashtag_id": hashtagID,
			})
		}
	}

	for _, q := range corpus.PopularQueries {
		insert(ctx, db, "search_suggestions", "popular query "+q.Term, goqu.Record{
			"term":             strings.ToLower(q.Term),
			"search_count":     q.Count,
			"last_searched_at": now,
		})
	}

	log.Printf("Seeding completed: %d campaigns, %d users, %d posts, %d hashtags",
		len(corpus.Campaigns), len(corpus.Users), len(corpus.Posts), len(corpus.Hashtags))
}

// insert writes one row and skips rows that already exist
func insert(ctx context.Context, db *sql.DB, table, label string, row goqu.Record) {
	query, args, err := dialect.Insert(table).Prepared(true).
		Rows(row).
		OnConflict(goqu.DoNothing()).
		ToSQL()
	if err != nil {
		log.Printf("Failed to build insert for %s: %v", label, err)
		return
	}
	if _, err := db.ExecContext(ctx, query, args...); err != nil {
		log.Printf("Failed to create %s: %v", label, err)
	}
}

func nullable(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

func orNow(t, now time.Time) time.Time {
	if t.IsZero() {
		return now
	}
	return t
}
