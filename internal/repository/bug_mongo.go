package repository

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"sort"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/bugtracker/server/internal/models"
	"github.com/bugtracker/server/internal/service"
)

// BugCollection is the collection holding bug documents.
const BugCollection = "bugs"

// keywordScanFactor bounds how many regex hits are scored per requested
// result before the best ones are kept.
const keywordScanFactor = 5

// BugMongo satisfies service.BugRepository and service.KeywordSearcher.
//
// Expected schema:
//
//	bugs
//	  { _id: ObjectId, title, description, status, priority, component, tags: [string],
//	    embedding: [double], embeddingUpdatedAt, createdBy, createdAt, updatedAt }
type BugMongo struct {
	col *mongo.Collection
	log *slog.Logger
}

// NewBugRepository wires the "bugs" collection.
func NewBugRepository(db *mongo.Database) *BugMongo {
	return &BugMongo{
		col: db.Collection(BugCollection),
		log: slog.Default().With("component", "bug_repository"),
	}
}

// -------------------------- CRUD --------------------------------------------

// Create inserts bug and sets its ID.
func (r *BugMongo) Create(ctx context.Context, bug *models.Bug) error {
	if bug.ID.IsZero() {
		bug.ID = primitive.NewObjectID()
	}
	if _, err := r.col.InsertOne(ctx, bug); err != nil {
		return fmt.Errorf("insert bug: %w", err)
	}
	return nil
}

// FindByID fetches one of owner's bugs by its hex ObjectID.
func (r *BugMongo) FindByID(ctx context.Context, owner, id string) (models.Bug, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return models.Bug{}, service.ErrNotFound
	}

	var bug models.Bug
	err = r.col.FindOne(ctx, bson.M{"_id": oid, "createdBy": owner}).Decode(&bug)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.Bug{}, service.ErrNotFound
	}
	if err != nil {
		return models.Bug{}, fmt.Errorf("find bug %s: %w", id, err)
	}
	return bug, nil
}

// ListByOwner returns owner's newest bugs without their vectors.
func (r *BugMongo) ListByOwner(ctx context.Context, owner string, limit int) ([]models.Bug, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetProjection(bson.M{"embedding": 0})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}
	return r.find(ctx, bson.M{"createdBy": owner}, opts)
}

// -------------------------- embeddings --------------------------------------

// FindWithEmbedding returns every bug of owner whose embedding has at least
// one value.
func (r *BugMongo) FindWithEmbedding(ctx context.Context, owner string) ([]models.Bug, error) {
	return r.find(ctx, withEmbeddingFilter(owner), options.Find())
}

// FindMissingEmbedding returns owner's bugs without an embedding, oldest first.
func (r *BugMongo) FindMissingEmbedding(ctx context.Context, owner string, limit int) ([]models.Bug, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}
	return r.find(ctx, missingEmbeddingFilter(owner), opts)
}

// UpdateEmbedding overwrites the stored vector.
func (r *BugMongo) UpdateEmbedding(ctx context.Context, id string, vec []float64, at time.Time) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return service.ErrNotFound
	}

	res, err := r.col.UpdateByID(ctx, oid, bson.M{"$set": bson.M{
		"embedding":          vec,
		"embeddingUpdatedAt": at,
		"updatedAt":          at,
	}})
	if err != nil {
		return fmt.Errorf("update embedding %s: %w", id, err)
	}
	if res.MatchedCount == 0 {
		return service.ErrNotFound
	}
	return nil
}

// EmbeddingStats counts owner's bugs with and without vectors.
func (r *BugMongo) EmbeddingStats(ctx context.Context, owner string) (models.EmbeddingStats, error) {
	total, err := r.col.CountDocuments(ctx, bson.M{"createdBy": owner})
	if err != nil {
		return models.EmbeddingStats{}, fmt.Errorf("count bugs: %w", err)
	}
	with, err := r.col.CountDocuments(ctx, withEmbeddingFilter(owner))
	if err != nil {
		return models.EmbeddingStats{}, fmt.Errorf("count embedded bugs: %w", err)
	}
	return models.EmbeddingStats{
		Total:         total,
		WithEmbedding: with,
		Missing:       total - with,
	}, nil
}

// -------------------------- keyword search ----------------------------------

// KeywordSearch matches every query term case-insensitively against title,
// description and tags, scores the hits and returns the best limit of them.
func (r *BugMongo) KeywordSearch(ctx context.Context, owner, query string, limit int) ([]models.SearchResult, error) {
	terms := keywordTerms(query)
	if len(terms) == 0 {
		return []models.SearchResult{}, nil
	}
	if limit <= 0 {
		limit = 10
	}

	opts := options.Find().
		SetProjection(bson.M{"embedding": 0}).
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetLimit(int64(limit * keywordScanFactor))
	bugs, err := r.find(ctx, keywordFilter(owner, terms), opts)
	if err != nil {
		return nil, err
	}

	results := make([]models.SearchResult, 0, len(bugs))
	for _, b := range bugs {
		tags := b.Tags
		if tags == nil {
			tags = []string{}
		}
		results = append(results, models.SearchResult{
			ID:             b.ID.Hex(),
			Title:          b.Title,
			Description:    b.Description,
			Status:         b.Status,
			Priority:       b.Priority,
			Tags:           tags,
			CreatedAt:      b.CreatedAt,
			RelevanceScore: scoreKeywordMatch(b, terms),
		})
	}
	sort.SliceStable(results, func(i, j int) bool {
		if results[i].RelevanceScore != results[j].RelevanceScore {
			return results[i].RelevanceScore > results[j].RelevanceScore
		}
		return results[i].CreatedAt.After(results[j].CreatedAt)
	})
	if len(results) > limit {
		results = results[:limit]
	}

	r.log.Debug("keyword search", "owner", owner, "terms", len(terms), "hits", len(bugs), "returned", len(results))
	return results, nil
}

func (r *BugMongo) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]models.Bug, error) {
	cur, err := r.col.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("find bugs: %w", err)
	}
	defer cur.Close(ctx)

	bugs := []models.Bug{}
	if err := cur.All(ctx, &bugs); err != nil {
		return nil, fmt.Errorf("decode bugs: %w", err)
	}
	return bugs, nil
}

// -------------------------- filters -----------------------------------------

func withEmbeddingFilter(owner string) bson.M {
	return bson.M{"createdBy": owner, "embedding.0": bson.M{"$exists": true}}
}

func missingEmbeddingFilter(owner string) bson.M {
	return bson.M{"createdBy": owner, "embedding.0": bson.M{"$exists": false}}
}

// keywordTerms lowercases query and splits it into unique words.
func keywordTerms(query string) []string {
	seen := map[string]bool{}
	var terms []string
	for _, w := range strings.Fields(strings.ToLower(query)) {
		w = strings.Trim(w, `.,;:!?"'()[]{}`)
		if w == "" || seen[w] {
			continue
		}
		seen[w] = true
		terms = append(terms, w)
	}
	return terms
}

// keywordFilter requires every term to appear in at least one field.
func keywordFilter(owner string, terms []string) bson.M {
	and := make(bson.A, 0, len(terms))
	for _, t := range terms {
		rx := primitive.Regex{Pattern: regexp.QuoteMeta(t), Options: "i"}
		and = append(and, bson.M{"$or": bson.A{
			bson.M{"title": rx},
			bson.M{"description": rx},
			bson.M{"tags": rx},
		}})
	}
	return bson.M{"createdBy": owner, "$and": and}
}

// scoreKeywordMatch averages per-term scores: 1 for a title hit, 0.6 for a
// description or tag hit, 0 otherwise.
func scoreKeywordMatch(b models.Bug, terms []string) float64 {
	if len(terms) == 0 {
		return 0
	}
	title := strings.ToLower(b.Title)
	desc := strings.ToLower(b.Description)
	tags := strings.ToLower(strings.Join(b.Tags, " "))

	var total float64
	for _, t := range terms {
		switch {
		case strings.Contains(title, t):
			total += 1
		case strings.Contains(desc, t), strings.Contains(tags, t):
			total += 0.6
		}
	}
	return total / float64(len(terms))
}
