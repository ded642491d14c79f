package service

import (
	"context"
	"errors"
	"math"
	"sort"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/bugtracker/server/internal/models"
)

var errProviderDown = errors.New("provider down")

// fakeEmbedder returns fixed vectors per text, falling back to embedFunc.
type fakeEmbedder struct {
	mu        sync.Mutex
	vectors   map[string][]float64
	embedFunc func(ctx context.Context, text string) ([]float64, error)
	calls     int
}

func (f *fakeEmbedder) Embed(ctx context.Context, text string) ([]float64, error) {
	f.mu.Lock()
	f.calls++
	vec, ok := f.vectors[text]
	f.mu.Unlock()

	if ok {
		return vec, nil
	}
	if f.embedFunc != nil {
		return f.embedFunc(ctx, text)
	}
	return nil, errProviderDown
}

func (f *fakeEmbedder) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func failingEmbedder() *fakeEmbedder {
	return &fakeEmbedder{}
}

// fakeBugRepo is an in-memory BugRepository and KeywordSearcher.
type fakeBugRepo struct {
	mu   sync.Mutex
	bugs map[string]models.Bug

	findWithEmbeddingErr error
	updateErr            func(id string) error
	keywordResults       []models.SearchResult
	keywordErr           error
	keywordCalls         int
}

func newFakeBugRepo(bugs ...models.Bug) *fakeBugRepo {
	r := &fakeBugRepo{bugs: map[string]models.Bug{}}
	for _, b := range bugs {
		if b.ID.IsZero() {
			b.ID = primitive.NewObjectID()
		}
		r.bugs[b.ID.Hex()] = b
	}
	return r
}

func (r *fakeBugRepo) Create(_ context.Context, bug *models.Bug) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	bug.ID = primitive.NewObjectID()
	r.bugs[bug.ID.Hex()] = *bug
	return nil
}

func (r *fakeBugRepo) FindByID(_ context.Context, owner, id string) (models.Bug, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.bugs[id]
	if !ok || b.CreatedBy != owner {
		return models.Bug{}, ErrNotFound
	}
	return b, nil
}

func (r *fakeBugRepo) ListByOwner(_ context.Context, owner string, limit int) ([]models.Bug, error) {
	out := r.filter(func(b models.Bug) bool { return b.CreatedBy == owner })
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *fakeBugRepo) FindWithEmbedding(_ context.Context, owner string) ([]models.Bug, error) {
	if r.findWithEmbeddingErr != nil {
		return nil, r.findWithEmbeddingErr
	}
	return r.filter(func(b models.Bug) bool { return b.CreatedBy == owner && b.HasEmbedding() }), nil
}

func (r *fakeBugRepo) FindMissingEmbedding(_ context.Context, owner string, limit int) ([]models.Bug, error) {
	out := r.filter(func(b models.Bug) bool { return b.CreatedBy == owner && !b.HasEmbedding() })
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *fakeBugRepo) UpdateEmbedding(_ context.Context, id string, vec []float64, at time.Time) error {
	if r.updateErr != nil {
		if err := r.updateErr(id); err != nil {
			return err
		}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.bugs[id]
	if !ok {
		return ErrNotFound
	}
	b.Embedding = vec
	b.EmbeddingUpdatedAt = &at
	r.bugs[id] = b
	return nil
}

func (r *fakeBugRepo) EmbeddingStats(_ context.Context, owner string) (models.EmbeddingStats, error) {
	var st models.EmbeddingStats
	for _, b := range r.filter(func(b models.Bug) bool { return b.CreatedBy == owner }) {
		st.Total++
		if b.HasEmbedding() {
			st.WithEmbedding++
		}
	}
	st.Missing = st.Total - st.WithEmbedding
	return st, nil
}

func (r *fakeBugRepo) KeywordSearch(_ context.Context, _, _ string, _ int) ([]models.SearchResult, error) {
	r.mu.Lock()
	r.keywordCalls++
	r.mu.Unlock()
	if r.keywordErr != nil {
		return nil, r.keywordErr
	}
	out := make([]models.SearchResult, len(r.keywordResults))
	copy(out, r.keywordResults)
	return out, nil
}

func (r *fakeBugRepo) get(id string) models.Bug {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.bugs[id]
}

func (r *fakeBugRepo) filter(keep func(models.Bug) bool) []models.Bug {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Bug
	for _, b := range r.bugs {
		if keep(b) {
			out = append(out, b)
		}
	}
	return out
}

// syncSubmitter runs tasks inline.
type syncSubmitter struct{ ran int }

func (s *syncSubmitter) Submit(task func()) error {
	s.ran++
	task()
	return nil
}

// fakeReportRepo is an in-memory ReportRepository.
type fakeReportRepo struct {
	reports map[string]models.Report
	upserts int
}

func (r *fakeReportRepo) FindByBugID(_ context.Context, _, bugID string) (models.Report, error) {
	return r.reports[bugID], nil
}

func (r *fakeReportRepo) Upsert(_ context.Context, rep models.Report) error {
	if r.reports == nil {
		r.reports = map[string]models.Report{}
	}
	r.upserts++
	r.reports[rep.BugID.Hex()] = rep
	return nil
}

// fakeLLM answers every prompt with text or err.
type fakeLLM struct {
	text string
	err  error
}

func (l fakeLLM) GenerateResponse(context.Context, string) (string, error) { return l.text, l.err }
func (l fakeLLM) Model() string                                            { return "fake-llm" }

// unitVec returns a 2-d unit vector whose cosine with {1, 0} is sim.
func unitVec(sim float64) []float64 {
	return []float64{sim, math.Sqrt(1 - sim*sim)}
}
