package repository

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/bugtracker/server/internal/models"
)

// ReportCollection holds cached bug reports keyed by bug ID.
const ReportCollection = "reports"

// ReportRepository provides Mongo-backed persistence for rendered reports.
type ReportRepository struct {
	col *mongo.Collection
	log *slog.Logger
}

// NewReportRepository returns a ReportRepository on the "reports" collection.
func NewReportRepository(db *mongo.Database) *ReportRepository {
	return &ReportRepository{
		col: db.Collection(ReportCollection),
		log: slog.Default().With("component", "report_repository"),
	}
}

// FindByBugID returns the cached report for one of owner's bugs.
// When nothing is cached it returns an empty Report and a nil error so
// callers can decide to render one.
func (r *ReportRepository) FindByBugID(ctx context.Context, owner, bugID string) (models.Report, error) {
	oid, err := primitive.ObjectIDFromHex(bugID)
	if err != nil {
		return models.Report{}, nil
	}

	var rep models.Report
	err = r.col.FindOne(ctx, bson.M{"_id": oid, "owner": owner}).Decode(&rep)
	if errors.Is(err, mongo.ErrNoDocuments) {
		r.log.Debug("no cached report", "bug_id", bugID)
		return models.Report{}, nil
	}
	if err != nil {
		return models.Report{}, fmt.Errorf("find report %s: %w", bugID, err)
	}
	return rep, nil
}

// Upsert inserts or replaces the report with the same bug ID.
func (r *ReportRepository) Upsert(ctx context.Context, rep models.Report) error {
	_, err := r.col.ReplaceOne(ctx,
		bson.M{"_id": rep.BugID},
		rep,
		options.Replace().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("upsert report %s: %w", rep.BugID.Hex(), err)
	}
	r.log.Debug("report cached", "bug_id", rep.BugID.Hex(), "source", rep.Source, "bytes", len(rep.Text))
	return nil
}
