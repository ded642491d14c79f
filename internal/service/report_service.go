package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/bugtracker/server/internal/ai"
	"github.com/bugtracker/server/internal/models"
)

// LLM writes free text for a prompt.
type LLM interface {
	GenerateResponse(ctx context.Context, prompt string) (string, error)
}

// ReportSourceTemplate marks a report rendered without an LLM narrative.
const ReportSourceTemplate = "template"

// ReportService renders and caches bug reports.
type ReportService interface {
	GetReport(ctx context.Context, owner, bugID string, refresh bool) (models.Report, error)
}

type reportService struct {
	reports ReportRepository
	bugs    BugRepository
	llm     LLM // optional
	cfg     PipelineConfig
	log     *slog.Logger
	now     func() time.Time
}

// NewReportService wires dependencies. llm may be nil, in which case reports
// are purely templated.
func NewReportService(reports ReportRepository, bugs BugRepository, llm LLM, cfg PipelineConfig) ReportService {
	return &reportService{
		reports: reports,
		bugs:    bugs,
		llm:     llm,
		cfg:     cfg,
		log:     slog.Default().With("component", "report_service"),
		now:     time.Now,
	}
}

// GetReport returns a cached report or renders a new one.
func (s *reportService) GetReport(ctx context.Context, owner, bugID string, refresh bool) (models.Report, error) {
	bug, err := s.bugs.FindByID(ctx, owner, bugID)
	if err != nil {
		return models.Report{}, err
	}

	if !refresh {
		cached, err := s.reports.FindByBugID(ctx, owner, bugID)
		if err != nil {
			s.log.Warn("report cache lookup failed", "bug_id", bugID, "error", err)
		} else if cached.Text != "" {
			return cached, nil
		}
	}

	analysis := s.cfg.Rules.Analyze(ai.AnalysisInput{
		Title:       bug.Title,
		Description: bug.Description,
		Component:   bug.Component,
	})
	duplicates := s.similarBugs(ctx, owner, bug)

	report := models.Report{
		BugID:     bug.ID,
		Owner:     owner,
		Source:    ReportSourceTemplate,
		CreatedAt: s.now().UTC(),
	}

	if s.llm != nil {
		narrative, err := s.llm.GenerateResponse(ctx, reportPrompt(bug, analysis))
		if err != nil {
			s.log.Warn("report narrative failed, using template only", "bug_id", bugID, "error", err)
		} else {
			report.Narrative = strings.TrimSpace(narrative)
			report.Source = modelOfLLM(s.llm)
		}
	}

	text, err := ai.RenderReport(ai.ReportData{
		Bug:        bug,
		Analysis:   analysis,
		Narrative:  report.Narrative,
		Generated:  report.CreatedAt,
		Duplicates: duplicates,
	})
	if err != nil {
		return models.Report{}, err
	}
	report.Text = text

	if err := s.reports.Upsert(ctx, report); err != nil {
		// The report is still usable; the cache is best effort.
		s.log.Warn("caching report failed", "bug_id", bugID, "error", err)
	}
	return report, nil
}

// similarBugs reuses the duplicate ranker against the bug's stored vector.
func (s *reportService) similarBugs(ctx context.Context, owner string, bug models.Bug) []models.DuplicateCandidate {
	if !bug.HasEmbedding() {
		return nil
	}
	stored, err := s.bugs.FindWithEmbedding(ctx, owner)
	if err != nil {
		s.log.Warn("loading similar bugs failed", "bug_id", bug.ID.Hex(), "error", err)
		return nil
	}
	ranked := ai.Rank(bug.Embedding, candidatesFromBugs(stored, bug.ID.Hex()), s.cfg.Duplicate)

	out := make([]models.DuplicateCandidate, 0, len(ranked.Matches))
	for _, m := range ranked.Matches {
		out = append(out, duplicateFromMatch(m))
	}
	return out
}

func reportPrompt(bug models.Bug, a ai.Analysis) string {
	return fmt.Sprintf(`Summarise this bug report for an engineering team in at most three sentences.
Mention user impact and the most likely area of the code base. Do not invent facts.

Title: %s
Component: %s
Severity (heuristic): %s
Tags: %s

Description:
%s`,
		bug.Title,
		bug.Component,
		a.Severity,
		strings.Join(a.Tags, ", "),
		bug.Description)
}

func modelOfLLM(l LLM) string {
	if m, ok := l.(modelNamer); ok {
		return m.Model()
	}
	return "llm"
}
