package ai

import (
	"context"
	"time"

	"clouddesign.com.br/storefront/pkg/mongo"
)

type StatsSource interface {
	DashboardStats(ctx context.Context) (*mongo.DashboardStats, error)
}

type InsightsReport struct {
	Status      string     `json:"status"`
	Data        ReportData `json:"data"`
	GeneratedAt time.Time  `json:"generated_at"`
	AIEnabled   bool       `json:"ai_enabled"`
}

type ReportData struct {
	Stats      *mongo.DashboardStats `json:"stats,omitempty"`
	AIInsights string                `json:"ai_insights,omitempty"`
	Summary    string                `json:"summary"`
	Error      string                `json:"error,omitempty"`
}

// DashboardInsights returns the raw stats and, when the client is enabled,
// a written analysis of them. An AI failure still returns the stats.
func (c *Client) DashboardInsights(ctx context.Context, src StatsSource) (*InsightsReport, error) {
	stats, err := src.DashboardStats(ctx)
	if err != nil {
		return &InsightsReport{
			Status:      "error",
			Data:        ReportData{Error: "failed to fetch dashboard stats: " + err.Error()},
			GeneratedAt: time.Now(),
			AIEnabled:   c.Enabled(),
		}, err
	}

	report := &InsightsReport{
		Status:      "success",
		GeneratedAt: time.Now(),
		AIEnabled:   c.Enabled(),
		Data:        ReportData{Stats: stats},
	}
	if !c.Enabled() {
		report.Data.Summary = "Raw dashboard stats (AI insights unavailable)"
		return report, nil
	}

	insights, err := c.generateCompletion(ctx, DashboardSystemPrompt, formatDashboardPrompt(stats))
	if err != nil {
		report.Data.Summary = "Raw dashboard stats"
		report.Data.Error = "AI analysis failed: " + err.Error()
		return report, nil
	}
	report.Data.AIInsights = insights
	report.Data.Summary = "AI-generated dashboard insights"
	return report, nil
}
