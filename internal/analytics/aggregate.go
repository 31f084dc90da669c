// Package analytics derives engagement rates from tracking records.
// Everything here is pure; callers load the records.
package analytics

import (
	"fmt"
	"sort"
	"time"

	"github.com/unclebandit/crm-campaigns/internal/model"
)

// Counts are raw numerators and the denominator for one or more campaigns.
type Counts struct {
	Total        int `json:"total"`
	Opened       int `json:"opened"`
	Clicked      int `json:"clicked"`
	Bounced      int `json:"bounced"`
	Unsubscribed int `json:"unsubscribed"`
}

type Stats struct {
	Counts
	OpenRate        float64 `json:"open_rate"`
	ClickRate       float64 `json:"click_rate"`
	BounceRate      float64 `json:"bounce_rate"`
	UnsubscribeRate float64 `json:"unsubscribe_rate"`
}

func Count(records []model.TrackingRecord) Counts {
	var c Counts
	for _, r := range records {
		c.Total++
		if r.Opened {
			c.Opened++
		}
		if r.Clicked {
			c.Clicked++
		}
		if r.Bounced {
			c.Bounced++
		}
		if r.Unsubscribed {
			c.Unsubscribed++
		}
	}
	return c
}

func (c Counts) Add(o Counts) Counts {
	return Counts{
		Total:        c.Total + o.Total,
		Opened:       c.Opened + o.Opened,
		Clicked:      c.Clicked + o.Clicked,
		Bounced:      c.Bounced + o.Bounced,
		Unsubscribed: c.Unsubscribed + o.Unsubscribed,
	}
}

// Stats computes rates from the counts. Rates of an empty set are zero.
func (c Counts) Stats() Stats {
	return Stats{
		Counts:          c,
		OpenRate:        rate(c.Opened, c.Total),
		ClickRate:       rate(c.Clicked, c.Total),
		BounceRate:      rate(c.Bounced, c.Total),
		UnsubscribeRate: rate(c.Unsubscribed, c.Total),
	}
}

func rate(n, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(n) / float64(total)
}

// Range is a dashboard time window applied to campaign sent_at.
type Range string

const (
	Range7Days  Range = "7d"
	Range30Days Range = "30d"
	Range90Days Range = "90d"
	RangeAll    Range = "all"
)

func ParseRange(s string) (Range, error) {
	switch Range(s) {
	case "":
		return Range30Days, nil
	case Range7Days, Range30Days, Range90Days, RangeAll:
		return Range(s), nil
	}
	return "", fmt.Errorf("unknown time range %q, expected 7d, 30d, 90d or all", s)
}

// Since returns the lower bound of the window ending at now, or nil for RangeAll.
func (r Range) Since(now time.Time) *time.Time {
	var days int
	switch r {
	case Range7Days:
		days = 7
	case Range30Days:
		days = 30
	case Range90Days:
		days = 90
	default:
		return nil
	}
	since := now.AddDate(0, 0, -days)
	return &since
}

// InWindow keeps campaigns that were sent at or after since. A campaign
// outside the window is dropped whole, whatever its tracking timestamps say.
// With a nil since every campaign is kept, sent or not.
func InWindow(campaigns []model.Campaign, since *time.Time) []model.Campaign {
	if since == nil {
		return campaigns
	}
	kept := make([]model.Campaign, 0, len(campaigns))
	for _, c := range campaigns {
		if c.SentAt != nil && !c.SentAt.Before(*since) {
			kept = append(kept, c)
		}
	}
	return kept
}

type CampaignStats struct {
	CampaignID string               `json:"campaign_id"`
	Name       string               `json:"name"`
	Segment    model.Segment        `json:"segment"`
	Status     model.CampaignStatus `json:"status"`
	SentAt     *time.Time           `json:"sent_at,omitempty"`
	Stats
}

type SegmentStats struct {
	Segment   model.Segment `json:"segment"`
	Campaigns int           `json:"campaigns"`
	Stats
}

type Report struct {
	Range     Range           `json:"range"`
	Since     *time.Time      `json:"since,omitempty"`
	Campaigns []CampaignStats `json:"campaigns"`
	Segments  []SegmentStats  `json:"segments"`
	Totals    Stats           `json:"totals"`
}

// Build aggregates per campaign and per segment. Segment rates are recomputed
// from summed counts, never averaged from per-campaign rates.
// records maps campaign id to its tracking rows.
func Build(r Range, since *time.Time, campaigns []model.Campaign, records map[string][]model.TrackingRecord) Report {
	report := Report{Range: r, Since: since, Campaigns: []CampaignStats{}, Segments: []SegmentStats{}}

	bySegment := make(map[model.Segment]Counts)
	campaignsPerSegment := make(map[model.Segment]int)
	var totals Counts

	for _, c := range campaigns {
		counts := Count(records[c.ID])
		report.Campaigns = append(report.Campaigns, CampaignStats{
			CampaignID: c.ID,
			Name:       c.Name,
			Segment:    c.Segment,
			Status:     c.Status,
			SentAt:     c.SentAt,
			Stats:      counts.Stats(),
		})
		bySegment[c.Segment] = bySegment[c.Segment].Add(counts)
		campaignsPerSegment[c.Segment]++
		totals = totals.Add(counts)
	}

	for _, seg := range model.Segments {
		counts, ok := bySegment[seg]
		if !ok {
			continue
		}
		report.Segments = append(report.Segments, SegmentStats{
			Segment:   seg,
			Campaigns: campaignsPerSegment[seg],
			Stats:     counts.Stats(),
		})
	}
	sort.SliceStable(report.Campaigns, func(i, j int) bool {
		return report.Campaigns[i].Name < report.Campaigns[j].Name
	})
	report.Totals = totals.Stats()
	return report
}

// Snapshot rolls the records of one campaign into the cached daily shape.
// Conversions have no tracking source and stay zero.
func Snapshot(campaignID string, date time.Time, records []model.TrackingRecord, now time.Time) model.AnalyticsSnapshot {
	c := Count(records)
	y, m, d := date.Date()
	return model.AnalyticsSnapshot{
		CampaignID:   campaignID,
		Date:         time.Date(y, m, d, 0, 0, 0, 0, time.UTC),
		Opens:        c.Opened,
		Clicks:       c.Clicked,
		Bounces:      c.Bounced,
		Unsubscribes: c.Unsubscribed,
		UpdatedAt:    now,
	}
}
