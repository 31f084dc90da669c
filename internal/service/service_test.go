package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"gopkg.in/gomail.v2"

	"github.com/unclebandit/crm-campaigns/internal/email"
	"github.com/unclebandit/crm-campaigns/internal/model"
	"github.com/unclebandit/crm-campaigns/internal/repository"
	"github.com/unclebandit/crm-campaigns/internal/repository/memory"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// recordingTransport counts deliveries and fails when err is set.
type recordingTransport struct {
	mu    sync.Mutex
	calls int
	sent  []*gomail.Message
	err   error
}

func (t *recordingTransport) Send(_ context.Context, msgs []*gomail.Message) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.calls++
	if t.err != nil {
		return t.err
	}
	t.sent = append(t.sent, msgs...)
	return nil
}

type fixture struct {
	repos     repository.Set
	clock     *fakeClock
	transport *recordingTransport
	templates *TemplateService
	campaigns *CampaignService
	tracking  *TrackingService
	analytics *AnalyticsService
}

var testRecipients = []model.Recipient{
	{Email: "a@b.com", FirstName: "Ann", Segment: model.SegmentNewLead},
	{Email: " A@B.com ", FirstName: "Ann", Segment: model.SegmentNewLead},
	{Email: "c@d.com", FirstName: "Cal", Segment: model.SegmentNewLead},
	{Email: "", FirstName: "Nobody", Segment: model.SegmentNewLead},
	{Email: "e@f.com", FirstName: "Eve", Segment: model.SegmentInProcess},
}

func newFixture() *fixture {
	repos := memory.NewStore(testRecipients).Repositories()
	clock := newFakeClock()
	transport := &recordingTransport{}

	f := &fixture{repos: repos, clock: clock, transport: transport}
	f.templates = &TemplateService{TemplateRepo: repos.Templates, CampaignRepo: repos.Campaigns, Clock: clock}
	f.campaigns = &CampaignService{
		CampaignRepo: repos.Campaigns,
		TemplateRepo: repos.Templates,
		Dispatcher: &Dispatcher{
			Recipients: repos.Recipients,
			Tracking:   repos.Tracking,
			Renderer:   email.Renderer{From: "crm@example.com", TrackingBaseURL: "http://localhost:8080"},
			Transport:  transport,
			Clock:      clock,
		},
		Clock:              clock,
		StrictSegmentCheck: true,
	}
	f.tracking = &TrackingService{TrackingRepo: repos.Tracking, Clock: clock}
	f.analytics = &AnalyticsService{
		CampaignRepo:  repos.Campaigns,
		TrackingRepo:  repos.Tracking,
		AnalyticsRepo: repos.Analytics,
		Clock:         clock,
	}
	return f
}

func (f *fixture) template(name string, segment model.Segment) *model.Template {
	t, err := f.templates.CreateTemplate(context.Background(), name, "Hi {first_name}", "<p>x</p>", segment)
	if err != nil {
		panic(err)
	}
	return t
}

func (f *fixture) draft(name string, t *model.Template) *model.Campaign {
	c, err := f.campaigns.CreateCampaign(context.Background(), name, t.ID, t.Segment, model.CampaignDraft, nil)
	if err != nil {
		panic(err)
	}
	return c
}

// put stores a campaign in an arbitrary status, bypassing create validation.
func (f *fixture) put(name string, t *model.Template, status model.CampaignStatus) *model.Campaign {
	now := f.clock.Now()
	c := &model.Campaign{
		Name:       name,
		TemplateID: t.ID,
		Segment:    t.Segment,
		Status:     status,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if status == model.CampaignScheduled {
		at := now.Add(time.Hour)
		c.ScheduledAt = &at
	}
	if err := f.repos.Campaigns.Create(context.Background(), c); err != nil {
		panic(err)
	}
	return c
}

var errTransportDown = errors.New("smtp: connection refused")
