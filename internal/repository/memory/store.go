package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	appErrors "github.com/unclebandit/crm-campaigns/internal/errors"
	"github.com/unclebandit/crm-campaigns/internal/model"
	"github.com/unclebandit/crm-campaigns/internal/repository"
)

type trackingKey struct {
	campaignID string
	email      string
}

type snapshotKey struct {
	campaignID string
	date       string
}

// Store keeps every entity in process memory behind one lock. It backs the
// memory store mode and the service tests.
type Store struct {
	mu sync.RWMutex

	templates  map[string]model.Template
	campaigns  map[string]model.Campaign
	tracking   map[trackingKey]model.TrackingRecord
	snapshots  map[snapshotKey]model.AnalyticsSnapshot
	recipients []model.Recipient
}

func NewStore(recipients []model.Recipient) *Store {
	return &Store{
		templates:  make(map[string]model.Template),
		campaigns:  make(map[string]model.Campaign),
		tracking:   make(map[trackingKey]model.TrackingRecord),
		snapshots:  make(map[snapshotKey]model.AnalyticsSnapshot),
		recipients: append([]model.Recipient(nil), recipients...),
	}
}

func (s *Store) Repositories() repository.Set {
	return repository.Set{
		Templates:  &TemplateRepository{s},
		Campaigns:  &CampaignRepository{s},
		Tracking:   &TrackingRepository{s},
		Recipients: &RecipientRepository{s},
		Analytics:  &AnalyticsRepository{s},
	}
}

// ====================== Templates ======================

type TemplateRepository struct{ s *Store }

func (r *TemplateRepository) Create(_ context.Context, t *model.Template) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if _, exists := r.s.templates[t.ID]; exists {
		return appErrors.NewValidation("template", "already exists")
	}
	r.s.templates[t.ID] = *t
	return nil
}

func (r *TemplateRepository) Update(_ context.Context, t *model.Template) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	current, exists := r.s.templates[t.ID]
	if !exists {
		return appErrors.NewNotFound("template", t.ID)
	}
	next := *t
	next.CreatedAt = current.CreatedAt
	r.s.templates[t.ID] = next
	return nil
}

func (r *TemplateRepository) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, exists := r.s.templates[id]; !exists {
		return appErrors.NewNotFound("template", id)
	}
	delete(r.s.templates, id)
	return nil
}

func (r *TemplateRepository) GetByID(_ context.Context, id string) (*model.Template, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	t, exists := r.s.templates[strings.TrimSpace(id)]
	if !exists {
		return nil, appErrors.NewNotFound("template", id)
	}
	return &t, nil
}

func (r *TemplateRepository) List(ctx context.Context) ([]model.Template, error) {
	return r.filter(func(model.Template) bool { return true }), nil
}

func (r *TemplateRepository) ListBySegment(_ context.Context, segment model.Segment) ([]model.Template, error) {
	return r.filter(func(t model.Template) bool { return t.Segment == segment }), nil
}

func (r *TemplateRepository) filter(keep func(model.Template) bool) []model.Template {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	items := make([]model.Template, 0, len(r.s.templates))
	for _, t := range r.s.templates {
		if keep(t) {
			items = append(items, t)
		}
	}
	sort.Slice(items, func(i, j int) bool { return newerFirst(items[i].CreatedAt, items[j].CreatedAt, items[i].ID, items[j].ID) })
	return items
}

// ====================== Campaigns ======================

type CampaignRepository struct{ s *Store }

func (r *CampaignRepository) Create(_ context.Context, c *model.Campaign) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if _, exists := r.s.campaigns[c.ID]; exists {
		return appErrors.NewValidation("campaign", "already exists")
	}
	r.s.campaigns[c.ID] = *c
	return nil
}

func (r *CampaignRepository) Update(_ context.Context, c *model.Campaign, expected model.CampaignStatus) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	current, exists := r.s.campaigns[c.ID]
	if !exists || current.Status != expected {
		return false, nil
	}
	current.Name = c.Name
	current.TemplateID = c.TemplateID
	current.Segment = c.Segment
	current.Status = c.Status
	current.ScheduledAt = c.ScheduledAt
	current.UpdatedAt = c.UpdatedAt
	r.s.campaigns[c.ID] = current
	return true, nil
}

func (r *CampaignRepository) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, exists := r.s.campaigns[id]; !exists {
		return appErrors.NewNotFound("campaign", id)
	}
	delete(r.s.campaigns, id)
	return nil
}

func (r *CampaignRepository) GetByID(_ context.Context, id string) (*model.Campaign, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	c, exists := r.s.campaigns[strings.TrimSpace(id)]
	if !exists {
		return nil, appErrors.NewNotFound("campaign", id)
	}
	return &c, nil
}

func (r *CampaignRepository) List(context.Context) ([]model.Campaign, error) {
	return r.filter(func(model.Campaign) bool { return true }), nil
}

func (r *CampaignRepository) ListByStatus(_ context.Context, status model.CampaignStatus) ([]model.Campaign, error) {
	return r.filter(func(c model.Campaign) bool { return c.Status == status }), nil
}

func (r *CampaignRepository) ListByTemplate(_ context.Context, templateID string) ([]model.Campaign, error) {
	items := r.filter(func(c model.Campaign) bool { return c.TemplateID == templateID })
	sort.Slice(items, func(i, j int) bool { return items[i].Name < items[j].Name })
	return items, nil
}

func (r *CampaignRepository) Transition(_ context.Context, id string, from, to model.CampaignStatus, at time.Time) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	c, exists := r.s.campaigns[id]
	if !exists || c.Status != from {
		return false, nil
	}
	c.Status = to
	c.UpdatedAt = at
	if to == model.CampaignSent {
		sentAt := at
		c.SentAt = &sentAt
	}
	r.s.campaigns[id] = c
	return true, nil
}

func (r *CampaignRepository) filter(keep func(model.Campaign) bool) []model.Campaign {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	items := make([]model.Campaign, 0, len(r.s.campaigns))
	for _, c := range r.s.campaigns {
		if keep(c) {
			items = append(items, c)
		}
	}
	sort.Slice(items, func(i, j int) bool { return newerFirst(items[i].CreatedAt, items[j].CreatedAt, items[i].ID, items[j].ID) })
	return items
}

// ====================== Tracking ======================

type TrackingRepository struct{ s *Store }

func (r *TrackingRepository) CreateIfAbsent(_ context.Context, rec *model.TrackingRecord) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	rec.RecipientEmail = model.NormalizeEmail(rec.RecipientEmail)
	key := trackingKey{rec.CampaignID, rec.RecipientEmail}
	if _, exists := r.s.tracking[key]; exists {
		return false, nil
	}
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	r.s.tracking[key] = *rec
	return true, nil
}

func (r *TrackingRepository) ListByCampaign(_ context.Context, campaignID string) ([]model.TrackingRecord, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	records := []model.TrackingRecord{}
	for key, rec := range r.s.tracking {
		if key.campaignID == campaignID {
			records = append(records, rec)
		}
	}
	sort.Slice(records, func(i, j int) bool { return records[i].RecipientEmail < records[j].RecipientEmail })
	return records, nil
}

func (r *TrackingRepository) MarkStatus(_ context.Context, campaignID, email string, status model.TrackingStatus, at time.Time) (*model.TrackingRecord, bool, error) {
	if !status.Valid() {
		return nil, false, appErrors.NewValidation("status", "unknown tracking status "+string(status))
	}

	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	key := trackingKey{campaignID, model.NormalizeEmail(email)}
	rec, exists := r.s.tracking[key]
	if !exists {
		return nil, false, appErrors.NewNotFound("tracking record", campaignID+"/"+key.email)
	}
	changed := rec.Mark(status, at)
	if changed {
		r.s.tracking[key] = rec
	}
	return &rec, changed, nil
}

// ====================== Recipients ======================

type RecipientRepository struct{ s *Store }

func (r *RecipientRepository) ListBySegment(_ context.Context, segment model.Segment) ([]model.Recipient, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	recipients := []model.Recipient{}
	for _, rc := range r.s.recipients {
		if rc.Segment == segment {
			recipients = append(recipients, rc)
		}
	}
	return recipients, nil
}

// ====================== Analytics ======================

type AnalyticsRepository struct{ s *Store }

func (r *AnalyticsRepository) UpsertSnapshot(_ context.Context, snap *model.AnalyticsSnapshot) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	r.s.snapshots[snapshotKey{snap.CampaignID, snap.Date.Format("2006-01-02")}] = *snap
	return nil
}

func (r *AnalyticsRepository) ListSnapshots(_ context.Context, campaignID string) ([]model.AnalyticsSnapshot, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	snaps := []model.AnalyticsSnapshot{}
	for key, snap := range r.s.snapshots {
		if key.campaignID == campaignID {
			snaps = append(snaps, snap)
		}
	}
	sort.Slice(snaps, func(i, j int) bool { return snaps[i].Date.Before(snaps[j].Date) })
	return snaps, nil
}

func newerFirst(a, b time.Time, idA, idB string) bool {
	if a.Equal(b) {
		return idA < idB
	}
	return a.After(b)
}

var (
	_ repository.TemplateRepositoryInterface  = (*TemplateRepository)(nil)
	_ repository.CampaignRepositoryInterface  = (*CampaignRepository)(nil)
	_ repository.TrackingRepositoryInterface  = (*TrackingRepository)(nil)
	_ repository.RecipientRepositoryInterface = (*RecipientRepository)(nil)
	_ repository.AnalyticsRepositoryInterface = (*AnalyticsRepository)(nil)
)
