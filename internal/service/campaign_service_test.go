package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/unclebandit/crm-campaigns/internal/errors"
	"github.com/unclebandit/crm-campaigns/internal/model"
)

func TestCreateCampaignDefaultsToDraft(t *testing.T) {
	f := newFixture()
	tpl := f.template("Welcome", model.SegmentNewLead)

	c, err := f.campaigns.CreateCampaign(context.Background(), "  C1 ", tpl.ID, model.SegmentNewLead, "", nil)
	require.NoError(t, err)
	assert.Equal(t, "C1", c.Name)
	assert.Equal(t, model.CampaignDraft, c.Status)
	assert.NotEmpty(t, c.ID)
}

func TestCreateCampaignReportsAllFieldErrors(t *testing.T) {
	f := newFixture()

	_, err := f.campaigns.CreateCampaign(context.Background(), "", "not-an-id", "vip", model.CampaignSent, nil)
	require.Error(t, err)

	var verr *appErrors.ValidationError
	require.ErrorAs(t, err, &verr)
	for _, field := range []string{"name", "template_id", "segment", "status"} {
		assert.True(t, verr.Has(field), "missing violation for %s", field)
	}
}

func TestCreateCampaignUnknownTemplate(t *testing.T) {
	f := newFixture()

	_, err := f.campaigns.CreateCampaign(context.Background(), "C1", "0b7e8a4e-6a53-4a8e-9a35-4cf1d8a1f2c3", model.SegmentNewLead, model.CampaignDraft, nil)
	assert.True(t, appErrors.IsNotFound(err), "got %v", err)
}

func TestSchedulingRules(t *testing.T) {
	f := newFixture()
	tpl := f.template("Welcome", model.SegmentNewLead)
	now := f.clock.Now()
	past := now.Add(-time.Minute)
	future := now.Add(time.Minute)

	cases := []struct {
		name string
		at   *time.Time
		ok   bool
	}{
		{"missing", nil, false},
		{"past", &past, false},
		{"now", &now, false},
		{"future", &future, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.campaigns.CreateCampaign(context.Background(), "S-"+tc.name, tpl.ID, model.SegmentNewLead, model.CampaignScheduled, tc.at)
			if tc.ok {
				assert.NoError(t, err)
				return
			}
			assert.True(t, appErrors.IsScheduling(err), "got %v", err)
		})
	}
}

func TestSchedulingCheckRunsAfterFieldRules(t *testing.T) {
	f := newFixture()
	past := f.clock.Now().Add(-time.Hour)

	_, err := f.campaigns.CreateCampaign(context.Background(), "", "", model.SegmentNewLead, model.CampaignScheduled, &past)
	assert.True(t, appErrors.IsValidation(err), "got %v", err)
	assert.False(t, appErrors.IsScheduling(err))
}

func TestUpdateCampaignScheduling(t *testing.T) {
	f := newFixture()
	tpl := f.template("Welcome", model.SegmentNewLead)
	c := f.draft("C1", tpl)

	scheduled := model.CampaignScheduled
	past := f.clock.Now().Add(-time.Second)
	_, err := f.campaigns.UpdateCampaign(context.Background(), c.ID, model.CampaignPatch{Status: &scheduled, ScheduledAt: &past})
	assert.True(t, appErrors.IsScheduling(err), "got %v", err)

	stored, err := f.campaigns.GetCampaign(context.Background(), c.ID)
	require.NoError(t, err)
	assert.Equal(t, model.CampaignDraft, stored.Status)

	future := f.clock.Now().Add(time.Hour)
	updated, err := f.campaigns.UpdateCampaign(context.Background(), c.ID, model.CampaignPatch{Status: &scheduled, ScheduledAt: &future})
	require.NoError(t, err)
	assert.Equal(t, model.CampaignScheduled, updated.Status)
	require.NotNil(t, updated.ScheduledAt)
	assert.True(t, updated.ScheduledAt.Equal(future))
}

func TestUpdateCampaignRejectsSentCampaign(t *testing.T) {
	f := newFixture()
	tpl := f.template("Welcome", model.SegmentNewLead)
	c := f.put("Old", tpl, model.CampaignSent)

	name := "Renamed"
	_, err := f.campaigns.UpdateCampaign(context.Background(), c.ID, model.CampaignPatch{Name: &name})
	assert.True(t, appErrors.IsInvalidState(err), "got %v", err)
}

func TestSendCampaignWelcomeScenario(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	tpl, err := f.templates.CreateTemplate(ctx, "Welcome", "Hi", "<p>x</p>", model.SegmentNewLead)
	require.NoError(t, err)
	c, err := f.campaigns.CreateCampaign(ctx, "C1", tpl.ID, model.SegmentNewLead, model.CampaignDraft, nil)
	require.NoError(t, err)

	res, err := f.campaigns.SendCampaign(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, model.CampaignSent, res.Status)
	assert.Equal(t, 2, res.Recipients)

	stored, err := f.campaigns.GetCampaign(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, model.CampaignSent, stored.Status)
	require.NotNil(t, stored.SentAt)

	_, err = f.campaigns.SendCampaign(ctx, c.ID)
	assert.True(t, appErrors.IsInvalidState(err), "got %v", err)
	assert.Contains(t, err.Error(), "only draft campaigns can be sent")
}

func TestSendCampaignCreatesOneTrackingRowPerRecipient(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	c := f.draft("C1", f.template("Welcome", model.SegmentNewLead))

	_, err := f.campaigns.SendCampaign(ctx, c.ID)
	require.NoError(t, err)

	records, err := f.tracking.Records(ctx, c.ID)
	require.NoError(t, err)
	emails := make([]string, 0, len(records))
	for _, r := range records {
		emails = append(emails, r.RecipientEmail)
		assert.False(t, r.Opened)
	}
	assert.ElementsMatch(t, []string{"a@b.com", "c@d.com"}, emails)
	assert.Equal(t, 1, f.transport.calls)
	assert.Len(t, f.transport.sent, 2)
}

func TestSendCampaignGuardNeverMutates(t *testing.T) {
	statuses := []model.CampaignStatus{
		model.CampaignScheduled,
		model.CampaignSending,
		model.CampaignSent,
		model.CampaignCancelled,
		model.CampaignFailed,
	}
	for _, status := range statuses {
		t.Run(string(status), func(t *testing.T) {
			f := newFixture()
			c := f.put("C-"+string(status), f.template("Welcome", model.SegmentNewLead), status)

			_, err := f.campaigns.SendCampaign(context.Background(), c.ID)
			assert.True(t, appErrors.IsInvalidState(err), "got %v", err)

			stored, err := f.campaigns.GetCampaign(context.Background(), c.ID)
			require.NoError(t, err)
			assert.Equal(t, *c, *stored)
			assert.Zero(t, f.transport.calls)
		})
	}
}

func TestSendCampaignNotFound(t *testing.T) {
	f := newFixture()
	_, err := f.campaigns.SendCampaign(context.Background(), "0b7e8a4e-6a53-4a8e-9a35-4cf1d8a1f2c3")
	assert.True(t, appErrors.IsNotFound(err), "got %v", err)
}

func TestSendCampaignDispatchFailureLeavesFailed(t *testing.T) {
	f := newFixture()
	f.transport.err = errTransportDown
	c := f.draft("C1", f.template("Welcome", model.SegmentNewLead))

	_, err := f.campaigns.SendCampaign(context.Background(), c.ID)
	require.Error(t, err)
	assert.ErrorIs(t, err, errTransportDown)

	stored, err := f.campaigns.GetCampaign(context.Background(), c.ID)
	require.NoError(t, err)
	assert.Equal(t, model.CampaignFailed, stored.Status)
	assert.Nil(t, stored.SentAt)
}

func TestSendCampaignSegmentMismatch(t *testing.T) {
	f := newFixture()
	tpl := f.template("Welcome", model.SegmentNewLead)
	c := f.draft("C1", tpl)

	segment := model.SegmentInProcess
	_, err := f.templates.UpdateTemplate(context.Background(), tpl.ID, model.TemplatePatch{Segment: &segment})
	require.NoError(t, err)

	_, err = f.campaigns.SendCampaign(context.Background(), c.ID)
	assert.True(t, appErrors.IsValidation(err), "got %v", err)

	stored, err := f.campaigns.GetCampaign(context.Background(), c.ID)
	require.NoError(t, err)
	assert.Equal(t, model.CampaignDraft, stored.Status)

	f.campaigns.StrictSegmentCheck = false
	_, err = f.campaigns.SendCampaign(context.Background(), c.ID)
	assert.NoError(t, err)
}

func TestConcurrentSendHasOneWinner(t *testing.T) {
	f := newFixture()
	c := f.draft("C1", f.template("Welcome", model.SegmentNewLead))

	const callers = 16
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		wins    int
		refused int
	)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.campaigns.SendCampaign(context.Background(), c.ID)
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				wins++
			} else if appErrors.IsInvalidState(err) {
				refused++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, wins)
	assert.Equal(t, callers-1, refused)
	assert.Equal(t, 1, f.transport.calls)
}

func TestCancelCampaign(t *testing.T) {
	f := newFixture()
	tpl := f.template("Welcome", model.SegmentNewLead)
	scheduled := f.put("Later", tpl, model.CampaignScheduled)

	c, err := f.campaigns.CancelCampaign(context.Background(), scheduled.ID)
	require.NoError(t, err)
	assert.Equal(t, model.CampaignCancelled, c.Status)

	_, err = f.campaigns.CancelCampaign(context.Background(), scheduled.ID)
	assert.True(t, appErrors.IsInvalidState(err), "got %v", err)

	_, err = f.campaigns.SendCampaign(context.Background(), scheduled.ID)
	assert.True(t, appErrors.IsInvalidState(err), "got %v", err)
}

func TestDeleteCampaignKeepsTracking(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	c := f.draft("C1", f.template("Welcome", model.SegmentNewLead))
	_, err := f.campaigns.SendCampaign(ctx, c.ID)
	require.NoError(t, err)

	require.NoError(t, f.campaigns.DeleteCampaign(ctx, c.ID))
	_, err = f.campaigns.GetCampaign(ctx, c.ID)
	assert.True(t, appErrors.IsNotFound(err))

	records, err := f.tracking.Records(ctx, c.ID)
	require.NoError(t, err)
	assert.Len(t, records, 2)
}

func TestDispatchDueSendsOnlyDueCampaigns(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	tpl := f.template("Welcome", model.SegmentNewLead)

	soon := f.clock.Now().Add(time.Minute)
	later := f.clock.Now().Add(time.Hour)
	due, err := f.campaigns.CreateCampaign(ctx, "Soon", tpl.ID, model.SegmentNewLead, model.CampaignScheduled, &soon)
	require.NoError(t, err)
	notDue, err := f.campaigns.CreateCampaign(ctx, "Later", tpl.ID, model.SegmentNewLead, model.CampaignScheduled, &later)
	require.NoError(t, err)

	f.clock.Advance(2 * time.Minute)
	n, err := f.campaigns.DispatchDue(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	got, err := f.campaigns.GetCampaign(ctx, due.ID)
	require.NoError(t, err)
	assert.Equal(t, model.CampaignSent, got.Status)

	got, err = f.campaigns.GetCampaign(ctx, notDue.ID)
	require.NoError(t, err)
	assert.Equal(t, model.CampaignScheduled, got.Status)
}

func TestFailStuckMovesOldSendingToFailed(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	tpl := f.template("Welcome", model.SegmentNewLead)
	stuck := f.put("Stuck", tpl, model.CampaignSending)

	f.clock.Advance(5 * time.Minute)
	fresh := f.put("Fresh", tpl, model.CampaignSending)

	f.clock.Advance(12 * time.Minute)
	n, err := f.campaigns.FailStuck(ctx, 15*time.Minute)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	got, err := f.campaigns.GetCampaign(ctx, stuck.ID)
	require.NoError(t, err)
	assert.Equal(t, model.CampaignFailed, got.Status)

	got, err = f.campaigns.GetCampaign(ctx, fresh.ID)
	require.NoError(t, err)
	assert.Equal(t, model.CampaignSending, got.Status)
}

func TestCreateCampaignRejectsSegmentMismatch(t *testing.T) {
	f := newFixture()
	tpl := f.template("Welcome", model.SegmentNewLead)

	_, err := f.campaigns.CreateCampaign(context.Background(), "C1", tpl.ID, model.SegmentAbandoned, model.CampaignDraft, nil)
	var verr *appErrors.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.True(t, verr.Has("segment"))

	all, err := f.campaigns.ListCampaigns(context.Background())
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestUpdateCampaignRejectsSegmentMismatch(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	lead := f.template("Welcome", model.SegmentNewLead)
	winBack := f.template("Win back", model.SegmentAbandoned)
	c := f.draft("C1", lead)

	segment := model.SegmentAbandoned
	_, err := f.campaigns.UpdateCampaign(ctx, c.ID, model.CampaignPatch{Segment: &segment})
	assert.True(t, appErrors.IsValidation(err), "got %v", err)

	_, err = f.campaigns.UpdateCampaign(ctx, c.ID, model.CampaignPatch{TemplateID: &winBack.ID})
	assert.True(t, appErrors.IsValidation(err), "got %v", err)

	updated, err := f.campaigns.UpdateCampaign(ctx, c.ID, model.CampaignPatch{TemplateID: &winBack.ID, Segment: &segment})
	require.NoError(t, err)
	assert.Equal(t, winBack.ID, updated.TemplateID)
	assert.Equal(t, model.SegmentAbandoned, updated.Segment)
}

func TestUpdateCampaignBackToDraftClearsSchedule(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	c := f.put("Later", f.template("Welcome", model.SegmentNewLead), model.CampaignScheduled)
	require.NotNil(t, c.ScheduledAt)

	draft := model.CampaignDraft
	updated, err := f.campaigns.UpdateCampaign(ctx, c.ID, model.CampaignPatch{Status: &draft})
	require.NoError(t, err)
	assert.Nil(t, updated.ScheduledAt)

	stored, err := f.campaigns.GetCampaign(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, model.CampaignDraft, stored.Status)
	assert.Nil(t, stored.ScheduledAt)
}

func TestDispatchDueFailsCampaignWhoseTemplateDrifted(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	tpl := f.template("Welcome", model.SegmentNewLead)

	at := f.clock.Now().Add(time.Minute)
	c, err := f.campaigns.CreateCampaign(ctx, "Soon", tpl.ID, model.SegmentNewLead, model.CampaignScheduled, &at)
	require.NoError(t, err)

	segment := model.SegmentAbandoned
	_, err = f.templates.UpdateTemplate(ctx, tpl.ID, model.TemplatePatch{Segment: &segment})
	require.NoError(t, err)

	f.clock.Advance(2 * time.Minute)
	n, err := f.campaigns.DispatchDue(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	got, err := f.campaigns.GetCampaign(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, model.CampaignFailed, got.Status)
	assert.Zero(t, f.transport.calls)

	n, err = f.campaigns.DispatchDue(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}
