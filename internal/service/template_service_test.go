package service

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/unclebandit/crm-campaigns/internal/errors"
	"github.com/unclebandit/crm-campaigns/internal/model"
)

func TestCreateTemplateValidation(t *testing.T) {
	f := newFixture()

	_, err := f.templates.CreateTemplate(context.Background(), strings.Repeat("n", 101), "", "", "vip")
	var verr *appErrors.ValidationError
	require.ErrorAs(t, err, &verr)
	for _, field := range []string{"name", "subject", "content", "segment"} {
		assert.True(t, verr.Has(field), "missing violation for %s", field)
	}

	tpl, err := f.templates.CreateTemplate(context.Background(), strings.Repeat("n", 100), "Hi", "<p>x</p>", model.SegmentClosedDeal)
	require.NoError(t, err)
	assert.Equal(t, model.SegmentClosedDeal, tpl.Segment)
}

func TestListTemplatesBySegment(t *testing.T) {
	f := newFixture()
	f.template("A", model.SegmentNewLead)
	f.template("B", model.SegmentAbandoned)

	got, err := f.templates.ListTemplatesBySegment(context.Background(), model.SegmentAbandoned)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "B", got[0].Name)

	_, err = f.templates.ListTemplatesBySegment(context.Background(), "vip")
	assert.True(t, appErrors.IsValidation(err))
}

func TestDeleteTemplateBlockedByCampaigns(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	tpl := f.template("Welcome", model.SegmentNewLead)
	first := f.draft("Spring promo", tpl)
	second := f.draft("Autumn promo", tpl)

	err := f.templates.DeleteTemplate(ctx, tpl.ID)
	var dep *appErrors.DependencyError
	require.ErrorAs(t, err, &dep)
	assert.ElementsMatch(t, []string{"Spring promo", "Autumn promo"}, dep.Blockers)
	assert.Contains(t, err.Error(), "Autumn promo, Spring promo")

	_, err = f.templates.GetTemplate(ctx, tpl.ID)
	require.NoError(t, err)

	require.NoError(t, f.campaigns.DeleteCampaign(ctx, first.ID))
	assert.Error(t, f.templates.DeleteTemplate(ctx, tpl.ID))

	require.NoError(t, f.campaigns.DeleteCampaign(ctx, second.ID))
	require.NoError(t, f.templates.DeleteTemplate(ctx, tpl.ID))

	_, err = f.templates.GetTemplate(ctx, tpl.ID)
	assert.True(t, appErrors.IsNotFound(err))
}
