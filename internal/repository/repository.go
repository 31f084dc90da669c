package repository

import "database/sql"

// Set bundles the repositories a service process needs. The backing
// implementation is chosen once at startup.
type Set struct {
	Templates  TemplateRepositoryInterface
	Campaigns  CampaignRepositoryInterface
	Tracking   TrackingRepositoryInterface
	Recipients RecipientRepositoryInterface
	Analytics  AnalyticsRepositoryInterface
}

func NewPostgres(db *sql.DB) Set {
	return Set{
		Templates:  &TemplateRepository{DB: db},
		Campaigns:  &CampaignRepository{DB: db},
		Tracking:   &TrackingRepository{DB: db},
		Recipients: &RecipientRepository{DB: db},
		Analytics:  &AnalyticsRepository{DB: db},
	}
}
