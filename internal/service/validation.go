package service

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	appErrors "github.com/unclebandit/crm-campaigns/internal/errors"
	"github.com/unclebandit/crm-campaigns/internal/model"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	if err := v.RegisterValidation("segment", func(fl validator.FieldLevel) bool {
		return model.Segment(fl.Field().String()).Valid()
	}); err != nil {
		panic(err)
	}
	return v
}

// validateStruct runs every rule on s and reports all violations at once.
func validateStruct(s any) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	out := &appErrors.ValidationError{}
	for _, fe := range verrs {
		out.Fields = append(out.Fields, appErrors.FieldError{Field: fe.Field(), Message: fieldMessage(fe)})
	}
	return out
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "max":
		return fmt.Sprintf("must be at most %s characters", fe.Param())
	case "uuid":
		return "must be a valid identifier"
	case "email":
		return "must be an email address"
	case "segment":
		return "must be one of " + segmentList()
	case "oneof":
		return "must be one of " + strings.ReplaceAll(fe.Param(), " ", ", ")
	}
	return "is invalid"
}

func segmentList() string {
	names := make([]string, len(model.Segments))
	for i, s := range model.Segments {
		names[i] = string(s)
	}
	return strings.Join(names, ", ")
}

type campaignInput struct {
	Name       string               `json:"name" validate:"required,max=100"`
	TemplateID string               `json:"template_id" validate:"required,uuid"`
	Segment    model.Segment        `json:"segment" validate:"segment"`
	Status     model.CampaignStatus `json:"status" validate:"oneof=draft scheduled"`
}

// validateCampaign checks field rules first and the schedule only once
// the fields are sound.
func validateCampaign(c model.Campaign, now time.Time) error {
	err := validateStruct(campaignInput{
		Name:       c.Name,
		TemplateID: c.TemplateID,
		Segment:    c.Segment,
		Status:     c.Status,
	})
	if err != nil {
		return err
	}
	if c.Status != model.CampaignScheduled {
		return nil
	}
	if c.ScheduledAt == nil {
		return &appErrors.SchedulingError{Message: "scheduled_at is required when status is scheduled"}
	}
	if !c.ScheduledAt.After(now) {
		return &appErrors.SchedulingError{Message: "scheduled_at must be in the future"}
	}
	return nil
}

func validateTemplate(t model.Template) error {
	return validateStruct(t)
}
