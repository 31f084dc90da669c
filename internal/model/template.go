// internal/model/template.go
package model

import "time"

type Template struct {
	ID        string    `db:"id" json:"id"`
	Name      string    `db:"name" json:"name" validate:"required,max=100"`
	Subject   string    `db:"subject" json:"subject" validate:"required,max=200"`
	Content   string    `db:"content" json:"content" validate:"required,max=10000"`
	Segment   Segment   `db:"segment" json:"segment" validate:"segment"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

type TemplatePatch struct {
	Name    *string  `json:"name,omitempty"`
	Subject *string  `json:"subject,omitempty"`
	Content *string  `json:"content,omitempty"`
	Segment *Segment `json:"segment,omitempty"`
}

func (p TemplatePatch) Apply(t Template) Template {
	if p.Name != nil {
		t.Name = *p.Name
	}
	if p.Subject != nil {
		t.Subject = *p.Subject
	}
	if p.Content != nil {
		t.Content = *p.Content
	}
	if p.Segment != nil {
		t.Segment = *p.Segment
	}
	return t
}
