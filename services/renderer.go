package services

import (
	"errors"
	"fmt"
	"strings"
	"text/template"

	"github.com/yeremiapane/hospital-app/models"
	"gorm.io/gorm"
)

// ErrRenderFailed wraps template execution errors, typically a missing
// required variable. The affected channel is skipped; siblings proceed.
var ErrRenderFailed = errors.New("template render failed")

// RenderedContent is the channel-ready subject/body pair
type RenderedContent struct {
	Subject string
	Body    string
}

// TemplateRenderer turns a (type, channel) pair plus a variable bag into
// subject/body strings. Reads templates, writes nothing.
type TemplateRenderer struct {
	db *gorm.DB
}

func NewTemplateRenderer(db *gorm.DB) *TemplateRenderer {
	return &TemplateRenderer{db: db}
}

// Render produces the content for one channel of an event. Without an
// active template for the pair it falls back to the event's own title and
// message verbatim.
func (tr *TemplateRenderer) Render(ntype *models.NotificationType, channel string, ev Event) (RenderedContent, error) {
	var tmpl models.NotificationTemplate
	err := tr.db.Where("notification_type_id = ? AND channel = ? AND is_active = ?", ntype.ID, channel, true).
		First(&tmpl).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return RenderedContent{Subject: ev.Title, Body: ev.Message}, nil
		}
		return RenderedContent{}, err
	}

	vars := templateVars(ev)

	subject := ev.Title
	if tmpl.SubjectTemplate != "" {
		subject, err = execute("subject", tmpl.SubjectTemplate, vars)
		if err != nil {
			return RenderedContent{}, fmt.Errorf("%w: %s/%s subject: %v", ErrRenderFailed, ntype.Name, channel, err)
		}
	}

	body, err := execute("message", tmpl.MessageTemplate, vars)
	if err != nil {
		return RenderedContent{}, fmt.Errorf("%w: %s/%s message: %v", ErrRenderFailed, ntype.Name, channel, err)
	}

	return RenderedContent{Subject: subject, Body: body}, nil
}

// templateVars exposes the event's data bag plus the Title/Message fields
func templateVars(ev Event) map[string]interface{} {
	vars := make(map[string]interface{}, len(ev.Data)+2)
	for k, v := range ev.Data {
		vars[k] = v
	}
	vars["Title"] = ev.Title
	vars["Message"] = ev.Message
	return vars
}

func execute(name, text string, vars map[string]interface{}) (string, error) {
	tmpl, err := template.New(name).Option("missingkey=error").Parse(text)
	if err != nil {
		return "", err
	}
	var sb strings.Builder
	if err := tmpl.Execute(&sb, vars); err != nil {
		return "", err
	}
	return sb.String(), nil
}
