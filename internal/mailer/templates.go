package mailer

import (
	"bytes"
	"fmt"
	htmltemplate "html/template"
	"text/template"
	"time"
)

type Kind string

const (
	KindWelcome       Kind = "welcome"
	KindEventCreated  Kind = "event-created"
	KindEventUpdated  Kind = "event-updated"
	KindEventDeleted  Kind = "event-deleted"
	KindRSVPConfirmed Kind = "rsvp-confirmed"
	KindRSVPReceived  Kind = "rsvp-received"
)

// TemplateData feeds every notification template. Unused fields are ignored.
type TemplateData struct {
	Name       string
	EventTitle string
	EventDate  time.Time
	Location   string
	Status     string
	Responder  string
}

type messageTemplate struct {
	subject *template.Template
	text    *template.Template
	html    *htmltemplate.Template
}

var funcs = template.FuncMap{
	"when": func(t time.Time) string {
		if t.IsZero() {
			return "TBA"
		}
		return t.UTC().Format("Mon, 02 Jan 2006 15:04 MST")
	},
}

var htmlFuncs = htmltemplate.FuncMap{"when": funcs["when"]}

func mustTemplate(kind Kind, subject, text, html string) messageTemplate {
	name := string(kind)
	return messageTemplate{
		subject: template.Must(template.New(name + ".subject").Funcs(funcs).Parse(subject)),
		text:    template.Must(template.New(name + ".txt").Funcs(funcs).Parse(text)),
		html:    htmltemplate.Must(htmltemplate.New(name + ".html").Funcs(htmlFuncs).Parse(html)),
	}
}

var templates = map[Kind]messageTemplate{
	KindWelcome: mustTemplate(KindWelcome,
		`Welcome to Event Hub, {{.Name}}`,
		"Hi {{.Name}},\n\nYour account is ready. Browse upcoming events and let organizers know if you're coming.\n",
		`<p>Hi {{.Name}},</p><p>Your account is ready. Browse upcoming events and let organizers know if you're coming.</p>`,
	),
	KindEventCreated: mustTemplate(KindEventCreated,
		`Your event "{{.EventTitle}}" is live`,
		"Hi {{.Name}},\n\n{{.EventTitle}} is published for {{when .EventDate}} at {{.Location}}.\n",
		`<p>Hi {{.Name}},</p><p><strong>{{.EventTitle}}</strong> is published for {{when .EventDate}} at {{.Location}}.</p>`,
	),
	KindEventUpdated: mustTemplate(KindEventUpdated,
		`Update: {{.EventTitle}}`,
		"Hi {{.Name}},\n\n{{.EventTitle}} has changed. It now takes place {{when .EventDate}} at {{.Location}}.\n",
		`<p>Hi {{.Name}},</p><p><strong>{{.EventTitle}}</strong> has changed. It now takes place {{when .EventDate}} at {{.Location}}.</p>`,
	),
	KindEventDeleted: mustTemplate(KindEventDeleted,
		`Cancelled: {{.EventTitle}}`,
		"Hi {{.Name}},\n\n{{.EventTitle}}, planned for {{when .EventDate}}, has been cancelled.\n",
		`<p>Hi {{.Name}},</p><p><strong>{{.EventTitle}}</strong>, planned for {{when .EventDate}}, has been cancelled.</p>`,
	),
	KindRSVPConfirmed: mustTemplate(KindRSVPConfirmed,
		`RSVP confirmed: {{.EventTitle}}`,
		"Hi {{.Name}},\n\nWe recorded your response {{.Status}} for {{.EventTitle}} on {{when .EventDate}} at {{.Location}}.\n",
		`<p>Hi {{.Name}},</p><p>We recorded your response <strong>{{.Status}}</strong> for {{.EventTitle}} on {{when .EventDate}} at {{.Location}}.</p>`,
	),
	KindRSVPReceived: mustTemplate(KindRSVPReceived,
		`New RSVP for {{.EventTitle}}`,
		"Hi {{.Name}},\n\n{{.Responder}} responded {{.Status}} to your event {{.EventTitle}}.\n",
		`<p>Hi {{.Name}},</p><p>{{.Responder}} responded <strong>{{.Status}}</strong> to your event {{.EventTitle}}.</p>`,
	),
}

// Render builds the email for kind addressed to to.
func Render(kind Kind, to string, data TemplateData) (Email, error) {
	tpl, ok := templates[kind]
	if !ok {
		return Email{}, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}

	var subject, text, html bytes.Buffer
	if err := tpl.subject.Execute(&subject, data); err != nil {
		return Email{}, fmt.Errorf("render %s subject: %w", kind, err)
	}
	if err := tpl.text.Execute(&text, data); err != nil {
		return Email{}, fmt.Errorf("render %s text: %w", kind, err)
	}
	if err := tpl.html.Execute(&html, data); err != nil {
		return Email{}, fmt.Errorf("render %s html: %w", kind, err)
	}

	return Email{
		To:       to,
		Subject:  subject.String(),
		TextBody: text.String(),
		HTMLBody: html.String(),
		Tag:      string(kind),
	}, nil
}
