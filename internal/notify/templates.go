package notify

import (
	"bytes"
	"embed"
	"fmt"
	"text/template"

	"github.com/nekogravitycat/plot-booking-backend/internal/catalog"
)

const (
	TemplateReceived = "reservation_received"
	TemplateApproved = "reservation_approved"
	TemplateRejected = "reservation_rejected"
)

//go:embed templates/*.txt
var templateFS embed.FS

var bodies = template.Must(template.ParseFS(templateFS, "templates/*.txt"))

var subjects = map[string]*template.Template{
	TemplateReceived: template.Must(template.New("s").Parse("We received your reservation for {{.Resource}}")),
	TemplateApproved: template.Must(template.New("s").Parse("Your reservation for {{.Resource}} is approved")),
	TemplateRejected: template.Must(template.New("s").Parse("Your reservation for {{.Resource}} was not approved")),
}

var smsTemplate = template.Must(template.New("sms").Parse(
	"Memorial Park: reservation {{.ShortID}} for {{.Resource}} is {{.Status}}."))

// TemplateData is what every template can refer to.
type TemplateData struct {
	ClientName    string
	ClientEmail   string
	ClientPhone   string
	ReservationID string
	Resource      string
	Status        string
	Amount        string
	PaymentMethod string
	Reason        string
}

// ShortID is the first block of the reservation id, used in SMS.
func (d TemplateData) ShortID() string {
	if len(d.ReservationID) > 8 {
		return d.ReservationID[:8]
	}
	return d.ReservationID
}

// ResourceLabel is how a resource is named in client messages.
func ResourceLabel(ref catalog.Ref) string {
	switch ref.Kind {
	case catalog.KindGardenGrid:
		return "garden plot " + ref.ID
	case catalog.KindColumbarium:
		return "columbarium niche " + ref.ID
	default:
		return "lot " + ref.ID
	}
}

// Render builds the message for template name.
func Render(name string, data TemplateData) (Message, error) {
	subjectTmpl, ok := subjects[name]
	if !ok {
		return Message{}, fmt.Errorf("unknown template %q", name)
	}

	var subject, body, sms bytes.Buffer
	if err := subjectTmpl.Execute(&subject, data); err != nil {
		return Message{}, fmt.Errorf("render subject %s: %w", name, err)
	}
	if err := bodies.ExecuteTemplate(&body, name+".txt", data); err != nil {
		return Message{}, fmt.Errorf("render body %s: %w", name, err)
	}
	if err := smsTemplate.Execute(&sms, data); err != nil {
		return Message{}, fmt.Errorf("render sms %s: %w", name, err)
	}

	return Message{
		ToName:  data.ClientName,
		ToEmail: data.ClientEmail,
		ToPhone: data.ClientPhone,
		Subject: subject.String(),
		Body:    body.String(),
		SMS:     sms.String(),
	}, nil
}
