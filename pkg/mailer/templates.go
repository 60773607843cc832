package mailer

import (
	"bytes"
	"fmt"
	"html/template"
)

// Template names carried in email_requested outbox payloads.
const (
	TemplateSupplierPaymentReceived = "supplier_payment_received"
	TemplateCustomerPaymentComplete = "customer_payment_complete"
	TemplateAdminPaymentRelease     = "admin_payment_release"
	TemplateSupplierPaymentRelease  = "supplier_payment_release"
	TemplateReviewRequest           = "review_request"
	TemplateVerificationCode        = "verification_code"
)

type emailTemplate struct {
	subject string
	body    *template.Template
}

const layoutOpen = `<div style="font-family: Arial, sans-serif; padding: 20px; color: #333;">`
const layoutClose = `<p style="color:#888;font-size:12px;">MoveMarket</p></div>`

var templates = map[string]emailTemplate{
	TemplateSupplierPaymentReceived: {
		subject: "Betalning mottagen / Payment received",
		body: parse(TemplateSupplierPaymentReceived, `
<h2>Betalning mottagen</h2>
<p>Kunden har betalat {{.payment_label_sv}} för {{.reference}}: <strong>{{.amount}} {{.currency}}</strong>.</p>
<hr/>
<h2>Payment received</h2>
<p>The customer paid the {{.payment_type}} payment for {{.reference}}: <strong>{{.amount}} {{.currency}}</strong>.</p>`),
	},
	TemplateCustomerPaymentComplete: {
		subject: "Tack för din betalning / Thank you for your payment",
		body: parse(TemplateCustomerPaymentComplete, `
<h2>Tack för din betalning</h2>
<p>Hela beloppet för {{.reference}} är betalt ({{.final_price}} {{.currency}}). Uppdraget är markerat som slutfört.</p>
<hr/>
<h2>Thank you for your payment</h2>
<p>{{.reference}} is fully paid ({{.final_price}} {{.currency}}) and marked as completed.</p>`),
	},
	TemplateAdminPaymentRelease: {
		subject: "Utbetalning redo / Payout ready",
		body: parse(TemplateAdminPaymentRelease, `
<h2>Utbetalning redo</h2>
<p>{{.reference}} slutfördes {{.completed_at}}. Karensperioden är över; betala ut {{.final_price}} {{.currency}} till {{.supplier_name}}.</p>
<hr/>
<h2>Payout ready</h2>
<p>{{.reference}} completed on {{.completed_at}}. The hold period is over; release {{.final_price}} {{.currency}} to {{.supplier_name}}.</p>`),
	},
	TemplateSupplierPaymentRelease: {
		subject: "Din utbetalning är på väg / Your payout is on its way",
		body: parse(TemplateSupplierPaymentRelease, `
<h2>Din utbetalning är på väg</h2>
<p>Utbetalningen för {{.reference}} ({{.final_price}} {{.currency}}) behandlas nu.</p>
<hr/>
<h2>Your payout is on its way</h2>
<p>The payout for {{.reference}} ({{.final_price}} {{.currency}}) is now being processed.</p>`),
	},
	TemplateReviewRequest: {
		subject: "Hur gick flytten? / How did it go?",
		body: parse(TemplateReviewRequest, `
<h2>Hej {{.customer_name}}!</h2>
<p>Berätta gärna hur det gick med {{.reference}}.</p>
<p><a href="{{.review_link}}">Lämna ett omdöme</a></p>
<hr/>
<p>Tell us how {{.reference}} went: <a href="{{.review_link}}">leave a review</a>.</p>`),
	},
	TemplateVerificationCode: {
		subject: "Din verifieringskod / Your verification code",
		body: parse(TemplateVerificationCode, `
<p>Din verifieringskod är / Your verification code is:</p>
<h1 style="color: #4CAF50; letter-spacing: 5px;">{{.code}}</h1>
<p>Koden gäller i {{.ttl_minutes}} minuter. / The code expires in {{.ttl_minutes}} minutes.</p>`),
	},
}

func parse(name, body string) *template.Template {
	return template.Must(template.New(name).Option("missingkey=zero").Parse(layoutOpen + body + layoutClose))
}

// KnownTemplate reports whether the template name can be rendered.
func KnownTemplate(name string) bool {
	_, ok := templates[name]
	return ok
}

// Render builds the message for a template and its data.
func Render(name, to string, data map[string]any) (Message, error) {
	tmpl, ok := templates[name]
	if !ok {
		return Message{}, fmt.Errorf("unknown email template %q", name)
	}
	var buf bytes.Buffer
	if err := tmpl.body.Execute(&buf, data); err != nil {
		return Message{}, fmt.Errorf("render %s: %w", name, err)
	}
	return Message{To: to, Subject: tmpl.subject, HTML: buf.String()}, nil
}
