package mailer

import "fmt"

// Template names for auction notifications.
const (
	TemplateOutbid      = "outbid"
	TemplateAuctionWon  = "auction_won"
	TemplateBidRefunded = "bid_refunded"
	TemplateWelcome     = "welcome"
)

// EmailJob is the JSON payload put on the RabbitMQ queue for sending email.
// Subject/Text may be left empty when Template is set; the worker renders
// the body from Template and Data.
type EmailJob struct {
	To       string         `json:"to"`
	Subject  string         `json:"subject,omitempty"`
	Text     string         `json:"text,omitempty"`
	HTML     string         `json:"html,omitempty"`
	Template string         `json:"template,omitempty"`
	Data     map[string]any `json:"data,omitempty"`
}

// Render produces subject and text body for the known templates. Unknown
// templates fall back to the job's own subject/text.
func (j *EmailJob) Render() (subject, text string) {
	title := fmt.Sprintf("%v", j.Data["Title"])
	amount := fmt.Sprintf("%v", j.Data["Amount"])
	switch j.Template {
	case TemplateOutbid:
		return "You have been outbid",
			fmt.Sprintf("Someone placed a higher bid on %q. The price is now $%s.", title, amount)
	case TemplateAuctionWon:
		return "You won the auction",
			fmt.Sprintf("Congratulations, you won the auction for %q at $%s. Your escrowed funds will be applied to the final payment.", title, amount)
	case TemplateBidRefunded:
		return "Your bid deposit was refunded",
			fmt.Sprintf("The auction for %q has ended. Your deposit of $%s has been returned to your wallet.", title, amount)
	case TemplateWelcome:
		return "Welcome to bid2buy",
			"Your account is ready. Add funds to your wallet to start bidding."
	default:
		return j.Subject, j.Text
	}
}
