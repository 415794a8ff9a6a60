package fixtures

// Email 字段与 swarm.Email 一致，避免测试辅助包反向依赖业务包
type Email struct {
	ID      string
	From    string
	Subject string
	Body    string
}

// 示例邮件
var (
	UrgentMeetingEmail = Email{
		ID:      "mail-urgent",
		From:    "ceo@example.com",
		Subject: "URGENT: reschedule board meeting",
		Body:    "We need to move tomorrow's board meeting, please propose a new time asap.",
	}

	InvoiceEmail = Email{
		ID:      "mail-invoice",
		From:    "billing@vendor.example",
		Subject: "Invoice #4411 payment due",
		Body:    "Please find attached the invoice for March. Payment is due in 14 days.",
	}

	NewsletterEmail = Email{
		ID:      "mail-news",
		From:    "news@weekly.example",
		Subject: "This week's newsletter",
		Body:    "Unsubscribe at any time. Top stories of the week inside.",
	}
)
