package runtime

import (
	runtimemodels "copper_crm/internal/api/runtime/models"
	"copper_crm/internal/delivery/channels"
	"copper_crm/internal/mailbox"
)

// SMTPMailer gửi email thật qua SMTP của inbox.
type SMTPMailer struct{}

func (SMTPMailer) Send(inbox *runtimemodels.OutboundInbox, email *channels.OutgoingEmail) error {
	return channels.SendEmail(inbox, email)
}

// IMAPMailbox đọc email mới và hội thoại qua IMAP của inbox.
type IMAPMailbox struct{}

func (IMAPMailbox) FetchNew(inbox *runtimemodels.OutboundInbox, sinceUID uint32, limit int) ([]mailbox.InboundEmail, uint32, error) {
	return mailbox.FetchNew(inbox, sinceUID, limit)
}

func (IMAPMailbox) FetchThread(inbox *runtimemodels.OutboundInbox, leadAddress string, limit int) ([]mailbox.InboundEmail, error) {
	return mailbox.FetchThread(inbox, leadAddress, limit)
}
