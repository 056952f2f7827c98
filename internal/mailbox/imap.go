// Package mailbox đọc email phản hồi từ hộp thư qua IMAP.
// Mỗi lần poll chỉ lấy các message có UID lớn hơn high-water mark đã lưu.
package mailbox

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/emersion/go-imap"
	imapclient "github.com/emersion/go-imap/client"
	"github.com/emersion/go-message/mail"

	runtimemodels "copper_crm/internal/api/runtime/models"
	"copper_crm/internal/common"
	"copper_crm/internal/delivery"
	"copper_crm/internal/logger"
)

// DefaultThreadLimit là số message tối đa lấy mỗi folder khi dựng thread.
const DefaultThreadLimit = 12

// InboundEmail là một email đọc được từ IMAP, đã parse các phần engine cần.
type InboundEmail struct {
	UID         uint32
	MessageID   string
	InReplyTo   string
	References  []string
	FromAddress string
	ToAddress   string
	Subject     string
	BodyText    string
	ReceivedAt  time.Time
}

// FetchNew kết nối IMAP của inbox và trả về các message có UID > sinceUID,
// cùng UID lớn nhất thấy được để cập nhật high-water mark.
func FetchNew(inbox *runtimemodels.OutboundInbox, sinceUID uint32, limit int) ([]InboundEmail, uint32, error) {
	log := logger.GetAppLogger()

	c, err := dial(inbox)
	if err != nil {
		return nil, sinceUID, err
	}
	defer c.Logout()

	folder := inbox.IMAPFolder
	if folder == "" {
		folder = "INBOX"
	}
	mbox, err := c.Select(folder, true)
	if err != nil {
		return nil, sinceUID, common.ErrMailboxConnection
	}
	if mbox.Messages == 0 {
		return nil, sinceUID, nil
	}

	seqset := new(imap.SeqSet)
	seqset.AddRange(sinceUID+1, 0)

	section := &imap.BodySectionName{Peek: true}
	items := []imap.FetchItem{imap.FetchEnvelope, imap.FetchUid, imap.FetchInternalDate, section.FetchItem()}

	messages := make(chan *imap.Message, 32)
	done := make(chan error, 1)
	go func() {
		done <- c.UidFetch(seqset, items, messages)
	}()

	var emails []InboundEmail
	maxUID := sinceUID
	for msg := range messages {
		if msg.Uid > maxUID {
			maxUID = msg.Uid
		}
		// UidFetch với range mở có thể trả lại message đúng bằng sinceUID
		if msg.Uid <= sinceUID {
			continue
		}
		email, parseErr := parseMessage(msg, section)
		if parseErr != nil {
			log.WithError(parseErr).WithFields(map[string]interface{}{
				"inbox": inbox.EmailAddress,
				"uid":   msg.Uid,
			}).Warn("📬 [IMAP] Bỏ qua message không parse được")
			continue
		}
		emails = append(emails, email)
		if limit > 0 && len(emails) >= limit {
			break
		}
	}
	// Đọc cạn channel để goroutine fetch kết thúc
	for range messages {
	}
	if err := <-done; err != nil {
		return nil, sinceUID, common.ErrMailboxConnection
	}

	log.WithFields(map[string]interface{}{
		"inbox":    inbox.EmailAddress,
		"sinceUid": sinceUID,
		"maxUid":   maxUID,
		"fetched":  len(emails),
	}).Debug("📬 [IMAP] Poll xong")
	return emails, maxUID, nil
}

// FetchThread gom lại hội thoại với một lead: message FROM lead trong folder
// inbox và message TO lead trong folder sent, sắp theo thời gian tăng dần.
// Mỗi folder lấy tối đa limit message gần nhất.
func FetchThread(inbox *runtimemodels.OutboundInbox, leadAddress string, limit int) ([]InboundEmail, error) {
	log := logger.GetAppLogger()

	if limit <= 0 {
		limit = DefaultThreadLimit
	}

	c, err := dial(inbox)
	if err != nil {
		return nil, err
	}
	defer c.Logout()

	inboxFolder := inbox.IMAPFolder
	if inboxFolder == "" {
		inboxFolder = "INBOX"
	}
	sentFolder := inbox.IMAPSentFolder
	if sentFolder == "" {
		sentFolder = "Sent"
	}

	var thread []InboundEmail
	for _, folder := range []string{inboxFolder, sentFolder} {
		criteria := imap.NewSearchCriteria()
		if folder == inboxFolder {
			criteria.Header.Set("From", leadAddress)
		} else {
			criteria.Header.Set("To", leadAddress)
		}
		emails, folderErr := searchFolder(c, folder, criteria, limit)
		if folderErr != nil {
			log.WithError(folderErr).WithFields(map[string]interface{}{
				"inbox":  inbox.EmailAddress,
				"folder": folder,
			}).Warn("📬 [IMAP] Không đọc được folder khi dựng thread")
			continue
		}
		thread = append(thread, emails...)
	}

	sort.SliceStable(thread, func(i, j int) bool {
		return thread[i].ReceivedAt.Before(thread[j].ReceivedAt)
	})
	return thread, nil
}

// RenderThreadText ghép thread thành text phẳng đưa vào prompt LLM.
// Vượt quá maxChars thì giữ phần đuôi, là phần trao đổi mới nhất.
func RenderThreadText(messages []InboundEmail, maxChars int) string {
	if maxChars <= 0 {
		maxChars = 8000
	}
	parts := make([]string, 0, len(messages))
	for i := range messages {
		msg := &messages[i]
		dateStr := ""
		if !msg.ReceivedAt.IsZero() {
			dateStr = msg.ReceivedAt.UTC().Format(time.RFC3339)
		}
		parts = append(parts, strings.Join([]string{
			"From: " + msg.FromAddress,
			"To: " + msg.ToAddress,
			"Subject: " + msg.Subject,
			"Date: " + dateStr,
			"",
			strings.TrimSpace(msg.BodyText),
		}, "\n"))
	}
	joined := strings.TrimSpace(strings.Join(parts, "\n\n---\n\n"))
	if len(joined) > maxChars {
		cut := len(joined) - maxChars
		for cut < len(joined) && joined[cut]&0xC0 == 0x80 {
			cut++
		}
		return joined[cut:]
	}
	return joined
}

// dial kết nối và đăng nhập IMAP của một inbox.
func dial(inbox *runtimemodels.OutboundInbox) (*imapclient.Client, error) {
	log := logger.GetAppLogger()

	if !inbox.HasIMAP() {
		return nil, common.NewError(common.ErrCodeConfiguration, "Inbox chưa cấu hình IMAP", common.StatusBadRequest, inbox.EmailAddress)
	}

	port := inbox.IMAPPort
	if port == 0 {
		port = 993
	}
	addr := fmt.Sprintf("%s:%d", inbox.IMAPHost, port)

	var c *imapclient.Client
	var err error
	if inbox.IMAPUseSSL || port == 993 {
		c, err = imapclient.DialTLS(addr, nil)
	} else {
		c, err = imapclient.Dial(addr)
	}
	if err != nil {
		log.WithError(err).WithFields(map[string]interface{}{
			"inbox": inbox.EmailAddress,
			"addr":  addr,
		}).Error("📬 [IMAP] Không kết nối được IMAP server")
		return nil, common.ErrMailboxConnection
	}

	password := delivery.ResolveCredential(inbox.IMAPPassword)
	if err := c.Login(inbox.IMAPUsername, password); err != nil {
		c.Logout()
		log.WithError(err).WithFields(map[string]interface{}{
			"inbox": inbox.EmailAddress,
		}).Error("📬 [IMAP] Đăng nhập IMAP thất bại")
		return nil, common.ErrMailboxConnection
	}
	return c, nil
}

// searchFolder tìm message theo criteria trong một folder và parse tối đa limit message gần nhất.
func searchFolder(c *imapclient.Client, folder string, criteria *imap.SearchCriteria, limit int) ([]InboundEmail, error) {
	if _, err := c.Select(folder, true); err != nil {
		return nil, err
	}
	seqNums, err := c.Search(criteria)
	if err != nil {
		return nil, err
	}
	if len(seqNums) == 0 {
		return nil, nil
	}
	if len(seqNums) > limit {
		seqNums = seqNums[len(seqNums)-limit:]
	}

	seqset := new(imap.SeqSet)
	seqset.AddNum(seqNums...)

	section := &imap.BodySectionName{Peek: true}
	items := []imap.FetchItem{imap.FetchEnvelope, imap.FetchUid, imap.FetchInternalDate, section.FetchItem()}

	messages := make(chan *imap.Message, 32)
	done := make(chan error, 1)
	go func() {
		done <- c.Fetch(seqset, items, messages)
	}()

	var emails []InboundEmail
	for msg := range messages {
		email, parseErr := parseMessage(msg, section)
		if parseErr != nil {
			continue
		}
		emails = append(emails, email)
	}
	if err := <-done; err != nil {
		return nil, err
	}
	return emails, nil
}

// parseMessage đọc envelope và body text/plain từ một message IMAP.
func parseMessage(msg *imap.Message, section *imap.BodySectionName) (InboundEmail, error) {
	email := InboundEmail{
		UID:        msg.Uid,
		ReceivedAt: msg.InternalDate,
	}

	if env := msg.Envelope; env != nil {
		email.MessageID = env.MessageId
		email.InReplyTo = env.InReplyTo
		email.Subject = env.Subject
		if len(env.From) > 0 {
			email.FromAddress = strings.ToLower(env.From[0].Address())
		}
		if len(env.To) > 0 {
			email.ToAddress = strings.ToLower(env.To[0].Address())
		}
	}

	body := msg.GetBody(section)
	if body == nil {
		return email, fmt.Errorf("message không có body section")
	}

	mr, err := mail.CreateReader(body)
	if err != nil {
		return email, err
	}

	if refs, rErr := mr.Header.Text("References"); rErr == nil && refs != "" {
		email.References = strings.Fields(refs)
	}
	if email.MessageID == "" {
		if mid, mErr := mr.Header.Text("Message-Id"); mErr == nil {
			email.MessageID = strings.TrimSpace(mid)
		}
	}

	for {
		part, pErr := mr.NextPart()
		if pErr == io.EOF {
			break
		}
		if pErr != nil {
			break
		}
		header, ok := part.Header.(*mail.InlineHeader)
		if !ok {
			continue
		}
		contentType, _, _ := header.ContentType()
		if contentType == "text/plain" || email.BodyText == "" {
			raw, readErr := io.ReadAll(part.Body)
			if readErr != nil {
				continue
			}
			email.BodyText = string(raw)
			if contentType == "text/plain" {
				break
			}
		}
	}
	return email, nil
}
