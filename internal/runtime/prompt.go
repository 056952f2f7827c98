// Dựng prompt sinh email và phân loại phản hồi.
package runtime

import (
	"context"
	"fmt"
	"strings"

	campaignmodels "copper_crm/internal/api/campaign/models"
	crmmodels "copper_crm/internal/api/crm/models"
)

// profilePair là cặp hồ sơ giọng văn dùng khi sinh: hồ sơ chính và overlay tùy chọn.
type profilePair struct {
	Base    *campaignmodels.LLMProfile
	Overlay *campaignmodels.LLMProfile
}

// resolveProfiles lấy hồ sơ giọng văn của chiến dịch, fallback về hồ sơ mặc định.
func (e *Engine) resolveProfiles(ctx context.Context, campaign campaignmodels.Campaign) (profilePair, error) {
	var pair profilePair

	if !campaign.LLMProfileID.IsZero() {
		profile, found, err := e.store.LLMProfile(ctx, campaign.LLMProfileID)
		if err != nil {
			return pair, err
		}
		if found {
			pair.Base = &profile
		}
	}
	if pair.Base == nil {
		profile, found, err := e.store.DefaultLLMProfile(ctx)
		if err != nil {
			return pair, err
		}
		if found {
			pair.Base = &profile
		}
	}

	if !campaign.LLMOverlayProfileID.IsZero() {
		overlay, found, err := e.store.LLMProfile(ctx, campaign.LLMOverlayProfileID)
		if err != nil {
			return pair, err
		}
		if found {
			pair.Overlay = &overlay
		}
	}
	return pair, nil
}

// buildLeadContext dựng khối mô tả lead đưa vào prompt.
func (e *Engine) buildLeadContext(ctx context.Context, lead *crmmodels.Lead) string {
	var b strings.Builder

	name := strings.TrimSpace(lead.FirstName + " " + lead.LastName)
	fmt.Fprintf(&b, "Name: %s\n", name)
	if lead.JobTitle != "" {
		fmt.Fprintf(&b, "Job title: %s\n", lead.JobTitle)
	}
	if lead.Seniority != "" {
		fmt.Fprintf(&b, "Seniority: %s\n", lead.Seniority)
	}
	if lead.Departments != "" {
		fmt.Fprintf(&b, "Departments: %s\n", lead.Departments)
	}
	if lead.Industries != "" {
		fmt.Fprintf(&b, "Industries: %s\n", lead.Industries)
	}
	if lead.Country != "" {
		fmt.Fprintf(&b, "Country: %s\n", lead.Country)
	}
	if lead.ProfileSummary != "" {
		fmt.Fprintf(&b, "Profile summary: %s\n", lead.ProfileSummary)
	}

	if !lead.CompanyID.IsZero() {
		company, found, err := e.store.Company(ctx, lead.CompanyID)
		if err == nil && found {
			fmt.Fprintf(&b, "Company: %s\n", company.CompanyName)
			if company.EmployeesAmount != "" {
				fmt.Fprintf(&b, "Company size: %s\n", company.EmployeesAmount)
			}
			if company.Technologies != "" {
				fmt.Fprintf(&b, "Company technologies: %s\n", company.Technologies)
			}
			if company.AnnualRevenue != "" {
				fmt.Fprintf(&b, "Company annual revenue: %s\n", company.AnnualRevenue)
			}
		}
	}
	return b.String()
}

// buildEmailPrompt dựng system prompt và user prompt cho bước ai_email.
// threadText khác rỗng nghĩa là đang follow-up trong thread sẵn có, LLM cần
// viết tiếp đúng mạch hội thoại thay vì mở đầu lạnh.
func buildEmailPrompt(campaign campaignmodels.Campaign, step campaignmodels.CampaignStep, leadContext string, profiles profilePair, threadText string) (string, string) {
	var sys strings.Builder
	sys.WriteString("You are an expert B2B sales development representative writing a short, personalized outbound email.\n")
	sys.WriteString("Write in plain text. Keep it under 120 words. No placeholders, no markdown.\n")
	sys.WriteString("Return the subject on the first line prefixed with \"Subject: \", then a blank line, then the body.\n")
	if profiles.Base != nil {
		sys.WriteString("\nVoice and style rules:\n")
		sys.WriteString(profiles.Base.Rules)
		sys.WriteString("\n")
	}
	if profiles.Overlay != nil {
		sys.WriteString("\nAdditional overlay rules (take precedence when conflicting):\n")
		sys.WriteString(profiles.Overlay.Rules)
		sys.WriteString("\n")
	}

	var usr strings.Builder
	if campaign.AIBrief != "" {
		fmt.Fprintf(&usr, "Campaign brief: %s\n\n", campaign.AIBrief)
	}
	if step.PromptTemplate != "" {
		fmt.Fprintf(&usr, "Step instructions: %s\n\n", step.PromptTemplate)
	}
	if cfg := step.Config.AIEmail; cfg != nil {
		if cfg.Tone != "" {
			fmt.Fprintf(&usr, "Tone: %s\n", cfg.Tone)
		}
		if cfg.CTA != "" {
			fmt.Fprintf(&usr, "Call to action: %s\n", cfg.CTA)
		}
		if cfg.Variant != "" {
			fmt.Fprintf(&usr, "Variant: %s\n", cfg.Variant)
		}
		if cfg.Personalization != "" {
			fmt.Fprintf(&usr, "Personalization angle: %s\n", cfg.Personalization)
		}
	}
	usr.WriteString("\nRecipient:\n")
	usr.WriteString(leadContext)
	if threadText != "" {
		usr.WriteString("\nConversation so far:\n")
		usr.WriteString(threadText)
		usr.WriteString("\nWrite the next reply in this thread.\n")
	}
	return sys.String(), usr.String()
}

// parseGeneratedEmail tách subject và body từ output của LLM.
// Không có dòng "Subject:" thì toàn bộ output là body và subject trả về rỗng.
func parseGeneratedEmail(output string) (string, string) {
	output = strings.TrimSpace(output)
	lines := strings.SplitN(output, "\n", 2)
	first := strings.TrimSpace(lines[0])

	lower := strings.ToLower(first)
	if strings.HasPrefix(lower, "subject:") {
		subject := strings.TrimSpace(first[len("subject:"):])
		body := ""
		if len(lines) > 1 {
			body = strings.TrimSpace(lines[1])
		}
		return subject, body
	}
	return "", output
}
