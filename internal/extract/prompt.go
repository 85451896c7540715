package extract

import (
	"fmt"
	"strings"

	"github.com/Mindbaseeducation/khotwa-email-review-app/internal/domain"
)

const (
	DefaultSenderDomain    = "mindbase.education"
	DefaultRecipientDomain = "adek.gov.ae"
	DefaultSummaryMinWords = 30
)

// SystemPrompt is sent alongside every review prompt.
const SystemPrompt = "You are a helpful reviewer."

// PromptBuilder renders the instruction payload for one email. The zero
// value is not usable; start from DefaultPromptBuilder.
type PromptBuilder struct {
	Policy          domain.HandoverPolicy
	SenderDomain    string
	RecipientDomain string
	SummaryMinWords int
}

func DefaultPromptBuilder() PromptBuilder {
	return PromptBuilder{
		Policy:          domain.DefaultHandoverPolicy(),
		SenderDomain:    DefaultSenderDomain,
		RecipientDomain: DefaultRecipientDomain,
		SummaryMinWords: DefaultSummaryMinWords,
	}
}

// BuildPrompt renders the prompt with the default policy and conventions.
func BuildPrompt(email string) string {
	return DefaultPromptBuilder().Build(email)
}

func quoteList(items []string) string {
	quoted := make([]string, len(items))
	for i, item := range items {
		quoted[i] = `"` + item + `"`
	}
	return strings.Join(quoted, ", ")
}

func (b PromptBuilder) fieldDescription(f domain.Field) string {
	switch f {
	case domain.DateOpened:
		return "The first date of the email as provided in the thread."
	case domain.DateClosed:
		return "The latest date of the email in the thread."
	case domain.CaseID:
		return fmt.Sprintf("The PS number of the student mentioned in the email. %s in case there is no PS number.", domain.NoCaseID)
	case domain.SubjectName:
		return "The name of the student mentioned in the email."
	case domain.SenderRole:
		return fmt.Sprintf("The name of the person whose email address is in the format \"@%s\".", b.SenderDomain)
	case domain.IssueCategory:
		return "The issue in the email. It must be exactly one of: " + quoteList(domain.IssueCategories) + "."
	case domain.Summary:
		return fmt.Sprintf("A brief summary of the body of the email. It must begin with \"Mindbase mentor, <Name of the Sender>, emailed ADEK Advisor, <Name of the Receiver>,\" followed by the summary. The summary must be more than %d words.", b.SummaryMinWords)
	case domain.TierClassification:
		return "The concern. It must be exactly one of: " + quoteList(domain.TierClassifications) + "."
	case domain.RecipientRole:
		return fmt.Sprintf("The name of the ADEK advisor, whose email address is in the format \"@%s\".", b.RecipientDomain)
	case domain.HandoverItem:
		return "The handover detail of the issue. It must be exactly one of: " + quoteList(domain.HandoverItems) + "."
	}
	return ""
}

// Build returns the complete prompt for email. It has no side effects and
// the same input always yields the same output.
func (b PromptBuilder) Build(email string) string {
	var fieldLines strings.Builder
	var formatLines strings.Builder
	for _, f := range domain.Fields() {
		fieldLines.WriteString(fmt.Sprintf("%s - %s\n", f.Label(), b.fieldDescription(f)))
		formatLines.WriteString(fmt.Sprintf("%s: <value>\n", f.Label()))
	}

	var shared []string
	var perRecord []string
	for _, f := range domain.Fields() {
		if f.Shared() {
			shared = append(shared, f.Label())
		} else {
			perRecord = append(perRecord, f.Label())
		}
	}

	winner, loser := "TWIMC Letter", "Housing Updates"
	if b.Policy.Rank(loser) >= 0 && b.Policy.Rank(loser) < b.Policy.Rank(winner) {
		winner, loser = loser, winner
	}

	return fmt.Sprintf(`You are an email reviewer.

Given the email description:

Email:
%s

TASK:
Review the email and provide the following fields, in this order:

%s
HandoverItem priority: if two or more handover concerns collide for the same student, choose only the single most operationally urgent one, using this precedence (highest first): %s.
For example, if the student has to be provided with a TWIMC letter for renting an apartment, the HandoverItem for that student is "%s", not "%s".
SenderRole and RecipientRole contain only the names of the people, never their email addresses.

Instructions:
1. Treat the entire email chain as one communication block. Focus on the most recent intent or resolution.
2. If the email mentions multiple students, return one record per student.
3. Shared fields (%s) must be repeated identically in every record.
4. %s must be extracted separately per student.
5. Always return results in exactly this format, one "Field: value" per line:

%s
Separate each student's record with a blank line.
Only output the field values without any additional commentary.
`, email, fieldLines.String(), b.Policy.String(), winner, loser, strings.Join(shared, ", "), strings.Join(perRecord, ", "), formatLines.String())
}
