package extract

import (
	"strings"
	"testing"

	"github.com/Mindbaseeducation/khotwa-email-review-app/internal/domain"
)

func TestBuildPrompt_EmbedsEmailVerbatim(t *testing.T) {
	email := "From: omar@mindbase.education\nTo: lina@adek.gov.ae\n\nRent is 100% overdue: please help.  "
	prompt := BuildPrompt(email)
	if !strings.Contains(prompt, "Email:\n"+email+"\n") {
		t.Fatalf("expected email to be embedded verbatim, prompt=%s", prompt)
	}
}

func TestBuildPrompt_EmptyEmail(t *testing.T) {
	prompt := BuildPrompt("")
	if !strings.Contains(prompt, "Email:\n\n") {
		t.Fatalf("expected empty email section, prompt=%s", prompt)
	}
}

func TestBuildPrompt_IsDeterministic(t *testing.T) {
	if BuildPrompt("same email") != BuildPrompt("same email") {
		t.Fatal("expected identical prompts for identical input")
	}
}

func TestBuildPrompt_FieldsInCanonicalOrder(t *testing.T) {
	prompt := BuildPrompt("x")
	formatStart := strings.Index(prompt, "one \"Field: value\" per line")
	if formatStart < 0 {
		t.Fatalf("expected format section, prompt=%s", prompt)
	}
	format := prompt[formatStart:]

	last := -1
	for _, f := range domain.Fields() {
		idx := strings.Index(format, "\n"+f.Label()+": <value>\n")
		if idx < 0 {
			t.Fatalf("expected format line for %s", f)
		}
		if idx < last {
			t.Fatalf("expected %s after previous field in format section", f)
		}
		last = idx
	}
}

func TestBuildPrompt_VocabulariesVerbatim(t *testing.T) {
	prompt := BuildPrompt("x")
	for _, vocab := range [][]string{domain.IssueCategories, domain.TierClassifications, domain.HandoverItems} {
		if !strings.Contains(prompt, quoteList(vocab)) {
			t.Fatalf("expected vocabulary %v in prompt", vocab)
		}
	}
}

func TestBuildPrompt_StatesRules(t *testing.T) {
	prompt := BuildPrompt("x")
	wants := []string{
		"Housing Payment > TWIMC Letter > Housing Updates > Pending Tuition Fees > Salary Issue > Nothing",
		"return one record per student",
		"Shared fields (DateOpened, DateClosed, SenderRole, RecipientRole) must be repeated identically",
		"Separate each student's record with a blank line.",
		"without any additional commentary",
		`"@mindbase.education"`,
		`"@adek.gov.ae"`,
		"more than 30 words",
		`the HandoverItem for that student is "TWIMC Letter", not "Housing Updates"`,
	}
	for _, want := range wants {
		if !strings.Contains(prompt, want) {
			t.Fatalf("expected prompt to contain %q, prompt=%s", want, prompt)
		}
	}
}

func TestPromptBuilder_UsesConfiguredPolicyAndConventions(t *testing.T) {
	b := PromptBuilder{
		Policy: domain.HandoverPolicy{Priority: []string{
			"Housing Payment", "Housing Updates", "TWIMC Letter", "Pending Tuition Fees", "Salary Issue", "Nothing",
		}},
		SenderDomain:    "mentors.example",
		RecipientDomain: "advisors.example",
		SummaryMinWords: 40,
	}
	prompt := b.Build("x")
	wants := []string{
		"Housing Payment > Housing Updates > TWIMC Letter",
		`is "Housing Updates", not "TWIMC Letter"`,
		`"@mentors.example"`,
		`"@advisors.example"`,
		"more than 40 words",
	}
	for _, want := range wants {
		if !strings.Contains(prompt, want) {
			t.Fatalf("expected prompt to contain %q, prompt=%s", want, prompt)
		}
	}
}

func TestPromptRoundTripsThroughParser(t *testing.T) {
	// The format section of the prompt must itself parse as one record.
	prompt := BuildPrompt("x")
	start := strings.Index(prompt, "DateOpened: <value>")
	end := strings.Index(prompt, "Separate each student's record")
	if start < 0 || end < start {
		t.Fatalf("format section not found, prompt=%s", prompt)
	}
	got := ParseResponse(prompt[start:end])
	if len(got) != 1 {
		t.Fatalf("expected format section to parse as 1 record, got %d", len(got))
	}
	for _, f := range domain.Fields() {
		if got[0].Get(f) != "<value>" {
			t.Fatalf("%s = %q, want <value>", f, got[0].Get(f))
		}
	}
}
