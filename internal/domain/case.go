package domain

import "strings"

// Field is one column of the extracted case schema. The order of the
// constants is the canonical order used by the prompt and the export.
type Field int

const (
	DateOpened Field = iota
	DateClosed
	CaseID
	SubjectName
	SenderRole
	IssueCategory
	Summary
	TierClassification
	RecipientRole
	HandoverItem

	NumFields int = iota
)

var fieldLabels = [NumFields]string{
	DateOpened:         "DateOpened",
	DateClosed:         "DateClosed",
	CaseID:             "CaseId",
	SubjectName:        "SubjectName",
	SenderRole:         "SenderRole",
	IssueCategory:      "IssueCategory",
	Summary:            "Summary",
	TierClassification: "TierClassification",
	RecipientRole:      "RecipientRole",
	HandoverItem:       "HandoverItem",
}

// Label is the literal text used for the field in the prompt contract,
// in the model's reply and in the export header.
func (f Field) Label() string {
	if f < 0 || int(f) >= NumFields {
		return ""
	}
	return fieldLabels[f]
}

func (f Field) String() string { return f.Label() }

// Shared reports whether the field carries one value for every record
// extracted from the same email.
func (f Field) Shared() bool {
	switch f {
	case DateOpened, DateClosed, SenderRole, RecipientRole:
		return true
	}
	return false
}

// Fields returns the schema in canonical order.
func Fields() []Field {
	out := make([]Field, NumFields)
	for i := range out {
		out[i] = Field(i)
	}
	return out
}

// FieldByLabel resolves an exact label. No case folding is applied.
func FieldByLabel(label string) (Field, bool) {
	for i, l := range fieldLabels {
		if l == label {
			return Field(i), true
		}
	}
	return 0, false
}

const (
	// ErrorMarker fills every field of a row whose generation call failed.
	ErrorMarker = "Error"
	// NoCaseID is what the model writes when the email carries no case number.
	NoCaseID = "NA"
	// OriginalEmailColumn heads the export, before the schema fields.
	OriginalEmailColumn = "Original Email"
)

var IssueCategories = []string{
	"Housing Issue",
	"Salary Issue",
	"Tuition Issue",
	"TWIMC",
	"Academic Achievement",
	"National Service",
	"Transcript Not Submitted",
	"Poor academic performance",
	"Inconsistent Communication",
}

var TierClassifications = []string{
	"Tier 1: Safety & Behavioral Concerns",
	"Tier 2: Academic Concern",
	"Tier 3: Accommodation Concern",
	"Other Issue",
}

var HandoverItems = []string{
	"Housing Payment",
	"Housing Updates",
	"TWIMC Letter",
	"Pending Tuition Fees",
	"Salary Issue",
	"Nothing",
}

// Vocabulary returns the closed category set for a categorical field,
// or nil for free-text fields.
func Vocabulary(f Field) []string {
	switch f {
	case IssueCategory:
		return IssueCategories
	case TierClassification:
		return TierClassifications
	case HandoverItem:
		return HandoverItems
	}
	return nil
}

// Canonical maps value onto the vocabulary entry it matches ignoring case
// and surrounding space. Values outside the vocabulary come back trimmed
// but otherwise untouched.
func Canonical(vocab []string, value string) (string, bool) {
	v := strings.TrimSpace(value)
	for _, entry := range vocab {
		if strings.EqualFold(entry, v) {
			return entry, true
		}
	}
	return v, false
}

// InputItem is one email thread as read from the uploaded sheet.
type InputItem struct {
	Row   int // 1-based data row in the source sheet
	Email string
}

// Record is one extracted case, indexed by Field.
type Record [NumFields]string

func (r Record) Get(f Field) string { return r[f] }

func (r *Record) Set(f Field, v string) { r[f] = v }

// ErrorRecord is the sentinel standing in for a failed generation call.
func ErrorRecord() Record {
	var r Record
	for i := range r {
		r[i] = ErrorMarker
	}
	return r
}

// OutputRow is a Record joined with the email it came from.
type OutputRow struct {
	Email  string
	Record Record
}

// Header is the export column order.
func Header() []string {
	out := make([]string, 0, NumFields+1)
	out = append(out, OriginalEmailColumn)
	for _, l := range fieldLabels {
		out = append(out, l)
	}
	return out
}

// Values flattens the row in Header order.
func (o OutputRow) Values() []string {
	out := make([]string, 0, NumFields+1)
	out = append(out, o.Email)
	out = append(out, o.Record[:]...)
	return out
}
