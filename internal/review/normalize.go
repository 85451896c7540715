package review

import "github.com/Mindbaseeducation/khotwa-email-review-app/internal/domain"

// backfillShared copies shared fields the model left empty on later
// records from the first record of the same email. Non-empty values are
// never overwritten.
func backfillShared(records []domain.Record) {
	if len(records) < 2 {
		return
	}
	first := records[0]
	for i := 1; i < len(records); i++ {
		for _, f := range domain.Fields() {
			if f.Shared() && records[i].Get(f) == "" {
				records[i].Set(f, first.Get(f))
			}
		}
	}
}

// normalize rewrites categorical values onto their vocabulary spelling and
// collapses a multi-valued HandoverItem to its most urgent entry. Values the
// vocabularies do not know are kept as the model wrote them.
func normalize(rec domain.Record, policy domain.HandoverPolicy) domain.Record {
	for _, f := range []domain.Field{domain.IssueCategory, domain.TierClassification} {
		if v := rec.Get(f); v != "" {
			canon, _ := domain.Canonical(domain.Vocabulary(f), v)
			rec.Set(f, canon)
		}
	}
	if v := rec.Get(domain.HandoverItem); v != "" {
		rec.Set(domain.HandoverItem, policy.Resolve(v))
	}
	return rec
}
