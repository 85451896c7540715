package extract

import (
	"strings"

	"github.com/Mindbaseeducation/khotwa-email-review-app/internal/domain"
)

// splitBlocks breaks the reply into groups of non-blank lines. Any run of
// blank (or whitespace-only) lines separates two blocks.
func splitBlocks(response string) [][]string {
	response = strings.ReplaceAll(response, "\r\n", "\n")
	response = strings.ReplaceAll(response, "\r", "\n")

	var blocks [][]string
	var cur []string
	for _, line := range strings.Split(response, "\n") {
		if strings.TrimSpace(line) == "" {
			if len(cur) > 0 {
				blocks = append(blocks, cur)
				cur = nil
			}
			continue
		}
		cur = append(cur, line)
	}
	if len(cur) > 0 {
		blocks = append(blocks, cur)
	}
	return blocks
}

// parseBlock collects "Label: value" lines, splitting on the first colon
// only. Lines without a colon are dropped. A repeated label keeps its last
// value.
func parseBlock(lines []string) map[string]string {
	fields := make(map[string]string, len(lines))
	for _, line := range lines {
		key, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		fields[strings.TrimSpace(key)] = strings.TrimSpace(value)
	}
	return fields
}

// ParseResponse turns the model's reply into one Record per block. It never
// fails: labels are matched exactly and a field missing from a block is
// left empty. Blocks that carry none of the schema labels (stray
// commentary) are skipped, so a reply without any record yields an empty
// slice.
func ParseResponse(response string) []domain.Record {
	blocks := splitBlocks(response)
	records := make([]domain.Record, 0, len(blocks))
	for _, block := range blocks {
		fields := parseBlock(block)
		var rec domain.Record
		found := false
		for _, f := range domain.Fields() {
			if v, ok := fields[f.Label()]; ok {
				rec.Set(f, v)
				found = true
			}
		}
		if !found {
			continue
		}
		records = append(records, rec)
	}
	return records
}
