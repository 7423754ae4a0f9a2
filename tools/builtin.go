package tools

import (
	"context"
	"fmt"
	"sort"
	"strings"
)

// builtinConstructors returns the native tool table. Every tool takes one
// generic string argument; record-oriented tools read newline-separated
// values, the similarity tool splits its two lists on a "---" line.
func builtinConstructors() map[string]Constructor {
	native := func(name, description string, fn Func) Constructor {
		return func() Handle {
			return &funcHandle{name: name, description: description, kind: KindNative, fn: fn}
		}
	}
	return map[string]Constructor{
		"simple_research_tool": native("simple_research_tool",
			"Researches a topic and returns a textual summary", SimpleResearch),
		"read_records": native("read_records",
			"Reads newline-separated records and returns structural information", ReadRecords),
		"compare_text_similarity": native("compare_text_similarity",
			"Matches each record of the first list against the second by similarity", CompareTextSimilarity),
		"analyze_similarity": native("analyze_similarity",
			"Full similarity analysis with score statistics and recommendations", AnalyzeSimilarity),
		"detect_data_patterns": native("detect_data_patterns",
			"Detects structural patterns in a list of records", DetectDataPatterns),
		"generate_report": native("generate_report",
			"Builds a structured markdown report from analysis text", GenerateReport),
		"validate_records": native("validate_records",
			"Validates a record list and flags common data problems", ValidateRecords),
	}
}

func splitRecords(input string) []string {
	var records []string
	for _, line := range strings.Split(input, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			records = append(records, line)
		}
	}
	return records
}

// SimpleResearch validates the topic and returns a research summary. Topics
// shorter than three characters are rejected with an explanatory string, not
// an error, matching the lenient tool contract.
func SimpleResearch(_ context.Context, topic string) (string, error) {
	topic = strings.TrimSpace(topic)
	if len(topic) < 3 {
		return "Error: research topic too short or empty. Provide a topic with at least 3 characters.", nil
	}
	return fmt.Sprintf("Research summary for %q:\n"+
		"No external search backend is configured; treat this as an outline request.\n"+
		"Key aspects to cover: definition, current state, notable sources.", topic), nil
}

// ReadRecords returns structural information about a record list.
func ReadRecords(_ context.Context, input string) (string, error) {
	records := splitRecords(input)
	unique := make(map[string]struct{}, len(records))
	total := 0
	for _, r := range records {
		unique[r] = struct{}{}
		total += len(r)
	}
	avg := 0.0
	if len(records) > 0 {
		avg = float64(total) / float64(len(records))
	}
	return fmt.Sprintf("records: %d\nunique: %d\navg_length: %.1f",
		len(records), len(unique), avg), nil
}

// TokenSortRatio scores the similarity of two strings in [0,100]. Tokens are
// lower-cased and sorted before a Levenshtein comparison, so word order does
// not matter.
func TokenSortRatio(a, b string) int {
	na, nb := normalizeTokens(a), normalizeTokens(b)
	if na == "" && nb == "" {
		return 100
	}
	maxLen := len(na)
	if len(nb) > maxLen {
		maxLen = len(nb)
	}
	if maxLen == 0 {
		return 100
	}
	dist := levenshtein(na, nb)
	return int(100 * (1 - float64(dist)/float64(maxLen)))
}

func normalizeTokens(s string) string {
	fields := strings.Fields(strings.ToLower(s))
	sort.Strings(fields)
	return strings.Join(fields, " ")
}

func levenshtein(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(ra); i++ {
		curr[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			curr[j] = min3(curr[j-1]+1, prev[j]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(rb)]
}

func min3(a, b, c int) int {
	if b < a {
		a = b
	}
	if c < a {
		a = c
	}
	return a
}

// bestMatch returns the candidate with the highest token-sort ratio.
func bestMatch(text string, candidates []string) (string, int) {
	best, bestScore := "", -1
	for _, c := range candidates {
		if score := TokenSortRatio(text, c); score > bestScore {
			best, bestScore = c, score
		}
	}
	return best, bestScore
}

// CompareTextSimilarity matches each record of the first list against the
// best candidate of the second. Lists are separated by a "---" line.
func CompareTextSimilarity(_ context.Context, input string) (string, error) {
	parts := strings.SplitN(input, "\n---\n", 2)
	if len(parts) != 2 {
		return "", fmt.Errorf("expected two record lists separated by a --- line")
	}
	list1, list2 := splitRecords(parts[0]), splitRecords(parts[1])
	if len(list1) == 0 || len(list2) == 0 {
		return "", fmt.Errorf("both record lists must be non-empty")
	}
	var sb strings.Builder
	for _, text := range list1 {
		match, score := bestMatch(text, list2)
		fmt.Fprintf(&sb, "%s -> %s (score %d)\n", text, match, score)
	}
	return strings.TrimRight(sb.String(), "\n"), nil
}

// AnalyzeSimilarity runs the full similarity analysis: per-record matches,
// score statistics, and recommendations.
func AnalyzeSimilarity(ctx context.Context, input string) (string, error) {
	parts := strings.SplitN(input, "\n---\n", 2)
	if len(parts) != 2 {
		return "", fmt.Errorf("expected two record lists separated by a --- line")
	}
	list1, list2 := splitRecords(parts[0]), splitRecords(parts[1])
	if len(list1) == 0 || len(list2) == 0 {
		return "", fmt.Errorf("both record lists must be non-empty")
	}

	var scores []int
	for _, text := range list1 {
		_, score := bestMatch(text, list2)
		scores = append(scores, score)
	}
	sum, maxS, minS := 0, scores[0], scores[0]
	high, medium, low := 0, 0, 0
	for _, s := range scores {
		sum += s
		if s > maxS {
			maxS = s
		}
		if s < minS {
			minS = s
		}
		switch {
		case s >= 80:
			high++
		case s >= 50:
			medium++
		default:
			low++
		}
	}
	avg := float64(sum) / float64(len(scores))

	matches, err := CompareTextSimilarity(ctx, input)
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	sb.WriteString("=== SIMILARITY ANALYSIS ===\n\n")
	fmt.Fprintf(&sb, "items compared: %d vs %d\n", len(list1), len(list2))
	fmt.Fprintf(&sb, "average score: %.2f\nmax score: %d\nmin score: %d\n", avg, maxS, minS)
	fmt.Fprintf(&sb, "high (>=80): %d\nmedium (50-79): %d\nlow (<50): %d\n\n", high, medium, low)
	sb.WriteString("MATCHES:\n")
	sb.WriteString(matches)
	sb.WriteString("\n\nRECOMMENDATIONS:\n")
	for _, rec := range similarityRecommendations(avg, high, len(scores)) {
		sb.WriteString("- " + rec + "\n")
	}
	return strings.TrimRight(sb.String(), "\n"), nil
}

func similarityRecommendations(avg float64, high, total int) []string {
	var recs []string
	switch {
	case avg >= 85:
		recs = append(recs, "High overall similarity - the data sets are closely aligned")
	case avg >= 70:
		recs = append(recs, "Moderate similarity - check for inconsistencies")
	default:
		recs = append(recs, "Low similarity - possible data problem")
	}
	ratio := float64(high) / float64(total)
	switch {
	case ratio >= 0.8:
		recs = append(recs, "More than 80% of the items have high similarity")
	case ratio >= 0.5:
		recs = append(recs, "Only about half of the items have high similarity")
	default:
		recs = append(recs, "Less than half of the items have high similarity")
	}
	return recs
}

// DetectDataPatterns summarizes structural patterns in a record list.
func DetectDataPatterns(_ context.Context, input string) (string, error) {
	records := splitRecords(input)
	if len(records) == 0 {
		return "", fmt.Errorf("no records provided")
	}
	unique := make(map[string]int, len(records))
	totalLen, maxLen := 0, 0
	minLen := len(records[0])
	for _, r := range records {
		unique[r]++
		totalLen += len(r)
		if len(r) > maxLen {
			maxLen = len(r)
		}
		if len(r) < minLen {
			minLen = len(r)
		}
	}
	duplicates := len(records) - len(unique)

	var sb strings.Builder
	sb.WriteString("=== DATA PATTERNS ===\n")
	fmt.Fprintf(&sb, "records: %d\nunique: %d\nduplicates: %d\n", len(records), len(unique), duplicates)
	fmt.Fprintf(&sb, "avg_length: %.1f\nmax_length: %d\nmin_length: %d\n",
		float64(totalLen)/float64(len(records)), maxLen, minLen)
	if prefixes := commonAffixes(records, true); len(prefixes) > 0 {
		fmt.Fprintf(&sb, "common_prefixes: %s\n", strings.Join(prefixes, ", "))
	}
	if suffixes := commonAffixes(records, false); len(suffixes) > 0 {
		fmt.Fprintf(&sb, "common_suffixes: %s\n", strings.Join(suffixes, ", "))
	}
	return strings.TrimRight(sb.String(), "\n"), nil
}

// commonAffixes finds 1-5 rune prefixes (or suffixes) shared by at least 10%
// of the records, capped at five results.
func commonAffixes(records []string, prefix bool) []string {
	threshold := len(records) / 10
	if threshold < 2 {
		threshold = 2
	}
	seen := make(map[string]int)
	for _, r := range records {
		runes := []rune(r)
		for i := 1; i <= 5 && i <= len(runes); i++ {
			var affix string
			if prefix {
				affix = string(runes[:i])
			} else {
				affix = string(runes[len(runes)-i:])
			}
			seen[affix]++
		}
	}
	var out []string
	for affix, count := range seen {
		if count >= threshold {
			out = append(out, affix)
		}
	}
	sort.Strings(out)
	if len(out) > 5 {
		out = out[:5]
	}
	return out
}

// ValidateRecords checks a record list for common data problems.
func ValidateRecords(_ context.Context, input string) (string, error) {
	lines := strings.Split(input, "\n")
	records := splitRecords(input)
	empty := len(lines) - len(records)
	unique := make(map[string]struct{}, len(records))
	for _, r := range records {
		unique[r] = struct{}{}
	}
	duplicates := len(records) - len(unique)

	var issues []string
	if len(records) == 0 {
		issues = append(issues, "input is empty")
	}
	if len(records) > 0 && duplicates > len(records)/10 {
		issues = append(issues, "more than 10% of the records are duplicated")
	}
	if empty > len(lines)/2 {
		issues = append(issues, "more than 50% of the lines are blank")
	}

	var sb strings.Builder
	sb.WriteString("=== VALIDATION ===\n")
	fmt.Fprintf(&sb, "valid: %t\nrecords: %d\nblank_lines: %d\nduplicates: %d\n",
		len(issues) == 0, len(records), empty, duplicates)
	if len(issues) > 0 {
		sb.WriteString("issues:\n")
		for _, issue := range issues {
			sb.WriteString("- " + issue + "\n")
		}
	}
	return strings.TrimRight(sb.String(), "\n"), nil
}

// GenerateReport wraps analysis text in a structured markdown report.
func GenerateReport(_ context.Context, analysis string) (string, error) {
	var sb strings.Builder
	sb.WriteString("# Data Analysis Report\n\n## Summary\n\n")
	if strings.TrimSpace(analysis) == "" {
		sb.WriteString("No analysis content provided.\n")
	} else {
		sb.WriteString(analysis)
		sb.WriteString("\n")
	}
	sb.WriteString("\n## Notes\n\n- Generated by crewdeck's report tool.\n")
	return sb.String(), nil
}
