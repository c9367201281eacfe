package rag

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/yungbote/lexgraph/internal/domain"
)

// Planner classifies a natural-language question into a QueryPlan. It is a
// regex-based classifier covering Portuguese and English phrasings of the
// three question families; anything else becomes a semantic plan.
type Planner struct {
	datePatterns       []*regexp.Regexp
	fullDatePattern    *regexp.Regexp
	articlePatterns    []*regexp.Regexp
	amendmentPatterns  []*regexp.Regexp
	provenancePatterns []*regexp.Regexp
}

func NewPlanner() *Planner {
	compile := func(patterns ...string) []*regexp.Regexp {
		out := make([]*regexp.Regexp, len(patterns))
		for i, p := range patterns {
			out[i] = regexp.MustCompile(`(?i)` + p)
		}
		return out
	}
	return &Planner{
		datePatterns: compile(
			`em\s+(\d{4})`,
			`in\s+(\d{4})`,
			`antes\s+d[aeo]\s+(\d{4})`,
			`before\s+(\d{4})`,
			`after\s+(\d{4})`,
			`ap[oó]s\s+(\d{4})`,
		),
		fullDatePattern: regexp.MustCompile(`(\d{1,2})[/.-](\d{1,2})[/.-](\d{4})`),
		articlePatterns: compile(
			`art(?:igo)?\.?\s*(\d+)`,
			`article\s*(\d+)`,
		),
		amendmentPatterns: compile(
			`emenda\s+(?:constitucional\s+)?(?:n[º°]?\s*)?(\d+)`,
			`ec\s*(\d+)`,
			`amendment\s*(?:no?\.?\s*)?(\d+)`,
		),
		provenancePatterns: compile(
			`quem\s+(?:incluiu|adicionou|modificou|alterou)`,
			`quando\s+foi\s+(?:inclu[ií]do|adicionado|modificado)`,
			`who\s+added`,
			`when\s+was\s+.+\s+(?:added|modified|changed)`,
			`qual\s+emenda`,
			`which\s+amendment`,
			`hist[oó]rico`,
			`history`,
			`evolu[cç][aã]o`,
			`mudou`,
			`changed`,
		),
	}
}

// Plan classifies the question and extracts its parameters.
func (p *Planner) Plan(query string) domain.QueryPlan {
	targetDate := p.extractDate(query)
	article := p.extractArticle(query)
	amendment := p.extractAmendment(query)
	isProvenance := p.isProvenance(query)

	var kind domain.QueryKind
	switch {
	case isProvenance || amendment > 0:
		kind = domain.QueryProvenance
	case targetDate != "" && article != "":
		kind = domain.QueryPointInTime
	case targetDate != "":
		kind = domain.QueryHybrid
	default:
		kind = domain.QuerySemantic
	}

	var component string
	if article != "" {
		component = "art_" + article
	}
	return domain.QueryPlan{
		Kind:            kind,
		OriginalQuery:   query,
		TargetDate:      targetDate,
		TargetComponent: component,
		AmendmentNumber: amendment,
		SemanticQuery:   p.stripDates(query),
	}
}

func (p *Planner) extractDate(query string) string {
	if m := p.fullDatePattern.FindStringSubmatch(query); m != nil {
		day, _ := strconv.Atoi(m[1])
		month, _ := strconv.Atoi(m[2])
		date := fmt.Sprintf("%s-%02d-%02d", m[3], month, day)
		if domain.ValidDate(date) {
			return date
		}
	}
	for _, re := range p.datePatterns {
		if m := re.FindStringSubmatch(query); m != nil {
			// Year-only references resolve to mid-year.
			return m[1] + "-07-01"
		}
	}
	return ""
}

func (p *Planner) extractArticle(query string) string {
	for _, re := range p.articlePatterns {
		if m := re.FindStringSubmatch(query); m != nil {
			return m[1]
		}
	}
	return ""
}

func (p *Planner) extractAmendment(query string) int {
	for _, re := range p.amendmentPatterns {
		if m := re.FindStringSubmatch(query); m != nil {
			n, err := strconv.Atoi(m[1])
			if err == nil {
				return n
			}
		}
	}
	return 0
}

func (p *Planner) isProvenance(query string) bool {
	for _, re := range p.provenancePatterns {
		if re.MatchString(query) {
			return true
		}
	}
	return false
}

func (p *Planner) stripDates(query string) string {
	out := p.fullDatePattern.ReplaceAllString(query, "")
	for _, re := range p.datePatterns {
		out = re.ReplaceAllString(out, "")
	}
	return strings.TrimSpace(out)
}
