package classifier

import "github.com/igoryan-dao/thinking-tools/internal/catalog"

// CategoryKeywords is an ordered keyword list for one category
type CategoryKeywords struct {
	Category catalog.Category
	Keywords []string
}

// MethodRule adds extra method candidates when any of its keywords appears
// in the text at least MinOccurrences times (1 when zero).
type MethodRule struct {
	Keywords       []string
	MinOccurrences int
	Methods        []string
}

// Tables is the static data the classifier scores against.
// Category order in Keywords decides ties.
type Tables struct {
	Keywords        []CategoryKeywords
	CategoryMethods map[catalog.Category][]string
	MethodRules     []MethodRule
}

// DefaultTables returns the built-in keyword and method tables
func DefaultTables() Tables {
	return Tables{
		Keywords:        defaultKeywords(),
		CategoryMethods: defaultCategoryMethods(),
		MethodRules:     defaultMethodRules(),
	}
}

func defaultKeywords() []CategoryKeywords {
	return []CategoryKeywords{
		{catalog.Analytical, []string{
			"왜", "이유", "원인", "분석", "why", "cause", "reason",
			"근본", "root", "문제", "problem", "인과관계", "causal",
		}},
		{catalog.Creative, []string{
			"창의적", "혁신", "새로운", "아이디어", "creative", "innovative",
			"idea", "brainstorm", "상상", "imagine",
		}},
		{catalog.Strategic, []string{
			"전략", "미래", "계획", "목표", "strategy", "future", "plan",
			"비전", "vision", "장기", "long-term", "의사결정", "결정",
			"선택", "decision", "choice", "투자", "investment", "ROI",
			"BCG", "SWOT", "포터", "Porter", "경쟁", "competitive",
			"시장분석", "market analysis", "포트폴리오", "portfolio",
			"사업전략", "business strategy", "성장전략", "growth",
			"인수합병", "M&A", "리스크", "risk", "기회비용", "opportunity cost",
			"시나리오", "scenario", "불확실성", "uncertainty",
		}},
		{catalog.Technical, []string{
			"기술", "제품", "시스템", "technical", "product", "system",
			"개발", "develop", "설계", "design",
		}},
		{catalog.Product, []string{
			"제품", "서비스", "개선", "product", "service", "improve",
			"고객", "customer", "사용자", "user",
		}},
		{catalog.Organizational, []string{
			"조직", "팀", "프로세스", "organization", "team", "process",
			"생산성", "productivity", "효율", "efficiency",
		}},
		{catalog.Personal, []string{
			"개인", "자기", "personal", "self", "성장", "growth",
			"인생", "life", "경력", "career", "후회", "regret",
		}},
	}
}

func defaultCategoryMethods() map[catalog.Category][]string {
	return map[catalog.Category][]string{
		catalog.Analytical:     {"five_whys", "fishbone", "systems_thinking"},
		catalog.Creative:       {"scamper", "six_hats", "reverse_brainstorming"},
		catalog.Strategic:      {"swot", "scenario_planning", "porter_five_forces", "decision_tree"},
		catalog.Technical:      {"first_principles", "triz", "systems_thinking"},
		catalog.Product:        {"jobs_to_be_done", "scamper", "design_thinking"},
		catalog.Organizational: {"six_hats", "pre_mortem", "fishbone"},
		catalog.Personal:       {"regret_minimization", "mental_models", "cost_benefit"},
	}
}

func defaultMethodRules() []MethodRule {
	return []MethodRule{
		{Keywords: []string{"왜", "why"}, MinOccurrences: 2, Methods: []string{"five_whys"}},
		{Keywords: []string{"제품", "product"}, Methods: []string{"scamper"}},
		{Keywords: []string{"미래", "future", "시나리오"}, Methods: []string{"scenario_planning"}},
		{Keywords: []string{"팀", "조직", "team", "organization"}, Methods: []string{"six_hats"}},
		{Keywords: []string{"결정", "decision", "선택", "choice"}, Methods: []string{"decision_tree"}},
		{Keywords: []string{"swot"}, Methods: []string{"swot"}},
		{Keywords: []string{"bcg"}, Methods: []string{"bcg_matrix"}},
		{Keywords: []string{"포터", "porter", "경쟁", "competitive"}, Methods: []string{"porter_five_forces"}},
		{Keywords: []string{"원인", "cause", "인과"}, Methods: []string{"fishbone", "systems_thinking"}},
		{Keywords: []string{"투자", "investment", "비용", "cost"}, Methods: []string{"cost_benefit"}},
		{Keywords: []string{"리스크", "risk", "실패", "fail"}, Methods: []string{"pre_mortem"}},
		{Keywords: []string{"후회", "regret", "인생", "life"}, Methods: []string{"regret_minimization"}},
		{Keywords: []string{"편향", "bias", "객관"}, Methods: []string{"mental_models"}},
	}
}
