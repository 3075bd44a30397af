package classifier

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/igoryan-dao/thinking-tools/internal/catalog"
)

func ids(r Result) []string {
	out := make([]string, 0, len(r.Recommended))
	for _, m := range r.Recommended {
		out = append(out, m.ID)
	}
	return out
}

func TestClassify_RootCauseProblem(t *testing.T) {
	c := New(catalog.MustDefault())

	got := c.Classify("왜 매출이 떨어지는지 모르겠어요")

	assert.Equal(t, catalog.Analytical, got.Category)
	assert.InDelta(t, 1.0, got.Confidence, 1e-9)
	require.NotEmpty(t, got.Recommended)
	assert.Equal(t, "five_whys", got.Recommended[0].ID)
	assert.Equal(t, "귀하의 문제는 '분석적 접근'이 필요합니다. (신뢰도: 높음)", got.Reasoning)
}

func TestClassify_NoMatches(t *testing.T) {
	c := New(catalog.MustDefault())

	got := c.Classify("")

	assert.Equal(t, catalog.Analytical, got.Category)
	assert.Zero(t, got.Confidence)
	assert.Equal(t, []string{"five_whys", "fishbone", "systems_thinking"}, ids(got))
	assert.Contains(t, got.Reasoning, "낮음")
}

func TestClassify_TieGoesToFirstDeclared(t *testing.T) {
	c := New(catalog.MustDefault())

	got := c.Classify("team idea")
	assert.Equal(t, catalog.Creative, got.Category)
	assert.InDelta(t, 0.5, got.Confidence, 1e-9)
	assert.Contains(t, got.Reasoning, "중간")

	got = c.Classify("팀 전략")
	assert.Equal(t, catalog.Strategic, got.Category)
}

func TestClassify_UppercaseKeywordsMatch(t *testing.T) {
	c := New(catalog.MustDefault())

	got := c.Classify("SWOT 전략")

	assert.Equal(t, catalog.Strategic, got.Category)
	assert.Equal(t, []string{"swot", "scenario_planning", "porter_five_forces"}, ids(got))
}

func TestClassify_UnionHasNoDuplicates(t *testing.T) {
	c := New(catalog.MustDefault())

	got := c.Classify("제품 개선 고객")

	assert.Equal(t, catalog.Product, got.Category)
	assert.Equal(t, []string{"jobs_to_be_done", "scamper", "design_thinking"}, ids(got))
}

func TestClassify_RuleCandidatesFollowPrimary(t *testing.T) {
	tables := DefaultTables()
	tables.CategoryMethods = map[catalog.Category][]string{}
	c := NewWithTables(catalog.MustDefault(), tables)

	got := c.Classify("리스크와 비용")

	assert.Equal(t, []string{"cost_benefit", "pre_mortem"}, ids(got))
}

func TestClassify_UnknownIDsDropped(t *testing.T) {
	small, err := catalog.New([]catalog.MethodTemplate{{
		ID:        "five_whys",
		Name:      "5 WHYS",
		Category:  catalog.Analytical,
		Steps:     1,
		Questions: []string{"왜?"},
		BestFor:   "원인",
	}})
	require.NoError(t, err)

	got := New(small).Classify("왜 원인이 뭘까")

	assert.Equal(t, []string{"five_whys"}, ids(got))
}

func TestClassify_Deterministic(t *testing.T) {
	c := New(catalog.MustDefault())
	inputs := []string{
		"왜 매출이 떨어지는지 모르겠어요",
		"팀 생산성과 프로세스 개선, 미래 전략",
		"인생의 경력 선택이 고민이에요",
		"",
	}

	for _, in := range inputs {
		assert.Equal(t, c.Classify(in), c.Classify(in), in)
	}
}

func TestClassify_AtMostThree(t *testing.T) {
	c := New(catalog.MustDefault())

	got := c.Classify("미래 시나리오 리스크 투자 결정 후회 편향 팀 제품 원인")

	assert.LessOrEqual(t, len(got.Recommended), MaxRecommendations)
}

func TestMethodRule_MinOccurrences(t *testing.T) {
	r := MethodRule{Keywords: []string{"왜", "why"}, MinOccurrences: 2, Methods: []string{"five_whys"}}

	assert.False(t, r.fires("왜 그럴까"))
	assert.True(t, r.fires("왜? 왜 그럴까"))
	assert.True(t, r.fires("why oh why"))

	single := MethodRule{Keywords: []string{"bcg"}}
	assert.True(t, single.fires("bcg 매트릭스"))
}

func TestFormatRecommendations(t *testing.T) {
	c := New(catalog.MustDefault())

	out := FormatRecommendations(c.Classify("왜 매출이 떨어지는지 모르겠어요"))

	assert.True(t, strings.HasPrefix(out, "🎯 문제 분석 완료"))
	assert.Contains(t, out, "1. 5 WHYS")
	assert.Contains(t, out, "단계 수: 5")
	assert.Contains(t, out, "/auto")
}

func TestFormatRecommendations_Empty(t *testing.T) {
	out := FormatRecommendations(Result{Reasoning: Reasoning(catalog.Analytical, 0)})

	assert.Contains(t, out, "/method:")
}
