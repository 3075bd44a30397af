package trigger

import (
	"fmt"
	"strings"
)

// HelpMessage renders the command reference for the detector's vocabulary
func (d *Detector) HelpMessage() string {
	t := d.tokens
	var b strings.Builder

	b.WriteString("🤖 Innovator's Thinking Tools\n\n")

	b.WriteString("== 활성화 ==\n")
	for _, phrase := range t.Activation {
		if strings.HasPrefix(phrase, "/") {
			fmt.Fprintf(&b, "%s [문제]\n", phrase)
		}
	}
	b.WriteString("씽킹툴 [문제]      - 사고 도구 시작\n\n")

	b.WriteString("== 방법론 선택 ==\n")
	b.WriteString("/1, /2, /3         - 추천된 방법론 선택\n")
	fmt.Fprintf(&b, "%sscamper    - 특정 방법론 선택\n", t.Method)
	fmt.Fprintf(&b, "%s              - 자동 선택\n\n", t.Auto)

	b.WriteString("== 기타 ==\n")
	fmt.Fprintf(&b, "%s [검색어]    - 관련 방법론 검색\n", t.Search)
	fmt.Fprintf(&b, "%s              - 세션 종료\n", t.Done)
	fmt.Fprintf(&b, "%s              - 이 도움말\n\n", t.Help)

	b.WriteString("== 사용 예시 ==\n")
	b.WriteString("\"씽킹툴 사용해서 팀 생산성 문제 분석해줘\"\n")
	b.WriteString("\"대학원에 가야 할지 고민이에요 /think\"\n")
	b.WriteString("→ 문제 분석 후 방법론 추천")

	return b.String()
}
