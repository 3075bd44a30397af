package format

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

const question = "[방법론: 5 WHYS - ANALYTICAL]\n질문 1/5: <배포>에 대해 생각해봅시다. 왜 이 문제가 발생했나요?"

func TestToTelegramHTML(t *testing.T) {
	got := ToTelegramHTML(question)
	assert.Equal(t,
		"<b>[방법론: 5 WHYS - ANALYTICAL]</b>\n<b>질문 1/5</b>: &lt;배포&gt;에 대해 생각해봅시다. 왜 이 문제가 발생했나요?",
		got)

	assert.Empty(t, ToTelegramHTML(""))
}

func TestToTelegramHTML_SummaryAndCommands(t *testing.T) {
	in := "✅ 세션 완료\n\n📌 문제: A & B\n다음 단계:\n- 새 문제 분석: /think [문제]\n- 다른 방법론 시도: /method:[방법론]"
	got := ToTelegramHTML(in)

	assert.Contains(t, got, "✅ <b>세션 완료</b>")
	assert.Contains(t, got, "📌 <b>문제</b>: A &amp; B")
	assert.Contains(t, got, "<code>/think</code> [문제]")
	assert.Contains(t, got, "<code>/method:[방법론]</code>")
}

func TestToDiscordMarkdown(t *testing.T) {
	got := ToDiscordMarkdown(question)
	assert.Contains(t, got, "**[방법론: 5 WHYS - ANALYTICAL]**")
	assert.Contains(t, got, "**질문 1/5**:")
	assert.Contains(t, got, `\>에 대해`)

	menu := ToDiscordMarkdown("🎯 문제 분석 완료\n1. SWOT Analysis\n답변에 *강조*")
	assert.Contains(t, menu, "🎯 **문제 분석 완료**")
	assert.Contains(t, menu, "**1.** SWOT Analysis")
	assert.Contains(t, menu, `\*강조\*`)
}

func TestEscape(t *testing.T) {
	assert.Equal(t, "&lt;b&gt; &amp;amp;", EscapeHTML("<b> &amp;"))
	assert.Equal(t, `five\_whys \| \~x\~`, EscapeMarkdown("five_whys | ~x~"))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "가나다", Truncate("가나다", 3))
	assert.Equal(t, "가나…", Truncate("가나다라", 3))
	assert.Equal(t, "abc", Truncate("abc", 0))
}
