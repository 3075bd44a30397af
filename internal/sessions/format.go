package sessions

import (
	"fmt"
	"strings"
	"time"
)

// FormatSummary renders a session summary for chat surfaces
func FormatSummary(s Summary) string {
	var b strings.Builder

	if s.Completed {
		b.WriteString("✅ 세션 완료\n\n")
	} else {
		b.WriteString("⏹ 세션 종료\n\n")
	}
	fmt.Fprintf(&b, "📌 문제: %s\n", s.Problem)
	fmt.Fprintf(&b, "🔧 사용 방법: %s\n", s.Method)
	fmt.Fprintf(&b, "📊 답변: %d/%d\n\n", s.AnswersProvided, s.TotalQuestions)
	fmt.Fprintf(&b, "💡 인사이트:\n%s\n\n", s.Insights)
	b.WriteString("다음 단계:\n")
	b.WriteString("- 다른 방법론 시도: /method:[방법론]\n")
	b.WriteString("- 새 문제 분석: /think [문제]\n")
	b.WriteString("- 도움말: /help")

	return b.String()
}

// FormatHistory renders stored sessions as a short list
func FormatHistory(states []*State) string {
	if len(states) == 0 {
		return "저장된 세션이 없습니다."
	}

	var b strings.Builder
	b.WriteString("🗂 최근 세션\n")
	for _, s := range states {
		status := "진행 중"
		if s.IsCompleted {
			status = "완료"
		}
		fmt.Fprintf(&b, "\n• %s (%s)\n  %s · %d/%d · %s · %s",
			truncate(s.Problem, 40), s.SessionID, s.MethodName,
			s.CurrentStep, s.TotalSteps, status, FormatTimeAgo(s.UpdatedAt))
	}
	return b.String()
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "…"
}

// FormatTimeAgo returns a human-readable time difference in Korean
func FormatTimeAgo(t time.Time) string {
	return formatTimeAgo(t, time.Now())
}

func formatTimeAgo(t, now time.Time) string {
	diff := now.Sub(t)

	switch {
	case diff < time.Minute:
		return "방금 전"
	case diff < time.Hour:
		return fmt.Sprintf("%d분 전", int(diff.Minutes()))
	case diff < 24*time.Hour:
		return fmt.Sprintf("%d시간 전", int(diff.Hours()))
	case diff < 7*24*time.Hour:
		return fmt.Sprintf("%d일 전", int(diff.Hours()/24))
	default:
		return t.Local().Format("2006.01.02")
	}
}
