package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/igoryan-dao/thinking-tools/internal/conversation"
	"github.com/igoryan-dao/thinking-tools/internal/trigger"
)

const (
	demoPrompt    = "사용자: "
	demoSilent    = "MCP: [잠수함 모드 - 조용히 대기]"
	demoDormant   = "MCP: [잠수함 모드로 복귀]"
	demoExitToken = "exit"
)

type handler interface {
	Handle(ctx context.Context, text string) conversation.Reply
}

func plainRender(s string) string { return s }

// runDemo is a line-oriented REPL over one conversation. It stops on
// "exit", EOF or ctx cancellation.
func runDemo(ctx context.Context, h handler, in io.Reader, out io.Writer, render func(string) string) error {
	fmt.Fprintln(out, "\n=== 대화형 데모 ===")
	fmt.Fprintf(out, "종료하려면 '%s' 입력\n\n", demoExitToken)

	scanner := bufio.NewScanner(in)
	for {
		if ctx.Err() != nil {
			return nil
		}
		fmt.Fprint(out, demoPrompt)
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}

		line := strings.TrimSpace(scanner.Text())
		if strings.EqualFold(line, demoExitToken) {
			return nil
		}

		reply := h.Handle(ctx, line)
		if reply.Silent {
			fmt.Fprintf(out, "%s\n\n", demoSilent)
			continue
		}
		if reply.Text != "" {
			fmt.Fprintf(out, "MCP:\n%s\n\n", render(reply.Text))
		}
		if reply.Action == trigger.ActionTerminate {
			fmt.Fprintf(out, "%s\n\n", demoDormant)
		}
	}
}
