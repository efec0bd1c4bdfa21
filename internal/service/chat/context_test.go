package chat

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/sandevgo/crmchat/internal/core"
)

func TestTruncateBody(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		budget int
		want   string
	}{
		{"under budget", "short", 10, "short"},
		{"exactly at budget", "12345", 5, "12345"},
		{"over budget", "123456", 5, "12345…"},
		{"zero budget passes through", "anything", 0, "anything"},
		{"multibyte runes cut on rune boundary", "héllo wörld", 7, "héllo w…"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := truncateBody(tt.body, tt.budget); got != tt.want {
				t.Errorf("truncateBody(%q, %d) = %q, want %q", tt.body, tt.budget, got, tt.want)
			}
		})
	}
}

func TestFormatMessagesLog_OldestFirst(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	// Storage order: newest first.
	msgs := []core.ConvMessage{
		{Body: "newest", OccurredAt: ptrTime(time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC))},
		{Body: "oldest", OccurredAt: ptrTime(time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC))},
	}
	log := env.svc.formatMessagesLog(msgs)
	if strings.Index(log, "oldest") > strings.Index(log, "newest") {
		t.Errorf("log should read oldest to newest:\n%s", log)
	}
}

func TestFormatMessagesLog_Empty(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	if got := env.svc.formatMessagesLog(nil); got != noRecentMessages {
		t.Errorf("got %q, want %q", got, noRecentMessages)
	}
}

func TestFormatMessageLine_Defaults(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	line := env.svc.formatMessageLine(core.ConvMessage{Direction: core.DirectionInbound, Body: "hi"})
	for _, want := range []string{"unknown time", "Customer", "(msg)"} {
		if !strings.Contains(line, want) {
			t.Errorf("line = %q, missing %q", line, want)
		}
	}

	line = env.svc.formatMessageLine(core.ConvMessage{Direction: core.DirectionOutbound})
	if !strings.Contains(line, "Agent") || !strings.Contains(line, "(no content)") {
		t.Errorf("unexpected outbound defaults: %q", line)
	}
}

func TestBuildContext_Sentinels(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	win, err := env.svc.buildContext(context.Background(), core.Contact{ID: "c-1", Name: "Jane Doe"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if win.OrdersText != noRecentOrders {
		t.Errorf("orders text = %q, want %q", win.OrdersText, noRecentOrders)
	}
	if win.MessagesLog != noRecentMessages {
		t.Errorf("messages log = %q, want %q", win.MessagesLog, noRecentMessages)
	}
	if win.MessageCount != 0 {
		t.Errorf("message count = %d, want 0", win.MessageCount)
	}
	if !strings.Contains(win.ProfileText, "- Name: Jane Doe") || !strings.Contains(win.ProfileText, "- Email: Unknown") {
		t.Errorf("unexpected profile text:\n%s", win.ProfileText)
	}
}

func TestTrimToBudget_KeepsNewestMessages(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	env.svc.budget.LightTokenLimit = 600

	lines := make([]string, 0, 200)
	for i := 0; i < 200; i++ {
		lines = append(lines, strings.Repeat("x", 40))
	}
	lines = append(lines, "FINAL-NEWEST-LINE")

	win := ContextWindow{
		ProfileText: "- Name: Jane Doe",
		OrdersText:  "o-1 • 2024-01-01 • paid • $10.00",
		MessagesLog: strings.Join(lines, "\n"),
	}
	trimmed := env.svc.trimToBudget(win, core.TierLight)

	if len(trimmed.MessagesLog) >= len(win.MessagesLog) {
		t.Fatal("messages log was not trimmed")
	}
	if !strings.Contains(trimmed.MessagesLog, "FINAL-NEWEST-LINE") {
		t.Error("trim must preserve the newest (trailing) lines")
	}
	if trimmed.ProfileText != win.ProfileText {
		t.Errorf("small profile should be untouched, got %q", trimmed.ProfileText)
	}
}

func TestTrimToBudget_SmallWindowUntouched(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	win := ContextWindow{
		ProfileText: "- Name: Jane Doe",
		OrdersText:  noRecentOrders,
		MessagesLog: "[2024-03-01T00:00:00Z] Customer (sms): hi",
	}
	trimmed := env.svc.trimToBudget(win, core.TierHigh)
	if trimmed != win {
		t.Errorf("window under budget must pass through unchanged:\n%+v", trimmed)
	}
}

func TestCountTokens(t *testing.T) {
	t.Parallel()
	if got := countTokens(""); got != 0 {
		t.Errorf("empty string = %d tokens, want 0", got)
	}
	short := countTokens("hi")
	long := countTokens(strings.Repeat("hello world ", 50))
	if short <= 0 || long <= short {
		t.Errorf("token counts not monotonic: short=%d long=%d", short, long)
	}
}
