// Package intent maps a free-text question onto a fixed set of intents.
//
// Classification is an ordered cascade of pattern tests: the first rule
// that matches wins. The order is a precedence policy, not an accident —
// summarization and judgment checks run before the singular "last
// message" check so "last messages" phrasing is never misread, and
// specificity decreases monotonically down the list.
package intent

import (
	"regexp"
	"strconv"
	"strings"
)

type Kind string

const (
	KindNone            Kind = "none"
	KindSummarizeRecent Kind = "summarize_recent"
	KindQALastMessage   Kind = "qa_last_message"
	KindListRecent      Kind = "list_recent"
	KindLastNOrders     Kind = "last_n_orders"
	KindShippingAddress Kind = "shipping_address"
	KindLastOrderTotal  Kind = "last_order_total"
	KindTracking        Kind = "tracking"
	KindLastMessage     Kind = "last_message"
	KindLastContactDate Kind = "last_contact_date"
)

type Mode string

const (
	ModeSummary Mode = "summary"
	ModeQA      Mode = "qa"
)

// Intent is the classified purpose of a question. N carries the
// extracted count for intents that consume one; Mode distinguishes a
// summary request from a judgment question over the same window.
type Intent struct {
	Kind Kind
	N    int
	Mode Mode
}

const (
	defaultMessageCount = 10
	maxMessageCount     = 50
	defaultOrderCount   = 3
	maxOrderCount       = 10
)

var (
	reMessageCount = regexp.MustCompile(`last\s+(\d+)\s+(?:messages?|msgs?|conversations?|notes?)`)
	reOrderCount   = regexp.MustCompile(`last\s+(\d+)\s+orders?`)

	reSummarizeVerb = regexp.MustCompile(`summari[sz]e|recap|overview`)
	reMessageNoun   = regexp.MustCompile(`messages?|conversations?|thread`)

	reJudgment   = regexp.MustCompile(`what.*mean|what do you think|is .*approved|approved or not|decision|intent|meaning`)
	reRecentMsgs = regexp.MustCompile(`(last|recent).*(messages?|conversations?)`)

	reGroundedLast = regexp.MustCompile(`(from|based on|according to).*\b(last|latest)\s+message\b`)

	reListVerb = regexp.MustCompile(`\b(what|which|show|list|display)\b.*\b(messages|msgs|conversations)\b`)

	reShipping  = regexp.MustCompile(`shipping address|ship(ping)?\s*address|where.*ship`)
	reOrderWord = regexp.MustCompile(`\borders?\b|\binvoice\b`)
	reTotalWord = regexp.MustCompile(`\btotal\b|\bamount\b|\bprice\b`)
	reTracking  = regexp.MustCompile(`tracking`)

	reSingularLast = regexp.MustCompile(`\b(last|latest)\s+message\b`)
	reWhenContact  = regexp.MustCompile(`(when|what).*(last|latest).*(talk|contact|message|reach(ed)? out)`)
	reContactDate  = regexp.MustCompile(`last contact date`)
)

// rule pairs a predicate with an intent constructor. Rules are
// evaluated strictly in slice order.
type rule struct {
	name  string
	build func(text string, nMsgs int) (Intent, bool)
}

var rules = []rule{
	{"summarize_recent", func(text string, nMsgs int) (Intent, bool) {
		if reSummarizeVerb.MatchString(text) && reMessageNoun.MatchString(text) {
			return Intent{Kind: KindSummarizeRecent, N: nMsgs, Mode: ModeSummary}, true
		}
		return Intent{}, false
	}},
	{"judgment_over_recent", func(text string, nMsgs int) (Intent, bool) {
		if reJudgment.MatchString(text) && reRecentMsgs.MatchString(text) {
			return Intent{Kind: KindSummarizeRecent, N: nMsgs, Mode: ModeQA}, true
		}
		return Intent{}, false
	}},
	{"qa_last_message", func(text string, _ int) (Intent, bool) {
		if reGroundedLast.MatchString(text) {
			return Intent{Kind: KindQALastMessage}, true
		}
		return Intent{}, false
	}},
	{"list_recent", func(text string, nMsgs int) (Intent, bool) {
		if reListVerb.MatchString(text) || reMessageCount.MatchString(text) {
			return Intent{Kind: KindListRecent, N: nMsgs}, true
		}
		return Intent{}, false
	}},
	{"last_n_orders", func(text string, _ int) (Intent, bool) {
		if m := reOrderCount.FindStringSubmatch(text); m != nil {
			return Intent{Kind: KindLastNOrders, N: clampCount(atoi(m[1], defaultOrderCount), maxOrderCount)}, true
		}
		return Intent{}, false
	}},
	{"shipping_address", func(text string, _ int) (Intent, bool) {
		if reShipping.MatchString(text) {
			return Intent{Kind: KindShippingAddress}, true
		}
		return Intent{}, false
	}},
	{"last_order_total", func(text string, _ int) (Intent, bool) {
		// Keyword test rather than an ordered pattern: "what's the total
		// on her last order" puts the amount word first.
		if reOrderWord.MatchString(text) && reTotalWord.MatchString(text) {
			return Intent{Kind: KindLastOrderTotal}, true
		}
		return Intent{}, false
	}},
	{"tracking", func(text string, _ int) (Intent, bool) {
		if reTracking.MatchString(text) {
			return Intent{Kind: KindTracking}, true
		}
		return Intent{}, false
	}},
	{"last_message", func(text string, _ int) (Intent, bool) {
		// \b after "message" rejects the plural, so "last messages"
		// never ends up here.
		if reSingularLast.MatchString(text) {
			return Intent{Kind: KindLastMessage}, true
		}
		return Intent{}, false
	}},
	{"last_contact_date", func(text string, _ int) (Intent, bool) {
		if reWhenContact.MatchString(text) || reContactDate.MatchString(text) {
			return Intent{Kind: KindLastContactDate}, true
		}
		return Intent{}, false
	}},
}

// Classify derives exactly one intent from a question. It lower-cases
// the input, performs no other normalization, and never fails: an
// unmatched question classifies as KindNone.
func Classify(question string) Intent {
	text := strings.ToLower(question)
	nMsgs := ParseCount(text)

	for _, r := range rules {
		if it, ok := r.build(text, nMsgs); ok {
			return it
		}
	}
	return Intent{Kind: KindNone}
}

// ParseCount extracts the N of "last N messages/msgs/conversations/notes",
// clamped to [1,50]. Questions without an explicit count get 10.
func ParseCount(text string) int {
	m := reMessageCount.FindStringSubmatch(strings.ToLower(text))
	if m == nil {
		return defaultMessageCount
	}
	return clampCount(atoi(m[1], defaultMessageCount), maxMessageCount)
}

func clampCount(n, max int) int {
	if n < 1 {
		return 1
	}
	if n > max {
		return max
	}
	return n
}

func atoi(s string, def int) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}
