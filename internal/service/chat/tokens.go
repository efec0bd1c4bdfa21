package chat

import (
	"sync"

	"github.com/pkoukk/tiktoken-go"
)

var (
	tk     *tiktoken.Tiktoken
	tkOnce sync.Once
)

// countTokens measures text against the cl100k_base encoding. When the
// encoding cannot be loaded (e.g. no cache and no network) it falls
// back to the ~4 characters/token heuristic, which is what the budget
// knobs were calibrated against anyway.
func countTokens(text string) int {
	if text == "" {
		return 0
	}
	tkOnce.Do(func() {
		tk, _ = tiktoken.GetEncoding("cl100k_base")
	})
	if tk == nil {
		return (len(text) + 3) / 4
	}
	return len(tk.Encode(text, nil, nil))
}
