package generation

import (
	"fmt"
	"strings"
)

// fallbackQuoteLimit bounds how much of the last utterance is quoted
const fallbackQuoteLimit = 120

// Fallback is the deterministic reply used when generation fails in a
// request/response exchange. lastUtterance is the most recent message not
// written by the agent; "..." is quoted when there is none.
func Fallback(agentName, lastUtterance string) string {
	quote := lastUtterance
	if strings.TrimSpace(quote) == "" {
		quote = "..."
	}
	if r := []rune(quote); len(r) > fallbackQuoteLimit {
		quote = string(r[:fallbackQuoteLimit])
	}

	return fmt.Sprintf(`**SITUATION:**
The air hums softly around %s. Recent words, '%s', still echo in the quiet.
Candlelight flickers across determined eyes as thoughts settle into purpose.
Boots shift over stone and leather creaks in the stillness.
A cool wind from distant ramparts brushes the skin.
Resolve tightens like a drawn bowstring, and a step brings them closer.

**DIALOGUE:**
"I heard you clearly. Tell me, what do you truly want from me tonight?"

**AFFECTION LEVEL:** 47`, agentName, quote)
}
