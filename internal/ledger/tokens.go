package ledger

import (
	"sync"

	"github.com/rs/zerolog/log"
	"github.com/tiktoken-go/tokenizer"
)

var (
	codec     tokenizer.Codec
	codecOnce sync.Once
)

// countTokens returns the cl100k token count of text, or a bytes/4
// estimate when the encoder is unavailable.
func countTokens(text string) int {
	if text == "" {
		return 0
	}
	codecOnce.Do(func() {
		c, err := tokenizer.Get(tokenizer.Cl100kBase)
		if err != nil {
			log.Warn().Err(err).Msg("Tokenizer unavailable, estimating token counts")
			return
		}
		codec = c
	})
	if codec == nil {
		return estimateTokens(text)
	}
	ids, _, err := codec.Encode(text)
	if err != nil {
		return estimateTokens(text)
	}
	return len(ids)
}

func estimateTokens(text string) int {
	n := len(text) / 4
	if n == 0 {
		n = 1
	}
	return n
}
