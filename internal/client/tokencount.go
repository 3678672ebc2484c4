package client

import (
	"sync"

	"github.com/pkoukk/tiktoken-go"
)

// tokenEncoding is shared across clients that fall back to an estimate
// instead of a native token-counting endpoint (Ollama, Gemini Code Assist
// OAuth). cl100k_base is the closest open encoding to the proprietary
// tokenizers these providers don't expose.
var (
	tokenEncodingOnce sync.Once
	tokenEncoding     *tiktoken.Tiktoken
)

func getTokenEncoding() *tiktoken.Tiktoken {
	tokenEncodingOnce.Do(func() {
		enc, err := tiktoken.GetEncoding("cl100k_base")
		if err == nil {
			tokenEncoding = enc
		}
	})
	return tokenEncoding
}

// estimateTokens counts tokens in text using a shared BPE encoding, falling
// back to a chars-per-token heuristic if the encoding failed to load.
func estimateTokens(text string) int {
	if text == "" {
		return 0
	}
	if enc := getTokenEncoding(); enc != nil {
		return len(enc.Encode(text, nil, nil))
	}
	return len(text) / 4
}
