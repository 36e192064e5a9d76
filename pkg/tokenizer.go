package pkg

// Tokenizer estimates the token count of a prompt before it is sent.
// Estimates only seed the pre-flight reservation; reconciliation against
// the API's reported usage corrects any error afterward.
type Tokenizer interface {
	EstimateTokens(messages []RequestMessage) uint32
}

// CharTokenizer estimates tokens from a characters-per-token ratio, plus a
// small per-message overhead for role markers and separators.
type CharTokenizer struct {
	CharsPerToken int // defaults to 4 if zero
}

const perMessageOverheadTokens = 4

func (t *CharTokenizer) ratio() int {
	if t.CharsPerToken <= 0 {
		return 4
	}
	return t.CharsPerToken
}

func (t *CharTokenizer) EstimateTokens(messages []RequestMessage) uint32 {
	total := 0
	for _, message := range messages {
		total += perMessageOverheadTokens
		total += len(message.Content) / t.ratio()
	}
	return uint32(total)
}
