package chunker

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/nevergoodstudy-hub/wechat-article-summarizer/pkg/common"

	"github.com/pkoukk/tiktoken-go"
)

const (
	// DefaultEncoder is the tiktoken encoding used when none is configured.
	DefaultEncoder = "o200k_base"

	// DefaultMaxTokens bounds the token count of a single chunk.
	DefaultMaxTokens = 600
)

// Chunker splits article text into sentence-aligned, token-bounded
// chunks. Sentences are never split; a single sentence longer than the
// token bound becomes its own oversized chunk.
type Chunker struct {
	encoder   string
	maxTokens int
}

// New returns a Chunker using the given tiktoken encoding and per-chunk
// token bound. Zero values select DefaultEncoder and DefaultMaxTokens.
func New(encoder string, maxTokens int) *Chunker {
	if encoder == "" {
		encoder = DefaultEncoder
	}
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}
	return &Chunker{encoder: encoder, maxTokens: maxTokens}
}

// ChunkID returns the deterministic id of the chunk at the given
// position of a document. Re-chunking the same document yields the same
// ids as long as the split is unchanged.
func ChunkID(documentID string, ordinal int) string {
	return common.HashID(fmt.Sprintf("%s:%d", documentID, ordinal))
}

// Split turns an article's text into chunks with sequential ordinals.
// Empty or whitespace-only text yields no chunks.
func (c *Chunker) Split(documentID string, text string) ([]common.Chunk, error) {
	enc, err := tiktoken.GetEncoding(c.encoder)
	if err != nil {
		return nil, err
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return nil, nil
	}

	sentences := splitIntoSentences(text)
	if len(sentences) == 0 {
		return nil, nil
	}

	var chunks []common.Chunk
	chunkStart := -1
	chunkEnd := -1

	flushChunk := func() {
		if chunkStart < 0 || chunkEnd <= chunkStart {
			return
		}

		var chunkText strings.Builder
		for i := chunkStart; i < chunkEnd; i++ {
			if i > chunkStart {
				chunkText.WriteString(" ")
			}
			chunkText.WriteString(sentences[i])
		}

		ordinal := len(chunks)
		chunks = append(chunks, common.Chunk{
			ID:         ChunkID(documentID, ordinal),
			DocumentID: documentID,
			Ordinal:    ordinal,
			Text:       strings.TrimSpace(chunkText.String()),
		})
		chunkStart = -1
		chunkEnd = -1
	}

	for i := range sentences {
		if chunkStart < 0 {
			chunkStart = i
			chunkEnd = i + 1
			continue
		}

		var testText strings.Builder
		for j := chunkStart; j <= i; j++ {
			if j > chunkStart {
				testText.WriteString(" ")
			}
			testText.WriteString(sentences[j])
		}

		testTokens := len(enc.Encode(testText.String(), nil, nil))

		if testTokens <= c.maxTokens {
			chunkEnd = i + 1
		} else {
			flushChunk()
			chunkStart = i
			chunkEnd = i + 1
		}
	}

	flushChunk()

	return chunks, nil
}

var sentenceEnders = map[rune]bool{
	'.': true, '!': true, '?': true,
	'。': true, '！': true, '？': true, '…': true,
}

func isClosingMark(r rune) bool {
	switch r {
	case '"', '\'', ')', ']', '}', '”', '’', '」', '』', '）', '】':
		return true
	}
	return false
}

func splitIntoSentences(text string) []string {
	lines := strings.Split(text, "\n")
	var sentences []string
	var currentSentence strings.Builder

	for _, line := range lines {
		trimmed := strings.TrimSpace(line)

		if trimmed == "" {
			if currentSentence.Len() > 0 {
				sentences = append(sentences, strings.TrimSpace(currentSentence.String()))
				currentSentence.Reset()
			}
			continue
		}

		for _, sentence := range splitLineIntoSentences(trimmed) {
			if currentSentence.Len() > 0 {
				currentSentence.WriteString(" ")
			}
			currentSentence.WriteString(sentence)

			if endsSentence(sentence) {
				sentences = append(sentences, strings.TrimSpace(currentSentence.String()))
				currentSentence.Reset()
			}
		}
	}

	if currentSentence.Len() > 0 {
		sentences = append(sentences, strings.TrimSpace(currentSentence.String()))
	}

	var result []string
	for _, sentence := range sentences {
		if strings.TrimSpace(sentence) != "" {
			result = append(result, sentence)
		}
	}

	return result
}

func splitLineIntoSentences(line string) []string {
	var sentences []string
	var current strings.Builder

	runes := []rune(line)
	for i := 0; i < len(runes); i++ {
		current.WriteRune(runes[i])

		if !sentenceEnders[runes[i]] {
			continue
		}

		// keep "1. item" style listing markers attached
		if runes[i] == '.' && i > 0 && unicode.IsDigit(runes[i-1]) &&
			i+1 < len(runes) && runes[i+1] == ' ' {
			continue
		}

		j := i + 1
		for j < len(runes) && sentenceEnders[runes[j]] {
			current.WriteRune(runes[j])
			j++
		}
		for j < len(runes) && isClosingMark(runes[j]) {
			current.WriteRune(runes[j])
			j++
		}

		sentence := strings.TrimSpace(current.String())
		if sentence != "" {
			sentences = append(sentences, sentence)
		}
		current.Reset()
		i = j - 1
	}

	remaining := strings.TrimSpace(current.String())
	if remaining != "" {
		sentences = append(sentences, remaining)
	}

	return sentences
}

func endsSentence(s string) bool {
	runes := []rune(strings.TrimSpace(s))
	i := len(runes) - 1
	for i >= 0 && isClosingMark(runes[i]) {
		i--
	}
	return i >= 0 && sentenceEnders[runes[i]]
}
