package translator

import (
	"fmt"
	"os"
	"strings"

	"gloss-relay/internal/models"
)

// DefaultSystemPrompt instructs the model how to read ASL gloss. Upstream
// output depends on the exact wording, so edits change translations.
const DefaultSystemPrompt = "You are an ASL gloss → English translator.\n" +
	"ASL gloss rules you MUST follow:\n" +
	"- ASL is topic-comment: the topic comes first (e.g., STORE I GO = I go to the store)\n" +
	"- When no subject is explicit, default to first person (I/me)\n" +
	"- IX-YOU / YOU = you, IX-ME / ME / I = I, IX-THEY / THEY = they\n" +
	"- Directional verbs encode subject/object: GIVE-YOU = I give you, YOU-GIVE = you give me\n" +
	"- Time signs come first: YESTERDAY I GO STORE = I went to the store yesterday\n" +
	"- FINISH = past tense, WILL = future tense\n" +
	"- Repeated signs = emphasis or plurality\n" +
	"Output ONLY one natural English sentence. No quotes, no explanation."

const userPrefix = "ASL gloss: "

// LoadSystemPrompt reads a replacement prompt from path verbatim, or returns
// DefaultSystemPrompt when path is empty.
func LoadSystemPrompt(path string) (string, error) {
	if path == "" {
		return DefaultSystemPrompt, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read system prompt %q: %w", path, err)
	}
	if strings.TrimSpace(string(data)) == "" {
		return "", fmt.Errorf("system prompt %q is empty", path)
	}
	return string(data), nil
}

// JoinGloss joins tokens with single spaces and trims the result.
func JoinGloss(words []string) string {
	return strings.TrimSpace(strings.Join(words, " "))
}

// BuildMessages returns the system and user messages for one gloss string.
func BuildMessages(systemPrompt, asl string) []models.Message {
	return []models.Message{
		{Role: models.RoleSystem, Content: systemPrompt},
		{Role: models.RoleUser, Content: userPrefix + asl},
	}
}

// CleanSentence trims a model reply and strips one layer of matching double
// quotes, then one layer of matching single quotes.
func CleanSentence(reply string) string {
	sentence := strings.TrimSpace(reply)
	sentence = stripQuotes(sentence, '"')
	sentence = stripQuotes(sentence, '\'')
	return sentence
}

func stripQuotes(s string, quote byte) string {
	if len(s) == 0 || s[0] != quote || s[len(s)-1] != quote {
		return s
	}
	if len(s) == 1 {
		return ""
	}
	return strings.TrimSpace(s[1 : len(s)-1])
}
