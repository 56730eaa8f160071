package annotate

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"go.uber.org/zap"
	"google.golang.org/api/option"

	"github.com/bizkazan/eventwire/internal/events"
)

// MaxAnnotationText is the defensive cap on page text handed to a model,
// bounding request cost and payload size.
const MaxAnnotationText = 5000

// DefaultModels is the fallback chain tried in order.
var DefaultModels = []string{"gemini-2.5-flash", "gemini-2.5-flash-lite"}

// TextGenerator produces a JSON response from one named model. The Gemini
// client satisfies it; tests swap in a fake.
type TextGenerator interface {
	GenerateJSON(ctx context.Context, model, prompt string) (string, error)
}

// Annotator classifies candidates by prompting models from a fixed
// fallback list; the first structurally valid verdict wins. Exhausting
// the list is a transient failure: the candidate is retried next run.
type Annotator struct {
	generator TextGenerator
	models    []string
	logger    *zap.Logger
}

// New builds an Annotator over the given generator and model chain.
func New(generator TextGenerator, models []string, logger *zap.Logger) (*Annotator, error) {
	if generator == nil {
		return nil, fmt.Errorf("text generator is required")
	}
	if len(models) == 0 {
		models = DefaultModels
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Annotator{generator: generator, models: models, logger: logger}, nil
}

// Annotate prompts the fallback chain until one model returns a verdict
// that parses. Every model failing yields an error wrapping
// events.ErrTransient so the pipeline skips the candidate without a
// ledger mutation.
func (a *Annotator) Annotate(ctx context.Context, in events.AnnotateInput) (events.Verdict, error) {
	prompt := buildPrompt(in)

	var lastErr error
	for _, model := range a.models {
		raw, err := a.generator.GenerateJSON(ctx, model, prompt)
		if err != nil {
			a.logger.Warn("annotator model call failed",
				zap.String("model", model),
				zap.String("url", in.URL),
				zap.Error(err),
			)
			lastErr = err
			continue
		}
		verdict, err := ParseVerdict(raw)
		if err != nil {
			a.logger.Warn("annotator returned unparseable verdict",
				zap.String("model", model),
				zap.String("url", in.URL),
				zap.Error(err),
			)
			lastErr = err
			continue
		}
		return verdict, nil
	}
	return events.Verdict{}, fmt.Errorf("%w: all annotator models failed: %v", events.ErrTransient, lastErr)
}

// buildPrompt renders the classification instruction for one candidate.
// The text body is already truncated by the enrichment stage, but the cap
// is enforced here as well.
func buildPrompt(in events.AnnotateInput) string {
	text := truncateRunes(in.Text, MaxAnnotationText)

	var b strings.Builder
	b.WriteString("Ты — опытный SMM-редактор делового сообщества Казани. ")
	b.WriteString("Преврати сырой анонс мероприятия в пост для Telegram-канала.\n\n")
	fmt.Fprintf(&b, "Источник: %s\nНазвание: %s\nСсылка: %s\nТекст страницы: %s\n\n", in.Source, in.Title, in.URL, text)
	b.WriteString(`Ответь строго одним JSON-объектом без пояснений.
Если мероприятие НЕ относится к бизнесу, нетворкингу, саморазвитию или карьере
(например, концерты, детские праздники), верни: {"decision":"ignore"}
Иначе верни:
{"decision":"publish","post_text":"...","event_date":"YYYY-MM-DD или null","is_online":true/false}

Требования к post_text:
1. Заголовок — короткий, цепляющий, КАПСОМ.
2. Строка "🗓 Дата и время:" — дата из анонса или "Уточняйте по ссылке".
3. Строка "📍 Место:" — если есть в тексте, иначе "См. по ссылке".
4. 3-4 ключевых тезиса с эмодзи ⚫ — почему стоит пойти.
5. Строка "🔗 Регистрация:" со ссылкой на мероприятие.
6. Завершающий хэштег #бизнесКазань.
Если дата не определяется из текста, event_date должен быть null.`)
	return b.String()
}

func truncateRunes(s string, limit int) string {
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	return string(r[:limit])
}

// GeminiGenerator is the production TextGenerator over the Gemini API.
type GeminiGenerator struct {
	client *genai.Client
}

// NewGemini creates a Gemini-backed generator.
func NewGemini(ctx context.Context, apiKey string) (*GeminiGenerator, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini api key is required")
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	return &GeminiGenerator{client: client}, nil
}

// GenerateJSON asks one model for a JSON response.
func (g *GeminiGenerator) GenerateJSON(ctx context.Context, model, prompt string) (string, error) {
	m := g.client.GenerativeModel(model)
	m.SetTemperature(0.1) // keep classification output stable across runs
	m.ResponseMIMEType = "application/json"

	resp, err := m.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", fmt.Errorf("generate content: %w", err)
	}
	return extractText(resp)
}

// Close releases the underlying client.
func (g *GeminiGenerator) Close() error {
	return g.client.Close()
}

func extractText(resp *genai.GenerateContentResponse) (string, error) {
	if len(resp.Candidates) == 0 {
		return "", fmt.Errorf("no candidates in response")
	}
	candidate := resp.Candidates[0]
	if candidate.Content == nil || len(candidate.Content.Parts) == 0 {
		return "", fmt.Errorf("no content in response")
	}
	var parts []string
	for _, part := range candidate.Content.Parts {
		if text, ok := part.(genai.Text); ok {
			parts = append(parts, string(text))
		}
	}
	if len(parts) == 0 {
		return "", fmt.Errorf("no text parts in response")
	}
	return strings.Join(parts, ""), nil
}
