package lead

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	log "github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"
	"github.com/zulandar/switchboard/internal/errdefs"
	"github.com/zulandar/switchboard/internal/models"
)

const extractionInstructions = `You extract lead qualification data from a sales chat transcript.
Lines are prefixed USER or AI AGENT; "ASKS" marks a question and "RESPONDS" the
user's answer to the question right before it. Match answers to the questions
they follow, and also pick up information the user states directly.

Return a single JSON object with these keys, using null for anything the user
did not explicitly provide:
  full_name, email, phone_number, company_name (clean values)
  ai_interest_reason, business_challenges, business_goals_6_12m,
  ai_implementation_known, ai_implementation_timeline (the user's full explanation)
  ai_budget_allocated (true, false or null)
Return only the JSON object.`

// Chatter sends one instruction/data exchange to a language model.
type Chatter interface {
	Chat(ctx context.Context, instructions, data string) (string, error)
}

// LLMClient is a Chatter backed by an OpenAI-compatible API.
type LLMClient struct {
	client *openai.Client
	model  string
}

// NewLLMClient connects to the API at url. The key comes from OPENAI_API_KEY.
func NewLLMClient(url, model string) *LLMClient {
	options := []option.RequestOption{option.WithBaseURL(url)}

	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		log.Info("OPENAI_API_KEY environment variable is not set, will try unauthenticated access")
	} else {
		options = append(options, option.WithAPIKey(apiKey))
	}

	client := openai.NewClient(options...)
	return &LLMClient{client: &client, model: model}
}

// Chat implements Chatter.
func (llm *LLMClient) Chat(ctx context.Context, instructions, data string) (string, error) {
	resp, err := llm.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(instructions),
			openai.UserMessage(data),
		},
		Model: llm.model,
	})
	if err != nil {
		return "", err
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("client didn't return any content choices")
	}

	return resp.Choices[0].Message.Content, nil
}

// Extractor turns a transcript into lead fields.
type Extractor struct {
	llm Chatter
}

// NewExtractor creates an Extractor.
func NewExtractor(llm Chatter) *Extractor {
	return &Extractor{llm: llm}
}

// Extract asks the model for lead fields found in msgs.
func (e *Extractor) Extract(ctx context.Context, msgs []models.Message) (models.Lead, error) {
	if len(msgs) == 0 {
		return models.Lead{}, errdefs.Validationf("session has no messages")
	}
	out, err := e.llm.Chat(ctx, extractionInstructions, "Extract lead qualification data from this conversation:\n\n"+Transcript(msgs))
	if err != nil {
		return models.Lead{}, fmt.Errorf("lead: extract: %w", err)
	}
	return parseExtraction(out)
}

// Transcript renders messages for the model, marking question/answer pairs.
func Transcript(msgs []models.Message) string {
	var b strings.Builder
	for i, m := range msgs {
		role := "USER"
		if m.Sender == models.SenderAI {
			role = "AI AGENT"
		}
		switch {
		case m.Sender == models.SenderAI && strings.Contains(m.Content, "?"):
			fmt.Fprintf(&b, "%s ASKS: %s\n", role, m.Content)
		case m.Sender == models.SenderUser && i > 0 && msgs[i-1].Sender == models.SenderAI && strings.Contains(msgs[i-1].Content, "?"):
			fmt.Fprintf(&b, "%s RESPONDS: %s\n", role, m.Content)
		default:
			fmt.Fprintf(&b, "%s: %s\n", role, m.Content)
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

// parseExtraction reads the model's JSON answer. Surrounding prose or a
// markdown code fence is tolerated.
func parseExtraction(out string) (models.Lead, error) {
	start := strings.Index(out, "{")
	end := strings.LastIndex(out, "}")
	if start < 0 || end < start || !gjson.Valid(out[start:end+1]) {
		return models.Lead{}, fmt.Errorf("lead: model returned no JSON object")
	}
	doc := gjson.Parse(out[start : end+1])

	str := func(key string) string {
		v := doc.Get(key)
		if v.Type != gjson.String {
			return ""
		}
		return strings.TrimSpace(v.String())
	}
	l := models.Lead{
		FullName:                 str("full_name"),
		Email:                    str("email"),
		PhoneNumber:              str("phone_number"),
		CompanyName:              str("company_name"),
		AIInterestReason:         str("ai_interest_reason"),
		BusinessChallenges:       str("business_challenges"),
		BusinessGoals6To12M:      str("business_goals_6_12m"),
		AIImplementationKnown:    str("ai_implementation_known"),
		AIImplementationTimeline: str("ai_implementation_timeline"),
	}
	if v := doc.Get("ai_budget_allocated"); v.IsBool() {
		b := v.Bool()
		l.AIBudgetAllocated = &b
	}
	return l, nil
}

// ExtractForSession runs extraction over a session's messages and merges
// the result. A session with no lead yet only gets one when a name was
// found; otherwise the result carries a nil Lead.
func (s *Service) ExtractForSession(ctx context.Context, sessionID string) (*UpsertResult, error) {
	if s.extractor == nil {
		return nil, errdefs.Validationf("lead extraction is not configured")
	}
	var msgs []models.Message
	if err := s.db.WithContext(ctx).Where("session_id = ?", sessionID).
		Order("timestamp ASC, id ASC").Find(&msgs).Error; err != nil {
		return nil, fmt.Errorf("lead: messages for %s: %w", sessionID, err)
	}
	if len(msgs) == 0 {
		return nil, errdefs.NotFoundf("messages for session %s", sessionID)
	}
	extracted, err := s.extractor.Extract(ctx, msgs)
	if err != nil {
		return nil, err
	}

	if extracted.FullName == "" {
		_, err := s.Get(ctx, sessionID)
		if errors.Is(err, errdefs.ErrNotFound) {
			log.WithField("session_id", sessionID).Info("no name extracted, lead not created")
			return &UpsertResult{}, nil
		}
		if err != nil {
			return nil, err
		}
	}
	return s.Upsert(ctx, sessionID, extracted)
}
