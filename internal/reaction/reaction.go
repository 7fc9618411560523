package reaction

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"go.uber.org/zap"

	"github.com/botlisten/botcast/internal/common/config"
	"github.com/botlisten/botcast/internal/stream"
	"github.com/botlisten/botcast/pkg/utils"
)

// Generator produces a short natural-language viewer reaction for a
// piece of stream content.
type Generator interface {
	Generate(ctx context.Context, content string, profile map[string]any, sc *stream.StreamContext) (string, error)
}

// fallbackResponses are canned reactions substituted when generation
// fails or times out. Failures never reach the viewer as errors.
var fallbackResponses = []string{
	"面白いですね！",
	"なるほど～",
	"それは興味深いです！",
	"へぇ～！",
	"続き気になります！",
	"わかります！",
	"すごい！",
	"応援してます！",
}

// Fallback returns a random canned reaction.
func Fallback() string {
	return fallbackResponses[rand.Intn(len(fallbackResponses))]
}

// Bot personality descriptions keyed by personality_type.
var personalityDescriptions = map[string]string{
	"enthusiastic": "とても熱心で興奮しやすい。ポジティブで応援するような発言が多い。絵文字を多用する。",
	"critical":     "少し批判的で分析的。質問や改善提案をすることが多い。",
	"curious":      "好奇心旺盛で質問が多い。「なぜ」「どのように」といった疑問を投げかける。",
	"shy":          "控えめで、短いコメントが多い。でも配信者の言葉には反応する。",
	"funny":        "ユーモアがあり、冗談やおかしなコメントをすることが多い。",
	"technical":    "技術的な話題に詳しく、専門的なコメントや質問をする。",
	"supportive":   "サポート的で、共感や励ましのコメントが多い。",
}

var emojiDescriptions = map[string]string{
	"high":   "絵文字を多用する（1-2個/メッセージ）",
	"medium": "絵文字を時々使う（50%の確率で1つ）",
	"low":    "絵文字はあまり使わない（20%の確率で1つ）",
}

// OpenAIGenerator implements Generator on the OpenAI chat completion
// API.
type OpenAIGenerator struct {
	logger  *zap.Logger
	client  openai.Client
	model   string
	timeout time.Duration
}

var _ Generator = (*OpenAIGenerator)(nil)

// NewOpenAIGenerator creates a generator from the OpenAI configuration.
func NewOpenAIGenerator(logger *zap.Logger, cfg *config.OpenAIConfig) *OpenAIGenerator {
	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	return &OpenAIGenerator{
		logger:  logger.Named("reaction"),
		client:  openai.NewClient(opts...),
		model:   cfg.Model,
		timeout: cfg.Timeout,
	}
}

// Generate implements Generator. The request is bounded by the
// configured timeout; callers substitute Fallback() on error.
func (g *OpenAIGenerator) Generate(ctx context.Context, content string, profile map[string]any, sc *stream.StreamContext) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	systemPrompt := buildSystemPrompt(profile, sc)
	userPrompt := fmt.Sprintf("配信内容: %s\n\n視聴者としての自然な反応を一行で書いてください。", content)

	completion, err := g.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage(userPrompt),
		},
		Model:       g.model,
		MaxTokens:   openai.Int(60),
		Temperature: openai.Float(0.8),
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(completion.Choices) == 0 {
		return "", fmt.Errorf("chat completion returned no choices")
	}
	return strings.TrimSpace(completion.Choices[0].Message.Content), nil
}

// buildSystemPrompt composes the persona instructions from the viewer
// profile and the current stream context.
func buildSystemPrompt(profile map[string]any, sc *stream.StreamContext) string {
	personality := utils.GetString(profile, "personality_type", "standard")
	interests := utils.GetStringList(profile, "interests", "")
	emojiUsage := utils.GetString(profile, "emoji_usage", "medium")

	personalityDesc, ok := personalityDescriptions[personality]
	if !ok {
		personalityDesc = "標準的な反応をする"
	}
	emojiDesc, ok := emojiDescriptions[emojiUsage]
	if !ok {
		emojiDesc = "絵文字を適度に使う"
	}

	title := "不明な配信"
	var duration float64
	var history []string
	if sc != nil {
		if sc.Title != "" {
			title = sc.Title
		}
		duration = sc.Duration
		history = sc.History
	}

	// Viewer attitude scales with how long the stream has been running.
	attitude := "初めて見た配信に興味を持っている"
	if duration > 1800 {
		attitude = "しばらく視聴していて配信の流れを理解している"
	} else if duration > 300 {
		attitude = "少し視聴していて配信に慣れてきている"
	}

	// Interest level rises when an interest keyword appears in the title.
	interestLevel := "普通"
	lowerTitle := strings.ToLower(title)
	for _, interest := range strings.Split(interests, ",") {
		interest = strings.TrimSpace(strings.ToLower(interest))
		if interest != "" && strings.Contains(lowerTitle, interest) {
			interestLevel = "高い"
			break
		}
	}

	var contextMessages strings.Builder
	start := len(history) - 3
	if start < 0 {
		start = 0
	}
	for i, msg := range history[start:] {
		fmt.Fprintf(&contextMessages, "前回のメッセージ%d: %s\n", i+1, msg)
	}

	return fmt.Sprintf(`あなたはライブ配信「%s」の視聴者ボットです。

【ボットの個性】
- 個性タイプ: %s（%s）
- 興味のある分野: %s
- 絵文字の使用: %s
- 配信への興味レベル: %s
- 視聴者の態度: %s

【配信コンテキスト】
- 配信タイトル: %s
- 配信時間: %d分%d秒
%s
配信内容に対して、上記の個性に基づいた自然な反応を一行で返してください。
実際の視聴者のように振る舞い、質問、感想、リアクション、絵文字などで反応してください。
返答は50文字以内に簡潔にしてください。`,
		title, personality, personalityDesc, interests, emojiDesc,
		interestLevel, attitude, title,
		int(duration)/60, int(duration)%60, contextMessages.String())
}
