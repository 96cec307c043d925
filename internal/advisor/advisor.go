package advisor

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"github.com/sirupsen/logrus"
	"google.golang.org/api/option"

	"vertical-coach/internal/analysis"
	"vertical-coach/internal/coach"
	"vertical-coach/internal/config"
)

// Fallback is shown when no advice can be generated
const Fallback = "Consistency is the key to verticality. Strava shows your effort, the plan shows your path."

const requestTimeout = 20 * time.Second

// generator turns a prompt into text
type generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Advisor produces a short coaching tip for a profile and objective
type Advisor struct {
	gen generator
	log *logrus.Entry
}

// New creates an Advisor. Without an API key it only ever returns Fallback.
func New(cfg config.AdvisorConfig) *Advisor {
	a := &Advisor{log: logrus.WithField("component", "advisor")}
	if cfg.APIKey != "" {
		a.gen = &gemini{apiKey: cfg.APIKey, model: cfg.Model}
	}
	return a
}

// Enabled reports whether a generative backend is configured
func (a *Advisor) Enabled() bool {
	return a.gen != nil
}

// Insight returns a two-sentence tip, or Fallback on any failure
func (a *Advisor) Insight(ctx context.Context, profile analysis.AthleteProfile, objective coach.Objective) string {
	if a.gen == nil {
		return Fallback
	}

	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	text, err := a.gen.Generate(ctx, buildPrompt(profile, objective))
	if err != nil {
		a.log.WithError(err).Warn("generating insight")
		return Fallback
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return Fallback
	}
	return text
}

func buildPrompt(profile analysis.AthleteProfile, objective coach.Objective) string {
	return fmt.Sprintf(`You are an expert mountain endurance coach.
Athlete data (from Strava): weight %.0fkg, estimated VO2max %d, current VAM %d m/h.
Target: %d m/h in %d weeks.
Give punchy motivational and physiological advice in exactly 2 sentences.
Focus on vertical speed efficiency and climbing economy.
Respond with ONLY the advice, nothing else.`,
		profile.BodyMassKg, profile.EstimatedVO2Max, profile.BestVerticalRate,
		objective.TargetVAM, objective.Weeks)
}

// gemini calls the Google Gemini API
type gemini struct {
	apiKey string
	model  string
}

func (g *gemini) Generate(ctx context.Context, prompt string) (string, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(g.apiKey))
	if err != nil {
		return "", fmt.Errorf("failed to create Gemini client: %w", err)
	}
	defer client.Close()

	model := client.GenerativeModel(g.model)
	model.SetTemperature(0.7)
	model.SetMaxOutputTokens(200)

	resp, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", fmt.Errorf("failed to generate content: %w", err)
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", fmt.Errorf("no content generated")
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			sb.WriteString(string(text))
		}
	}
	return sb.String(), nil
}
