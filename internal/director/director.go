package director

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/mertkiray/promptvfx/internal/llm"
	"github.com/mertkiray/promptvfx/internal/logger"
	"github.com/mertkiray/promptvfx/internal/splat"
	"github.com/mertkiray/promptvfx/internal/timefn"
)

// ErrAttemptsExhausted means no candidate passed validation.
var ErrAttemptsExhausted = errors.New("no valid function within the attempt limit")

// Request describes the animation to generate.
type Request struct {
	Title       string
	Description string
	Duration    int // seconds
	FPS         int
}

// Director turns descriptions into validated animations through an LLM.
type Director struct {
	Client            llm.Client
	Log               *logger.Logger
	MaxAttempts       int     // candidates per function before giving up
	Retries           int     // transport retries per request
	DesignTemperature float64 // summary and behavior phases
	CodeTemperature   float64
	MaxTokens         int
	Script            timefn.ScriptOptions
	Validate          timefn.ValidateOptions
}

// NewDirector creates a Director with default settings
func NewDirector(client llm.Client, log *logger.Logger) *Director {
	if log == nil {
		log = logger.Discard()
	}
	return &Director{
		Client:            client,
		Log:               log,
		MaxAttempts:       5,
		Retries:           3,
		DesignTemperature: 1.0,
		CodeTemperature:   0.3,
		MaxTokens:         4096,
		Script:            timefn.DefaultScriptOptions(),
	}
}

// Generate runs the design phase (summary, then one behavior per role) and
// the code phase (one validated function per role).
func (d *Director) Generate(ctx context.Context, req Request, sample *splat.AttributeSet) (*Animation, error) {
	if strings.TrimSpace(req.Description) == "" {
		return nil, fmt.Errorf("empty description")
	}
	if req.Duration < 1 {
		req.Duration = 1
	}
	anim := &Animation{
		Version:     "1.0",
		Title:       req.Title,
		Description: req.Description,
		Duration:    req.Duration,
		FPS:         req.FPS,
		Score:       -1,
	}

	done := d.Log.Step("design phase")
	summary, err := d.ask(ctx, summarySystem(req.Duration), []llm.Message{llm.User(req.Description)}, d.DesignTemperature)
	if err != nil {
		return nil, fmt.Errorf("abstract summary: %w", err)
	}
	anim.AbstractSummary = summary

	for _, role := range splat.Roles {
		behavior, err := d.ask(ctx, behaviorSystem(role), []llm.Message{llm.User(summary)}, d.DesignTemperature)
		if err != nil {
			return nil, fmt.Errorf("%s behavior: %w", role, err)
		}
		anim.Behaviors.Set(role, behavior)
	}
	done()

	done = d.Log.Step("code phase")
	for _, role := range splat.Roles {
		code, err := d.generateCode(ctx, role, codeSystem(role, req.Duration), anim.Behaviors.Get(role), sample)
		if err != nil {
			return nil, err
		}
		anim.Code.Set(role, code)
	}
	done()

	return anim, nil
}

// Improve revises every function of base according to feedback. base is
// not modified.
func (d *Director) Improve(ctx context.Context, base *Animation, feedback string, sample *splat.AttributeSet) (*Animation, error) {
	if strings.TrimSpace(feedback) == "" {
		return nil, fmt.Errorf("empty feedback")
	}
	out := base.Clone()
	out.Score = -1

	done := d.Log.Step("feedback: " + feedback)
	for _, role := range splat.Roles {
		code := base.Code.Get(role)
		if strings.TrimSpace(code) == "" {
			code = timefn.IdentitySource(role)
		}
		improved, err := d.generateCode(ctx, role, feedbackSystem(role), feedbackUser(base.Description, code, feedback), sample)
		if err != nil {
			return nil, err
		}
		out.Code.Set(role, improved)
	}
	out.Feedback = append(out.Feedback, feedback)
	done()
	return out, nil
}

// generateCode asks for a function until one compiles and passes validation.
// Each rejection is fed back into the conversation.
func (d *Director) generateCode(ctx context.Context, role splat.Role, system, prompt string, sample *splat.AttributeSet) (string, error) {
	attempts := d.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	messages := []llm.Message{llm.User(prompt)}

	var lastErr error
	for i := 1; i <= attempts; i++ {
		reply, err := d.ask(ctx, system, messages, d.CodeTemperature)
		if err != nil {
			return "", fmt.Errorf("%s code: %w", role, err)
		}

		code := ExtractCode(reply)
		if code == "" {
			lastErr = fmt.Errorf("reply has no code block")
		} else {
			lastErr = d.check(ctx, role, code, sample)
		}
		if lastErr == nil {
			d.Log.Info("[+] %s accepted on attempt %d", timefn.FunctionName(role), i)
			return code, nil
		}
		if ctx.Err() != nil {
			return "", ctx.Err()
		}

		d.Log.Warn("[!] %s attempt %d/%d rejected: %v", timefn.FunctionName(role), i, attempts, lastErr)
		messages = append(messages, llm.Assistant(reply), llm.User(fmt.Sprintf(retryTemplate, lastErr)))
	}
	return "", fmt.Errorf("%s: %w: %w", role, ErrAttemptsExhausted, lastErr)
}

func (d *Director) check(ctx context.Context, role splat.Role, code string, sample *splat.AttributeSet) error {
	fn, err := timefn.CompileScript(role, "candidate", code, d.Script)
	if err != nil {
		return err
	}
	return timefn.Validate(ctx, fn, role, sample, d.Validate)
}

func (d *Director) ask(ctx context.Context, system string, messages []llm.Message, temperature float64) (string, error) {
	resp, err := d.Client.CompleteWithRetry(ctx, system, messages, d.Retries, &llm.RequestOptions{
		MaxTokens:   d.MaxTokens,
		Temperature: temperature,
	})
	if err != nil {
		return "", err
	}
	d.Log.Tokens(resp.InputTokens, resp.OutputTokens)
	if resp.WasTruncated() {
		d.Log.Warn("[!] reply truncated at %d tokens", resp.OutputTokens)
	}
	return resp.Content, nil
}
