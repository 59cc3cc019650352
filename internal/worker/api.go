package worker

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/bedrock"
	"github.com/anthropics/anthropic-sdk-go/option"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
)

// APIConfig configures the direct-API gateway.
type APIConfig struct {
	// Model is the Claude model to use; empty picks the SDK default
	// used throughout arbor.
	Model string
	// APIKey overrides the ANTHROPIC_API_KEY environment variable.
	APIKey string
	// UseBedrock routes calls through AWS Bedrock instead of the
	// Anthropic API.
	UseBedrock bool
	// AWSRegion is the Bedrock region, e.g. "us-west-2".
	AWSRegion string
	// AWSProfile is the optional AWS shared-config profile.
	AWSProfile string
}

// APIGateway invokes Claude through the Anthropic SDK instead of the
// CLI subprocess. The worker runs without tools: it receives the prompt
// and returns text, matching the Gateway contract.
type APIGateway struct {
	client anthropic.Client
	model  anthropic.Model
}

// NewAPIGateway creates an SDK-backed gateway. Missing credentials are
// reported as ErrUnavailable since no call could ever succeed.
func NewAPIGateway(cfg APIConfig) (*APIGateway, error) {
	var opts []option.RequestOption

	if cfg.UseBedrock {
		var loadOpts []func(*awsconfig.LoadOptions) error
		if cfg.AWSRegion != "" {
			loadOpts = append(loadOpts, awsconfig.WithRegion(cfg.AWSRegion))
		}
		if cfg.AWSProfile != "" {
			loadOpts = append(loadOpts, awsconfig.WithSharedConfigProfile(cfg.AWSProfile))
		}
		opts = append(opts, bedrock.WithLoadDefaultConfig(context.Background(), loadOpts...))
	} else {
		apiKey := cfg.APIKey
		if apiKey == "" {
			apiKey = os.Getenv("ANTHROPIC_API_KEY")
		}
		if apiKey == "" {
			return nil, fmt.Errorf("%w: ANTHROPIC_API_KEY is not set", ErrUnavailable)
		}
		opts = append(opts, option.WithAPIKey(apiKey))
	}

	model := anthropic.Model(cfg.Model)
	if model == "" {
		model = anthropic.ModelClaudeSonnet4_20250514
	}

	return &APIGateway{
		client: anthropic.NewClient(opts...),
		model:  model,
	}, nil
}

// Invoke sends the prompt as a single user message and concatenates the
// text blocks of the response. The workDir is unused: the API worker has
// no filesystem, so decomposition always arrives via the JSON protocol.
func (g *APIGateway) Invoke(ctx context.Context, prompt, workDir string) (string, error) {
	resp, err := g.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     g.model,
		MaxTokens: 8192,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", fmt.Errorf("API call failed: %w", err)
	}

	var result strings.Builder
	for _, block := range resp.Content {
		if variant, ok := block.AsAny().(anthropic.TextBlock); ok {
			result.WriteString(variant.Text)
		}
	}
	return strings.TrimSpace(result.String()), nil
}
