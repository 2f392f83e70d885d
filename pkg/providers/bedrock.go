package providers

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	brtypes "github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
)

const (
	bedrockDefaultMaxTokens   = 4096
	bedrockDefaultTemperature = 0.7
)

// BedrockProvider invokes models through the Bedrock Converse API. The
// client must target the region hosting the cross-region inference
// profiles; model identifiers are the profile form (e.g. "us.*").
type BedrockProvider struct {
	client *bedrockruntime.Client
}

// NewBedrockProvider creates a Converse client in the given region.
func NewBedrockProvider(ctx context.Context, region string) (*BedrockProvider, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return &BedrockProvider{client: bedrockruntime.NewFromConfig(cfg)}, nil
}

// bedrockImageFormat maps a media type to the Converse image format.
// Unknown attachment types are dropped from the provider payload.
func bedrockImageFormat(mediaType string) (brtypes.ImageFormat, bool) {
	switch strings.ToLower(mediaType) {
	case "image/png":
		return brtypes.ImageFormatPng, true
	case "image/jpeg":
		return brtypes.ImageFormatJpeg, true
	case "image/gif":
		return brtypes.ImageFormatGif, true
	case "image/webp":
		return brtypes.ImageFormatWebp, true
	}
	return "", false
}

// Invoke translates the neutral request to Converse content blocks and
// returns the assistant text with token usage.
func (p *BedrockProvider) Invoke(ctx context.Context, req *ChatRequest) (*ChatResponse, error) {
	messages := make([]brtypes.Message, 0, len(req.Messages))
	for _, msg := range req.Messages {
		role := brtypes.ConversationRoleUser
		if msg.Role == RoleAssistant {
			role = brtypes.ConversationRoleAssistant
		}
		blocks := []brtypes.ContentBlock{
			&brtypes.ContentBlockMemberText{Value: msg.Content},
		}
		for _, att := range msg.Attachments {
			format, ok := bedrockImageFormat(att.MediaType)
			if !ok {
				continue
			}
			blocks = append(blocks, &brtypes.ContentBlockMemberImage{
				Value: brtypes.ImageBlock{
					Format: format,
					Source: &brtypes.ImageSourceMemberBytes{Value: att.Data},
				},
			})
		}
		messages = append(messages, brtypes.Message{Role: role, Content: blocks})
	}

	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = bedrockDefaultMaxTokens
	}
	temperature := bedrockDefaultTemperature
	if req.Temperature != nil {
		temperature = *req.Temperature
	}

	input := &bedrockruntime.ConverseInput{
		ModelId:  aws.String(req.ModelID),
		Messages: messages,
		InferenceConfig: &brtypes.InferenceConfiguration{
			MaxTokens:   aws.Int32(int32(maxTokens)),
			Temperature: aws.Float32(float32(temperature)),
		},
	}
	if req.SystemPrompt != "" {
		input.System = []brtypes.SystemContentBlock{
			&brtypes.SystemContentBlockMemberText{Value: req.SystemPrompt},
		}
	}

	out, err := p.client.Converse(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("bedrock converse: %w", err)
	}

	var content strings.Builder
	if msg, ok := out.Output.(*brtypes.ConverseOutputMemberMessage); ok {
		for _, block := range msg.Value.Content {
			if text, ok := block.(*brtypes.ContentBlockMemberText); ok {
				content.WriteString(text.Value)
			}
		}
	}

	resp := &ChatResponse{
		Content:  content.String(),
		ModelID:  req.ModelID,
		Provider: "bedrock",
	}
	if out.Usage != nil && out.Usage.InputTokens != nil && out.Usage.OutputTokens != nil {
		resp.Usage = &Usage{
			InputTokens:  int(*out.Usage.InputTokens),
			OutputTokens: int(*out.Usage.OutputTokens),
		}
	}
	return resp, nil
}
