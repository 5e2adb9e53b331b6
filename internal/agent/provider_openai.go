package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	openai "github.com/openai/openai-go"
	oresponses "github.com/openai/openai-go/responses"
	oshared "github.com/openai/openai-go/shared"
)

type openAIProvider struct {
	client           openai.Client
	strictToolSchema bool
}

func (p *openAIProvider) Complete(ctx context.Context, req TurnRequest) (TurnResult, error) {
	if p == nil {
		return TurnResult{}, errors.New("nil provider")
	}
	if strings.TrimSpace(req.Model) == "" {
		return TurnResult{}, errors.New("missing model")
	}

	params := oresponses.ResponseNewParams{
		Model:             oshared.ResponsesModel(strings.TrimSpace(req.Model)),
		MaxOutputTokens:   openai.Int(defaultMaxOutputTokens),
		ParallelToolCalls: openai.Bool(false),
	}
	items := buildOpenAIInput(req.Messages)
	if len(items) == 0 {
		items = append(items, oresponses.ResponseInputItemParamOfMessage("Continue.", oresponses.EasyInputMessageRoleUser))
	}
	params.Input = oresponses.ResponseNewParamsInputUnion{OfInputItemList: items}
	if system := strings.TrimSpace(req.System); system != "" {
		params.Instructions = openai.String(system)
	}
	if tools := buildOpenAITools(req.Tools, p.strictToolSchema); len(tools) > 0 {
		params.Tools = tools
	}

	resp, err := p.client.Responses.New(ctx, params)
	if err != nil {
		var apierr *openai.Error
		if errors.As(err, &apierr) && apierr.StatusCode == http.StatusTooManyRequests {
			return TurnResult{}, fmt.Errorf("%w: %v", ErrRateLimited, err)
		}
		return TurnResult{}, err
	}

	var result TurnResult
	var textBuf strings.Builder
	for _, item := range resp.Output {
		switch strings.TrimSpace(item.Type) {
		case "message":
			msg := item.AsMessage()
			for _, part := range msg.Content {
				if strings.TrimSpace(part.Type) != "output_text" {
					continue
				}
				if txt := strings.TrimSpace(part.Text); txt != "" {
					if textBuf.Len() > 0 {
						textBuf.WriteString("\n")
					}
					textBuf.WriteString(txt)
				}
			}
		case "function_call":
			callID := strings.TrimSpace(item.CallID)
			if callID == "" {
				callID = strings.TrimSpace(item.ID)
			}
			if callID == "" {
				callID = fmt.Sprintf("openai_call_%d", len(result.ToolCalls)+1)
			}
			rawArgs := strings.TrimSpace(item.Arguments)
			args := map[string]any{}
			if rawArgs != "" {
				_ = json.Unmarshal([]byte(rawArgs), &args)
			}
			result.ToolCalls = append(result.ToolCalls, ToolCall{
				ID:      callID,
				Name:    strings.TrimSpace(item.Name),
				Args:    args,
				RawArgs: rawArgs,
			})
		}
	}
	result.Text = textBuf.String()
	return result, nil
}

func buildOpenAITools(defs []ToolDef, strict bool) []oresponses.ToolUnionParam {
	out := make([]oresponses.ToolUnionParam, 0, len(defs))
	for _, def := range defs {
		name := strings.TrimSpace(def.Name)
		if name == "" {
			continue
		}
		schema := map[string]any{}
		if len(def.InputSchema) > 0 {
			_ = json.Unmarshal(def.InputSchema, &schema)
		}
		out = append(out, oresponses.ToolParamOfFunction(name, schema, strict))
	}
	return out
}

func buildOpenAIInput(messages []Message) oresponses.ResponseInputParam {
	items := make(oresponses.ResponseInputParam, 0, len(messages)+2)
	assistantMsgSeq := 0
	for _, msg := range messages {
		role := strings.ToLower(strings.TrimSpace(msg.Role))
		switch role {
		case "system":
			continue
		case "tool":
			for _, res := range msg.Results {
				callID := strings.TrimSpace(res.ToolID)
				if callID == "" {
					continue
				}
				items = append(items, oresponses.ResponseInputItemParamOfFunctionCallOutput(callID, res.Payload()))
			}
		case "assistant":
			if txt := strings.TrimSpace(msg.Text); txt != "" {
				assistantMsgSeq++
				// The Responses API requires output message IDs to start with "msg_".
				content := []oresponses.ResponseOutputMessageContentUnionParam{{
					OfOutputText: &oresponses.ResponseOutputTextParam{
						Text:        txt,
						Annotations: []oresponses.ResponseOutputTextAnnotationUnionParam{},
					},
				}}
				items = append(items, oresponses.ResponseInputItemParamOfOutputMessage(
					content,
					fmt.Sprintf("msg_hist%d", assistantMsgSeq),
					oresponses.ResponseOutputMessageStatusCompleted,
				))
			}
			for _, call := range msg.ToolCalls {
				callID := strings.TrimSpace(call.ID)
				name := strings.TrimSpace(call.Name)
				if callID == "" || name == "" {
					continue
				}
				items = append(items, oresponses.ResponseInputItemParamOfFunctionCall(replayArgs(call), callID, name))
			}
		default:
			if txt := strings.TrimSpace(msg.Text); txt != "" {
				items = append(items, oresponses.ResponseInputItemParamOfMessage(txt, oresponses.EasyInputMessageRoleUser))
			}
		}
	}
	return items
}
