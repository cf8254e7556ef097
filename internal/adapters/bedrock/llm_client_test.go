package bedrock

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/s1f10230230/credit-visual-sub000/internal/core"
	"github.com/s1f10230230/credit-visual-sub000/internal/utils"
	"go.uber.org/zap"
)

type fakeInvoker struct {
	body    []byte
	err     error
	request map[string]interface{}
}

func (f *fakeInvoker) InvokeModel(ctx context.Context, in *bedrockruntime.InvokeModelInput, _ ...func(*bedrockruntime.Options)) (*bedrockruntime.InvokeModelOutput, error) {
	if err := json.Unmarshal(in.Body, &f.request); err != nil {
		return nil, err
	}
	if f.err != nil {
		return nil, f.err
	}
	return &bedrockruntime.InvokeModelOutput{Body: f.body}, nil
}

func newTestClient(modelID string, inv *fakeInvoker) *BedrockClient {
	logger := zap.NewNop()
	return NewBedrockClient(inv, modelID, 200, 0.1, 0.9, 512, logger, utils.NewTextProcessor(logger))
}

func TestCategorizeMerchantByModelFamily(t *testing.T) {
	answer := `{"merchant":"Spotify","category":"music","subscription":true,"confidence":0.8}`
	quoted, _ := json.Marshal(answer)

	tests := []struct {
		name      string
		modelID   string
		body      string
		promptKey string
	}{
		{"claude", "anthropic.claude-v2", `{"completion":` + string(quoted) + `}`, "prompt"},
		{"titan", "amazon.titan-text-express-v1", `{"results":[{"outputText":` + string(quoted) + `}]}`, "inputText"},
		{"generic", "meta.llama3", `{"output":` + string(quoted) + `}`, "prompt"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inv := &fakeInvoker{body: []byte(tt.body)}
			got, err := newTestClient(tt.modelID, inv).CategorizeMerchant(context.Background(), &core.MerchantQuery{
				Merchant: "SPOTIFY P1234",
				Amount:   980,
			})
			if err != nil {
				t.Fatalf("CategorizeMerchant() error = %v", err)
			}
			if got.Merchant != "Spotify" || got.Category != "music" || !got.Subscription || got.ModelUsed != tt.modelID {
				t.Errorf("category = %+v", got)
			}
			prompt, _ := inv.request[tt.promptKey].(string)
			if !strings.Contains(prompt, "SPOTIFY P1234") {
				t.Errorf("request %v misses the merchant", inv.request)
			}
		})
	}
}

func TestCategorizeMerchantErrors(t *testing.T) {
	inv := &fakeInvoker{err: errors.New("throttled")}
	if _, err := newTestClient("anthropic.claude-v2", inv).CategorizeMerchant(context.Background(), &core.MerchantQuery{}); err == nil {
		t.Error("expected invoke error")
	}

	inv = &fakeInvoker{body: []byte(`{"results":[]}`)}
	if _, err := newTestClient("amazon.titan-text-express-v1", inv).CategorizeMerchant(context.Background(), &core.MerchantQuery{}); err == nil {
		t.Error("expected empty Titan response error")
	}
}
