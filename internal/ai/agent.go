package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/invopop/jsonschema"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/packages/param"
	"github.com/openai/openai-go/responses"
	"github.com/openai/openai-go/shared"
	"github.com/openai/openai-go/shared/constant"
)

// DraftContext lists the names the model may map a note onto.
type DraftContext struct {
	AccountingHeads []string
	InventoryItems  []string
	Today           time.Time
}

// Agent turns free-text purchase notes into expense drafts. It never writes anywhere.
type Agent struct {
	client *openai.Client
	model  string
}

func NewAgent(apiKey, model string) *Agent {
	client := openai.NewClient(option.WithAPIKey(apiKey))
	if model == "" {
		model = string(shared.ChatModelGPT4o)
	}
	return &Agent{client: &client, model: model}
}

func (a *Agent) DraftExpense(ctx context.Context, note string, dc DraftContext) (*ExpenseDraft, error) {
	schemaMap, err := draftSchemaMap()
	if err != nil {
		return nil, err
	}

	params := responses.ResponseNewParams{
		Model: shared.ResponsesModel(a.model),
		Input: responses.ResponseNewParamsInputUnion{
			OfString: param.NewOpt(buildDraftPrompt(note, dc)),
		},
		Text: responses.ResponseTextConfigParam{
			Format: responses.ResponseFormatTextConfigUnionParam{
				OfJSONSchema: &responses.ResponseFormatTextJSONSchemaConfigParam{
					Type:        constant.JSONSchema("json_schema"),
					Name:        "expense_draft",
					Strict:      param.NewOpt(true),
					Schema:      schemaMap,
					Description: param.NewOpt("A draft expense entry for a small food producer"),
				},
			},
		},
	}

	resp, err := a.client.Responses.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("openai responses error: %w", err)
	}

	content := resp.OutputText()
	if content == "" {
		return nil, fmt.Errorf("empty response content")
	}

	var draft ExpenseDraft
	if err := json.Unmarshal([]byte(content), &draft); err != nil {
		return nil, fmt.Errorf("failed to parse completion: %w", err)
	}

	draft.Normalize()
	if err := draft.Validate(); err != nil {
		return nil, fmt.Errorf("draft validation failed: %w", err)
	}
	return &draft, nil
}

func buildDraftPrompt(note string, dc DraftContext) string {
	today := dc.Today
	if today.IsZero() {
		today = time.Now()
	}
	return fmt.Sprintf(`You are the bookkeeper of a small pickle and spice producer in Nepal.
Turn the purchase note below into one expense entry.
Rules:
1. Amounts and quantities are plain decimal strings (e.g. "1250.00"). Leave quantity empty if the note does not state one.
2. accounting_head must be copied exactly from the list of accounting heads, or left empty.
3. inventory_item must be copied exactly from the list of inventory items, or left empty. Only pick one when stock was bought.
4. expense_date is YYYY-MM-DD. Today is %s.
5. Provide a confidence score (0.0-1.0) and explain your reasoning.

Accounting heads:
%s

Inventory items:
%s

Note: %s`, today.Format("2006-01-02"), bulletList(dc.AccountingHeads), bulletList(dc.InventoryItems), strings.TrimSpace(note))
}

func bulletList(names []string) string {
	if len(names) == 0 {
		return "(none)"
	}
	var b strings.Builder
	for _, n := range names {
		b.WriteString("- ")
		b.WriteString(n)
		b.WriteByte('\n')
	}
	return strings.TrimRight(b.String(), "\n")
}

func generateSchema() *jsonschema.Schema {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}
	var v ExpenseDraft
	return reflector.Reflect(v)
}

// draftSchemaMap round-trips the reflected schema into the map form the SDK expects.
func draftSchemaMap() (map[string]any, error) {
	schemaJSON, err := json.Marshal(generateSchema())
	if err != nil {
		return nil, fmt.Errorf("failed to marshal schema: %w", err)
	}
	var schemaMap map[string]any
	if err := json.Unmarshal(schemaJSON, &schemaMap); err != nil {
		return nil, fmt.Errorf("failed to unmarshal schema to map: %w", err)
	}
	return schemaMap, nil
}
