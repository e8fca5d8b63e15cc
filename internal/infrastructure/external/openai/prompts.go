package openai

import (
	"bytes"
	"fmt"
	"os"
	"text/template"

	"gopkg.in/yaml.v3"
)

// PromptConfig holds the prompt and model parameters for receipt extraction
type PromptConfig struct {
	ReceiptExtraction struct {
		Temperature  float32 `yaml:"temperature"`
		MaxTokens    int     `yaml:"max_tokens"`
		System       string  `yaml:"system"`
		UserTemplate string  `yaml:"user_template"`
	} `yaml:"receipt_extraction"`
}

const defaultSystemPrompt = "You read expense receipts and return the fields an employee needs to file an expense claim. Always respond with a single valid JSON object."

const defaultUserTemplate = `Extract the expense from the attached receipt{{if gt .Pages 1}} ({{.Pages}} pages){{end}}.

Return JSON with exactly these keys:
{
  "amount_claimed": number, the total paid including tax,
  "currency_claimed": "ISO-4217 code such as USD or EUR",
  "category": "one short word such as Meals, Travel, Lodging, Supplies",
  "description": "one sentence describing the expense",
  "date": "YYYY-MM-DD",
  "vendor_name": "string",
  "expense_lines": ["item: amount", ...]
}
Use null for anything that is not legible.`

// DefaultPrompts returns the built-in receipt extraction prompts
func DefaultPrompts() *PromptConfig {
	p := &PromptConfig{}
	p.ReceiptExtraction.Temperature = 0.1
	p.ReceiptExtraction.MaxTokens = 1024
	p.ReceiptExtraction.System = defaultSystemPrompt
	p.ReceiptExtraction.UserTemplate = defaultUserTemplate
	return p
}

// LoadPrompts loads prompt overrides from a YAML file. Fields left empty keep their defaults.
func LoadPrompts(promptsPath string) (*PromptConfig, error) {
	data, err := os.ReadFile(promptsPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read prompts file: %w", err)
	}

	prompts := DefaultPrompts()
	if err := yaml.Unmarshal(data, prompts); err != nil {
		return nil, fmt.Errorf("failed to unmarshal prompts: %w", err)
	}

	return prompts, nil
}

func renderTemplate(templateStr string, data interface{}) (string, error) {
	tmpl, err := template.New("prompt").Parse(templateStr)
	if err != nil {
		return "", fmt.Errorf("failed to parse template: %w", err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to execute template: %w", err)
	}

	return buf.String(), nil
}
