package openai

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"image/jpeg"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/garyjia/expense-approval/internal/application/port"
	"github.com/gen2brain/go-fitz"
	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

// ErrUnsupportedReceipt is returned for uploads that are neither PDF nor JPEG/PNG
var ErrUnsupportedReceipt = errors.New("unsupported receipt format")

// Config holds receipt extractor configuration
type Config struct {
	APIKey      string
	BaseURL     string
	Model       string
	MaxPages    int
	PromptsPath string
}

// ReceiptExtractor implements port.ReceiptExtractor with a vision model.
// PDF receipts are rendered to JPEG pages first.
type ReceiptExtractor struct {
	client   *openai.Client
	model    string
	maxPages int
	prompts  *PromptConfig
	logger   *zap.Logger
}

// NewReceiptExtractor creates a new receipt extractor
func NewReceiptExtractor(cfg Config, logger *zap.Logger) (*ReceiptExtractor, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("openai api key is required")
	}

	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	prompts := DefaultPrompts()
	if cfg.PromptsPath != "" {
		loaded, err := LoadPrompts(cfg.PromptsPath)
		if err != nil {
			return nil, err
		}
		prompts = loaded
	}

	model := cfg.Model
	if model == "" {
		model = openai.GPT4o
	}
	maxPages := cfg.MaxPages
	if maxPages <= 0 {
		maxPages = 2
	}

	return &ReceiptExtractor{
		client:   openai.NewClientWithConfig(clientCfg),
		model:    model,
		maxPages: maxPages,
		prompts:  prompts,
		logger:   logger,
	}, nil
}

// Extract reads the receipt and returns the fields it could recognise
func (e *ReceiptExtractor) Extract(ctx context.Context, data []byte, mimeType string) (*port.ReceiptData, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty upload", ErrUnsupportedReceipt)
	}

	detected := mimetype.Detect(data)
	if mimeType == "" || mimeType == "application/octet-stream" {
		mimeType = detected.String()
	}

	var images []receiptPage
	switch {
	case detected.Is("application/pdf"):
		pages, err := e.renderPDF(data)
		if err != nil {
			return nil, err
		}
		images = pages
	case detected.Is("image/jpeg"), detected.Is("image/png"):
		images = []receiptPage{{mime: detected.String(), data: data}}
	default:
		e.logger.Warn("Rejected receipt upload",
			zap.String("declared_mime", mimeType),
			zap.String("detected_mime", detected.String()))
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedReceipt, detected.String())
	}

	return e.extractWithVision(ctx, images)
}

type receiptPage struct {
	mime string
	data []byte
}

// renderPDF renders up to maxPages pages as JPEG
func (e *ReceiptExtractor) renderPDF(data []byte) ([]receiptPage, error) {
	doc, err := fitz.NewFromMemory(data)
	if err != nil {
		return nil, fmt.Errorf("failed to open PDF: %w", err)
	}
	defer doc.Close()

	pages := doc.NumPage()
	if pages > e.maxPages {
		pages = e.maxPages
	}

	images := make([]receiptPage, 0, pages)
	for n := 0; n < pages; n++ {
		img, err := doc.Image(n)
		if err != nil {
			e.logger.Warn("Failed to render PDF page", zap.Int("page", n), zap.Error(err))
			continue
		}

		var buf bytes.Buffer
		if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 85}); err != nil {
			e.logger.Warn("Failed to encode PDF page", zap.Int("page", n), zap.Error(err))
			continue
		}
		images = append(images, receiptPage{mime: "image/jpeg", data: buf.Bytes()})
	}

	if len(images) == 0 {
		return nil, errors.New("no pages could be rendered from PDF")
	}
	return images, nil
}

func (e *ReceiptExtractor) extractWithVision(ctx context.Context, images []receiptPage) (*port.ReceiptData, error) {
	p := e.prompts.ReceiptExtraction

	prompt, err := renderTemplate(p.UserTemplate, struct{ Pages int }{Pages: len(images)})
	if err != nil {
		return nil, err
	}

	parts := []openai.ChatMessagePart{{
		Type: openai.ChatMessagePartTypeText,
		Text: prompt,
	}}
	for _, img := range images {
		parts = append(parts, openai.ChatMessagePart{
			Type: openai.ChatMessagePartTypeImageURL,
			ImageURL: &openai.ChatMessageImageURL{
				URL:    fmt.Sprintf("data:%s;base64,%s", img.mime, base64.StdEncoding.EncodeToString(img.data)),
				Detail: openai.ImageURLDetailHigh,
			},
		})
	}

	resp, err := e.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       e.model,
		MaxTokens:   p.MaxTokens,
		Temperature: p.Temperature,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: p.System},
			{Role: openai.ChatMessageRoleUser, MultiContent: parts},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		e.logger.Error("Vision API call failed", zap.Error(err))
		return nil, fmt.Errorf("vision API call failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, errors.New("no response from vision API")
	}

	content := resp.Choices[0].Message.Content
	receipt, err := parseReceipt(content)
	if err != nil {
		e.logger.Error("Failed to parse vision response", zap.Error(err), zap.String("content", content))
		return nil, err
	}

	e.logger.Info("Receipt extracted",
		zap.String("amount", receipt.AmountClaimed.String()),
		zap.String("currency", receipt.CurrencyClaimed),
		zap.String("vendor", receipt.VendorName),
		zap.Int("pages", len(images)))

	return receipt, nil
}

// parseReceipt decodes the model output, tolerating a fenced JSON block
func parseReceipt(content string) (*port.ReceiptData, error) {
	var receipt port.ReceiptData
	if err := json.Unmarshal([]byte(content), &receipt); err != nil {
		start := strings.Index(content, "{")
		end := strings.LastIndex(content, "}")
		if start < 0 || end <= start {
			return nil, fmt.Errorf("failed to parse response: %w", err)
		}
		if err := json.Unmarshal([]byte(content[start:end+1]), &receipt); err != nil {
			return nil, fmt.Errorf("failed to parse response: %w", err)
		}
	}

	receipt.CurrencyClaimed = strings.ToUpper(strings.TrimSpace(receipt.CurrencyClaimed))
	receipt.AmountClaimed = receipt.AmountClaimed.Round(2)
	return &receipt, nil
}

var _ port.ReceiptExtractor = (*ReceiptExtractor)(nil)
