package lark

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/garyjia/expense-approval/internal/application/port"
	lark "github.com/larksuite/oapi-sdk-go/v3"
	larkim "github.com/larksuite/oapi-sdk-go/v3/service/im/v1"
	"go.uber.org/zap"
)

// Messenger implements port.Messenger with Lark IM text messages
type Messenger struct {
	client *lark.Client
	logger *zap.Logger
}

// NewMessenger creates a new Lark messenger
func NewMessenger(client *lark.Client, logger *zap.Logger) *Messenger {
	return &Messenger{
		client: client,
		logger: logger,
	}
}

// SendText sends a plain text message to the user identified by openID
func (m *Messenger) SendText(ctx context.Context, openID string, text string) error {
	if openID == "" {
		return errors.New("openID cannot be empty")
	}
	if text == "" {
		return errors.New("text cannot be empty")
	}

	content, err := json.Marshal(map[string]string{"text": text})
	if err != nil {
		return fmt.Errorf("failed to marshal message content: %w", err)
	}

	req := larkim.NewCreateMessageReqBuilder().
		ReceiveIdType(larkim.ReceiveIdTypeOpenId).
		Body(larkim.NewCreateMessageReqBodyBuilder().
			ReceiveId(openID).
			MsgType(larkim.MsgTypeText).
			Content(string(content)).
			Build()).
		Build()

	resp, err := m.client.Im.Message.Create(ctx, req)
	if err != nil {
		m.logger.Error("Failed to send message",
			zap.String("receive_id", openID),
			zap.Error(err))
		return fmt.Errorf("failed to send message: %w", err)
	}

	if !resp.Success() {
		m.logger.Error("API returned failure",
			zap.String("receive_id", openID),
			zap.Int("code", resp.Code),
			zap.String("msg", resp.Msg))
		return fmt.Errorf("API error: code=%d, msg=%s", resp.Code, resp.Msg)
	}

	messageID := ""
	if resp.Data != nil && resp.Data.MessageId != nil {
		messageID = *resp.Data.MessageId
	}
	m.logger.Debug("Message sent",
		zap.String("message_id", messageID),
		zap.String("receive_id", openID))

	return nil
}

var _ port.Messenger = (*Messenger)(nil)
