package wsgateway

import (
	"encoding/json"
	"fmt"

	"github.com/mohamedkhairy/market-intel/internal/models"
	"github.com/mohamedkhairy/market-intel/pkg/logger"
)

// MessageType represents the type of WebSocket message
type MessageType string

const (
	MessageTypeSubscribe   MessageType = "subscribe"
	MessageTypeUnsubscribe MessageType = "unsubscribe"
	MessageTypePing        MessageType = "ping"
	MessageTypePong        MessageType = "pong"
	MessageTypeSnapshot    MessageType = "snapshot"
	MessageTypeSuccess     MessageType = "success"
	MessageTypeError       MessageType = "error"
)

// ClientMessage represents a message from the client
type ClientMessage struct {
	Type         string   `json:"type"`
	AssetClass   string   `json:"asset_class,omitempty"`
	AssetClasses []string `json:"asset_classes,omitempty"`
}

// ServerMessage represents a message to the client
type ServerMessage struct {
	Type       MessageType       `json:"type"`
	AssetClass models.AssetClass `json:"asset_class,omitempty"`
	Data       interface{}       `json:"data,omitempty"`
	Code       string            `json:"code,omitempty"`
	Message    string            `json:"message,omitempty"`
}

// snapshotMessage wraps an already encoded snapshot without decoding it
func snapshotMessage(class models.AssetClass, snapshot []byte) ([]byte, error) {
	return json.Marshal(ServerMessage{
		Type:       MessageTypeSnapshot,
		AssetClass: class,
		Data:       json.RawMessage(snapshot),
	})
}

// classes returns the asset classes named in msg
func (msg *ClientMessage) classes() ([]models.AssetClass, error) {
	names := msg.AssetClasses
	if msg.AssetClass != "" {
		names = append([]string{msg.AssetClass}, names...)
	}
	if len(names) == 0 {
		return nil, fmt.Errorf("asset_class or asset_classes field required")
	}

	out := make([]models.AssetClass, 0, len(names))
	for _, name := range names {
		class, err := models.ParseAssetClass(name)
		if err != nil {
			return nil, err
		}
		out = append(out, class)
	}
	return out, nil
}

// HandleClientMessage applies a client message to the connection. The
// returned classes are those newly subscribed.
func (c *Connection) HandleClientMessage(msg *ClientMessage) ([]models.AssetClass, error) {
	switch MessageType(msg.Type) {
	case MessageTypeSubscribe:
		classes, err := msg.classes()
		if err != nil {
			return nil, c.SendError("invalid_request", err.Error())
		}
		for _, class := range classes {
			c.Subscribe(class)
		}
		logger.Debug("Client subscribed",
			logger.String("connection_id", c.ID),
			logger.String("user_id", c.UserID),
			logger.Int("asset_classes", len(classes)),
		)
		return classes, c.SendSuccess("subscribed", classes)

	case MessageTypeUnsubscribe:
		classes, err := msg.classes()
		if err != nil {
			return nil, c.SendError("invalid_request", err.Error())
		}
		for _, class := range classes {
			c.Unsubscribe(class)
		}
		return nil, c.SendSuccess("unsubscribed", classes)

	case MessageTypePing:
		return nil, c.enqueueMessage(ServerMessage{Type: MessageTypePong})

	default:
		return nil, c.SendError("unknown_message_type", fmt.Sprintf("unknown message type: %s", msg.Type))
	}
}

// SendSuccess acknowledges a client action
func (c *Connection) SendSuccess(action string, classes []models.AssetClass) error {
	return c.enqueueMessage(ServerMessage{
		Type: MessageTypeSuccess,
		Data: map[string]interface{}{
			"action":        action,
			"asset_classes": classes,
		},
	})
}

// SendError reports a client error
func (c *Connection) SendError(code string, message string) error {
	return c.enqueueMessage(ServerMessage{
		Type:    MessageTypeError,
		Code:    code,
		Message: message,
	})
}

func (c *Connection) enqueueMessage(msg ServerMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	if !c.Enqueue(data) {
		return fmt.Errorf("send buffer full for connection %s", c.ID)
	}
	return nil
}
