package handlers

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/MateoRommel12/pineapple-cv/server/models"
	"github.com/MateoRommel12/pineapple-cv/server/processor"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// WebSocketHandler serves the live camera preview: the app streams
// viewfinder frames as data URLs and gets an analysis outcome back for
// each one, so the user can line up the pineapple before the real shot.
type WebSocketHandler struct {
	pipeline *processor.Pipeline
	logger   *zap.Logger
	upgrader websocket.Upgrader
}

type clientMessage struct {
	Type      string `json:"type"`
	Data      string `json:"data"`
	Timestamp int64  `json:"timestamp"`
}

type serverMessage struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

func NewWebSocketHandler(pipeline *processor.Pipeline, logger *zap.Logger) *WebSocketHandler {
	return &WebSocketHandler{
		pipeline: pipeline,
		logger:   logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
}

func (h *WebSocketHandler) HandleWebSocket(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Error("Failed to upgrade websocket connection", zap.Error(err))
		return
	}
	defer conn.Close()

	clientIP := c.ClientIP()
	h.logger.Info("WebSocket client connected", zap.String("client_ip", clientIP))

	conn.SetReadLimit(15 * 1024 * 1024)
	conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	conn.SetPongHandler(func(appData string) error {
		conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	ticker := time.NewTicker(54 * time.Second)
	defer ticker.Stop()

	done := make(chan struct{})
	go h.pingRoutine(conn, ticker, done)

	for {
		select {
		case <-done:
			return
		default:
			var message clientMessage
			if err := conn.ReadJSON(&message); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
					h.logger.Error("WebSocket read error", zap.Error(err))
				}
				close(done)
				return
			}
			h.handleMessage(conn, clientIP, &message)
		}
	}
}

func (h *WebSocketHandler) handleMessage(conn *websocket.Conn, clientIP string, message *clientMessage) {
	switch message.Type {
	case "frame":
		h.analyzeFrame(conn, clientIP, message)
	case "ping":
		h.sendMessage(conn, "pong", map[string]any{"timestamp": time.Now().Unix()})
	default:
		h.logger.Warn("Unknown message type received", zap.String("type", message.Type))
		h.sendError(conn, "Unknown message type: "+message.Type)
	}
}

func (h *WebSocketHandler) analyzeFrame(conn *websocket.Conn, clientIP string, message *clientMessage) {
	imageData, err := decodeDataURL(message.Data)
	if err != nil {
		h.logger.Error("Failed to extract frame data", zap.Error(err))
		h.sendError(conn, "Invalid image data format")
		return
	}

	req := &models.AnalysisRequest{
		ImageData: imageData,
		Filename:  "frame.jpg",
		ClientID:  clientIP,
		Timestamp: message.Timestamp,
	}

	go func() {
		outcome := h.pipeline.Analyze(context.Background(), req)
		h.sendMessage(conn, "analysis", outcome)
	}()
}

func decodeDataURL(dataURL string) ([]byte, error) {
	parts := strings.Split(dataURL, ",")
	if len(parts) != 2 {
		return nil, fmt.Errorf("invalid data URL format")
	}
	return base64.StdEncoding.DecodeString(parts[1])
}

func (h *WebSocketHandler) sendMessage(conn *websocket.Conn, messageType string, data any) {
	message := serverMessage{Type: messageType, Data: data}
	if err := conn.WriteJSON(message); err != nil {
		h.logger.Error("Failed to send WebSocket message", zap.Error(err))
	}
}

func (h *WebSocketHandler) sendError(conn *websocket.Conn, errorMsg string) {
	h.sendMessage(conn, "error", map[string]any{
		"message":   errorMsg,
		"timestamp": time.Now().Unix(),
	})
}

func (h *WebSocketHandler) pingRoutine(conn *websocket.Conn, ticker *time.Ticker, done chan struct{}) {
	for {
		select {
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				h.logger.Error("Failed to send ping", zap.Error(err))
				close(done)
				return
			}
		case <-done:
			return
		}
	}
}
