package controllers

import (
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"whatscrm-backend/config"
	"whatscrm-backend/models"
	"whatscrm-backend/services"
	"whatscrm-backend/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Gateway is the outbound message transport shared by the inbox reply
// endpoint and the broadcast scheduler. Set once in main.
var Gateway services.MessageGateway

// greenAPIWebhook is the subset of Green-API's notification payload the
// inbox cares about.
type greenAPIWebhook struct {
	TypeWebhook string `json:"typeWebhook"`
	IDMessage   string `json:"idMessage"`
	Timestamp   int64  `json:"timestamp"`
	SenderData  struct {
		ChatID     string `json:"chatId"`
		SenderName string `json:"senderName"`
	} `json:"senderData"`
	MessageData struct {
		TypeMessage     string `json:"typeMessage"`
		TextMessageData struct {
			TextMessage string `json:"textMessage"`
		} `json:"textMessageData"`
	} `json:"messageData"`
}

// WhatsAppWebhook ingests inbound messages pushed by the provider. Always
// answers 200 so the provider does not retry storms on payloads we ignore.
func WhatsAppWebhook(c *gin.Context) {
	var payload greenAPIWebhook
	if err := c.ShouldBindJSON(&payload); err != nil {
		log.Printf("Webhook: unreadable payload: %v", err)
		c.JSON(http.StatusOK, gin.H{"status": "ignored"})
		return
	}

	if payload.TypeWebhook != "incomingMessageReceived" {
		c.JSON(http.StatusOK, gin.H{"status": "ignored"})
		return
	}

	text := payload.MessageData.TextMessageData.TextMessage
	if text == "" {
		c.JSON(http.StatusOK, gin.H{"status": "ignored"})
		return
	}

	contactNumber := strings.TrimSuffix(payload.SenderData.ChatID, "@c.us")
	sentAt := time.Now()
	if payload.Timestamp > 0 {
		sentAt = time.Unix(payload.Timestamp, 0)
	}

	if err := services.RegisterIncoming(config.DB, contactNumber, payload.SenderData.SenderName, text, sentAt, payload.IDMessage); err != nil {
		log.Printf("Webhook: failed to register message from %s: %v", contactNumber, err)
		c.JSON(http.StatusOK, gin.H{"status": "error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "received"})
}

type ConversationSummary struct {
	models.Conversation
	LastMessageText   string `json:"lastMessageText"`
	LastMessageSender string `json:"lastMessageSender"`
	UnreadCount       int64  `json:"unreadCount"`
}

func GetConversations(c *gin.Context) {
	var conversations []models.Conversation
	if err := config.DB.Order("updated_at desc").Find(&conversations).Error; err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to retrieve conversations")
		return
	}

	summaries := make([]ConversationSummary, 0, len(conversations))
	for _, conversation := range conversations {
		summary := ConversationSummary{Conversation: conversation}

		var last models.ConversationMessage
		if err := config.DB.Where("conversation_id = ?", conversation.ID).
			Order("sent_at desc").First(&last).Error; err == nil {
			summary.LastMessageText = last.MessageText
			summary.LastMessageSender = last.SenderType
		}

		config.DB.Model(&models.ConversationMessage{}).
			Where("conversation_id = ? AND sender_type = ? AND is_read = ?",
				conversation.ID, models.SenderCustomer, false).
			Count(&summary.UnreadCount)

		summaries = append(summaries, summary)
	}

	c.JSON(http.StatusOK, summaries)
}

// GetConversation returns a thread's messages oldest first and marks the
// customer messages as read.
func GetConversation(c *gin.Context) {
	conversationUUID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid conversation ID format")
		return
	}

	var conversation models.Conversation
	if err := config.DB.First(&conversation, "id = ?", conversationUUID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.RespondWithError(c, http.StatusNotFound, "Conversation not found")
		} else {
			utils.RespondWithError(c, http.StatusInternalServerError, "Database error")
		}
		return
	}

	var messages []models.ConversationMessage
	if err := config.DB.Where("conversation_id = ?", conversationUUID).
		Order("sent_at asc").Find(&messages).Error; err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to retrieve messages")
		return
	}

	config.DB.Model(&models.ConversationMessage{}).
		Where("conversation_id = ? AND sender_type = ? AND is_read = ?",
			conversationUUID, models.SenderCustomer, false).
		Update("is_read", true)

	c.JSON(http.StatusOK, gin.H{
		"conversation": conversation,
		"messages":     messages,
	})
}

type ReplyInput struct {
	Text string `json:"text" binding:"required"`
}

// ReplyToConversation sends an agent reply through the gateway and files it
// into the thread.
func ReplyToConversation(c *gin.Context) {
	conversationUUID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid conversation ID format")
		return
	}

	var input ReplyInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid input: "+err.Error())
		return
	}

	var conversation models.Conversation
	if err := config.DB.First(&conversation, "id = ?", conversationUUID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.RespondWithError(c, http.StatusNotFound, "Conversation not found")
		} else {
			utils.RespondWithError(c, http.StatusInternalServerError, "Database error")
		}
		return
	}

	if Gateway == nil {
		utils.RespondWithError(c, http.StatusServiceUnavailable, "Message gateway not configured")
		return
	}

	result := Gateway.SendText(conversation.ContactNumber, input.Text)
	if !result.Success {
		utils.RespondWithError(c, http.StatusBadGateway, "Send failed: "+result.ErrorMessage)
		return
	}

	if err := services.RegisterOutgoing(config.DB, conversation.ContactNumber, input.Text, time.Now(), result.ExternalID); err != nil {
		log.Printf("Reply to %s sent but not registered: %v", conversation.ContactNumber, err)
	}

	c.JSON(http.StatusOK, gin.H{"message": "Reply sent", "externalId": result.ExternalID})
}
