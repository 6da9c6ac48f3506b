package services

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"whatscrm-backend/models"
)

func ensureConversation(db *gorm.DB, contactNumber, contactName string) (*models.Conversation, error) {
	var conversation models.Conversation
	err := db.Where("contact_number = ?", contactNumber).First(&conversation).Error
	if err == nil {
		if contactName != "" && conversation.ContactName == "" {
			db.Model(&conversation).Update("contact_name", contactName)
		}
		return &conversation, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	conversation = models.Conversation{
		ContactNumber: contactNumber,
		ContactName:   contactName,
	}
	if err := db.Create(&conversation).Error; err != nil {
		return nil, err
	}
	return &conversation, nil
}

func appendConversationMessage(db *gorm.DB, conversation *models.Conversation, senderType, text string, sentAt time.Time, externalID string, isRead bool) error {
	message := models.ConversationMessage{
		ConversationID: conversation.ID,
		SenderType:     senderType,
		MessageText:    text,
		SentAt:         sentAt,
		ExternalID:     externalID,
		IsRead:         isRead,
	}
	if err := db.Create(&message).Error; err != nil {
		return err
	}
	return db.Model(conversation).Update("updated_at", time.Now()).Error
}

// RegisterIncoming files a message received from a customer into its thread,
// creating the thread on first contact. Incoming messages start unread.
func RegisterIncoming(db *gorm.DB, contactNumber, contactName, text string, sentAt time.Time, externalID string) error {
	conversation, err := ensureConversation(db, contactNumber, contactName)
	if err != nil {
		return err
	}
	return appendConversationMessage(db, conversation, models.SenderCustomer, text, sentAt, externalID, false)
}

// RegisterOutgoing files a message we sent (broadcast or inbox reply) into
// the contact's thread.
func RegisterOutgoing(db *gorm.DB, contactNumber, text string, sentAt time.Time, externalID string) error {
	conversation, err := ensureConversation(db, contactNumber, "")
	if err != nil {
		return err
	}
	return appendConversationMessage(db, conversation, models.SenderAgent, text, sentAt, externalID, true)
}
