package controllers

import (
	"net/http"
	"strconv"

	"whatscrm-backend/config"
	"whatscrm-backend/models"
	"whatscrm-backend/utils"

	"github.com/gin-gonic/gin"
)

// SendHistoryEntry is one ledger row with resolved display names. Names may
// be empty when the customer or template was deleted after the send.
type SendHistoryEntry struct {
	models.SendRecord
	CustomerName string `json:"customerName"`
	TemplateName string `json:"templateName"`
}

// GetSendHistory lists recent send ledger entries, newest first. Supports
// ?success=true|false and ?limit=N (default 100, max 500).
func GetSendHistory(c *gin.Context) {
	limit := 100
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			utils.RespondWithError(c, http.StatusBadRequest, "Invalid limit")
			return
		}
		if n > 500 {
			n = 500
		}
		limit = n
	}

	query := config.DB.Order("created_at desc").Limit(limit)
	if raw := c.Query("success"); raw != "" {
		want, err := strconv.ParseBool(raw)
		if err != nil {
			utils.RespondWithError(c, http.StatusBadRequest, "Invalid success filter")
			return
		}
		query = query.Where("success = ?", want)
	}

	var records []models.SendRecord
	if err := query.Find(&records).Error; err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to retrieve send history")
		return
	}

	entries := make([]SendHistoryEntry, 0, len(records))
	for _, record := range records {
		entry := SendHistoryEntry{SendRecord: record}

		var customer models.Customer
		if err := config.DB.First(&customer, "id = ?", record.CustomerID).Error; err == nil {
			entry.CustomerName = customer.Name
		}
		var template models.MessageTemplate
		if err := config.DB.First(&template, "id = ?", record.TemplateID).Error; err == nil {
			entry.TemplateName = template.Name
		}

		entries = append(entries, entry)
	}

	c.JSON(http.StatusOK, entries)
}
