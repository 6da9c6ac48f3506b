package controllers

import (
	"net/http"
	"time"

	"whatscrm-backend/config"
	"whatscrm-backend/models"
	"whatscrm-backend/utils"

	"github.com/gin-gonic/gin"
)

type DashboardOverview struct {
	TotalCustomers  int64 `json:"totalCustomers"`
	ActiveCustomers int64 `json:"activeCustomers"`
	TotalZones      int64 `json:"totalZones"`
	EnabledRules    int64 `json:"enabledRules"`
	SendsToday      int64 `json:"sendsToday"`
	FailuresToday   int64 `json:"failuresToday"`
	UnreadMessages  int64 `json:"unreadMessages"`
}

func GetDashboardOverview(c *gin.Context) {
	var overview DashboardOverview

	config.DB.Model(&models.Customer{}).Count(&overview.TotalCustomers)
	config.DB.Model(&models.Customer{}).Where("is_active = ?", true).Count(&overview.ActiveCustomers)
	config.DB.Model(&models.Zone{}).Count(&overview.TotalZones)
	config.DB.Model(&models.BroadcastRule{}).Where("enabled = ?", true).Count(&overview.EnabledRules)

	startOfDay := utils.BeginningOfDay(time.Now().In(config.Location))
	config.DB.Model(&models.SendRecord{}).
		Where("created_at >= ? AND success = ?", startOfDay, true).
		Count(&overview.SendsToday)
	config.DB.Model(&models.SendRecord{}).
		Where("created_at >= ? AND success = ?", startOfDay, false).
		Count(&overview.FailuresToday)

	config.DB.Model(&models.ConversationMessage{}).
		Where("sender_type = ? AND is_read = ?", models.SenderCustomer, false).
		Count(&overview.UnreadMessages)

	c.JSON(http.StatusOK, overview)
}
