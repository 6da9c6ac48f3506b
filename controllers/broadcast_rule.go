package controllers

import (
	"errors"
	"net/http"

	"whatscrm-backend/config"
	"whatscrm-backend/models"
	"whatscrm-backend/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type CreateBroadcastRuleInput struct {
	ZoneID     uuid.UUID `json:"zoneId" binding:"required"`
	TemplateID uuid.UUID `json:"templateId" binding:"required"`
	Weekdays   []int     `json:"weekdays" binding:"required,min=1,dive,gte=0,lte=6"`
	TimeOfDay  string    `json:"timeOfDay" binding:"required"`
}

type UpdateBroadcastRuleInput struct {
	ZoneID     *uuid.UUID `json:"zoneId"`
	TemplateID *uuid.UUID `json:"templateId"`
	Weekdays   []int      `json:"weekdays" binding:"omitempty,min=1,dive,gte=0,lte=6"`
	TimeOfDay  *string    `json:"timeOfDay"`
}

// BroadcastRuleView is the admin list representation: the raw rule plus
// resolved names and a health note when a referenced entity is gone.
type BroadcastRuleView struct {
	models.BroadcastRule
	ZoneName     string `json:"zoneName"`
	TemplateName string `json:"templateName"`
	WeekdayList  []int  `json:"weekdayList"`
	Health       string `json:"health"` // "ok" or "broken: ..."
}

func CreateBroadcastRule(c *gin.Context) {
	var input CreateBroadcastRuleInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid input: "+err.Error())
		return
	}

	if !utils.ValidateTimeOfDay(input.TimeOfDay) {
		utils.RespondWithError(c, http.StatusBadRequest, "timeOfDay must be HH:MM (24h)")
		return
	}

	var zone models.Zone
	if err := config.DB.First(&zone, "id = ?", input.ZoneID).Error; err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Zone not found")
		return
	}
	var template models.MessageTemplate
	if err := config.DB.First(&template, "id = ?", input.TemplateID).Error; err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Template not found")
		return
	}

	rule := models.BroadcastRule{
		ZoneID:     input.ZoneID,
		TemplateID: input.TemplateID,
		Weekdays:   models.JoinWeekdays(input.Weekdays),
		TimeOfDay:  input.TimeOfDay,
		Enabled:    true,
	}

	if rule.Weekdays == "" {
		utils.RespondWithError(c, http.StatusBadRequest, "weekdays must contain at least one day 0-6")
		return
	}

	if err := config.DB.Create(&rule).Error; err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to create broadcast rule")
		return
	}

	c.JSON(http.StatusCreated, rule)
}

func GetBroadcastRules(c *gin.Context) {
	var rules []models.BroadcastRule
	if err := config.DB.Order("created_at desc").Find(&rules).Error; err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to retrieve broadcast rules")
		return
	}

	views := make([]BroadcastRuleView, 0, len(rules))
	for _, rule := range rules {
		view := BroadcastRuleView{
			BroadcastRule: rule,
			WeekdayList:   rule.WeekdayList(),
			Health:        "ok",
		}

		var zone models.Zone
		if err := config.DB.First(&zone, "id = ?", rule.ZoneID).Error; err == nil {
			view.ZoneName = zone.Name
		} else {
			view.Health = "broken: missing zone"
		}

		var template models.MessageTemplate
		if err := config.DB.First(&template, "id = ?", rule.TemplateID).Error; err == nil {
			view.TemplateName = template.Name
		} else if view.Health == "ok" {
			view.Health = "broken: missing template"
		}

		views = append(views, view)
	}

	c.JSON(http.StatusOK, views)
}

// UpdateBroadcastRule edits a rule's schedule. Changing the time of day
// clears LastRunDate so the rule may fire again today at its new time.
func UpdateBroadcastRule(c *gin.Context) {
	ruleUUID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid rule ID format")
		return
	}

	var input UpdateBroadcastRuleInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid input: "+err.Error())
		return
	}

	var rule models.BroadcastRule
	if err := config.DB.First(&rule, "id = ?", ruleUUID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.RespondWithError(c, http.StatusNotFound, "Broadcast rule not found")
		} else {
			utils.RespondWithError(c, http.StatusInternalServerError, "Database error")
		}
		return
	}

	if input.ZoneID != nil {
		var zone models.Zone
		if err := config.DB.First(&zone, "id = ?", *input.ZoneID).Error; err != nil {
			utils.RespondWithError(c, http.StatusBadRequest, "Zone not found")
			return
		}
		rule.ZoneID = *input.ZoneID
	}
	if input.TemplateID != nil {
		var template models.MessageTemplate
		if err := config.DB.First(&template, "id = ?", *input.TemplateID).Error; err != nil {
			utils.RespondWithError(c, http.StatusBadRequest, "Template not found")
			return
		}
		rule.TemplateID = *input.TemplateID
	}
	if input.Weekdays != nil {
		joined := models.JoinWeekdays(input.Weekdays)
		if joined == "" {
			utils.RespondWithError(c, http.StatusBadRequest, "weekdays must contain at least one day 0-6")
			return
		}
		rule.Weekdays = joined
	}
	if input.TimeOfDay != nil {
		if !utils.ValidateTimeOfDay(*input.TimeOfDay) {
			utils.RespondWithError(c, http.StatusBadRequest, "timeOfDay must be HH:MM (24h)")
			return
		}
		if *input.TimeOfDay != rule.TimeOfDay {
			rule.TimeOfDay = *input.TimeOfDay
			rule.LastRunDate = nil
		}
	}

	updates := map[string]interface{}{
		"zone_id":       rule.ZoneID,
		"template_id":   rule.TemplateID,
		"weekdays":      rule.Weekdays,
		"time_of_day":   rule.TimeOfDay,
		"last_run_date": rule.LastRunDate,
	}
	if err := config.DB.Model(&rule).Updates(updates).Error; err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to update broadcast rule")
		return
	}

	c.JSON(http.StatusOK, rule)
}

func ToggleBroadcastRule(c *gin.Context) {
	ruleUUID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid rule ID format")
		return
	}

	var rule models.BroadcastRule
	if err := config.DB.First(&rule, "id = ?", ruleUUID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.RespondWithError(c, http.StatusNotFound, "Broadcast rule not found")
		} else {
			utils.RespondWithError(c, http.StatusInternalServerError, "Database error")
		}
		return
	}

	rule.Enabled = !rule.Enabled
	if err := config.DB.Model(&rule).Update("enabled", rule.Enabled).Error; err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to toggle broadcast rule")
		return
	}

	c.JSON(http.StatusOK, rule)
}

func DeleteBroadcastRule(c *gin.Context) {
	ruleUUID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid rule ID format")
		return
	}

	result := config.DB.Where("id = ?", ruleUUID).Delete(&models.BroadcastRule{})
	if result.Error != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to delete broadcast rule")
		return
	}
	if result.RowsAffected == 0 {
		utils.RespondWithError(c, http.StatusNotFound, "Broadcast rule not found")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Broadcast rule deleted successfully"})
}
