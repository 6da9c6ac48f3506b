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

type CreateZoneInput struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
}

type UpdateZoneInput struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
}

func CreateZone(c *gin.Context) {
	var input CreateZoneInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid input: "+err.Error())
		return
	}

	var existingZone models.Zone
	if err := config.DB.Where("name = ?", input.Name).First(&existingZone).Error; err == nil {
		utils.RespondWithError(c, http.StatusConflict, "Zone with this name already exists")
		return
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		utils.RespondWithError(c, http.StatusInternalServerError, "Database error")
		return
	}

	zone := models.Zone{
		Name:        input.Name,
		Description: input.Description,
	}

	if err := config.DB.Create(&zone).Error; err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to create zone")
		return
	}

	c.JSON(http.StatusCreated, zone)
}

func GetZones(c *gin.Context) {
	var zones []models.Zone
	if err := config.DB.Order("name").Find(&zones).Error; err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to retrieve zones")
		return
	}

	c.JSON(http.StatusOK, zones)
}

func GetZone(c *gin.Context) {
	zoneUUID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid zone ID format")
		return
	}

	var zone models.Zone
	if err := config.DB.First(&zone, "id = ?", zoneUUID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.RespondWithError(c, http.StatusNotFound, "Zone not found")
		} else {
			utils.RespondWithError(c, http.StatusInternalServerError, "Database error")
		}
		return
	}

	c.JSON(http.StatusOK, zone)
}

func UpdateZone(c *gin.Context) {
	zoneUUID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid zone ID format")
		return
	}

	var input UpdateZoneInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid input: "+err.Error())
		return
	}

	var zone models.Zone
	if err := config.DB.First(&zone, "id = ?", zoneUUID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.RespondWithError(c, http.StatusNotFound, "Zone not found")
		} else {
			utils.RespondWithError(c, http.StatusInternalServerError, "Database error")
		}
		return
	}

	if input.Name != nil {
		zone.Name = *input.Name
	}
	if input.Description != nil {
		zone.Description = *input.Description
	}

	if err := config.DB.Save(&zone).Error; err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to update zone")
		return
	}

	c.JSON(http.StatusOK, zone)
}

// DeleteZone removes a zone. Zones with customers are never silently
// orphaned: the caller must pass ?reassign_to=<zone-id> and the customers
// are moved inside the same transaction as the delete.
func DeleteZone(c *gin.Context) {
	zoneUUID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid zone ID format")
		return
	}

	var zone models.Zone
	if err := config.DB.First(&zone, "id = ?", zoneUUID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.RespondWithError(c, http.StatusNotFound, "Zone not found")
		} else {
			utils.RespondWithError(c, http.StatusInternalServerError, "Database error")
		}
		return
	}

	var customerCount int64
	if err := config.DB.Model(&models.Customer{}).Where("zone_id = ?", zoneUUID).Count(&customerCount).Error; err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Database error")
		return
	}

	var reassignTo *uuid.UUID
	if raw := c.Query("reassign_to"); raw != "" {
		target, err := uuid.Parse(raw)
		if err != nil {
			utils.RespondWithError(c, http.StatusBadRequest, "Invalid reassign_to ID format")
			return
		}
		if target == zoneUUID {
			utils.RespondWithError(c, http.StatusBadRequest, "Cannot reassign customers to the zone being deleted")
			return
		}
		var targetZone models.Zone
		if err := config.DB.First(&targetZone, "id = ?", target).Error; err != nil {
			utils.RespondWithError(c, http.StatusBadRequest, "Reassignment target zone not found")
			return
		}
		reassignTo = &target
	}

	if customerCount > 0 && reassignTo == nil {
		utils.RespondWithError(c, http.StatusConflict, "Zone has customers; pass reassign_to with a target zone")
		return
	}

	err = config.DB.Transaction(func(tx *gorm.DB) error {
		if reassignTo != nil {
			if err := tx.Model(&models.Customer{}).
				Where("zone_id = ?", zoneUUID).
				Update("zone_id", *reassignTo).Error; err != nil {
				return err
			}
		}
		return tx.Delete(&zone).Error
	})
	if err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to delete zone")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Zone deleted successfully"})
}
