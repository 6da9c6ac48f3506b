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

type CreateOfferInput struct {
	Title       string  `json:"title" binding:"required"`
	Description string  `json:"description" binding:"required"`
	Price       float64 `json:"price" binding:"required,gt=0"`
	ImagePath   string  `json:"imagePath"`
	IsFeatured  bool    `json:"isFeatured"`
}

type UpdateOfferInput struct {
	Title       *string  `json:"title"`
	Description *string  `json:"description"`
	Price       *float64 `json:"price" binding:"omitempty,gt=0"`
	ImagePath   *string  `json:"imagePath"`
	IsActive    *bool    `json:"isActive"`
	IsFeatured  *bool    `json:"isFeatured"`
}

func CreateOffer(c *gin.Context) {
	var input CreateOfferInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid input: "+err.Error())
		return
	}

	offer := models.Offer{
		Title:       input.Title,
		Description: input.Description,
		Price:       input.Price,
		ImagePath:   input.ImagePath,
		IsActive:    true,
		IsFeatured:  input.IsFeatured,
	}

	if err := config.DB.Create(&offer).Error; err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to create offer")
		return
	}

	c.JSON(http.StatusCreated, offer)
}

func GetOffers(c *gin.Context) {
	var offers []models.Offer
	if err := config.DB.Order("created_at desc").Find(&offers).Error; err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to retrieve offers")
		return
	}

	c.JSON(http.StatusOK, offers)
}

// GetPublicOffers is the open listing the {enlace_web} placeholder points to.
func GetPublicOffers(c *gin.Context) {
	var featured []models.Offer
	config.DB.Where("is_active = ? AND is_featured = ?", true, true).
		Order("created_at desc").Limit(3).Find(&featured)

	var regular []models.Offer
	config.DB.Where("is_active = ? AND is_featured = ?", true, false).
		Order("created_at desc").Limit(6).Find(&regular)

	c.JSON(http.StatusOK, gin.H{
		"featured": featured,
		"offers":   regular,
	})
}

func UpdateOffer(c *gin.Context) {
	offerUUID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid offer ID format")
		return
	}

	var input UpdateOfferInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid input: "+err.Error())
		return
	}

	var offer models.Offer
	if err := config.DB.First(&offer, "id = ?", offerUUID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.RespondWithError(c, http.StatusNotFound, "Offer not found")
		} else {
			utils.RespondWithError(c, http.StatusInternalServerError, "Database error")
		}
		return
	}

	if input.Title != nil {
		offer.Title = *input.Title
	}
	if input.Description != nil {
		offer.Description = *input.Description
	}
	if input.Price != nil {
		offer.Price = *input.Price
	}
	if input.ImagePath != nil {
		offer.ImagePath = *input.ImagePath
	}
	if input.IsActive != nil {
		offer.IsActive = *input.IsActive
	}
	if input.IsFeatured != nil {
		offer.IsFeatured = *input.IsFeatured
	}

	if err := config.DB.Save(&offer).Error; err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to update offer")
		return
	}

	c.JSON(http.StatusOK, offer)
}

func ToggleOffer(c *gin.Context) {
	offerUUID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid offer ID format")
		return
	}

	var offer models.Offer
	if err := config.DB.First(&offer, "id = ?", offerUUID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.RespondWithError(c, http.StatusNotFound, "Offer not found")
		} else {
			utils.RespondWithError(c, http.StatusInternalServerError, "Database error")
		}
		return
	}

	offer.IsActive = !offer.IsActive
	if err := config.DB.Model(&offer).Update("is_active", offer.IsActive).Error; err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to toggle offer")
		return
	}

	c.JSON(http.StatusOK, offer)
}

func DeleteOffer(c *gin.Context) {
	offerUUID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid offer ID format")
		return
	}

	result := config.DB.Where("id = ?", offerUUID).Delete(&models.Offer{})
	if result.Error != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to delete offer")
		return
	}
	if result.RowsAffected == 0 {
		utils.RespondWithError(c, http.StatusNotFound, "Offer not found")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Offer deleted successfully"})
}
