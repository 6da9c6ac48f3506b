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

type CreateCustomerInput struct {
	Code    string    `json:"code"`
	Name    string    `json:"name" binding:"required"`
	Phone   string    `json:"phone" binding:"required"`
	Email   string    `json:"email"`
	Address string    `json:"address"`
	Town    string    `json:"town"`
	ZoneID  uuid.UUID `json:"zoneId" binding:"required"`
}

type UpdateCustomerInput struct {
	Code     *string    `json:"code"`
	Name     *string    `json:"name"`
	Phone    *string    `json:"phone"`
	Email    *string    `json:"email"`
	Address  *string    `json:"address"`
	Town     *string    `json:"town"`
	ZoneID   *uuid.UUID `json:"zoneId"`
	IsActive *bool      `json:"isActive"`
}

func CreateCustomer(c *gin.Context) {
	var input CreateCustomerInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid input: "+err.Error())
		return
	}

	if !utils.ValidatePhone(input.Phone) {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid phone number format")
		return
	}

	var zone models.Zone
	if err := config.DB.First(&zone, "id = ?", input.ZoneID).Error; err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Zone not found")
		return
	}

	customer := models.Customer{
		Code:     input.Code,
		Name:     input.Name,
		Phone:    input.Phone,
		Email:    input.Email,
		Address:  input.Address,
		Town:     input.Town,
		ZoneID:   input.ZoneID,
		IsActive: true,
	}

	if err := config.DB.Create(&customer).Error; err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to create customer")
		return
	}

	c.JSON(http.StatusCreated, customer)
}

func GetCustomers(c *gin.Context) {
	query := config.DB.Order("name")

	if zoneID := c.Query("zone_id"); zoneID != "" {
		zoneUUID, err := uuid.Parse(zoneID)
		if err != nil {
			utils.RespondWithError(c, http.StatusBadRequest, "Invalid zone_id format")
			return
		}
		query = query.Where("zone_id = ?", zoneUUID)
	}
	if c.Query("active") == "true" {
		query = query.Where("is_active = ?", true)
	}

	var customers []models.Customer
	if err := query.Find(&customers).Error; err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to retrieve customers")
		return
	}

	c.JSON(http.StatusOK, customers)
}

func GetCustomer(c *gin.Context) {
	customerUUID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid customer ID format")
		return
	}

	var customer models.Customer
	if err := config.DB.First(&customer, "id = ?", customerUUID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.RespondWithError(c, http.StatusNotFound, "Customer not found")
		} else {
			utils.RespondWithError(c, http.StatusInternalServerError, "Database error")
		}
		return
	}

	c.JSON(http.StatusOK, customer)
}

func UpdateCustomer(c *gin.Context) {
	customerUUID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid customer ID format")
		return
	}

	var input UpdateCustomerInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid input: "+err.Error())
		return
	}

	var customer models.Customer
	if err := config.DB.First(&customer, "id = ?", customerUUID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.RespondWithError(c, http.StatusNotFound, "Customer not found")
		} else {
			utils.RespondWithError(c, http.StatusInternalServerError, "Database error")
		}
		return
	}

	if input.Code != nil {
		customer.Code = *input.Code
	}
	if input.Name != nil {
		customer.Name = *input.Name
	}
	if input.Phone != nil {
		if !utils.ValidatePhone(*input.Phone) {
			utils.RespondWithError(c, http.StatusBadRequest, "Invalid phone number format")
			return
		}
		customer.Phone = *input.Phone
	}
	if input.Email != nil {
		customer.Email = *input.Email
	}
	if input.Address != nil {
		customer.Address = *input.Address
	}
	if input.Town != nil {
		customer.Town = *input.Town
	}
	if input.ZoneID != nil {
		var zone models.Zone
		if err := config.DB.First(&zone, "id = ?", *input.ZoneID).Error; err != nil {
			utils.RespondWithError(c, http.StatusBadRequest, "Zone not found")
			return
		}
		customer.ZoneID = *input.ZoneID
	}
	if input.IsActive != nil {
		customer.IsActive = *input.IsActive
	}

	if err := config.DB.Save(&customer).Error; err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to update customer")
		return
	}

	c.JSON(http.StatusOK, customer)
}

// DeleteCustomer hard-deletes a customer. Customers with send history keep
// their ledger rows referencing them and must be deactivated instead.
func DeleteCustomer(c *gin.Context) {
	customerUUID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid customer ID format")
		return
	}

	var recordCount int64
	if err := config.DB.Model(&models.SendRecord{}).
		Where("customer_id = ?", customerUUID).Count(&recordCount).Error; err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Database error")
		return
	}
	if recordCount > 0 {
		utils.RespondWithError(c, http.StatusConflict, "Customer has send history; deactivate instead of deleting")
		return
	}

	result := config.DB.Where("id = ?", customerUUID).Delete(&models.Customer{})
	if result.Error != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to delete customer")
		return
	}
	if result.RowsAffected == 0 {
		utils.RespondWithError(c, http.StatusNotFound, "Customer not found")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Customer deleted successfully"})
}
