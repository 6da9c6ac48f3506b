package controllers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"whatscrm-backend/config"
	"whatscrm-backend/models"
)

func TestToggleTemplateFlipsActive(t *testing.T) {
	setupTestDB(t)

	template := models.MessageTemplate{Name: "saludo", Content: "Hola {nombre_cliente}", IsActive: true}
	config.DB.Create(&template)

	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/templates/:id/toggle", ToggleTemplate)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/templates/"+template.ID.String()+"/toggle", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var reloaded models.MessageTemplate
	config.DB.First(&reloaded, "id = ?", template.ID)
	if reloaded.IsActive {
		t.Fatal("first toggle should deactivate the template")
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/templates/"+template.ID.String()+"/toggle", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	config.DB.First(&reloaded, "id = ?", template.ID)
	if !reloaded.IsActive {
		t.Fatal("second toggle should reactivate the template")
	}
}

func TestToggleOfferFlipsActive(t *testing.T) {
	setupTestDB(t)

	offer := models.Offer{Title: "2x1 fruta", Description: "Oferta de la semana", Price: 4.50, IsActive: true}
	config.DB.Create(&offer)

	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/offers/:id/toggle", ToggleOffer)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/offers/"+offer.ID.String()+"/toggle", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var reloaded models.Offer
	config.DB.First(&reloaded, "id = ?", offer.ID)
	if reloaded.IsActive {
		t.Fatal("first toggle should deactivate the offer")
	}
}
