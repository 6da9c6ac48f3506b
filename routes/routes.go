package routes

import (
	"os"
	"strings"

	"whatscrm-backend/config"
	"whatscrm-backend/controllers"
	"whatscrm-backend/utils"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

func SetupRouter() *gin.Engine {
	r := gin.Default()

	origins := []string{"http://localhost:3000"}
	if env := os.Getenv("CORS_ORIGINS"); env != "" {
		origins = strings.Split(env, ",")
	}

	r.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Authorization", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
	}))

	r.Use(config.PerformanceLogger())

	auth := r.Group("/auth")
	{
		auth.POST("/register", controllers.Register)
		auth.POST("/login", controllers.Login)

		auth.Use(utils.AuthMiddleware())
		auth.GET("/me", controllers.Me)
	}

	// Provider callback and the public offers page stay unauthenticated.
	r.POST("/webhook/whatsapp", controllers.WhatsAppWebhook)
	r.GET("/public/offers", controllers.GetPublicOffers)

	api := r.Group("/api")
	api.Use(utils.AuthMiddleware())
	{
		zones := api.Group("/zones")
		{
			zones.POST("", controllers.CreateZone)
			zones.GET("", controllers.GetZones)
			zones.GET("/:id", controllers.GetZone)
			zones.PUT("/:id", controllers.UpdateZone)
			zones.DELETE("/:id", controllers.DeleteZone)
		}

		customers := api.Group("/customers")
		{
			customers.POST("", controllers.CreateCustomer)
			customers.GET("", controllers.GetCustomers)
			customers.GET("/:id", controllers.GetCustomer)
			customers.PUT("/:id", controllers.UpdateCustomer)
			customers.DELETE("/:id", controllers.DeleteCustomer)
		}

		templates := api.Group("/templates")
		{
			templates.POST("", controllers.CreateTemplate)
			templates.GET("", controllers.GetTemplates)
			templates.GET("/:id", controllers.GetTemplate)
			templates.PUT("/:id", controllers.UpdateTemplate)
			templates.POST("/:id/toggle", controllers.ToggleTemplate)
			templates.DELETE("/:id", controllers.DeleteTemplate)
		}

		offers := api.Group("/offers")
		{
			offers.POST("", controllers.CreateOffer)
			offers.GET("", controllers.GetOffers)
			offers.PUT("/:id", controllers.UpdateOffer)
			offers.POST("/:id/toggle", controllers.ToggleOffer)
			offers.DELETE("/:id", controllers.DeleteOffer)
		}

		rules := api.Group("/broadcast-rules")
		{
			rules.POST("", controllers.CreateBroadcastRule)
			rules.GET("", controllers.GetBroadcastRules)
			rules.PUT("/:id", controllers.UpdateBroadcastRule)
			rules.POST("/:id/toggle", controllers.ToggleBroadcastRule)
			rules.DELETE("/:id", controllers.DeleteBroadcastRule)
		}

		api.GET("/send-history", controllers.GetSendHistory)

		inbox := api.Group("/conversations")
		{
			inbox.GET("", controllers.GetConversations)
			inbox.GET("/:id", controllers.GetConversation)
			inbox.POST("/:id/reply", controllers.ReplyToConversation)
		}

		api.GET("/dashboard", controllers.GetDashboardOverview)
	}

	return r
}
