package main

import (
	"fmt"
	"log"
	"os"

	"whatscrm-backend/config"
	"whatscrm-backend/controllers"
	"whatscrm-backend/models"
	"whatscrm-backend/routes"
	"whatscrm-backend/services"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

func init() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}
	config.LoadTimezone()
	config.ConnectDB()

	config.DB.AutoMigrate(
		&models.User{},
		&models.Zone{},
		&models.Customer{},
		&models.MessageTemplate{},
		&models.Offer{},
		&models.BroadcastRule{},
		&models.SendRecord{},
		&models.Conversation{},
		&models.ConversationMessage{},
	)
}

func main() {
	gateway := services.NewGatewayFromEnv()
	controllers.Gateway = gateway

	scheduler := services.NewBroadcastScheduler(config.DB, gateway, config.Location)
	scheduler.Start()

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	r := routes.SetupRouter()
	printRoutes(r)
	r.Run(":" + port)
}

func printRoutes(r *gin.Engine) {
	routes := r.Routes()
	for _, route := range routes {
		fmt.Printf("%-6s %s\n", route.Method, route.Path)
	}
}
