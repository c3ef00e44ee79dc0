package main

import (
	"flag"
	"log"

	"go-mini-commerce/internal/model"
	"go-mini-commerce/pkg/database"

	"github.com/joho/godotenv"
)

// Promotes an existing customer to admin, optionally resetting the password.
func main() {
	email := flag.String("email", "", "customer email to promote")
	password := flag.String("password", "", "optional new password")
	flag.Parse()

	if *email == "" {
		log.Fatal("Usage: grant-admin -email <email> [-password <new password>]")
	}

	// 1. Load Env
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found, relying on system env")
	}

	// 2. Setup Database
	db := database.ConnectDB()

	// 3. Find Customer
	var customer model.Customer
	if err := db.Where("email = ?", *email).First(&customer).Error; err != nil {
		log.Fatalf("❌ Customer %s not found in database: %v", *email, err)
	}

	// 4. Update
	customer.IsAdmin = true
	if *password != "" {
		if err := customer.SetPassword(*password); err != nil {
			log.Fatalf("❌ Failed to hash password: %v", err)
		}
	}
	if err := db.Save(&customer).Error; err != nil {
		log.Fatalf("❌ Failed to update customer in DB: %v", err)
	}

	log.Printf("✅ Success! %s is now an admin", *email)
	if *password != "" {
		log.Printf("Password has been reset")
	}
}
