package main

import (
	"log"
	"os"

	"campus-chat-be/pkg/database"

	"github.com/joho/godotenv"
)

func main() {
	// 1. Load Environment Variables
	if err := godotenv.Load(); err != nil {
		log.Println("Info: No .env file found, using system env")
	}

	driver := os.Getenv("DB_DRIVER")
	dsn := os.Getenv("DB_CONNECTION_STRING")
	if dsn == "" && driver != database.DriverSQLite {
		log.Fatal("Error: DB_CONNECTION_STRING is not set")
	}

	// 2. Connect to Database using existing GORM helpers
	db, err := database.NewGormDB(driver, dsn)
	if err != nil {
		log.Fatal("Error: Failed to connect to database:", err)
	}

	// 3. AutoMigrate chat tables
	log.Println("Running AutoMigrate for rooms, room_messages and users...")
	if err := database.AutoMigrate(db); err != nil {
		log.Fatal("Error: Migration failed:", err)
	}

	// 4. Indexes GORM tags cannot express
	if db.Dialector.Name() == "postgres" {
		indexes := []string{
			`CREATE INDEX IF NOT EXISTS idx_users_rooms ON users USING GIN (rooms);`,
		}
		for _, sql := range indexes {
			if err := db.Exec(sql).Error; err != nil {
				log.Printf("Warn: Failed to create index: %v. Continuing...", err)
			}
		}
	}

	log.Println("Migration completed successfully")
}
