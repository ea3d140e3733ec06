package db

import (
	"log"

	"github.com/peerchat/peerchat/internal/chat"
	"github.com/peerchat/peerchat/internal/models"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func Connect(dsn string) *gorm.DB {
	gdb, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatalf("db connect: %v", err)
	}
	return gdb
}

// Migrate creates/updates the schema, including the unique pair index
// that serializes concurrent chat creation.
func Migrate(gdb *gorm.DB) {
	if err := gdb.AutoMigrate(&models.User{}, &chat.Chat{}, &chat.Message{}); err != nil {
		log.Fatalf("db migrate: %v", err)
	}
}
