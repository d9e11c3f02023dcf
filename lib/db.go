package lib

import (
	"log"

	"github.com/relaygate/relaygate/models"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

var (
	db *gorm.DB
)

func SetDB(customDB *gorm.DB) {
	db = customDB
}

func DB() *gorm.DB {
	if db == nil {
		config := GetConfig()
		connection, err := gorm.Open(postgres.Open(config.Settings.Database.URI), &gorm.Config{})
		if err != nil {
			panic(err)
		}
		if config.Settings.Database.AutoMigration {
			err = connection.AutoMigrate(
				&models.Accounts{},
				&models.Apis{},
				&models.ApiKeys{},
				&models.Plans{},
				&models.Subscriptions{},
				&models.MonthlyUsage{},
				&models.UsageLogs{},
			)
			if err != nil {
				log.Panic(err)
			}
		}
		db = connection
	}
	return db
}
