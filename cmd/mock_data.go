package cmd

import (
	"fmt"

	"github.com/go-faker/faker/v4"
	"github.com/google/uuid"
	"github.com/relaygate/relaygate/lib"
	"github.com/relaygate/relaygate/models"
	"gorm.io/gorm"
)

var seedPlans = []models.Plans{
	{Name: "Free", MonthlyRequestLimit: 10000, RequestsPerSecond: 10, BurstLimit: 20, Status: models.Active},
	{Name: "Pro", MonthlyRequestLimit: 1000000, RequestsPerSecond: 100, BurstLimit: 200, Status: models.Active},
	{Name: "Unlimited", MonthlyRequestLimit: 2147483647, RequestsPerSecond: 1000, BurstLimit: 2000, Status: models.Active},
}

func createMockData(db ...*gorm.DB) {
	database := lib.DB()
	if len(db) > 0 && db[0] != nil {
		database = db[0]
	}

	for i := range seedPlans {
		if err := database.Create(&seedPlans[i]).Error; err != nil {
			fmt.Printf("Error creating plan %s: %v\n", seedPlans[i].Name, err)
			return
		}
	}

	account := models.Accounts{
		Name:   faker.Name(),
		Email:  faker.Email(),
		Status: models.Active,
	}
	if err := database.Create(&account).Error; err != nil {
		fmt.Printf("Error creating account: %v\n", err)
		return
	}

	upstream := "https://example.com"
	if err := lib.ValidateUpstreamBaseURL(upstream); err != nil {
		fmt.Printf("Invalid upstream url: %v\n", err)
		return
	}
	api := models.Apis{
		Name:            faker.Word(),
		GatewayID:       uuid.NewString(),
		UpstreamBaseURL: upstream,
		Status:          models.Active,
		AccountID:       account.Id,
	}
	if err := database.Create(&api).Error; err != nil {
		fmt.Printf("Error creating api: %v\n", err)
		return
	}

	if _, err := lib.Subscribe(database, account.Id, seedPlans[0].Id); err != nil {
		fmt.Printf("Error creating subscription: %v\n", err)
		return
	}

	rawKey, _, err := lib.GenerateKey(database, account.Id, api.Id, "seed key")
	if err != nil {
		fmt.Printf("Error creating api key: %v\n", err)
		return
	}

	fmt.Printf("Seeded account %s\n", account.Email)
	fmt.Printf("Gateway id: %s\n", api.GatewayID)
	// printed once; only the hash is stored
	fmt.Printf("API key:    %s\n", rawKey)
}
