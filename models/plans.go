package models

type Plans struct {
	Base                `gorm:"embedded"`
	Name                string `gorm:"name;not null;uniqueIndex"`
	MonthlyRequestLimit int64  `gorm:"monthly_request_limit;not null"`
	RequestsPerSecond   int    `gorm:"requests_per_second;not null"`
	BurstLimit          int    `gorm:"burst_limit;not null"`
	Status              Status `gorm:"status;not null;default:'active'"`
}
