package models

type Accounts struct {
	Base   `gorm:"embedded"`
	Name   string `gorm:"name;not null"`
	Email  string `gorm:"email;not null;uniqueIndex"`
	Status Status `gorm:"status;not null;default:'active'"`
}
