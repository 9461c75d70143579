package forms

import "time"

// ContactMessage is a stored contact form submission and its delivery outcome.
type ContactMessage struct {
	ID                uint       `gorm:"primaryKey"`
	Name              string     `gorm:"not null"`
	Email             string     `gorm:"not null;index"`
	Phone             string     `gorm:"default:''"`
	Company           string     `gorm:"default:''"`
	Service           string     `gorm:"default:''"`
	Country           string     `gorm:"default:''"`
	Message           string     `gorm:"type:text;not null"`
	DeliveredAt       *time.Time `gorm:"default:null"`
	ProviderMessageID string     `gorm:"default:''"`
	DeliveryError     string     `gorm:"type:text;default:''"`
	CreatedAt         time.Time  `gorm:"not null;index;autoCreateTime:milli"`
	UpdatedAt         time.Time  `gorm:"not null;autoUpdateTime:milli"`
}

// Subscriber is a newsletter address. Subscribing again only bumps
// LastSubscribedAt.
type Subscriber struct {
	ID                uint       `gorm:"primaryKey"`
	Email             string     `gorm:"uniqueIndex;not null"`
	LastSubscribedAt  time.Time  `gorm:"not null"`
	DeliveredAt       *time.Time `gorm:"default:null"`
	ProviderMessageID string     `gorm:"default:''"`
	DeliveryError     string     `gorm:"type:text;default:''"`
	CreatedAt         time.Time  `gorm:"not null;autoCreateTime:milli"`
	UpdatedAt         time.Time  `gorm:"not null;autoUpdateTime:milli"`
}
