package models

import "time"

// DrugMaster is one cached/catalogued drug row, populated lazily from the MFDS
// product API. ProductName is the de-duplication key for upserts.
type DrugMaster struct {
	ID             uint   `gorm:"primaryKey"`
	ProductName    string `gorm:"not null;uniqueIndex"`
	MainIngredient string
	CompanyName    string
	EeDocData      string // efficacy text
	NbDocData      string // caution text
	PaperInsight   string // guidance column written by the external batch tooling
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// UserMedication links a user to a DrugMaster row; only active rows participate
// in DNI inference.
type UserMedication struct {
	ID        uint       `gorm:"primaryKey"`
	UserID    uint       `gorm:"not null;index"`
	DrugID    uint       `gorm:"not null"`
	Drug      DrugMaster `gorm:"foreignKey:DrugID"`
	IsActive  bool       `gorm:"not null;default:true"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// DniRule is static reference data: a known drug-ingredient / nutrient caution
// pair. TargetNutrient is a free-text label matched case- and space-insensitively
// against food nutrient labels.
type DniRule struct {
	ID             uint   `gorm:"primaryKey"`
	IngredientName string `gorm:"not null;index"`
	TargetNutrient string `gorm:"not null"`
	WarningLevel   string
	Message        string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// TableName keeps the collaborator schema name used by the batch tooling.
func (DniRule) TableName() string { return "dni_logic" }

// SearchLog counts how often a drug keyword has been queried. CallCount only
// gates cache promotion, never correctness.
type SearchLog struct {
	ID        uint   `gorm:"primaryKey"`
	Keyword   string `gorm:"not null;uniqueIndex"`
	CallCount int    `gorm:"not null;default:0"`
	CreatedAt time.Time
	UpdatedAt time.Time
}
