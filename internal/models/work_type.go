package models

import (
	"time"
)

// WorkTypeName - запись каталога видов работ на уровне сети
type WorkTypeName struct {
	ID        uint   `gorm:"primaryKey" json:"id"`
	NetworkID uint   `gorm:"not null;index:idx_work_type_name_code,unique" json:"network_id"`
	Code      string `gorm:"not null;index:idx_work_type_name_code,unique" json:"code"`
	Name      string `gorm:"not null" json:"name"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (WorkTypeName) TableName() string {
	return "work_type_names"
}

// WorkType привязывает запись каталога к конкретному магазину
type WorkType struct {
	ID             uint `gorm:"primaryKey" json:"id"`
	ShopID         uint `gorm:"not null;index:idx_work_type_shop_name,unique" json:"shop_id"`
	WorkTypeNameID uint `gorm:"not null;index:idx_work_type_shop_name,unique" json:"work_type_name_id"`

	WorkTypeName WorkTypeName `gorm:"foreignKey:WorkTypeNameID" json:"work_type_name"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (WorkType) TableName() string {
	return "work_types"
}
