package models

import (
	"time"
)

// User - учётная запись, от имени которой приходят отметки терминала
// и действия в расписании
type User struct {
	ID        uint   `gorm:"primaryKey" json:"id"`
	Username  string `gorm:"uniqueIndex;not null" json:"username"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`

	FunctionGroupID *uint `gorm:"index" json:"function_group_id"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (User) TableName() string {
	return "users"
}

// Employee - сотрудник сети. У одного сотрудника может быть несколько
// трудоустройств (совместительство).
type Employee struct {
	ID        uint   `gorm:"primaryKey" json:"id"`
	UserID    *uint  `gorm:"index" json:"user_id"`
	TabelCode string `gorm:"index;not null" json:"tabel_code"`
	NetworkID uint   `gorm:"not null;index" json:"network_id"`

	User        *User        `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Employments []Employment `gorm:"foreignKey:EmployeeID" json:"employments,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Employee) TableName() string {
	return "employees"
}

// IsValid проверяет валидность данных сотрудника
func (e *Employee) IsValid() bool {
	return e.TabelCode != "" && e.NetworkID != 0
}
