package models

import "time"

// UserGroup is a family/care group whose members share activity presence (and
// nothing else) on the group calendar.
type UserGroup struct {
	ID        uint   `gorm:"primaryKey"`
	Name      string `gorm:"not null"`
	OwnerID   uint   `gorm:"not null"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

type GroupMember struct {
	ID        uint      `gorm:"primaryKey"`
	GroupID   uint      `gorm:"not null;index:idx_group_members_group_user,unique"`
	Group     UserGroup `gorm:"foreignKey:GroupID"`
	UserID    uint      `gorm:"not null;index:idx_group_members_group_user,unique"`
	CreatedAt time.Time
}
