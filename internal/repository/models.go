package repository

import (
	"time"

	"github.com/weiawesome/huddle-sync/internal/domain"
	"github.com/weiawesome/huddle-sync/pkg/database"
)

// RoomModel mirrors the CRUD layer's rooms table. Only channels and direct
// rooms live there.
type RoomModel struct {
	ID        string    `gorm:"type:varchar(64);primaryKey"`
	Kind      string    `gorm:"type:varchar(20);index;not null"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
}

func (RoomModel) TableName() string {
	return "rooms"
}

func (m *RoomModel) ToDomain() domain.RoomRecord {
	return domain.RoomRecord{ID: m.ID, Kind: domain.RoomKind(m.Kind), CreatedAt: m.CreatedAt}
}

// RoomMemberModel is one persistent membership.
type RoomMemberModel struct {
	RoomID    string    `gorm:"type:varchar(64);primaryKey"`
	UserID    string    `gorm:"type:varchar(36);primaryKey;index"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
}

func (RoomMemberModel) TableName() string {
	return "room_members"
}

// UserRoleModel holds a user's role tags.
type UserRoleModel struct {
	UserID    string               `gorm:"type:varchar(36);primaryKey"`
	Roles     database.StringArray `gorm:"type:text"`
	UpdatedAt time.Time            `gorm:"autoUpdateTime"`
}

func (UserRoleModel) TableName() string {
	return "user_roles"
}

// Models lists every model for AutoMigrate.
func Models() []interface{} {
	return []interface{}{&RoomModel{}, &RoomMemberModel{}, &UserRoleModel{}}
}
