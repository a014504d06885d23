package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/weiawesome/huddle-sync/internal/domain"
	"github.com/weiawesome/huddle-sync/pkg/log"
)

// GormCatalog implements RoomCatalog and RoleStore over the CRUD layer's
// database.
type GormCatalog struct {
	db *gorm.DB
}

func NewGormCatalog(db *gorm.DB) *GormCatalog {
	return &GormCatalog{db: db}
}

var (
	_ RoomCatalog = (*GormCatalog)(nil)
	_ RoleStore   = (*GormCatalog)(nil)
)

// GetRoom retrieves a room by id.
func (r *GormCatalog) GetRoom(ctx context.Context, id string) (*domain.RoomRecord, error) {
	var model RoomModel
	result := r.db.WithContext(ctx).First(&model, "id = ?", id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrRoomNotFound
		}
		l := log.Ctx(ctx)
		l.Error().Err(result.Error).Str(log.FieldRoomID, id).Msg("failed to get room")
		return nil, result.Error
	}
	rec := model.ToDomain()
	return &rec, nil
}

// ListRooms returns every channel and direct room, for the cold-start seed.
func (r *GormCatalog) ListRooms(ctx context.Context) ([]domain.RoomRecord, error) {
	var models []RoomModel
	err := r.db.WithContext(ctx).
		Where("kind IN ?", []string{string(domain.RoomKindChannel), string(domain.RoomKindDirect)}).
		Order("id").
		Find(&models).Error
	if err != nil {
		l := log.Ctx(ctx)
		l.Error().Err(err).Msg("failed to list rooms")
		return nil, err
	}

	rooms := make([]domain.RoomRecord, len(models))
	for i := range models {
		rooms[i] = models[i].ToDomain()
	}
	return rooms, nil
}

// FetchRoomMembership returns the persistent members of a room.
func (r *GormCatalog) FetchRoomMembership(ctx context.Context, roomID string) ([]string, error) {
	var userIDs []string
	err := r.db.WithContext(ctx).
		Model(&RoomMemberModel{}).
		Where("room_id = ?", roomID).
		Order("user_id").
		Pluck("user_id", &userIDs).Error
	if err != nil {
		l := log.Ctx(ctx)
		l.Error().Err(err).Str(log.FieldRoomID, roomID).Msg("failed to fetch room membership")
		return nil, err
	}
	return userIDs, nil
}

// ResolveRoles returns a user's role tags. A user without a row has none.
func (r *GormCatalog) ResolveRoles(ctx context.Context, userID string) ([]string, error) {
	var model UserRoleModel
	result := r.db.WithContext(ctx).First(&model, "user_id = ?", userID)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return []string{}, nil
		}
		l := log.Ctx(ctx)
		l.Error().Err(result.Error).Str(log.FieldUserID, userID).Msg("failed to resolve roles")
		return nil, result.Error
	}
	if model.Roles == nil {
		return []string{}, nil
	}
	return []string(model.Roles), nil
}
