package communities

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/luhive/luhive-backend/pkg/db/models"
	"github.com/luhive/luhive-backend/pkg/enums"
	"github.com/luhive/luhive-backend/pkg/pagination"
)

// Repository exposes community, membership, invite and visit persistence.
type Repository struct {
	db *gorm.DB
}

// NewRepository binds the repo to the provided GORM connection.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Create inserts a community.
func (r *Repository) Create(ctx context.Context, community *models.Community) error {
	return r.db.WithContext(ctx).Create(community).Error
}

// FindBySlug loads a community by its URL key.
func (r *Repository) FindBySlug(ctx context.Context, slug string) (*models.Community, error) {
	var community models.Community
	if err := r.db.WithContext(ctx).Where("slug = ?", slug).First(&community).Error; err != nil {
		return nil, err
	}
	return &community, nil
}

// FindByID loads a community by id.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Community, error) {
	var community models.Community
	if err := r.db.WithContext(ctx).First(&community, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &community, nil
}

// SlugExists reports whether a community already uses slug.
func (r *Repository) SlugExists(ctx context.Context, slug string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Community{}).
		Where("slug = ?", slug).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// Update applies column updates to the community.
func (r *Repository) Update(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	if len(updates) == 0 {
		return nil
	}
	updates["updated_at"] = time.Now().UTC()
	res := r.db.WithContext(ctx).Model(&models.Community{}).Where("id = ?", id).Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// AddMember persists a new membership row.
func (r *Repository) AddMember(ctx context.Context, communityID, userID uuid.UUID, role enums.CommunityRole) (*models.CommunityMember, error) {
	if !role.IsValid() {
		return nil, fmt.Errorf("invalid community role %q", role)
	}
	member := &models.CommunityMember{
		CommunityID: communityID,
		UserID:      userID,
		Role:        role,
	}
	if err := r.db.WithContext(ctx).Create(member).Error; err != nil {
		return nil, err
	}
	return member, nil
}

// GetMember retrieves the membership for a user in a community.
func (r *Repository) GetMember(ctx context.Context, communityID, userID uuid.UUID) (*models.CommunityMember, error) {
	var member models.CommunityMember
	err := r.db.WithContext(ctx).
		Where("community_id = ? AND user_id = ?", communityID, userID).
		First(&member).Error
	if err != nil {
		return nil, err
	}
	return &member, nil
}

// HasRole reports whether the user holds one of roles in any of the communities.
func (r *Repository) HasRole(ctx context.Context, userID uuid.UUID, communityIDs []uuid.UUID, roles ...enums.CommunityRole) (bool, error) {
	if len(roles) == 0 || len(communityIDs) == 0 {
		return false, nil
	}
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.CommunityMember{}).
		Where("user_id = ? AND community_id IN ? AND role IN ?", userID, communityIDs, roles).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// UpdateMemberRole changes a member's role.
func (r *Repository) UpdateMemberRole(ctx context.Context, communityID, userID uuid.UUID, role enums.CommunityRole) error {
	res := r.db.WithContext(ctx).
		Model(&models.CommunityMember{}).
		Where("community_id = ? AND user_id = ?", communityID, userID).
		Update("role", role)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// RemoveMember deletes a membership row.
func (r *Repository) RemoveMember(ctx context.Context, communityID, userID uuid.UUID) error {
	res := r.db.WithContext(ctx).
		Where("community_id = ? AND user_id = ?", communityID, userID).
		Delete(&models.CommunityMember{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// CountMembers returns the number of members in the community.
func (r *Repository) CountMembers(ctx context.Context, communityID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.CommunityMember{}).
		Where("community_id = ?", communityID).
		Count(&count).Error
	return count, err
}

// ListMembers returns a newest-first cursor page of members joined with profile data.
func (r *Repository) ListMembers(ctx context.Context, communityID uuid.UUID, params pagination.Params) ([]MemberDTO, string, error) {
	query := r.db.WithContext(ctx).
		Model(&models.CommunityMember{}).
		Select("community_members.*, profiles.full_name AS full_name, profiles.avatar_url AS avatar_url").
		Joins("JOIN profiles ON profiles.id = community_members.user_id").
		Where("community_members.community_id = ?", communityID)
	query, limit, err := pagination.Apply(query, pagination.Keyset{
		Column:   "community_members.joined_at",
		IDColumn: "community_members.id",
		Desc:     true,
	}, params)
	if err != nil {
		return nil, "", err
	}

	var rows []memberRow
	if err := query.Scan(&rows).Error; err != nil {
		return nil, "", err
	}
	rows, next := pagination.Trim(rows, limit, func(row memberRow) pagination.Cursor {
		return pagination.Cursor{At: row.JoinedAt, ID: row.ID}
	})
	return memberRowsToDTO(rows), next, nil
}

// ListManagers returns owners and admins of the communities with their contact data.
func (r *Repository) ListManagers(ctx context.Context, communityIDs ...uuid.UUID) ([]Manager, error) {
	if len(communityIDs) == 0 {
		return nil, nil
	}
	var rows []managerRow
	err := r.db.WithContext(ctx).
		Model(&models.CommunityMember{}).
		Select("community_members.*, profiles.email AS email, profiles.full_name AS full_name").
		Joins("JOIN profiles ON profiles.id = community_members.user_id").
		Where("community_members.community_id IN ? AND community_members.role IN ?", communityIDs, enums.ManagerRoles()).
		Order("community_members.joined_at").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return managerRowsToManagers(rows), nil
}

// ListMemberContacts returns every member's contact data for broadcasts.
func (r *Repository) ListMemberContacts(ctx context.Context, communityID uuid.UUID) ([]Manager, error) {
	var rows []managerRow
	err := r.db.WithContext(ctx).
		Model(&models.CommunityMember{}).
		Select("community_members.*, profiles.email AS email, profiles.full_name AS full_name").
		Joins("JOIN profiles ON profiles.id = community_members.user_id").
		Where("community_members.community_id = ?", communityID).
		Order("community_members.joined_at").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return managerRowsToManagers(rows), nil
}

// CreateInvite persists a community invite.
func (r *Repository) CreateInvite(ctx context.Context, invite *models.CommunityInvite) error {
	return r.db.WithContext(ctx).Create(invite).Error
}

// FindInviteByToken loads an invite by its token.
func (r *Repository) FindInviteByToken(ctx context.Context, token string) (*models.CommunityInvite, error) {
	var invite models.CommunityInvite
	if err := r.db.WithContext(ctx).Where("token = ?", token).First(&invite).Error; err != nil {
		return nil, err
	}
	return &invite, nil
}

// MarkInviteAccepted stamps accepted_at when the invite is still open.
func (r *Repository) MarkInviteAccepted(ctx context.Context, id uuid.UUID, at time.Time) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.CommunityInvite{}).
		Where("id = ? AND accepted_at IS NULL", id).
		Update("accepted_at", at)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// InsertVisit records a daily visit, ignoring repeats.
func (r *Repository) InsertVisit(ctx context.Context, communityID uuid.UUID, visitorKey string, day time.Time) error {
	visit := &models.CommunityVisit{
		CommunityID: communityID,
		VisitorKey:  visitorKey,
		VisitedOn:   day,
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(visit).Error
}
