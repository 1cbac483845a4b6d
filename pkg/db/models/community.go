package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/luhive/luhive-backend/pkg/enums"
)

// Community is a named group that owns members and events.
type Community struct {
	ID          uuid.UUID         `gorm:"column:id;type:uuid;primaryKey"`
	Slug        string            `gorm:"column:slug;type:text;not null;uniqueIndex"`
	Name        string            `gorm:"column:name;type:text;not null"`
	Tagline     *string           `gorm:"column:tagline"`
	Description *string           `gorm:"column:description"`
	LogoURL     *string           `gorm:"column:logo_url"`
	CoverURL    *string           `gorm:"column:cover_url"`
	SocialLinks datatypes.JSONMap `gorm:"column:social_links;type:jsonb"`
	CreatedBy   uuid.UUID         `gorm:"column:created_by;type:uuid;not null"`
	IsPublic    bool              `gorm:"column:is_public;not null"`
	IsVerified  bool              `gorm:"column:is_verified;not null;default:false"`
	CreatedAt   time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}

func (Community) TableName() string { return "communities" }

func (c *Community) BeforeCreate(*gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}

// CommunityMember links a profile to a community with a role. At most one row
// exists per (community_id, user_id).
type CommunityMember struct {
	ID          uuid.UUID           `gorm:"column:id;type:uuid;primaryKey"`
	CommunityID uuid.UUID           `gorm:"column:community_id;type:uuid;not null;uniqueIndex:community_members_community_user_key"`
	UserID      uuid.UUID           `gorm:"column:user_id;type:uuid;not null;uniqueIndex:community_members_community_user_key"`
	Role        enums.CommunityRole `gorm:"column:role;type:text;not null"`
	JoinedAt    time.Time           `gorm:"column:joined_at;autoCreateTime"`
}

func (CommunityMember) TableName() string { return "community_members" }

func (m *CommunityMember) BeforeCreate(*gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}

// CommunityInvite is a pending emailed invitation to join a community.
type CommunityInvite struct {
	ID          uuid.UUID           `gorm:"column:id;type:uuid;primaryKey"`
	CommunityID uuid.UUID           `gorm:"column:community_id;type:uuid;not null"`
	Email       string              `gorm:"column:email;type:text;not null"`
	Role        enums.CommunityRole `gorm:"column:role;type:text;not null"`
	Token       string              `gorm:"column:token;type:text;not null;uniqueIndex"`
	InvitedBy   uuid.UUID           `gorm:"column:invited_by;type:uuid;not null"`
	ExpiresAt   time.Time           `gorm:"column:expires_at;not null"`
	AcceptedAt  *time.Time          `gorm:"column:accepted_at"`
	CreatedAt   time.Time           `gorm:"column:created_at;autoCreateTime"`
}

func (CommunityInvite) TableName() string { return "community_invites" }

func (i *CommunityInvite) BeforeCreate(*gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return nil
}

// CommunityVisit records one visitor per community per day.
type CommunityVisit struct {
	ID          uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	CommunityID uuid.UUID `gorm:"column:community_id;type:uuid;not null;uniqueIndex:community_visits_daily_key"`
	VisitorKey  string    `gorm:"column:visitor_key;type:text;not null;uniqueIndex:community_visits_daily_key"`
	VisitedOn   time.Time `gorm:"column:visited_on;type:date;not null;uniqueIndex:community_visits_daily_key"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (CommunityVisit) TableName() string { return "community_visits" }

func (v *CommunityVisit) BeforeCreate(*gorm.DB) error {
	if v.ID == uuid.Nil {
		v.ID = uuid.New()
	}
	return nil
}
