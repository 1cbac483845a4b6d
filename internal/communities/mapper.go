package communities

import (
	"github.com/luhive/luhive-backend/pkg/db/models"
)

type memberRow struct {
	models.CommunityMember
	FullName  string  `gorm:"column:full_name"`
	AvatarURL *string `gorm:"column:avatar_url"`
}

type managerRow struct {
	models.CommunityMember
	Email    string `gorm:"column:email"`
	FullName string `gorm:"column:full_name"`
}

func memberRowsToDTO(rows []memberRow) []MemberDTO {
	out := make([]MemberDTO, 0, len(rows))
	for _, row := range rows {
		dto := memberToDTO(&row.CommunityMember)
		dto.FullName = row.FullName
		dto.AvatarURL = row.AvatarURL
		out = append(out, *dto)
	}
	return out
}

func managerRowsToManagers(rows []managerRow) []Manager {
	out := make([]Manager, 0, len(rows))
	for _, row := range rows {
		out = append(out, Manager{
			UserID:   row.UserID,
			Role:     row.Role,
			Email:    row.Email,
			FullName: row.FullName,
		})
	}
	return out
}
