package http

import (
	"time"

	"userinfo-api/internal/domain"
)

type UserInfoResponse struct {
	Name         string `json:"name"`
	Age          int    `json:"age"`
	Gender       string `json:"gender"`
	ProfileImage string `json:"profileImage"`
}

type UserResponse struct {
	UserID    int64            `json:"userId"`
	Email     string           `json:"email"`
	CreatedAt string           `json:"createdAt"`
	UpdatedAt string           `json:"updatedAt"`
	UserInfos UserInfoResponse `json:"UserInfos"`
}

type HistoryResponse struct {
	HistoryID    int64  `json:"historyId"`
	ChangedField string `json:"changedField"`
	OldValue     string `json:"oldValue"`
	NewValue     string `json:"newValue"`
	CreatedAt    string `json:"createdAt"`
}

func userToResponse(u domain.UserWithProfile) UserResponse {
	return UserResponse{
		UserID:    u.ID,
		Email:     u.Email,
		CreatedAt: u.CreatedAt.Format(time.RFC3339),
		UpdatedAt: u.UpdatedAt.Format(time.RFC3339),
		UserInfos: UserInfoResponse{
			Name:         u.Profile.Name,
			Age:          u.Profile.Age,
			Gender:       string(u.Profile.Gender),
			ProfileImage: u.Profile.ProfileImage,
		},
	}
}

func historyToResponse(entries []domain.HistoryEntry) []HistoryResponse {
	resp := make([]HistoryResponse, len(entries))
	for i, e := range entries {
		resp[i] = HistoryResponse{
			HistoryID:    e.ID,
			ChangedField: e.ChangedField,
			OldValue:     e.OldValue,
			NewValue:     e.NewValue,
			CreatedAt:    e.CreatedAt.Format(time.RFC3339),
		}
	}
	return resp
}
