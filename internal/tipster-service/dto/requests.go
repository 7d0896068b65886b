package dto

import "time"

type TipPayload struct {
	RaceTime  time.Time `json:"race_time"`
	Course    string    `json:"course"`
	Horse     string    `json:"horse"`
	StakeType string    `json:"stake_type,omitempty"` // default "real"
}

type UploadTipsRequest struct {
	UserID   string       `json:"user_id"`
	SystemID string       `json:"system_id"`
	Tips     []TipPayload `json:"tips"`
}

type CreateBetRequest struct {
	UserID   string    `json:"user_id"`
	SystemID string    `json:"system_id"`
	RaceTime time.Time `json:"time"`
	Course   string    `json:"course"`
	Horse    string    `json:"horse"`
	Stake    float64   `json:"stake"`
}

type UserRequest struct {
	UserID string `json:"user_id"`
}
