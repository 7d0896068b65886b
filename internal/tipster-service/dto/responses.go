package dto

type MessageResponse struct {
	Message string `json:"message"`
}

type UploadTipsResponse struct {
	Message string `json:"message"`
	Tips    int    `json:"tips"`
}

type CreateBetResponse struct {
	BetID  string `json:"bet_id"`
	Status string `json:"status"`
}

type OAuthURLResponse struct {
	URL string `json:"url"`
}

type PendingBetRow struct {
	Time   string  `json:"time"` // "HH:MM"
	Course string  `json:"course"`
	Horse  string  `json:"horse"`
	Stake  float64 `json:"stake"`
	System string  `json:"system"`
}
