package events

import "time"

// Evento publicado no tópico "tip_published" quando um tipster sobe um palpite.
// O stake-fanout-worker consome este evento e cria uma stake pendente por seguidor.
type TipPublished struct {
	TipID     string    `json:"tip_id"`
	SystemID  string    `json:"system_id"`
	RaceTime  time.Time `json:"race_time"`
	Course    string    `json:"course"`
	Horse     string    `json:"horse"`
	StakeType string    `json:"stake_type"` // "real" | "sim"
	TsUnixMs  int64     `json:"ts_unix_ms"`
}
