package repo

import "time"

// System é um sistema de tipster; system_type decide o lado da ordem.
type System struct {
	ID         string
	UserID     string
	Name       string
	SystemType string // 'back' | 'lay'
}

// Tip é o modelo persistido de um palpite.
type Tip struct {
	ID        string
	SystemID  string
	RaceTime  time.Time
	Course    string
	Horse     string
	StakeType string
}
