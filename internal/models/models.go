package models

import "time"

type Competitor struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Score int    `json:"score"`
}

// CompetitorRef is the competitor embedded in a proof read. It is nil when the
// proof has lost its competitor association.
type CompetitorRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type Proof struct {
	ID           string         `json:"id"`
	CreatedAt    time.Time      `json:"created_at"`
	CompetitorID string         `json:"competitor_id,omitempty"`
	Competitor   *CompetitorRef `json:"competitor,omitempty"`
	EventType    string         `json:"event_type"`
	Points       int            `json:"points"`
	PhotoURL     *string        `json:"photo_url"`
}

// ProofPatch carries the fields an edit may change.
type ProofPatch struct {
	EventType string
	Points    int
	PhotoURL  *string
}

type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	IsAdmin   bool      `json:"is_admin"`
	CreatedAt time.Time `json:"created_at"`
}

func (u User) DisplayName() string {
	if u.LastName == "" {
		return u.FirstName
	}
	return u.FirstName + " " + u.LastName
}

type RankedCompetitor struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Score int    `json:"score"`
	Rank  int    `json:"rank"`
}

type HallOfFameEntry struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Wins int    `json:"wins"`
	Rank int    `json:"rank"`
}
