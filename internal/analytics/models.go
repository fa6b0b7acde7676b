package analytics

import (
	"time"

	"fitchallenge/internal/models"
)

type CalendarMonth struct {
	Month  string            `json:"month"`
	Days   Calendar          `json:"days"`
	Colors map[string]string `json:"colors"`
}

type WeeklyBoard struct {
	WeekStart   time.Time                 `json:"week_start"`
	WeekEnd     time.Time                 `json:"week_end"`
	Label       string                    `json:"label"`
	CurrentWeek bool                      `json:"current_week"`
	Entries     []models.RankedCompetitor `json:"entries"`
}
