package gamedb

import (
	"time"

	"github.com/pfrances/transcendence-back/ponggame"
)

// GameRecord is one match row. The primary key doubles as the match id
// handed back to the engine at promotion.
type GameRecord struct {
	GameID     int64  `gorm:"column:game_id;primaryKey;autoIncrement"`
	Status     string `gorm:"size:16;index"`
	StartedAt  time.Time
	FinishedAt *time.Time

	ScoreToWin  int
	BallSpeed   string `gorm:"size:16"`
	BallSize    string `gorm:"size:16"`
	PaddleSpeed string `gorm:"size:16"`
	PaddleSize  string `gorm:"size:16"`

	Participants []GameParticipation `gorm:"foreignKey:GameID"`
}

func (GameRecord) TableName() string { return "games" }

// GameParticipation is one player's side of a match.
type GameParticipation struct {
	GameID   int64 `gorm:"primaryKey;autoIncrement:false"`
	UserID   int64 `gorm:"primaryKey;autoIncrement:false;index"`
	Score    int
	IsWinner bool
}

func (GameParticipation) TableName() string { return "game_participations" }

// AchievementUnlock records that a player earned a named achievement.
// The composite key makes every unlock once-only.
type AchievementUnlock struct {
	UserID     int64  `gorm:"primaryKey;autoIncrement:false"`
	Name       string `gorm:"primaryKey;size:32"`
	GameID     int64
	UnlockedAt time.Time
}

func (AchievementUnlock) TableName() string { return "achievement_unlocks" }

// MatchHistoryEntry is one row of a player's match history, already
// resolved to their perspective.
type MatchHistoryEntry struct {
	MatchID       int64             `json:"matchId"`
	Status        string            `json:"status"`
	Rules         ponggame.Rules    `json:"rules"`
	PlayerScore   int               `json:"playerScore"`
	OpponentID    ponggame.PlayerID `json:"opponentId"`
	OpponentScore int               `json:"opponentScore"`
	IsWinner      bool              `json:"isWinner"`
	StartedAt     time.Time         `json:"startedAt"`
	FinishedAt    *time.Time        `json:"finishedAt,omitempty"`
}

func recordRules(r GameRecord) ponggame.Rules {
	return ponggame.Rules{
		ScoreToWin:  r.ScoreToWin,
		BallSpeed:   ponggame.SpeedSetting(r.BallSpeed),
		BallSize:    ponggame.SizeSetting(r.BallSize),
		PaddleSpeed: ponggame.SpeedSetting(r.PaddleSpeed),
		PaddleSize:  ponggame.SizeSetting(r.PaddleSize),
	}
}
