package gamedb

import (
	"context"
	"fmt"
	"time"

	"github.com/decred/slog"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/pfrances/transcendence-back/ponggame"
)

// DB is the postgres-backed store for match records, participations and
// achievement unlocks. It implements the engine's MatchStore and
// AchievementEvaluator contracts.
type DB struct {
	db  *gorm.DB
	log slog.Logger
}

// Open connects to postgres and migrates the schema.
func Open(dsn string, log slog.Logger) (*DB, error) {
	if log == nil {
		log = slog.Disabled
	}
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.AutoMigrate(&GameRecord{}, &GameParticipation{}, &AchievementUnlock{}); err != nil {
		return nil, fmt.Errorf("migrate schema: %w", err)
	}
	return &DB{db: db, log: log}, nil
}

// CreateMatchRecord inserts the match row plus both participations in
// one transaction and returns the generated match id.
func (d *DB) CreateMatchRecord(ctx context.Context, rules ponggame.Rules, playerA, playerB ponggame.PlayerID) (int64, error) {
	record := GameRecord{
		Status:      string(ponggame.MatchInProgress),
		StartedAt:   time.Now(),
		ScoreToWin:  rules.ScoreToWin,
		BallSpeed:   string(rules.BallSpeed),
		BallSize:    string(rules.BallSize),
		PaddleSpeed: string(rules.PaddleSpeed),
		PaddleSize:  string(rules.PaddleSize),
	}
	err := d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&record).Error; err != nil {
			return err
		}
		participations := []GameParticipation{
			{GameID: record.GameID, UserID: int64(playerA)},
			{GameID: record.GameID, UserID: int64(playerB)},
		}
		return tx.Create(&participations).Error
	})
	if err != nil {
		return 0, fmt.Errorf("create match record: %w", err)
	}
	d.log.Debugf("created match record %d (%d vs %d)", record.GameID, playerA, playerB)
	return record.GameID, nil
}

// UpdateParticipant writes one player's final score and outcome.
func (d *DB) UpdateParticipant(ctx context.Context, matchID int64, player ponggame.PlayerID, score int, isWinner bool) error {
	res := d.db.WithContext(ctx).
		Model(&GameParticipation{}).
		Where("game_id = ? AND user_id = ?", matchID, int64(player)).
		Updates(map[string]any{"score": score, "is_winner": isWinner})
	if res.Error != nil {
		return fmt.Errorf("update participant %d of match %d: %w", player, matchID, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("update participant %d of match %d: no such participation", player, matchID)
	}
	return nil
}

// SetMatchStatus stamps the match's terminal status and finish time.
func (d *DB) SetMatchStatus(ctx context.Context, matchID int64, status ponggame.MatchStatus, finishedAt *time.Time) error {
	res := d.db.WithContext(ctx).
		Model(&GameRecord{}).
		Where("game_id = ?", matchID).
		Updates(map[string]any{"status": string(status), "finished_at": finishedAt})
	if res.Error != nil {
		return fmt.Errorf("set match %d status: %w", matchID, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("set match %d status: no such match", matchID)
	}
	return nil
}

// MatchHistory returns the player's finished and canceled matches,
// newest first, resolved to their perspective.
func (d *DB) MatchHistory(ctx context.Context, player ponggame.PlayerID) ([]MatchHistoryEntry, error) {
	var records []GameRecord
	err := d.db.WithContext(ctx).
		Preload("Participants").
		Joins("JOIN game_participations ON game_participations.game_id = games.game_id").
		Where("game_participations.user_id = ?", int64(player)).
		Where("games.status IN ?", []string{
			string(ponggame.MatchFinished),
			string(ponggame.MatchCanceled),
		}).
		Order("games.started_at DESC").
		Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("match history for %d: %w", player, err)
	}

	entries := make([]MatchHistoryEntry, 0, len(records))
	for _, rec := range records {
		entry := MatchHistoryEntry{
			MatchID:    rec.GameID,
			Status:     rec.Status,
			Rules:      recordRules(rec),
			StartedAt:  rec.StartedAt,
			FinishedAt: rec.FinishedAt,
		}
		for _, p := range rec.Participants {
			if p.UserID == int64(player) {
				entry.PlayerScore = p.Score
				entry.IsWinner = p.IsWinner
			} else {
				entry.OpponentID = ponggame.PlayerID(p.UserID)
				entry.OpponentScore = p.Score
			}
		}
		entries = append(entries, entry)
	}
	return entries, nil
}
