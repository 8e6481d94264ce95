package gamedb

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm/clause"

	"github.com/pfrances/transcendence-back/ponggame"
)

// Achievement names, stable wire identifiers.
const (
	AchievementFirstWin    = "FIRST_WIN"
	AchievementPerfectGame = "PERFECT_GAME"
	AchievementMarathon    = "MARATHON"
)

// marathonThreshold is the scoreToWin at which a won match counts as a
// marathon.
const marathonThreshold = 15

// earnedAchievements decides which achievements a single match outcome
// earns. priorWins counts wins before this match.
func earnedAchievements(won bool, opponentScore int, priorWins int64, rules ponggame.Rules) []string {
	if !won {
		return nil
	}
	earned := []string{}
	if priorWins == 0 {
		earned = append(earned, AchievementFirstWin)
	}
	if opponentScore == 0 {
		earned = append(earned, AchievementPerfectGame)
	}
	if rules.ScoreToWin >= marathonThreshold {
		earned = append(earned, AchievementMarathon)
	}
	return earned
}

// EvaluateAchievements inspects the persisted match outcome and records
// any newly earned achievements. Unlock rows are insert-only; earning
// the same achievement twice is a silent no-op.
func (d *DB) EvaluateAchievements(ctx context.Context, matchID int64, player ponggame.PlayerID, finalScore int, rules ponggame.Rules) error {
	var self, opponent GameParticipation
	tx := d.db.WithContext(ctx)
	if err := tx.Where("game_id = ? AND user_id = ?", matchID, int64(player)).
		First(&self).Error; err != nil {
		return fmt.Errorf("load participation of %d in match %d: %w", player, matchID, err)
	}
	if err := tx.Where("game_id = ? AND user_id <> ?", matchID, int64(player)).
		First(&opponent).Error; err != nil {
		return fmt.Errorf("load opponent of %d in match %d: %w", player, matchID, err)
	}

	var priorWins int64
	if err := tx.Model(&GameParticipation{}).
		Where("user_id = ? AND is_winner AND game_id <> ?", int64(player), matchID).
		Count(&priorWins).Error; err != nil {
		return fmt.Errorf("count prior wins of %d: %w", player, err)
	}

	earned := earnedAchievements(self.IsWinner, opponent.Score, priorWins, rules)
	if len(earned) == 0 {
		return nil
	}

	now := time.Now()
	unlocks := make([]AchievementUnlock, 0, len(earned))
	for _, name := range earned {
		unlocks = append(unlocks, AchievementUnlock{
			UserID:     int64(player),
			Name:       name,
			GameID:     matchID,
			UnlockedAt: now,
		})
	}
	if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&unlocks).Error; err != nil {
		return fmt.Errorf("record achievements of %d: %w", player, err)
	}
	for _, name := range earned {
		d.log.Infof("player %d unlocked %s (match %d)", player, name, matchID)
	}
	return nil
}
