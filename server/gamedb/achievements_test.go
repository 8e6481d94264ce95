package gamedb

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/pfrances/transcendence-back/ponggame"
)

func TestEarnedAchievements(t *testing.T) {
	rules := ponggame.DefaultRules()

	assert.Empty(t, earnedAchievements(false, 0, 0, rules), "losers earn nothing")

	assert.Equal(t,
		[]string{AchievementFirstWin, AchievementPerfectGame},
		earnedAchievements(true, 0, 0, rules),
		"first win with a shutout earns both")

	assert.Empty(t, earnedAchievements(true, 2, 5, rules),
		"a routine repeat win earns nothing")

	assert.Equal(t, []string{AchievementPerfectGame},
		earnedAchievements(true, 0, 3, rules))

	marathon := rules
	marathon.ScoreToWin = marathonThreshold
	assert.Equal(t, []string{AchievementMarathon},
		earnedAchievements(true, 4, 1, marathon))

	marathon.ScoreToWin = marathonThreshold - 1
	assert.Empty(t, earnedAchievements(true, 4, 1, marathon),
		"just under the marathon threshold")
}
