package ponggame

import "fmt"

// SpeedSetting is a named speed preset for the ball or the paddles.
type SpeedSetting string

const (
	SpeedSlow     SpeedSetting = "SLOW"
	SpeedNormal   SpeedSetting = "NORMAL"
	SpeedFast     SpeedSetting = "FAST"
	SpeedVeryFast SpeedSetting = "VERY_FAST"
)

// SizeSetting is a named size preset for the ball or the paddles.
type SizeSetting string

const (
	SizeVerySmall SizeSetting = "VERY_SMALL"
	SizeSmall     SizeSetting = "SMALL"
	SizeNormal    SizeSetting = "NORMAL"
	SizeBig       SizeSetting = "BIG"
	SizeVeryBig   SizeSetting = "VERY_BIG"
)

const (
	minScoreToWin = 1
	maxScoreToWin = 20
)

// Rules is the negotiated configuration of a match. It is a value type;
// negotiation replaces it wholesale and promotion freezes it.
type Rules struct {
	ScoreToWin  int          `json:"scoreToWin"`
	BallSpeed   SpeedSetting `json:"ballSpeed"`
	BallSize    SizeSetting  `json:"ballSize"`
	PaddleSpeed SpeedSetting `json:"paddleSpeed"`
	PaddleSize  SizeSetting  `json:"paddleSize"`
}

// DefaultRules are the rules every fresh proposal starts from.
func DefaultRules() Rules {
	return Rules{
		ScoreToWin:  3,
		BallSpeed:   SpeedNormal,
		BallSize:    SizeNormal,
		PaddleSpeed: SpeedNormal,
		PaddleSize:  SizeNormal,
	}
}

// Preset tables translating the named settings into field units per
// tick (speeds) and field fractions (sizes).
var (
	ballSpeedValues = map[SpeedSetting]float64{
		SpeedSlow:     0.006,
		SpeedNormal:   0.009,
		SpeedFast:     0.012,
		SpeedVeryFast: 0.016,
	}
	paddleSpeedValues = map[SpeedSetting]float64{
		SpeedSlow:     0.012,
		SpeedNormal:   0.018,
		SpeedFast:     0.025,
		SpeedVeryFast: 0.035,
	}
	ballSizeValues = map[SizeSetting]float64{
		SizeVerySmall: 0.010,
		SizeSmall:     0.015,
		SizeNormal:    0.020,
		SizeBig:       0.030,
		SizeVeryBig:   0.040,
	}
	paddleSizeValues = map[SizeSetting]float64{
		SizeVerySmall: 0.10,
		SizeSmall:     0.15,
		SizeNormal:    0.20,
		SizeBig:       0.25,
		SizeVeryBig:   0.30,
	}
)

// Validate checks every field against its allowed set.
func (r Rules) Validate() error {
	if r.ScoreToWin < minScoreToWin || r.ScoreToWin > maxScoreToWin {
		return fmt.Errorf("%w: scoreToWin %d outside [%d, %d]",
			ErrInvalidRules, r.ScoreToWin, minScoreToWin, maxScoreToWin)
	}
	if _, ok := ballSpeedValues[r.BallSpeed]; !ok {
		return fmt.Errorf("%w: ballSpeed %q", ErrInvalidRules, r.BallSpeed)
	}
	if _, ok := ballSizeValues[r.BallSize]; !ok {
		return fmt.Errorf("%w: ballSize %q", ErrInvalidRules, r.BallSize)
	}
	if _, ok := paddleSpeedValues[r.PaddleSpeed]; !ok {
		return fmt.Errorf("%w: paddleSpeed %q", ErrInvalidRules, r.PaddleSpeed)
	}
	if _, ok := paddleSizeValues[r.PaddleSize]; !ok {
		return fmt.Errorf("%w: paddleSize %q", ErrInvalidRules, r.PaddleSize)
	}
	return nil
}

// ballVelocity is the serve speed magnitude in field units per tick.
func (r Rules) ballVelocity() float64 { return ballSpeedValues[r.BallSpeed] }

// paddleStep is the paddle displacement of one move input.
func (r Rules) paddleStep() float64 { return paddleSpeedValues[r.PaddleSpeed] }

// ballRadius is the ball's vertical half-extent.
func (r Rules) ballRadius() float64 { return ballSizeValues[r.BallSize] }

// paddleHeight is the paddle's vertical extent.
func (r Rules) paddleHeight() float64 { return paddleSizeValues[r.PaddleSize] }
