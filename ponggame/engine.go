package ponggame

import (
	"math"
	"math/rand"
)

// The playfield is normalized to 1.0 on both axes. The 4:3 aspect ratio
// of the rendered canvas only enters through the ball's horizontal
// radius, so the ball stays round on screen.
const (
	fieldWidth  = 1.0
	fieldHeight = 1.0
	aspectRatio = 4.0 / 3.0

	// PaddleWidth is the horizontal extent of each paddle, flush
	// against its wall.
	PaddleWidth = 0.015

	// maxBounceAngle is the steepest outgoing angle a paddle edge hit
	// can produce, measured from the horizontal.
	maxBounceAngle = math.Pi / 3

	// minVerticalMargin keeps outgoing angles out of the near-vertical
	// band so the ball can never travel up and down forever.
	minVerticalMargin = math.Pi / 10
)

// Side identifies which paddle a collision check targets.
type Side int

const (
	SideLeft Side = iota
	SideRight
)

// Ball is the full kinematic state of the ball. Positions are the
// center, radii the half-extents per axis.
type Ball struct {
	X, Y             float64
	DX, DY           float64
	RadiusX, RadiusY float64
}

// Advance integrates the position by one tick of velocity.
func (b *Ball) Advance() {
	b.X += b.DX
	b.Y += b.DY
}

// ReflectOffWall inverts the vertical velocity and clamps the position
// when the ball's vertical extent crosses the top or bottom boundary.
func (b *Ball) ReflectOffWall() {
	if b.Y-b.RadiusY < 0 {
		b.Y = b.RadiusY
		if b.DY < 0 {
			b.DY = -b.DY
		}
	}
	if b.Y+b.RadiusY > fieldHeight {
		b.Y = fieldHeight - b.RadiusY
		if b.DY > 0 {
			b.DY = -b.DY
		}
	}
}

// PaddleCollision resolves a hit against the paddle on the given side.
// On a hit the ball is snapped onto the paddle plane and its velocity
// redirected: the outgoing angle scales with how far from the paddle
// center the ball struck, speed magnitude is preserved. Returns false
// when the ball misses the paddle's vertical span or moves away from it.
func PaddleCollision(b *Ball, paddleCenter, paddleW, paddleH float64, side Side) bool {
	if b.Y+b.RadiusY < paddleCenter-paddleH/2 || b.Y-b.RadiusY > paddleCenter+paddleH/2 {
		return false
	}
	switch side {
	case SideLeft:
		if b.DX >= 0 || b.X-b.RadiusX > paddleW {
			return false
		}
	case SideRight:
		if b.DX <= 0 || b.X+b.RadiusX < fieldWidth-paddleW {
			return false
		}
	}

	speed := math.Hypot(b.DX, b.DY)
	impact := (b.Y - paddleCenter) / paddleH
	impact = math.Max(-0.5, math.Min(0.5, impact))
	angle := impact * maxBounceAngle

	dx := speed * math.Cos(angle)
	dy := speed * math.Sin(angle)
	if side == SideRight {
		dx = -dx
	}
	b.DX, b.DY = clampAwayFromVertical(dx, dy)

	if side == SideLeft {
		b.X = paddleW + b.RadiusX
	} else {
		b.X = fieldWidth - paddleW - b.RadiusX
	}
	return true
}

// clampAwayFromVertical pushes a velocity out of the forbidden
// near-vertical band while preserving its magnitude.
func clampAwayFromVertical(dx, dy float64) (float64, float64) {
	speed := math.Hypot(dx, dy)
	if speed == 0 {
		return dx, dy
	}
	minDX := speed * math.Sin(minVerticalMargin)
	if math.Abs(dx) >= minDX {
		return dx, dy
	}
	sign := 1.0
	if dx < 0 {
		sign = -1.0
	}
	ndx := sign * minDX
	ndy := math.Copysign(math.Sqrt(speed*speed-ndx*ndx), dy)
	return ndx, ndy
}

// ResetBall returns a ball centered on the field with zero velocity and
// radii derived from the rules. The match gives it motion again once
// the reset countdown elapses.
func ResetBall(rules Rules) Ball {
	r := rules.ballRadius()
	return Ball{
		X:       fieldWidth / 2,
		Y:       fieldHeight / 2,
		RadiusX: r / aspectRatio,
		RadiusY: r,
	}
}

// LaunchBall gives a resting ball its serve velocity: purely horizontal,
// random left/right direction, magnitude from the rules.
func LaunchBall(b *Ball, rules Rules) {
	dir := 1.0
	if rand.Intn(2) == 0 {
		dir = -1.0
	}
	b.DX = dir * rules.ballVelocity()
	b.DY = 0
}
