//go:build ruleguard

package gorules

import "github.com/quasilyte/go-ruleguard/dsl"

// TimeSinceUntil flags manual subtraction against time.Now.
//
// Old pattern:
//
//	elapsed := time.Now().Sub(start)
//	remaining := deadline.Sub(time.Now())
//
// Replacement:
//
//	elapsed := time.Since(start)
//	remaining := time.Until(deadline)
func TimeSinceUntil(m dsl.Matcher) {
	m.Match(`time.Now().Sub($t)`).
		Report("use time.Since($t) instead of time.Now().Sub($t)").
		Suggest("time.Since($t)")

	m.Match(`$t.Sub(time.Now())`).
		Report("use time.Until($t) instead of $t.Sub(time.Now())").
		Suggest("time.Until($t)")
}

// TimeFormatConstants flags magic reference-time strings that have a named
// constant since Go 1.20.
//
// Old pattern:
//
//	t.Format("2006-01-02 15:04:05")
//
// Replacement:
//
//	t.Format(time.DateTime)
func TimeFormatConstants(m dsl.Matcher) {
	m.Match(`$t.Format("2006-01-02 15:04:05")`).
		Report(`use $t.Format(time.DateTime) instead of the magic format string (Go 1.20+)`).
		Suggest(`$t.Format(time.DateTime)`)

	m.Match(`$t.Format("2006-01-02")`).
		Report(`use $t.Format(time.DateOnly) instead of the magic format string (Go 1.20+)`).
		Suggest(`$t.Format(time.DateOnly)`)

	m.Match(`time.Parse("2006-01-02 15:04:05", $s)`).
		Report(`use time.Parse(time.DateTime, $s) instead of the magic format string (Go 1.20+)`).
		Suggest(`time.Parse(time.DateTime, $s)`)

	m.Match(`time.Parse("2006-01-02", $s)`).
		Report(`use time.Parse(time.DateOnly, $s) instead of the magic format string (Go 1.20+)`).
		Suggest(`time.Parse(time.DateOnly, $s)`)
}

// TimerChannelLen flags len and cap checks on timer and ticker channels.
// Since Go 1.23 these channels are unbuffered, so the check is always zero
// and the surrounding branch is dead. Retry backoff code is where this
// pattern tends to appear.
func TimerChannelLen(m dsl.Matcher) {
	m.Match(
		`len($t.C)`,
		`cap($t.C)`,
	).
		Where(m["t"].Type.Is("*time.Timer") || m["t"].Type.Is("*time.Ticker")).
		Report("timer and ticker channels are unbuffered since Go 1.23; len/cap on $t.C is always 0")
}
