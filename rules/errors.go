//go:build ruleguard

package gorules

import "github.com/quasilyte/go-ruleguard/dsl"

// SprintfErrors flags error construction that routes a format string
// through the wrong constructor.
//
// Old pattern:
//
//	errors.New(fmt.Sprintf("channel %s not registered", name))
//
// Replacement:
//
//	fmt.Errorf("channel %s not registered", name)
func SprintfErrors(m dsl.Matcher) {
	m.Match(`errors.New(fmt.Sprintf($*args))`).
		Report("use fmt.Errorf($args) instead of errors.New(fmt.Sprintf(...))").
		Suggest("fmt.Errorf($args)")
}

// ErrorsIsComparison flags direct equality checks against sentinel errors.
// Wrapped errors, which the dispatch retry classification relies on, only
// match through the errors.Is chain walk.
//
// Old pattern:
//
//	if err == ErrQueueFull {
//
// Replacement:
//
//	if errors.Is(err, ErrQueueFull) {
func ErrorsIsComparison(m dsl.Matcher) {
	m.Match(
		`$err == $sentinel`,
		`$err != $sentinel`,
	).
		Where(m["err"].Type.Is("error") &&
			m["sentinel"].Text.Matches(`^Err[A-Z]`)).
		Report("compare sentinel errors with errors.Is so wrapped errors still match")
}
