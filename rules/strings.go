//go:build ruleguard

package gorules

import "github.com/quasilyte/go-ruleguard/dsl"

// StringsCutPrefix flags the HasPrefix/TrimPrefix pair that Go 1.20's
// strings.CutPrefix expresses in one call.
//
// Old pattern:
//
//	if strings.HasPrefix(topic, prefix) {
//	    topic = strings.TrimPrefix(topic, prefix)
//	    ...
//	}
//
// Replacement:
//
//	if rest, ok := strings.CutPrefix(topic, prefix); ok {
//	    ...
//	}
func StringsCutPrefix(m dsl.Matcher) {
	m.Match(
		`if strings.HasPrefix($s, $prefix) { $s = strings.TrimPrefix($s, $prefix); $*_ }`,
		`if strings.HasPrefix($s, $prefix) { $v := strings.TrimPrefix($s, $prefix); $*_ }`,
	).
		Report("use strings.CutPrefix to test and trim in one call (Go 1.20+)")

	m.Match(
		`if strings.HasSuffix($s, $suffix) { $s = strings.TrimSuffix($s, $suffix); $*_ }`,
		`if strings.HasSuffix($s, $suffix) { $v := strings.TrimSuffix($s, $suffix); $*_ }`,
	).
		Report("use strings.CutSuffix to test and trim in one call (Go 1.20+)")
}

// StringsReplaceAll flags Replace with a negative count.
//
// Old pattern:
//
//	strings.Replace(body, "\r\n", "\n", -1)
//
// Replacement:
//
//	strings.ReplaceAll(body, "\r\n", "\n")
func StringsReplaceAll(m dsl.Matcher) {
	m.Match(`strings.Replace($s, $old, $new, -1)`).
		Report("use strings.ReplaceAll($s, $old, $new) instead of Replace with -1").
		Suggest("strings.ReplaceAll($s, $old, $new)")
}
