//go:build ruleguard

// Package gorules defines custom linter rules for golangci-lint via
// ruleguard. They flag patterns with a modern replacement in the Go
// versions this module targets.
package gorules

import "github.com/quasilyte/go-ruleguard/dsl"

// WaitGroupGo flags the manual Add/Done dance around goroutine launches.
//
// Old pattern:
//
//	wg.Add(1)
//	go func() {
//	    defer wg.Done()
//	    serve()
//	}()
//
// Replacement (Go 1.25+):
//
//	wg.Go(serve)
//
// The method keeps Add and Done paired by construction, which matters in
// shutdown paths where a missed Done hangs the drain.
func WaitGroupGo(m dsl.Matcher) {
	m.Match(
		`$wg.Add(1); go func() { defer $wg.Done(); $*body }()`,
	).
		Where(m["wg"].Type.Is("*sync.WaitGroup") || m["wg"].Type.Is("sync.WaitGroup")).
		Report("use $wg.Go(func() { $body }) instead of the manual Add/Done pattern (Go 1.25+)").
		Suggest("$wg.Go(func() { $body })")

	m.Match(
		`$wg.Add(1); go func($param $typ) { defer $param.Done(); $*body }($wg)`,
		`$wg.Add(1); go func($param $typ) { defer $param.Done(); $*body }(&$wg)`,
	).
		Where(m["wg"].Type.Is("*sync.WaitGroup") || m["wg"].Type.Is("sync.WaitGroup")).
		Report("use $wg.Go(func() { $body }) instead of the manual Add/Done pattern (Go 1.25+)")
}

// OnceValue flags the package-level variable guarded by a sync.Once when a
// sync.OnceValue closure carries the same guarantee without the extra
// variable.
//
// Old pattern:
//
//	var (
//	    client     *http.Client
//	    clientOnce sync.Once
//	)
//
//	func getClient() *http.Client {
//	    clientOnce.Do(func() { client = build() })
//	    return client
//	}
//
// Replacement (Go 1.21+):
//
//	var getClient = sync.OnceValue(build)
func OnceValue(m dsl.Matcher) {
	m.Match(
		`$once.Do(func() { $x = $init }); return $x`,
	).
		Where(m["once"].Type.Is("sync.Once") || m["once"].Type.Is("*sync.Once")).
		Report("consider sync.OnceValue to fuse the guard and the value (Go 1.21+)")
}
