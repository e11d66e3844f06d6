// Package discovery turns a paginated GitHub search into a lazy sequence of
// candidates.
//
// A Searcher requests pages 1..MaxPages one at a time, only when the consumer
// asks for more candidates. The search endpoint does not reliably report its last
// page, so the page cap is the only end condition. Any non-200 page ends the
// sequence with a fatal discovery error; a failed page is never treated as
// "no more results". There is no persisted cursor: every run starts at page 1.
package discovery
