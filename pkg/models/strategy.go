package models

// Strategy names a query-modification recipe used to vary a retry's search.
type Strategy string

const (
	StrategyBase               Strategy = "BASE"
	StrategyBroadenQuery       Strategy = "BROADEN_QUERY"
	StrategyAuthoritativeSites Strategy = "AUTHORITATIVE_SITES"
	StrategyResearchFocused    Strategy = "RESEARCH_FOCUSED"
)

// StrategyOrder is the canonical rotation order scanned when a preferred
// strategy has already been used.
var StrategyOrder = []Strategy{
	StrategyBase,
	StrategyBroadenQuery,
	StrategyAuthoritativeSites,
	StrategyResearchFocused,
}
