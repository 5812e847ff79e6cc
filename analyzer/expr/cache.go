package expr

import (
	"github.com/tdewolff/parse/v2/js"
	"github.com/tidwall/tinylru"
)

// DefaultCacheSize is the number of parsed expressions kept by New.
const DefaultCacheSize = 1024

// cachedExpr stores the outcome of parsing one expression source, errors
// included, so repeated failures are not re-parsed either.
type cachedExpr struct {
	node js.IExpr // Parsed expression, nil on failure
	err  error    // Parse error
}

// exprCache provides concurrent-safe, bounded caching of parsed expressions.
// Templates repeat the same expressions heavily ({{=it.title}} in every
// file of a directory), and the ASTs are never mutated after parsing.
type exprCache struct {
	lru tinylru.LRU // Internally synchronized
}

// newExprCache initializes a cache holding at most size entries.
func newExprCache(size int) *exprCache {
	c := &exprCache{}
	c.lru.Resize(size)
	return c
}

// get retrieves a cached parse result.
// Returns the cached data and a boolean indicating cache hit/miss.
func (c *exprCache) get(src string) (cachedExpr, bool) {
	v, ok := c.lru.Get(src)
	if !ok {
		return cachedExpr{}, false
	}
	return v.(cachedExpr), true
}

// set stores a parse result, evicting the least recently used entry when full.
func (c *exprCache) set(src string, v cachedExpr) {
	c.lru.Set(src, v)
}

// parse returns the cached AST for src, parsing it on a miss.
func (c *exprCache) parse(src string) (js.IExpr, error) {
	if v, ok := c.get(src); ok {
		return v.node, v.err
	}
	node, err := ParseExpression(src)
	c.set(src, cachedExpr{node: node, err: err})
	return node, err
}
