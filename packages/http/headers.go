package http

import "strings"

// HeaderCollector groups raw header lines by the hop they arrived on. A hop
// boundary is detected when the transport's effective URL changes, since the
// transport gives no explicit signal for it.
//
// Two header blocks received for the same effective URL (an interim
// 100 Continue followed by the final response, for example) end up in the
// same group.
//
// A collector belongs to a single transfer and must not be reused.
type HeaderCollector struct {
	index   int
	lastURL string
	started bool
	groups  [][]string
}

func NewHeaderCollector() *HeaderCollector {
	return &HeaderCollector{index: -1}
}

// OnHeaderLine records one raw line as delivered by the transport together
// with the effective URL at the time of delivery.
func (c *HeaderCollector) OnHeaderLine(rawLine, effectiveURL string) {
	if !c.started || effectiveURL != c.lastURL {
		c.index++
		c.groups = append(c.groups, []string{})
		c.lastURL = effectiveURL
		c.started = true
	}

	// status lines and the blank end-of-headers line carry no separator
	if !strings.Contains(rawLine, ":") {
		return
	}

	c.groups[c.index] = append(c.groups[c.index], strings.TrimSpace(rawLine))
}

// Groups returns the collected header lines, one slice per hop in visit order
func (c *HeaderCollector) Groups() [][]string {
	out := make([][]string, len(c.groups))
	for i, g := range c.groups {
		out[i] = make([]string, len(g))
		copy(out[i], g)
	}
	return out
}
