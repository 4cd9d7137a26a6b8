package signal

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gobwas/glob"
	"github.com/rs/zerolog/log"
)

// OriginChecker matches the Origin header of a browser handshake against glob
// patterns such as "https://*.example.com". No patterns means any origin.
type OriginChecker struct {
	patterns []glob.Glob
}

func NewOriginChecker(patterns []string) (*OriginChecker, error) {
	oc := &OriginChecker{}
	for _, p := range patterns {
		g, err := glob.Compile(strings.ToLower(p))
		if err != nil {
			return nil, fmt.Errorf("bad origin pattern %q: %w", p, err)
		}
		oc.patterns = append(oc.patterns, g)
	}
	return oc, nil
}

func (oc *OriginChecker) Check(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	// non-browser clients send no Origin
	if origin == "" || len(oc.patterns) == 0 {
		return true
	}
	origin = strings.ToLower(origin)
	for _, g := range oc.patterns {
		if g.Match(origin) {
			return true
		}
	}
	log.Warn().Str("module", "signal").Str("origin", origin).Msg("origin rejected")
	return false
}
