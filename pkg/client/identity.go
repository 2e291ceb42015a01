package client

import (
	"math/rand"

	"github.com/google/uuid"
)

// userAgents is the pool the rotation controller draws from. Entries mirror
// current desktop browsers; the upstream profiles identities by UA family.
var userAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/126.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/126.0.0.0 Safari/537.36",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/125.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:127.0) Gecko/20100101 Firefox/127.0",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.5 Safari/605.1.15",
}

// identity is everything the upstream sees of "who" is calling: a browser
// user agent and a per-session visitor token.
type identity struct {
	UserAgent string
	Visitor   string
}

func newIdentity() identity {
	return identity{
		UserAgent: userAgents[rand.Intn(len(userAgents))],
		Visitor:   uuid.NewString(),
	}
}
