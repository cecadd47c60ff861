// Package metadata resolves token URIs through an IPFS gateway and fetches
// NFT metadata, degrading to a placeholder on any failure.
package metadata

import (
	"regexp"
	"strings"
)

// DefaultGateway is used when no gateway is configured.
const DefaultGateway = "https://fuchsia-rich-lungfish-648.mypinata.cloud/ipfs/"

var httpScheme = regexp.MustCompile(`(?i)^https?://`)

// Resolver rewrites ipfs:// and /ipfs/ URIs onto an HTTP gateway.
type Resolver struct {
	gateway string
}

// NewResolver creates a Resolver. An empty gateway selects DefaultGateway.
func NewResolver(gateway string) Resolver {
	if gateway == "" {
		gateway = DefaultGateway
	}
	if !strings.HasSuffix(gateway, "/") {
		gateway += "/"
	}
	return Resolver{gateway: gateway}
}

// Gateway returns the normalized gateway prefix.
func (r Resolver) Gateway() string {
	return r.gateway
}

// Resolve maps uri onto the gateway:
//
//	""                   -> ""
//	http(s)://...        -> unchanged
//	ipfs://ipfs/<p>      -> gateway + <p>
//	ipfs://<p>           -> gateway + <p>
//	/ipfs/<p>            -> gateway + <p>
//	anything else        -> unchanged
func (r Resolver) Resolve(uri string) string {
	switch {
	case uri == "":
		return ""
	case httpScheme.MatchString(uri):
		return uri
	case strings.HasPrefix(uri, "ipfs://"):
		path := strings.TrimPrefix(uri, "ipfs://")
		path = strings.TrimPrefix(path, "ipfs/")
		return r.gateway + path
	case strings.HasPrefix(uri, "/ipfs/"):
		return r.gateway + strings.TrimPrefix(uri, "/ipfs/")
	default:
		return uri
	}
}

// ResolveGatewayURL resolves uri against gateway.
func ResolveGatewayURL(uri, gateway string) string {
	return NewResolver(gateway).Resolve(uri)
}
