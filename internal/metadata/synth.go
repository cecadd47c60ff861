package metadata

import (
	"fmt"
	"strings"
)

// SynthDescription is the description of synthesized metadata.
const SynthDescription = "An NFT minted via the on-chain auction."

// Synthesize builds the metadata served for tokenID when no hosted copy is
// used. The image points at {publicBaseURL}/assets/{tokenId}.png.
func Synthesize(tokenID, publicBaseURL string) Metadata {
	return Metadata{
		Name:        FallbackName(tokenID),
		Description: SynthDescription,
		Image:       fmt.Sprintf("%s/assets/%s.png", strings.TrimSuffix(publicBaseURL, "/"), tokenID),
		Attributes: []Attribute{
			{TraitType: "Source", Value: "Auction"},
			{TraitType: "Token ID", Value: tokenID},
		},
	}
}

// FallbackName is the name used when hosted metadata lacks one.
func FallbackName(tokenID string) string {
	return fmt.Sprintf("Auction NFT #%s", tokenID)
}
