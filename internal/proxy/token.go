package proxy

import (
	"context"

	"auction-relay/internal/metadata"
	"auction-relay/internal/refresh"
)

// TokenURI reads tokenURI(tokenId). A malformed id returns ErrInvalidTokenID
// without calling the contract.
func (p *Proxy) TokenURI(ctx context.Context, tokenID string) (*TokenURI, error) {
	id, err := ParseTokenID(tokenID)
	if err != nil {
		return nil, err
	}

	v, err := p.cache.Get(ctx, refresh.Key(EndpointTokenURI, id.String()), func(ctx context.Context) (interface{}, error) {
		uri, err := p.auction.TokenURI(ctx, id)
		if err != nil {
			p.logger.Printf("read tokenURI(%s): %v", id, err)
			return nil, &RequiredReadError{Read: "tokenURI", Err: err}
		}
		return &TokenURI{TokenURI: uri}, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*TokenURI), nil
}

// Metadata returns synthesized metadata for tokenId.
func (p *Proxy) Metadata(tokenID string) (*metadata.Metadata, error) {
	id, err := ParseTokenID(tokenID)
	if err != nil {
		return nil, err
	}
	md := metadata.Synthesize(id.String(), p.publicBaseURL)
	return &md, nil
}

// NFTPreview loads the metadata tokenURI(tokenId) points at, rewritten
// through the gateway. Metadata that cannot be loaded yields a placeholder
// preview rather than an error; a failed tokenURI read is an error.
func (p *Proxy) NFTPreview(ctx context.Context, tokenID string) (*metadata.Preview, error) {
	uri, err := p.TokenURI(ctx, tokenID)
	if err != nil {
		return nil, err
	}
	id, err := ParseTokenID(tokenID)
	if err != nil {
		return nil, err
	}

	v, err := p.cache.Get(ctx, refresh.Key(EndpointNFTPreview, id.String()), func(ctx context.Context) (interface{}, error) {
		preview := p.metadata.Fetch(ctx, uri.TokenURI)
		return &preview, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*metadata.Preview), nil
}
