package metadata

import "testing"

func TestResolve(t *testing.T) {
	const gw = "https://gw.example/ipfs/"

	tests := []struct {
		name string
		uri  string
		want string
	}{
		{name: "empty", uri: "", want: ""},
		{name: "https passthrough", uri: "https://host/x.json", want: "https://host/x.json"},
		{name: "http uppercase scheme", uri: "HTTP://host/x.json", want: "HTTP://host/x.json"},
		{name: "ipfs scheme", uri: "ipfs://bafy/1.json", want: gw + "bafy/1.json"},
		{name: "ipfs scheme with ipfs prefix", uri: "ipfs://ipfs/bafy/1.json", want: gw + "bafy/1.json"},
		{name: "ipfs path", uri: "/ipfs/bafy/1.json", want: gw + "bafy/1.json"},
		{name: "other", uri: "ar://tx", want: "ar://tx"},
	}

	r := NewResolver(gw)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := r.Resolve(tt.uri); got != tt.want {
				t.Errorf("Resolve(%q) = %q, want %q", tt.uri, got, tt.want)
			}
		})
	}
}

func TestNewResolver_Normalizes(t *testing.T) {
	if got := NewResolver("").Gateway(); got != DefaultGateway {
		t.Errorf("expected default gateway, got %q", got)
	}
	if got := NewResolver("https://gw.example/ipfs").Gateway(); got != "https://gw.example/ipfs/" {
		t.Errorf("expected trailing slash, got %q", got)
	}
	if got := ResolveGatewayURL("ipfs://cid", "https://gw.example/ipfs"); got != "https://gw.example/ipfs/cid" {
		t.Errorf("unexpected %q", got)
	}
}

func TestSynthesize(t *testing.T) {
	md := Synthesize("7", "https://app.example/")

	if md.Name != "Auction NFT #7" {
		t.Errorf("unexpected name %q", md.Name)
	}
	if md.Image != "https://app.example/assets/7.png" {
		t.Errorf("unexpected image %q", md.Image)
	}
	if md.Description != SynthDescription {
		t.Errorf("unexpected description %q", md.Description)
	}
	if len(md.Attributes) != 2 || md.Attributes[1].Value != "7" {
		t.Errorf("unexpected attributes %+v", md.Attributes)
	}
}
