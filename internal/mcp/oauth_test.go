package mcp

import "testing"

func TestParseResourceMetadataURLQuoted(t *testing.T) {
	header := `Bearer resource_metadata="https://x/.well-known/oauth-protected-resource"`
	got := ParseResourceMetadataURL(header)
	want := "https://x/.well-known/oauth-protected-resource"
	if got != want {
		t.Fatalf("ParseResourceMetadataURL = %q, want %q", got, want)
	}
}

func TestParseResourceMetadataURLUnquoted(t *testing.T) {
	header := `Bearer resource_metadata=https://x/.well-known/oauth-protected-resource, error="invalid_token"`
	got := ParseResourceMetadataURL(header)
	want := "https://x/.well-known/oauth-protected-resource"
	if got != want {
		t.Fatalf("ParseResourceMetadataURL = %q, want %q", got, want)
	}
}

func TestParseResourceMetadataURLFallsBackToRealm(t *testing.T) {
	header := `Bearer realm="https://x/realm"`
	got := ParseResourceMetadataURL(header)
	want := "https://x/realm"
	if got != want {
		t.Fatalf("ParseResourceMetadataURL = %q, want %q", got, want)
	}
}

func TestParseResourceMetadataURLNoMatch(t *testing.T) {
	if got := ParseResourceMetadataURL(`Basic realm="nope"`); got != "" {
		t.Fatalf("expected no match for a header with no resource_metadata/realm URL-shaped value, got %q", got)
	}
}

func TestWellKnownURLDerivation(t *testing.T) {
	f := &OAuthFlow{}

	gotResource := f.wellKnownResourceMetadataURL("https://mcp.example.com/v1")
	wantResource := "https://mcp.example.com/.well-known/oauth-protected-resource"
	if gotResource != wantResource {
		t.Fatalf("wellKnownResourceMetadataURL = %q, want %q", gotResource, wantResource)
	}

	gotAuth := f.wellKnownAuthServerURL("https://mcp.example.com/v1")
	wantAuth := "https://mcp.example.com"
	if gotAuth != wantAuth {
		t.Fatalf("wellKnownAuthServerURL = %q, want %q", gotAuth, wantAuth)
	}
}

func TestWellKnownURLDerivationInvalidURL(t *testing.T) {
	f := &OAuthFlow{}
	if got := f.wellKnownResourceMetadataURL("://not a url"); got != "" {
		t.Fatalf("expected empty string for unparseable URL, got %q", got)
	}
}
