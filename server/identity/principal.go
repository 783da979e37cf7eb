package identity

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"strings"
)

// PrincipalHeader is the platform-injected identity header. The hosting
// platform authenticates the user at its edge and forwards the verified
// claims to us in this header; we consume the contract, we don't define it.
const PrincipalHeader = "X-MS-CLIENT-PRINCIPAL"

var ErrBadPrincipal = errors.New("malformed client principal header")

// ClientPrincipal is the decoded header payload: base64 of a JSON document
// carrying a flat claim list.
type ClientPrincipal struct {
	AuthTyp string           `json:"auth_typ"`
	NameTyp string           `json:"name_typ"`
	RoleTyp string           `json:"role_typ"`
	Claims  []PrincipalClaim `json:"claims"`
}

type PrincipalClaim struct {
	Typ string `json:"typ"`
	Val string `json:"val"`
}

// PrincipalClaims is the subset of the claim list we act on, with claim-type
// synonyms already collapsed.
type PrincipalClaims struct {
	ExternalID  string
	Email       string
	DisplayName string
	Roles       []string
}

// The upstream claims vocabulary is not uniform: the same semantic field
// arrives under different claim-type URIs/short names depending on the
// identity provider. Match on any known synonym per field.
var (
	externalIDClaimTypes = []string{
		"http://schemas.xmlsoap.org/ws/2005/05/identity/claims/nameidentifier",
		"nameidentifier",
		"nameid",
		"sub",
		"http://schemas.microsoft.com/identity/claims/objectidentifier",
		"oid",
	}
	emailClaimTypes = []string{
		"http://schemas.xmlsoap.org/ws/2005/05/identity/claims/emailaddress",
		"emailaddress",
		"email",
	}
	nameClaimTypes = []string{
		"http://schemas.xmlsoap.org/ws/2005/05/identity/claims/name",
		"name",
	}
	roleClaimTypes = []string{
		"http://schemas.microsoft.com/ws/2008/06/identity/claims/role",
		"role",
		"roles",
	}
)

// DecodePrincipal decodes the base64 JSON header value.
func DecodePrincipal(headerValue string) (*ClientPrincipal, error) {
	raw, err := base64.StdEncoding.DecodeString(headerValue)
	if err != nil {
		// Some platforms emit URL-safe base64.
		raw, err = base64.URLEncoding.DecodeString(headerValue)
		if err != nil {
			return nil, ErrBadPrincipal
		}
	}
	principal := ClientPrincipal{}
	if err := json.Unmarshal(raw, &principal); err != nil {
		return nil, ErrBadPrincipal
	}
	return &principal, nil
}

// ExtractClaims collapses the claim list onto the fields we need.
func (p *ClientPrincipal) ExtractClaims() PrincipalClaims {
	out := PrincipalClaims{}
	for _, claim := range p.Claims {
		typ := strings.ToLower(claim.Typ)
		switch {
		case out.ExternalID == "" && matchesClaimType(typ, externalIDClaimTypes):
			out.ExternalID = claim.Val
		case out.Email == "" && matchesClaimType(typ, emailClaimTypes):
			out.Email = claim.Val
		case out.Email == "" && typ == "preferred_username" && strings.Contains(claim.Val, "@"):
			out.Email = claim.Val
		case out.DisplayName == "" && matchesClaimType(typ, nameClaimTypes):
			out.DisplayName = claim.Val
		case matchesClaimType(typ, roleClaimTypes):
			out.Roles = append(out.Roles, claim.Val)
		}
	}
	return out
}

func matchesClaimType(typ string, synonyms []string) bool {
	for _, s := range synonyms {
		if typ == s {
			return true
		}
	}
	return false
}
