package providers

import (
	"encoding/json"
	"strconv"

	"golang.org/x/oauth2"
)

// DefaultTokenType is used when a provider omits token_type from its response
const DefaultTokenType = "Bearer"

// TokenSet holds the tokens a provider issued for an authorization code
type TokenSet struct {
	AccessToken  string
	RefreshToken string // Absent on some consent re-grants
	Scope        string
	TokenType    string
	ExpiresIn    int64 // Seconds, zero when the provider did not say
}

// tokenSetFrom converts an oauth2 token into a TokenSet, reading the non-standard fields from the raw response
func tokenSetFrom(tok *oauth2.Token) *TokenSet {
	ts := &TokenSet{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		TokenType:    tok.TokenType,
		ExpiresIn:    tok.ExpiresIn,
	}

	if ts.TokenType == "" {
		ts.TokenType = DefaultTokenType
	}

	if scope, ok := tok.Extra("scope").(string); ok {
		ts.Scope = scope
	}

	if ts.ExpiresIn == 0 {
		ts.ExpiresIn = int64Value(tok.Extra("expires_in"))
	}

	return ts
}

// int64Value reads a JSON or form value as an integer
func int64Value(input any) int64 {
	switch v := input.(type) {
	case float64:
		return int64(v)
	case int64:
		return v
	case int:
		return int64(v)
	case json.Number:
		n, _ := v.Int64()
		return n
	case string:
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return 0
}
