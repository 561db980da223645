package auth

import "strings"

const bearerScheme = "Bearer "

// BearerToken extracts the token from an Authorization header value. An
// absent header is ErrMissingCredential; a present header that is not of the
// form "Bearer <token>" is ErrMalformedHeader.
func BearerToken(header string) (string, error) {
	if header == "" {
		return "", ErrMissingCredential
	}
	if !strings.HasPrefix(header, bearerScheme) || header == bearerScheme {
		return "", ErrMalformedHeader
	}
	return header[len(bearerScheme):], nil
}
