package publish

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-resty/resty/v2"
)

type userResponse struct {
	Login string `json:"login"`
}

// ResolveOwner returns owner, or the login of the user that client
// authenticates as when owner is empty. client must carry the API base url
// and token.
func ResolveOwner(ctx context.Context, client *resty.Client, owner string) (string, error) {
	if owner != "" {
		return owner, nil
	}

	var user userResponse
	res, err := client.R().
		SetContext(ctx).
		SetResult(&user).
		Get("/user")
	if err != nil {
		return "", fmt.Errorf("GET /user: %w", err)
	}
	if res.IsError() {
		return "", fmt.Errorf("GET /user: unexpected status %s: %s", res.Status(), strings.TrimSpace(res.String()))
	}
	if user.Login == "" {
		return "", fmt.Errorf("could not resolve the token's user")
	}
	return user.Login, nil
}
