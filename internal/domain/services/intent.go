package services

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/ochairo/reloaded/internal/domain/entities"
)

const playStoreHost = "play.google.com"

// ParseInstallIntent extracts the package name from a store link.
// Accepted forms are market://details?id=<pkg> and https://play.google.com/...?id=<pkg>.
func ParseInstallIntent(raw string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", fmt.Errorf("%w: malformed intent uri: %v", entities.ErrInvalid, err)
	}

	if u.Scheme != "market" && !strings.EqualFold(u.Host, playStoreHost) {
		return "", fmt.Errorf("%w: not a store link: %s", entities.ErrInvalid, raw)
	}

	packageName := u.Query().Get("id")
	if packageName == "" {
		return "", fmt.Errorf("%w: store link has no package id: %s", entities.ErrInvalid, raw)
	}

	return packageName, nil
}
