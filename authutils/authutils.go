// Package authutils stores Canvas API tokens in the OS keychain, keyed by
// instance base URL, so tokens never land in files or shell history.
package authutils

import (
	"github.com/pkg/errors"
	"github.com/zalando/go-keyring"

	"github.com/derekvan/canvas-markdown-tools/config"
)

var Log = config.Cfg().GetLogger()

const keyringService = "canvas-markdown-tools"

// Token returns the stored API token for an instance. The environment
// override, when set, wins over the keychain.
func Token(baseURL string) (string, error) {
	if t := config.Cfg().CanvasAPIToken; t != "" {
		return t, nil
	}
	t, err := keyring.Get(keyringService, baseURL)
	if err != nil {
		return "", errors.Wrapf(err, "no API token stored for %s, run the auth command first", baseURL)
	}
	return t, nil
}

func SaveToken(baseURL, token string) error {
	if err := keyring.Set(keyringService, baseURL, token); err != nil {
		return errors.Wrapf(err, "unable to store API token for %s", baseURL)
	}
	Log.Infof("Stored API token for %s", baseURL)
	return nil
}

func DeleteToken(baseURL string) error {
	if err := keyring.Delete(keyringService, baseURL); err != nil {
		return errors.Wrapf(err, "unable to delete API token for %s", baseURL)
	}
	Log.Infof("Deleted API token for %s", baseURL)
	return nil
}
