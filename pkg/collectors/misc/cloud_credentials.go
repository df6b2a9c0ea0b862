// Package misc holds collectors that do not describe the system or the
// user session directly.
package misc

import (
	"context"
	"iter"
	"os"
	"path/filepath"
	"time"

	"github.com/praetorian-inc/vantage/internal/registry"
	"github.com/praetorian-inc/vantage/pkg/collectors/internal/profiles"
	"github.com/praetorian-inc/vantage/pkg/types"
)

type CloudCredentialFile struct {
	Provider string
	User     string
	Path     string
	Size     int64
	Modified time.Time
}

func (CloudCredentialFile) Shape() types.Shape { return "CloudCredentialFile" }

type credentialLocation struct {
	provider string
	// path is relative to the profile directory.
	path string
}

var credentialLocations = []credentialLocation{
	{"AWS", filepath.Join(".aws", "credentials")},
	{"AWS", filepath.Join(".aws", "config")},
	{"AWS", filepath.Join(".aws", "sso", "cache")},
	{"Azure", filepath.Join(".azure", "accessTokens.json")},
	{"Azure", filepath.Join(".azure", "azureProfile.json")},
	{"Azure", filepath.Join(".azure", "msal_token_cache.json")},
	{"Azure", filepath.Join(".azure", "msal_token_cache.bin")},
	{"Azure", filepath.Join(".azure", "TokenCache.dat")},
	{"Azure", filepath.Join(".azure", "AzureRmContext.json")},
	{"GCP", filepath.Join("AppData", "Roaming", "gcloud", "credentials.db")},
	{"GCP", filepath.Join("AppData", "Roaming", "gcloud", "legacy_credentials")},
	{"GCP", filepath.Join("AppData", "Roaming", "gcloud", "access_tokens.db")},
	{"GCP", filepath.Join("AppData", "Roaming", "gcloud", "application_default_credentials.json")},
	{"Kubernetes", filepath.Join(".kube", "config")},
	{"Docker", filepath.Join(".docker", "config.json")},
}

func init() {
	registry.Register(types.Collector{
		Name:        "CloudCredentials",
		Description: "AWS, Azure, GCP, Kubernetes and Docker credential files in every readable user profile",
		Groups:      []types.Group{types.GroupMisc},
		Remote:      types.RemoteNone,
		Invoke:      invokeCloudCredentials,
	})
}

func invokeCloudCredentials(ctx context.Context, _ []string, ec types.ExecutionContext) iter.Seq2[types.Result, error] {
	return func(yield func(types.Result, error) bool) {
		users, err := profiles.List()
		if err != nil {
			yield(nil, err)
			return
		}
		for _, p := range users {
			if ctx.Err() != nil {
				yield(nil, ctx.Err())
				return
			}
			for _, loc := range credentialLocations {
				path := filepath.Join(p.Home, loc.path)
				info, err := os.Stat(path)
				if err != nil {
					if !os.IsNotExist(err) {
						ec.Log().Debug("skipping credential path", "path", path, "error", err)
					}
					continue
				}
				found := CloudCredentialFile{
					Provider: loc.provider,
					User:     p.User,
					Path:     path,
					Size:     info.Size(),
					Modified: info.ModTime().UTC(),
				}
				if !yield(found, nil) {
					return
				}
			}
		}
	}
}
