package storage

import (
	"context"
	"fmt"
	"os"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	drive "google.golang.org/api/drive/v3"
	"google.golang.org/api/option"

	"lienzo/internal/adapters/storage/gdrive"
	"lienzo/internal/adapters/storage/localfs"
)

// Config selects and configures a provider.
type Config struct {
	Provider  string
	LocalRoot string

	GDriveClientID     string
	GDriveClientSecret string
	GDriveRefreshToken string
	GDriveFolderID     string
}

// ConfigFromEnv reads STORAGE_PROVIDER (default localfs), STORAGE_LOCAL_ROOT
// and the GDRIVE_* credentials.
func ConfigFromEnv() Config {
	provider := env("STORAGE_PROVIDER")
	if provider == "" {
		provider = "localfs"
	}
	return Config{
		Provider:           provider,
		LocalRoot:          env("STORAGE_LOCAL_ROOT"),
		GDriveClientID:     env("GDRIVE_CLIENT_ID"),
		GDriveClientSecret: env("GDRIVE_CLIENT_SECRET"),
		GDriveRefreshToken: env("GDRIVE_REFRESH_TOKEN"),
		GDriveFolderID:     env("GDRIVE_FOLDER_ID"),
	}
}

// IsRemote reports whether objects live outside the local filesystem.
func (c Config) IsRemote() bool {
	return c.Provider != "localfs"
}

func NewProvider(ctx context.Context, cfg Config) (Provider, error) {
	switch cfg.Provider {
	case "localfs", "":
		if cfg.LocalRoot == "" {
			return nil, fmt.Errorf("missing env: STORAGE_LOCAL_ROOT")
		}
		return localfs.New(cfg.LocalRoot), nil

	case "gdrive":
		return newGDriveProvider(ctx, cfg)

	default:
		return nil, fmt.Errorf("unknown storage provider: %s", cfg.Provider)
	}
}

func newGDriveProvider(ctx context.Context, cfg Config) (Provider, error) {
	for k, v := range map[string]string{
		"GDRIVE_CLIENT_ID":     cfg.GDriveClientID,
		"GDRIVE_CLIENT_SECRET": cfg.GDriveClientSecret,
		"GDRIVE_REFRESH_TOKEN": cfg.GDriveRefreshToken,
	} {
		if v == "" {
			return nil, fmt.Errorf("missing env: %s", k)
		}
	}

	conf := &oauth2.Config{
		ClientID:     cfg.GDriveClientID,
		ClientSecret: cfg.GDriveClientSecret,
		Endpoint:     google.Endpoint,
		Scopes:       []string{drive.DriveFileScope},
	}

	tok := &oauth2.Token{RefreshToken: cfg.GDriveRefreshToken}
	httpClient := conf.Client(context.WithoutCancel(ctx), tok)

	srv, err := drive.NewService(ctx, option.WithHTTPClient(httpClient))
	if err != nil {
		return nil, err
	}

	return gdrive.NewClient(srv, cfg.GDriveFolderID), nil
}

func env(k string) string {
	return strings.TrimSpace(os.Getenv(k))
}
