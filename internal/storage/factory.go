package storage

import (
	"context"
	"fmt"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	drive "google.golang.org/api/drive/v3"
	"google.golang.org/api/option"

	"slidecast/internal/adapters/hosting/apivideo"
	gdrivehost "slidecast/internal/adapters/hosting/gdrive"
	"slidecast/internal/adapters/hosting/storagehost"
	"slidecast/internal/adapters/storage/gdrive"
	"slidecast/internal/adapters/storage/localfs"
	"slidecast/internal/adapters/storage/s3"
	"slidecast/internal/config"
	"slidecast/internal/pkg/logger"
	"slidecast/internal/ports"
)

// NewProvider builds the StorageProvider selected by STORAGE_PROVIDER.
func NewProvider(ctx context.Context, cfg config.Config) (Provider, error) {
	sc := cfg.Storage
	switch sc.Provider {
	case config.StorageLocalFS, "":
		return localfs.New(sc.LocalRoot), nil

	case config.StorageGDrive:
		srv, err := NewDriveService(ctx, sc)
		if err != nil {
			return nil, err
		}
		return gdrive.NewClient(srv, sc.GDriveFolderID), nil

	case config.StorageS3:
		c, err := s3.New(s3.Options{
			Endpoint:  sc.S3Endpoint,
			AccessKey: sc.S3AccessKey,
			SecretKey: sc.S3SecretKey,
			Bucket:    sc.S3Bucket,
			Region:    sc.S3Region,
			UseSSL:    sc.S3UseSSL,
		})
		if err != nil {
			return nil, err
		}
		if err := c.EnsureBucket(ctx); err != nil {
			return nil, err
		}
		return c, nil

	default:
		return nil, fmt.Errorf("unknown storage provider: %s", sc.Provider)
	}
}

// NewVideoHost builds the VideoHost selected by VIDEO_HOST. The storage
// host reuses sp.
func NewVideoHost(ctx context.Context, cfg config.Config, sp Provider, log *logger.Logger) (ports.VideoHost, error) {
	hc := cfg.Host
	switch hc.Provider {
	case config.HostStorage, "":
		return storagehost.New(sp, cfg.PublicBaseURL), nil

	case config.HostAPIVideo:
		return apivideo.New(apivideo.Options{
			BaseURL:  hc.APIVideoBaseURL,
			APIKey:   hc.APIVideoKey,
			Attempts: hc.UploadAttempts,
		}, log), nil

	case config.HostGDrive:
		srv, err := NewDriveService(ctx, cfg.Storage)
		if err != nil {
			return nil, err
		}
		return gdrivehost.New(srv, hc.GDriveFolderID, hc.GDrivePublic), nil

	default:
		return nil, fmt.Errorf("unknown video host: %s", hc.Provider)
	}
}

// DriveOAuthConfig is the OAuth client used for Drive, shared with the
// gdrive-auth helper.
func DriveOAuthConfig(clientID, clientSecret string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		Endpoint:     google.Endpoint,
		Scopes:       []string{drive.DriveFileScope},
	}
}

// NewDriveService authenticates with the stored refresh token.
func NewDriveService(ctx context.Context, sc config.StorageConfig) (*drive.Service, error) {
	if sc.GDriveClientID == "" || sc.GDriveRefreshToken == "" {
		return nil, fmt.Errorf("missing GDRIVE_CLIENT_ID or GDRIVE_REFRESH_TOKEN")
	}
	conf := DriveOAuthConfig(sc.GDriveClientID, sc.GDriveClientSecret)
	tok := &oauth2.Token{RefreshToken: sc.GDriveRefreshToken}
	httpClient := conf.Client(ctx, tok)

	srv, err := drive.NewService(ctx, option.WithHTTPClient(httpClient))
	if err != nil {
		return nil, fmt.Errorf("drive service: %w", err)
	}
	return srv, nil
}
