// Package qbittorrent hands finished torrent files to a qBittorrent
// instance and renames the payload to a clean library name, so media
// servers index the download under its canonical title instead of the
// release-group name.
package qbittorrent

import (
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	qbt "github.com/autobrr/go-qbittorrent"
	"github.com/rs/zerolog"

	"github.com/seekarr/seekarr/internal/config"
)

// api is the slice of the qBittorrent Web API this service uses.
// Narrowed to an interface so tests can run without a live instance.
type api interface {
	LoginCtx(ctx context.Context) error
	AddTorrentFromFileCtx(ctx context.Context, filePath string, options map[string]string) error
	GetTorrentsCtx(ctx context.Context, o qbt.TorrentFilterOptions) ([]qbt.Torrent, error)
	GetFilesInformationCtx(ctx context.Context, hash string) (*qbt.TorrentFiles, error)
	RenameFileCtx(ctx context.Context, hash, oldPath, newPath string) error
	RenameFolderCtx(ctx context.Context, hash, oldPath, newPath string) error
}

// Status is a condensed view of one torrent in the client.
type Status struct {
	Hash       string
	Name       string
	State      string
	Progress   float64
	Size       int64
	DlSpeed    int64
	ETASeconds int64
}

// Service wraps the qBittorrent Web API for adding and tracking
// downloads.
type Service struct {
	client   api
	category string
	logger   zerolog.Logger

	// how long to wait for a freshly added torrent to show up
	settleTimeout time.Duration
	pollInterval  time.Duration
}

// New creates a service connected to the configured instance.
func New(cfg config.QBittorrentConfig, logger zerolog.Logger) *Service {
	client := qbt.NewClient(qbt.Config{
		Host:     cfg.Host,
		Username: cfg.Username,
		Password: cfg.Password,
		Timeout:  cfg.Timeout,
	})
	return newWithAPI(client, cfg.Category, logger)
}

func newWithAPI(client api, category string, logger zerolog.Logger) *Service {
	return &Service{
		client:        client,
		category:      category,
		logger:        logger.With().Str("component", "qbittorrent").Logger(),
		settleTimeout: 10 * time.Second,
		pollInterval:  500 * time.Millisecond,
	}
}

// Add uploads a torrent file to the download queue. When libraryName is
// non-empty the torrent's payload is renamed to it once the client has
// registered the torrent.
func (s *Service) Add(ctx context.Context, torrentPath, libraryName string) error {
	if err := s.client.LoginCtx(ctx); err != nil {
		return fmt.Errorf("qbittorrent login failed: %w", err)
	}

	var before map[string]bool
	if libraryName != "" {
		hashes, err := s.knownHashes(ctx)
		if err != nil {
			s.logger.Warn().Err(err).Msg("Failed to list torrents, rename will be skipped")
		} else {
			before = hashes
		}
	}

	options := map[string]string{"autoTMM": "true"}
	if s.category != "" {
		options["category"] = s.category
	}

	if err := s.client.AddTorrentFromFileCtx(ctx, torrentPath, options); err != nil {
		return fmt.Errorf("failed to add torrent: %w", err)
	}

	s.logger.Info().Str("file", torrentPath).Msg("Torrent added to download queue")

	if libraryName == "" || before == nil {
		return nil
	}

	hash, err := s.waitForNewHash(ctx, before)
	if err != nil {
		s.logger.Error().Err(err).Msg("New torrent hash not found, rename skipped")
		return nil
	}

	s.rename(ctx, hash, libraryName)
	return nil
}

// List returns the condensed status of every torrent in the configured
// category.
func (s *Service) List(ctx context.Context) ([]Status, error) {
	if err := s.client.LoginCtx(ctx); err != nil {
		return nil, fmt.Errorf("qbittorrent login failed: %w", err)
	}

	filter := qbt.TorrentFilterOptions{}
	if s.category != "" {
		filter.Category = s.category
	}

	torrents, err := s.client.GetTorrentsCtx(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list torrents: %w", err)
	}

	statuses := make([]Status, 0, len(torrents))
	for _, t := range torrents {
		statuses = append(statuses, Status{
			Hash:       t.Hash,
			Name:       t.Name,
			State:      string(t.State),
			Progress:   t.Progress,
			Size:       t.Size,
			DlSpeed:    t.DlSpeed,
			ETASeconds: t.ETA,
		})
	}
	return statuses, nil
}

func (s *Service) knownHashes(ctx context.Context) (map[string]bool, error) {
	torrents, err := s.client.GetTorrentsCtx(ctx, qbt.TorrentFilterOptions{})
	if err != nil {
		return nil, err
	}
	hashes := make(map[string]bool, len(torrents))
	for _, t := range torrents {
		hashes[t.Hash] = true
	}
	return hashes, nil
}

// waitForNewHash polls until a torrent not present before the add
// appears, or the settle timeout passes.
func (s *Service) waitForNewHash(ctx context.Context, before map[string]bool) (string, error) {
	deadline := time.Now().Add(s.settleTimeout)
	for time.Now().Before(deadline) {
		torrents, err := s.client.GetTorrentsCtx(ctx, qbt.TorrentFilterOptions{})
		if err == nil {
			for _, t := range torrents {
				if !before[t.Hash] {
					return t.Hash, nil
				}
			}
		}

		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(s.pollInterval):
		}
	}
	return "", fmt.Errorf("torrent did not appear within %s", s.settleTimeout)
}

// rename points the torrent's payload at the library name. Single-file
// torrents keep their extension; single-root folders are renamed
// wholesale; torrents with multiple roots are left alone.
func (s *Service) rename(ctx context.Context, hash, libraryName string) {
	files, err := s.client.GetFilesInformationCtx(ctx, hash)
	if err != nil || files == nil || len(*files) == 0 {
		s.logger.Warn().Err(err).Str("hash", hash).Msg("Failed to list torrent files, rename skipped")
		return
	}

	target := sanitizeName(libraryName)

	if len(*files) == 1 && !strings.Contains((*files)[0].Name, "/") {
		oldName := (*files)[0].Name
		newName := target + path.Ext(oldName)
		if oldName == newName {
			return
		}
		if err := s.client.RenameFileCtx(ctx, hash, oldName, newName); err != nil {
			s.logger.Error().Err(err).Str("hash", hash).Msg("File rename failed")
			return
		}
		s.logger.Info().Str("from", oldName).Str("to", newName).Msg("Renamed torrent file")
		return
	}

	roots := make(map[string]bool)
	for _, f := range *files {
		root, _, _ := strings.Cut(f.Name, "/")
		roots[root] = true
	}
	if len(roots) != 1 {
		s.logger.Debug().Int("roots", len(roots)).Str("hash", hash).Msg("Mixed-root torrent, rename skipped")
		return
	}

	var oldRoot string
	for root := range roots {
		oldRoot = root
	}
	if oldRoot == target {
		return
	}
	if err := s.client.RenameFolderCtx(ctx, hash, oldRoot, target); err != nil {
		s.logger.Error().Err(err).Str("hash", hash).Msg("Folder rename failed")
		return
	}
	s.logger.Info().Str("from", oldRoot).Str("to", target).Msg("Renamed torrent folder")
}

// sanitizeName strips characters that are unsafe in file names.
func sanitizeName(name string) string {
	replacer := strings.NewReplacer(
		"/", " ", "\\", " ", ":", "", "*", "", "?", "",
		"\"", "", "<", "", ">", "", "|", "",
	)
	cleaned := replacer.Replace(name)
	return strings.Join(strings.Fields(cleaned), " ")
}
