package cmd

import (
	"context"
	"io"

	"github.com/anmicius0/unit-batch-station/internal/client"
	"github.com/anmicius0/unit-batch-station/internal/config"
	"github.com/anmicius0/unit-batch-station/internal/journal"
	"github.com/anmicius0/unit-batch-station/internal/scan"
	"github.com/anmicius0/unit-batch-station/internal/service"
	"github.com/anmicius0/unit-batch-station/internal/utils"
	"go.uber.org/zap"
)

// app holds what every online command shares: configuration, backend clients,
// scan profiles and the submission journal.
type app struct {
	cfg      *config.Config
	http     *client.HTTPClient
	profiles *config.ProfileStore
	watcher  *config.ProfileWatcher
	store    *journal.Store
	deps     service.Deps
}

// newApp starts logging, loads configuration and connects the backend.
// console receives human-readable log lines; nil keeps them in the log file only.
func newApp(ctx context.Context, console io.Writer) (*app, error) {
	if err := utils.Init(utils.LogOptions{Console: console, Level: logLevel}); err != nil {
		return nil, err
	}

	cfg, err := config.LoadFrom(envFile)
	if err != nil {
		return nil, err
	}
	utils.Logger.Info("Configuration loaded successfully",
		zap.String("backend_url", cfg.BackendURL),
		zap.String("facility", cfg.FacilityCode))

	a := &app{cfg: cfg}

	profiles, err := config.LoadProfiles(cfg.ProfilesFile)
	if err != nil {
		return nil, err
	}
	a.profiles = config.NewProfileStore(profiles)
	if watcher, err := config.NewProfileWatcher(cfg.ProfilesFile, a.profiles); err != nil {
		utils.Logger.Warn("Scan profiles will not be reloaded", zap.Error(err))
	} else {
		a.watcher = watcher
		a.watcher.Start(ctx)
	}

	var recorder journal.Recorder = journal.Nop{}
	if cfg.JournalDriver != "" {
		a.store, err = journal.Open(cfg.JournalDriver, cfg.JournalDSN)
		if err != nil {
			a.close()
			return nil, err
		}
		recorder = a.store
	}

	a.http = client.NewHTTPClient(client.Options{
		BaseURL:  cfg.BackendURL,
		Token:    cfg.BackendToken,
		Facility: cfg.FacilityCode,
		Timeout:  cfg.BackendTimeout,
	})
	a.deps = service.Deps{
		Irradiation:    client.NewIrradiationClient(a.http, cfg.GraphQLPath),
		Inventory:      client.NewInventoryClient(a.http, cfg.GraphQLPath),
		Shipments:      client.NewShipmentClient(a.http, cfg.GraphQLPath),
		Links:          client.NewLinkFollower(a.http),
		Recorder:       recorder,
		Facility:       cfg.FacilityCode,
		EmployeeID:     cfg.EmployeeID,
		DedupeCooldown: cfg.ScanDedupeCooldown,
	}
	return a, nil
}

// rules returns the current scan rules of a workflow.
func (a *app) rules(workflow string) scan.Rules {
	return a.profiles.Rules(workflow)
}

func (a *app) close() {
	if a.watcher != nil {
		a.watcher.Stop()
	}
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			utils.Logger.Warn("Error closing journal", zap.Error(err))
		}
	}
	if a.http != nil {
		if err := a.http.Close(); err != nil {
			utils.Logger.Warn("Error closing backend client", zap.Error(err))
		}
	}
	_ = utils.Sync()
}
