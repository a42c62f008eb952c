package cli

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/roamledger/roamledger/config"
	apperrors "github.com/roamledger/roamledger/errors"
	"github.com/roamledger/roamledger/internal/localstore"
	"github.com/roamledger/roamledger/internal/reconcile"
	"github.com/roamledger/roamledger/internal/remote"
	"github.com/roamledger/roamledger/internal/sync"
	"github.com/roamledger/roamledger/logger"
	"github.com/roamledger/roamledger/types"
)

// app bundles the opened sync core for one command invocation. Commands are
// short lived: open, operate, close.
type app struct {
	cfg        *config.Config
	store      *localstore.Store
	remote     *remote.Client
	engine     *sync.Engine
	reconciler *reconcile.Service
	out        io.Writer
}

// openApp loads configuration, opens the local store and builds the engine.
// A recreated store is reported on out and the command proceeds; the user's
// remote data is recoverable through verify.
func openApp(ctx context.Context, opts *RootOptions, out io.Writer) (*app, error) {
	cfg, err := config.LoadClientConfig()
	if err != nil {
		return nil, err
	}
	if opts.StorePath != "" {
		cfg.Client.StorePath = opts.StorePath
	}
	if opts.RemoteURL != "" {
		cfg.Client.RemoteBaseURL = opts.RemoteURL
	}

	store, err := localstore.Open(ctx, cfg.Client.StorePath)
	if err != nil {
		if !apperrors.IsType(err, apperrors.StoreRecreatedError) {
			return nil, err
		}
		fmt.Fprintln(out, "warning: the local store was damaged and had to be reset;")
		fmt.Fprintln(out, "run \"roam verify\" to restore your trips from the server")
	}

	client, err := remote.NewClient(cfg.Client.RemoteBaseURL,
		remote.WithTimeout(time.Duration(cfg.Client.TimeoutSeconds)*time.Second))
	if err != nil {
		store.Close()
		return nil, err
	}

	// The session cookie lives in this process's jar. Failing to get one is
	// not fatal: every remote call will fail the same way and the engine
	// falls back to local-only writes.
	if _, err := client.OpenSession(ctx); err != nil {
		logger.GetLogger().Debugw("Could not open remote session", "error", err)
	}

	a := &app{
		cfg:    cfg,
		store:  store,
		remote: client,
		out:    out,
	}
	a.engine = sync.NewEngine(store, client)
	a.reconciler = reconcile.NewService(store, client, reconcile.WithNotifier(
		reconcile.NotifierFunc(func() {
			logger.GetLogger().Debug("Local trips changed by reconciliation")
		}),
	))
	return a, nil
}

func (a *app) Close() {
	if err := a.store.Close(); err != nil {
		logger.GetLogger().Warnw("Failed to close local store", "error", err)
	}
}

// identity loads the device identity, failing with a hint when unset.
func (a *app) identity(ctx context.Context) (types.Identity, error) {
	id, err := a.store.GetIdentity(ctx)
	if err != nil {
		if apperrors.IsType(err, apperrors.RecordNotFoundError) {
			return types.Identity{}, apperrors.ValidationFailed(
				"No identity configured", `set one first with "roam identity set <11 digits>"`)
		}
		return types.Identity{}, err
	}
	return *id, nil
}

// printSaveResult tells the user where a write landed.
func (a *app) printSaveResult(entity string, result *sync.SaveResult) {
	if result.Synced {
		fmt.Fprintf(a.out, "%s #%d saved\n", entity, result.ID)
		return
	}
	fmt.Fprintf(a.out, "%s #%d saved locally (server unavailable, will sync later)\n", entity, result.ID)
}
