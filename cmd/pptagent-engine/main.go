package main

import (
	"context"
	"encoding/json"
	"log"
	"os"

	"github.com/SnowriterMYX/PPTAgent/internal/appdirs"
	"github.com/SnowriterMYX/PPTAgent/internal/diag"
	"github.com/SnowriterMYX/PPTAgent/internal/engine"
	"github.com/SnowriterMYX/PPTAgent/internal/envfile"
	"github.com/SnowriterMYX/PPTAgent/internal/envutil"
	"github.com/SnowriterMYX/PPTAgent/internal/errinfo"
	"github.com/SnowriterMYX/PPTAgent/internal/logging"
	"github.com/SnowriterMYX/PPTAgent/internal/rpc"
	"github.com/SnowriterMYX/PPTAgent/internal/settings"
)

func main() {
	envResult := envfile.Load()
	debug := envutil.Bool("PPTAGENT_DEBUG")
	dataDir, err := appdirs.DataDir()
	if err != nil {
		log.Fatalf("engine init failed: %v", err)
	}
	logSetup, logErr := logging.NewFileLogger(dataDir, debug)
	logger := logSetup.Logger
	if logger == nil {
		logger = logging.Nop()
	}
	logger = logger.With("component", "engine")
	if logSetup.Enabled {
		logger.Info("engine.logging_enabled", "path", logSetup.Path)
	}
	if envResult.Loaded {
		logger.Debug("engine.env_loaded", "path", envResult.Path, "keys", envResult.Keys)
	}
	if envResult.Err != nil {
		logger.Warn("engine.env_load_failed", "path", envResult.Path, "error", envResult.Err.Error())
	}
	if logErr != nil {
		logger.Warn("engine.log_setup_failed", "error", logErr.Error())
	}
	if logSetup.Close != nil {
		defer logSetup.Close()
	}

	store := settings.NewStore(appdirs.SettingsPath(dataDir))
	cfg, err := store.Load()
	if err != nil {
		logger.Warn("engine.settings_load_failed", "error", err.Error())
		cfg = settings.Default()
	}
	cfg.MaxParallelSlides = envutil.Int("PPTAGENT_MAX_PARALLEL_SLIDES", cfg.MaxParallelSlides)

	opts := []engine.Option{engine.WithLogger(logger), engine.WithSettings(cfg)}
	if cfg.DiagnosticsEnabled {
		diagStore, diagErr := diag.Open(appdirs.DiagnosticsPath(dataDir))
		if diagErr != nil {
			logger.Warn("engine.diagnostics_open_failed", "error", diagErr.Error())
		} else {
			defer diagStore.Close()
			opts = append(opts, engine.WithDiagnostics(diagStore))
		}
	}

	eng, err := engine.New(opts...)
	if err != nil {
		logger.Error("engine.init_failed", "error", err.Error())
		log.Fatalf("engine init failed: %v", err)
	}
	server := rpc.NewServer(engine.APIVersion, os.Stdin, os.Stdout, logger)
	eng.SetNotifier(server.Notify)

	register := func(method string, fn func(context.Context, json.RawMessage) (any, *errinfo.ErrorInfo)) {
		server.Register(method, func(ctx context.Context, params json.RawMessage) (any, *rpc.Error) {
			result, errInfo := fn(ctx, params)
			if errInfo != nil {
				msg := errInfo.ErrorCode
				if errInfo.Detail != "" {
					msg = errInfo.Detail
				}
				return nil, &rpc.Error{Message: msg, Data: errInfo}
			}
			return result, nil
		})
	}

	register("EngineGetInfo", eng.EngineGetInfo)
	register("OperationDocs", eng.OperationDocs)
	register("SlideLoad", eng.SlideLoad)
	register("DocumentLoad", eng.DocumentLoad)
	register("SessionState", eng.SessionState)
	register("SessionDiscard", eng.SessionDiscard)
	register("ExecuteActions", eng.ExecuteActions)
	register("SlideSave", eng.SlideSave)
	register("DiagnosticsReport", eng.DiagnosticsReport)

	if err := server.Serve(context.Background()); err != nil {
		logger.Error("rpc.server_error", "error", err.Error())
		log.Fatalf("rpc server error: %v", err)
	}
}
