package app

import (
	"context"
	stderrs "errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	"github.com/rdsops/snapshot-reconciler/internal/adapters/platform/aws"
	"github.com/rdsops/snapshot-reconciler/internal/adapters/platform/aws/limiter"
	"github.com/rdsops/snapshot-reconciler/internal/config"
	"github.com/rdsops/snapshot-reconciler/internal/core/ports"
	"github.com/rdsops/snapshot-reconciler/internal/core/service"
	"github.com/rdsops/snapshot-reconciler/internal/errors"
	"github.com/rdsops/snapshot-reconciler/internal/log"
	jsonreport "github.com/rdsops/snapshot-reconciler/internal/reporting/json"
	"github.com/rdsops/snapshot-reconciler/internal/reporting/text"
)

// BuildApplicationFromViper assembles the whole application from the merged
// viper configuration (file, environment, flags). The provider client is
// constructed once here and injected into the reconciler; nothing below the
// bootstrap touches process-wide state.
func BuildApplicationFromViper(ctx context.Context, v *viper.Viper) (*Application, error) {
	cfg := config.DefaultConfig()
	err := v.Unmarshal(cfg, viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	)))
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeConfigParseError, "failed to unmarshal configuration")
	}

	logCfg := log.Config{Level: cfg.Settings.LogLevel, Format: cfg.Settings.LogFormat}
	logger, err := log.NewLogger(logCfg)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeInternal, "logger initialization failed")
	}
	logger.Debugf(ctx, "Logger initialized (Level: %s, Format: %s)", cfg.Settings.LogLevel, cfg.Settings.LogFormat)
	if v.ConfigFileUsed() != "" {
		logger.Debugf(ctx, "Using configuration file: %s", v.ConfigFileUsed())
	}

	if err := validateConfig(ctx, cfg, logger); err != nil {
		return nil, err
	}

	limiter.Initialize(cfg.Settings.APIRequestsPerSecond, logger)

	provLog := logger.WithFields(map[string]any{"provider": aws.ProviderTypeAWS})
	provider, err := aws.NewProvider(ctx, cfg.AWS, provLog)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeConfigValidation, "failed to initialize AWS provider")
	}
	provLog.Debugf(ctx, "AWS provider initialized (region: %s)", provider.Region())

	reconciler, err := service.NewReconciler(provider,
		logger.WithFields(map[string]any{"component": "reconciler"}), cfg.Settings.PollInterval)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeInternal, "failed to initialize reconciler")
	}

	facts, err := service.NewFactsService(provider,
		logger.WithFields(map[string]any{"component": "facts"}))
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeInternal, "failed to initialize facts service")
	}

	reporter, err := buildReporter(cfg, logger)
	if err != nil {
		return nil, err
	}

	logger.Debugf(ctx, "Application bootstrap complete")
	return &Application{
		Reconciler: reconciler,
		Facts:      facts,
		Reporter:   reporter,
		Logger:     logger,
		Config:     cfg,
	}, nil
}

func validateConfig(ctx context.Context, cfg *config.Config, logger ports.Logger) error {
	validate := validator.New(validator.WithRequiredStructEnabled())
	err := validate.StructCtx(ctx, cfg)
	if err == nil {
		logger.Debugf(ctx, "Configuration validated successfully")
		return nil
	}

	var details strings.Builder
	details.WriteString("Configuration validation failed:")
	var validationErrors validator.ValidationErrors
	if ok := stderrs.As(err, &validationErrors); ok {
		for _, fe := range validationErrors {
			details.WriteString(fmt.Sprintf("\n - Field '%s': failed '%s' validation (value: '%v')",
				fe.Namespace(), fe.Tag(), fe.Value()))
		}
	} else {
		details.WriteString(" " + err.Error())
	}

	wrapped := errors.NewUserFacing(errors.CodeConfigValidation, details.String(),
		"Check your configuration file and flags.")
	logger.Errorf(ctx, wrapped, "Configuration validation failed")
	return wrapped
}

func buildReporter(cfg *config.Config, logger ports.Logger) (ports.Reporter, error) {
	switch cfg.Settings.Output {
	case text.ReporterTypeText, "":
		textCfg := text.Config{}
		if cfg.Settings.Reporter.Text != nil {
			textCfg = *cfg.Settings.Reporter.Text
		}
		reporter, err := text.NewReporter(textCfg,
			logger.WithFields(map[string]any{"component": "reporter", "type": text.ReporterTypeText}))
		if err != nil {
			return nil, errors.Wrap(err, errors.CodeInternal, "failed to initialize text reporter")
		}
		return reporter, nil
	case jsonreport.ReporterTypeJSON:
		jsonCfg := jsonreport.Config{}
		if cfg.Settings.Reporter.JSON != nil {
			jsonCfg = *cfg.Settings.Reporter.JSON
		}
		reporter, err := jsonreport.NewReporter(jsonCfg,
			logger.WithFields(map[string]any{"component": "reporter", "type": jsonreport.ReporterTypeJSON}))
		if err != nil {
			return nil, errors.Wrap(err, errors.CodeInternal, "failed to initialize JSON reporter")
		}
		return reporter, nil
	default:
		return nil, errors.NewUserFacing(errors.CodeConfigValidation,
			fmt.Sprintf("unsupported output format: %s", cfg.Settings.Output),
			"Supported outputs: text, json.")
	}
}
