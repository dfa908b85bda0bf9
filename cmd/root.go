package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/rdsops/snapshot-reconciler/internal/app"
	apperrors "github.com/rdsops/snapshot-reconciler/internal/errors"
)

var (
	cfgFile        string
	logLevel       string
	logFormat      string
	output         string
	awsRegion      string
	awsProfile     string
	noColor        bool
	desiredState   string
	snapshotID     string
	sourceInstance string
	wait           bool
	waitTimeout    time.Duration
	tagPairs       []string
)

var rootCmd = &cobra.Command{
	Use:   "snapshot-reconciler",
	Short: "Reconciles an RDS DB snapshot to a desired state (present or absent).",
	Long: `snapshot-reconciler drives a single Amazon RDS database snapshot to a
declared desired state. It creates the snapshot when it should exist, deletes
it when it should not, does nothing when the remote state already matches, and
can optionally wait until the snapshot converges to its terminal status.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return initializeConfig(cmd)
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		application, err := app.BuildApplicationFromViper(cmd.Context(), viper.GetViper())
		if err != nil {
			printError(err)
			return err
		}

		req, err := app.BuildRequest(app.RequestInput{
			State:            desiredState,
			SnapshotID:       snapshotID,
			SourceInstanceID: sourceInstance,
			Wait:             wait,
			WaitTimeout:      waitTimeout,
			TagPairs:         tagPairs,
		}, application.Config.Defaults)
		if err != nil {
			printError(err)
			return err
		}

		if err := application.RunReconcile(cmd.Context(), req); err != nil {
			printError(err)
			return err
		}
		return nil
	},
	SilenceUsage:  true,
	SilenceErrors: true,
}

func Execute(ctx context.Context) {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "Configuration file path (default is .snapshot-reconciler.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Override log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "Override log format (text, json)")
	rootCmd.PersistentFlags().StringVarP(&output, "output", "o", "", "Report output format (text, json)")
	rootCmd.PersistentFlags().StringVar(&awsRegion, "region", "", "AWS region (defaults to the SDK resolution chain)")
	rootCmd.PersistentFlags().StringVar(&awsProfile, "profile", "", "AWS shared config profile")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored output")

	rootCmd.Flags().StringVar(&desiredState, "state", "present", "Desired snapshot state (present, absent)")
	rootCmd.Flags().StringVar(&snapshotID, "snapshot", "", "DB snapshot identifier to manage")
	rootCmd.Flags().StringVar(&sourceInstance, "source-instance", "", "Source DB instance identifier (required when state is present)")
	rootCmd.Flags().BoolVar(&wait, "wait", false, "Block until the snapshot reaches its terminal status")
	rootCmd.Flags().DurationVar(&waitTimeout, "wait-timeout", 0, "How long to wait before giving up (default 300s)")
	rootCmd.Flags().StringSliceVar(&tagPairs, "tags", nil, "Tags to attach on create, as key=value pairs")

	viper.BindPFlag("settings.log_level", rootCmd.PersistentFlags().Lookup("log-level"))
	viper.BindPFlag("settings.log_format", rootCmd.PersistentFlags().Lookup("log-format"))
	viper.BindPFlag("settings.output", rootCmd.PersistentFlags().Lookup("output"))
	viper.BindPFlag("settings.reporter_config.text.no_color", rootCmd.PersistentFlags().Lookup("no-color"))
	viper.BindPFlag("aws.region", rootCmd.PersistentFlags().Lookup("region"))
	viper.BindPFlag("aws.profile", rootCmd.PersistentFlags().Lookup("profile"))

	viper.SetEnvPrefix("SNAPSHOT")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
}

func initializeConfig(cmd *cobra.Command) error {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		cobra.CheckErr(err)

		viper.AddConfigPath(".")
		viper.AddConfigPath(home)
		viper.SetConfigName(".snapshot-reconciler")
		viper.SetConfigType("yaml")
	}

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return apperrors.Wrap(err, apperrors.CodeConfigReadError, "failed to read config file")
		}
	}

	return nil
}

func printError(err error) {
	userMsg, suggestion, found := apperrors.GetUserFacingMessage(err)
	if !found {
		fmt.Fprintf(os.Stderr, "ERROR: %v\n", err)
		return
	}
	fmt.Fprintf(os.Stderr, "ERROR: %s\n", userMsg)
	if suggestion != "" {
		fmt.Fprintf(os.Stderr, "Suggestion: %s\n", suggestion)
	}
}
