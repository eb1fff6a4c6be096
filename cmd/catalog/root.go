package main

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/mesh-intelligence/catalog/internal/logging"
	"github.com/mesh-intelligence/catalog/internal/paths"
)

// app holds global flag values and the state loaded before a subcommand runs.
type app struct {
	configDir string
	dataDir   string
	serverURL string
	logLevel  string
	jsonOut   bool

	cfg        *viper.Viper
	configFile string
	logger     *zap.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{logger: zap.NewNop()}

	root := &cobra.Command{
		Use:   "catalog",
		Short: "Browse and edit typed entities",
		Long: `catalog manages entities whose attributes are defined at runtime by
entity types. Values are shown by shape, relations are followed to related
entities, and edits are staged and committed in one update.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.load(cmd)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			_ = a.logger.Sync()
		},
	}

	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return userError(err)
	})

	pf := root.PersistentFlags()
	pf.StringVar(&a.configDir, "config-dir", "", "configuration directory (default: $XDG_CONFIG_HOME/catalog)")
	pf.StringVar(&a.dataDir, "data-dir", "", "data directory (default: $(CWD)/.catalog-db)")
	pf.StringVar(&a.serverURL, "server", "", "catalog server URL; when set, commands use the server instead of the local store")
	pf.StringVar(&a.logLevel, "log-level", "", "log level: debug, info, warn, error")
	pf.BoolVar(&a.jsonOut, "json", false, "output as JSON")

	root.AddCommand(
		newVersionCmd(),
		newInitCmd(a),
		newServeCmd(a),
		newSeedCmd(a),
		newTypesCmd(a),
		newTypeCmd(a),
		newListCmd(a),
		newShowCmd(a),
		newEditCmd(a),
		newCreateCmd(a),
		newDeleteCmd(a),
		newExportCmd(a),
		newWatchCmd(a),
	)
	return root
}

// load resolves the config directory, reads config.yaml and builds the
// logger. Flags override config values.
func (a *app) load(cmd *cobra.Command) error {
	if cmd.Name() == "version" {
		return nil
	}
	configDir, err := paths.ResolveConfigDir(a.configDir)
	if err != nil {
		return err
	}
	cfg, err := loadConfig(configDir)
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.configFile = paths.ConfigFile(configDir)

	if a.serverURL == "" {
		a.serverURL = cfg.GetString(cfgKeyServerURL)
	}
	level := a.logLevel
	if level == "" {
		level = cfg.GetString(cfgKeyLogLevel)
	}
	logger, err := logging.New(level, cfg.GetString(cfgKeyLogFormat))
	if err != nil {
		return userError(err)
	}
	a.logger = logger
	return nil
}

// userArgs marks positional argument errors as user errors.
func userArgs(validate cobra.PositionalArgs) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := validate(cmd, args); err != nil {
			return userError(err)
		}
		return nil
	}
}
