package cmd

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/praetorian-inc/vantage/internal/logs"
	"github.com/praetorian-inc/vantage/internal/message"
	"github.com/praetorian-inc/vantage/internal/registry"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var cfgFile string

// logger is configured in PersistentPreRunE from --log-level.
var logger = slog.Default()

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "vantage",
	Short: "Vantage surveys the security configuration of Windows hosts.",
	Long: `Vantage runs a catalogue of independent collectors against the local machine
or, over WinRM, a remote one, and renders what each collector finds.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return setupOutput()
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		if errors.Is(err, registry.ErrInvalidCatalogue) {
			message.Critical("%v", err)
		} else {
			message.Error("%v", err)
		}
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "config file (default is $HOME/.vantage.yaml)")
	pf.BoolP("quiet", "q", false, "suppress informational messages and the run summary")
	pf.Bool("no-color", false, "disable colored output")
	pf.String("log-level", "warn", "log level: debug, info, warn or error")
	cobra.CheckErr(viper.BindPFlags(pf))
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" {
		// Use config file from the flag.
		viper.SetConfigFile(cfgFile)
	} else {
		// Find home directory.
		home, err := os.UserHomeDir()
		cobra.CheckErr(err)

		// Search config in home directory with name ".vantage" (without extension).
		viper.AddConfigPath(home)
		viper.SetConfigType("yaml")
		viper.SetConfigName(".vantage")
	}

	viper.SetEnvPrefix("VANTAGE")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv() // read in environment variables that match

	// If a config file is found, read it in.
	if err := viper.ReadInConfig(); err == nil && !viper.GetBool("quiet") {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

func setupOutput() error {
	noColor := viper.GetBool("no-color")
	message.SetQuiet(viper.GetBool("quiet"))
	message.SetNoColor(noColor)

	level, err := logs.ParseLevel(viper.GetString("log-level"))
	if err != nil {
		return err
	}
	logger = logs.ConsoleLogger(level, noColor)
	return nil
}
